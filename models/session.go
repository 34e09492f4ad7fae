package models

// Role of the signed-in identity.
type Role string

const (
	RoleUser      Role = "user"
	RoleAuthority Role = "authority"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAuthority
}

// Session is the single signed-in identity. Token is an opaque capability
// string and is never verified against any credential.
type Session struct {
	Role  Role   `json:"role"`
	Token string `json:"token,omitempty"`
	Name  string `json:"name,omitempty"`
}
