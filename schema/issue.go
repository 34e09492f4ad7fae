// Package schema validates persisted issue collections before they are
// accepted into memory.
package schema

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"github.com/goccy/go-json"

	"civicsync/models"
)

// ErrInvalid wraps every decode or validation failure.
var ErrInvalid = errors.New("schema: invalid issue data")

// issueDocument mirrors models.Issue with pointer fields so an absent key
// can be told apart from a zero value.
type issueDocument struct {
	ID          *string           `json:"id" validate:"required,notblank"`
	Title       *string           `json:"title" validate:"required,notblank"`
	Description *string           `json:"description" validate:"required"`
	Location    *string           `json:"location" validate:"required"`
	Category    *string           `json:"category" validate:"required,oneof=Roads Water Electricity Sanitation Safety Environment Other"`
	Urgency     *string           `json:"urgency" validate:"omitempty,oneof=low medium high"`
	Media       []*mediaDocument  `json:"media" validate:"omitempty,dive,required"`
	Status      *string           `json:"status" validate:"required,oneof=new in_progress resolved"`
	Reporter    *reporterDocument `json:"reporter"`
	AssignedTo  *string           `json:"assignedTo"`
	TokenReward *float64          `json:"tokenReward" validate:"omitempty,gte=0"`
	Upvotes     *int              `json:"upvotes" validate:"omitempty,gte=0"`
	CreatedAt   *time.Time        `json:"createdAt" validate:"required"`
	UpdatedAt   *time.Time        `json:"updatedAt" validate:"required,gtefield=CreatedAt"`
	ResolvedAt  *time.Time        `json:"resolvedAt" validate:"omitempty,gtefield=CreatedAt"`
}

type mediaDocument struct {
	URL  *string `json:"url" validate:"required,media_url"`
	Type *string `json:"type" validate:"required,oneof=image video"`
}

type reporterDocument struct {
	Name  *string `json:"name"`
	Email *string `json:"email" validate:"omitempty,email"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// Registration only fails on an empty tag or nil func.
	_ = v.RegisterValidation("media_url", isMediaURL)
	_ = v.RegisterValidation("notblank", validators.NotBlank)
	return v
}

// isMediaURL accepts absolute http(s) URLs and self-contained data URLs.
func isMediaURL(fl validator.FieldLevel) bool {
	u, err := url.Parse(fl.Field().String())
	if err != nil {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return u.Host != ""
	case "data":
		return u.Opaque != ""
	default:
		return false
	}
}

// DecodeIssues parses raw as a JSON array of issue records and validates
// every element. The returned slice preserves the input order.
func DecodeIssues(raw []byte) ([]models.Issue, error) {
	var docs []*issueDocument
	if err := json.Unmarshal(raw, &docs); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if docs == nil {
		// "null" decodes to a nil slice; only an array is acceptable.
		return nil, fmt.Errorf("%w: expected an array", ErrInvalid)
	}

	issues := make([]models.Issue, 0, len(docs))
	for i, doc := range docs {
		if doc == nil {
			return nil, fmt.Errorf("%w: issue[%d]: null record", ErrInvalid, i)
		}
		if err := validate.Struct(doc); err != nil {
			return nil, fmt.Errorf("%w: issue[%d]: %w", ErrInvalid, i, err)
		}
		issues = append(issues, doc.issue())
	}
	return issues, nil
}

// ValidateIssue applies the persisted-record rules to a typed issue.
func ValidateIssue(issue models.Issue) error {
	if err := validate.Struct(documentFor(issue)); err != nil {
		return fmt.Errorf("%w: issue %q: %w", ErrInvalid, issue.ID, err)
	}
	return nil
}

func (d *issueDocument) issue() models.Issue {
	issue := models.Issue{
		ID:          *d.ID,
		Title:       *d.Title,
		Description: *d.Description,
		Location:    *d.Location,
		Category:    models.IssueCategory(*d.Category),
		Status:      models.IssueStatus(*d.Status),
		AssignedTo:  d.AssignedTo,
		CreatedAt:   *d.CreatedAt,
		UpdatedAt:   *d.UpdatedAt,
		ResolvedAt:  d.ResolvedAt,
	}
	if d.Urgency != nil {
		u := models.Urgency(*d.Urgency)
		issue.Urgency = &u
	}
	if d.Media != nil {
		issue.Media = make([]models.Media, 0, len(d.Media))
		for _, m := range d.Media {
			issue.Media = append(issue.Media, models.Media{URL: *m.URL, Type: models.MediaKind(*m.Type)})
		}
	}
	if d.Reporter != nil {
		issue.Reporter = &models.Reporter{}
		if d.Reporter.Name != nil {
			issue.Reporter.Name = *d.Reporter.Name
		}
		if d.Reporter.Email != nil {
			issue.Reporter.Email = *d.Reporter.Email
		}
	}
	if d.TokenReward != nil {
		issue.TokenReward = *d.TokenReward
	}
	if d.Upvotes != nil {
		issue.Upvotes = *d.Upvotes
	}
	return issue
}

func documentFor(issue models.Issue) *issueDocument {
	category := string(issue.Category)
	status := string(issue.Status)
	doc := &issueDocument{
		ID:          &issue.ID,
		Title:       &issue.Title,
		Description: &issue.Description,
		Location:    &issue.Location,
		Category:    &category,
		Status:      &status,
		AssignedTo:  issue.AssignedTo,
		TokenReward: &issue.TokenReward,
		Upvotes:     &issue.Upvotes,
		CreatedAt:   &issue.CreatedAt,
		UpdatedAt:   &issue.UpdatedAt,
		ResolvedAt:  issue.ResolvedAt,
	}
	if issue.Urgency != nil {
		u := string(*issue.Urgency)
		doc.Urgency = &u
	}
	for _, m := range issue.Media {
		u, k := m.URL, string(m.Type)
		doc.Media = append(doc.Media, &mediaDocument{URL: &u, Type: &k})
	}
	if issue.Reporter != nil {
		doc.Reporter = &reporterDocument{}
		if issue.Reporter.Name != "" {
			doc.Reporter.Name = &issue.Reporter.Name
		}
		if issue.Reporter.Email != "" {
			doc.Reporter.Email = &issue.Reporter.Email
		}
	}
	return doc
}
