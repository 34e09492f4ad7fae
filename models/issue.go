package models

import (
	"slices"
	"time"
)

// IssueCategory enum
type IssueCategory string

const (
	Roads       IssueCategory = "Roads"
	Water       IssueCategory = "Water"
	Electricity IssueCategory = "Electricity"
	Sanitation  IssueCategory = "Sanitation"
	Safety      IssueCategory = "Safety"
	Environment IssueCategory = "Environment"
	Other       IssueCategory = "Other"
)

// Categories lists every category in display order.
var Categories = []IssueCategory{Roads, Water, Electricity, Sanitation, Safety, Environment, Other}

// Valid reports whether c is one of the known categories.
func (c IssueCategory) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// IssueStatus enum
type IssueStatus string

const (
	StatusNew        IssueStatus = "new"
	StatusInProgress IssueStatus = "in_progress"
	StatusResolved   IssueStatus = "resolved"
)

// Statuses lists every workflow status in workflow order.
var Statuses = []IssueStatus{StatusNew, StatusInProgress, StatusResolved}

func (s IssueStatus) Valid() bool {
	return s == StatusNew || s == StatusInProgress || s == StatusResolved
}

// Urgency is an optional severity hint, independent of status.
type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
)

// MediaKind enum
type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
)

// Media is one attachment on an issue.
type Media struct {
	URL  string    `json:"url"`
	Type MediaKind `json:"type"`
}

// Reporter identifies who submitted an issue, when known.
type Reporter struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// Issue represents a civic issue reported by a citizen
type Issue struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Location    string        `json:"location"`
	Category    IssueCategory `json:"category"`
	Urgency     *Urgency      `json:"urgency,omitempty"`
	Media       []Media       `json:"media,omitempty"`
	Status      IssueStatus   `json:"status"`
	Reporter    *Reporter     `json:"reporter,omitempty"`
	AssignedTo  *string       `json:"assignedTo,omitempty"`
	TokenReward float64       `json:"tokenReward"`
	Upvotes     int           `json:"upvotes"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
	ResolvedAt  *time.Time    `json:"resolvedAt,omitempty"`
}

// Clone returns a deep copy so callers can't reach into store state.
func (i Issue) Clone() Issue {
	out := i
	if i.Urgency != nil {
		u := *i.Urgency
		out.Urgency = &u
	}
	if i.Media != nil {
		out.Media = slices.Clone(i.Media)
	}
	if i.Reporter != nil {
		r := *i.Reporter
		out.Reporter = &r
	}
	if i.AssignedTo != nil {
		a := *i.AssignedTo
		out.AssignedTo = &a
	}
	if i.ResolvedAt != nil {
		t := *i.ResolvedAt
		out.ResolvedAt = &t
	}
	return out
}

// IssueInput carries every issue field the caller may set on creation.
// Identifier, status and timestamps are always assigned by the store.
type IssueInput struct {
	Title       string
	Description string
	Location    string
	Category    IssueCategory
	Urgency     *Urgency
	Media       []Media
	Reporter    *Reporter
	AssignedTo  *string
	TokenReward float64
	Upvotes     *int
}
