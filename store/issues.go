package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/goccy/go-json"

	"civicsync/analytics"
	"civicsync/models"
	"civicsync/schema"
	"civicsync/storage"
)

// ErrInvalidStatus is returned when a status outside the workflow is set.
var ErrInvalidStatus = errors.New("invalid issue status")

// IssueStore owns the canonical issue collection, most recent first. It is
// the only writer of its storage key.
type IssueStore struct {
	mu     sync.Mutex
	kv     storage.KeyValue
	key    string
	issues []models.Issue
	opts   options
}

// NewIssueStore loads the collection stored under key. A missing, corrupt or
// schema-mismatched blob yields an empty collection.
func NewIssueStore(ctx context.Context, kv storage.KeyValue, key string, opts ...Option) *IssueStore {
	s := &IssueStore{
		kv:   kv,
		key:  key,
		opts: buildOptions(opts),
	}
	s.issues = s.load(ctx)
	return s
}

func (s *IssueStore) load(ctx context.Context) []models.Issue {
	raw, ok, err := s.kv.Get(ctx, s.key)
	if err != nil {
		s.opts.logger.Warn("reading issues failed, starting empty", "key", s.key, "err", err)
		return []models.Issue{}
	}
	if !ok || raw == "" {
		return []models.Issue{}
	}

	issues, err := schema.DecodeIssues([]byte(raw))
	if err != nil {
		s.opts.logger.Warn("discarding unreadable issues", "key", s.key, "err", err)
		return []models.Issue{}
	}
	s.opts.logger.Debug("issues loaded", "key", s.key, "count", len(issues))
	return issues
}

// persist writes next in full. Callers swap it in only after success so a
// failed write leaves memory matching storage.
func (s *IssueStore) persist(ctx context.Context, next []models.Issue) error {
	blob, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("encoding issues: %w", err)
	}
	if err := s.kv.Set(ctx, s.key, string(blob)); err != nil {
		return fmt.Errorf("saving issues: %w", err)
	}
	return nil
}

// Create stores a new issue at the front of the collection. Status is
// always new and both timestamps are the current instant.
func (s *IssueStore) Create(ctx context.Context, input models.IssueInput) (models.Issue, error) {
	// Stamp under the lock so the front record is always the newest.
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.opts.now().UTC()
	if len(s.issues) > 0 && now.Before(s.issues[0].CreatedAt) {
		now = s.issues[0].CreatedAt
	}

	issue := models.Issue{
		ID:          s.opts.newID(),
		Title:       input.Title,
		Description: input.Description,
		Location:    input.Location,
		Category:    input.Category,
		Urgency:     input.Urgency,
		Media:       slices.Clone(input.Media),
		Status:      models.StatusNew,
		Reporter:    input.Reporter,
		AssignedTo:  input.AssignedTo,
		TokenReward: input.TokenReward,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if input.Upvotes != nil {
		issue.Upvotes = *input.Upvotes
	}
	issue = issue.Clone()

	if err := schema.ValidateIssue(issue); err != nil {
		return models.Issue{}, err
	}

	next := make([]models.Issue, 0, len(s.issues)+1)
	next = append(next, issue)
	next = append(next, s.issues...)
	if err := s.persist(ctx, next); err != nil {
		return models.Issue{}, err
	}
	s.issues = next

	s.opts.logger.Info("issue created", "id", issue.ID, "category", issue.Category)
	return issue.Clone(), nil
}

// UpdateStatus sets any status on the issue, in any order, and stamps
// updatedAt. An unknown id is a no-op.
func (s *IssueStore) UpdateStatus(ctx context.Context, id string, status models.IssueStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	return s.mutate(ctx, id, func(issue *models.Issue) {
		now := s.opts.now().UTC()
		if now.Before(issue.CreatedAt) {
			now = issue.CreatedAt
		}

		switch {
		case status == models.StatusResolved && (issue.Status != models.StatusResolved || issue.ResolvedAt == nil):
			issue.ResolvedAt = &now
		case status != models.StatusResolved:
			issue.ResolvedAt = nil
		}
		issue.Status = status
		issue.UpdatedAt = now
	})
}

// Assign sets the assignee, or clears it when assignee is nil. updatedAt is
// left alone.
func (s *IssueStore) Assign(ctx context.Context, id string, assignee *string) error {
	return s.mutate(ctx, id, func(issue *models.Issue) {
		if assignee == nil {
			issue.AssignedTo = nil
			return
		}
		a := *assignee
		issue.AssignedTo = &a
	})
}

// Upvote adds one vote. Like Assign it does not touch updatedAt.
func (s *IssueStore) Upvote(ctx context.Context, id string) error {
	return s.mutate(ctx, id, func(issue *models.Issue) {
		issue.Upvotes++
	})
}

func (s *IssueStore) mutate(ctx context.Context, id string, apply func(*models.Issue)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return nil
	}

	next := slices.Clone(s.issues)
	updated := next[idx].Clone()
	apply(&updated)
	next[idx] = updated

	if err := s.persist(ctx, next); err != nil {
		return err
	}
	s.issues = next
	return nil
}

// ClearAll removes every issue.
func (s *IssueStore) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := []models.Issue{}
	if err := s.persist(ctx, next); err != nil {
		return err
	}
	s.issues = next
	s.opts.logger.Info("issues cleared")
	return nil
}

// Get returns a copy of the issue with the given id.
func (s *IssueStore) Get(id string) (models.Issue, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return models.Issue{}, false
	}
	return s.issues[idx].Clone(), true
}

// All returns a snapshot of the collection, most recent first.
func (s *IssueStore) All() []models.Issue {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Issue, len(s.issues))
	for i, issue := range s.issues {
		out[i] = issue.Clone()
	}
	return out
}

// Filtered is the feed view over the current collection.
func (s *IssueStore) Filtered(criteria models.IssueFilters) []models.Issue {
	return analytics.Filter(s.All(), criteria)
}

// Stats is the dashboard view over the current collection.
func (s *IssueStore) Stats() models.DashboardStats {
	return analytics.Aggregate(s.All())
}

func (s *IssueStore) indexOf(id string) int {
	return slices.IndexFunc(s.issues, func(issue models.Issue) bool {
		return issue.ID == id
	})
}
