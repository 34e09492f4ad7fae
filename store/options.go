// Package store holds the two state containers: the issue collection and
// the signed-in session. Each loads from a storage.KeyValue at construction
// and writes its whole state back on every mutation.
package store

import (
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// Default storage keys, shared with the browser shell.
const (
	DefaultIssuesKey  = "civic_issues_v1"
	DefaultSessionKey = "civic_auth_v1"
)

type options struct {
	now    func() time.Time
	newID  func() string
	logger *log.Logger
	secret string
}

// Option configures a store.
type Option func(*options)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithIDGenerator replaces the UUID generator used for new issues.
func WithIDGenerator(newID func() string) Option {
	return func(o *options) { o.newID = newID }
}

func WithLogger(logger *log.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithTokenSecret signs tokens minted at login. Without it tokens are
// random UUIDs.
func WithTokenSecret(secret string) Option {
	return func(o *options) { o.secret = secret }
}

func buildOptions(opts []Option) options {
	o := options{
		now:    time.Now,
		newID:  uuid.NewString,
		logger: log.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
