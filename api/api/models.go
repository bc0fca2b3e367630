/* models.go
 * This file contain the interfaces, structs and helper functions that are used by api consumers
 * Authors: Zachary Bower
 */

package api

import (
	"time"

	"survivor-pool/api/cache"
	"survivor-pool/api/external"
	"survivor-pool/api/shared"
)

// StatusInvalidator is anything holding derived copies of a member's status, e.g. the web status cache. It is told
// when a member's persisted status changes
type StatusInvalidator interface {
	Invalidate(userID string)
}

// Options tunes the API. Zero values fall back to the defaults in NewAPI
type Options struct {
	// CurrentWeek is the latest week whose pick deadline has passed. 0 means unknown
	CurrentWeek int
	// CacheMaxAge is how old an unresolved cached week may be before statuses built on it are flagged stale
	CacheMaxAge time.Duration

	MaxRetries           int
	RetryInitialInterval time.Duration
	RetryMaxInterval     time.Duration

	PollInterval      time.Duration
	PollMaxIterations int

	AuditConcurrency int
}

// RefreshReport describes one refresh of a week from the provider
type RefreshReport struct {
	cache.StoreReport
	Fetched  int
	Rejected []external.Rejection
}

// MemberResult is the outcome of recalculating one member
type MemberResult struct {
	UserID  string
	Status  shared.SurvivorStatus
	Changed bool
}

// RecalculateReport summarises a pool recalculation
type RecalculateReport struct {
	Updated   []string
	Unchanged []string
	Failed    map[string]string
	Cancelled bool
}

// StandingEntry is one member's line in the standings
type StandingEntry struct {
	UserID      string
	DisplayName string
	Status      shared.SurvivorStatus
}

// Standings groups the pool by persisted survivor state
type Standings struct {
	Alive      []StandingEntry
	Pending    []StandingEntry
	Eliminated []StandingEntry
}

// Total is the number of members in the standings
func (s Standings) Total() int {
	return len(s.Alive) + len(s.Pending) + len(s.Eliminated)
}

// AuditOptions configures one audit run
type AuditOptions struct {
	AutoCorrect bool
	// Concurrency is the number of members evaluated at once. 0 uses the API default
	Concurrency int
}
