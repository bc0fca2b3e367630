/* store_interface.go
 * Contains the Store interface for dependency injection and testing
 * Authors: Zachary Bower
 */

package store

import (
	"context"

	"survivor-pool/api/cache"
	"survivor-pool/api/shared"
)

// Interface defines the methods that Store and FirestoreStore implement.
// This allows for mocking in tests.
type Interface interface {
	ListMembers(ctx context.Context) ([]shared.PoolMember, error)
	GetMember(ctx context.Context, userID string) (shared.PoolMember, error)
	GetPicks(ctx context.Context, userID string) ([]shared.Pick, error)
	SaveSurvivorStatus(ctx context.Context, userID string, status shared.SurvivorStatus) error
	SaveWeekSnapshot(ctx context.Context, snap cache.WeekSnapshot) error
	LoadWeekSnapshots(ctx context.Context) ([]cache.WeekSnapshot, error)
	SaveAuditReport(ctx context.Context, report shared.AuditReport) error
	GetLatestAuditReport(ctx context.Context) (shared.AuditReport, error)

	// Getter methods for accessing fields
	GetPoolID() string
	GetSeason() int
	Close(ctx context.Context) error
}

// Ensure Store implements Interface
var _ Interface = (*Store)(nil)

// GetPoolID returns the pool this store reads and writes
func (s *Store) GetPoolID() string {
	return s.PoolID
}

// GetSeason returns the season year
func (s *Store) GetSeason() int {
	return s.Season
}

// Close disconnects the MongoDB client
func (s *Store) Close(ctx context.Context) error {
	if s.Client == nil {
		return nil
	}
	return s.Client.Disconnect(ctx)
}
