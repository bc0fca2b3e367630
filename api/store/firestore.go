/* firestore.go
 * Contains FirestoreStore, the Interface implementation for pools whose data lives in Firestore. Members and picks are
 * stored under pools/<poolId>, week results under seasons/<season>/week_results and audit reports under
 * pools/<poolId>/audit_reports
 * Authors: Zachary Bower
 */

package store

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"survivor-pool/api/cache"
	"survivor-pool/api/shared"
)

type FirestoreStore struct {
	Client *firestore.Client
	PoolID string
	Season int
}

var _ Interface = (*FirestoreStore)(nil)

// NewFirestoreStore connects to Firestore for the given project
// Preconditions: Receives a context, the GCP project id, the pool id and the season year
// Postconditions: Returns a store ready to use, or an error if it occurs
func NewFirestoreStore(ctx context.Context, projectID string, poolID string, season int) (*FirestoreStore, error) {
	if poolID == "" {
		return nil, fmt.Errorf("pool id cannot be empty")
	}
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	return &FirestoreStore{Client: client, PoolID: poolID, Season: season}, nil
}

func (f *FirestoreStore) pool() *firestore.DocumentRef {
	return f.Client.Collection("pools").Doc(f.PoolID)
}

func (f *FirestoreStore) weekResults() *firestore.CollectionRef {
	return f.Client.Collection("seasons").Doc(strconv.Itoa(f.Season)).Collection("week_results")
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

// ListMembers returns every member of the pool ordered by user id
func (f *FirestoreStore) ListMembers(ctx context.Context) ([]shared.PoolMember, error) {
	iter := f.pool().Collection("members").Documents(ctx)
	defer iter.Stop()

	var members []shared.PoolMember
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error fetching members from firestore: %w", err)
		}
		var member shared.PoolMember
		if err := snap.DataTo(&member); err != nil {
			return nil, fmt.Errorf("error decoding member %s: %w", snap.Ref.ID, err)
		}
		if member.UserID == "" {
			member.UserID = snap.Ref.ID
		}
		member.PoolID = f.PoolID
		members = append(members, member)
	}
	sort.Slice(members, func(i, j int) bool { return members[i].UserID < members[j].UserID })
	return members, nil
}

// GetMember returns one member of the pool, or a DataMissing error if they are not in it
func (f *FirestoreStore) GetMember(ctx context.Context, userID string) (shared.PoolMember, error) {
	snap, err := f.pool().Collection("members").Doc(userID).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return shared.PoolMember{}, shared.DataMissingf("member %s is not in pool %s", userID, f.PoolID)
		}
		return shared.PoolMember{}, fmt.Errorf("error fetching member from firestore: %w", err)
	}
	var member shared.PoolMember
	if err := snap.DataTo(&member); err != nil {
		return shared.PoolMember{}, fmt.Errorf("error decoding member %s: %w", userID, err)
	}
	member.UserID = userID
	member.PoolID = f.PoolID
	return member, nil
}

// GetPicks returns the member's picks ordered by week. A missing document means no picks
func (f *FirestoreStore) GetPicks(ctx context.Context, userID string) ([]shared.Pick, error) {
	snap, err := f.pool().Collection("survivor_picks").Doc(userID).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return []shared.Pick{}, nil
		}
		return nil, fmt.Errorf("error fetching picks from firestore: %w", err)
	}
	var doc PicksDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("error decoding picks for %s: %w", userID, err)
	}
	doc.UserID = userID
	return doc.ToPicks()
}

// SaveSurvivorStatus updates the survivor field of an existing member document, leaving every other field untouched.
// A member that does not exist is a DataMissing error
func (f *FirestoreStore) SaveSurvivorStatus(ctx context.Context, userID string, st shared.SurvivorStatus) error {
	if userID == "" {
		return fmt.Errorf("user id cannot be empty")
	}
	_, err := f.pool().Collection("members").Doc(userID).Update(ctx, []firestore.Update{{Path: "survivor", Value: st}})
	if err != nil {
		if isNotFound(err) {
			return shared.DataMissingf("member %s is not in pool %s", userID, f.PoolID)
		}
		return fmt.Errorf("failed to update survivor status: %w", err)
	}
	return nil
}

// SaveWeekSnapshot replaces the stored copy of one week
func (f *FirestoreStore) SaveWeekSnapshot(ctx context.Context, snap cache.WeekSnapshot) error {
	doc := WeekResultsDoc{Season: f.Season, Snapshot: snap}
	if _, err := f.weekResults().Doc(fmt.Sprintf("week-%02d", snap.Week)).Set(ctx, doc); err != nil {
		return fmt.Errorf("failed to store week %d results: %w", snap.Week, err)
	}
	return nil
}

// LoadWeekSnapshots returns every stored week of the season, ascending
func (f *FirestoreStore) LoadWeekSnapshots(ctx context.Context) ([]cache.WeekSnapshot, error) {
	docs, err := f.weekResults().Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("error fetching week results from firestore: %w", err)
	}
	snaps := make([]cache.WeekSnapshot, 0, len(docs))
	for _, d := range docs {
		var doc WeekResultsDoc
		if err := d.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("error decoding week results %s: %w", d.Ref.ID, err)
		}
		snaps = append(snaps, doc.Snapshot)
	}
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].Week < snaps[j].Week })
	return snaps, nil
}

// SaveAuditReport stores the report of an audit run under its run id
func (f *FirestoreStore) SaveAuditReport(ctx context.Context, report shared.AuditReport) error {
	if report.RunID == "" {
		return fmt.Errorf("audit report has no run id")
	}
	if report.PoolID == "" {
		report.PoolID = f.PoolID
	}
	if _, err := f.pool().Collection("audit_reports").Doc(report.RunID).Set(ctx, report); err != nil {
		return fmt.Errorf("audit report insert failed: %w", err)
	}
	return nil
}

// GetLatestAuditReport returns the most recent audit report of the pool
func (f *FirestoreStore) GetLatestAuditReport(ctx context.Context) (shared.AuditReport, error) {
	docs, err := f.pool().Collection("audit_reports").OrderBy("started_at", firestore.Desc).Limit(1).Documents(ctx).GetAll()
	if err != nil {
		return shared.AuditReport{}, fmt.Errorf("failed to fetch audit report from firestore: %w", err)
	}
	if len(docs) == 0 {
		return shared.AuditReport{}, shared.DataMissingf("pool %s has no audit reports", f.PoolID)
	}
	var report shared.AuditReport
	if err := docs[0].DataTo(&report); err != nil {
		return shared.AuditReport{}, fmt.Errorf("error decoding audit report: %w", err)
	}
	return report, nil
}

// GetPoolID returns the pool this store reads and writes
func (f *FirestoreStore) GetPoolID() string {
	return f.PoolID
}

// GetSeason returns the season year
func (f *FirestoreStore) GetSeason() int {
	return f.Season
}

// Close closes the Firestore client
func (f *FirestoreStore) Close(ctx context.Context) error {
	if f.Client == nil {
		return nil
	}
	return f.Client.Close()
}
