/* test_mocks.go
 * Contains mock structures and interfaces for testing the API package
 * Authors: Zachary Bower
 */

package api

import (
	"context"
	"sort"
	"sync"

	"survivor-pool/api/cache"
	"survivor-pool/api/shared"
)

// MockStore implements the store Interface for testing. It is safe for concurrent use
type MockStore struct {
	mu sync.Mutex

	// Storage for mock data
	Members      map[string]shared.PoolMember
	Picks        map[string][]shared.Pick
	Snapshots    map[int]cache.WeekSnapshot
	AuditReports []shared.AuditReport
	StatusWrites int

	// Error injection for testing error paths
	ListMembersError       error
	GetMemberError         error
	GetPicksError          map[string]error
	SaveStatusError        error
	SaveSnapshotError      error
	LoadSnapshotsError     error
	SaveAuditReportError   error
	GetLatestAuditRptError error

	PoolID string
	Season int
}

// NewMockStore creates a new MockStore with default values
func NewMockStore() *MockStore {
	return &MockStore{
		Members:       make(map[string]shared.PoolMember),
		Picks:         make(map[string][]shared.Pick),
		Snapshots:     make(map[int]cache.WeekSnapshot),
		GetPicksError: make(map[string]error),
		PoolID:        "test_pool",
		Season:        2025,
	}
}

// AddMember adds a member with their picks and an optional persisted status
func (m *MockStore) AddMember(userID string, name string, picks []shared.Pick, status *shared.SurvivorStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Members[userID] = shared.PoolMember{UserID: userID, PoolID: m.PoolID, DisplayName: name, Survivor: status}
	m.Picks[userID] = picks
}

// Status returns the persisted status of a member, nil if none
func (m *MockStore) Status(userID string) *shared.SurvivorStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Members[userID].Survivor
}

// Writes returns the number of status writes so far
func (m *MockStore) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.StatusWrites
}

// ListMembers mock implementation
func (m *MockStore) ListMembers(ctx context.Context) ([]shared.PoolMember, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListMembersError != nil {
		return nil, m.ListMembersError
	}
	members := make([]shared.PoolMember, 0, len(m.Members))
	for _, member := range m.Members {
		members = append(members, member)
	}
	sort.Slice(members, func(i, j int) bool { return members[i].UserID < members[j].UserID })
	return members, nil
}

// GetMember mock implementation
func (m *MockStore) GetMember(ctx context.Context, userID string) (shared.PoolMember, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetMemberError != nil {
		return shared.PoolMember{}, m.GetMemberError
	}
	member, ok := m.Members[userID]
	if !ok {
		return shared.PoolMember{}, shared.DataMissingf("member %s is not in pool %s", userID, m.PoolID)
	}
	return member, nil
}

// GetPicks mock implementation
func (m *MockStore) GetPicks(ctx context.Context, userID string) ([]shared.Pick, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.GetPicksError[userID]; err != nil {
		return nil, err
	}
	picks := append([]shared.Pick{}, m.Picks[userID]...)
	return picks, nil
}

// SaveSurvivorStatus mock implementation
func (m *MockStore) SaveSurvivorStatus(ctx context.Context, userID string, status shared.SurvivorStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveStatusError != nil {
		return m.SaveStatusError
	}
	member, ok := m.Members[userID]
	if !ok {
		return shared.DataMissingf("member %s is not in pool %s", userID, m.PoolID)
	}
	st := status
	member.Survivor = &st
	m.Members[userID] = member
	m.StatusWrites++
	return nil
}

// SaveWeekSnapshot mock implementation
func (m *MockStore) SaveWeekSnapshot(ctx context.Context, snap cache.WeekSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveSnapshotError != nil {
		return m.SaveSnapshotError
	}
	m.Snapshots[snap.Week] = snap
	return nil
}

// LoadWeekSnapshots mock implementation
func (m *MockStore) LoadWeekSnapshots(ctx context.Context) ([]cache.WeekSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LoadSnapshotsError != nil {
		return nil, m.LoadSnapshotsError
	}
	snaps := make([]cache.WeekSnapshot, 0, len(m.Snapshots))
	for _, s := range m.Snapshots {
		snaps = append(snaps, s)
	}
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].Week < snaps[j].Week })
	return snaps, nil
}

// SaveAuditReport mock implementation
func (m *MockStore) SaveAuditReport(ctx context.Context, report shared.AuditReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveAuditReportError != nil {
		return m.SaveAuditReportError
	}
	m.AuditReports = append(m.AuditReports, report)
	return nil
}

// GetLatestAuditReport mock implementation
func (m *MockStore) GetLatestAuditReport(ctx context.Context) (shared.AuditReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetLatestAuditRptError != nil {
		return shared.AuditReport{}, m.GetLatestAuditRptError
	}
	if len(m.AuditReports) == 0 {
		return shared.AuditReport{}, shared.DataMissingf("pool %s has no audit reports", m.PoolID)
	}
	return m.AuditReports[len(m.AuditReports)-1], nil
}

func (m *MockStore) GetPoolID() string {
	return m.PoolID
}

func (m *MockStore) GetSeason() int {
	return m.Season
}

func (m *MockStore) Close(ctx context.Context) error {
	return nil
}

// MockProvider implements external.Provider for testing
type MockProvider struct {
	mu sync.Mutex

	Games map[int][]shared.GameResult
	// Errors are returned by successive calls before any games are
	Errors []error
	Calls  int
}

// NewMockProvider creates a provider with no games
func NewMockProvider() *MockProvider {
	return &MockProvider{Games: make(map[int][]shared.GameResult)}
}

// SetWeek replaces the games returned for a week
func (p *MockProvider) SetWeek(week int, games ...shared.GameResult) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Games[week] = games
}

// CallCount returns the number of FetchWeek calls
func (p *MockProvider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Calls
}

// FetchWeek mock implementation
func (p *MockProvider) FetchWeek(ctx context.Context, season int, week int) ([]shared.GameResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls++
	if len(p.Errors) > 0 {
		err := p.Errors[0]
		p.Errors = p.Errors[1:]
		return nil, err
	}
	games := append([]shared.GameResult{}, p.Games[week]...)
	return games, nil
}
