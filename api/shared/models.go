/* models.go
 * This file contain the interfaces, structs and helper functions that are shared between sub packages
 * Authors: Zachary Bower
 */

package shared

import (
	"strconv"
	"strings"
	"time"
)

// Season bounds for a regular season survivor pool
const (
	FirstWeek = 1
	LastWeek  = 18
)

// Game status values. Only StatusFinal may resolve a pick
const (
	StatusFinal      = "final"
	StatusInProgress = "in_progress"
	StatusScheduled  = "scheduled"
)

// Winner sentinels
const (
	WinnerTBD = "TBD"
	WinnerTie = "TIE"
)

type User struct {
	UserID   string
	Username string
}

// Pick is one user's selection for one week. GameID is advisory and may be empty
type Pick struct {
	Week   int    `bson:"week" firestore:"week" json:"week"`
	Team   string `bson:"team" firestore:"team" json:"team"`
	GameID string `bson:"gameId,omitempty" firestore:"gameId,omitempty" json:"gameId,omitempty"`
}

// GameResult is the outcome (or current state) of a single game. Team names are canonical
type GameResult struct {
	GameID    string `bson:"game_id" firestore:"game_id" json:"gameId" validate:"required"`
	Week      int    `bson:"week" firestore:"week" json:"week" validate:"min=1,max=18"`
	HomeTeam  string `bson:"home_team" firestore:"home_team" json:"homeTeam" validate:"required"`
	AwayTeam  string `bson:"away_team" firestore:"away_team" json:"awayTeam" validate:"required,nefield=HomeTeam"`
	HomeScore int    `bson:"home_score" firestore:"home_score" json:"homeScore" validate:"min=0"`
	AwayScore int    `bson:"away_score" firestore:"away_score" json:"awayScore" validate:"min=0"`
	Status    string `bson:"status" firestore:"status" json:"status" validate:"oneof=final in_progress scheduled"`
	Winner    string `bson:"winner,omitempty" firestore:"winner,omitempty" json:"winner,omitempty"`
}

// HasWinner reports whether the game has a declared outcome (a team or TIE)
func (g GameResult) HasWinner() bool {
	switch strings.ToUpper(strings.TrimSpace(g.Winner)) {
	case "", WinnerTBD, "NULL":
		return false
	}
	return true
}

// IsFinal reports whether the result can be used to resolve a pick
func (g GameResult) IsFinal() bool {
	return g.Status == StatusFinal && g.HasWinner()
}

// IsTie reports whether the final outcome was a tie
func (g GameResult) IsTie() bool {
	return strings.EqualFold(strings.TrimSpace(g.Winner), WinnerTie)
}

// Opponent returns the team the given (canonical) team played against
func (g GameResult) Opponent(team string) string {
	if g.HomeTeam == team {
		return g.AwayTeam
	}
	return g.HomeTeam
}

// Scoreline returns the score in the form "Away 17 @ Home 24"
func (g GameResult) Scoreline() string {
	var str strings.Builder
	str.WriteString(g.AwayTeam)
	str.WriteString(" ")
	str.WriteString(strconv.Itoa(g.AwayScore))
	str.WriteString(" @ ")
	str.WriteString(g.HomeTeam)
	str.WriteString(" ")
	str.WriteString(strconv.Itoa(g.HomeScore))
	return str.String()
}

// WeekResult is the set of game records for one week
type WeekResult struct {
	Season      int          `bson:"season" firestore:"season" json:"season"`
	Week        int          `bson:"week" firestore:"week" json:"week"`
	Games       []GameResult `bson:"games" firestore:"games" json:"games"`
	LastUpdated time.Time    `bson:"last_updated" firestore:"last_updated" json:"lastUpdated"`
}

// CachedResult is what a results lookup hands to the elimination engine. Game is nil on a miss
type CachedResult struct {
	Game       *GameResult
	Stale      bool
	Overridden bool
}

// ResultsLookup gives the engine read access to game results keyed by team and week
type ResultsLookup interface {
	Lookup(team string, week int) (CachedResult, error)
}

// SurvivorState is the position of a user in the elimination state machine
type SurvivorState string

const (
	StateNoPickYet  SurvivorState = "ALIVE_NO_PICK_YET"
	StatePending    SurvivorState = "ALIVE_PENDING"
	StateSurvived   SurvivorState = "ALIVE_SURVIVED"
	StateEliminated SurvivorState = "ELIMINATED"
)

// SurvivorStatus is the derived, persisted summary of one user's elimination state.
// EliminatedWeek is 0 while the user is alive
type SurvivorStatus struct {
	State             SurvivorState `bson:"state" firestore:"state" json:"state"`
	Alive             bool          `bson:"alive" firestore:"alive" json:"alive"`
	Week              int           `bson:"week" firestore:"week" json:"week"`
	EliminatedWeek    int           `bson:"eliminated_week" firestore:"eliminated_week" json:"eliminatedWeek"`
	EliminationReason string        `bson:"elimination_reason,omitempty" firestore:"elimination_reason,omitempty" json:"eliminationReason,omitempty"`
	PendingReason     string        `bson:"pending_reason,omitempty" firestore:"pending_reason,omitempty" json:"pendingReason,omitempty"`
	PickHistory       []string      `bson:"pick_history" firestore:"pick_history" json:"pickHistory"`
	StaleData         bool          `bson:"stale_data,omitempty" firestore:"stale_data,omitempty" json:"staleData,omitempty"`
	Warnings          []string      `bson:"warnings,omitempty" firestore:"warnings,omitempty" json:"warnings,omitempty"`

	// Set by the persistence and audit layers, never by the engine
	AutoCorrected    bool      `bson:"auto_corrected,omitempty" firestore:"auto_corrected,omitempty" json:"autoCorrected,omitempty"`
	CorrectedAt      time.Time `bson:"corrected_at,omitempty" firestore:"corrected_at,omitempty" json:"correctedAt,omitempty"`
	CorrectionReason string    `bson:"correction_reason,omitempty" firestore:"correction_reason,omitempty" json:"correctionReason,omitempty"`
	UpdatedAt        time.Time `bson:"updated_at,omitempty" firestore:"updated_at,omitempty" json:"updatedAt,omitempty"`
}

// NewSurvivorStatus returns the default status of a member who has just joined a pool
func NewSurvivorStatus() SurvivorStatus {
	return SurvivorStatus{State: StateNoPickYet, Alive: true, PickHistory: []string{}}
}

// IsEliminated reports whether the status is in the absorbing state
func (s SurvivorStatus) IsEliminated() bool {
	return s.State == StateEliminated || s.EliminatedWeek > 0
}

// SameOutcome compares the engine-derived fields of two statuses, ignoring bookkeeping such as timestamps
func (s SurvivorStatus) SameOutcome(other SurvivorStatus) bool {
	if s.State != other.State || s.Alive != other.Alive || s.Week != other.Week {
		return false
	}
	if s.EliminatedWeek != other.EliminatedWeek || s.EliminationReason != other.EliminationReason {
		return false
	}
	if len(s.PickHistory) != len(other.PickHistory) {
		return false
	}
	for i := range s.PickHistory {
		if s.PickHistory[i] != other.PickHistory[i] {
			return false
		}
	}
	return true
}

// Summary returns a one line, user facing description of the status
func (s SurvivorStatus) Summary() string {
	switch s.State {
	case StateEliminated:
		return "Eliminated in Week " + strconv.Itoa(s.EliminatedWeek) + ": " + s.EliminationReason
	case StatePending:
		return "Alive, status pending - awaiting data for Week " + strconv.Itoa(s.Week)
	case StateSurvived:
		return "Alive, survived through Week " + strconv.Itoa(s.Week)
	default:
		return "Alive, no picks yet"
	}
}

// PoolMember is identity and metadata for a participant. Only Survivor is written by this service
type PoolMember struct {
	UserID      string          `bson:"user_id" firestore:"user_id" json:"userId"`
	PoolID      string          `bson:"pool_id" firestore:"pool_id" json:"poolId"`
	DisplayName string          `bson:"display_name,omitempty" firestore:"display_name,omitempty" json:"displayName,omitempty"`
	Email       string          `bson:"email,omitempty" firestore:"email,omitempty" json:"email,omitempty"`
	Role        string          `bson:"role,omitempty" firestore:"role,omitempty" json:"role,omitempty"`
	Survivor    *SurvivorStatus `bson:"survivor,omitempty" firestore:"survivor,omitempty" json:"survivor,omitempty"`
}
