/* models.go
 * This file contain the structs and helper functions that relate to DB objects
 * Authors: Zachary Bower
 */

package store

import (
	"sort"
	"strconv"
	"strings"

	"survivor-pool/api/cache"
	"survivor-pool/api/shared"
)

// PickDoc is one week's entry in a picks document
type PickDoc struct {
	Team   string `bson:"team" firestore:"team"`
	GameID string `bson:"gameId,omitempty" firestore:"gameId,omitempty"`
}

// PicksDoc is a member's pick history, stored as { picks: { "<week>": { team, gameId? } } }
type PicksDoc struct {
	UserID string             `bson:"user_id" firestore:"user_id"`
	PoolID string             `bson:"pool_id" firestore:"pool_id"`
	Picks  map[string]PickDoc `bson:"picks" firestore:"picks"`
}

// ToPicks converts the week keyed map into a slice ordered by week.
// Preconditions: none
// Postconditions: Returns the picks, or a DataAmbiguous error if a key is not a week number
func (d PicksDoc) ToPicks() ([]shared.Pick, error) {
	picks := make([]shared.Pick, 0, len(d.Picks))
	for key, p := range d.Picks {
		week, err := strconv.Atoi(strings.TrimPrefix(strings.ToLower(strings.TrimSpace(key)), "week"))
		if err != nil {
			return nil, shared.DataAmbiguousf("picks for %s have an invalid week key '%s'", d.UserID, key)
		}
		picks = append(picks, shared.Pick{Week: week, Team: p.Team, GameID: p.GameID})
	}
	sort.Slice(picks, func(i, j int) bool { return picks[i].Week < picks[j].Week })
	return picks, nil
}

// NewPicksDoc builds a picks document from a slice of picks
func NewPicksDoc(userID string, poolID string, picks []shared.Pick) PicksDoc {
	doc := PicksDoc{UserID: userID, PoolID: poolID, Picks: make(map[string]PickDoc, len(picks))}
	for _, p := range picks {
		doc.Picks[strconv.Itoa(p.Week)] = PickDoc{Team: p.Team, GameID: p.GameID}
	}
	return doc
}

// WeekResultsDoc is the persisted copy of one week of the results cache. Results are league wide, so they are keyed by
// season and week only and shared by every pool in the database
type WeekResultsDoc struct {
	Season   int                `bson:"season" firestore:"season"`
	Snapshot cache.WeekSnapshot `bson:",inline" firestore:"snapshot"`
}
