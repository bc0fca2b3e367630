/* test_helpers.go
 * Contains test helper functions for store package tests
 * Authors: Zachary Bower
 */

package store

import (
	"context"

	"survivor-pool/api/shared"
)

// CreateTestStore creates a Store connected to a test database.
// Returns the store and a cleanup function.
func CreateTestStore(mongoURI string) (*Store, func(), error) {
	store, err := NewStore(context.TODO(), "test_survivor", mongoURI, "test_pool", 2025)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		if store.Client != nil {
			// Drop test database
			store.Database.Drop(context.TODO())
			// Disconnect client
			store.Client.Disconnect(context.TODO())
		}
	}

	return store, cleanup, nil
}

// CreateSamplePicks creates a pick history for testing
func CreateSamplePicks() []shared.Pick {
	return []shared.Pick{
		{Week: 1, Team: "Kansas City Chiefs", GameID: "401772714"},
		{Week: 2, Team: "Buffalo Bills"},
	}
}

// CreateSampleStatus creates an eliminated survivor status for testing
func CreateSampleStatus() shared.SurvivorStatus {
	return shared.SurvivorStatus{
		State:             shared.StateEliminated,
		Week:              2,
		EliminatedWeek:    2,
		EliminationReason: "Buffalo Bills lost to Miami Dolphins",
		PickHistory:       []string{"Kansas City Chiefs", "Buffalo Bills"},
	}
}
