/* store_test.go
 * Contains unit tests for store.go, store_interface.go and models.go
 * Authors: Zachary Bower
 */

package store

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"survivor-pool/api/shared"
)

// Test getter methods
func TestStore_GetPoolID(t *testing.T) {
	s := &Store{PoolID: "pool-1"}
	assert.Equal(t, "pool-1", s.GetPoolID())
}

func TestStore_GetSeason(t *testing.T) {
	s := &Store{Season: 2025}
	assert.Equal(t, 2025, s.GetSeason())
}

func TestStore_CloseWithoutClient(t *testing.T) {
	s := &Store{}
	assert.NoError(t, s.Close(context.Background()))
}

// TestNewStore_Validation tests the arguments are checked before connecting
func TestNewStore_Validation(t *testing.T) {
	_, err := NewStore(context.Background(), "db", "mongodb://localhost:27017", "", 2025)
	assert.Error(t, err)

	_, err = NewStore(context.Background(), "db", "mongodb://localhost:27017", "pool", 0)
	assert.Error(t, err)
}

// TestPicksDoc_ToPicks tests converting the week keyed map to ordered picks
func TestPicksDoc_ToPicks(t *testing.T) {
	doc := PicksDoc{
		UserID: "user123",
		Picks: map[string]PickDoc{
			"3":     {Team: "Detroit Lions"},
			"1":     {Team: "Kansas City Chiefs", GameID: "401772714"},
			"week2": {Team: "Buffalo Bills"},
		},
	}

	picks, err := doc.ToPicks()

	require.NoError(t, err)
	assert.Equal(t, []shared.Pick{
		{Week: 1, Team: "Kansas City Chiefs", GameID: "401772714"},
		{Week: 2, Team: "Buffalo Bills"},
		{Week: 3, Team: "Detroit Lions"},
	}, picks)
}

// TestPicksDoc_ToPicksInvalidKey tests a malformed week key
func TestPicksDoc_ToPicksInvalidKey(t *testing.T) {
	doc := PicksDoc{UserID: "user123", Picks: map[string]PickDoc{"one": {Team: "Detroit Lions"}}}

	_, err := doc.ToPicks()

	assert.True(t, errors.Is(err, shared.ErrDataAmbiguous))
}

// TestNewPicksDoc tests the round trip between picks and the document layout
func TestNewPicksDoc(t *testing.T) {
	picks := CreateSamplePicks()
	doc := NewPicksDoc("user123", "pool-1", picks)

	assert.Equal(t, PickDoc{Team: "Kansas City Chiefs", GameID: "401772714"}, doc.Picks["1"])
	back, err := doc.ToPicks()
	require.NoError(t, err)
	assert.Equal(t, picks, back)
}

// Integration test for NewStore
func TestNewStore_Integration(t *testing.T) {
	mongoURI := os.Getenv("MONGO_TEST_URI")
	if mongoURI == "" {
		t.Skip("MONGO_TEST_URI not set")
	}

	store, cleanup, err := CreateTestStore(mongoURI)
	require.NoError(t, err)
	defer cleanup()

	ctx := context.Background()
	_, err = store.Collections.Picks.InsertOne(ctx, NewPicksDoc("user123", store.PoolID, CreateSamplePicks()))
	require.NoError(t, err)

	picks, err := store.GetPicks(ctx, "user123")
	require.NoError(t, err)
	assert.Equal(t, CreateSamplePicks(), picks)

	assert.True(t, errors.Is(store.SaveSurvivorStatus(ctx, "user123", CreateSampleStatus()), shared.ErrDataMissing))
	_, err = store.Collections.Members.InsertOne(ctx, bson.M{"pool_id": store.PoolID, "user_id": "user123", "display_name": "User"})
	require.NoError(t, err)

	require.NoError(t, store.SaveSurvivorStatus(ctx, "user123", CreateSampleStatus()))
	member, err := store.GetMember(ctx, "user123")
	require.NoError(t, err)
	require.NotNil(t, member.Survivor)
	assert.Equal(t, 2, member.Survivor.EliminatedWeek)
}
