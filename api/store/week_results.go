/* week_results.go
 * Contains the methods for interacting with the week_results collection, which holds a copy of the results cache so
 * that manual overrides and finalized results survive a restart
 * Authors: Zachary Bower
 */

package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"survivor-pool/api/cache"
)

// SaveWeekSnapshot stores one week of the results cache
// Preconditions: Receives a context and the snapshot of a week
// Postconditions: Inserts or updates the week's document, or returns an error if it occurs
func (s *Store) SaveWeekSnapshot(ctx context.Context, snap cache.WeekSnapshot) error {
	filter := bson.M{"season": s.Season, "week": snap.Week}
	doc := WeekResultsDoc{Season: s.Season, Snapshot: snap}

	// Attempt to find an existing document
	var existing WeekResultsDoc
	err := s.Collections.WeekResults.FindOne(ctx, filter).Decode(&existing)
	notFound := errors.Is(err, mongo.ErrNoDocuments)
	if err != nil && !notFound {
		return fmt.Errorf("lookup for existing week results failed: %w", err)
	}

	if notFound {
		if _, err := s.Collections.WeekResults.InsertOne(ctx, doc); err != nil {
			return fmt.Errorf("week results insert failed: %w", err)
		}
		return nil
	}

	update := bson.D{{Key: "$set", Value: doc}}
	if _, err := s.Collections.WeekResults.UpdateOne(ctx, filter, update); err != nil {
		return fmt.Errorf("week results update failed: %w", err)
	}
	return nil
}

// LoadWeekSnapshots returns every stored week of the season, ascending
// Preconditions: Receives a context
// Postconditions: Returns the snapshots, or an error if it occurs
func (s *Store) LoadWeekSnapshots(ctx context.Context) ([]cache.WeekSnapshot, error) {
	opts := options.Find().SetSort(bson.D{{Key: "week", Value: 1}})
	cursor, err := s.Collections.WeekResults.Find(ctx, bson.M{"season": s.Season}, opts)
	if err != nil {
		return nil, fmt.Errorf("error fetching week results from db: %w", err)
	}

	var docs []WeekResultsDoc
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("error unpacking cursor into week results: %w", err)
	}

	snaps := make([]cache.WeekSnapshot, 0, len(docs))
	for _, d := range docs {
		snaps = append(snaps, d.Snapshot)
	}
	return snaps, nil
}
