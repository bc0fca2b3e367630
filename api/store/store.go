/* store.go
 * Contains the store struct and NewStore function. The methods for this package were split by collection: members,
 * picks, week_results and audit_reports. Each of these files contain methods for interacting with that part of the
 * database
 * Authors: Zachary Bower
 */

package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collections holds the collections used by the store
type Collections struct {
	Members      *mongo.Collection
	Picks        *mongo.Collection
	WeekResults  *mongo.Collection
	AuditReports *mongo.Collection
}

type Store struct {
	Client      *mongo.Client
	Database    *mongo.Database
	PoolID      string
	Season      int
	Collections Collections
}

// Function for initialising Store. Opens the db connection and sets the collections
// Preconditions: Receives a context, strings containing dbName, mongoURI and poolID, and the season year
// Postconditions: Returns pointer to the Store object, or error if it occurs
func NewStore(ctx context.Context, dbName string, mongoURI string, poolID string, season int) (*Store, error) {
	if poolID == "" {
		return nil, fmt.Errorf("pool id cannot be empty")
	}
	if season <= 0 {
		return nil, fmt.Errorf("season must be a year, got %d", season)
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		return nil, err
	}
	db := client.Database(dbName)

	return &Store{
		Client:   client,
		Database: db,
		PoolID:   poolID,
		Season:   season,
		Collections: Collections{
			Members:      db.Collection("pool_members"),
			Picks:        db.Collection("survivor_picks"),
			WeekResults:  db.Collection("week_results"),
			AuditReports: db.Collection("audit_reports"),
		},
	}, nil
}
