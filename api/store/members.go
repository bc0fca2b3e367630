/* members.go
 * Contains the methods for interacting with the pool_members collection. Member identity is owned by the pool
 * application; this service only ever writes the embedded survivor sub-document
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

	"survivor-pool/api/shared"
)

// ListMembers returns every member of the pool ordered by user id
// Preconditions: Receives a context
// Postconditions: Returns the members, or an error if it occurs
func (s *Store) ListMembers(ctx context.Context) ([]shared.PoolMember, error) {
	filter := bson.D{{Key: "pool_id", Value: s.PoolID}}
	opts := options.Find().SetSort(bson.D{{Key: "user_id", Value: 1}})

	cursor, err := s.Collections.Members.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("error fetching members from db: %w", err)
	}

	var members []shared.PoolMember
	if err = cursor.All(ctx, &members); err != nil {
		return nil, fmt.Errorf("error unpacking cursor into slice of members: %w", err)
	}
	return members, nil
}

// GetMember returns one member of the pool
// Preconditions: Receives a context and the member's user id
// Postconditions: Returns the member, a DataMissing error if they are not in the pool, or an error if it occurs
func (s *Store) GetMember(ctx context.Context, userID string) (shared.PoolMember, error) {
	var member shared.PoolMember
	err := s.Collections.Members.FindOne(ctx, bson.M{"pool_id": s.PoolID, "user_id": userID}).Decode(&member)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return shared.PoolMember{}, shared.DataMissingf("member %s is not in pool %s", userID, s.PoolID)
		}
		return shared.PoolMember{}, fmt.Errorf("error fetching member from db: %w", err)
	}
	return member, nil
}

// SaveSurvivorStatus writes the survivor sub-document of a member. Only the survivor field is touched so concurrent
// writers of the member's other fields are not clobbered
// Preconditions: Receives a context, the member's user id and the status to persist
// Postconditions: Updates the member's survivor status, returns a DataMissing error if the member is not in the pool,
// or returns an error if it occurs. Member documents are never created here
func (s *Store) SaveSurvivorStatus(ctx context.Context, userID string, status shared.SurvivorStatus) error {
	if userID == "" {
		return fmt.Errorf("user id cannot be empty")
	}
	filter := bson.M{"pool_id": s.PoolID, "user_id": userID}
	update := bson.D{{Key: "$set", Value: bson.D{{Key: "survivor", Value: status}}}}

	res, err := s.Collections.Members.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update survivor status: %w", err)
	}
	if res.MatchedCount == 0 {
		return shared.DataMissingf("member %s is not in pool %s", userID, s.PoolID)
	}
	return nil
}
