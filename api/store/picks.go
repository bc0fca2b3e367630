/* picks.go
 * Contains the methods for interacting with the survivor_picks collection
 * Authors: Zachary Bower
 */

package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"survivor-pool/api/shared"
)

// GetPicks does DB lookup and gets the pick history for a member
// Preconditions: Receives a context and the member's user id
// Postconditions: Returns the member's picks ordered by week. A member with no picks document has no picks, which is
// not an error. Returns an error if the lookup fails or the document is malformed
func (s *Store) GetPicks(ctx context.Context, userID string) ([]shared.Pick, error) {
	var doc PicksDoc
	err := s.Collections.Picks.FindOne(ctx, bson.M{"pool_id": s.PoolID, "user_id": userID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return []shared.Pick{}, nil
		}
		return nil, fmt.Errorf("error fetching picks from db: %w", err)
	}
	return doc.ToPicks()
}
