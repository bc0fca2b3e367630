/* audit_reports.go
 * Contains the methods for interacting with the audit_reports collection
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

// SaveAuditReport stores the report of an audit run. Reports are append only
// Preconditions: Receives a context and a report with a run id
// Postconditions: Inserts the report, or returns an error if it occurs
func (s *Store) SaveAuditReport(ctx context.Context, report shared.AuditReport) error {
	if report.RunID == "" {
		return fmt.Errorf("audit report has no run id")
	}
	if report.PoolID == "" {
		report.PoolID = s.PoolID
	}
	if _, err := s.Collections.AuditReports.InsertOne(ctx, report); err != nil {
		return fmt.Errorf("audit report insert failed: %w", err)
	}
	return nil
}

// GetLatestAuditReport returns the most recent audit report of the pool
// Preconditions: Receives a context
// Postconditions: Returns the report, a DataMissing error if the pool has never been audited, or an error if it occurs
func (s *Store) GetLatestAuditReport(ctx context.Context) (shared.AuditReport, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "started_at", Value: -1}})

	var report shared.AuditReport
	err := s.Collections.AuditReports.FindOne(ctx, bson.M{"pool_id": s.PoolID}, opts).Decode(&report)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return shared.AuditReport{}, shared.DataMissingf("pool %s has no audit reports", s.PoolID)
		}
		return shared.AuditReport{}, fmt.Errorf("failed to fetch audit report from database: %w", err)
	}
	return report, nil
}
