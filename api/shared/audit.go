/* audit.go
 * Contains the audit report models shared by the auditor, the store and the bot
 * Authors: Zachary Bower
 */

package shared

import "time"

// AuditClassification is the outcome of comparing one member's persisted and recomputed status
type AuditClassification string

const (
	AuditMatch            AuditClassification = "MATCH"
	AuditMissingPersisted AuditClassification = "MISSING_PERSISTED"
	AuditStatusMismatch   AuditClassification = "STATUS_MISMATCH"
	AuditError            AuditClassification = "ERROR"
)

// AuditEntry is the audit result for one member
type AuditEntry struct {
	UserID         string              `bson:"user_id" firestore:"user_id" json:"userId"`
	DisplayName    string              `bson:"display_name,omitempty" firestore:"display_name,omitempty" json:"displayName,omitempty"`
	Classification AuditClassification `bson:"classification" firestore:"classification" json:"classification"`
	Persisted      *SurvivorStatus     `bson:"persisted,omitempty" firestore:"persisted,omitempty" json:"persisted,omitempty"`
	Recomputed     *SurvivorStatus     `bson:"recomputed,omitempty" firestore:"recomputed,omitempty" json:"recomputed,omitempty"`
	Differences    []string            `bson:"differences,omitempty" firestore:"differences,omitempty" json:"differences,omitempty"`
	AutoCorrected  bool                `bson:"auto_corrected,omitempty" firestore:"auto_corrected,omitempty" json:"autoCorrected,omitempty"`
	ManualReview   bool                `bson:"manual_review,omitempty" firestore:"manual_review,omitempty" json:"manualReview,omitempty"`
	ReviewReason   string              `bson:"review_reason,omitempty" firestore:"review_reason,omitempty" json:"reviewReason,omitempty"`
	Error          string              `bson:"error,omitempty" firestore:"error,omitempty" json:"error,omitempty"`
}

// AuditReport summarises one reconciliation run over a pool
type AuditReport struct {
	RunID            string       `bson:"run_id" firestore:"run_id" json:"runId"`
	PoolID           string       `bson:"pool_id" firestore:"pool_id" json:"poolId"`
	StartedAt        time.Time    `bson:"started_at" firestore:"started_at" json:"startedAt"`
	FinishedAt       time.Time    `bson:"finished_at" firestore:"finished_at" json:"finishedAt"`
	AutoCorrect      bool         `bson:"auto_correct" firestore:"auto_correct" json:"autoCorrect"`
	Cancelled        bool         `bson:"cancelled,omitempty" firestore:"cancelled,omitempty" json:"cancelled,omitempty"`
	Total            int          `bson:"total" firestore:"total" json:"total"`
	Matches          int          `bson:"matches" firestore:"matches" json:"matches"`
	MissingPersisted int          `bson:"missing_persisted" firestore:"missing_persisted" json:"missingPersisted"`
	Mismatches       int          `bson:"mismatches" firestore:"mismatches" json:"mismatches"`
	Errors           int          `bson:"errors" firestore:"errors" json:"errors"`
	Corrected        int          `bson:"corrected" firestore:"corrected" json:"corrected"`
	ManualReview     int          `bson:"manual_review" firestore:"manual_review" json:"manualReview"`
	Entries          []AuditEntry `bson:"entries" firestore:"entries" json:"entries"`
}

// Discrepancies is the number of members whose persisted status did not match the recomputation
func (r AuditReport) Discrepancies() int {
	return r.MissingPersisted + r.Mismatches
}

// Tally recounts the summary fields from the entries
func (r *AuditReport) Tally() {
	r.Total = len(r.Entries)
	r.Matches, r.MissingPersisted, r.Mismatches, r.Errors, r.Corrected, r.ManualReview = 0, 0, 0, 0, 0, 0
	for _, e := range r.Entries {
		switch e.Classification {
		case AuditMatch:
			r.Matches++
		case AuditMissingPersisted:
			r.MissingPersisted++
		case AuditStatusMismatch:
			r.Mismatches++
		case AuditError:
			r.Errors++
		}
		if e.AutoCorrected {
			r.Corrected++
		}
		if e.ManualReview {
			r.ManualReview++
		}
	}
}
