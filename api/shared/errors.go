/* errors.go
 * Contains the error taxonomy shared by the engine, cache, auditor and provider layers. Errors are wrapped with context
 * and should be compared with errors.Is
 * Authors: Zachary Bower
 */

package shared

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

var (
	// ErrDataMissing means a pick, result or member record is absent where it was expected
	ErrDataMissing = errors.New("data missing")

	// ErrDataAmbiguous means duplicate or conflicting records were found, e.g. two games for one team in a week
	ErrDataAmbiguous = errors.New("data ambiguous")

	// ErrProviderUnavailable means the results provider timed out, was rate limited or failed
	ErrProviderUnavailable = errors.New("results provider unavailable")

	// ErrIntegrityViolation means a recomputed status would move an elimination earlier or clear it
	ErrIntegrityViolation = errors.New("integrity violation")
)

// DataMissingf wraps ErrDataMissing with a formatted message
func DataMissingf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrDataMissing, format, args...)
}

// DataAmbiguousf wraps ErrDataAmbiguous with a formatted message
func DataAmbiguousf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrDataAmbiguous, format, args...)
}

// ProviderUnavailable wraps a provider failure so that it matches ErrProviderUnavailable while keeping the cause
func ProviderUnavailable(cause error, format string, args ...interface{}) error {
	if cause == nil {
		return errors.Wrapf(ErrProviderUnavailable, format, args...)
	}
	return fmt.Errorf("%s: %w: %w", fmt.Sprintf(format, args...), ErrProviderUnavailable, cause)
}

// IntegrityViolationf wraps ErrIntegrityViolation with a formatted message
func IntegrityViolationf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrIntegrityViolation, format, args...)
}
