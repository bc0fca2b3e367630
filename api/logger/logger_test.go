/* logger_test.go
 * Contains unit tests for logger.go
 * Authors: Zachary Bower
 */

package logger

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestNew_JSON(t *testing.T) {
	l := New("debug", "json")

	assert.Equal(t, logrus.DebugLevel, l.GetLevel())
	_, ok := l.Formatter.(*logrus.JSONFormatter)
	assert.True(t, ok)
}

func TestNew_Text(t *testing.T) {
	l := New("warn", "text")

	assert.Equal(t, logrus.WarnLevel, l.GetLevel())
	_, ok := l.Formatter.(*logrus.TextFormatter)
	assert.True(t, ok)
}

// TestNew_UnknownLevel tests that a bad level falls back to info
func TestNew_UnknownLevel(t *testing.T) {
	l := New("loud", "")

	assert.Equal(t, logrus.InfoLevel, l.GetLevel())
}
