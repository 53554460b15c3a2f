package logger

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestGormLoggerTrace(t *testing.T) {
	var buf bytes.Buffer
	gl := NewGormLogger(NewWithOutput("debug", false, &buf))

	gl.Trace(context.Background(), time.Now(), func() (string, int64) {
		return "SELECT 1", 1
	}, nil)
	assert.Empty(t, buf.String(), "fast queries are logged at trace level")

	gl.Trace(context.Background(), time.Now(), func() (string, int64) {
		return "SELECT * FROM movies", 0
	}, gorm.ErrRecordNotFound)
	assert.Empty(t, buf.String(), "not found is not an error")

	gl.Trace(context.Background(), time.Now(), func() (string, int64) {
		return "DELETE FROM movies", 0
	}, errors.New("boom"))
	assert.Contains(t, buf.String(), "query failed")
	assert.Contains(t, buf.String(), "DELETE FROM movies")

	buf.Reset()
	gl.Trace(context.Background(), time.Now().Add(-time.Second), func() (string, int64) {
		return "SELECT pg_sleep(1)", 1
	}, nil)
	assert.Contains(t, buf.String(), "slow query")
}

func TestNewFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOutput("bogus", false, &buf)

	log.Debug("hidden")
	log.Info("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}
