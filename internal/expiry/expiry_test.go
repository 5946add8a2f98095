package expiry

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datakite/resampled/pkg/types"
)

func TestWindow_RetentionExact(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	createdAt, expiresAt := Window(now, 7)
	assert.Equal(t, now.Unix(), createdAt)
	assert.Equal(t, int64(7*24*3600), expiresAt-createdAt)
	assert.Greater(t, expiresAt, createdAt)
}

func TestWindow_FractionalDays(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	createdAt, expiresAt := Window(now, 0.5)
	assert.Equal(t, int64(12*3600), expiresAt-createdAt)
}

func TestBoundedLifetime_CappedAtMax(t *testing.T) {
	now := time.Now()

	ttl, err := BoundedLifetime(now.Add(30*24*time.Hour).Unix(), now)
	require.NoError(t, err)
	assert.Equal(t, MaxPresignTTL, ttl)
}

func TestBoundedLifetime_RemainingBelowCap(t *testing.T) {
	now := time.Now()

	ttl, err := BoundedLifetime(now.Add(2*time.Hour).Unix(), now)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Hour, ttl)
}

func TestBoundedLifetime_ExpiringRecord(t *testing.T) {
	now := time.Now()

	_, err := BoundedLifetime(now.Add(60*time.Second).Unix(), now)
	var expired *types.ExpiredError
	require.True(t, errors.As(err, &expired))
}

func TestBoundedLifetime_FloorBoundary(t *testing.T) {
	now := time.Now()

	ttl, err := BoundedLifetime(now.Add(61*time.Second).Unix(), now)
	require.NoError(t, err)
	assert.Equal(t, MinPresignTTL, ttl)
}

func TestFormatTimestamp(t *testing.T) {
	ts := time.Date(2025, 3, 1, 9, 5, 7, 0, time.Local).Unix()
	assert.Equal(t, "03/01/2025, 09:05:07", FormatTimestamp(ts))
}
