// Package expiry computes record lifetimes and safe presigned-URL TTLs.
package expiry

import (
	"time"

	"github.com/datakite/resampled/pkg/types"
)

const (
	// MaxPresignTTL is the S3 presigned-URL ceiling (7 days).
	MaxPresignTTL = 604800 * time.Second

	// MinPresignTTL is the floor below which issuing a download URL is
	// pointless: it would expire before a client could use it.
	MinPresignTTL = 61 * time.Second
)

// Window returns the creation and expiration timestamps (epoch seconds) for a
// record created at now with the given retention window in days. Fractional
// days are allowed for short-retention deployments.
func Window(now time.Time, retentionDays float64) (createdAt, expiresAt int64) {
	createdAt = now.Unix()
	expiresAt = now.Add(time.Duration(retentionDays * 24 * float64(time.Hour))).Unix()
	return createdAt, expiresAt
}

// BoundedLifetime returns the presigned-URL lifetime for a record expiring at
// expiresAt: the remaining record lifetime capped at MaxPresignTTL. It fails
// with ExpiredError when less than MinPresignTTL remains.
func BoundedLifetime(expiresAt int64, now time.Time) (time.Duration, error) {
	remaining := time.Duration(expiresAt-now.Unix()) * time.Second
	if remaining < MinPresignTTL {
		return 0, &types.ExpiredError{Msg: "record is expiring, unable to generate presigned URL"}
	}
	if remaining > MaxPresignTTL {
		return MaxPresignTTL, nil
	}
	return remaining, nil
}

// FormatTimestamp renders an epoch-second timestamp the way notification
// bodies display times.
func FormatTimestamp(epoch int64) string {
	return time.Unix(epoch, 0).Format("01/02/2006, 15:04:05")
}
