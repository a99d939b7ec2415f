package ingest

import (
	"fmt"
	"math"
	"time"

	"github.com/STRATINT/stratint/internal/models"
)

// latLonBucketSize buckets coordinates to roughly 1km cells (~0.01 degree
// at these latitudes), matching the Tier-1 candidate radius.
const latLonBucketSize = 0.01

// timeBucket buckets occurred_at to the hour: concurrent reports of one
// event cluster within minutes, never hours, of each other.
const timeBucketResolution = time.Hour

// fingerprint computes the dedup-serialization key per spec §5: an
// advisory lock on this string is held for the full write-path transaction
// so two concurrent writers landing in the same bucket never race.
func fingerprint(lat, lon float64, occurredAt time.Time, country string, assetType models.AssetType) string {
	latBucket := math.Round(lat/latLonBucketSize) * latLonBucketSize
	lonBucket := math.Round(lon/latLonBucketSize) * latLonBucketSize
	timeBucket := occurredAt.Truncate(timeBucketResolution).Unix()
	return fmt.Sprintf("%.2f:%.2f:%d:%s:%s", latBucket, lonBucket, timeBucket, country, assetType)
}
