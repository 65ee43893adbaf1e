package syncer

import "time"

// Per-entity freshness windows. The statistics TTL is a safety net on top
// of the data-changed check, bounding staleness even if last_sync_at is
// never advanced.
const (
	GamesTTL        = 1 * time.Hour
	AchievementsTTL = 1 * time.Hour
	StatisticsTTL   = 24 * time.Hour
	FriendListTTL   = 12 * time.Hour
)

// IsStale reports whether data stamped at ref must be refreshed. A nil ref
// means never synced. The boundary is inclusive: data aged exactly maxAge
// is stale.
func IsStale(ref *time.Time, maxAge time.Duration, now time.Time) bool {
	if ref == nil {
		return true
	}
	return now.Sub(*ref) >= maxAge
}
