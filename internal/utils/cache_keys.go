package utils

import "strconv"

// PublishedSessionsVersionKey counts writes to the published listing. Each
// write moves readers to a fresh listing key, so a listing read before the
// write can only ever land under a key nobody asks for anymore.
const PublishedSessionsVersionKey = "sessions:published:version"

// PublishedSessionsCacheKey is the listing key for one version. The v1 segment
// is bumped whenever the cached payload shape changes.
func PublishedSessionsCacheKey(version int64) string {
	return "sessions:published:v1:" + strconv.FormatInt(version, 10)
}
