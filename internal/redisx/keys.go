package redisx

import "time"

const (
	// Dedup of consumed events: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"

	// Autocomplete cache prefix; the search engine appends suggest:{lower(q)}
	PrefixCache = "cache:"

	// Sliding-window counters: ratelimit:{scope}:{client}
	PrefixRateLimit = "ratelimit:"
)

var TTLDedup = 48 * time.Hour
