package config

import "time"

// GrantCacheConfig controls the Redis read-through cache in front of the
// permissions table.  When Enabled is false or no Redis client could be
// created the resolver queries the database on every request.  Prefix
// namespaces the keys; TTL bounds how long a changed grant can stay stale.
type GrantCacheConfig struct {
	Enabled bool          `env:"GRANT_CACHE_ENABLED" envDefault:"true"`
	TTL     time.Duration `env:"GRANT_CACHE_TTL" envDefault:"5m"`
	Prefix  string        `env:"GRANT_CACHE_PREFIX" envDefault:"grants"`
}
