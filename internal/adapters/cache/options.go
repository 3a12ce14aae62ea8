package cache

// Option applies a configuration option to the TTL cache.
type Option func(*TTL)

// WithMaxEntries bounds the cache. Zero or negative means unbounded.
func WithMaxEntries(n int) Option {
	return func(c *TTL) {
		c.maxEntries = n
	}
}
