package boot

import "time"

// Config holds the tunable timing of an update attempt. The defaults are
// the reference deployment's values; real hardware keeps them, tests
// shrink them.
type Config struct {
	// HeaderTimeout is the per-byte budget for the 12-byte header read.
	// Expiry is benign: it means no update was requested.
	HeaderTimeout time.Duration

	// ChunkTimeout is the per-byte budget for firmware chunk reads.
	// Expiry here is fatal for the boot cycle.
	ChunkTimeout time.Duration
}

func defaultConfig() Config {
	return Config{
		HeaderTimeout: 2000 * time.Millisecond,
		ChunkTimeout:  5000 * time.Millisecond,
	}
}

// Option configures a Bootloader.
type Option func(*Config)

// WithHeaderTimeout sets the per-byte header read budget.
func WithHeaderTimeout(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.HeaderTimeout = d
		}
	}
}

// WithChunkTimeout sets the per-byte chunk read budget.
func WithChunkTimeout(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.ChunkTimeout = d
		}
	}
}
