package flashcache

// LogEngineKind selects which backend implements the flash log tier.
type LogEngineKind int

const (
	// LogEngineQuotient uses the bit-packed quotient index (the default).
	LogEngineQuotient LogEngineKind = iota
	// LogEngineSegment uses the circular-buffer segment index.
	LogEngineSegment
)

// PreLogAdmission is a reserved extension hook: an admission filter that, if
// installed, scales write-amplification accounting by an observed byte
// admission ratio. No constructor in this module populates it; it exists so
// a caller can opt in without a breaking API change later.
type PreLogAdmission struct {
	// AdmittedBytes and OfferedBytes together describe the ratio the
	// coordinator scales tier write-amp by: AdmittedBytes / OfferedBytes.
	AdmittedBytes uint64
	OfferedBytes  uint64
}

// Config configures a ZoneCache instance.
type Config struct {
	FlashSizeMB       int
	MemorySizeMB      int
	SetCapacity       int
	LogEngine         LogEngineKind
	RequireSlowWarmup bool
	PreLogAdmission   *PreLogAdmission
}

// Option is a functional option for configuring a ZoneCache.
type Option func(*Config)

// WithFlashSizeMB sets the total flash capacity, in megabytes. ZoneCache
// sizes both the log tier's byte bound and the sets tier's page count from
// this whole budget; it is not divided between the two.
func WithFlashSizeMB(mb int) Option {
	return func(c *Config) {
		c.FlashSizeMB = mb
	}
}

// WithMemorySizeMB sets the DRAM (S3FIFO) tier's byte budget, in megabytes.
func WithMemorySizeMB(mb int) Option {
	return func(c *Config) {
		c.MemorySizeMB = mb
	}
}

// WithSetCapacity sets the Sets tier's page size, in bytes.
func WithSetCapacity(bytes int) Option {
	return func(c *Config) {
		c.SetCapacity = bytes
	}
}

// WithLogEngine selects which backend implements the flash log tier.
func WithLogEngine(kind LogEngineKind) Option {
	return func(c *Config) {
		c.LogEngine = kind
	}
}

// WithRequireSlowWarmup marks the slow-warmup config key present. ZoneCache
// construction panics if this option is never applied, matching the
// reference implementation's behavior of asserting the key's presence.
func WithRequireSlowWarmup() Option {
	return func(c *Config) {
		c.RequireSlowWarmup = true
	}
}

// WithPreLogAdmission installs a reserved pre-log admission filter. No
// constructor uses this by default; it is here for forward compatibility.
func WithPreLogAdmission(p *PreLogAdmission) Option {
	return func(c *Config) {
		c.PreLogAdmission = p
	}
}

// defaultConfig returns the zero-value baseline before options are applied.
func defaultConfig() *Config {
	return &Config{
		LogEngine: LogEngineQuotient,
	}
}

// NewConfig builds a Config from the zero-value baseline plus opts, for
// callers that want to construct one without going through ZoneCache's own
// constructor (e.g. to validate or inspect it first).
func NewConfig(opts ...Option) *Config {
	c := defaultConfig()
	for _, opt := range opts {
		opt(c)
	}
	return c
}
