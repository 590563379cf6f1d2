package config

// RedisConfig contains Redis connection configuration. Redis holds sessions,
// outstanding one-time codes and sign-in lockouts.
type RedisConfig struct {
	URI      string `env:"URI"      envDefault:"localhost:6379"`
	Password string `env:"PASSWORD"`

	UseSentinel        bool     `env:"USE_SENTINEL"         envDefault:"false"`
	SentinelNodes      []string `env:"SENTINEL_NODES"                          envSeparator:","`
	SentinelMasterName string   `env:"SENTINEL_MASTER_NAME" envDefault:"mymaster"`
	SentinelPassword   string   `env:"SENTINEL_PASSWORD"`

	// KeyPrefix namespaces every key this service writes.
	KeyPrefix string `env:"KEY_PREFIX" envDefault:"sponsorlink:"`
}
