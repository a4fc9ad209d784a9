package ring

import (
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load resolves a Config by layering, in increasing priority: the
// compiled-in defaults, a configs/ring.yaml file (if present, read
// with viper), and environment variables (loaded from .env with
// godotenv, then read with os.Getenv-equivalent calls through viper's
// own env binding): an environment variable wins over ring.yaml, and
// ring.yaml wins over the defaults.
func Load(configDir string) (Config, error) {
	cfg := NewDefaultConfig()

	// godotenv.Load is best-effort: a missing .env file is normal in
	// production and must not be fatal.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("ring")
	v.SetConfigType("yaml")
	if configDir != "" {
		v.AddConfigPath(configDir)
	}
	v.AddConfigPath(".")

	v.SetDefault("size", cfg.Size)
	v.SetDefault("host", cfg.Host)
	v.SetDefault("primary_base", cfg.PrimaryBase)
	v.SetDefault("secondary_base", cfg.SecondaryBase)

	v.SetEnvPrefix("RING")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, err
		}
		// No ring.yaml: fall through to defaults + env.
	}

	cfg.Size = v.GetInt("size")
	cfg.Host = v.GetString("host")
	cfg.PrimaryBase = v.GetInt("primary_base")
	cfg.SecondaryBase = v.GetInt("secondary_base")

	return cfg, nil
}

// ParseStoreID parses the Store CLI's single positional argument into
// a store id.
func ParseStoreID(raw string) (uint16, error) {
	n, err := strconv.ParseUint(raw, 10, 16)
	if err != nil {
		return 0, err
	}
	return uint16(n), nil
}
