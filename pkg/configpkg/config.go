// Package configpkg provides parsing functionality for environment variables.
package configpkg

import (
	"time"

	"github.com/spf13/viper"
)

// Config stores all configuration of the application.
//
// The values are read by viper fron a config file or environement variables.
type Config struct {
	DBDriver             string        `mapstructure:"DB_DRIVER"`
	DBSource             string        `mapstructure:"DB_SOURCE"`
	MigrationURL         string        `mapstructure:"MIGRATION_URL"`
	ServerAddress        string        `mapstructure:"SERVER_ADDRESS"`
	Environement         string        `mapstructure:"GO_ENV"`
	RedisAddress         string        `mapstructure:"REDIS_ADDRESS"`
	LockExpiry           time.Duration `mapstructure:"LOCK_EXPIRY"`
	LockTries            int           `mapstructure:"LOCK_TRIES"`
	LedgerMaxRetries     int           `mapstructure:"LEDGER_MAX_RETRIES"`
	LedgerRetryBaseDelay time.Duration `mapstructure:"LEDGER_RETRY_BASE_DELAY"`
}

// Load read configuration from file or environment variables.
func Load(path string) (Config, error) {
	var c Config

	v := viper.New()

	v.AddConfigPath(path)
	v.SetConfigName("app")
	v.SetConfigType("env")

	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("MIGRATION_URL", "file://db/migration")
	v.SetDefault("SERVER_ADDRESS", "0.0.0.0:8080")
	v.SetDefault("REDIS_ADDRESS", "")
	v.SetDefault("LOCK_EXPIRY", 5*time.Second)
	v.SetDefault("LOCK_TRIES", 3)
	v.SetDefault("LEDGER_MAX_RETRIES", 5)
	v.SetDefault("LEDGER_RETRY_BASE_DELAY", 5*time.Millisecond)

	v.AutomaticEnv()

	err := v.ReadInConfig()
	if err != nil {
		return c, err
	}

	err = v.Unmarshal(&c)
	if err != nil {
		return c, err
	}

	return c, nil
}
