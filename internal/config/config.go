package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config represents the server configuration structure
type Config struct {
	Environment   string `default:"development"`
	ListenAddress string `default:":9000" split_words:"true"`
	AppName       string `default:"Walletgate" split_words:"true"`

	// RedisURL enables the Redis store and event stream; empty keeps everything in memory
	RedisURL string `split_words:"true"`

	// SigningKeyFile is a PEM encoded P-256 key; empty generates an ephemeral one
	SigningKeyFile string `split_words:"true"`

	ChallengeTTL time.Duration `default:"5m" split_words:"true"`
	AccessTTL    time.Duration `default:"24h" split_words:"true"`

	CookieSecure bool `split_words:"true"`

	// ChainRPCURL enables balance lookups
	ChainRPCURL string `envconfig:"CHAIN_RPC_URL"`
}

// IsEnvProduction checks whether the server runs in production mode
func (config *Config) IsEnvProduction() bool {
	return strings.ToLower(config.Environment) == "production"
}

// LoadFromEnv loads a new configuration structure using environment variables and an optional .env file
func LoadFromEnv() (*Config, error) {
	// Load a .env file if it exists
	_ = godotenv.Overload()

	config := new(Config)
	if err := envconfig.Process("walletgate", config); err != nil {
		return nil, err
	}
	return config, nil
}
