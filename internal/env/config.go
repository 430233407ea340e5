package env

import (
	"context"
	"os"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	// LeaseSubnet is the IPv4 subnet leases are granted from.
	LeaseSubnet string `env:"WG_DYNAMIC_LEASE_SUBNET,default=192.168.4.0/24"`

	// LeaseTime is the lease duration in seconds.
	LeaseTime uint32 `env:"WG_DYNAMIC_LEASE_TIME,default=3600"`

	DebugHTTP bool `env:"WG_DYNAMIC_DEBUG_HTTP"`
}

func LoadConfig(ctx context.Context) (*Config, error) {
	config := Config{}

	if err := godotenv.Load(".env.local"); err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	}

	if err := envconfig.Process(ctx, &config); err != nil {
		return nil, err
	}

	return &config, nil
}
