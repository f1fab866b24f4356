package dns

import (
	"sync"

	"github.com/spf13/viper"
)

// Config holds DNS parser tunables.
type Config struct {
	MaxMessageBytes int `mapstructure:"max_message_bytes" yaml:"max_message_bytes"`
}

var configOnce sync.Once

func initConfigDefaults() {
	viper.SetDefault("dns.max_message_bytes", 64*1024)
}

// DefaultConfig returns the DNS configuration with viper-backed defaults.
func DefaultConfig() Config {
	configOnce.Do(initConfigDefaults)
	return Config{MaxMessageBytes: viper.GetInt("dns.max_message_bytes")}
}
