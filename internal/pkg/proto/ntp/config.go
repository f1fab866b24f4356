package ntp

import (
	"sync"

	"github.com/spf13/viper"
)

// Config holds NTP parser tunables.
type Config struct {
	MaxMessageBytes int `mapstructure:"max_message_bytes" yaml:"max_message_bytes"`
}

var configOnce sync.Once

func initConfigDefaults() {
	viper.SetDefault("ntp.max_message_bytes", 128)
}

// DefaultConfig returns the NTP configuration with viper-backed defaults.
func DefaultConfig() Config {
	configOnce.Do(initConfigDefaults)
	return Config{MaxMessageBytes: viper.GetInt("ntp.max_message_bytes")}
}
