package rtp

import (
	"sync"

	"github.com/spf13/viper"
)

// Config holds RTP parser tunables.
type Config struct {
	MaxPayloadBytes int `mapstructure:"max_payload_bytes" yaml:"max_payload_bytes"`
}

var configOnce sync.Once

func initConfigDefaults() {
	viper.SetDefault("rtp.max_payload_bytes", 1500)
}

// DefaultConfig returns the RTP configuration with viper-backed defaults.
func DefaultConfig() Config {
	configOnce.Do(initConfigDefaults)
	return Config{MaxPayloadBytes: viper.GetInt("rtp.max_payload_bytes")}
}
