package sip

import (
	"sync"

	"github.com/spf13/viper"
)

// Config holds SIP parser tunables.
type Config struct {
	MaxMessageBytes int `mapstructure:"max_message_bytes" yaml:"max_message_bytes"`
}

var configOnce sync.Once

func initConfigDefaults() {
	viper.SetDefault("sip.max_message_bytes", 64*1024)
}

// DefaultConfig returns the SIP configuration with viper-backed defaults.
func DefaultConfig() Config {
	configOnce.Do(initConfigDefaults)
	return Config{MaxMessageBytes: viper.GetInt("sip.max_message_bytes")}
}
