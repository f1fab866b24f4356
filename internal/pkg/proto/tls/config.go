package tls

import (
	"sync"

	"github.com/spf13/viper"
)

// Config holds TLS record parser tunables.
type Config struct {
	MaxRecordLength int `mapstructure:"max_record_length" yaml:"max_record_length"`
}

var configOnce sync.Once

func initConfigDefaults() {
	viper.SetDefault("tls.max_record_length", 16384)
}

// DefaultConfig returns the TLS configuration with viper-backed defaults.
func DefaultConfig() Config {
	configOnce.Do(initConfigDefaults)
	return Config{MaxRecordLength: viper.GetInt("tls.max_record_length")}
}
