package http

import (
	"sync"

	"github.com/spf13/viper"
)

// Config holds HTTP parser tunables.
type Config struct {
	MaxHeaderBytes int `mapstructure:"max_header_bytes" yaml:"max_header_bytes"`
	MaxBodyBytes   int `mapstructure:"max_body_bytes" yaml:"max_body_bytes"`
}

var configOnce sync.Once

func initConfigDefaults() {
	viper.SetDefault("http.max_header_bytes", 32*1024)
	viper.SetDefault("http.max_body_bytes", 4*1024*1024)
}

// DefaultConfig returns the HTTP configuration with viper-backed defaults.
func DefaultConfig() Config {
	configOnce.Do(initConfigDefaults)
	return Config{
		MaxHeaderBytes: viper.GetInt("http.max_header_bytes"),
		MaxBodyBytes:   viper.GetInt("http.max_body_bytes"),
	}
}
