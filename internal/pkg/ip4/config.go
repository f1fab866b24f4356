package ip4

import (
	"sync"
	"time"

	"github.com/spf13/viper"
)

// Config holds IPv4 decoder tunables, following the teacher's
// viper.SetDefault idiom for per-package configuration.
type Config struct {
	MaxFragListLen int           `mapstructure:"max_frag_list_len" yaml:"max_frag_list_len"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
}

var configOnce sync.Once

func initConfigDefaults() {
	viper.SetDefault("ip4.max_frag_list_len", 64)
	viper.SetDefault("ip4.idle_timeout", time.Minute)
}

// DefaultConfig returns the IPv4 configuration with viper-backed defaults.
func DefaultConfig() Config {
	configOnce.Do(initConfigDefaults)
	return Config{
		MaxFragListLen: viper.GetInt("ip4.max_frag_list_len"),
		IdleTimeout:    viper.GetDuration("ip4.idle_timeout"),
	}
}
