package ip6

import (
	"sync"
	"time"

	"github.com/spf13/viper"
)

// Config holds IPv6 decoder tunables.
type Config struct {
	MaxFragListLen int           `mapstructure:"max_frag_list_len" yaml:"max_frag_list_len"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
}

var configOnce sync.Once

func initConfigDefaults() {
	viper.SetDefault("ip6.max_frag_list_len", 64)
	viper.SetDefault("ip6.idle_timeout", time.Minute)
}

// DefaultConfig returns the IPv6 configuration with viper-backed defaults.
func DefaultConfig() Config {
	configOnce.Do(initConfigDefaults)
	return Config{
		MaxFragListLen: viper.GetInt("ip6.max_frag_list_len"),
		IdleTimeout:    viper.GetDuration("ip6.idle_timeout"),
	}
}
