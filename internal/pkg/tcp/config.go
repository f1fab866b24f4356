package tcp

import (
	"sync"
	"time"

	"github.com/spf13/viper"
)

// Config holds TCP decoder tunables, following the teacher's
// voip.TCPConfiguration / viper.SetDefault idiom.
type Config struct {
	IdentBufferMax int           `mapstructure:"ident_buffer_max" yaml:"ident_buffer_max"`
	MaxSegments    int           `mapstructure:"max_segments" yaml:"max_segments"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
}

var configOnce sync.Once

func initConfigDefaults() {
	viper.SetDefault("tcp.ident_buffer_max", 1024)
	viper.SetDefault("tcp.max_segments", 64)
	viper.SetDefault("tcp.idle_timeout", 2*time.Minute)
}

// DefaultConfig returns the TCP configuration with viper-backed defaults.
func DefaultConfig() Config {
	configOnce.Do(initConfigDefaults)
	return Config{
		IdentBufferMax: viper.GetInt("tcp.ident_buffer_max"),
		MaxSegments:    viper.GetInt("tcp.max_segments"),
		IdleTimeout:    viper.GetDuration("tcp.idle_timeout"),
	}
}
