package pop3

import (
	"sync"

	"github.com/spf13/viper"
)

// Config holds POP3 parser tunables.
type Config struct {
	MaxLineBytes int `mapstructure:"max_line_bytes" yaml:"max_line_bytes"`
}

var configOnce sync.Once

func initConfigDefaults() {
	viper.SetDefault("pop3.max_line_bytes", 8*1024)
}

// DefaultConfig returns the POP3 configuration with viper-backed defaults.
func DefaultConfig() Config {
	configOnce.Do(initConfigDefaults)
	return Config{MaxLineBytes: viper.GetInt("pop3.max_line_bytes")}
}
