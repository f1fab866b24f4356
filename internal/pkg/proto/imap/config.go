package imap

import (
	"sync"

	"github.com/spf13/viper"
)

// Config holds IMAP parser tunables.
type Config struct {
	MaxLineBytes int `mapstructure:"max_line_bytes" yaml:"max_line_bytes"`
}

var configOnce sync.Once

func initConfigDefaults() {
	viper.SetDefault("imap.max_line_bytes", 8*1024)
}

// DefaultConfig returns the IMAP configuration with viper-backed defaults.
func DefaultConfig() Config {
	configOnce.Do(initConfigDefaults)
	return Config{MaxLineBytes: viper.GetInt("imap.max_line_bytes")}
}
