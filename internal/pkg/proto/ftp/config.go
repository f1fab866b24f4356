package ftp

import (
	"sync"

	"github.com/spf13/viper"
)

// Config holds FTP parser tunables.
type Config struct {
	MaxLineBytes int `mapstructure:"max_line_bytes" yaml:"max_line_bytes"`
}

var configOnce sync.Once

func initConfigDefaults() {
	viper.SetDefault("ftp.max_line_bytes", 8*1024)
}

// DefaultConfig returns the FTP configuration with viper-backed defaults.
func DefaultConfig() Config {
	configOnce.Do(initConfigDefaults)
	return Config{MaxLineBytes: viper.GetInt("ftp.max_line_bytes")}
}
