package esent

import (
	"github.com/C-Sto/goesedb/pkg/logger"
	"go.uber.org/zap"
)

const defaultPageCacheSize = 256

// Config carries the settings a File and everything opened from it use.
// Multiple files with different settings can be open at the same time.
type Config struct {
	// Codepage decodes catalog names and text columns that declare codepage 0.
	Codepage uint32 `yaml:"codepage"`
	// PageCacheSize bounds the number of decoded pages kept per file and per table.
	PageCacheSize int `yaml:"page_cache_size"`

	Logger *zap.Logger `yaml:"-"`
}

// DefaultConfig returns a config for Windows-1252 names with a 256 page cache.
func DefaultConfig() *Config {
	return &Config{
		Codepage:      CodepageWestern,
		PageCacheSize: defaultPageCacheSize,
		Logger:        logger.Nop(),
	}
}

func (c *Config) withDefaults() *Config {
	out := DefaultConfig()
	if c == nil {
		return out
	}
	if c.Codepage != 0 {
		out.Codepage = c.Codepage
	}
	if c.PageCacheSize > 0 {
		out.PageCacheSize = c.PageCacheSize
	}
	if c.Logger != nil {
		out.Logger = c.Logger
	}
	return out
}
