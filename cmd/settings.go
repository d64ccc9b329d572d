package cmd

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/C-Sto/goesedb/pkg/esent"
	"github.com/C-Sto/goesedb/pkg/export"
	"gopkg.in/yaml.v2"
)

// Settings are the options shared by the commands. They are read from an
// optional YAML file, then overridden by whatever flags were given.
type Settings struct {
	Codepage      uint32 `yaml:"codepage"`
	PageCacheSize int    `yaml:"page_cache_size"`
	Target        string `yaml:"target"`
	Format        string `yaml:"format"`
	Table         string `yaml:"table"`
	Jobs          int    `yaml:"jobs"`
	WindowsSearch bool   `yaml:"windows_search"`
	Debug         bool   `yaml:"debug"`
}

func DefaultSettings() Settings {
	cfg := esent.DefaultConfig()
	return Settings{
		Codepage:      cfg.Codepage,
		PageCacheSize: cfg.PageCacheSize,
		Format:        export.FormatText,
		Jobs:          1,
	}
}

// LoadSettings decodes the YAML file at path over the defaults.
func LoadSettings(path string) (Settings, error) {
	s := DefaultSettings()
	f, err := os.Open(path)
	if err != nil {
		return s, err
	}
	defer f.Close()
	if err := yaml.NewDecoder(f).Decode(&s); err != nil {
		return s, err
	}
	return s, nil
}

// settingsFlags binds the command line flags for Settings.
type settingsFlags struct {
	fs     *flag.FlagSet
	config string
	s      Settings
}

func newSettingsFlags(name string, withExport bool) *settingsFlags {
	sf := &settingsFlags{fs: flag.NewFlagSet(name, flag.ContinueOnError), s: DefaultSettings()}
	sf.fs.StringVar(&sf.config, "config", "", "YAML settings file")
	sf.fs.BoolVar(&sf.s.Debug, "debug", false, "log page and record level detail")
	sf.fs.Var((*uint32Value)(&sf.s.Codepage), "codepage", "codepage of catalog names and untagged text")
	sf.fs.IntVar(&sf.s.PageCacheSize, "cache", sf.s.PageCacheSize, "pages cached per file and table")
	if withExport {
		sf.fs.StringVar(&sf.s.Target, "target", "", "output directory (text) or database file (sqlite)")
		sf.fs.StringVar(&sf.s.Format, "format", sf.s.Format, "output format: text or sqlite")
		sf.fs.StringVar(&sf.s.Table, "table", "", "only export this table")
		sf.fs.IntVar(&sf.s.Jobs, "jobs", sf.s.Jobs, "tables exported in parallel")
		sf.fs.BoolVar(&sf.s.WindowsSearch, "windows-search", false, "decode Windows Search System_ columns")
	}
	return sf
}

// parse parses args and returns the merged settings and the positional arguments.
func (sf *settingsFlags) parse(args []string) (Settings, []string, error) {
	if err := sf.fs.Parse(args); err != nil {
		return Settings{}, nil, err
	}
	if sf.config == "" {
		return sf.s, sf.fs.Args(), nil
	}
	out, err := LoadSettings(sf.config)
	if err != nil {
		return Settings{}, nil, err
	}
	sf.fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "debug":
			out.Debug = sf.s.Debug
		case "codepage":
			out.Codepage = sf.s.Codepage
		case "cache":
			out.PageCacheSize = sf.s.PageCacheSize
		case "target":
			out.Target = sf.s.Target
		case "format":
			out.Format = sf.s.Format
		case "table":
			out.Table = sf.s.Table
		case "jobs":
			out.Jobs = sf.s.Jobs
		case "windows-search":
			out.WindowsSearch = sf.s.WindowsSearch
		}
	})
	return out, sf.fs.Args(), nil
}

type uint32Value uint32

func (v *uint32Value) String() string { return fmt.Sprint(uint32(*v)) }

func (v *uint32Value) Set(s string) error {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return err
	}
	*v = uint32Value(n)
	return nil
}
