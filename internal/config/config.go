// Package config holds the settings for a monmsg run, along with loading them
// from TOML files and connecting to the configured cache.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/dekarrin/monmsg/internal/cache"
	"github.com/dekarrin/monmsg/internal/cache/inmem"
	"github.com/dekarrin/monmsg/internal/cache/sqlite"
	"github.com/dekarrin/monmsg/internal/grammar"
	"github.com/dekarrin/monmsg/internal/mmerrors"
	"github.com/dekarrin/monmsg/internal/resolve"
	"github.com/dekarrin/monmsg/internal/util"
)

const (
	// DefaultMaxAlternatives is the alternative bound used for reduction when
	// none is given.
	DefaultMaxAlternatives = 1 << 22

	// DefaultWidth is the console width output is wrapped to when none is
	// given.
	DefaultWidth = 80

	// MinWidth is the narrowest console width that output can be wrapped to.
	MinWidth = 20

	// LongestMessage is the MaxLength value that means the length of the
	// longest message in the input.
	LongestMessage = -1
)

// CacheType is the type of a resolved-set cache.
type CacheType string

func (ct CacheType) String() string {
	return string(ct)
}

const (
	CacheNone     CacheType = "none"
	CacheSQLite   CacheType = "sqlite"
	CacheInMemory CacheType = "inmem"
)

// ParseCacheType parses a string found in a connection string into a
// CacheType.
func ParseCacheType(s string) (CacheType, error) {
	sLower := strings.ToLower(s)

	switch sLower {
	case CacheNone.String():
		return CacheNone, nil
	case CacheSQLite.String():
		return CacheSQLite, nil
	case CacheInMemory.String():
		return CacheInMemory, nil
	default:
		return CacheNone, fmt.Errorf("cache type not one of 'none', 'sqlite', or 'inmem': %q", s)
	}
}

// Cache contains configuration settings for connecting to a resolved-set
// cache.
type Cache struct {
	// Type is the type of cache the config refers to. It also determines which
	// of its other fields are valid. The zero value is treated the same as
	// CacheNone.
	Type CacheType

	// DataDir is the path on disk to a directory to store data in. This is
	// only applicable for certain cache types: SQLite.
	DataDir string
}

// Enabled returns whether the Cache refers to an actual cache.
func (c Cache) Enabled() bool {
	return c.Type != "" && c.Type != CacheNone
}

// String gives the connection string that would parse to c.
func (c Cache) String() string {
	switch c.Type {
	case CacheSQLite:
		return CacheSQLite.String() + ":" + c.DataDir
	case "":
		return CacheNone.String()
	default:
		return c.Type.String()
	}
}

// Connect performs all logic needed to connect to the configured cache and
// initialize the store for use.
func (c Cache) Connect() (cache.Store, error) {
	switch c.Type {
	case CacheInMemory:
		return inmem.NewDatastore(), nil
	case CacheSQLite:
		err := os.MkdirAll(c.DataDir, 0770)
		if err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}

		store, err := sqlite.NewDatastore(c.DataDir)
		if err != nil {
			return nil, fmt.Errorf("initialize sqlite: %w", err)
		}

		return store, nil
	case CacheNone, "":
		return nil, fmt.Errorf("cannot connect to 'none' cache")
	default:
		return nil, fmt.Errorf("unknown cache type: %q", c.Type.String())
	}
}

// Validate returns an error if the Cache does not have the correct fields
// set.
func (c Cache) Validate() error {
	switch c.Type {
	case CacheInMemory, CacheNone, "":
		return nil
	case CacheSQLite:
		if c.DataDir == "" {
			return fmt.Errorf("DataDir not set to path")
		}
		return nil
	default:
		return fmt.Errorf("unknown cache type: %q", c.Type.String())
	}
}

// ParseCacheConnString parses a cache connection string of the form
// "engine:params" (or just "engine" if no other params are required) into a
// valid Cache config object. For example, "sqlite:.monmsg" gives a SQLite
// cache stored in files in the .monmsg dir, and "inmem" gives an in-memory
// cache.
func ParseCacheConnString(s string) (Cache, error) {
	var paramStr string
	parts := strings.SplitN(s, ":", 2)

	if len(parts) == 2 {
		paramStr = strings.TrimSpace(parts[1])
	}

	eng, err := ParseCacheType(strings.TrimSpace(parts[0]))
	if err != nil {
		return Cache{}, fmt.Errorf("unsupported cache engine: %w", err)
	}

	switch eng {
	case CacheNone, CacheInMemory:
		if paramStr != "" {
			return Cache{}, fmt.Errorf("unsupported param(s) for %s cache engine: %s", eng, paramStr)
		}

		return Cache{Type: eng}, nil
	case CacheSQLite:
		if paramStr == "" {
			return Cache{}, fmt.Errorf("sqlite cache engine requires path to data directory after ':'")
		}

		return Cache{Type: CacheSQLite, DataDir: paramStr}, nil
	default:
		return Cache{}, fmt.Errorf("unknown cache engine: %q", eng.String())
	}
}

// Config is the configuration of a monmsg run.
type Config struct {
	// Strategy is the strategy used to resolve rule 0. If not set, it will
	// default to reduction.
	Strategy resolve.Strategy

	// MaxDepth bounds expansion by the number of substitutions of rules on a
	// cycle. Zero means no bound.
	MaxDepth int

	// MaxLength bounds expansion by derived string length. Zero means no
	// bound; LongestMessage means the length of the longest input message.
	MaxLength int

	// MaxAlternatives bounds reduction by the alternatives any rewritten rule
	// may have. If not set, it will default to DefaultMaxAlternatives. Set it
	// to any negative number to remove the bound.
	MaxAlternatives int

	// Overrides are rule lines that replace or add to the rules of the input
	// before it is validated.
	Overrides []string

	// Cache is the resolved-set cache to use. If not set, no cache is used.
	Cache Cache

	// Width is the console width that diagnostics are wrapped to. If not set,
	// it will default to DefaultWidth.
	Width int

	// Verify is whether both strategies are run and checked against each
	// other.
	Verify bool

	// ShowRules is whether the resolved rule table is printed.
	ShowRules bool

	// Debug is whether debug-level logging is enabled.
	Debug bool
}

// FillDefaults returns a new Config identitical to cfg but with unset values
// set to their defaults.
func (cfg Config) FillDefaults() Config {
	newCFG := cfg

	if newCFG.Strategy == "" || newCFG.Strategy == resolve.StrategyNone {
		newCFG.Strategy = resolve.StrategyReduce
	}
	if newCFG.MaxAlternatives == 0 {
		newCFG.MaxAlternatives = DefaultMaxAlternatives
	}
	if newCFG.Cache.Type == "" {
		newCFG.Cache = Cache{Type: CacheNone}
	}
	if newCFG.Width == 0 {
		newCFG.Width = DefaultWidth
	}

	return newCFG
}

// Validate returns an error if the Config has invalid field values set. Empty
// and unset values are considered invalid; if defaults are intended to be
// used, call Validate on the return value of FillDefaults.
func (cfg Config) Validate() error {
	if _, err := resolve.ParseStrategy(cfg.Strategy.String()); err != nil {
		return fmt.Errorf("strategy: %w", err)
	}
	if cfg.MaxDepth < 0 {
		return fmt.Errorf("max depth: must not be negative, but is %d", cfg.MaxDepth)
	}
	if cfg.MaxLength < LongestMessage {
		return fmt.Errorf("max length: must be %d or greater, but is %d", LongestMessage, cfg.MaxLength)
	}
	if cfg.MaxAlternatives == 0 {
		return fmt.Errorf("max alternatives: must not be 0")
	}
	if cfg.Width < MinWidth {
		return fmt.Errorf("width: must be at least %d, but is %d", MinWidth, cfg.Width)
	}
	for i, line := range cfg.Overrides {
		if _, err := grammar.ParseRule(line); err != nil {
			return fmt.Errorf("override %d: %w", i+1, err)
		}
	}
	if err := cfg.Cache.Validate(); err != nil {
		return fmt.Errorf("cache: %w", err)
	}

	return nil
}

// Reducer returns a Reducer set up with the bounds of cfg.
func (cfg Config) Reducer() resolve.Reducer {
	rd := resolve.Reducer{MaxAlternatives: cfg.MaxAlternatives}
	if rd.MaxAlternatives < 0 {
		rd.MaxAlternatives = 0
	}
	return rd
}

// Expander returns an Expander set up with the bounds of cfg. Because the
// length of the longest message is not known to the Config, a MaxLength of
// LongestMessage must be given in longest.
func (cfg Config) Expander(longest int) resolve.Expander {
	x := resolve.Expander{MaxDepth: cfg.MaxDepth, MaxLength: cfg.MaxLength}
	if x.MaxLength == LongestMessage {
		x.MaxLength = longest
	}
	return x
}

// file is the layout of a TOML config file.
type file struct {
	Strategy        string   `toml:"strategy"`
	MaxDepth        int      `toml:"max_depth"`
	MaxLength       int      `toml:"max_length"`
	MaxAlternatives int      `toml:"max_alternatives"`
	Overrides       []string `toml:"overrides"`
	Cache           string   `toml:"cache"`
	Width           int      `toml:"width"`
	Verify          bool     `toml:"verify"`
	ShowRules       bool     `toml:"show_rules"`
	Debug           bool     `toml:"debug"`
}

// Load reads the TOML config file at path. Keys that are not part of a config
// are an error. Unset values are left unset; call FillDefaults on the returned
// Config to set them.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, mmerrors.InputUnavailable(path, err)
	}

	cfg, err := Parse(string(data))
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse reads a config from TOML text.
func Parse(data string) (Config, error) {
	var f file

	md, err := toml.Decode(data, &f)
	if err != nil {
		return Config{}, fmt.Errorf("decode: %w", err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		var keys []string
		for _, k := range undecoded {
			keys = append(keys, fmt.Sprintf("%q", k.String()))
		}
		return Config{}, fmt.Errorf("unknown key(s) %s", util.MakeTextList(keys))
	}

	cfg := Config{
		MaxDepth:        f.MaxDepth,
		MaxLength:       f.MaxLength,
		MaxAlternatives: f.MaxAlternatives,
		Overrides:       f.Overrides,
		Width:           f.Width,
		Verify:          f.Verify,
		ShowRules:       f.ShowRules,
		Debug:           f.Debug,
	}

	if f.Strategy != "" {
		cfg.Strategy, err = resolve.ParseStrategy(f.Strategy)
		if err != nil {
			return Config{}, fmt.Errorf("strategy: %w", err)
		}
	}
	if f.Cache != "" {
		cfg.Cache, err = ParseCacheConnString(f.Cache)
		if err != nil {
			return Config{}, fmt.Errorf("cache: %w", err)
		}
	}

	return cfg, nil
}
