// Package config resolves dashboard and snapshot settings.
//
// Precedence, lowest first: built-in defaults, an optional TOML file, then
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/tyler180/nfl-rushing-stats/internal/pfr"
)

// Cache backends.
const (
	CacheMemory   = "memory"
	CacheRedis    = "redis"
	CacheDynamoDB = "dynamodb"
)

type Config struct {
	Addr        string   `toml:"addr"`
	CORSOrigins []string `toml:"cors_origins"`
	Debug       bool     `toml:"debug"`

	PFR    PFRConfig    `toml:"pfr"`
	Cache  CacheConfig  `toml:"cache"`
	Years  YearsConfig  `toml:"years"`
	Athena AthenaConfig `toml:"athena"`

	// Snapshot job
	SnapshotTable string `toml:"snapshot_table"`
	ExportBucket  string `toml:"export_bucket"`
	ExportPrefix  string `toml:"export_prefix"`
	Seasons       []int  `toml:"seasons"`
}

type PFRConfig struct {
	BaseURL     string `toml:"base_url"`
	MaxAttempts int    `toml:"max_attempts"`
	RetryBaseMS int    `toml:"retry_base_ms"`
	RetryMaxMS  int    `toml:"retry_max_ms"`
	CooldownMS  int    `toml:"cooldown_ms"`
	TimeoutSecs int    `toml:"timeout_secs"`
}

type CacheConfig struct {
	Backend  string `toml:"backend"`
	RedisURL string `toml:"redis_url"`
}

// AthenaConfig enables partition registration for published CSVs.
// An empty Database turns it off.
type AthenaConfig struct {
	Database  string `toml:"database"`
	Table     string `toml:"table"`
	Workgroup string `toml:"workgroup"`
	Output    string `toml:"output"`
}

// YearsConfig is the inclusive range the dashboard offers, newest first.
type YearsConfig struct {
	Min int `toml:"min"`
	Max int `toml:"max"`
}

func Default() Config {
	p := pfr.DefaultRetryPolicy()
	return Config{
		Addr:        ":8080",
		CORSOrigins: []string{"*"},
		PFR: PFRConfig{
			BaseURL:     pfr.BaseURL,
			MaxAttempts: p.MaxAttempts,
			RetryBaseMS: int(p.Base / time.Millisecond),
			RetryMaxMS:  int(p.MaxBackoff / time.Millisecond),
			CooldownMS:  int(p.Cooldown / time.Millisecond),
			TimeoutSecs: 30,
		},
		Cache:        CacheConfig{Backend: CacheMemory},
		Years:        YearsConfig{Min: 1990, Max: 2019},
		Athena:       AthenaConfig{Table: "rushing", Workgroup: "primary"},
		ExportPrefix: "rushing",
	}
}

// Load applies path (if non-empty) then the environment over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config: %w", err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.Addr = getenv("ADDR", c.Addr)
	if v := getenv("CORS_ORIGINS", ""); v != "" {
		c.CORSOrigins = splitCSV(v)
	}
	c.Debug = envBool("DEBUG", c.Debug)

	c.PFR.BaseURL = getenv("PFR_BASE_URL", c.PFR.BaseURL)
	c.PFR.MaxAttempts = envInt("HTTP_MAX_ATTEMPTS", c.PFR.MaxAttempts)
	c.PFR.RetryBaseMS = envInt("HTTP_RETRY_BASE_MS", c.PFR.RetryBaseMS)
	c.PFR.RetryMaxMS = envInt("HTTP_RETRY_MAX_MS", c.PFR.RetryMaxMS)
	c.PFR.CooldownMS = envInt("HTTP_COOLDOWN_MS", c.PFR.CooldownMS)
	c.PFR.TimeoutSecs = envInt("HTTP_TIMEOUT_SECS", c.PFR.TimeoutSecs)

	c.Cache.Backend = strings.ToLower(getenv("CACHE_BACKEND", c.Cache.Backend))
	c.Cache.RedisURL = getenv("REDIS_URL", c.Cache.RedisURL)

	c.Years.Min = envInt("MIN_YEAR", c.Years.Min)
	c.Years.Max = envInt("MAX_YEAR", c.Years.Max)

	c.Athena.Database = getenv("ATHENA_DATABASE", c.Athena.Database)
	c.Athena.Table = getenv("ATHENA_TABLE", c.Athena.Table)
	c.Athena.Workgroup = getenv("ATHENA_WORKGROUP", c.Athena.Workgroup)
	c.Athena.Output = getenv("ATHENA_OUTPUT", c.Athena.Output)

	c.SnapshotTable = getenv("SNAPSHOT_TABLE_NAME", c.SnapshotTable)
	c.ExportBucket = getenv("EXPORT_BUCKET", c.ExportBucket)
	c.ExportPrefix = getenv("EXPORT_PREFIX", c.ExportPrefix)
	if v := getenv("SEASONS", ""); v != "" {
		seasons, err := ParseSeasons(v)
		if err != nil {
			return fmt.Errorf("SEASONS: %w", err)
		}
		c.Seasons = seasons
	}
	return nil
}

func (c Config) Validate() error {
	var errs []error
	if c.Years.Min > c.Years.Max {
		errs = append(errs, fmt.Errorf("years: min %d > max %d", c.Years.Min, c.Years.Max))
	}
	switch c.Cache.Backend {
	case CacheMemory, CacheDynamoDB:
	case CacheRedis:
		if c.Cache.RedisURL == "" {
			errs = append(errs, errors.New("cache: redis backend needs REDIS_URL"))
		}
	default:
		errs = append(errs, fmt.Errorf("cache: unknown backend %q", c.Cache.Backend))
	}
	if c.Cache.Backend == CacheDynamoDB && c.SnapshotTable == "" {
		errs = append(errs, errors.New("cache: dynamodb backend needs SNAPSHOT_TABLE_NAME"))
	}
	if c.Athena.Database != "" {
		if c.Athena.Output == "" {
			errs = append(errs, errors.New("athena: ATHENA_DATABASE needs ATHENA_OUTPUT"))
		}
		if c.ExportBucket == "" {
			errs = append(errs, errors.New("athena: ATHENA_DATABASE needs EXPORT_BUCKET"))
		}
	}
	return errors.Join(errs...)
}

// YearOptions lists the offered seasons newest first.
func (c Config) YearOptions() []int {
	out := make([]int, 0, c.Years.Max-c.Years.Min+1)
	for y := c.Years.Max; y >= c.Years.Min; y-- {
		out = append(out, y)
	}
	return out
}

func (c Config) YearAllowed(y int) bool {
	return y >= c.Years.Min && y <= c.Years.Max
}

// SnapshotSeasons is the explicit season list, or the newest offered season.
func (c Config) SnapshotSeasons() []int {
	if len(c.Seasons) > 0 {
		return c.Seasons
	}
	return []int{c.Years.Max}
}

func (c Config) RetryPolicy() pfr.RetryPolicy {
	return pfr.RetryPolicy{
		MaxAttempts: c.PFR.MaxAttempts,
		Base:        time.Duration(c.PFR.RetryBaseMS) * time.Millisecond,
		MaxBackoff:  time.Duration(c.PFR.RetryMaxMS) * time.Millisecond,
		Cooldown:    time.Duration(c.PFR.CooldownMS) * time.Millisecond,
	}
}

func (c Config) HTTPTimeout() time.Duration {
	return time.Duration(c.PFR.TimeoutSecs) * time.Second
}

// ParseSeasons accepts "2019,2018" and ranges like "2015-2019".
func ParseSeasons(s string) ([]int, error) {
	var out []int
	for _, part := range splitCSV(s) {
		if lo, hi, ok := strings.Cut(part, "-"); ok {
			a, err1 := strconv.Atoi(strings.TrimSpace(lo))
			b, err2 := strconv.Atoi(strings.TrimSpace(hi))
			if err1 != nil || err2 != nil || a > b {
				return nil, fmt.Errorf("bad season range %q", part)
			}
			for y := a; y <= b; y++ {
				out = append(out, y)
			}
			continue
		}
		y, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("bad season %q", part)
		}
		out = append(out, y)
	}
	return out, nil
}

func getenv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) int {
	if v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(k))); err == nil {
		return v
	}
	return def
}

func envBool(k string, def bool) bool {
	switch strings.TrimSpace(strings.ToLower(os.Getenv(k))) {
	case "1", "true", "on", "yes":
		return true
	case "0", "false", "off", "no":
		return false
	}
	return def
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
