package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"

	"restoctl/internal/domain"
)

const paramsFileName = "params.toml"

// Verbosity levels accepted for the verbosity parameter.
const (
	VerbosityQuiet  = "quiet"
	VerbosityNormal = "normal"
	VerbosityDebug  = "debug"
)

// Parameters are the operator's sticky preferences, persisted between
// invocations. An empty value means "unset".
type Parameters struct {
	Server      string `mapstructure:"server" toml:"server,omitempty"`
	Collection  string `mapstructure:"collection" toml:"collection,omitempty"`
	Region      string `mapstructure:"region" toml:"region,omitempty"`
	DownloadDir string `mapstructure:"download_dir" toml:"download_dir,omitempty"`
	Verbosity   string `mapstructure:"verbosity" toml:"verbosity,omitempty"`
	CacheTTL    string `mapstructure:"cache_ttl" toml:"cache_ttl,omitempty"`
}

// ParameterKeys lists the settable keys in display order.
func ParameterKeys() []string {
	return []string{"server", "collection", "region", "download_dir", "verbosity", "cache_ttl"}
}

// TTL returns the effective cache TTL, falling back to the default when the
// parameter is unset or unparsable.
func (p Parameters) TTL() time.Duration {
	if p.CacheTTL == "" {
		return domain.DefaultCacheTTL
	}
	ttl, err := time.ParseDuration(p.CacheTTL)
	if err != nil || ttl <= 0 {
		return domain.DefaultCacheTTL
	}
	return ttl
}

// Get returns the current value for key.
func (p Parameters) Get(key string) (string, error) {
	switch key {
	case "server":
		return p.Server, nil
	case "collection":
		return p.Collection, nil
	case "region":
		return p.Region, nil
	case "download_dir":
		return p.DownloadDir, nil
	case "verbosity":
		return p.Verbosity, nil
	case "cache_ttl":
		return p.CacheTTL, nil
	default:
		return "", unknownParameter(key)
	}
}

// Set stores value under key after validating it.
func (p *Parameters) Set(key, value string) error {
	switch key {
	case "server":
		p.Server = domain.CanonicalName(value)
	case "collection":
		p.Collection = value
	case "region":
		p.Region = value
	case "download_dir":
		p.DownloadDir = value
	case "verbosity":
		switch value {
		case VerbosityQuiet, VerbosityNormal, VerbosityDebug:
			p.Verbosity = value
		default:
			msg := fmt.Sprintf("verbosity must be one of %s, %s, %s", VerbosityQuiet, VerbosityNormal, VerbosityDebug)
			return domain.E(domain.CodeInvalidDefinition, "set parameter", msg, nil)
		}
	case "cache_ttl":
		ttl, err := time.ParseDuration(value)
		if err != nil || ttl <= 0 {
			msg := fmt.Sprintf("cache_ttl %q is not a positive duration", value)
			return domain.E(domain.CodeInvalidDefinition, "set parameter", msg, err)
		}
		p.CacheTTL = value
	default:
		return unknownParameter(key)
	}
	return nil
}

// Unset clears the value under key.
func (p *Parameters) Unset(key string) error {
	switch key {
	case "server":
		p.Server = ""
	case "collection":
		p.Collection = ""
	case "region":
		p.Region = ""
	case "download_dir":
		p.DownloadDir = ""
	case "verbosity":
		p.Verbosity = ""
	case "cache_ttl":
		p.CacheTTL = ""
	default:
		return unknownParameter(key)
	}
	return nil
}

func unknownParameter(key string) error {
	keys := ParameterKeys()
	sort.Strings(keys)
	msg := fmt.Sprintf("unknown parameter %q (known: %v)", key, keys)
	return domain.E(domain.CodeNotFound, "parameter", msg, nil)
}

// LoadParameters reads the parameters file, applying defaults for anything
// unset. A missing file yields the defaults.
func LoadParameters(dir string) (Parameters, error) {
	v := viper.New()
	v.SetConfigFile(filepath.Join(dir, paramsFileName))
	v.SetConfigType("toml")
	v.SetDefault("verbosity", VerbosityNormal)
	v.SetDefault("cache_ttl", domain.DefaultCacheTTL.String())

	if err := v.ReadInConfig(); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return Parameters{}, fmt.Errorf("read parameters: %w", err)
		}
	}

	var params Parameters
	if err := v.Unmarshal(&params); err != nil {
		return Parameters{}, fmt.Errorf("decode parameters: %w", err)
	}
	return params, nil
}

// SaveParameters atomically replaces the parameters file.
func (s *Store) SaveParameters(params Parameters) error {
	if err := os.MkdirAll(s.dir, dirMode); err != nil {
		return fmt.Errorf("ensure config dir: %w", err)
	}
	data, err := toml.Marshal(params)
	if err != nil {
		return fmt.Errorf("encode parameters: %w", err)
	}

	path := filepath.Join(s.dir, paramsFileName)
	tmp, err := os.CreateTemp(s.dir, "."+paramsFileName+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
