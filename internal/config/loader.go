package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"
)

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Load reads and merges one or more YAML configuration files, in order.
// Later files refine earlier ones: nested maps merge key-by-key, lists
// extend, scalars overwrite. Environment references of the form ${VAR} are
// interpolated before parsing. When a .checksums manifest exists next to the
// first file, every loaded file is verified against it.
func Load(paths ...string) (*Config, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no configuration files given")
	}

	merged := map[string]any{}
	var absPaths []string
	for _, path := range paths {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("resolve config path %q: %w", path, err)
		}
		absPaths = append(absPaths, absPath)

		doc, err := loadFile(absPath)
		if err != nil {
			return nil, err
		}
		mergeDoc(merged, doc)
	}

	if err := verifyManifest(filepath.Dir(absPaths[0]), absPaths); err != nil {
		return nil, err
	}

	// Round-trip the merged tree into the typed config.
	raw, err := yaml.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("remarshal merged config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse merged config: %w", err)
	}

	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func loadFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	interpolated := interpolateEnv(string(data))
	doc := map[string]any{}
	if err := yaml.Unmarshal([]byte(interpolated), &doc); err != nil {
		return nil, fmt.Errorf("parse YAML %s: %w", path, err)
	}
	return doc, nil
}

// mergeDoc merges src into dst: maps merge recursively, lists extend,
// scalars overwrite.
func mergeDoc(dst, src map[string]any) {
	for key, srcVal := range src {
		dstVal, exists := dst[key]
		if !exists {
			dst[key] = srcVal
			continue
		}
		switch sv := srcVal.(type) {
		case map[string]any:
			if dv, ok := dstVal.(map[string]any); ok {
				mergeDoc(dv, sv)
				continue
			}
			dst[key] = srcVal
		case []any:
			if dv, ok := dstVal.([]any); ok {
				dst[key] = append(dv, sv...)
				continue
			}
			dst[key] = srcVal
		default:
			dst[key] = srcVal
		}
	}
}

// interpolateEnv replaces ${VAR} references with environment values.
// Unset variables become empty strings.
func interpolateEnv(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(name)
	})
}

func validate(cfg *Config) error {
	if cfg.Robot == "" {
		return fmt.Errorf("robot must be set")
	}
	switch cfg.Bus.Mode {
	case "memory":
	case "redis":
		if cfg.Bus.Redis.Addr == "" {
			return fmt.Errorf("bus.redis.addr must be set when bus.mode is redis")
		}
	default:
		return fmt.Errorf("bus.mode must be memory or redis, got %q", cfg.Bus.Mode)
	}
	if cfg.API.Enabled && cfg.API.Token == "" {
		return fmt.Errorf("api.token must be set when the API is enabled")
	}
	return nil
}
