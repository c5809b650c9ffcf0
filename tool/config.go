package tool

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/shareflow/shareflow-go/types"
)

// ConfigPath can be changed via the -useConfigPath flag; defaults to
// ./config.yaml.
var ConfigPath = "config.yaml"

func defaultConfig() types.AppConfig {
	return types.AppConfig{
		Port:                  8080,
		PublicBaseURL:         "http://localhost:8080",
		StorageDir:            "share-uploads",
		SessionTTLHours:       24, // shared files expire after 24 hours
		SweepIntervalSeconds:  60,
		RetentionGraceMinutes: 60,
		MaxUploadBytes:        2 << 30,
		CreateRatePerMinute:   10,
	}
}

// LoadConfig reads the YAML config, creating it with defaults when it
// does not exist yet. Zero-valued fields fall back to defaults so an
// older config file keeps working after new keys are added.
func LoadConfig(path string) (types.AppConfig, error) {
	if path == "" {
		path = ConfigPath
	}
	ConfigPath = path

	cfg := defaultConfig()

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			if writeErr := writeDefaultConfig(path, cfg); writeErr != nil {
				return cfg, fmt.Errorf("config file not found, and failed to generate default config: %v", writeErr)
			}
			DefaultLogger.Infof("Created new config file at %s", path)
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config file: %v", err)
	}
	if info.IsDir() {
		return cfg, fmt.Errorf("config file path is a directory: %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %v", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file: %v", err)
	}

	applyConfigDefaults(&cfg)
	return cfg, nil
}

func applyConfigDefaults(cfg *types.AppConfig) {
	def := defaultConfig()
	if cfg.Port <= 0 {
		cfg.Port = def.Port
	}
	if cfg.PublicBaseURL == "" {
		cfg.PublicBaseURL = def.PublicBaseURL
	}
	if cfg.StorageDir == "" {
		cfg.StorageDir = def.StorageDir
	}
	if cfg.SessionTTLHours <= 0 {
		cfg.SessionTTLHours = def.SessionTTLHours
	}
	if cfg.SweepIntervalSeconds <= 0 {
		cfg.SweepIntervalSeconds = def.SweepIntervalSeconds
	}
	if cfg.RetentionGraceMinutes <= 0 {
		cfg.RetentionGraceMinutes = def.RetentionGraceMinutes
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = def.MaxUploadBytes
	}
	if cfg.CreateRatePerMinute <= 0 {
		cfg.CreateRatePerMinute = def.CreateRatePerMinute
	}
}

func writeDefaultConfig(path string, cfg types.AppConfig) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
