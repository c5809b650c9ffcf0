package types

import "time"

// AppConfig is the YAML config file contents.
type AppConfig struct {
	Port          int    `yaml:"port"`
	PublicBaseURL string `yaml:"publicBaseUrl"` // e.g. https://share.example.com, used for download links
	StorageDir    string `yaml:"storageDir"`
	// SessionTTLHours is how long a session stays downloadable. Default 24.
	SessionTTLHours int `yaml:"sessionTtlHours"`
	// SweepIntervalSeconds is how often the expiry sweeper runs. Default 60.
	SweepIntervalSeconds int `yaml:"sweepIntervalSeconds"`
	// RetentionGraceMinutes is how long a terminal session record is kept
	// before it is garbage-collected. Default 60.
	RetentionGraceMinutes int `yaml:"retentionGraceMinutes"`
	// MaxUploadBytes caps one create-share-session request body. Default 2 GiB.
	MaxUploadBytes int64 `yaml:"maxUploadBytes"`
	// CreateRatePerMinute limits session creation per client IP. Default 10.
	CreateRatePerMinute int `yaml:"createRatePerMinute"`
}

// SessionTTL returns the configured TTL as a duration.
func (c AppConfig) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLHours) * time.Hour
}

// SweepInterval returns the configured sweep interval as a duration.
func (c AppConfig) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalSeconds) * time.Second
}

// RetentionGrace returns the configured retention grace as a duration.
func (c AppConfig) RetentionGrace() time.Duration {
	return time.Duration(c.RetentionGraceMinutes) * time.Minute
}

// Config holds runtime overrides from CLI flags.
type Config struct {
	Log              string
	UseConfigPath    string
	UsePort          int
	UsePublicBaseURL string
	UseStorageDir    string
}
