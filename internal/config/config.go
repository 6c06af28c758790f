package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"     validate:"required"`
	Jobs       JobsConfig       `mapstructure:"jobs"       validate:"required"`
	Download   DownloadConfig   `mapstructure:"download"   validate:"required"`
	Speech     SpeechConfig     `mapstructure:"speech"     validate:"required"`
	QR         QRConfig         `mapstructure:"qr"         validate:"required"`
	Background BackgroundConfig `mapstructure:"background" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port           int      `mapstructure:"port"            validate:"required,gt=0,lt=65536"`
	LogLevel       string   `mapstructure:"log_level"       validate:"required,oneof=debug info warn error"`
	AllowedOrigins []string `mapstructure:"allowed_origins" validate:"required,min=1"`
}

// JobsConfig contains the bounded runner settings.
type JobsConfig struct {
	// Workers bounds how many jobs may execute concurrently.
	Workers int `mapstructure:"workers" validate:"required,gt=0"`

	// ScratchDir roots the per-job workspaces. Empty means the system
	// temp dir.
	ScratchDir string `mapstructure:"scratch_dir"`

	// ArtifactTTL is how long an unconsumed result survives before the
	// janitor reclaims it.
	ArtifactTTL time.Duration `mapstructure:"artifact_ttl" validate:"required,gt=0"`

	// SweepInterval is the janitor's check period.
	SweepInterval time.Duration `mapstructure:"sweep_interval" validate:"required,gt=0"`
}

// DownloadConfig contains limits and policy for the video download
// operation.
type DownloadConfig struct {
	Deadline     time.Duration `mapstructure:"deadline"      validate:"required,gt=0"`
	MaxOutputMB  int           `mapstructure:"max_output_mb" validate:"required,gt=0"`
	BlockedHosts []string      `mapstructure:"blocked_hosts"`
	Executable   string        `mapstructure:"executable"`
}

// SpeechConfig contains limits for the text-to-speech operation.
type SpeechConfig struct {
	Deadline    time.Duration `mapstructure:"deadline"      validate:"required,gt=0"`
	MaxOutputMB int           `mapstructure:"max_output_mb" validate:"required,gt=0"`
}

// QRConfig contains limits for the QR generation operation.
type QRConfig struct {
	Deadline    time.Duration `mapstructure:"deadline"      validate:"required,gt=0"`
	MaxOutputMB int           `mapstructure:"max_output_mb" validate:"required,gt=0"`
}

// BackgroundConfig contains limits for the background removal operation.
type BackgroundConfig struct {
	Deadline    time.Duration `mapstructure:"deadline"      validate:"required,gt=0"`
	MaxInputMB  int           `mapstructure:"max_input_mb"  validate:"required,gt=0"`
	MaxOutputMB int           `mapstructure:"max_output_mb" validate:"required,gt=0"`
	Executable  string        `mapstructure:"executable"`
}
