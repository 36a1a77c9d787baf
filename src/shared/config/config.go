package config

import (
	"os"

	"github.com/cockroachdb/errors"
	"github.com/pelletier/go-toml/v2"
)

const (
	defaultPort          = ":8080"
	defaultOutputRoot    = "static/outputs"
	defaultDemucsBin     = "demucs"
	defaultFFmpegBin     = "ffmpeg"
	defaultWorkerCount   = 2
	defaultQueueSize     = 64
	defaultMaxUploadSize = "500M"
)

// Config carries everything the application needs to run. Values come
// from defaults, the environment switch in main, and optionally a TOML
// file layered on top.
type Config struct {
	Port        string `toml:"port"`
	OutputRoot  string `toml:"output_root"`
	ScratchRoot string `toml:"scratch_root"`

	DemucsBin string `toml:"demucs_bin"`
	FFmpegBin string `toml:"ffmpeg_bin"`
	// Device overrides the per-process device probe ("cuda"/"cpu").
	Device string `toml:"device"`

	WorkerCount   int    `toml:"worker_count"`
	QueueSize     int    `toml:"queue_size"`
	MaxUploadSize string `toml:"max_upload_size"`

	CORSAllowedOrigins []string `toml:"cors_allowed_origins"`
	Log                bool     `toml:"log"`
}

func Default() Config {
	return Config{
		Port:               defaultPort,
		OutputRoot:         defaultOutputRoot,
		ScratchRoot:        "",
		DemucsBin:          defaultDemucsBin,
		FFmpegBin:          defaultFFmpegBin,
		WorkerCount:        defaultWorkerCount,
		QueueSize:          defaultQueueSize,
		MaxUploadSize:      defaultMaxUploadSize,
		CORSAllowedOrigins: []string{"*"},
		Log:                true,
	}
}

// FromTOMLFile overlays the TOML file at path onto base. Keys absent
// from the file keep their base values.
func FromTOMLFile(path string, base Config) (Config, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "Failed to read the config file")
	}

	cfg := base
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		return Config{}, errors.Wrap(err, "Failed to parse the config file")
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, errors.Wrap(err, "The config file produced an unusable config")
	}

	return cfg, nil
}

func (c Config) Validate() error {
	if c.Port == "" {
		return errors.New("port must be set")
	}

	if c.OutputRoot == "" {
		return errors.New("output_root must be set")
	}

	if c.DemucsBin == "" {
		return errors.New("demucs_bin must be set")
	}

	if c.FFmpegBin == "" {
		return errors.New("ffmpeg_bin must be set")
	}

	if c.Device != "" && c.Device != "cuda" && c.Device != "cpu" {
		return errors.Newf("device must be cuda or cpu, got %q", c.Device)
	}

	if c.WorkerCount <= 0 {
		return errors.New("worker_count must be positive")
	}

	if c.QueueSize <= 0 {
		return errors.New("queue_size must be positive")
	}

	if c.MaxUploadSize == "" {
		return errors.New("max_upload_size must be set")
	}

	return nil
}
