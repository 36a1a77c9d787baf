package main

import (
	"os"
	"strings"

	"github.com/urmt/STEM-SPLITTER/src/server/application"
	"github.com/urmt/STEM-SPLITTER/src/shared/config"
	"github.com/urmt/STEM-SPLITTER/src/shared/lib/env"
	"github.com/urmt/STEM-SPLITTER/src/shared/values/envvar"
)

func main() {
	cfg := config.Default()

	switch env.Get() {
	case env.Production:
		commaSeparatedOrigins := envvar.MustGet(envvar.ALLOWED_FE_ORIGINS)
		cfg.CORSAllowedOrigins = strings.Split(commaSeparatedOrigins, ",")

		cfg.OutputRoot = envvar.GetOrDefault(envvar.OUTPUT_ROOT, cfg.OutputRoot)
		cfg.ScratchRoot = envvar.GetOrDefault(envvar.SCRATCH_ROOT, cfg.ScratchRoot)
		cfg.DemucsBin = envvar.GetOrDefault(envvar.DEMUCS_BIN_PATH, cfg.DemucsBin)
		cfg.FFmpegBin = envvar.GetOrDefault(envvar.FFMPEG_BIN_PATH, cfg.FFmpegBin)

	case env.Development:
		// defaults are already tuned for local development

	default:
		panic("Unexpected environment")
	}

	if configPath := os.Getenv(envvar.CONFIG_PATH); configPath != "" {
		fileCfg, err := config.FromTOMLFile(configPath, cfg)
		if err != nil {
			panic(err)
		}

		cfg = fileCfg
	}

	app := application.NewApp(cfg)
	if err := app.Start(); err != nil {
		panic(err)
	}
}
