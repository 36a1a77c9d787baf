package envvar

import (
	"fmt"
	"os"
)

const (
	CONFIG_PATH        = "STEM_SPLITTER_CONFIG"
	OUTPUT_ROOT        = "STEM_SPLITTER_OUTPUT_ROOT"
	SCRATCH_ROOT       = "STEM_SPLITTER_SCRATCH_ROOT"
	DEMUCS_BIN_PATH    = "DEMUCS_BIN_PATH"
	FFMPEG_BIN_PATH    = "FFMPEG_BIN_PATH"
	ALLOWED_FE_ORIGINS = "ALLOWED_FE_ORIGINS"
)

func MustGet(key string) string {
	val, isSet := os.LookupEnv(key)
	if !isSet {
		panic(fmt.Sprintf("No env variable found for key %s", key))
	}

	if val == "" {
		panic(fmt.Sprintf("Env variable is empty for key %s", key))
	}

	return val
}

func GetOrDefault(key string, defaultVal string) string {
	val, isSet := os.LookupEnv(key)
	if !isSet || val == "" {
		return defaultVal
	}

	return val
}
