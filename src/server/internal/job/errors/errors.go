package joberrors

import (
	"github.com/urmt/STEM-SPLITTER/src/server/internal/errors/api"
)

const (
	MissingAudioFileCode    = api.ErrorCode("missing_audio_file")
	UnsupportedFileTypeCode = api.ErrorCode("unsupported_file_type")
	JobNotFoundCode         = api.ErrorCode("job_not_found")
	StemNotFoundCode        = api.ErrorCode("stem_not_found")
	JobNotCompleteCode      = api.ErrorCode("job_not_complete")
	QueueFullCode           = api.ErrorCode("queue_full")
)
