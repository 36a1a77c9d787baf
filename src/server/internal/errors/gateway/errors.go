package gateway

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/urmt/STEM-SPLITTER/src/server/api_error"
	"github.com/urmt/STEM-SPLITTER/src/server/internal/errors/api"
	"github.com/urmt/STEM-SPLITTER/src/server/internal/job/errors"
)

var httpStatusCodeMap = map[api.ErrorCode]int{
	api.DefaultErrorCode:               http.StatusInternalServerError,
	joberrors.MissingAudioFileCode:     http.StatusBadRequest,
	joberrors.UnsupportedFileTypeCode:  http.StatusBadRequest,
	joberrors.JobNotCompleteCode:       http.StatusBadRequest,
	joberrors.JobNotFoundCode:          http.StatusNotFound,
	joberrors.StemNotFoundCode:         http.StatusNotFound,
	joberrors.QueueFullCode:            http.StatusServiceUnavailable,
}

func ErrorResponse(c echo.Context, err *api.Error) error {
	statusCode, ok := httpStatusCodeMap[err.ErrorCode]
	if !ok {
		msg := fmt.Sprintf("Error code %s has no HTTP status code mapping", err.ErrorCode)
		panic(msg)
	}

	return c.JSON(statusCode, api_error.JSONAPIError{
		Code:         string(err.ErrorCode),
		Msg:          err.UserMessage,
		ErrorDetails: err.Error(),
	})
}
