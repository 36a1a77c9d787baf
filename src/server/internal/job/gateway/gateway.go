package jobgateway

import (
	"net/http"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/labstack/echo/v4"
	"github.com/urmt/STEM-SPLITTER/src/server/internal/errors/api"
	"github.com/urmt/STEM-SPLITTER/src/server/internal/errors/gateway"
	"github.com/urmt/STEM-SPLITTER/src/server/internal/job/errors"
	"github.com/urmt/STEM-SPLITTER/src/server/internal/job/usecase"
	"github.com/urmt/STEM-SPLITTER/src/shared/job/entity"
)

type SubmitJSON struct {
	JobID   string           `json:"job_id"`
	Status  jobentity.Status `json:"status"`
	Message string           `json:"message"`
}

type Gateway struct {
	usecase jobusecase.Usecase
}

func NewGateway(usecase jobusecase.Usecase) Gateway {
	return Gateway{
		usecase: usecase,
	}
}

func (g Gateway) SubmitJob(c echo.Context) error {
	fileHeader, err := c.FormFile("audio_file")
	if err != nil {
		err = errors.Wrap(err, "No audio file was attached to the upload")
		apiErr := api.CommitError(err,
			joberrors.MissingAudioFileCode,
			"No audio file provided")
		return gateway.ErrorResponse(c, apiErr)
	}

	src, err := fileHeader.Open()
	if err != nil {
		err = errors.Wrap(err, "Failed to open the uploaded file")
		apiErr := api.CommitError(err,
			api.DefaultErrorCode,
			"Unknown error: Failed to read the uploaded file")
		return gateway.ErrorResponse(c, apiErr)
	}
	defer src.Close()

	job, apiErr := g.usecase.Submit(jobusecase.SubmitRequest{
		Filename:        fileHeader.Filename,
		Content:         src,
		ModelName:       c.FormValue("model"),
		OutputDirectory: strings.TrimSpace(c.FormValue("output_directory")),
	})
	if apiErr != nil {
		apiErr = api.WrapError(apiErr, "Failed to submit the job")
		return gateway.ErrorResponse(c, apiErr)
	}

	return c.JSON(http.StatusOK, SubmitJSON{
		JobID:   job.ID,
		Status:  job.Status,
		Message: "File uploaded successfully, processing started",
	})
}

func (g Gateway) GetStatus(c echo.Context, jobID string) error {
	job, apiErr := g.usecase.Status(jobID)
	if apiErr != nil {
		apiErr = api.WrapError(apiErr, "Failed to get the job status")
		return gateway.ErrorResponse(c, apiErr)
	}

	return c.JSON(http.StatusOK, job)
}

func (g Gateway) DownloadStem(c echo.Context, jobID string, stemName string) error {
	download, apiErr := g.usecase.Download(jobID, stemName)
	if apiErr != nil {
		apiErr = api.WrapError(apiErr, "Failed to resolve the stem download")
		return gateway.ErrorResponse(c, apiErr)
	}

	if _, err := os.Stat(download.Path); err != nil {
		err = errors.Wrap(err, "The recorded stem file is missing from disk")
		apiErr := api.CommitError(err,
			joberrors.StemNotFoundCode,
			"File not found")
		return gateway.ErrorResponse(c, apiErr)
	}

	return c.Attachment(download.Path, download.SuggestedName)
}

func (g Gateway) ListModels(c echo.Context) error {
	return c.JSON(http.StatusOK, g.usecase.ListModels())
}
