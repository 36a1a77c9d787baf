package application

import (
	"net/http"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/urmt/STEM-SPLITTER/src/server/internal/job/gateway"
	"github.com/urmt/STEM-SPLITTER/src/server/internal/job/usecase"
	"github.com/urmt/STEM-SPLITTER/src/server/internal/worker"
	"github.com/urmt/STEM-SPLITTER/src/shared/audioio"
	"github.com/urmt/STEM-SPLITTER/src/shared/config"
	"github.com/urmt/STEM-SPLITTER/src/shared/job/store"
	"github.com/urmt/STEM-SPLITTER/src/shared/lib/executor"
	"github.com/urmt/STEM-SPLITTER/src/shared/model/demucs"
	"github.com/urmt/STEM-SPLITTER/src/shared/model/registry"
)

type HTTPMethod string

const (
	GET    HTTPMethod = "GET"
	POST   HTTPMethod = "POST"
	PUT    HTTPMethod = "PUT"
	DELETE HTTPMethod = "DELETE"
)

func ensureOk(err error) {
	if err != nil {
		panic(err)
	}
}

type App struct {
	echo *echo.Echo
	pool *worker.Pool
	port string
}

func NewApp(cfg config.Config) App {
	ensureOk(cfg.Validate())
	ensureOk(os.MkdirAll(cfg.OutputRoot, os.ModePerm))
	if cfg.ScratchRoot != "" {
		ensureOk(os.MkdirAll(cfg.ScratchRoot, os.ModePerm))
	}

	e := echo.New()

	if cfg.Log {
		e.Use(middleware.Logger())
	}

	e.Use(middleware.BodyLimit(cfg.MaxUploadSize))

	corsMiddleware := makeCorsMiddleware(cfg)

	handleRoute := func(method HTTPMethod, path string, handlerFunc echo.HandlerFunc) {
		params := func() (string, echo.HandlerFunc, echo.MiddlewareFunc) {
			return path, handlerFunc, corsMiddleware
		}

		e.OPTIONS(params())

		switch method {
		case GET:
			e.GET(params())
		case POST:
			e.POST(params())
		case PUT:
			e.PUT(params())
		case DELETE:
			e.DELETE(params())
		default:
			panic("unhandled http method!")
		}
	}

	binExecutor := executor.BinaryFileExecutor{}
	engine := audioio.NewWAVEngine(cfg.FFmpegBin, binExecutor)
	store := jobstore.NewMemoryStore()

	loader := demucs.NewLoader(cfg.DemucsBin, cfg.Device, cfg.ScratchRoot, engine, binExecutor)
	registry := modelregistry.NewRegistry(loader)

	separationWorker := worker.NewSeparationWorker(store, registry, engine)
	pool := worker.NewPool(separationWorker, cfg.WorkerCount, cfg.QueueSize)

	jobUsecase := jobusecase.NewUsecase(store, pool, cfg.OutputRoot, cfg.ScratchRoot)
	jobGateway := jobgateway.NewGateway(jobUsecase)

	// health check
	handleRoute(GET, "/health-check", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	// job routes
	handleRoute(POST, "/api/upload", jobGateway.SubmitJob)
	handleRoute(GET, "/api/status/:job_id", func(c echo.Context) error {
		jobID := c.Param("job_id")
		return jobGateway.GetStatus(c, jobID)
	})
	handleRoute(GET, "/api/download/:job_id/:stem_name", func(c echo.Context) error {
		jobID := c.Param("job_id")
		stemName := c.Param("stem_name")
		return jobGateway.DownloadStem(c, jobID, stemName)
	})
	handleRoute(GET, "/api/models", jobGateway.ListModels)

	// outputs under the default root are directly servable; custom
	// output directories are only reachable through the download route
	e.Static("/static/outputs", cfg.OutputRoot)

	return App{
		echo: e,
		pool: pool,
		port: cfg.Port,
	}
}

func (a *App) Start() error {
	a.pool.Start()

	err := a.echo.Start(a.port)
	if err != nil && err != http.ErrServerClosed {
		return errors.Wrap(err, "Couldn't start echo server")
	}

	return nil
}

func (a *App) Stop() error {
	err := a.echo.Close()
	a.pool.Stop()

	if err != nil {
		return errors.Wrap(err, "Failed to stop echo server")
	}

	return nil
}

func makeCorsMiddleware(cfg config.Config) echo.MiddlewareFunc {
	return middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.CORSAllowedOrigins,
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAuthorization},
	})
}
