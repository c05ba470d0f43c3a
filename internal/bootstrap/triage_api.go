package bootstrap

import (
	"strings"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"triage_server/adapter/in/http"
	"triage_server/config"
	"triage_server/infra/middleware"
)

// NewAPI builds the dashboard/control fiber app over an existing dependency
// graph so API and worker modes share one worker handle.
func NewAPI(cfg *config.Config, deps *Dependencies) *fiber.App {
	log := deps.Log

	app := fiber.New(fiber.Config{
		ErrorHandler:          middleware.ErrorHandler(log),
		DisableStartupMessage: cfg.IsProduction(),

		ReadBufferSize:  16384,
		WriteBufferSize: 16384,

		JSONEncoder: json.Marshal,
		JSONDecoder: json.Unmarshal,

		// Credential uploads are small JSON files.
		BodyLimit: 1 * 1024 * 1024,

		StreamRequestBody: true,
	})

	// Order matters: recovery first, then request identity, then logging.
	app.Use(middleware.Recover(log))
	app.Use(middleware.RequestID())
	app.Use(middleware.RequestLogger(log))

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	allowOrigins := strings.Join(cfg.AllowedOrigins, ",")
	if allowOrigins == "" || allowOrigins == "*" {
		if cfg.IsProduction() {
			allowOrigins = ""
		} else {
			allowOrigins = "http://localhost:3000,http://localhost:5173"
		}
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:  allowOrigins,
		AllowMethods:  "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:  "Origin,Content-Type,Accept,X-Request-ID",
		ExposeHeaders: "X-Request-ID",
		MaxAge:        86400,
	}))

	healthHandler := http.NewHealthHandler(deps.Worker, deps.DB, deps.Redis)
	healthHandler.Register(app)

	api := app.Group("/api")

	dashboardHandler := http.NewDashboardHandler(deps.Worker, cfg, deps.Indexer, log)
	dashboardHandler.Register(api)

	sseHandler := http.NewSSEHandler(deps.EventHub, log)
	sseHandler.Register(api)

	// Static dashboard page.
	app.Static("/", cfg.WebDir)

	log.Info().Msg("api server initialized")
	return app
}
