// Package http exposes the dashboard and control API over fiber.
package http

import (
	"os"
	"path/filepath"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"triage_server/config"
	"triage_server/core/port/in"
	"triage_server/core/port/out"
)

// allowedUploads lists the credential files the dashboard may replace.
var allowedUploads = map[string]struct{}{
	"credentials.json": {},
	"token_read.json":  {},
	"token_send.json":  {},
}

// DashboardHandler serves the worker control surface: credential uploads,
// config updates, knowledge base ingest and start/stop/status.
type DashboardHandler struct {
	worker  in.WorkerControl
	cfg     *config.Config
	indexer out.SnippetIndexer // nil when no knowledge base is configured
	log     zerolog.Logger
}

func NewDashboardHandler(worker in.WorkerControl, cfg *config.Config, indexer out.SnippetIndexer, log zerolog.Logger) *DashboardHandler {
	return &DashboardHandler{
		worker:  worker,
		cfg:     cfg,
		indexer: indexer,
		log:     log.With().Str("handler", "dashboard").Logger(),
	}
}

// Register registers dashboard routes.
func (h *DashboardHandler) Register(app fiber.Router) {
	app.Post("/files/:name", h.UploadFile)
	app.Put("/config", h.UpdateConfig)
	app.Post("/snippets", h.IndexSnippet)
	app.Post("/worker/start", h.StartWorker)
	app.Post("/worker/stop", h.StopWorker)
	app.Get("/worker/status", h.WorkerStatus)
}

// UploadFile stores one of the credential files into the credentials dir.
func (h *DashboardHandler) UploadFile(c *fiber.Ctx) error {
	name := c.Params("name")
	if _, ok := allowedUploads[name]; !ok {
		return ErrorResponse(c, fiber.StatusBadRequest, "unsupported file name")
	}

	body := c.Body()
	if len(body) == 0 {
		return ErrorResponse(c, fiber.StatusBadRequest, "empty file")
	}

	path := filepath.Join(h.cfg.CredentialsDir, name)
	if err := os.WriteFile(path, body, 0o600); err != nil {
		h.log.Error().Str("file", name).Err(err).Msg("failed to store uploaded file")
		return ErrorResponse(c, fiber.StatusInternalServerError, "failed to store file")
	}

	h.log.Info().Str("file", name).Int("bytes", len(body)).Msg("credential file uploaded")
	return SuccessResponse(c, fiber.Map{"file": name, "bytes": len(body)})
}

type configUpdateRequest struct {
	PollIntervalSec int    `json:"poll_interval_seconds"`
	OpenAIAPIKey    string `json:"openai_api_key"`
}

// UpdateConfig applies poll interval and API key changes and persists them.
func (h *DashboardHandler) UpdateConfig(c *fiber.Ctx) error {
	var req configUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return ErrorResponse(c, fiber.StatusBadRequest, "invalid request body")
	}
	if req.PollIntervalSec < 0 {
		return ErrorResponse(c, fiber.StatusBadRequest, "poll interval must be positive")
	}

	if err := h.cfg.UpdateRuntime(req.PollIntervalSec, req.OpenAIAPIKey); err != nil {
		h.log.Error().Err(err).Msg("failed to persist config update")
		return ErrorResponse(c, fiber.StatusInternalServerError, "failed to persist config")
	}

	h.log.Info().Int("poll_interval_seconds", h.cfg.PollIntervalSec).Msg("config updated")
	return SuccessResponse(c, fiber.Map{"poll_interval_seconds": h.cfg.PollIntervalSec})
}

type snippetRequest struct {
	Content string `json:"content"`
}

// IndexSnippet adds a snippet to the knowledge base the semantic fallback
// searches.
func (h *DashboardHandler) IndexSnippet(c *fiber.Ctx) error {
	if h.indexer == nil {
		return ErrorResponse(c, fiber.StatusServiceUnavailable, "knowledge base not configured")
	}

	var req snippetRequest
	if err := c.BodyParser(&req); err != nil {
		return ErrorResponse(c, fiber.StatusBadRequest, "invalid request body")
	}
	if req.Content == "" {
		return ErrorResponse(c, fiber.StatusBadRequest, "content is required")
	}

	if err := h.indexer.IndexSnippet(c.Context(), req.Content); err != nil {
		h.log.Error().Err(err).Msg("failed to index snippet")
		return ErrorResponse(c, fiber.StatusInternalServerError, "failed to index snippet")
	}

	h.log.Info().Int("content_len", len(req.Content)).Msg("snippet added to knowledge base")
	return SuccessResponse(c, fiber.Map{"content_len": len(req.Content)})
}

type startRequest struct {
	PollIntervalSec int `json:"poll_interval_seconds"`
}

// StartWorker launches polling. An already running worker reports its status
// without restarting.
func (h *DashboardHandler) StartWorker(c *fiber.Ctx) error {
	req := startRequest{PollIntervalSec: h.cfg.PollIntervalSec}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return ErrorResponse(c, fiber.StatusBadRequest, "invalid request body")
		}
	}

	if err := h.worker.Start(req.PollIntervalSec); err != nil {
		return AppErrorResponse(c, err)
	}
	return SuccessResponse(c, h.worker.Status())
}

// StopWorker stops polling and waits for the loop to wind down.
func (h *DashboardHandler) StopWorker(c *fiber.Ctx) error {
	h.worker.Stop()
	return SuccessResponse(c, h.worker.Status())
}

// WorkerStatus reports the worker snapshot.
func (h *DashboardHandler) WorkerStatus(c *fiber.Ctx) error {
	return SuccessResponse(c, h.worker.Status())
}
