package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/johnquangdev/notetaker/docs"
	"github.com/johnquangdev/notetaker/pkg/config"
)

// Router holds all handlers
type Router struct {
	cfg              *config.Config
	noteHandler      *Note
	recordingHandler *Recording
	webhookHandler   *WebhookHandler
}

// NewRouter creates a new router with all handlers
func NewRouter(cfg *config.Config, noteHandler *Note, recordingHandler *Recording, webhookHandler *WebhookHandler) *Router {
	return &Router{
		cfg:              cfg,
		noteHandler:      noteHandler,
		recordingHandler: recordingHandler,
		webhookHandler:   webhookHandler,
	}
}

// Setup configures all application routes
func (rt *Router) Setup(e *echo.Echo) {
	e.GET("/health", rt.healthCheck)
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	v1 := e.Group("/v1")

	rt.setupNoteRoutes(v1)
	rt.setupRecordingRoutes(v1)
	rt.setupWebhookRoutes(v1)
}

// setupNoteRoutes configures note and image upload routes
func (rt *Router) setupNoteRoutes(g *echo.Group) {
	notes := g.Group("/notes")
	uploads := g.Group("/uploads")

	if rt.noteHandler == nil {
		notes.Any("*", rt.notImplemented)
		uploads.Any("*", rt.notImplemented)
		return
	}

	notes.POST("", rt.noteHandler.CreateNote)
	notes.GET("", rt.noteHandler.ListNotes)
	notes.POST("/import", rt.noteHandler.ImportMarkdown)
	notes.GET("/:id", rt.noteHandler.GetNote)
	notes.PUT("/:id", rt.noteHandler.UpdateNote)
	notes.DELETE("/:id", rt.noteHandler.DeleteNote)
	notes.GET("/:id/markdown", rt.noteHandler.ExportMarkdown)
	notes.GET("/:id/html", rt.noteHandler.RenderHTML)
	notes.POST("/:id/images", rt.noteHandler.AttachImage)

	uploads.POST("/images", rt.noteHandler.PresignImage)
}

// setupRecordingRoutes configures recording, transcript and people routes
func (rt *Router) setupRecordingRoutes(g *echo.Group) {
	recordings := g.Group("/recordings")
	people := g.Group("/people")

	if rt.recordingHandler == nil {
		recordings.Any("*", rt.notImplemented)
		people.Any("*", rt.notImplemented)
		return
	}

	recordings.POST("", rt.recordingHandler.CreateRecording)
	recordings.GET("", rt.recordingHandler.ListRecordings)
	recordings.POST("/presign", rt.recordingHandler.PresignUpload)
	recordings.GET("/:id", rt.recordingHandler.GetRecording)
	recordings.DELETE("/:id", rt.recordingHandler.DeleteRecording)
	recordings.POST("/:id/transcribe", rt.recordingHandler.Transcribe)
	recordings.GET("/:id/transcript", rt.recordingHandler.GetTranscript)
	recordings.GET("/:id/transcript/text", rt.recordingHandler.GetTranscriptText)
	recordings.PUT("/:id/speakers/:number", rt.recordingHandler.RenameSpeaker)
	recordings.PUT("/:id/segments/:segmentId/speaker", rt.recordingHandler.AssignSegment)

	people.POST("", rt.recordingHandler.CreatePerson)
	people.GET("", rt.recordingHandler.ListPeople)
}

// setupWebhookRoutes configures callbacks from external services
func (rt *Router) setupWebhookRoutes(g *echo.Group) {
	if rt.webhookHandler == nil {
		return
	}
	g.POST("/webhooks/assemblyai", rt.webhookHandler.HandleTranscriptionWebhook)
}

// notImplemented returns 501 Not Implemented response
func (rt *Router) notImplemented(c echo.Context) error {
	return c.JSON(http.StatusNotImplemented, map[string]interface{}{
		"error":   "This endpoint is not yet implemented",
		"path":    c.Request().URL.Path,
		"method":  c.Request().Method,
		"message": "Please initialize the required handler in main.go",
	})
}

// healthCheck returns health status
func (rt *Router) healthCheck(c echo.Context) error {
	env := "production"
	if rt.cfg != nil {
		env = rt.cfg.Server.Environment
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":      "ok",
		"time":        time.Now().UTC().Format(time.RFC3339),
		"environment": env,
	})
}
