package handler

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/johnquangdev/notetaker/errors"
	"github.com/johnquangdev/notetaker/internal/adapter/dto/recording"
	recordingUsecase "github.com/johnquangdev/notetaker/internal/usecase/recording"
	"github.com/johnquangdev/notetaker/pkg/ai"
)

// WebhookHandler handles transcription service callbacks
type WebhookHandler struct {
	recordingService recordingUsecase.Service
	secret           string
	logger           *zap.Logger
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(recordingService recordingUsecase.Service, secret string, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		recordingService: recordingService,
		secret:           secret,
		logger:           logger,
	}
}

// HandleTranscriptionWebhook receives job updates from AssemblyAI
// @Summary      Transcription webhook
// @Description  Called by the transcription service when a job changes state. The job is fetched again before the recording is updated.
// @Tags         Webhooks
// @Accept       json
// @Produce      json
// @Param        X-Webhook-Token  header    string                          false  "Shared secret"
// @Param        request          body      recording.TranscriptionWebhook  true   "Job update"
// @Success      200              {object}  map[string]interface{}
// @Failure      403              {object}  map[string]interface{}
// @Router       /webhooks/assemblyai [post]
func (h *WebhookHandler) HandleTranscriptionWebhook(c echo.Context) error {
	if !ai.VerifyWebhookToken(h.secret, c.Request().Header.Get(ai.WebhookHeader)) {
		if h.logger != nil {
			h.logger.Warn("⚠️ Rejected transcription webhook", zap.String("remote_ip", c.RealIP()))
		}
		return HandleError(h.logger, c, errors.ErrPermissionDenied("webhook token mismatch"))
	}

	var payload recording.TranscriptionWebhook
	if err := bind(c, &payload); err != nil {
		return HandleError(h.logger, c, err)
	}

	if h.logger != nil {
		h.logger.Info("📥 Transcription webhook received",
			zap.String("job_id", payload.TranscriptID),
			zap.String("status", payload.Status),
		)
	}

	if err := h.recordingService.HandleJobUpdate(c.Request().Context(), payload.TranscriptID); err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, map[string]interface{}{"status": "ok"})
}
