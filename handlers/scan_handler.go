package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"ticket-scanner/internal/status"
	"ticket-scanner/models"
	"ticket-scanner/services"

	"github.com/labstack/echo/v5"
	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	pbmodels "github.com/pocketbase/pocketbase/models"
)

type ScanHandler struct {
	app         *pocketbase.PocketBase
	scanService *services.ScanService
	sessions    *services.SessionService
}

func NewScanHandler(app *pocketbase.PocketBase, scanService *services.ScanService, sessions *services.SessionService) *ScanHandler {
	return &ScanHandler{
		app:         app,
		scanService: scanService,
		sessions:    sessions,
	}
}

// OpenSession creates a scanning session for the authenticated operator.
// The device secret is returned exactly once.
func (h *ScanHandler) OpenSession(c echo.Context) error {
	authRecord, _ := c.Get(apis.ContextAuthRecordKey).(*pbmodels.Record)
	if authRecord == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	var req struct {
		EventID string `json:"event_id"`
	}
	if err := c.Bind(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if req.EventID == "" {
		return apis.NewBadRequestError("event_id is required", nil)
	}

	sessionID, deviceSecret, err := h.sessions.Open(req.EventID, authRecord.Id)
	if err != nil {
		return apis.NewApiError(http.StatusInternalServerError, "Failed to open session", err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"session_id":    sessionID,
		"device_secret": deviceSecret,
		"event_id":      req.EventID,
	})
}

// CloseSession removes a scanning session.
func (h *ScanHandler) CloseSession(c echo.Context) error {
	var req struct {
		SessionID    string `json:"session_id"`
		DeviceSecret string `json:"device_secret"`
	}
	if err := c.Bind(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	if err := h.checkDevice(req.SessionID, req.DeviceSecret); err != nil {
		return err
	}

	h.sessions.Close(req.SessionID)
	return c.JSON(http.StatusOK, map[string]any{"message": "Session closed"})
}

// HandleScan runs one scanned code through the validation workflow.
func (h *ScanHandler) HandleScan(c echo.Context) error {
	var req struct {
		SessionID    string `json:"session_id"`
		DeviceSecret string `json:"device_secret"`
		Payload      string `json:"payload"`
	}
	if err := c.Bind(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	if err := h.checkDevice(req.SessionID, req.DeviceSecret); err != nil {
		return err
	}

	result, err := h.scanService.HandleScan(c.Request().Context(), models.ScanEvent{
		SessionID: req.SessionID,
		Payload:   req.Payload,
		ScannedAt: time.Now(),
	})
	if err != nil {
		if errors.Is(err, status.ErrSessionNotFound) {
			return apis.NewNotFoundError("Session not found", nil)
		}
		return apis.NewApiError(http.StatusInternalServerError, "Scan failed", err)
	}

	if result.Dropped {
		return c.JSON(http.StatusAccepted, result)
	}

	h.auditScan(req.SessionID, result)
	return c.JSON(http.StatusOK, result)
}

// Dismiss marks the presented outcome as dismissed, re-arming the session.
func (h *ScanHandler) Dismiss(c echo.Context) error {
	var req struct {
		SessionID    string `json:"session_id"`
		DeviceSecret string `json:"device_secret"`
	}
	if err := c.Bind(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	if err := h.checkDevice(req.SessionID, req.DeviceSecret); err != nil {
		return err
	}

	if err := h.scanService.Dismiss(req.SessionID); err != nil {
		return apis.NewNotFoundError("Session not found", nil)
	}
	return c.JSON(http.StatusOK, map[string]any{"message": "Dismissed"})
}

func (h *ScanHandler) checkDevice(sessionID, deviceSecret string) error {
	switch err := h.sessions.CheckDevice(sessionID, deviceSecret); {
	case errors.Is(err, status.ErrSessionNotFound):
		return apis.NewNotFoundError("Session not found", nil)
	case errors.Is(err, status.ErrDeviceSecret):
		return apis.NewUnauthorizedError("Invalid device secret", nil)
	default:
		return err
	}
}

// auditScan writes a best-effort audit record. Auditing never blocks or
// fails the scan itself.
func (h *ScanHandler) auditScan(sessionID string, result *models.ScanResult) {
	collection, err := h.app.Dao().FindCollectionByNameOrId("scan_audit")
	if err != nil {
		slog.Error("scan_audit collection missing", "error", err)
		return
	}

	record := pbmodels.NewRecord(collection)
	record.Set("session_id", sessionID)
	record.Set("ticket_id", result.TicketID)
	if result.Outcome != nil {
		record.Set("kind", string(result.Outcome.Kind))
		record.Set("reason", string(result.Outcome.Reason))
	}

	if err := h.app.Dao().SaveRecord(record); err != nil {
		slog.Error("failed to save scan audit record", "session_id", sessionID, "error", err)
	}
}
