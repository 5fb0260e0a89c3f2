package handlers

import (
	"errors"
	"net/http"

	"ticket-scanner/internal/status"
	"ticket-scanner/models"
	"ticket-scanner/monitoring"
	"ticket-scanner/services"

	"github.com/labstack/echo/v5"
	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	pbmodels "github.com/pocketbase/pocketbase/models"
)

// OfflineHandler serves the offline snapshot workflow: download before the
// doors open, scan against the snapshot, sync when connectivity returns.
type OfflineHandler struct {
	app      *pocketbase.PocketBase
	offline  *services.OfflineService
	sessions *services.SessionService
}

func NewOfflineHandler(app *pocketbase.PocketBase, offline *services.OfflineService, sessions *services.SessionService) *OfflineHandler {
	return &OfflineHandler{
		app:      app,
		offline:  offline,
		sessions: sessions,
	}
}

func (h *OfflineHandler) DownloadEventData(c echo.Context) error {
	authRecord, _ := c.Get(apis.ContextAuthRecordKey).(*pbmodels.Record)
	if authRecord == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	eventID := c.PathParam("eventId")

	count, err := h.offline.DownloadEventData(c.Request().Context(), eventID)
	if err != nil {
		return apis.NewApiError(http.StatusBadGateway, "Download failed", err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"event_id": eventID,
		"tickets":  count,
	})
}

// HandleOfflineScan validates a scanned code against the local snapshot.
// Same debounce guard and same alert classification as the online path.
func (h *OfflineHandler) HandleOfflineScan(c echo.Context) error {
	var req struct {
		SessionID    string `json:"session_id"`
		DeviceSecret string `json:"device_secret"`
		Payload      string `json:"payload"`
	}
	if err := c.Bind(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	switch err := h.sessions.CheckDevice(req.SessionID, req.DeviceSecret); {
	case errors.Is(err, status.ErrSessionNotFound):
		return apis.NewNotFoundError("Session not found", nil)
	case errors.Is(err, status.ErrDeviceSecret):
		return apis.NewUnauthorizedError("Invalid device secret", nil)
	}

	eventID, operatorID, err := h.sessions.Info(req.SessionID)
	if err != nil {
		return apis.NewNotFoundError("Session not found", nil)
	}

	if err := h.sessions.Accept(req.SessionID, req.Payload); err != nil {
		switch {
		case errors.Is(err, status.ErrScanInFlight):
			monitoring.RecordDroppedScan(eventID, "busy")
			return c.JSON(http.StatusAccepted, &models.ScanResult{Dropped: true})
		case errors.Is(err, status.ErrDuplicateScan):
			monitoring.RecordDroppedScan(eventID, "duplicate")
			return c.JSON(http.StatusAccepted, &models.ScanResult{Dropped: true})
		default:
			return apis.NewApiError(http.StatusInternalServerError, "Scan failed", err)
		}
	}

	ticketID, err := services.InterpretPayload(req.Payload)
	if err != nil {
		h.sessions.Release(req.SessionID)
		monitoring.RecordScan(eventID, "invalid_payload")
		alert := services.InvalidPayloadAlert()
		return c.JSON(http.StatusOK, &models.ScanResult{Alert: &alert})
	}

	res, err := h.offline.ValidateOffline(c.Request().Context(), eventID, ticketID, operatorID)
	if err != nil {
		if errors.Is(err, status.ErrNotCached) {
			return apis.NewBadRequestError("Event data not downloaded for offline use", nil)
		}
		return apis.NewApiError(http.StatusInternalServerError, "Offline validation failed", err)
	}

	outcome := services.Classify(eventID, res, nil)
	alert := services.AlertFor(outcome)

	return c.JSON(http.StatusOK, &models.ScanResult{
		TicketID: ticketID,
		Outcome:  &outcome,
		Alert:    &alert,
	})
}

// SyncPending replays queued offline validations against the backend.
func (h *OfflineHandler) SyncPending(c echo.Context) error {
	authRecord, _ := c.Get(apis.ContextAuthRecordKey).(*pbmodels.Record)
	if authRecord == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	eventID := c.PathParam("eventId")

	synced, err := h.offline.SyncPending(c.Request().Context(), eventID)
	if err != nil {
		return c.JSON(http.StatusOK, map[string]any{
			"synced":  synced,
			"pending": h.offline.PendingCount(c.Request().Context(), eventID),
			"error":   "sync interrupted, remaining validations requeued",
		})
	}

	return c.JSON(http.StatusOK, map[string]any{
		"synced":  synced,
		"pending": h.offline.PendingCount(c.Request().Context(), eventID),
	})
}

func (h *OfflineHandler) GetPendingCount(c echo.Context) error {
	authRecord, _ := c.Get(apis.ContextAuthRecordKey).(*pbmodels.Record)
	if authRecord == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	eventID := c.PathParam("eventId")

	return c.JSON(http.StatusOK, map[string]any{
		"event_id": eventID,
		"pending":  h.offline.PendingCount(c.Request().Context(), eventID),
	})
}
