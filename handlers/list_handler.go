package handlers

import (
	"net/http"

	"ticket-scanner/internal/services/ticketing"

	"github.com/labstack/echo/v5"
	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	pbmodels "github.com/pocketbase/pocketbase/models"
)

// ListHandler serves guest lists: named lists of participants checked in by
// hand instead of by ticket scan.
type ListHandler struct {
	app     *pocketbase.PocketBase
	backend *ticketing.Client
}

func NewListHandler(app *pocketbase.PocketBase, backend *ticketing.Client) *ListHandler {
	return &ListHandler{
		app:     app,
		backend: backend,
	}
}

func (h *ListHandler) GetEventLists(c echo.Context) error {
	authRecord, _ := c.Get(apis.ContextAuthRecordKey).(*pbmodels.Record)
	if authRecord == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	eventID := c.PathParam("eventId")

	lists, err := h.backend.GetEventLists(c.Request().Context(), eventID)
	if err != nil {
		return apis.NewApiError(http.StatusBadGateway, "Failed to fetch lists", err)
	}

	return c.JSON(http.StatusOK, map[string]any{"lists": lists})
}

// LookupList resolves a guest list from its shared validation URL.
func (h *ListHandler) LookupList(c echo.Context) error {
	authRecord, _ := c.Get(apis.ContextAuthRecordKey).(*pbmodels.Record)
	if authRecord == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	validationURL := c.QueryParam("url")
	if validationURL == "" {
		return apis.NewBadRequestError("url is required", nil)
	}

	list, err := h.backend.GetListByValidationURL(c.Request().Context(), validationURL)
	if err != nil {
		return apis.NewNotFoundError("List not found", err)
	}

	return c.JSON(http.StatusOK, list)
}

func (h *ListHandler) GetParticipants(c echo.Context) error {
	authRecord, _ := c.Get(apis.ContextAuthRecordKey).(*pbmodels.Record)
	if authRecord == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	listID := c.PathParam("listId")

	participants, err := h.backend.GetListParticipants(c.Request().Context(), listID)
	if err != nil {
		return apis.NewApiError(http.StatusBadGateway, "Failed to fetch participants", err)
	}

	return c.JSON(http.StatusOK, map[string]any{"participants": participants})
}

func (h *ListHandler) CheckInParticipant(c echo.Context) error {
	authRecord, _ := c.Get(apis.ContextAuthRecordKey).(*pbmodels.Record)
	if authRecord == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	listID := c.PathParam("listId")
	participantID := c.PathParam("participantId")

	err := h.backend.CheckInParticipant(c.Request().Context(), listID, participantID, authRecord.Id)
	if err != nil {
		return apis.NewBadRequestError("Check-in failed", err)
	}

	return c.JSON(http.StatusOK, map[string]any{"message": "Participant checked in"})
}
