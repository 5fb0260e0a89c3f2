package handlers

import (
	"net/http"

	"ticket-scanner/internal/services/ticketing"
	"ticket-scanner/services"
	"ticket-scanner/utils"

	"github.com/labstack/echo/v5"
	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	pbmodels "github.com/pocketbase/pocketbase/models"
)

type SearchHandler struct {
	app         *pocketbase.PocketBase
	backend     *ticketing.Client
	scanService *services.ScanService
}

func NewSearchHandler(app *pocketbase.PocketBase, backend *ticketing.Client, scanService *services.ScanService) *SearchHandler {
	return &SearchHandler{
		app:         app,
		backend:     backend,
		scanService: scanService,
	}
}

// GetAvailability reports validated vs purchased counts for an event.
func (h *SearchHandler) GetAvailability(c echo.Context) error {
	authRecord, _ := c.Get(apis.ContextAuthRecordKey).(*pbmodels.Record)
	if authRecord == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	eventID := c.PathParam("eventId")

	availability, err := h.backend.GetAvailability(c.Request().Context(), eventID)
	if err != nil {
		return apis.NewApiError(http.StatusBadGateway, "Failed to fetch availability", err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"event_id":          eventID,
		"validated_tickets": availability.ValidatedTickets,
		"purchased_tickets": availability.PurchasedTickets,
		"validated_local":   h.scanService.ValidatedCount(c.Request().Context(), eventID),
	})
}

// SearchTickets finds attendee tickets by email or CPF. The CPF is
// normalized to the backend's stored format before the lookup.
func (h *SearchHandler) SearchTickets(c echo.Context) error {
	authRecord, _ := c.Get(apis.ContextAuthRecordKey).(*pbmodels.Record)
	if authRecord == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	eventID := c.QueryParam("event_id")
	email := c.QueryParam("email")
	cpf := c.QueryParam("cpf")

	if eventID == "" {
		return apis.NewBadRequestError("event_id is required", nil)
	}
	if email == "" && cpf == "" {
		return apis.NewBadRequestError("email or cpf is required", nil)
	}

	if cpf != "" {
		cpf = utils.NormalizeCPF(cpf)
	}

	tickets, err := h.backend.SearchTickets(c.Request().Context(), eventID, email, cpf)
	if err != nil {
		return apis.NewApiError(http.StatusBadGateway, "Search failed", err)
	}

	return c.JSON(http.StatusOK, map[string]any{"tickets": tickets})
}

// ValidateManual validates a ticket picked from search results. Bypasses the
// debounce guard because the operator chose it deliberately.
func (h *SearchHandler) ValidateManual(c echo.Context) error {
	authRecord, _ := c.Get(apis.ContextAuthRecordKey).(*pbmodels.Record)
	if authRecord == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	ticketID := c.PathParam("ticketId")

	var req struct {
		EventID string `json:"event_id"`
	}
	if err := c.Bind(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if req.EventID == "" {
		return apis.NewBadRequestError("event_id is required", nil)
	}

	result := h.scanService.ValidateManual(c.Request().Context(), req.EventID, ticketID, authRecord.Id)
	return c.JSON(http.StatusOK, result)
}
