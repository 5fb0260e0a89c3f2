package handlers

import (
	"net/http"

	"ticket-scanner/internal/services/ticketing"

	"github.com/labstack/echo/v5"
	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	pbmodels "github.com/pocketbase/pocketbase/models"
)

// ValidatorHandler manages the roster of people allowed to scan for an event.
type ValidatorHandler struct {
	app     *pocketbase.PocketBase
	backend *ticketing.Client
}

func NewValidatorHandler(app *pocketbase.PocketBase, backend *ticketing.Client) *ValidatorHandler {
	return &ValidatorHandler{
		app:     app,
		backend: backend,
	}
}

func (h *ValidatorHandler) GetValidators(c echo.Context) error {
	authRecord, _ := c.Get(apis.ContextAuthRecordKey).(*pbmodels.Record)
	if authRecord == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	eventID := c.PathParam("eventId")

	validators, err := h.backend.GetValidators(c.Request().Context(), eventID, authRecord.Id)
	if err != nil {
		return apis.NewApiError(http.StatusBadGateway, "Failed to fetch validators", err)
	}

	return c.JSON(http.StatusOK, map[string]any{"validators": validators})
}

func (h *ValidatorHandler) InviteValidator(c echo.Context) error {
	authRecord, _ := c.Get(apis.ContextAuthRecordKey).(*pbmodels.Record)
	if authRecord == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	eventID := c.PathParam("eventId")

	var req struct {
		Email string `json:"email"`
	}
	if err := c.Bind(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if req.Email == "" {
		return apis.NewBadRequestError("email is required", nil)
	}

	if err := h.backend.InviteValidator(c.Request().Context(), eventID, req.Email, authRecord.Id); err != nil {
		return apis.NewBadRequestError("Invite failed", err)
	}

	return c.JSON(http.StatusOK, map[string]any{"message": "Validator invited"})
}

func (h *ValidatorHandler) RemoveValidator(c echo.Context) error {
	authRecord, _ := c.Get(apis.ContextAuthRecordKey).(*pbmodels.Record)
	if authRecord == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	validatorID := c.PathParam("validatorId")

	if err := h.backend.RemoveValidator(c.Request().Context(), validatorID, authRecord.Id); err != nil {
		return apis.NewBadRequestError("Removal failed", err)
	}

	return c.JSON(http.StatusOK, map[string]any{"message": "Validator removed"})
}
