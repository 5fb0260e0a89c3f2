package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v5"
	"github.com/pocketbase/pocketbase"
	"github.com/stretchr/testify/assert"
)

func TestSearchHandler_SearchTickets_Unauthorized(t *testing.T) {
	app := pocketbase.New()

	handler := &SearchHandler{
		app: app,
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tickets/search", nil)
	rec := httptest.NewRecorder()

	e := echo.New()
	c := e.NewContext(req, rec)

	err := handler.SearchTickets(c)

	assert.Error(t, err)
}

func TestSearchHandler_SearchTickets_MissingEventID(t *testing.T) {
	app := pocketbase.New()

	handler := &SearchHandler{
		app: app,
	}

	c, _ := newAuthenticatedContext(http.MethodGet, "/api/v1/tickets/search?email=ana@example.com", nil)

	err := handler.SearchTickets(c)

	assert.Error(t, err)
}

func TestSearchHandler_SearchTickets_MissingCriteria(t *testing.T) {
	app := pocketbase.New()

	handler := &SearchHandler{
		app: app,
	}

	c, _ := newAuthenticatedContext(http.MethodGet, "/api/v1/tickets/search?event_id=evt-1", nil)

	err := handler.SearchTickets(c)

	assert.Error(t, err)
}

func TestSearchHandler_ValidateManual_MissingEventID(t *testing.T) {
	app := pocketbase.New()

	handler := &SearchHandler{
		app: app,
	}

	c, _ := newAuthenticatedContext(http.MethodPost, "/api/v1/tickets/tkt-1/validate", []byte(`{}`))
	c.SetPathParams(echo.PathParams{{Name: "ticketId", Value: "tkt-1"}})

	err := handler.ValidateManual(c)

	assert.Error(t, err)
}

func TestListHandler_LookupList_MissingURL(t *testing.T) {
	app := pocketbase.New()

	handler := &ListHandler{
		app: app,
	}

	c, _ := newAuthenticatedContext(http.MethodGet, "/api/v1/lists/lookup", nil)

	err := handler.LookupList(c)

	assert.Error(t, err)
}

func TestValidatorHandler_InviteValidator_MissingEmail(t *testing.T) {
	app := pocketbase.New()

	handler := &ValidatorHandler{
		app: app,
	}

	c, _ := newAuthenticatedContext(http.MethodPost, "/api/v1/events/evt-1/validators", []byte(`{}`))
	c.SetPathParams(echo.PathParams{{Name: "eventId", Value: "evt-1"}})

	err := handler.InviteValidator(c)

	assert.Error(t, err)
}
