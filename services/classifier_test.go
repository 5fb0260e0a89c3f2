package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticket-scanner/internal/services/ticketing"
	"ticket-scanner/internal/status"
	"ticket-scanner/models"
)

const testEventID = "evt-123"

func TestClassify_Success(t *testing.T) {
	res := &ticketing.ValidationResponse{
		Success:    true,
		Ticket:     &ticketing.TicketResult{Quantity: 3},
		TicketType: &ticketing.TicketTypeResult{Name: "VIP"},
	}

	outcome := Classify(testEventID, res, nil)

	assert.Equal(t, models.OutcomeAccepted, outcome.Kind)
	assert.Equal(t, "VIP", outcome.TicketTypeName)
	assert.Equal(t, 3, outcome.Quantity)
}

func TestClassify_SuccessWithoutTicketDetails(t *testing.T) {
	res := &ticketing.ValidationResponse{Success: true}

	outcome := Classify(testEventID, res, nil)

	assert.Equal(t, models.OutcomeAccepted, outcome.Kind)
	assert.Equal(t, "", outcome.TicketTypeName)
	assert.Equal(t, 1, outcome.Quantity)
}

// Success must win even when the response also carries ticket or error
// fields.
func TestClassify_SuccessWinsOverOtherFields(t *testing.T) {
	res := &ticketing.ValidationResponse{
		Success:   true,
		Ticket:    &ticketing.TicketResult{Status: "used"},
		ErrorType: "TICKET_NOT_FOUND",
	}

	outcome := Classify(testEventID, res, nil)

	assert.Equal(t, models.OutcomeAccepted, outcome.Kind)
}

func TestClassify_TicketStatus(t *testing.T) {
	tests := []struct {
		status string
		reason models.RejectReason
	}{
		{"used", models.ReasonAlreadyUsed},
		{"refunded", models.ReasonRefunded},
		{"cancelled", models.ReasonCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			res := &ticketing.ValidationResponse{
				Ticket: &ticketing.TicketResult{Status: tt.status},
			}

			outcome := Classify(testEventID, res, nil)

			assert.Equal(t, models.OutcomeRejected, outcome.Kind)
			assert.Equal(t, tt.reason, outcome.Reason)
			assert.Equal(t, tt.status, outcome.SubStatus)
		})
	}
}

func TestClassify_EventMismatch(t *testing.T) {
	res := &ticketing.ValidationResponse{
		Ticket: &ticketing.TicketResult{Status: "valid"},
		Event:  &ticketing.EventResult{ID: "other-event"},
	}

	outcome := Classify(testEventID, res, nil)

	assert.Equal(t, models.OutcomeRejected, outcome.Kind)
	assert.Equal(t, models.ReasonEventMismatch, outcome.Reason)
}

func TestClassify_UnrecognizedTicketStatusSameEvent(t *testing.T) {
	res := &ticketing.ValidationResponse{
		Ticket: &ticketing.TicketResult{Status: "pending"},
		Event:  &ticketing.EventResult{ID: testEventID},
	}

	outcome := Classify(testEventID, res, nil)

	assert.Equal(t, models.OutcomeRejected, outcome.Kind)
	assert.Equal(t, models.ReasonUnknown, outcome.Reason)
	assert.Equal(t, "pending", outcome.SubStatus)
}

func TestClassify_ErrorType(t *testing.T) {
	tests := []struct {
		errorType string
		reason    models.RejectReason
	}{
		{"TICKET_NOT_FOUND", models.ReasonTicketNotFound},
		{"EVENT_MISMATCH", models.ReasonEventMismatch},
		{"ALREADY_USED", models.ReasonAlreadyUsed},
		{"INVALID_STATUS", models.ReasonInvalidStatus},
	}

	for _, tt := range tests {
		t.Run(tt.errorType, func(t *testing.T) {
			res := &ticketing.ValidationResponse{ErrorType: tt.errorType}

			outcome := Classify(testEventID, res, nil)

			assert.Equal(t, models.OutcomeRejected, outcome.Kind)
			assert.Equal(t, tt.reason, outcome.Reason)
		})
	}
}

func TestClassify_UnrecognizedErrorTypeKeepsBackendMessage(t *testing.T) {
	res := &ticketing.ValidationResponse{
		ErrorType: "QUOTA_EXCEEDED",
		Message:   "limite de validações atingido",
	}

	outcome := Classify(testEventID, res, nil)

	assert.Equal(t, models.OutcomeRejected, outcome.Kind)
	assert.Equal(t, models.ReasonUnknown, outcome.Reason)
	assert.Equal(t, "limite de validações atingido", outcome.Message)
}

func TestClassify_EmptyFailureResponse(t *testing.T) {
	outcome := Classify(testEventID, &ticketing.ValidationResponse{}, nil)

	assert.Equal(t, models.OutcomeRejected, outcome.Kind)
	assert.Equal(t, models.ReasonUnknown, outcome.Reason)
}

func TestClassify_Timeout(t *testing.T) {
	err := fmt.Errorf("%w: call aborted", context.DeadlineExceeded)

	outcome := Classify(testEventID, nil, err)

	assert.Equal(t, models.OutcomeTransportFailure, outcome.Kind)
	assert.True(t, outcome.Transient)
}

func TestClassify_CircuitOpen(t *testing.T) {
	err := fmt.Errorf("ticketing-validate: circuit open: %w", status.ErrBackendUnavailable)

	outcome := Classify(testEventID, nil, err)

	assert.Equal(t, models.OutcomeTransportFailure, outcome.Kind)
	assert.True(t, outcome.Transient)
}

func TestClassify_ServerErrorIsTransient(t *testing.T) {
	err := errors.New("ticketing: server error: status 503")

	outcome := Classify(testEventID, nil, err)

	assert.Equal(t, models.OutcomeTransportFailure, outcome.Kind)
	assert.True(t, outcome.Transient)
}

// The legacy backend rejects some validations through HTTP errors carrying a
// Portuguese message. Those must come back as structured rejections.
func TestClassify_LegacyPortugueseMessages(t *testing.T) {
	tests := []struct {
		message string
		reason  models.RejectReason
	}{
		{"este ingresso não pertence a este evento", models.ReasonEventMismatch},
		{"este ingresso já foi utilizado", models.ReasonAlreadyUsed},
		{"ingresso reembolsado", models.ReasonRefunded},
		{"ingresso cancelado", models.ReasonCancelled},
	}

	for _, tt := range tests {
		t.Run(string(tt.reason), func(t *testing.T) {
			outcome := Classify(testEventID, nil, errors.New(tt.message))

			assert.Equal(t, models.OutcomeRejected, outcome.Kind)
			assert.Equal(t, tt.reason, outcome.Reason)
			assert.False(t, outcome.Transient)
		})
	}
}

// A message matching several legacy substrings must resolve deterministically
// to the first in table order.
func TestClassify_LegacyMessageOrderIsDeterministic(t *testing.T) {
	msg := "ingresso reembolsado após pedido cancelado"

	for i := 0; i < 20; i++ {
		outcome := Classify(testEventID, nil, errors.New(msg))
		assert.Equal(t, models.ReasonRefunded, outcome.Reason)
	}
}

func TestClassify_UnmatchedCallError(t *testing.T) {
	outcome := Classify(testEventID, nil, errors.New("connection refused"))

	assert.Equal(t, models.OutcomeTransportFailure, outcome.Kind)
	assert.False(t, outcome.Transient)
}

// Every outcome kind must map to exactly one alert; the device can never be
// left without feedback.
func TestAlertFor_Totality(t *testing.T) {
	outcomes := []models.ValidationOutcome{
		{Kind: models.OutcomeAccepted, TicketTypeName: "Pista", Quantity: 2},
		{Kind: models.OutcomeAccepted},
		{Kind: models.OutcomeRejected, Reason: models.ReasonAlreadyUsed},
		{Kind: models.OutcomeRejected, Reason: models.ReasonUnknown},
		{Kind: models.OutcomeRejected, Reason: models.RejectReason("SOMETHING_NEW")},
		{Kind: models.OutcomeTransportFailure, Transient: true},
		{Kind: models.OutcomeTransportFailure},
	}

	for _, outcome := range outcomes {
		alert := AlertFor(outcome)
		assert.NotEmpty(t, alert.Title)
		assert.NotEmpty(t, alert.Message)
	}
}

func TestAlertFor_Accepted(t *testing.T) {
	alert := AlertFor(models.ValidationOutcome{
		Kind:           models.OutcomeAccepted,
		TicketTypeName: "VIP",
		Quantity:       2,
	})

	assert.Equal(t, models.SeveritySuccess, alert.Type)
	assert.Equal(t, "Ingresso Válido", alert.Title)
	assert.Equal(t, "Tipo: VIP | Qtd: 2", alert.Message)
	require.Len(t, alert.Actions, 1)
	assert.Equal(t, "Continuar", alert.Actions[0].Text)
}

func TestAlertFor_AcceptedWithoutTypeName(t *testing.T) {
	alert := AlertFor(models.ValidationOutcome{
		Kind:     models.OutcomeAccepted,
		Quantity: 1,
	})

	assert.Equal(t, "Tipo: N/A | Qtd: 1", alert.Message)
}

// ALREADY_USED is the only rejection presented as a warning, not an error.
func TestAlertFor_AlreadyUsedIsWarning(t *testing.T) {
	alert := AlertFor(models.ValidationOutcome{
		Kind:   models.OutcomeRejected,
		Reason: models.ReasonAlreadyUsed,
	})

	assert.Equal(t, models.SeverityWarning, alert.Type)
	assert.Equal(t, "Ingresso Já Utilizado", alert.Title)
}

func TestAlertFor_RejectionSeverities(t *testing.T) {
	reasons := []models.RejectReason{
		models.ReasonRefunded,
		models.ReasonCancelled,
		models.ReasonEventMismatch,
		models.ReasonTicketNotFound,
		models.ReasonInvalidStatus,
		models.ReasonUnknown,
	}

	for _, reason := range reasons {
		alert := AlertFor(models.ValidationOutcome{
			Kind:   models.OutcomeRejected,
			Reason: reason,
		})
		assert.Equal(t, models.SeverityError, alert.Type, "reason %s", reason)
	}
}

func TestAlertFor_UnknownRejectionWithBackendMessage(t *testing.T) {
	alert := AlertFor(models.ValidationOutcome{
		Kind:    models.OutcomeRejected,
		Reason:  models.ReasonUnknown,
		Message: "limite de validações atingido",
	})

	assert.Equal(t, "Erro de Validação", alert.Title)
	assert.Equal(t, "limite de validações atingido", alert.Message)
}

func TestAlertFor_TransientTransportFailure(t *testing.T) {
	alert := AlertFor(models.ValidationOutcome{
		Kind:      models.OutcomeTransportFailure,
		Transient: true,
	})

	assert.Equal(t, "Erro Temporário", alert.Title)
	assert.Contains(t, alert.Message, "Tente novamente")
}

func TestAlertFor_NonTransientTransportFailure(t *testing.T) {
	alert := AlertFor(models.ValidationOutcome{
		Kind: models.OutcomeTransportFailure,
	})

	assert.Equal(t, "Erro de Validação", alert.Title)
	assert.Contains(t, alert.Message, "Não foi possível validar")
}

func TestInvalidPayloadAlert(t *testing.T) {
	alert := InvalidPayloadAlert()

	assert.Equal(t, models.SeverityError, alert.Type)
	assert.Equal(t, "QR Code Inválido", alert.Title)
	assert.False(t, alert.AutoDismiss())
}
