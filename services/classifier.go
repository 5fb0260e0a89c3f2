package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ticket-scanner/internal/services/ticketing"
	"ticket-scanner/internal/status"
	"ticket-scanner/models"
)

// Classify normalizes the three response shapes of the validate operation
// (success, structured failure, failed call) into a single outcome. It is a
// pure function: same inputs, same outcome. Evaluation order matters and
// mirrors the backend contract:
//
//  1. a failed call goes through the legacy reclassifier,
//  2. success wins over every other field,
//  3. a ticket sub-object decides by lifecycle status,
//  4. an explicit errorType decides directly,
//  5. everything else is the generic rejection.
func Classify(eventID string, res *ticketing.ValidationResponse, callErr error) models.ValidationOutcome {
	if callErr != nil {
		return reclassifyLegacyError(callErr)
	}

	if res != nil && res.Success {
		out := models.ValidationOutcome{
			Kind:     models.OutcomeAccepted,
			Quantity: 1,
		}
		if res.TicketType != nil {
			out.TicketTypeName = res.TicketType.Name
		}
		if res.Ticket != nil && res.Ticket.Quantity > 0 {
			out.Quantity = res.Ticket.Quantity
		}
		return out
	}

	if res != nil && res.Ticket != nil {
		switch res.Ticket.Status {
		case "used":
			return rejected(models.ReasonAlreadyUsed, res.Ticket.Status)
		case "refunded":
			return rejected(models.ReasonRefunded, res.Ticket.Status)
		case "cancelled":
			return rejected(models.ReasonCancelled, res.Ticket.Status)
		default:
			if res.Event != nil && res.Event.ID != eventID {
				return rejected(models.ReasonEventMismatch, res.Ticket.Status)
			}
			return rejected(models.ReasonUnknown, res.Ticket.Status)
		}
	}

	if res != nil && res.ErrorType != "" {
		switch res.ErrorType {
		case string(models.ReasonTicketNotFound),
			string(models.ReasonEventMismatch),
			string(models.ReasonAlreadyUsed),
			string(models.ReasonInvalidStatus):
			return rejected(models.RejectReason(res.ErrorType), "")
		default:
			return models.ValidationOutcome{
				Kind:    models.OutcomeRejected,
				Reason:  models.ReasonUnknown,
				Message: res.Message,
			}
		}
	}

	return models.ValidationOutcome{
		Kind:   models.OutcomeRejected,
		Reason: models.ReasonUnknown,
	}
}

func rejected(reason models.RejectReason, subStatus string) models.ValidationOutcome {
	return models.ValidationOutcome{
		Kind:      models.OutcomeRejected,
		Reason:    reason,
		SubStatus: subStatus,
	}
}

// reclassifyLegacyError recovers structured meaning from a failed call. The
// legacy backend sometimes rejects a validation through an HTTP error with a
// Portuguese message instead of the structured-failure shape; the substring
// table below maps those messages back onto their reasons. Delete this once
// the backend consistently returns structured failures.
func reclassifyLegacyError(callErr error) models.ValidationOutcome {
	if errors.Is(callErr, context.DeadlineExceeded) || errors.Is(callErr, status.ErrBackendUnavailable) {
		return models.ValidationOutcome{
			Kind:      models.OutcomeTransportFailure,
			Message:   callErr.Error(),
			Transient: true,
		}
	}

	msg := callErr.Error()

	if strings.Contains(msg, "server error") {
		return models.ValidationOutcome{
			Kind:      models.OutcomeTransportFailure,
			Message:   msg,
			Transient: true,
		}
	}

	for _, lm := range legacyMessageReasons {
		if strings.Contains(msg, lm.substring) {
			return models.ValidationOutcome{
				Kind:    models.OutcomeRejected,
				Reason:  lm.reason,
				Message: msg,
			}
		}
	}

	return models.ValidationOutcome{
		Kind:    models.OutcomeTransportFailure,
		Message: msg,
	}
}

// Checked in order; a message matching several substrings always resolves to
// the first.
var legacyMessageReasons = []struct {
	substring string
	reason    models.RejectReason
}{
	{"não pertence a este evento", models.ReasonEventMismatch},
	{"já foi utilizado", models.ReasonAlreadyUsed},
	{"reembolsado", models.ReasonRefunded},
	{"cancelado", models.ReasonCancelled},
}

// Alert texts shown on the scanning devices. Staff-facing, Portuguese.
var rejectionAlerts = map[models.RejectReason]models.Alert{
	models.ReasonAlreadyUsed: {
		Type:    models.SeverityWarning,
		Title:   "Ingresso Já Utilizado",
		Message: "Este ingresso já foi utilizado anteriormente.",
	},
	models.ReasonRefunded: {
		Type:    models.SeverityError,
		Title:   "Ingresso Reembolsado",
		Message: "Este ingresso foi reembolsado e não é mais válido.",
	},
	models.ReasonCancelled: {
		Type:    models.SeverityError,
		Title:   "Ingresso Cancelado",
		Message: "Este ingresso foi cancelado.",
	},
	models.ReasonEventMismatch: {
		Type:    models.SeverityError,
		Title:   "Evento Incorreto",
		Message: "Este ingresso não pertence a este evento.",
	},
	models.ReasonTicketNotFound: {
		Type:    models.SeverityError,
		Title:   "Ingresso Não Encontrado",
		Message: "Este ingresso não foi encontrado no sistema.",
	},
	models.ReasonInvalidStatus: {
		Type:    models.SeverityError,
		Title:   "Status Inválido",
		Message: "Este ingresso não pode ser validado devido ao seu status atual.",
	},
	models.ReasonUnknown: {
		Type:    models.SeverityError,
		Title:   "Ingresso Inválido",
		Message: "Este ingresso não é válido para este evento.",
	},
}

// AlertFor maps an outcome to its presentation tuple. Total: every outcome
// yields exactly one alert, so the device is never left without feedback.
func AlertFor(outcome models.ValidationOutcome) models.Alert {
	switch outcome.Kind {
	case models.OutcomeAccepted:
		name := outcome.TicketTypeName
		if name == "" {
			name = "N/A"
		}
		return models.Alert{
			Type:    models.SeveritySuccess,
			Title:   "Ingresso Válido",
			Message: fmt.Sprintf("Tipo: %s | Qtd: %d", name, outcome.Quantity),
			Actions: []models.AlertAction{{Text: "Continuar"}},
		}

	case models.OutcomeRejected:
		if outcome.Reason == models.ReasonUnknown && outcome.Message != "" {
			return models.Alert{
				Type:    models.SeverityError,
				Title:   "Erro de Validação",
				Message: outcome.Message,
				Actions: []models.AlertAction{{Text: "OK"}},
			}
		}
		alert, ok := rejectionAlerts[outcome.Reason]
		if !ok {
			alert = rejectionAlerts[models.ReasonUnknown]
		}
		alert.Actions = []models.AlertAction{{Text: "OK"}}
		return alert

	default:
		if outcome.Transient {
			return models.Alert{
				Type:    models.SeverityError,
				Title:   "Erro Temporário",
				Message: "Oops! Algo deu errado. Tente novamente em alguns segundos.",
				Actions: []models.AlertAction{{Text: "OK"}},
			}
		}
		return models.Alert{
			Type:    models.SeverityError,
			Title:   "Erro de Validação",
			Message: "Não foi possível validar o ingresso. Verifique se o ingresso está válido e tente novamente.",
			Actions: []models.AlertAction{{Text: "OK"}},
		}
	}
}

// InvalidPayloadAlert is shown when a scanned code decodes to structured data
// without a usable ticket reference. No validation call is made.
func InvalidPayloadAlert() models.Alert {
	return models.Alert{
		Type:    models.SeverityError,
		Title:   "QR Code Inválido",
		Message: "Este QR code não contém informações válidas de ingresso.",
		Actions: []models.AlertAction{{Text: "OK"}},
	}
}
