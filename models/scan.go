package models

import (
	"time"
)

// Severity levels understood by the scanning devices' alert component.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
	SeverityInfo    Severity = "info"
)

// RejectReason is the closed set of business-rule rejections a validation
// attempt can resolve to.
type RejectReason string

const (
	ReasonTicketNotFound RejectReason = "TICKET_NOT_FOUND"
	ReasonEventMismatch  RejectReason = "EVENT_MISMATCH"
	ReasonAlreadyUsed    RejectReason = "ALREADY_USED"
	ReasonInvalidStatus  RejectReason = "INVALID_STATUS"
	ReasonRefunded       RejectReason = "REFUNDED"
	ReasonCancelled      RejectReason = "CANCELLED"
	ReasonUnknown        RejectReason = "UNKNOWN"
)

type OutcomeKind string

const (
	OutcomeAccepted         OutcomeKind = "accepted"
	OutcomeRejected         OutcomeKind = "rejected"
	OutcomeTransportFailure OutcomeKind = "transport_failure"
)

// ScanEvent is a single detection posted by a scanning device. Transient,
// owned by the validation attempt it triggers.
type ScanEvent struct {
	SessionID string    `json:"session_id"`
	EventID   string    `json:"event_id"`
	Payload   string    `json:"payload"`
	ScannedAt time.Time `json:"scanned_at"`
}

// ValidationOutcome is the normalized result of a validation attempt. The
// three response shapes of the ticketing backend (success, structured
// failure, thrown error) all collapse into this one tagged value before any
// presentation logic runs.
type ValidationOutcome struct {
	Kind OutcomeKind `json:"kind"`

	// Accepted
	TicketTypeName string `json:"ticket_type_name,omitempty"`
	Quantity       int    `json:"quantity,omitempty"`

	// Rejected
	Reason    RejectReason `json:"reason,omitempty"`
	SubStatus string       `json:"sub_status,omitempty"`

	// Message carries the backend's own message for unrecognized rejections
	// and the logged cause for transport failures.
	Message string `json:"message,omitempty"`

	// Transient marks transport failures worth an immediate retry (generic
	// server faults, timeouts) as opposed to unmatched validation errors.
	Transient bool `json:"transient,omitempty"`
}

type AlertAction struct {
	Text string `json:"text"`
}

// Alert is the presentation contract: exactly one severity, a title and a
// message, plus zero or more labeled follow-up actions. Devices auto-dismiss
// alerts that carry no actions.
type Alert struct {
	Type    Severity      `json:"type"`
	Title   string        `json:"title"`
	Message string        `json:"message"`
	Actions []AlertAction `json:"actions"`
}

// AutoDismiss reports whether the device should dismiss the alert on its own
// after the fixed display interval.
func (a Alert) AutoDismiss() bool {
	return len(a.Actions) == 0
}

// ScanResult is what the scan endpoint returns to the device.
type ScanResult struct {
	Dropped  bool               `json:"dropped"`
	TicketID string             `json:"ticket_id,omitempty"`
	Outcome  *ValidationOutcome `json:"outcome,omitempty"`
	Alert    *Alert             `json:"alert,omitempty"`
}
