package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	pubnub "github.com/pubnub/go"
	"github.com/redis/go-redis/v9"

	"ticket-scanner/config"
	"ticket-scanner/internal/services/ticketing"
	"ticket-scanner/internal/status"
	"ticket-scanner/models"
	"ticket-scanner/monitoring"
	"ticket-scanner/utils"
)

// TicketValidator is the one backend operation the scan workflow depends on.
type TicketValidator interface {
	ValidateTicket(ctx context.Context, vr *ticketing.ValidationRequest) (*ticketing.ValidationResponse, error)
}

// ScanService runs the validation workflow: debounce, interpret, validate,
// classify, publish.
type ScanService struct {
	sessions *SessionService
	backend  TicketValidator
	redis    *redis.Client
	pubnub   *pubnub.PubNub
	breaker  *utils.CircuitBreaker
	cfg      *config.Config
}

func NewScanService(sessions *SessionService, backend TicketValidator, redisClient *redis.Client, pn *pubnub.PubNub, cfg *config.Config) *ScanService {
	return &ScanService{
		sessions: sessions,
		backend:  backend,
		redis:    redisClient,
		pubnub:   pn,
		breaker:  utils.NewCircuitBreaker("ticketing-validate"),
		cfg:      cfg,
	}
}

// InterpretPayload converts raw scanned text into a ticket reference.
// Text that doesn't parse as JSON is taken as a bare ticket id. Anything
// that does parse is structured data and must be an object carrying a
// non-empty string ticketId; any other parse result (object without the
// field, array, number, quoted string, null) is an invalid payload, never
// submitted raw.
func InterpretPayload(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", status.ErrInvalidPayload
	}

	var parsed any
	if err := json.Unmarshal([]byte(trimmed), &parsed); err != nil {
		return trimmed, nil
	}

	obj, ok := parsed.(map[string]any)
	if !ok {
		return "", status.ErrInvalidPayload
	}

	ticketID, _ := obj["ticketId"].(string)
	if ticketID == "" {
		return "", status.ErrInvalidPayload
	}
	return ticketID, nil
}

// HandleScan processes one scan event end to end. Scans dropped by the
// debounce guard return Dropped with no alert: the camera keeps re-detecting
// a stationary code and alerting on every frame would flood the operator.
func (s *ScanService) HandleScan(ctx context.Context, scan models.ScanEvent) (*models.ScanResult, error) {
	if err := s.sessions.Accept(scan.SessionID, scan.Payload); err != nil {
		switch {
		case errors.Is(err, status.ErrScanInFlight):
			monitoring.RecordDroppedScan(scan.EventID, "busy")
			return &models.ScanResult{Dropped: true}, nil
		case errors.Is(err, status.ErrDuplicateScan):
			monitoring.RecordDroppedScan(scan.EventID, "duplicate")
			return &models.ScanResult{Dropped: true}, nil
		default:
			return nil, err
		}
	}

	eventID, operatorID, err := s.sessions.Info(scan.SessionID)
	if err != nil {
		return nil, err
	}
	if scan.EventID == "" {
		scan.EventID = eventID
	}

	ticketID, err := InterpretPayload(scan.Payload)
	if err != nil {
		// No validation in flight for a malformed code; clear the guard right
		// away so the operator can rescan without dismissing first.
		s.sessions.Release(scan.SessionID)
		monitoring.RecordScan(scan.EventID, "invalid_payload")
		alert := InvalidPayloadAlert()
		return &models.ScanResult{Alert: &alert}, nil
	}

	return s.validate(ctx, scan.EventID, ticketID, operatorID), nil
}

// ValidateManual validates a ticket picked from search results. Operator
// initiated, so it bypasses the debounce guard.
func (s *ScanService) ValidateManual(ctx context.Context, eventID, ticketID, operatorID string) *models.ScanResult {
	return s.validate(ctx, eventID, ticketID, operatorID)
}

// Dismiss marks the current outcome as presented and dismissed, resetting
// the session's debounce guard.
func (s *ScanService) Dismiss(sessionID string) error {
	return s.sessions.Release(sessionID)
}

func (s *ScanService) validate(ctx context.Context, eventID, ticketID, operatorID string) *models.ScanResult {
	start := time.Now()

	vctx, cancel := context.WithTimeout(ctx, s.cfg.ValidationTimeout)
	defer cancel()

	reply, callErr := s.breaker.Execute(vctx, func() (any, error) {
		return s.backend.ValidateTicket(vctx, &ticketing.ValidationRequest{
			TicketID: ticketID,
			EventID:  eventID,
			UserID:   operatorID,
		})
	})
	if callErr != nil && errors.Is(vctx.Err(), context.DeadlineExceeded) {
		callErr = fmt.Errorf("%w: %v", context.DeadlineExceeded, callErr)
	}

	var res *ticketing.ValidationResponse
	if r, ok := reply.(*ticketing.ValidationResponse); ok {
		res = r
	}

	outcome := Classify(eventID, res, callErr)
	monitoring.RecordScan(eventID, outcomeLabel(outcome))
	monitoring.ObserveValidationDuration(eventID, time.Since(start))

	if callErr != nil {
		slog.Error("ticket validation call failed",
			"event_id", eventID,
			"ticket_id", ticketID,
			"error", callErr,
		)
	}

	if outcome.Kind == models.OutcomeAccepted && s.redis != nil {
		if err := s.redis.Incr(ctx, validatedCounterKey(eventID)).Err(); err != nil {
			slog.Error("failed to bump validated counter", "event_id", eventID, "error", err)
		}
	}

	s.publishOutcome(eventID, ticketID, outcome)

	alert := AlertFor(outcome)
	return &models.ScanResult{
		TicketID: ticketID,
		Outcome:  &outcome,
		Alert:    &alert,
	}
}

// ValidatedCount reads the local validated counter of an event.
func (s *ScanService) ValidatedCount(ctx context.Context, eventID string) int {
	count, err := s.redis.Get(ctx, validatedCounterKey(eventID)).Int()
	if err != nil {
		return 0
	}
	return count
}

func validatedCounterKey(eventID string) string {
	return fmt.Sprintf("stats:validated:%s", eventID)
}

func (s *ScanService) publishOutcome(eventID, ticketID string, outcome models.ValidationOutcome) {
	if s.pubnub == nil {
		return
	}

	channel := fmt.Sprintf("scanfeed-%s", eventID)
	s.pubnub.Publish().
		Channel(channel).
		Message(map[string]any{
			"type":      "scan_outcome",
			"event_id":  eventID,
			"ticket_id": ticketID,
			"kind":      string(outcome.Kind),
			"reason":    string(outcome.Reason),
		}).
		Execute()
}

func outcomeLabel(outcome models.ValidationOutcome) string {
	switch outcome.Kind {
	case models.OutcomeAccepted:
		return "accepted"
	case models.OutcomeRejected:
		return strings.ToLower(string(outcome.Reason))
	default:
		return "transport_failure"
	}
}
