package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"ticket-scanner/internal/services/ticketing"
	"ticket-scanner/internal/status"
	"ticket-scanner/models"
)

// OfflineBackend is what the offline cache needs from the ticketing backend.
type OfflineBackend interface {
	GetEvent(ctx context.Context, eventID string) (*models.Event, error)
	GetEventTickets(ctx context.Context, eventID string) ([]models.CachedTicket, error)
	ValidateTicket(ctx context.Context, vr *ticketing.ValidationRequest) (*ticketing.ValidationResponse, error)
}

// OfflineService keeps a Redis snapshot of an event's tickets so scanning
// keeps working when the venue loses connectivity. Offline validations are
// applied to the snapshot and queued for replay against the backend.
//
// Offline responses reuse the backend's ValidationResponse shape, so the
// same classifier covers both paths.
type OfflineService struct {
	redis   *redis.Client
	backend OfflineBackend
	ttl     time.Duration

	now func() time.Time
}

func NewOfflineService(redisClient *redis.Client, backend OfflineBackend, ttl time.Duration) *OfflineService {
	return &OfflineService{
		redis:   redisClient,
		backend: backend,
		ttl:     ttl,
		now:     time.Now,
	}
}

func offlineEventKey(eventID string) string {
	return fmt.Sprintf("offline:event:%s", eventID)
}

func offlineTicketsKey(eventID string) string {
	return fmt.Sprintf("offline:tickets:%s", eventID)
}

func offlinePendingKey(eventID string) string {
	return fmt.Sprintf("offline:pending:%s", eventID)
}

// DownloadEventData snapshots an event and all its tickets into Redis.
// Returns the number of tickets cached.
func (s *OfflineService) DownloadEventData(ctx context.Context, eventID string) (int, error) {
	event, err := s.backend.GetEvent(ctx, eventID)
	if err != nil {
		return 0, fmt.Errorf("offline download: %w", err)
	}

	tickets, err := s.backend.GetEventTickets(ctx, eventID)
	if err != nil {
		return 0, fmt.Errorf("offline download: %w", err)
	}

	eventData, err := json.Marshal(event)
	if err != nil {
		return 0, err
	}
	if err := s.redis.Set(ctx, offlineEventKey(eventID), eventData, s.ttl).Err(); err != nil {
		return 0, err
	}

	ticketsKey := offlineTicketsKey(eventID)
	s.redis.Del(ctx, ticketsKey)

	for _, ticket := range tickets {
		data, err := json.Marshal(ticket)
		if err != nil {
			return 0, err
		}
		if err := s.redis.HSet(ctx, ticketsKey, ticket.ID, data).Err(); err != nil {
			return 0, err
		}
	}
	s.redis.Expire(ctx, ticketsKey, s.ttl)

	slog.Info("event data downloaded for offline use", "event_id", eventID, "tickets", len(tickets))
	return len(tickets), nil
}

// ValidateOffline validates a ticket against the snapshot and queues the
// validation for replay. Returns status.ErrNotCached when the event was
// never downloaded.
func (s *OfflineService) ValidateOffline(ctx context.Context, eventID, ticketID, operatorID string) (*ticketing.ValidationResponse, error) {
	ticketsKey := offlineTicketsKey(eventID)

	data, err := s.redis.HGet(ctx, ticketsKey, ticketID).Result()
	if err == redis.Nil {
		exists, err := s.redis.Exists(ctx, offlineEventKey(eventID)).Result()
		if err != nil {
			return nil, err
		}
		if exists == 0 {
			return nil, status.ErrNotCached
		}
		return &ticketing.ValidationResponse{
			Success:   false,
			ErrorType: string(models.ReasonTicketNotFound),
			Message:   "Ingresso não encontrado no armazenamento offline",
		}, nil
	} else if err != nil {
		return nil, err
	}

	var ticket models.CachedTicket
	if err := json.Unmarshal([]byte(data), &ticket); err != nil {
		return nil, fmt.Errorf("offline validate: corrupt snapshot entry: %v", err)
	}

	switch ticket.Status {
	case "used", "refunded", "cancelled":
		return &ticketing.ValidationResponse{
			Success: false,
			Ticket:  &ticketing.TicketResult{Status: ticket.Status},
		}, nil
	}

	if ticket.EventID != eventID {
		return &ticketing.ValidationResponse{
			Success: false,
			Ticket:  &ticketing.TicketResult{Status: ticket.Status},
			Event:   &ticketing.EventResult{ID: ticket.EventID},
		}, nil
	}

	ticket.Status = "used"
	updated, err := json.Marshal(ticket)
	if err != nil {
		return nil, err
	}
	if err := s.redis.HSet(ctx, ticketsKey, ticket.ID, updated).Err(); err != nil {
		return nil, err
	}

	pending := models.PendingValidation{
		TicketID:    ticketID,
		EventID:     eventID,
		OperatorID:  operatorID,
		ValidatedAt: s.now(),
	}
	pendingData, err := json.Marshal(pending)
	if err != nil {
		return nil, err
	}
	if err := s.redis.RPush(ctx, offlinePendingKey(eventID), pendingData).Err(); err != nil {
		return nil, err
	}

	return &ticketing.ValidationResponse{
		Success:    true,
		Ticket:     &ticketing.TicketResult{Quantity: ticket.Quantity},
		TicketType: &ticketing.TicketTypeResult{Name: ticket.TypeName},
	}, nil
}

// ApplyStatusUpdate applies a backend lifecycle push to the snapshot. No-op
// when the ticket isn't cached.
func (s *OfflineService) ApplyStatusUpdate(ctx context.Context, update *ticketing.TicketStatusUpdate) error {
	ticketsKey := offlineTicketsKey(update.EventID)

	data, err := s.redis.HGet(ctx, ticketsKey, update.TicketID).Result()
	if err == redis.Nil {
		return nil
	} else if err != nil {
		return err
	}

	var ticket models.CachedTicket
	if err := json.Unmarshal([]byte(data), &ticket); err != nil {
		return fmt.Errorf("status update: corrupt snapshot entry: %v", err)
	}

	ticket.Status = update.Status
	updated, err := json.Marshal(ticket)
	if err != nil {
		return err
	}
	return s.redis.HSet(ctx, ticketsKey, ticket.ID, updated).Err()
}

// SyncPending replays queued offline validations against the backend.
// Stops and requeues on the first transport failure; structured rejections
// are dropped because the backend is authoritative.
func (s *OfflineService) SyncPending(ctx context.Context, eventID string) (int, error) {
	pendingKey := offlinePendingKey(eventID)
	synced := 0

	for {
		data, err := s.redis.LPop(ctx, pendingKey).Result()
		if err == redis.Nil {
			return synced, nil
		} else if err != nil {
			return synced, err
		}

		var pending models.PendingValidation
		if err := json.Unmarshal([]byte(data), &pending); err != nil {
			slog.Error("dropping corrupt pending validation", "event_id", eventID, "error", err)
			continue
		}

		res, err := s.backend.ValidateTicket(ctx, &ticketing.ValidationRequest{
			TicketID: pending.TicketID,
			EventID:  pending.EventID,
			UserID:   pending.OperatorID,
		})
		if err != nil {
			s.redis.LPush(ctx, pendingKey, data)
			return synced, fmt.Errorf("offline sync interrupted: %w", err)
		}

		if res.Success {
			synced++
		} else {
			slog.Warn("offline validation rejected by backend",
				"event_id", eventID,
				"ticket_id", pending.TicketID,
				"error_type", res.ErrorType,
			)
		}
	}
}

// PendingCount returns the number of queued offline validations.
func (s *OfflineService) PendingCount(ctx context.Context, eventID string) int64 {
	count, err := s.redis.LLen(ctx, offlinePendingKey(eventID)).Result()
	if err != nil {
		return 0
	}
	return count
}
