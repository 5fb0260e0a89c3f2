package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"ticket-scanner/config"
	"ticket-scanner/internal/services/ticketing"
	"ticket-scanner/internal/status"
	"ticket-scanner/utils"
)

// GuardState is the debounce guard of one scanning session. Two states only:
// Idle accepts scans, Busy drops them until the outcome is dismissed.
type GuardState int

const (
	GuardIdle GuardState = iota
	GuardBusy
)

type scanSession struct {
	eventID    string
	operatorID string
	deviceHash string

	state          GuardState
	lastPayload    string
	lastAcceptedAt time.Time
	busySince      time.Time
	lastSeen       time.Time
}

// SessionService owns every scanning session of this gateway. All guard
// mutation goes through Accept and Release, which keeps the
// one-request-in-flight invariant in a single place.
type SessionService struct {
	mu       sync.Mutex
	sessions map[string]*scanSession

	window      time.Duration
	busyTimeout time.Duration
	ttl         time.Duration

	now func() time.Time
}

func NewSessionService(cfg *config.Config) *SessionService {
	return &SessionService{
		sessions:    make(map[string]*scanSession),
		window:      cfg.DebounceWindow,
		busyTimeout: cfg.ValidationTimeout,
		ttl:         cfg.SessionTTL,
		now:         time.Now,
	}
}

// Open creates a scanning session for an operator at an event. The returned
// device secret is shown once; only its hash is kept.
func (s *SessionService) Open(eventID, operatorID string) (sessionID, deviceSecret string, err error) {
	sessionID, err = utils.GenerateCode(8)
	if err != nil {
		return "", "", err
	}
	deviceSecret, err = utils.GenerateCode(16)
	if err != nil {
		return "", "", err
	}
	hash, err := ticketing.GenerateHash([]byte(deviceSecret))
	if err != nil {
		return "", "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = &scanSession{
		eventID:    eventID,
		operatorID: operatorID,
		deviceHash: hash,
		state:      GuardIdle,
		lastSeen:   s.now(),
	}
	return sessionID, deviceSecret, nil
}

// CheckDevice verifies a device secret against the session's stored hash.
func (s *SessionService) CheckDevice(sessionID, deviceSecret string) error {
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	s.mu.Unlock()

	if !ok {
		return status.ErrSessionNotFound
	}
	if !ticketing.CompareHash([]byte(sess.deviceHash), []byte(deviceSecret)) {
		return status.ErrDeviceSecret
	}
	return nil
}

// Info returns the event and operator a session belongs to.
func (s *SessionService) Info(sessionID string) (eventID, operatorID string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return "", "", status.ErrSessionNotFound
	}
	return sess.eventID, sess.operatorID, nil
}

// Accept decides whether a scan proceeds. A scan is dropped while a
// validation is in flight, and when the same payload reappears inside the
// debounce window. On acceptance the guard atomically turns Busy and records
// payload and timestamp.
//
// A Busy guard older than the validation timeout is force-cleared here: the
// backend call is itself bounded by that timeout, so such a guard can only be
// the residue of a hung call, and without this clearing the session would be
// stuck with no recovery path.
func (s *SessionService) Accept(sessionID, payload string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return status.ErrSessionNotFound
	}

	now := s.now()
	sess.lastSeen = now

	if sess.state == GuardBusy {
		if now.Sub(sess.busySince) <= s.busyTimeout {
			return status.ErrScanInFlight
		}
		slog.Warn("force-clearing stuck busy guard",
			"session_id", sessionID,
			"busy_for", now.Sub(sess.busySince),
		)
		sess.state = GuardIdle
		sess.lastPayload = ""
	}

	if sess.lastPayload != "" && payload == sess.lastPayload && now.Sub(sess.lastAcceptedAt) < s.window {
		return status.ErrDuplicateScan
	}

	sess.state = GuardBusy
	sess.lastPayload = payload
	sess.lastAcceptedAt = now
	sess.busySince = now
	return nil
}

// Release marks the outcome of the last accepted scan as presented and
// dismissed. The last payload is cleared too, so an immediate rescan of the
// same code goes through.
func (s *SessionService) Release(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return status.ErrSessionNotFound
	}

	sess.state = GuardIdle
	sess.lastPayload = ""
	sess.lastSeen = s.now()
	return nil
}

// Close removes a session.
func (s *SessionService) Close(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}

// Counts returns the number of open and busy sessions.
func (s *SessionService) Counts() (open, busy int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	open = len(s.sessions)
	for _, sess := range s.sessions {
		if sess.state == GuardBusy {
			busy++
		}
	}
	return open, busy
}

// CleanupIdleSessions drops sessions idle for longer than the session TTL.
func (s *SessionService) CleanupIdleSessions(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			cutoff := s.now().Add(-s.ttl)
			for id, sess := range s.sessions {
				if sess.lastSeen.Before(cutoff) {
					delete(s.sessions, id)
					slog.Info("expired idle scanning session", "session_id", id, "event_id", sess.eventID)
				}
			}
			s.mu.Unlock()
		}
	}
}
