package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticket-scanner/config"
	"ticket-scanner/internal/status"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestSessionService(t *testing.T) (*SessionService, *fakeClock) {
	t.Helper()

	clock := &fakeClock{now: time.Date(2026, 8, 1, 20, 0, 0, 0, time.UTC)}
	svc := NewSessionService(&config.Config{
		DebounceWindow:    3 * time.Second,
		ValidationTimeout: 15 * time.Second,
		SessionTTL:        30 * time.Minute,
	})
	svc.now = clock.Now
	return svc, clock
}

func TestSessionService_OpenAndInfo(t *testing.T) {
	svc, _ := newTestSessionService(t)

	sessionID, secret, err := svc.Open("evt-1", "op-1")
	require.NoError(t, err)
	assert.NotEmpty(t, sessionID)
	assert.NotEmpty(t, secret)

	eventID, operatorID, err := svc.Info(sessionID)
	require.NoError(t, err)
	assert.Equal(t, "evt-1", eventID)
	assert.Equal(t, "op-1", operatorID)
}

func TestSessionService_InfoUnknownSession(t *testing.T) {
	svc, _ := newTestSessionService(t)

	_, _, err := svc.Info("missing")
	assert.ErrorIs(t, err, status.ErrSessionNotFound)
}

func TestSessionService_CheckDevice(t *testing.T) {
	svc, _ := newTestSessionService(t)

	sessionID, secret, err := svc.Open("evt-1", "op-1")
	require.NoError(t, err)

	assert.NoError(t, svc.CheckDevice(sessionID, secret))
	assert.ErrorIs(t, svc.CheckDevice(sessionID, "wrong"), status.ErrDeviceSecret)
	assert.ErrorIs(t, svc.CheckDevice("missing", secret), status.ErrSessionNotFound)
}

// A scan arriving while a validation is in flight is dropped, whatever its
// payload.
func TestSessionService_BusyDropsAllScans(t *testing.T) {
	svc, _ := newTestSessionService(t)

	sessionID, _, err := svc.Open("evt-1", "op-1")
	require.NoError(t, err)

	require.NoError(t, svc.Accept(sessionID, "t1"))
	assert.ErrorIs(t, svc.Accept(sessionID, "t1"), status.ErrScanInFlight)
	assert.ErrorIs(t, svc.Accept(sessionID, "t2"), status.ErrScanInFlight)
}

// The same payload reappearing inside the debounce window is dropped even
// when the guard is idle again.
func TestSessionService_DuplicateInsideWindow(t *testing.T) {
	svc, clock := newTestSessionService(t)

	sessionID, _, err := svc.Open("evt-1", "op-1")
	require.NoError(t, err)

	require.NoError(t, svc.Accept(sessionID, "t3"))
	svc.sessions[sessionID].state = GuardIdle

	clock.Advance(500 * time.Millisecond)
	assert.ErrorIs(t, svc.Accept(sessionID, "t3"), status.ErrDuplicateScan)
}

func TestSessionService_DifferentPayloadInsideWindow(t *testing.T) {
	svc, clock := newTestSessionService(t)

	sessionID, _, err := svc.Open("evt-1", "op-1")
	require.NoError(t, err)

	require.NoError(t, svc.Accept(sessionID, "t3"))
	svc.sessions[sessionID].state = GuardIdle

	clock.Advance(500 * time.Millisecond)
	assert.NoError(t, svc.Accept(sessionID, "t4"))
}

func TestSessionService_SamePayloadAfterWindow(t *testing.T) {
	svc, clock := newTestSessionService(t)

	sessionID, _, err := svc.Open("evt-1", "op-1")
	require.NoError(t, err)

	require.NoError(t, svc.Accept(sessionID, "t3"))
	svc.sessions[sessionID].state = GuardIdle

	clock.Advance(3 * time.Second)
	assert.NoError(t, svc.Accept(sessionID, "t3"))
}

// Dismissing an outcome clears the last payload too: rescanning the same
// code right after dismissal must go through.
func TestSessionService_ReleaseResetsDebounce(t *testing.T) {
	svc, clock := newTestSessionService(t)

	sessionID, _, err := svc.Open("evt-1", "op-1")
	require.NoError(t, err)

	require.NoError(t, svc.Accept(sessionID, "t1"))
	require.NoError(t, svc.Release(sessionID))

	clock.Advance(100 * time.Millisecond)
	assert.NoError(t, svc.Accept(sessionID, "t1"))
}

// A guard stuck busy longer than the validation timeout can only be the
// residue of a hung call and must not lock the session forever.
func TestSessionService_StuckBusyForceCleared(t *testing.T) {
	svc, clock := newTestSessionService(t)

	sessionID, _, err := svc.Open("evt-1", "op-1")
	require.NoError(t, err)

	require.NoError(t, svc.Accept(sessionID, "t1"))
	assert.ErrorIs(t, svc.Accept(sessionID, "t2"), status.ErrScanInFlight)

	clock.Advance(16 * time.Second)
	assert.NoError(t, svc.Accept(sessionID, "t2"))
}

func TestSessionService_Counts(t *testing.T) {
	svc, _ := newTestSessionService(t)

	s1, _, err := svc.Open("evt-1", "op-1")
	require.NoError(t, err)
	_, _, err = svc.Open("evt-1", "op-2")
	require.NoError(t, err)

	require.NoError(t, svc.Accept(s1, "t1"))

	open, busy := svc.Counts()
	assert.Equal(t, 2, open)
	assert.Equal(t, 1, busy)
}

func TestSessionService_Close(t *testing.T) {
	svc, _ := newTestSessionService(t)

	sessionID, _, err := svc.Open("evt-1", "op-1")
	require.NoError(t, err)

	svc.Close(sessionID)
	assert.ErrorIs(t, svc.Accept(sessionID, "t1"), status.ErrSessionNotFound)
}
