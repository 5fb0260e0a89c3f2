package ticketing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"sync"
	"time"

	"ticket-scanner/models"
)

// ValidationRequest is the request shape of the backend's validate operation.
type ValidationRequest struct {
	TicketID string `json:"ticketId"`
	EventID  string `json:"eventId"`
	UserID   string `json:"userId"`
}

// ValidationResponse covers both the success and the structured-failure shape
// of the validate operation. The backend may also fail the HTTP call outright
// with a free-text message; that path surfaces as an error from ValidateTicket.
type ValidationResponse struct {
	Success    bool              `json:"success"`
	Ticket     *TicketResult     `json:"ticket,omitempty"`
	TicketType *TicketTypeResult `json:"ticketType,omitempty"`
	Event      *EventResult      `json:"event,omitempty"`
	ErrorType  string            `json:"errorType,omitempty"`
	Message    string            `json:"message,omitempty"`
}

type TicketResult struct {
	Status   string `json:"status,omitempty"`
	Quantity int    `json:"quantity,omitempty"`
}

type TicketTypeResult struct {
	Name string `json:"name,omitempty"`
}

type EventResult struct {
	ID string `json:"id"`
}

// Client talks to the remote ticketing backend.
type Client struct {
	// baseURL is the base url of the ticketing backend.
	baseURL string

	// clientID is this gateway's client id at the backend.
	clientID string

	// clientKey is the client key used during authentication.
	clientKey string

	// hmacKey signs every request body.
	hmacKey string

	// accessToken authenticates requests after connect.
	accessToken string

	// mu guards accessToken.
	mu sync.Mutex

	// toggleTokenRefresher notifies the token refresher to renew the token.
	toggleTokenRefresher chan struct{}

	// hc is the http client.
	hc *http.Client
}

func newClient(_ context.Context, cfg *Config) *Client {
	return &Client{
		baseURL:   cfg.BaseURL,
		clientID:  cfg.ClientID,
		clientKey: cfg.ClientKey,
		hmacKey:   cfg.HMACKey,

		// buffered so request paths never block on the refresher.
		toggleTokenRefresher: make(chan struct{}, 1),

		hc: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// notifyAccessTokenExpired renews the access token periodically and whenever
// a request observes a 401, with exponential backoff on failures.
func (c *Client) notifyAccessTokenExpired(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Minute)
	for {
		select {
		case <-ctx.Done():
			ticker.Stop()
			return

		case <-ticker.C:

		case <-c.toggleTokenRefresher:
			log.Println("notifyAccessTokenExpired: token refresh requested")
		}

		backOff := time.Second

	Retry:
		for {
			token, err := c.connect(ctx)
			switch err {
			case nil:
				c.setAccessToken(token)

				break Retry

			default:
				log.Printf("notifyAccessTokenExpired: %v", err)
				select {
				case <-ctx.Done():
					return

				case <-time.After(backOff):
					backOff *= 2
				}
			}
		}
	}
}

func (c *Client) setAccessToken(accessToken string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accessToken = accessToken
}

func (c *Client) getAccessToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accessToken
}

// connect authenticates this gateway with the ticketing backend.
func (c *Client) connect(ctx context.Context) (string, error) {
	number, err := randomNumber()
	if err != nil {
		return "", fmt.Errorf("connect: randomNumber: %v", err)
	}

	body := fmt.Sprintf(`{"requestId":%q,"clientId":%q,"clientSecret":%q}`, number, c.clientID, c.clientKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/api/v1/auth/partner"), bytes.NewReader([]byte(body)))
	if err != nil {
		return "", fmt.Errorf("connect: http.NewReq: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("SignedHash", Hmac256([]byte(body), []byte(c.hmacKey)))

	resp, err := c.hc.Do(req)
	if err != nil {
		return "", fmt.Errorf("connect: http.Do: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("connect: unexpected status: %d", resp.StatusCode)
	}

	var reply struct {
		AccessToken string `json:"accessToken"`
		TokenType   string `json:"tokenType"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return "", fmt.Errorf("connect: json.Decode: %v", err)
	}
	if reply.AccessToken == "" {
		return "", errors.New("connect: empty access token")
	}

	return fmt.Sprintf("%s %s", reply.TokenType, reply.AccessToken), nil
}

func (c *Client) endpoint(path string) string {
	base, _ := url.Parse(c.baseURL)
	return fmt.Sprintf("%s%s", base.String(), path)
}

// do performs a signed request and decodes a 2xx response into out. Non-2xx
// responses become errors carrying the backend's own message verbatim: the
// legacy backend rejects some validations this way instead of returning the
// structured-failure shape, and the classifier pattern-matches those messages.
func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	var reader io.Reader
	signed := []byte(path)
	if body != nil {
		reader = bytes.NewReader(body)
		signed = body
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), reader)
	if err != nil {
		return fmt.Errorf("ticketing: http.NewReq: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("SignedHash", Hmac256(signed, []byte(c.hmacKey)))
	if token := c.getAccessToken(); token != "" {
		req.Header.Set("Authorization", token)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("ticketing: http.Do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		select {
		case c.toggleTokenRefresher <- struct{}{}:
		default:
		}
		return errors.New("ticketing: 401 => Unauthorized")
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("ticketing: server error: status %d", resp.StatusCode)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		var fail struct {
			Message string `json:"message"`
			Error   string `json:"error"`
		}
		raw, _ := io.ReadAll(resp.Body)
		if err := json.Unmarshal(raw, &fail); err == nil {
			if fail.Message != "" {
				return errors.New(fail.Message)
			}
			if fail.Error != "" {
				return errors.New(fail.Error)
			}
		}
		return fmt.Errorf("ticketing: unexpected status: %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("ticketing: json.Decode: %v", err)
	}
	return nil
}

// ValidateTicket asks the backend to mark a ticket as used.
func (c *Client) ValidateTicket(ctx context.Context, vr *ValidationRequest) (*ValidationResponse, error) {
	body, err := json.Marshal(vr)
	if err != nil {
		return nil, fmt.Errorf("validateTicket: json.Marshal: %v", err)
	}

	var reply ValidationResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/tickets/validate", body, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

// GetEvent fetches a single event.
func (c *Client) GetEvent(ctx context.Context, eventID string) (*models.Event, error) {
	var reply models.Event
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/v1/events/%s", url.PathEscape(eventID)), nil, &reply); err != nil {
		return nil, fmt.Errorf("getEvent: %w", err)
	}
	return &reply, nil
}

// GetAvailability fetches the validated/purchased counters of an event.
func (c *Client) GetAvailability(ctx context.Context, eventID string) (*models.Availability, error) {
	var reply models.Availability
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/v1/events/%s/availability", url.PathEscape(eventID)), nil, &reply); err != nil {
		return nil, fmt.Errorf("getAvailability: %w", err)
	}
	reply.EventID = eventID
	return &reply, nil
}

// SearchTickets looks attendee tickets up by email or CPF.
func (c *Client) SearchTickets(ctx context.Context, eventID, email, cpf string) ([]models.AttendeeTicket, error) {
	q := url.Values{}
	q.Set("eventId", eventID)
	if email != "" {
		q.Set("email", email)
	}
	if cpf != "" {
		q.Set("cpf", cpf)
	}

	var reply []models.AttendeeTicket
	if err := c.do(ctx, http.MethodGet, "/api/v1/tickets/search?"+q.Encode(), nil, &reply); err != nil {
		return nil, fmt.Errorf("searchTickets: %w", err)
	}
	return reply, nil
}

// GetEventTickets fetches every ticket of an event for the offline snapshot.
func (c *Client) GetEventTickets(ctx context.Context, eventID string) ([]models.CachedTicket, error) {
	var reply []models.CachedTicket
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/v1/events/%s/tickets", url.PathEscape(eventID)), nil, &reply); err != nil {
		return nil, fmt.Errorf("getEventTickets: %w", err)
	}
	return reply, nil
}

// GetEventLists fetches the guest lists of an event.
func (c *Client) GetEventLists(ctx context.Context, eventID string) ([]models.GuestList, error) {
	var reply []models.GuestList
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/v1/events/%s/lists", url.PathEscape(eventID)), nil, &reply); err != nil {
		return nil, fmt.Errorf("getEventLists: %w", err)
	}
	return reply, nil
}

// GetListByValidationURL resolves a guest list from its validation url.
func (c *Client) GetListByValidationURL(ctx context.Context, validationURL string) (*models.GuestList, error) {
	var reply models.GuestList
	if err := c.do(ctx, http.MethodGet, "/api/v1/lists/"+url.PathEscape(validationURL), nil, &reply); err != nil {
		return nil, fmt.Errorf("getListByValidationURL: %w", err)
	}
	return &reply, nil
}

// GetListParticipants fetches the subscribers of a guest list.
func (c *Client) GetListParticipants(ctx context.Context, listID string) ([]models.ListParticipant, error) {
	var reply []models.ListParticipant
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/v1/lists/%s/participants", url.PathEscape(listID)), nil, &reply); err != nil {
		return nil, fmt.Errorf("getListParticipants: %w", err)
	}
	return reply, nil
}

// CheckInParticipant marks a guest list subscriber as arrived.
func (c *Client) CheckInParticipant(ctx context.Context, listID, participantID, userID string) error {
	body := fmt.Sprintf(`{"listId":%q,"participantId":%q,"userId":%q}`, listID, participantID, userID)
	if err := c.do(ctx, http.MethodPost, "/api/v1/lists/check-in", []byte(body), nil); err != nil {
		return fmt.Errorf("checkInParticipant: %w", err)
	}
	return nil
}

// GetValidators fetches the validator roster of an event. Owner only.
func (c *Client) GetValidators(ctx context.Context, eventID, userID string) ([]models.Validator, error) {
	q := url.Values{}
	q.Set("userId", userID)

	var reply []models.Validator
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/v1/events/%s/validators?%s", url.PathEscape(eventID), q.Encode()), nil, &reply); err != nil {
		return nil, fmt.Errorf("getValidators: %w", err)
	}
	return reply, nil
}

// InviteValidator invites an email address to validate an event.
func (c *Client) InviteValidator(ctx context.Context, eventID, email, userID string) error {
	body := fmt.Sprintf(`{"eventId":%q,"email":%q,"userId":%q}`, eventID, email, userID)
	if err := c.do(ctx, http.MethodPost, "/api/v1/validators/invite", []byte(body), nil); err != nil {
		return fmt.Errorf("inviteValidator: %w", err)
	}
	return nil
}

// RemoveValidator revokes a validator.
func (c *Client) RemoveValidator(ctx context.Context, validatorID, userID string) error {
	body := fmt.Sprintf(`{"validatorId":%q,"userId":%q}`, validatorID, userID)
	if err := c.do(ctx, http.MethodPost, "/api/v1/validators/remove", []byte(body), nil); err != nil {
		return fmt.Errorf("removeValidator: %w", err)
	}
	return nil
}
