package ticketing

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	pubnub "github.com/pubnub/go/v7"
)

type Config struct {
	BaseURL   string `json:"baseUrl" mapstructure:"base_url"`
	ClientID  string `json:"clientId" mapstructure:"client_id"`
	ClientKey string `json:"clientKey" mapstructure:"client_key"`
	HMACKey   string `json:"hmacKey" mapstructure:"hmac_key"`

	PNSubKey  string `json:"pn_subkey" mapstructure:"pn_subkey"`
	PNUUID    string `json:"pn_uuid" mapstructure:"pn_uuid"`
	PNChannel string `json:"pn_channel" mapstructure:"pn_channel"`
}

// New returns a connected backend client. When no client key is configured
// the client stays unauthenticated, which suits local development against an
// open backend.
func New(ctx context.Context, cfg *Config) (*Client, error) {
	client := newClient(ctx, cfg)

	if cfg.ClientKey != "" {
		token, err := client.connect(ctx)
		if err != nil {
			return nil, err
		}
		client.setAccessToken(token)

		go client.notifyAccessTokenExpired(ctx)
	}

	return client, nil
}

// TicketStatusUpdate is a lifecycle push from the backend: a ticket was
// refunded, cancelled or validated elsewhere. The offline snapshot consumes
// these so a cached ticket cannot be admitted after the backend revoked it.
type TicketStatusUpdate struct {
	TicketID string `json:"ticketId"`
	EventID  string `json:"eventId"`
	Status   string `json:"status"`
}

// StatusFeed subscribes to the backend's ticket-status PubNub channel.
type StatusFeed struct {
	pn       *pubnub.PubNub
	lis      *pubnub.Listener
	ch       chan *TicketStatusUpdate
	channels []string
}

// NewStatusFeed subscribes to the backend's status channel. Returns nil when
// no subscribe key is configured; the gateway then runs without live
// snapshot invalidation.
func NewStatusFeed(ctx context.Context, cfg *Config) (*StatusFeed, error) {
	if cfg.PNSubKey == "" {
		return nil, nil
	}

	pnCfg := pubnub.NewConfigWithUserId(pubnub.UserId(cfg.PNUUID))
	pnCfg.SubscribeKey = cfg.PNSubKey

	feed := &StatusFeed{
		pn:       pubnub.NewPubNub(pnCfg),
		lis:      pubnub.NewListener(),
		channels: []string{cfg.PNChannel},
	}
	feed.pn.AddListener(feed.lis)

	go feed.processSubscription(ctx)

	feed.pn.Subscribe().Channels(feed.channels).Execute()

	return feed, nil
}

// SetUpdateChannel sets the channel status updates are delivered on.
func (f *StatusFeed) SetUpdateChannel(ch chan *TicketStatusUpdate) {
	f.ch = ch
}

// Close unsubscribes from the status channel.
func (f *StatusFeed) Close() {
	f.pn.Unsubscribe().Channels(f.channels).Execute()
}

func (f *StatusFeed) processSubscription(ctx context.Context) {
	for {
		select {
		case st := <-f.lis.Status:
			switch st.Category {
			case pubnub.PNConnectedCategory:
				log.Println("status feed: connected to pubnub")

			case pubnub.PNReconnectedCategory:
				log.Println("status feed: reconnected to pubnub")

			case pubnub.PNDisconnectedCategory:
				log.Println("status feed: disconnected from pubnub")

			default:
				log.Printf("status feed: pubnub status category %v", st.Category)
			}

		case message := <-f.lis.Message:
			update, err := decodeStatusUpdate(message.Message)
			if err != nil {
				log.Printf("status feed: %v", err)
				continue
			}
			if f.ch != nil {
				f.ch <- update
			}

		case <-ctx.Done():
			log.Println("status feed: close subscribe")
			return
		}
	}
}

func decodeStatusUpdate(message any) (*TicketStatusUpdate, error) {
	var update TicketStatusUpdate

	switch msg := message.(type) {
	case string:
		dec := json.NewDecoder(strings.NewReader(msg))
		if err := dec.Decode(&update); err != nil {
			return nil, fmt.Errorf("decodeStatusUpdate: %v", err)
		}

	default:
		raw, err := json.Marshal(msg)
		if err != nil {
			return nil, fmt.Errorf("decodeStatusUpdate: %v", err)
		}
		if err := json.Unmarshal(raw, &update); err != nil {
			return nil, fmt.Errorf("decodeStatusUpdate: %v", err)
		}
	}

	if update.TicketID == "" {
		return nil, fmt.Errorf("decodeStatusUpdate: message without ticketId")
	}
	return &update, nil
}
