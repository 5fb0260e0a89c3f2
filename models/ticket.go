package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Event struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	OwnerID   string    `json:"owner_id"`
	StartDate time.Time `json:"start_date"`
	Venue     string    `json:"venue"`
	Status    string    `json:"status"` // draft, published, started, ended
}

// Availability is the validated/purchased counter pair shown in the scanner
// header.
type Availability struct {
	EventID          string `json:"event_id"`
	ValidatedTickets int    `json:"validated_tickets"`
	PurchasedTickets int    `json:"purchased_tickets"`
}

// AttendeeTicket is one row of an email/CPF search result.
type AttendeeTicket struct {
	TicketID    string          `json:"ticket_id"`
	HolderName  string          `json:"holder_name"`
	HolderEmail string          `json:"holder_email"`
	HolderCPF   string          `json:"holder_cpf"`
	TypeName    string          `json:"type_name"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	Status      string          `json:"status"` // valid, used, refunded, cancelled
}

// CachedTicket is the offline snapshot of a ticket, kept in Redis so a venue
// with degraded connectivity can keep validating.
type CachedTicket struct {
	ID          string          `json:"id"`
	EventID     string          `json:"event_id"`
	TypeName    string          `json:"type_name"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	Status      string          `json:"status"`
	HolderEmail string          `json:"holder_email,omitempty"`
}

// PendingValidation is a validation performed against the offline snapshot,
// queued for replay once the backend is reachable again.
type PendingValidation struct {
	TicketID    string    `json:"ticket_id"`
	EventID     string    `json:"event_id"`
	OperatorID  string    `json:"operator_id"`
	ValidatedAt time.Time `json:"validated_at"`
}

type GuestList struct {
	ID            string `json:"id"`
	EventID       string `json:"event_id"`
	Name          string `json:"name"`
	Type          string `json:"type"`
	ValidationURL string `json:"validation_url"`
	Subscribers   int    `json:"subscribers"`
	CheckedIn     int    `json:"checked_in"`
}

type ListParticipant struct {
	ID          string     `json:"id"`
	ListID      string     `json:"list_id"`
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	CheckedIn   bool       `json:"checked_in"`
	CheckedInAt *time.Time `json:"checked_in_at,omitempty"`
}

type Validator struct {
	ID        string    `json:"id"`
	EventID   string    `json:"event_id"`
	Email     string    `json:"email"`
	UserID    string    `json:"user_id,omitempty"`
	Status    string    `json:"status"` // invited, active
	InvitedAt time.Time `json:"invited_at"`
}
