package model

import (
	"database/sql"
	"lodge/shared/model"
	"time"
)

const (
	TableName  = "bookings"
	EntityName = "booking"

	FieldID            = "id"
	FieldHotelID       = "hotel_id"
	FieldRoomID        = "room_id"
	FieldChannelID     = "channel_id"
	FieldGuestName     = "guest_name"
	FieldGuestEmail    = "guest_email"
	FieldGuestPhone    = "guest_phone"
	FieldCheckIn       = "check_in"
	FieldCheckOut      = "check_out"
	FieldStatus        = "status"
	FieldTotalAmount   = "total_amount"
	FieldPaidAmount    = "paid_amount"
	FieldExternalRef   = "external_ref"
	FieldHoldExpiresAt = "hold_expires_at"
)

// Booking lifecycle states. CheckedOut and Cancelled are terminal.
const (
	StatusPending    = "pending"
	StatusConfirmed  = "confirmed"
	StatusCheckedIn  = "checked_in"
	StatusCheckedOut = "checked_out"
	StatusCancelled  = "cancelled"
)

// Booking is one reservation of one room over [CheckIn, CheckOut). CheckOut is
// exclusive. ChannelID is null for direct bookings; ExternalRef is the
// channel's booking reference and dedupes inbound events.
type Booking struct {
	ID            string         `db:"id"`
	HotelID       string         `db:"hotel_id"`
	RoomID        string         `db:"room_id"`
	ChannelID     sql.NullString `db:"channel_id"`
	GuestName     string         `db:"guest_name"`
	GuestEmail    string         `db:"guest_email"`
	GuestPhone    string         `db:"guest_phone"`
	CheckIn       time.Time      `db:"check_in"`
	CheckOut      time.Time      `db:"check_out"`
	Status        string         `db:"status"`
	TotalAmount   float64        `db:"total_amount"`
	PaidAmount    float64        `db:"paid_amount"`
	ExternalRef   sql.NullString `db:"external_ref"`
	HoldExpiresAt sql.NullTime   `db:"hold_expires_at"`
	model.Metadata
}

// transitions is the full state machine. A target absent from the current
// state's slice is illegal.
var transitions = map[string][]string{
	StatusPending:    {StatusConfirmed, StatusCancelled},
	StatusConfirmed:  {StatusCheckedIn, StatusCancelled},
	StatusCheckedIn:  {StatusCheckedOut},
	StatusCheckedOut: {},
	StatusCancelled:  {},
}

// CanTransition reports whether moving from one status to another is legal.
func CanTransition(from, to string) bool {
	allowed, ok := transitions[from]
	if !ok {
		return false
	}

	for _, target := range allowed {
		if target == to {
			return true
		}
	}

	return false
}

// IsTerminal reports whether a status accepts no further transitions.
func IsTerminal(status string) bool {
	return len(transitions[status]) == 0 && status != ""
}

// IsActive reports whether a booking in this status occupies its interval for
// the purposes of the non-overlap invariant.
func IsActive(status string) bool {
	return status == StatusConfirmed || status == StatusCheckedIn
}

// DueBalance is the amount still owed on the booking. Surfaced as a warning at
// check-out, never enforced as a blocking error.
func (b *Booking) DueBalance() float64 {
	return b.TotalAmount - b.PaidAmount
}

// HoldExpired reports whether a pending hold has lapsed at the given instant.
func (b *Booking) HoldExpired(now time.Time) bool {
	return b.Status == StatusPending && b.HoldExpiresAt.Valid && !now.Before(b.HoldExpiresAt.Time)
}
