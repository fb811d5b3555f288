package model_test

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"lodge/internal/domains/booking/model"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    string
		to      string
		allowed bool
	}{
		{name: "pending to confirmed", from: model.StatusPending, to: model.StatusConfirmed, allowed: true},
		{name: "pending to cancelled", from: model.StatusPending, to: model.StatusCancelled, allowed: true},
		{name: "pending to checked in skips confirmation", from: model.StatusPending, to: model.StatusCheckedIn, allowed: false},
		{name: "confirmed to checked in", from: model.StatusConfirmed, to: model.StatusCheckedIn, allowed: true},
		{name: "confirmed to cancelled", from: model.StatusConfirmed, to: model.StatusCancelled, allowed: true},
		{name: "checked in to checked out", from: model.StatusCheckedIn, to: model.StatusCheckedOut, allowed: true},
		{name: "checked in to cancelled", from: model.StatusCheckedIn, to: model.StatusCancelled, allowed: false},
		{name: "checked out is terminal", from: model.StatusCheckedOut, to: model.StatusConfirmed, allowed: false},
		{name: "checked out cannot cancel", from: model.StatusCheckedOut, to: model.StatusCancelled, allowed: false},
		{name: "cancelled is terminal", from: model.StatusCancelled, to: model.StatusPending, allowed: false},
		{name: "unknown status", from: "limbo", to: model.StatusConfirmed, allowed: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, model.CanTransition(tt.from, tt.to))
		})
	}
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, model.IsTerminal(model.StatusCheckedOut))
	assert.True(t, model.IsTerminal(model.StatusCancelled))
	assert.False(t, model.IsTerminal(model.StatusPending))
	assert.False(t, model.IsTerminal(model.StatusConfirmed))
	assert.False(t, model.IsTerminal(model.StatusCheckedIn))
}

func TestIsActive(t *testing.T) {
	assert.True(t, model.IsActive(model.StatusConfirmed))
	assert.True(t, model.IsActive(model.StatusCheckedIn))
	assert.False(t, model.IsActive(model.StatusPending))
	assert.False(t, model.IsActive(model.StatusCancelled))
	assert.False(t, model.IsActive(model.StatusCheckedOut))
}

func TestDueBalance(t *testing.T) {
	booking := model.Booking{TotalAmount: 1200, PaidAmount: 700}

	assert.InDelta(t, 500, booking.DueBalance(), 0.001)
}

func TestHoldExpired(t *testing.T) {
	now := time.Date(2026, time.January, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		booking model.Booking
		expired bool
	}{
		{
			name: "pending hold past expiry",
			booking: model.Booking{
				Status:        model.StatusPending,
				HoldExpiresAt: sql.NullTime{Time: now.Add(-time.Minute), Valid: true},
			},
			expired: true,
		},
		{
			name: "pending hold still live",
			booking: model.Booking{
				Status:        model.StatusPending,
				HoldExpiresAt: sql.NullTime{Time: now.Add(time.Minute), Valid: true},
			},
			expired: false,
		},
		{
			name: "confirmed booking never expires",
			booking: model.Booking{
				Status:        model.StatusConfirmed,
				HoldExpiresAt: sql.NullTime{Time: now.Add(-time.Hour), Valid: true},
			},
			expired: false,
		},
		{
			name:    "pending without hold window",
			booking: model.Booking{Status: model.StatusPending},
			expired: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expired, tt.booking.HoldExpired(now))
		})
	}
}
