package model

import "lodge/shared/model"

const (
	TableName  = "rooms"
	EntityName = "room"

	FieldID        = "id"
	FieldHotelID   = "hotel_id"
	FieldNumber    = "number"
	FieldRoomType  = "room_type"
	FieldBasePrice = "base_price"
	FieldCapacity  = "capacity"
	FieldStatus    = "status"
	FieldActive    = "active"
)

// Room status values. Status is a derived display cache: the overlap invariant
// is always decided against the booking ledger, never against this column.
// Dirty and maintenance are staff-set flags and win for display.
const (
	StatusAvailable   = "available"
	StatusBooked      = "booked"
	StatusDirty       = "dirty"
	StatusMaintenance = "maintenance"
)

type Room struct {
	ID        string  `db:"id"`
	HotelID   string  `db:"hotel_id"`
	Number    string  `db:"number"`
	RoomType  string  `db:"room_type"`
	BasePrice float64 `db:"base_price"`
	Capacity  int     `db:"capacity"`
	Status    string  `db:"status"`
	Active    bool    `db:"active"`
	model.Metadata
}

// StaffControlled reports whether the status is a staff-set flag that
// RecomputeStatus must not overwrite.
func StaffControlled(status string) bool {
	return status == StatusDirty || status == StatusMaintenance
}
