package model

import (
	"database/sql"
	gModel "lodge/shared/model"
)

const (
	AlertTableName  = "channel_alerts"
	AlertEntityName = "channel_alert"

	FieldAlertID        = "id"
	FieldAlertHotelID   = "hotel_id"
	FieldAlertChannelID = "channel_id"
	FieldAlertRoomID    = "room_id"
	FieldAlertKind      = "kind"
	FieldAlertMessage   = "message"
	FieldAlertResolved  = "resolved"
)

const (
	AlertKindOverbooking  = "overbooking"
	AlertKindDegraded     = "degraded"
	AlertKindPushRejected = "push_rejected"
)

type ChannelAlert struct {
	ID        string         `db:"id"`
	HotelID   string         `db:"hotel_id"`
	ChannelID string         `db:"channel_id"`
	RoomID    sql.NullString `db:"room_id"`
	Kind      string         `db:"kind"`
	Message   string         `db:"message"`
	Resolved  bool           `db:"resolved"`
	gModel.Metadata
}
