package model

import gModel "lodge/shared/model"

const (
	TableName  = "channel_mappings"
	EntityName = "mapping"

	FieldID              = "id"
	FieldHotelID         = "hotel_id"
	FieldRoomID          = "room_id"
	FieldChannelID       = "channel_id"
	FieldExternalRoomID  = "external_room_id"
	FieldAdjustmentType  = "adjustment_type"
	FieldAdjustmentValue = "adjustment_value"
	FieldIsActive        = "is_active"
)

const (
	AdjustmentPercentage = "percentage"
	AdjustmentFixed      = "fixed"
)

type Mapping struct {
	ID              string  `db:"id"`
	HotelID         string  `db:"hotel_id"`
	RoomID          string  `db:"room_id"`
	ChannelID       string  `db:"channel_id"`
	ExternalRoomID  string  `db:"external_room_id"`
	AdjustmentType  string  `db:"adjustment_type"`
	AdjustmentValue float64 `db:"adjustment_value"`
	IsActive        bool    `db:"is_active"`
	gModel.Metadata
}
