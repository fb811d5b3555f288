package dto

import (
	"lodge/internal/domains/mapping/model"
	"lodge/shared"
	gDto "lodge/shared/dto"
	gModel "lodge/shared/model"
	"lodge/shared/timezone"

	"github.com/google/uuid"
)

type CreateMappingRequest struct {
	RoomID          string  `json:"room_id"          validate:"required,uuid"`
	ChannelID       string  `json:"channel_id"       validate:"required,uuid"`
	ExternalRoomID  string  `json:"external_room_id" validate:"required,max=100"`
	AdjustmentType  string  `json:"adjustment_type"  validate:"required,oneof=percentage fixed"`
	AdjustmentValue float64 `json:"adjustment_value"`
}

func (c *CreateMappingRequest) ToModel(hotelID, user string) model.Mapping {
	return model.Mapping{
		ID:              uuid.NewString(),
		HotelID:         hotelID,
		RoomID:          c.RoomID,
		ChannelID:       c.ChannelID,
		ExternalRoomID:  c.ExternalRoomID,
		AdjustmentType:  c.AdjustmentType,
		AdjustmentValue: c.AdjustmentValue,
		IsActive:        true,
		Metadata: gModel.Metadata{
			CreatedAt:  timezone.Now(),
			ModifiedAt: timezone.Now(),
			CreatedBy:  user,
			ModifiedBy: user,
		},
	}
}

type UpdateMappingRequest struct {
	ExternalRoomID  string   `db:"external_room_id" json:"external_room_id" validate:"omitempty,max=100"`
	AdjustmentType  string   `db:"adjustment_type"  json:"adjustment_type"  validate:"omitempty,oneof=percentage fixed"`
	AdjustmentValue *float64 `db:"adjustment_value" json:"adjustment_value" validate:"omitempty"`
	IsActive        *bool    `db:"is_active"        json:"is_active"        validate:"omitempty"`
}

type MappingResponse struct {
	ID              string  `json:"id"`
	HotelID         string  `json:"hotel_id"`
	RoomID          string  `json:"room_id"`
	ChannelID       string  `json:"channel_id"`
	ExternalRoomID  string  `json:"external_room_id"`
	AdjustmentType  string  `json:"adjustment_type"`
	AdjustmentValue float64 `json:"adjustment_value"`
	IsActive        bool    `json:"is_active"`
	gDto.Metadata
}

func (r *MappingResponse) FromModel(model model.Mapping) {
	r.ID = model.ID
	r.HotelID = model.HotelID
	r.RoomID = model.RoomID
	r.ChannelID = model.ChannelID
	r.ExternalRoomID = model.ExternalRoomID
	r.AdjustmentType = model.AdjustmentType
	r.AdjustmentValue = model.AdjustmentValue
	r.IsActive = model.IsActive
	r.Metadata.FromModel(model.Metadata)
}

type GetMappingsResponse struct {
	Mappings  []MappingResponse `json:"mappings"`
	TotalPage int               `json:"total_page"`
	TotalData int               `json:"total_data"`
}

func (r *GetMappingsResponse) FromModels(models []model.Mapping, totalData, limit int) {
	r.TotalData = totalData
	r.TotalPage = shared.CalculateTotalPage(totalData, limit)

	r.Mappings = make([]MappingResponse, len(models))
	for i, mod := range models {
		r.Mappings[i].FromModel(mod)
	}
}
