package dto

import (
	"lodge/internal/domains/room/model"
	"lodge/shared"
	gDto "lodge/shared/dto"
	gModel "lodge/shared/model"
	"lodge/shared/timezone"

	"github.com/google/uuid"
)

type CreateRoomRequest struct {
	Number    string  `json:"number"     validate:"required,max=20"`
	RoomType  string  `json:"room_type"  validate:"required,max=50"`
	BasePrice float64 `json:"base_price" validate:"required,gte=0"`
	Capacity  int     `json:"capacity"   validate:"omitempty,min=1"`
}

func (c *CreateRoomRequest) ToModel(hotelID, user string) model.Room {
	capacity := c.Capacity
	if capacity == 0 {
		capacity = 1
	}

	return model.Room{
		ID:        uuid.NewString(),
		HotelID:   hotelID,
		Number:    c.Number,
		RoomType:  c.RoomType,
		BasePrice: c.BasePrice,
		Capacity:  capacity,
		Status:    model.StatusAvailable,
		Active:    true,
		Metadata: gModel.Metadata{
			CreatedAt:  timezone.Now(),
			ModifiedAt: timezone.Now(),
			CreatedBy:  user,
			ModifiedBy: user,
		},
	}
}

type UpdateRoomRequest struct {
	Number    string   `db:"number"     json:"number"     validate:"omitempty,max=20"`
	RoomType  string   `db:"room_type"  json:"room_type"  validate:"omitempty,max=50"`
	BasePrice *float64 `db:"base_price" json:"base_price" validate:"omitempty,gte=0"`
	Capacity  *int     `db:"capacity"   json:"capacity"   validate:"omitempty,min=1"`
	Status    string   `db:"status"     json:"status"     validate:"omitempty,oneof=available booked dirty maintenance"`
	Active    *bool    `db:"active"     json:"active"     validate:"omitempty"`
}

type RoomResponse struct {
	ID        string  `json:"id"`
	HotelID   string  `json:"hotel_id"`
	Number    string  `json:"number"`
	RoomType  string  `json:"room_type"`
	BasePrice float64 `json:"base_price"`
	Capacity  int     `json:"capacity"`
	Status    string  `json:"status"`
	Active    bool    `json:"active"`
	gDto.Metadata
}

func (r *RoomResponse) FromModel(model model.Room) {
	r.ID = model.ID
	r.HotelID = model.HotelID
	r.Number = model.Number
	r.RoomType = model.RoomType
	r.BasePrice = model.BasePrice
	r.Capacity = model.Capacity
	r.Status = model.Status
	r.Active = model.Active
	r.Metadata.FromModel(model.Metadata)
}

type GetRoomsResponse struct {
	Rooms     []RoomResponse `json:"rooms"`
	TotalPage int            `json:"total_page"`
	TotalData int            `json:"total_data"`
}

func (r *GetRoomsResponse) FromModels(models []model.Room, totalData, limit int) {
	r.TotalData = totalData
	r.TotalPage = shared.CalculateTotalPage(totalData, limit)

	r.Rooms = make([]RoomResponse, len(models))
	for i, mod := range models {
		r.Rooms[i].FromModel(mod)
	}
}

type AvailabilityResponse struct {
	RoomID    string `json:"room_id"`
	From      string `json:"from"`
	To        string `json:"to"`
	Available bool   `json:"available"`
}
