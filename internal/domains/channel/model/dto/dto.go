package dto

import (
	"lodge/internal/domains/channel/model"
	"lodge/shared"
	gDto "lodge/shared/dto"
	gModel "lodge/shared/model"
	"lodge/shared/timezone"

	"github.com/google/uuid"
)

type CreateChannelRequest struct {
	Name        string `json:"name"        validate:"required,max=100"`
	Provider    string `json:"provider"    validate:"required,oneof=booking_com airbnb expedia agoda ical"`
	Endpoint    string `json:"endpoint"    validate:"required,url"`
	Credentials string `json:"credentials" validate:"required"`
}

func (c *CreateChannelRequest) ToModel(hotelID, user string) model.Channel {
	return model.Channel{
		ID:          uuid.NewString(),
		HotelID:     hotelID,
		Name:        c.Name,
		Provider:    c.Provider,
		Endpoint:    c.Endpoint,
		Credentials: c.Credentials,
		IsActive:    true,
		Health:      model.HealthHealthy,
		Metadata: gModel.Metadata{
			CreatedAt:  timezone.Now(),
			ModifiedAt: timezone.Now(),
			CreatedBy:  user,
			ModifiedBy: user,
		},
	}
}

type UpdateChannelRequest struct {
	Name        string `db:"name"        json:"name"        validate:"omitempty,max=100"`
	Endpoint    string `db:"endpoint"    json:"endpoint"    validate:"omitempty,url"`
	Credentials string `db:"credentials" json:"credentials" validate:"omitempty"`
	IsActive    *bool  `db:"is_active"   json:"is_active"   validate:"omitempty"`
}

// ChannelResponse never carries credentials. They are write-only secrets.
type ChannelResponse struct {
	ID       string `json:"id"`
	HotelID  string `json:"hotel_id"`
	Name     string `json:"name"`
	Provider string `json:"provider"`
	Endpoint string `json:"endpoint"`
	IsActive bool   `json:"is_active"`
	Health   string `json:"health"`
	gDto.Metadata
}

func (r *ChannelResponse) FromModel(model model.Channel) {
	r.ID = model.ID
	r.HotelID = model.HotelID
	r.Name = model.Name
	r.Provider = model.Provider
	r.Endpoint = model.Endpoint
	r.IsActive = model.IsActive
	r.Health = model.Health
	r.Metadata.FromModel(model.Metadata)
}

type GetChannelsResponse struct {
	Channels  []ChannelResponse `json:"channels"`
	TotalPage int               `json:"total_page"`
	TotalData int               `json:"total_data"`
}

func (r *GetChannelsResponse) FromModels(models []model.Channel, totalData, limit int) {
	r.TotalData = totalData
	r.TotalPage = shared.CalculateTotalPage(totalData, limit)

	r.Channels = make([]ChannelResponse, len(models))
	for i, mod := range models {
		r.Channels[i].FromModel(mod)
	}
}
