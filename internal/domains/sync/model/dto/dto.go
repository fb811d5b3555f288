package dto

import (
	"fmt"
	"lodge/internal/domains/sync/model"
	"lodge/shared"
	"lodge/shared/constant"
	gDto "lodge/shared/dto"
	"lodge/shared/failure"
	"time"
)

const (
	EventTypeBooked    = "booked"
	EventTypeCancelled = "cancelled"
)

// ChannelEvent is an inbound notification from an external channel, arriving
// over the webhook or the events topic. ExternalRef is the channel's own
// booking reference and drives idempotent ingestion.
type ChannelEvent struct {
	EventType      string  `json:"event_type"       validate:"required,oneof=booked cancelled"`
	ExternalRef    string  `json:"external_ref"     validate:"required,max=100"`
	ExternalRoomID string  `json:"external_room_id" validate:"required,max=100"`
	GuestName      string  `json:"guest_name"       validate:"omitempty,max=100"`
	GuestEmail     string  `json:"guest_email"      validate:"omitempty,email"`
	CheckIn        string  `json:"check_in"         validate:"required,stay_date"`
	CheckOut       string  `json:"check_out"        validate:"required,stay_date"`
	TotalAmount    float64 `json:"total_amount"     validate:"omitempty,gte=0"`
}

// Interval parses the stay dates and enforces check-in before check-out.
func (e *ChannelEvent) Interval() (from, to time.Time, err error) {
	from, err = time.Parse(constant.StayDateFormat, e.CheckIn)
	if err != nil {
		return from, to, failure.BadRequestFromString("invalid check_in date") // nolint:wrapcheck
	}

	to, err = time.Parse(constant.StayDateFormat, e.CheckOut)
	if err != nil {
		return from, to, failure.BadRequestFromString("invalid check_out date") // nolint:wrapcheck
	}

	if !from.Before(to) {
		return from, to, failure.BadRequestFromString("check_in must be before check_out") // nolint:wrapcheck
	}

	return from, to, nil
}

type TriggerSyncRequest struct {
	RoomID string `json:"room_id" validate:"omitempty,uuid"`
}

type SyncJobResponse struct {
	JobID     string `json:"job_id"`
	TaskCount int    `json:"task_count"`
}

type JobStatusResponse struct {
	JobID     string `json:"job_id"`
	Pending   int    `json:"pending"`
	Inflight  int    `json:"inflight"`
	Delivered int    `json:"delivered"`
	Failed    int    `json:"failed"`
}

func (r *JobStatusResponse) Done() bool {
	return r.Pending == 0 && r.Inflight == 0
}

type AlertResponse struct {
	ID        string `json:"id"`
	HotelID   string `json:"hotel_id"`
	ChannelID string `json:"channel_id"`
	RoomID    string `json:"room_id,omitempty"`
	Kind      string `json:"kind"`
	Message   string `json:"message"`
	Resolved  bool   `json:"resolved"`
	gDto.Metadata
}

func (r *AlertResponse) FromModel(model model.ChannelAlert) {
	r.ID = model.ID
	r.HotelID = model.HotelID
	r.ChannelID = model.ChannelID
	r.RoomID = model.RoomID.String
	r.Kind = model.Kind
	r.Message = model.Message
	r.Resolved = model.Resolved
	r.Metadata.FromModel(model.Metadata)
}

type GetAlertsResponse struct {
	Alerts    []AlertResponse `json:"alerts"`
	TotalPage int             `json:"total_page"`
	TotalData int             `json:"total_data"`
}

func (r *GetAlertsResponse) FromModels(models []model.ChannelAlert, totalData, limit int) {
	r.TotalData = totalData
	r.TotalPage = shared.CalculateTotalPage(totalData, limit)

	r.Alerts = make([]AlertResponse, len(models))
	for i, mod := range models {
		r.Alerts[i].FromModel(mod)
	}
}

// EventKey labels an inbound event for logs without leaking guest details.
func (e *ChannelEvent) EventKey() string {
	return fmt.Sprintf("%s:%s", e.EventType, e.ExternalRef)
}
