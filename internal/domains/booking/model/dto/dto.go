package dto

import (
	"database/sql"
	"fmt"
	"lodge/internal/domains/booking/model"
	"lodge/shared"
	"lodge/shared/constant"
	gDto "lodge/shared/dto"
	gModel "lodge/shared/model"
	"lodge/shared/timezone"
	"time"

	"github.com/google/uuid"
)

type CreateBookingRequest struct {
	RoomID      string  `json:"room_id"      validate:"required,uuid4"`
	GuestName   string  `json:"guest_name"   validate:"required,max=100"`
	GuestEmail  string  `json:"guest_email"  validate:"omitempty,email"`
	GuestPhone  string  `json:"guest_phone"  validate:"omitempty,max=30"`
	CheckIn     string  `json:"check_in"     validate:"required,stay_date"`
	CheckOut    string  `json:"check_out"    validate:"required,stay_date"`
	TotalAmount float64 `json:"total_amount" validate:"omitempty,gte=0"`
}

// Interval parses the requested stay dates and enforces checkIn < checkOut.
func (c *CreateBookingRequest) Interval() (checkIn, checkOut time.Time, err error) {
	checkIn, err = timezone.Parse(constant.StayDateFormat, c.CheckIn)
	if err != nil {
		return checkIn, checkOut, fmt.Errorf("invalid check_in date: %w", err)
	}

	checkOut, err = timezone.Parse(constant.StayDateFormat, c.CheckOut)
	if err != nil {
		return checkIn, checkOut, fmt.Errorf("invalid check_out date: %w", err)
	}

	if !checkIn.Before(checkOut) {
		return checkIn, checkOut, fmt.Errorf("check_in %s must be before check_out %s", c.CheckIn, c.CheckOut)
	}

	return checkIn, checkOut, nil
}

func (c *CreateBookingRequest) ToModel(hotelID, user string, checkIn, checkOut, holdExpiresAt time.Time) model.Booking {
	return model.Booking{
		ID:            uuid.NewString(),
		HotelID:       hotelID,
		RoomID:        c.RoomID,
		GuestName:     c.GuestName,
		GuestEmail:    c.GuestEmail,
		GuestPhone:    c.GuestPhone,
		CheckIn:       checkIn,
		CheckOut:      checkOut,
		Status:        model.StatusPending,
		TotalAmount:   c.TotalAmount,
		HoldExpiresAt: sql.NullTime{Time: holdExpiresAt, Valid: true},
		Metadata: gModel.Metadata{
			CreatedAt:  timezone.Now(),
			ModifiedAt: timezone.Now(),
			CreatedBy:  user,
			ModifiedBy: user,
		},
	}
}

type TransitionBookingRequest struct {
	Target string `json:"target" validate:"required,oneof=pending confirmed checked_in checked_out cancelled"`
}

type RecordPaymentRequest struct {
	Amount float64 `json:"amount" validate:"required,gt=0"`
}

type BookingResponse struct {
	ID          string  `json:"id"`
	HotelID     string  `json:"hotel_id"`
	RoomID      string  `json:"room_id"`
	ChannelID   string  `json:"channel_id,omitempty"`
	GuestName   string  `json:"guest_name"`
	GuestEmail  string  `json:"guest_email,omitempty"`
	GuestPhone  string  `json:"guest_phone,omitempty"`
	CheckIn     string  `json:"check_in"`
	CheckOut    string  `json:"check_out"`
	Status      string  `json:"status"`
	TotalAmount float64 `json:"total_amount"`
	PaidAmount  float64 `json:"paid_amount"`
	DueBalance  float64 `json:"due_balance"`
	ExternalRef string  `json:"external_ref,omitempty"`
	gDto.Metadata
}

func (r *BookingResponse) FromModel(mod model.Booking) {
	r.ID = mod.ID
	r.HotelID = mod.HotelID
	r.RoomID = mod.RoomID
	r.ChannelID = mod.ChannelID.String
	r.GuestName = mod.GuestName
	r.GuestEmail = mod.GuestEmail
	r.GuestPhone = mod.GuestPhone
	r.CheckIn = mod.CheckIn.Format(constant.StayDateFormat)
	r.CheckOut = mod.CheckOut.Format(constant.StayDateFormat)
	r.Status = mod.Status
	r.TotalAmount = mod.TotalAmount
	r.PaidAmount = mod.PaidAmount
	r.DueBalance = mod.DueBalance()
	r.ExternalRef = mod.ExternalRef.String
	r.Metadata.FromModel(mod.Metadata)
}

type GetBookingsResponse struct {
	Bookings  []BookingResponse `json:"bookings"`
	TotalPage int               `json:"total_page"`
	TotalData int               `json:"total_data"`
}

func (r *GetBookingsResponse) FromModels(models []model.Booking, totalData, limit int) {
	r.TotalData = totalData
	r.TotalPage = shared.CalculateTotalPage(totalData, limit)

	r.Bookings = make([]BookingResponse, len(models))
	for i, mod := range models {
		r.Bookings[i].FromModel(mod)
	}
}
