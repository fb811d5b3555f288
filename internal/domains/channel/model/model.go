package model

import gModel "lodge/shared/model"

const (
	TableName  = "channels"
	EntityName = "channel"

	FieldID          = "id"
	FieldHotelID     = "hotel_id"
	FieldName        = "name"
	FieldProvider    = "provider"
	FieldEndpoint    = "endpoint"
	FieldCredentials = "credentials"
	FieldIsActive    = "is_active"
	FieldHealth      = "health"
)

const (
	ProviderBookingCom = "booking_com"
	ProviderAirbnb     = "airbnb"
	ProviderExpedia    = "expedia"
	ProviderAgoda      = "agoda"
	ProviderICal       = "ical"
)

// Channel health. A degraded channel keeps accepting tasks but is flagged for
// operator attention; it returns to healthy after a successful delivery.
const (
	HealthHealthy  = "healthy"
	HealthDegraded = "degraded"
)

type Channel struct {
	ID          string `db:"id"`
	HotelID     string `db:"hotel_id"`
	Name        string `db:"name"`
	Provider    string `db:"provider"`
	Endpoint    string `db:"endpoint"`
	Credentials string `db:"credentials"`
	IsActive    bool   `db:"is_active"`
	Health      string `db:"health"`
	gModel.Metadata
}
