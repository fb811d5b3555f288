package repository_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	"lodge/infras/otel/mocks"
	"lodge/infras/postgres"
	"lodge/internal/domains/booking/model"
	"lodge/internal/domains/booking/repository"
	"lodge/shared/failure"
	gModel "lodge/shared/model"
	"lodge/shared/timezone"
)

func TestBookingRepository_InsertTx(t *testing.T) {
	db, dbMock, err := sqlmock.New()
	assert.NoError(t, err)

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	conn := &postgres.Connection{Read: sqlxDB, Write: sqlxDB}
	repo := repository.New(conn, mocks.NewOtel())

	now := timezone.Now()
	booking := model.Booking{
		ID:          "booking-1",
		HotelID:     "hotel-1",
		RoomID:      "room-1",
		GuestName:   "Channel Guest",
		CheckIn:     timezone.Today(),
		CheckOut:    timezone.Today().AddDate(0, 0, 2),
		Status:      model.StatusConfirmed,
		ChannelID:   sql.NullString{String: "channel-1", Valid: true},
		ExternalRef: sql.NullString{String: "OTA-1001", Valid: true},
		Metadata: gModel.Metadata{
			CreatedAt:  now,
			ModifiedAt: now,
			CreatedBy:  "system:ingest",
			ModifiedBy: "system:ingest",
		},
	}

	t.Run("duplicate external reference maps to the duplicate failure", func(t *testing.T) {
		dbMock.ExpectBegin()
		dbMock.ExpectExec("INSERT INTO bookings").
			WillReturnError(&pq.Error{Code: "23505", Constraint: "idx_bookings_channel_external_ref"})

		tx, err := sqlxDB.Beginx()
		assert.NoError(t, err)

		err = repo.InsertTx(context.Background(), tx, booking)

		assert.ErrorIs(t, err, failure.ErrDuplicateExternalRef)
	})

	t.Run("other database errors pass through", func(t *testing.T) {
		dbMock.ExpectBegin()
		dbMock.ExpectExec("INSERT INTO bookings").
			WillReturnError(&pq.Error{Code: "53300"})

		tx, err := sqlxDB.Beginx()
		assert.NoError(t, err)

		err = repo.InsertTx(context.Background(), tx, booking)

		assert.Error(t, err)
		assert.NotErrorIs(t, err, failure.ErrDuplicateExternalRef)
	})
}
