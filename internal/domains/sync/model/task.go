package model

import (
	"database/sql"
	gModel "lodge/shared/model"
	"time"

	"github.com/jmoiron/sqlx/types"
)

const (
	TaskTableName  = "sync_tasks"
	TaskEntityName = "sync_task"

	FieldTaskID            = "id"
	FieldTaskSeq           = "seq"
	FieldTaskJobID         = "job_id"
	FieldTaskHotelID       = "hotel_id"
	FieldTaskRoomID        = "room_id"
	FieldTaskChannelID     = "channel_id"
	FieldTaskKind          = "kind"
	FieldTaskPayload       = "payload"
	FieldTaskStatus        = "status"
	FieldTaskAttempts      = "attempts"
	FieldTaskNextAttemptAt = "next_attempt_at"
	FieldTaskLastError     = "last_error"
)

const (
	TaskKindARIUpdate  = "ari_update"
	TaskKindARIRetract = "ari_retract"
)

const (
	TaskStatusPending   = "pending"
	TaskStatusInflight  = "inflight"
	TaskStatusDelivered = "delivered"
	TaskStatusFailed    = "failed"
)

// SyncTask is one unit of outbound channel work. Seq is assigned by the
// database and orders tasks; the dispatcher never delivers a task while an
// earlier undelivered task exists for the same (room, channel) pair.
type SyncTask struct {
	ID            string         `db:"id"`
	Seq           int64          `db:"seq"`
	JobID         sql.NullString `db:"job_id"`
	HotelID       string         `db:"hotel_id"`
	RoomID        string         `db:"room_id"`
	ChannelID     string         `db:"channel_id"`
	Kind          string         `db:"kind"`
	Payload       types.JSONText `db:"payload"`
	Status        string         `db:"status"`
	Attempts      int            `db:"attempts"`
	NextAttemptAt time.Time      `db:"next_attempt_at"`
	LastError     sql.NullString `db:"last_error"`
	gModel.Metadata
}

// JobCounts aggregates task statuses for one manual sync job.
type JobCounts struct {
	Pending   int `db:"pending"`
	Inflight  int `db:"inflight"`
	Delivered int `db:"delivered"`
	Failed    int `db:"failed"`
}

// TaskPayload is the serialized body of a task. Both kinds share the shape:
// an update closes or reprices dates, a retract reopens them.
type TaskPayload struct {
	ExternalRoomID string    `json:"external_room_id"`
	From           time.Time `json:"from"`
	To             time.Time `json:"to"`
	Available      bool      `json:"available"`
	Price          float64   `json:"price"`
}
