package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"lodge/config"
	"lodge/infras/channelgw"
	"lodge/infras/otel"
	channelModel "lodge/internal/domains/channel/model"
	channelRepo "lodge/internal/domains/channel/repository"
	"lodge/internal/domains/sync/model"
	"lodge/internal/domains/sync/repository"
	"lodge/shared"
	"lodge/shared/cache"
	"lodge/shared/constant"
	"lodge/shared/timezone"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const rateCacheKey = "sync:rate:channel"

// Dispatcher drains the sync task queue: it claims due tasks, pushes them to
// their channels, and schedules retries with exponential backoff. Multiple
// dispatchers may run at once; the claim query partitions the work.
type Dispatcher interface {
	Run(ctx context.Context)
}

type dispatcherImpl struct {
	taskRepo    repository.Task
	alertRepo   repository.Alert
	channelRepo channelRepo.Channel
	gateway     channelgw.Client
	cfg         *config.Config
	cache       cache.RedisCache
	otel        otel.Otel
}

func NewDispatcher(
	taskRepo repository.Task,
	alertRepo repository.Alert,
	channelRepo channelRepo.Channel,
	gateway channelgw.Client,
	cfg *config.Config,
	cache cache.RedisCache,
	otel otel.Otel,
) Dispatcher {
	return &dispatcherImpl{
		taskRepo:    taskRepo,
		alertRepo:   alertRepo,
		channelRepo: channelRepo,
		gateway:     gateway,
		cfg:         cfg,
		cache:       cache,
		otel:        otel,
	}
}

func (d *dispatcherImpl) Run(ctx context.Context) {
	log.Info().
		Int("workers", d.cfg.Sync.Workers).
		Int("pollIntervalMs", d.cfg.Sync.PollIntervalMS).
		Msg("sync dispatcher started")

	tasks := make(chan model.SyncTask)

	var wg sync.WaitGroup

	for i := 0; i < d.cfg.Sync.Workers; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for task := range tasks {
				d.process(ctx, task)
			}
		}()
	}

	ticker := time.NewTicker(time.Duration(d.cfg.Sync.PollIntervalMS) * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			close(tasks)
			wg.Wait()

			log.Info().Msg("sync dispatcher stopped")

			return
		case <-ticker.C:
			lease := time.Duration(d.cfg.Sync.InflightLeaseSec) * time.Second

			claimed, err := d.taskRepo.Claim(ctx, d.cfg.Sync.ClaimBatchSize, timezone.Now(), lease)
			if err != nil {
				if ctx.Err() == nil {
					log.Error().Err(err).Msg("failed to claim sync tasks")
				}

				continue
			}

			for _, task := range claimed {
				select {
				case tasks <- task:
				case <-ctx.Done():
					// Claimed but never handed off. Return it now instead of
					// waiting out the inflight lease.
					if err := d.taskRepo.Release(context.WithoutCancel(ctx), task.ID, timezone.Now()); err != nil {
						log.Error().Err(err).Str("taskId", task.ID).Msg("failed to release sync task on shutdown")
					}
				}
			}
		}
	}
}

func (d *dispatcherImpl) process(ctx context.Context, task model.SyncTask) {
	ctx, scope := d.otel.NewScope(ctx, constant.OtelDispatcherScopeName, constant.OtelDispatcherScopeName+".process")
	defer scope.End()

	scope.SetAttributes(map[string]any{
		"task.id":   task.ID,
		"task.kind": task.Kind,
	})

	channel, err := d.channelRepo.Get(ctx, shared.FilterByID(task.ChannelID, channelModel.FieldID, channelModel.TableName))
	if err != nil {
		log.Error().Err(err).Str("taskId", task.ID).Msg("failed to load channel for sync task")
		d.retry(ctx, task, err)

		return
	}

	if channel.ID == constant.Empty || !channel.IsActive {
		log.Warn().Str("taskId", task.ID).Str("channelId", task.ChannelID).Msg("dropping sync task for inactive channel")

		if err := d.taskRepo.MarkFailed(ctx, task.ID, "channel inactive"); err != nil {
			log.Error().Err(err).Str("taskId", task.ID).Msg("failed to mark sync task failed")
		}

		return
	}

	if !d.admitRate(ctx, channel.ID) {
		next := timezone.Now().Add(time.Duration(d.cfg.Sync.PollIntervalMS) * time.Millisecond * 10)

		if err := d.taskRepo.Release(ctx, task.ID, next); err != nil {
			log.Error().Err(err).Str("taskId", task.ID).Msg("failed to release rate-capped sync task")
		}

		return
	}

	var payload model.TaskPayload
	if err := json.Unmarshal(task.Payload, &payload); err != nil {
		log.Error().Err(err).Str("taskId", task.ID).Msg("sync task payload is malformed")

		if err := d.taskRepo.MarkFailed(ctx, task.ID, "malformed payload: "+err.Error()); err != nil {
			log.Error().Err(err).Str("taskId", task.ID).Msg("failed to mark sync task failed")
		}

		return
	}

	target := channelgw.Target{
		ChannelID:   channel.ID,
		Provider:    channel.Provider,
		Endpoint:    channel.Endpoint,
		Credentials: channel.Credentials,
	}

	update := channelgw.ARIUpdate{
		ExternalRoomID: payload.ExternalRoomID,
		From:           payload.From,
		To:             payload.To,
		Available:      payload.Available,
		Price:          payload.Price,
	}

	err = d.gateway.PushARI(ctx, target, update)
	if err == nil {
		d.delivered(ctx, task, channel)

		return
	}

	var rejected *channelgw.RejectedError
	if errors.As(err, &rejected) {
		d.reject(ctx, task, rejected)

		return
	}

	d.retry(ctx, task, err)
}

func (d *dispatcherImpl) delivered(ctx context.Context, task model.SyncTask, channel channelModel.Channel) {
	// The push already happened; losing this update to a shutdown cancel
	// would leave the task inflight until its lease lapses.
	ctx = context.WithoutCancel(ctx)

	if err := d.taskRepo.MarkDelivered(ctx, task.ID); err != nil {
		log.Error().Err(err).Str("taskId", task.ID).Msg("failed to mark sync task delivered")

		return
	}

	if channel.Health == channelModel.HealthDegraded {
		d.setChannelHealth(ctx, channel.ID, channelModel.HealthHealthy)

		log.Info().Str("channelId", channel.ID).Msg("channel recovered after successful delivery")
	}
}

// reject handles a permanent 4xx refusal. The task is dead on arrival and
// retrying would only repeat the refusal, so it fails immediately with an
// alert for the operator.
func (d *dispatcherImpl) reject(ctx context.Context, task model.SyncTask, rejected *channelgw.RejectedError) {
	ctx = context.WithoutCancel(ctx)

	log.Error().
		Str("taskId", task.ID).
		Str("channelId", task.ChannelID).
		Int("status", rejected.StatusCode).
		Msg("channel rejected sync task")

	if err := d.taskRepo.MarkFailed(ctx, task.ID, rejected.Error()); err != nil {
		log.Error().Err(err).Str("taskId", task.ID).Msg("failed to mark sync task failed")
	}

	d.raiseAlert(ctx, task, model.AlertKindPushRejected, fmt.Sprintf("channel rejected %s push with status %d", task.Kind, rejected.StatusCode))
}

// retry reschedules a transient failure with exponential backoff. Hitting the
// attempt ceiling fails the task and degrades the channel.
func (d *dispatcherImpl) retry(ctx context.Context, task model.SyncTask, cause error) {
	ctx = context.WithoutCancel(ctx)

	attempts := task.Attempts + 1

	if attempts >= d.cfg.Sync.MaxAttempts {
		log.Error().
			Str("taskId", task.ID).
			Str("channelId", task.ChannelID).
			Int("attempts", attempts).
			Msg("sync task exhausted retries")

		if err := d.taskRepo.MarkFailed(ctx, task.ID, cause.Error()); err != nil {
			log.Error().Err(err).Str("taskId", task.ID).Msg("failed to mark sync task failed")
		}

		d.setChannelHealth(ctx, task.ChannelID, channelModel.HealthDegraded)
		d.raiseAlert(ctx, task, model.AlertKindDegraded, fmt.Sprintf("channel degraded after %d failed delivery attempts", attempts))

		return
	}

	next := timezone.Now().Add(d.backoff(attempts))

	if err := d.taskRepo.Reschedule(ctx, task.ID, attempts, next, cause.Error()); err != nil {
		log.Error().Err(err).Str("taskId", task.ID).Msg("failed to reschedule sync task")
	}
}

// backoff doubles per attempt starting from the configured base: base, 2base,
// 4base and so on.
func (d *dispatcherImpl) backoff(attempt int) time.Duration {
	base := time.Duration(d.cfg.Sync.BackoffBaseSeconds) * time.Second

	return base << (attempt - 1)
}

// admitRate enforces the per-channel push budget with a fixed one-minute
// counter window in redis. A cache outage fails open: delivery matters more
// than the cap.
func (d *dispatcherImpl) admitRate(ctx context.Context, channelID string) bool {
	count, err := d.cache.Increment(ctx, shared.BuildCacheKey(rateCacheKey, channelID), 60)
	if err != nil {
		log.Error().Err(err).Str("channelId", channelID).Msg("failed to check channel rate cap")

		return true
	}

	return count <= int64(d.cfg.Sync.ChannelRatePerMin)
}

func (d *dispatcherImpl) setChannelHealth(ctx context.Context, channelID, health string) {
	updatedFields := map[string]any{
		channelModel.FieldHealth: health,
		constant.FieldModifiedAt: timezone.Now(),
		constant.FieldModifiedBy: "system:dispatcher",
	}

	filter := shared.FilterByID(channelID, channelModel.FieldID, channelModel.TableName)

	if err := d.channelRepo.Update(ctx, updatedFields, filter); err != nil {
		log.Error().Err(err).Str("channelId", channelID).Msg("failed to update channel health")
	}
}

func (d *dispatcherImpl) raiseAlert(ctx context.Context, task model.SyncTask, kind, message string) {
	alert := newAlert(task.HotelID, task.ChannelID, task.RoomID, kind, message)

	if err := d.alertRepo.Insert(ctx, alert); err != nil {
		log.Error().Err(err).Str("channelId", task.ChannelID).Msg("failed to raise channel alert")
	}
}
