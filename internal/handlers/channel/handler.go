package channel

import (
	"context"
	"lodge/infras/otel"
	"lodge/internal/domains/channel/model"
	"lodge/internal/domains/channel/model/dto"
	"lodge/internal/domains/channel/service"
	mappingModel "lodge/internal/domains/mapping/model"
	mappingDto "lodge/internal/domains/mapping/model/dto"
	mappingService "lodge/internal/domains/mapping/service"
	syncModel "lodge/internal/domains/sync/model"
	syncDto "lodge/internal/domains/sync/model/dto"
	syncService "lodge/internal/domains/sync/service"
	"lodge/shared/constant"
	gDto "lodge/shared/dto"
	"lodge/shared/validator"
	"lodge/transport/http/response"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rs/zerolog/log"
)

type Handler struct {
	service    service.Channel
	mappingSvc mappingService.Mapping
	syncSvc    syncService.Sync
	otel       otel.Otel
}

func New(service service.Channel, mappingSvc mappingService.Mapping, syncSvc syncService.Sync, otel otel.Otel) Handler {
	return Handler{
		service:    service,
		mappingSvc: mappingSvc,
		syncSvc:    syncSvc,
		otel:       otel,
	}
}

func (handler *Handler) Router(router chi.Router) {
	router.Route("/channels", func(routerGroup chi.Router) {
		routerGroup.Post("/", handler.CreateChannel)
		routerGroup.Get("/", handler.GetChannels)
		routerGroup.Get("/alerts", handler.GetAlerts)
		routerGroup.Post("/alerts/{id}/resolve", handler.ResolveAlert)
		routerGroup.Get("/{id}", handler.GetChannelByID)
		routerGroup.Patch("/{id}", handler.UpdateChannel)
		routerGroup.Delete("/{id}", handler.DeleteChannel)
		routerGroup.Post("/{id}/mappings", handler.CreateMapping)
		routerGroup.Get("/{id}/mappings", handler.GetMappings)
		routerGroup.Post("/{id}/sync", handler.TriggerManualSync)
		routerGroup.Get("/{id}/sync/{jobId}", handler.GetSyncJobStatus)
	})
}

// WebhookRouter exposes the inbound event endpoint. Channels authenticate
// with their own credentials out of band, so it mounts outside the staff JWT
// group.
func (handler *Handler) WebhookRouter(router chi.Router) {
	router.Post("/channels/{id}/events", handler.IngestEvent)
}

// CreateChannel connects a new distribution channel.
// @Summary Create a channel
// @Tags Channel
// @Accept json
// @Produce json
// @Param request body dto.CreateChannelRequest true "Create Channel Request"
// @Success 201 {object} response.Data[dto.ChannelResponse]
// @Failure 400 {object} response.Error
// @Router /v1/channels [post]
// @Security BearerAuth
func (handler *Handler) CreateChannel(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".CreateChannel")
	defer scope.End()

	req := dto.CreateChannelRequest{}

	if err := validator.Validate(request.Body, &req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate request body")

		response.WithError(writer, err)

		return
	}

	channel, err := handler.service.Create(ctx, req)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to create channel")

		response.WithError(writer, err)

		return
	}

	response.WithJSON(writer, http.StatusCreated, channel)
}

// GetChannels lists the hotel's channels.
// @Summary Get all channels
// @Tags Channel
// @Produce json
// @Param pagination query gDto.QueryParams false "Pagination parameters"
// @Success 200 {object} response.Data[dto.GetChannelsResponse]
// @Router /v1/channels [get]
// @Security BearerAuth
func (handler *Handler) GetChannels(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetChannels")
	defer scope.End()

	queryParams := gDto.QueryParams{}
	queryParams.FromRequest(r, true)

	channels, err := handler.service.GetAll(ctx, queryParams, hotelFilter(ctx, model.FieldHotelID, model.TableName))
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get channels")

		response.WithError(w, err)

		return
	}

	response.WithJSON(w, http.StatusOK, channels)
}

// GetChannelByID retrieves a single channel. Credentials are never returned.
// @Summary Get channel by ID
// @Tags Channel
// @Produce json
// @Param id path string true "Channel ID"
// @Success 200 {object} response.Data[dto.ChannelResponse]
// @Failure 404 {object} response.Error
// @Router /v1/channels/{id} [get]
// @Security BearerAuth
func (handler *Handler) GetChannelByID(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetChannelByID")
	defer scope.End()

	id := chi.URLParam(r, constant.RequestParamID)

	channel, err := handler.service.Get(ctx, id)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get channel")

		response.WithError(w, err)

		return
	}

	response.WithJSON(w, http.StatusOK, channel)
}

// UpdateChannel updates channel attributes, including credential rotation.
// @Summary Update a channel
// @Tags Channel
// @Accept json
// @Produce json
// @Param id path string true "Channel ID"
// @Param request body dto.UpdateChannelRequest true "Update Channel Request"
// @Success 200 {object} response.Message
// @Failure 404 {object} response.Error
// @Router /v1/channels/{id} [patch]
// @Security BearerAuth
func (handler *Handler) UpdateChannel(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".UpdateChannel")
	defer scope.End()

	id := chi.URLParam(r, constant.RequestParamID)

	req := dto.UpdateChannelRequest{}
	if err := validator.Validate(r.Body, &req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate request body")

		response.WithError(w, err)

		return
	}

	if err := handler.service.Update(ctx, req, id); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to update channel")

		response.WithError(w, err)

		return
	}

	response.WithMessage(w, http.StatusOK, "Channel updated successfully")
}

// DeleteChannel disconnects a channel.
// @Summary Disconnect a channel
// @Tags Channel
// @Produce json
// @Param id path string true "Channel ID"
// @Success 200 {object} response.Message
// @Failure 404 {object} response.Error
// @Router /v1/channels/{id} [delete]
// @Security BearerAuth
func (handler *Handler) DeleteChannel(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".DeleteChannel")
	defer scope.End()

	id := chi.URLParam(r, constant.RequestParamID)

	if err := handler.service.Delete(ctx, id); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to delete channel")

		response.WithError(w, err)

		return
	}

	response.WithMessage(w, http.StatusOK, "Channel disconnected successfully")
}

// CreateMapping links one of the hotel's rooms to the channel's room.
// @Summary Create a room mapping
// @Tags Channel
// @Accept json
// @Produce json
// @Param id path string true "Channel ID"
// @Param request body mappingDto.CreateMappingRequest true "Create Mapping Request"
// @Success 201 {object} response.Data[mappingDto.MappingResponse]
// @Failure 409 {object} response.Error "Room or external room already mapped"
// @Router /v1/channels/{id}/mappings [post]
// @Security BearerAuth
func (handler *Handler) CreateMapping(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".CreateMapping")
	defer scope.End()

	channelID := chi.URLParam(r, constant.RequestParamID)

	req := mappingDto.CreateMappingRequest{}
	if err := validator.Validate(r.Body, &req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate request body")

		response.WithError(w, err)

		return
	}

	req.ChannelID = channelID

	mapping, err := handler.mappingSvc.Create(ctx, req)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to create mapping")

		response.WithError(w, err)

		return
	}

	response.WithJSON(w, http.StatusCreated, mapping)
}

// GetMappings lists a channel's room mappings.
// @Summary Get channel mappings
// @Tags Channel
// @Produce json
// @Param id path string true "Channel ID"
// @Param pagination query gDto.QueryParams false "Pagination parameters"
// @Success 200 {object} response.Data[mappingDto.GetMappingsResponse]
// @Router /v1/channels/{id}/mappings [get]
// @Security BearerAuth
func (handler *Handler) GetMappings(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetMappings")
	defer scope.End()

	channelID := chi.URLParam(r, constant.RequestParamID)

	queryParams := gDto.QueryParams{}
	queryParams.FromRequest(r, true)

	filterGroup := hotelFilter(ctx, mappingModel.FieldHotelID, mappingModel.TableName)
	filterGroup.Filters = append(filterGroup.Filters, gDto.Filter{
		Field:    mappingModel.FieldChannelID,
		Operator: gDto.FilterOperatorEq,
		Value:    channelID,
		Table:    mappingModel.TableName,
	})

	mappings, err := handler.mappingSvc.GetAll(ctx, queryParams, filterGroup)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get mappings")

		response.WithError(w, err)

		return
	}

	response.WithJSON(w, http.StatusOK, mappings)
}

// TriggerManualSync enqueues a full calendar push for every room the channel
// maps.
// @Summary Trigger manual channel sync
// @Tags Channel
// @Produce json
// @Param id path string true "Channel ID"
// @Success 202 {object} response.Data[syncDto.SyncJobResponse]
// @Failure 404 {object} response.Error
// @Router /v1/channels/{id}/sync [post]
// @Security BearerAuth
func (handler *Handler) TriggerManualSync(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".TriggerManualSync")
	defer scope.End()

	channelID := chi.URLParam(r, constant.RequestParamID)

	job, err := handler.syncSvc.TriggerManualSync(ctx, channelID)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to trigger manual sync")

		response.WithError(w, err)

		return
	}

	response.WithJSON(w, http.StatusAccepted, job)
}

// GetSyncJobStatus reports progress of a manual sync job.
// @Summary Get sync job status
// @Tags Channel
// @Produce json
// @Param id path string true "Channel ID"
// @Param jobId path string true "Sync job ID"
// @Success 200 {object} response.Data[syncDto.JobStatusResponse]
// @Failure 404 {object} response.Error
// @Router /v1/channels/{id}/sync/{jobId} [get]
// @Security BearerAuth
func (handler *Handler) GetSyncJobStatus(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetSyncJobStatus")
	defer scope.End()

	jobID := chi.URLParam(r, "jobId")

	status, err := handler.syncSvc.JobStatus(ctx, jobID)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get sync job status")

		response.WithError(w, err)

		return
	}

	response.WithJSON(w, http.StatusOK, status)
}

// GetAlerts lists channel alerts for staff attention.
// @Summary Get channel alerts
// @Tags Channel
// @Produce json
// @Param pagination query gDto.QueryParams false "Pagination parameters"
// @Param kind query string false "Filter by alert kind"
// @Param resolved query string false "Filter by resolved flag"
// @Success 200 {object} response.Data[syncDto.GetAlertsResponse]
// @Router /v1/channels/alerts [get]
// @Security BearerAuth
func (handler *Handler) GetAlerts(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetAlerts")
	defer scope.End()

	queryParams := gDto.QueryParams{}
	queryParams.FromRequest(r, true)

	filterGroup := hotelFilter(ctx, syncModel.FieldAlertHotelID, syncModel.AlertTableName)

	if kind := r.URL.Query().Get(syncModel.FieldAlertKind); kind != "" {
		filterGroup.Filters = append(filterGroup.Filters, gDto.Filter{
			Field:    syncModel.FieldAlertKind,
			Operator: gDto.FilterOperatorEq,
			Value:    kind,
			Table:    syncModel.AlertTableName,
		})
	}

	if resolved := r.URL.Query().Get(syncModel.FieldAlertResolved); resolved != "" {
		filterGroup.Filters = append(filterGroup.Filters, gDto.Filter{
			Field:    syncModel.FieldAlertResolved,
			Operator: gDto.FilterOperatorEq,
			Value:    resolved == "true",
			Table:    syncModel.AlertTableName,
		})
	}

	alerts, err := handler.syncSvc.GetAlerts(ctx, queryParams, filterGroup)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get channel alerts")

		response.WithError(w, err)

		return
	}

	response.WithJSON(w, http.StatusOK, alerts)
}

// ResolveAlert marks an alert as handled.
// @Summary Resolve a channel alert
// @Tags Channel
// @Produce json
// @Param id path string true "Alert ID"
// @Success 200 {object} response.Message
// @Failure 404 {object} response.Error
// @Router /v1/channels/alerts/{id}/resolve [post]
// @Security BearerAuth
func (handler *Handler) ResolveAlert(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".ResolveAlert")
	defer scope.End()

	id := chi.URLParam(r, constant.RequestParamID)

	if err := handler.syncSvc.ResolveAlert(ctx, id); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to resolve alert")

		response.WithError(w, err)

		return
	}

	response.WithMessage(w, http.StatusOK, "Alert resolved successfully")
}

// IngestEvent is the inbound webhook for channel reservation events.
// @Summary Ingest a channel event
// @Tags Channel
// @Accept json
// @Produce json
// @Param id path string true "Channel ID"
// @Param request body syncDto.ChannelEvent true "Channel event"
// @Success 200 {object} response.Message
// @Failure 409 {object} response.Error "Overbooking refused"
// @Router /v1/channels/{id}/events [post]
func (handler *Handler) IngestEvent(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".IngestEvent")
	defer scope.End()

	channelID := chi.URLParam(r, constant.RequestParamID)

	event := syncDto.ChannelEvent{}
	if err := validator.Validate(r.Body, &event); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate channel event")

		response.WithError(w, err)

		return
	}

	if err := handler.syncSvc.IngestEvent(ctx, channelID, event); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Str("channelId", channelID).Msg("failed to ingest channel event")

		response.WithError(w, err)

		return
	}

	response.WithMessage(w, http.StatusOK, "Event accepted")
}

func hotelFilter(ctx context.Context, field, table string) gDto.FilterGroup {
	hotelID, _ := ctx.Value(constant.ContextKeyHotelID).(string)

	return gDto.FilterGroup{
		Operator: gDto.FilterGroupOperatorAnd,
		Filters: []any{
			gDto.Filter{
				Field:    field,
				Operator: gDto.FilterOperatorEq,
				Value:    hotelID,
				Table:    table,
			},
		},
	}
}
