package mapping

import (
	"lodge/infras/otel"
	"lodge/internal/domains/mapping/model/dto"
	"lodge/internal/domains/mapping/service"
	"lodge/shared/constant"
	"lodge/shared/validator"
	"lodge/transport/http/response"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rs/zerolog/log"
)

type Handler struct {
	service service.Mapping
	otel    otel.Otel
}

func New(service service.Mapping, otel otel.Otel) Handler {
	return Handler{
		service: service,
		otel:    otel,
	}
}

func (handler *Handler) Router(router chi.Router) {
	router.Route("/mappings", func(routerGroup chi.Router) {
		routerGroup.Get("/{id}", handler.GetMappingByID)
		routerGroup.Patch("/{id}", handler.UpdateMapping)
		routerGroup.Delete("/{id}", handler.DeleteMapping)
	})
}

// GetMappingByID retrieves a single room mapping.
// @Summary Get mapping by ID
// @Tags Mapping
// @Produce json
// @Param id path string true "Mapping ID"
// @Success 200 {object} response.Data[dto.MappingResponse]
// @Failure 404 {object} response.Error
// @Router /v1/mappings/{id} [get]
// @Security BearerAuth
func (handler *Handler) GetMappingByID(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetMappingByID")
	defer scope.End()

	id := chi.URLParam(r, constant.RequestParamID)

	mapping, err := handler.service.Get(ctx, id)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get mapping")

		response.WithError(w, err)

		return
	}

	response.WithJSON(w, http.StatusOK, mapping)
}

// UpdateMapping updates a mapping's price adjustment or active flag.
// @Summary Update a mapping
// @Tags Mapping
// @Accept json
// @Produce json
// @Param id path string true "Mapping ID"
// @Param request body dto.UpdateMappingRequest true "Update Mapping Request"
// @Success 200 {object} response.Message
// @Failure 404 {object} response.Error
// @Router /v1/mappings/{id} [patch]
// @Security BearerAuth
func (handler *Handler) UpdateMapping(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".UpdateMapping")
	defer scope.End()

	id := chi.URLParam(r, constant.RequestParamID)

	req := dto.UpdateMappingRequest{}
	if err := validator.Validate(r.Body, &req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate request body")

		response.WithError(w, err)

		return
	}

	if err := handler.service.Update(ctx, req, id); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to update mapping")

		response.WithError(w, err)

		return
	}

	response.WithMessage(w, http.StatusOK, "Mapping updated successfully")
}

// DeleteMapping removes a room mapping. The channel stops receiving pushes
// for the room immediately.
// @Summary Delete a mapping
// @Tags Mapping
// @Produce json
// @Param id path string true "Mapping ID"
// @Success 200 {object} response.Message
// @Failure 404 {object} response.Error
// @Router /v1/mappings/{id} [delete]
// @Security BearerAuth
func (handler *Handler) DeleteMapping(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".DeleteMapping")
	defer scope.End()

	id := chi.URLParam(r, constant.RequestParamID)

	if err := handler.service.Delete(ctx, id); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to delete mapping")

		response.WithError(w, err)

		return
	}

	response.WithMessage(w, http.StatusOK, "Mapping deleted successfully")
}
