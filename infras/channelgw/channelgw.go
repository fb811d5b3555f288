package channelgw

//go:generate go run go.uber.org/mock/mockgen -source=./channelgw.go -destination=./mocks/channelgw_mock.go -package=mocks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"lodge/config"
	"lodge/infras/otel"
	"lodge/shared/constant"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// Target identifies one external distribution endpoint. Credentials is an
// opaque secret blob: it is attached to the outbound request and must never
// appear in logs or traces.
type Target struct {
	ChannelID   string
	Provider    string
	Endpoint    string
	Credentials string
}

// ARIUpdate is the availability-rate-inventory payload pushed to a channel
// for one external room over one date interval. To is exclusive.
type ARIUpdate struct {
	ExternalRoomID string    `json:"external_room_id"`
	From           time.Time `json:"from"`
	To             time.Time `json:"to"`
	Available      bool      `json:"available"`
	Price          float64   `json:"price"`
}

// TransportError is a transient delivery failure (network error or a
// 5xx-class response). The dispatcher retries these with backoff.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("channel transport error: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// RejectedError is a permanent delivery failure (4xx-class response, e.g. bad
// credentials or an unmapped room). Never retried.
type RejectedError struct {
	StatusCode int
	Body       string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("channel rejected push with status %d: %s", e.StatusCode, e.Body)
}

type Client interface {
	PushARI(ctx context.Context, target Target, update ARIUpdate) error
}

type clientImpl struct {
	config *config.Config
	otel   otel.Otel
	http   *http.Client
}

func New(cfg *config.Config, otl otel.Otel) Client {
	return &clientImpl{
		config: cfg,
		otel:   otl,
		http: &http.Client{
			Timeout: time.Duration(cfg.Sync.PushTimeoutSeconds) * time.Second,
		},
	}
}

func (c *clientImpl) PushARI(ctx context.Context, target Target, update ARIUpdate) (err error) {
	ctx, scope := c.otel.NewScope(ctx, constant.OtelExternalScopeName, constant.OtelExternalScopeName+".PushARI")
	defer scope.End()
	defer scope.TraceIfError(err)

	scope.SetAttributes(map[string]any{
		"channel.id":       target.ChannelID,
		"channel.provider": target.Provider,
	})

	body, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("failed to marshal ARI update: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.Endpoint+"/ari", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build ARI request: %w", err)
	}

	req.Header.Set(constant.RequestHeaderContentType, constant.ContentTypeJSON)
	req.Header.Set(constant.RequestHeaderAuthorization, "Bearer "+target.Credentials)

	resp, err := c.http.Do(req)
	if err != nil {
		log.Error().Err(err).Str("channelId", target.ChannelID).Msg("ARI push transport failure")

		return &TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		log.Error().Int("status", resp.StatusCode).Str("channelId", target.ChannelID).Msg("ARI push server failure")

		return &TransportError{Err: fmt.Errorf("channel responded with status %d", resp.StatusCode)}
	}

	if resp.StatusCode >= http.StatusBadRequest {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))

		log.Error().Int("status", resp.StatusCode).Str("channelId", target.ChannelID).Msg("ARI push rejected")

		return &RejectedError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	return nil
}
