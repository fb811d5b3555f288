package consumer

import (
	"context"
	"lodge/config"
	"lodge/infras/kafka"
	"lodge/infras/otel"
	"lodge/internal/domains/sync/model/dto"
	"lodge/internal/domains/sync/service"
	"lodge/shared/constant"
	"lodge/shared/validator"

	"github.com/rs/zerolog/log"
	kafkaGo "github.com/segmentio/kafka-go"
)

// InboundEvent is the envelope channels publish on the events topic.
type InboundEvent struct {
	ChannelID string           `json:"channel_id" validate:"required,uuid"`
	Event     dto.ChannelEvent `json:"event"      validate:"required"`
}

// Consumer feeds inbound channel events from the broker into ingestion.
// Messages are processed one at a time so events for the same booking
// reference apply in publish order.
type Consumer struct {
	kafka   kafka.Client
	syncSvc service.Sync
	cfg     *config.Config
	otel    otel.Otel
}

func New(kafkaClient kafka.Client, syncSvc service.Sync, cfg *config.Config, otel otel.Otel) *Consumer {
	return &Consumer{
		kafka:   kafkaClient,
		syncSvc: syncSvc,
		cfg:     cfg,
		otel:    otel,
	}
}

func (c *Consumer) Run(ctx context.Context) {
	log.Info().
		Str("topic", c.cfg.Kafka.InboundTopic).
		Str("group", c.cfg.Kafka.ConsumerGroup).
		Msg("channel event consumer started")

	c.kafka.Consume(ctx, c.cfg.Kafka.ConsumerGroup, c.cfg.Kafka.InboundTopic, c.handle)
}

func (c *Consumer) handle(message kafkaGo.Message) {
	ctx, scope := c.otel.NewScope(context.Background(), constant.OtelConsumerScopeName, constant.OtelConsumerScopeName+".channel_event")
	defer scope.End()

	inbound, err := kafka.DecodeKafkaMessage[InboundEvent](message)
	if err != nil {
		log.Error().Err(err).Msg("skipping undecodable channel event")

		return
	}

	if err := validator.ValidateStruct(&inbound); err != nil {
		log.Error().Err(err).Str("channelId", inbound.ChannelID).Msg("skipping invalid channel event")

		return
	}

	if err := c.syncSvc.IngestEvent(ctx, inbound.ChannelID, inbound.Event); err != nil {
		scope.TraceError(err)

		log.Error().Err(err).Str("channelId", inbound.ChannelID).Str("eventKey", inbound.Event.EventKey()).Msg("failed to ingest channel event")
	}
}
