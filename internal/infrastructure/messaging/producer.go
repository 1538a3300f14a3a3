package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/sapogeth/qylysh-higgsfiled/pkg/logger"
	pkgtracer "github.com/sapogeth/qylysh-higgsfiled/pkg/tracer"
)

var tracer = otel.Tracer("messaging")

// Producer 消息生产者
type Producer struct {
	client *redis.Client
	maxLen int64
}

// NewProducer 创建消息生产者
func NewProducer(client *redis.Client, maxLen int64) *Producer {
	if maxLen <= 0 {
		maxLen = 100000
	}
	return &Producer{
		client: client,
		maxLen: maxLen,
	}
}

// Publish 发布消息到指定流
func (p *Producer) Publish(ctx context.Context, stream Stream, msg *Message) (string, error) {
	ctx, span := tracer.Start(ctx, "producer.Publish",
		trace.WithAttributes(
			attribute.String("stream", string(stream)),
			attribute.String("message.id", msg.ID),
			attribute.String("message.type", msg.Type),
		))
	defer span.End()

	data, err := json.Marshal(msg)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to marshal message: %w", err)
	}

	result, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: string(stream),
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]any{
			"data": string(data),
		},
	}).Result()

	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to publish message: %w", err)
	}

	span.SetAttributes(attribute.String("stream.message_id", result))
	return result, nil
}

// PublishEvaluation 投递异步评估任务
func (p *Producer) PublishEvaluation(ctx context.Context, runID string) error {
	msg, err := NewEvaluationMessage(ctx, runID)
	if err != nil {
		return err
	}
	id, err := p.Publish(ctx, StreamEvaluation, msg)
	if err != nil {
		return err
	}
	logger.Info(ctx, "evaluation job published", "run_id", runID, "stream_id", id)
	return nil
}

// NewEvaluationMessage 构造评估任务消息，携带请求与链路标识
func NewEvaluationMessage(ctx context.Context, runID string) (*Message, error) {
	msg, err := NewMessage(runID, TypeEvaluationRequested, &EvaluationRequestedMessage{RunID: runID})
	if err != nil {
		return nil, err
	}
	if reqID, ok := ctx.Value(logger.RequestIDKey).(string); ok {
		msg.SetMetadata("request_id", reqID)
	}
	msg.SetMetadata("trace_id", pkgtracer.TraceID(ctx))
	return msg, nil
}
