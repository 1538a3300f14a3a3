package main

import (
	"context"
	"errors"

	"github.com/sapogeth/qylysh-higgsfiled/internal/domain/entity"
	"github.com/sapogeth/qylysh-higgsfiled/internal/infrastructure/messaging"
	apperrors "github.com/sapogeth/qylysh-higgsfiled/pkg/errors"
	"github.com/sapogeth/qylysh-higgsfiled/pkg/logger"
)

// runProcessor 执行已落库的评估记录
type runProcessor interface {
	Process(ctx context.Context, runID string) (*entity.EvaluationRun, error)
}

// evaluationHandler 仅对基础设施错误返回 error 触发重试；
// 评估本身失败时记录已标记为 failed，重试无意义
func evaluationHandler(p runProcessor) messaging.MessageHandler {
	return func(ctx context.Context, msg *messaging.Message) error {
		var payload messaging.EvaluationRequestedMessage
		if err := msg.UnmarshalPayload(&payload); err != nil {
			return err
		}
		ctx = logger.WithContext(ctx, logger.JobIDKey, payload.RunID)

		run, err := p.Process(ctx, payload.RunID)
		switch {
		case err == nil:
			logger.Info(ctx, "evaluation run finished",
				"status", string(run.Status),
				"best_provider", run.BestProvider,
			)
			return nil
		case errors.Is(err, apperrors.ErrEvaluationNotFound):
			logger.Warn(ctx, "evaluation run not found, dropping job", "run_id", payload.RunID)
			return nil
		case run != nil && run.Finished():
			logger.Warn(ctx, "evaluation run failed", "error", err.Error())
			return nil
		default:
			return err
		}
	}
}
