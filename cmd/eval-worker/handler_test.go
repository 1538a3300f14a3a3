package main

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sapogeth/qylysh-higgsfiled/internal/domain/entity"
	"github.com/sapogeth/qylysh-higgsfiled/internal/infrastructure/messaging"
	apperrors "github.com/sapogeth/qylysh-higgsfiled/pkg/errors"
)

type stubProcessor struct {
	run *entity.EvaluationRun
	err error
	ids []string
}

func (s *stubProcessor) Process(_ context.Context, runID string) (*entity.EvaluationRun, error) {
	s.ids = append(s.ids, runID)
	return s.run, s.err
}

func TestEvaluationHandler(t *testing.T) {
	msg, err := messaging.NewEvaluationMessage(context.Background(), "run-7")
	require.NoError(t, err)

	failed := entity.NewEvaluationRun("run-7", entity.Frame{Description: "Aldar"}, []string{"gemini"})
	failed.Fail(errors.New("no images"))
	done := entity.NewEvaluationRun("run-7", entity.Frame{Description: "Aldar"}, []string{"gemini"})
	done.Complete()

	tests := []struct {
		name    string
		proc    *stubProcessor
		wantErr bool
	}{
		{"completed", &stubProcessor{run: done}, false},
		{"business failure is not retried", &stubProcessor{run: failed, err: apperrors.ErrNoProviderImages}, false},
		{"missing run is dropped", &stubProcessor{err: apperrors.ErrEvaluationNotFound.WithDetail("run-7")}, false},
		{"infrastructure error is retried", &stubProcessor{err: apperrors.New(apperrors.CodeDatabaseError, "db down")}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := evaluationHandler(tt.proc)(context.Background(), msg)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, []string{"run-7"}, tt.proc.ids)
		})
	}
}
