package evaluation

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/sapogeth/qylysh-higgsfiled/internal/application/prompt"
	"github.com/sapogeth/qylysh-higgsfiled/internal/application/storyboard"
	"github.com/sapogeth/qylysh-higgsfiled/internal/domain/entity"
	"github.com/sapogeth/qylysh-higgsfiled/internal/domain/repository"
	apperrors "github.com/sapogeth/qylysh-higgsfiled/pkg/errors"
	"github.com/sapogeth/qylysh-higgsfiled/pkg/logger"
	"github.com/sapogeth/qylysh-higgsfiled/pkg/tracer"
)

// JobPublisher 异步评估任务投递
type JobPublisher interface {
	PublishEvaluation(ctx context.Context, runID string) error
}

// ServiceConfig 评估服务配置
type ServiceConfig struct {
	// CandidateProvider 需要反馈的生成方（如自训练模型）
	CandidateProvider string
	ReportDir         string
	Concurrency       int
}

// Service 跨生成方评估：出图、比对排名、反馈、落盘与归档
type Service struct {
	enhancer   *prompt.Enhancer
	generators *storyboard.Generators
	comparator *Comparator
	repo       repository.EvaluationRunRepository
	archive    repository.GenerationArchive
	publisher  JobPublisher
	cfg        ServiceConfig
	newID      func() string
}

// NewService 创建评估服务；repo、archive、publisher 均可为空
func NewService(
	enhancer *prompt.Enhancer,
	generators *storyboard.Generators,
	comparator *Comparator,
	repo repository.EvaluationRunRepository,
	archive repository.GenerationArchive,
	publisher JobPublisher,
	cfg ServiceConfig,
) *Service {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 2
	}
	if cfg.ReportDir == "" {
		cfg.ReportDir = "output/reports"
	}
	return &Service{
		enhancer:   enhancer,
		generators: generators,
		comparator: comparator,
		repo:       repo,
		archive:    archive,
		publisher:  publisher,
		cfg:        cfg,
		newID:      func() string { return uuid.New().String() },
	}
}

// Comparator 比对器
func (s *Service) Comparator() *Comparator { return s.comparator }

// Evaluate 同步执行一次评估
func (s *Service) Evaluate(ctx context.Context, frame entity.Frame, providers []string) (*entity.EvaluationRun, error) {
	frame = frame.Normalize()
	if frame.Description == "" {
		return nil, apperrors.New(apperrors.CodePromptInvalidFrame, "frame description is required")
	}
	run := entity.NewEvaluationRun(s.newID(), frame, s.resolveProviders(providers))
	if s.repo != nil {
		if err := s.repo.Create(ctx, run); err != nil {
			return nil, err
		}
	}
	if err := s.execute(ctx, run); err != nil {
		return run, err
	}
	return run, nil
}

// Submit 落库待执行记录并投递异步任务
func (s *Service) Submit(ctx context.Context, frame entity.Frame, providers []string) (*entity.EvaluationRun, error) {
	if s.repo == nil || s.publisher == nil {
		return nil, apperrors.ErrServiceUnavailable.WithDetail("async evaluation requires persistence and messaging")
	}
	frame = frame.Normalize()
	if frame.Description == "" {
		return nil, apperrors.New(apperrors.CodePromptInvalidFrame, "frame description is required")
	}
	run := entity.NewEvaluationRun(s.newID(), frame, s.resolveProviders(providers))
	if err := s.repo.Create(ctx, run); err != nil {
		return nil, err
	}
	if err := s.publisher.PublishEvaluation(ctx, run.ID); err != nil {
		run.Fail(err)
		if uerr := s.repo.Update(ctx, run); uerr != nil {
			logger.Error(ctx, "failed to mark evaluation run failed", uerr, "run_id", run.ID)
		}
		return nil, apperrors.Wrap(err, apperrors.CodeQueueError, "publish evaluation job")
	}
	return run, nil
}

// Process 执行已落库的评估，已结束的记录直接返回
func (s *Service) Process(ctx context.Context, runID string) (*entity.EvaluationRun, error) {
	if s.repo == nil {
		return nil, apperrors.ErrServiceUnavailable.WithDetail("evaluation persistence disabled")
	}
	run, err := s.repo.GetByID(ctx, runID)
	if err != nil {
		return nil, err
	}
	if run.Finished() {
		logger.Info(ctx, "evaluation run already finished, skipping", "run_id", runID, "status", string(run.Status))
		return run, nil
	}
	if err := s.execute(ctx, run); err != nil {
		return run, err
	}
	return run, nil
}

// Get 查询评估记录
func (s *Service) Get(ctx context.Context, id string) (*entity.EvaluationRun, error) {
	if s.repo == nil {
		return nil, apperrors.ErrServiceUnavailable.WithDetail("evaluation persistence disabled")
	}
	return s.repo.GetByID(ctx, id)
}

// List 分页查询评估记录
func (s *Service) List(ctx context.Context, filter *repository.EvaluationFilter, pagination repository.Pagination) (*repository.PagedResult[*entity.EvaluationRun], error) {
	if s.repo == nil {
		return nil, apperrors.ErrServiceUnavailable.WithDetail("evaluation persistence disabled")
	}
	return s.repo.List(ctx, filter, pagination)
}

// FindSimilar 检索与给定图像最相近的历史生成，用于发现近似重复
func (s *Service) FindSimilar(ctx context.Context, image []byte, topK int) ([]repository.SimilarGeneration, error) {
	if s.archive == nil {
		return nil, apperrors.ErrServiceUnavailable.WithDetail("generation archive disabled")
	}
	vec, err := s.comparator.EmbedImage(ctx, image)
	if err != nil {
		return nil, err
	}
	return s.archive.SearchSimilar(ctx, ToFloat32(vec), topK)
}

// resolveProviders 未指定时使用全部生成方
func (s *Service) resolveProviders(providers []string) []string {
	if len(providers) == 0 {
		return s.generators.Names()
	}
	return providers
}

func (s *Service) execute(ctx context.Context, run *entity.EvaluationRun) error {
	ctx = logger.WithContext(ctx, logger.JobIDKey, run.ID)
	ctx, span := tracer.Start(ctx, "evaluation.Execute")
	defer span.End()

	run.Start()
	s.save(ctx, run)

	frame := run.Frame()
	run.PositivePrompt = s.enhancer.Enhance(ctx, frame)
	req := storyboard.GenerationRequest{
		Positive: run.PositivePrompt,
		Negative: s.enhancer.NegativePrompt(),
	}

	images := s.generate(ctx, run.Providers, req)
	if len(images) == 0 {
		err := apperrors.ErrNoProviderImages
		run.Fail(err)
		s.save(ctx, run)
		return tracer.RecordError(span, err)
	}

	report := s.comparator.CompareProviders(ctx, images, run.Providers)
	if len(report.Ranking) == 0 {
		err := apperrors.ErrNoProviderImages.WithDetail("no image could be compared")
		run.Fail(err)
		s.save(ctx, run)
		return tracer.RecordError(span, err)
	}

	var feedback *entity.Feedback
	if candidate, ok := report.Comparisons[s.cfg.CandidateProvider]; ok {
		if name, competitor, found := BestCompetitor(report, s.cfg.CandidateProvider); found {
			fb := s.comparator.GenerateFeedback(candidate, competitor, name)
			feedback = &fb
		}
	}

	path := filepath.Join(s.cfg.ReportDir, fmt.Sprintf("comparison_%s.json", run.ID))
	if err := WriteReport(path, report); err != nil {
		logger.Error(ctx, "failed to write comparison report", err, "path", path)
	} else {
		run.ReportPath = path
	}

	if err := applyReport(run, report, feedback); err != nil {
		run.Fail(err)
		s.save(ctx, run)
		return tracer.RecordError(span, err)
	}
	run.Complete()
	s.save(ctx, run)

	s.archiveImages(ctx, run.ID, images, report)

	logger.Info(ctx, "evaluation completed",
		"best_provider", report.BestProvider,
		"best_score", report.BestScore,
		"ranked", len(report.Ranking),
	)
	return nil
}

// generate 并发调用各生成方，失败的生成方跳过
func (s *Service) generate(ctx context.Context, providers []string, req storyboard.GenerationRequest) map[string][]byte {
	var (
		mu     sync.Mutex
		images = make(map[string][]byte, len(providers))
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for _, name := range providers {
		gen, err := s.generators.Get(name)
		if err != nil {
			logger.Warn(ctx, "unknown provider skipped", "provider", name)
			continue
		}
		g.Go(func() error {
			pctx := logger.WithContext(gctx, logger.ProviderKey, name)
			data, err := storyboard.Invoke(pctx, gen, req)
			if err != nil {
				logger.Warn(pctx, "provider generation failed", "error", err.Error())
				return nil
			}
			mu.Lock()
			images[name] = data
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return images
}

func (s *Service) archiveImages(ctx context.Context, runID string, images map[string][]byte, report entity.ComparisonReport) {
	if s.archive == nil {
		return
	}
	records := make([]repository.ArchivedGeneration, 0, len(report.Ranking))
	for _, r := range report.Ranking {
		vec, err := s.comparator.EmbedImage(ctx, images[r.Provider])
		if err != nil {
			logger.Warn(ctx, "skip archiving provider image", "provider", r.Provider, "error", err.Error())
			continue
		}
		records = append(records, repository.ArchivedGeneration{
			ID:           s.newID(),
			RunID:        runID,
			Provider:     r.Provider,
			QualityScore: r.QualityScore,
			Vector:       ToFloat32(vec),
		})
	}
	if len(records) == 0 {
		return
	}
	if err := s.archive.Store(ctx, records); err != nil {
		logger.Error(ctx, "failed to archive generations", err, "count", len(records))
	}
}

func (s *Service) save(ctx context.Context, run *entity.EvaluationRun) {
	if s.repo == nil {
		return
	}
	if err := s.repo.Update(ctx, run); err != nil {
		logger.Error(ctx, "failed to update evaluation run", err, "status", string(run.Status))
	}
}

func applyReport(run *entity.EvaluationRun, report entity.ComparisonReport, feedback *entity.Feedback) error {
	ranking := make([]string, 0, len(report.Ranking))
	for _, r := range report.Ranking {
		ranking = append(ranking, r.Provider)
	}
	run.Ranking = ranking
	run.BestProvider = report.BestProvider
	run.BestScore = report.BestScore

	raw, err := json.Marshal(report)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeInternalError, "encode report")
	}
	run.Report = raw

	if feedback != nil {
		run.NeedsImprovement = feedback.NeedsImprovement
		fb, err := json.Marshal(feedback)
		if err != nil {
			return apperrors.Wrap(err, apperrors.CodeInternalError, "encode feedback")
		}
		run.Feedback = fb
	}
	return nil
}
