package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/sapogeth/qylysh-higgsfiled/internal/application/storyboard"
	"github.com/sapogeth/qylysh-higgsfiled/internal/domain/entity"
	"github.com/sapogeth/qylysh-higgsfiled/internal/domain/repository"
	apperrors "github.com/sapogeth/qylysh-higgsfiled/pkg/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testProfile() entity.CharacterProfile {
	return entity.CharacterProfile{
		Name:           "Aldar Kose",
		DisplayName:    "Aldar Köse",
		TriggerWord:    "aldar_kose_character",
		EyeColor:       "dark brown",
		Hair:           "black hair in a small topknot",
		FacialHair:     "distinct small mustache",
		Clothing:       "orange patterned chapan robe with traditional Kazakh ornaments",
		Hat:            "felt kalpak hat",
		Expression:     "friendly, clever, mischievous",
		StyleClause:    "2D cel-shaded storybook illustration, flat colors, warm palette, Kazakh folk style",
		StyleLock:      "consistent cel-shaded style, clean lineart",
		QualitySuffix:  "detailed, masterpiece",
		NegativePrompt: "3D, photorealistic, blue eyes, no hat",
		LightingHint:   "sunlight from the left",
	}
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Meta    json.RawMessage `json:"meta"`
	Error   *struct {
		ErrorCode string `json:"error_code"`
		Details   string `json:"details"`
	} `json:"error"`
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return serve(t, r, req)
}

type upload struct {
	field    string
	filename string
	data     []byte
}

func doMultipart(t *testing.T, r *gin.Engine, path string, files ...upload) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, f := range files {
		part, err := w.CreateFormFile(f.field, f.filename)
		require.NoError(t, err)
		_, err = part.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return serve(t, r, req)
}

func serve(t *testing.T, r *gin.Engine, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

// fakeEvaluationService 内存评估服务
type fakeEvaluationService struct {
	runs       map[string]*entity.EvaluationRun
	submitted  []entity.Frame
	submitErr  error
	lastFilter *repository.EvaluationFilter
	lastPage   repository.Pagination
	similar    []repository.SimilarGeneration
	lastTopK   int
}

func newFakeEvaluationService() *fakeEvaluationService {
	return &fakeEvaluationService{runs: make(map[string]*entity.EvaluationRun)}
}

func (f *fakeEvaluationService) Evaluate(_ context.Context, frame entity.Frame, providers []string) (*entity.EvaluationRun, error) {
	run := entity.NewEvaluationRun("sync-1", frame, providers)
	run.Ranking = providers
	run.BestProvider = providers[0]
	run.BestScore = 0.8
	run.Complete()
	return run, nil
}

func (f *fakeEvaluationService) Submit(_ context.Context, frame entity.Frame, providers []string) (*entity.EvaluationRun, error) {
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	f.submitted = append(f.submitted, frame)
	run := entity.NewEvaluationRun("run-1", frame, providers)
	f.runs[run.ID] = run
	return run, nil
}

func (f *fakeEvaluationService) Get(_ context.Context, id string) (*entity.EvaluationRun, error) {
	run, ok := f.runs[id]
	if !ok {
		return nil, errNotFound(id)
	}
	return run, nil
}

func (f *fakeEvaluationService) List(_ context.Context, filter *repository.EvaluationFilter, p repository.Pagination) (*repository.PagedResult[*entity.EvaluationRun], error) {
	f.lastFilter = filter
	f.lastPage = p
	items := make([]*entity.EvaluationRun, 0, len(f.runs))
	for _, r := range f.runs {
		items = append(items, r)
	}
	return repository.NewPagedResult(items, int64(len(items)), p), nil
}

func (f *fakeEvaluationService) FindSimilar(_ context.Context, image []byte, topK int) ([]repository.SimilarGeneration, error) {
	if len(image) == 0 {
		return nil, errors.New("empty image")
	}
	f.lastTopK = topK
	return f.similar, nil
}

// fakeComparator 按图像字节长度打分
type fakeComparator struct {
	lastOrder []string
}

func (f *fakeComparator) CompareProviders(_ context.Context, images map[string][]byte, order []string) entity.ComparisonReport {
	f.lastOrder = order
	report := entity.ComparisonReport{Comparisons: map[string]entity.QualityMetrics{}}
	for _, name := range order {
		score := float64(len(images[name])) / 100
		report.Comparisons[name] = entity.QualityMetrics{Provider: name, QualityScore: score}
		report.Ranking = append(report.Ranking, entity.RankEntry{Provider: name, QualityScore: score})
		if score > report.BestScore {
			report.BestProvider, report.BestScore = name, score
		}
	}
	return report
}

func (f *fakeComparator) GenerateFeedback(candidate, competitor entity.QualityMetrics, name string) entity.Feedback {
	gap := competitor.QualityScore - candidate.QualityScore
	return entity.Feedback{
		CandidateScore:   candidate.QualityScore,
		BestCompetitor:   name,
		CompetitorScore:  competitor.QualityScore,
		ScoreGap:         gap,
		NeedsImprovement: gap > 0,
	}
}

// fakeStoryboard 返回固定分镜
type fakeStoryboard struct {
	err       error
	lastStory string
	lastCount int
}

func (f *fakeStoryboard) Create(_ context.Context, story string, frameCount int, provider string) (*storyboard.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.lastStory, f.lastCount = story, frameCount
	return &storyboard.Result{
		Plan:     &storyboard.Plan{Prompt: story, Source: storyboard.PlanSourceFallback},
		Provider: provider,
		Frames:   []storyboard.FrameResult{{Frame: entity.Frame{Index: 1, Description: story}}},
	}, nil
}

// fakeAnalyzer 每张图都识别为相同特征
type fakeAnalyzer struct {
	received int
}

func (f *fakeAnalyzer) AnalyzeImages(_ context.Context, images [][]byte) (map[string]entity.AggregatedFeature, error) {
	f.received = len(images)
	return map[string]entity.AggregatedFeature{
		"facial_hair": {Feature: "mustache", Appearances: len(images), AvgConfidence: 0.9},
	}, nil
}

func (f *fakeAnalyzer) TrainingPrompt(agg map[string]entity.AggregatedFeature) string {
	return agg["facial_hair"].Feature
}

// fakeChecker 固定结果的健康检查
type fakeChecker struct {
	err error
}

func (f fakeChecker) HealthCheck(context.Context) error { return f.err }

func errNotFound(id string) error {
	return apperrors.ErrEvaluationNotFound.WithDetail(id)
}
