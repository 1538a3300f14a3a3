package wire

import (
	"context"
	"fmt"
	"os"

	"github.com/sapogeth/qylysh-higgsfiled/internal/application/evaluation"
	"github.com/sapogeth/qylysh-higgsfiled/internal/application/prompt"
	"github.com/sapogeth/qylysh-higgsfiled/internal/application/storyboard"
	"github.com/sapogeth/qylysh-higgsfiled/internal/application/validation"
	"github.com/sapogeth/qylysh-higgsfiled/internal/config"
	"github.com/sapogeth/qylysh-higgsfiled/internal/domain/entity"
	"github.com/sapogeth/qylysh-higgsfiled/internal/domain/repository"
	"github.com/sapogeth/qylysh-higgsfiled/internal/infrastructure/embedding"
	"github.com/sapogeth/qylysh-higgsfiled/internal/infrastructure/imagegen"
	"github.com/sapogeth/qylysh-higgsfiled/internal/infrastructure/llm"
	"github.com/sapogeth/qylysh-higgsfiled/internal/infrastructure/messaging"
	"github.com/sapogeth/qylysh-higgsfiled/internal/infrastructure/persistence/milvus"
	"github.com/sapogeth/qylysh-higgsfiled/internal/infrastructure/persistence/postgres"
	"github.com/sapogeth/qylysh-higgsfiled/internal/infrastructure/persistence/redis"
	"github.com/sapogeth/qylysh-higgsfiled/internal/infrastructure/tokenizer"
	"github.com/sapogeth/qylysh-higgsfiled/internal/interfaces/http/handler"
	"github.com/sapogeth/qylysh-higgsfiled/internal/interfaces/http/middleware"
	"github.com/sapogeth/qylysh-higgsfiled/internal/workflow/chain"
	"github.com/sapogeth/qylysh-higgsfiled/pkg/logger"
)

// Worker 评估 worker 依赖
type Worker struct {
	Service  *evaluation.Service
	Consumer *messaging.Consumer
}

// Bootstrap 初始化脚本依赖；Milvus 与 Redis 未配置时为空
type Bootstrap struct {
	Postgres *postgres.Client
	Archive  *milvus.GenerationArchive
	Cache    *redis.Cache
}

// ProvidePostgresClient 提供 PostgreSQL 客户端
func ProvidePostgresClient(cfg *config.Config) (*postgres.Client, func(), error) {
	client, err := postgres.NewClient(&cfg.Database.Postgres)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvidePostgresClientOptional 不可达时返回 nil，评估历史接口返回 503
func ProvidePostgresClientOptional(ctx context.Context, cfg *config.Config) (*postgres.Client, func(), error) {
	client, cleanup, err := ProvidePostgresClient(cfg)
	if err != nil {
		logger.Warn(ctx, "postgres not available, evaluation history disabled", "error", err.Error())
		return nil, func() {}, nil
	}
	return client, cleanup, nil
}

// ProvideRedisClient 提供 Redis 客户端
func ProvideRedisClient(cfg *config.Config) (*redis.Client, func(), error) {
	client, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvideRedisClientOptional 不可达时返回 nil，限流与缓存退化为进程内实现
func ProvideRedisClientOptional(ctx context.Context, cfg *config.Config) (*redis.Client, func(), error) {
	client, cleanup, err := ProvideRedisClient(cfg)
	if err != nil {
		logger.Warn(ctx, "redis not available, using in-process rate limit and cache", "error", err.Error())
		return nil, func() {}, nil
	}
	return client, cleanup, nil
}

// ProvideMilvusClientOptional 未启用或不可达时返回 nil
func ProvideMilvusClientOptional(ctx context.Context, cfg *config.Config) (*milvus.Client, func(), error) {
	if !cfg.Vector.Milvus.Enabled {
		return nil, func() {}, nil
	}
	client, err := milvus.NewClient(ctx, &cfg.Vector.Milvus)
	if err != nil {
		logger.Warn(ctx, "milvus not available, generation archive disabled", "error", err.Error())
		return nil, func() {}, nil
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvideRedisCache 提供向量缓存
func ProvideRedisCache(client *redis.Client) *redis.Cache {
	if client == nil {
		return nil
	}
	return redis.NewCache(client)
}

// ProvideRateLimiter Redis 限流器；返回 nil 时路由使用进程内限流
func ProvideRateLimiter(client *redis.Client) middleware.RateLimiter {
	if client == nil {
		return nil
	}
	return redis.NewRateLimiter(client)
}

// ProvideJobPublisher 提供异步评估任务投递
func ProvideJobPublisher(client *redis.Client, cfg *config.Config) evaluation.JobPublisher {
	if client == nil {
		return nil
	}
	maxLen := cfg.Messaging.RedisStream.MaxLen
	if maxLen <= 0 {
		maxLen = 100000
	}
	return messaging.NewProducer(client.Redis(), int64(maxLen))
}

// ProvideConsumer 提供评估任务消费者
func ProvideConsumer(client *redis.Client, cfg *config.Config) *messaging.Consumer {
	rs := cfg.Messaging.RedisStream
	return messaging.NewConsumer(client.Redis(), messaging.ConsumerConfig{
		Stream:        messaging.StreamEvaluation,
		Group:         messaging.EvalWorkerGroup(rs.ConsumerGroupPrefix),
		ConsumerName:  consumerName(),
		BlockTimeout:  rs.BlockTimeout,
		ClaimInterval: rs.ClaimInterval,
		RetryLimit:    rs.RetryLimit,
		Backoff:       messaging.BackoffFromConfig(rs.RetryBackoff),
	})
}

func consumerName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "eval-worker"
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}

// ProvideEvaluationRunRepository 提供评估记录仓储
func ProvideEvaluationRunRepository(client *postgres.Client) repository.EvaluationRunRepository {
	if client == nil {
		return nil
	}
	return postgres.NewEvaluationRunRepository(client)
}

// ProvideGenerationArchive 提供 Milvus 生成归档
func ProvideGenerationArchive(client *milvus.Client, cfg *config.Config) *milvus.GenerationArchive {
	if client == nil {
		return nil
	}
	return milvus.NewGenerationArchive(client, cfg.Embedding.Dimension)
}

// ProvideArchivePort 以领域接口暴露归档
func ProvideArchivePort(archive *milvus.GenerationArchive) repository.GenerationArchive {
	if archive == nil {
		return nil
	}
	return archive
}

// ProvideCharacterProfile 提供角色设定
func ProvideCharacterProfile(cfg *config.Config) (entity.CharacterProfile, error) {
	profile := cfg.Character.Profile()
	if err := profile.Validate(); err != nil {
		return entity.CharacterProfile{}, err
	}
	return profile, nil
}

// ProvideEstimator 提供 token 估算器，分词器缺失时进入字符估算模式
func ProvideEstimator(ctx context.Context, cfg *config.Config) prompt.Estimator {
	if tok := tokenizer.LoadOrNil(ctx, cfg.Tokenizer.Path); tok != nil {
		return prompt.NewEstimator(ctx, tok)
	}
	return prompt.NewEstimator(ctx, nil)
}

// ProvideEnhancer 提供提示词增强器
func ProvideEnhancer(profile entity.CharacterProfile, estimator prompt.Estimator, cfg *config.Config) (*prompt.Enhancer, error) {
	p := cfg.Prompt
	return prompt.NewEnhancer(profile, estimator, prompt.Options{
		TokenBudget:      p.TokenBudget,
		HardLimit:        p.HardLimit,
		SceneWordLimit:   p.SceneWordLimit,
		CyrillicRatio:    p.CyrillicRatio,
		MaxKeywords:      p.MaxKeywords,
		FallbackKeywords: p.FallbackKeywords,
	})
}

// ProvideValidator 提供单图质量校验器
func ProvideValidator(cfg *config.Config) *validation.Validator {
	v := cfg.Validation
	th := validation.DefaultThresholds()
	if v.MinDimension > 0 {
		th.MinDimension = v.MinDimension
	}
	if v.MinSharpness > 0 {
		th.MinSharpness = v.MinSharpness
	}
	if v.MinContrast > 0 {
		th.MinContrast = v.MinContrast
	}
	if v.MinChannelStd > 0 {
		th.MinChannelStd = v.MinChannelStd
	}
	if v.MaxExtremeFraction > 0 {
		th.MaxExtremeFraction = v.MaxExtremeFraction
	}
	if v.MaxPixels > 0 {
		th.MaxPixels = v.MaxPixels
	}
	return validation.NewValidator(th)
}

// ProvideEmbedder 多模态编码器；配置 openai 时文本侧走 Eino，图像侧始终走 CLIP 服务
// 返回值经 Serialize 包装，比对器、特征分析器与参考索引共用一把锁
// 不可用时返回 nil，比对与特征分析接口返回 503
func ProvideEmbedder(ctx context.Context, cfg *config.Config, cache *redis.Cache) evaluation.Embedder {
	client, err := embedding.NewClient(&cfg.Embedding)
	if err != nil {
		logger.Warn(ctx, "embedding service not configured, evaluation disabled", "error", err.Error())
		return nil
	}

	var inner embedding.Embedder = client
	if cfg.Embedding.Provider == "openai" {
		text, err := embedding.NewEinoTextEmbedder(ctx, &cfg.Embedding)
		if err != nil {
			logger.Warn(ctx, "eino text embedder unavailable, using clip service for text", "error", err.Error())
		} else {
			inner = embedding.Composite{Images: client, Texts: text}
		}
	}

	if !cfg.Cache.Embedding.Enabled {
		return evaluation.Serialize(inner)
	}
	var store embedding.VectorStore
	if cache != nil {
		store = cache
	}
	return evaluation.Serialize(embedding.NewCachedEmbedder(inner, store, cfg.Embedding.Model, cfg.Cache.Embedding))
}

// ProvideComparator 加载参考肖像并建立索引；参考图或编码服务不可用时返回 nil
func ProvideComparator(ctx context.Context, cfg *config.Config, embedder evaluation.Embedder) *evaluation.Comparator {
	if embedder == nil {
		return nil
	}
	refs, err := evaluation.LoadReferences(cfg.Evaluation.ReferenceImages)
	if err != nil {
		logger.Warn(ctx, "reference portraits unavailable, evaluation disabled", "error", err.Error())
		return nil
	}
	phrases := cfg.Evaluation.KeyFeatures
	if len(phrases) == 0 {
		phrases = evaluation.DefaultKeyFeatures
	}
	index, err := evaluation.NewIndex(ctx, embedder, refs, phrases, evaluation.WithSSIMSize(cfg.Evaluation.SSIMSize))
	if err != nil {
		logger.Warn(ctx, "reference index build failed, evaluation disabled", "error", err.Error())
		return nil
	}
	fb := cfg.Evaluation.Feedback
	return evaluation.NewComparator(index, embedder, evaluation.FeedbackThresholds{
		HighGap:     fb.HighGap,
		SSIMGap:     fb.SSIMGap,
		TrainingGap: fb.TrainingGap,
	})
}

// ProvideFeatureAnalyzer 提供外观特征分析器
func ProvideFeatureAnalyzer(embedder evaluation.Embedder) *evaluation.FeatureAnalyzer {
	if embedder == nil {
		return nil
	}
	return evaluation.NewFeatureAnalyzer(embedder, nil)
}

// ProvideGenerators 按配置创建生成方，一个都没有时返回 nil
func ProvideGenerators(ctx context.Context, cfg *config.Config) *storyboard.Generators {
	gens, err := imagegen.Build(ctx, cfg.ImageGen)
	if err != nil {
		logger.Warn(ctx, "no image generator available, storyboard and evaluation runs disabled", "error", err.Error())
		return nil
	}
	return gens
}

// ProvidePlanChain LLM 未配置时返回 nil，规划器退化为模板帧
func ProvidePlanChain(factory *llm.EinoFactory) storyboard.PlanChain {
	if !factory.Configured() {
		return nil
	}
	return chain.NewStoryboardPlanChain(factory)
}

// ProvidePlanner 提供分镜规划器
func ProvidePlanner(planChain storyboard.PlanChain, profile entity.CharacterProfile, cfg *config.Config) *storyboard.Planner {
	return storyboard.NewPlanner(planChain, profile, storyboard.PlannerConfig{
		MinFrames:     cfg.Storyboard.MinFrames,
		MaxFrames:     cfg.Storyboard.MaxFrames,
		DefaultFrames: cfg.Storyboard.DefaultFrames,
		Provider:      cfg.LLM.DefaultProvider,
	})
}

// ProvideStoryboardService 无生成方时返回 nil
func ProvideStoryboardService(
	planner *storyboard.Planner,
	enhancer *prompt.Enhancer,
	validator *validation.Validator,
	generators *storyboard.Generators,
	cfg *config.Config,
) (*storyboard.Service, error) {
	if generators == nil {
		return nil, nil
	}
	return storyboard.NewService(planner, enhancer, validator, generators, cfg.ImageGen.DefaultProvider, rendererConfig(cfg))
}

func rendererConfig(cfg *config.Config) storyboard.RendererConfig {
	return storyboard.RendererConfig{
		Concurrency:             cfg.ImageGen.Concurrency,
		RequestsPerMinute:       cfg.ImageGen.RequestsPerMinute,
		MaxRegenerationAttempts: cfg.Validation.MaxRegenerationAttempts,
		OutputDir:               cfg.ImageGen.OutputDir,
		URLPrefix:               cfg.Server.HTTP.StaticPrefix,
	}
}

// ProvideEvaluationService 生成方与比对器齐备时创建；持久化、归档、投递均可缺省
func ProvideEvaluationService(
	enhancer *prompt.Enhancer,
	generators *storyboard.Generators,
	comparator *evaluation.Comparator,
	repo repository.EvaluationRunRepository,
	archive repository.GenerationArchive,
	publisher evaluation.JobPublisher,
	cfg *config.Config,
) *evaluation.Service {
	if generators == nil || comparator == nil {
		return nil
	}
	return evaluation.NewService(enhancer, generators, comparator, repo, archive, publisher, evaluation.ServiceConfig{
		CandidateProvider: cfg.ImageGen.CandidateProvider,
		ReportDir:         cfg.Evaluation.ReportDir,
		Concurrency:       cfg.ImageGen.Concurrency,
	})
}

// ProvideLLMFactory 提供 Eino ChatModel 工厂
func ProvideLLMFactory(cfg *config.Config) *llm.EinoFactory {
	return llm.NewEinoFactory(cfg)
}

// ProvideHealthHandler 注册依赖探针；PostgreSQL 与 Redis 已连接时为必需依赖
func ProvideHealthHandler(cfg *config.Config, pg *postgres.Client, rc *redis.Client, mc *milvus.Client) *handler.HealthHandler {
	h := handler.NewHealthHandler(cfg.App.Version)
	if pg != nil {
		h.Register("postgres", pg, true)
	} else {
		h.Register("postgres", nil, false)
	}
	if rc != nil {
		h.Register("redis", rc, true)
	} else {
		h.Register("redis", nil, false)
	}
	if mc != nil {
		h.Register("milvus", mc, false)
	} else {
		h.Register("milvus", nil, false)
	}
	return h
}

// ProvideEvaluationHandler 服务缺失时以 nil 接口注入，处理器返回 503
func ProvideEvaluationHandler(svc *evaluation.Service, comparator *evaluation.Comparator) *handler.EvaluationHandler {
	var (
		s handler.EvaluationService
		c handler.ProviderComparator
	)
	if svc != nil {
		s = svc
	}
	if comparator != nil {
		c = comparator
	}
	return handler.NewEvaluationHandler(s, c)
}

// ProvideStoryboardHandler 服务缺失时以 nil 接口注入
func ProvideStoryboardHandler(svc *storyboard.Service, analyzer *evaluation.FeatureAnalyzer) *handler.StoryboardHandler {
	var (
		creator handler.StoryboardCreator
		fa      handler.FeatureAnalyzer
	)
	if svc != nil {
		creator = svc
	}
	if analyzer != nil {
		fa = analyzer
	}
	return handler.NewStoryboardHandler(creator, fa)
}
