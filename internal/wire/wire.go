//go:build wireinject
// +build wireinject

// Package wire 提供依赖注入配置
package wire

import (
	"context"

	"github.com/google/wire"

	"github.com/sapogeth/qylysh-higgsfiled/internal/config"
	"github.com/sapogeth/qylysh-higgsfiled/internal/interfaces/http/handler"
	"github.com/sapogeth/qylysh-higgsfiled/internal/interfaces/http/router"
)

// InitializeApp 初始化 HTTP 服务；外部存储均为可选
func InitializeApp(ctx context.Context, cfg *config.Config) (*router.Router, func(), error) {
	wire.Build(
		OptionalStoreSet,
		StoreAdapterSet,
		PipelineSet,
		RouterSet,
	)
	return nil, nil, nil
}

// InitializeWorker 初始化评估 worker；PostgreSQL 与 Redis 为必需
func InitializeWorker(ctx context.Context, cfg *config.Config) (*Worker, func(), error) {
	wire.Build(
		ProvidePostgresClient,
		ProvideRedisClient,
		ProvideMilvusClientOptional,
		StoreAdapterSet,
		EvaluationSet,
		ProvideConsumer,
		wire.Struct(new(Worker), "*"),
	)
	return nil, nil, nil
}

// InitializeBootstrap 初始化 bootstrap 所需存储
func InitializeBootstrap(ctx context.Context, cfg *config.Config) (*Bootstrap, func(), error) {
	wire.Build(
		ProvidePostgresClient,
		ProvideRedisClientOptional,
		ProvideMilvusClientOptional,
		ProvideRedisCache,
		ProvideGenerationArchive,
		wire.Struct(new(Bootstrap), "*"),
	)
	return nil, nil, nil
}

// OptionalStoreSet 不可达时降级的存储客户端
var OptionalStoreSet = wire.NewSet(
	ProvidePostgresClientOptional,
	ProvideRedisClientOptional,
	ProvideMilvusClientOptional,
)

// StoreAdapterSet 存储客户端之上的仓储、缓存与投递
var StoreAdapterSet = wire.NewSet(
	ProvideRedisCache,
	ProvideJobPublisher,
	ProvideEvaluationRunRepository,
	ProvideGenerationArchive,
	ProvideArchivePort,
)

// EvaluationSet 提示词增强 + 参考图比对 + 跨生成方评估
var EvaluationSet = wire.NewSet(
	ProvideCharacterProfile,
	ProvideEstimator,
	ProvideEnhancer,
	ProvideEmbedder,
	ProvideComparator,
	ProvideGenerators,
	ProvideEvaluationService,
)

// PipelineSet HTTP 服务使用的全部应用服务
var PipelineSet = wire.NewSet(
	EvaluationSet,
	ProvideValidator,
	ProvideFeatureAnalyzer,
	ProvideLLMFactory,
	ProvidePlanChain,
	ProvidePlanner,
	ProvideStoryboardService,
)

// RouterSet 路由器提供者集合
var RouterSet = wire.NewSet(
	ProvideRateLimiter,
	ProvideHealthHandler,
	handler.NewPromptHandler,
	handler.NewImageHandler,
	ProvideEvaluationHandler,
	ProvideStoryboardHandler,
	wire.Struct(new(router.Handlers), "*"),
	router.New,
)
