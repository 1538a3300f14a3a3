// Package config 提供配置加载和管理功能
package config

import (
	"time"
)

// Config 应用配置根结构
type Config struct {
	App           AppConfig           `yaml:"app" mapstructure:"app"`
	Server        ServerConfig        `yaml:"server" mapstructure:"server"`
	Database      DatabaseConfig      `yaml:"database" mapstructure:"database"`
	Cache         CacheConfig         `yaml:"cache" mapstructure:"cache"`
	Vector        VectorConfig        `yaml:"vector" mapstructure:"vector"`
	LLM           LLMConfig           `yaml:"llm" mapstructure:"llm"`
	Embedding     EmbeddingConfig     `yaml:"embedding" mapstructure:"embedding"`
	ImageGen      ImageGenConfig      `yaml:"image_gen" mapstructure:"image_gen"`
	Tokenizer     TokenizerConfig     `yaml:"tokenizer" mapstructure:"tokenizer"`
	Character     CharacterConfig     `yaml:"character" mapstructure:"character"`
	Prompt        PromptConfig        `yaml:"prompt" mapstructure:"prompt"`
	Evaluation    EvaluationConfig    `yaml:"evaluation" mapstructure:"evaluation"`
	Validation    ValidationConfig    `yaml:"validation" mapstructure:"validation"`
	Storyboard    StoryboardConfig    `yaml:"storyboard" mapstructure:"storyboard"`
	Messaging     MessagingConfig     `yaml:"messaging" mapstructure:"messaging"`
	Observability ObservabilityConfig `yaml:"observability" mapstructure:"observability"`
	Security      SecurityConfig      `yaml:"security" mapstructure:"security"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	Name    string `yaml:"name" mapstructure:"name"`
	Version string `yaml:"version" mapstructure:"version"`
	Env     string `yaml:"env" mapstructure:"env"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	HTTP HTTPServerConfig `yaml:"http" mapstructure:"http"`
}

// HTTPServerConfig HTTP 服务器配置
type HTTPServerConfig struct {
	Host            string        `yaml:"host" mapstructure:"host"`
	Port            int           `yaml:"port" mapstructure:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
	MaxUploadBytes  int64         `yaml:"max_upload_bytes" mapstructure:"max_upload_bytes"`
	StaticDir       string        `yaml:"static_dir" mapstructure:"static_dir"`
	StaticPrefix    string        `yaml:"static_prefix" mapstructure:"static_prefix"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Postgres PostgresConfig `yaml:"postgres" mapstructure:"postgres"`
}

// PostgresConfig PostgreSQL 配置
type PostgresConfig struct {
	Host            string        `yaml:"host" mapstructure:"host"`
	Port            int           `yaml:"port" mapstructure:"port"`
	User            string        `yaml:"user" mapstructure:"user"`
	Password        string        `yaml:"password" mapstructure:"password"`
	Database        string        `yaml:"database" mapstructure:"database"`
	SSLMode         string        `yaml:"ssl_mode" mapstructure:"ssl_mode"`
	MaxOpenConns    int           `yaml:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time" mapstructure:"conn_max_idle_time"`
}

// CacheConfig 缓存配置
type CacheConfig struct {
	Redis     RedisConfig          `yaml:"redis" mapstructure:"redis"`
	Embedding EmbeddingCacheConfig `yaml:"embedding" mapstructure:"embedding"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Host         string        `yaml:"host" mapstructure:"host"`
	Port         int           `yaml:"port" mapstructure:"port"`
	Password     string        `yaml:"password" mapstructure:"password"`
	DB           int           `yaml:"db" mapstructure:"db"`
	PoolSize     int           `yaml:"pool_size" mapstructure:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns" mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout" mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
}

// EmbeddingCacheConfig 向量缓存配置（进程内 + Redis 两级）
type EmbeddingCacheConfig struct {
	Enabled     bool          `yaml:"enabled" mapstructure:"enabled"`
	MemoryTTL   time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	RedisTTL    time.Duration `yaml:"redis_ttl" mapstructure:"redis_ttl"`
	KeyPrefix   string        `yaml:"key_prefix" mapstructure:"key_prefix"`
	CleanupTick time.Duration `yaml:"cleanup_tick" mapstructure:"cleanup_tick"`
}

// VectorConfig 向量数据库配置
type VectorConfig struct {
	Milvus MilvusConfig `yaml:"milvus" mapstructure:"milvus"`
}

// MilvusConfig Milvus 配置
type MilvusConfig struct {
	Enabled            bool   `yaml:"enabled" mapstructure:"enabled"`
	Host               string `yaml:"host" mapstructure:"host"`
	Port               int    `yaml:"port" mapstructure:"port"`
	User               string `yaml:"user" mapstructure:"user"`
	Password           string `yaml:"password" mapstructure:"password"`
	CollectionPrefix   string `yaml:"collection_prefix" mapstructure:"collection_prefix"`
	IndexType          string `yaml:"index_type" mapstructure:"index_type"`
	MetricType         string `yaml:"metric_type" mapstructure:"metric_type"`
	HNSWM              int    `yaml:"hnsw_m" mapstructure:"hnsw_m"`
	HNSWEfConstruction int    `yaml:"hnsw_ef_construction" mapstructure:"hnsw_ef_construction"`
}

// LLMConfig LLM 配置（故事规划）
type LLMConfig struct {
	DefaultProvider string                    `yaml:"default_provider" mapstructure:"default_provider"`
	Providers       map[string]ProviderConfig `yaml:"providers" mapstructure:"providers"`
}

// ProviderConfig LLM 提供商配置
type ProviderConfig struct {
	APIKey      string        `yaml:"api_key" mapstructure:"api_key"`
	BaseURL     string        `yaml:"base_url" mapstructure:"base_url"`
	Model       string        `yaml:"model" mapstructure:"model"`
	MaxTokens   int           `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature float64       `yaml:"temperature" mapstructure:"temperature"`
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// EmbeddingConfig 多模态 Embedding 配置
type EmbeddingConfig struct {
	// Provider http: 自托管 CLIP 服务（图像+文本）；openai: 仅文本
	Provider  string        `yaml:"provider" mapstructure:"provider"`
	Model     string        `yaml:"model" mapstructure:"model"`
	Dimension int           `yaml:"dimension" mapstructure:"dimension"`
	BatchSize int           `yaml:"batch_size" mapstructure:"batch_size"`
	Endpoint  string        `yaml:"endpoint" mapstructure:"endpoint"`
	APIKey    string        `yaml:"api_key" mapstructure:"api_key"`
	BaseURL   string        `yaml:"base_url" mapstructure:"base_url"`
	Timeout   time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// ImageGenConfig 图像生成配置
type ImageGenConfig struct {
	DefaultProvider   string                         `yaml:"default_provider" mapstructure:"default_provider"`
	CandidateProvider string                         `yaml:"candidate_provider" mapstructure:"candidate_provider"`
	Providers         map[string]ImageProviderConfig `yaml:"providers" mapstructure:"providers"`
	Concurrency       int                            `yaml:"concurrency" mapstructure:"concurrency"`
	RequestsPerMinute int                            `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
	OutputDir         string                         `yaml:"output_dir" mapstructure:"output_dir"`
}

// ImageProviderConfig 单个图像生成方配置
type ImageProviderConfig struct {
	// Kind gemini / remote
	Kind        string        `yaml:"kind" mapstructure:"kind"`
	APIKey      string        `yaml:"api_key" mapstructure:"api_key"`
	Endpoint    string        `yaml:"endpoint" mapstructure:"endpoint"`
	Model       string        `yaml:"model" mapstructure:"model"`
	Width       int           `yaml:"width" mapstructure:"width"`
	Height      int           `yaml:"height" mapstructure:"height"`
	Steps       int           `yaml:"steps" mapstructure:"steps"`
	Guidance    float64       `yaml:"guidance" mapstructure:"guidance"`
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`
	Temperature float64       `yaml:"temperature" mapstructure:"temperature"`
}

// TokenizerConfig 分词器配置
type TokenizerConfig struct {
	// Path HuggingFace tokenizer.json 路径，为空时退化为字符估算
	Path string `yaml:"path" mapstructure:"path"`
}

// CharacterConfig 固定角色配置
type CharacterConfig struct {
	Name           string `yaml:"name" mapstructure:"name"`
	DisplayName    string `yaml:"display_name" mapstructure:"display_name"`
	TriggerWord    string `yaml:"trigger_word" mapstructure:"trigger_word"`
	EyeColor       string `yaml:"eye_color" mapstructure:"eye_color"`
	Hair           string `yaml:"hair" mapstructure:"hair"`
	FacialHair     string `yaml:"facial_hair" mapstructure:"facial_hair"`
	Clothing       string `yaml:"clothing" mapstructure:"clothing"`
	Hat            string `yaml:"hat" mapstructure:"hat"`
	Expression     string `yaml:"expression" mapstructure:"expression"`
	StyleClause    string `yaml:"style_clause" mapstructure:"style_clause"`
	StyleLock      string `yaml:"style_lock" mapstructure:"style_lock"`
	QualitySuffix  string `yaml:"quality_suffix" mapstructure:"quality_suffix"`
	NegativePrompt string `yaml:"negative_prompt" mapstructure:"negative_prompt"`
	LightingHint   string `yaml:"lighting_hint" mapstructure:"lighting_hint"`
}

// PromptConfig 提示词预算配置
type PromptConfig struct {
	TokenBudget      int     `yaml:"token_budget" mapstructure:"token_budget"`
	HardLimit        int     `yaml:"hard_limit" mapstructure:"hard_limit"`
	SceneWordLimit   int     `yaml:"scene_word_limit" mapstructure:"scene_word_limit"`
	CyrillicRatio    float64 `yaml:"cyrillic_ratio" mapstructure:"cyrillic_ratio"`
	MaxKeywords      int     `yaml:"max_keywords" mapstructure:"max_keywords"`
	FallbackKeywords string  `yaml:"fallback_keywords" mapstructure:"fallback_keywords"`
}

// EvaluationConfig 参考图评估配置
type EvaluationConfig struct {
	ReferenceImages []string       `yaml:"reference_images" mapstructure:"reference_images"`
	KeyFeatures     []string       `yaml:"key_features" mapstructure:"key_features"`
	ReportDir       string         `yaml:"report_dir" mapstructure:"report_dir"`
	SSIMSize        int            `yaml:"ssim_size" mapstructure:"ssim_size"`
	Feedback        FeedbackConfig `yaml:"feedback" mapstructure:"feedback"`
}

// FeedbackConfig 反馈优先级阈值
type FeedbackConfig struct {
	HighGap     float64 `yaml:"high_gap" mapstructure:"high_gap"`
	SSIMGap     float64 `yaml:"ssim_gap" mapstructure:"ssim_gap"`
	TrainingGap float64 `yaml:"training_gap" mapstructure:"training_gap"`
}

// ValidationConfig 单图质量门限
type ValidationConfig struct {
	MinDimension            int     `yaml:"min_dimension" mapstructure:"min_dimension"`
	MinSharpness            float64 `yaml:"min_sharpness" mapstructure:"min_sharpness"`
	MinContrast             float64 `yaml:"min_contrast" mapstructure:"min_contrast"`
	MinChannelStd           float64 `yaml:"min_channel_std" mapstructure:"min_channel_std"`
	MaxExtremeFraction      float64 `yaml:"max_extreme_fraction" mapstructure:"max_extreme_fraction"`
	MaxPixels               int     `yaml:"max_pixels" mapstructure:"max_pixels"`
	MaxRegenerationAttempts int     `yaml:"max_regeneration_attempts" mapstructure:"max_regeneration_attempts"`
}

// StoryboardConfig 分镜规划配置
type StoryboardConfig struct {
	MinFrames     int `yaml:"min_frames" mapstructure:"min_frames"`
	MaxFrames     int `yaml:"max_frames" mapstructure:"max_frames"`
	DefaultFrames int `yaml:"default_frames" mapstructure:"default_frames"`
}

// MessagingConfig 消息队列配置
type MessagingConfig struct {
	RedisStream RedisStreamConfig `yaml:"redis_stream" mapstructure:"redis_stream"`
}

// RedisStreamConfig Redis Stream 配置
type RedisStreamConfig struct {
	MaxLen              int           `yaml:"max_len" mapstructure:"max_len"`
	ConsumerGroupPrefix string        `yaml:"consumer_group_prefix" mapstructure:"consumer_group_prefix"`
	BlockTimeout        time.Duration `yaml:"block_timeout" mapstructure:"block_timeout"`
	ClaimInterval       time.Duration `yaml:"claim_interval" mapstructure:"claim_interval"`
	RetryLimit          int           `yaml:"retry_limit" mapstructure:"retry_limit"`
	RetryBackoff        BackoffConfig `yaml:"retry_backoff" mapstructure:"retry_backoff"`
}

// BackoffConfig 退避配置
type BackoffConfig struct {
	Initial    time.Duration `yaml:"initial" mapstructure:"initial"`
	Max        time.Duration `yaml:"max" mapstructure:"max"`
	Multiplier float64       `yaml:"multiplier" mapstructure:"multiplier"`
}

// ObservabilityConfig 可观测性配置
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`
	Tracing TracingConfig `yaml:"tracing" mapstructure:"tracing"`
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// TracingConfig 追踪配置
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled" mapstructure:"enabled"`
	Endpoint   string  `yaml:"endpoint" mapstructure:"endpoint"`
	SampleRate float64 `yaml:"sample_rate" mapstructure:"sample_rate"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path"`
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	RateLimit RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
	CORS      CORSConfig      `yaml:"cors" mapstructure:"cors"`
}

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled" mapstructure:"enabled"`
	RequestsPerSecond int  `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int  `yaml:"burst" mapstructure:"burst"`
}

// CORSConfig CORS 配置
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods" mapstructure:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers" mapstructure:"allowed_headers"`
}
