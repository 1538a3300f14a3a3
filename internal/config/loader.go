// Package config 提供配置加载功能
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/viper"
)

// Load 加载配置文件
// 按优先级加载：默认配置 -> 环境配置 -> 环境变量
func Load() (*Config, error) {
	return LoadFromDir("configs")
}

// LoadFromDir 从指定目录加载 config.yaml 与 config.$APP_ENV.yaml
func LoadFromDir(dir string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	// 1. 加载默认配置
	if err := loadConfigFile(v, filepath.Join(dir, "config.yaml"), false); err != nil {
		return nil, err
	}

	// 2. 加载环境特定配置
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}
	envFile := filepath.Join(dir, fmt.Sprintf("config.%s.yaml", env))
	if err := loadConfigFile(v, envFile, true); err != nil {
		return nil, err
	}

	// 3. 绑定环境变量 (直接覆盖)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 设置默认值 (兜底)
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// loadConfigFile 读取文件，执行环境变量替换，并加载到 viper
func loadConfigFile(v *viper.Viper, path string, optional bool) error {
	content, err := os.ReadFile(path)
	if err != nil {
		if optional && os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	// 执行环境变量替换
	expanded := expandEnv(string(content))

	// 加载到 viper
	reader := strings.NewReader(expanded)
	if v.ConfigFileUsed() == "" {
		if err := v.ReadConfig(reader); err != nil {
			return fmt.Errorf("failed to read processed config %s: %w", path, err)
		}
		// 手动标记已加载文件，防止后续 ReadInConfig 报错
		v.SetConfigFile(path)
	} else {
		if err := v.MergeConfig(reader); err != nil {
			return fmt.Errorf("failed to merge processed config %s: %w", path, err)
		}
	}

	return nil
}

// envPattern 匹配 ${VAR} 或 ${VAR:default}
// g1: 变量名, g2: 默认值部分（含冒号）, g3: 默认值内容
var envPattern = regexp.MustCompile(`\${(\w+)(:([^}]*))?}`)

// expandEnv 替换字符串中的 ${VAR:default} 占位符
func expandEnv(s string) string {
	return envPattern.ReplaceAllStringFunc(s, func(match string) string {
		submatch := envPattern.FindStringSubmatch(match)
		key := submatch[1]
		hasDefault := submatch[2] != ""
		defVal := submatch[3]

		val, ok := os.LookupEnv(key)
		if ok {
			return val
		}
		if hasDefault {
			return defVal
		}
		// 保留原样以便识别未定义的变量
		return match
	})
}

// MustLoad 加载配置，失败时 panic
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// setDefaults 设置配置默认值
func setDefaults(v *viper.Viper) {
	// 应用默认值
	v.SetDefault("app.name", "storyboard-api")
	v.SetDefault("app.version", "v0.0.0")
	v.SetDefault("app.env", "development")

	// HTTP 服务器默认值
	v.SetDefault("server.http.host", "0.0.0.0")
	v.SetDefault("server.http.port", 8080)
	v.SetDefault("server.http.read_timeout", "30s")
	v.SetDefault("server.http.write_timeout", "300s")
	v.SetDefault("server.http.idle_timeout", "120s")
	v.SetDefault("server.http.max_upload_bytes", 32<<20)
	v.SetDefault("server.http.static_dir", "static/generated")
	v.SetDefault("server.http.static_prefix", "/static/generated")
	v.SetDefault("server.http.shutdown_timeout", "60s")

	// 数据库默认值
	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.user", "postgres")
	v.SetDefault("database.postgres.database", "storyboard")
	v.SetDefault("database.postgres.ssl_mode", "disable")
	v.SetDefault("database.postgres.max_open_conns", 20)
	v.SetDefault("database.postgres.max_idle_conns", 5)
	v.SetDefault("database.postgres.conn_max_lifetime", "30m")
	v.SetDefault("database.postgres.conn_max_idle_time", "5m")

	// Redis 默认值
	v.SetDefault("cache.redis.host", "localhost")
	v.SetDefault("cache.redis.port", 6379)
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.pool_size", 50)
	v.SetDefault("cache.redis.min_idle_conns", 5)
	v.SetDefault("cache.redis.dial_timeout", "5s")
	v.SetDefault("cache.redis.read_timeout", "3s")
	v.SetDefault("cache.redis.write_timeout", "3s")
	v.SetDefault("cache.embedding.enabled", true)
	v.SetDefault("cache.embedding.memory_ttl", "30m")
	v.SetDefault("cache.embedding.redis_ttl", "168h")
	v.SetDefault("cache.embedding.key_prefix", "emb:")
	v.SetDefault("cache.embedding.cleanup_tick", "10m")

	// Milvus 默认值
	v.SetDefault("vector.milvus.enabled", false)
	v.SetDefault("vector.milvus.host", "localhost")
	v.SetDefault("vector.milvus.port", 19530)
	v.SetDefault("vector.milvus.collection_prefix", "storyboard")
	v.SetDefault("vector.milvus.index_type", "HNSW")
	v.SetDefault("vector.milvus.metric_type", "COSINE")
	v.SetDefault("vector.milvus.hnsw_m", 16)
	v.SetDefault("vector.milvus.hnsw_ef_construction", 200)

	// LLM 默认值
	v.SetDefault("llm.default_provider", "openai")

	// Embedding 默认值
	v.SetDefault("embedding.provider", "http")
	v.SetDefault("embedding.model", "openai/clip-vit-base-patch32")
	v.SetDefault("embedding.dimension", 512)
	v.SetDefault("embedding.batch_size", 32)
	v.SetDefault("embedding.endpoint", "http://localhost:8001")
	v.SetDefault("embedding.timeout", "30s")

	// 图像生成默认值
	v.SetDefault("image_gen.default_provider", "gemini")
	v.SetDefault("image_gen.candidate_provider", "local")
	v.SetDefault("image_gen.concurrency", 2)
	v.SetDefault("image_gen.requests_per_minute", 20)
	v.SetDefault("image_gen.output_dir", "static/generated")

	// 角色默认值
	ch := DefaultCharacter()
	v.SetDefault("character.name", ch.Name)
	v.SetDefault("character.display_name", ch.DisplayName)
	v.SetDefault("character.trigger_word", ch.TriggerWord)
	v.SetDefault("character.eye_color", ch.EyeColor)
	v.SetDefault("character.hair", ch.Hair)
	v.SetDefault("character.facial_hair", ch.FacialHair)
	v.SetDefault("character.clothing", ch.Clothing)
	v.SetDefault("character.hat", ch.Hat)
	v.SetDefault("character.expression", ch.Expression)
	v.SetDefault("character.style_clause", ch.StyleClause)
	v.SetDefault("character.style_lock", ch.StyleLock)
	v.SetDefault("character.quality_suffix", ch.QualitySuffix)
	v.SetDefault("character.negative_prompt", ch.NegativePrompt)
	v.SetDefault("character.lighting_hint", ch.LightingHint)

	// 提示词预算默认值
	v.SetDefault("prompt.token_budget", 75)
	v.SetDefault("prompt.hard_limit", 77)
	v.SetDefault("prompt.scene_word_limit", 15)
	v.SetDefault("prompt.cyrillic_ratio", 0.3)
	v.SetDefault("prompt.max_keywords", 3)
	v.SetDefault("prompt.fallback_keywords", "folk tale scene")

	// 评估默认值
	v.SetDefault("evaluation.reference_images", []string{
		"assets/references/aldar1.png",
		"assets/references/aldar2.png",
		"assets/references/aldar3.png",
		"assets/references/aldar4.png",
		"assets/references/aldar5.png",
	})
	v.SetDefault("evaluation.key_features", []string{
		"round friendly face",
		"narrow eyes",
		"mustache",
		"orange robe",
		"2D illustration",
	})
	v.SetDefault("evaluation.report_dir", "reports")
	v.SetDefault("evaluation.ssim_size", 256)
	v.SetDefault("evaluation.feedback.high_gap", 0.1)
	v.SetDefault("evaluation.feedback.ssim_gap", 0.05)
	v.SetDefault("evaluation.feedback.training_gap", 0.15)

	// 单图校验默认值
	v.SetDefault("validation.min_dimension", 512)
	v.SetDefault("validation.min_sharpness", 50.0)
	v.SetDefault("validation.min_contrast", 30.0)
	v.SetDefault("validation.min_channel_std", 10.0)
	v.SetDefault("validation.max_extreme_fraction", 0.3)
	v.SetDefault("validation.max_pixels", 40000000)
	v.SetDefault("validation.max_regeneration_attempts", 2)

	// 分镜默认值
	v.SetDefault("storyboard.min_frames", 5)
	v.SetDefault("storyboard.max_frames", 9)
	v.SetDefault("storyboard.default_frames", 7)

	// 消息队列默认值
	v.SetDefault("messaging.redis_stream.max_len", 10000)
	v.SetDefault("messaging.redis_stream.consumer_group_prefix", "storyboard")
	v.SetDefault("messaging.redis_stream.block_timeout", "5s")
	v.SetDefault("messaging.redis_stream.claim_interval", "30s")
	v.SetDefault("messaging.redis_stream.retry_limit", 3)
	v.SetDefault("messaging.redis_stream.retry_backoff.initial", "1s")
	v.SetDefault("messaging.redis_stream.retry_backoff.max", "60s")
	v.SetDefault("messaging.redis_stream.retry_backoff.multiplier", 2.0)

	// 可观测性默认值
	v.SetDefault("observability.logging.level", "info")
	v.SetDefault("observability.logging.format", "json")
	v.SetDefault("observability.tracing.enabled", false)
	v.SetDefault("observability.tracing.endpoint", "localhost:4317")
	v.SetDefault("observability.tracing.sample_rate", 1.0)
	v.SetDefault("observability.metrics.enabled", true)
	v.SetDefault("observability.metrics.path", "/metrics")

	// 安全默认值
	v.SetDefault("security.rate_limit.enabled", true)
	v.SetDefault("security.rate_limit.requests_per_second", 20)
	v.SetDefault("security.rate_limit.burst", 40)
}
