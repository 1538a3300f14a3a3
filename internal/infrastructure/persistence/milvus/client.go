// Package milvus 提供生成图向量归档的 Milvus 实现
package milvus

import (
	"context"
	"fmt"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/sapogeth/qylysh-higgsfiled/internal/config"
	apperrors "github.com/sapogeth/qylysh-higgsfiled/pkg/errors"
)

var tracer = otel.Tracer("milvus")

const connectTimeout = 10 * time.Second

// Client 归档使用的 Milvus 连接
type Client struct {
	milvus client.Client
	config *config.MilvusConfig
}

// NewClient 连接 Milvus，超时或认证失败返回向量库错误
func NewClient(ctx context.Context, cfg *config.MilvusConfig) (*Client, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	mc, err := client.NewClient(ctx, clientConfig(cfg))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeVectorDBError, "connect milvus").
			WithDetail(fmt.Sprintf("%s:%d", cfg.Host, cfg.Port))
	}
	return &Client{milvus: mc, config: cfg}, nil
}

func clientConfig(cfg *config.MilvusConfig) client.Config {
	c := client.Config{Address: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)}
	// 只有用户名密码都配置时才启用认证
	if cfg.User != "" && cfg.Password != "" {
		c.Username = cfg.User
		c.Password = cfg.Password
	}
	return c
}

// Close 关闭连接
func (c *Client) Close() error {
	return c.milvus.Close()
}

// HealthCheck 检查连接与归档集合；集合缺失说明 bootstrap 尚未执行
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "milvus.HealthCheck")
	defer span.End()

	exists, err := c.HasCollection(ctx, CollectionGenerations)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("health check failed: %w", err)
	}
	if !exists {
		return fmt.Errorf("collection %s not initialized", c.CollectionName(CollectionGenerations))
	}
	return nil
}

// CollectionName 加上配置的集合前缀
func (c *Client) CollectionName(name string) string {
	if c.config.CollectionPrefix == "" {
		return name
	}
	return c.config.CollectionPrefix + "_" + name
}

func (c *Client) HasCollection(ctx context.Context, name string) (bool, error) {
	ctx, span := tracer.Start(ctx, "milvus.HasCollection",
		trace.WithAttributes(attribute.String("collection", c.CollectionName(name))))
	defer span.End()

	return c.milvus.HasCollection(ctx, c.CollectionName(name))
}

// LoadCollection 同步加载集合，检索前必须完成
func (c *Client) LoadCollection(ctx context.Context, name string) error {
	ctx, span := tracer.Start(ctx, "milvus.LoadCollection",
		trace.WithAttributes(attribute.String("collection", c.CollectionName(name))))
	defer span.End()

	return c.milvus.LoadCollection(ctx, c.CollectionName(name), false)
}
