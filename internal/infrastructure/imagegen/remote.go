// Package imagegen 图像生成方适配器：Gemini 与远程 GPU 推理端点
package imagegen

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sapogeth/qylysh-higgsfiled/internal/application/storyboard"
	"github.com/sapogeth/qylysh-higgsfiled/internal/config"
	apperrors "github.com/sapogeth/qylysh-higgsfiled/pkg/errors"
)

const (
	defaultRemoteTimeout = 2 * time.Minute
	healthTimeout        = 5 * time.Second
)

// RemoteGenerator 调用自托管的 SDXL/LoRA 推理服务（POST /generate，返回 base64 图像）
type RemoteGenerator struct {
	name       string
	endpoint   string
	width      int
	height     int
	steps      int
	guidance   float64
	httpClient *http.Client
}

type remoteRequest struct {
	Prompt         string  `json:"prompt"`
	NegativePrompt string  `json:"negative_prompt,omitempty"`
	Seed           *int64  `json:"seed,omitempty"`
	Width          int     `json:"width,omitempty"`
	Height         int     `json:"height,omitempty"`
	Steps          int     `json:"num_inference_steps,omitempty"`
	Guidance       float64 `json:"guidance_scale,omitempty"`
}

type remoteResponse struct {
	Success     bool   `json:"success"`
	ImageBase64 string `json:"image_base64"`
	Error       string `json:"error"`
}

// HealthStatus /health 返回的设备信息
type HealthStatus struct {
	Status string `json:"status"`
	Device string `json:"device"`
	GPU    string `json:"gpu"`
}

// NewRemoteGenerator 创建远程生成方
func NewRemoteGenerator(name string, cfg config.ImageProviderConfig) (*RemoteGenerator, error) {
	endpoint := strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/")
	if endpoint == "" {
		return nil, apperrors.ErrInvalidParam.WithDetail("remote generator " + name + " has no endpoint")
	}
	if _, err := url.Parse(endpoint); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInvalidParam, "invalid remote generator endpoint")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultRemoteTimeout
	}
	return &RemoteGenerator{
		name:       name,
		endpoint:   endpoint,
		width:      cfg.Width,
		height:     cfg.Height,
		steps:      cfg.Steps,
		guidance:   cfg.Guidance,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// Name 生成方名称
func (g *RemoteGenerator) Name() string { return g.name }

// Generate 同步生成一张图
func (g *RemoteGenerator) Generate(ctx context.Context, req storyboard.GenerationRequest) ([]byte, error) {
	body, err := json.Marshal(&remoteRequest{
		Prompt:         req.Positive,
		NegativePrompt: req.Negative,
		Seed:           req.Seed,
		Width:          g.width,
		Height:         g.height,
		Steps:          g.steps,
		Guidance:       g.guidance,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal generate request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint+"/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create generate request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeGenerationFailed, "remote generator unreachable").WithDetail(g.name)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, apperrors.ErrGenerationFailed.WithDetail(fmt.Sprintf("%s: status=%d", g.name, httpResp.StatusCode))
	}

	var resp remoteResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeGenerationFailed, "decode generate response").WithDetail(g.name)
	}
	if !resp.Success {
		msg := resp.Error
		if msg == "" {
			msg = "unknown error"
		}
		return nil, apperrors.ErrGenerationFailed.WithDetail(g.name + ": " + msg)
	}

	data, err := base64.StdEncoding.DecodeString(resp.ImageBase64)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeGenerationFailed, "decode image payload").WithDetail(g.name)
	}
	return data, nil
}

// Health 探测推理端点
func (g *RemoteGenerator) Health(ctx context.Context) (*HealthStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, g.endpoint+"/health", nil)
	if err != nil {
		return nil, err
	}
	httpResp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeServiceUnavailable, "remote generator unreachable").WithDetail(g.name)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return nil, apperrors.ErrServiceUnavailable.WithDetail(fmt.Sprintf("%s health: status=%d", g.name, httpResp.StatusCode))
	}
	var status HealthStatus
	if err := json.NewDecoder(httpResp.Body).Decode(&status); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeServiceUnavailable, "decode health response")
	}
	return &status, nil
}
