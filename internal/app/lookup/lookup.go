package lookup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/John-Robertt/catalogd/internal/domain"
	"github.com/John-Robertt/catalogd/internal/provider"
)

// ErrEmptyCatalog 表示 catalog number 去空白后为空（HTTP 层映射为 400）。
var ErrEmptyCatalog = errors.New("missing catalog number")

// 对外稳定的消息文本（status=not_found / status=error）。
const (
	msgNotFound      = "No LDDB results found for catalog number: %s"
	msgExtractFailed = "Found LDDB page but could not extract metadata"
)

// 阶段名，同时用于日志字段与 Observer 事件。
const (
	StageLocate  = "locate"
	StageExtract = "extract"
	StageEnrich  = "enrich"
)

// Observer 把阶段事件从核心流程中解耦出来；lookup 包自身不做任何输出。
type Observer interface {
	OnStageDone(stage string, fields map[string]any, dur time.Duration)
}

// Service 串行执行 定位 → 抽取 → 补全 三个阶段。
// Enricher 为 nil 表示补全被禁用；Log 为 nil 时不输出日志。
type Service struct {
	Locator   provider.Locator
	Extractor provider.Extractor
	Enricher  provider.Enricher
	Log       hclog.Logger
}

// Lookup 处理单个 catalog number。
//
// 外部失败（搜索/抓取/解析/补全）全部降级为 LookupResponse 的 status；
// 返回的 error 只表示输入为空（ErrEmptyCatalog）或服务本身装配不完整。
func (s *Service) Lookup(ctx context.Context, raw string, obs Observer) (domain.LookupResponse, error) {
	catalog, ok := domain.ParseCatalog(raw)
	if !ok {
		return domain.LookupResponse{}, ErrEmptyCatalog
	}
	if s.Locator == nil || s.Extractor == nil {
		return domain.LookupResponse{}, fmt.Errorf("lookup service 未完整装配（locator/extractor 为空）")
	}
	log := s.logger().With("catalog", string(catalog))
	if id := RequestID(ctx); id != "" {
		log = log.With("request_id", id)
	}

	started := time.Now()
	pageURL, err := s.Locator.Locate(ctx, catalog)
	dur := time.Since(started)
	if err != nil {
		log.Info("locate failed", failFields(err, dur)...)
		emit(obs, StageLocate, map[string]any{"ok": false, "kind": string(provider.KindOf(err))}, dur)
		return domain.NotFound(fmt.Sprintf(msgNotFound, catalog)), nil
	}
	log.Debug("located", "url", pageURL, "duration", dur)
	emit(obs, StageLocate, map[string]any{"ok": true, "url": pageURL}, dur)

	started = time.Now()
	meta, err := s.Extractor.Extract(ctx, pageURL)
	dur = time.Since(started)
	if err != nil {
		log.Warn("extract failed", append(failFields(err, dur), "url", pageURL)...)
		emit(obs, StageExtract, map[string]any{"ok": false, "kind": string(provider.KindOf(err))}, dur)
		return domain.Failed(msgExtractFailed), nil
	}
	log.Debug("extracted", "title", meta.Title, "duration", dur)
	emit(obs, StageExtract, map[string]any{"ok": true, "title": meta.Title}, dur)

	if s.Enricher != nil && meta.CanEnrich() {
		s.enrich(ctx, log, obs, &meta)
	}

	return domain.Success(meta, catalog), nil
}

// enrich 的任何失败都只记录日志，不影响已抽取的结果。
func (s *Service) enrich(ctx context.Context, log hclog.Logger, obs Observer, meta *domain.Metadata) {
	started := time.Now()
	e, err := s.Enricher.Enrich(ctx, meta.Title, *meta.Year)
	dur := time.Since(started)
	if err != nil {
		level := hclog.Info
		if provider.KindOf(err) == provider.KindDisabled {
			level = hclog.Debug
		}
		log.Log(level, "enrich unavailable", failFields(err, dur)...)
		emit(obs, StageEnrich, map[string]any{"ok": false, "kind": string(provider.KindOf(err))}, dur)
		return
	}
	meta.Merge(e)
	log.Debug("enriched", "tmdb_id", e.TMDBID, "duration", dur)
	emit(obs, StageEnrich, map[string]any{"ok": true, "tmdb_id": e.TMDBID}, dur)
}

type requestIDKey struct{}

// WithRequestID 把请求 id 挂到 ctx 上，Lookup 的日志会带上 request_id 字段。
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func (s *Service) logger() hclog.Logger {
	if s.Log == nil {
		return hclog.NewNullLogger()
	}
	return s.Log
}

func failFields(err error, dur time.Duration) []any {
	fields := []any{"kind", string(provider.KindOf(err)), "error", err, "duration", dur}
	var pe *provider.Error
	if errors.As(err, &pe) {
		fields = append(fields, "provider", pe.Provider, "stage", pe.Stage)
	}
	return fields
}

func emit(obs Observer, stage string, fields map[string]any, dur time.Duration) {
	if obs != nil {
		obs.OnStageDone(stage, fields, dur)
	}
}
