package provider

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotFound 表示请求成功但没有可用结果（无匹配链接 / API 无结果）。
	ErrNotFound = errors.New("not found")
	// ErrDisabled 表示阶段未启用（例如缺少 API key），调用方应直接跳过。
	ErrDisabled = errors.New("disabled")
	// ErrMalformed 表示响应拿到了但内容无法解析。
	ErrMalformed = errors.New("malformed response")
)

const (
	StageSearch = "search"
	StageFetch  = "fetch"
	StageParse  = "parse"
	StageEnrich = "enrich"
)

// Kind 是内部错误细分，只用于日志与诊断；对外契约仍是粗粒度状态。
type Kind string

const (
	KindTimeout    Kind = "timeout"
	KindHTTPStatus Kind = "http_status"
	KindNetwork    Kind = "network"
	KindBlocked    Kind = "blocked"
	KindParse      Kind = "parse"
	KindNotFound   Kind = "not_found"
	KindDisabled   Kind = "disabled"
)

// Error 是 provider 阶段的可追溯错误。
type Error struct {
	Provider string // "google" / "lddb" / "tmdb"
	Stage    string
	Kind     Kind
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("provider=%s stage=%s kind=%s: %v", e.Provider, e.Stage, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Fail 把 err 包装成 *Error，并按错误类型推断 Kind。
// err 已经是 *Error 时原样返回（避免多层包装）。
func Fail(provider, stage string, err error) error {
	if err == nil {
		return nil
	}
	var pe *Error
	if errors.As(err, &pe) {
		return err
	}
	return &Error{Provider: provider, Stage: stage, Kind: classify(stage, err), Err: err}
}

// KindOf 从 err 中提取 Kind；不是 *Error 时按同样的规则推断。
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return classify("", err)
}

func classify(stage string, err error) Kind {
	var (
		statusErr  *HTTPStatusError
		blockedErr *BlockedError
		timeoutErr interface{ Timeout() bool }
	)
	switch {
	case errors.Is(err, ErrDisabled):
		return KindDisabled
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrMalformed):
		return KindParse
	case errors.As(err, &blockedErr):
		return KindBlocked
	case errors.As(err, &statusErr):
		return KindHTTPStatus
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.As(err, &timeoutErr) && timeoutErr.Timeout():
		return KindTimeout
	case stage == StageParse:
		return KindParse
	default:
		return KindNetwork
	}
}
