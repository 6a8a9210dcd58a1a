package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/John-Robertt/catalogd/internal/provider/google"
	"github.com/John-Robertt/catalogd/internal/provider/lddb"
	"github.com/John-Robertt/catalogd/internal/provider/tmdb"
)

const (
	// ErrCodeNotFound 表示显式指定的配置文件不存在。
	ErrCodeNotFound = "config_not_found"
	// ErrCodeInvalid 表示配置文件无法读取/解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
)

const (
	// FileName 是未指定 --config 时在 cwd 下查找的配置文件名（可选）。
	FileName = "catalogd.yaml"

	DefaultAddr      = "0.0.0.0:5001"
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
	DefaultTimeout   = 10 * time.Second
)

// TMDB API key 的环境变量，按顺序取第一个非空值。
var apiKeyEnv = []string{"TMDB_API_KEY", "VITE_TMDB_API_KEY"}

const addrEnv = "CATALOGD_ADDR"

// CLIArgs 只包含 CLI 暴露的入口，并保留“是否显式指定”的信息。
type CLIArgs struct {
	ConfigPath string

	Addr    string
	AddrSet bool

	LogLevel    string
	LogLevelSet bool
}

// FileConfig 对应 catalogd.yaml 的解析结构。
type FileConfig struct {
	Addr           string       `yaml:"addr"`
	LogLevel       string       `yaml:"log_level"`
	LogFormat      string       `yaml:"log_format"`
	TimeoutSeconds int          `yaml:"timeout_seconds"`
	Proxy          *ProxyConfig `yaml:"proxy"`
	SearchBaseURL  string       `yaml:"search_base_url"`
	LDDBBaseURL    string       `yaml:"lddb_base_url"`
	TMDB           *TMDBFile    `yaml:"tmdb"`
}

type ProxyConfig struct {
	URL string `yaml:"url"`
}

type TMDBFile struct {
	BaseURL      string `yaml:"base_url"`
	ImageBaseURL string `yaml:"image_base_url"`
}

// TMDBConfig 是 enrichment 阶段的显式配置；APIKey 为空表示禁用。
type TMDBConfig struct {
	APIKey       string
	BaseURL      string
	ImageBaseURL string
}

// EffectiveConfig 是合并并做最小规范化后的最终配置（实现层直接消费，不再做二次默认/优先级判断）。
type EffectiveConfig struct {
	Addr      string
	LogLevel  string
	LogFormat string

	Timeout  time.Duration
	ProxyURL string

	SearchBaseURL string
	LDDBBaseURL   string
	TMDB          TMDBConfig

	// Source 是实际读取的配置文件路径；未读取任何文件时为空。
	Source string
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeNotFound:
		return fmt.Sprintf("%s：未找到配置文件 %q", e.Code, e.Path)
	case ErrCodeInvalid:
		if e.Err != nil {
			return fmt.Sprintf("%s：配置文件 %q 无效：%v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s：配置文件 %q 无效", e.Code, e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// LoadEffective 发现并读取配置文件，然后与环境变量、CLI 参数合并为最终配置。
//
// 发现规则（固定）：
// 1) CLI 提供 --config：必须存在
// 2) 否则尝试 <cwd>/catalogd.yaml（可选，不存在不报错）
//
// 覆盖优先级（固定）：默认值 < 配置文件 < 环境变量 < CLI。
// TMDB API key 只从环境变量读取（getenv 为 nil 时使用 os.Getenv）。
func LoadEffective(cwd string, cli CLIArgs, getenv func(string) string) (EffectiveConfig, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cwd, Err: err}
	}

	var (
		cfgPath string
		fc      FileConfig
		exists  bool
	)
	if p := strings.TrimSpace(cli.ConfigPath); p != "" {
		cfgPath = absCleanFrom(cwdAbs, p)
		fc, exists, err = readFileConfig(cfgPath)
		if err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
		}
		if !exists {
			return EffectiveConfig{}, &Error{Code: ErrCodeNotFound, Path: cfgPath, Err: os.ErrNotExist}
		}
	} else {
		cfgPath = filepath.Join(cwdAbs, FileName)
		fc, exists, err = readFileConfig(cfgPath)
		if err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
		}
	}

	eff, err := merge(cli, fc, getenv, cfgPath)
	if err != nil {
		return EffectiveConfig{}, err
	}
	if exists {
		eff.Source = cfgPath
	}
	return eff, nil
}

// APIKeyFromEnv 按 TMDB_API_KEY > VITE_TMDB_API_KEY 的顺序取第一个非空值。
func APIKeyFromEnv(getenv func(string) string) string {
	for _, k := range apiKeyEnv {
		if v := strings.TrimSpace(getenv(k)); v != "" {
			return v
		}
	}
	return ""
}

func merge(cli CLIArgs, fc FileConfig, getenv func(string) string, cfgPath string) (EffectiveConfig, error) {
	invalid := func(err error) error {
		return &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}

	// addr：CLI > env > config > 默认
	addr := DefaultAddr
	if v := strings.TrimSpace(fc.Addr); v != "" {
		addr = v
	}
	if v := strings.TrimSpace(getenv(addrEnv)); v != "" {
		addr = v
	}
	if cli.AddrSet {
		addr = strings.TrimSpace(cli.Addr)
	}
	if addr == "" {
		return EffectiveConfig{}, invalid(fmt.Errorf("addr 不能为空"))
	}

	level := DefaultLogLevel
	if v := strings.TrimSpace(fc.LogLevel); v != "" {
		level = v
	}
	if cli.LogLevelSet {
		level = strings.TrimSpace(cli.LogLevel)
	}
	level = strings.ToLower(level)
	if err := validateLevel(level); err != nil {
		return EffectiveConfig{}, invalid(err)
	}

	format := DefaultLogFormat
	if v := strings.ToLower(strings.TrimSpace(fc.LogFormat)); v != "" {
		format = v
	}
	if format != "text" && format != "json" {
		return EffectiveConfig{}, invalid(fmt.Errorf("log_format 只能是 text 或 json，实际是 %q", fc.LogFormat))
	}

	timeout := DefaultTimeout
	if fc.TimeoutSeconds < 0 {
		return EffectiveConfig{}, invalid(fmt.Errorf("timeout_seconds 不能为负数：%d", fc.TimeoutSeconds))
	}
	if fc.TimeoutSeconds > 0 {
		timeout = time.Duration(fc.TimeoutSeconds) * time.Second
	}

	proxyURL := ""
	if fc.Proxy != nil {
		proxyURL = strings.TrimSpace(fc.Proxy.URL)
	}
	if proxyURL != "" {
		if err := validateHTTPURL("proxy.url", proxyURL); err != nil {
			return EffectiveConfig{}, invalid(err)
		}
	}

	searchBase, err := baseURLOr("search_base_url", fc.SearchBaseURL, google.DefaultBaseURL)
	if err != nil {
		return EffectiveConfig{}, invalid(err)
	}
	lddbBase, err := baseURLOr("lddb_base_url", fc.LDDBBaseURL, lddb.DefaultBaseURL)
	if err != nil {
		return EffectiveConfig{}, invalid(err)
	}

	var tf TMDBFile
	if fc.TMDB != nil {
		tf = *fc.TMDB
	}
	tmdbBase, err := baseURLOr("tmdb.base_url", tf.BaseURL, tmdb.DefaultBaseURL)
	if err != nil {
		return EffectiveConfig{}, invalid(err)
	}
	tmdbImage, err := baseURLOr("tmdb.image_base_url", tf.ImageBaseURL, tmdb.DefaultImageBaseURL)
	if err != nil {
		return EffectiveConfig{}, invalid(err)
	}

	return EffectiveConfig{
		Addr:          addr,
		LogLevel:      level,
		LogFormat:     format,
		Timeout:       timeout,
		ProxyURL:      proxyURL,
		SearchBaseURL: searchBase,
		LDDBBaseURL:   lddbBase,
		TMDB: TMDBConfig{
			APIKey:       APIKeyFromEnv(getenv),
			BaseURL:      tmdbBase,
			ImageBaseURL: tmdbImage,
		},
	}, nil
}

func validateLevel(level string) error {
	switch level {
	case "trace", "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("log_level 只能是 trace/debug/info/warn/error，实际是 %q", level)
	}
}

func baseURLOr(field, v, def string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return def, nil
	}
	if err := validateHTTPURL(field, v); err != nil {
		return "", err
	}
	return strings.TrimRight(v, "/"), nil
}

func validateHTTPURL(field, v string) error {
	u, err := url.Parse(v)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s 无效：%q", field, v)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s 必须是 http/https：%q", field, v)
	}
	return nil
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
func absCleanFrom(base, p string) string {
	p = filepath.Clean(strings.TrimSpace(p))
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}

// readFileConfig 读取并解析 YAML 配置文件。
// 返回值 exists 表示该文件是否存在（不存在不算错误）。
func readFileConfig(path string) (fc FileConfig, exists bool, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, false, nil
		}
		return FileConfig{}, false, err
	}
	if err := yaml.Unmarshal(b, &fc); err != nil {
		return FileConfig{}, true, err
	}
	return fc, true, nil
}
