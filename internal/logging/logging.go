package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hashicorp/go-hclog"
)

// Name 是根 logger 的名字，子组件通过 Named 派生。
const Name = "catalogd"

// Options 描述根 logger 的构造参数；零值等价于 info/text/stderr。
type Options struct {
	Level  string
	Format string
	Output io.Writer
}

// New 构造根 logger。Level 非法时返回错误（不静默回退）。
func New(opts Options) (hclog.Logger, error) {
	level := hclog.Info
	if s := strings.TrimSpace(opts.Level); s != "" {
		level = hclog.LevelFromString(s)
		if level == hclog.NoLevel {
			return nil, fmt.Errorf("未知日志级别：%q", opts.Level)
		}
	}

	var jsonFormat bool
	switch strings.ToLower(strings.TrimSpace(opts.Format)) {
	case "", "text":
	case "json":
		jsonFormat = true
	default:
		return nil, fmt.Errorf("未知日志格式：%q", opts.Format)
	}

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	return hclog.New(&hclog.LoggerOptions{
		Name:       Name,
		Level:      level,
		Output:     out,
		JSONFormat: jsonFormat,
	}), nil
}
