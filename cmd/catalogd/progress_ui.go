package main

import (
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/John-Robertt/catalogd/internal/app/lookup"
	"github.com/John-Robertt/catalogd/internal/config"
)

var _ lookup.Observer = (*progressUI)(nil)

// progressUI 是 lookup 命令在交互终端下的阶段输出。
// 所有过程信息写到 stderr，不污染 stdout 的 JSON 输出。
type progressUI struct {
	w io.Writer

	mu sync.Mutex
}

func newProgressUI(w io.Writer) *progressUI {
	return &progressUI{w: w}
}

func (p *progressUI) OnStart(eff config.EffectiveConfig, catalog string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.w, "[%s] catalogd lookup %q\n", time.Now().Format("15:04:05"), strings.TrimSpace(catalog))
	fmt.Fprintln(p.w, "配置（生效）:")
	fmt.Fprintf(p.w, "  search: %s\n", truncate(eff.SearchBaseURL, 120))
	fmt.Fprintf(p.w, "  lddb: %s\n", truncate(eff.LDDBBaseURL, 120))
	fmt.Fprintf(p.w, "  tmdb: %s\n", onOff(eff.TMDB.APIKey != ""))
	fmt.Fprintf(p.w, "  timeout: %s\n", eff.Timeout)
	fmt.Fprintf(p.w, "  proxy: %s\n", formatProxy(eff.ProxyURL))
	if eff.Source != "" {
		fmt.Fprintf(p.w, "  config: %s\n", eff.Source)
	}
	fmt.Fprintln(p.w)
}

func (p *progressUI) OnStageDone(stage string, fields map[string]any, dur time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	status := "OK"
	detail := ""
	if ok, _ := fields["ok"].(bool); !ok {
		status = "FAIL"
		detail = " kind=" + stringField(fields, "kind")
	}

	switch stage {
	case lookup.StageLocate:
		if status == "OK" {
			detail = " url=" + truncate(stringField(fields, "url"), 120)
		}
		fmt.Fprintf(p.w, "搜索: %s%s (%s)\n", status, detail, formatShortDuration(dur))
	case lookup.StageExtract:
		if status == "OK" {
			detail = fmt.Sprintf(" title=%q", truncate(stringField(fields, "title"), 80))
		}
		fmt.Fprintf(p.w, "抽取: %s%s (%s)\n", status, detail, formatShortDuration(dur))
	case lookup.StageEnrich:
		if status == "OK" {
			detail = fmt.Sprintf(" tmdb_id=%v", fields["tmdb_id"])
		}
		fmt.Fprintf(p.w, "补全: %s%s (%s)\n", status, detail, formatShortDuration(dur))
	default:
		// 未知阶段也不要静默。
		fmt.Fprintf(p.w, "%s: %s%s (%s)\n", stage, status, detail, formatShortDuration(dur))
	}
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

func formatProxy(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "off"
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "on (" + truncate(raw, 120) + ")"
	}
	auth := "off"
	if u.User != nil {
		auth = "on"
	}
	return fmt.Sprintf("on (%s://%s, auth=%s)", u.Scheme, u.Host, auth)
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if max <= 0 || len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

func formatShortDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func stringField(fields map[string]any, key string) string {
	s, _ := fields[key].(string)
	return s
}
