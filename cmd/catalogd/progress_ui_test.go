package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/John-Robertt/catalogd/internal/app/lookup"
	"github.com/John-Robertt/catalogd/internal/config"
)

func TestProgressUI_StageLines(t *testing.T) {
	var buf bytes.Buffer
	p := newProgressUI(&buf)
	p.OnStart(config.EffectiveConfig{SearchBaseURL: "https://www.google.com", Timeout: 10 * time.Second}, " ML1 ")
	p.OnStageDone(lookup.StageLocate, map[string]any{"ok": true, "url": "https://www.lddb.com/laserdisc/1/ML1"}, 1500*time.Millisecond)
	p.OnStageDone(lookup.StageExtract, map[string]any{"ok": false, "kind": "timeout"}, 10*time.Second)

	out := buf.String()
	for _, want := range []string{
		`catalogd lookup "ML1"`,
		"tmdb: off",
		"proxy: off",
		"搜索: OK url=https://www.lddb.com/laserdisc/1/ML1 (1.5s)",
		"抽取: FAIL kind=timeout (10.0s)",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("输出缺少 %q：\n%s", want, out)
		}
	}
}

func TestFormatProxy(t *testing.T) {
	if got := formatProxy("http://u:p@127.0.0.1:7890"); got != "on (http://127.0.0.1:7890, auth=on)" {
		t.Fatalf("期望隐藏凭据，实际 %q", got)
	}
	if got := formatProxy(""); got != "off" {
		t.Fatalf("期望 off，实际 %q", got)
	}
}
