package lddb

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/John-Robertt/catalogd/internal/domain"
	providerx "github.com/John-Robertt/catalogd/internal/provider"
)

const fixtureURL = "https://www.lddb.com/laserdisc/12345/ML101234/Blade-Runner"

func parseHTML(t *testing.T, html string) domain.Metadata {
	t.Helper()
	m, err := Extractor{}.Parse([]byte(html), fixtureURL)
	if err != nil {
		t.Fatalf("Parse 失败：%v", err)
	}
	return m
}

func TestParse_Fixture(t *testing.T) {
	html, err := os.ReadFile(filepath.Join("testdata", "ML101234.html"))
	if err != nil {
		t.Fatalf("读取 fixture 失败：%v", err)
	}
	m, err := Extractor{}.Parse(html, fixtureURL)
	if err != nil {
		t.Fatalf("Parse 失败：%v", err)
	}

	if m.Title != "Blade Runner: Director's Cut (1982)" {
		t.Fatalf("title 不符合预期：%q", m.Title)
	}
	if m.Year == nil || *m.Year != 1982 {
		t.Fatalf("year 不符合预期：%v", m.Year)
	}
	if m.Runtime == nil || *m.Runtime != 117 {
		t.Fatalf("runtime 不符合预期：%v", m.Runtime)
	}
	if m.Format != domain.FormatLaserDisc || m.SourceURL != fixtureURL {
		t.Fatalf("format/sourceUrl 不符合预期：%q %q", m.Format, m.SourceURL)
	}
	if strings.Join(m.Genres, "|") != "Science Fiction|Thriller" {
		t.Fatalf("genres 不符合预期：%q", m.Genres)
	}
	if m.CoverURL == nil || *m.CoverURL != "https://www.lddb.com/cover/ML101234/front-cover.jpg" {
		t.Fatalf("coverUrl 不符合预期：%v", m.CoverURL)
	}
	if m.Director == nil || *m.Director != "Ridley Scott" {
		t.Fatalf("director 不符合预期：%v", m.Director)
	}
	if m.CatalogNumber == nil || *m.CatalogNumber != "ML 101234" {
		t.Fatalf("catalogNumber 不符合预期：%v", m.CatalogNumber)
	}
	wantCast := "Ridley Scott|Harrison Ford|Rutger Hauer|Sean Young|Edward James Olmos"
	if strings.Join(m.Cast, "|") != wantCast {
		t.Fatalf("cast 不符合预期：%q", m.Cast)
	}
	if m.Description == nil || !strings.HasPrefix(*m.Description, "In a cyberpunk vision") || !strings.HasSuffix(*m.Description, "outside Earth.") {
		t.Fatalf("description 不符合预期：%v", m.Description)
	}
}

func TestCleanTitle(t *testing.T) {
	cases := map[string]string{
		"  Aliens [LaserDisc]  ":          "Aliens",
		"Aliens   [LaserDisc] - LDDB":     "Aliens",
		"Aliens - Special Edition - LDDB": "Aliens",
		"Aliens":                          "Aliens",
		"":                                "",
	}
	for in, want := range cases {
		if got := CleanTitle(in); got != want {
			t.Fatalf("CleanTitle(%q)：期望 %q，实际 %q", in, want, got)
		}
	}
}

func TestParse_TitleFallsBackToH1(t *testing.T) {
	m := parseHTML(t, `<html><head></head><body><h1> Aliens </h1></body></html>`)
	if m.Title != "Aliens" {
		t.Fatalf("期望回退 h1，实际 %q", m.Title)
	}

	m = parseHTML(t, `<html><head><title>   </title></head><body><h1>Aliens</h1></body></html>`)
	if m.Title != "Aliens" {
		t.Fatalf("空 title 应回退 h1，实际 %q", m.Title)
	}

	m = parseHTML(t, `<html><body><p>nothing</p></body></html>`)
	if m.Title != domain.UnknownTitle {
		t.Fatalf("标题缺失时应保留占位值，实际 %q", m.Title)
	}
}

func TestParse_RuntimeFromDefinitionList(t *testing.T) {
	m := parseHTML(t, `<dl><dt>Runtime:</dt><dd>120 minutes</dd></dl>`)
	if m.Runtime == nil || *m.Runtime != 120 {
		t.Fatalf("期望 runtime=120，实际 %v", m.Runtime)
	}

	m = parseHTML(t, `<dl><dt>Runtime: 120 minutes</dt><dd>120 minutes</dd></dl>`)
	if m.Runtime == nil || *m.Runtime != 120 {
		t.Fatalf("期望 runtime=120，实际 %v", m.Runtime)
	}

	m = parseHTML(t, `<dl><dt>Duration</dt><dd>unknown</dd></dl>`)
	if m.Runtime != nil {
		t.Fatalf("没有数字时不应设置 runtime，实际 %d", *m.Runtime)
	}
}

func TestParse_LaterFieldOverwrites(t *testing.T) {
	m := parseHTML(t, `<dl>
		<dt>Category</dt><dd>Drama</dd>
		<dt>Genre</dt><dd>Horror, Sci-Fi</dd>
		<dt>Catalog</dt><dd>A-1</dd>
		<dt>Part number</dt><dd>B-2</dd>
	</dl>`)
	if strings.Join(m.Genres, "|") != "Horror|Sci-Fi" {
		t.Fatalf("genres 应被后者覆盖：%q", m.Genres)
	}
	if m.CatalogNumber == nil || *m.CatalogNumber != "B-2" {
		t.Fatalf("catalogNumber 应被后者覆盖：%v", m.CatalogNumber)
	}
}

func TestParse_YearFirstMatchWins(t *testing.T) {
	m := parseHTML(t, `<html><head><title>X</title></head><body><p>Released (1979); remastered (1991)</p></body></html>`)
	if m.Year == nil || *m.Year != 1979 {
		t.Fatalf("期望 year=1979，实际 %v", m.Year)
	}

	m = parseHTML(t, `<p>Released 1979 (12345)</p>`)
	if m.Year != nil {
		t.Fatalf("非 4 位数字不应匹配，实际 %d", *m.Year)
	}
}

func TestParse_CoverFallbacks(t *testing.T) {
	m := parseHTML(t, `<img src="/img/a.gif" width="40"><img src="/img/WIDE.jpg" width="abc"><img src="/img/big.jpg" width="250">`)
	if m.CoverURL == nil || *m.CoverURL != "https://www.lddb.com/img/big.jpg" {
		t.Fatalf("期望回退到宽图，实际 %v", m.CoverURL)
	}

	m = parseHTML(t, `<img src="//cdn.lddb.com/POSTER/1.jpg">`)
	if m.CoverURL == nil || *m.CoverURL != "https://cdn.lddb.com/POSTER/1.jpg" {
		t.Fatalf("协议相对地址应补全 https，实际 %v", m.CoverURL)
	}

	m = parseHTML(t, `<img src="images/cover.jpg">`)
	if m.CoverURL != nil {
		t.Fatalf("不认相对路径，实际 %q", *m.CoverURL)
	}

	m, err := Extractor{BaseURL: "http://mirror.test/"}.Parse([]byte(`<img src="/c/cover.jpg">`), fixtureURL)
	if err != nil {
		t.Fatalf("Parse 失败：%v", err)
	}
	if m.CoverURL == nil || *m.CoverURL != "http://mirror.test/c/cover.jpg" {
		t.Fatalf("应按 BaseURL 补全，实际 %v", m.CoverURL)
	}
}

func TestParse_DescriptionTruncatedTo500(t *testing.T) {
	long := strings.Repeat("é", 800)
	m := parseHTML(t, `<p>short</p><p>`+long+`</p>`)
	if m.Description == nil {
		t.Fatalf("期望 description，但为空")
	}
	if n := len([]rune(*m.Description)); n != domain.MaxDescription {
		t.Fatalf("期望截断为 %d 个字符，实际 %d", domain.MaxDescription, n)
	}

	m = parseHTML(t, `<p>too short to count as a description</p>`)
	if m.Description != nil {
		t.Fatalf("短段落不应作为 description：%q", *m.Description)
	}
}

func TestParse_CustomRules(t *testing.T) {
	only := []Rule{{Name: "title", Apply: applyTitle}}
	m, err := Extractor{Rules: only}.Parse([]byte(`<title>A (1990) [LD]</title>`), fixtureURL)
	if err != nil {
		t.Fatalf("Parse 失败：%v", err)
	}
	if m.Title != "A (1990)" || m.Year != nil {
		t.Fatalf("只应执行 title 规则：%+v", m)
	}
}

func TestParse_EmptyHTML(t *testing.T) {
	if _, err := (Extractor{}).Parse(nil, fixtureURL); err == nil {
		t.Fatalf("期望错误，但得到 nil")
	}
}

func TestExtract_FetchFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			_, _ = w.Write([]byte(`<title>Aliens [LaserDisc]</title>`))
		case "/empty":
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	e := Extractor{Client: &http.Client{Timeout: time.Second}}

	m, err := e.Extract(context.Background(), srv.URL+"/ok")
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if m.Title != "Aliens" || m.SourceURL != srv.URL+"/ok" {
		t.Fatalf("结果不符合预期：%+v", m)
	}

	_, err = e.Extract(context.Background(), srv.URL+"/missing")
	if providerx.KindOf(err) != providerx.KindHTTPStatus {
		t.Fatalf("期望 http_status，实际 %v", err)
	}

	_, err = e.Extract(context.Background(), srv.URL+"/empty")
	if err == nil {
		t.Fatalf("空 body 应失败")
	}

	if _, err := (Extractor{}).Extract(context.Background(), srv.URL+"/ok"); err == nil {
		t.Fatalf("nil client 应失败")
	}
}
