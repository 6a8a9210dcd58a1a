package lddb

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/catalogd/internal/domain"
	providerx "github.com/John-Robertt/catalogd/internal/provider"
)

// DefaultBaseURL 是 LDDB 站点根，用于把相对图片路径补全为绝对 URL。
const DefaultBaseURL = "https://www.lddb.com"

// Extractor 实现 LDDB 详情页的抓取与 HTML 解析。
//
// 约束：
// - Fetch 不做缓存/重试
// - Parse 必须是纯函数（依赖输入 html + pageURL）
// - 每条规则互相独立，缺字段不算失败
type Extractor struct {
	// BaseURL 是相对路径补全用的站点根；为空时使用 DefaultBaseURL。
	BaseURL string
	Client  *http.Client
	// Rules 为空时使用 DefaultRules()。
	Rules []Rule
}

var _ providerx.Extractor = Extractor{}

func (Extractor) Name() string { return "lddb" }

func (e Extractor) siteRoot() string {
	u := strings.TrimSpace(e.BaseURL)
	if u == "" {
		return DefaultBaseURL
	}
	return strings.TrimRight(u, "/")
}

// Extract = Fetch + Parse；任何失败都以 *providerx.Error 返回。
func (e Extractor) Extract(ctx context.Context, pageURL string) (domain.Metadata, error) {
	html, err := e.Fetch(ctx, pageURL)
	if err != nil {
		return domain.Metadata{}, providerx.Fail(e.Name(), providerx.StageFetch, err)
	}
	m, err := e.Parse(html, pageURL)
	if err != nil {
		return domain.Metadata{}, providerx.Fail(e.Name(), providerx.StageParse, err)
	}
	return m, nil
}

// Fetch 读取详情页原始 HTML。
func (e Extractor) Fetch(ctx context.Context, pageURL string) ([]byte, error) {
	if e.Client == nil {
		return nil, errors.New("http client 不能为空")
	}
	if strings.TrimSpace(pageURL) == "" {
		return nil, errors.New("pageURL 不能为空")
	}
	return fetchURL(ctx, e.Client, pageURL)
}

// Parse 依次应用规则，把详情页 HTML 解析为 Metadata。
func (e Extractor) Parse(html []byte, pageURL string) (domain.Metadata, error) {
	if len(html) == 0 {
		return domain.Metadata{}, errors.New("html 为空")
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return domain.Metadata{}, err
	}

	rules := e.Rules
	if len(rules) == 0 {
		rules = DefaultRules()
	}

	p := &Page{Doc: doc, Raw: html, SiteRoot: e.siteRoot()}
	m := domain.NewMetadata(strings.TrimSpace(pageURL))
	for _, r := range rules {
		r.Apply(p, &m)
	}
	return m, nil
}

func fetchURL(ctx context.Context, c *http.Client, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &providerx.HTTPStatusError{URL: u, StatusCode: resp.StatusCode, Location: resp.Header.Get("Location")}
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if len(b) == 0 {
		return nil, errors.New("empty response body")
	}
	return b, nil
}
