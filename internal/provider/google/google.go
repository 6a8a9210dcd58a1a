package google

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/catalogd/internal/domain"
	providerx "github.com/John-Robertt/catalogd/internal/provider"
)

const (
	// DefaultBaseURL 是搜索引擎的默认入口。
	DefaultBaseURL = "https://www.google.com"

	siteDomain = "lddb.com"
	siteRoot   = "https://www.lddb.com"
	pathMarker = "/laserdisc/"

	// redirectPrefix 是搜索结果里包装外链的跳转前缀：/url?q=<目标>&sa=...
	redirectPrefix = "/url?q="
)

// Locator 通过站内搜索定位目录号对应的 LDDB 详情页。
//
// 约束：
// - 只发一次 GET；不做重试
// - 只认 lddb.com 的 /laserdisc/ 链接，取第一个有效候选
type Locator struct {
	// BaseURL 允许替换搜索入口（测试或镜像）；为空时使用 DefaultBaseURL。
	BaseURL string
	Client  *http.Client
}

var _ providerx.Locator = Locator{}

func (Locator) Name() string { return "google" }

func (l Locator) baseURL() string {
	u := strings.TrimSpace(l.BaseURL)
	if u == "" {
		return DefaultBaseURL
	}
	return strings.TrimRight(u, "/")
}

// Query 构造限定站点的搜索词：编号加引号做精确匹配。
func Query(catalog domain.CatalogNumber) string {
	return `"` + string(catalog) + `" site:` + siteDomain
}

// SearchURL 返回本次搜索实际请求的 URL。
func (l Locator) SearchURL(catalog domain.CatalogNumber) string {
	return l.baseURL() + "/search?q=" + url.QueryEscape(Query(catalog))
}

// Locate 搜索并返回第一个有效的 LDDB 详情页 URL。
// 没有候选时返回 providerx.ErrNotFound（包装为 *providerx.Error）。
func (l Locator) Locate(ctx context.Context, catalog domain.CatalogNumber) (string, error) {
	if l.Client == nil {
		return "", providerx.Fail(l.Name(), providerx.StageSearch, errors.New("http client 不能为空"))
	}
	if catalog == "" {
		return "", providerx.Fail(l.Name(), providerx.StageSearch, errors.New("catalog 不能为空"))
	}

	b, err := fetchURL(ctx, l.Client, l.SearchURL(catalog))
	if err != nil {
		return "", providerx.Fail(l.Name(), providerx.StageSearch, err)
	}

	pageURL, err := FindResultURL(b)
	if err != nil {
		return "", providerx.Fail(l.Name(), providerx.StageParse, err)
	}
	return pageURL, nil
}

// FindResultURL 在搜索结果 HTML 中找第一个指向 LDDB 详情页的链接。
func FindResultURL(searchHTML []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(searchHTML))
	if err != nil {
		return "", err
	}

	var out string
	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		if !strings.Contains(href, siteDomain) || !strings.Contains(href, pathMarker) {
			return true
		}
		u, ok := NormalizeHref(href)
		if !ok {
			return true
		}
		out = u
		return false
	})
	if out == "" {
		return "", providerx.ErrNotFound
	}
	return out, nil
}

// NormalizeHref 把搜索结果里的链接还原为目标 URL。
//
// 规则（与当前搜索结果页的链接格式绑定）：
// - /url?q=<encoded>&sa=...：截掉第一个 '&' 之后的跟踪参数，再做百分号解码
// - https://www.lddb.com/...：原样使用
// - 其它形态：不认（ok=false）
func NormalizeHref(href string) (string, bool) {
	href = strings.TrimSpace(href)
	switch {
	case strings.HasPrefix(href, redirectPrefix):
		target := strings.TrimPrefix(href, redirectPrefix)
		if i := strings.IndexByte(target, '&'); i >= 0 {
			target = target[:i]
		}
		// 非法转义时保留原文：宁可多给一个可读链接，也不丢弃候选。
		if decoded, err := url.PathUnescape(target); err == nil {
			target = decoded
		}
		if target == "" {
			return "", false
		}
		return target, true
	case strings.HasPrefix(href, siteRoot):
		return href, true
	default:
		return "", false
	}
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

	// 流量异常时搜索引擎会 302 到 /sorry/ 人机验证页；跟随后拿到的是验证页，不是结果页。
	if resp.Request != nil && resp.Request.URL != nil && strings.HasPrefix(resp.Request.URL.Path, "/sorry/") {
		return nil, &providerx.BlockedError{URL: resp.Request.URL.String(), Reason: "captcha"}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &providerx.HTTPStatusError{URL: u, StatusCode: resp.StatusCode, Location: resp.Header.Get("Location")}
	}
	return io.ReadAll(resp.Body)
}
