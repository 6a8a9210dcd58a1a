package lddb

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/catalogd/internal/domain"
)

// Page 是规则的输入：解析后的文档 + 原始 HTML + 站点根。
type Page struct {
	Doc      *goquery.Document
	Raw      []byte
	SiteRoot string
}

// Rule 是一条独立的字段提取规则。
//
// 约束：规则只写自己负责的字段；找不到就什么都不做（不报错）。
// 站点改版时按规则单独替换，不要把多条规则揉在一起。
type Rule struct {
	Name  string
	Apply func(p *Page, m *domain.Metadata)
}

// DefaultRules 返回按固定顺序排列的规则表。
// 顺序有意义：title 必须先于 h1 兜底判断；fields 中后出现的 dt/dd 会覆盖前者。
func DefaultRules() []Rule {
	return []Rule{
		{Name: "title", Apply: applyTitle},
		{Name: "year", Apply: applyYear},
		{Name: "cover", Apply: applyCover},
		{Name: "fields", Apply: applyFields},
		{Name: "cast", Apply: applyCast},
		{Name: "description", Apply: applyDescription},
	}
}

var (
	// "Blade Runner [LaserDisc]" / "Blade Runner (1982) [ML 101234]"
	titleSuffixRE = regexp.MustCompile(`^(.+?)\s*\[`)
	yearRE        = regexp.MustCompile(`\((\d{4})\)`)
	firstIntRE    = regexp.MustCompile(`\d+`)
)

const (
	titleSeparator  = " - "
	personMarker    = "/person/"
	minCoverWidth   = 100
	minParagraphLen = 50
)

func applyTitle(p *Page, m *domain.Metadata) {
	if sel := p.Doc.Find("title").First(); sel.Length() > 0 {
		if t := CleanTitle(sel.Text()); t != "" {
			m.Title = t
		}
	}
	if m.Title != domain.UnknownTitle {
		return
	}
	if t := strings.TrimSpace(p.Doc.Find("h1").First().Text()); t != "" {
		m.Title = t
	}
}

// CleanTitle 去掉 <title> 末尾的 "[LaserDisc]" 一类方括号后缀；
// 没有方括号时取 " - " 之前的第一段。
func CleanTitle(s string) string {
	s = strings.TrimSpace(s)
	if mm := titleSuffixRE.FindStringSubmatch(s); mm != nil {
		return strings.TrimSpace(mm[1])
	}
	first, _, _ := strings.Cut(s, titleSeparator)
	return strings.TrimSpace(first)
}

// applyYear 在整页 HTML（含属性与脚本）中取第一个 "(dddd)"。
func applyYear(p *Page, m *domain.Metadata) {
	mm := yearRE.FindSubmatch(p.Raw)
	if mm == nil {
		return
	}
	y, err := strconv.Atoi(string(mm[1]))
	if err != nil {
		return
	}
	m.Year = &y
}

func applyCover(p *Page, m *domain.Metadata) {
	var src string
	p.Doc.Find("img[src]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		v, _ := s.Attr("src")
		lv := strings.ToLower(v)
		if strings.Contains(lv, "cover") || strings.Contains(lv, "poster") {
			src = v
			return false
		}
		return true
	})
	if src == "" {
		// 兜底：第一张宽度足够大的图（width 非数字的直接跳过）。
		p.Doc.Find("img[width]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			w, _ := s.Attr("width")
			n, err := strconv.Atoi(strings.TrimSpace(w))
			if err != nil || n <= minCoverWidth {
				return true
			}
			src, _ = s.Attr("src")
			return false
		})
	}
	if u := resolveURL(p.SiteRoot, src); u != "" {
		m.CoverURL = &u
	}
}

// resolveURL 只接受站内绝对路径与 http(s) 绝对地址；其它形态（相对路径、data:）丢弃。
func resolveURL(siteRoot, src string) string {
	src = strings.TrimSpace(src)
	switch {
	case src == "":
		return ""
	case strings.HasPrefix(src, "//"):
		return "https:" + src
	case strings.HasPrefix(src, "/"):
		return siteRoot + src
	case strings.HasPrefix(src, "http"):
		return src
	default:
		return ""
	}
}

func applyFields(p *Page, m *domain.Metadata) {
	p.Doc.Find("dt").Each(func(_ int, dt *goquery.Selection) {
		dd := dt.NextAllFiltered("dd").First()
		if dd.Length() == 0 {
			return
		}
		label := strings.ToLower(strings.TrimSpace(dt.Text()))
		value := strings.TrimSpace(dd.Text())

		switch {
		case strings.Contains(label, "director"):
			v := value
			m.Director = &v
		case strings.Contains(label, "genre") || strings.Contains(label, "category"):
			m.Genres = splitList(value)
		case strings.Contains(label, "runtime") || strings.Contains(label, "duration"):
			if n, ok := FirstInt(value); ok {
				m.Runtime = &n
			}
		case strings.Contains(label, "catalog") || strings.Contains(label, "number"):
			v := value
			m.CatalogNumber = &v
		}
	})
}

// FirstInt 提取字符串中的第一段连续数字，例如 "120 minutes" => 120。
func FirstInt(s string) (int, bool) {
	d := firstIntRE.FindString(s)
	if d == "" {
		return 0, false
	}
	n, err := strconv.Atoi(d)
	if err != nil {
		return 0, false
	}
	return n, true
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

func applyCast(p *Page, m *domain.Metadata) {
	cast := make([]string, 0, domain.MaxCast)
	p.Doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		if !strings.Contains(href, personMarker) {
			return true
		}
		cast = append(cast, strings.TrimSpace(s.Text()))
		return len(cast) < domain.MaxCast
	})
	if len(cast) > 0 {
		m.Cast = cast
	}
}

func applyDescription(p *Page, m *domain.Metadata) {
	var text string
	found := false
	p.Doc.Find("div[class]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		class, _ := s.Attr("class")
		if !strings.Contains(strings.ToLower(class), "description") {
			return true
		}
		text, found = s.Text(), true
		return false
	})
	if !found {
		p.Doc.Find("p").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			t := s.Text()
			if len([]rune(t)) <= minParagraphLen {
				return true
			}
			text, found = t, true
			return false
		})
	}
	if !found {
		return
	}
	text = Truncate(strings.TrimSpace(text), domain.MaxDescription)
	if text == "" {
		return
	}
	m.Description = &text
}

// Truncate 按字符（rune）截断，避免切坏多字节字符。
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
