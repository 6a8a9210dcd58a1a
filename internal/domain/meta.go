package domain

const (
	// UnknownTitle 是标题缺失时的占位值（对外 JSON 中可见）。
	UnknownTitle = "Unknown Title"
	// FormatLaserDisc 是 LDDB 页面唯一的介质格式。
	FormatLaserDisc = "LaserDisc"

	MaxCast        = 5
	MaxActors      = 10
	MaxDescription = 500
)

// Metadata 是从 LDDB 详情页解析得到的扁平元数据。
//
// 约束：
// - 可选字段用指针表示，缺失时 JSON 输出 null（对外契约）
// - Genres/Cast 永远非 nil，JSON 输出 []
// - PosterURL/TMDBID/Actors 只在 Merge 之后出现
type Metadata struct {
	Title         string   `json:"title"`
	Year          *int     `json:"year"`
	Runtime       *int     `json:"runtime"`
	Format        string   `json:"format"`
	Genres        []string `json:"genres"`
	CoverURL      *string  `json:"coverUrl"`
	Director      *string  `json:"director"`
	Cast          []string `json:"cast"`
	Description   *string  `json:"description"`
	CatalogNumber *string  `json:"catalogNumber"`
	SourceURL     string   `json:"sourceUrl"`

	PosterURL *string  `json:"posterUrl,omitempty"`
	TMDBID    *int64   `json:"tmdbId,omitempty"`
	Actors    []string `json:"actors,omitempty"`
}

// NewMetadata 返回只填了默认值的记录。
func NewMetadata(sourceURL string) Metadata {
	return Metadata{
		Title:     UnknownTitle,
		Format:    FormatLaserDisc,
		Genres:    []string{},
		Cast:      []string{},
		SourceURL: sourceURL,
	}
}

// CanEnrich 判断记录是否具备去 TMDb 检索的条件：真实标题 + 年份。
func (m Metadata) CanEnrich() bool {
	return m.Title != "" && m.Title != UnknownTitle && m.Year != nil
}

// Enrichment 是 TMDb 补充数据；零值字段表示“未提供”。
type Enrichment struct {
	TMDBID      int64
	Description string
	PosterURL   string
	Runtime     int
	Genres      []string
	Director    string
	Actors      []string
}

// Merge 把补充数据覆盖到 m 上。
//
// 规则：每个字段只有在 e 提供了值时才覆盖，否则保留 m 原值。
// - poster：e.PosterURL > m.CoverURL > 缺失
// - actors：e.Actors > m.Cast
// - CoverURL/Cast 本身保持 LDDB 原值不变
func (m *Metadata) Merge(e Enrichment) {
	if e.Description != "" {
		m.Description = ptr(e.Description)
	}

	switch {
	case e.PosterURL != "":
		m.PosterURL = ptr(e.PosterURL)
	case m.CoverURL != nil:
		m.PosterURL = ptr(*m.CoverURL)
	default:
		m.PosterURL = nil
	}

	if e.TMDBID != 0 {
		m.TMDBID = ptr(e.TMDBID)
	}
	if e.Director != "" {
		m.Director = ptr(e.Director)
	}

	if len(e.Actors) > 0 {
		m.Actors = append([]string(nil), e.Actors...)
	} else {
		m.Actors = append([]string(nil), m.Cast...)
	}

	if len(e.Genres) > 0 {
		m.Genres = append([]string(nil), e.Genres...)
	}
	if e.Runtime > 0 {
		m.Runtime = ptr(e.Runtime)
	}
}

func ptr[T any](v T) *T { return &v }
