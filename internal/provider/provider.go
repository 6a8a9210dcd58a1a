package provider

import (
	"context"

	"github.com/John-Robertt/catalogd/internal/domain"
)

// 三个阶段的接口：把“站点/API 变化”限制在各自的子包内部；
// lookup 只依赖这些接口与稳定的 domain 类型。
//
// 约束：
// - 不做缓存、不做重试、不做限速
// - 失败一律返回 *Error（带 Stage/Kind），由上层折叠为粗粒度状态
// - Parse 类函数必须是纯函数：相同输入 => 相同输出

// Locator 通过站内搜索定位目录号对应的 LDDB 详情页 URL。
type Locator interface {
	Locate(ctx context.Context, catalog domain.CatalogNumber) (pageURL string, err error)
}

// Extractor 抓取并解析详情页。
type Extractor interface {
	Extract(ctx context.Context, pageURL string) (domain.Metadata, error)
}

// Enricher 用外部元数据 API 补充记录；year<=0 表示未知。
type Enricher interface {
	Enrich(ctx context.Context, title string, year int) (domain.Enrichment, error)
}
