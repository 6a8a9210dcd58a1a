package domain

import "strings"

// CatalogNumber 是一次查询的唯一主键（印在碟片包装上的编号，例如 "ML 101234"）。
//
// 约束：只做首尾去空白，不做大小写或分隔符规范化；搜索引擎按原文精确匹配。
type CatalogNumber string

// ParseCatalog 去掉首尾空白后校验编号非空。
func ParseCatalog(s string) (CatalogNumber, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	return CatalogNumber(s), true
}
