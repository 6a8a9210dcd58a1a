package domain

import "encoding/json"

const (
	StatusSuccess  = "success"
	StatusNotFound = "not_found"
	StatusError    = "error"
)

// LookupResponse 是 POST /lookup/catalog（以及 CLI lookup）的对外稳定输出。
//
// 约束：
// - success：Data + CatalogNumber 非空，Message 为空
// - not_found / error：只有 Message
type LookupResponse struct {
	Status        string    `json:"status"`
	Data          *Metadata `json:"data,omitempty"`
	CatalogNumber string    `json:"catalog_number,omitempty"`
	Message       string    `json:"message,omitempty"`
}

func Success(meta Metadata, catalog CatalogNumber) LookupResponse {
	return LookupResponse{Status: StatusSuccess, Data: &meta, CatalogNumber: string(catalog)}
}

func NotFound(msg string) LookupResponse {
	return LookupResponse{Status: StatusNotFound, Message: msg}
}

func Failed(msg string) LookupResponse {
	return LookupResponse{Status: StatusError, Message: msg}
}

// MarshalJSON 仅用于集中约束输出的稳定性：success 之外不允许带出 data。
func (r LookupResponse) MarshalJSON() ([]byte, error) {
	type Alias LookupResponse
	a := Alias(r)
	if a.Status != StatusSuccess {
		a.Data = nil
		a.CatalogNumber = ""
	}
	return json.Marshal(a)
}
