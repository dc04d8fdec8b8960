package models

import "encoding/json"

// Page is the list envelope returned by the catalog service.
type Page struct {
	Page       int               `json:"page"`
	Total      int               `json:"total"`
	TotalPages int               `json:"totalPages"`
	Results    []json.RawMessage `json:"results"`
}

// SearchResults wraps catalog search hits.
type SearchResults struct {
	Results []json.RawMessage `json:"results"`
}

// TMDBSearchPage is the normalized response of the metadata search proxy.
type TMDBSearchPage struct {
	Results      []json.RawMessage `json:"results"`
	Page         int               `json:"page"`
	TotalPages   int               `json:"total_pages"`
	TotalResults int               `json:"total_results"`
}

// RequestPayload is the body of a "request this title" submission.
type RequestPayload struct {
	TypeID json.Number `json:"type_id" validate:"required,numeric"`
	Name   string      `json:"name" validate:"required"`
	Type   string      `json:"type" validate:"required,oneof=movies series"`
}

// HLSToken is the playback token handed out by the catalog service.
type HLSToken struct {
	Token string `json:"hlstoken"`
}
