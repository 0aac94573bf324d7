// Package response writes the uniform JSON envelope returned by every endpoint:
//
//	{"success": bool, "error": string|object|null, "data": any|null, ...pagination}
package response

import (
	"encoding/json"
	"net/http"
)

// Envelope is the body of every response.
type Envelope struct {
	Success bool `json:"success"`
	Error   any  `json:"error"`
	Data    any  `json:"data"`
	*Pagination
}

// PageRef points at a neighbouring page.
type PageRef struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// Pagination describes a windowed list. Its fields are flattened into the envelope.
type Pagination struct {
	Page        int      `json:"page"`
	Limit       int      `json:"limit"`
	TotalDocs   int64    `json:"totalDocs"`
	TotalPages  int      `json:"totalPages"`
	HasPrevPage bool     `json:"hasPrevPage"`
	HasNextPage bool     `json:"hasNextPage"`
	PrevPage    *PageRef `json:"prevPage,omitempty"`
	NextPage    *PageRef `json:"nextPage,omitempty"`
}

// NewPagination computes the page metadata for a window of size limit over totalDocs items.
// An empty collection still has one (empty) page.
func NewPagination(page, limit int, totalDocs int64) *Pagination {
	totalPages := 1
	if limit > 0 && totalDocs > 0 {
		totalPages = int((totalDocs + int64(limit) - 1) / int64(limit))
	}

	p := &Pagination{
		Page:        page,
		Limit:       limit,
		TotalDocs:   totalDocs,
		TotalPages:  totalPages,
		HasPrevPage: page > 1,
		HasNextPage: page < totalPages,
	}
	if p.HasPrevPage {
		p.PrevPage = &PageRef{Page: page - 1, Limit: limit}
	}
	if p.HasNextPage {
		p.NextPage = &PageRef{Page: page + 1, Limit: limit}
	}

	return p
}

// OK writes a successful envelope carrying data.
func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, Envelope{Success: true, Data: data})
}

// Paginated writes a successful envelope carrying one page of data.
func Paginated(w http.ResponseWriter, data any, p *Pagination) {
	JSON(w, http.StatusOK, Envelope{Success: true, Data: data, Pagination: p})
}

// Error writes a failed envelope. errMsg is either a message or a field->message object.
func Error(w http.ResponseWriter, status int, errMsg any) {
	JSON(w, status, Envelope{Success: false, Error: errMsg})
}

// JSON writes v with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
