// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

// Pagination defaults for list endpoints.
const (
	DefaultPage     = 1
	DefaultPageSize = 10
	MinPageSize     = 1
	MaxPageSize     = 100
)

// PageRequest is a 1-based page selection.
type PageRequest struct {
	Page     int
	PageSize int
}

// Normalize fills defaults. Out-of-range values are left for validation.
func (p PageRequest) Normalize() PageRequest {
	if p.Page == 0 {
		p.Page = DefaultPage
	}
	if p.PageSize == 0 {
		p.PageSize = DefaultPageSize
	}
	return p
}

// Valid reports whether the page request is within bounds.
func (p PageRequest) Valid() bool {
	return p.Page >= 1 && p.PageSize >= MinPageSize && p.PageSize <= MaxPageSize
}

// Offset is the number of items skipped before this page.
func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// Page is one page of results plus totals.
type Page[T any] struct {
	Items      []T `json:"items"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// NewPage builds a page from the already-sliced items and the total count.
func NewPage[T any](items []T, total int, req PageRequest) Page[T] {
	if items == nil {
		items = []T{}
	}
	totalPages := 0
	if req.PageSize > 0 {
		totalPages = (total + req.PageSize - 1) / req.PageSize
	}
	return Page[T]{Items: items, Total: total, TotalPages: totalPages}
}

// Paginate slices all according to req and wraps the result in a Page.
func Paginate[T any](all []T, req PageRequest) Page[T] {
	start := min(req.Offset(), len(all))
	end := min(start+req.PageSize, len(all))
	return NewPage(all[start:end], len(all), req)
}
