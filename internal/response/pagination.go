// File: internal/response/pagination.go
package response

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"memorybox/internal/models"
	"memorybox/internal/services"
)

// ===============================
// PAGINATION CONFIGURATION
// ===============================

// PaginationConfig names the list query parameters
type PaginationConfig struct {
	DefaultPageSize int    `json:"default_page_size"`
	MaxPageSize     int    `json:"max_page_size"`
	PageParam       string `json:"page_param"`
	SizeParam       string `json:"size_param"`
	SortParam       string `json:"sort_param"`
	KeywordParam    string `json:"keyword_param"`
	PublicParam     string `json:"public_param"`
}

// DefaultPaginationConfig returns default pagination configuration
func DefaultPaginationConfig() *PaginationConfig {
	return &PaginationConfig{
		DefaultPageSize: 10,
		MaxPageSize:     100,
		PageParam:       "page",
		SizeParam:       "pageSize",
		SortParam:       "sortBy",
		KeywordParam:    "keyword",
		PublicParam:     "isPublic",
	}
}

// ===============================
// PAGINATION PARSER
// ===============================

// PaginationParser parses list query strings into model parameters
type PaginationParser struct {
	config *PaginationConfig
}

// NewPaginationParser creates a new pagination parser
func NewPaginationParser(config *PaginationConfig) *PaginationParser {
	if config == nil {
		config = DefaultPaginationConfig()
	}
	return &PaginationParser{config: config}
}

// ParsePagination reads page and pageSize. Oversized pages are clamped.
func (p *PaginationParser) ParsePagination(query url.Values) (models.PaginationParams, error) {
	params := models.PaginationParams{Page: 1, PageSize: p.config.DefaultPageSize}

	if raw := query.Get(p.config.PageParam); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			return params, badQuery(p.config.PageParam, "must be a positive integer")
		}
		params.Page = page
	}

	if raw := query.Get(p.config.SizeParam); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size < 1 {
			return params, badQuery(p.config.SizeParam, "must be a positive integer")
		}
		params.PageSize = min(size, p.config.MaxPageSize)
	}
	return params, nil
}

// ParseGroupList reads the group listing query
func (p *PaginationParser) ParseGroupList(query url.Values) (models.GroupListParams, error) {
	var params models.GroupListParams
	page, err := p.ParsePagination(query)
	if err != nil {
		return params, err
	}
	params.PaginationParams = page
	params.SortBy = strings.TrimSpace(query.Get(p.config.SortParam))
	params.Keyword = strings.TrimSpace(query.Get(p.config.KeywordParam))
	params.IsPublic, err = p.parsePublic(query)
	return params, err
}

// ParsePostList reads the memory listing query of one group
func (p *PaginationParser) ParsePostList(query url.Values, groupID int64) (models.PostListParams, error) {
	params := models.PostListParams{GroupID: groupID}
	page, err := p.ParsePagination(query)
	if err != nil {
		return params, err
	}
	params.PaginationParams = page
	params.SortBy = strings.TrimSpace(query.Get(p.config.SortParam))
	params.Keyword = strings.TrimSpace(query.Get(p.config.KeywordParam))
	params.IsPublic, err = p.parsePublic(query)
	return params, err
}

// parsePublic returns nil when the filter is absent so both visibilities match
func (p *PaginationParser) parsePublic(query url.Values) (*bool, error) {
	raw := query.Get(p.config.PublicParam)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, badQuery(p.config.PublicParam, "must be true or false")
	}
	return &v, nil
}

func badQuery(param, problem string) error {
	se := services.NewBadRequestError(fmt.Sprintf("query parameter %s %s", param, problem))
	se.Code = "INVALID_QUERY"
	return se
}
