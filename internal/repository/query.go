package repository

import (
	"strings"

	"gorm.io/gorm"
)

const maxPageSize = 500

// ListQuery holds the parameters shared by every change list.
type ListQuery struct {
	Search   string
	Page     int
	PageSize int
}

func (q ListQuery) normalized() ListQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = 50
	}
	if q.PageSize > maxPageSize {
		q.PageSize = maxPageSize
	}
	q.Search = strings.TrimSpace(q.Search)
	return q
}

// Page is one page of results.
type Page[T any] struct {
	Items    []T   `json:"items"`
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
}

// Pages returns the number of pages needed for Total.
func (p Page[T]) Pages() int {
	if p.PageSize == 0 || p.Total == 0 {
		return 1
	}
	return int((p.Total + int64(p.PageSize) - 1) / int64(p.PageSize))
}

// paginate counts the filtered query and loads the requested page into a new Page.
// Scopes only apply to the page query, so selects and preloads stay out of the count.
func paginate[T any](tx *gorm.DB, q ListQuery, order string, scopes ...func(*gorm.DB) *gorm.DB) (*Page[T], error) {
	q = q.normalized()

	var total int64
	if err := tx.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, err
	}

	items := make([]T, 0, q.PageSize)
	err := tx.Scopes(scopes...).
		Order(order).
		Offset((q.Page - 1) * q.PageSize).
		Limit(q.PageSize).
		Find(&items).Error
	if err != nil {
		return nil, err
	}

	return &Page[T]{Items: items, Total: total, Page: q.Page, PageSize: q.PageSize}, nil
}

// like builds a case-insensitive contains pattern.
func like(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + strings.ToLower(r.Replace(s)) + "%"
}

// ilike is a portable case-insensitive LIKE on col, to be used with like().
func ilike(col string) string {
	return "LOWER(" + col + ") LIKE ? ESCAPE '\\'"
}
