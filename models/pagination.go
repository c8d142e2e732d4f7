package models

// PageInput is the common page/limit query shape for list endpoints.
type PageInput struct {
	Page  int `form:"page"`
	Limit int `form:"limit"`
}

func (p PageInput) Normalized() (page int, limit int) {
	page = p.Page
	if page < 1 {
		page = 1
	}
	limit = p.Limit
	if limit < 1 {
		limit = 20
	}
	if limit > 200 {
		limit = 200
	}
	return page, limit
}

func (p PageInput) Offset() int {
	page, limit := p.Normalized()
	return (page - 1) * limit
}

type Paginated[T any] struct {
	Data  []*T  `json:"data"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
}

func NewPaginated[T any](data []*T, input PageInput, total int64) *Paginated[T] {
	page, limit := input.Normalized()
	return &Paginated[T]{Data: data, Page: page, Limit: limit, Total: total}
}
