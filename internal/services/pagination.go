package services

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

type PageMeta struct {
	Page        int   `json:"page"`
	Limit       int   `json:"limit"`
	Total       int64 `json:"total"`
	TotalPages  int   `json:"totalPages"`
	HasNextPage bool  `json:"hasNextPage"`
	HasPrevPage bool  `json:"hasPrevPage"`
}

// normalizePage clamps page to at least 1 and limit to 1..MaxPageLimit,
// defaulting a missing limit.
func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return page, limit
}

func offsetOf(page, limit int) int {
	return (page - 1) * limit
}

func NewPageMeta(page, limit int, total int64) PageMeta {
	pages := int((total + int64(limit) - 1) / int64(limit))
	if pages < 1 {
		pages = 1
	}
	return PageMeta{
		Page:        page,
		Limit:       limit,
		Total:       total,
		TotalPages:  pages,
		HasNextPage: int64(page*limit) < total,
		HasPrevPage: page > 1,
	}
}
