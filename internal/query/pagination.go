package query

// Per-listing page size defaults. Each listing passes its own default
// explicitly; nothing in this package assumes one of them.
const (
	DefaultSharePageSize    = 20
	DefaultFilePageSize     = 100
	DefaultActivityPageSize = 5
)

// Page converts user-supplied (page, limit) into an offset/limit contract.
// Non-positive inputs are a display convenience problem, not an error: they
// clamp to page 1 and the listing's default limit.
type Page struct {
	Page  int
	Limit int
}

// NewPage clamps page and limit, falling back to defaultLimit when limit is
// not positive.
func NewPage(page, limit, defaultLimit int) Page {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultLimit
	}
	return Page{Page: page, Limit: limit}
}

// Offset is (page-1)*limit and is never negative.
func (p Page) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

// TotalPages is ceil(total/limit). Zero items means zero pages.
func (p Page) TotalPages(total int) int {
	if total <= 0 || p.Limit < 1 {
		return 0
	}
	return (total + p.Limit - 1) / p.Limit
}

// Meta is the pagination metadata returned alongside every listing.
type Meta struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"total_pages"`
}

func (p Page) Meta(total int) Meta {
	return Meta{
		Total:      total,
		Page:       p.Page,
		Limit:      p.Limit,
		TotalPages: p.TotalPages(total),
	}
}
