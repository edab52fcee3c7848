package repositories

// Page selects a slice of a listing query. Zero values normalize to the
// first page of ten items.
type Page struct {
	Number int
	Limit  int
}

// Normalize clamps the page parameters to positive values with defaults.
func (p Page) Normalize() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Limit < 1 {
		p.Limit = 10
	}
	return p
}

// Offset returns the row offset for the normalized page.
func (p Page) Offset() int {
	p = p.Normalize()
	return (p.Number - 1) * p.Limit
}

// PageInfo is the pagination metadata attached to every paginated response.
type PageInfo struct {
	CurrentPage int   `json:"currentPage"`
	TotalPages  int   `json:"totalPages"`
	TotalItems  int64 `json:"totalItems"`
}

// NewPageInfo computes the metadata for a total row count under page p.
func NewPageInfo(p Page, total int64) PageInfo {
	p = p.Normalize()
	pages := int((total + int64(p.Limit) - 1) / int64(p.Limit))
	return PageInfo{CurrentPage: p.Number, TotalPages: pages, TotalItems: total}
}
