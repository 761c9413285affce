package shared

// Page size bounds applied to document listings
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Filter narrows a document listing. Filters holds column equality matches
// keyed by field name, plus the range keys "start_date" and "end_date".
type Filter struct {
	Page     int
	PageSize int
	OrderBy  string
	OrderDir string
	Search   string
	Filters  map[string]interface{}
}

// DefaultFilter lists the newest documents first, one default page at a time
func DefaultFilter() Filter {
	return Filter{
		Page:     1,
		PageSize: DefaultPageSize,
		OrderBy:  "created_at",
		OrderDir: "desc",
		Filters:  map[string]interface{}{},
	}
}

// Where adds an equality match and returns the filter for chaining
func (f Filter) Where(key string, value interface{}) Filter {
	if f.Filters == nil {
		f.Filters = map[string]interface{}{}
	}
	f.Filters[key] = value
	return f
}

// Limit returns the clamped page size, or 0 when the listing is unpaged
func (f Filter) Limit() int {
	switch {
	case f.PageSize <= 0:
		return 0
	case f.PageSize > MaxPageSize:
		return MaxPageSize
	}
	return f.PageSize
}

// Offset is the number of rows skipped before the requested page
func (f Filter) Offset() int {
	if f.Page <= 1 || f.Limit() == 0 {
		return 0
	}
	return (f.Page - 1) * f.Limit()
}

// Paginated is one page of a listing together with the unpaged total
type Paginated[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

// NewPaginated wraps items, deriving TotalPages from total and pageSize
func NewPaginated[T any](items []T, total int64, page, pageSize int) Paginated[T] {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if items == nil {
		items = []T{}
	}
	return Paginated[T]{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: int((total + int64(pageSize) - 1) / int64(pageSize)),
	}
}
