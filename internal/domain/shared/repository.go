package shared

// Filter is the query shape repositories accept. Page is 1-based and a zero
// PageSize means unpaged. Filters carries repository specific keys.
type Filter struct {
	Page     int
	PageSize int
	OrderBy  string
	OrderDir string
	Search   string
	Filters  map[string]any
}

// Offset is the number of rows before the filter's page
func (f Filter) Offset() int {
	return max(f.Page-1, 0) * f.PageSize
}

// TotalPages is ceil(total / pageSize), zero when pageSize is not positive
func TotalPages(total int64, pageSize int) int {
	if pageSize <= 0 {
		return 0
	}
	size := int64(pageSize)
	return int((total + size - 1) / size)
}
