package common

// Page is a single page of a paginated listing.
type Page[T any] struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Items []T   `json:"items"`
}

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// Offset returns the row offset of the given 1-based page.
func Offset(page, limit int) int {
	if page < 1 {
		page = 1
	}
	return (page - 1) * limit
}
