package templates

import "time"

const (
	CategorySecurity = "security"
	CategoryQuality  = "quality"
	CategorySales    = "sales"
	CategoryGeneral  = "general"
)

// Template is a reusable named query. Templates are never edited; analyses copy the query text.
type Template struct {
	ID          string
	Name        string
	Category    string
	Description string
	QueryText   string
	IsSystem    bool
	CreatedAt   time.Time
}

// ValidCategory reports whether c is a known category.
func ValidCategory(c string) bool {
	switch c {
	case CategorySecurity, CategoryQuality, CategorySales, CategoryGeneral:
		return true
	}
	return false
}
