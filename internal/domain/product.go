package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product catalog item
type Product struct {
	ID          int64           `gorm:"primaryKey;autoIncrement:false" json:"id,string"`
	Name        string          `gorm:"size:200;index" json:"name"`
	Description string          `gorm:"type:text" json:"description"`
	Price       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	Category    string          `gorm:"size:64;index" json:"category"`
	Image       string          `gorm:"type:text" json:"image"` // /api/v1/images/<key>, an external URL or an inline data URI
	IsFeatured  bool            `gorm:"index;default:false" json:"is_featured"`
	SearchText  string          `gorm:"type:text" json:"-"` // lowercased name and description
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// TableName Specify table name
func (Product) TableName() string {
	return "product"
}

// FoldSearch lowercases s with Unicode rules. Search terms and SearchText are
// both folded with it; database LOWER() only folds ASCII on sqlite.
func FoldSearch(s string) string {
	return strings.ToLower(s)
}

// ProductSearchText is the SearchText of a product with the given name and description
func ProductSearchText(name, description string) string {
	return FoldSearch(name + "\n" + description)
}

// BeforeCreate fills SearchText
func (p *Product) BeforeCreate(*gorm.DB) error {
	p.SearchText = ProductSearchText(p.Name, p.Description)
	return nil
}

// Categories the fixed set of category tags a product may carry. Matching is exact.
var Categories = []string{
	"jeans",
	"t-shirts",
	"shoes",
	"glasses",
	"jackets",
	"suits",
	"bags",
	"mobile phones",
	"laptops",
	"smart watches",
	"skincare",
	"books",
	"cameras",
	"Gaming consoles",
}

var categorySet = func() map[string]struct{} {
	m := make(map[string]struct{}, len(Categories))
	for _, c := range Categories {
		m[c] = struct{}{}
	}
	return m
}()

// IsCategory reports whether c is a known category
func IsCategory(c string) bool {
	_, ok := categorySet[c]
	return ok
}
