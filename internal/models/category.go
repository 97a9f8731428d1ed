package models

import "time"

type Taxonomy string

const (
	TaxonomyPrimary   Taxonomy = "primary"
	TaxonomySecondary Taxonomy = "secondary"
)

// Valid reports whether t names one of the two taxonomies.
func (t Taxonomy) Valid() bool {
	return t == TaxonomyPrimary || t == TaxonomySecondary
}

// Category is one slot of a taxonomy: indices are assigned monotonically
// from 0 and never reused; labels are unique within a taxonomy.
type Category struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Taxonomy  Taxonomy  `gorm:"size:20;not null;uniqueIndex:idx_category_taxonomy_index;uniqueIndex:idx_category_taxonomy_label" json:"taxonomy"`
	Index     uint64    `gorm:"column:slot_index;not null;uniqueIndex:idx_category_taxonomy_index" json:"index"`
	Label     string    `gorm:"size:100;not null;uniqueIndex:idx_category_taxonomy_label" json:"label"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Category) TableName() string {
	return "categories"
}

// AddCategoryRequest registers a new label at the next free index.
type AddCategoryRequest struct {
	Label string `json:"label" binding:"required"`
}

// RenameCategoryRequest renames the label at an index. OldLabel must match
// the label currently stored at that index (guards against stale renames).
type RenameCategoryRequest struct {
	OldLabel string `json:"old_label" binding:"required"`
	NewLabel string `json:"new_label" binding:"required"`
}
