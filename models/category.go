package models

// Category represents a product category.
// The name is unique and is what clients filter products by.
type Category struct {
	ID          uint   `gorm:"primaryKey"`
	Name        string `gorm:"uniqueIndex;not null"`
	Description string
}

func (c *Category) TableName() string {
	return "categories"
}
