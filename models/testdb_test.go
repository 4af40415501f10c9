package models

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// newTestDB opens an in-memory sqlite database named after the test so
// parallel tests never share state. TranslateError makes the driver
// report unique violations as gorm.ErrDuplicatedKey, matching the
// postgres setup in main. The busy timeout makes concurrent writers
// wait on each other's locks instead of erroring.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(&Category{}, &Product{}, &Cart{}, &CartItem{}, &Order{}, &OrderItem{}); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

func seedProduct(t *testing.T, db *gorm.DB, name string, price float64) *Product {
	t.Helper()
	category := Category{Name: "seed-" + name}
	if err := db.Create(&category).Error; err != nil {
		t.Fatalf("failed to seed category: %v", err)
	}
	product := Product{
		Name:       name,
		Price:      decimal.NewFromFloat(price),
		CategoryID: category.ID,
	}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("failed to seed product: %v", err)
	}
	return &product
}
