package repositories

import (
	"context"
	"fmt"
	"strings"

	"jengamart/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var productOrderings = map[string]string{
	"price":       "price ASC",
	"-price":      "price DESC",
	"created_at":  "created_at ASC",
	"-created_at": "created_at DESC",
}

// GORMProductRepository is a GORM implementation of ProductRepository.
type GORMProductRepository struct {
	db *gorm.DB
}

// NewGORMProductRepository creates a new instance of GORMProductRepository.
func NewGORMProductRepository(db *gorm.DB) *GORMProductRepository {
	return &GORMProductRepository{
		db: db,
	}
}

// List retrieves the products matching q.
func (r *GORMProductRepository) List(ctx context.Context, q ProductQuery) ([]models.Product, error) {
	tx := conn(ctx, r.db)
	if q.Category != "" {
		tx = tx.Where("category = ?", q.Category)
	}
	if q.SellerID != "" {
		tx = tx.Where("seller_id = ?", q.SellerID)
	}
	if s := strings.TrimSpace(q.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		tx = tx.Where("LOWER(name) LIKE ? OR LOWER(COALESCE(brand, '')) LIKE ? OR LOWER(category) LIKE ?", like, like, like)
	}
	order, ok := productOrderings[q.Ordering]
	if !ok {
		order = productOrderings["-created_at"]
	}

	var products []models.Product
	if err := tx.Order(order).Order("id").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

// GetByID retrieves a single product by its ID from the database.
func (r *GORMProductRepository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	if err := conn(ctx, r.db).First(&product, "id = ?", id).Error; err != nil {
		return nil, translate(err, "product with ID %s", id)
	}
	return &product, nil
}

// Create creates a new product in the database.
func (r *GORMProductRepository) Create(ctx context.Context, product *models.Product) error {
	if product.ID == "" {
		product.ID = uuid.New().String()
	}
	if err := conn(ctx, r.db).Create(product).Error; err != nil {
		return translate(err, "failed to create product")
	}
	return nil
}

// Update writes every editable column of product.
func (r *GORMProductRepository) Update(ctx context.Context, product *models.Product) error {
	res := conn(ctx, r.db).Model(product).Select("*").Omit("id", "seller_id", "created_at").Updates(product)
	if res.Error != nil {
		return translate(res.Error, "failed to update product")
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("product with ID %s: %w", product.ID, ErrNotFound)
	}
	return nil
}

// Delete deletes a product by its ID from the database. Order items keep their snapshot and
// lose the reference.
func (r *GORMProductRepository) Delete(ctx context.Context, id string) error {
	res := conn(ctx, r.db).Delete(&models.Product{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete product: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("product with ID %s: %w", id, ErrNotFound)
	}
	return nil
}
