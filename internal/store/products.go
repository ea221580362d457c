package store

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"bizmanager/internal/models"
)

// ProductFilter narrows a product listing.
type ProductFilter struct {
	Category string
	Query    string
	Page
}

// ListProducts returns the matching page and the total match count.
func (s *Store) ListProducts(ctx context.Context, businessID uint, f ProductFilter) ([]models.Product, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Product{}).Where("business_id = ?", businessID)
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if term := strings.TrimSpace(f.Query); term != "" {
		q = q.Where("name ILIKE ?", "%"+term+"%")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, translate(err, "count products")
	}
	var items []models.Product
	if err := f.Page.apply(q).Order("id desc").Find(&items).Error; err != nil {
		return nil, 0, translate(err, "list products")
	}
	return items, total, nil
}

func (s *Store) GetProduct(ctx context.Context, businessID, id uint) (*models.Product, error) {
	var p models.Product
	err := s.db.WithContext(ctx).Where("id = ? AND business_id = ?", id, businessID).First(&p).Error
	if err != nil {
		return nil, translate(err, "get product")
	}
	return &p, nil
}

func (s *Store) CreateProduct(ctx context.Context, p *models.Product) error {
	return translate(s.db.WithContext(ctx).Create(p).Error, "create product")
}

// UpdateProduct writes every editable column of p.
func (s *Store) UpdateProduct(ctx context.Context, p *models.Product) error {
	res := s.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ? AND business_id = ?", p.ID, p.BusinessID).
		Updates(map[string]any{
			"name":        p.Name,
			"category":    p.Category,
			"description": p.Description,
			"price":       p.Price,
			"cost_price":  p.CostPrice,
			"quantity":    p.Quantity,
		})
	if res.Error != nil {
		return translate(res.Error, "update product")
	}
	if res.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound, "update product")
	}
	return nil
}

func (s *Store) DeleteProduct(ctx context.Context, businessID, id uint) error {
	res := s.db.WithContext(ctx).Where("id = ? AND business_id = ?", id, businessID).Delete(&models.Product{})
	if res.Error != nil {
		return translate(res.Error, "delete product")
	}
	if res.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound, "delete product")
	}
	return nil
}
