package repository

import (
	"context"

	"gorm.io/gorm"

	"suvidha-go/internal/model"
)

// CatalogRepository 提供政策与资费的只读访问。
type CatalogRepository interface {
	ListActivePolicies(ctx context.Context) ([]model.Policy, error)
	ListActiveTariffs(ctx context.Context) ([]model.Tariff, error)
}

type catalogRepository struct {
	db *gorm.DB
}

// NewCatalogRepository 创建一个新的 CatalogRepository 实例。
func NewCatalogRepository(db *gorm.DB) CatalogRepository {
	return &catalogRepository{db: db}
}

func (r *catalogRepository) ListActivePolicies(ctx context.Context) ([]model.Policy, error) {
	var policies []model.Policy
	err := r.db.WithContext(ctx).Where("is_active = ?", true).Order("created_at ASC").Find(&policies).Error
	return policies, err
}

func (r *catalogRepository) ListActiveTariffs(ctx context.Context) ([]model.Tariff, error) {
	var tariffs []model.Tariff
	err := r.db.WithContext(ctx).Where("is_active = ?", true).Order("department ASC").Order("category ASC").Find(&tariffs).Error
	return tariffs, err
}
