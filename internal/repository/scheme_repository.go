package repository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"suvidha-go/internal/model"
	"suvidha-go/pkg/apperr"
)

// SchemeRepository 定义了福利计划的数据操作接口。
type SchemeRepository interface {
	FindByID(ctx context.Context, id string) (*model.Scheme, error)
	SearchByTitle(ctx context.Context, fragment string, limit int) ([]model.Scheme, error)
	FindActiveWithDetails(ctx context.Context) ([]model.Scheme, error)
}

type schemeRepository struct {
	db *gorm.DB
}

// NewSchemeRepository 创建一个新的 SchemeRepository 实例。
func NewSchemeRepository(db *gorm.DB) SchemeRepository {
	return &schemeRepository{db: db}
}

func withSchemeDetails(db *gorm.DB) *gorm.DB {
	return db.
		Preload("EligibilityCriteria", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order ASC") }).
		Preload("RequiredDocuments", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order ASC") })
}

// FindByID 查找计划及其资格标准和所需材料，不存在时返回 NotFound。
func (r *schemeRepository) FindByID(ctx context.Context, id string) (*model.Scheme, error) {
	var scheme model.Scheme
	err := withSchemeDetails(r.db.WithContext(ctx)).Where("id = ?", id).First(&scheme).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.New(apperr.CodeNotFound, "scheme not found")
	}
	if err != nil {
		return nil, err
	}
	return &scheme, nil
}

// SearchByTitle 按标题做不区分大小写的包含匹配，只返回启用的计划。
func (r *schemeRepository) SearchByTitle(ctx context.Context, fragment string, limit int) ([]model.Scheme, error) {
	pattern := "%" + strings.ToLower(strings.TrimSpace(fragment)) + "%"
	var schemes []model.Scheme
	err := withSchemeDetails(r.db.WithContext(ctx)).
		Where("is_active = ?", true).
		Where("LOWER(title) LIKE ?", pattern).
		Order("title ASC").
		Limit(limit).
		Find(&schemes).Error
	return schemes, err
}

// FindActiveWithDetails 返回全部启用的计划，用于生成知识库。
func (r *schemeRepository) FindActiveWithDetails(ctx context.Context) ([]model.Scheme, error) {
	var schemes []model.Scheme
	err := withSchemeDetails(r.db.WithContext(ctx)).
		Where("is_active = ?", true).
		Order("created_at ASC").
		Find(&schemes).Error
	return schemes, err
}
