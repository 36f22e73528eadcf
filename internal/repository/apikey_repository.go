package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"suvidha-go/internal/model"
	"suvidha-go/pkg/apperr"
)

// APIKeyRepository 定义了部门 API Key 的数据操作接口。
type APIKeyRepository interface {
	Create(ctx context.Context, key *model.APIKey) error
	FindByID(ctx context.Context, id string) (*model.APIKey, error)
	TouchLastUsed(ctx context.Context, id string, at time.Time) error
	SetActive(ctx context.Context, id string, active bool) error
}

type apiKeyRepository struct {
	db *gorm.DB
}

// NewAPIKeyRepository 创建一个新的 APIKeyRepository 实例。
func NewAPIKeyRepository(db *gorm.DB) APIKeyRepository {
	return &apiKeyRepository{db: db}
}

func (r *apiKeyRepository) Create(ctx context.Context, key *model.APIKey) error {
	return r.db.WithContext(ctx).Create(key).Error
}

func (r *apiKeyRepository) FindByID(ctx context.Context, id string) (*model.APIKey, error) {
	var key model.APIKey
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.New(apperr.CodeNotFound, "api key not found")
	}
	if err != nil {
		return nil, err
	}
	return &key, nil
}

func (r *apiKeyRepository) TouchLastUsed(ctx context.Context, id string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&model.APIKey{}).Where("id = ?", id).Update("last_used_at", at).Error
}

func (r *apiKeyRepository) SetActive(ctx context.Context, id string, active bool) error {
	if _, err := r.FindByID(ctx, id); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Model(&model.APIKey{}).Where("id = ?", id).Update("is_active", active).Error
}
