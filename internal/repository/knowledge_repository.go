// Package repository 提供了数据访问层的实现。
package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"suvidha-go/internal/model"
)

// KnowledgeFilter 限定检索的候选集合，零值表示不限。
type KnowledgeFilter struct {
	Category   model.KnowledgeCategory
	Department string
}

// KnowledgeRepository 定义了对 knowledge_base 表的数据操作接口。
type KnowledgeRepository interface {
	FindActive(ctx context.Context, filter KnowledgeFilter) ([]model.KnowledgeEntry, error)
	FindAll(ctx context.Context) ([]model.KnowledgeEntry, error)
	FindBySourceKey(ctx context.Context, sourceKey string) (*model.KnowledgeEntry, error)
	Upsert(ctx context.Context, entry *model.KnowledgeEntry) error
	Deactivate(ctx context.Context, sourceKey string) error
	DeactivateMissing(ctx context.Context, category model.KnowledgeCategory, keep []string) (int64, error)
	CountActive(ctx context.Context) (int64, error)
}

type knowledgeRepository struct {
	db *gorm.DB
}

// NewKnowledgeRepository 创建一个新的 KnowledgeRepository 实例。
func NewKnowledgeRepository(db *gorm.DB) KnowledgeRepository {
	return &knowledgeRepository{db: db}
}

// FindActive 返回启用且带有向量的条目，按创建时间排序以保证检索结果稳定。
func (r *knowledgeRepository) FindActive(ctx context.Context, filter KnowledgeFilter) ([]model.KnowledgeEntry, error) {
	q := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Where("embedding IS NOT NULL AND embedding <> ''")
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	if filter.Department != "" {
		q = q.Where("department = ?", filter.Department)
	}
	var entries []model.KnowledgeEntry
	err := q.Order("created_at ASC").Order("id ASC").Find(&entries).Error
	return entries, err
}

// FindAll 返回全部条目，用于快照导出。
func (r *knowledgeRepository) FindAll(ctx context.Context) ([]model.KnowledgeEntry, error) {
	var entries []model.KnowledgeEntry
	err := r.db.WithContext(ctx).Order("source_key ASC").Find(&entries).Error
	return entries, err
}

// FindBySourceKey 根据来源键查找条目，不存在时返回 (nil, nil)。
func (r *knowledgeRepository) FindBySourceKey(ctx context.Context, sourceKey string) (*model.KnowledgeEntry, error) {
	var entry model.KnowledgeEntry
	err := r.db.WithContext(ctx).Where("source_key = ?", sourceKey).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// Upsert 按来源键插入或更新条目，已存在的条目保留原 ID 和创建时间。
func (r *knowledgeRepository) Upsert(ctx context.Context, entry *model.KnowledgeEntry) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.KnowledgeEntry
		err := tx.Where("source_key = ?", entry.SourceKey).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return tx.Create(entry).Error
		case err != nil:
			return err
		}
		entry.ID = existing.ID
		entry.CreatedAt = existing.CreatedAt
		return tx.Save(entry).Error
	})
}

// Deactivate 停用指定来源键的条目。
func (r *knowledgeRepository) Deactivate(ctx context.Context, sourceKey string) error {
	return r.db.WithContext(ctx).Model(&model.KnowledgeEntry{}).
		Where("source_key = ?", sourceKey).
		Update("is_active", false).Error
}

// DeactivateMissing 停用某分类下来源已不存在的条目，返回受影响行数。
func (r *knowledgeRepository) DeactivateMissing(ctx context.Context, category model.KnowledgeCategory, keep []string) (int64, error) {
	q := r.db.WithContext(ctx).Model(&model.KnowledgeEntry{}).
		Where("category = ? AND is_active = ?", category, true)
	if len(keep) > 0 {
		q = q.Where("source_key NOT IN ?", keep)
	}
	res := q.Update("is_active", false)
	return res.RowsAffected, res.Error
}

// CountActive 统计启用的条目数。
func (r *knowledgeRepository) CountActive(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.KnowledgeEntry{}).Where("is_active = ?", true).Count(&n).Error
	return n, err
}
