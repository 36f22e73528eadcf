package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"suvidha-go/internal/model"
	"suvidha-go/pkg/apperr"
)

// CitizenRepository 定义了公民及其档案的数据操作接口。
type CitizenRepository interface {
	FindByID(ctx context.Context, id string) (*model.Citizen, error)
	FindProfile(ctx context.Context, citizenID string) (*model.CitizenProfile, error)
	// UpdateSavedAnswers 在事务内读取、修改并写回已保存答案，档案不存在时创建。
	UpdateSavedAnswers(ctx context.Context, citizenID string, mutate func(model.SavedAnswers)) error
}

type citizenRepository struct {
	db *gorm.DB
}

// NewCitizenRepository 创建一个新的 CitizenRepository 实例。
func NewCitizenRepository(db *gorm.DB) CitizenRepository {
	return &citizenRepository{db: db}
}

// FindByID 查找公民及其档案和服务账户。
func (r *citizenRepository) FindByID(ctx context.Context, id string) (*model.Citizen, error) {
	var citizen model.Citizen
	err := r.db.WithContext(ctx).
		Preload("Profile").
		Preload("ServiceAccounts").
		Where("id = ?", id).
		First(&citizen).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.New(apperr.CodeNotFound, "citizen not found")
	}
	if err != nil {
		return nil, err
	}
	return &citizen, nil
}

// FindProfile 返回公民档案，不存在时返回 (nil, nil)。
func (r *citizenRepository) FindProfile(ctx context.Context, citizenID string) (*model.CitizenProfile, error) {
	var profile model.CitizenProfile
	err := r.db.WithContext(ctx).Where("citizen_id = ?", citizenID).First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *citizenRepository) UpdateSavedAnswers(ctx context.Context, citizenID string, mutate func(model.SavedAnswers)) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var profile model.CitizenProfile
		err := tx.Where("citizen_id = ?", citizenID).First(&profile).Error
		isNew := errors.Is(err, gorm.ErrRecordNotFound)
		if err != nil && !isNew {
			return err
		}

		answers, err := profile.SavedAnswers()
		if err != nil {
			return err
		}
		mutate(answers)
		if err := profile.SetSavedAnswers(answers); err != nil {
			return err
		}
		profile.ConsentToSaveAnswers = true

		if isNew {
			profile.CitizenID = citizenID
			return tx.Create(&profile).Error
		}
		return tx.Save(&profile).Error
	})
}
