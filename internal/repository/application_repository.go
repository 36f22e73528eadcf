package repository

import (
	"context"

	"gorm.io/gorm"

	"suvidha-go/internal/model"
)

// ApplicationFilter 是申请与投诉列表的可选过滤条件。
type ApplicationFilter struct {
	Department string
	Status     string
	Limit      int
}

// ApplicationRepository 定义了服务申请、计划申请与投诉的数据操作接口。
type ApplicationRepository interface {
	ListApplications(ctx context.Context, citizenID string, filter ApplicationFilter) ([]model.Application, error)
	ListSchemeApplications(ctx context.Context, citizenID string, filter ApplicationFilter) ([]model.SchemeApplication, error)
	ListGrievances(ctx context.Context, citizenID string, filter ApplicationFilter) ([]model.Grievance, error)
	CreateGrievance(ctx context.Context, grievance *model.Grievance) error
}

type applicationRepository struct {
	db *gorm.DB
}

// NewApplicationRepository 创建一个新的 ApplicationRepository 实例。
func NewApplicationRepository(db *gorm.DB) ApplicationRepository {
	return &applicationRepository{db: db}
}

func applyFilter(q *gorm.DB, filter ApplicationFilter, withDepartment bool) *gorm.DB {
	if withDepartment && filter.Department != "" {
		q = q.Where("department = ?", filter.Department)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	return q
}

func (r *applicationRepository) ListApplications(ctx context.Context, citizenID string, filter ApplicationFilter) ([]model.Application, error) {
	var apps []model.Application
	q := applyFilter(r.db.WithContext(ctx).Where("citizen_id = ?", citizenID), filter, true)
	err := q.Order("submitted_at DESC").Find(&apps).Error
	return apps, err
}

func (r *applicationRepository) ListSchemeApplications(ctx context.Context, citizenID string, filter ApplicationFilter) ([]model.SchemeApplication, error) {
	var apps []model.SchemeApplication
	q := applyFilter(r.db.WithContext(ctx).Preload("Scheme").Where("citizen_id = ?", citizenID), filter, false)
	err := q.Order("created_at DESC").Find(&apps).Error
	return apps, err
}

func (r *applicationRepository) ListGrievances(ctx context.Context, citizenID string, filter ApplicationFilter) ([]model.Grievance, error) {
	var grievances []model.Grievance
	q := applyFilter(r.db.WithContext(ctx).Where("citizen_id = ?", citizenID), filter, true)
	err := q.Order("created_at DESC").Find(&grievances).Error
	return grievances, err
}

func (r *applicationRepository) CreateGrievance(ctx context.Context, grievance *model.Grievance) error {
	return r.db.WithContext(ctx).Create(grievance).Error
}
