package repository

import (
	"context"
	"time"
	"tp_portal_backend/internal/model"
	"tp_portal_backend/internal/util"

	"gorm.io/gorm"
)

type AccessCodeRepository struct {
	DB *gorm.DB
}

func NewAccessCodeRepository(db *gorm.DB) *AccessCodeRepository {
	return &AccessCodeRepository{DB: db}
}

func (r *AccessCodeRepository) Create(ctx context.Context, code *model.AccessCode) error {
	return r.DB.WithContext(ctx).Create(code).Error
}

// Exists checks the value against codes of every type; supervisor and
// coordinator codes share one numeric namespace.
func (r *AccessCodeRepository) Exists(ctx context.Context, code string) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.AccessCode{}).
		Where("code = ?", code).
		Count(&count).Error
	return count > 0, err
}

func (r *AccessCodeRepository) FindByCodeAndType(ctx context.Context, code string, codeType model.CodeType) (*model.AccessCode, error) {
	var ac model.AccessCode
	err := r.DB.WithContext(ctx).
		Where("code = ? AND type = ?", code, codeType).
		First(&ac).Error
	if err != nil {
		return nil, err
	}
	return &ac, nil
}

type CodeFilter struct {
	Type model.CodeType
	Used *bool
}

func (r *AccessCodeRepository) List(ctx context.Context, filter CodeFilter) ([]model.AccessCode, error) {
	query := r.DB.WithContext(ctx).Model(&model.AccessCode{})
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.Used != nil {
		query = query.Where("used = ?", *filter.Used)
	}

	var codes []model.AccessCode
	err := query.Order("created_at DESC").Find(&codes).Error
	return codes, err
}

// MarkUsed consumes an unused code. A code that is missing or already used
// yields util.ErrCodeAlreadyUsed.
func (r *AccessCodeRepository) MarkUsed(ctx context.Context, code, email string) error {
	return markCodeUsed(r.DB.WithContext(ctx), code, email, time.Now())
}

func (r *AccessCodeRepository) Release(ctx context.Context, code string) error {
	return releaseCode(r.DB.WithContext(ctx), code)
}

func markCodeUsed(db *gorm.DB, code, email string, at time.Time) error {
	res := db.Model(&model.AccessCode{}).
		Where("code = ? AND used = ?", code, false).
		Updates(map[string]interface{}{
			"used":    true,
			"used_by": email,
			"used_at": at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return util.ErrCodeAlreadyUsed
	}
	return nil
}

func releaseCode(db *gorm.DB, code string) error {
	return db.Model(&model.AccessCode{}).
		Where("code = ?", code).
		Updates(map[string]interface{}{
			"used":    false,
			"used_by": nil,
			"used_at": nil,
		}).Error
}
