package repository

import (
	"context"
	"time"
	"tp_portal_backend/internal/model"
	"tp_portal_backend/internal/util"

	"gorm.io/gorm"
)

type ApprovalRepository struct {
	DB *gorm.DB
}

func NewApprovalRepository(db *gorm.DB) *ApprovalRepository {
	return &ApprovalRepository{DB: db}
}

// CreateWithNotification stores the request and the supervisor's
// notification together.
func (r *ApprovalRepository) CreateWithNotification(ctx context.Context, approval *model.SchoolChangeApproval, n *model.Notification) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(approval).Error; err != nil {
			return err
		}
		if n == nil {
			return nil
		}
		return tx.Create(n).Error
	})
}

func (r *ApprovalRepository) FindByID(ctx context.Context, id uint) (*model.SchoolChangeApproval, error) {
	var a model.SchoolChangeApproval
	if err := r.DB.WithContext(ctx).First(&a, id).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *ApprovalRepository) ListPendingBySupervisor(ctx context.Context, supervisorID string) ([]model.SchoolChangeApproval, error) {
	var list []model.SchoolChangeApproval
	err := r.DB.WithContext(ctx).
		Where("supervisor_id = ? AND status = ?", supervisorID, model.ApprovalPending).
		Order("created_at DESC").
		Find(&list).Error
	return list, err
}

func (r *ApprovalRepository) ListByStudent(ctx context.Context, studentID uint) ([]model.SchoolChangeApproval, error) {
	var list []model.SchoolChangeApproval
	err := r.DB.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("created_at DESC").
		Find(&list).Error
	return list, err
}

// Decide moves a pending approval to its terminal status. On approval the
// student's school becomes the requested one. The outcome notification is
// written in the same transaction, so each decision emits exactly one.
func (r *ApprovalRepository) Decide(ctx context.Context, approval *model.SchoolChangeApproval, status model.ApprovalStatus, at time.Time, n *model.Notification) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.SchoolChangeApproval{}).
			Where("id = ? AND status = ?", approval.ID, model.ApprovalPending).
			Updates(map[string]interface{}{
				"status":      status,
				"reviewed_at": at,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return util.ErrApprovalAlreadyDecided
		}

		if status == model.ApprovalApproved {
			err := tx.Model(&model.User{}).
				Where("id = ?", approval.StudentID).
				Update("teaching_practice_school", approval.NewSchool).Error
			if err != nil {
				return err
			}
		}

		return tx.Create(n).Error
	})
}
