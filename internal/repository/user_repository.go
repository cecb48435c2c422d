package repository

import (
	"context"
	"time"
	"tp_portal_backend/internal/model"

	"gorm.io/gorm"
)

type UserRepository struct {
	DB *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{DB: db}
}

// CreateWithCode creates the account and, when code is not empty, consumes
// the access code in the same transaction. The consume only succeeds on a
// code that is still unused, so two racing sign-ups cannot both win.
func (r *UserRepository) CreateWithCode(ctx context.Context, user *model.User, code string) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		if code == "" {
			return nil
		}
		return markCodeUsed(tx, code, user.Email, time.Now())
	})
}

func (r *UserRepository) FindByID(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	if err := r.DB.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := r.DB.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByRoleIdentifier resolves an account from the identifier its role signs
// in with.
func (r *UserRepository) FindByRoleIdentifier(ctx context.Context, role model.UserRole, identifier string) (*model.User, error) {
	column := identifierColumn(role)
	var user model.User
	err := r.DB.WithContext(ctx).
		Where(column+" = ? AND role = ?", identifier, role).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func identifierColumn(role model.UserRole) string {
	switch role {
	case model.Student:
		return "student_reg_number"
	case model.Supervisor:
		return "supervisor_id"
	case model.Coordinator:
		return "coordinator_id"
	}
	return "email"
}

// UpdateColumns writes only the named columns of user.
func (r *UserRepository) UpdateColumns(ctx context.Context, user *model.User, columns ...string) error {
	return r.DB.WithContext(ctx).Model(user).Select(columns).Updates(user).Error
}

// DeleteWithCleanup removes the account, its notifications and what it holds: a
// supervisor or coordinator code goes back to the available pool, a student's
// registration number leaves the allow-list.
func (r *UserRepository) DeleteWithCleanup(ctx context.Context, user *model.User) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Delete(&model.User{}, user.ID).Error; err != nil {
			return err
		}
		if err := tx.Where("recipient_id = ?", user.ID).Delete(&model.Notification{}).Error; err != nil {
			return err
		}

		switch user.Role {
		case model.Supervisor, model.Coordinator:
			if id := user.RoleIdentifier(); id != "" {
				return releaseCode(tx, id)
			}
		case model.Student:
			if user.StudentRegNumber != "" {
				return tx.Where("number = ?", user.StudentRegNumber).
					Delete(&model.RegistrationNumber{}).Error
			}
		}
		return nil
	})
}

type UserFilter struct {
	Role   model.UserRole
	Search string
}

func (r *UserRepository) List(ctx context.Context, filter UserFilter, page, pageSize int) ([]model.User, int64, error) {
	query := r.DB.WithContext(ctx).Model(&model.User{})
	if filter.Role != "" {
		query = query.Where("role = ?", filter.Role)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where("name LIKE ? OR email LIKE ? OR student_reg_number LIKE ?", like, like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []model.User
	err := query.Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&users).Error
	return users, total, err
}

func (r *UserRepository) ListByRole(ctx context.Context, role model.UserRole) ([]model.User, error) {
	var users []model.User
	err := r.DB.WithContext(ctx).Where("role = ?", role).Order("name ASC").Find(&users).Error
	return users, err
}

func (r *UserRepository) ListSuspended(ctx context.Context) ([]model.User, error) {
	var users []model.User
	err := r.DB.WithContext(ctx).Where("suspended = ?", true).Find(&users).Error
	return users, err
}

func (r *UserRepository) ListStudentsBySupervisor(ctx context.Context, supervisorID string) ([]model.User, error) {
	var users []model.User
	err := r.DB.WithContext(ctx).
		Where("role = ? AND supervisor_id = ?", model.Student, supervisorID).
		Order("name ASC").
		Find(&users).Error
	return users, err
}

type roleCount struct {
	Role  model.UserRole
	Count int64
}

func (r *UserRepository) CountByRole(ctx context.Context) (map[model.UserRole]int64, error) {
	var rows []roleCount
	err := r.DB.WithContext(ctx).Model(&model.User{}).
		Select("role, COUNT(*) AS count").
		Group("role").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[model.UserRole]int64, len(rows))
	for _, row := range rows {
		counts[row.Role] = row.Count
	}
	return counts, nil
}
