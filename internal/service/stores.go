package service

import (
	"context"
	"time"
	"tp_portal_backend/internal/model"
	"tp_portal_backend/internal/repository"
)

// The stores below are the persistence contracts the services depend on.
// The gorm repositories in internal/repository implement them.

type UserStore interface {
	CreateWithCode(ctx context.Context, user *model.User, code string) error
	FindByID(ctx context.Context, id uint) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByRoleIdentifier(ctx context.Context, role model.UserRole, identifier string) (*model.User, error)
	UpdateColumns(ctx context.Context, user *model.User, columns ...string) error
	DeleteWithCleanup(ctx context.Context, user *model.User) error
	List(ctx context.Context, filter repository.UserFilter, page, pageSize int) ([]model.User, int64, error)
	ListByRole(ctx context.Context, role model.UserRole) ([]model.User, error)
	ListSuspended(ctx context.Context) ([]model.User, error)
	ListStudentsBySupervisor(ctx context.Context, supervisorID string) ([]model.User, error)
	CountByRole(ctx context.Context) (map[model.UserRole]int64, error)
}

type AccessCodeStore interface {
	Create(ctx context.Context, code *model.AccessCode) error
	Exists(ctx context.Context, code string) (bool, error)
	FindByCodeAndType(ctx context.Context, code string, codeType model.CodeType) (*model.AccessCode, error)
	List(ctx context.Context, filter repository.CodeFilter) ([]model.AccessCode, error)
	MarkUsed(ctx context.Context, code, email string) error
	Release(ctx context.Context, code string) error
}

type RegistrationStore interface {
	Create(ctx context.Context, rn *model.RegistrationNumber) error
	Exists(ctx context.Context, number string) (bool, error)
	List(ctx context.Context) ([]model.RegistrationNumber, error)
	Delete(ctx context.Context, number string) error
}

type ApprovalStore interface {
	CreateWithNotification(ctx context.Context, approval *model.SchoolChangeApproval, n *model.Notification) error
	FindByID(ctx context.Context, id uint) (*model.SchoolChangeApproval, error)
	ListPendingBySupervisor(ctx context.Context, supervisorID string) ([]model.SchoolChangeApproval, error)
	ListByStudent(ctx context.Context, studentID uint) ([]model.SchoolChangeApproval, error)
	Decide(ctx context.Context, approval *model.SchoolChangeApproval, status model.ApprovalStatus, at time.Time, n *model.Notification) error
}

type NotificationStore interface {
	Create(ctx context.Context, n *model.Notification) error
	ListUnread(ctx context.Context, recipientID uint) ([]model.Notification, error)
	MarkRead(ctx context.Context, id, recipientID uint) error
	MarkShown(ctx context.Context, id, recipientID uint) error
}

type ReviewStore interface {
	Create(ctx context.Context, review *model.Review) error
	ExistsForStudent(ctx context.Context, studentID uint) (bool, error)
	ListBySupervisor(ctx context.Context, supervisorID string) ([]model.Review, error)
	AverageBySupervisor(ctx context.Context) (map[string]repository.SupervisorRating, error)
}

// TokenStore is consulted on every authenticated request, so it lives in
// Redis (or memory) rather than the database.
type TokenStore interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
	SetSuspended(ctx context.Context, userID uint, suspended bool) error
	IsSuspended(ctx context.Context, userID uint) (bool, error)
}

// SessionCloser ends the live connections an account holds on this instance.
type SessionCloser interface {
	Disconnect(userID uint) int
}
