package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"tp_portal_backend/internal/model"
	"tp_portal_backend/internal/util"
	"tp_portal_backend/pkg/logger"
	"tp_portal_backend/pkg/monitoring"
	"tp_portal_backend/pkg/tracing"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ApprovalService runs the school change workflow between a student and the
// supervisor they reference.
type ApprovalService struct {
	Users         UserStore
	Approvals     ApprovalStore
	Notifications *NotificationService
}

func NewApprovalService(users UserStore, approvals ApprovalStore, notifications *NotificationService) *ApprovalService {
	return &ApprovalService{
		Users:         users,
		Approvals:     approvals,
		Notifications: notifications,
	}
}

type SaveSchoolOutcome string

const (
	SchoolSaved     SaveSchoolOutcome = "saved"
	SchoolPending   SaveSchoolOutcome = "pending"
	SchoolUnchanged SaveSchoolOutcome = "unchanged"
)

// swagger:model SaveSchoolResult
type SaveSchoolResult struct {
	Outcome  SaveSchoolOutcome           `json:"outcome"`
	School   string                      `json:"school"`
	Approval *model.SchoolChangeApproval `json:"approval,omitempty"`
}

// SaveSchool sets the student's school the first time. Later changes only
// open a pending request; the stored school stays as it is until the
// supervisor decides.
func (s *ApprovalService) SaveSchool(ctx context.Context, session model.Session, school string) (*SaveSchoolResult, error) {
	ctx, span := tracing.StartSpan(ctx, "ApprovalService.SaveSchool")
	defer span.End()

	school = strings.TrimSpace(school)
	if school == "" {
		return nil, util.ErrSchoolRequired
	}

	student, err := s.Users.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, notFoundAs(err, util.ErrUserNotFound)
	}

	switch student.TeachingPracticeSchool {
	case "":
		student.TeachingPracticeSchool = school
		if err := s.Users.UpdateColumns(ctx, student, "teaching_practice_school"); err != nil {
			return nil, err
		}
		return &SaveSchoolResult{Outcome: SchoolSaved, School: school}, nil
	case school:
		return &SaveSchoolResult{Outcome: SchoolUnchanged, School: school}, nil
	}

	if student.SupervisorID == "" {
		return nil, util.ErrNoSupervisor
	}

	approval := &model.SchoolChangeApproval{
		StudentID:        student.ID,
		StudentName:      student.Name,
		StudentRegNumber: student.StudentRegNumber,
		OldSchool:        student.TeachingPracticeSchool,
		NewSchool:        school,
		SupervisorID:     student.SupervisorID,
		Status:           model.ApprovalPending,
	}

	var notice *model.Notification
	supervisor, err := s.Users.FindByRoleIdentifier(ctx, model.Supervisor, student.SupervisorID)
	switch {
	case err == nil:
		notice = &model.Notification{
			RecipientID: supervisor.ID,
			Title:       "School Change Request",
			Message: fmt.Sprintf("%s (%s) has requested to change their teaching practice school from \"%s\" to \"%s\"",
				student.Name, student.StudentRegNumber, approval.OldSchool, school),
			Type: model.NotificationApproval,
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		// the request waits for whoever signs up with this supervisor ID
		logger.Log.Warn("No supervisor account for school change request",
			zap.Uint("studentId", student.ID),
			zap.String("supervisorId", student.SupervisorID),
		)
	default:
		return nil, err
	}

	if err := s.Approvals.CreateWithNotification(ctx, approval, notice); err != nil {
		return nil, err
	}
	if notice != nil {
		monitoring.NotificationsSent.WithLabelValues(string(notice.Type)).Inc()
		s.Notifications.Announce(ctx, notice.RecipientID)
	}

	return &SaveSchoolResult{
		Outcome:  SchoolPending,
		School:   student.TeachingPracticeSchool,
		Approval: approval,
	}, nil
}

// ListPending returns the requests waiting on the calling supervisor, newest
// first.
func (s *ApprovalService) ListPending(ctx context.Context, session model.Session) ([]model.SchoolChangeApproval, error) {
	supervisor, err := s.Users.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, notFoundAs(err, util.ErrUserNotFound)
	}
	return s.Approvals.ListPendingBySupervisor(ctx, supervisor.SupervisorID)
}

func (s *ApprovalService) ListForStudent(ctx context.Context, session model.Session) ([]model.SchoolChangeApproval, error) {
	return s.Approvals.ListByStudent(ctx, session.UserID)
}

// Decide approves or rejects a pending request. Only the linked supervisor
// may decide, and only once.
func (s *ApprovalService) Decide(ctx context.Context, session model.Session, approvalID uint, approve bool) (*model.SchoolChangeApproval, error) {
	ctx, span := tracing.StartSpan(ctx, "ApprovalService.Decide")
	defer span.End()

	supervisor, err := s.Users.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, notFoundAs(err, util.ErrUserNotFound)
	}

	approval, err := s.Approvals.FindByID(ctx, approvalID)
	if err != nil {
		return nil, notFoundAs(err, util.ErrApprovalNotFound)
	}
	if supervisor.SupervisorID == "" || approval.SupervisorID != supervisor.SupervisorID {
		return nil, util.ErrPermissionDenied
	}
	if approval.Status != model.ApprovalPending {
		return nil, util.ErrApprovalAlreadyDecided
	}

	status := model.ApprovalRejected
	notice := &model.Notification{
		RecipientID: approval.StudentID,
		Title:       "School Change Rejected",
		Message:     "Your request to change teaching practice school has been rejected.",
		Type:        model.NotificationApprovalResult,
	}
	if approve {
		status = model.ApprovalApproved
		notice.Title = "School Change Approved"
		notice.Message = fmt.Sprintf("Your request to change teaching practice school to \"%s\" has been approved.", approval.NewSchool)
	}

	now := time.Now()
	if err := s.Approvals.Decide(ctx, approval, status, now, notice); err != nil {
		return nil, err
	}
	approval.Status = status
	approval.ReviewedAt = &now

	monitoring.ApprovalDecisions.WithLabelValues(string(status)).Inc()
	monitoring.NotificationsSent.WithLabelValues(string(notice.Type)).Inc()
	s.Notifications.Announce(ctx, approval.StudentID)

	logger.Log.Info("School change decided",
		zap.Uint("approvalId", approval.ID),
		zap.String("status", string(status)),
	)
	return approval, nil
}
