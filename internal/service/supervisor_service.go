package service

import (
	"context"
	"tp_portal_backend/internal/model"
	"tp_portal_backend/internal/util"
	"tp_portal_backend/pkg/logger"

	"go.uber.org/zap"
)

const (
	reminderTitle   = "Reminder: Teaching Practice School"
	reminderMessage = "Please input your teaching practice school in your dashboard."
)

// SupervisorService covers what a supervisor does with the students that
// reference their ID.
type SupervisorService struct {
	Users         UserStore
	Reviews       ReviewStore
	Notifications *NotificationService
}

func NewSupervisorService(users UserStore, reviews ReviewStore, notifications *NotificationService) *SupervisorService {
	return &SupervisorService{
		Users:         users,
		Reviews:       reviews,
		Notifications: notifications,
	}
}

func (s *SupervisorService) supervisor(ctx context.Context, session model.Session) (*model.User, error) {
	user, err := s.Users.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, notFoundAs(err, util.ErrUserNotFound)
	}
	if user.Role != model.Supervisor || user.SupervisorID == "" {
		return nil, util.ErrPermissionDenied
	}
	return user, nil
}

// student loads a student and checks it belongs to the supervisor.
func (s *SupervisorService) student(ctx context.Context, supervisor *model.User, studentID uint) (*model.User, error) {
	student, err := s.Users.FindByID(ctx, studentID)
	if err != nil {
		return nil, notFoundAs(err, util.ErrUserNotFound)
	}
	if student.Role != model.Student || student.SupervisorID != supervisor.SupervisorID {
		return nil, util.ErrNotYourStudent
	}
	return student, nil
}

func (s *SupervisorService) ListStudents(ctx context.Context, session model.Session) ([]model.User, error) {
	supervisor, err := s.supervisor(ctx, session)
	if err != nil {
		return nil, err
	}
	return s.Users.ListStudentsBySupervisor(ctx, supervisor.SupervisorID)
}

func (s *SupervisorService) SetScore(ctx context.Context, session model.Session, studentID uint, score float64) (*model.User, error) {
	if score < 0 || score > util.MaxScore {
		return nil, util.ErrScoreOutOfRange
	}

	supervisor, err := s.supervisor(ctx, session)
	if err != nil {
		return nil, err
	}
	student, err := s.student(ctx, supervisor, studentID)
	if err != nil {
		return nil, err
	}

	student.Score = &score
	if err := s.Users.UpdateColumns(ctx, student, "score"); err != nil {
		return nil, err
	}

	logger.Log.Info("Score recorded",
		zap.Uint("studentId", student.ID),
		zap.String("supervisorId", supervisor.SupervisorID),
		zap.Float64("score", score),
	)
	return student, nil
}

// SendReminder asks a student who has not entered a school yet to do so.
func (s *SupervisorService) SendReminder(ctx context.Context, session model.Session, studentID uint) (*model.Notification, error) {
	supervisor, err := s.supervisor(ctx, session)
	if err != nil {
		return nil, err
	}
	student, err := s.student(ctx, supervisor, studentID)
	if err != nil {
		return nil, err
	}
	if student.TeachingPracticeSchool != "" {
		return nil, util.ErrSchoolAlreadySet
	}

	return s.Notifications.Notify(ctx, student.ID, reminderTitle, reminderMessage, model.NotificationReminder)
}

func (s *SupervisorService) ListReviews(ctx context.Context, session model.Session) ([]model.Review, error) {
	supervisor, err := s.supervisor(ctx, session)
	if err != nil {
		return nil, err
	}
	return s.Reviews.ListBySupervisor(ctx, supervisor.SupervisorID)
}
