package service

import (
	"context"
	"errors"
	"strings"
	"tp_portal_backend/internal/model"
	"tp_portal_backend/internal/util"

	"gorm.io/gorm"
)

type ReviewService struct {
	Users   UserStore
	Reviews ReviewStore
}

func NewReviewService(users UserStore, reviews ReviewStore) *ReviewService {
	return &ReviewService{Users: users, Reviews: reviews}
}

// swagger:model ReviewInput
type ReviewInput struct {
	Rating int    `json:"rating"`
	Text   string `json:"review"`
}

// Submit stores the student's one review of their supervisor.
func (s *ReviewService) Submit(ctx context.Context, session model.Session, in ReviewInput) (*model.Review, error) {
	if in.Rating == 0 {
		return nil, util.ErrRatingRequired
	}
	if in.Rating < 1 || in.Rating > 5 {
		return nil, util.WithDetail(util.ErrValidation, "Rating must be between 1 and 5")
	}
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, util.ErrReviewRequired
	}

	student, err := s.Users.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, notFoundAs(err, util.ErrUserNotFound)
	}
	if student.SupervisorID == "" {
		return nil, util.ErrNoSupervisor
	}

	reviewed, err := s.Reviews.ExistsForStudent(ctx, student.ID)
	if err != nil {
		return nil, err
	}
	if reviewed {
		return nil, util.ErrAlreadyReviewed
	}

	supervisorName := "Unknown"
	supervisor, err := s.Users.FindByRoleIdentifier(ctx, model.Supervisor, student.SupervisorID)
	switch {
	case err == nil:
		supervisorName = supervisor.Name
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}

	review := &model.Review{
		StudentID:        student.ID,
		StudentName:      student.Name,
		StudentRegNumber: student.StudentRegNumber,
		SupervisorID:     student.SupervisorID,
		SupervisorName:   supervisorName,
		Rating:           in.Rating,
		Text:             text,
	}
	if err := s.Reviews.Create(ctx, review); err != nil {
		// unique student_id: a concurrent submit won
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, util.ErrAlreadyReviewed
		}
		return nil, err
	}
	return review, nil
}

func (s *ReviewService) HasReviewed(ctx context.Context, session model.Session) (bool, error) {
	return s.Reviews.ExistsForStudent(ctx, session.UserID)
}
