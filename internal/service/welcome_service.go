package service

import (
	"context"
	"sync/atomic"
	"time"
	"tp_portal_backend/internal/model"
	"tp_portal_backend/internal/util"
)

type WelcomeKind string

const (
	WelcomeFirstTime WelcomeKind = "first_time"
	WelcomeBack      WelcomeKind = "welcome_back"
	WelcomeNone      WelcomeKind = "none"
)

// WelcomeService decides which greeting dialogs a user gets: the welcome
// dialogs for every role and the score congratulation for students.
type WelcomeService struct {
	Users   UserStore
	Reviews ReviewStore

	window atomic.Int64
	now    func() time.Time
}

func NewWelcomeService(users UserStore, reviews ReviewStore, window time.Duration) *WelcomeService {
	s := &WelcomeService{
		Users:   users,
		Reviews: reviews,
		now:     time.Now,
	}
	s.SetWindow(window)
	return s
}

// SetWindow changes the absence after which "welcome back" shows again. Safe
// to call while requests are served.
func (s *WelcomeService) SetWindow(d time.Duration) {
	s.window.Store(int64(d))
}

func (s *WelcomeService) Window() time.Duration {
	return time.Duration(s.window.Load())
}

// swagger:model WelcomeState
type WelcomeState struct {
	Kind WelcomeKind `json:"kind"`
	Name string      `json:"name"`
}

func (s *WelcomeService) WelcomeState(ctx context.Context, session model.Session) (*WelcomeState, error) {
	user, err := s.Users.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, notFoundAs(err, util.ErrUserNotFound)
	}
	return &WelcomeState{Kind: s.kindFor(user), Name: user.Name}, nil
}

func (s *WelcomeService) kindFor(user *model.User) WelcomeKind {
	if !user.WelcomeShown {
		return WelcomeFirstTime
	}
	if user.LastWelcomeAt == nil || s.now().Sub(*user.LastWelcomeAt) >= s.Window() {
		return WelcomeBack
	}
	return WelcomeNone
}

// AckWelcome records that a welcome dialog was closed.
func (s *WelcomeService) AckWelcome(ctx context.Context, session model.Session) error {
	user, err := s.Users.FindByID(ctx, session.UserID)
	if err != nil {
		return notFoundAs(err, util.ErrUserNotFound)
	}

	now := s.now()
	user.WelcomeShown = true
	user.LastWelcomeAt = &now
	return s.Users.UpdateColumns(ctx, user, "welcome_shown", "last_welcome_at")
}

// swagger:model Congratulation
type Congratulation struct {
	Show        bool     `json:"show"`
	Score       *float64 `json:"score,omitempty"`
	Quote       string   `json:"quote,omitempty"`
	HasReviewed bool     `json:"hasReviewed"`
}

// QuoteForScore picks the congratulation message for a score band.
func QuoteForScore(score float64) string {
	switch {
	case score >= 90:
		return "Excellence is not a skill, it's an attitude. Outstanding work!"
	case score >= 80:
		return "Great job! Your dedication and hard work are truly commendable."
	case score >= 70:
		return "Well done! You've shown great commitment to your teaching practice."
	case score >= 60:
		return "Good effort! Keep working hard and you'll continue to improve."
	}
	return "You've completed your teaching practice. Keep learning and growing!"
}

// Congratulation tells a student whether the score dialog is due. It shows
// once per score value; a changed score shows it again.
func (s *WelcomeService) Congratulation(ctx context.Context, session model.Session) (*Congratulation, error) {
	user, err := s.Users.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, notFoundAs(err, util.ErrUserNotFound)
	}

	reviewed, err := s.Reviews.ExistsForStudent(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	result := &Congratulation{HasReviewed: reviewed}
	if !user.HasScore() {
		return result, nil
	}

	score := *user.Score
	result.Score = &score
	result.Quote = QuoteForScore(score)
	result.Show = user.CongratulatedScore == nil || *user.CongratulatedScore != score
	return result, nil
}

func (s *WelcomeService) AckCongratulation(ctx context.Context, session model.Session) error {
	user, err := s.Users.FindByID(ctx, session.UserID)
	if err != nil {
		return notFoundAs(err, util.ErrUserNotFound)
	}
	if !user.HasScore() {
		return util.ErrScoreNotReleased
	}

	score := *user.Score
	user.CongratulatedScore = &score
	return s.Users.UpdateColumns(ctx, user, "congratulated_score")
}
