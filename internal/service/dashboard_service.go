package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"tp_portal_backend/internal/model"
	"tp_portal_backend/internal/util"
	"tp_portal_backend/pkg/tracing"

	"gorm.io/gorm"
)

// DashboardService builds the read-only views: coordinator dashboard, admin
// analytics and certificate data.
type DashboardService struct {
	Users   UserStore
	Reviews ReviewStore
}

func NewDashboardService(users UserStore, reviews ReviewStore) *DashboardService {
	return &DashboardService{Users: users, Reviews: reviews}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// swagger:model SupervisorSummary
type SupervisorSummary struct {
	Supervisor    model.User   `json:"supervisor"`
	Students      []model.User `json:"students"`
	AverageRating float64      `json:"averageRating"`
	ReviewCount   int64        `json:"reviewCount"`
}

// swagger:model ScoreStats
type ScoreStats struct {
	Average     float64 `json:"average"`
	Scored      int     `json:"scored"`
	Excellent   int     `json:"excellent"`   // >= 90
	Good        int     `json:"good"`        // 70-89
	Fair        int     `json:"fair"`        // 60-69
	NeedsReview int     `json:"needsReview"` // < 60
}

// swagger:model CoordinatorDashboard
type CoordinatorDashboard struct {
	Supervisors   []SupervisorSummary `json:"supervisors"`
	TotalStudents int                 `json:"totalStudents"`
	Scores        ScoreStats          `json:"scores"`
}

func scoreStats(students []model.User) ScoreStats {
	var stats ScoreStats
	var sum float64
	for _, st := range students {
		if !st.HasScore() {
			continue
		}
		score := *st.Score
		sum += score
		stats.Scored++
		switch {
		case score >= 90:
			stats.Excellent++
		case score >= 70:
			stats.Good++
		case score >= 60:
			stats.Fair++
		default:
			stats.NeedsReview++
		}
	}
	if stats.Scored > 0 {
		stats.Average = round1(sum / float64(stats.Scored))
	}
	return stats
}

func (s *DashboardService) Coordinator(ctx context.Context) (*CoordinatorDashboard, error) {
	ctx, span := tracing.StartSpan(ctx, "DashboardService.Coordinator")
	defer span.End()

	supervisors, err := s.Users.ListByRole(ctx, model.Supervisor)
	if err != nil {
		return nil, err
	}
	students, err := s.Users.ListByRole(ctx, model.Student)
	if err != nil {
		return nil, err
	}
	ratings, err := s.Reviews.AverageBySupervisor(ctx)
	if err != nil {
		return nil, err
	}

	bySupervisor := make(map[string][]model.User)
	for _, st := range students {
		bySupervisor[st.SupervisorID] = append(bySupervisor[st.SupervisorID], st)
	}

	summaries := make([]SupervisorSummary, 0, len(supervisors))
	for _, sup := range supervisors {
		summary := SupervisorSummary{
			Supervisor: sup,
			Students:   bySupervisor[sup.SupervisorID],
		}
		if summary.Students == nil {
			summary.Students = []model.User{}
		}
		if r, ok := ratings[sup.SupervisorID]; ok {
			summary.AverageRating = round1(r.Average)
			summary.ReviewCount = r.Count
		}
		summaries = append(summaries, summary)
	}

	return &CoordinatorDashboard{
		Supervisors:   summaries,
		TotalStudents: len(students),
		Scores:        scoreStats(students),
	}, nil
}

// swagger:model RoleCount
type RoleCount struct {
	Role    model.UserRole `json:"role"`
	Count   int64          `json:"count"`
	Percent float64        `json:"percent"`
}

// swagger:model Analytics
type Analytics struct {
	TotalUsers int64       `json:"totalUsers"`
	Roles      []RoleCount `json:"roles"`
}

func (s *DashboardService) Analytics(ctx context.Context) (*Analytics, error) {
	counts, err := s.Users.CountByRole(ctx)
	if err != nil {
		return nil, err
	}

	var total int64
	for _, c := range counts {
		total += c
	}

	result := &Analytics{TotalUsers: total}
	for _, role := range []model.UserRole{model.Student, model.Supervisor, model.Coordinator, model.Admin} {
		rc := RoleCount{Role: role, Count: counts[role]}
		if total > 0 {
			rc.Percent = round1(float64(rc.Count) * 100 / float64(total))
		}
		result.Roles = append(result.Roles, rc)
	}
	return result, nil
}

// swagger:model Certificate
type Certificate struct {
	Name           string  `json:"name"`
	RegNumber      string  `json:"regNumber"`
	Department     string  `json:"department"`
	School         string  `json:"school"`
	SupervisorName string  `json:"supervisorName"`
	SupervisorID   string  `json:"supervisorId"`
	Score          float64 `json:"score"`
	FileName       string  `json:"fileName"`
}

// CertificateFileName is the download name of a student's result document.
func CertificateFileName(regNumber string) string {
	return "Teaching-Practice-Result-" + strings.ReplaceAll(regNumber, "/", "-") + ".pdf"
}

// Certificate returns what the client needs to render the result document.
// It is only available once a score has been entered.
func (s *DashboardService) Certificate(ctx context.Context, session model.Session) (*Certificate, error) {
	student, err := s.Users.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, notFoundAs(err, util.ErrUserNotFound)
	}
	if !student.HasScore() {
		return nil, util.ErrScoreNotReleased
	}

	cert := &Certificate{
		Name:         student.Name,
		RegNumber:    student.StudentRegNumber,
		Department:   student.Department,
		School:       student.TeachingPracticeSchool,
		SupervisorID: student.SupervisorID,
		Score:        *student.Score,
		FileName:     CertificateFileName(student.StudentRegNumber),
	}

	if student.SupervisorID != "" {
		supervisor, err := s.Users.FindByRoleIdentifier(ctx, model.Supervisor, student.SupervisorID)
		switch {
		case err == nil:
			cert.SupervisorName = supervisor.Name
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return nil, err
		}
	}
	return cert, nil
}
