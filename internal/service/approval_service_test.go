package service

import (
	"context"
	"errors"
	"testing"
	"tp_portal_backend/internal/model"
	"tp_portal_backend/internal/util"
)

func seedPair(f *fixture, school string) (student, supervisor *model.User) {
	supervisor = f.seedUser(model.User{
		Name: "Dr. Eze", Email: "eze@example.com", Role: model.Supervisor, SupervisorID: "123456",
	}, "secret1")
	student = f.seedUser(model.User{
		Name: "Ada Obi", Email: "ada@example.com", Role: model.Student,
		StudentRegNumber: "EBSU/1001/23456", SupervisorID: "123456",
		TeachingPracticeSchool: school,
	}, "secret1")
	return student, supervisor
}

func TestSaveSchool_FirstTimeWritesDirectly(t *testing.T) {
	f := newFixture()
	student, supervisor := seedPair(f, "")

	res, err := f.approvals.SaveSchool(context.Background(), sessionOf(student), "  Saint Mary's High  ")
	if err != nil {
		t.Fatalf("SaveSchool: %v", err)
	}
	if res.Outcome != SchoolSaved || f.user(student.ID).TeachingPracticeSchool != "Saint Mary's High" {
		t.Errorf("unexpected result %+v", res)
	}
	if n := len(f.notificationsFor(supervisor.ID)); n != 0 {
		t.Errorf("first save notifies nobody, got %d", n)
	}
}

func TestSaveSchool_Empty(t *testing.T) {
	f := newFixture()
	student, _ := seedPair(f, "")

	if _, err := f.approvals.SaveSchool(context.Background(), sessionOf(student), "   "); !errors.Is(err, util.ErrSchoolRequired) {
		t.Errorf("expected ErrSchoolRequired, got %v", err)
	}
}

func TestSaveSchool_ChangeOpensRequest(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	student, supervisor := seedPair(f, "Saint Mary's High")

	res, err := f.approvals.SaveSchool(ctx, sessionOf(student), "Central High")
	if err != nil {
		t.Fatalf("SaveSchool: %v", err)
	}
	if res.Outcome != SchoolPending || res.Approval == nil {
		t.Fatalf("expected a pending request, got %+v", res)
	}
	if got := f.user(student.ID).TeachingPracticeSchool; got != "Saint Mary's High" {
		t.Errorf("stored school changed before a decision: %q", got)
	}

	a := res.Approval
	if a.Status != model.ApprovalPending || a.OldSchool != "Saint Mary's High" || a.NewSchool != "Central High" || a.SupervisorID != "123456" {
		t.Errorf("unexpected approval %+v", a)
	}

	notes := f.notificationsFor(supervisor.ID)
	if len(notes) != 1 {
		t.Fatalf("expected 1 notification for the supervisor, got %d", len(notes))
	}
	want := `Ada Obi (EBSU/1001/23456) has requested to change their teaching practice school from "Saint Mary's High" to "Central High"`
	if notes[0].Title != "School Change Request" || notes[0].Message != want || notes[0].Type != model.NotificationApproval {
		t.Errorf("unexpected notification %+v", notes[0])
	}

	pending, _ := f.approvals.ListPending(ctx, sessionOf(supervisor))
	if len(pending) != 1 || pending[0].ID != a.ID {
		t.Errorf("ListPending = %+v", pending)
	}
}

func TestSaveSchool_SameValueIsNoop(t *testing.T) {
	f := newFixture()
	student, supervisor := seedPair(f, "Central High")

	res, err := f.approvals.SaveSchool(context.Background(), sessionOf(student), "Central High")
	if err != nil || res.Outcome != SchoolUnchanged {
		t.Fatalf("expected unchanged, got %+v, %v", res, err)
	}
	if n := len(f.notificationsFor(supervisor.ID)); n != 0 {
		t.Errorf("expected no notification, got %d", n)
	}
}

func TestDecide_Approve(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	student, supervisor := seedPair(f, "Saint Mary's High")
	res, _ := f.approvals.SaveSchool(ctx, sessionOf(student), "Central High")

	a, err := f.approvals.Decide(ctx, sessionOf(supervisor), res.Approval.ID, true)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if a.Status != model.ApprovalApproved || a.ReviewedAt == nil {
		t.Errorf("unexpected approval %+v", a)
	}
	if got := f.user(student.ID).TeachingPracticeSchool; got != "Central High" {
		t.Errorf("school = %q, want Central High", got)
	}

	notes := f.notificationsFor(student.ID)
	if len(notes) != 1 {
		t.Fatalf("expected exactly 1 notification, got %d", len(notes))
	}
	if notes[0].Title != "School Change Approved" ||
		notes[0].Message != `Your request to change teaching practice school to "Central High" has been approved.` ||
		notes[0].Type != model.NotificationApprovalResult {
		t.Errorf("unexpected notification %+v", notes[0])
	}

	if _, err := f.approvals.Decide(ctx, sessionOf(supervisor), a.ID, false); !errors.Is(err, util.ErrApprovalAlreadyDecided) {
		t.Errorf("expected ErrApprovalAlreadyDecided, got %v", err)
	}
	if n := len(f.notificationsFor(student.ID)); n != 1 {
		t.Errorf("a second decision must not notify, got %d notifications", n)
	}
}

func TestDecide_Reject(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	student, supervisor := seedPair(f, "Saint Mary's High")
	res, _ := f.approvals.SaveSchool(ctx, sessionOf(student), "Central High")

	if _, err := f.approvals.Decide(ctx, sessionOf(supervisor), res.Approval.ID, false); err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if got := f.user(student.ID).TeachingPracticeSchool; got != "Saint Mary's High" {
		t.Errorf("school changed on reject: %q", got)
	}

	notes := f.notificationsFor(student.ID)
	if len(notes) != 1 {
		t.Fatalf("expected exactly 1 notification, got %d", len(notes))
	}
	if notes[0].Title != "School Change Rejected" ||
		notes[0].Message != "Your request to change teaching practice school has been rejected." {
		t.Errorf("unexpected notification %+v", notes[0])
	}

	history, _ := f.approvals.ListForStudent(ctx, sessionOf(student))
	if len(history) != 1 || history[0].Status != model.ApprovalRejected {
		t.Errorf("history = %+v", history)
	}
}

func TestDecide_OnlyLinkedSupervisor(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	student, _ := seedPair(f, "Saint Mary's High")
	other := f.seedUser(model.User{Name: "Other", Email: "other@example.com", Role: model.Supervisor, SupervisorID: "654321"}, "secret1")
	res, _ := f.approvals.SaveSchool(ctx, sessionOf(student), "Central High")

	if _, err := f.approvals.Decide(ctx, sessionOf(other), res.Approval.ID, true); !errors.Is(err, util.ErrPermissionDenied) {
		t.Errorf("expected ErrPermissionDenied, got %v", err)
	}
	if _, err := f.approvals.Decide(ctx, sessionOf(other), 9999, true); !errors.Is(err, util.ErrApprovalNotFound) {
		t.Errorf("expected ErrApprovalNotFound, got %v", err)
	}
}
