package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"tp_portal_backend/internal/model"
	"tp_portal_backend/internal/util"
)

func studentInput(reg, supervisorID string) SignUpInput {
	return SignUpInput{
		Role:            model.Student,
		Name:            "Ada Obi",
		Email:           "ada@example.com",
		Password:        "secret1",
		ConfirmPassword: "secret1",
		RegNumber:       reg,
		SupervisorID:    supervisorID,
		Department:      "Mathematics",
	}
}

func supervisorInput(email, code string) SignUpInput {
	return SignUpInput{
		Role:            model.Supervisor,
		Name:            "Dr. Eze",
		Email:           email,
		Password:        "secret1",
		ConfirmPassword: "secret1",
		SupervisorID:    code,
	}
}

func TestSignUp_PasswordChecks(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	in := supervisorInput("s@example.com", "123456")
	in.ConfirmPassword = "other"
	if _, err := f.auth.SignUp(ctx, in); !errors.Is(err, util.ErrPasswordMismatch) {
		t.Errorf("expected ErrPasswordMismatch, got %v", err)
	}

	in.Password, in.ConfirmPassword = "abc", "abc"
	if _, err := f.auth.SignUp(ctx, in); !errors.Is(err, util.ErrPasswordTooShort) {
		t.Errorf("expected ErrPasswordTooShort, got %v", err)
	}

	in = supervisorInput("not-an-email", "123456")
	if _, err := f.auth.SignUp(ctx, in); !errors.Is(err, util.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestSignUp_StudentNotAllowListed(t *testing.T) {
	f := newFixture()
	f.seedCode("123456", model.CodeSupervisor)

	_, err := f.auth.SignUp(context.Background(), studentInput("1001/99999", "123456"))
	if !errors.Is(err, util.ErrRegNumberNotAuthorized) {
		t.Fatalf("expected ErrRegNumberNotAuthorized, got %v", err)
	}
	if err.Error() != "This registration number is not authorized" {
		t.Errorf("unexpected message %q", err.Error())
	}
	if f.userCount() != 0 {
		t.Error("no account may be created")
	}
}

func TestSignUp_StudentReferencesSupervisorWithoutConsuming(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.seedCode("123456", model.CodeSupervisor)
	if _, err := f.codes.AddRegistrationNumber(ctx, "EBSU/1001/23456"); err != nil {
		t.Fatalf("AddRegistrationNumber: %v", err)
	}

	user, err := f.auth.SignUp(ctx, studentInput("1001/23456", "123456"))
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	if user.StudentRegNumber != "EBSU/1001/23456" || user.SupervisorID != "123456" {
		t.Errorf("unexpected student %+v", user)
	}
	if f.code("123456").Used {
		t.Error("student sign-up must not consume the supervisor code")
	}

	// the number now belongs to an account
	again := studentInput("EBSU/1001/23456", "123456")
	again.Email = "other@example.com"
	if _, err := f.auth.SignUp(ctx, again); !errors.Is(err, util.ErrRegNumberTaken) {
		t.Errorf("expected ErrRegNumberTaken, got %v", err)
	}
}

func TestSignUp_StudentInvalidSupervisor(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.seedCode("1234567890", model.CodeCoordinator)
	f.codes.AddRegistrationNumber(ctx, "1001/23456")

	for _, code := range []string{"000000", "1234567890"} {
		_, err := f.auth.SignUp(ctx, studentInput("1001/23456", code))
		if !errors.Is(err, util.ErrInvalidSupervisorID) {
			t.Errorf("code %s: expected ErrInvalidSupervisorID, got %v", code, err)
		}
	}
}

func TestSignUp_SupervisorConsumesCode(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.seedCode("123456", model.CodeSupervisor)

	user, err := f.auth.SignUp(ctx, supervisorInput("first@example.com", "123456"))
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	if user.SupervisorID != "123456" {
		t.Errorf("supervisor id = %q", user.SupervisorID)
	}
	code := f.code("123456")
	if !code.Used || code.UsedBy == nil || *code.UsedBy != "first@example.com" {
		t.Errorf("code not consumed by first@example.com: %+v", code)
	}

	_, err = f.auth.SignUp(ctx, supervisorInput("second@example.com", "123456"))
	if !errors.Is(err, util.ErrCodeAlreadyUsed) {
		t.Fatalf("expected ErrCodeAlreadyUsed, got %v", err)
	}
	if err.Error() != "Code Already Used" {
		t.Errorf("unexpected message %q", err.Error())
	}
	if f.userCount() != 1 {
		t.Errorf("expected 1 account, got %d", f.userCount())
	}
}

func TestSignUp_CodeChecks(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.seedCode("123456", model.CodeSupervisor)

	cases := []struct {
		name string
		in   SignUpInput
		want error
		msg  string
	}{
		{"supervisor short", supervisorInput("a@x.com", "12345"), util.ErrCodeLength, "Supervisor ID must be 6 digits"},
		{"supervisor letters", supervisorInput("a@x.com", "12345a"), util.ErrCodeLength, "Supervisor ID must be 6 digits"},
		{"supervisor unknown", supervisorInput("a@x.com", "654321"), util.ErrCodeNotAuthorized, ""},
		{"coordinator short", SignUpInput{
			Role: model.Coordinator, Name: "C", Email: "c@x.com",
			Password: "secret1", ConfirmPassword: "secret1", CoordinatorID: "123456",
		}, util.ErrCodeLength, "Coordinator ID must be 10 digits"},
		{"coordinator unknown", SignUpInput{
			Role: model.Coordinator, Name: "C", Email: "c@x.com",
			Password: "secret1", ConfirmPassword: "secret1", CoordinatorID: "0000123456",
		}, util.ErrCodeNotAuthorized, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.auth.SignUp(ctx, tc.in)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if tc.msg != "" && err.Error() != tc.msg {
				t.Errorf("message = %q, want %q", err.Error(), tc.msg)
			}
		})
	}
}

func TestSignUp_EmailRegistered(t *testing.T) {
	f := newFixture()
	f.seedUser(model.User{Name: "X", Email: "taken@example.com", Role: model.Student}, "secret1")
	f.seedCode("123456", model.CodeSupervisor)

	_, err := f.auth.SignUp(context.Background(), supervisorInput("Taken@Example.com", "123456"))
	if !errors.Is(err, util.ErrEmailRegistered) {
		t.Fatalf("expected ErrEmailRegistered, got %v", err)
	}
	if f.code("123456").Used {
		t.Error("a rejected sign-up must leave the code available")
	}
}

func TestSignUp_ConcurrentConsumeHasOneWinner(t *testing.T) {
	f := newFixture()
	f.seedCode("123456", model.CodeSupervisor)

	emails := []string{"a@example.com", "b@example.com", "c@example.com", "d@example.com"}
	errs := make([]error, len(emails))
	var wg sync.WaitGroup
	for i, email := range emails {
		wg.Add(1)
		go func(i int, email string) {
			defer wg.Done()
			_, errs[i] = f.auth.SignUp(context.Background(), supervisorInput(email, "123456"))
		}(i, email)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case !errors.Is(err, util.ErrCodeAlreadyUsed):
			t.Errorf("unexpected error %v", err)
		}
	}
	if wins != 1 || f.userCount() != 1 {
		t.Errorf("expected exactly one account, got wins=%d accounts=%d", wins, f.userCount())
	}
}

func TestSignIn(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	student := f.seedUser(model.User{
		Name: "Ada", Email: "ada@example.com", Role: model.Student,
		StudentRegNumber: "EBSU/1001/23456", SupervisorID: "123456",
	}, "secret1")
	f.seedUser(model.User{Name: "Eze", Email: "eze@example.com", Role: model.Supervisor, SupervisorID: "123456"}, "secret1")

	res, err := f.auth.SignIn(ctx, SignInInput{Role: model.Student, Identifier: "1001/23456", Password: "secret1"})
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if res.Token == "" || res.User.ID != student.ID {
		t.Errorf("unexpected result %+v", res)
	}
	claims, err := util.ParseJWT(res.Token, f.cfg.JWT.Secret)
	if err != nil || claims.UserID != student.ID || claims.Role != model.Student || claims.ID == "" {
		t.Errorf("bad claims %+v, %v", claims, err)
	}
	if f.user(student.ID).LastLoginAt == nil {
		t.Error("last_login_at not recorded")
	}

	if _, err := f.auth.SignIn(ctx, SignInInput{Role: model.Student, Identifier: "1001/23456", Password: "wrong!"}); !errors.Is(err, util.ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}

	_, err = f.auth.SignIn(ctx, SignInInput{Role: model.Student, Identifier: "1001/00000", Password: "secret1"})
	if err == nil || err.Error() != "No student account found with this registration number" {
		t.Errorf("unexpected error %v", err)
	}

	_, err = f.auth.SignIn(ctx, SignInInput{Role: model.Coordinator, Identifier: "1234567890", Password: "secret1"})
	if err == nil || err.Error() != "No coordinator account found with this ID" {
		t.Errorf("unexpected error %v", err)
	}

	if _, err := f.auth.SignIn(ctx, SignInInput{Role: model.Supervisor, Identifier: "123456", Password: "secret1"}); err != nil {
		t.Errorf("supervisor SignIn: %v", err)
	}
}

func TestSignIn_RoleMismatch(t *testing.T) {
	f := newFixture()
	f.seedUser(model.User{Name: "Eze", Email: "eze@example.com", Role: model.Supervisor, SupervisorID: "123456"}, "secret1")

	res, err := f.auth.SignIn(context.Background(), SignInInput{Role: model.Student, Identifier: "eze@example.com", Password: "secret1"})
	if !errors.Is(err, util.ErrRoleMismatch) {
		t.Fatalf("expected ErrRoleMismatch, got %v", err)
	}
	if res != nil {
		t.Error("no session may be issued")
	}
	if err.Error() != "Invalid role for this account. Expected: student, Found: supervisor" {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestSignIn_Suspended(t *testing.T) {
	f := newFixture()
	f.seedUser(model.User{Name: "Eze", Email: "eze@example.com", Role: model.Supervisor, SupervisorID: "123456", Suspended: true}, "secret1")

	_, err := f.auth.SignIn(context.Background(), SignInInput{Role: model.Supervisor, Identifier: "123456", Password: "secret1"})
	if !errors.Is(err, util.ErrAccountSuspended) {
		t.Errorf("expected ErrAccountSuspended, got %v", err)
	}
}

func TestValidateSession_SuspensionEndsExistingTokens(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	student := f.seedUser(model.User{
		Name: "Ada", Email: "ada@example.com", Role: model.Student,
		StudentRegNumber: "EBSU/1001/23456", SupervisorID: "123456",
	}, "secret1")

	res, err := f.auth.SignIn(ctx, SignInInput{Role: model.Student, Identifier: "1001/23456", Password: "secret1"})
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	claims, err := util.ParseJWT(res.Token, f.cfg.JWT.Secret)
	if err != nil {
		t.Fatalf("ParseJWT: %v", err)
	}
	if err := f.auth.ValidateSession(ctx, claims); err != nil {
		t.Fatalf("fresh session rejected: %v", err)
	}

	if _, err := f.admin.ToggleSuspend(ctx, student.ID); err != nil {
		t.Fatalf("ToggleSuspend: %v", err)
	}
	if err := f.auth.ValidateSession(ctx, claims); !errors.Is(err, util.ErrAccountSuspended) {
		t.Errorf("expected ErrAccountSuspended for the existing token, got %v", err)
	}
	if calls := f.closer.calls(); len(calls) != 1 || calls[0] != student.ID {
		t.Errorf("expected live connections of %d closed, got %v", student.ID, calls)
	}
	if !f.user(student.ID).Suspended {
		t.Error("suspension not stored")
	}

	if _, err := f.admin.ToggleSuspend(ctx, student.ID); err != nil {
		t.Fatalf("ToggleSuspend: %v", err)
	}
	if err := f.auth.ValidateSession(ctx, claims); err != nil {
		t.Errorf("reinstated session rejected: %v", err)
	}
	if len(f.closer.calls()) != 1 {
		t.Error("reinstating must not close connections")
	}

	if err := f.auth.SignOut(ctx, claims); err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	if err := f.auth.ValidateSession(ctx, claims); !errors.Is(err, util.ErrSessionRevoked) {
		t.Errorf("expected ErrSessionRevoked, got %v", err)
	}
}

func TestSyncSuspensions(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	// suspended before this process started: only the database knows
	suspended := f.seedUser(model.User{Name: "Eze", Email: "eze@example.com", Role: model.Supervisor, SupervisorID: "123456", Suspended: true}, "secret1")
	active := f.seedUser(model.User{Name: "Obi", Email: "obi@example.com", Role: model.Supervisor, SupervisorID: "654321"}, "secret1")

	if err := f.auth.CheckAccount(ctx, suspended.ID); err != nil {
		t.Fatalf("token store should start empty, got %v", err)
	}

	n, err := f.auth.SyncSuspensions(ctx)
	if err != nil || n != 1 {
		t.Fatalf("SyncSuspensions = %d, %v", n, err)
	}
	if err := f.auth.CheckAccount(ctx, suspended.ID); !errors.Is(err, util.ErrAccountSuspended) {
		t.Errorf("expected ErrAccountSuspended, got %v", err)
	}
	if err := f.auth.CheckAccount(ctx, active.ID); err != nil {
		t.Errorf("active account rejected: %v", err)
	}
}

func TestAdminSignIn(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.seedUser(model.User{Name: "Admin", Email: "admin@example.com", Role: model.Admin}, "secret1")
	f.seedUser(model.User{Name: "Eze", Email: "eze@example.com", Role: model.Supervisor, SupervisorID: "123456"}, "secret1")

	if _, err := f.auth.AdminSignIn(ctx, AdminSignInInput{Email: "admin@example.com", Password: "secret1"}); err != nil {
		t.Errorf("AdminSignIn: %v", err)
	}
	_, err := f.auth.AdminSignIn(ctx, AdminSignInInput{Email: "eze@example.com", Password: "secret1"})
	if !errors.Is(err, util.ErrNotAdmin) || err.Error() != "You do not have admin access" {
		t.Errorf("expected ErrNotAdmin, got %v", err)
	}
}

func TestSignOut_RevokesToken(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.seedUser(model.User{Name: "Eze", Email: "eze@example.com", Role: model.Supervisor, SupervisorID: "123456"}, "secret1")

	res, err := f.auth.SignIn(ctx, SignInInput{Role: model.Supervisor, Identifier: "123456", Password: "secret1"})
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	claims, _ := util.ParseJWT(res.Token, f.cfg.JWT.Secret)

	if err := f.auth.SignOut(ctx, claims); err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	if revoked, _ := f.auth.Tokens.IsRevoked(ctx, claims.ID); !revoked {
		t.Error("token should be revoked")
	}
}

func TestChangePassword(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	u := f.seedUser(model.User{Name: "Ada", Email: "ada@example.com", Role: model.Student}, "secret1")
	s := sessionOf(u)

	err := f.auth.ChangePassword(ctx, s, ChangePasswordInput{CurrentPassword: "nope", NewPassword: "newpass", ConfirmPassword: "newpass"})
	if !errors.Is(err, util.ErrWrongPassword) || err.Error() != "Current password is incorrect" {
		t.Errorf("expected ErrWrongPassword, got %v", err)
	}
	err = f.auth.ChangePassword(ctx, s, ChangePasswordInput{CurrentPassword: "secret1", NewPassword: "newpass", ConfirmPassword: "other"})
	if !errors.Is(err, util.ErrPasswordMismatch) {
		t.Errorf("expected ErrPasswordMismatch, got %v", err)
	}

	if err := f.auth.ChangePassword(ctx, s, ChangePasswordInput{CurrentPassword: "secret1", NewPassword: "newpass", ConfirmPassword: "newpass"}); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}
	if _, err := f.auth.SignIn(ctx, SignInInput{Role: model.Student, Identifier: "ada@example.com", Password: "newpass"}); err != nil {
		t.Errorf("sign-in with new password: %v", err)
	}
}

func TestDeleteAccount_ReleasesCode(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.seedCode("123456", model.CodeSupervisor)

	user, err := f.auth.SignUp(ctx, supervisorInput("eze@example.com", "123456"))
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}

	if err := f.auth.DeleteAccount(ctx, sessionOf(user), "wrong!"); !errors.Is(err, util.ErrWrongPassword) {
		t.Errorf("expected ErrWrongPassword, got %v", err)
	}
	if err := f.auth.DeleteAccount(ctx, sessionOf(user), "secret1"); err != nil {
		t.Fatalf("DeleteAccount: %v", err)
	}
	if f.code("123456").Used {
		t.Error("code must be available again")
	}

	// and can be used by someone else
	if _, err := f.auth.SignUp(ctx, supervisorInput("next@example.com", "123456")); err != nil {
		t.Errorf("re-use of released code: %v", err)
	}
}
