package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"tp_portal_backend/internal/config"
	"tp_portal_backend/internal/model"
	"tp_portal_backend/internal/util"
	"tp_portal_backend/pkg/logger"
	"tp_portal_backend/pkg/monitoring"
	"tp_portal_backend/pkg/tracing"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AuthService struct {
	Users  UserStore
	Codes  *CodeService
	Tokens TokenStore
	Cfg    *config.Config
}

func NewAuthService(users UserStore, codes *CodeService, tokens TokenStore, cfg *config.Config) *AuthService {
	return &AuthService{
		Users:  users,
		Codes:  codes,
		Tokens: tokens,
		Cfg:    cfg,
	}
}

// swagger:model SignUpInput
type SignUpInput struct {
	Role            model.UserRole `json:"role" validate:"required,oneof=student supervisor coordinator"`
	Name            string         `json:"name" validate:"notblank,max=100"`
	Email           string         `json:"email" validate:"required,email,max=100"`
	Password        string         `json:"password" validate:"required"`
	ConfirmPassword string         `json:"confirmPassword" validate:"required"`

	// student only
	RegNumber  string `json:"regNumber"`
	Department string `json:"department" validate:"max=150"`

	// the student's supervisor, or the supervisor's own ID
	SupervisorID  string `json:"supervisorId"`
	CoordinatorID string `json:"coordinatorId"`
}

// swagger:model AuthResult
type AuthResult struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	User      *model.User `json:"user"`
}

// SignUp runs the onboarding checks for the selected role and creates the
// account. Supervisor and coordinator codes are consumed in the same
// transaction as the account row.
func (s *AuthService) SignUp(ctx context.Context, in SignUpInput) (*model.User, error) {
	ctx, span := tracing.StartSpan(ctx, "AuthService.SignUp")
	defer span.End()

	user, err := s.signUp(ctx, in)
	result := "ok"
	if err != nil {
		result = "rejected"
		if util.StatusOf(err) == 0 {
			result = "error"
		}
	}
	monitoring.SignupCounter.WithLabelValues(string(in.Role), result).Inc()
	return user, err
}

func (s *AuthService) signUp(ctx context.Context, in SignUpInput) (*model.User, error) {
	if err := util.ValidateStruct(in); err != nil {
		return nil, err
	}
	if in.Password != in.ConfirmPassword {
		return nil, util.ErrPasswordMismatch
	}
	if len(in.Password) < util.MinPasswordLength {
		return nil, util.ErrPasswordTooShort
	}

	user := &model.User{
		Name:  strings.TrimSpace(in.Name),
		Email: normalizeEmail(in.Email),
		Role:  in.Role,
	}

	var code string
	switch in.Role {
	case model.Student:
		if err := s.checkStudent(ctx, in, user); err != nil {
			return nil, err
		}
	case model.Supervisor, model.Coordinator:
		c, err := s.checkCode(ctx, in)
		if err != nil {
			return nil, err
		}
		code = c
		if in.Role == model.Supervisor {
			user.SupervisorID = c
		} else {
			user.CoordinatorID = c
		}
	}

	if _, err := s.Users.FindByEmail(ctx, user.Email); err == nil {
		return nil, util.ErrEmailRegistered
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user.Password = string(hashed)

	if err := s.Users.CreateWithCode(ctx, user, code); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, util.ErrEmailRegistered
		}
		return nil, err
	}

	logger.Log.Info("Account created",
		zap.Uint("userId", user.ID),
		zap.String("role", string(user.Role)),
	)
	return user, nil
}

// checkStudent validates the registration number and the referenced
// supervisor code. The supervisor code is looked up for existence only.
func (s *AuthService) checkStudent(ctx context.Context, in SignUpInput, user *model.User) error {
	regNumber, err := util.NormalizeRegNumber(s.Cfg.Onboarding.RegNumberPrefix, in.RegNumber)
	if err != nil {
		return util.ErrRegNumberNotAuthorized
	}

	allowed, err := s.Codes.AllowRegistration(ctx, regNumber)
	if err != nil {
		return err
	}
	if !allowed {
		return util.ErrRegNumberNotAuthorized
	}

	if _, err := s.Users.FindByRoleIdentifier(ctx, model.Student, regNumber); err == nil {
		return util.ErrRegNumberTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	supervisorID := strings.TrimSpace(in.SupervisorID)
	if _, err := s.Codes.Validate(ctx, supervisorID, model.CodeSupervisor); err != nil {
		if errors.Is(err, util.ErrCodeNotFound) {
			return util.ErrInvalidSupervisorID
		}
		return err
	}

	user.StudentRegNumber = regNumber
	user.SupervisorID = supervisorID
	user.Department = strings.TrimSpace(in.Department)
	return nil
}

// checkCode validates a supervisor or coordinator's own code and returns it.
func (s *AuthService) checkCode(ctx context.Context, in SignUpInput) (string, error) {
	codeType, _ := model.CodeTypeForRole(in.Role)

	code := strings.TrimSpace(in.SupervisorID)
	if in.Role == model.Coordinator {
		code = strings.TrimSpace(in.CoordinatorID)
	}
	if len(code) != codeType.Length() || !util.IsDigits(code) {
		return "", util.CodeLengthError(codeType)
	}

	ac, err := s.Codes.Validate(ctx, code, codeType)
	if err != nil {
		if errors.Is(err, util.ErrCodeNotFound) {
			return "", util.ErrCodeNotAuthorized
		}
		return "", err
	}
	if ac.Used {
		return "", util.ErrCodeAlreadyUsed
	}
	return code, nil
}

// swagger:model SignInInput
type SignInInput struct {
	Role model.UserRole `json:"role" validate:"required,oneof=student supervisor coordinator"`
	// registration number, supervisor ID, coordinator ID or email
	Identifier string `json:"identifier" validate:"notblank"`
	Password   string `json:"password" validate:"required"`
}

// SignIn resolves the account from the identifier of the selected role and
// issues a session token.
func (s *AuthService) SignIn(ctx context.Context, in SignInInput) (*AuthResult, error) {
	ctx, span := tracing.StartSpan(ctx, "AuthService.SignIn")
	defer span.End()

	if err := util.ValidateStruct(in); err != nil {
		return nil, err
	}

	user, err := s.resolveLogin(ctx, in.Role, strings.TrimSpace(in.Identifier))
	if err != nil {
		return nil, err
	}
	if !checkPassword(user, in.Password) {
		return nil, util.ErrInvalidCredentials
	}
	if user.Role != in.Role {
		return nil, util.WithDetail(util.ErrRoleMismatch,
			fmt.Sprintf("Invalid role for this account. Expected: %s, Found: %s", in.Role, user.Role))
	}

	return s.startSession(ctx, user)
}

func (s *AuthService) resolveLogin(ctx context.Context, role model.UserRole, identifier string) (*model.User, error) {
	var (
		user *model.User
		err  error
	)
	switch {
	case strings.Contains(identifier, "@"):
		user, err = s.Users.FindByEmail(ctx, normalizeEmail(identifier))
	case role == model.Student:
		regNumber, nerr := util.NormalizeRegNumber(s.Cfg.Onboarding.RegNumberPrefix, identifier)
		if nerr != nil {
			return nil, util.WithDetail(util.ErrUserNotFound, "No student account found with this registration number")
		}
		user, err = s.Users.FindByRoleIdentifier(ctx, role, regNumber)
	default:
		user, err = s.Users.FindByRoleIdentifier(ctx, role, identifier)
	}

	if err == nil {
		return user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	switch {
	case strings.Contains(identifier, "@"):
		return nil, util.ErrInvalidCredentials
	case role == model.Student:
		return nil, util.WithDetail(util.ErrUserNotFound, "No student account found with this registration number")
	}
	return nil, util.WithDetail(util.ErrUserNotFound, fmt.Sprintf("No %s account found with this ID", role))
}

// swagger:model AdminSignInInput
type AdminSignInInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (s *AuthService) AdminSignIn(ctx context.Context, in AdminSignInInput) (*AuthResult, error) {
	if err := util.ValidateStruct(in); err != nil {
		return nil, err
	}

	user, err := s.Users.FindByEmail(ctx, normalizeEmail(in.Email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrInvalidCredentials
		}
		return nil, err
	}
	if !checkPassword(user, in.Password) {
		return nil, util.ErrInvalidCredentials
	}
	if user.Role != model.Admin {
		return nil, util.ErrNotAdmin
	}
	return s.startSession(ctx, user)
}

func (s *AuthService) startSession(ctx context.Context, user *model.User) (*AuthResult, error) {
	if user.Suspended {
		return nil, util.ErrAccountSuspended
	}

	token, claims, err := util.GenerateJWT(user, s.Cfg.JWT.Secret, s.Cfg.JWT.ExpireTime)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user.LastLoginAt = &now
	if err := s.Users.UpdateColumns(ctx, user, "last_login_at"); err != nil {
		// the session is still valid without the timestamp
		logger.Log.Warn("Failed to record login time", zap.Uint("userId", user.ID), zap.Error(err))
	}

	return &AuthResult{
		Token:     token,
		ExpiresAt: claims.ExpiresAt.Time,
		User:      user,
	}, nil
}

// SignOut revokes the token until it would have expired anyway.
func (s *AuthService) SignOut(ctx context.Context, claims *util.Claims) error {
	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl <= 0 {
		return nil
	}
	return s.Tokens.Revoke(ctx, claims.ID, ttl)
}

// ValidateSession accepts the claims of a signed-in request unless the token
// was signed out or its account has since been suspended.
func (s *AuthService) ValidateSession(ctx context.Context, claims *util.Claims) error {
	revoked, err := s.Tokens.IsRevoked(ctx, claims.ID)
	if err != nil {
		return err
	}
	if revoked {
		return util.ErrSessionRevoked
	}
	return s.CheckAccount(ctx, claims.UserID)
}

// CheckAccount fails with util.ErrAccountSuspended while userID is suspended.
func (s *AuthService) CheckAccount(ctx context.Context, userID uint) error {
	suspended, err := s.Tokens.IsSuspended(ctx, userID)
	if err != nil {
		return err
	}
	if suspended {
		return util.ErrAccountSuspended
	}
	return nil
}

// SyncSuspensions copies the suspended accounts from the database into the
// token store. It runs at startup, when the token store may be empty.
func (s *AuthService) SyncSuspensions(ctx context.Context) (int, error) {
	users, err := s.Users.ListSuspended(ctx)
	if err != nil {
		return 0, err
	}
	for _, u := range users {
		if err := s.Tokens.SetSuspended(ctx, u.ID, true); err != nil {
			return 0, err
		}
	}
	return len(users), nil
}

func (s *AuthService) CurrentUser(ctx context.Context, session model.Session) (*model.User, error) {
	return s.findUser(ctx, session.UserID)
}

// swagger:model ChangePasswordInput
type ChangePasswordInput struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required"`
	ConfirmPassword string `json:"confirmPassword" validate:"required"`
}

func (s *AuthService) ChangePassword(ctx context.Context, session model.Session, in ChangePasswordInput) error {
	if err := util.ValidateStruct(in); err != nil {
		return err
	}
	if in.NewPassword != in.ConfirmPassword {
		return util.ErrPasswordMismatch
	}
	if len(in.NewPassword) < util.MinPasswordLength {
		return util.ErrPasswordTooShort
	}

	user, err := s.findUser(ctx, session.UserID)
	if err != nil {
		return err
	}
	if !checkPassword(user, in.CurrentPassword) {
		return util.ErrWrongPassword
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	user.Password = string(hashed)
	return s.Users.UpdateColumns(ctx, user, "password")
}

// DeleteAccount removes the caller's own account after re-checking the
// password. Held codes are released the same way an admin deletion does.
func (s *AuthService) DeleteAccount(ctx context.Context, session model.Session, password string) error {
	user, err := s.findUser(ctx, session.UserID)
	if err != nil {
		return err
	}
	if !checkPassword(user, password) {
		return util.ErrWrongPassword
	}

	if err := s.Users.DeleteWithCleanup(ctx, user); err != nil {
		return err
	}
	logger.Log.Info("Account deleted by owner", zap.Uint("userId", user.ID))
	return nil
}

func (s *AuthService) findUser(ctx context.Context, id uint) (*model.User, error) {
	user, err := s.Users.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundAs(err, util.ErrUserNotFound)
	}
	return user, nil
}

func checkPassword(user *model.User, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) == nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
