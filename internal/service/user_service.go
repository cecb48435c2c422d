package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"
	"tp_portal_backend/internal/model"
	"tp_portal_backend/internal/repository"
	"tp_portal_backend/internal/util"
	"tp_portal_backend/pkg/logger"

	"go.uber.org/zap"
)

// UserService holds admin user management and the caller's own profile.
type UserService struct {
	Users   UserStore
	Storage *StorageService
	Tokens  TokenStore

	// Sessions is optional; without it a suspended user's open streams end
	// at their next account check.
	Sessions SessionCloser
}

func NewUserService(users UserStore, storage *StorageService, tokens TokenStore) *UserService {
	return &UserService{Users: users, Storage: storage, Tokens: tokens}
}

func (s *UserService) disconnect(userID uint) {
	if s.Sessions == nil {
		return
	}
	if n := s.Sessions.Disconnect(userID); n > 0 {
		logger.Log.Info("Closed live connections", zap.Uint("userId", userID), zap.Int("connections", n))
	}
}

func (s *UserService) ListUsers(ctx context.Context, filter repository.UserFilter, page, pageSize int) ([]model.User, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	if filter.Role != "" && !filter.Role.Valid() {
		return nil, 0, util.WithDetail(util.ErrValidation, "unknown role: "+string(filter.Role))
	}
	return s.Users.List(ctx, filter, page, pageSize)
}

// DeleteUser removes an account and frees what it held: a supervisor or
// coordinator code becomes available again, a student's registration number
// leaves the allow-list.
func (s *UserService) DeleteUser(ctx context.Context, id uint) error {
	user, err := s.Users.FindByID(ctx, id)
	if err != nil {
		return notFoundAs(err, util.ErrUserNotFound)
	}
	if user.Role == model.Admin {
		return util.ErrPermissionDenied
	}

	if err := s.Users.DeleteWithCleanup(ctx, user); err != nil {
		return err
	}
	s.disconnect(user.ID)
	if user.Suspended {
		if err := s.Tokens.SetSuspended(ctx, user.ID, false); err != nil {
			logger.Log.Warn("Failed to clear suspension of deleted user", zap.Uint("userId", user.ID), zap.Error(err))
		}
	}
	logger.Log.Info("User deleted",
		zap.Uint("userId", user.ID),
		zap.String("role", string(user.Role)),
	)
	return nil
}

// ToggleSuspend suspends an active account or reactivates a suspended one.
// A suspension takes effect on the account's existing tokens and closes its
// live connections.
func (s *UserService) ToggleSuspend(ctx context.Context, id uint) (*model.User, error) {
	user, err := s.Users.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundAs(err, util.ErrUserNotFound)
	}
	if user.Role == model.Admin {
		return nil, util.ErrPermissionDenied
	}

	wasSuspended := user.Suspended
	if wasSuspended {
		user.Suspended = false
		user.SuspendedAt = nil
	} else {
		now := time.Now()
		user.Suspended = true
		user.SuspendedAt = &now
	}

	// a stored suspension is always enforced: token store first, then the row
	if err := s.Tokens.SetSuspended(ctx, user.ID, user.Suspended); err != nil {
		return nil, err
	}
	if err := s.Users.UpdateColumns(ctx, user, "suspended", "suspended_at"); err != nil {
		if rerr := s.Tokens.SetSuspended(ctx, user.ID, wasSuspended); rerr != nil {
			logger.Log.Error("Failed to restore suspension state", zap.Uint("userId", user.ID), zap.Error(rerr))
		}
		return nil, err
	}

	if user.Suspended {
		s.disconnect(user.ID)
	}
	logger.Log.Info("User suspension changed",
		zap.Uint("userId", user.ID),
		zap.Bool("suspended", user.Suspended),
	)
	return user, nil
}

func (s *UserService) UpdateName(ctx context.Context, session model.Session, name string) (*model.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, util.ErrNameRequired
	}

	user, err := s.Users.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, notFoundAs(err, util.ErrUserNotFound)
	}
	user.Name = name
	if err := s.Users.UpdateColumns(ctx, user, "name"); err != nil {
		return nil, err
	}
	return user, nil
}

// PhotoKey is the storage key of a profile photo uploaded at t.
func PhotoKey(userID uint, t time.Time, ext string) string {
	return fmt.Sprintf("%s/%d_%d%s", util.ProfilePhotoDir, userID, t.UnixMilli(), ext)
}

// UploadPhoto checks the file is an image of at most 5MB by its content, not
// its name, and stores it as the caller's profile photo.
func (s *UserService) UploadPhoto(ctx context.Context, session model.Session, file io.ReadSeeker, size int64) (*model.User, error) {
	if size > util.MaxPhotoSize {
		return nil, util.ErrFileTooLarge
	}

	mimeType, err := util.ValidateMimeType(file, []string{util.MimeImage})
	if err != nil {
		return nil, util.ErrNotAnImage
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	user, err := s.Users.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, notFoundAs(err, util.ErrUserNotFound)
	}

	key := PhotoKey(user.ID, time.Now(), util.ExtensionForImage(mimeType))
	url, err := s.Storage.Upload(ctx, key, file, size, mimeType)
	if err != nil {
		return nil, err
	}

	user.PhotoURL = url
	if err := s.Users.UpdateColumns(ctx, user, "photo_url"); err != nil {
		return nil, err
	}
	return user, nil
}
