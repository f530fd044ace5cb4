package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/kehila/community-auth/internal/apperror"
	"github.com/kehila/community-auth/internal/database"
	"github.com/kehila/community-auth/internal/model"
	"github.com/kehila/community-auth/internal/repository"
)

// AdminService holds the administrator operations on user accounts.
type AdminService struct {
	db     *sql.DB
	users  *repository.UserRepo
	logger *slog.Logger
}

// NewAdminService creates an admin service.
func NewAdminService(db *sql.DB, users *repository.UserRepo, logger *slog.Logger) *AdminService {
	return &AdminService{db: db, users: users, logger: logger}
}

// Activity returns a user together with the campaigns they joined.
func (s *AdminService) Activity(ctx context.Context, userID string) (model.UserActivity, error) {
	a, err := s.users.GetActivity(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.UserActivity{}, apperror.NotFound(msgUserNotFound)
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "load user activity failed", slog.String("error", err.Error()))
		return model.UserActivity{}, apperror.Internal(err)
	}
	return a, nil
}

// ToggleActivation flips the active flag of every listed user atomically
// and returns the number of accounts changed.
func (s *AdminService) ToggleActivation(ctx context.Context, userIDs []string) (int64, error) {
	if len(userIDs) == 0 {
		return 0, apperror.Validation("Invalid user IDs array")
	}
	for _, id := range userIDs {
		if blank(id) {
			return 0, apperror.Validation("Invalid user IDs array")
		}
	}

	var n int64
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		n, err = s.users.ToggleActiveTx(ctx, tx, userIDs)
		if err != nil {
			return err
		}
		if n == 0 {
			return repository.ErrNotFound
		}
		return nil
	})
	if errors.Is(err, repository.ErrNotFound) {
		return 0, apperror.NotFound("No matching users")
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "toggle activation failed", slog.String("error", err.Error()))
		return 0, apperror.Internal(err)
	}
	s.logger.InfoContext(ctx, "users toggled", slog.Int64("count", n))
	return n, nil
}
