// Package service holds the account, authentication and payment use cases.
// Services return *apperror.AppError values for every outcome a client may
// see; anything else is an internal failure.
package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/kehila/community-auth/internal/apperror"
	"github.com/kehila/community-auth/internal/database"
	"github.com/kehila/community-auth/internal/metrics"
	"github.com/kehila/community-auth/internal/model"
	"github.com/kehila/community-auth/internal/queue"
	"github.com/kehila/community-auth/internal/repository"
	"github.com/kehila/community-auth/internal/utils"
)

// Client-facing messages.
const (
	msgMissingFields   = "Missing required fields"
	msgMissingCreds    = "Missing credentials"
	msgEmailExists     = "Email already exists"
	msgInvalidCreds    = "Invalid credentials"
	msgRefreshRequired = "Refresh token required"
	msgInvalidRefresh  = "Invalid or expired refresh token"
	msgUserNotFound    = "User not found"
	msgEmailRequired   = "Email is required"
	msgEmailNotFound   = "Email not found"
	msgNewPassRequired = "New password is required"
	msgInvalidReset    = "Invalid or expired reset token"
	msgContactRequired = "Phone and address are required"
	msgPasswordTooLong = "Password must be at most 72 bytes"
)

// EventPublisher hands notification events to the broker.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.Event) error
}

// AuthService implements registration, login, token rotation and password
// changes.
type AuthService struct {
	db       *sql.DB
	users    *repository.UserRepo
	tokens   *repository.TokenRepo
	resets   *repository.ResetTokenRepo
	grants   *PermissionResolver
	hasher   utils.PasswordHasher
	issuer   *utils.TokenIssuer
	events   EventPublisher
	resetTTL time.Duration
	logger   *slog.Logger
}

// NewAuthService creates an auth service.  events may be nil, in which case
// no notifications are sent.
func NewAuthService(
	db *sql.DB,
	users *repository.UserRepo,
	tokens *repository.TokenRepo,
	resets *repository.ResetTokenRepo,
	grants *PermissionResolver,
	hasher utils.PasswordHasher,
	issuer *utils.TokenIssuer,
	events EventPublisher,
	resetTTL time.Duration,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		db:       db,
		users:    users,
		tokens:   tokens,
		resets:   resets,
		grants:   grants,
		hasher:   hasher,
		issuer:   issuer,
		events:   events,
		resetTTL: resetTTL,
		logger:   logger,
	}
}

// RegisterInput holds the parameters for registering a new user.
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	Phone     string
	Address   string
}

// TokenPair is an access token together with its refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	Tokens           TokenPair
	User             model.Profile
	AllowedResources []model.Grant
}

// Register creates a user with the default role and returns its id.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (string, error) {
	if blank(in.FirstName) || blank(in.LastName) || blank(in.Email) || in.Password == "" {
		return "", apperror.Validation(msgMissingFields)
	}
	if err := checkPasswordLength(in.Password); err != nil {
		return "", err
	}

	exists, err := s.users.EmailExists(ctx, in.Email)
	if err != nil {
		return "", s.internal(ctx, "check email", err)
	}
	if exists {
		return "", apperror.Conflict(msgEmailExists)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return "", s.internal(ctx, "hash password", err)
	}

	var id string
	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		id, err = s.users.CreateTx(ctx, tx, model.NewUser{
			FirstName:    in.FirstName,
			LastName:     in.LastName,
			Email:        in.Email,
			PasswordHash: hash,
			Phone:        in.Phone,
			Address:      in.Address,
		}, s.issuer.Now().UTC())
		return err
	})
	if errors.Is(err, repository.ErrEmailExists) {
		return "", apperror.Conflict(msgEmailExists)
	}
	if err != nil {
		return "", s.internal(ctx, "create user", err)
	}

	s.publish(ctx, queue.Event{
		Type:      queue.EventUserRegistered,
		UserID:    id,
		Email:     strings.ToLower(strings.TrimSpace(in.Email)),
		FirstName: strings.TrimSpace(in.FirstName),
	})
	s.logger.InfoContext(ctx, "user registered", slog.String("user_id", id))
	return id, nil
}

// Login verifies credentials and issues a token pair.  Unknown email, wrong
// password and deactivated accounts share one message.
func (s *AuthService) Login(ctx context.Context, email, password string) (LoginResult, error) {
	if blank(email) || password == "" {
		return LoginResult{}, apperror.Validation(msgMissingCreds)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		metrics.LoginTotal.WithLabelValues(metrics.OutcomeFailure).Inc()
		return LoginResult{}, apperror.Unauthenticated(msgInvalidCreds)
	}
	if err != nil {
		metrics.LoginTotal.WithLabelValues(metrics.OutcomeError).Inc()
		return LoginResult{}, s.internal(ctx, "load user", err)
	}
	if !s.hasher.Verify(password, user.PasswordHash) || !user.Active {
		metrics.LoginTotal.WithLabelValues(metrics.OutcomeFailure).Inc()
		return LoginResult{}, apperror.Unauthenticated(msgInvalidCreds)
	}

	grants, err := s.grants.AllowedResources(ctx, user.RoleID)
	if err != nil {
		metrics.LoginTotal.WithLabelValues(metrics.OutcomeError).Inc()
		return LoginResult{}, s.internal(ctx, "resolve grants", err)
	}
	// No refresh token is stored until the profile has loaded.
	profile, err := s.users.GetProfile(ctx, user.ID)
	if err != nil {
		metrics.LoginTotal.WithLabelValues(metrics.OutcomeError).Inc()
		return LoginResult{}, s.internal(ctx, "load profile", err)
	}

	access, err := s.issuer.IssueAccessToken(claimsFor(user, grants))
	if err != nil {
		metrics.LoginTotal.WithLabelValues(metrics.OutcomeError).Inc()
		return LoginResult{}, s.internal(ctx, "sign access token", err)
	}
	refresh, err := s.issuer.IssueRefreshToken()
	if err != nil {
		metrics.LoginTotal.WithLabelValues(metrics.OutcomeError).Inc()
		return LoginResult{}, s.internal(ctx, "issue refresh token", err)
	}
	if err := s.tokens.StoreRefresh(ctx, user.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		metrics.LoginTotal.WithLabelValues(metrics.OutcomeError).Inc()
		return LoginResult{}, s.internal(ctx, "store refresh token", err)
	}

	metrics.LoginTotal.WithLabelValues(metrics.OutcomeSuccess).Inc()
	s.logger.InfoContext(ctx, "user logged in", slog.String("user_id", user.ID))
	return LoginResult{
		Tokens: TokenPair{
			AccessToken:  access.Token,
			RefreshToken: refresh.Raw,
			ExpiresAt:    access.Exp,
		},
		User:             profile,
		AllowedResources: grants.List(),
	}, nil
}

// Refresh rotates rawRefresh and returns a new pair.  The old token is
// revoked and the new one stored in the same transaction, and the access
// token is signed before commit, so a failure anywhere leaves the old token
// usable and no new one behind.
func (s *AuthService) Refresh(ctx context.Context, rawRefresh string) (TokenPair, error) {
	if blank(rawRefresh) {
		return TokenPair{}, apperror.Validation(msgRefreshRequired)
	}

	next, err := s.issuer.IssueRefreshToken()
	if err != nil {
		return TokenPair{}, s.internal(ctx, "issue refresh token", err)
	}

	var access utils.AccessToken
	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		userID, err := s.tokens.RotateTx(ctx, tx,
			utils.HashRefreshRaw(rawRefresh), utils.HashRefreshRaw(next.Raw), next.Exp, s.issuer.Now())
		if err != nil {
			return err
		}
		user, err := s.users.GetByIDTx(ctx, tx, userID)
		if err != nil {
			return err
		}
		if !user.Active {
			return repository.ErrInvalidRefresh
		}
		grants, err := s.grants.AllowedResourcesTx(ctx, tx, user.RoleID)
		if err != nil {
			return err
		}
		access, err = s.issuer.IssueAccessToken(claimsFor(user, grants))
		return err
	})
	switch {
	case errors.Is(err, repository.ErrInvalidRefresh), errors.Is(err, repository.ErrNotFound):
		metrics.RefreshTotal.WithLabelValues(metrics.OutcomeRejected).Inc()
		return TokenPair{}, apperror.Unauthenticated(msgInvalidRefresh)
	case err != nil:
		metrics.RefreshTotal.WithLabelValues(metrics.OutcomeError).Inc()
		return TokenPair{}, s.internal(ctx, "rotate refresh token", err)
	}

	metrics.RefreshTotal.WithLabelValues(metrics.OutcomeSuccess).Inc()
	return TokenPair{AccessToken: access.Token, RefreshToken: next.Raw, ExpiresAt: access.Exp}, nil
}

// Logout revokes rawRefresh when given, otherwise every refresh token of
// userID.  Repeating a logout is harmless.
func (s *AuthService) Logout(ctx context.Context, userID, rawRefresh string) error {
	var err error
	if blank(rawRefresh) {
		err = s.tokens.RevokeAllForUser(ctx, userID)
	} else {
		err = s.tokens.RevokeByHash(ctx, userID, utils.HashRefreshRaw(rawRefresh))
	}
	if err != nil {
		return s.internal(ctx, "revoke refresh token", err)
	}
	s.logger.InfoContext(ctx, "user logged out", slog.String("user_id", userID))
	return nil
}

// Profile returns the display profile of userID.
func (s *AuthService) Profile(ctx context.Context, userID string) (model.Profile, error) {
	p, err := s.users.GetProfile(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Profile{}, apperror.NotFound(msgUserNotFound)
	}
	if err != nil {
		return model.Profile{}, s.internal(ctx, "load profile", err)
	}
	return p, nil
}

// UpdateContact sets the phone and address of userID.  Both are required.
func (s *AuthService) UpdateContact(ctx context.Context, userID, phone, address string) error {
	if blank(phone) || blank(address) {
		return apperror.Validation(msgContactRequired)
	}
	err := s.users.UpdateContact(ctx, userID, strings.TrimSpace(phone), strings.TrimSpace(address))
	if errors.Is(err, repository.ErrNotFound) {
		return apperror.NotFound(msgUserNotFound)
	}
	if err != nil {
		return s.internal(ctx, "update contact", err)
	}
	return nil
}

// RequestPasswordReset stores a single-use reset token for email and hands
// the raw token to the mailer through the broker.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	if blank(email) {
		return apperror.Validation(msgEmailRequired)
	}
	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return apperror.NotFound(msgEmailNotFound)
	}
	if err != nil {
		return s.internal(ctx, "load user", err)
	}

	raw, err := utils.RandomHex(32)
	if err != nil {
		return s.internal(ctx, "generate reset token", err)
	}
	exp := s.issuer.Now().Add(s.resetTTL)
	if err := s.resets.Store(ctx, user.ID, utils.HashRefreshRaw(raw), exp); err != nil {
		return s.internal(ctx, "store reset token", err)
	}

	s.publish(ctx, queue.Event{
		Type:       queue.EventPasswordResetRequested,
		UserID:     user.ID,
		Email:      user.Email,
		ResetToken: raw,
		ExpiresAt:  exp,
	})
	s.logger.InfoContext(ctx, "password reset requested", slog.String("user_id", user.ID))
	return nil
}

// ResetPassword changes the password of an authenticated user and ends all
// of their sessions.
func (s *AuthService) ResetPassword(ctx context.Context, userID, newPassword string) error {
	if newPassword == "" {
		return apperror.Validation(msgNewPassRequired)
	}
	if err := checkPasswordLength(newPassword); err != nil {
		return err
	}
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return s.internal(ctx, "hash password", err)
	}

	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := s.users.UpdatePasswordTx(ctx, tx, userID, hash); err != nil {
			return err
		}
		return s.tokens.RevokeAllForUserTx(ctx, tx, userID)
	})
	if errors.Is(err, repository.ErrNotFound) {
		return apperror.NotFound(msgUserNotFound)
	}
	if err != nil {
		return s.internal(ctx, "update password", err)
	}
	s.logger.InfoContext(ctx, "password updated", slog.String("user_id", userID))
	return nil
}

// ConfirmPasswordReset redeems a reset token and sets the new password.  The
// token is consumed in the same transaction as the password update.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, rawToken, newPassword string) error {
	if blank(rawToken) {
		return apperror.Validation(msgMissingFields)
	}
	if newPassword == "" {
		return apperror.Validation(msgNewPassRequired)
	}
	if err := checkPasswordLength(newPassword); err != nil {
		return err
	}
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return s.internal(ctx, "hash password", err)
	}

	var userID string
	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		userID, err = s.resets.ConsumeTx(ctx, tx, utils.HashRefreshRaw(rawToken), s.issuer.Now())
		if err != nil {
			return err
		}
		if err := s.users.UpdatePasswordTx(ctx, tx, userID, hash); err != nil {
			return err
		}
		return s.tokens.RevokeAllForUserTx(ctx, tx, userID)
	})
	if errors.Is(err, repository.ErrInvalidReset) || errors.Is(err, repository.ErrNotFound) {
		return apperror.Unauthenticated(msgInvalidReset)
	}
	if err != nil {
		return s.internal(ctx, "confirm password reset", err)
	}
	s.logger.InfoContext(ctx, "password reset confirmed", slog.String("user_id", userID))
	return nil
}

func (s *AuthService) publish(ctx context.Context, ev queue.Event) {
	if s.events == nil {
		return
	}
	ev.OccurredAt = s.issuer.Now().UTC()
	if err := s.events.Publish(ctx, ev); err != nil {
		metrics.NotificationsPublished.WithLabelValues(ev.Type, metrics.OutcomeFailure).Inc()
		s.logger.ErrorContext(ctx, "failed to publish notification",
			slog.String("event", ev.Type),
			slog.String("user_id", ev.UserID),
			slog.String("error", err.Error()),
		)
		return
	}
	metrics.NotificationsPublished.WithLabelValues(ev.Type, metrics.OutcomeSuccess).Inc()
}

func (s *AuthService) internal(ctx context.Context, op string, err error) error {
	s.logger.ErrorContext(ctx, op+" failed", slog.String("error", err.Error()))
	return apperror.Internal(err)
}

func claimsFor(u model.User, grants model.GrantSet) utils.Claims {
	return utils.Claims{
		UserID:           u.ID,
		Email:            u.Email,
		RoleID:           u.RoleID,
		AllowedResources: grants.List(),
	}
}

// checkPasswordLength rejects passwords bcrypt cannot hash.  The limit is
// in bytes.
func checkPasswordLength(p string) error {
	if len(p) > utils.MaxPasswordBytes {
		return apperror.Validation(msgPasswordTooLong)
	}
	return nil
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }
