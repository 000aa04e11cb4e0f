// Package service contains the business logic layer: validation, permission
// rules, and orchestration between repositories and side effects. Services
// accept primitives and models, return domain errors from apperror, and know
// nothing about HTTP.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/xid"

	"github.com/studyweave/studyweave/internal/apperror"
	"github.com/studyweave/studyweave/internal/auth"
	"github.com/studyweave/studyweave/internal/model"
	"github.com/studyweave/studyweave/internal/repository"
)

const resetTokenTTL = time.Hour

// AuthService handles registration, login, guest sessions, email
// verification, password reset, and profile updates.
type AuthService struct {
	store   repository.Store
	tokens  *auth.TokenService
	emailer Emailer
	logger  *slog.Logger
}

func NewAuthService(store repository.Store, tokens *auth.TokenService, emailer Emailer, logger *slog.Logger) *AuthService {
	return &AuthService{store: store, tokens: tokens, emailer: emailer, logger: logger}
}

// Register creates an account and returns the user plus a signed access
// token. Only participant and researcher accounts self-register; admin is
// provisioned out of band and guests use Guest.
func (s *AuthService) Register(ctx context.Context, name, email, password string, role model.Role) (*model.User, string, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))

	if name == "" {
		return nil, "", apperror.ValidationFailed("name", "name is required")
	}
	if email == "" || !strings.Contains(email, "@") {
		return nil, "", apperror.ValidationFailed("email", "a valid email is required")
	}
	if role != model.RoleParticipant && role != model.RoleResearcher {
		return nil, "", apperror.ValidationFailed("role", "role must be participant or researcher")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, "", apperror.ValidationFailed("password", err.Error())
	}

	if _, err := s.store.Users().GetByEmail(ctx, email); err == nil {
		return nil, "", apperror.Conflict("user", email)
	}

	user := &model.User{
		ID:                xid.New().String(),
		Name:              name,
		Email:             email,
		PasswordHash:      hash,
		Role:              role,
		VerificationToken: uuid.NewString(),
	}
	if err := s.store.Users().Create(ctx, user); err != nil {
		return nil, "", fmt.Errorf("creating user: %w", err)
	}

	// Verification mail is best-effort: the account exists either way.
	s.sendMail(ctx, user.Email, "Verify your StudyWeave account",
		fmt.Sprintf("Hi %s,\n\nYour verification code is %s.\n", user.Name, user.VerificationToken))

	token, err := s.tokens.Generate(user.ID, user.Role)
	if err != nil {
		return nil, "", fmt.Errorf("issuing token: %w", err)
	}

	s.logger.Info("user registered", slog.String("id", user.ID), slog.String("role", string(user.Role)))
	return user, token, nil
}

// Login verifies credentials and issues an access token. Bad email and bad
// password return the same error so accounts can't be enumerated.
func (s *AuthService) Login(ctx context.Context, email, password string) (*model.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.store.Users().GetByEmail(ctx, email)
	if err != nil {
		return nil, "", apperror.Unauthorized("invalid email or password")
	}
	if user.PasswordHash == "" || auth.CheckPassword(user.PasswordHash, password) != nil {
		return nil, "", apperror.Unauthorized("invalid email or password")
	}

	token, err := s.tokens.Generate(user.ID, user.Role)
	if err != nil {
		return nil, "", fmt.Errorf("issuing token: %w", err)
	}
	return user, token, nil
}

// Guest creates a throwaway guest account and session. Guests are real rows
// so their submissions carry ordinary foreign keys; the generated address is
// not routable.
func (s *AuthService) Guest(ctx context.Context) (*model.User, string, error) {
	id := xid.New().String()
	user := &model.User{
		ID:    id,
		Name:  "Guest " + strings.ToUpper(id[len(id)-4:]),
		Email: fmt.Sprintf("guest-%s@guests.studyweave.invalid", id),
		Role:  model.RoleGuest,
	}
	if err := s.store.Users().Create(ctx, user); err != nil {
		return nil, "", fmt.Errorf("creating guest: %w", err)
	}
	token, err := s.tokens.Generate(user.ID, user.Role)
	if err != nil {
		return nil, "", fmt.Errorf("issuing token: %w", err)
	}
	return user, token, nil
}

// GitHubSignIn upserts a researcher account from a GitHub profile and issues
// a token. First sign-in creates the account pre-verified (GitHub already
// verified the email).
func (s *AuthService) GitHubSignIn(ctx context.Context, gh *auth.GitHubUser) (*model.User, string, error) {
	user, err := s.store.Users().GetByGitHubID(ctx, gh.ID)
	if err != nil {
		email := strings.ToLower(gh.Email)
		if email == "" {
			email = fmt.Sprintf("github-%d@users.noreply.github.com", gh.ID)
		}
		user = &model.User{
			ID:            xid.New().String(),
			Name:          gh.Login,
			Email:         email,
			Role:          model.RoleResearcher,
			AvatarURL:     gh.AvatarURL,
			GitHubID:      gh.ID,
			EmailVerified: true,
		}
		if err := s.store.Users().Create(ctx, user); err != nil {
			return nil, "", fmt.Errorf("creating github user: %w", err)
		}
	} else if user.AvatarURL != gh.AvatarURL {
		user.AvatarURL = gh.AvatarURL
		if err := s.store.Users().Update(ctx, user); err != nil {
			return nil, "", fmt.Errorf("updating github user: %w", err)
		}
	}

	token, err := s.tokens.Generate(user.ID, user.Role)
	if err != nil {
		return nil, "", fmt.Errorf("issuing token: %w", err)
	}
	return user, token, nil
}

// VerifyEmail marks the account matching the token as verified and clears
// the token.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) error {
	if token == "" {
		return apperror.ValidationFailed("token", "verification token is required")
	}
	user, err := s.store.Users().GetByVerificationToken(ctx, token)
	if err != nil {
		return apperror.NotFound("verification token", token)
	}
	user.EmailVerified = true
	user.VerificationToken = ""
	return s.store.Users().Update(ctx, user)
}

// RequestReset issues a reset token valid for one hour and mails it. An
// unknown email reports success anyway, so the endpoint can't be used to
// probe for accounts.
func (s *AuthService) RequestReset(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return apperror.ValidationFailed("email", "email is required")
	}
	user, err := s.store.Users().GetByEmail(ctx, email)
	if err != nil {
		return nil
	}

	expires := time.Now().Add(resetTokenTTL)
	user.ResetToken = uuid.NewString()
	user.ResetTokenExpiresAt = &expires
	if err := s.store.Users().Update(ctx, user); err != nil {
		return fmt.Errorf("storing reset token: %w", err)
	}

	s.sendMail(ctx, user.Email, "Reset your StudyWeave password",
		fmt.Sprintf("Hi %s,\n\nYour password reset code is %s. It expires in one hour.\n", user.Name, user.ResetToken))
	return nil
}

// ResetPassword sets a new password for the account holding a live reset
// token.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if token == "" {
		return apperror.ValidationFailed("token", "reset token is required")
	}
	user, err := s.store.Users().GetByResetToken(ctx, token)
	if err != nil {
		return apperror.NotFound("reset token", token)
	}
	if user.ResetTokenExpiresAt == nil || time.Now().After(*user.ResetTokenExpiresAt) {
		return apperror.ValidationFailed("token", "reset token has expired")
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return apperror.ValidationFailed("password", err.Error())
	}
	user.PasswordHash = hash
	user.ResetToken = ""
	user.ResetTokenExpiresAt = nil
	return s.store.Users().Update(ctx, user)
}

// Profile returns the caller's account.
func (s *AuthService) Profile(ctx context.Context, userID string) (*model.User, error) {
	return s.store.Users().GetByID(ctx, userID)
}

// UpdateProfile changes the mutable profile fields.
func (s *AuthService) UpdateProfile(ctx context.Context, userID, name, avatarURL string) (*model.User, error) {
	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if name = strings.TrimSpace(name); name != "" {
		user.Name = name
	}
	if avatarURL != "" {
		user.AvatarURL = avatarURL
	}
	if err := s.store.Users().Update(ctx, user); err != nil {
		return nil, fmt.Errorf("updating profile: %w", err)
	}
	return user, nil
}

// sendMail is the shared best-effort send: failures are logged and dropped,
// never returned.
func (s *AuthService) sendMail(ctx context.Context, to, subject, body string) {
	if err := s.emailer.Send(ctx, to, subject, body); err != nil {
		s.logger.Error("failed to send email",
			slog.String("to", to),
			slog.String("subject", subject),
			slog.String("error", err.Error()),
		)
	}
}
