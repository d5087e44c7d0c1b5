package application

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/crmgate/crmgate/internal/domain/entity"
	"github.com/crmgate/crmgate/internal/domain/repository"
	"github.com/crmgate/crmgate/internal/queue"
	"github.com/crmgate/crmgate/pkg/helpers"
)

// Sentinel errors for auth flows. Handlers map these onto HTTP statuses; the
// wording mirrors what clients ultimately see so failures stay uniform and
// reveal nothing about which step rejected the request.
var (
	ErrEmailTaken          = errors.New("email already registered")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrAccountDisabled     = errors.New("user account is disabled")
	ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")
	ErrUserNotFound        = errors.New("user not found")
)

// TokenPair is an access/refresh token pair issued to a client.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// RegisterInput carries the fields accepted at registration.
type RegisterInput struct {
	Email    string
	Password string
	Phone    string
	Name     string
	Surname  string
}

// Publisher is the slice of the queue client the auth service needs.
type Publisher interface {
	PublishJSON(ctx context.Context, body any) error
}

// AuthService implements register, login, refresh and logout. It enforces
// the single-active-refresh-token-per-user policy: every successful login or
// refresh replaces the user's token rows wholesale.
type AuthService struct {
	users     repository.UserRepository
	tokens    repository.TokenRepository
	jwt       *helpers.JWTManager
	publisher Publisher // optional
	logger    *logrus.Logger
}

func NewAuthService(users repository.UserRepository, tokens repository.TokenRepository, jwt *helpers.JWTManager, publisher Publisher, logger *logrus.Logger) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		jwt:       jwt,
		publisher: publisher,
		logger:    logger,
	}
}

// Register creates a new active user with the default role, issues a token
// pair and queues the CRM-sync job. Nothing is persisted when the email is
// already taken or hashing fails.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*entity.User, *TokenPair, error) {
	if _, err := s.users.GetByEmail(ctx, in.Email); err == nil {
		return nil, nil, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, nil, err
	}

	hash, err := helpers.HashPassword(in.Password)
	if err != nil {
		return nil, nil, err
	}

	user := &entity.User{
		Email:        in.Email,
		PasswordHash: hash,
		Phone:        in.Phone,
		Name:         in.Name,
		Surname:      in.Surname,
		Role:         entity.RoleUser,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, nil, err
	}

	pair, err := s.issuePair(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	s.enqueueSync(user)
	return user, pair, nil
}

// Login verifies credentials and rotates the user's refresh token. Unknown
// email and wrong password are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (*entity.User, *TokenPair, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}
	if !helpers.VerifyPassword(user.PasswordHash, password) {
		return nil, nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, nil, ErrAccountDisabled
	}

	pair, err := s.issuePair(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// Refresh exchanges a valid refresh token for a fresh pair. The store is the
// authority: a token that passes signature verification but has no active
// row (revoked, expired, or replaced by a newer login) is rejected, so a
// stolen token dies the moment its owner logs in again.
func (s *AuthService) Refresh(ctx context.Context, rawToken string) (*TokenPair, error) {
	if _, err := s.jwt.ParseRefreshToken(rawToken); err != nil {
		return nil, ErrInvalidRefreshToken
	}

	stored, err := s.tokens.FindActive(ctx, rawToken)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, err
	}
	if !stored.User.IsActive {
		return nil, ErrAccountDisabled
	}

	// Revoke the presented token first so a concurrent replay loses the
	// race, then replace the user's rows with the new one.
	if err := s.tokens.Revoke(ctx, stored.Token.ID); err != nil {
		return nil, err
	}
	return s.issuePair(ctx, stored.User)
}

// Logout revokes every refresh token of the user. Safe to call repeatedly;
// a user with no active tokens logs out successfully.
func (s *AuthService) Logout(ctx context.Context, userID string) error {
	return s.tokens.RevokeAll(ctx, userID)
}

func (s *AuthService) issuePair(ctx context.Context, user *entity.User) (*TokenPair, error) {
	access, _, err := s.jwt.GenerateAccessToken(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, err
	}
	refresh, exp, err := s.jwt.GenerateRefreshToken(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, err
	}
	if err := s.tokens.Replace(ctx, user.ID, refresh, exp); err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// enqueueSync publishes the CRM-sync job for a new user. Fire and forget: a
// broken broker must never fail a registration.
func (s *AuthService) enqueueSync(user *entity.User) {
	if s.publisher == nil {
		return
	}
	job := queue.SyncJob{
		UserID:  user.ID,
		Email:   user.Email,
		Name:    user.Name,
		Surname: user.Surname,
		Phone:   user.Phone,
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.publisher.PublishJSON(ctx, job); err != nil {
			s.logger.WithError(err).WithField("user_id", user.ID).Warn("failed to enqueue crm sync job")
		}
	}()
}
