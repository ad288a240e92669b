package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/azha0089/HealthyLife/internal/auth"
	"github.com/azha0089/HealthyLife/internal/domain"
	"github.com/azha0089/HealthyLife/internal/event"
	"github.com/azha0089/HealthyLife/internal/repository"
	apperrors "github.com/azha0089/HealthyLife/pkg/errors"
)

// bcryptCost is the cost factor for bcrypt password hashing.
const bcryptCost = 12

// minPasswordLength is the minimum password length required.
const minPasswordLength = 8

// UserService implements accounts, authentication and user administration.
type UserService struct {
	users      repository.UserRepository
	jwt        *auth.JWTManager
	producer   *event.Producer
	logger     *slog.Logger
	bcryptCost int
	now        func() time.Time
}

// NewUserService creates a user service.
func NewUserService(users repository.UserRepository, jwt *auth.JWTManager, producer *event.Producer, logger *slog.Logger) *UserService {
	return &UserService{
		users:      users,
		jwt:        jwt,
		producer:   producer,
		logger:     logger,
		bcryptCost: bcryptCost,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// RegisterInput holds the parameters for registering a new user.
type RegisterInput struct {
	Email       string
	Password    string
	DisplayName string
}

// CreateUserInput holds the parameters for an admin-created account.
type CreateUserInput struct {
	RegisterInput
	Role string
}

// UpdateUserInput holds the mutable user fields. Nil fields are unchanged.
type UpdateUserInput struct {
	DisplayName *string
	Role        *string
}

// Register creates a user account with the user role and signs them in.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*domain.AuthResult, error) {
	user, err := s.createUser(ctx, in, domain.RoleUser)
	if err != nil {
		return nil, err
	}

	if err := s.producer.PublishUserRegistered(ctx, user); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.registered event",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}
	s.logger.InfoContext(ctx, "user registered", slog.String("user_id", user.ID))

	return s.authResult(user)
}

// Login authenticates email and password.
func (s *UserService) Login(ctx context.Context, email, password string) (*domain.AuthResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, apperrors.InvalidInput("email and password are required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.Unauthorized("invalid email or password")
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apperrors.Unauthorized("invalid email or password")
	}

	s.logger.InfoContext(ctx, "user logged in", slog.String("user_id", user.ID))
	return s.authResult(user)
}

// Me returns the authenticated user's account.
func (s *UserService) Me(ctx context.Context, userID string) (*domain.User, error) {
	if userID == "" {
		return nil, apperrors.Unauthorized("authentication required")
	}
	return s.users.GetByID(ctx, userID)
}

// List returns all users, or only those holding role.
func (s *UserService) List(ctx context.Context, role string) ([]domain.User, error) {
	if role != "" && !domain.IsValidRole(role) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("unknown role %q", role))
	}
	users, err := s.users.List(ctx, role)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	if users == nil {
		users = []domain.User{}
	}
	return users, nil
}

// Get returns one user.
func (s *UserService) Get(ctx context.Context, id string) (*domain.User, error) {
	return s.users.GetByID(ctx, id)
}

// Create registers an account on behalf of an admin.
func (s *UserService) Create(ctx context.Context, in CreateUserInput) (*domain.User, error) {
	role := in.Role
	if role == "" {
		role = domain.RoleUser
	}
	if !domain.IsValidRole(role) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("unknown role %q", role))
	}

	user, err := s.createUser(ctx, in.RegisterInput, role)
	if err != nil {
		return nil, err
	}
	if err := s.producer.PublishUserRegistered(ctx, user); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.registered event",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}
	return user, nil
}

// Update changes a user's display name or role.
func (s *UserService) Update(ctx context.Context, id string, in UpdateUserInput) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.DisplayName != nil {
		name := strings.TrimSpace(*in.DisplayName)
		if name == "" {
			return nil, apperrors.InvalidInput("display name must not be empty")
		}
		user.DisplayName = name
	}
	if in.Role != nil {
		if !domain.IsValidRole(*in.Role) {
			return nil, apperrors.InvalidInput(fmt.Sprintf("unknown role %q", *in.Role))
		}
		user.Role = *in.Role
	}
	user.UpdatedAt = s.now()

	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	if err := s.producer.PublishUserUpdated(ctx, user); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.updated event",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}
	return user, nil
}

// Delete removes a user. Admins cannot delete their own account.
func (s *UserService) Delete(ctx context.Context, actor Actor, id string) error {
	if actor.UserID == id {
		return apperrors.Forbidden("cannot delete your own account")
	}
	if err := s.users.Delete(ctx, id); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return err
		}
		return fmt.Errorf("delete user: %w", err)
	}
	s.logger.InfoContext(ctx, "user deleted", slog.String("user_id", id))
	return nil
}

// UpdateRoles sets role on every listed user and returns how many changed.
func (s *UserService) UpdateRoles(ctx context.Context, ids []string, role string) (int, error) {
	if len(ids) == 0 {
		return 0, apperrors.InvalidInput("at least one user id is required")
	}
	if !domain.IsValidRole(role) {
		return 0, apperrors.InvalidInput(fmt.Sprintf("unknown role %q", role))
	}
	n, err := s.users.UpdateRoles(ctx, ids, role)
	if err != nil {
		return 0, fmt.Errorf("update roles: %w", err)
	}
	s.logger.InfoContext(ctx, "user roles updated",
		slog.String("role", role),
		slog.Int("updated", n),
	)
	return n, nil
}

// Stats counts users by role.
func (s *UserService) Stats(ctx context.Context) (*domain.UserStats, error) {
	counts, err := s.users.CountByRole(ctx)
	if err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	stats := &domain.UserStats{
		Admin: counts[domain.RoleAdmin],
		User:  counts[domain.RoleUser],
	}
	for _, n := range counts {
		stats.Total += n
	}
	return stats, nil
}

func (s *UserService) createUser(ctx context.Context, in RegisterInput, role string) (*domain.User, error) {
	email := normalizeEmail(in.Email)
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		return nil, apperrors.InvalidInput("a valid email is required")
	}
	if len(in.Password) < minPasswordLength {
		return nil, apperrors.InvalidInput(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	name := strings.TrimSpace(in.DisplayName)
	if name == "" {
		name, _, _ = strings.Cut(email, "@")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	user := &domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		DisplayName:  name,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, apperrors.ErrAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

func (s *UserService) authResult(user *domain.User) (*domain.AuthResult, error) {
	token, err := s.jwt.GenerateAccessToken(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}
	return &domain.AuthResult{
		User:        user,
		AccessToken: token,
		ExpiresIn:   int64(s.jwt.AccessExpiry().Seconds()),
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
