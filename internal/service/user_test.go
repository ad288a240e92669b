package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/azha0089/HealthyLife/internal/auth"
	"github.com/azha0089/HealthyLife/internal/domain"
	"github.com/azha0089/HealthyLife/internal/event"
	apperrors "github.com/azha0089/HealthyLife/pkg/errors"
)

type userFixture struct {
	users *mockUserRepository
	jwt   *auth.JWTManager
	pub   *recordingPublisher
	svc   *UserService
}

func setupUserService(t *testing.T) *userFixture {
	t.Helper()
	f := &userFixture{
		users: new(mockUserRepository),
		jwt:   auth.NewJWTManager("test-secret-that-is-long-enough-123", "healthylife", time.Hour),
		pub:   &recordingPublisher{},
	}
	f.svc = NewUserService(f.users, f.jwt, newProducer(f.pub), testLogger())
	f.svc.bcryptCost = bcrypt.MinCost
	return f
}

func hashed(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func TestRegister_Success(t *testing.T) {
	f := setupUserService(t)
	f.users.On("Create", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
		return u.Email == "sam@example.com" && u.Role == domain.RoleUser && u.DisplayName == "sam"
	})).Return(nil).Once()

	res, err := f.svc.Register(context.Background(), RegisterInput{Email: " Sam@Example.com ", Password: "password123"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.Equal(t, int64(3600), res.ExpiresIn)
	assert.NotEqual(t, "password123", res.User.PasswordHash)

	claims, err := f.jwt.ValidateAccessToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, claims.UserID)
	assert.Equal(t, domain.RoleUser, claims.Role)
	assert.Equal(t, []string{event.TopicUserRegistered}, f.pub.published())
}

func TestRegister_Validation(t *testing.T) {
	f := setupUserService(t)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, RegisterInput{Email: "not-an-email", Password: "password123"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, err = f.svc.Register(ctx, RegisterInput{Email: "sam@example.com", Password: "short"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	f.users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	f := setupUserService(t)
	f.users.On("Create", mock.Anything, mock.Anything).
		Return(apperrors.AlreadyExists("user", "email", "sam@example.com")).Once()

	_, err := f.svc.Register(context.Background(), RegisterInput{Email: "sam@example.com", Password: "password123"})
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
}

func TestLogin(t *testing.T) {
	f := setupUserService(t)
	user := &domain.User{ID: "u1", Email: "sam@example.com", PasswordHash: hashed(t, "password123"), Role: domain.RoleAdmin}
	f.users.On("GetByEmail", mock.Anything, "sam@example.com").Return(user, nil)
	f.users.On("GetByEmail", mock.Anything, "nobody@example.com").Return(nil, apperrors.NotFound("user", "nobody@example.com"))
	ctx := context.Background()

	res, err := f.svc.Login(ctx, "SAM@example.com", "password123")
	require.NoError(t, err)
	claims, err := f.jwt.ValidateAccessToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, claims.Role)

	_, err = f.svc.Login(ctx, "sam@example.com", "wrong-password")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	_, err = f.svc.Login(ctx, "nobody@example.com", "password123")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	_, err = f.svc.Login(ctx, "", "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestUserCreate_WithRole(t *testing.T) {
	f := setupUserService(t)
	f.users.On("Create", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
		return u.Role == domain.RoleAdmin && u.DisplayName == "Ops"
	})).Return(nil).Once()

	u, err := f.svc.Create(context.Background(), CreateUserInput{
		RegisterInput: RegisterInput{Email: "ops@example.com", Password: "password123", DisplayName: "Ops"},
		Role:          domain.RoleAdmin,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, u.Role)

	_, err = f.svc.Create(context.Background(), CreateUserInput{Role: "superuser"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestUserUpdate(t *testing.T) {
	f := setupUserService(t)
	f.users.On("GetByID", mock.Anything, "u1").Return(&domain.User{ID: "u1", DisplayName: "Sam", Role: domain.RoleUser}, nil)
	f.users.On("Update", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
		return u.Role == domain.RoleAdmin && u.DisplayName == "Sam"
	})).Return(nil).Once()
	ctx := context.Background()

	u, err := f.svc.Update(ctx, "u1", UpdateUserInput{Role: strPtr(domain.RoleAdmin)})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, u.Role)
	assert.Equal(t, []string{event.TopicUserUpdated}, f.pub.published())

	_, err = f.svc.Update(ctx, "u1", UpdateUserInput{Role: strPtr("root")})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	_, err = f.svc.Update(ctx, "u1", UpdateUserInput{DisplayName: strPtr("  ")})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestUserDelete_CannotDeleteSelf(t *testing.T) {
	f := setupUserService(t)
	err := f.svc.Delete(context.Background(), Actor{UserID: "admin", Role: domain.RoleAdmin}, "admin")
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	f.users.On("Delete", mock.Anything, "u1").Return(nil).Once()
	assert.NoError(t, f.svc.Delete(context.Background(), Actor{UserID: "admin", Role: domain.RoleAdmin}, "u1"))
}

func TestUpdateRoles(t *testing.T) {
	f := setupUserService(t)
	f.users.On("UpdateRoles", mock.Anything, []string{"u1", "u2"}, domain.RoleAdmin).Return(2, nil).Once()

	n, err := f.svc.UpdateRoles(context.Background(), []string{"u1", "u2"}, domain.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = f.svc.UpdateRoles(context.Background(), nil, domain.RoleAdmin)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	_, err = f.svc.UpdateRoles(context.Background(), []string{"u1"}, "owner")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestUserStats(t *testing.T) {
	f := setupUserService(t)
	f.users.On("CountByRole", mock.Anything).Return(map[string]int{"admin": 2, "user": 10}, nil).Once()

	stats, err := f.svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.UserStats{Total: 12, Admin: 2, User: 10}, *stats)
}

func TestUserList_RoleFilter(t *testing.T) {
	f := setupUserService(t)
	f.users.On("List", mock.Anything, domain.RoleAdmin).Return([]domain.User{{ID: "a"}}, nil).Once()

	users, err := f.svc.List(context.Background(), domain.RoleAdmin)
	require.NoError(t, err)
	assert.Len(t, users, 1)

	_, err = f.svc.List(context.Background(), "guest")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}
