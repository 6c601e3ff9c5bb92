package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/krs-online-api/internal/models"
	"github.com/noah-isme/krs-online-api/internal/repository"
	appErrors "github.com/noah-isme/krs-online-api/pkg/errors"
)

type mockAuthRepo struct {
	users             map[string]*models.User
	createErr         error
	updatePasswordErr error
	auditLogs         []*models.AuditLog
	lastLoginUpdated  bool
}

func newMockAuthRepo(users ...*models.User) *mockAuthRepo {
	repo := &mockAuthRepo{users: make(map[string]*models.User)}
	for _, u := range users {
		repo.users[u.ID] = u
	}
	return repo
}

func (m *mockAuthRepo) find(match func(*models.User) bool) (*models.User, error) {
	for _, u := range m.users {
		if match(u) {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) FindByNIM(ctx context.Context, nim string) (*models.User, error) {
	return m.find(func(u *models.User) bool { return u.NIM == nim })
}

func (m *mockAuthRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return m.find(func(u *models.User) bool { return u.Email == email })
}

func (m *mockAuthRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	return m.find(func(u *models.User) bool { return u.ID == id })
}

func (m *mockAuthRepo) Create(ctx context.Context, user *models.User) error {
	if m.createErr != nil {
		return m.createErr
	}
	if user.ID == "" {
		user.ID = "new-user"
	}
	m.users[user.ID] = user
	return nil
}

func (m *mockAuthRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	m.lastLoginUpdated = true
	return nil
}

func (m *mockAuthRepo) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	if m.updatePasswordErr != nil {
		return m.updatePasswordErr
	}
	if u, ok := m.users[id]; ok {
		u.PasswordHash = passwordHash
	}
	return nil
}

func (m *mockAuthRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.auditLogs = append(m.auditLogs, log)
	return nil
}

type memoryOTPStore struct {
	codes    map[string]string
	verified map[string]bool
}

func newMemoryOTPStore() *memoryOTPStore {
	return &memoryOTPStore{codes: map[string]string{}, verified: map[string]bool{}}
}

func (m *memoryOTPStore) SaveCode(ctx context.Context, email, code string, ttl time.Duration) error {
	m.codes[email] = code
	return nil
}

func (m *memoryOTPStore) GetCode(ctx context.Context, email string) (string, error) {
	code, ok := m.codes[email]
	if !ok {
		return "", repository.ErrOTPNotFound
	}
	return code, nil
}

func (m *memoryOTPStore) MarkVerified(ctx context.Context, email string, window time.Duration) error {
	delete(m.codes, email)
	m.verified[email] = true
	return nil
}

func (m *memoryOTPStore) ConsumeVerified(ctx context.Context, email string) error {
	if !m.verified[email] {
		return repository.ErrOTPNotFound
	}
	delete(m.verified, email)
	return nil
}

func newTestAuthService(repo *mockAuthRepo, otp *memoryOTPStore) *AuthService {
	return NewAuthService(repo, otp, validator.New(), zap.NewNop(), AuthConfig{
		AccessTokenSecret: "secret",
		AccessTokenExpiry: time.Hour,
		ExposeOTP:         true,
	})
}

func hashed(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestAuthServiceLoginSuccess(t *testing.T) {
	repo := newMockAuthRepo(&models.User{ID: "123", NIM: "2021001", Email: "user@example.com", PasswordHash: hashed(t, "password"), Active: true, Role: models.RoleStudent})
	svc := newTestAuthService(repo, newMemoryOTPStore())

	res, err := svc.Login(context.Background(), models.LoginRequest{NIM: "2021001", Password: "password"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.Equal(t, "2021001", res.User.NIM)
	assert.True(t, repo.lastLoginUpdated)
	require.Len(t, repo.auditLogs, 1)
	assert.Equal(t, models.AuditActionLogin, repo.auditLogs[0].Action)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	repo := newMockAuthRepo(&models.User{ID: "123", NIM: "2021001", PasswordHash: hashed(t, "password"), Active: true})
	svc := newTestAuthService(repo, newMemoryOTPStore())

	_, err := svc.Login(context.Background(), models.LoginRequest{NIM: "2021001", Password: "nope"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)

	_, err = svc.Login(context.Background(), models.LoginRequest{NIM: "missing", Password: "password"})
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLoginInactive(t *testing.T) {
	repo := newMockAuthRepo(&models.User{ID: "123", NIM: "2021001", PasswordHash: hashed(t, "password"), Active: false})
	svc := newTestAuthService(repo, newMemoryOTPStore())

	_, err := svc.Login(context.Background(), models.LoginRequest{NIM: "2021001", Password: "password"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceRegister(t *testing.T) {
	repo := newMockAuthRepo()
	svc := newTestAuthService(repo, newMemoryOTPStore())

	user, err := svc.Register(context.Background(), models.RegisterRequest{
		NIM: "2021002", Email: "New@Example.com", Password: "secret1", FullName: "Budi", Program: "Informatika", Level: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", user.Email)
	assert.Equal(t, models.RoleStudent, user.Role)
	assert.Equal(t, models.DefaultMaxCredits, user.CreditCeiling(0))
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("secret1")))

	repo.createErr = repository.ErrDuplicate
	_, err = svc.Register(context.Background(), models.RegisterRequest{
		NIM: "2021002", Email: "new@example.com", Password: "secret1", FullName: "Budi", Program: "Informatika", Level: 3,
	})
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceRegisterValidation(t *testing.T) {
	svc := newTestAuthService(newMockAuthRepo(), newMemoryOTPStore())

	_, err := svc.Register(context.Background(), models.RegisterRequest{NIM: "1", Email: "not-an-email", Password: "x"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAuthServicePasswordResetFlow(t *testing.T) {
	repo := newMockAuthRepo(&models.User{ID: "u1", NIM: "2021001", Email: "user@example.com", PasswordHash: hashed(t, "old-pass"), Active: true})
	otp := newMemoryOTPStore()
	svc := newTestAuthService(repo, otp)
	ctx := context.Background()

	err := svc.ResetPassword(ctx, models.ResetPasswordRequest{Email: "user@example.com", NewPassword: "new-pass"})
	assert.Equal(t, appErrors.ErrInvalidOTP.Code, appErrors.FromError(err).Code)

	resp, err := svc.ForgotPassword(ctx, models.ForgotPasswordRequest{Email: "user@example.com"})
	require.NoError(t, err)
	require.Len(t, resp.Code, 6)

	wrong := "000000"
	if resp.Code == wrong {
		wrong = "111111"
	}
	err = svc.VerifyOTP(ctx, models.VerifyOTPRequest{Email: "user@example.com", Code: wrong})
	assert.Equal(t, appErrors.ErrInvalidOTP.Code, appErrors.FromError(err).Code)

	require.NoError(t, svc.VerifyOTP(ctx, models.VerifyOTPRequest{Email: "user@example.com", Code: resp.Code}))
	require.NoError(t, svc.ResetPassword(ctx, models.ResetPasswordRequest{Email: "user@example.com", NewPassword: "new-pass"}))
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.users["u1"].PasswordHash), []byte("new-pass")))

	err = svc.ResetPassword(ctx, models.ResetPasswordRequest{Email: "user@example.com", NewPassword: "again-pass"})
	assert.Equal(t, appErrors.ErrInvalidOTP.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceForgotPasswordUnknownEmail(t *testing.T) {
	svc := newTestAuthService(newMockAuthRepo(), newMemoryOTPStore())

	_, err := svc.ForgotPassword(context.Background(), models.ForgotPasswordRequest{Email: "ghost@example.com"})
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestValidateToken(t *testing.T) {
	svc := newTestAuthService(newMockAuthRepo(), newMemoryOTPStore())
	user := &models.User{ID: "u1", NIM: "2021001", Email: "user@example.com", Role: models.RoleStudent}
	token, _, err := svc.generateAccessToken(user)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, user.NIM, claims.NIM)

	_, err = svc.ValidateToken(token + "x")
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}
