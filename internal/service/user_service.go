package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/krs-online-api/internal/models"
	"github.com/noah-isme/krs-online-api/internal/repository"
	appErrors "github.com/noah-isme/krs-online-api/pkg/errors"
)

type userRepository interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error
	Delete(ctx context.Context, id string) error
}

// CreateUserRequest represents the admin payload for creating accounts.
type CreateUserRequest struct {
	NIM        string          `json:"nim" validate:"required,max=20"`
	Email      string          `json:"email" validate:"required,email"`
	Password   string          `json:"password" validate:"required,min=6"`
	FullName   string          `json:"name" validate:"required,max=150"`
	Phone      *string         `json:"phoneNumber" validate:"omitempty,max=20"`
	Program    *string         `json:"prodi" validate:"omitempty,max=100"`
	Level      *int            `json:"semester" validate:"omitempty,min=1,max=14"`
	GPA        *float64        `json:"ipk" validate:"omitempty,min=0,max=4"`
	MaxCredits *int            `json:"maxSks"`
	Role       models.UserRole `json:"role" validate:"omitempty,oneof=ADMIN STUDENT"`
	Active     *bool           `json:"isActive"`
}

// UpdateUserRequest carries optional admin edits.
type UpdateUserRequest struct {
	Email      *string          `json:"email" validate:"omitempty,email"`
	Password   *string          `json:"password" validate:"omitempty,min=6"`
	FullName   *string          `json:"name" validate:"omitempty,min=1,max=150"`
	Phone      *string          `json:"phoneNumber" validate:"omitempty,max=20"`
	Program    *string          `json:"prodi" validate:"omitempty,max=100"`
	Level      *int             `json:"semester" validate:"omitempty,min=1,max=14"`
	GPA        *float64         `json:"ipk" validate:"omitempty,min=0,max=4"`
	MaxCredits *int             `json:"maxSks"`
	Role       *models.UserRole `json:"role" validate:"omitempty,oneof=ADMIN STUDENT"`
	Active     *bool            `json:"isActive"`
}

// UpdateProfileRequest is what users may change about themselves.
type UpdateProfileRequest struct {
	FullName *string `json:"name" validate:"omitempty,min=1,max=150"`
	Phone    *string `json:"phoneNumber" validate:"omitempty,max=20"`
}

// UserService handles account management.
type UserService struct {
	repo              userRepository
	audit             *AuditService
	validator         *validator.Validate
	logger            *zap.Logger
	defaultMaxCredits int
}

// NewUserService creates an instance of UserService.
func NewUserService(repo userRepository, audit *AuditService, validate *validator.Validate, logger *zap.Logger, defaultMaxCredits int) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if defaultMaxCredits <= 0 {
		defaultMaxCredits = models.DefaultMaxCredits
	}
	return &UserService{repo: repo, audit: audit, validator: validate, logger: logger, defaultMaxCredits: defaultMaxCredits}
}

// List returns paginated users and pagination metadata.
func (s *UserService) List(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	if users == nil {
		users = []models.User{}
	}

	return users, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// Get returns a user by ID.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return user, nil
}

// Create adds a new account. Role defaults to STUDENT and a missing or
// non-positive credit ceiling becomes the configured default.
func (s *UserService) Create(ctx context.Context, req CreateUserRequest, meta models.RequestMeta) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid create user payload")
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	role := req.Role
	if role == "" {
		role = models.RoleStudent
	}
	user := &models.User{
		NIM:          strings.TrimSpace(req.NIM),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: string(passwordHash),
		FullName:     strings.TrimSpace(req.FullName),
		Phone:        trimmedOrNil(req.Phone),
		Program:      trimmedOrNil(req.Program),
		Level:        req.Level,
		GPA:          req.GPA,
		MaxCredits:   s.normalizeMaxCredits(req.MaxCredits),
		Role:         role,
		Active:       req.Active == nil || *req.Active,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "NIM or email already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}

	s.audit.Record(meta, models.AuditActionUserCreate, "users", user.ID, nil,
		map[string]interface{}{"nim": user.NIM, "email": user.Email, "role": user.Role})
	return user, nil
}

// Update modifies the provided attributes.
func (s *UserService) Update(ctx context.Context, id string, req UpdateUserRequest, meta models.RequestMeta) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid update payload")
	}

	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	before := map[string]interface{}{"role": user.Role, "active": user.Active, "max_credits": user.MaxCredits}

	if req.Email != nil {
		user.Email = strings.ToLower(strings.TrimSpace(*req.Email))
	}
	if req.FullName != nil {
		user.FullName = strings.TrimSpace(*req.FullName)
	}
	if req.Phone != nil {
		user.Phone = trimmedOrNil(req.Phone)
	}
	if req.Program != nil {
		user.Program = trimmedOrNil(req.Program)
	}
	if req.Level != nil {
		user.Level = req.Level
	}
	if req.GPA != nil {
		user.GPA = req.GPA
	}
	if req.MaxCredits != nil {
		user.MaxCredits = s.normalizeMaxCredits(req.MaxCredits)
	}
	if req.Role != nil {
		user.Role = *req.Role
	}
	if req.Active != nil {
		user.Active = *req.Active
	}

	if err := s.repo.Update(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "email already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update user")
	}

	if req.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
		}
		if err := s.repo.UpdatePassword(ctx, id, string(hash), time.Now().UTC()); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update password")
		}
		user.PasswordHash = string(hash)
	}

	s.audit.Record(meta, models.AuditActionUserUpdate, "users", id, before,
		map[string]interface{}{"role": user.Role, "active": user.Active, "max_credits": user.MaxCredits})
	return user, nil
}

// UpdateProfile lets the current user edit their name and phone number.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, req UpdateProfileRequest, meta models.RequestMeta) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid profile payload")
	}
	user, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if req.FullName != nil {
		user.FullName = strings.TrimSpace(*req.FullName)
	}
	if req.Phone != nil {
		user.Phone = trimmedOrNil(req.Phone)
	}
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update profile")
	}
	s.audit.Record(meta, models.AuditActionUserUpdate, "users", userID, nil,
		map[string]interface{}{"full_name": user.FullName, "phone": user.Phone})
	return user, nil
}

// Delete performs a soft delete (inactive) on a user.
func (s *UserService) Delete(ctx context.Context, id string, meta models.RequestMeta) error {
	user, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete user")
	}
	s.audit.Record(meta, models.AuditActionUserDelete, "users", id,
		map[string]interface{}{"active": user.Active}, map[string]interface{}{"active": false})
	return nil
}

func (s *UserService) normalizeMaxCredits(v *int) *int {
	value := s.defaultMaxCredits
	if v != nil && *v > 0 {
		value = *v
	}
	return &value
}

func trimmedOrNil(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
