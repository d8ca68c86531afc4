package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/govscheme-portal/internal/domain"
	"github.com/govscheme-portal/internal/pkg/id"
	"golang.org/x/crypto/bcrypt"
)

// DynamoDB attribute names used in partial update maps.
const (
	fieldFirstName    = "first_name"
	fieldLastName     = "last_name"
	fieldPhone        = "phone"
	fieldAge          = "age"
	fieldState        = "state"
	fieldDistrict     = "district"
	fieldOccupation   = "occupation"
	fieldAnnualIncome = "annual_income"
	fieldCategory     = "category"
	fieldGender       = "gender"
)

type Service interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	Update(ctx context.Context, userID string, req domain.UpdateUserRequest) (*domain.User, error)
	EnsureAdmin(ctx context.Context, email, password string) error
}

type userStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
	Save(ctx context.Context, u *domain.User) error
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
}

type service struct {
	repo userStore
}

type ServiceDeps struct {
	UserRepo userStore
}

func NewService(deps ServiceDeps) Service {
	return &service{repo: deps.UserRepo}
}

func (s *service) Get(ctx context.Context, userID string) (*domain.User, error) {
	return s.repo.Get(ctx, userID)
}

// Update merges the non-nil profile fields of req into the stored user.
func (s *service) Update(ctx context.Context, userID string, req domain.UpdateUserRequest) (*domain.User, error) {
	updates := map[string]interface{}{}
	setString := func(field string, v *string) {
		if v != nil {
			updates[field] = *v
		}
	}
	setString(fieldFirstName, req.FirstName)
	setString(fieldLastName, req.LastName)
	setString(fieldPhone, req.Phone)
	setString(fieldState, req.State)
	setString(fieldDistrict, req.District)
	setString(fieldOccupation, req.Occupation)
	setString(fieldCategory, req.Category)
	setString(fieldGender, req.Gender)
	if req.Age != nil {
		updates[fieldAge] = *req.Age
	}
	if req.AnnualIncome != nil {
		updates[fieldAnnualIncome] = *req.AnnualIncome
	}

	if len(updates) == 0 {
		return s.repo.Get(ctx, userID)
	}
	if err := s.repo.Update(ctx, userID, updates); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, userID)
}

// EnsureAdmin makes sure a verified administrator exists for email.
// An existing account is promoted in place; otherwise a new one is created.
func (s *service) EnsureAdmin(ctx context.Context, email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil
	}

	u, err := s.repo.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if u.PrimaryRole() == domain.RoleAdmin && u.EmailVerified && u.Active && !u.FirstLogin {
			return nil
		}
		u.Roles = promote(u.Roles)
		u.EmailVerified = true
		u.FirstLogin = false
		u.Active = true
		u.ClearOTP()
		if err := s.repo.Save(ctx, u); err != nil {
			return fmt.Errorf("promote admin: %w", err)
		}
		slog.Info("promoted existing account to admin", "user_id", u.UserID)
		return nil
	case !errors.Is(err, domain.ErrNotFound):
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	admin := &domain.User{
		UserID:        id.New(),
		Email:         email,
		PasswordHash:  string(hash),
		FirstName:     "Admin",
		EmailVerified: true,
		Roles:         []string{domain.RoleAdmin},
		Active:        true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Create(ctx, admin); err != nil {
		return fmt.Errorf("create admin: %w", err)
	}
	slog.Info("created admin account", "user_id", admin.UserID)
	return nil
}

// promote puts ADMIN first so it becomes the role carried in tokens.
func promote(roles []string) []string {
	out := []string{domain.RoleAdmin}
	for _, r := range roles {
		if r != domain.RoleAdmin {
			out = append(out, r)
		}
	}
	return out
}
