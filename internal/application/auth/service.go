package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/govscheme-portal/internal/application/notification"
	"github.com/govscheme-portal/internal/domain"
	"github.com/govscheme-portal/internal/infrastructure/metrics"
	"github.com/govscheme-portal/internal/infrastructure/smtp"
	"github.com/govscheme-portal/internal/pkg/id"
	"github.com/govscheme-portal/internal/pkg/otp"
	"golang.org/x/crypto/bcrypt"
)

// Response messages shown to the client.
const (
	MsgRegistered = "Registration successful! Please login to verify your email with OTP."
	MsgOTPSent    = "OTP sent to your email. Please verify to continue."
	MsgLoggedIn   = "Login successful"
	MsgVerified   = "Email verified successfully!"
	MsgOTPResent  = "OTP resent successfully"
)

// OTP issue triggers, used as metric labels.
const (
	otpTriggerLogin  = "login"
	otpTriggerResend = "resend"
)

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type VerifyOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required,otp"`
}

type ResendOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// Result is the outcome of an auth step. Token is nil until the account is verified.
type Result struct {
	Token    *string
	User     *domain.User
	Verified bool
	Message  string
}

type Service interface {
	Register(ctx context.Context, req domain.RegisterRequest) (*Result, error)
	Login(ctx context.Context, req LoginRequest) (*Result, error)
	VerifyOTP(ctx context.Context, req VerifyOTPRequest) (*Result, error)
	ResendOTP(ctx context.Context, req ResendOTPRequest) (string, error)
}

type userStore interface {
	Create(ctx context.Context, u *domain.User) error
	Save(ctx context.Context, u *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

type tokenSigner interface {
	Sign(userID, email, role string) (string, error)
}

type taskQueue interface {
	Submit(kind string, task notification.Task)
}

type service struct {
	repo     userStore
	signer   tokenSigner
	mailer   smtp.Mailer
	composer *notification.Composer
	queue    taskQueue
	metrics  *metrics.Metrics
}

type ServiceDeps struct {
	UserRepo    userStore
	JWTProvider tokenSigner
	Mailer      smtp.Mailer
	Composer    *notification.Composer
	Queue       taskQueue
	Metrics     *metrics.Metrics
}

func NewService(deps ServiceDeps) Service {
	return &service{
		repo:     deps.UserRepo,
		signer:   deps.JWTProvider,
		mailer:   deps.Mailer,
		composer: deps.Composer,
		queue:    deps.Queue,
		metrics:  deps.Metrics,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *service) Register(ctx context.Context, req domain.RegisterRequest) (*Result, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	u := &domain.User{
		UserID:        id.New(),
		Email:         normalizeEmail(req.Email),
		PasswordHash:  string(hash),
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Phone:         req.Phone,
		Age:           req.Age,
		State:         req.State,
		District:      req.District,
		Occupation:    req.Occupation,
		AnnualIncome:  req.AnnualIncome,
		Category:      req.Category,
		Gender:        req.Gender,
		EmailVerified: false,
		FirstLogin:    true,
		Roles:         []string{domain.RoleUser},
		Active:        true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return &Result{User: u, Verified: false, Message: MsgRegistered}, nil
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*Result, error) {
	u, err := s.repo.GetByEmail(ctx, normalizeEmail(req.Email))
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("invalid email or password: %w", domain.ErrUnauthorized)
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)) != nil {
		return nil, fmt.Errorf("invalid email or password: %w", domain.ErrUnauthorized)
	}
	if !u.Active {
		return nil, fmt.Errorf("account is deactivated: %w", domain.ErrForbidden)
	}

	if u.FirstLogin || !u.EmailVerified {
		code, err := s.issueOTP(ctx, u)
		if err != nil {
			return nil, err
		}
		s.metrics.IncOTPIssued(otpTriggerLogin)
		s.queue.Submit(notification.KindOTPEmail, s.sendEmail(func() (notification.Email, error) {
			return s.composer.OTP(u, code, otp.TTL)
		}))
		return &Result{User: u, Verified: false, Message: MsgOTPSent}, nil
	}

	token, err := s.signer.Sign(u.UserID, u.Email, u.PrimaryRole())
	if err != nil {
		return nil, err
	}
	return &Result{Token: &token, User: u, Verified: true, Message: MsgLoggedIn}, nil
}

func (s *service) VerifyOTP(ctx context.Context, req VerifyOTPRequest) (*Result, error) {
	u, err := s.repo.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		return nil, err
	}
	if u.EmailOTP == "" || subtle.ConstantTimeCompare([]byte(u.EmailOTP), []byte(req.OTP)) != 1 {
		return nil, fmt.Errorf("invalid OTP: %w", domain.ErrUnauthorized)
	}
	if u.EmailOTPExpiry == nil || time.Now().UTC().After(*u.EmailOTPExpiry) {
		return nil, fmt.Errorf("OTP has expired: %w", domain.ErrExpired)
	}

	u.EmailVerified = true
	u.FirstLogin = false
	u.ClearOTP()
	if err := s.repo.Save(ctx, u); err != nil {
		return nil, err
	}
	s.queue.Submit(notification.KindWelcomeEmail, s.sendEmail(func() (notification.Email, error) {
		return s.composer.Welcome(u)
	}))

	token, err := s.signer.Sign(u.UserID, u.Email, u.PrimaryRole())
	if err != nil {
		return nil, err
	}
	return &Result{Token: &token, User: u, Verified: true, Message: MsgVerified}, nil
}

// ResendOTP replaces the pending code and sends it before returning.
// A failed send is reported as ErrDelivery; the new code stays stored.
func (s *service) ResendOTP(ctx context.Context, req ResendOTPRequest) (string, error) {
	u, err := s.repo.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		return "", err
	}
	if u.EmailVerified {
		return "", fmt.Errorf("email already verified: %w", domain.ErrConflict)
	}
	code, err := s.issueOTP(ctx, u)
	if err != nil {
		return "", err
	}
	s.metrics.IncOTPIssued(otpTriggerResend)

	msg, err := s.composer.OTP(u, code, otp.TTL)
	if err != nil {
		return "", err
	}
	if err := s.mailer.SendEmail(msg.To, msg.Subject, msg.HTML); err != nil {
		slog.Error("otp email failed", "user_id", u.UserID, "err", err)
		return "", fmt.Errorf("failed to send OTP email: %w", domain.ErrDelivery)
	}
	return MsgOTPResent, nil
}

func (s *service) issueOTP(ctx context.Context, u *domain.User) (string, error) {
	code, err := otp.New()
	if err != nil {
		return "", err
	}
	u.SetOTP(code, time.Now().UTC().Add(otp.TTL))
	if err := s.repo.Save(ctx, u); err != nil {
		return "", err
	}
	return code, nil
}

// sendEmail renders at submit time so the task does not share u with the caller.
func (s *service) sendEmail(render func() (notification.Email, error)) notification.Task {
	msg, err := render()
	return func(ctx context.Context) error {
		if err != nil {
			return fmt.Errorf("render email: %w", err)
		}
		return s.mailer.SendEmail(msg.To, msg.Subject, msg.HTML)
	}
}
