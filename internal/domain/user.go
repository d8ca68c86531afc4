package domain

import (
	"strings"
	"time"
)

// User is a portal citizen or administrator. Profile fields left empty (or nil)
// are unknown and never satisfy a restrictive eligibility criterion.
type User struct {
	UserID       string   `json:"id" dynamodbav:"user_id"`
	Email        string   `json:"email" dynamodbav:"email"`
	PasswordHash string   `json:"-" dynamodbav:"password_hash"`
	FirstName    string   `json:"first_name" dynamodbav:"first_name"`
	LastName     string   `json:"last_name" dynamodbav:"last_name"`
	Phone        string   `json:"phone,omitempty" dynamodbav:"phone,omitempty"`
	Age          *int     `json:"age" dynamodbav:"age,omitempty"`
	State        string   `json:"state,omitempty" dynamodbav:"state,omitempty"`
	District     string   `json:"district,omitempty" dynamodbav:"district,omitempty"`
	Occupation   string   `json:"occupation,omitempty" dynamodbav:"occupation,omitempty"`
	AnnualIncome *float64 `json:"annual_income" dynamodbav:"annual_income,omitempty"`
	Category     string   `json:"category,omitempty" dynamodbav:"category,omitempty"`
	Gender       string   `json:"gender,omitempty" dynamodbav:"gender,omitempty"`

	EmailVerified  bool       `json:"email_verified" dynamodbav:"email_verified"`
	EmailOTP       string     `json:"-" dynamodbav:"email_otp,omitempty"`
	EmailOTPExpiry *time.Time `json:"-" dynamodbav:"email_otp_expiry,omitempty"`
	FirstLogin     bool       `json:"first_login" dynamodbav:"first_login"`

	Roles     []string  `json:"roles" dynamodbav:"roles"`
	Active    bool      `json:"active" dynamodbav:"active"`
	CreatedAt time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt time.Time `json:"updated" dynamodbav:"updated_at"`
}

// FullName joins first and last name the way the portal greets users.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// PrimaryRole is the role embedded in session tokens.
func (u *User) PrimaryRole() string {
	if len(u.Roles) == 0 {
		return RoleUser
	}
	return u.Roles[0]
}

// SetOTP stores a pending code together with its expiry.
func (u *User) SetOTP(code string, expiry time.Time) {
	u.EmailOTP = code
	u.EmailOTPExpiry = &expiry
}

// ClearOTP removes the pending code and its expiry together.
func (u *User) ClearOTP() {
	u.EmailOTP = ""
	u.EmailOTPExpiry = nil
}

type RegisterRequest struct {
	Email        string   `json:"email" validate:"required,email"`
	Password     string   `json:"password" validate:"required,min=6,max=72"`
	FirstName    string   `json:"first_name" validate:"required"`
	LastName     string   `json:"last_name"`
	Phone        string   `json:"phone"`
	Age          *int     `json:"age" validate:"omitempty,gte=0,lte=150"`
	State        string   `json:"state"`
	District     string   `json:"district"`
	Occupation   string   `json:"occupation"`
	AnnualIncome *float64 `json:"annual_income" validate:"omitempty,gte=0"`
	Category     string   `json:"category"`
	Gender       string   `json:"gender"`
}

// UpdateUserRequest lists the only profile fields a user may change.
// Anything else in the payload is ignored by the decoder.
type UpdateUserRequest struct {
	FirstName    *string  `json:"first_name"`
	LastName     *string  `json:"last_name"`
	Phone        *string  `json:"phone"`
	Age          *int     `json:"age" validate:"omitempty,gte=0,lte=150"`
	State        *string  `json:"state"`
	District     *string  `json:"district"`
	Occupation   *string  `json:"occupation"`
	AnnualIncome *float64 `json:"annual_income" validate:"omitempty,gte=0"`
	Category     *string  `json:"category"`
	Gender       *string  `json:"gender"`
}
