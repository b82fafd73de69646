package authsdk

import (
	"strings"
)

// Envelope is the uniform response shape of every endpoint. Callers inspect
// Success instead of handling errors: the pipeline maps every ordinary
// failure onto a failed envelope with a Message.
type Envelope[T any] struct {
	Success bool         `json:"success"`
	Data    T            `json:"data,omitempty"`
	Message string       `json:"message,omitempty"`
	Errors  []FieldError `json:"errors,omitempty"`
}

// FieldError is a server (or client-side) validation failure tied to one
// input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	UserName string `json:"userName"`
	Password string `json:"password"`
}

// Validate reports missing required fields.
func (r LoginRequest) Validate() []FieldError {
	var errs []FieldError
	if strings.TrimSpace(r.UserName) == "" {
		errs = append(errs, FieldError{Field: "userName", Message: "user name is required"})
	}
	if r.Password == "" {
		errs = append(errs, FieldError{Field: "password", Message: "password is required"})
	}
	return errs
}

// RegisterRequest is the body of POST /user/register.
type RegisterRequest struct {
	UserName        string `json:"userName"`
	FullName        string `json:"fullName"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// Validate reports missing fields and a mismatched confirmation.
func (r RegisterRequest) Validate() []FieldError {
	var errs []FieldError
	if strings.TrimSpace(r.UserName) == "" {
		errs = append(errs, FieldError{Field: "userName", Message: "user name is required"})
	}
	if strings.TrimSpace(r.FullName) == "" {
		errs = append(errs, FieldError{Field: "fullName", Message: "full name is required"})
	}
	if r.Password == "" {
		errs = append(errs, FieldError{Field: "password", Message: "password is required"})
	}
	if r.ConfirmPassword != r.Password {
		errs = append(errs, FieldError{Field: "confirmPassword", Message: "passwords do not match"})
	}
	return errs
}
