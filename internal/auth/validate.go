package auth

import (
	"regexp"
	"unicode"

	"taskbox/internal/web"
)

// Field messages mirror the form contract the frontend branches on, so
// they are preserved verbatim, including punctuation quirks.

var (
	emailRegex  = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	digitsRegex = regexp.MustCompile(`^[0-9]+$`)
	otpRegex    = regexp.MustCompile(`^\d{6}$`)
)

func validateRegister(name, email, password, confirmPassword string) []web.FieldError {
	var errs []web.FieldError
	if len([]rune(name)) < 2 {
		errs = append(errs, web.FieldError{Field: "name", Message: "Name must be at least 2 characters long."})
	}
	if !emailRegex.MatchString(email) {
		errs = append(errs, web.FieldError{Field: "email", Message: "Invalid email address."})
	}
	errs = append(errs, passwordErrors(password)...)
	if password != confirmPassword {
		errs = append(errs, web.FieldError{Field: "confirmPassword", Message: "Password do not match."})
	}
	return errs
}

func validateLogin(email, password string) []web.FieldError {
	var errs []web.FieldError
	if !emailRegex.MatchString(email) {
		errs = append(errs, web.FieldError{Field: "email", Message: "Invalid email address"})
	}
	errs = append(errs, passwordErrors(password)...)
	return errs
}

func validateOTP(otp string) []web.FieldError {
	var errs []web.FieldError
	if len(otp) < 6 {
		errs = append(errs, web.FieldError{Field: "otp", Message: "The OTP must be exactly 6 digits."})
	}
	if !otpRegex.MatchString(otp) {
		errs = append(errs, web.FieldError{Field: "otp", Message: "OTP must contain only numbers."})
	}
	return errs
}

func validateForgotEmail(email string) []web.FieldError {
	var errs []web.FieldError
	if !emailRegex.MatchString(email) {
		errs = append(errs, web.FieldError{Field: "email", Message: "Invalid email address."})
	}
	return errs
}

func validateResetPassword(otp, password, confirmPassword string) []web.FieldError {
	var errs []web.FieldError
	if len(otp) != 6 {
		errs = append(errs, web.FieldError{Field: "otp", Message: "OTP must be exactly 6 digits."})
	}
	if !digitsRegex.MatchString(otp) {
		errs = append(errs, web.FieldError{Field: "otp", Message: "OTP must contain only numbers."})
	}
	errs = append(errs, passwordErrors(password)...)
	if password != confirmPassword {
		errs = append(errs, web.FieldError{Field: "confirmPassword", Message: "Password do not match."})
	}
	return errs
}

func validateProfileName(name string) []web.FieldError {
	var errs []web.FieldError
	if len([]rune(name)) < 2 {
		errs = append(errs, web.FieldError{Field: "name", Message: "Name must be at least 2 characters long."})
	}
	return errs
}

func passwordErrors(password string) []web.FieldError {
	var errs []web.FieldError
	if len(password) < 8 {
		errs = append(errs, web.FieldError{Field: "password", Message: "Password must be at least 8 characters long."})
	}
	if !hasPasswordCharset(password) {
		errs = append(errs, web.FieldError{Field: "password", Message: "Password must include uppercase, lowercase, number, and special character."})
	}
	return errs
}

func hasPasswordCharset(password string) bool {
	var lower, upper, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		default:
			special = true
		}
	}
	return lower && upper && digit && special
}
