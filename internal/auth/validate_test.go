package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskbox/internal/web"
)

func TestValidateRegisterCollectsAllFailures(t *testing.T) {
	errs := validateRegister("a", "not-an-email", "short", "different")

	require.Len(t, errs, 5)
	assert.Equal(t, web.FieldError{Field: "name", Message: "Name must be at least 2 characters long."}, errs[0])
	assert.Equal(t, web.FieldError{Field: "email", Message: "Invalid email address."}, errs[1])
	assert.Equal(t, web.FieldError{Field: "password", Message: "Password must be at least 8 characters long."}, errs[2])
	assert.Equal(t, web.FieldError{Field: "password", Message: "Password must include uppercase, lowercase, number, and special character."}, errs[3])
	assert.Equal(t, web.FieldError{Field: "confirmPassword", Message: "Password do not match."}, errs[4])
}

func TestValidateRegisterAcceptsGoodInput(t *testing.T) {
	assert.Empty(t, validateRegister("Jane", "jane@example.com", "Str0ng!Pass", "Str0ng!Pass"))
}

func TestValidateLoginEmailMessageHasNoPeriod(t *testing.T) {
	errs := validateLogin("bad", "Str0ng!Pass")
	require.Len(t, errs, 1)
	assert.Equal(t, "Invalid email address", errs[0].Message)
}

func TestValidateOTP(t *testing.T) {
	assert.Empty(t, validateOTP("012345"))

	errs := validateOTP("12a")
	require.Len(t, errs, 2)
	assert.Equal(t, "The OTP must be exactly 6 digits.", errs[0].Message)
	assert.Equal(t, "OTP must contain only numbers.", errs[1].Message)

	errs = validateOTP("1234567")
	require.Len(t, errs, 1)
	assert.Equal(t, "OTP must contain only numbers.", errs[0].Message)
}

func TestValidateResetPassword(t *testing.T) {
	assert.Empty(t, validateResetPassword("123456", "Str0ng!Pass", "Str0ng!Pass"))

	errs := validateResetPassword("12345", "Str0ng!Pass", "other")
	require.Len(t, errs, 2)
	assert.Equal(t, web.FieldError{Field: "otp", Message: "OTP must be exactly 6 digits."}, errs[0])
	assert.Equal(t, web.FieldError{Field: "confirmPassword", Message: "Password do not match."}, errs[1])
}

func TestPasswordCharset(t *testing.T) {
	tests := []struct {
		password string
		ok       bool
	}{
		{"Str0ng!Pass", true},
		{"alllowercase1!", false},
		{"ALLUPPERCASE1!", false},
		{"NoDigits!Here", false},
		{"NoSpecials123", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.ok, hasPasswordCharset(tt.password), tt.password)
	}
}
