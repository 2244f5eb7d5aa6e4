package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"

	"taskbox/internal/web"
)

const maxJSONBodyBytes = 1 << 20

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type registerRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type googleRequest struct {
	Token string `json:"token"`
}

type verifyRequest struct {
	OTP     string `json:"otp"`
	OTPType string `json:"otpType"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	OTP             string `json:"otp"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

type updateProfileRequest struct {
	Name string `json:"name"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var body registerRequest
	if !decodeBody(w, r, &body) {
		return
	}

	if errs := validateRegister(body.Name, body.Email, body.Password, body.ConfirmPassword); len(errs) > 0 {
		web.ValidationFailed(w, "signup_zod_validation_error", errs)
		return
	}

	pair, err := h.service.Register(r.Context(), body.Name, body.Email, body.Password)
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			web.Error(w, http.StatusConflict, "Email already registered. Use another email or login.")
			return
		}
		h.internal(w, err)
		return
	}

	setTokenCookie(w, CookieVerify, pair.Verify)
	setTokenCookie(w, CookieResend, pair.Resend)
	web.Success(w, http.StatusCreated, "Registration successful. Verify your account via OTP.", nil)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var body loginRequest
	if !decodeBody(w, r, &body) {
		return
	}

	if errs := validateLogin(body.Email, body.Password); len(errs) > 0 {
		web.ValidationFailed(w, "login_zod_validation_error", errs)
		return
	}

	pair, err := h.service.Login(r.Context(), body.Email, body.Password)
	if err != nil {
		var blocked BlockedError
		switch {
		case errors.Is(err, ErrUserNotFound):
			web.Error(w, http.StatusNotFound, "User not found. Sign up first.")
		case errors.Is(err, ErrGoogleAccount):
			web.Error(w, http.StatusBadRequest, "Email is linked to a Google account. Log in with Google.")
		case errors.As(err, &blocked):
			clock, unit := formatClock(time.Until(blocked.Until))
			web.Error(w, http.StatusForbidden, fmt.Sprintf("Account is temporarily blocked. Try again after %s %s.", clock, unit))
		case errors.Is(err, ErrInvalidCredentials):
			web.Error(w, http.StatusBadRequest, "Invalid email or password.")
		default:
			h.internal(w, err)
		}
		return
	}

	setTokenCookie(w, CookieVerify, pair.Verify)
	setTokenCookie(w, CookieResend, pair.Resend)
	web.Success(w, http.StatusOK, "OTP sent to your email. Verify to continue.", nil)
}

func (h *Handler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	var body googleRequest
	if !decodeBody(w, r, &body) {
		return
	}

	if strings.TrimSpace(body.Token) == "" {
		web.Error(w, http.StatusBadRequest, "Google login data is missing. Please try again.")
		return
	}

	pair, err := h.service.GoogleLogin(r.Context(), body.Token)
	if err != nil {
		switch {
		case errors.Is(err, ErrLocalAccount):
			web.Error(w, http.StatusBadRequest, "Email is linked to an Email account. Log in with Email & Password.")
		case errors.Is(err, ErrAssertionInvalid):
			web.Error(w, http.StatusUnauthorized, "Invalid Google credential. Please try again.")
		default:
			h.internal(w, err)
		}
		return
	}

	setTokenCookie(w, CookieAccess, pair.Access)
	setTokenCookie(w, CookieRefresh, pair.Refresh)
	web.Success(w, http.StatusOK, "Logged in successfully.", nil)
}

// Logout is advisory: the cookies are the only credential store, so
// clearing them is the entire operation.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	clearTokenCookie(w, CookieAccess)
	clearTokenCookie(w, CookieRefresh)
	web.Success(w, http.StatusOK, "Logged out successfully.", nil)
}

func (h *Handler) VerifyAccount(w http.ResponseWriter, r *http.Request) {
	var body verifyRequest
	if !decodeBody(w, r, &body) {
		return
	}

	if errs := validateOTP(body.OTP); len(errs) > 0 {
		web.ValidationFailed(w, "verify_zod_validation_error", errs)
		return
	}
	if body.OTPType != PurposeSignup && body.OTPType != PurposeLogin {
		web.Error(w, http.StatusInternalServerError, "Something went wrong.")
		return
	}

	pair, err := h.service.VerifyAccount(r.Context(), cookieValue(r, CookieVerify), body.OTP, body.OTPType)
	if err != nil {
		var blocked BlockedError
		switch {
		case errors.Is(err, ErrTokenInvalid):
			web.Error(w, http.StatusUnauthorized, "Invalid or expired OTP verification token. Resend OTP.")
		case errors.Is(err, ErrUserNotFound):
			web.Error(w, http.StatusNotFound, "User not found. Sign up to continue.")
		case errors.Is(err, ErrGoogleAccount):
			web.Error(w, http.StatusBadRequest, "Email is linked to a Google account. Log in with Google.")
		case errors.As(err, &blocked):
			clock, unit := formatClock(time.Until(blocked.Until))
			web.Error(w, http.StatusForbidden, fmt.Sprintf("Too many invalid OTP attempts. Try again after %s %s.", clock, unit))
		case errors.Is(err, ErrOTPExpired):
			web.Error(w, http.StatusBadRequest, "OTP expired. Resend OTP.")
		case errors.Is(err, ErrOTPInvalid):
			web.Error(w, http.StatusBadRequest, "Invalid OTP. Try again.")
		default:
			h.internal(w, err)
		}
		return
	}

	clearTokenCookie(w, CookieVerify)
	clearTokenCookie(w, CookieResend)

	if pair != nil {
		setTokenCookie(w, CookieAccess, pair.Access)
		setTokenCookie(w, CookieRefresh, pair.Refresh)
		web.Success(w, http.StatusOK, "Account verified successfully. You are now logged in.", map[string]any{"verifyFrom": body.OTPType})
		return
	}

	web.Success(w, http.StatusOK, "Account verified successfully. Login now.", map[string]any{"verifyFrom": body.OTPType})
}

func (h *Handler) ResendOTP(w http.ResponseWriter, r *http.Request) {
	verify, err := h.service.ResendOTP(r.Context(), cookieValue(r, CookieResend))
	if err != nil {
		var blocked BlockedError
		var tooSoon TooSoonError
		switch {
		case errors.Is(err, ErrTokenInvalid):
			web.Error(w, http.StatusUnauthorized, "Invalid or expired OTP verification token. Sign up again.")
		case errors.Is(err, ErrUserNotFound):
			web.Error(w, http.StatusNotFound, "User not found. Sign up to continue.")
		case errors.Is(err, ErrGoogleAccount):
			web.Error(w, http.StatusBadRequest, "Email is linked to a Google account. Log in with Google.")
		case errors.As(err, &blocked):
			clock, unit := formatClock(time.Until(blocked.Until))
			web.Error(w, http.StatusForbidden, fmt.Sprintf("Too many invalid OTP attempts. Try again after %s %s.", clock, unit))
		case errors.As(err, &tooSoon):
			wait, unit := formatWait(time.Until(tooSoon.Until))
			web.Error(w, http.StatusBadRequest, fmt.Sprintf("Please wait %s %s before requesting a new OTP.", wait, unit))
		default:
			h.internal(w, err)
		}
		return
	}

	setTokenCookie(w, CookieVerify, verify)
	web.Success(w, http.StatusOK, "A new OTP has been sent successfully.", nil)
}

func (h *Handler) OTPExpireTime(w http.ResponseWriter, r *http.Request) {
	// An authenticated caller has no pending countdown.
	if cookieValue(r, CookieAccess) != "" || cookieValue(r, CookieRefresh) != "" {
		web.Success(w, http.StatusOK, "OTP expire time.", nil)
		return
	}

	expiresAt, err := h.service.OTPExpiry(r.Context(), cookieValue(r, CookieResend))
	if err != nil {
		switch {
		case errors.Is(err, ErrTokenInvalid):
			web.Error(w, http.StatusUnauthorized, "Invalid or expired OTP verification token. Resend OTP.")
		case errors.Is(err, ErrUserNotFound):
			web.Error(w, http.StatusNotFound, "User not found. Sign up to continue.")
		case errors.Is(err, ErrGoogleAccount):
			web.Error(w, http.StatusBadRequest, "Email is linked to a Google account. Log in with Google.")
		case isBlocked(err):
			web.Error(w, http.StatusForbidden, "User blocked for 1 hour.")
		default:
			h.internal(w, err)
		}
		return
	}

	web.Success(w, http.StatusOK, "OTP expire time.", expiresAt)
}

func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var body forgotPasswordRequest
	if !decodeBody(w, r, &body) {
		return
	}

	if errs := validateForgotEmail(body.Email); len(errs) > 0 {
		web.ValidationFailed(w, "forgot_email_submit_zod_validation_error", errs)
		return
	}

	pair, err := h.service.ForgotPassword(r.Context(), body.Email)
	if err != nil {
		switch {
		case errors.Is(err, ErrUserNotFound):
			web.Error(w, http.StatusNotFound, "User not registered.")
		case errors.Is(err, ErrGoogleAccount):
			web.Error(w, http.StatusBadRequest, "Email is linked to a Google account. Log in with Google.")
		case isBlocked(err):
			web.Error(w, http.StatusForbidden, "Account is temporarily blocked. Try again later.")
		default:
			h.internal(w, err)
		}
		return
	}

	setTokenCookie(w, CookieVerify, pair.Verify)
	setTokenCookie(w, CookieResend, pair.Resend)
	web.Success(w, http.StatusOK, "OTP sent to your email address.", nil)
}

func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var body resetPasswordRequest
	if !decodeBody(w, r, &body) {
		return
	}

	if errs := validateResetPassword(body.OTP, body.Password, body.ConfirmPassword); len(errs) > 0 {
		web.ValidationFailed(w, "reset_password_zod_validation_error", errs)
		return
	}

	err := h.service.ResetPassword(r.Context(), cookieValue(r, CookieVerify), body.OTP, body.Password)
	if err != nil {
		var blocked BlockedError
		switch {
		case errors.Is(err, ErrTokenInvalid):
			web.Error(w, http.StatusUnauthorized, "Invalid or expired OTP verification token. Resend OTP.")
		case errors.Is(err, ErrUserNotFound):
			web.Error(w, http.StatusNotFound, "User not found. Sign up to continue.")
		case errors.Is(err, ErrGoogleAccount):
			web.Error(w, http.StatusBadRequest, "Email is linked to a Google account. Log in with Google.")
		case errors.As(err, &blocked):
			clock, unit := formatClock(time.Until(blocked.Until))
			web.Error(w, http.StatusForbidden, fmt.Sprintf("Too many invalid OTP attempts. Try again after %s %s.", clock, unit))
		case errors.Is(err, ErrOTPExpired):
			web.Error(w, http.StatusBadRequest, "OTP expired. Resend OTP.")
		case errors.Is(err, ErrOTPInvalid):
			web.Error(w, http.StatusBadRequest, "Invalid OTP. Try again.")
		default:
			h.internal(w, err)
		}
		return
	}

	clearTokenCookie(w, CookieVerify)
	clearTokenCookie(w, CookieResend)
	web.Success(w, http.StatusOK, "Password reset successfully. You can now log in.", nil)
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	profile, ok := ProfileFrom(r.Context())
	if !ok {
		web.Error(w, http.StatusUnauthorized, "Unauthorized. No user found.")
		return
	}

	var body updateProfileRequest
	if !decodeBody(w, r, &body) {
		return
	}

	if errs := validateProfileName(body.Name); len(errs) > 0 {
		web.ValidationFailed(w, "update_zod_validation_error", errs)
		return
	}

	if err := h.service.UpdateName(r.Context(), profile.ID, body.Name); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			web.Error(w, http.StatusNotFound, "User not found.")
			return
		}
		h.internal(w, err)
		return
	}

	web.Success(w, http.StatusOK, "User profile updated.", nil)
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	profile, ok := ProfileFrom(r.Context())
	if !ok {
		web.Error(w, http.StatusUnauthorized, "Unauthorized. No user found.")
		return
	}

	web.Success(w, http.StatusOK, "User profile data.", map[string]any{
		"name":  profile.Name,
		"email": profile.Email,
		"role":  profile.Role,
	})
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	page := intQuery(query.Get("page"), 1)
	limit := intQuery(query.Get("limit"), 20)

	users, total, err := h.service.ListUsers(r.Context(), query.Get("search"), page, limit)
	if err != nil {
		h.internal(w, err)
		return
	}

	web.Success(w, http.StatusOK, "All users fetched successfully.", map[string]any{
		"users":         users,
		"allUsersCount": total,
	})
}

func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.PathValue("userId"))
	if userID == "" {
		web.Error(w, http.StatusBadRequest, "Missing user ID.")
		return
	}

	profile, ok := ProfileFrom(r.Context())
	if !ok {
		web.Error(w, http.StatusUnauthorized, "Unauthorized. No user found.")
		return
	}

	if err := h.service.DeleteUser(r.Context(), profile, userID); err != nil {
		switch {
		case errors.Is(err, ErrUserNotFound):
			web.Error(w, http.StatusNotFound, "User not found.")
		case errors.Is(err, ErrDeleteSelf):
			web.Error(w, http.StatusBadRequest, "You cannot delete your own account.")
		case errors.Is(err, ErrDeleteNonUser):
			web.Error(w, http.StatusForbidden, "Only regular users can be deleted.")
		default:
			h.internal(w, err)
		}
		return
	}

	web.Success(w, http.StatusOK, "User deleted successfully.", nil)
}

func (h *Handler) internal(w http.ResponseWriter, err error) {
	sentry.CaptureException(err)
	web.Error(w, http.StatusInternalServerError, "Internal server error.")
}

func decodeBody(w http.ResponseWriter, r *http.Request, target any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		web.Error(w, http.StatusBadRequest, "Invalid request body.")
		return false
	}
	return true
}

func isBlocked(err error) bool {
	var blocked BlockedError
	return errors.As(err, &blocked)
}

func intQuery(value string, fallback int) int {
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

// formatClock renders a remaining duration as HH:MM:SS plus the most
// significant unit word, matching the lockout message format.
func formatClock(d time.Duration) (string, string) {
	if d < 0 {
		d = 0
	}
	total := int(d.Seconds())
	hours, minutes, seconds := total/3600, (total/60)%60, total%60

	unit := "second"
	switch {
	case hours > 1:
		unit = "hours"
	case hours == 1:
		unit = "hour"
	case minutes > 1:
		unit = "minutes"
	case minutes == 1:
		unit = "minute"
	case seconds > 1:
		unit = "seconds"
	}

	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds), unit
}

// formatWait renders a short wait as MM:SS plus a unit word, for the
// resend countdown message.
func formatWait(d time.Duration) (string, string) {
	if d < 0 {
		d = 0
	}
	total := int(d.Seconds())
	minutes, seconds := total/60, total%60

	unit := "minutes"
	switch {
	case minutes > 1:
		unit = "minutes"
	case minutes == 1:
		unit = "minute"
	case seconds > 1:
		unit = "seconds"
	case seconds == 1:
		unit = "second"
	}

	return fmt.Sprintf("%02d:%02d", minutes, seconds), unit
}
