package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	iauth "github.com/campusbridge/onboard/internal/auth"
	"github.com/campusbridge/onboard/internal/models"
	"github.com/campusbridge/onboard/internal/services"
	"github.com/campusbridge/onboard/pkg/errors"
	"github.com/campusbridge/onboard/pkg/response"
)

// AuthHandler manages signup, verification and login for one account kind.
type AuthHandler struct {
	kind         models.AccountKind
	accounts     *services.AccountService
	verification *services.VerificationService
	cookie       *iauth.SessionCookie
}

func NewAuthHandler(kind models.AccountKind, accounts *services.AccountService, verification *services.VerificationService, cookie *iauth.SessionCookie) *AuthHandler {
	if cookie == nil {
		cookie = iauth.NewSessionCookie(iauth.CookieConfig{})
	}
	return &AuthHandler{kind: kind, accounts: accounts, verification: verification, cookie: cookie}
}

type signupRequest struct {
	InstituteName string `json:"institute_name" validate:"omitempty,max=200"`
	FullName      string `json:"full_name" validate:"omitempty,max=200"`
	Name          string `json:"name" validate:"omitempty,max=200"`
	Email         string `json:"email" validate:"required"`
	Phone         string `json:"phone"`
	Contact       string `json:"contact"`
	Password      string `json:"password" validate:"required"`
}

func (r signupRequest) name() string {
	for _, candidate := range []string{r.InstituteName, r.FullName, r.Name} {
		if strings.TrimSpace(candidate) != "" {
			return candidate
		}
	}
	return ""
}

func (r signupRequest) phone() string {
	if strings.TrimSpace(r.Phone) != "" {
		return r.Phone
	}
	return r.Contact
}

// POST /api/{kind}/auth/signup
func (h *AuthHandler) Signup(c *gin.Context) {
	var req signupRequest
	if !bindAndValidate(c, &req) {
		return
	}

	result, err := h.accounts.Signup(requestContext(c), services.SignupInput{
		Kind:     h.kind,
		Name:     req.name(),
		Email:    req.Email,
		Phone:    req.phone(),
		Password: req.Password,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	response.Success(c, status, gin.H{
		"user":      result.Account,
		"userType":  h.kind,
		"code_sent": result.CodeSent,
	})
}

type verifyRequest struct {
	Email string `json:"email" validate:"required"`
	Code  string `json:"code" validate:"required"`
}

// POST /api/{kind}/verify
func (h *AuthHandler) Verify(c *gin.Context) {
	var req verifyRequest
	if !bindAndValidate(c, &req) {
		return
	}

	record, err := h.verification.Verify(requestContext(c), h.kind, req.Email, req.Code)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"user":     record,
		"userType": h.kind,
		"verified": true,
	})
}

type resendRequest struct {
	Email string `json:"email" validate:"required"`
}

// POST /api/{kind}/resend-code
func (h *AuthHandler) Resend(c *gin.Context) {
	var req resendRequest
	if !bindAndValidate(c, &req) {
		return
	}

	record, err := h.verification.Resend(requestContext(c), h.kind, req.Email)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"email":              record.AccountBase().Email,
		"expires_in_seconds": int(h.verification.CodeTTL().Seconds()),
	})
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Password   string `json:"password" validate:"required"`
}

func (r loginRequest) identifier() string {
	for _, candidate := range []string{r.Identifier, r.Email, r.Phone} {
		if trimmed := strings.TrimSpace(candidate); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

// POST /api/{kind}/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindAndValidate(c, &req) {
		return
	}
	identifier := req.identifier()
	if identifier == "" {
		response.Error(c, errors.NewValidation(map[string]string{"identifier": "email or phone is required"}))
		return
	}

	result, err := h.accounts.Login(requestContext(c), h.kind, identifier, req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.cookie.Set(c, result.Token, result.ExpiresIn)
	response.Success(c, http.StatusOK, gin.H{
		"token":      result.Token,
		"expires_in": int(result.ExpiresIn.Seconds()),
		"user":       result.Account,
		"userType":   h.kind,
	})
}

// POST /api/{kind}/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	h.cookie.Clear(c)
	response.Success(c, http.StatusOK, gin.H{"logged_out": true})
}

// PasswordHandler serves the shared password reset endpoints.
type PasswordHandler struct {
	resets *services.PasswordResetService
}

func NewPasswordHandler(resets *services.PasswordResetService) *PasswordHandler {
	return &PasswordHandler{resets: resets}
}

type forgotPasswordRequest struct {
	Email    string `json:"email" validate:"required"`
	UserType string `json:"user_type" validate:"required"`
}

// POST /api/auth/forgot-password
func (h *PasswordHandler) ForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if !bindAndValidate(c, &req) {
		return
	}
	kind, ok := models.ParseAccountKind(req.UserType)
	if !ok {
		response.Error(c, errors.NewValidation(map[string]string{"user_type": "user_type must be institute or student"}))
		return
	}

	if err := h.resets.RequestReset(requestContext(c), kind, req.Email); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"message": "If an account exists for this email, a reset link has been sent",
	})
}

type resetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required"`
}

// POST /api/auth/reset-password
func (h *PasswordHandler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.resets.ResetPassword(requestContext(c), req.Token, req.NewPassword); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"reset": true})
}
