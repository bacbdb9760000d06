package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/lemonauth/internal/common"
	"github.com/dmitrijs2005/lemonauth/internal/server/auth"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerResponse struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type tokenPairResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type mfaChallengeResponse struct {
	MFARequired bool   `json:"mfaRequired"`
	MFAToken    string `json:"mfaToken"`
}

type mfaLoginRequest struct {
	MFAToken string `json:"mfaToken"`
	MFACode  string `json:"mfaCode"`
}

type refreshTokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type accessTokenResponse struct {
	AccessToken string `json:"accessToken"`
}

type userIDRequest struct {
	UserID string `json:"userId"`
}

type tokenRequest struct {
	Token string `json:"token"`
}

type emailRequest struct {
	Email string `json:"email"`
}

type emailCodeRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type emailOTPRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

type resetPasswordRequest struct {
	Email       string `json:"email"`
	OTP         string `json:"otp"`
	NewPassword string `json:"newPassword"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if req.Username == "" || req.Email == "" || req.Password == "" {
		writeErrorMessage(w, http.StatusBadRequest, "username, email and password are required")
		return
	}

	user, err := h.auth.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, registerResponse{ID: user.ID, Email: user.Email, Username: user.Username})
}

// Login answers 206 with an MFA challenge when the account has MFA enabled.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if req.Identifier == "" || req.Password == "" {
		writeErrorMessage(w, http.StatusBadRequest, "identifier and password are required")
		return
	}

	res, err := h.auth.Login(r.Context(), req.Identifier, req.Password)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	if res.MFARequired {
		writeJSON(w, http.StatusPartialContent, mfaChallengeResponse{MFARequired: true, MFAToken: res.MFAToken})
		return
	}
	writeJSON(w, http.StatusOK, tokenPairResponse{AccessToken: res.Tokens.AccessToken, RefreshToken: res.Tokens.RefreshToken})
}

func (h *Handler) MFALogin(w http.ResponseWriter, r *http.Request) {
	var req mfaLoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if req.MFAToken == "" || req.MFACode == "" {
		writeErrorMessage(w, http.StatusBadRequest, "mfaToken and mfaCode are required")
		return
	}

	userID, err := auth.GetUserIDFromMFAToken(req.MFAToken, h.jwtSecret)
	if err != nil {
		writeErrorMessage(w, http.StatusUnauthorized, "invalid or expired MFA token")
		return
	}

	tokens, err := h.mfa.VerifyAndIssueTokens(r.Context(), userID, req.MFACode)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, tokenPairResponse{AccessToken: tokens.AccessToken, RefreshToken: tokens.RefreshToken})
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshTokenRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if req.RefreshToken == "" {
		writeErrorMessage(w, http.StatusBadRequest, "refresh token is required")
		return
	}

	access, err := h.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, accessTokenResponse{AccessToken: access})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	var req refreshTokenRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if req.RefreshToken == "" {
		writeErrorMessage(w, http.StatusBadRequest, "refresh token is required")
		return
	}

	if err := h.auth.Logout(r.Context(), req.RefreshToken); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeMessage(w, "logged out successfully")
}

func (h *Handler) SendEmailVerification(w http.ResponseWriter, r *http.Request) {
	var req userIDRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if req.UserID == "" {
		writeErrorMessage(w, http.StatusBadRequest, "user id is required")
		return
	}

	if err := h.auth.SendEmailVerification(r.Context(), req.UserID); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeMessage(w, "verification email sent")
}

func (h *Handler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if req.Token == "" {
		writeErrorMessage(w, http.StatusBadRequest, "verification token is required")
		return
	}

	if err := h.auth.VerifyEmail(r.Context(), req.Token); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeMessage(w, "email verified successfully")
}

func (h *Handler) VerifyEmailWithCode(w http.ResponseWriter, r *http.Request) {
	var req emailCodeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if req.Email == "" || req.Code == "" {
		writeErrorMessage(w, http.StatusBadRequest, "email and code are required")
		return
	}

	if err := h.auth.VerifyEmailWithCode(r.Context(), req.Email, req.Code); err != nil {
		writeError(w, r, h.logger, hideAccountState(err))
		return
	}

	writeMessage(w, "email verified successfully")
}

// ResendVerificationCode answers the same way whether or not the address
// belongs to an unverified account.
func (h *Handler) ResendVerificationCode(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if req.Email == "" {
		writeErrorMessage(w, http.StatusBadRequest, "email is required")
		return
	}

	err := h.auth.ResendVerificationCode(r.Context(), req.Email)
	if err != nil && !errors.Is(err, common.ErrorNotFound) && !errors.Is(err, common.ErrAlreadyVerified) {
		writeError(w, r, h.logger, err)
		return
	}

	writeMessage(w, "if the account exists and is unverified, a new code has been sent")
}

// ForgotPassword answers the same way whether or not the address exists.
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if req.Email == "" {
		writeErrorMessage(w, http.StatusBadRequest, "email is required")
		return
	}

	err := h.auth.ForgotPassword(r.Context(), req.Email)
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		writeError(w, r, h.logger, err)
		return
	}

	writeMessage(w, "if the account exists, an OTP has been sent to its email")
}

func (h *Handler) VerifyForgotOTP(w http.ResponseWriter, r *http.Request) {
	var req emailOTPRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if req.Email == "" || req.OTP == "" {
		writeErrorMessage(w, http.StatusBadRequest, "email and OTP are required")
		return
	}

	if err := h.auth.VerifyForgotOTP(r.Context(), req.Email, req.OTP); err != nil {
		writeError(w, r, h.logger, hideUnknownAccount(err))
		return
	}

	writeMessage(w, "OTP verified")
}

func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if req.Email == "" || req.OTP == "" || req.NewPassword == "" {
		writeErrorMessage(w, http.StatusBadRequest, "email, OTP and new password are required")
		return
	}

	if err := h.auth.ResetPassword(r.Context(), req.Email, req.OTP, req.NewPassword); err != nil {
		writeError(w, r, h.logger, hideUnknownAccount(err))
		return
	}

	writeMessage(w, "password reset successfully")
}

// hideUnknownAccount reports a missing account as bad credentials.
func hideUnknownAccount(err error) error {
	if errors.Is(err, common.ErrorNotFound) {
		return common.ErrInvalidCredentials
	}
	return err
}

// hideAccountState answers an unknown, already verified or code-less account
// exactly like a wrong code.
func hideAccountState(err error) error {
	switch {
	case errors.Is(err, common.ErrorNotFound),
		errors.Is(err, common.ErrAlreadyVerified),
		errors.Is(err, common.ErrNoPendingCode),
		errors.Is(err, common.ErrInvalidCredentials):
		return common.ErrInvalidCredentials
	}
	return err
}
