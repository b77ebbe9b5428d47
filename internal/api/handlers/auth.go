package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/baharkarakas/averulo-backend/internal/api/httpx"
	"github.com/baharkarakas/averulo-backend/internal/api/validate"
	"github.com/baharkarakas/averulo-backend/internal/auth"
	"github.com/baharkarakas/averulo-backend/internal/models"
	"github.com/baharkarakas/averulo-backend/internal/services"
)

type AuthHandler struct {
	otp   *auth.OTPService
	users *services.UserService
	log   *slog.Logger
}

func NewAuthHandler(otp *auth.OTPService, users *services.UserService, log *slog.Logger) *AuthHandler {
	return &AuthHandler{otp: otp, users: users, log: log}
}

type sendOTPReq struct {
	Email string `json:"email" validate:"required,email"`
}

type sendOTPResp struct {
	Message string `json:"message"`
	DevOTP  string `json:"devOtp,omitempty"`
}

func (h *AuthHandler) SendOTP(w http.ResponseWriter, r *http.Request) {
	var req sendOTPReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	code, err := h.otp.Send(r.Context(), req.Email)
	if err != nil {
		h.log.Error("send otp", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "otp_send_failed", "failed to send OTP", nil)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, sendOTPResp{Message: "OTP sent", DevOTP: code})
}

type verifyOTPReq struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required,len=6,numeric"`
}

type tokenResp struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req verifyOTPReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	tok, u, err := h.otp.Verify(r.Context(), req.Email, req.OTP)
	if errors.Is(err, auth.ErrInvalidCode) {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_otp", "invalid or expired OTP", nil)
		return
	}
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, tokenResp{Token: tok, User: u})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	u, err := h.users.Me(r.Context(), actor(r))
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, u)
}
