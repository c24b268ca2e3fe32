package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-journal/internal/auth"
	"github.com/tbourn/go-journal/internal/http/middleware"
	"github.com/tbourn/go-journal/internal/services"
)

// Register godoc
// @ID          register
// @Summary     Create an account
// @Description Registers an account. When email confirmation is required the response status is "pending_confirmation" and no session is opened.
// @Tags        Auth
// @Accept      json
// @Produce     json
// @Param       body  body      handlers.RegisterRequest  true  "Account details"
// @Success     201   {object}  handlers.RegisterResponse
// @Failure     400   {object}  handlers.ErrorResponse  "Invalid email or password"
// @Failure     409   {object}  handlers.ErrorResponse  "Email already registered"
// @Failure     500   {object}  handlers.ErrorResponse  "Internal error"
// @Router      /auth/register [post]
func (h *Handlers) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	reg, err := h.auth.Register(c.Request.Context(), req.Email, req.Password, req.Name)
	switch {
	case errors.Is(err, auth.ErrInvalidInput):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	case errors.Is(err, auth.ErrDuplicateEmail):
		fail(c, http.StatusConflict, ErrCodeConflict, "email already registered")
		return
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "registration failed", err)
		return
	}

	resp := RegisterResponse{
		User:   NewUserResponse(reg.Account),
		Status: services.RegistrationActive.String(),
	}
	if reg.Pending() {
		resp.Status = services.RegistrationPendingConfirmation.String()
		resp.ConfirmationToken = reg.ConfirmToken
	} else {
		resp.SessionToken = reg.Token
	}
	middleware.LoggerFrom(c).Info().
		Str("user_id", reg.Account.ID).
		Str("status", resp.Status).
		Msg("account registered")
	ok(c, http.StatusCreated, resp)
}

// Login godoc
// @ID          login
// @Summary     Sign in
// @Tags        Auth
// @Accept      json
// @Produce     json
// @Param       body  body      handlers.LoginRequest  true  "Credentials"
// @Success     200   {object}  handlers.LoginResponse
// @Failure     400   {object}  handlers.ErrorResponse  "Invalid JSON"
// @Failure     401   {object}  handlers.ErrorResponse  "Invalid email or password"
// @Failure     403   {object}  handlers.ErrorResponse  "Email not confirmed"
// @Failure     500   {object}  handlers.ErrorResponse  "Internal error"
// @Router      /auth/login [post]
func (h *Handlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	acct, token, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		fail(c, http.StatusUnauthorized, ErrCodeInvalidCredentials, "invalid email or password")
		return
	case errors.Is(err, auth.ErrUnconfirmed):
		fail(c, http.StatusForbidden, ErrCodeEmailNotConfirmed, "confirm your email before signing in")
		return
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "sign in failed", err)
		return
	}
	ok(c, http.StatusOK, LoginResponse{User: NewUserResponse(acct), SessionToken: token})
}

// Confirm godoc
// @ID          confirmEmail
// @Summary     Confirm an email address
// @Tags        Auth
// @Accept      json
// @Param       body  body  handlers.ConfirmRequest  true  "Confirmation token"
// @Success     204   {string}  string  "No Content"
// @Failure     400   {object}  handlers.ErrorResponse  "Unknown or malformed token"
// @Router      /auth/confirm [post]
func (h *Handlers) Confirm(c *gin.Context) {
	var req ConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	_, err := h.auth.Confirm(c.Request.Context(), req.Token)
	switch {
	case errors.Is(err, auth.ErrInvalidToken):
		fail(c, http.StatusBadRequest, ErrCodeInvalidToken, "unknown confirmation token")
		return
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "confirmation failed", err)
		return
	}
	noContent(c)
}

// Logout godoc
// @ID          logout
// @Summary     Sign out
// @Description Revokes the session behind the bearer token.
// @Tags        Auth
// @Security    BearerAuth
// @Success     204  {string}  string  "No Content"
// @Failure     401  {object}  handlers.ErrorResponse  "Not signed in"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /auth/logout [post]
func (h *Handlers) Logout(c *gin.Context) {
	if err := h.auth.Logout(c.Request.Context(), middleware.SessionToken(c)); err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "sign out failed", err)
		return
	}
	noContent(c)
}

// Session godoc
// @ID          currentSession
// @Summary     Current session
// @Tags        Auth
// @Security    BearerAuth
// @Produce     json
// @Success     200  {object}  handlers.SessionResponse
// @Failure     401  {object}  handlers.ErrorResponse  "Not signed in"
// @Router      /auth/session [get]
func (h *Handlers) Session(c *gin.Context) {
	acct, _, err := h.auth.Authenticate(c.Request.Context(), middleware.SessionToken(c))
	if err != nil {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "invalid or expired session")
		return
	}
	ok(c, http.StatusOK, SessionResponse{User: NewUserResponse(acct)})
}
