package http

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/kitaplik/internal/apperror"
	"github.com/mrlokans/kitaplik/internal/auth"
	"github.com/mrlokans/kitaplik/internal/entities"
)

type signUpRequest struct {
	Username string `json:"user_name" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type tokenRequest struct {
	Token string `json:"token" binding:"required"`
}

type loginRequest struct {
	Username string `json:"user_name" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type googleLoginRequest struct {
	IDToken string `json:"id_token" binding:"required"`
}

type resetRequest struct {
	Email string `json:"email" binding:"required"`
}

type newPasswordRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type visibilityRequest struct {
	UserVisibility    bool `json:"user_visibility"`
	LibraryVisibility bool `json:"library_visibility"`
}

type authorityRequest struct {
	AuthorityID entities.AuthorityID `json:"authority_id" binding:"required"`
}

// UsersController serves /api/users: signup, login, password reset and
// account administration.
type UsersController struct {
	service  AccountService
	sessions SessionStarter
}

func NewUsersController(service AccountService, sessions SessionStarter) *UsersController {
	return &UsersController{service: service, sessions: sessions}
}

// SignUp mails a verification link; the account is created by Verify
// POST /api/users/signup
func (uc *UsersController) SignUp(c *gin.Context) {
	var req signUpRequest
	if !bindJSON(c, &req) {
		return
	}
	err := uc.service.SignUp(c.Request.Context(), auth.SignUpInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondMessage(c, http.StatusCreated, "mail sent")
}

// POST /api/users/verify
func (uc *UsersController) Verify(c *gin.Context) {
	var req tokenRequest
	if !bindJSON(c, &req) {
		return
	}
	if _, err := uc.service.VerifyEmail(c.Request.Context(), req.Token); err != nil {
		respondError(c, err)
		return
	}
	respondMessage(c, http.StatusCreated, "User successfully created!")
}

// Login accepts a username or verified email in user_name
// POST /api/users/login
func (uc *UsersController) Login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := uc.service.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if apperror.KindOf(err) == apperror.KindRateLimited {
			c.Header("Retry-After", "60")
		}
		respondError(c, err)
		return
	}
	uc.startSession(c, user)
}

// POST /api/users/login/google
func (uc *UsersController) GoogleLogin(c *gin.Context) {
	var req googleLoginRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := uc.service.LoginWithGoogle(c.Request.Context(), req.IDToken)
	if err != nil {
		respondError(c, err)
		return
	}
	uc.startSession(c, user)
}

func (uc *UsersController) startSession(c *gin.Context, user *entities.User) {
	if err := uc.sessions.CreateSession(c.Request.Context(), user); err != nil {
		respondError(c, apperror.Internal("failed to create session", err))
		return
	}
	log.Printf("[AUTH] User %d logged in", user.ID)
	respondCreated(c, user)
}

// POST /api/users/logout
func (uc *UsersController) Logout(c *gin.Context) {
	if err := uc.sessions.DestroySession(c.Request.Context()); err != nil {
		respondError(c, apperror.Internal("failed to destroy session", err))
		return
	}
	c.Status(http.StatusNoContent)
}

// RequestReset mails a password reset link
// POST /api/users/reset-password
func (uc *UsersController) RequestReset(c *gin.Context) {
	var req resetRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := uc.service.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		respondError(c, err)
		return
	}
	respondMessage(c, http.StatusCreated, "mail sent")
}

// POST /api/users/new-password
func (uc *UsersController) NewPassword(c *gin.Context) {
	var req newPasswordRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := uc.service.ResetPassword(c.Request.Context(), req.Token, req.Password); err != nil {
		respondError(c, err)
		return
	}
	respondMessage(c, http.StatusCreated, "Password successfully changed.")
}

// GET /api/users/me
func (uc *UsersController) Me(c *gin.Context) {
	if user := auth.GetUser(c); user != nil {
		c.JSON(http.StatusOK, user)
		return
	}
	user, err := uc.service.GetUser(c.Request.Context(), auth.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// PATCH /api/users/me/visibility
func (uc *UsersController) UpdateVisibility(c *gin.Context) {
	var req visibilityRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := uc.service.UpdateVisibility(c.Request.Context(), auth.GetUserID(c), req.UserVisibility, req.LibraryVisibility)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// GET /api/users
func (uc *UsersController) List(c *gin.Context) {
	list, err := uc.service.ListUsers(c.Request.Context(), auth.GetPrincipal(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// PATCH /api/users/:id/authority
func (uc *UsersController) UpdateAuthority(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req authorityRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := uc.service.UpdateAuthority(c.Request.Context(), auth.GetPrincipal(c), id, req.AuthorityID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// Grid lists public profiles with reading counts
// GET /api/users/grid
func (uc *UsersController) Grid(c *gin.Context) {
	grid, err := uc.service.UserGrid(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, grid)
}
