package http

import (
	"net/http"

	"github.com/dkeye/Chat/internal/domain"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type registerRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (a *API) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "username, email and password are required")
		return
	}
	u, err := domain.NewUser(req.Username, req.Email)
	if err != nil {
		respondErr(c, err)
		return
	}
	if err := a.Store.CreateUser(u, req.Password); err != nil {
		respondErr(c, err)
		return
	}
	if err := startSession(c, u.ID); err != nil {
		respondErr(c, err)
		return
	}
	log.Info().Str("module", "adapters.http").Str("user", string(u.ID)).Str("username", u.Username).Msg("registered")
	c.JSON(http.StatusCreated, u)
}

func (a *API) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "email and password are required")
		return
	}
	u, err := a.Store.Authenticate(req.Email, req.Password)
	if err != nil {
		respondErr(c, err)
		return
	}
	if err := startSession(c, u.ID); err != nil {
		respondErr(c, err)
		return
	}
	log.Info().Str("module", "adapters.http").Str("user", string(u.ID)).Msg("login")
	c.JSON(http.StatusOK, u)
}

func (a *API) logout(c *gin.Context) {
	s := sessions.Default(c)
	s.Clear()
	s.Options(sessions.Options{Path: "/", MaxAge: -1})
	if err := s.Save(); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (a *API) me(c *gin.Context) {
	u, err := a.Store.UserByID(currentUser(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}
