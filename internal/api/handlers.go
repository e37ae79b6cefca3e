package api

import (
	"encoding/base64"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/Rida-Lamiini/Chat-app/internal/auth"
)

func jsonError(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{"status": "error", "message": msg})
}

func (s *Server) requireAuth(c *fiber.Ctx) error {
	token := strings.TrimPrefix(c.Get("Authorization"), "Bearer ")
	if token == "" {
		token = c.Query("token")
	}
	if token == "" {
		return jsonError(c, fiber.StatusUnauthorized, "missing auth")
	}
	uid, err := s.tokens.Verify(token)
	if err != nil {
		return jsonError(c, fiber.StatusUnauthorized, "invalid token")
	}
	c.Locals("user_id", uid)
	return c.Next()
}

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	// base64-encoded avatar image, optional
	Avatar string `json:"avatar,omitempty"`
}

func (s *Server) handleSignup(c *fiber.Ctx) error {
	var req signupRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid body")
	}
	var avatar []byte
	if req.Avatar != "" {
		var err error
		avatar, err = base64.StdEncoding.DecodeString(req.Avatar)
		if err != nil {
			return jsonError(c, fiber.StatusBadRequest, "invalid avatar encoding")
		}
	}
	p, err := s.authSvc.Signup(c.Context(), req.Name, req.Email, req.Password, avatar)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrMissingFields):
			return jsonError(c, fiber.StatusBadRequest, err.Error())
		case errors.Is(err, auth.ErrEmailTaken):
			return jsonError(c, fiber.StatusConflict, err.Error())
		default:
			s.log.Errorw("signup", "err", err)
			return jsonError(c, fiber.StatusInternalServerError, "signup failed")
		}
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"status": "ok", "data": p})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid body")
	}
	p, token, err := s.authSvc.Login(c.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			return jsonError(c, fiber.StatusUnauthorized, err.Error())
		}
		s.log.Errorw("login", "err", err)
		return jsonError(c, fiber.StatusInternalServerError, "login failed")
	}
	return c.JSON(fiber.Map{"status": "ok", "data": fiber.Map{"token": token, "user": p}})
}

type userView struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	ProfilePhoto string `json:"profile_photo,omitempty"`
	Online       bool   `json:"online"`
}

func (s *Server) handleListUsers(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	profiles, err := s.store.ListProfiles(c.Context())
	if err != nil {
		s.log.Errorw("list users", "err", err)
		return jsonError(c, fiber.StatusInternalServerError, "list users failed")
	}
	out := make([]userView, 0, len(profiles))
	for _, p := range profiles {
		if p.ID == uid {
			continue
		}
		online, err := s.presence.IsOnline(c.Context(), p.ID)
		if err != nil {
			s.log.Warnw("presence lookup", "user", p.ID, "err", err)
		}
		out = append(out, userView{ID: p.ID, Name: p.Name, ProfilePhoto: p.ProfilePhoto, Online: online})
	}
	return c.JSON(fiber.Map{"status": "ok", "data": out})
}
