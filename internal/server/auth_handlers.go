package server

import (
	"github.com/SreeragSreekanth/Blogplatform/internal/middleware"
	"github.com/SreeragSreekanth/Blogplatform/internal/service"

	"github.com/gofiber/fiber/v2"
)

// Register handles POST /api/register/
// @Summary Register a user
// @Description Create an account. password and password2 must match.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{username=string,email=string,password=string,password2=string,bio=string,profile_picture=string} true "Registration"
// @Success 201 {object} models.User
// @Failure 400 {object} models.ErrorResponse
// @Router /register/ [post]
func (s *Server) Register(c *fiber.Ctx) error {
	var req struct {
		Username       string `json:"username"`
		Email          string `json:"email"`
		Password       string `json:"password"`
		Password2      string `json:"password2"`
		Bio            string `json:"bio"`
		ProfilePicture string `json:"profile_picture"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	user, err := s.authService.Register(c.UserContext(), service.RegisterInput{
		Username:       req.Username,
		Email:          req.Email,
		Password:       req.Password,
		Password2:      req.Password2,
		Bio:            req.Bio,
		ProfilePicture: req.ProfilePicture,
	})
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(user)
}

// ObtainToken handles POST /api/token/
// @Summary Obtain a token pair
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{username=string,password=string} true "Credentials"
// @Success 200 {object} service.TokenPair
// @Failure 401 {object} models.ErrorResponse
// @Router /token/ [post]
func (s *Server) ObtainToken(c *fiber.Ctx) error {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	pair, err := s.authService.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(pair)
}

// RefreshToken handles POST /api/token/refresh/
// @Summary Exchange a refresh token for a new access token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{refresh=string} true "Refresh token"
// @Success 200 {object} service.TokenPair
// @Failure 401 {object} models.ErrorResponse
// @Router /token/refresh/ [post]
func (s *Server) RefreshToken(c *fiber.Ctx) error {
	var req struct {
		Refresh string `json:"refresh"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	pair, err := s.authService.Refresh(c.UserContext(), req.Refresh)
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(pair)
}

// Logout handles POST /api/logout/. The refresh token and the access token
// used for the call are both blacklisted.
func (s *Server) Logout(c *fiber.Ctx) error {
	var req struct {
		Refresh string `json:"refresh"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	claims, _ := c.Locals("claims").(*middleware.TokenClaims)
	if err := s.authService.Logout(c.UserContext(), req.Refresh, claims); err != nil {
		return s.respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusResetContent)
}

// RequestPasswordReset handles POST /api/password-reset/.
// The answer is the same whether or not the address is registered.
func (s *Server) RequestPasswordReset(c *fiber.Ctx) error {
	var req struct {
		Email string `json:"email"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	if err := s.authService.RequestPasswordReset(c.UserContext(), req.Email); err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "If an account exists for that email, a password reset link has been sent.",
	})
}

// ConfirmPasswordReset handles POST /api/password-reset-confirm/
func (s *Server) ConfirmPasswordReset(c *fiber.Ctx) error {
	var req struct {
		UID           string `json:"uid"`
		Token         string `json:"token"`
		NewPassword   string `json:"new_password"`
		ReNewPassword string `json:"re_new_password"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	err := s.authService.ConfirmPasswordReset(c.UserContext(), service.ResetConfirmInput{
		UID:           req.UID,
		Token:         req.Token,
		NewPassword:   req.NewPassword,
		ReNewPassword: req.ReNewPassword,
	})
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Password has been reset."})
}
