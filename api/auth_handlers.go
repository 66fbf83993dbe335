package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"taskflow-api/domain"
)

func postLogin(users UserStore, auth SessionAuth, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		var req loginRequest
		if err := decodeBody(c, &req); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid body"})
		}
		if req.Email == "" || req.Password == "" {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "Email and password are required"})
		}

		user, err := users.FindUserByEmail(ctx, req.Email)
		if err != nil {
			var nfe *domain.NotFoundError
			if errors.As(err, &nfe) {
				logger.WithField("email", req.Email).Debug("login: unknown email")
				return c.JSON(http.StatusUnauthorized, errorResponse{Error: domain.ErrInvalidCredentials.Message})
			}
			return writeError(c, err)
		}
		if bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(req.Password)) != nil {
			logger.WithField("email", req.Email).Debug("login: password mismatch")
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: domain.ErrInvalidCredentials.Message})
		}

		token, err := auth.IssueToken(user)
		if err != nil {
			return writeError(c, err)
		}

		logger.WithField("user", user.ID).Info("user logged in")
		return c.JSON(http.StatusOK, authResponse{
			Success: true,
			User:    &userPayload{ID: user.ID, Name: user.Name, Email: user.Email},
			Token:   token,
		})
	}
}

func postRegister(users UserStore, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		var req registerRequest
		if err := decodeBody(c, &req); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid body"})
		}
		if msg := validateRegistration(req); msg != "" {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: msg})
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			return writeError(c, err)
		}

		user := domain.User{
			ID:           uuid.NewString(),
			Name:         req.Name,
			Email:        req.Email,
			PasswordHash: hash,
		}
		if err := users.CreateUser(ctx, user); err != nil {
			return writeError(c, err)
		}

		logger.WithField("user", user.ID).Info("user registered")
		return c.JSON(http.StatusOK, authResponse{
			Success: true,
			Message: "Account created successfully! Please sign in with your credentials.",
			User:    &userPayload{ID: user.ID, Name: user.Name, Email: user.Email},
		})
	}
}

func validateRegistration(req registerRequest) string {
	if strings.TrimSpace(req.Name) == "" {
		return "Name is required"
	}
	if strings.TrimSpace(req.Email) == "" {
		return "Email is required"
	}
	if !domain.ValidEmail(req.Email) {
		return "Email is invalid"
	}
	if req.Password == "" {
		return "Password is required"
	}
	if len(req.Password) < 6 {
		return "Password must be at least 6 characters"
	}
	return ""
}
