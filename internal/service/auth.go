package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Skotchmaster/gpio_shop/internal/events"
	"github.com/Skotchmaster/gpio_shop/internal/hash"
	"github.com/Skotchmaster/gpio_shop/internal/logging"
	"github.com/Skotchmaster/gpio_shop/internal/models"
	"github.com/Skotchmaster/gpio_shop/internal/repo"
	"github.com/Skotchmaster/gpio_shop/internal/tokens"
)

type AuthService struct {
	Repo   repo.PrincipalRepo
	Tokens *tokens.Issuer
	Events events.Publisher
}

type LoginResult struct {
	Token     string
	ExpiresAt time.Time
}

func validateCredentials(email, password string) error {
	if strings.TrimSpace(email) == "" {
		return fmt.Errorf("%w: email required", ErrValidation)
	}
	if password == "" {
		return fmt.Errorf("%w: password required", ErrValidation)
	}
	return nil
}

func (s *AuthService) Register(ctx context.Context, role models.Role, email, password string) error {
	l := logging.FromContext(ctx).With("svc", "auth.register", "role", role)

	if err := validateCredentials(email, password); err != nil {
		return err
	}

	pwHash, err := hash.HashPassword(password)
	if err != nil {
		l.Error("register_error", "status", 500, "reason", "cannot hash the password", "error", err)
		return err
	}

	p := models.Principal{
		Email:        email,
		PasswordHash: pwHash,
	}
	if err := s.Repo.CreatePrincipal(ctx, role, &p); err != nil {
		if errors.Is(err, repo.ErrAlreadyExist) {
			l.Warn("register_error", "status", 409, "reason", "email already registered")
			return fmt.Errorf("%w: email already registered", ErrConflict)
		}
		l.Error("register_error", "status", 500, "reason", "cannot store principal", "error", err)
		return err
	}

	publish(ctx, s.Events, events.TopicUser, p.ID, map[string]any{
		"type":  string(role) + "_registered",
		"id":    p.ID,
		"email": p.Email,
	})
	return nil
}

func (s *AuthService) Login(ctx context.Context, role models.Role, email, password string) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login", "role", role)

	if err := validateCredentials(email, password); err != nil {
		return nil, err
	}

	p, err := s.Repo.FindPrincipalByEmail(ctx, role, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			l.Warn("login_failed", "status", 400, "reason", "unknown email")
			return nil, ErrInvalidCredentials
		}
		l.Error("login_failed", "status", 500, "error", err)
		return nil, err
	}

	if !hash.CheckPassword(p.PasswordHash, password) {
		l.Warn("login_failed", "status", 400, "reason", "password mismatch")
		return nil, ErrInvalidCredentials
	}

	token, exp, err := s.Tokens.Issue(role, p.ID)
	if err != nil {
		l.Error("login_failed", "status", 500, "reason", "cannot sign token", "error", err)
		return nil, err
	}

	return &LoginResult{Token: token, ExpiresAt: exp}, nil
}
