package service

import (
	"context"
	"encoding/base64"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/SreeragSreekanth/Blogplatform/internal/mail"
	"github.com/SreeragSreekanth/Blogplatform/internal/middleware"
	"github.com/SreeragSreekanth/Blogplatform/internal/models"
	"github.com/SreeragSreekanth/Blogplatform/internal/repository"
	"github.com/SreeragSreekanth/Blogplatform/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

var bcryptCost = bcrypt.DefaultCost

// TokenRevoker blacklists token ids until they expire.
type TokenRevoker interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

type AuthConfig struct {
	Secret      string
	AccessTTL   time.Duration
	RefreshTTL  time.Duration
	ResetTTL    time.Duration
	FrontendURL string
}

// AuthService handles registration, JWT issuance and password resets.
type AuthService struct {
	userRepo  repository.UserRepository
	blacklist TokenRevoker
	mailer    mail.Sender
	cfg       AuthConfig
}

type RegisterInput struct {
	Username       string
	Email          string
	Password       string
	Password2      string
	Bio            string
	ProfilePicture string
}

type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}

type ResetConfirmInput struct {
	UID           string
	Token         string
	NewPassword   string
	ReNewPassword string
}

func NewAuthService(userRepo repository.UserRepository, blacklist TokenRevoker, mailer mail.Sender, cfg AuthConfig) *AuthService {
	return &AuthService{userRepo: userRepo, blacklist: blacklist, mailer: mailer, cfg: cfg}
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.ToLower(strings.TrimSpace(in.Email))

	if err := validation.ValidateUsername(username); err != nil {
		return nil, models.NewFieldValidationError("username", err.Error())
	}
	if err := validation.ValidateEmail(email); err != nil {
		return nil, models.NewFieldValidationError("email", err.Error())
	}
	if in.Password != in.Password2 {
		return nil, models.NewFieldValidationError("password", "Password fields didn't match.")
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, models.NewFieldValidationError("password", err.Error())
	}

	if existing, err := s.userRepo.GetByUsername(ctx, username); err != nil {
		return nil, appError(err)
	} else if existing != nil {
		return nil, models.NewFieldValidationError("username", "A user with that username already exists.")
	}
	if existing, err := s.userRepo.GetByEmail(ctx, email); err != nil {
		return nil, appError(err)
	} else if existing != nil {
		return nil, models.NewFieldValidationError("email", "A user with that email already exists.")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcryptCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	user := &models.User{
		Username:       username,
		Email:          email,
		Password:       string(hash),
		Bio:            StripTags(in.Bio),
		ProfilePicture: in.ProfilePicture,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, models.NewValidationError("A user with that username or email already exists.")
		}
		return nil, appError(err)
	}
	return user, nil
}

// Login checks credentials and returns an access/refresh pair.
func (s *AuthService) Login(ctx context.Context, username, password string) (*TokenPair, error) {
	invalid := models.NewUnauthorizedError("No active account found with the given credentials")

	user, err := s.userRepo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, appError(err)
	}
	if user == nil {
		return nil, invalid
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, invalid
	}

	access, _, err := middleware.SignToken(s.cfg.Secret, "", middleware.TokenTypeAccess, user.ID, s.cfg.AccessTTL)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	refresh, _, err := middleware.SignToken(s.cfg.Secret, "", middleware.TokenTypeRefresh, user.ID, s.cfg.RefreshTTL)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &TokenPair{Access: access, Refresh: refresh}, nil
}

// Refresh exchanges a live refresh token for a new access token.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.verify(ctx, refreshToken, middleware.TokenTypeRefresh)
	if err != nil {
		return nil, err
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, models.NewUnauthorizedError("Token is invalid or expired")
	}
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			return nil, models.NewUnauthorizedError("User not found")
		}
		return nil, appError(err)
	}
	access, _, err := middleware.SignToken(s.cfg.Secret, "", middleware.TokenTypeAccess, userID, s.cfg.AccessTTL)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &TokenPair{Access: access}, nil
}

// Authenticate validates an access token and returns its user id and claims.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (uint, *middleware.TokenClaims, error) {
	claims, err := s.verify(ctx, accessToken, middleware.TokenTypeAccess)
	if err != nil {
		return 0, nil, err
	}
	userID, err := claims.UserID()
	if err != nil {
		return 0, nil, models.NewUnauthorizedError("Token is invalid or expired")
	}
	return userID, claims, nil
}

// Logout blacklists the refresh token and, when given, the access token's id.
func (s *AuthService) Logout(ctx context.Context, refreshToken string, access *middleware.TokenClaims) error {
	if strings.TrimSpace(refreshToken) == "" {
		return models.NewFieldValidationError("refresh", "This field is required.")
	}
	claims, err := s.verify(ctx, refreshToken, middleware.TokenTypeRefresh)
	if err != nil {
		return models.NewFieldValidationError("refresh", "Token is invalid or expired")
	}
	if err := s.revoke(ctx, claims); err != nil {
		return err
	}
	if access != nil {
		return s.revoke(ctx, access)
	}
	return nil
}

// RequestPasswordReset mails a reset link when the address belongs to a user.
// It never reveals whether the address is registered.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return models.NewFieldValidationError("email", "This field is required.")
	}
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return appError(err)
	}
	if user == nil {
		return nil
	}

	token, _, err := middleware.SignToken(s.cfg.Secret, user.Password, middleware.TokenTypeReset, user.ID, s.cfg.ResetTTL)
	if err != nil {
		return models.NewInternalError(err)
	}
	link := s.cfg.FrontendURL + "/reset-password/" + EncodeUID(user.ID) + "/" + token
	if s.mailer != nil {
		if err := s.mailer.SendPasswordReset(ctx, user.Email, user.Username, link); err != nil {
			middleware.Logger.ErrorContext(ctx, "failed to send password reset email",
				slog.Uint64("user_id", uint64(user.ID)),
				slog.String("error", err.Error()),
			)
		}
	}
	return nil
}

// ConfirmPasswordReset sets a new password. The token is signed with the old
// password hash, so it stops verifying once the password changes.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, in ResetConfirmInput) error {
	userID, err := DecodeUID(in.UID)
	if err != nil {
		return models.NewFieldValidationError("uid", "Invalid value")
	}
	if in.NewPassword != in.ReNewPassword {
		return models.NewFieldValidationError("re_new_password", "The two password fields didn't match.")
	}
	if err := validation.ValidatePassword(in.NewPassword); err != nil {
		return models.NewFieldValidationError("new_password", err.Error())
	}

	user, err := s.userRepo.GetForAuth(ctx, userID)
	if err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			return models.NewFieldValidationError("uid", "Invalid value")
		}
		return appError(err)
	}
	claims, err := middleware.ParseToken(s.cfg.Secret, user.Password, in.Token, middleware.TokenTypeReset)
	if err != nil {
		return models.NewFieldValidationError("token", "Invalid or expired token")
	}
	if sub, err := claims.UserID(); err != nil || sub != user.ID {
		return models.NewFieldValidationError("token", "Invalid or expired token")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.NewPassword), bcryptCost)
	if err != nil {
		return models.NewInternalError(err)
	}
	return appError(s.userRepo.UpdatePassword(ctx, user.ID, string(hash)))
}

func (s *AuthService) verify(ctx context.Context, token, wantType string) (*middleware.TokenClaims, error) {
	claims, err := middleware.ParseToken(s.cfg.Secret, "", token, wantType)
	if err != nil {
		return nil, models.NewUnauthorizedError("Token is invalid or expired")
	}
	if s.blacklist != nil {
		revoked, err := s.blacklist.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, appError(err)
		}
		if revoked {
			return nil, models.NewUnauthorizedError("Token is blacklisted")
		}
	}
	return claims, nil
}

func (s *AuthService) revoke(ctx context.Context, claims *middleware.TokenClaims) error {
	if s.blacklist == nil || claims.ExpiresAt == nil {
		return nil
	}
	if err := s.blacklist.Revoke(ctx, claims.ID, time.Until(claims.ExpiresAt.Time)); err != nil {
		return appError(err)
	}
	return nil
}

// EncodeUID renders a user id the way reset links carry it.
func EncodeUID(id uint) string {
	return base64.RawURLEncoding.EncodeToString([]byte(strconv.FormatUint(uint64(id), 10)))
}

func DecodeUID(uid string) (uint, error) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(uid, "="))
	if err != nil {
		return 0, err
	}
	id, err := strconv.ParseUint(string(raw), 10, 32)
	if err != nil || id == 0 {
		return 0, errors.New("invalid uid")
	}
	return uint(id), nil
}
