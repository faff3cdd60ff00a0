package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/SreeragSreekanth/Blogplatform/internal/models"
	"github.com/SreeragSreekanth/Blogplatform/internal/repository"
	"github.com/SreeragSreekanth/Blogplatform/internal/validation"
)

const maxBioLength = 500

type UserService struct {
	userRepo repository.UserRepository
}

// UpdateProfileInput carries profile edits; nil fields stay unchanged.
type UpdateProfileInput struct {
	UserID         uint
	Username       *string
	Bio            *string
	ProfilePicture *string
}

func NewUserService(userRepo repository.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

// IsAdmin satisfies AdminChecker for the other services.
func (s *UserService) IsAdmin(ctx context.Context, userID uint) (bool, error) {
	return s.userRepo.IsAdmin(ctx, userID)
}

func (s *UserService) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	return user, appError(err)
}

// ListUsers is restricted to admins.
func (s *UserService) ListUsers(ctx context.Context, actorID uint, limit, offset int) ([]models.User, int64, error) {
	if err := requireAdmin(ctx, s.IsAdmin, actorID, "Only admins can list users"); err != nil {
		return nil, 0, err
	}
	users, total, err := s.userRepo.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, appError(err)
	}
	return users, total, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, in UpdateProfileInput) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, appError(err)
	}

	if in.Username != nil {
		username := strings.TrimSpace(*in.Username)
		if err := validation.ValidateUsername(username); err != nil {
			return nil, models.NewFieldValidationError("username", err.Error())
		}
		if username != user.Username {
			existing, err := s.userRepo.GetByUsername(ctx, username)
			if err != nil {
				return nil, appError(err)
			}
			if existing != nil {
				return nil, models.NewFieldValidationError("username", "A user with that username already exists.")
			}
		}
		user.Username = username
	}
	if in.Bio != nil {
		if utf8.RuneCountInString(*in.Bio) > maxBioLength {
			return nil, models.NewFieldValidationError("bio", "bio too long (max 500 characters)")
		}
		user.Bio = StripTags(*in.Bio)
	}
	if in.ProfilePicture != nil {
		user.ProfilePicture = *in.ProfilePicture
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, models.NewFieldValidationError("username", "A user with that username already exists.")
		}
		return nil, appError(err)
	}
	return user, nil
}

// SetAdmin grants or revokes the admin role by username.
func (s *UserService) SetAdmin(ctx context.Context, username string, admin bool) error {
	return appError(s.userRepo.SetAdmin(ctx, username, admin))
}

func (s *UserService) ListAdmins(ctx context.Context) ([]models.User, error) {
	admins, err := s.userRepo.ListAdmins(ctx)
	return admins, appError(err)
}
