package service

import (
	"context"
	"errors"
	"strings"

	"github.com/SreeragSreekanth/Blogplatform/internal/models"
	"github.com/SreeragSreekanth/Blogplatform/internal/repository"
	"github.com/SreeragSreekanth/Blogplatform/internal/validation"
)

const maxTaxonomyNameLength = 50

// TaxonomyService serves tags and categories. Only admins create them.
type TaxonomyService struct {
	repo    repository.TaxonomyRepository
	isAdmin AdminChecker
}

func NewTaxonomyService(repo repository.TaxonomyRepository, isAdmin AdminChecker) *TaxonomyService {
	return &TaxonomyService{repo: repo, isAdmin: isAdmin}
}

func (s *TaxonomyService) ListTags(ctx context.Context) ([]models.Tag, error) {
	tags, err := s.repo.ListTags(ctx)
	return tags, appError(err)
}

func (s *TaxonomyService) ListCategories(ctx context.Context) ([]models.Category, error) {
	categories, err := s.repo.ListCategories(ctx)
	return categories, appError(err)
}

func (s *TaxonomyService) CreateTag(ctx context.Context, actorID uint, name string) (*models.Tag, error) {
	name, err := s.checkCreate(ctx, actorID, name, "tag")
	if err != nil {
		return nil, err
	}
	tag := &models.Tag{Name: name}
	if err := s.repo.CreateTag(ctx, tag); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, models.NewFieldValidationError("name", "tag with this name already exists.")
		}
		return nil, appError(err)
	}
	return tag, nil
}

func (s *TaxonomyService) CreateCategory(ctx context.Context, actorID uint, name string) (*models.Category, error) {
	name, err := s.checkCreate(ctx, actorID, name, "category")
	if err != nil {
		return nil, err
	}
	category := &models.Category{Name: name}
	if err := s.repo.CreateCategory(ctx, category); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, models.NewFieldValidationError("name", "category with this name already exists.")
		}
		return nil, appError(err)
	}
	return category, nil
}

func (s *TaxonomyService) checkCreate(ctx context.Context, actorID uint, name, kind string) (string, error) {
	if err := requireAdmin(ctx, s.isAdmin, actorID, "Only admins can create a "+kind); err != nil {
		return "", err
	}
	name = strings.TrimSpace(name)
	if err := validation.ValidateLength("name", name, maxTaxonomyNameLength); err != nil {
		return "", models.NewFieldValidationError("name", err.Error())
	}
	return name, nil
}
