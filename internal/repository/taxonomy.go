package repository

import (
	"context"
	"errors"

	"github.com/SreeragSreekanth/Blogplatform/internal/cache"
	"github.com/SreeragSreekanth/Blogplatform/internal/models"

	"gorm.io/gorm"
)

// TaxonomyRepository stores tags and categories.
type TaxonomyRepository interface {
	ListTags(ctx context.Context) ([]models.Tag, error)
	ListCategories(ctx context.Context) ([]models.Category, error)
	CreateTag(ctx context.Context, tag *models.Tag) error
	CreateCategory(ctx context.Context, category *models.Category) error
	// FindTags returns the tags with the given ids; missing ids are simply absent.
	FindTags(ctx context.Context, ids []uint) ([]models.Tag, error)
	GetCategory(ctx context.Context, id uint) (*models.Category, error)
}

type taxonomyRepository struct {
	db *gorm.DB
}

func NewTaxonomyRepository(db *gorm.DB) TaxonomyRepository {
	return &taxonomyRepository{db: db}
}

func (r *taxonomyRepository) ListTags(ctx context.Context) ([]models.Tag, error) {
	tags := []models.Tag{}
	err := cache.Aside(ctx, cache.TagsKey, &tags, cache.TaxonomyTTL, func() error {
		return readDB(r.db).WithContext(ctx).Order("name ASC").Find(&tags).Error
	})
	return tags, err
}

func (r *taxonomyRepository) ListCategories(ctx context.Context) ([]models.Category, error) {
	categories := []models.Category{}
	err := cache.Aside(ctx, cache.CategoriesKey, &categories, cache.TaxonomyTTL, func() error {
		return readDB(r.db).WithContext(ctx).Order("name ASC").Find(&categories).Error
	})
	return categories, err
}

func (r *taxonomyRepository) CreateTag(ctx context.Context, tag *models.Tag) error {
	if err := r.db.WithContext(ctx).Create(tag).Error; err != nil {
		return wrapWriteError("create tag", err)
	}
	cache.InvalidateTaxonomy(ctx)
	return nil
}

func (r *taxonomyRepository) CreateCategory(ctx context.Context, category *models.Category) error {
	if err := r.db.WithContext(ctx).Create(category).Error; err != nil {
		return wrapWriteError("create category", err)
	}
	cache.InvalidateTaxonomy(ctx)
	return nil
}

func (r *taxonomyRepository) FindTags(ctx context.Context, ids []uint) ([]models.Tag, error) {
	if len(ids) == 0 {
		return []models.Tag{}, nil
	}
	var tags []models.Tag
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("name ASC").Find(&tags).Error
	return tags, err
}

func (r *taxonomyRepository) GetCategory(ctx context.Context, id uint) (*models.Category, error) {
	var category models.Category
	if err := r.db.WithContext(ctx).First(&category, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Category", id)
		}
		return nil, err
	}
	return &category, nil
}
