package seed

import (
	_ "embed"
	"fmt"

	"github.com/SreeragSreekanth/Blogplatform/internal/models"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

//go:embed taxonomy.yaml
var defaultTaxonomy []byte

// TaxonomySet lists the category and tag names to seed.
type TaxonomySet struct {
	Categories []string `yaml:"categories"`
	Tags       []string `yaml:"tags"`
}

// ParseTaxonomy decodes a YAML taxonomy document.
func ParseTaxonomy(raw []byte) (*TaxonomySet, error) {
	var set TaxonomySet
	if err := yaml.Unmarshal(raw, &set); err != nil {
		return nil, fmt.Errorf("parse taxonomy: %w", err)
	}
	return &set, nil
}

// DefaultTaxonomy returns the built-in categories and tags.
func DefaultTaxonomy() *TaxonomySet {
	set, err := ParseTaxonomy(defaultTaxonomy)
	if err != nil {
		panic(err)
	}
	return set
}

// Taxonomy upserts every category and tag in set by name and returns the
// stored rows. Running it twice leaves one row per name.
func Taxonomy(db *gorm.DB, set *TaxonomySet) ([]models.Category, []models.Tag, error) {
	for _, name := range set.Categories {
		if err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoNothing: true,
		}).Create(&models.Category{Name: name}).Error; err != nil {
			return nil, nil, fmt.Errorf("seed category %s: %w", name, err)
		}
	}
	for _, name := range set.Tags {
		if err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoNothing: true,
		}).Create(&models.Tag{Name: name}).Error; err != nil {
			return nil, nil, fmt.Errorf("seed tag %s: %w", name, err)
		}
	}

	var categories []models.Category
	if err := db.Where("name IN ?", set.Categories).Order("name ASC").Find(&categories).Error; err != nil {
		return nil, nil, err
	}
	var tags []models.Tag
	if err := db.Where("name IN ?", set.Tags).Order("name ASC").Find(&tags).Error; err != nil {
		return nil, nil, err
	}
	return categories, tags, nil
}
