package handlers

import (
	"context"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/hi-events/hi-events-api/internal/format"
	"github.com/hi-events/hi-events-api/internal/models"
	"github.com/hi-events/hi-events-api/internal/validation"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

const defaultCategoryColor = "#3b82f6"

type CategoryHandler struct {
	db     *gorm.DB
	logger zerolog.Logger
}

func NewCategoryHandler(db *gorm.DB, logger zerolog.Logger) *CategoryHandler {
	return &CategoryHandler{db: db, logger: logger}
}

type CategoryWithCount struct {
	models.Category
	EventCount int64 `json:"eventCount"`
}

type CategoryListResponse struct {
	Body Envelope[[]CategoryWithCount]
}

type CreateCategoryRequest struct {
	Body struct {
		Name  string `json:"name" minLength:"1" maxLength:"50" validate:"required,max=50"`
		Color string `json:"color,omitempty" doc:"Hex color, e.g. #3b82f6" validate:"omitempty,hexcolor"`
	}
}

type CategoryResponse struct {
	Body Envelope[models.Category]
}

func (h *CategoryHandler) HandleList(ctx context.Context, _ *struct{}) (*CategoryListResponse, error) {
	var categories []models.Category
	if err := h.db.WithContext(ctx).Order("name ASC").Find(&categories).Error; err != nil {
		h.logger.Error().Err(err).Msg("failed to list categories")
		return nil, huma.Error500InternalServerError("Failed to fetch categories")
	}

	var rows []struct {
		CategoryID string
		Count      int64
	}
	err := h.db.WithContext(ctx).Model(&models.Event{}).
		Select("category_id, COUNT(*) AS count").
		Where("category_id IS NOT NULL AND is_public = ? AND status = ?", true, models.EventPublished).
		Group("category_id").
		Scan(&rows).Error
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to fetch categories")
	}
	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.CategoryID] = r.Count
	}

	out := make([]CategoryWithCount, len(categories))
	for i, c := range categories {
		out[i] = CategoryWithCount{Category: c, EventCount: counts[c.ID]}
	}

	res := &CategoryListResponse{}
	res.Body = success(out, "")
	return res, nil
}

func (h *CategoryHandler) HandleCreate(ctx context.Context, input *CreateCategoryRequest) (*CategoryResponse, error) {
	if err := validation.Validate(ctx, input.Body); err != nil {
		return nil, badRequest("Invalid category data", err)
	}

	name := strings.TrimSpace(input.Body.Name)
	category := models.Category{
		Name:  name,
		Slug:  format.Slugify(name),
		Color: input.Body.Color,
	}
	if category.Slug == "" {
		return nil, huma.Error400BadRequest("Category name must contain letters or digits")
	}
	if category.Color == "" {
		category.Color = defaultCategoryColor
	}

	var count int64
	err := h.db.WithContext(ctx).Model(&models.Category{}).
		Where("LOWER(name) = ? OR slug = ?", strings.ToLower(name), category.Slug).
		Count(&count).Error
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to check for duplicate category")
		return nil, huma.Error500InternalServerError("Failed to create category")
	}
	if count > 0 {
		return nil, huma.Error409Conflict("Category already exists")
	}

	if err := h.db.WithContext(ctx).Create(&category).Error; err != nil {
		h.logger.Error().Err(err).Msg("failed to create category")
		return nil, huma.Error500InternalServerError("Failed to create category")
	}

	res := &CategoryResponse{}
	res.Body = success(category, "Category created successfully")
	return res, nil
}
