package handlers

import (
	"net/http"
	"strconv"

	"listing-registry/internal/auth"
	"listing-registry/internal/models"
	"listing-registry/internal/services"

	"github.com/gin-gonic/gin"
)

type CategoryHandler struct {
	categoryService *services.CategoryService
}

func NewCategoryHandler(categoryService *services.CategoryService) *CategoryHandler {
	return &CategoryHandler{categoryService: categoryService}
}

// ListCategories lists all slots of a taxonomy
// GET /api/categories/:taxonomy
func (h *CategoryHandler) ListCategories(c *gin.Context) {
	taxonomy := models.Taxonomy(c.Param("taxonomy"))
	if !taxonomy.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown taxonomy"})
		return
	}

	categories, err := h.categoryService.List(c.Request.Context(), taxonomy)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list categories"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"taxonomy":   taxonomy,
		"categories": categories,
	})
}

// GetCategory retrieves one slot of a taxonomy by index
// GET /api/categories/:taxonomy/:index
func (h *CategoryHandler) GetCategory(c *gin.Context) {
	taxonomy := models.Taxonomy(c.Param("taxonomy"))
	if !taxonomy.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown taxonomy"})
		return
	}

	index, err := strconv.ParseUint(c.Param("index"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid index"})
		return
	}

	category, err := h.categoryService.Get(c.Request.Context(), taxonomy, index)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "category not found"})
		return
	}

	c.JSON(http.StatusOK, category)
}

// AddCategory registers a new label (Verifier only)
// POST /api/verifier/categories/:taxonomy
func (h *CategoryHandler) AddCategory(c *gin.Context) {
	address, exists := auth.GetAddress(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	taxonomy := models.Taxonomy(c.Param("taxonomy"))

	var req models.AddCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	category, err := h.categoryService.Add(c.Request.Context(), address, taxonomy, req.Label)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, category)
}

// RenameCategory renames the label at an index (Verifier only)
// PUT /api/verifier/categories/:taxonomy/:index
func (h *CategoryHandler) RenameCategory(c *gin.Context) {
	address, exists := auth.GetAddress(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	taxonomy := models.Taxonomy(c.Param("taxonomy"))

	index, err := strconv.ParseUint(c.Param("index"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid index"})
		return
	}

	var req models.RenameCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	category, err := h.categoryService.Rename(c.Request.Context(), address, taxonomy, index, req.OldLabel, req.NewLabel)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, category)
}
