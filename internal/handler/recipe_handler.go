package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/cnotv/recipes/internal/recipes"
	"github.com/cnotv/recipes/pkg/response"
)

type RecipeHandler struct {
	library *recipes.Library
}

func NewRecipeHandler(library *recipes.Library) *RecipeHandler {
	return &RecipeHandler{library: library}
}

// ListRecipes handles GET /api/recipes with optional ?cuisine= and ?lang=
// filters.
func (h *RecipeHandler) ListRecipes(c *gin.Context) {
	summaries := h.library.List(c.Query("cuisine"), c.Query("lang"))
	if summaries == nil {
		summaries = []recipes.Summary{}
	}
	response.OK(c, gin.H{"recipes": summaries, "totalCount": len(summaries)})
}

// GetRecipe handles GET /api/recipes/:slug.
func (h *RecipeHandler) GetRecipe(c *gin.Context) {
	recipe := h.library.BySlug(c.Param("slug"))
	if recipe == nil {
		response.NotFound(c, "Recipe not found")
		return
	}
	response.OK(c, gin.H{"recipe": recipe})
}

// ListCuisines handles GET /api/cuisines.
func (h *RecipeHandler) ListCuisines(c *gin.Context) {
	response.OK(c, gin.H{"cuisines": h.library.Cuisines()})
}
