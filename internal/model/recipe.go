package model

// RecipeStep is a single instruction step, optionally illustrated.
type RecipeStep struct {
	Image   string `json:"image,omitempty"`
	Content string `json:"content"`
}

// RecipeLanguage holds the localized content of a recipe for one language.
type RecipeLanguage struct {
	Title       string       `json:"title"`
	Ingredients []string     `json:"ingredients"`
	Steps       []RecipeStep `json:"steps"`
}

// Recipe is one entry of the static recipe collection. The URL doubles as
// the stable identifier across the site and the voting system.
type Recipe struct {
	URL       string                    `json:"url"`
	Cuisine   string                    `json:"cuisine"`
	Cover     string                    `json:"cover,omitempty"`
	Languages map[string]RecipeLanguage `json:"languages"`
}

// LanguageCodes returns the languages this recipe is available in.
func (r *Recipe) LanguageCodes() []string {
	codes := make([]string, 0, len(r.Languages))
	for code := range r.Languages {
		codes = append(codes, code)
	}
	return codes
}

// Title returns the localized title, falling back to English and then to
// any available language.
func (r *Recipe) Title(lang string) string {
	if content, ok := r.Languages[lang]; ok {
		return content.Title
	}
	if content, ok := r.Languages["en"]; ok {
		return content.Title
	}
	for _, content := range r.Languages {
		return content.Title
	}
	return ""
}
