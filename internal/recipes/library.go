package recipes

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/cnotv/recipes/internal/model"
)

// indexFile lists the per-recipe JSON filenames, one entry per recipe.
const indexFile = "index.json"

// Summary is the lightweight listing entry for a recipe, derived at load
// time the same way the site's build step derives its static metadata.
type Summary struct {
	Slug      string   `json:"slug"`
	URL       string   `json:"url"`
	Cuisine   string   `json:"cuisine"`
	Title     string   `json:"title"`
	Cover     string   `json:"cover,omitempty"`
	Languages []string `json:"languages"`
}

// CuisineCount pairs a cuisine with how many recipes it has.
type CuisineCount struct {
	Cuisine string `json:"cuisine"`
	Count   int    `json:"count"`
}

// Library holds the recipe collection loaded from per-recipe JSON files.
// It is read-only after Load, so no locking is needed.
type Library struct {
	recipes   []model.Recipe
	bySlug    map[string]*model.Recipe
	summaries []Summary
}

// Load reads index.json from dir and every recipe file it lists. Files
// that fail to parse are skipped with a warning, matching the site's
// tolerance for a single bad recipe file.
func Load(dir string, logger *zap.Logger) (*Library, error) {
	raw, err := os.ReadFile(filepath.Join(dir, indexFile))
	if err != nil {
		return nil, fmt.Errorf("read recipe index: %w", err)
	}
	var filenames []string
	if err := json.Unmarshal(raw, &filenames); err != nil {
		return nil, fmt.Errorf("parse recipe index: %w", err)
	}

	lib := &Library{
		// Preallocated so add never reallocates; bySlug holds pointers
		// into this slice.
		recipes: make([]model.Recipe, 0, len(filenames)),
		bySlug:  make(map[string]*model.Recipe, len(filenames)),
	}
	for _, filename := range filenames {
		data, err := os.ReadFile(filepath.Join(dir, filename))
		if err != nil {
			logger.Warn("skipping unreadable recipe file",
				zap.String("file", filename), zap.Error(err))
			continue
		}
		var recipe model.Recipe
		if err := json.Unmarshal(data, &recipe); err != nil {
			logger.Warn("skipping malformed recipe file",
				zap.String("file", filename), zap.Error(err))
			continue
		}
		lib.add(slugFromFilename(filename), recipe)
	}

	logger.Info("recipe library loaded",
		zap.String("dir", dir),
		zap.Int("recipes", len(lib.recipes)),
		zap.Int("cuisines", len(lib.Cuisines())))
	return lib, nil
}

func (l *Library) add(slug string, recipe model.Recipe) {
	l.recipes = append(l.recipes, recipe)
	stored := &l.recipes[len(l.recipes)-1]
	l.bySlug[slug] = stored

	langs := stored.LanguageCodes()
	sort.Strings(langs)
	l.summaries = append(l.summaries, Summary{
		Slug:      slug,
		URL:       stored.URL,
		Cuisine:   stored.Cuisine,
		Title:     stored.Title("en"),
		Cover:     stored.Cover,
		Languages: langs,
	})
}

// List returns recipe summaries, optionally filtered by cuisine and by
// language availability. Empty filters match everything.
func (l *Library) List(cuisine, lang string) []Summary {
	if cuisine == "" && lang == "" {
		return l.summaries
	}
	var out []Summary
	for _, s := range l.summaries {
		if cuisine != "" && !strings.EqualFold(s.Cuisine, cuisine) {
			continue
		}
		if lang != "" && !containsLang(s.Languages, lang) {
			continue
		}
		out = append(out, s)
	}
	return out
}

// BySlug returns the full recipe for a slug, or nil.
func (l *Library) BySlug(slug string) *model.Recipe {
	return l.bySlug[slug]
}

// ByURL returns the full recipe with the given url, or nil.
func (l *Library) ByURL(url string) *model.Recipe {
	for i := range l.recipes {
		if l.recipes[i].URL == url {
			return &l.recipes[i]
		}
	}
	return nil
}

// Cuisines returns each cuisine with its recipe count, sorted by name.
func (l *Library) Cuisines() []CuisineCount {
	counts := make(map[string]int)
	for i := range l.recipes {
		if l.recipes[i].Cuisine != "" {
			counts[l.recipes[i].Cuisine]++
		}
	}
	out := make([]CuisineCount, 0, len(counts))
	for cuisine, count := range counts {
		out = append(out, CuisineCount{Cuisine: cuisine, Count: count})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Cuisine < out[j].Cuisine })
	return out
}

func containsLang(langs []string, lang string) bool {
	for _, l := range langs {
		if strings.EqualFold(l, lang) {
			return true
		}
	}
	return false
}

func slugFromFilename(filename string) string {
	return strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
}
