package audio

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Mercetti/ALL-IN-CHAT-POKER-sub013/models"
	"github.com/Mercetti/ALL-IN-CHAT-POKER-sub013/services"
)

type Asset struct {
	Name     string      `yaml:"name" json:"name"`
	URL      string      `yaml:"url" json:"url"`
	Duration float64     `yaml:"duration" json:"duration"`
	Mood     string      `yaml:"mood" json:"mood,omitempty"`
	Tier     models.Tier `yaml:"tier" json:"tier"`
}

// Category groups assets behind a category-wide minimum tier. An asset is
// available only when both its own tier and the category tier are met.
type Category struct {
	Tier   models.Tier      `yaml:"tier"`
	Assets map[string]Asset `yaml:"assets"`
}

type Library struct {
	Categories map[string]Category `yaml:"categories"`
}

// LoadLibrary reads a YAML catalog. Missing tiers default to the lowest.
func LoadLibrary(path string) (*Library, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio catalog: %w", err)
	}

	var lib Library
	if err := yaml.Unmarshal(data, &lib); err != nil {
		return nil, fmt.Errorf("failed to parse audio catalog: %w", err)
	}
	lib.normalize()
	return &lib, nil
}

func (l *Library) normalize() {
	if l.Categories == nil {
		l.Categories = make(map[string]Category)
	}
	for name, c := range l.Categories {
		if c.Tier == "" {
			c.Tier = models.LowestTier
		}
		if c.Assets == nil {
			c.Assets = make(map[string]Asset)
		}
		for key, a := range c.Assets {
			if a.Tier == "" {
				a.Tier = models.LowestTier
			}
			if a.Name == "" {
				a.Name = key
			}
			c.Assets[key] = a
		}
		l.Categories[name] = c
	}
}

// Available is the tier-filtered view: every category key is present, an
// ineligible category maps to an empty set.
type Available map[string]map[string]Asset

// Filter returns the assets tier unlocks.
func (l *Library) Filter(tier models.Tier) Available {
	out := make(Available, len(l.Categories))
	for name, c := range l.Categories {
		assets := make(map[string]Asset)
		if tier.Meets(c.Tier) {
			for key, a := range c.Assets {
				if tier.Meets(a.Tier) {
					assets[key] = a
				}
			}
		}
		out[name] = assets
	}
	return out
}

// CategoryTier reports the minimum tier for category.
func (l *Library) CategoryTier(category string) (models.Tier, bool) {
	c, ok := l.Categories[category]
	return c.Tier, ok
}

// Gate answers catalog queries for a user by resolving their tier.
type Gate struct {
	library *Library
	tiers   services.TierResolver
}

func NewGate(library *Library, tiers services.TierResolver) *Gate {
	return &Gate{library: library, tiers: tiers}
}

func (g *Gate) GetAvailableAudio(ctx context.Context, userID string) Available {
	return g.library.Filter(g.tiers.ResolveTier(ctx, userID))
}

// CanGenerate reports whether userID may request generation in category.
// Categories outside the catalog are open to every tier.
func (g *Gate) CanGenerate(ctx context.Context, userID, category string) bool {
	required, ok := g.library.CategoryTier(category)
	if !ok {
		return true
	}
	return g.tiers.ResolveTier(ctx, userID).Meets(required)
}
