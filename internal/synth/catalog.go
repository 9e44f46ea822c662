package synth

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/Alias1177/Problepo/models"
)

//go:embed templates.yaml
var templatesYAML []byte

// GenericCategory is used for any category without its own entry
const GenericCategory = "generic"

// CategoryTemplates is the canned material for one category
type CategoryTemplates struct {
	Templates            map[models.Trend][]string `yaml:"templates"`
	DataPoints           []string                  `yaml:"dataPoints"`
	Variables            []string                  `yaml:"variables"`
	HistoricalPatterns   []string                  `yaml:"historicalPatterns"`
	AlternativeScenarios []string                  `yaml:"alternativeScenarios"`
}

// Catalog maps category → trend → templates
type Catalog struct {
	Categories map[string]CategoryTemplates `yaml:"categories"`
}

// ParseCatalog decodes and validates a catalog document
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing template catalog: %w", err)
	}

	if _, ok := c.Categories[GenericCategory]; !ok {
		return nil, fmt.Errorf("template catalog has no %q entry", GenericCategory)
	}
	for name, ct := range c.Categories {
		for _, trend := range models.Trends {
			if len(ct.Templates[trend]) == 0 {
				return nil, fmt.Errorf("category %q has no %q templates", name, trend)
			}
		}
	}
	return &c, nil
}

var defaultCatalog = sync.OnceValues(func() (*Catalog, error) {
	return ParseCatalog(templatesYAML)
})

// DefaultCatalog returns the embedded catalog
func DefaultCatalog() (*Catalog, error) {
	return defaultCatalog()
}

// Lookup returns the templates for a category, falling back to the generic set
func (c *Catalog) Lookup(category models.Category) CategoryTemplates {
	if ct, ok := c.Categories[strings.ToLower(string(category))]; ok {
		return ct
	}
	return c.Categories[GenericCategory]
}

// Render substitutes the placeholders of one template
func Render(template, topic string, timeframe models.Timeframe) string {
	return strings.NewReplacer("{topic}", topic, "{timeframe}", timeframe.Label()).Replace(template)
}
