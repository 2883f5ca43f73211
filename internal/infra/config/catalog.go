package config

import (
	"embed"
	"fmt"
	"os"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"

	"wingman-relay/internal/domain"
)

//go:embed catalogs/*.yaml
var embeddedCatalogs embed.FS

// Catalog is the deployment-specific, read-only data the relay is built from.
type Catalog struct {
	Name                 string                     `yaml:"name"`
	DefaultModel         string                     `yaml:"default_model"`
	ChatMode             domain.Mode                `yaml:"chat_mode"` // what POST /api/chat runs
	Personalities        []domain.Personality       `yaml:"personalities"`
	DefaultModels        []domain.ModelDescriptor   `yaml:"default_models"`
	PaidModels           []domain.ModelDescriptor   `yaml:"paid_models"`
	FallbackIncludesPaid bool                       `yaml:"fallback_includes_paid"`
	AnnotateNames        bool                       `yaml:"annotate_names"`
	Curation             CurationConfig             `yaml:"curation"`
	Modes                map[domain.Mode]ModeConfig `yaml:"modes"`
}

// CurationConfig restricts a live model listing to allow-listed ids.
type CurationConfig struct {
	Enabled bool     `yaml:"enabled"`
	TopFree []string `yaml:"top_free"`
	TopPaid []string `yaml:"top_paid"`
}

// ModeConfig is the prompt template and tuning profile of one completion mode.
type ModeConfig struct {
	Template      string  `yaml:"template"` // empty: no system message
	UserLabel     string  `yaml:"user_label"`
	PeerLabel     string  `yaml:"peer_label"`
	MaxTokens     int     `yaml:"max_tokens"`
	Temperature   float64 `yaml:"temperature"`
	TrimText      bool    `yaml:"trim_text"`
	Placeholder   string  `yaml:"placeholder"`
	FallbackError string  `yaml:"fallback_error"`
}

// FallbackModels is the list served whenever the live listing cannot be used.
func (c *Catalog) FallbackModels() []domain.ModelDescriptor {
	out := make([]domain.ModelDescriptor, 0, len(c.DefaultModels)+len(c.PaidModels))
	out = append(out, c.DefaultModels...)
	if c.FallbackIncludesPaid {
		out = append(out, c.PaidModels...)
	}
	return out
}

// Mode returns the named mode's profile.
func (c *Catalog) Mode(m domain.Mode) (ModeConfig, bool) {
	mc, ok := c.Modes[m]
	return mc, ok
}

// LoadCatalog returns the catalog at path, or the embedded catalog for the
// named deployment when path is empty.
func LoadCatalog(deployment, path string) (*Catalog, error) {
	var (
		data []byte
		err  error
	)
	if path != "" {
		if err := validatePermissions(path); err != nil {
			return nil, err
		}
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read catalog: %w", err)
		}
	} else {
		data, err = embeddedCatalogs.ReadFile("catalogs/" + deployment + ".yaml")
		if err != nil {
			return nil, fmt.Errorf("%w: no embedded catalog for deployment %q", domain.ErrCatalogInvalid, deployment)
		}
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes and validates catalog YAML.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("%w: parse: %v", domain.ErrCatalogInvalid, err)
	}
	if err := ValidateCatalog(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

// ValidateCatalog checks a catalog for structural problems.
func ValidateCatalog(c *Catalog) error {
	ve := &ValidationError{}

	if c.DefaultModel == "" {
		ve.Add("catalog.default_model must not be empty")
	}
	if len(c.DefaultModels) == 0 {
		ve.Add("catalog.default_models must have at least one entry")
	}

	seen := make(map[string]bool, len(c.Personalities))
	for i, p := range c.Personalities {
		switch {
		case p.ID == "":
			ve.Add("catalog.personalities[%d].id must not be empty", i)
		case seen[p.ID]:
			ve.Add("catalog.personalities[%d]: duplicate id %q", i, p.ID)
		}
		seen[p.ID] = true
		if p.Name == "" {
			ve.Add("catalog.personalities[%d].name must not be empty", i)
		}
	}

	for _, group := range []struct {
		key    string
		models []domain.ModelDescriptor
	}{{"default_models", c.DefaultModels}, {"paid_models", c.PaidModels}} {
		for i, m := range group.models {
			if m.ID == "" {
				ve.Add("catalog.%s[%d].id must not be empty", group.key, i)
			}
		}
	}

	if c.Curation.Enabled && len(c.Curation.TopFree)+len(c.Curation.TopPaid) == 0 {
		ve.Add("catalog.curation needs top_free or top_paid entries when enabled")
	}

	if _, ok := c.Modes[c.ChatMode]; !ok {
		ve.Add("catalog.chat_mode %q has no entry under modes", c.ChatMode)
	}
	for name, m := range c.Modes {
		switch name {
		case domain.ModePlain, domain.ModeCoach, domain.ModeReply:
		default:
			ve.Add("catalog.modes: unknown mode %q (want: plain, coach, reply)", name)
			continue
		}
		if name.NeedsPersonality() {
			if len(c.Personalities) == 0 {
				ve.Add("catalog.modes.%s needs at least one personality", name)
			}
			if strings.TrimSpace(m.Template) == "" {
				ve.Add("catalog.modes.%s.template must not be empty", name)
			} else if _, err := template.New(string(name)).Parse(m.Template); err != nil {
				ve.Add("catalog.modes.%s.template: %v", name, err)
			}
		}
		if m.MaxTokens <= 0 {
			ve.Add("catalog.modes.%s.max_tokens must be > 0", name)
		}
		if m.Temperature < 0 || m.Temperature > 2 {
			ve.Add("catalog.modes.%s.temperature must be between 0 and 2", name)
		}
		if m.Placeholder == "" {
			ve.Add("catalog.modes.%s.placeholder must not be empty", name)
		}
		if m.FallbackError == "" {
			ve.Add("catalog.modes.%s.fallback_error must not be empty", name)
		}
	}

	if ve.HasErrors() {
		return fmt.Errorf("%w: %w", domain.ErrCatalogInvalid, ve)
	}
	return nil
}
