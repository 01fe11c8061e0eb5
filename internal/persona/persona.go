package persona

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"styliq/internal/domain"
)

// DefaultCatalog is the built-in stylist line-up.
var DefaultCatalog = []domain.Persona{
	{Name: "ALEX", Role: "Classic Director", Style: "Timeless", Tone: "Sophisticated", Avatar: "🏛️"},
	{Name: "JORDAN", Role: "Texture Specialist", Style: "Urban", Tone: "Modern", Avatar: "⚡"},
	{Name: "CASEY", Role: "Geometric Architect", Style: "Structural", Tone: "Sharp", Avatar: "📐"},
	{Name: "TAYLOR", Role: "Natural Consultant", Style: "Organic", Tone: "Holistic", Avatar: "🌿"},
}

// Selector picks one persona per analysis.
type Selector struct {
	catalog []domain.Persona
	fixed   *domain.Persona

	mu  sync.Mutex
	rng *rand.Rand
}

// Options configures a Selector.
type Options struct {
	Catalog []domain.Persona
	// Fixed pins every pick to the persona with this name.
	Fixed string
	// Rand overrides the random source, mostly for tests.
	Rand *rand.Rand
}

// NewSelector validates the catalog and builds a selector.
func NewSelector(opts Options) (*Selector, error) {
	catalog := opts.Catalog
	if len(catalog) == 0 {
		catalog = DefaultCatalog
	}
	normalized, err := normalize(catalog)
	if err != nil {
		return nil, err
	}
	s := &Selector{catalog: normalized, rng: opts.Rand}
	if s.rng == nil {
		s.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if name := strings.TrimSpace(opts.Fixed); name != "" {
		p, ok := s.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("persona: unknown persona %q", name)
		}
		s.fixed = &p
	}
	return s, nil
}

// Pick returns a persona drawn uniformly from the catalog, or the pinned one.
func (s *Selector) Pick() domain.Persona {
	if s.fixed != nil {
		return *s.fixed
	}
	if len(s.catalog) == 1 {
		return s.catalog[0]
	}
	s.mu.Lock()
	idx := s.rng.IntN(len(s.catalog))
	s.mu.Unlock()
	return s.catalog[idx]
}

// Lookup finds a persona by case-insensitive name.
func (s *Selector) Lookup(name string) (domain.Persona, bool) {
	upper := upperName(name)
	for _, p := range s.catalog {
		if p.Name == upper {
			return p, true
		}
	}
	return domain.Persona{}, false
}

// Catalog returns a copy of the configured personas.
func (s *Selector) Catalog() []domain.Persona {
	out := make([]domain.Persona, len(s.catalog))
	copy(out, s.catalog)
	return out
}

// LoadCatalog reads a JSON array of personas from path.
func LoadCatalog(path string) ([]domain.Persona, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("persona: read catalog: %w", err)
	}
	var catalog []domain.Persona
	if err := json.Unmarshal(raw, &catalog); err != nil {
		return nil, fmt.Errorf("persona: decode catalog: %w", err)
	}
	if len(catalog) == 0 {
		return nil, errors.New("persona: catalog is empty")
	}
	return normalize(catalog)
}

func normalize(catalog []domain.Persona) ([]domain.Persona, error) {
	out := make([]domain.Persona, 0, len(catalog))
	seen := make(map[string]struct{}, len(catalog))
	for i, p := range catalog {
		p.Name = upperName(p.Name)
		p.Role = strings.TrimSpace(p.Role)
		p.Style = strings.TrimSpace(p.Style)
		p.Tone = strings.TrimSpace(p.Tone)
		p.Avatar = strings.TrimSpace(p.Avatar)
		if p.Name == "" || p.Role == "" || p.Style == "" || p.Tone == "" {
			return nil, fmt.Errorf("persona: entry %d is incomplete", i)
		}
		if _, dup := seen[p.Name]; dup {
			return nil, fmt.Errorf("persona: duplicate name %q", p.Name)
		}
		seen[p.Name] = struct{}{}
		out = append(out, p)
	}
	return out, nil
}

func upperName(name string) string {
	return cases.Upper(language.Und).String(strings.TrimSpace(name))
}
