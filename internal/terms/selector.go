package terms

import (
	_ "embed"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed terms.yaml
var embeddedTerms []byte

// CustomCategory holds user-entered clauses.
const CustomCategory = "Custom Terms"

var firstInteger = regexp.MustCompile(`\d+`)

type document struct {
	DefaultCategory string `yaml:"default_category"`
	Categories      []struct {
		Name    string   `yaml:"name"`
		Clauses []string `yaml:"clauses"`
	} `yaml:"categories"`
	Mapping map[string]string `yaml:"mapping"`
}

// Category is one titled list of clauses.
type Category struct {
	Name    string   `json:"name"`
	Clauses []string `json:"clauses"`
}

// Header is the part of a selected header the selector reads.
type Header struct {
	Name     string
	Services []string
}

// Input describes a quotation for term selection.
type Input struct {
	Headers         []Header
	Validity        string
	PaymentSchedule string
	CreatedAt       *time.Time
	CustomTerms     []string
}

// Selector maps selected services onto terms categories.
type Selector struct {
	defaultCategory string
	order           []string
	clauses         map[string][]string
	mapping         map[string]string
	now             func() time.Time
}

var (
	defaultOnce     sync.Once
	defaultSelector *Selector
)

// Default returns the selector over the embedded clause data.
func Default() *Selector {
	defaultOnce.Do(func() {
		s, err := Load(embeddedTerms)
		if err != nil {
			panic(fmt.Sprintf("terms: embedded data invalid: %v", err))
		}
		defaultSelector = s
	})
	return defaultSelector
}

// Load parses a YAML terms document.
func Load(data []byte) (*Selector, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode terms: %w", err)
	}
	if strings.TrimSpace(doc.DefaultCategory) == "" {
		return nil, fmt.Errorf("terms document has no default category")
	}

	s := &Selector{
		defaultCategory: doc.DefaultCategory,
		clauses:         make(map[string][]string, len(doc.Categories)),
		mapping:         make(map[string]string, len(doc.Mapping)),
		now:             time.Now,
	}
	for _, c := range doc.Categories {
		if _, dup := s.clauses[c.Name]; dup {
			return nil, fmt.Errorf("duplicate terms category %q", c.Name)
		}
		s.order = append(s.order, c.Name)
		s.clauses[c.Name] = c.Clauses
	}
	if _, ok := s.clauses[s.defaultCategory]; !ok {
		return nil, fmt.Errorf("default category %q has no clauses", s.defaultCategory)
	}
	for key, category := range doc.Mapping {
		if _, ok := s.clauses[category]; !ok {
			return nil, fmt.Errorf("mapping %q points at unknown category %q", key, category)
		}
		s.mapping[strings.TrimSpace(key)] = category
	}
	return s, nil
}

// WithClock returns a copy of s that reads the current time from now.
func (s *Selector) WithClock(now func() time.Time) *Selector {
	cp := *s
	cp.now = now
	return &cp
}

// CategoryFor resolves a service by name, then its header, then the default category.
func (s *Selector) CategoryFor(serviceName, headerName string) string {
	if c, ok := s.mapping[strings.TrimSpace(serviceName)]; ok {
		return c
	}
	if c, ok := s.mapping[strings.TrimSpace(headerName)]; ok {
		return c
	}
	return s.defaultCategory
}

// Select returns the applicable categories in document order. The default category is always
// considered and is prefixed with the dynamic clauses; empty categories are omitted. Custom
// terms, when present, come last.
func (s *Selector) Select(in Input) []Category {
	applicable := map[string]struct{}{s.defaultCategory: {}}
	for _, h := range in.Headers {
		for _, svc := range h.Services {
			applicable[s.CategoryFor(svc, h.Name)] = struct{}{}
		}
	}

	out := make([]Category, 0, len(applicable)+1)
	for _, name := range s.order {
		if _, ok := applicable[name]; !ok {
			continue
		}
		var clauses []string
		if name == s.defaultCategory {
			clauses = append(clauses, s.DynamicClauses(in)...)
		}
		clauses = append(clauses, s.clauses[name]...)
		if len(clauses) == 0 {
			continue
		}
		out = append(out, Category{Name: name, Clauses: clauses})
	}

	if custom := cleanCustomTerms(in.CustomTerms); len(custom) > 0 {
		out = append(out, Category{Name: CustomCategory, Clauses: custom})
	}
	return out
}

// DynamicClauses renders the validity and advance-payment sentences.
func (s *Selector) DynamicClauses(in Input) []string {
	var out []string
	if days := ValidityDays(in.Validity); days > 0 {
		base := s.now()
		if in.CreatedAt != nil && !in.CreatedAt.IsZero() {
			base = *in.CreatedAt
		}
		until := base.Add(time.Duration(days) * 24 * time.Hour)
		out = append(out, fmt.Sprintf("The quotation is valid upto %s.", until.Format("02/01/2006")))
	}
	if schedule := strings.TrimSpace(in.PaymentSchedule); schedule != "" {
		out = append(out, fmt.Sprintf("%s of the total amount must be paid in advance before commencement of work/service.", schedule))
	}
	return out
}

// ValidityDays parses free-text validity. "7", "15" and "30" are matched as substrings in
// that order; otherwise the first integer found is used.
func ValidityDays(validity string) int {
	v := strings.ToLower(strings.TrimSpace(validity))
	switch {
	case v == "":
		return 0
	case strings.Contains(v, "7"):
		return 7
	case strings.Contains(v, "15"):
		return 15
	case strings.Contains(v, "30"):
		return 30
	}
	if m := firstInteger.FindString(v); m != "" {
		if n, err := strconv.Atoi(m); err == nil {
			return n
		}
	}
	return 0
}

func cleanCustomTerms(terms []string) []string {
	var out []string
	for _, t := range terms {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
