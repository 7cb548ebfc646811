package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

//go:embed catalog.json
var embeddedCatalog []byte

const (
	// AddOnsHeader holds the universal add-on services offered under every header.
	AddOnsHeader = "Add ons"
	// CustomizedHeader is the synthetic header that exposes the whole catalog.
	CustomizedHeader = "Customized Header"

	addOnSuffix = "(add-on)"
)

// Category tags a service as a core offering or an add-on.
type Category string

const (
	CategoryMain  Category = "main"
	CategoryAddon Category = "addon"
)

// SubServiceDefinition is a line of work owned by exactly one service.
type SubServiceDefinition struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ServiceDefinition is the canonical catalog entry for a service.
type ServiceDefinition struct {
	ID                  string                 `json:"id"`
	Name                string                 `json:"name"`
	Category            Category               `json:"category,omitempty"`
	Origin              string                 `json:"origin"`
	RequiresYearQuarter bool                   `json:"requiresYearQuarter,omitempty"`
	RequiresYearOnly    bool                   `json:"requiresYearOnly,omitempty"`
	SubServices         []SubServiceDefinition `json:"subServices"`
}

// Header is a top-level catalog grouping offered to the quotation builder.
type Header struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type document struct {
	Headers  []Header `json:"headers"`
	Services []struct {
		Header string              `json:"header"`
		Items  []ServiceDefinition `json:"items"`
	} `json:"services"`
	PackageHierarchy map[string][]string `json:"packageHierarchy"`
}

// Catalog is an immutable, in-memory view of the service catalog.
type Catalog struct {
	headers     []Header
	headerOrder []string
	services    map[string][]ServiceDefinition
	hierarchy   map[string][]string
	byID        map[string]ServiceDefinition
	byName      map[string]ServiceDefinition
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Default returns the catalog compiled into the binary.
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := Load(embeddedCatalog)
		if err != nil {
			panic(fmt.Sprintf("catalog: embedded data invalid: %v", err))
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// Load parses a catalog document.
func Load(data []byte) (*Catalog, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if len(doc.Services) == 0 {
		return nil, fmt.Errorf("catalog has no services")
	}

	c := &Catalog{
		headers:   doc.Headers,
		services:  make(map[string][]ServiceDefinition, len(doc.Services)),
		hierarchy: doc.PackageHierarchy,
		byID:      make(map[string]ServiceDefinition),
		byName:    make(map[string]ServiceDefinition),
	}
	if c.hierarchy == nil {
		c.hierarchy = map[string][]string{}
	}

	for _, group := range doc.Services {
		if _, dup := c.services[group.Header]; dup {
			return nil, fmt.Errorf("duplicate catalog header %q", group.Header)
		}
		c.headerOrder = append(c.headerOrder, group.Header)
		items := make([]ServiceDefinition, 0, len(group.Items))
		for _, svc := range group.Items {
			if strings.TrimSpace(svc.ID) == "" {
				return nil, fmt.Errorf("service without id under %q", group.Header)
			}
			if svc.Origin == "" {
				svc.Origin = group.Header
			}
			svc.Category = categoryForOrigin(svc.Origin)
			items = append(items, svc)
			if _, seen := c.byID[svc.ID]; !seen {
				c.byID[svc.ID] = svc
			}
			key := nameKey(svc.Name)
			if _, seen := c.byName[key]; !seen && key != "" {
				c.byName[key] = svc
			}
		}
		c.services[group.Header] = items
	}

	return c, nil
}

// Headers returns the ordered list of selectable headers.
func (c *Catalog) Headers() []Header {
	out := make([]Header, len(c.headers))
	copy(out, c.headers)
	return out
}

// AvailableHeaders returns header names not yet present in selected.
func (c *Catalog) AvailableHeaders(selected []string) []string {
	taken := make(map[string]struct{}, len(selected))
	for _, name := range selected {
		taken[name] = struct{}{}
	}
	out := make([]string, 0, len(c.headers))
	for _, h := range c.headers {
		if _, ok := taken[h.Name]; ok {
			continue
		}
		out = append(out, h.Name)
	}
	return out
}

// FindServiceByID returns the definition with the given id.
func (c *Catalog) FindServiceByID(id string) (ServiceDefinition, bool) {
	svc, ok := c.byID[strings.TrimSpace(id)]
	if !ok {
		return ServiceDefinition{}, false
	}
	return svc.clone(), true
}

// FindServiceByName matches case-insensitively and ignores a trailing "(Add-on)" marker
// added by the pricing backend.
func (c *Catalog) FindServiceByName(name string) (ServiceDefinition, bool) {
	svc, ok := c.byName[nameKey(name)]
	if !ok {
		return ServiceDefinition{}, false
	}
	return svc.clone(), true
}

// IsPackageHeader reports whether name is one of the package tiers.
func (c *Catalog) IsPackageHeader(name string) bool {
	_, ok := c.hierarchy[name]
	return ok
}

// PackageTiers returns the packages included by the named package, lowest tier first.
func (c *Catalog) PackageTiers(name string) []string {
	tiers, ok := c.hierarchy[name]
	if !ok {
		return []string{name}
	}
	out := make([]string, len(tiers))
	copy(out, tiers)
	return out
}

// AllServices returns every service except the customized placeholder, deduplicated by id
// and tagged by origin.
func (c *Catalog) AllServices() []ServiceDefinition {
	seen := make(map[string]struct{})
	var out []ServiceDefinition
	for _, header := range c.headerOrder {
		if header == CustomizedHeader {
			continue
		}
		for _, svc := range c.services[header] {
			if _, ok := seen[svc.ID]; ok {
				continue
			}
			seen[svc.ID] = struct{}{}
			tagged := svc.clone()
			tagged.Category = categoryForOrigin(svc.Origin)
			out = append(out, tagged)
		}
	}
	return out
}

// ServicesForHeader returns the services offered under header, main services first followed
// by the universal add-ons.
func (c *Catalog) ServicesForHeader(header string) []ServiceDefinition {
	if header == CustomizedHeader {
		return c.AllServices()
	}

	var main []ServiceDefinition
	if c.IsPackageHeader(header) {
		seen := make(map[string]struct{})
		for _, tier := range c.PackageTiers(header) {
			for _, svc := range c.services[tier] {
				if _, ok := seen[svc.ID]; ok {
					continue
				}
				seen[svc.ID] = struct{}{}
				main = append(main, svc)
			}
		}
	} else {
		main = c.services[header]
	}

	addOns := c.services[AddOnsHeader]
	out := make([]ServiceDefinition, 0, len(main)+len(addOns))
	for _, svc := range main {
		tagged := svc.clone()
		tagged.Category = CategoryMain
		out = append(out, tagged)
	}
	if header == AddOnsHeader {
		return out
	}
	for _, svc := range addOns {
		tagged := svc.clone()
		tagged.Category = CategoryAddon
		out = append(out, tagged)
	}
	return out
}

// DefaultServices returns the main services preselected for package and customized headers.
// Other headers have no defaults.
func (c *Catalog) DefaultServices(header string) []ServiceDefinition {
	if !c.IsPackageHeader(header) && header != CustomizedHeader {
		return nil
	}
	var out []ServiceDefinition
	for _, svc := range c.ServicesForHeader(header) {
		if svc.Category == CategoryMain {
			out = append(out, svc)
		}
	}
	return out
}

// IsAddon reports whether the service id belongs to the universal add-ons.
func (c *Catalog) IsAddon(serviceID string) bool {
	svc, ok := c.byID[strings.TrimSpace(serviceID)]
	return ok && svc.Category == CategoryAddon
}

func (s ServiceDefinition) clone() ServiceDefinition {
	out := s
	if s.SubServices != nil {
		out.SubServices = make([]SubServiceDefinition, len(s.SubServices))
		copy(out.SubServices, s.SubServices)
	}
	return out
}

func categoryForOrigin(origin string) Category {
	if origin == AddOnsHeader {
		return CategoryAddon
	}
	return CategoryMain
}

func nameKey(name string) string {
	key := strings.ToLower(strings.Join(strings.Fields(name), " "))
	key = strings.TrimSpace(strings.TrimSuffix(key, addOnSuffix))
	return key
}
