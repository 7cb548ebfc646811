package selection

import (
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/reraeasy/quotation-engine/internal/approval"
	"github.com/reraeasy/quotation-engine/internal/catalog"
	"github.com/reraeasy/quotation-engine/internal/normalize"
	"github.com/reraeasy/quotation-engine/internal/terms"
	pkgerrors "github.com/reraeasy/quotation-engine/pkg/errors"
)

// SelectedService is one chosen service with its sub-service and period selection.
type SelectedService struct {
	ServiceID             string   `json:"serviceId"`
	Name                  string   `json:"name"`
	SelectedSubServiceIDs []string `json:"selectedSubServiceIds"`
	SelectedYears         []string `json:"selectedYears,omitempty"`
	SelectedQuarters      []string `json:"selectedQuarters,omitempty"`
	QuarterCount          int      `json:"quarterCount"`
}

// SelectedHeader is a header in the builder. OriginalName is the stable template id;
// customized headers carry a unique suffix so several can coexist.
type SelectedHeader struct {
	Name         string            `json:"name"`
	OriginalName string            `json:"originalName"`
	Services     []SelectedService `json:"services"`
	Defaults     []string          `json:"defaults"`
}

// Template returns the catalog header this header was created from.
func (h SelectedHeader) Template() string {
	return approval.TemplateName(approval.HeaderSelection{Name: h.Name, OriginalName: h.OriginalName})
}

// ServiceIDs lists the selected service ids.
func (h SelectedHeader) ServiceIDs() []string {
	ids := make([]string, 0, len(h.Services))
	for _, s := range h.Services {
		ids = append(ids, s.ServiceID)
	}
	return ids
}

// Session holds the header selection of one quotation being built.
type Session struct {
	catalog *catalog.Catalog
	headers []SelectedHeader
	newID   func() string
}

// NewSession starts an empty session. A nil catalog uses the embedded default.
func NewSession(c *catalog.Catalog) *Session {
	if c == nil {
		c = catalog.Default()
	}
	return &Session{catalog: c, newID: func() string { return uuid.NewString()[:8] }}
}

// Headers returns a deep copy of the current selection.
func (s *Session) Headers() []SelectedHeader {
	out := make([]SelectedHeader, len(s.headers))
	for i, h := range s.headers {
		out[i] = cloneHeader(h)
	}
	return out
}

// AddHeader appends a header created from template. displayName is only used for the
// customized header. Package headers and customized headers preselect their default services
// with every sub-service.
func (s *Session) AddHeader(template, displayName string) (SelectedHeader, error) {
	template = strings.TrimSpace(template)
	if !s.knownHeader(template) {
		return SelectedHeader{}, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown header %q", template))
	}

	h := SelectedHeader{Name: template, OriginalName: template, Defaults: []string{}}
	if template == catalog.CustomizedHeader {
		if name := strings.TrimSpace(displayName); name != "" {
			h.Name = name
		}
		h.OriginalName = fmt.Sprintf("%s#%s", catalog.CustomizedHeader, s.newID())
	}
	if s.indexOf(h.Name) >= 0 {
		return SelectedHeader{}, pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("header %q already added", h.Name))
	}

	for _, def := range s.catalog.DefaultServices(template) {
		h.Services = append(h.Services, selectAll(def))
		h.Defaults = append(h.Defaults, def.ID)
	}
	s.headers = append(s.headers, h)
	return cloneHeader(h), nil
}

// RemoveHeader drops the named header.
func (s *Session) RemoveHeader(name string) error {
	i := s.indexOf(name)
	if i < 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("header %q not selected", name))
	}
	s.headers = slices.Delete(s.headers, i, i+1)
	return nil
}

// ToggleService selects or deselects a service under header. Selecting picks every
// sub-service; deselecting clears sub-services and periods. An add-on may be selected under
// one header only.
func (s *Session) ToggleService(header, serviceID string) error {
	h, def, err := s.resolve(header, serviceID)
	if err != nil {
		return err
	}
	if i := serviceIndex(h, serviceID); i >= 0 {
		h.Services = slices.Delete(h.Services, i, i+1)
		return nil
	}
	if def.Category == catalog.CategoryAddon {
		if owner := s.addonOwner(serviceID); owner != "" {
			return pkgerrors.New(pkgerrors.CodeConflict,
				fmt.Sprintf("%s is already selected under %s", def.Name, owner))
		}
	}
	h.Services = append(h.Services, selectAll(def))
	return nil
}

// ToggleSubService flips one sub-service. Selecting a sub-service selects its parent;
// removing the last one deselects the parent.
func (s *Session) ToggleSubService(header, serviceID, subID string) error {
	h, def, err := s.resolve(header, serviceID)
	if err != nil {
		return err
	}
	if !slices.ContainsFunc(def.SubServices, func(sub catalog.SubServiceDefinition) bool { return sub.ID == subID }) {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("sub-service %q does not belong to %q", subID, serviceID))
	}

	i := serviceIndex(h, serviceID)
	if i < 0 {
		if def.Category == catalog.CategoryAddon {
			if owner := s.addonOwner(serviceID); owner != "" {
				return pkgerrors.New(pkgerrors.CodeConflict,
					fmt.Sprintf("%s is already selected under %s", def.Name, owner))
			}
		}
		svc := selectAll(def)
		svc.SelectedSubServiceIDs = []string{subID}
		h.Services = append(h.Services, svc)
		return nil
	}

	svc := &h.Services[i]
	if j := slices.Index(svc.SelectedSubServiceIDs, subID); j >= 0 {
		svc.SelectedSubServiceIDs = slices.Delete(svc.SelectedSubServiceIDs, j, j+1)
		if len(svc.SelectedSubServiceIDs) == 0 {
			h.Services = slices.Delete(h.Services, i, i+1)
		}
		return nil
	}
	svc.SelectedSubServiceIDs = orderedSubset(def, append(svc.SelectedSubServiceIDs, subID))
	return nil
}

// SetYears replaces the selected years of a time-based service and drops quarters outside them.
func (s *Session) SetYears(header, serviceID string, years []string) error {
	svc, def, err := s.selectedService(header, serviceID)
	if err != nil {
		return err
	}
	if !def.RequiresYearQuarter && !def.RequiresYearOnly {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s is not priced per period", def.Name))
	}
	svc.SelectedYears = uniqueSorted(years)

	kept := svc.SelectedQuarters[:0:0]
	for _, q := range svc.SelectedQuarters {
		if slices.Contains(svc.SelectedYears, catalog.YearOfQuarter(q)) {
			kept = append(kept, q)
		}
	}
	svc.SelectedQuarters = kept
	svc.QuarterCount = max(len(kept), 1)
	return nil
}

// SetQuarters replaces the selected quarters of a quarterly service; years follow.
func (s *Session) SetQuarters(header, serviceID string, quarters []string) error {
	svc, def, err := s.selectedService(header, serviceID)
	if err != nil {
		return err
	}
	if !def.RequiresYearQuarter {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s is not priced per quarter", def.Name))
	}
	svc.SelectedQuarters = uniqueSorted(quarters)
	years := make([]string, 0, len(svc.SelectedQuarters))
	for _, q := range svc.SelectedQuarters {
		years = append(years, catalog.YearOfQuarter(q))
	}
	svc.SelectedYears = uniqueSorted(years)
	svc.QuarterCount = max(len(svc.SelectedQuarters), 1)
	return nil
}

// QuarterCount returns the pricing multiplier of a selected service.
func (s *Session) QuarterCount(header, serviceID string) int {
	svc, _, err := s.selectedService(header, serviceID)
	if err != nil {
		return 0
	}
	return svc.QuarterCount
}

// ApprovalHeaders projects the selection for the approval evaluator.
func (s *Session) ApprovalHeaders() []approval.HeaderSelection {
	out := make([]approval.HeaderSelection, 0, len(s.headers))
	for _, h := range s.headers {
		out = append(out, approval.HeaderSelection{
			Name:         h.Name,
			OriginalName: h.OriginalName,
			ServiceIDs:   h.ServiceIDs(),
			Defaults:     slices.Clone(h.Defaults),
		})
	}
	return out
}

// TermsHeaders projects the selection for the terms selector.
func (s *Session) TermsHeaders() []terms.Header {
	out := make([]terms.Header, 0, len(s.headers))
	for _, h := range s.headers {
		th := terms.Header{Name: h.Name}
		for _, svc := range h.Services {
			th.Services = append(th.Services, svc.Name)
		}
		out = append(out, th)
	}
	return out
}

// FromQuotation rebuilds a session from a normalized quotation. Services are resolved
// against the catalog by id, then name; unknown services are kept by their normalized id.
func FromQuotation(c *catalog.Catalog, q normalize.Quotation) *Session {
	s := NewSession(c)
	for _, nh := range q.Headers {
		h := SelectedHeader{Name: nh.Name, OriginalName: nh.OriginalName}
		if h.OriginalName == "" {
			h.OriginalName = nh.Name
		}
		h.Defaults = approval.DefaultIDs(s.catalog, h.Template())

		for _, ns := range nh.Services {
			svc := SelectedService{
				ServiceID:        ns.ID,
				Name:             ns.Name,
				SelectedYears:    slices.Clone(ns.SelectedYears),
				SelectedQuarters: slices.Clone(ns.SelectedQuarters),
				QuarterCount:     max(ns.QuarterCount, 1),
			}
			def, ok := s.catalog.FindServiceByID(ns.ID)
			if !ok {
				def, ok = s.catalog.FindServiceByName(ns.Name)
			}
			if ok {
				svc.ServiceID = def.ID
				svc.Name = def.Name
				if len(ns.SelectedSubServiceIDs) > 0 {
					svc.SelectedSubServiceIDs = orderedSubset(def, ns.SelectedSubServiceIDs)
				}
				if len(svc.SelectedSubServiceIDs) == 0 {
					svc.SelectedSubServiceIDs = allSubIDs(def)
				}
			} else {
				for _, sub := range ns.SubServices {
					svc.SelectedSubServiceIDs = append(svc.SelectedSubServiceIDs, sub.ID)
				}
			}
			h.Services = append(h.Services, svc)
		}
		s.headers = append(s.headers, h)
	}
	return s
}

func (s *Session) knownHeader(name string) bool {
	for _, h := range s.catalog.Headers() {
		if h.Name == name {
			return true
		}
	}
	return false
}

func (s *Session) indexOf(name string) int {
	key := strings.TrimSpace(name)
	for i, h := range s.headers {
		if strings.EqualFold(h.Name, key) {
			return i
		}
	}
	return -1
}

func (s *Session) resolve(header, serviceID string) (*SelectedHeader, catalog.ServiceDefinition, error) {
	i := s.indexOf(header)
	if i < 0 {
		return nil, catalog.ServiceDefinition{}, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("header %q not selected", header))
	}
	h := &s.headers[i]
	for _, def := range s.catalog.ServicesForHeader(h.Template()) {
		if def.ID == serviceID {
			return h, def, nil
		}
	}
	return nil, catalog.ServiceDefinition{}, pkgerrors.New(pkgerrors.CodeValidation,
		fmt.Sprintf("service %q is not offered under %q", serviceID, h.Name))
}

func (s *Session) selectedService(header, serviceID string) (*SelectedService, catalog.ServiceDefinition, error) {
	h, def, err := s.resolve(header, serviceID)
	if err != nil {
		return nil, def, err
	}
	i := serviceIndex(h, serviceID)
	if i < 0 {
		return nil, def, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("service %q is not selected", serviceID))
	}
	return &h.Services[i], def, nil
}

func (s *Session) addonOwner(serviceID string) string {
	for _, h := range s.headers {
		if serviceIndex(&h, serviceID) >= 0 {
			return h.Name
		}
	}
	return ""
}

func serviceIndex(h *SelectedHeader, serviceID string) int {
	for i, svc := range h.Services {
		if svc.ServiceID == serviceID {
			return i
		}
	}
	return -1
}

func selectAll(def catalog.ServiceDefinition) SelectedService {
	return SelectedService{
		ServiceID:             def.ID,
		Name:                  def.Name,
		SelectedSubServiceIDs: allSubIDs(def),
		QuarterCount:          1,
	}
}

func allSubIDs(def catalog.ServiceDefinition) []string {
	ids := make([]string, 0, len(def.SubServices))
	for _, sub := range def.SubServices {
		ids = append(ids, sub.ID)
	}
	return ids
}

// orderedSubset keeps the ids that belong to def, in catalog order.
func orderedSubset(def catalog.ServiceDefinition, ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, sub := range def.SubServices {
		if slices.Contains(ids, sub.ID) {
			out = append(out, sub.ID)
		}
	}
	return out
}

func uniqueSorted(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func cloneHeader(h SelectedHeader) SelectedHeader {
	out := h
	out.Defaults = slices.Clone(h.Defaults)
	out.Services = make([]SelectedService, len(h.Services))
	for i, svc := range h.Services {
		svc.SelectedSubServiceIDs = slices.Clone(svc.SelectedSubServiceIDs)
		svc.SelectedYears = slices.Clone(svc.SelectedYears)
		svc.SelectedQuarters = slices.Clone(svc.SelectedQuarters)
		out.Services[i] = svc
	}
	return out
}
