package catalog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serviceIDs(defs []ServiceDefinition) []string {
	ids := make([]string, 0, len(defs))
	for _, d := range defs {
		ids = append(ids, d.ID)
	}
	return ids
}

func TestDefaultCatalogLoads(t *testing.T) {
	t.Parallel()

	c := Default()
	require.NotNil(t, c)
	assert.Len(t, c.Headers(), 8)
	assert.Equal(t, "Project Registration", c.Headers()[0].Name)
}

func TestFindServiceByIDAndName(t *testing.T) {
	t.Parallel()

	c := Default()

	svc, ok := c.FindServiceByID("service-legal-1")
	require.True(t, ok)
	assert.Equal(t, "LEGAL CONSULTATION", svc.Name)
	assert.Equal(t, CategoryMain, svc.Category)
	assert.NotEmpty(t, svc.SubServices)

	byName, ok := c.FindServiceByName("  legal   consultation ")
	require.True(t, ok)
	assert.Equal(t, svc.ID, byName.ID)

	addon, ok := c.FindServiceByName("Title Report (Add-on)")
	require.True(t, ok)
	assert.Equal(t, "service-addon-3", addon.ID)
	assert.Equal(t, CategoryAddon, addon.Category)

	_, ok = c.FindServiceByID("missing")
	assert.False(t, ok)
	_, ok = c.FindServiceByName("Custom Task")
	assert.False(t, ok)
}

func TestLookupsReturnCopies(t *testing.T) {
	t.Parallel()

	c := Default()
	svc, ok := c.FindServiceByID("service-legal-1")
	require.True(t, ok)
	svc.SubServices[0].Name = "mutated"

	again, _ := c.FindServiceByID("service-legal-1")
	assert.NotEqual(t, "mutated", again.SubServices[0].Name)
}

func TestIsPackageHeader(t *testing.T) {
	t.Parallel()

	c := Default()
	for _, name := range []string{"Package A", "Package B", "Package C", "Package D"} {
		assert.True(t, c.IsPackageHeader(name), name)
	}
	assert.False(t, c.IsPackageHeader("Compliance"))
	assert.False(t, c.IsPackageHeader(CustomizedHeader))
}

func TestServicesForPackageHeaderIsCumulative(t *testing.T) {
	t.Parallel()

	c := Default()
	services := c.ServicesForHeader("Package C")

	var main, addons []ServiceDefinition
	for _, s := range services {
		switch s.Category {
		case CategoryMain:
			main = append(main, s)
		case CategoryAddon:
			addons = append(addons, s)
		}
	}

	assert.Equal(t, []string{
		"service-package-a-1", "service-package-a-2", "service-package-a-3", "service-package-a-4",
		"service-package-b-1",
		"service-package-c-1",
	}, serviceIDs(main))
	assert.Len(t, addons, 9)

	tierB := serviceIDs(c.DefaultServices("Package B"))
	tierD := serviceIDs(c.DefaultServices("Package D"))
	for _, id := range tierB {
		assert.Contains(t, tierD, id)
	}
	assert.Greater(t, len(tierD), len(tierB))
}

func TestServicesForRegularHeader(t *testing.T) {
	t.Parallel()

	c := Default()
	services := c.ServicesForHeader("Legal Services")
	require.NotEmpty(t, services)
	assert.Equal(t, "service-legal-1", services[0].ID)
	assert.Equal(t, CategoryMain, services[0].Category)
	assert.Equal(t, CategoryAddon, services[len(services)-1].Category)
	assert.Empty(t, c.DefaultServices("Legal Services"))
}

func TestServicesForCustomizedHeader(t *testing.T) {
	t.Parallel()

	c := Default()
	services := c.ServicesForHeader(CustomizedHeader)

	seen := map[string]bool{}
	for _, s := range services {
		assert.False(t, seen[s.ID], "duplicate %s", s.ID)
		seen[s.ID] = true
		assert.NotEqual(t, CustomizedHeader, s.Origin)
		if s.Origin == AddOnsHeader {
			assert.Equal(t, CategoryAddon, s.Category)
		} else {
			assert.Equal(t, CategoryMain, s.Category)
		}
	}
	assert.True(t, seen["service-compliance-1"])
	assert.True(t, seen["service-addon-9"])
	assert.False(t, seen["service-customized-1"])
}

func TestAvailableHeaders(t *testing.T) {
	t.Parallel()

	c := Default()
	available := c.AvailableHeaders([]string{"Compliance", "Package A"})
	assert.NotContains(t, available, "Compliance")
	assert.NotContains(t, available, "Package A")
	assert.Contains(t, available, "Legal Services")
}

func TestIsAddon(t *testing.T) {
	t.Parallel()

	c := Default()
	assert.True(t, c.IsAddon("service-addon-4"))
	assert.False(t, c.IsAddon("service-compliance-1"))
	assert.False(t, c.IsAddon("nope"))
}

func TestLoadRejectsInvalidDocuments(t *testing.T) {
	t.Parallel()

	_, err := Load([]byte("{"))
	assert.Error(t, err)

	_, err = Load([]byte(`{"headers":[],"services":[]}`))
	assert.Error(t, err)

	_, err = Load([]byte(`{"services":[{"header":"X","items":[{"name":"no id"}]}]}`))
	assert.Error(t, err)
}

func TestPeriodOptions(t *testing.T) {
	t.Parallel()

	now := time.Date(2019, time.June, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, []string{"2017", "2018", "2019"}, YearOptions(now))
	assert.Len(t, QuarterOptions(now), 12)

	assert.Equal(t, []string{"2018-Q1", "2018-Q2", "2018-Q3", "2018-Q4"}, QuartersForYears([]string{"2018", "abc"}))
	assert.Equal(t, "2021", YearOfQuarter("2021-Q3"))
	assert.Nil(t, YearOptions(time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)))
}
