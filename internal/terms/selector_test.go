package terms

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedSelector() *Selector {
	return Default().WithClock(func() time.Time {
		return time.Date(2024, time.March, 1, 10, 0, 0, 0, time.UTC)
	})
}

func names(categories []Category) []string {
	out := make([]string, 0, len(categories))
	for _, c := range categories {
		out = append(out, c.Name)
	}
	return out
}

func TestSelectAlwaysIncludesGeneral(t *testing.T) {
	t.Parallel()

	got := fixedSelector().Select(Input{})
	require.Len(t, got, 1)
	assert.Equal(t, "General T&C", got[0].Name)
	assert.Len(t, got[0].Clauses, 10)
}

func TestSelectMapsServicesAndHeaders(t *testing.T) {
	t.Parallel()

	got := fixedSelector().Select(Input{Headers: []Header{
		{Name: "Package B", Services: []string{"Package B (Core Services)"}},
		{Name: "Legal Services", Services: []string{"Title Certificate"}},
		{Name: "Package D", Services: []string{"Anything"}},
		{Name: "Empty Header"},
	}})

	assert.Equal(t, []string{"General T&C", "Package A,B,C", "Package D"}, names(got))
	assert.Len(t, got[1].Clauses, 5)
	assert.Len(t, got[2].Clauses, 1)
}

func TestDynamicClausesPrependGeneral(t *testing.T) {
	t.Parallel()

	created := time.Date(2024, time.January, 25, 0, 0, 0, 0, time.UTC)
	got := fixedSelector().Select(Input{
		Validity:        "Valid for 15 days",
		PaymentSchedule: "50%",
		CreatedAt:       &created,
	})

	require.NotEmpty(t, got)
	general := got[0].Clauses
	require.Len(t, general, 12)
	assert.Equal(t, "The quotation is valid upto 09/02/2024.", general[0])
	assert.Equal(t, "50% of the total amount must be paid in advance before commencement of work/service.", general[1])
	assert.Equal(t, "The above quotation is subject to this project only.", general[2])
}

func TestDynamicValidityUsesNowWithoutCreatedAt(t *testing.T) {
	t.Parallel()

	clauses := fixedSelector().DynamicClauses(Input{Validity: "30 days"})
	assert.Equal(t, []string{"The quotation is valid upto 31/03/2024."}, clauses)
}

func TestValidityDays(t *testing.T) {
	t.Parallel()

	cases := map[string]int{
		"7 days":        7,
		"15 Days":       15,
		"30":            30,
		"one month":     0,
		"45 days":       45,
		"Valid 17 days": 7,
		"":              0,
	}
	for in, want := range cases {
		assert.Equal(t, want, ValidityDays(in), in)
	}
}

func TestCustomTermsCategory(t *testing.T) {
	t.Parallel()

	got := fixedSelector().Select(Input{CustomTerms: []string{"  ", " Travel billed at actuals "}})
	require.Len(t, got, 2)
	assert.Equal(t, CustomCategory, got[1].Name)
	assert.Equal(t, []string{"Travel billed at actuals"}, got[1].Clauses)
}

func TestCategoryFor(t *testing.T) {
	t.Parallel()

	s := Default()
	assert.Equal(t, "Package A,B,C", s.CategoryFor("Unknown", "Package A"))
	assert.Equal(t, "General T&C", s.CategoryFor("Form 1", "Package D"))
	assert.Equal(t, "General T&C", s.CategoryFor("Unknown", "Unknown"))
}

func TestLoadRejectsBadDocuments(t *testing.T) {
	t.Parallel()

	_, err := Load([]byte("categories: ["))
	assert.Error(t, err)

	_, err = Load([]byte("default_category: X\ncategories: []\n"))
	assert.Error(t, err)

	_, err = Load([]byte("default_category: X\ncategories:\n  - name: X\n    clauses: [a]\nmapping:\n  S: Y\n"))
	assert.Error(t, err)
}
