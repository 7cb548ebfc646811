package pricing

import (
	"encoding/json"
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), append([]any{"want %s got %s", want, got.String()}, msgAndArgs...)...)
}

func assertConsistent(t *testing.T, s PricedService) {
	t.Helper()
	require.True(t, s.FinalAmount().GreaterThanOrEqual(decimal.Zero), "final below zero")
	require.True(t, s.FinalAmount().LessThanOrEqual(s.TotalAmount()), "final above total")
	require.True(t, s.FinalAmount().Add(s.DiscountAmount()).Equal(s.TotalAmount()), "final+discount != total")
	if s.TotalAmount().IsZero() {
		require.True(t, s.DiscountPercent().IsZero())
	}
}

func TestServiceEditScenario(t *testing.T) {
	t.Parallel()

	svc := NewPricedService("service-legal-1", "LEGAL CONSULTATION", dec("100000"))

	svc = svc.WithDiscountPercent(dec("10"))
	assertDecimal(t, "10000", svc.DiscountAmount())
	assertDecimal(t, "90000", svc.FinalAmount())
	assert.Equal(t, EditPercent, svc.Edit())

	svc = svc.WithFinalAmount(dec("50000"))
	assertDecimal(t, "50000", svc.DiscountAmount())
	assertDecimal(t, "50", svc.DiscountPercent())
	assert.Equal(t, EditFinal, svc.Edit())
}

func TestServiceEditsClamp(t *testing.T) {
	t.Parallel()

	svc := NewPricedService("a", "A", dec("1000"))

	over := svc.WithFinalAmount(dec("1500"))
	assertDecimal(t, "1000", over.FinalAmount())
	assertDecimal(t, "0", over.DiscountAmount())

	negative := svc.WithFinalAmount(dec("-5"))
	assertDecimal(t, "0", negative.FinalAmount())
	assertDecimal(t, "100", negative.DiscountPercent())

	bigDiscount := svc.WithDiscountAmount(dec("5000"))
	assertDecimal(t, "0", bigDiscount.FinalAmount())
	assertDecimal(t, "1000", bigDiscount.DiscountAmount())

	pct := svc.WithDiscountPercent(dec("150"))
	assertDecimal(t, "100", pct.DiscountPercent())
	assertDecimal(t, "0", pct.FinalAmount())

	zero := NewPricedService("z", "Z", decimal.Zero).WithDiscountPercent(dec("40"))
	assertDecimal(t, "0", zero.DiscountPercent())
	assertDecimal(t, "0", zero.FinalAmount())
}

func TestPercentDiscountRoundsToWholeRupees(t *testing.T) {
	t.Parallel()

	svc := NewPricedService("a", "A", dec("999")).WithDiscountPercent(dec("12.5"))
	assertDecimal(t, "125", svc.DiscountAmount())
	assertDecimal(t, "874", svc.FinalAmount())
	assertDecimal(t, "12.5", svc.DiscountPercent())
}

func TestServiceInvariantHoldsAcrossRandomEdits(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 200; i++ {
		total := decimal.NewFromInt(rng.Int63n(500000))
		svc := NewPricedService("s", "S", total)
		for step := 0; step < 20; step++ {
			value := decimal.NewFromFloat(rng.Float64()*700000 - 100000).Round(2)
			switch rng.Intn(4) {
			case 0:
				svc = svc.WithFinalAmount(value)
			case 1:
				svc = svc.WithDiscountAmount(value)
			case 2:
				svc = svc.WithDiscountPercent(value.Div(dec("1000")))
			case 3:
				svc = svc.WithTotalAmount(decimal.NewFromInt(rng.Int63n(500000)))
			}
			assertConsistent(t, svc)
		}
	}
}

func TestWithTotalAmountReplaysEdit(t *testing.T) {
	t.Parallel()

	svc := NewPricedService("a", "A", dec("1000")).WithDiscountPercent(dec("10"))
	rebased := svc.WithTotalAmount(dec("2000"))
	assertDecimal(t, "200", rebased.DiscountAmount())
	assert.Equal(t, EditPercent, rebased.Edit())

	fixed := NewPricedService("a", "A", dec("1000")).WithDiscountAmount(dec("300"))
	assertDecimal(t, "1700", fixed.WithTotalAmount(dec("2000")).FinalAmount())
}

func TestGlobalPercentScenario(t *testing.T) {
	t.Parallel()

	b := Breakdown{{
		HeaderName: "Legal Services",
		Services: []PricedService{
			NewPricedService("a", "A", dec("100000")),
			NewPricedService("b", "B", dec("50000")),
		},
	}}

	totals := ComputeTotals(b, GlobalPercent(dec("20")))
	assertDecimal(t, "150000", totals.ServiceSubtotal)
	assertDecimal(t, "30000", totals.GlobalDiscount)
	assertDecimal(t, "120000", totals.Total)
	assertDecimal(t, "20", totals.EffectiveGlobalPercent)
	assertDecimal(t, "30000", totals.TotalDiscount)
}

func TestGlobalDiscountClamp(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		base := decimal.NewFromInt(rng.Int63n(1000000))
		requested := decimal.NewFromFloat(rng.Float64()*3000000 - 500000).Round(2)
		for _, g := range []GlobalDiscount{GlobalAmount(requested), GlobalPercent(requested.Div(dec("10000")))} {
			r := g.Resolve(base)
			require.True(t, r.Amount.GreaterThanOrEqual(decimal.Zero))
			require.True(t, r.Amount.LessThanOrEqual(base))
		}
	}

	r := GlobalAmount(dec("5000")).Resolve(dec("2000"))
	assertDecimal(t, "2000", r.Amount)
	assertDecimal(t, "100", r.Percent)

	r = GlobalAmount(dec("500")).Resolve(decimal.Zero)
	assertDecimal(t, "0", r.Amount)
	assertDecimal(t, "0", r.Percent)

	r = NoGlobalDiscount().Resolve(dec("1000"))
	assertDecimal(t, "0", r.Amount)
}

func TestTotalsConsistency(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(99))
	for i := 0; i < 100; i++ {
		var b Breakdown
		for h := 0; h < 1+rng.Intn(4); h++ {
			header := HeaderBreakdown{HeaderName: "H"}
			for s := 0; s < rng.Intn(5); s++ {
				svc := NewPricedService("s", "S", decimal.NewFromInt(rng.Int63n(300000)))
				svc = svc.WithDiscountPercent(decimal.NewFromInt(rng.Int63n(60)))
				header.Services = append(header.Services, svc)
			}
			if rng.Intn(3) == 0 {
				header.HeaderTotal = decimal.NewNullDecimal(decimal.NewFromInt(rng.Int63n(300000)))
			}
			b = append(b, header)
		}
		g := GlobalAmount(decimal.NewFromInt(rng.Int63n(400000)))
		if rng.Intn(2) == 0 {
			g = GlobalPercent(decimal.NewFromInt(rng.Int63n(100)))
		}

		totals := ComputeTotals(b, g)
		require.True(t, totals.Total.Equal(totals.OriginalSubtotal.Sub(totals.TotalDiscount)))
		require.True(t, totals.GlobalDiscount.LessThanOrEqual(totals.ServiceSubtotal))
		require.True(t, totals.Total.GreaterThanOrEqual(decimal.Zero))
	}
}

func TestComputeTotalsLumpSumHeader(t *testing.T) {
	t.Parallel()

	b := Breakdown{{
		HeaderName: "Package B",
		Services: []PricedService{
			NewPricedService("p1", "Core", decimal.Zero),
			NewPricedService("p2", "Other", decimal.Zero),
		},
		HeaderTotal: decimal.NewNullDecimal(dec("250000")),
	}}

	totals := ComputeTotals(b, NoGlobalDiscount())
	assertDecimal(t, "250000", totals.Total)
	require.Len(t, totals.Headers, 1)
	assert.True(t, totals.Headers[0].LumpSum)
}

func TestMergeReappliesEdits(t *testing.T) {
	t.Parallel()

	edits := Breakdown{{
		HeaderName: "legal services",
		Services: []PricedService{
			NewPricedService("a", "A", dec("100000")).WithDiscountPercent(dec("10")),
			NewPricedService("", "Drafting", dec("20000")).WithFinalAmount(dec("15000")),
			NewPricedService("gone", "Gone", dec("1")).WithDiscountAmount(dec("1")),
		},
	}}
	fresh := Breakdown{{
		HeaderName: "Legal Services",
		Services: []PricedService{
			NewPricedService("a", "A", dec("200000")),
			NewPricedService("b", "drafting", dec("30000")),
			NewPricedService("c", "C", dec("5000")),
		},
	}}

	merged := Merge(fresh, edits)
	require.Len(t, merged, 1)
	require.Len(t, merged[0].Services, 3)
	assertDecimal(t, "20000", merged[0].Services[0].DiscountAmount())
	assertDecimal(t, "15000", merged[0].Services[1].FinalAmount())
	assert.Equal(t, EditNone, merged[0].Services[2].Edit())

	assertDecimal(t, "200000", fresh[0].Services[0].FinalAmount(), "fresh must not be mutated")

	again := Merge(merged, merged)
	assert.Equal(t, merged.Lines(), again.Lines())
}

func TestBreakdownLinesRoundTrip(t *testing.T) {
	t.Parallel()

	b := Breakdown{{
		HeaderName:  "Package A",
		Services:    []PricedService{NewPricedService("a", "A", dec("1000")).WithDiscountAmount(dec("100"))},
		HeaderTotal: decimal.NewNullDecimal(dec("1000")),
	}}

	raw, err := json.Marshal(b.Lines())
	require.NoError(t, err)

	var lines []HeaderLine
	require.NoError(t, json.Unmarshal(raw, &lines))
	back := BreakdownFromLines(lines)

	require.Len(t, back, 1)
	assertDecimal(t, "900", back[0].Services[0].FinalAmount())
	assert.Equal(t, EditAmount, back[0].Services[0].Edit())
	require.True(t, back[0].HeaderTotal.Valid)
	assertDecimal(t, "1000", back[0].HeaderTotal.Decimal)
}

func TestServiceLineInfersMissingEdit(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		raw   string
		final string
		edit  EditKind
	}{
		"projections only": {`{"totalAmount": 100000, "discountAmount": 10000, "discountPercent": 10, "finalAmount": 90000}`, "90000", EditFinal},
		"legacy name":      {`{"totalAmount": 100000, "discountPercent": 10, "editedField": "percentage"}`, "90000", EditPercent},
		"amount only":      {`{"totalAmount": 100000, "discountAmount": 2500}`, "97500", EditAmount},
		"untouched":        {`{"totalAmount": 100000, "finalAmount": 100000}`, "100000", EditNone},
		"unknown name":     {`{"totalAmount": 100000, "discountPercent": 20, "editedField": "markup"}`, "80000", EditPercent},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			var line ServiceLine
			require.NoError(t, json.Unmarshal([]byte(tc.raw), &line))
			svc := line.Service()
			assertDecimal(t, tc.final, svc.FinalAmount())
			assert.Equal(t, tc.edit, svc.Edit())
			assertConsistent(t, svc)
		})
	}
}

func TestServiceLineOmitsZeroBasePrice(t *testing.T) {
	t.Parallel()

	raw, err := json.Marshal(NewPricedService("a", "A", dec("1000")).Line())
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "basePrice")

	svc := NewPricedService("b", "B", dec("4000"))
	svc.Quantity = Quantity{BasePrice: dec("1000"), RequiresYearQuarter: true, QuarterCount: 4}
	raw, err = json.Marshal(svc.Line())
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"basePrice":"1000"`)
}

func TestParseAmountIsLenient(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		in   any
		want string
	}{
		"number":        {in: 1500.5, want: "1500.5"},
		"int":           {in: 42, want: "42"},
		"formatted":     {in: "₹ 1,25,000", want: "125000"},
		"rupee prefix":  {in: "Rs.2500", want: "2500"},
		"garbage":       {in: "abc", want: "0"},
		"nil":           {in: nil, want: "0"},
		"bool":          {in: true, want: "0"},
		"json number":   {in: json.Number("12.75"), want: "12.75"},
		"empty string":  {in: "", want: "0"},
		"negative kept": {in: "-10", want: "-10"},
	}
	for name, tc := range cases {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assertDecimal(t, tc.want, ParseAmount(tc.in))
		})
	}

	assert.True(t, HasAmount("1,000"))
	assert.False(t, HasAmount("n/a"))
	assert.False(t, HasAmount(nil))
}

func TestParseEditKindAndDiscountType(t *testing.T) {
	t.Parallel()

	kind, err := ParseEditKind("percentage")
	require.NoError(t, err)
	assert.Equal(t, EditPercent, kind)

	kind, err = ParseEditKind("fixed")
	require.NoError(t, err)
	assert.Equal(t, EditAmount, kind)

	_, err = ParseEditKind("bogus")
	assert.Error(t, err)

	dt, err := ParseDiscountType("Fixed")
	require.NoError(t, err)
	assert.Equal(t, DiscountAmount, dt)
	assert.True(t, dt.IsValid())
	assert.False(t, DiscountType("other").IsValid())
}
