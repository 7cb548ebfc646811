package catalog

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FirstYear is the earliest compliance year offered for time-based services.
const FirstYear = 2017

var quarterLabels = [...]string{"Q1", "Q2", "Q3", "Q4"}

// YearOptions lists every selectable year from FirstYear through now's year.
func YearOptions(now time.Time) []string {
	last := now.Year()
	if last < FirstYear {
		return nil
	}
	years := make([]string, 0, last-FirstYear+1)
	for y := FirstYear; y <= last; y++ {
		years = append(years, strconv.Itoa(y))
	}
	return years
}

// QuarterOptions lists the quarters of every selectable year, formatted YEAR-Qn.
func QuarterOptions(now time.Time) []string {
	return QuartersForYears(YearOptions(now))
}

// QuartersForYears expands each year into its four quarters, preserving order.
// Non-numeric years are skipped.
func QuartersForYears(years []string) []string {
	out := make([]string, 0, len(years)*len(quarterLabels))
	for _, year := range years {
		year = strings.TrimSpace(year)
		if _, err := strconv.Atoi(year); err != nil {
			continue
		}
		for _, q := range quarterLabels {
			out = append(out, fmt.Sprintf("%s-%s", year, q))
		}
	}
	return out
}

// YearOfQuarter returns the year part of a YEAR-Qn value.
func YearOfQuarter(quarter string) string {
	year, _, _ := strings.Cut(strings.TrimSpace(quarter), "-")
	return year
}
