package tools

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestDeriveTimelineStandardSpan(t *testing.T) {
	contract := day("2025-01-01")
	closing := day("2025-02-01")

	milestones := DeriveTimeline(contract, closing)
	require.Len(t, milestones, 6)

	byTitle := make(map[string]time.Time, len(milestones))
	for _, m := range milestones {
		byTitle[m.Title] = m.DueDate
	}

	assert.Equal(t, day("2025-01-08"), byTitle["Home Inspection"])
	assert.Equal(t, day("2025-01-11"), byTitle["Inspection Response"])
	assert.Equal(t, day("2025-01-15"), byTitle["Appraisal"])
	// 70% of a 31-day span rounds down to day 21.
	assert.Equal(t, day("2025-01-22"), byTitle["Loan Approval"])
	assert.Equal(t, day("2025-01-30"), byTitle["Final Walkthrough"])
	assert.Equal(t, day("2025-02-01"), byTitle["Closing Day"])
}

func TestDeriveTimelineShortSpanClamps(t *testing.T) {
	contract := day("2025-03-01")
	closing := day("2025-03-06")

	milestones := DeriveTimeline(contract, closing)
	require.Len(t, milestones, 6)

	for _, m := range milestones {
		assert.False(t, m.DueDate.Before(contract), "%s before contract date", m.Title)
		assert.False(t, m.DueDate.After(closing), "%s after closing date", m.Title)
	}

	byTitle := make(map[string]time.Time, len(milestones))
	for _, m := range milestones {
		byTitle[m.Title] = m.DueDate
	}
	// Fixed offsets past the window land on the closing date.
	assert.Equal(t, closing, byTitle["Home Inspection"])
	assert.Equal(t, closing, byTitle["Appraisal"])
	assert.Equal(t, closing, byTitle["Closing Day"])
}

func TestDeriveTimelineSameDayClose(t *testing.T) {
	contract := day("2025-04-01")

	milestones := DeriveTimeline(contract, contract)
	require.Len(t, milestones, 6)
	for _, m := range milestones {
		assert.Equal(t, contract, m.DueDate)
	}
}

func TestDeriveTimelineClosingBeforeContract(t *testing.T) {
	milestones := DeriveTimeline(day("2025-05-10"), day("2025-05-01"))
	assert.Nil(t, milestones)
}
