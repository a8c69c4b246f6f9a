package returns

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bobmcallan/folio/internal/models"
)

func TestComparisonDate(t *testing.T) {
	now := time.Date(2024, 3, 31, 15, 30, 0, 0, time.UTC)
	first := date("2021-05-04")

	tests := []struct {
		period models.ReturnPeriod
		want   string
	}{
		{models.PeriodToday, "2024-03-30"},
		{models.PeriodWeek, "2024-03-24"},
		{models.PeriodMonth, "2024-03-01"},
		{models.PeriodSixMonth, "2023-10-01"}, // Sep 31 normalises forward
		{models.PeriodYTD, "2023-12-31"},
		{models.PeriodYear, "2023-03-31"},
		{models.PeriodAll, "2021-05-04"},
	}
	for _, tt := range tests {
		t.Run(string(tt.period), func(t *testing.T) {
			assert.Equal(t, tt.want, ComparisonDate(tt.period, now, first).Format("2006-01-02"))
		})
	}

	assert.Equal(t, "2023-03-31", ComparisonDate(models.PeriodAll, now, time.Time{}).Format("2006-01-02"))
}

func TestHoldingPeriodLabel(t *testing.T) {
	tests := []struct {
		years float64
		want  string
	}{
		{3 / 365.25, "3d"},
		{18 / 365.25, "3w"},
		{31 / 365.25, "1mo"},
		{0.5, "6mo"},
		{1.5, "1.5y"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HoldingPeriodLabel(tt.years))
	}
}
