// Package bands computes tolerance bands around sleeve targets
package bands

import (
	"fmt"
	"math"

	"github.com/bobmcallan/folio/internal/models"
)

// CalculateBand returns the acceptable range around targetPercent.
// The half-width is the relative tolerance of the target, raised to the floor
// and then limited to the cap. Bounds are clipped to [0, 100].
func CalculateBand(targetPercent float64, cfg models.BandConfig) models.Band {
	relative := targetPercent * cfg.RelativeTolerance / 100
	halfWidth := math.Max(cfg.AbsoluteFloor, relative)
	halfWidth = math.Min(cfg.AbsoluteCap, halfWidth)

	return models.Band{
		Lower:     math.Max(0, targetPercent-halfWidth),
		Upper:     math.Min(100, targetPercent+halfWidth),
		HalfWidth: halfWidth,
	}
}

// EvaluateStatus reports ok when actual lies inside the band, bounds inclusive
func EvaluateStatus(actualPercent float64, band models.Band) models.AllocationStatus {
	if actualPercent >= band.Lower && actualPercent <= band.Upper {
		return models.AllocationStatusOK
	}
	return models.AllocationStatusWarning
}

// EvaluateAllocation computes the band for target and classifies actual against it
func EvaluateAllocation(actualPercent, targetPercent float64, cfg models.BandConfig) (models.Band, models.AllocationStatus) {
	band := CalculateBand(targetPercent, cfg)
	return band, EvaluateStatus(actualPercent, band)
}

// FormatBand renders a band as whole percentages, e.g. "16-24%"
func FormatBand(band models.Band) string {
	return fmt.Sprintf("%.0f-%.0f%%", band.Lower, band.Upper)
}
