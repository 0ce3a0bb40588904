package core

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// Pie geometry on a 200x200 viewBox.
const (
	PieCenterX = 100.0
	PieCenterY = 100.0
	PieRadius  = 80.0
	pieStart   = -90.0 // 12 o'clock
)

// PieEntry is one labelled amount to plot.
type PieEntry struct {
	Label  string
	Amount decimal.Decimal
	Color  string
}

// PieSlice describes one circular sector. Angles are in degrees, measured
// clockwise in screen coordinates.
type PieSlice struct {
	Label      string
	Color      string
	Amount     decimal.Decimal
	Percentage float64
	StartAngle float64
	EndAngle   float64
	X1, Y1     float64 // arc start on the circle
	X2, Y2     float64 // arc end on the circle
	LargeArc   int     // 1 when the sector is wider than 180 degrees
	FullCircle bool
	Path       string // SVG path data
}

// Sweep is the sector's angular width.
func (s PieSlice) Sweep() float64 { return s.EndAngle - s.StartAngle }

// PieEntriesFromTotals maps an aggregate onto pie input.
func PieEntriesFromTotals(totals []CategoryTotal) []PieEntry {
	out := make([]PieEntry, 0, len(totals))
	for _, t := range totals {
		out = append(out, PieEntry{Label: t.Category.Name, Amount: t.Amount, Color: t.Category.Color})
	}
	return out
}

// PieSlices lays the entries out as consecutive sectors starting at 12
// o'clock. Entries without a positive amount get no sector. A total of zero
// yields no slices; a single remaining entry yields one full-circle slice.
func PieSlices(entries []PieEntry) []PieSlice {
	entries = positiveEntries(entries)
	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(e.Amount)
	}
	if !total.IsPositive() {
		return []PieSlice{}
	}

	if len(entries) == 1 {
		e := entries[0]
		top := PieCenterY - PieRadius
		return []PieSlice{{
			Label:      e.Label,
			Color:      e.Color,
			Amount:     e.Amount,
			Percentage: 100,
			StartAngle: pieStart,
			EndAngle:   pieStart + 360,
			X1:         PieCenterX,
			Y1:         top,
			X2:         PieCenterX - 0.01,
			Y2:         top,
			LargeArc:   1,
			FullCircle: true,
			Path: fmt.Sprintf("M %s %s A %s %s 0 1 1 %s %s Z",
				coord(PieCenterX), coord(top), coord(PieRadius), coord(PieRadius),
				coord(PieCenterX-0.01), coord(top)),
		}}
	}

	slices := make([]PieSlice, 0, len(entries))
	angle := pieStart
	for i, e := range entries {
		share := e.Amount.Div(total).InexactFloat64()
		sweep := share * 360
		end := angle + sweep
		if i == len(entries)-1 {
			end = pieStart + 360
			sweep = end - angle
		}

		x1, y1 := pointOnCircle(angle)
		x2, y2 := pointOnCircle(end)
		large := 0
		if sweep > 180 {
			large = 1
		}

		slices = append(slices, PieSlice{
			Label:      e.Label,
			Color:      e.Color,
			Amount:     e.Amount,
			Percentage: math.Round(share*1000) / 10,
			StartAngle: angle,
			EndAngle:   end,
			X1:         x1,
			Y1:         y1,
			X2:         x2,
			Y2:         y2,
			LargeArc:   large,
			Path: fmt.Sprintf("M %s %s L %s %s A %s %s 0 %d 1 %s %s Z",
				coord(PieCenterX), coord(PieCenterY), coord(x1), coord(y1),
				coord(PieRadius), coord(PieRadius), large, coord(x2), coord(y2)),
		})
		angle = end
	}
	return slices
}

func positiveEntries(entries []PieEntry) []PieEntry {
	out := make([]PieEntry, 0, len(entries))
	for _, e := range entries {
		if e.Amount.IsPositive() {
			out = append(out, e)
		}
	}
	return out
}

func pointOnCircle(deg float64) (float64, float64) {
	rad := deg * math.Pi / 180
	return PieCenterX + PieRadius*math.Cos(rad), PieCenterY + PieRadius*math.Sin(rad)
}

func coord(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
