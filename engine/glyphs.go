package tempora

import (
	"log/slog"
	"math"

	Mt "github.com/maroda/tempora/types"
)

// SanitizeGlyphs filters a registry snapshot before it reaches the detector.
// Entries with an empty or repeated id, or a non-finite angle, position or
// intensity are dropped with a warning. Intensity is clamped to [0, 1].
// The input is never modified.
func SanitizeGlyphs(in []Mt.Glyph) ([]Mt.Glyph, int) {
	out := make([]Mt.Glyph, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	rejected := 0

	for _, g := range in {
		reason := ""
		switch {
		case g.ID == "":
			reason = "empty id"
		case !finite(g.Angle):
			reason = "non-finite angle"
		case g.Positioned && (!finite(g.X) || !finite(g.Y)):
			reason = "non-finite position"
		case !finite(g.Intensity):
			reason = "non-finite intensity"
		}
		if reason == "" {
			if _, dup := seen[g.ID]; dup {
				reason = "duplicate id"
			}
		}
		if reason != "" {
			slog.Warn("Glyph rejected at ingestion",
				slog.String("id", g.ID),
				slog.String("reason", reason))
			rejected++
			continue
		}

		seen[g.ID] = struct{}{}
		g.Intensity = clamp01(g.Intensity)
		out = append(out, g)
	}

	return out, rejected
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
