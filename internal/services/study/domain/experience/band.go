// Package experience derives participant experience bands used as strata.
package experience

import "strings"

// Bands produced by DeriveBand.
const (
	BandNovice       = "novice"
	BandIntermediate = "intermediate"
	BandAdvanced     = "advanced"
)

// DeriveBand maps reported years of experience and highest training level
// onto an experience band.
//
// Novice covers 0-1 years or no formal training beyond awareness courses.
// Intermediate covers 2-5 years or level 1 training. Everything above that
// is advanced.
func DeriveBand(years, training string) string {
	years = strings.TrimSpace(years)
	training = strings.ToLower(strings.TrimSpace(training))

	if years == "0-1" || training == "none" || training == "awareness" {
		return BandNovice
	}
	if years == "2-5" || training == "level1" {
		return BandIntermediate
	}
	return BandAdvanced
}
