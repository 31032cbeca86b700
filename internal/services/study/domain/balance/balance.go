// Package balance implements stratified least-filled bucket pair selection.
package balance

import (
	"errors"
	"math/rand"
	"strings"
)

// GlobalStratum is the sentinel stratum used when a caller supplies none.
const GlobalStratum = "global"

// ErrTooFewCandidates indicates fewer than two candidate item types.
var ErrTooFewCandidates = errors.New("at least two candidate item types are required")

// ErrRepeatedCandidate indicates the candidate list contains duplicates.
var ErrRepeatedCandidate = errors.New("candidate item types must be distinct")

// NormalizeStratum maps blank strata onto the global sentinel.
func NormalizeStratum(stratum string) string {
	stratum = strings.TrimSpace(stratum)
	if stratum == "" {
		return GlobalStratum
	}
	return stratum
}

// CanonicalPair orders two item types by identifier so that (a, b) and
// (b, a) map onto one counting key.
func CanonicalPair(first, second string) (string, string) {
	if second < first {
		return second, first
	}
	return first, second
}

// Request describes one pair selection.
type Request struct {
	// Tallies holds the current per-item submission counts for the stratum.
	// Item types absent from the map count as zero.
	Tallies map[string]int64

	// Candidates is the ordered list of distinct item types to pick from.
	Candidates []string

	// Seed drives the tie-break among equally scored pairs.
	Seed int64
}

// ChoosePair selects the unordered candidate pair whose larger per-item
// count is smallest, preferring the smaller combined count among those and
// breaking remaining ties uniformly at random.
//
// # Determinism
//
// ChoosePair is deterministic with respect to the Seed field on Request.
// Given the same Tallies, Candidates (including order), and Seed, it always
// returns the same pair.
//
// Scoring a pair by the maximum of its two counts biases selection away from
// the single most-overused item type. The combined-count preference keeps
// max-tied pairs from re-drawing already exposed items, which is what holds
// per-item tallies within one submission of each other over interleaved
// assign/submit rounds. The random tie-break avoids a deterministic
// preference for lexicographically early candidates when many pairs tie,
// which is the common case while all counts are still zero.
func ChoosePair(request Request) ([2]string, error) {
	candidates := request.Candidates
	if len(candidates) < 2 {
		return [2]string{}, ErrTooFewCandidates
	}
	seen := make(map[string]struct{}, len(candidates))
	for _, candidate := range candidates {
		if _, dup := seen[candidate]; dup {
			return [2]string{}, ErrRepeatedCandidate
		}
		seen[candidate] = struct{}{}
	}

	var best [][2]string
	var bestMax, bestSum int64 = -1, -1
	for i := 0; i < len(candidates); i++ {
		for j := i + 1; j < len(candidates); j++ {
			countA := request.Tallies[candidates[i]]
			countB := request.Tallies[candidates[j]]
			maxCount, sum := countA, countA+countB
			if countB > maxCount {
				maxCount = countB
			}
			switch {
			case bestMax < 0 || maxCount < bestMax || (maxCount == bestMax && sum < bestSum):
				bestMax, bestSum = maxCount, sum
				best = append(best[:0], [2]string{candidates[i], candidates[j]})
			case maxCount == bestMax && sum == bestSum:
				best = append(best, [2]string{candidates[i], candidates[j]})
			}
		}
	}

	rng := rand.New(rand.NewSource(request.Seed))
	return best[rng.Intn(len(best))], nil
}
