package matching

import (
	"sort"
)

// DefaultScoreThreshold is the minimum group score a candidate must reach
const DefaultScoreThreshold = 0.75

// SelectGroups enumerates every (woman pair, man pair) combination for the
// slot, filters out candidates that repeat a previous pairing or fall below
// the threshold, ranks the rest, and greedily picks a conflict-free subset.
// Returns the chosen candidates and the user ids left unmatched.
//
// The greedy, score-sorted pick is a deliberate heuristic: it is not a
// globally optimal assignment, but for the slot sizes involved it is fast
// and its output is deterministic for identical inputs.
func SelectGroups(entries []SlotEntry, history HistorySet, threshold float64) ([]Candidate, []int64) {
	var females, males []int64
	ages := make(map[int64]int, len(entries))

	for _, e := range entries {
		ages[e.UserID] = e.Age
		switch e.Gender {
		case GenderFemale:
			females = append(females, e.UserID)
		case GenderMale:
			males = append(males, e.UserID)
		}
	}

	if len(females) < 2 || len(males) < 2 {
		return nil, allUserIDs(entries)
	}

	femalePairs := pairCombinations(females)
	malePairs := pairCombinations(males)

	var candidates []Candidate
	for _, fp := range femalePairs {
		for _, mp := range malePairs {
			if ViolatesHistory(fp, mp, history) {
				continue
			}
			score := GroupScore(fp, mp, ages)
			if score < threshold {
				continue
			}
			tieBreak := ages[fp[0]]
			if ages[fp[1]] > tieBreak {
				tieBreak = ages[fp[1]]
			}
			candidates = append(candidates, Candidate{
				Females:  fp,
				Males:    mp,
				Score:    score,
				TieBreak: tieBreak,
			})
		}
	}

	// Best score first; among equal scores prefer the pair whose older
	// woman is younger. Stable sort keeps enumeration order as the final
	// tie-break so identical inputs always produce identical output.
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].TieBreak < candidates[j].TieBreak
	})

	used := make(map[int64]bool, len(entries))
	var chosen []Candidate
	for _, c := range candidates {
		conflict := false
		for _, id := range c.Members() {
			if used[id] {
				conflict = true
				break
			}
		}
		if conflict {
			continue
		}
		for _, id := range c.Members() {
			used[id] = true
		}
		chosen = append(chosen, c)
	}

	var unmatched []int64
	for _, e := range entries {
		if !used[e.UserID] {
			unmatched = append(unmatched, e.UserID)
		}
	}

	return chosen, unmatched
}

// pairCombinations returns every unordered 2-combination of ids,
// preserving input order within each pair.
func pairCombinations(ids []int64) [][2]int64 {
	var pairs [][2]int64
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			pairs = append(pairs, [2]int64{ids[i], ids[j]})
		}
	}
	return pairs
}

func allUserIDs(entries []SlotEntry) []int64 {
	ids := make([]int64, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.UserID)
	}
	return ids
}
