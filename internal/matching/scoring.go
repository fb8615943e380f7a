package matching

import (
	"math"
)

// PairScore computes the age-compatibility score for one woman/man pairing.
// A man up to 2 years older (or any amount younger) scores 1.0. A gap of
// 3 to 5 years earns a small bonus that tapers from 1.05 down to 1.00.
// Beyond 5 years the score drops off; the drop is gentler while both are
// under 30.
func PairScore(femaleAge, maleAge int) float64 {
	diff := maleAge - femaleAge

	switch {
	case diff <= 2:
		return 1.0
	case diff <= 5:
		return 1.0 + float64(5-diff)*0.025
	default:
		if femaleAge < 30 && maleAge < 30 {
			return math.Max(0, 1.0-float64(diff)/30.0)
		}
		return math.Max(0, 1.0-float64(diff)/10.0)
	}
}

// GroupScore averages PairScore over the 4 cross woman/man combinations of
// a candidate group. ages maps user id to age for all 4 members.
func GroupScore(females, males [2]int64, ages map[int64]int) float64 {
	total := 0.0
	for _, f := range females {
		for _, m := range males {
			total += PairScore(ages[f], ages[m])
		}
	}
	return total / 4.0
}

// ViolatesHistory reports whether any of the 4 cross woman/man pairs has
// already been grouped together before.
func ViolatesHistory(females, males [2]int64, history HistorySet) bool {
	for _, f := range females {
		for _, m := range males {
			if history.Contains(f, m) {
				return true
			}
		}
	}
	return false
}
