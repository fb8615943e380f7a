package matching

import (
	"reflect"
	"testing"
)

func entry(id int64, gender Gender, age int) SlotEntry {
	return SlotEntry{UserID: id, Gender: gender, Age: age, TypeMode: "dinner", Location: "tokyo"}
}

func TestSelectGroupsFormsSingleGroup(t *testing.T) {
	entries := []SlotEntry{
		entry(1, GenderFemale, 24),
		entry(2, GenderFemale, 31),
		entry(11, GenderMale, 25),
		entry(12, GenderMale, 30),
	}

	groups, unmatched := SelectGroups(entries, make(HistorySet), DefaultScoreThreshold)

	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(groups))
	}
	if len(unmatched) != 0 {
		t.Fatalf("expected no unmatched, got %v", unmatched)
	}

	g := groups[0]
	if g.Score < DefaultScoreThreshold {
		t.Errorf("group score %v below threshold", g.Score)
	}
	if g.Females != [2]int64{1, 2} || g.Males != [2]int64{11, 12} {
		t.Errorf("unexpected group composition: %+v", g)
	}
}

func TestSelectGroupsRespectsHistory(t *testing.T) {
	entries := []SlotEntry{
		entry(1, GenderFemale, 24),
		entry(2, GenderFemale, 31),
		entry(11, GenderMale, 25),
		entry(12, GenderMale, 30),
	}

	// the 25-year-old man was previously grouped with the 24-year-old woman
	history := make(HistorySet)
	history.Add(1, 11)

	groups, unmatched := SelectGroups(entries, history, DefaultScoreThreshold)

	if len(groups) != 0 {
		t.Fatalf("expected no groups, got %d", len(groups))
	}
	if len(unmatched) != 4 {
		t.Fatalf("expected all 4 unmatched, got %v", unmatched)
	}
}

func TestSelectGroupsNeedsTwoPerGender(t *testing.T) {
	entries := []SlotEntry{
		entry(1, GenderFemale, 24),
		entry(11, GenderMale, 25),
		entry(12, GenderMale, 30),
	}

	groups, unmatched := SelectGroups(entries, make(HistorySet), DefaultScoreThreshold)

	if len(groups) != 0 {
		t.Fatalf("expected no groups with a single woman, got %d", len(groups))
	}
	if len(unmatched) != 3 {
		t.Fatalf("expected all 3 unmatched, got %v", unmatched)
	}
}

func TestSelectGroupsDisjoint(t *testing.T) {
	entries := []SlotEntry{
		entry(1, GenderFemale, 24),
		entry(2, GenderFemale, 25),
		entry(3, GenderFemale, 26),
		entry(4, GenderFemale, 27),
		entry(11, GenderMale, 24),
		entry(12, GenderMale, 25),
		entry(13, GenderMale, 26),
		entry(14, GenderMale, 27),
	}

	groups, unmatched := SelectGroups(entries, make(HistorySet), DefaultScoreThreshold)

	if len(groups) != 2 {
		t.Fatalf("expected 2 groups from 8 entries, got %d", len(groups))
	}
	if len(unmatched) != 0 {
		t.Fatalf("expected no unmatched, got %v", unmatched)
	}

	seen := make(map[int64]bool)
	for _, g := range groups {
		for _, id := range g.Members() {
			if seen[id] {
				t.Fatalf("user %d appears in two groups", id)
			}
			seen[id] = true
		}
	}
}

func TestSelectGroupsTieBreakPrefersYoungerOlderWoman(t *testing.T) {
	// men at most 2 years older than every woman, so every candidate
	// scores exactly 1.0 and only the tie-break decides
	entries := []SlotEntry{
		entry(1, GenderFemale, 24),
		entry(2, GenderFemale, 26),
		entry(3, GenderFemale, 28),
		entry(11, GenderMale, 24),
		entry(12, GenderMale, 25),
	}

	groups, unmatched := SelectGroups(entries, make(HistorySet), DefaultScoreThreshold)

	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(groups))
	}
	if groups[0].Females != [2]int64{1, 2} {
		t.Errorf("expected the 24/26 pair to win the tie-break, got %v", groups[0].Females)
	}
	if len(unmatched) != 1 || unmatched[0] != 3 {
		t.Errorf("expected the 28-year-old woman unmatched, got %v", unmatched)
	}
}

func TestSelectGroupsDeterministic(t *testing.T) {
	entries := []SlotEntry{
		entry(1, GenderFemale, 24),
		entry(2, GenderFemale, 25),
		entry(3, GenderFemale, 26),
		entry(11, GenderMale, 25),
		entry(12, GenderMale, 26),
		entry(13, GenderMale, 27),
	}

	firstGroups, firstUnmatched := SelectGroups(entries, make(HistorySet), DefaultScoreThreshold)
	for i := 0; i < 10; i++ {
		groups, unmatched := SelectGroups(entries, make(HistorySet), DefaultScoreThreshold)
		if !reflect.DeepEqual(groups, firstGroups) || !reflect.DeepEqual(unmatched, firstUnmatched) {
			t.Fatal("selection is not deterministic for identical inputs")
		}
	}
}

func TestSelectGroupsThresholdFiltering(t *testing.T) {
	// the 45-year-old men push every candidate below the threshold
	entries := []SlotEntry{
		entry(1, GenderFemale, 24),
		entry(2, GenderFemale, 25),
		entry(11, GenderMale, 45),
		entry(12, GenderMale, 46),
	}

	groups, unmatched := SelectGroups(entries, make(HistorySet), DefaultScoreThreshold)

	if len(groups) != 0 {
		t.Fatalf("expected no groups above threshold, got %d", len(groups))
	}
	if len(unmatched) != 4 {
		t.Fatalf("expected all 4 unmatched, got %v", unmatched)
	}
}
