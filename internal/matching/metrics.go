package matching

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	slotsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matching_slots_processed_total",
			Help: "Total number of slots processed, by outcome",
		},
		[]string{"outcome"},
	)

	groupsFormed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "matching_groups_formed_total",
			Help: "Total number of matched groups created",
		},
	)

	membersMatched = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "matching_members_matched_total",
			Help: "Total number of applicants placed into a group",
		},
	)

	membersUnmatched = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "matching_members_unmatched_total",
			Help: "Total number of applicants left unmatched",
		},
	)

	groupScores = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "matching_group_scores",
			Help:    "Distribution of accepted group scores",
			Buckets: prometheus.LinearBuckets(0.7, 0.05, 8),
		},
	)
)

func RecordSlotProcessed(outcome string) {
	slotsProcessed.WithLabelValues(outcome).Inc()
}

func RecordGroupsFormed(n int) {
	groupsFormed.Add(float64(n))
}

func RecordMembers(matched, unmatched int) {
	membersMatched.Add(float64(matched))
	membersUnmatched.Add(float64(unmatched))
}

func ObserveGroupScore(score float64) {
	groupScores.Observe(score)
}
