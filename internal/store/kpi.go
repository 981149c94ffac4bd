package store

import (
	"math"
	"sort"

	"github.com/sells-group/voice-agent/internal/model"
)

const fastResponseThresholdMS = 1500

// CalculateKPIs aggregates dashboard metrics over calls.
func CalculateKPIs(calls []model.CallRecord) model.KPISnapshot {
	snap := model.KPISnapshot{
		TotalCalls:    len(calls),
		DropOffPoints: []model.DropOffPoint{},
	}

	var durationSum, durationCount int
	var latencies []int
	dropOffs := map[string]int{}
	var dropOffOrder []string

	for i := range calls {
		call := &calls[i]
		latencies = append(latencies, call.VoiceResponseLatenciesMS...)

		if call.DropOffReason != "" {
			if _, seen := dropOffs[call.DropOffReason]; !seen {
				dropOffOrder = append(dropOffOrder, call.DropOffReason)
			}
			dropOffs[call.DropOffReason]++
		}

		if !call.Completed() {
			continue
		}
		snap.CompletedCalls++
		if call.Booking != nil && call.Booking.Booked {
			snap.BookedCalls++
		}
		durationSum += callDurationSeconds(call)
		durationCount++

		if call.LeadScore != nil {
			switch call.LeadScore.Grade {
			case model.GradeA:
				snap.LeadScoreDistribution.A++
			case model.GradeB:
				snap.LeadScoreDistribution.B++
			case model.GradeC:
				snap.LeadScoreDistribution.C++
			}
		}
	}

	if snap.CompletedCalls > 0 {
		snap.ConversionRatePercent = roundTo1(float64(snap.BookedCalls) / float64(snap.CompletedCalls) * 100)
	}
	if durationCount > 0 {
		snap.AverageDurationSeconds = int(math.Round(float64(durationSum) / float64(durationCount)))
	}

	if n := len(latencies); n > 0 {
		sorted := append([]int(nil), latencies...)
		sort.Ints(sorted)

		sum, fast := 0, 0
		for _, ms := range sorted {
			sum += ms
			if ms < fastResponseThresholdMS {
				fast++
			}
		}
		snap.AverageVoiceLatencyMS = int(math.Round(float64(sum) / float64(n)))
		snap.P95VoiceLatencyMS = sorted[min(n-1, int(math.Floor(float64(n)*0.95)))]
		snap.Under1500msRatePercent = roundTo1(float64(fast) / float64(n) * 100)
	}

	for _, reason := range dropOffOrder {
		snap.DropOffPoints = append(snap.DropOffPoints, model.DropOffPoint{Reason: reason, Count: dropOffs[reason]})
	}
	sort.SliceStable(snap.DropOffPoints, func(i, j int) bool {
		return snap.DropOffPoints[i].Count > snap.DropOffPoints[j].Count
	})

	return snap
}

// callDurationSeconds is the span between the first and last transcript turn.
func callDurationSeconds(call *model.CallRecord) int {
	if len(call.Transcript) == 0 {
		return 0
	}
	first := call.Transcript[0].Timestamp
	last := call.Transcript[len(call.Transcript)-1].Timestamp
	return int(math.Max(0, math.Round(last.Sub(first).Seconds())))
}

func roundTo1(v float64) float64 {
	return math.Round(v*10) / 10
}
