package services

import (
	"time"

	models "github.com/athar/donation-tracker-go/models"
)

// DonationStats are always recomputed from the full donation set on read;
// nothing here is an incremental counter that can drift from the store.
type DonationStats struct {
	TotalAmount   int64   `json:"total_amount"`
	TotalBoxes    int64   `json:"total_boxes"`
	ApprovedCount int64   `json:"approved_count"`
	PendingCount  int64   `json:"pending_count"`
	TodayAmount   int64   `json:"today_amount"`
	TodayCount    int64   `json:"today_count"`
	AverageAmount float64 `json:"average_amount"`
}

// BoxesFor is the single box-derivation rule: an explicit positive box count
// wins, otherwise boxes are derived as floor(amount / boxCost).
func BoxesFor(amount, boxes, boxCost int64) int64 {
	if boxes > 0 {
		return boxes
	}
	if boxCost <= 0 {
		return 0
	}
	return amount / boxCost
}

// Summarize computes the live aggregates over the given donations. Only
// approved donations count toward totals; today's figures use the local
// calendar day of now.
func Summarize(donations []models.Donation, boxCost int64, now time.Time) DonationStats {
	var st DonationStats
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	for _, d := range donations {
		switch d.Status {
		case models.DonationPending:
			st.PendingCount++
			continue
		case models.DonationApproved:
		default:
			continue
		}

		st.ApprovedCount++
		st.TotalAmount += d.Amount
		st.TotalBoxes += BoxesFor(d.Amount, d.Boxes, boxCost)

		created := d.CreatedAt.In(now.Location())
		if !created.Before(dayStart) && created.Before(dayStart.Add(24*time.Hour)) {
			st.TodayCount++
			st.TodayAmount += d.Amount
		}
	}

	if st.ApprovedCount > 0 {
		st.AverageAmount = float64(st.TotalAmount) / float64(st.ApprovedCount)
	}
	return st
}
