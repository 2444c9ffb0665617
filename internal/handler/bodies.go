package handler

import "github.com/younsl/idlesweep/internal/models"

// FindBody is the response body of a finder run
type FindBody struct {
	Message       string  `json:"message"`
	TotalWaste    float64 `json:"total_waste"`
	FindingsCount int     `json:"findings_count"`
}

// NewFindBody summarizes a finder result
func NewFindBody(result *models.FindResult) FindBody {
	return FindBody{
		Message:       "Cost analysis complete",
		TotalWaste:    result.TotalMonthlyWaste,
		FindingsCount: result.Findings.Count(),
	}
}

// ReapBody is the response body of a reaper run
type ReapBody struct {
	Message      string  `json:"message"`
	DeletedCount int     `json:"deleted_count"`
	Savings      float64 `json:"savings"`
}

// NewReapBody summarizes a reaper result
func NewReapBody(result *models.ReapResult) ReapBody {
	return ReapBody{
		Message:      "Cleanup complete",
		DeletedCount: len(result.Deleted),
		Savings:      result.TotalMonthlySavings,
	}
}
