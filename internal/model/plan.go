package model

import "time"

// AllocationMode describes how an allocation was produced.
type AllocationMode string

const (
	ModeEqual  AllocationMode = "equal"
	ModeManual AllocationMode = "manual"
	ModeAuto   AllocationMode = "auto"
)

// Valid reports whether m is a known allocation mode.
func (m AllocationMode) Valid() bool {
	switch m {
	case ModeEqual, ModeManual, ModeAuto:
		return true
	}
	return false
}

// Plan is a saved budget scenario.
type Plan struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Market      string          `json:"market"`
	Mode        AllocationMode  `json:"mode"`
	TotalBudget float64         `json:"total_budget"`
	Allocations AllocationMap   `json:"allocations"`
	Metrics     CombinedMetrics `json:"metrics"`
	CreatedAt   time.Time       `json:"created_at"`
}
