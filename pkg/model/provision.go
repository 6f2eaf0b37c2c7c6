package model

// ProvisionStatus is the terminal state of one provision attempt.
type ProvisionStatus string

const (
	StatusActive ProvisionStatus = "active"
	StatusFailed ProvisionStatus = "failed"
)

// ProvisionOutcome is the result of a single provision call.
type ProvisionOutcome struct {
	Provider     ProviderID      `json:"provider"`
	Region       string          `json:"region"`
	InstanceID   string          `json:"instance_id"`
	GPUFamily    GPUFamily       `json:"gpu_family"`
	PricePerHour float64         `json:"price_per_hour"`
	Spot         bool            `json:"spot"`
	Status       ProvisionStatus `json:"status"`
	Error        string          `json:"error,omitempty"`
	ElapsedMS    float64         `json:"elapsed_ms"`
}

// CostAnalysis summarizes the economics of one provision batch.
type CostAnalysis struct {
	TotalCostPerHour        float64 `json:"total_cost_per_hour"`
	BaselinePerHour         float64 `json:"baseline_per_hour"`
	EstimatedSavings        float64 `json:"estimated_savings"`
	EstimatedSavingsPercent float64 `json:"estimated_savings_percent"`
	MonthlySavings          float64 `json:"monthly_savings"`
}

// ProvisionResult is the aggregate outcome of one provision() call.
type ProvisionResult struct {
	GroupID          string             `json:"group_id"`
	Success          bool               `json:"success"`
	Instances        []ProvisionOutcome `json:"instances"`
	Cost             CostAnalysis       `json:"cost_analysis"`
	TotalTimeSeconds float64            `json:"total_time_s"`
	Errors           []string           `json:"errors"`
}

// ActiveCount returns the number of instances that reached "active".
func (r ProvisionResult) ActiveCount() int {
	n := 0
	for _, inst := range r.Instances {
		if inst.Status == StatusActive {
			n++
		}
	}
	return n
}
