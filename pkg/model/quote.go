package model

// AvailabilityKind is a tagged enum over on-demand vs spot/preemptible
// capacity. It is a first-class field rather than a bare bool because
// the meaning is load-bearing throughout scoring and allocation.
type AvailabilityKind string

const (
	OnDemand AvailabilityKind = "on-demand"
	Spot     AvailabilityKind = "spot"
)

// Quote is a point-in-time offer from one provider for one
// (instance_type, region) pair.
type Quote struct {
	Provider          ProviderID             `json:"provider"`
	InstanceType      string                 `json:"instance_type"`
	GPUFamily         GPUFamily              `json:"gpu_family"`
	PricePerHour      float64                `json:"price_per_hour"`
	Region            string                 `json:"region"`
	Available         bool                   `json:"available"`
	Availability      AvailabilityKind       `json:"availability_kind"`
	GPUCount          int                    `json:"gpu_count,omitempty"`
	VCPU              int                    `json:"vcpu,omitempty"`
	MemoryGB          int                    `json:"memory_gb,omitempty"`
	LatencyMS         int                    `json:"latency_ms"`
	OptimizationScore float64                `json:"optimization_score"`
	DemoMode          bool                   `json:"demo_mode,omitempty"`
	Metadata          map[string]interface{} `json:"metadata,omitempty"`
}

// IsSpot is a convenience accessor derived from Availability; it never
// carries meaning of its own.
func (q Quote) IsSpot() bool {
	return q.Availability == Spot
}
