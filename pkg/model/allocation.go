package model

// AllocationEntry is one selected quote, ready to be handed to the
// Provisioner. CredentialsRef is opaque to the Allocator — it is
// whatever key the caller used in its credentials map.
type AllocationEntry struct {
	Provider       ProviderID       `json:"provider"`
	CredentialsRef string           `json:"credentials_ref"`
	InstanceType   string           `json:"instance_type"`
	Region         string           `json:"region"`
	GPUFamily      GPUFamily        `json:"gpu_family"`
	Availability   AvailabilityKind `json:"availability_kind"`
	PricePerHour   float64          `json:"price_per_hour"`
}

// Allocation is an ordered list of selections. The order reflects
// intended provisioning order, not a guarantee about result order —
// the Provisioner runs entries concurrently and returns results in
// completion order.
type Allocation []AllocationEntry
