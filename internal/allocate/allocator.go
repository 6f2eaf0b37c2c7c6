// Package allocate turns a scored quote list into a concrete spread of
// instances to provision, capping how much of the spread lands with
// any single provider so a provider outage or price swing can't take
// down the whole batch. Grounded on
// original_source/terradev_cli/core/parallel_provisioner.py's
// build_cheapest_spread.
package allocate

import (
	"errors"
	"sort"

	"github.com/theoddden/terradev-broker/pkg/model"
)

// ErrInvalidInput is returned when n is not a positive count.
var ErrInvalidInput = errors.New("allocate: n must be >= 1")

// Allocator turns quotes into an Allocation. It holds no state; every
// call is a pure function of its arguments.
type Allocator struct{}

func New() *Allocator {
	return &Allocator{}
}

// Allocate selects n entries from quotes, cheapest first, spreading
// them across providers.
//
// The primary pass walks quotes price-ascending and takes one entry
// per quote as long as that provider hasn't yet hit its cap of
// ceil(n/2) (floor 1) selections. If the primary pass can't fill n
// entries this way — too few distinct cheap providers — a relaxation
// pass walks quotes price-ascending again with no per-provider cap,
// appending further entries (a provider can appear more than once)
// until n is reached or quotes are exhausted. The result is always
// truncated to at most n entries.
//
// maxPricePerHour, if non-zero, excludes quotes priced above it
// before either pass runs. relaxed reports whether the relaxation
// pass contributed any entries.
func (a *Allocator) Allocate(quotes []model.Quote, n int, maxPricePerHour float64) (model.Allocation, bool, error) {
	if n <= 0 {
		return nil, false, ErrInvalidInput
	}

	eligible := make([]model.Quote, 0, len(quotes))
	for _, q := range quotes {
		if !q.Available {
			continue
		}
		if maxPricePerHour > 0 && q.PricePerHour > maxPricePerHour {
			continue
		}
		eligible = append(eligible, q)
	}
	if len(eligible) == 0 {
		return model.Allocation{}, false, nil
	}

	sorted := make([]model.Quote, len(eligible))
	copy(sorted, eligible)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].PricePerHour < sorted[j].PricePerHour
	})

	maxPerProvider := (n + 1) / 2
	if maxPerProvider < 1 {
		maxPerProvider = 1
	}

	alloc := make(model.Allocation, 0, n)
	providerCounts := make(map[model.ProviderID]int)

	for _, q := range sorted {
		if len(alloc) >= n {
			break
		}
		if providerCounts[q.Provider] >= maxPerProvider {
			continue
		}
		providerCounts[q.Provider]++
		alloc = append(alloc, entryFrom(q))
	}

	relaxed := false
	if len(alloc) < n {
		relaxed = true
		for _, q := range sorted {
			if len(alloc) >= n {
				break
			}
			alloc = append(alloc, entryFrom(q))
		}
	}

	if len(alloc) > n {
		alloc = alloc[:n]
	}
	return alloc, relaxed, nil
}

func entryFrom(q model.Quote) model.AllocationEntry {
	return model.AllocationEntry{
		Provider:       q.Provider,
		CredentialsRef: string(q.Provider),
		InstanceType:   q.InstanceType,
		Region:         q.Region,
		GPUFamily:      q.GPUFamily,
		Availability:   q.Availability,
		PricePerHour:   q.PricePerHour,
	}
}
