package allocate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theoddden/terradev-broker/pkg/model"
)

func quote(provider model.ProviderID, price float64) model.Quote {
	return model.Quote{
		Provider:     provider,
		InstanceType: string(provider) + ".large",
		GPUFamily:    "A100",
		PricePerHour: price,
		Region:       "us-east-1",
		Available:    true,
		Availability: model.OnDemand,
	}
}

func TestAllocate_InvalidCount(t *testing.T) {
	a := New()
	_, _, err := a.Allocate([]model.Quote{quote("aws", 1.0)}, 0, 0)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestAllocate_EmptyQuotes(t *testing.T) {
	a := New()
	alloc, relaxed, err := a.Allocate(nil, 3, 0)
	require.NoError(t, err)
	assert.False(t, relaxed)
	assert.Empty(t, alloc)
}

func TestAllocate_SkipsUnavailableAndOverPriced(t *testing.T) {
	a := New()
	quotes := []model.Quote{
		{Provider: "aws", InstanceType: "x", PricePerHour: 1.0, Available: false},
		quote("gcp", 5.0),
		quote("azure", 1.5),
	}
	alloc, _, err := a.Allocate(quotes, 2, 2.0)
	require.NoError(t, err)
	// aws excluded (unavailable), gcp excluded (over max price) -> only azure eligible
	require.Len(t, alloc, 1)
	assert.Equal(t, model.ProviderID("azure"), alloc[0].Provider)
}

func TestAllocate_SpreadsAcrossProvidersBeforeRelaxing(t *testing.T) {
	a := New()
	quotes := []model.Quote{
		quote("aws", 1.0),
		quote("aws", 1.1),
		quote("aws", 1.2),
		quote("gcp", 2.0),
	}
	alloc, relaxed, err := a.Allocate(quotes, 4, 0)
	require.NoError(t, err)
	require.Len(t, alloc, 4)
	assert.True(t, relaxed, "only 2 distinct cheap providers available, primary pass can't fill 4 under the cap")

	counts := map[model.ProviderID]int{}
	for _, e := range alloc {
		counts[e.Provider]++
	}
	assert.Equal(t, 3, counts["aws"])
	assert.Equal(t, 1, counts["gcp"])
}

func TestAllocate_PerProviderCapHonoredWhenEnoughProviders(t *testing.T) {
	a := New()
	quotes := []model.Quote{
		quote("aws", 1.0),
		quote("aws", 1.1),
		quote("aws", 1.2),
		quote("gcp", 1.3),
		quote("azure", 1.4),
	}
	// n=4 -> maxPerProvider = (4+1)/2 = 2
	alloc, relaxed, err := a.Allocate(quotes, 4, 0)
	require.NoError(t, err)
	require.Len(t, alloc, 4)

	counts := map[model.ProviderID]int{}
	for _, e := range alloc {
		counts[e.Provider]++
	}
	assert.LessOrEqual(t, counts["aws"], 2)
	assert.False(t, relaxed, "aws(2) + gcp(1) + azure(1) fills n=4 without relaxing")
}

func TestAllocate_ResultSortedCheapestFirstWithinCapPass(t *testing.T) {
	a := New()
	quotes := []model.Quote{
		quote("aws", 3.0),
		quote("gcp", 1.0),
		quote("azure", 2.0),
	}
	alloc, _, err := a.Allocate(quotes, 3, 0)
	require.NoError(t, err)
	require.Len(t, alloc, 3)
	assert.Equal(t, model.ProviderID("gcp"), alloc[0].Provider)
	assert.Equal(t, model.ProviderID("azure"), alloc[1].Provider)
	assert.Equal(t, model.ProviderID("aws"), alloc[2].Provider)
}

func TestAllocate_NeverExceedsRequestedCount(t *testing.T) {
	a := New()
	quotes := []model.Quote{quote("aws", 1.0), quote("gcp", 1.0), quote("azure", 1.0)}
	alloc, _, err := a.Allocate(quotes, 1, 0)
	require.NoError(t, err)
	assert.Len(t, alloc, 1)
}
