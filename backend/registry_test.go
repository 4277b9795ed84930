package backend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odr-dev/deepresearch/types"
)

func TestRegistry_RegisterAndBuild(t *testing.T) {
	r := NewRegistry()
	r.Register("full", []Capability{CapabilityGenerate, CapabilitySearch}, func(cfg ClientConfig) (Adapter, error) {
		return &fakeFull{fakeAdapter{name: "full", caps: []Capability{CapabilityGenerate, CapabilitySearch}}}, nil
	})
	r.Register("search-only", []Capability{CapabilitySearch}, func(cfg ClientConfig) (Adapter, error) {
		return &fakeFull{fakeAdapter{name: "search-only", caps: []Capability{CapabilitySearch}}}, nil
	})

	a, err := r.New("full", ClientConfig{})
	require.NoError(t, err)
	assert.Equal(t, "full", a.Name())

	assert.True(t, r.HasModelProvider("full"))
	assert.True(t, r.HasSearchProvider("full"))
	assert.False(t, r.HasModelProvider("search-only"))
	assert.True(t, r.HasSearchProvider("search-only"))
	assert.False(t, r.HasModelProvider("missing"))

	assert.Equal(t, []string{"full", "search-only"}, r.Providers())
}

func TestRegistry_UnknownProvider(t *testing.T) {
	r := NewRegistry()
	_, err := r.New("nosuch", ClientConfig{})
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrInvalidConfig))
}

func TestRegistry_DuplicatePanics(t *testing.T) {
	r := NewRegistry()
	f := func(cfg ClientConfig) (Adapter, error) { return nil, nil }
	r.Register("dup", nil, f)
	assert.Panics(t, func() { r.Register("dup", nil, f) })
}

func TestRateTracker_SetLimit(t *testing.T) {
	tr := NewRateTracker(100, 10)
	tr.SetLimit("slow", 1, 1)
	tr.RecordRetry("slow")
	tr.RecordRetry("slow")
	assert.EqualValues(t, 2, tr.Retries("slow"))
	assert.EqualValues(t, 0, tr.Retries("other"))
}
