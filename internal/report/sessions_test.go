package report

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryAdmitIsCaseInsensitive(t *testing.T) {
	r := NewRegistry()

	first := NewContext("Guy-Fawkes", 1, 100, 200)
	_, err := r.Admit(first)
	require.NoError(t, err)

	existing, err := r.Admit(NewContext("guy-fawkes", 1, 300, 200))
	require.ErrorIs(t, err, ErrSessionExists)
	assert.Same(t, first, existing)

	got, err := r.Get("GUY-FAWKES")
	require.NoError(t, err)
	assert.Same(t, first, got)
}

func TestRegistryAdmitNeverOverwrites(t *testing.T) {
	r := NewRegistry()

	const n = 64
	var wg sync.WaitGroup
	admitted := make([]*Context, n)
	errs := make([]error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c := NewContext("Target01", 1, int64(i), 200)
			_, errs[i] = r.Admit(c)
			if errs[i] == nil {
				admitted[i] = c
			}
		}(i)
	}
	wg.Wait()

	var winners []*Context
	for i := 0; i < n; i++ {
		if errs[i] == nil {
			winners = append(winners, admitted[i])
		} else {
			assert.ErrorIs(t, errs[i], ErrSessionExists)
		}
	}
	require.Len(t, winners, 1, "exactly one admission must win")

	got, err := r.Get("target01")
	require.NoError(t, err)
	assert.Same(t, winners[0], got)
}

func TestRegistryRemoveAndNotFound(t *testing.T) {
	r := NewRegistry()
	_, err := r.Admit(NewContext("SomePlayer", 1, 100, 200))
	require.NoError(t, err)
	assert.True(t, r.Has("somePLAYER"))

	r.Remove("SOMEPLAYER")
	assert.False(t, r.Has("someplayer"))

	_, err = r.Get("someplayer")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	// removing a missing session is a no-op
	r.Remove("someplayer")
}
