package catalog

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/campaign-planner/internal/model"
)

func TestCache_GetPut(t *testing.T) {
	c := NewCache()
	key := Key{Market: "us", Version: "v1"}

	_, ok := c.Get(key)
	assert.False(t, ok)

	c.Put(key, &Bundle{Market: model.Market{ID: "us"}})
	b, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, "us", b.Market.ID)
	assert.False(t, b.LoadedAt.IsZero())

	_, ok = c.Get(Key{Market: "us", Version: "v2"})
	assert.False(t, ok, "versions are cached separately")
}

func TestCache_LoadOnce(t *testing.T) {
	c := NewCache()
	key := Key{Market: "us", Version: "v1"}
	var calls atomic.Int32

	load := func() (*Bundle, error) {
		calls.Add(1)
		return &Bundle{Market: model.Market{ID: "us"}}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b, err := c.Load(key, load)
			assert.NoError(t, err)
			assert.Equal(t, "us", b.Market.ID)
		}()
	}
	wg.Wait()

	_, err := c.Load(key, load)
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestCache_LoadErrorNotCached(t *testing.T) {
	c := NewCache()
	key := Key{Market: "us", Version: "v1"}

	_, err := c.Load(key, func() (*Bundle, error) { return nil, errors.New("boom") })
	require.Error(t, err)
	assert.Equal(t, 0, c.Len())

	b, err := c.Load(key, func() (*Bundle, error) { return &Bundle{}, nil })
	require.NoError(t, err)
	assert.NotNil(t, b)
	assert.Equal(t, 1, c.Len())
}

func TestCache_Invalidate(t *testing.T) {
	c := NewCache()
	c.Put(Key{"us", "v1"}, &Bundle{})
	c.Put(Key{"us", "v2"}, &Bundle{})
	c.Put(Key{"uk", "v1"}, &Bundle{})

	c.Invalidate("us")
	assert.Equal(t, 1, c.Len())
	_, ok := c.Get(Key{"uk", "v1"})
	assert.True(t, ok)
}
