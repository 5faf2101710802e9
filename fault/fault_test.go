package fault

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCapture_NormalCompletion(t *testing.T) {
	ran := false
	c := Capture(func() { ran = true })
	assert.Nil(t, c)
	assert.True(t, ran)
}

func TestCapture_StringPanic(t *testing.T) {
	c := Capture(func() { panic("boom") })
	require.NotNil(t, c)
	assert.Equal(t, "boom", c.Message)
	assert.Contains(t, c.Error(), "boom")
}

func TestCapture_ErrorPanic(t *testing.T) {
	c := Capture(func() { panic(errors.New("bad state")) })
	require.NotNil(t, c)
	assert.Equal(t, "bad state", c.Message)
}

func TestCapture_OtherPanicValue(t *testing.T) {
	c := Capture(func() { panic(42) })
	require.NotNil(t, c)
	assert.Equal(t, "42", c.Message)
}

func TestCapture_ResolvesLocation(t *testing.T) {
	c := Capture(func() { panic("here") })
	require.NotNil(t, c)
	require.True(t, c.HasLocation())
	assert.True(t, strings.HasSuffix(c.File, "fault_test.go"), "got %s", c.File)
	assert.Greater(t, c.Line, 0)
}

func TestCapture_RuntimePanicLocation(t *testing.T) {
	var s []int
	c := Capture(func() { _ = s[3] })
	require.NotNil(t, c)
	assert.Contains(t, c.Message, "out of range")
	// Location should point at the test, not at the runtime internals.
	if c.HasLocation() {
		assert.NotContains(t, c.File, "runtime")
	}
}

func TestCapture_ConcurrentIndependence(t *testing.T) {
	var wg sync.WaitGroup
	results := make([]*Captured, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				results[i] = Capture(func() { panic("even") })
			} else {
				results[i] = Capture(func() {})
			}
		}(i)
	}
	wg.Wait()

	for i, c := range results {
		if i%2 == 0 {
			require.NotNil(t, c, "worker %d", i)
			assert.Equal(t, "even", c.Message)
		} else {
			assert.Nil(t, c, "worker %d", i)
		}
	}
}

func TestCapture_BacktraceDisabledByDefault(t *testing.T) {
	// The gate reads the environment once per process; the test environment
	// does not set the variable, so no backtrace is expected.
	if backtraceEnabled() {
		t.Skip("backtrace enabled in this environment")
	}
	c := Capture(func() { panic("quiet") })
	require.NotNil(t, c)
	assert.Empty(t, c.Backtrace)
}
