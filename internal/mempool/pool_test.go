package mempool

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSizeClass(t *testing.T) {
	tests := []struct {
		name     string
		input    int
		expected int
	}{
		{"zero size", 0, 4096},
		{"negative size", -1, 4096},
		{"small size gets minimum", 1, 4096},
		{"exactly one step", 4096, 4096},
		{"just over one step", 4097, 8192},
		{"frame sized", 600 * 400, 241664},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, sizeClass(tt.input))
		})
	}
}

func TestGetFloat64(t *testing.T) {
	buf := GetFloat64(100)
	assert.Len(t, buf, 100)
	assert.Equal(t, 4096, cap(buf))
	PutFloat64(buf)

	large := GetFloat64(600 * 400)
	assert.Len(t, large, 600*400)
	PutFloat64(large)
}

func TestGetBoolIsZeroed(t *testing.T) {
	buf := GetBool(64)
	for i := range buf {
		buf[i] = true
	}
	PutBool(buf)

	for range 10 {
		again := GetBool(64)
		for i, v := range again {
			if v {
				t.Fatalf("index %d not cleared", i)
			}
		}
		PutBool(again)
	}
}

func TestPutIgnoresForeignBuffers(t *testing.T) {
	assert.NotPanics(t, func() {
		PutFloat64(nil)
		PutBool(nil)
		PutFloat64(make([]float64, 10))
		PutBool(make([]bool, 5000))
	})
}

func TestConcurrentUse(t *testing.T) {
	var wg sync.WaitGroup
	for w := range 8 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for range 50 {
				f := GetFloat64(n)
				for i := range f {
					f[i] = float64(i)
				}
				b := GetBool(n)
				assert.Len(t, f, n)
				assert.Len(t, b, n)
				PutFloat64(f)
				PutBool(b)
			}
		}(1000 * (w + 1))
	}
	wg.Wait()
}
