package access

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPolicy_Allowed(t *testing.T) {
	p := NewPolicy([]int64{100, 200})

	tests := []struct {
		name string
		id   int64
		want bool
	}{
		{"first listed", 100, true},
		{"second listed", 200, true},
		{"not listed", 300, false},
		{"zero", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.Allowed(tt.id))
		})
	}
}

func TestPolicy_IDs(t *testing.T) {
	p := NewPolicy([]int64{3, 1, 3, 2, 1})

	assert.Equal(t, []int64{3, 1, 2}, p.IDs())
	assert.Equal(t, 3, p.Len())

	ids := p.IDs()
	ids[0] = 999
	assert.False(t, p.Allowed(999), "mutating the returned slice must not change the policy")
	assert.Equal(t, []int64{3, 1, 2}, p.IDs())
}

func TestPolicy_Empty(t *testing.T) {
	p := NewPolicy(nil)
	assert.False(t, p.Allowed(1))
	assert.Empty(t, p.IDs())
}

func TestPolicy_ConcurrentReads(t *testing.T) {
	p := NewPolicy([]int64{1, 2, 3})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			_ = p.Allowed(id)
			_ = p.IDs()
		}(int64(i))
	}
	wg.Wait()
}
