package transfer

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistryRegisterLookupRemove(t *testing.T) {
	registry := NewRegistry()

	tr := New("id-1", DirectionUpload)
	registry.Register(tr)

	assert.Same(t, tr, registry.Lookup("id-1"))
	assert.Nil(t, registry.Lookup("id-2"))

	registry.Remove("id-1")
	assert.Nil(t, registry.Lookup("id-1"))
}

func TestRegistryCancelRoutesToInstance(t *testing.T) {
	registry := NewRegistry()

	tr := New("id-1", DirectionDownload)
	tr.Start()
	registry.Register(tr)

	assert.True(t, registry.Cancel("id-1"))
	assert.True(t, tr.IsCancelled())

	assert.False(t, registry.Cancel("missing"), "unknown IDs report not found")
}

func TestRegistryConcurrentAccess(t *testing.T) {
	registry := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := string(rune('a' + n%8))
			registry.Register(New(id, DirectionUpload))
			registry.Lookup(id)
			registry.Cancel(id)
			registry.Remove(id)
		}(i)
	}
	wg.Wait()
}
