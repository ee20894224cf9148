package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/conduit-lang/edmxtools/internal/xmlast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetAndLookup(t *testing.T) {
	c := New()
	doc := xmlast.Parse("<a/>")
	c.Set("file:///a.xml", "<a/>", doc, "converted")

	entry, ok := c.Lookup("file:///a.xml", "<a/>")
	require.True(t, ok)
	assert.Same(t, doc, entry.Document)
	assert.Equal(t, "converted", entry.Value)
	assert.Equal(t, Hash("<a/>"), entry.Hash)

	_, ok = c.Lookup("file:///a.xml", "<b/>")
	assert.False(t, ok, "changed content must miss")

	_, ok = c.Lookup("file:///other.xml", "<a/>")
	assert.False(t, ok)

	got, ok := c.Get("file:///a.xml")
	require.True(t, ok)
	assert.Same(t, entry, got)
}

func TestHash(t *testing.T) {
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", Hash(""))
	assert.NotEqual(t, Hash("a"), Hash("b"))
}

func TestInvalidate(t *testing.T) {
	c := New()
	for i := 0; i < 5; i++ {
		c.Set(fmt.Sprintf("u%d", i), "x", nil, nil)
	}
	assert.Equal(t, 5, c.Size())
	assert.Len(t, c.URIs(), 5)

	c.Invalidate("u0")
	_, ok := c.Get("u0")
	assert.False(t, ok)
	assert.Equal(t, 4, c.Size())

	c.InvalidateAll()
	assert.Equal(t, 0, c.Size())
}

func TestPrune(t *testing.T) {
	c := New()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Set("old", "x", nil, nil)
	now = now.Add(time.Hour)
	c.Set("new", "y", nil, nil)
	now = now.Add(time.Minute)

	assert.Equal(t, 1, c.Prune(30*time.Minute))
	_, ok := c.Get("old")
	assert.False(t, ok)
	_, ok = c.Get("new")
	assert.True(t, ok)

	now = now.Add(time.Hour)
	_, ok = c.Lookup("new", "y")
	require.True(t, ok)
	assert.Equal(t, 0, c.Prune(30*time.Minute), "lookup refreshes the entry")
}

func TestConcurrentAccess(t *testing.T) {
	c := New()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			uri := fmt.Sprintf("u%d", i%4)
			c.Set(uri, "content", nil, i)
			c.Lookup(uri, "content")
			c.Size()
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 4, c.Size())
}
