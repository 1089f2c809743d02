package ejs

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingLoader wraps the default loader and counts program loads.
type countingLoader struct {
	calls atomic.Int64
}

func (c *countingLoader) Load(p *Program) (Invocable, error) {
	c.calls.Add(1)
	return TemplateLoader{}.Load(p)
}

func TestCacheCompilesOnce(t *testing.T) {
	loader := &countingLoader{}
	e := New(
		WithLoader(loader),
		WithSourceProvider(MapSource{"views/a.ejs": "v=<%= .X %>"}),
	)
	opts := &CompileOptions{Cache: true}

	out, err := e.RenderFile("views/a.ejs", map[string]any{"X": "1"}, opts)
	require.NoError(t, err)
	assert.Equal(t, "v=1", out)

	out, err = e.RenderFile("views/a.ejs", map[string]any{"X": "2"}, opts)
	require.NoError(t, err)
	assert.Equal(t, "v=2", out)

	assert.Equal(t, int64(1), loader.calls.Load(), "second render reuses the cached compile")
	assert.Equal(t, 1, e.cache.Len())
}

func TestCacheDisabledRecompiles(t *testing.T) {
	loader := &countingLoader{}
	e := New(
		WithLoader(loader),
		WithSourceProvider(MapSource{"views/a.ejs": "x"}),
	)

	_, err := e.RenderFile("views/a.ejs", nil, nil)
	require.NoError(t, err)
	_, err = e.RenderFile("views/a.ejs", nil, nil)
	require.NoError(t, err)

	assert.Equal(t, int64(2), loader.calls.Load())
	assert.Equal(t, 0, e.cache.Len())
}

func TestCacheSharedBetweenEngines(t *testing.T) {
	shared := NewCache()
	src := MapSource{"views/a.ejs": "x"}
	loader1 := &countingLoader{}
	loader2 := &countingLoader{}
	e1 := New(WithCache(shared), WithLoader(loader1), WithSourceProvider(src))
	e2 := New(WithCache(shared), WithLoader(loader2), WithSourceProvider(src))
	opts := &CompileOptions{Cache: true}

	_, err := e1.CompileFile("views/a.ejs", opts)
	require.NoError(t, err)
	_, err = e2.CompileFile("views/a.ejs", opts)
	require.NoError(t, err)

	assert.Equal(t, int64(1), loader1.calls.Load())
	assert.Equal(t, int64(0), loader2.calls.Load())
}

func TestCacheAnonymousTemplatesNotCached(t *testing.T) {
	e := New()
	_, err := e.Compile("x", &CompileOptions{Cache: true})
	require.NoError(t, err)
	assert.Equal(t, 0, e.cache.Len())
}

func TestCacheReset(t *testing.T) {
	c := NewCache()
	c.Set("a", &Template{})
	c.Set("b", &Template{})
	assert.Equal(t, 2, c.Len())

	c.Reset()
	assert.Equal(t, 0, c.Len())
	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestCacheIncludeReuse(t *testing.T) {
	loader := &countingLoader{}
	e := New(
		WithLoader(loader),
		WithSourceProvider(MapSource{
			"views/partial.ejs": "P",
			"views/a.ejs":       "A<% include partial %>",
			"views/b.ejs":       "B<% include partial %>",
		}),
	)
	opts := &CompileOptions{Cache: true}

	// Compile the partial on its own first, then two templates that
	// include it. The frozen copies come from the cache.
	_, err := e.CompileFile("views/partial.ejs", opts)
	require.NoError(t, err)
	out, err := e.RenderFile("views/a.ejs", nil, opts)
	require.NoError(t, err)
	assert.Equal(t, "AP", out)
	out, err = e.RenderFile("views/b.ejs", nil, opts)
	require.NoError(t, err)
	assert.Equal(t, "BP", out)

	assert.Equal(t, 3, e.cache.Len())
}
