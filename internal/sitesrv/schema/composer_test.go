package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func frag(mutate func(*Fragment)) *Fragment {
	f := NewFragment()
	if mutate != nil {
		mutate(f)
	}
	return f
}

func TestResolveNoBehaviors(t *testing.T) {
	c := NewComposer(nil)

	own := frag(func(f *Fragment) {
		f.Fieldsets = append(f.Fieldsets, Fieldset{ID: "default", Fields: []string{"title", "description"}})
		f.Properties["title"] = Property{"type": "string"}
		f.Required = append(f.Required, "title")
	})

	resolved, err := c.Resolve(nil, own)
	require.Nil(t, err)
	require.Len(t, resolved.Fieldsets, 1)
	assert.Equal(t, "default", resolved.Fieldsets[0].ID)
	assert.Equal(t, []string{"title", "description"}, resolved.Fieldsets[0].Fields)
	assert.Equal(t, []string{"title"}, resolved.Required)
	assert.Equal(t, "generated", resolved.Properties["title"]["behavior"])
}

func TestResolveBehaviorOrder(t *testing.T) {
	behaviors := map[string]*Fragment{
		"dublincore": frag(func(f *Fragment) {
			f.Fieldsets = append(f.Fieldsets, Fieldset{ID: "default", Fields: []string{"title"}})
			f.Properties["title"] = Property{"type": "string", "maxLength": 100}
		}),
		"ownership": frag(func(f *Fragment) {
			f.Properties["title"] = Property{"type": "string", "maxLength": 200}
			f.Properties["creator"] = Property{"type": "string"}
		}),
	}
	c := NewComposer(behaviors)

	resolved, err := c.Resolve([]string{"dublincore", "ownership"}, nil)
	require.Nil(t, err)

	// later behavior wins for the shared property
	assert.Equal(t, 200, resolved.Properties["title"]["maxLength"])
	assert.Equal(t, "ownership", resolved.Properties["title"]["behavior"])
	assert.Equal(t, "ownership", resolved.Properties["creator"]["behavior"])
	assert.Equal(t, []string{"dublincore", "ownership"}, resolved.Behaviors)
}

func TestResolveOwnOverridesBehaviors(t *testing.T) {
	behaviors := map[string]*Fragment{
		"dublincore": frag(func(f *Fragment) {
			f.Properties["title"] = Property{"type": "string", "maxLength": 100}
			f.Required = append(f.Required, "title")
		}),
	}
	c := NewComposer(behaviors)

	own := frag(func(f *Fragment) {
		f.Properties["title"] = Property{"type": "string", "maxLength": 50}
	})

	resolved, err := c.Resolve([]string{"dublincore"}, own)
	require.Nil(t, err)
	assert.Equal(t, 50, resolved.Properties["title"]["maxLength"])
	assert.Equal(t, "generated", resolved.Properties["title"]["behavior"])
	assert.Equal(t, []string{"title"}, resolved.Required)
}

func TestResolveFieldsetMerge(t *testing.T) {
	behaviors := map[string]*Fragment{
		"dates": frag(func(f *Fragment) {
			f.Fieldsets = append(f.Fieldsets, Fieldset{ID: "dates", Title: "Dates", Fields: []string{"effective"}})
		}),
		"expiry": frag(func(f *Fragment) {
			f.Fieldsets = append(f.Fieldsets, Fieldset{ID: "dates", Fields: []string{"expires"}})
		}),
	}
	c := NewComposer(behaviors)

	resolved, err := c.Resolve([]string{"dates", "expiry"}, nil)
	require.Nil(t, err)
	require.Len(t, resolved.Fieldsets, 2) // default + dates

	idx := -1
	for i, fs := range resolved.Fieldsets {
		if fs.ID == "dates" {
			idx = i
		}
	}
	require.GreaterOrEqual(t, idx, 0)
	assert.Equal(t, "Dates", resolved.Fieldsets[idx].Title)
	assert.Equal(t, []string{"effective", "expires"}, resolved.Fieldsets[idx].Fields)
	assert.Equal(t, "dates", resolved.Fieldsets[idx].Behavior)
}

func TestResolveSubBehaviors(t *testing.T) {
	behaviors := map[string]*Fragment{
		"base": frag(func(f *Fragment) {
			f.Properties["id"] = Property{"type": "string"}
		}),
		"page": frag(func(f *Fragment) {
			f.Behaviors = append(f.Behaviors, "base")
			f.Properties["body"] = Property{"type": "string"}
		}),
	}
	c := NewComposer(behaviors)

	resolved, err := c.Resolve([]string{"page"}, nil)
	require.Nil(t, err)
	assert.Contains(t, resolved.Properties, "id")
	assert.Contains(t, resolved.Properties, "body")
}

func TestResolveBehaviorNotFound(t *testing.T) {
	c := NewComposer(nil)
	_, err := c.Resolve([]string{"missing"}, nil)
	require.NotNil(t, err)
	assert.ErrorIs(t, err, ErrBehaviorNotFound)
}

func TestResolveBehaviorCycle(t *testing.T) {
	behaviors := map[string]*Fragment{
		"a": frag(func(f *Fragment) { f.Behaviors = []string{"b"} }),
		"b": frag(func(f *Fragment) { f.Behaviors = []string{"a"} }),
	}
	c := NewComposer(behaviors)

	_, err := c.Resolve([]string{"a"}, nil)
	require.NotNil(t, err)
	assert.ErrorIs(t, err, ErrBehaviorCycle)
}

func TestResolveSelfCycle(t *testing.T) {
	behaviors := map[string]*Fragment{
		"a": frag(func(f *Fragment) { f.Behaviors = []string{"a"} }),
	}
	c := NewComposer(behaviors)

	_, err := c.Resolve([]string{"a"}, nil)
	require.NotNil(t, err)
	assert.ErrorIs(t, err, ErrBehaviorCycle)
}

func TestResolveDoesNotMutateCache(t *testing.T) {
	cached := frag(func(f *Fragment) {
		f.Fieldsets = append(f.Fieldsets, Fieldset{ID: "default", Fields: []string{"title"}})
		f.Properties["title"] = Property{"type": "string"}
	})
	c := NewComposer(map[string]*Fragment{"dublincore": cached})

	own := frag(func(f *Fragment) {
		f.Fieldsets = append(f.Fieldsets, Fieldset{ID: "default", Fields: []string{"extra"}})
		f.Properties["title"] = Property{"type": "integer"}
	})
	_, err := c.Resolve([]string{"dublincore"}, own)
	require.Nil(t, err)

	assert.Equal(t, []string{"title"}, cached.Fieldsets[0].Fields)
	assert.Equal(t, "string", cached.Properties["title"]["type"])
	assert.NotContains(t, cached.Properties["title"], "behavior")
}

func TestCanonicalJSONDeterministic(t *testing.T) {
	behaviors := map[string]*Fragment{
		"dublincore": frag(func(f *Fragment) {
			f.Properties["title"] = Property{"type": "string"}
			f.Properties["description"] = Property{"type": "string"}
			f.Required = append(f.Required, "title")
		}),
	}

	render := func() []byte {
		c := NewComposer(behaviors)
		resolved, err := c.Resolve([]string{"dublincore"}, nil)
		require.Nil(t, err)
		b, merr := resolved.CanonicalJSON()
		require.NoError(t, merr)
		return b
	}

	first := render()
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, render())
	}
}

func TestParseFragmentRoundTrip(t *testing.T) {
	in := []byte(`{
		"fieldsets": [{"id": "default", "fields": ["title"]}],
		"properties": {"title": {"type": "string"}},
		"required": ["title"],
		"behaviors": ["dublincore"]
	}`)
	f, err := ParseFragment(in)
	require.NoError(t, err)
	assert.Equal(t, []string{"dublincore"}, f.Behaviors)
	assert.Equal(t, "string", f.Properties["title"]["type"])

	empty, err := ParseFragment(nil)
	require.NoError(t, err)
	assert.NotNil(t, empty.Properties)
}
