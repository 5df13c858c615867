// Package schema implements content-type schema composition: reusable behavior
// fragments are recursively resolved and merged with a type's own fields into
// one resolved schema.
package schema

import (
	"github.com/anand-gl/jsoncanonicalizer"
	json "github.com/json-iterator/go"

	"github.com/Luna-Sites/lunasites-platform/pkg/types"
)

// Property is the JSON definition of a single schema field. The composer
// attaches a "behavior" key recording which fragment contributed the final
// definition.
type Property map[string]any

// Fieldset groups fields for form rendering. Fieldsets with the same id are
// merged across fragments: field lists append, they never replace.
type Fieldset struct {
	ID       string   `json:"id"`
	Title    string   `json:"title,omitempty"`
	Fields   []string `json:"fields"`
	Behavior string   `json:"behavior,omitempty"`
}

// Fragment is one mergeable unit of schema: a behavior's contribution or a
// content type's own fields.
type Fragment struct {
	Fieldsets  []Fieldset          `json:"fieldsets"`
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required"`
	Behaviors  []string            `json:"behaviors,omitempty"`
	Layouts    []string            `json:"layouts,omitempty"`
}

// NewFragment returns an empty fragment with initialized containers.
func NewFragment() *Fragment {
	return &Fragment{
		Fieldsets:  []Fieldset{},
		Properties: map[string]Property{},
		Required:   []string{},
		Layouts:    []string{},
	}
}

// defaultFragment is the merge base for every resolved type: a single empty
// default fieldset.
func defaultFragment() *Fragment {
	f := NewFragment()
	f.Fieldsets = append(f.Fieldsets, Fieldset{ID: types.DefaultFieldset, Fields: []string{}})
	return f
}

// Clone deep-copies the fragment so merging never mutates cached behaviors.
func (f *Fragment) Clone() *Fragment {
	c := NewFragment()
	for _, fs := range f.Fieldsets {
		c.Fieldsets = append(c.Fieldsets, Fieldset{
			ID:       fs.ID,
			Title:    fs.Title,
			Fields:   append([]string{}, fs.Fields...),
			Behavior: fs.Behavior,
		})
	}
	for name, prop := range f.Properties {
		p := make(Property, len(prop))
		for k, v := range prop {
			p[k] = v
		}
		c.Properties[name] = p
	}
	c.Required = append(c.Required, f.Required...)
	c.Behaviors = append([]string{}, f.Behaviors...)
	c.Layouts = append(c.Layouts, f.Layouts...)
	return c
}

// CanonicalJSON serializes the fragment into canonical JSON (RFC 8785 key
// ordering), so equal resolved schemas are byte-identical across runs.
func (f *Fragment) CanonicalJSON() ([]byte, error) {
	raw, err := json.Marshal(f)
	if err != nil {
		return nil, err
	}
	return jsoncanonicalizer.Transform(raw)
}

// ParseFragment decodes a fragment from its JSON form.
func ParseFragment(data []byte) (*Fragment, error) {
	f := NewFragment()
	if len(data) == 0 {
		return f, nil
	}
	if err := json.Unmarshal(data, f); err != nil {
		return nil, err
	}
	if f.Properties == nil {
		f.Properties = map[string]Property{}
	}
	return f, nil
}
