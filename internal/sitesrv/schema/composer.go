package schema

import (
	"net/http"
	"slices"

	"github.com/Luna-Sites/lunasites-platform/internal/common/apperrors"
)

var (
	ErrSchema           apperrors.Error = apperrors.New("schema error").SetStatusCode(http.StatusInternalServerError)
	ErrBehaviorNotFound apperrors.Error = ErrSchema.New("behavior not found").SetStatusCode(http.StatusBadRequest)
	ErrBehaviorCycle    apperrors.Error = ErrSchema.New("behavior reference cycle").SetStatusCode(http.StatusBadRequest)
)

// provenance tag for a type's own fragment, applied last so it overrides
// everything the behaviors contributed
const generatedTag = "generated"

// Composer resolves content-type schemas against a cache of behavior
// fragments. The cache is fixed at construction; a composer is built per seed
// run from that run's behaviors.
type Composer struct {
	behaviors map[string]*Fragment
}

func NewComposer(behaviors map[string]*Fragment) *Composer {
	if behaviors == nil {
		behaviors = map[string]*Fragment{}
	}
	return &Composer{behaviors: behaviors}
}

// Resolve computes a content type's final schema: the default fragment, each
// referenced behavior's resolved fragment in declaration order, then the
// type's own fragment last so it can override.
func (c *Composer) Resolve(behaviorIDs []string, own *Fragment) (*Fragment, apperrors.Error) {
	result := defaultFragment()

	for _, id := range behaviorIDs {
		resolved, err := c.resolveBehavior(id, nil)
		if err != nil {
			return nil, err
		}
		mergeFragment(result, resolved, id)
	}

	if own != nil {
		mergeFragment(result, own, generatedTag)
	}
	result.Behaviors = append([]string{}, behaviorIDs...)
	return result, nil
}

// ResolveBehavior resolves a single behavior, including its sub-behaviors.
func (c *Composer) ResolveBehavior(id string) (*Fragment, apperrors.Error) {
	return c.resolveBehavior(id, nil)
}

// resolveBehavior resolves sub-behaviors depth-first and merges them into the
// behavior's own fragment. stack holds the ids currently being resolved;
// revisiting one means the behavior graph is cyclic and resolution fails fast
// instead of recursing forever.
func (c *Composer) resolveBehavior(id string, stack []string) (*Fragment, apperrors.Error) {
	if slices.Contains(stack, id) {
		return nil, ErrBehaviorCycle.Suffix(id)
	}
	frag, ok := c.behaviors[id]
	if !ok {
		return nil, ErrBehaviorNotFound.Suffix(id)
	}

	resolved := defaultFragment()
	stack = append(stack, id)
	for _, sub := range frag.Behaviors {
		subResolved, err := c.resolveBehavior(sub, stack)
		if err != nil {
			return nil, err
		}
		mergeFragment(resolved, subResolved, sub)
	}
	mergeFragment(resolved, frag, id)
	return resolved, nil
}

// mergeFragment merges src into dst, tagging contributions with the source
// behavior id. Fieldsets merge by id with field lists appended; properties are
// last-write-wins; required and layouts concatenate, duplicates included.
func mergeFragment(dst *Fragment, src *Fragment, tag string) {
	for _, fs := range src.Fieldsets {
		idx := slices.IndexFunc(dst.Fieldsets, func(d Fieldset) bool { return d.ID == fs.ID })
		if idx >= 0 {
			dst.Fieldsets[idx].Fields = append(dst.Fieldsets[idx].Fields, fs.Fields...)
			if fs.Title != "" {
				dst.Fieldsets[idx].Title = fs.Title
			}
		} else {
			dst.Fieldsets = append(dst.Fieldsets, Fieldset{
				ID:       fs.ID,
				Title:    fs.Title,
				Fields:   append([]string{}, fs.Fields...),
				Behavior: tag,
			})
		}
	}

	for name, prop := range src.Properties {
		p := make(Property, len(prop)+1)
		for k, v := range prop {
			p[k] = v
		}
		p["behavior"] = tag
		dst.Properties[name] = p
	}

	dst.Required = append(dst.Required, src.Required...)
	dst.Layouts = append(dst.Layouts, src.Layouts...)
}
