package otio

import (
	"maps"
	"slices"
)

// DefaultMediaKey names the reference that points at the original source.
const DefaultMediaKey = "DEFAULT_MEDIA"

// Clip is a named source plus every media reference derived from it.
type Clip struct {
	Name        string
	SourceRange *TimeRange
	Metadata    ClipMetadata

	references map[string]MediaReference
	activeKey  string
}

// NewClip creates a clip whose default reference is source.
func NewClip(name string, source MediaReference) *Clip {
	c := &Clip{
		Name:       name,
		references: make(map[string]MediaReference),
		activeKey:  DefaultMediaKey,
	}
	if source != nil {
		c.references[DefaultMediaKey] = source
	}
	return c
}

// MediaReference returns the active reference, normally the source.
func (c *Clip) MediaReference() MediaReference {
	return c.references[c.activeKey]
}

// Reference looks up a reference by name.
func (c *Clip) Reference(key string) (MediaReference, bool) {
	ref, ok := c.references[key]
	return ref, ok
}

// ReferenceNames returns all reference names, sorted.
func (c *Clip) ReferenceNames() []string {
	return slices.Sorted(maps.Keys(c.references))
}

// TestReferenceNames returns every reference name except the default, sorted.
func (c *Clip) TestReferenceNames() []string {
	names := make([]string, 0, len(c.references))
	for _, name := range c.ReferenceNames() {
		if name != DefaultMediaKey {
			names = append(names, name)
		}
	}
	return names
}

// PutReference stores ref under key, replacing whatever was there.
func (c *Clip) PutReference(key string, ref MediaReference) {
	if c.references == nil {
		c.references = make(map[string]MediaReference)
	}
	if c.activeKey == "" {
		c.activeKey = DefaultMediaKey
	}
	c.references[key] = ref
}

// MergeReference stores ref under key. When key already holds a reference,
// the recorded results of the old reference that ref does not overwrite are
// carried over, so results from other tool versions survive.
func (c *Clip) MergeReference(key string, ref MediaReference) {
	old, ok := c.references[key]
	if !ok {
		c.PutReference(key, ref)
		return
	}
	merged := old.Info().Metadata.Clone()
	merged.Merge(ref.Info().Metadata)
	ref.Info().Metadata = merged
	c.PutReference(key, ref)
}

// MergeFrom folds the references of other into c key by key. Keys missing
// from other are left untouched. The default reference and source details
// are taken from other.
func (c *Clip) MergeFrom(other *Clip) {
	for _, key := range other.ReferenceNames() {
		ref := other.references[key]
		if key == DefaultMediaKey {
			c.PutReference(key, ref)
			continue
		}
		c.MergeReference(key, ref)
	}
	if other.SourceRange != nil {
		r := *other.SourceRange
		c.SourceRange = &r
	}
	if other.Metadata.SourceInfo != nil {
		si := *other.Metadata.SourceInfo
		c.Metadata.SourceInfo = &si
	}
}
