package otio

// Collection is an ordered, named list of clips.
type Collection struct {
	Name     string
	Metadata CollectionMetadata
	Clips    []*Clip
}

// NewCollection returns an empty collection.
func NewCollection(name string) *Collection {
	return &Collection{Name: name}
}

// Append adds a clip at the end.
func (c *Collection) Append(clip *Clip) {
	c.Clips = append(c.Clips, clip)
}

// Find returns the first clip called name.
func (c *Collection) Find(name string) (*Clip, bool) {
	for _, clip := range c.Clips {
		if clip.Name == name {
			return clip, true
		}
	}
	return nil, false
}

// Merge folds the clips of other into c. A clip with the same name is merged
// reference by reference, new clips are appended in the order of other, and
// clips that only exist in c are kept as they are.
func (c *Collection) Merge(other *Collection) {
	for _, clip := range other.Clips {
		if existing, ok := c.Find(clip.Name); ok {
			existing.MergeFrom(clip)
			continue
		}
		c.Append(clip)
	}
	if other.Metadata.Run != nil {
		run := *other.Metadata.Run
		c.Metadata.Run = &run
	}
}
