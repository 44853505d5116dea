package otio

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Schema names written to OTIO_SCHEMA.
const (
	SchemaRationalTime           = "RationalTime.1"
	SchemaTimeRange              = "TimeRange.1"
	SchemaExternalReference      = "ExternalReference.1"
	SchemaImageSequenceReference = "ImageSequenceReference.1"
	SchemaClip                   = "Clip.2"
	SchemaCollection             = "SerializableCollection.1"
)

// checkSchema compares schema names and ignores the version suffix.
func checkSchema(got, want string) error {
	if schemaName(got) != schemaName(want) {
		return fmt.Errorf("unexpected OTIO_SCHEMA %q, expected %q", got, want)
	}
	return nil
}

func schemaName(s string) string {
	name, _, _ := strings.Cut(s, ".")
	return name
}

type externalReferenceWire struct {
	Schema         string            `json:"OTIO_SCHEMA"`
	Metadata       ReferenceMetadata `json:"metadata"`
	Name           string            `json:"name"`
	AvailableRange *TimeRange        `json:"available_range"`
	TargetURL      string            `json:"target_url"`
}

type imageSequenceReferenceWire struct {
	Schema             string            `json:"OTIO_SCHEMA"`
	Metadata           ReferenceMetadata `json:"metadata"`
	Name               string            `json:"name"`
	AvailableRange     *TimeRange        `json:"available_range"`
	TargetURLBase      string            `json:"target_url_base"`
	NamePrefix         string            `json:"name_prefix"`
	NameSuffix         string            `json:"name_suffix"`
	StartFrame         int               `json:"start_frame"`
	FrameStep          int               `json:"frame_step"`
	Rate               float64           `json:"rate"`
	FrameZeroPadding   int               `json:"frame_zero_padding"`
	MissingFramePolicy string            `json:"missing_frame_policy"`
}

type clipWire struct {
	Schema                  string                     `json:"OTIO_SCHEMA"`
	Metadata                ClipMetadata               `json:"metadata"`
	Name                    string                     `json:"name"`
	SourceRange             *TimeRange                 `json:"source_range"`
	Effects                 []json.RawMessage          `json:"effects"`
	Markers                 []json.RawMessage          `json:"markers"`
	Enabled                 bool                       `json:"enabled"`
	MediaReferences         map[string]json.RawMessage `json:"media_references"`
	ActiveMediaReferenceKey string                     `json:"active_media_reference_key"`
}

type collectionWire struct {
	Schema   string             `json:"OTIO_SCHEMA"`
	Metadata CollectionMetadata `json:"metadata"`
	Name     string             `json:"name"`
	Children []json.RawMessage  `json:"children"`
}

// MarshalReference encodes a media reference with its schema tag.
func MarshalReference(ref MediaReference) ([]byte, error) {
	switch r := ref.(type) {
	case *ExternalReference:
		return json.Marshal(externalReferenceWire{
			Schema:         SchemaExternalReference,
			Metadata:       r.Metadata,
			Name:           r.Name,
			AvailableRange: r.AvailableRange,
			TargetURL:      r.TargetURL,
		})
	case *ImageSequenceReference:
		return json.Marshal(imageSequenceReferenceWire{
			Schema:             SchemaImageSequenceReference,
			Metadata:           r.Metadata,
			Name:               r.Name,
			AvailableRange:     r.AvailableRange,
			TargetURLBase:      r.TargetURLBase,
			NamePrefix:         r.NamePrefix,
			NameSuffix:         r.NameSuffix,
			StartFrame:         r.StartFrame,
			FrameStep:          r.FrameStep,
			Rate:               r.Rate,
			FrameZeroPadding:   r.FrameZeroPadding,
			MissingFramePolicy: "error",
		})
	default:
		return nil, fmt.Errorf("unsupported media reference type %T", ref)
	}
}

// UnmarshalReference decodes a media reference, picking the concrete type
// from its schema tag.
func UnmarshalReference(data []byte) (MediaReference, error) {
	var head struct {
		Schema string `json:"OTIO_SCHEMA"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, err
	}

	switch schemaName(head.Schema) {
	case schemaName(SchemaExternalReference):
		var w externalReferenceWire
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, err
		}
		return &ExternalReference{
			ReferenceInfo: ReferenceInfo{Name: w.Name, AvailableRange: w.AvailableRange, Metadata: w.Metadata},
			TargetURL:     w.TargetURL,
		}, nil
	case schemaName(SchemaImageSequenceReference):
		var w imageSequenceReferenceWire
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, err
		}
		return &ImageSequenceReference{
			ReferenceInfo:    ReferenceInfo{Name: w.Name, AvailableRange: w.AvailableRange, Metadata: w.Metadata},
			TargetURLBase:    w.TargetURLBase,
			NamePrefix:       w.NamePrefix,
			NameSuffix:       w.NameSuffix,
			StartFrame:       w.StartFrame,
			FrameStep:        w.FrameStep,
			Rate:             w.Rate,
			FrameZeroPadding: w.FrameZeroPadding,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported media reference schema %q", head.Schema)
	}
}

// MarshalJSON implements json.Marshaler.
func (c *Clip) MarshalJSON() ([]byte, error) {
	refs := make(map[string]json.RawMessage, len(c.references))
	for key, ref := range c.references {
		data, err := MarshalReference(ref)
		if err != nil {
			return nil, fmt.Errorf("clip %s reference %s: %w", c.Name, key, err)
		}
		refs[key] = data
	}
	active := c.activeKey
	if active == "" {
		active = DefaultMediaKey
	}
	return json.Marshal(clipWire{
		Schema:                  SchemaClip,
		Metadata:                c.Metadata,
		Name:                    c.Name,
		SourceRange:             c.SourceRange,
		Effects:                 []json.RawMessage{},
		Markers:                 []json.RawMessage{},
		Enabled:                 true,
		MediaReferences:         refs,
		ActiveMediaReferenceKey: active,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *Clip) UnmarshalJSON(data []byte) error {
	var w clipWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if err := checkSchema(w.Schema, SchemaClip); err != nil {
		return err
	}
	c.Name = w.Name
	c.SourceRange = w.SourceRange
	c.Metadata = w.Metadata
	c.activeKey = w.ActiveMediaReferenceKey
	if c.activeKey == "" {
		c.activeKey = DefaultMediaKey
	}
	c.references = make(map[string]MediaReference, len(w.MediaReferences))
	for key, raw := range w.MediaReferences {
		ref, err := UnmarshalReference(raw)
		if err != nil {
			return fmt.Errorf("clip %s reference %s: %w", w.Name, key, err)
		}
		c.references[key] = ref
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (c *Collection) MarshalJSON() ([]byte, error) {
	children := make([]json.RawMessage, 0, len(c.Clips))
	for _, clip := range c.Clips {
		data, err := json.Marshal(clip)
		if err != nil {
			return nil, err
		}
		children = append(children, data)
	}
	return json.Marshal(collectionWire{
		Schema:   SchemaCollection,
		Metadata: c.Metadata,
		Name:     c.Name,
		Children: children,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *Collection) UnmarshalJSON(data []byte) error {
	var w collectionWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if err := checkSchema(w.Schema, SchemaCollection); err != nil {
		return err
	}
	c.Name = w.Name
	c.Metadata = w.Metadata
	c.Clips = make([]*Clip, 0, len(w.Children))
	for i, raw := range w.Children {
		clip := &Clip{}
		if err := json.Unmarshal(raw, clip); err != nil {
			return fmt.Errorf("child %d: %w", i, err)
		}
		c.Clips = append(c.Clips, clip)
	}
	return nil
}

// Encode writes c as indented OTIO JSON.
func Encode(w io.Writer, c *Collection) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	return enc.Encode(c)
}

// Decode reads a collection document.
func Decode(r io.Reader) (*Collection, error) {
	c := &Collection{}
	if err := json.NewDecoder(r).Decode(c); err != nil {
		return nil, err
	}
	return c, nil
}
