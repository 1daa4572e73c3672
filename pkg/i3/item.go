// Package i3 implements the i3bar/swaybar JSON protocol: the block type
// written to the bar (Item), the stream header and framing, and the click
// events the bar sends back on stdin.
package i3

import (
	"encoding/json"
	"fmt"
	"maps"
	"strings"

	"gitlab.com/tinyland/lab/pulsebar/pkg/hexcolor"
)

// Markup selects how the bar interprets full_text.
type Markup int

const (
	MarkupNone Markup = iota
	MarkupPango
)

// String returns the protocol value.
func (m Markup) String() string {
	if m == MarkupPango {
		return "pango"
	}
	return "none"
}

// Item is one block on the bar. It is a value type: the builder methods
// return modified copies and never touch the receiver.
type Item struct {
	FullText            string
	ShortText           string
	Name                string
	Instance            string
	Color               *hexcolor.Color
	BackgroundColor     *hexcolor.Color
	Markup              Markup
	Separator           *bool
	SeparatorBlockWidth *int
	Urgent              bool

	// Extra carries custom keys. They are written with a leading
	// underscore, which i3bar reserves for user data.
	Extra map[string]any
}

// NewItem returns an item with the given full text.
func NewItem(text string) Item {
	return Item{FullText: text}
}

// Empty returns the placeholder held by a slot that has not been updated.
func Empty() Item {
	return Item{}
}

// IsEmpty reports whether the item has nothing to show.
func (i Item) IsEmpty() bool {
	return i.FullText == ""
}

// Clone returns a copy that shares no mutable state with i.
func (i Item) Clone() Item {
	if i.Color != nil {
		i.Color = i.Color.Ptr()
	}
	if i.BackgroundColor != nil {
		i.BackgroundColor = i.BackgroundColor.Ptr()
	}
	if i.Separator != nil {
		v := *i.Separator
		i.Separator = &v
	}
	if i.SeparatorBlockWidth != nil {
		v := *i.SeparatorBlockWidth
		i.SeparatorBlockWidth = &v
	}
	if i.Extra != nil {
		i.Extra = maps.Clone(i.Extra)
	}
	return i
}

func (i Item) WithFullText(s string) Item  { i.FullText = s; return i }
func (i Item) WithShortText(s string) Item { i.ShortText = s; return i }
func (i Item) WithName(s string) Item      { i.Name = s; return i }
func (i Item) WithInstance(s string) Item  { i.Instance = s; return i }
func (i Item) WithMarkup(m Markup) Item    { i.Markup = m; return i }
func (i Item) WithUrgent(u bool) Item      { i.Urgent = u; return i }

func (i Item) WithColor(c hexcolor.Color) Item {
	i.Color = c.Ptr()
	return i
}

func (i Item) WithBackgroundColor(c hexcolor.Color) Item {
	i.BackgroundColor = c.Ptr()
	return i
}

func (i Item) WithSeparator(on bool) Item {
	i.Separator = &on
	return i
}

func (i Item) WithSeparatorBlockWidth(px int) Item {
	i.SeparatorBlockWidth = &px
	return i
}

// WithData sets a custom key on a copy of the item.
func (i Item) WithData(key string, value any) Item {
	extra := make(map[string]any, len(i.Extra)+1)
	maps.Copy(extra, i.Extra)
	extra[key] = value
	i.Extra = extra
	return i
}

// Data returns a custom key.
func (i Item) Data(key string) (any, bool) {
	v, ok := i.Extra[key]
	return v, ok
}

// wireItem mirrors the i3bar block keys.
type wireItem struct {
	FullText            string          `json:"full_text"`
	ShortText           string          `json:"short_text,omitempty"`
	Name                string          `json:"name,omitempty"`
	Instance            string          `json:"instance,omitempty"`
	Color               *hexcolor.Color `json:"color,omitempty"`
	Background          *hexcolor.Color `json:"background,omitempty"`
	Markup              string          `json:"markup,omitempty"`
	Separator           *bool           `json:"separator,omitempty"`
	SeparatorBlockWidth *int            `json:"separator_block_width,omitempty"`
	Urgent              bool            `json:"urgent,omitempty"`
}

// MarshalJSON implements json.Marshaler. Output keys are deterministic:
// protocol keys first, then custom keys in sorted order.
func (i Item) MarshalJSON() ([]byte, error) {
	w := wireItem{
		FullText:            i.FullText,
		ShortText:           i.ShortText,
		Name:                i.Name,
		Instance:            i.Instance,
		Color:               i.Color,
		Background:          i.BackgroundColor,
		Separator:           i.Separator,
		SeparatorBlockWidth: i.SeparatorBlockWidth,
		Urgent:              i.Urgent,
	}
	if i.Markup != MarkupNone {
		w.Markup = i.Markup.String()
	}

	base, err := json.Marshal(w)
	if err != nil {
		return nil, err
	}
	if len(i.Extra) == 0 {
		return base, nil
	}

	extra := make(map[string]any, len(i.Extra))
	for k, v := range i.Extra {
		extra["_"+k] = v
	}
	tail, err := json.Marshal(extra)
	if err != nil {
		return nil, fmt.Errorf("i3: marshal extra data: %w", err)
	}

	// splice {"full_text":...} and {"_a":...} into one object
	out := make([]byte, 0, len(base)+len(tail))
	out = append(out, base[:len(base)-1]...)
	out = append(out, ',')
	out = append(out, tail[1:]...)
	return out, nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (i *Item) UnmarshalJSON(data []byte) error {
	var w wireItem
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*i = Item{
		FullText:            w.FullText,
		ShortText:           w.ShortText,
		Name:                w.Name,
		Instance:            w.Instance,
		Color:               w.Color,
		BackgroundColor:     w.Background,
		Separator:           w.Separator,
		SeparatorBlockWidth: w.SeparatorBlockWidth,
		Urgent:              w.Urgent,
	}
	if w.Markup == "pango" {
		i.Markup = MarkupPango
	}

	for k, v := range raw {
		key, ok := strings.CutPrefix(k, "_")
		if !ok {
			continue
		}
		var val any
		if err := json.Unmarshal(v, &val); err != nil {
			return fmt.Errorf("i3: custom key %q: %w", k, err)
		}
		if i.Extra == nil {
			i.Extra = make(map[string]any)
		}
		i.Extra[key] = val
	}
	return nil
}
