package csdl

import (
	"encoding/json"
	"fmt"
)

// MarshalJSON writes the element with its type discriminator and never emits null
// collections
func (e Element) MarshalJSON() ([]byte, error) {
	type alias Element
	a := alias(e)
	a.Type = TypeElement
	if a.Attributes == nil {
		a.Attributes = Attributes{}
	}
	if a.Content == nil {
		a.Content = []Node{}
	}
	return json.Marshal(a)
}

// UnmarshalJSON decodes an element, dispatching content entries on their "type"
func (e *Element) UnmarshalJSON(data []byte) error {
	type alias Element
	var raw struct {
		alias
		Content []json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*e = Element(raw.alias)
	e.Type = TypeElement
	if e.Attributes == nil {
		e.Attributes = Attributes{}
	}
	e.Content = make([]Node, 0, len(raw.Content))
	for i, msg := range raw.Content {
		node, err := unmarshalNode(msg)
		if err != nil {
			return fmt.Errorf("content[%d] of <%s>: %w", i, e.Name, err)
		}
		e.Content = append(e.Content, node)
	}
	return nil
}

func unmarshalNode(msg json.RawMessage) (Node, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(msg, &head); err != nil {
		return nil, err
	}
	switch head.Type {
	case TypeText:
		var text TextNode
		if err := json.Unmarshal(msg, &text); err != nil {
			return nil, err
		}
		return &text, nil
	case TypeElement:
		var el Element
		if err := json.Unmarshal(msg, &el); err != nil {
			return nil, err
		}
		return &el, nil
	default:
		return nil, fmt.Errorf("unknown node type %q", head.Type)
	}
}

// MarshalJSON writes the text node with its type discriminator
func (t TextNode) MarshalJSON() ([]byte, error) {
	type alias TextNode
	a := alias(t)
	a.Type = TypeText
	return json.Marshal(a)
}

// MarshalJSON writes the attribute with its type discriminator
func (a Attribute) MarshalJSON() ([]byte, error) {
	type alias Attribute
	v := alias(a)
	v.Type = TypeAttribute
	return json.Marshal(v)
}
