package p2c

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/taquillave/p2c-gateway/pkg/encoding"
)

// Field is one element of a gateway document. A leaf field carries Value;
// a container field carries Children. The gateway schema never mixes both.
type Field struct {
	Name     string
	Value    string
	Children Fields
}

// Fields is an ordered list of elements. Order matters: the bank validates
// the purchase body positionally, so encoding preserves insertion order.
type Fields []Field

// Get returns the value of the first leaf field with the given name
func (f Fields) Get(name string) (string, bool) {
	for _, field := range f {
		if field.Name == name && field.Children == nil {
			return field.Value, true
		}
	}
	return "", false
}

// GetOr returns the value of the first leaf field with the given name,
// or fallback when absent
func (f Fields) GetOr(name, fallback string) string {
	if v, ok := f.Get(name); ok {
		return v
	}
	return fallback
}

// Child returns the children of the first container field with the given name
func (f Fields) Child(name string) (Fields, bool) {
	for _, field := range f {
		if field.Name == name && field.Children != nil {
			return field.Children, true
		}
	}
	return nil, false
}

// Values returns every leaf value carrying the given name, in document order
func (f Fields) Values(name string) []string {
	var out []string
	for _, field := range f {
		if field.Name == name && field.Children == nil {
			out = append(out, field.Value)
		}
	}
	return out
}

// Has reports whether any field with the given name exists
func (f Fields) Has(name string) bool {
	for _, field := range f {
		if field.Name == name {
			return true
		}
	}
	return false
}

const xmlDeclaration = `<?xml version="1.0" encoding="UTF-8"?>`

// EncodeDocument renders fields under a single root element, preserving field
// order. Values are XML-escaped; the output carries no attributes and no
// indentation, matching what the bank's parser expects.
func EncodeDocument(root string, fields Fields) ([]byte, error) {
	buf := encoding.GetBuffer()
	defer encoding.PutBuffer(buf)

	buf.WriteString(xmlDeclaration)

	enc := xml.NewEncoder(buf)
	if err := encodeElement(enc, Field{Name: root, Children: fields}); err != nil {
		return nil, fmt.Errorf("failed to encode %s document: %w", root, err)
	}
	if err := enc.Flush(); err != nil {
		return nil, fmt.Errorf("failed to flush %s document: %w", root, err)
	}

	// Copy out before the buffer goes back to the pool
	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}

func encodeElement(enc *xml.Encoder, field Field) error {
	start := xml.StartElement{Name: xml.Name{Local: field.Name}}
	if err := enc.EncodeToken(start); err != nil {
		return err
	}

	if field.Children != nil {
		for _, child := range field.Children {
			if err := encodeElement(enc, child); err != nil {
				return err
			}
		}
	} else if field.Value != "" {
		if err := enc.EncodeToken(xml.CharData(field.Value)); err != nil {
			return err
		}
	}

	return enc.EncodeToken(start.End())
}

// DecodeDocument parses a single-root gateway document into its root name and
// ordered child fields. Leaf text is whitespace-trimmed; attributes are
// ignored; anything not well-formed is an error carrying no domain meaning
// (callers classify it).
func DecodeDocument(data []byte) (string, Fields, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return "", nil, fmt.Errorf("document has no root element")
		}
		if err != nil {
			return "", nil, fmt.Errorf("failed to read document: %w", err)
		}

		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		root, err := decodeElement(dec, start)
		if err != nil {
			return "", nil, err
		}
		if root.Children == nil {
			// A childless root still decodes, just with nothing in it
			return root.Name, Fields{}, nil
		}
		return root.Name, root.Children, nil
	}
}

func decodeElement(dec *xml.Decoder, start xml.StartElement) (Field, error) {
	field := Field{Name: start.Name.Local}
	var text strings.Builder

	for {
		tok, err := dec.Token()
		if err != nil {
			return Field{}, fmt.Errorf("element <%s> not terminated: %w", field.Name, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			child, err := decodeElement(dec, t)
			if err != nil {
				return Field{}, err
			}
			field.Children = append(field.Children, child)
		case xml.CharData:
			text.Write(t)
		case xml.EndElement:
			if field.Children == nil {
				field.Value = strings.TrimSpace(text.String())
			}
			return field, nil
		}
	}
}
