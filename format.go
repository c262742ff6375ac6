package defensio

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format is the serialization format of request paths and response bodies.
type Format string

// Supported formats.
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"

	// DefaultFormat is used when no format is configured.
	DefaultFormat = FormatJSON
)

// String returns the format name, which is also the path suffix.
func (f Format) String() string {
	return string(f)
}

// Supported reports whether f has a decoder.
func (f Format) Supported() bool {
	_, ok := codecs[f]
	return ok
}

// ParseFormat maps a user-supplied name to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", &FormatError{Format: s}
	}
}

// codec is the parse strategy for one Format.
type codec interface {
	format() Format
	mediaType() string
	unmarshal(data []byte) (any, error)
	marshal(v any) ([]byte, error)
}

var codecs = map[Format]codec{
	FormatJSON: jsonCodec{},
	FormatYAML: yamlCodec{},
}

func codecFor(f Format) (codec, error) {
	c, ok := codecs[f]
	if !ok {
		return nil, &FormatError{Format: string(f)}
	}
	return c, nil
}

type jsonCodec struct{}

func (jsonCodec) format() Format    { return FormatJSON }
func (jsonCodec) mediaType() string { return "application/json" }

func (jsonCodec) unmarshal(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after top-level value")
	}
	return normalize(v), nil
}

func (jsonCodec) marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

type yamlCodec struct{}

func (yamlCodec) format() Format    { return FormatYAML }
func (yamlCodec) mediaType() string { return "application/x-yaml" }

func (yamlCodec) unmarshal(data []byte) (any, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	v, err := yamlValue(&doc)
	if err != nil {
		return nil, err
	}
	return normalize(v), nil
}

// yamlValue converts a node tree to plain Go values. Timestamps keep their
// source text so YAML and JSON bodies decode to the same shape.
func yamlValue(n *yaml.Node) (any, error) {
	switch n.Kind {
	case 0:
		return nil, nil
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return yamlValue(n.Content[0])
	case yaml.AliasNode:
		return yamlValue(n.Alias)
	case yaml.MappingNode:
		m := make(map[string]any, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			k, err := yamlValue(n.Content[i])
			if err != nil {
				return nil, err
			}
			v, err := yamlValue(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			m[fmt.Sprint(k)] = v
		}
		return m, nil
	case yaml.SequenceNode:
		s := make([]any, 0, len(n.Content))
		for _, elem := range n.Content {
			v, err := yamlValue(elem)
			if err != nil {
				return nil, err
			}
			s = append(s, v)
		}
		return s, nil
	case yaml.ScalarNode:
		if n.ShortTag() == "!!timestamp" {
			return n.Value, nil
		}
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, err
		}
		return v, nil
	default:
		return nil, fmt.Errorf("line %d: unsupported YAML node kind %d", n.Line, n.Kind)
	}
}

func (yamlCodec) marshal(v any) ([]byte, error) {
	return yaml.Marshal(v)
}

// normalize gives decoded documents the same Go shape whatever their format:
// mappings become map[string]any, integral numbers int64, other numbers
// float64.
func normalize(v any) any {
	switch v := v.(type) {
	case map[string]any:
		for k, elem := range v {
			v[k] = normalize(elem)
		}
		return v
	case map[any]any:
		m := make(map[string]any, len(v))
		for k, elem := range v {
			m[fmt.Sprint(k)] = normalize(elem)
		}
		return m
	case []any:
		for i, elem := range v {
			v[i] = normalize(elem)
		}
		return v
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n
		}
		if f, err := v.Float64(); err == nil {
			return f
		}
		return v.String()
	case int:
		return int64(v)
	case uint64:
		return float64(v)
	default:
		return v
	}
}
