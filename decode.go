package defensio

import (
	"fmt"
	"time"
)

// RootNode is the envelope key wrapping every payload.
const RootNode = "defensio-result"

// Result is the mapping found under the envelope root node. Field names are
// defined by the service and passed through unchanged.
type Result map[string]any

// DecodeResult parses payload in format f and returns the mapping under
// RootNode.
func DecodeResult(f Format, payload []byte) (Result, error) {
	c, err := codecFor(f)
	if err != nil {
		return nil, err
	}
	return decodeEnvelope(c, payload)
}

// EncodeResult wraps r in the envelope and serializes it in format f. It is
// the inverse of DecodeResult, producing the bodies the service sends.
func EncodeResult(f Format, r Result) ([]byte, error) {
	c, err := codecFor(f)
	if err != nil {
		return nil, err
	}
	return c.marshal(map[string]any{RootNode: map[string]any(r)})
}

// decodeFunc turns a raw response body into a Result.
type decodeFunc func(c codec, payload []byte) (Result, error)

func decodeEnvelope(c codec, payload []byte) (Result, error) {
	doc, err := c.unmarshal(payload)
	if err != nil {
		return nil, &DecodeError{Format: c.format(), Payload: payload, Err: err}
	}
	envelope, ok := doc.(map[string]any)
	if !ok {
		return nil, &DecodeError{
			Format:  c.format(),
			Payload: payload,
			Err:     fmt.Errorf("top-level value is %T, not a mapping", doc),
		}
	}
	inner, ok := envelope[RootNode]
	if !ok {
		return nil, &DecodeError{Format: c.format(), Payload: payload, Err: ErrMissingRootNode}
	}
	result, ok := inner.(map[string]any)
	if !ok {
		return nil, &DecodeError{
			Format:  c.format(),
			Payload: payload,
			Err:     fmt.Errorf("%q is %T, not a mapping", RootNode, inner),
		}
	}
	return Result(result), nil
}

// decodeExtendedStats decodes an extended statistics body and converts the
// "date" field of every "data" entry to a Date.
func decodeExtendedStats(c codec, payload []byte) (Result, error) {
	result, err := decodeEnvelope(c, payload)
	if err != nil {
		return nil, err
	}
	if err := coerceStatsDates(result); err != nil {
		return nil, &DecodeError{Format: c.format(), Payload: payload, Err: err}
	}
	return result, nil
}

func coerceStatsDates(r Result) error {
	raw, ok := r["data"]
	if !ok || raw == nil {
		return nil
	}
	points, ok := raw.([]any)
	if !ok {
		return fmt.Errorf("data is %T, not a sequence", raw)
	}
	for i, p := range points {
		point, ok := p.(map[string]any)
		if !ok {
			return fmt.Errorf("data[%d] is %T, not a mapping", i, p)
		}
		v, ok := point["date"]
		if !ok {
			continue
		}
		switch v := v.(type) {
		case Date:
		case time.Time:
			point["date"] = DateOf(v)
		case string:
			d, err := ParseDate(v)
			if err != nil {
				return fmt.Errorf("data[%d].date: %w", i, err)
			}
			point["date"] = d
		default:
			return fmt.Errorf("data[%d].date is %T, not a string", i, v)
		}
	}
	return nil
}
