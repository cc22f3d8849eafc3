package providers

import (
	"bytes"
	"encoding/json"
)

// Field is a single ordered key/value pair in a provider outcome.
type Field struct {
	Key   string
	Value any
}

// Outcome is the ordered field list produced by one provider operation. A
// single call can produce several outcomes (e.g. morse with both en and de
// set); the response body is their merge.
type Outcome struct {
	Fields []Field
}

// Set appends a field, or replaces the value in place when the key already
// exists. Replacement keeps the key's original position, matching how the
// historical response bodies were assembled.
func (o *Outcome) Set(key string, val any) {
	for i := range o.Fields {
		if o.Fields[i].Key == key {
			o.Fields[i].Value = val
			return
		}
	}
	o.Fields = append(o.Fields, Field{Key: key, Value: val})
}

// Result is the complete outcome of dispatching one API call.
type Result struct {
	Provider   string
	Recognized bool
	Outcomes   []Outcome
}

// Err reports whether any outcome carries a non-empty "error" field.
func (r Result) Err() bool {
	for _, o := range r.Outcomes {
		for _, f := range o.Fields {
			if f.Key == "error" {
				if s, ok := f.Value.(string); ok && s != "" {
					return true
				}
			}
		}
	}
	return false
}

// Merged flattens the outcomes into one ordered field list. Later outcomes
// overwrite earlier values key-by-key while keeping first-seen positions.
func (r Result) Merged() Outcome {
	var merged Outcome
	for _, o := range r.Outcomes {
		for _, f := range o.Fields {
			merged.Set(f.Key, f.Value)
		}
	}
	return merged
}

// MarshalJSON renders the merged outcome as a JSON object with fields in
// insertion order.
func (r Result) MarshalJSON() ([]byte, error) {
	return r.Merged().MarshalJSON()
}

// MarshalJSON renders the outcome as an ordered JSON object.
func (o Outcome) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range o.Fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Indent renders the merged outcome with two-space indentation, the format
// the notification sink sends to the operator channel.
func (r Result) Indent() ([]byte, error) {
	compact, err := r.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, compact, "", "  "); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
