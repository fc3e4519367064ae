package fact

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// wireValue is the on-the-wire shape of a Value: {"t": tag, "v": payload}.
// Binary buffers are encoded with base64.StdEncoding into a JSON
// string; everything else round-trips through Go's JSON number/string/
// bool representation.
type wireValue struct {
	T string          `json:"t"`
	V json.RawMessage `json:"v"`
}

func tagWireName(t ValueTag) string {
	switch t {
	case TagInt:
		return "int"
	case TagFloat:
		return "float"
	case TagString:
		return "string"
	case TagBool:
		return "bool"
	case TagInstant:
		return "instant"
	case TagRef:
		return "ref"
	case TagKeyword:
		return "keyword"
	case TagBytes:
		return "bytes"
	default:
		return ""
	}
}

// MarshalJSON encodes a Value as the journal/snapshot wire format
// documented in spec §4.8/§6: {"t": "<tag>", "v": <payload>}.
func (v Value) MarshalJSON() ([]byte, error) {
	var payload []byte
	var err error

	switch v.tag {
	case TagInt:
		payload, err = json.Marshal(v.i)
	case TagFloat:
		payload, err = json.Marshal(v.f)
	case TagString, TagKeyword:
		payload, err = json.Marshal(v.s)
	case TagBool:
		payload, err = json.Marshal(v.bl)
	case TagInstant:
		payload, err = json.Marshal(v.u)
	case TagRef:
		payload, err = json.Marshal(v.i)
	case TagBytes:
		payload, err = json.Marshal(base64.StdEncoding.EncodeToString([]byte(v.b)))
	default:
		return nil, fmt.Errorf("fact: cannot marshal value with unknown tag %d", v.tag)
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(wireValue{T: tagWireName(v.tag), V: payload})
}

// UnmarshalJSON decodes the {"t", "v"} wire format back into a Value.
func (v *Value) UnmarshalJSON(data []byte) error {
	var w wireValue
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	switch w.T {
	case "int":
		var n int64
		if err := json.Unmarshal(w.V, &n); err != nil {
			return err
		}
		*v = IntValue(n)
	case "float":
		var f float64
		if err := json.Unmarshal(w.V, &f); err != nil {
			return err
		}
		*v = FloatValue(f)
	case "string":
		var s string
		if err := json.Unmarshal(w.V, &s); err != nil {
			return err
		}
		*v = StringValue(s)
	case "bool":
		var b bool
		if err := json.Unmarshal(w.V, &b); err != nil {
			return err
		}
		*v = BoolValue(b)
	case "instant":
		var u uint64
		if err := json.Unmarshal(w.V, &u); err != nil {
			return err
		}
		*v = InstantValue(u)
	case "ref":
		var n int64
		if err := json.Unmarshal(w.V, &n); err != nil {
			return err
		}
		*v = RefValue(EntityID(n))
	case "keyword":
		var s string
		if err := json.Unmarshal(w.V, &s); err != nil {
			return err
		}
		*v = KeywordValue(s)
	case "bytes":
		var encoded string
		if err := json.Unmarshal(w.V, &encoded); err != nil {
			return err
		}
		raw, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return fmt.Errorf("fact: decoding bytes value: %w", err)
		}
		*v = BytesValue(raw)
	default:
		return fmt.Errorf("fact: unknown value tag %q", w.T)
	}
	return nil
}

// wireDatom is the on-the-wire array shape of a datom: [E, A, V, Tx, added].
type wireDatom struct {
	E     EntityID
	A     Attribute
	V     Value
	Tx    TxID
	Added bool
}

// MarshalJSON encodes a Datom as a 5-element JSON array, matching the
// journal line format in spec §6.
func (d Datom) MarshalJSON() ([]byte, error) {
	return json.Marshal([]interface{}{d.E, d.A, d.V, d.Tx, d.Added})
}

// UnmarshalJSON decodes a 5-element JSON array back into a Datom.
func (d *Datom) UnmarshalJSON(data []byte) error {
	var raw [5]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("fact: decoding datom array: %w", err)
	}
	var out Datom
	if err := json.Unmarshal(raw[0], &out.E); err != nil {
		return err
	}
	if err := json.Unmarshal(raw[1], &out.A); err != nil {
		return err
	}
	if err := json.Unmarshal(raw[2], &out.V); err != nil {
		return err
	}
	if err := json.Unmarshal(raw[3], &out.Tx); err != nil {
		return err
	}
	if err := json.Unmarshal(raw[4], &out.Added); err != nil {
		return err
	}
	*d = out
	return nil
}
