package shield

import "fmt"

// Wire structures are the codec-facing shape of a ProtectedRecord. Fields
// are a list, not a map, so every Codec preserves order. Short keys keep
// text encodings compact.

type wireRecord struct {
	Fields []wireField `json:"f" msgpack:"f"`
}

type wireField struct {
	Name string         `json:"n" msgpack:"n"`
	Kind uint8          `json:"k" msgpack:"k"`
	Str  string         `json:"s,omitempty" msgpack:"s,omitempty"`
	Num  float64        `json:"x,omitempty" msgpack:"x,omitempty"`
	Rec  *wireRecord    `json:"r,omitempty" msgpack:"r,omitempty"`
	Enc  *wireProtected `json:"e,omitempty" msgpack:"e,omitempty"`
}

type wireProtected struct {
	Class      string `json:"c" msgpack:"c"`
	Algo       string `json:"a" msgpack:"a"`
	KeyRef     string `json:"kr" msgpack:"kr"`
	KeyVersion int    `json:"kv" msgpack:"kv"`
	Kind       uint8  `json:"k" msgpack:"k"`
	Ciphertext []byte `json:"ct" msgpack:"ct"`
}

// encodeWire converts a ProtectedRecord into its wire form.
func encodeWire(pr *ProtectedRecord) *wireRecord {
	w := &wireRecord{Fields: make([]wireField, 0, len(pr.entries))}
	for i := range pr.entries {
		e := &pr.entries[i]
		wf := wireField{Name: e.name}
		switch {
		case e.nested != nil:
			wf.Kind = uint8(KindRecord)
			wf.Rec = encodeWire(e.nested)
		case e.field != nil:
			wf.Kind = uint8(e.field.Kind)
			wf.Enc = &wireProtected{
				Class:      string(e.field.Class),
				Algo:       string(e.field.Algorithm),
				KeyRef:     e.field.KeyRef,
				KeyVersion: e.field.KeyVersion,
				Kind:       uint8(e.field.Kind),
				Ciphertext: e.field.Ciphertext,
			}
		default:
			wf.Kind = uint8(e.value.Kind())
			switch e.value.Kind() {
			case KindNumber:
				wf.Num = e.value.Number()
			default:
				wf.Str = e.value.Text()
			}
		}
		w.Fields = append(w.Fields, wf)
	}
	return w
}

// decodeWire validates and converts a wire record back into a
// ProtectedRecord. Structural violations (duplicate names, empty names,
// out-of-range kinds, conflicting shapes) reject the whole message.
func decodeWire(w *wireRecord) (*ProtectedRecord, error) {
	pr := &ProtectedRecord{entries: make([]protectedEntry, 0, len(w.Fields))}
	seen := make(map[string]bool, len(w.Fields))

	for i := range w.Fields {
		wf := &w.Fields[i]
		if wf.Name == "" {
			return nil, fmt.Errorf("field %d: empty name", i)
		}
		if seen[wf.Name] {
			return nil, fmt.Errorf("duplicate field %q", wf.Name)
		}
		seen[wf.Name] = true

		entry := protectedEntry{name: wf.Name}
		switch {
		case wf.Rec != nil && wf.Enc != nil:
			return nil, fmt.Errorf("field %q: both nested and protected", wf.Name)

		case wf.Rec != nil:
			nested, err := decodeWire(wf.Rec)
			if err != nil {
				return nil, err
			}
			entry.nested = nested

		case wf.Enc != nil:
			if len(wf.Enc.Ciphertext) == 0 {
				return nil, fmt.Errorf("field %q: empty ciphertext", wf.Name)
			}
			kind := ValueKind(wf.Enc.Kind)
			if kind != KindString && kind != KindNumber {
				return nil, fmt.Errorf("field %q: bad protected kind %d", wf.Name, wf.Enc.Kind)
			}
			entry.field = &ProtectedField{
				Class:      SensitivityClass(wf.Enc.Class),
				Algorithm:  EncryptAlgo(wf.Enc.Algo),
				KeyRef:     wf.Enc.KeyRef,
				KeyVersion: wf.Enc.KeyVersion,
				Kind:       kind,
				Ciphertext: wf.Enc.Ciphertext,
			}

		default:
			switch ValueKind(wf.Kind) {
			case KindString:
				entry.value = StringValue(wf.Str)
			case KindNumber:
				entry.value = NumberValue(wf.Num)
			default:
				return nil, fmt.Errorf("field %q: bad kind %d", wf.Name, wf.Kind)
			}
		}
		pr.entries = append(pr.entries, entry)
	}

	return pr, nil
}
