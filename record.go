package shield

import "strconv"

// ValueKind discriminates the payload of a Value.
type ValueKind uint8

const (
	// KindString is a text value.
	KindString ValueKind = iota

	// KindNumber is a numeric value (stored as float64).
	KindNumber

	// KindRecord is a nested record.
	KindRecord
)

// Value is a single field value: a string, a number, or a nested Record.
type Value struct {
	kind ValueKind
	str  string
	num  float64
	rec  *Record
}

// StringValue returns a string Value.
func StringValue(s string) Value {
	return Value{kind: KindString, str: s}
}

// NumberValue returns a numeric Value.
func NumberValue(n float64) Value {
	return Value{kind: KindNumber, num: n}
}

// RecordValue returns a nested-record Value.
func RecordValue(r *Record) Value {
	return Value{kind: KindRecord, rec: r}
}

// Kind returns the value's kind.
func (v Value) Kind() ValueKind { return v.kind }

// Text returns the string payload. Zero value for non-string kinds.
func (v Value) Text() string { return v.str }

// Number returns the numeric payload. Zero value for non-number kinds.
func (v Value) Number() float64 { return v.num }

// Record returns the nested record, or nil for scalar kinds.
func (v Value) Record() *Record { return v.rec }

// canonical returns the string form used for pattern matching and as
// encryption plaintext. Numbers use the shortest decimal representation
// that round-trips through strconv.ParseFloat.
func (v Value) canonical() string {
	switch v.kind {
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	default:
		return v.str
	}
}

// Equal reports whether two values have the same kind and payload.
// Nested records are compared deeply.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.str == o.str
	case KindNumber:
		return v.num == o.num
	case KindRecord:
		return v.rec.Equal(o.rec)
	}
	return false
}

// Record is an ordered mapping from field name to Value. Field names are
// unique within a record; Set on an existing name replaces the value without
// changing its position. The zero value is not usable; use NewRecord.
type Record struct {
	names  []string
	values map[string]Value
}

// NewRecord returns an empty record.
func NewRecord() *Record {
	return &Record{values: make(map[string]Value)}
}

// Set inserts or replaces a field. New fields append to the order.
// Returns the record for chaining.
func (r *Record) Set(name string, v Value) *Record {
	if _, ok := r.values[name]; !ok {
		r.names = append(r.names, name)
	}
	r.values[name] = v
	return r
}

// SetString sets a string field.
func (r *Record) SetString(name, s string) *Record {
	return r.Set(name, StringValue(s))
}

// SetNumber sets a numeric field.
func (r *Record) SetNumber(name string, n float64) *Record {
	return r.Set(name, NumberValue(n))
}

// SetRecord sets a nested record field.
func (r *Record) SetRecord(name string, nested *Record) *Record {
	return r.Set(name, RecordValue(nested))
}

// Get returns the value for name and whether it exists.
func (r *Record) Get(name string) (Value, bool) {
	v, ok := r.values[name]
	return v, ok
}

// Len returns the number of fields.
func (r *Record) Len() int { return len(r.names) }

// Names returns the field names in insertion order.
func (r *Record) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Walk visits every leaf field depth-first in order, passing its dotted
// path (e.g. "payment.card"). It stops on the first error.
func (r *Record) Walk(fn func(path string, v Value) error) error {
	return r.walk("", fn)
}

func (r *Record) walk(prefix string, fn func(path string, v Value) error) error {
	for _, name := range r.names {
		v := r.values[name]
		path := joinPath(prefix, name)
		if v.kind == KindRecord {
			if err := v.rec.walk(path, fn); err != nil {
				return err
			}
			continue
		}
		if err := fn(path, v); err != nil {
			return err
		}
	}
	return nil
}

// Clone returns a deep copy. Mutations of the clone do not affect the
// original.
func (r *Record) Clone() *Record {
	out := NewRecord()
	for _, name := range r.names {
		v := r.values[name]
		if v.kind == KindRecord {
			v = RecordValue(v.rec.Clone())
		}
		out.Set(name, v)
	}
	return out
}

// Equal reports whether two records have the same fields, in the same
// order, with equal values.
func (r *Record) Equal(o *Record) bool {
	if r == nil || o == nil {
		return r == o
	}
	if len(r.names) != len(o.names) {
		return false
	}
	for i, name := range r.names {
		if o.names[i] != name {
			return false
		}
		if !r.values[name].Equal(o.values[name]) {
			return false
		}
	}
	return true
}

func joinPath(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}
