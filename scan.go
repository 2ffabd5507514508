package shield

import (
	"fmt"
	"reflect"

	"github.com/zoobzio/sentinel"
)

// FromStruct builds a Record from a struct's exported fields using sentinel
// metadata. Field order follows declaration order. Strings map to string
// values, numeric kinds to number values, and nested structs to nested
// records. Unsupported field kinds (slices, maps, interfaces, pointers)
// are rejected: a record field must be a scalar or a nested record.
func FromStruct[T any](v T) (*Record, error) {
	spec := sentinel.Scan[T]()
	rv := reflect.ValueOf(v)
	return recordFromFields(spec.Fields, rv)
}

func recordFromFields(fields []sentinel.FieldMetadata, rv reflect.Value) (*Record, error) {
	rec := NewRecord()
	for _, field := range fields {
		fv := rv.FieldByIndex(field.Index)
		val, err := valueFromReflect(field.Name, fv)
		if err != nil {
			return nil, err
		}
		rec.Set(field.Name, val)
	}
	return rec, nil
}

func valueFromReflect(name string, fv reflect.Value) (Value, error) {
	switch fv.Kind() {
	case reflect.String:
		return StringValue(fv.String()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return NumberValue(float64(fv.Int())), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return NumberValue(float64(fv.Uint())), nil
	case reflect.Float32, reflect.Float64:
		return NumberValue(fv.Float()), nil
	case reflect.Struct:
		nested, err := recordFromStruct(fv)
		if err != nil {
			return Value{}, err
		}
		return RecordValue(nested), nil
	default:
		return Value{}, fmt.Errorf("field %s: unsupported kind %s", name, fv.Kind())
	}
}

// recordFromStruct handles nested structs, which have no sentinel scan of
// their own at this point; plain reflection suffices.
func recordFromStruct(rv reflect.Value) (*Record, error) {
	rec := NewRecord()
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		if !sf.IsExported() {
			continue
		}
		val, err := valueFromReflect(sf.Name, rv.Field(i))
		if err != nil {
			return nil, err
		}
		rec.Set(sf.Name, val)
	}
	return rec, nil
}

// ToStruct populates a struct of type T from a Record by field name.
// Fields absent from the record keep their zero value; record fields with
// no matching struct field are ignored. Kind mismatches are rejected.
func ToStruct[T any](rec *Record) (T, error) {
	var out T
	spec := sentinel.Scan[T]()
	rv := reflect.ValueOf(&out).Elem()

	if err := structFromRecord(spec.Fields, rv, rec); err != nil {
		return out, err
	}
	return out, nil
}

func structFromRecord(fields []sentinel.FieldMetadata, rv reflect.Value, rec *Record) error {
	for _, field := range fields {
		val, ok := rec.Get(field.Name)
		if !ok {
			continue
		}
		fv := rv.FieldByIndex(field.Index)
		if err := setReflect(field.Name, fv, val); err != nil {
			return err
		}
	}
	return nil
}

func setReflect(name string, fv reflect.Value, val Value) error {
	switch fv.Kind() {
	case reflect.String:
		if val.Kind() != KindString {
			return fmt.Errorf("field %s: record value is not a string", name)
		}
		fv.SetString(val.Text())
		return nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if val.Kind() != KindNumber {
			return fmt.Errorf("field %s: record value is not a number", name)
		}
		fv.SetInt(int64(val.Number()))
		return nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if val.Kind() != KindNumber {
			return fmt.Errorf("field %s: record value is not a number", name)
		}
		fv.SetUint(uint64(val.Number()))
		return nil
	case reflect.Float32, reflect.Float64:
		if val.Kind() != KindNumber {
			return fmt.Errorf("field %s: record value is not a number", name)
		}
		fv.SetFloat(val.Number())
		return nil
	case reflect.Struct:
		if val.Kind() != KindRecord {
			return fmt.Errorf("field %s: record value is not a nested record", name)
		}
		return structFromReflect(fv, val.Record())
	default:
		return fmt.Errorf("field %s: unsupported kind %s", name, fv.Kind())
	}
}

func structFromReflect(rv reflect.Value, rec *Record) error {
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		if !sf.IsExported() {
			continue
		}
		val, ok := rec.Get(sf.Name)
		if !ok {
			continue
		}
		if err := setReflect(sf.Name, rv.Field(i), val); err != nil {
			return err
		}
	}
	return nil
}
