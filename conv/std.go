package conv

import (
	"fmt"
	"net/url"
	"reflect"
	"strconv"

	"github.com/gorilla/schema"
)

// RegisterStandard installs the built-in converters: the string duplexes
// for the common scalar types and the numeric widenings used to bridge
// declared and actual integer widths.
func RegisterStandard(r *Registry) error {
	duplexes := []DuplexConverter{
		NewDuplex(
			func(v int) (string, bool) { return strconv.Itoa(v), true },
			func(s string) (int, bool) { v, err := strconv.Atoi(s); return v, err == nil },
		),
		NewDuplex(
			func(v int64) (string, bool) { return strconv.FormatInt(v, 10), true },
			func(s string) (int64, bool) { v, err := strconv.ParseInt(s, 10, 64); return v, err == nil },
		),
		NewDuplex(
			func(v float64) (string, bool) { return strconv.FormatFloat(v, 'g', -1, 64), true },
			func(s string) (float64, bool) { v, err := strconv.ParseFloat(s, 64); return v, err == nil },
		),
		NewDuplex(
			func(v bool) (string, bool) { return strconv.FormatBool(v), true },
			func(s string) (bool, bool) { v, err := strconv.ParseBool(s); return v, err == nil },
		),
		NewDuplex(
			func(v int) (int64, bool) { return int64(v), true },
			func(v int64) (int, bool) { return int(v), int64(int(v)) == v },
		),
		NewDuplex(
			func(v int32) (int64, bool) { return int64(v), true },
			func(v int64) (int32, bool) { return int32(v), int64(int32(v)) == v },
		),
	}
	for _, d := range duplexes {
		if err := r.RegisterDuplex(d); err != nil {
			return err
		}
	}
	return nil
}

// FormDuplex builds a duplex converter between url.Values and *T, backed
// by gorilla/schema. The backward direction encodes the struct back into
// form values; both directions are lossy for fields schema can not map.
func FormDuplex[T any]() (DuplexConverter, error) {
	var probe T
	structType := reflect.TypeOf(probe)
	if structType == nil || structType.Kind() != reflect.Struct {
		return nil, fmt.Errorf("conv: form converter target %T is not a struct", probe)
	}

	decoder := schema.NewDecoder()
	decoder.IgnoreUnknownKeys(true)
	encoder := schema.NewEncoder()

	return NewDuplex(
		func(values url.Values) (*T, bool) {
			out := new(T)
			if err := decoder.Decode(out, values); err != nil {
				return nil, false
			}
			return out, true
		},
		func(in *T) (url.Values, bool) {
			if in == nil {
				return nil, false
			}
			values := url.Values{}
			if err := encoder.Encode(in, values); err != nil {
				return nil, false
			}
			return values, true
		},
	), nil
}
