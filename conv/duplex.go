package conv

import (
	"fmt"
	"reflect"
	"sync"
)

// DuplexConverter converts in both directions between a type pair.
// ConvertBack is the guaranteed inverse direction of Convert, modulo lossy
// conversions. Every duplex converter owns a reverse view sharing its
// logic, so Reverse().Reverse() returns the converter itself.
type DuplexConverter interface {
	Converter
	// ConvertBack transforms a value of the output type back into the
	// input type. ok is false when the value can not be converted.
	ConvertBack(value any) (result any, ok bool)
	// Reverse returns the view of this converter with the directions
	// swapped. The view is constructed lazily and shared.
	Reverse() DuplexConverter
}

// NewDuplex builds a DuplexConverter from a typed function pair.
func NewDuplex[A, B any](forward func(A) (B, bool), backward func(B) (A, bool)) DuplexConverter {
	return &duplex{
		forward:  New(forward),
		backward: New(backward),
	}
}

// Pair combines a converter with its reverse into a DuplexConverter. The
// two directions must line up: the output type of each must be the input
// type of the other. A mismatch is a configuration error, reported
// immediately rather than surfacing as runtime conversion failures.
func Pair(forward, backward Converter) (DuplexConverter, error) {
	if forward == nil || backward == nil {
		return nil, fmt.Errorf("conv: duplex pair requires both directions")
	}
	if !forward.Output().AssignableTo(backward.Input()) {
		return nil, fmt.Errorf("conv: output of %s -> %s can not feed reverse input %s",
			forward.Input(), forward.Output(), backward.Input())
	}
	if !backward.Output().AssignableTo(forward.Input()) {
		return nil, fmt.Errorf("conv: reverse output %s can not feed input of %s -> %s",
			backward.Output(), forward.Input(), forward.Output())
	}
	if d, ok := forward.(DuplexConverter); ok {
		if rev, ok := d.Reverse().(Converter); ok && rev == backward {
			return d, nil
		}
	}
	return &duplex{forward: forward, backward: backward}, nil
}

type duplex struct {
	forward  Converter
	backward Converter

	once sync.Once
	rev  *reverseView
}

func (d *duplex) Input() reflect.Type  { return d.forward.Input() }
func (d *duplex) Output() reflect.Type { return d.forward.Output() }

func (d *duplex) Convert(value any) (any, bool)     { return d.forward.Convert(value) }
func (d *duplex) ConvertBack(value any) (any, bool) { return d.backward.Convert(value) }

func (d *duplex) Reverse() DuplexConverter {
	d.once.Do(func() { d.rev = &reverseView{base: d} })
	return d.rev
}

func (d *duplex) String() string {
	return fmt.Sprintf("DuplexConverter[%s <-> %s]", d.Input(), d.Output())
}

// reverseView swaps the directions of its base converter. It holds no
// logic of its own, which keeps Reverse involutive by identity.
type reverseView struct {
	base *duplex
}

func (r *reverseView) Input() reflect.Type  { return r.base.Output() }
func (r *reverseView) Output() reflect.Type { return r.base.Input() }

func (r *reverseView) Convert(value any) (any, bool)     { return r.base.ConvertBack(value) }
func (r *reverseView) ConvertBack(value any) (any, bool) { return r.base.Convert(value) }

func (r *reverseView) Reverse() DuplexConverter { return r.base }
