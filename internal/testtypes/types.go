// Package testtypes provides runtime types used for testing template
// binding across the other packages.
package testtypes

import "fmt"

// Statics stand in for the package-level state templates bind static
// fields to.
var (
	StaticName  = "initial"
	StaticCount = 0
)

// Counter is a simple bindable type with exported, unexported and
// embedded members.
type Counter struct {
	Base

	Count  int
	Label  string
	hidden int64
}

// Base is embedded by Counter so binding exercises the embedded chain.
type Base struct {
	Origin string
}

// NewCounter is registered as a constructor in binding tests.
func NewCounter(count int) *Counter {
	return &Counter{Count: count}
}

// Add increases the count and returns the new value.
func (c *Counter) Add(n int) int {
	c.Count += n
	return c.Count
}

// Describe formats the counter state.
func (c *Counter) Describe() string {
	return fmt.Sprintf("%s=%d", c.Label, c.Count)
}

// Fail always returns an error, for invocation failure tests.
func (c *Counter) Fail() error {
	return fmt.Errorf("counter %q failed", c.Label)
}

// Hidden exposes the unexported field for test assertions only.
func (c *Counter) Hidden() int64 { return c.hidden }

// SetHidden writes the unexported field for test setup.
func (c *Counter) SetHidden(v int64) { c.hidden = v }

// SumInts is registered as a static method in binding tests.
func SumInts(a, b int) int {
	return a + b
}

// ParsePort converts a string to an int, used as a converter in
// conversion tests.
func ParsePort(s string) (int, error) {
	var v int
	_, err := fmt.Sscanf(s, "%d", &v)
	return v, err
}
