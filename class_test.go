package templar

import (
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/templar-dev/templar/decl"
	"github.com/templar-dev/templar/internal/testtypes"
)

const counterPath = "game.Counter"

const counterDeclaration = `package game;

public class Counter {
    public int count:Count;
    public String label:Label;
    private long hidden;
    public (String) int portText:Count;
    public static String staticName;
    public optional int missing;

    public Counter(int count);

    public int add:Add(int n);
    public String describe:Describe();
    public static int sumInts(int a, int b);
}
`

type counterTemplate struct {
	Class

	Count      Field[int]
	Label      Field[string]
	Hidden     Field[int64] `templar:"hidden"`
	PortText   Field[string]
	StaticName StaticField[string]
	Missing    Field[int] `templar:"missing,optional"`

	Add      Method[int]
	Describe Method[string]
	SumInts  StaticMethod[int]

	New Constructor[*testtypes.Counter]
}

func newCounterEngine(t *testing.T) *Engine {
	t.Helper()
	testtypes.StaticName = "initial"

	e := New()
	reg := e.Types()
	if err := reg.RegisterType(counterPath, reflect.TypeOf(testtypes.Counter{})); err != nil {
		t.Fatal(err)
	}
	if err := reg.RegisterStatic(counterPath, "staticName", &testtypes.StaticName); err != nil {
		t.Fatal(err)
	}
	if err := reg.RegisterFunc(counterPath, "sumInts", testtypes.SumInts); err != nil {
		t.Fatal(err)
	}
	if err := reg.RegisterConstructor(counterPath, testtypes.NewCounter); err != nil {
		t.Fatal(err)
	}
	return e
}

func bindCounter(t *testing.T) (*Engine, *counterTemplate) {
	t.Helper()
	e := newCounterEngine(t)
	tmpl := &counterTemplate{}
	if err := e.Bind(tmpl, counterDeclaration); err != nil {
		t.Fatalf("bind: %v", err)
	}
	return e, tmpl
}

func TestEngine_Bind(t *testing.T) {
	_, tmpl := bindCounter(t)

	if !tmpl.IsValid() {
		t.Fatalf("container should be valid, diagnostics: %v", tmpl.Diagnostics())
	}
	if tmpl.Path() != counterPath {
		t.Errorf("path = %q", tmpl.Path())
	}
	if tmpl.Type() != reflect.TypeOf(testtypes.Counter{}) {
		t.Errorf("type = %v", tmpl.Type())
	}
}

func TestField_GetSet(t *testing.T) {
	_, tmpl := bindCounter(t)
	c := &testtypes.Counter{Count: 12, Label: "c"}

	got, err := tmpl.Count.Get(c)
	if err != nil || got != 12 {
		t.Errorf("Get = %v, %v", got, err)
	}
	if err := tmpl.Count.Set(c, 99); err != nil {
		t.Fatal(err)
	}
	if c.Count != 99 {
		t.Errorf("Count = %d", c.Count)
	}
}

func TestField_Unexported(t *testing.T) {
	_, tmpl := bindCounter(t)
	c := &testtypes.Counter{}

	if err := tmpl.Hidden.Set(c, int64(77)); err != nil {
		t.Fatal(err)
	}
	if c.Hidden() != 77 {
		t.Errorf("hidden = %d", c.Hidden())
	}
}

func TestField_CastConversion(t *testing.T) {
	_, tmpl := bindCounter(t)
	c := &testtypes.Counter{Count: 12}

	// portText exposes the int Count field as a string.
	got, err := tmpl.PortText.Get(c)
	if err != nil || got != "12" {
		t.Errorf("Get = %v, %v", got, err)
	}
	if err := tmpl.PortText.Set(c, "34"); err != nil {
		t.Fatal(err)
	}
	if c.Count != 34 {
		t.Errorf("Count = %d", c.Count)
	}
	if err := tmpl.PortText.Set(c, "not a number"); err == nil {
		t.Error("unconvertible write should fail")
	}
}

func TestStaticField_GetSet(t *testing.T) {
	_, tmpl := bindCounter(t)

	got, err := tmpl.StaticName.Get()
	if err != nil || got != "initial" {
		t.Errorf("Get = %v, %v", got, err)
	}
	if err := tmpl.StaticName.Set("changed"); err != nil {
		t.Fatal(err)
	}
	if testtypes.StaticName != "changed" {
		t.Errorf("backing variable = %q", testtypes.StaticName)
	}
}

func TestField_OptionalAbsence(t *testing.T) {
	_, tmpl := bindCounter(t)

	if !tmpl.IsValid() {
		t.Fatal("optional absence should not invalidate the container")
	}
	if tmpl.Missing.IsAvailable() {
		t.Error("missing member should be unavailable")
	}
	c := &testtypes.Counter{}
	if _, err := tmpl.Missing.Get(c); err == nil {
		t.Error("access to an unavailable member should fail")
	}
	if got := tmpl.Missing.GetSafe(c); got != 0 {
		t.Errorf("GetSafe = %v, want zero value", got)
	}
}

func TestMethod_Invoke(t *testing.T) {
	_, tmpl := bindCounter(t)
	c := &testtypes.Counter{Count: 40}

	got, err := tmpl.Add.Invoke(c, 2)
	if err != nil || got != 42 {
		t.Errorf("Add(2) = %v, %v", got, err)
	}

	c.Label = "total"
	desc, err := tmpl.Describe.Invoke(c)
	if err != nil || desc != "total=42" {
		t.Errorf("Describe() = %v, %v", desc, err)
	}
}

func TestMethod_ArgCountMessage(t *testing.T) {
	_, tmpl := bindCounter(t)
	c := &testtypes.Counter{}

	_, err := tmpl.Add.Invoke(c, 1, 2)
	if err == nil {
		t.Fatal("expected arg count error")
	}
	if !strings.Contains(err.Error(), "invalid number of arguments: expected 1, actual 2") {
		t.Errorf("message = %q", err.Error())
	}
	if CodeOf(err) != CodeInvocation {
		t.Errorf("code = %q", CodeOf(err))
	}
}

func TestStaticMethod_Invoke(t *testing.T) {
	_, tmpl := bindCounter(t)

	got, err := tmpl.SumInts.Invoke(19, 23)
	if err != nil || got != 42 {
		t.Errorf("sumInts = %v, %v", got, err)
	}
}

func TestConstructor_New(t *testing.T) {
	_, tmpl := bindCounter(t)

	c, err := tmpl.New.New(7)
	if err != nil {
		t.Fatal(err)
	}
	if c.Count != 7 {
		t.Errorf("constructed Count = %d", c.Count)
	}
}

func TestBind_MissingRequiredElement(t *testing.T) {
	e := newCounterEngine(t)
	type badTemplate struct {
		Class
		Nope Field[int]
	}
	tmpl := &badTemplate{}
	err := e.Bind(tmpl, counterDeclaration)
	if err == nil {
		t.Fatal("expected binding error")
	}
	if CodeOf(err) != CodeUnresolved {
		t.Errorf("code = %q", CodeOf(err))
	}
	if tmpl.IsValid() {
		t.Error("container should be invalid")
	}
}

func TestBind_StaticElementKindMismatch(t *testing.T) {
	e := newCounterEngine(t)
	type kindTemplate struct {
		Class
		StaticName Field[string] // declared static, element is an instance view
	}
	tmpl := &kindTemplate{}
	if err := e.Bind(tmpl, counterDeclaration); err == nil {
		t.Error("static field wired through Field should fail")
	}
}

func TestBind_ConcurrentFirstUse(t *testing.T) {
	e := newCounterEngine(t)
	tmpl := &counterTemplate{}

	const callers = 8
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = e.Bind(tmpl, counterDeclaration)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("caller %d: %v", i, err)
		}
	}
	if !tmpl.IsValid() {
		t.Fatalf("diagnostics: %v", tmpl.Diagnostics())
	}
	c := &testtypes.Counter{Count: 40}
	if got, err := tmpl.Add.Invoke(c, 2); err != nil || got != 42 {
		t.Errorf("Add(2) = %v, %v", got, err)
	}
}

func TestBind_RejectsNonTemplate(t *testing.T) {
	e := newCounterEngine(t)
	if err := e.Bind(42, counterDeclaration); err == nil {
		t.Error("non-pointer should be rejected")
	}
	type plain struct{ X int }
	if err := e.Bind(&plain{}, counterDeclaration); err == nil {
		t.Error("struct without an embedded Class should be rejected")
	}
}

func TestBind_ParseError(t *testing.T) {
	e := newCounterEngine(t)
	err := e.Bind(&counterTemplate{}, "public class {")
	if err == nil {
		t.Fatal("expected parse error")
	}
	if CodeOf(err) != CodeParse {
		t.Errorf("code = %q", CodeOf(err))
	}
}

func TestFieldAccessor_Translate(t *testing.T) {
	e, tmpl := bindCounter(t)
	c := &testtypes.Counter{Count: 12}

	dup, ok := e.Conversions().FindDuplex(reflect.TypeOf(0), reflect.TypeOf(""))
	if !ok {
		t.Fatal("standard int <-> string missing")
	}
	translated := tmpl.Count.Accessor().Translate(dup)

	got, err := translated.Get(c)
	if err != nil || got != "12" {
		t.Errorf("translated Get = %v, %v", got, err)
	}
	if err := translated.Set(c, "56"); err != nil {
		t.Fatal(err)
	}
	if c.Count != 56 {
		t.Errorf("Count = %d", c.Count)
	}
}

func TestHandle_Access(t *testing.T) {
	_, tmpl := bindCounter(t)
	c := &testtypes.Counter{Count: 12, Label: "h"}

	h, err := tmpl.CreateHandle(c)
	if err != nil {
		t.Fatal(err)
	}
	if h.Raw() != c {
		t.Error("Raw should return the wrapped instance")
	}

	got, err := h.Get("count")
	if err != nil || got != 12 {
		t.Errorf("Get(count) = %v, %v", got, err)
	}
	if err := h.Set("count", 30); err != nil {
		t.Fatal(err)
	}
	res, err := h.Invoke("add", 12)
	if err != nil || res != 42 {
		t.Errorf("Invoke(add, 12) = %v, %v", res, err)
	}

	static, err := h.Get("staticName")
	if err != nil || static != "initial" {
		t.Errorf("Get(staticName) = %v, %v", static, err)
	}

	if _, err := h.Get("noSuchField"); err == nil {
		t.Error("undeclared field should fail")
	}
}

func TestHandle_Equality(t *testing.T) {
	_, tmpl := bindCounter(t)
	c1 := &testtypes.Counter{}
	c2 := &testtypes.Counter{}

	h1, _ := tmpl.CreateHandle(c1)
	h1again, _ := tmpl.CreateHandle(c1)
	h2, _ := tmpl.CreateHandle(c2)

	if !h1.Equals(h1again) {
		t.Error("handles of the same instance should be equal")
	}
	if h1.Equals(h2) {
		t.Error("handles of different instances should not be equal")
	}
}

func TestClass_TypeChecks(t *testing.T) {
	_, tmpl := bindCounter(t)

	if !tmpl.IsType(&testtypes.Counter{}) {
		t.Error("pointer to bound type should pass IsType")
	}
	if tmpl.IsType(testtypes.Counter{}) {
		t.Error("value instance should fail IsType")
	}
	if tmpl.IsType(nil) {
		t.Error("nil should fail IsType")
	}
	if !tmpl.IsAssignableFrom(reflect.TypeOf(&testtypes.Counter{})) {
		t.Error("*Counter should be assignable")
	}
	if tmpl.IsAssignableFrom(reflect.TypeOf("")) {
		t.Error("string should not be assignable")
	}

	if _, err := tmpl.CreateHandle("wrong"); err == nil {
		t.Error("CreateHandle should reject foreign instances")
	}
}

func TestClass_NewInstanceNull(t *testing.T) {
	_, tmpl := bindCounter(t)

	h, err := tmpl.NewInstanceNull()
	if err != nil {
		t.Fatal(err)
	}
	c, ok := h.Raw().(*testtypes.Counter)
	if !ok {
		t.Fatalf("raw = %T", h.Raw())
	}
	if c.Count != 0 {
		t.Error("null instance should be zero-valued")
	}
}

func TestClass_NewInstance(t *testing.T) {
	_, tmpl := bindCounter(t)

	h, err := tmpl.NewInstance(0, 5)
	if err != nil {
		t.Fatal(err)
	}
	if h.Raw().(*testtypes.Counter).Count != 5 {
		t.Errorf("constructed = %+v", h.Raw())
	}
}

func TestBodyCompiler_GeneratedMethod(t *testing.T) {
	e := newCounterEngine(t)
	e.WithBodyCompiler(BodyCompilerFunc(func(d *decl.MethodDeclaration, _ reflect.Type) (Invoker, error) {
		// A stand-in compiler good enough for two-int bodies.
		return invokerFunc(func(_ any, args ...any) (any, error) {
			return args[0].(int) + args[1].(int), nil
		}), nil
	}))

	type genTemplate struct {
		Class
		TestFunc StaticMethod[int]
	}
	tmpl := &genTemplate{}
	err := e.Bind(tmpl, `package game;

public class Counter {
    public static int testFunc(int a, int b) {
        return a + b;
    }
}
`)
	if err != nil {
		t.Fatal(err)
	}
	got, err := tmpl.TestFunc.Invoke(12, 45)
	if err != nil || got != 57 {
		t.Errorf("testFunc(12, 45) = %v, %v", got, err)
	}
}

func TestBodyCompiler_InstanceGeneratedMethod(t *testing.T) {
	e := newCounterEngine(t)
	e.WithBodyCompiler(BodyCompilerFunc(func(_ *decl.MethodDeclaration, _ reflect.Type) (Invoker, error) {
		return invokerFunc(func(_ any, args ...any) (any, error) {
			return args[0].(int) * 2, nil
		}), nil
	}))

	const declaration = `package game;

public class Counter {
    public int scale(int n) {
        return n * 2;
    }
}
`

	// A generated body does not make an instance method static.
	type viaStatic struct {
		Class
		Scale StaticMethod[int]
	}
	if err := e.Bind(&viaStatic{}, declaration); err == nil {
		t.Error("instance method wired through StaticMethod should fail")
	}

	type viaMethod struct {
		Class
		Scale Method[int]
	}
	tmpl := &viaMethod{}
	if err := e.Bind(tmpl, declaration); err != nil {
		t.Fatal(err)
	}
	got, err := tmpl.Scale.Invoke(&testtypes.Counter{}, 21)
	if err != nil || got != 42 {
		t.Errorf("scale(21) = %v, %v", got, err)
	}
}

func TestBodyCompiler_AbsentKeepsMethodUnavailable(t *testing.T) {
	e := newCounterEngine(t)
	type genTemplate struct {
		Class
		TestFunc StaticMethod[int] `templar:"testFunc,optional"`
	}
	tmpl := &genTemplate{}
	err := e.Bind(tmpl, `package game;

public class Counter {
    public static int testFunc(int a, int b) {
        return a + b;
    }
}
`)
	if err != nil {
		t.Fatal(err)
	}
	if tmpl.TestFunc.IsAvailable() {
		t.Error("generated method without a compiler should be unavailable")
	}
	if _, err := tmpl.TestFunc.Invoke(1, 2); err == nil {
		t.Error("invoking it should fail")
	}
}

// invokerFunc adapts a function to the Invoker interface for tests.
type invokerFunc func(instance any, args ...any) (any, error)

func (f invokerFunc) Invoke(instance any, args ...any) (any, error) {
	return f(instance, args...)
}
