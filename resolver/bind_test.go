package resolver

import (
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/templar-dev/templar/decl"
	"github.com/templar-dev/templar/internal/testtypes"
)

const counterPath = "game.Counter"

const counterTemplate = `package game;

public class Counter {
    public int count:Count;
    public String label:Label;
    private long hidden;
    public String origin:Origin;
    public static String staticName;

    public Counter(int count);

    public int add:Add(int n);
    public String describe:Describe();
    public static int sumInts(int a, int b);
}
`

func newCounterRegistry(t *testing.T) *Registry {
	t.Helper()
	r := New()
	if err := r.RegisterType(counterPath, reflect.TypeOf(testtypes.Counter{})); err != nil {
		t.Fatal(err)
	}
	if err := r.RegisterStatic(counterPath, "staticName", &testtypes.StaticName); err != nil {
		t.Fatal(err)
	}
	if err := r.RegisterFunc(counterPath, "sumInts", testtypes.SumInts); err != nil {
		t.Fatal(err)
	}
	if err := r.RegisterConstructor(counterPath, testtypes.NewCounter); err != nil {
		t.Fatal(err)
	}
	return r
}

func parseCounter(t *testing.T) *decl.ClassDeclaration {
	t.Helper()
	src := decl.Parse(counterTemplate)
	if !src.IsValid() {
		t.Fatalf("parse errors: %v", src.AllErrors())
	}
	return src.Classes[0]
}

func TestBindClass_Full(t *testing.T) {
	r := newCounterRegistry(t)
	cls := parseCounter(t)

	errs := r.BindClass(cls)
	if len(errs) != 0 {
		t.Fatalf("bind errors: %v", errs)
	}
	if !cls.Available() {
		t.Fatal("class should be available")
	}
	if cls.Type != reflect.TypeOf(testtypes.Counter{}) {
		t.Errorf("bound type = %v", cls.Type)
	}
}

func TestBindClass_Concurrent(t *testing.T) {
	r := newCounterRegistry(t)
	cls := parseCounter(t)

	const binders = 8
	results := make([][]error, binders)
	var wg sync.WaitGroup
	for i := 0; i < binders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = r.BindClass(cls)
		}(i)
	}
	wg.Wait()

	for i, errs := range results {
		if len(errs) != 0 {
			t.Errorf("binder %d: %v", i, errs)
		}
	}
	if !cls.Available() {
		t.Fatal("class should be available to every binder")
	}
	if f := cls.FieldByName("count"); f == nil || !f.Available() {
		t.Error("count should be bound")
	}
}

func TestBindClass_RepeatReportsFailure(t *testing.T) {
	r := newCounterRegistry(t)
	src := decl.Parse(`package game;

public class Counter {
    public int doesNotExist;
}
`)
	if !src.IsValid() {
		t.Fatalf("parse errors: %v", src.AllErrors())
	}
	cls := src.Classes[0]

	first := r.BindClass(cls)
	second := r.BindClass(cls)
	if len(first) != 1 {
		t.Fatalf("first bind errors = %v", first)
	}
	if len(second) != 1 {
		t.Fatalf("repeat bind should report the same failure, got %v", second)
	}
	if !errors.Is(second[0], ErrUnresolved) {
		t.Errorf("repeat bind error = %v", second[0])
	}
}

func TestBindClass_AliasedField(t *testing.T) {
	r := newCounterRegistry(t)
	cls := parseCounter(t)
	r.BindClass(cls)

	count := cls.FieldByName("count")
	if !count.Available() {
		t.Fatal("count did not bind")
	}
	if count.Binding.Field.Name != "Count" {
		t.Errorf("bound to %q, want Count", count.Binding.Field.Name)
	}
	if len(count.Binding.Index) != 1 {
		t.Errorf("index path = %v", count.Binding.Index)
	}
}

func TestBindClass_UnexportedField(t *testing.T) {
	r := newCounterRegistry(t)
	cls := parseCounter(t)
	r.BindClass(cls)

	hidden := cls.FieldByName("hidden")
	if !hidden.Available() {
		t.Fatal("hidden did not bind")
	}
	if hidden.Binding.Field.Type != reflect.TypeOf(int64(0)) {
		t.Errorf("hidden type = %v", hidden.Binding.Field.Type)
	}
}

func TestBindClass_EmbeddedField(t *testing.T) {
	r := newCounterRegistry(t)
	cls := parseCounter(t)
	r.BindClass(cls)

	origin := cls.FieldByName("origin")
	if !origin.Available() {
		t.Fatal("origin did not bind")
	}
	// Origin lives on the embedded Base, one hop down.
	if len(origin.Binding.Index) != 2 {
		t.Errorf("index path = %v, want length 2", origin.Binding.Index)
	}
}

func TestBindClass_StaticField(t *testing.T) {
	r := newCounterRegistry(t)
	cls := parseCounter(t)
	r.BindClass(cls)

	static := cls.FieldByName("staticName")
	if !static.Available() {
		t.Fatal("staticName did not bind")
	}
	if !static.Binding.Static.IsValid() || !static.Binding.Static.CanSet() {
		t.Error("static binding should be an addressable value")
	}
}

func TestBindClass_Methods(t *testing.T) {
	r := newCounterRegistry(t)
	cls := parseCounter(t)
	r.BindClass(cls)

	add := cls.MethodByName("add")
	if !add.Available() {
		t.Fatal("add did not bind")
	}
	if add.Binding.Method.Name != "Add" {
		t.Errorf("bound to %q", add.Binding.Method.Name)
	}

	sum := cls.MethodByName("sumInts")
	if !sum.Available() {
		t.Fatal("sumInts did not bind")
	}
	if sum.Binding.Method.Name != "" {
		t.Error("static binding should not carry a runtime method")
	}
}

func TestBindClass_Constructor(t *testing.T) {
	r := newCounterRegistry(t)
	cls := parseCounter(t)
	r.BindClass(cls)

	ctor := cls.Constructors[0]
	if !ctor.Available() {
		t.Fatal("constructor did not bind")
	}
	if !ctor.Binding.Func.IsValid() {
		t.Error("registered factory should back the binding")
	}
}

func TestBindClass_DefaultConstructor(t *testing.T) {
	r := New()
	r.RegisterType(counterPath, reflect.TypeOf(testtypes.Counter{}))

	src := decl.Parse(`package game;

public class Counter {
    public Counter();
}
`)
	cls := src.Classes[0]
	if errs := r.BindClass(cls); len(errs) != 0 {
		t.Fatalf("bind errors: %v", errs)
	}
	ctor := cls.Constructors[0]
	if !ctor.Available() {
		t.Fatal("default constructor did not bind")
	}
	if ctor.Binding.Func.IsValid() {
		t.Error("zero-arg default path should have no factory func")
	}
}

func TestBindClass_TypeMismatch(t *testing.T) {
	r := newCounterRegistry(t)
	src := decl.Parse(`package game;

public class Counter {
    public String count:Count;
}
`)
	cls := src.Classes[0]
	errs := r.BindClass(cls)
	if len(errs) != 1 {
		t.Fatalf("expected 1 error, got %v", errs)
	}
	if !errors.Is(errs[0], ErrTypeMismatch) {
		t.Errorf("error = %v, want ErrTypeMismatch", errs[0])
	}
	if cls.FieldByName("count").Available() {
		t.Error("mismatched field should not be available")
	}
}

func TestBindClass_MissingMember(t *testing.T) {
	r := newCounterRegistry(t)
	src := decl.Parse(`package game;

public class Counter {
    public int doesNotExist;
    public optional int alsoMissing;
}
`)
	cls := src.Classes[0]
	errs := r.BindClass(cls)
	if len(errs) != 1 {
		t.Fatalf("expected 1 error for the non-optional member, got %v", errs)
	}
	if !errors.Is(errs[0], ErrUnresolved) {
		t.Errorf("error = %v, want ErrUnresolved", errs[0])
	}
	if !strings.Contains(errs[0].Error(), "doesNotExist") {
		t.Errorf("error should name the member: %v", errs[0])
	}

	missing := cls.FieldByName("alsoMissing")
	if missing.Available() {
		t.Error("optional missing member should be unavailable")
	}
	if !missing.Resolved {
		t.Error("optional missing member should still be marked resolved")
	}
}

func TestBindClass_AbsentOptionalClass(t *testing.T) {
	r := New()
	src := decl.Parse(`package game;

optional class Gone {
    public int value;
}
`)
	cls := src.Classes[0]
	errs := r.BindClass(cls)
	if len(errs) != 0 {
		t.Fatalf("optional absent class should not error: %v", errs)
	}
	if cls.Available() {
		t.Error("absent class should be unavailable")
	}
	if cls.FieldByName("value").Available() {
		t.Error("members of an absent class should be unavailable")
	}
}

func TestBindClass_AbsentRequiredClass(t *testing.T) {
	r := New()
	src := decl.Parse(`package game;

public class Gone {
    public int value;
}
`)
	cls := src.Classes[0]
	errs := r.BindClass(cls)
	if len(errs) != 1 || !errors.Is(errs[0], ErrUnresolved) {
		t.Fatalf("expected unresolved class error, got %v", errs)
	}
}

func TestRegistry_FieldNameResolver(t *testing.T) {
	r := newCounterRegistry(t)
	r.AddFieldNameResolver(FieldNameResolverFunc(func(_ reflect.Type, name string) string {
		if name == "renamedCount" {
			return "Count"
		}
		return name
	}))

	src := decl.Parse(`package game;

public class Counter {
    public int renamedCount;
}
`)
	cls := src.Classes[0]
	if errs := r.BindClass(cls); len(errs) != 0 {
		t.Fatalf("bind errors: %v", errs)
	}
	if cls.FieldByName("renamedCount").Binding.Field.Name != "Count" {
		t.Error("field name hook should rewrite the lookup name")
	}
}

func TestRegistry_MethodNameResolver(t *testing.T) {
	r := newCounterRegistry(t)
	var sawParams []reflect.Type
	r.AddMethodNameResolver(MethodNameResolverFunc(func(_ reflect.Type, name string, params []reflect.Type) string {
		sawParams = params
		if name == "renamedAdd" {
			return "Add"
		}
		return name
	}))

	src := decl.Parse(`package game;

public class Counter {
    public int renamedAdd(int n);
}
`)
	cls := src.Classes[0]
	if errs := r.BindClass(cls); len(errs) != 0 {
		t.Fatalf("bind errors: %v", errs)
	}
	if len(sawParams) != 1 || sawParams[0] != reflect.TypeOf(0) {
		t.Errorf("hook params = %v", sawParams)
	}
}

func TestRegistry_ClassDeclarationResolver(t *testing.T) {
	r := newCounterRegistry(t)
	supplied := parseCounter(t)
	r.AddClassDeclarationResolver(ClassDeclarationResolverFunc(func(path string, _ reflect.Type) *decl.ClassDeclaration {
		if path == counterPath {
			return supplied
		}
		return nil
	}))

	got := r.ResolveClassDeclaration(counterPath, nil)
	if got != supplied {
		t.Error("declaration source should answer for its path")
	}
	if r.ResolveClassDeclaration("game.Other", nil) != nil {
		t.Error("unknown path should resolve to nil")
	}
}

func TestResolveType_Builtins(t *testing.T) {
	r := New()
	tests := []struct {
		name string
		want reflect.Type
	}{
		{"int", reflect.TypeOf(0)},
		{"String", reflect.TypeOf("")},
		{"long", reflect.TypeOf(int64(0))},
		{"double", reflect.TypeOf(float64(0))},
		{"Object", reflect.TypeOf((*any)(nil)).Elem()},
	}
	for _, tt := range tests {
		td := decl.TypeDeclaration{Name: tt.name}
		if err := r.ResolveType(&td, ""); err != nil {
			t.Errorf("%s: %v", tt.name, err)
			continue
		}
		if td.Type != tt.want {
			t.Errorf("%s resolved to %v, want %v", tt.name, td.Type, tt.want)
		}
	}
}

func TestResolveType_ArrayAndPointer(t *testing.T) {
	r := New()

	arr := decl.TypeDeclaration{Name: "int", ArrayRank: 2}
	if err := r.ResolveType(&arr, ""); err != nil {
		t.Fatal(err)
	}
	if arr.Type != reflect.TypeOf([][]int(nil)) {
		t.Errorf("int[][] resolved to %v", arr.Type)
	}

	r.RegisterType(counterPath, reflect.TypeOf(testtypes.Counter{}))
	ptr := decl.TypeDeclaration{Name: "*game.Counter"}
	if err := r.ResolveType(&ptr, ""); err != nil {
		t.Fatal(err)
	}
	if ptr.Type != reflect.TypeOf((*testtypes.Counter)(nil)) {
		t.Errorf("*game.Counter resolved to %v", ptr.Type)
	}
}

func TestResolveType_PackageQualification(t *testing.T) {
	r := New()
	r.RegisterType(counterPath, reflect.TypeOf(testtypes.Counter{}))

	bare := decl.TypeDeclaration{Name: "Counter"}
	if err := r.ResolveType(&bare, "game"); err != nil {
		t.Fatal(err)
	}
	if bare.Type != reflect.TypeOf(testtypes.Counter{}) {
		t.Errorf("bare name resolved to %v", bare.Type)
	}

	unknown := decl.TypeDeclaration{Name: "Counter"}
	if err := r.ResolveType(&unknown, "other"); err == nil {
		t.Error("wrong package should not resolve")
	}
}

func TestRegistry_RegisterType_Conflict(t *testing.T) {
	r := New()
	if err := r.RegisterType(counterPath, reflect.TypeOf(testtypes.Counter{})); err != nil {
		t.Fatal(err)
	}
	if err := r.RegisterType(counterPath, reflect.TypeOf(testtypes.Base{})); err == nil {
		t.Error("re-registering a path to another type should fail")
	}
	if err := r.RegisterType(counterPath, reflect.TypeOf(testtypes.Counter{})); err != nil {
		t.Errorf("idempotent registration should succeed: %v", err)
	}
}

func TestBindClass_GeneratedMethodRequirements(t *testing.T) {
	r := newCounterRegistry(t)
	src := decl.Parse(`package game;

public class Counter {
    public int doubled() {
        #require public int count:Count;
        return count * 2;
    }
}
`)
	cls := src.Classes[0]
	if errs := r.BindClass(cls); len(errs) != 0 {
		t.Fatalf("bind errors: %v", errs)
	}
	gen := cls.MethodByName("doubled")
	if !gen.Available() {
		t.Fatal("generated method should resolve")
	}
	req := gen.Requirements[0]
	if req.Field == nil || !req.Field.Available() {
		t.Error("requirement field should be bound")
	}
}
