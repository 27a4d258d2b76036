package gen

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/templar-dev/templar/decl"
)

func sampleModels() []ClassModel {
	return []ClassModel{
		{
			Package: "example.com/game",
			Name:    "Counter",
			Fields: []MemberModel{
				{Name: "Count", Type: "int", Exported: true},
				{Name: "hidden", Type: "int64", Exported: false},
			},
			Methods: []MethodModel{
				{Name: "Add", Returns: "int", Params: []ParamModel{{Name: "n", Type: "int"}}},
				{Name: "Reset", Returns: "void"},
			},
		},
	}
}

func TestEmit(t *testing.T) {
	text := Emit(sampleModels())

	for _, want := range []string{
		"package example.com/game;",
		"public class Counter {",
		"public int count:Count;",
		"private int64 hidden;",
		"public int add:Add(int n);",
		"public void reset:Reset();",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("emitted text missing %q:\n%s", want, text)
		}
	}
}

func TestEmit_ParsesBack(t *testing.T) {
	text := Emit(sampleModels())

	src := decl.Parse(text)
	if !src.IsValid() {
		t.Fatalf("emitted template does not parse: %v", src.AllErrors())
	}
	if len(src.Classes) != 1 {
		t.Fatalf("classes = %d", len(src.Classes))
	}
	cls := src.Classes[0]
	if cls.Path() != "example.com/game.Counter" {
		t.Errorf("path = %q", cls.Path())
	}
	count := cls.FieldByName("count")
	if count == nil || count.Name.Runtime() != "Count" {
		t.Error("exported field should keep its runtime alias")
	}
	if cls.FieldByName("hidden") == nil {
		t.Error("unexported field should be declared")
	}
	add := cls.MethodByName("add")
	if add == nil || add.Name.Runtime() != "Add" {
		t.Error("method should keep its runtime alias")
	}
}

func TestConfig_Filter(t *testing.T) {
	classes := []ClassModel{
		{Name: "Keep"},
		{Name: "Drop"},
		{Name: "Other"},
	}

	cfg := &Config{Include: []string{"Keep", "Other"}, Exclude: []string{"Other"}}
	got := cfg.filter(classes)
	if len(got) != 1 || got[0].Name != "Keep" {
		t.Errorf("filtered = %v", got)
	}

	open := &Config{}
	if len(open.filter(classes)) != 3 {
		t.Error("empty filter should keep everything")
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "templargen.yaml")
	err := os.WriteFile(path, []byte(`packages:
  - ./...
out: templates.tpl
include:
  - Counter
strip_package_prefix: example.com
`), 0o644)
	if err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.Packages) != 1 || cfg.Packages[0] != "./..." {
		t.Errorf("packages = %v", cfg.Packages)
	}
	if cfg.Out != "templates.tpl" {
		t.Errorf("out = %q", cfg.Out)
	}
	if cfg.StripPackagePrefix != "example.com" {
		t.Errorf("strip = %q", cfg.StripPackagePrefix)
	}

	empty := filepath.Join(dir, "empty.yaml")
	os.WriteFile(empty, []byte("out: x\n"), 0o644)
	if _, err := LoadConfig(empty); err == nil {
		t.Error("config without packages should be rejected")
	}
}
