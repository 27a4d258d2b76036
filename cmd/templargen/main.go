// Command templargen scans Go packages and emits template declaration
// skeletons for their exported struct types.
package main

import (
	_ "embed"
	"fmt"
	"os"
	"runtime/debug"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/templar-dev/templar/decl"
	"github.com/templar-dev/templar/gen"
)

//go:embed VERSION
var rawVersion string

type CLI struct {
	Version VersionCmd `cmd:"" help:"Print version information."`
	Gen     GenCmd     `cmd:"" help:"Generate template declarations for a Go package."`
	Check   CheckCmd   `cmd:"" help:"Parse a template file and report problems."`
}

type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Println(versionString())
	return nil
}

// versionString prefers the module version stamped by go install. Local
// builds fall back to the embedded version with a -dev suffix, extended
// with the VCS revision when the build info carries one.
func versionString() string {
	v := strings.TrimSpace(rawVersion)
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return v
	}
	if mv := info.Main.Version; mv != "" && mv != "(devel)" {
		return mv
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" && len(s.Value) >= 7 {
			return v + "-dev." + s.Value[:7]
		}
	}
	return v + "-dev"
}

type GenCmd struct {
	Package string `arg:"" optional:"" help:"Go package pattern to scan." default:"."`
	Out     string `help:"Output file; - for stdout." short:"o" default:"-"`
	Config  string `help:"YAML config file; overrides the package argument." short:"c"`
	Strip   string `help:"Package path prefix to strip from template paths."`
}

func (c *GenCmd) Run() error {
	cfg := &gen.Config{
		Packages:           []string{c.Package},
		Out:                c.Out,
		StripPackagePrefix: c.Strip,
	}
	if c.Config != "" {
		loaded, err := gen.LoadConfig(c.Config)
		if err != nil {
			return err
		}
		cfg = loaded
		if cfg.Out == "" {
			cfg.Out = c.Out
		}
	}

	text, err := cfg.Run("")
	if err != nil {
		return err
	}
	if cfg.Out == "" || cfg.Out == "-" {
		fmt.Print(text)
		return nil
	}
	return os.WriteFile(cfg.Out, []byte(text), 0o644)
}

type CheckCmd struct {
	File string `arg:"" help:"Template declaration file to check."`
}

func (c *CheckCmd) Run() error {
	data, err := os.ReadFile(c.File)
	if err != nil {
		return err
	}
	src := decl.Parse(string(data))
	errs := src.AllErrors()
	for _, perr := range errs {
		fmt.Fprintf(os.Stderr, "%s: %v\n", c.File, perr)
	}
	if len(errs) > 0 {
		return fmt.Errorf("%d problem(s) found", len(errs))
	}
	fmt.Printf("%s: %d class(es), ok\n", c.File, len(src.Classes))
	return nil
}

func main() {
	cli := &CLI{}
	ctx := kong.Parse(cli,
		kong.Name("templargen"),
		kong.Description("Template declaration tooling for Go types."),
		kong.UsageOnError(),
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
