// SPDX-License-Identifier: MPL-2.0

package compose

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/relgate/relgate/internal/config"
	"github.com/relgate/relgate/internal/module"
	"github.com/relgate/relgate/internal/shell"
	"github.com/relgate/relgate/internal/taskgraph"
	"github.com/relgate/relgate/internal/testutil"
	"github.com/relgate/relgate/internal/violation"
	"github.com/relgate/relgate/internal/workspace"
	"github.com/relgate/relgate/pkg/types"
)

var errTool = errors.New("tool failed")

type fakeRunner struct {
	mu     sync.Mutex
	cmds   []shell.Command
	fail   map[string]bool
	onExec map[string]func()
}

func (f *fakeRunner) Exec(_ context.Context, cmd shell.Command) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cmds = append(f.cmds, cmd)
	if fn := f.onExec[cmd.Name]; fn != nil {
		fn()
	}
	if f.fail[cmd.Name] {
		return errTool
	}
	return nil
}

func (f *fakeRunner) command(name string) (shell.Command, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.cmds {
		if c.Name == name {
			return c, true
		}
	}
	return shell.Command{}, false
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Tools = config.ToolsConfig{
		Format:      "spotless",
		Checkstyle:  "checkstyle",
		Lint:        "lint",
		PMD:         "pmd",
		BuildConfig: "buildconfig",
	}
	return cfg
}

func androidLibrary(root, name string) module.Module {
	return module.Module{
		Name:         types.ModuleName(name),
		Dir:          filepath.Join(root, name),
		Kind:         module.KindAndroidLibrary,
		Capabilities: []module.Capability{module.CapAndroid, module.CapAndroidLibrary},
		Variants: []module.Variant{
			{Name: "debug", BuildType: "debug"},
			{Name: "release", BuildType: "release"},
		},
	}
}

func legacyCodec(root string) module.Module {
	return module.Module{
		Name:         "legacy-codec",
		Dir:          filepath.Join(root, "legacy-codec"),
		Kind:         module.KindLibrary,
		Capabilities: []module.Capability{module.CapPMD, module.CapCheck},
	}
}

func newComposer(t *testing.T, root string, cfg *config.Config, runner *fakeRunner, mods ...module.Module) (*Composer, *taskgraph.Graph, *bytes.Buffer) {
	t.Helper()
	ws, err := workspace.New(root, cfg, mods...)
	if err != nil {
		t.Fatalf("workspace.New: %v", err)
	}
	g := taskgraph.New()
	var report bytes.Buffer
	c := New(g, ws,
		WithRunner(runner),
		WithChangeSet(violation.EmptyChangeSet{}),
		WithReportWriter(&report),
	)
	if err := c.WireAll(); err != nil {
		t.Fatalf("WireAll: %v", err)
	}
	return c, g, &report
}

func execute(t *testing.T, g *taskgraph.Graph, targets ...types.TaskPath) *taskgraph.Report {
	t.Helper()
	refs := make([]taskgraph.Ref, len(targets))
	for i, p := range targets {
		refs[i] = taskgraph.Local(p)
	}
	plan, err := g.Plan(refs...)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	report, err := taskgraph.NewExecutor(g).Execute(context.Background(), plan)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	return report
}

func TestWire_FormattingExemption(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	exempt := module.Module{Name: "disklrucache", Dir: filepath.Join(root, "disklrucache"), Kind: module.KindLibrary}
	_, g, _ := newComposer(t, root, testConfig(), &fakeRunner{}, androidLibrary(root, "library"), exempt)

	if _, ok := g.Find(":library:spotlessCheck"); !ok {
		t.Error(":library:spotlessCheck should be registered")
	}
	if _, ok := g.Find(":disklrucache:spotlessCheck"); ok {
		t.Error("exempt module must not get a formatting check")
	}
	if _, ok := g.Find(":disklrucache:checkstyle"); !ok {
		t.Error("checkstyle applies to every module")
	}
	if _, ok := g.Find(":disklrucache:check"); ok {
		t.Error("a module without a check lifecycle must not get one")
	}
}

func TestWire_ReleaseVariantsIgnored(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	_, g, _ := newComposer(t, root, testConfig(), &fakeRunner{}, androidLibrary(root, "library"))

	tests := []struct {
		path types.TaskPath
		want bool
	}{
		{":library:lintDebug", true},
		{":library:lintRelease", false},
		{":library:generateDebugBuildConfig", true},
		{":library:generateReleaseBuildConfig", false},
	}
	for _, tt := range tests {
		if _, ok := g.Find(tt.path); ok != tt.want {
			t.Errorf("Find(%s) = %v, want %v", tt.path, ok, tt.want)
		}
	}

	lint, _ := g.Find(":library:lintDebug")
	if !lint.IgnoreFailures {
		t.Error("lint must not abort on error")
	}
}

func TestWire_CheckFinalizedByViolations(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	_, g, _ := newComposer(t, root, testConfig(), &fakeRunner{}, androidLibrary(root, "library"))

	check, ok := g.Find(":library:check")
	if !ok {
		t.Fatal("android module should have a check task")
	}
	for _, dep := range []types.TaskPath{":library:spotlessCheck", ":library:checkstyle", ":library:lintDebug"} {
		if !check.HasDependency(taskgraph.Local(dep)) {
			t.Errorf("check should depend on %s", dep)
		}
	}
	if !check.IsFinalizedBy(":library:violations") {
		t.Error("check should be finalized by violations")
	}
	if check.HasDependency(taskgraph.Local(":library:violations")) {
		t.Error("violations must not be a hard dependency of check")
	}
	checkstyle, _ := g.Find(":library:checkstyle")
	if !checkstyle.IgnoreFailures {
		t.Error("checkstyle must ignore failures")
	}
}

func TestWire_Idempotent(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	c, g, _ := newComposer(t, root, testConfig(), &fakeRunner{}, androidLibrary(root, "library"))
	before := len(g.Tasks())

	m, _ := c.ws.Module("library")
	if err := c.Wire(m); err != nil {
		t.Fatalf("second Wire: %v", err)
	}
	if err := New(g, c.ws).Wire(m); err != nil {
		t.Fatalf("Wire through a fresh composer: %v", err)
	}
	if after := len(g.Tasks()); after != before {
		t.Errorf("task count changed from %d to %d", before, after)
	}
}

func TestGate_PMDFindingsFailViolations(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	m := legacyCodec(root)
	testutil.WriteModuleReports(t, m.Dir, testutil.PMDReport(
		filepath.Join(m.Dir, "src/main/java/Codec.java"),
		filepath.Join(m.Dir, "src/main/java/Decoder.java"),
	), "", "")

	var (
		mu    sync.Mutex
		gates []violation.GateResult
	)
	ws, err := workspace.New(root, testConfig(), m)
	if err != nil {
		t.Fatal(err)
	}
	g := taskgraph.New()
	var out bytes.Buffer
	c := New(g, ws,
		WithRunner(&fakeRunner{}),
		WithChangeSet(violation.EmptyChangeSet{}),
		WithReportWriter(&out),
		WithGateObserver(func(_ types.ModuleName, res violation.GateResult) {
			mu.Lock()
			gates = append(gates, res)
			mu.Unlock()
		}),
	)
	if err := c.WireAll(); err != nil {
		t.Fatal(err)
	}

	report := execute(t, g, ":legacy-codec:check")

	res, ok := report.Result(taskgraph.Local(":legacy-codec:violations"))
	if !ok || res.Outcome != taskgraph.OutcomeFailed {
		t.Fatalf("violations should fail, got %+v", res)
	}
	var gateErr *GateError
	if !errors.As(res.Err, &gateErr) {
		t.Fatalf("expected GateError, got %v", res.Err)
	}
	if gateErr.Result.Count != 2 {
		t.Errorf("Count = %d, want 2", gateErr.Result.Count)
	}
	if !errors.Is(res.Err, ErrGateFailed) {
		t.Error("GateError should wrap ErrGateFailed")
	}
	if len(gates) != 1 || gates[0].Pass {
		t.Errorf("observer should see one failing gate, got %+v", gates)
	}
	if !strings.Contains(out.String(), "FAILED") {
		t.Errorf("report should be rendered, got %q", out.String())
	}
	if got := c.GateTasks("legacy-codec"); len(got) != 2 {
		t.Errorf("GateTasks = %v", got)
	}
}

func TestGate_RunsWhenCheckFails(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	runner := &fakeRunner{fail: map[string]bool{"library:spotlessCheck": true}}
	lib := androidLibrary(root, "library")
	testutil.MustWriteFile(t, lib.Dir, "src/main/java/Foo.java", "class Foo {}")
	_, g, _ := newComposer(t, root, testConfig(), runner, lib)

	report := execute(t, g, ":library:check")

	if got := report.Outcome(taskgraph.Local(":library:spotlessCheck")); got != taskgraph.OutcomeFailed {
		t.Errorf("spotlessCheck outcome = %v", got)
	}
	if got := report.Outcome(taskgraph.Local(":library:check")); got != taskgraph.OutcomeSkipped {
		t.Errorf("check outcome = %v, want skipped", got)
	}
	if got := report.Outcome(taskgraph.Local(":library:violations")); got != taskgraph.OutcomeSuccess {
		t.Errorf("violations should run after a failed check, got %v", got)
	}
}

func TestGate_LibraryWithoutCheckLifecycle(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	lib := module.Module{Name: "util", Dir: filepath.Join(root, "util"), Kind: module.KindLibrary}
	src := testutil.MustWriteFile(t, lib.Dir, "src/main/java/Util.java", "class Util {}")
	runner := &fakeRunner{onExec: map[string]func(){
		"util:checkstyle": func() {
			testutil.WriteModuleReports(t, lib.Dir, "", "", testutil.CheckstyleReport("error", src))
		},
	}}
	c, g, _ := newComposer(t, root, testConfig(), runner, lib)
	if err := c.WireRoot(nil); err != nil {
		t.Fatalf("WireRoot: %v", err)
	}

	gate := c.GateTasks("util")
	want := []types.TaskPath{":util:spotlessCheck", ":util:checkstyle", ":util:violations"}
	for _, p := range want {
		if !slices.Contains(gate, p) {
			t.Errorf("GateTasks = %v, missing %s", gate, p)
		}
	}
	check, _ := g.Find(":check")
	if !check.HasDependency(taskgraph.Local(":util:checkstyle")) {
		t.Errorf("root check deps = %v, want :util:checkstyle", check.Dependencies())
	}

	report := execute(t, g, ":check")
	if _, ok := runner.command("util:checkstyle"); !ok {
		t.Fatal("checkstyle did not run under root check")
	}
	res, _ := report.Result(taskgraph.Local(":util:violations"))
	if res.Outcome != taskgraph.OutcomeFailed || !errors.Is(res.Err, ErrGateFailed) {
		t.Fatalf("violations = %+v, want gate failure", res)
	}
	if got := report.Outcome(taskgraph.Local(":check")); got != taskgraph.OutcomeSkipped {
		t.Errorf("root check outcome = %v, want skipped", got)
	}
}

func TestActions_CheckstyleSources(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	runner := &fakeRunner{}
	lib := androidLibrary(root, "library")
	main := testutil.MustWriteFile(t, lib.Dir, "src/main/java/Foo.java", "class Foo {}")
	testutil.MustWriteFile(t, lib.Dir, "src/gen/java/R.java", "class R {}")
	testutil.MustWriteFile(t, lib.Dir, "build/generated/Bar.java", "class Bar {}")
	_, g, _ := newComposer(t, root, testConfig(), runner, lib)

	execute(t, g, ":library:checkstyle", ":library:spotlessCheck", ":library:lintDebug")

	cs, ok := runner.command("library:checkstyle")
	if !ok {
		t.Fatal("checkstyle did not run")
	}
	if len(cs.Args) != 1 || cs.Args[0] != main {
		t.Errorf("checkstyle args = %v, want [%s]", cs.Args, main)
	}
	if cs.Env["RELGATE_MODULE"] != "library" || cs.Dir != lib.Dir {
		t.Errorf("unexpected command %+v", cs)
	}

	fmtCmd, _ := runner.command("library:spotlessCheck")
	if len(fmtCmd.Args) != 2 {
		t.Errorf("format should cover sources outside build/, got %v", fmtCmd.Args)
	}

	lint, _ := runner.command("library:lintDebug")
	if lint.Env["RELGATE_VARIANT"] != "debug" || lint.Env["RELGATE_LINT_ABORT_ON_ERROR"] != "false" {
		t.Errorf("unexpected lint env %v", lint.Env)
	}
}

func TestActions_NoSourcesSkipsTool(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	runner := &fakeRunner{}
	_, g, _ := newComposer(t, root, testConfig(), runner, legacyCodec(root))

	report := execute(t, g, ":legacy-codec:checkstyle")
	if got := report.Outcome(taskgraph.Local(":legacy-codec:checkstyle")); got != taskgraph.OutcomeSuccess {
		t.Errorf("outcome = %v", got)
	}
	if _, ok := runner.command("legacy-codec:checkstyle"); ok {
		t.Error("checkstyle should not run without sources")
	}
}

func TestPublishHandle(t *testing.T) {
	t.Parallel()
	tests := []struct {
		build, repo string
		want        types.TaskPath
	}{
		{"compiler", "streem", ":Compiler:publishCompilerPublicationToStreemRepository"},
		{"annotation_processor", "sonatype", ":AnnotationProcessor:publishAnnotationProcessorPublicationToSonatypeRepository"},
	}
	for _, tt := range tests {
		if got := PublishHandle(tt.build, tt.repo); got != tt.want {
			t.Errorf("PublishHandle(%q, %q) = %q, want %q", tt.build, tt.repo, got, tt.want)
		}
	}
	if got := LocalPublishHandle("compiler"); got != ":Compiler:publishCompilerPublicationToMavenLocal" {
		t.Errorf("LocalPublishHandle = %q", got)
	}
}

func TestWireRoot(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	cfg := testConfig()
	cfg.IncludedBuilds = []config.IncludedBuildConfig{{Name: "compiler", Path: "annotation/compiler", Version: "4.16.0"}}
	runner := &fakeRunner{}
	c, g, _ := newComposer(t, root, cfg, runner, androidLibrary(root, "library"), legacyCodec(root),
		module.Module{Name: "disklrucache", Dir: filepath.Join(root, "disklrucache"), Kind: module.KindLibrary})

	if _, err := g.Register(":library:publish", nil); err != nil {
		t.Fatal(err)
	}
	builds, err := IncludedBuilds(cfg, root, runner)
	if err != nil {
		t.Fatalf("IncludedBuilds: %v", err)
	}
	if err := c.WireRoot(builds); err != nil {
		t.Fatalf("WireRoot: %v", err)
	}

	publish, ok := g.Find(":publish")
	if !ok {
		t.Fatal(":publish not registered")
	}
	want := taskgraph.Ref{Build: "compiler", Path: ":Compiler:publishCompilerPublicationToStreemRepository"}
	if !publish.HasDependency(want) {
		t.Errorf("root publish deps = %v, want %s", publish.Dependencies(), want)
	}
	if !publish.HasDependency(taskgraph.Local(":library:publish")) {
		t.Error("root publish should depend on module publish")
	}
	local, _ := g.Find(":publishToMavenLocal")
	if !local.HasDependency(taskgraph.Ref{Build: "compiler", Path: ":Compiler:publishCompilerPublicationToMavenLocal"}) {
		t.Errorf("root publishToMavenLocal deps = %v", local.Dependencies())
	}

	check, _ := g.Find(":check")
	for _, dep := range []types.TaskPath{":library:check", ":legacy-codec:check", ":disklrucache:violations"} {
		if !check.HasDependency(taskgraph.Local(dep)) {
			t.Errorf("root check should depend on %s", dep)
		}
	}

	if err := c.WireRoot(builds); err != nil {
		t.Fatalf("WireRoot twice: %v", err)
	}

	report := execute(t, g, ":publish")
	if !report.Succeeded(taskgraph.Local(":publish")) {
		t.Fatalf("publish failed: %v", report.Err())
	}
	cmd, ok := runner.command("[compiler]:Compiler:publishCompilerPublicationToStreemRepository")
	if !ok {
		t.Fatal("included build task did not run")
	}
	if cmd.Script != DefaultIncludedBuildCommand || cmd.Dir != filepath.Join(root, "annotation", "compiler") {
		t.Errorf("unexpected command %+v", cmd)
	}
	if cmd.Env["RELGATE_BUILD_VERSION"] != "4.16.0" {
		t.Errorf("env = %v", cmd.Env)
	}
}
