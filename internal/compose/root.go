// SPDX-License-Identifier: MPL-2.0

package compose

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/relgate/relgate/internal/config"
	"github.com/relgate/relgate/internal/shell"
	"github.com/relgate/relgate/internal/taskgraph"
	"github.com/relgate/relgate/pkg/types"

	"github.com/iancoleman/strcase"
)

// DefaultIncludedBuildCommand runs one task of an included build.
const DefaultIncludedBuildCommand = `./gradlew --no-daemon "$RELGATE_TASK"`

type (
	// RootBuild is an included build together with the handles the root
	// publication tasks depend on.
	RootBuild struct {
		Build        *taskgraph.IncludedBuild
		Publish      taskgraph.Ref
		LocalPublish taskgraph.Ref
	}
)

// PublishHandle derives the remote publication task of an included build,
// e.g. ":Compiler:publishCompilerPublicationToStreemRepository".
func PublishHandle(build, repository string) types.TaskPath {
	pub := strcase.ToCamel(build)
	return types.TaskPath(fmt.Sprintf(":%s:publish%sPublicationTo%sRepository", pub, pub, strcase.ToCamel(repository)))
}

// LocalPublishHandle derives the local cache publication task of an
// included build.
func LocalPublishHandle(build string) types.TaskPath {
	pub := strcase.ToCamel(build)
	return types.TaskPath(fmt.Sprintf(":%s:publish%sPublicationToMavenLocal", pub, pub))
}

// IncludedBuilds creates the included builds declared in cfg. Tasks run
// through runner inside the build directory.
func IncludedBuilds(cfg *config.Config, root string, runner ToolRunner) ([]RootBuild, error) {
	out := make([]RootBuild, 0, len(cfg.IncludedBuilds))
	for _, ib := range cfg.IncludedBuilds {
		publish := types.TaskPath(ib.PublishTask)
		if publish == "" {
			publish = PublishHandle(ib.Name, cfg.Publishing.Private.Name)
		}
		local := types.TaskPath(ib.LocalPublishTask)
		if local == "" {
			local = LocalPublishHandle(ib.Name)
		}
		for _, p := range []types.TaskPath{publish, local} {
			if ok, errs := p.IsValid(); !ok {
				return nil, fmt.Errorf("included build %q: %w", ib.Name, errs[0])
			}
		}

		dir := ib.Path
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(root, dir)
		}
		b := taskgraph.NewIncludedBuild(ib.Name, dir, ib.Version, includedRun(ib, dir, runner), publish, local)
		pubRef, err := b.Task(publish)
		if err != nil {
			return nil, err
		}
		localRef, err := b.Task(local)
		if err != nil {
			return nil, err
		}
		out = append(out, RootBuild{Build: b, Publish: pubRef, LocalPublish: localRef})
	}
	return out, nil
}

func includedRun(ib config.IncludedBuildConfig, dir string, runner ToolRunner) taskgraph.RunFunc {
	script := ib.Command
	if script == "" {
		script = DefaultIncludedBuildCommand
	}
	return func(ctx context.Context, path types.TaskPath) error {
		return runner.Exec(ctx, shell.Command{
			Name:   "[" + ib.Name + "]" + path.String(),
			Script: script,
			Dir:    dir,
			Env: map[string]string{
				"RELGATE_TASK":          path.String(),
				"RELGATE_BUILD_VERSION": ib.Version,
			},
		})
	}
}

// Runner returns the tool runner of the composer.
func (c *Composer) Runner() ToolRunner { return c.runner }

// WireRoot registers the root lifecycle tasks. Root publish depends on every
// included build's publication and every module publish task; root check on
// every module's gate.
func (c *Composer) WireRoot(builds []RootBuild) error {
	for _, rb := range builds {
		if _, ok := c.graph.IncludedBuild(rb.Build.Name); !ok {
			if err := c.graph.Include(rb.Build); err != nil {
				return err
			}
		}
	}

	publish, _, err := c.graph.Ensure(types.RootTask(TaskPublish))
	if err != nil {
		return err
	}
	publish.Description = "Publishes every module and included build"
	publish.Group = groupPublishing

	local, _, err := c.graph.Ensure(types.RootTask(TaskPublishToMavenLocal))
	if err != nil {
		return err
	}
	local.Description = "Publishes every module and included build to the local repository"
	local.Group = groupPublishing

	check, _, err := c.graph.Ensure(types.RootTask(TaskCheck))
	if err != nil {
		return err
	}
	check.Description = "Runs all checks of every module"
	check.Group = groupVerification

	for _, rb := range builds {
		publish.DependsOnRef(rb.Publish)
		local.DependsOnRef(rb.LocalPublish)
	}

	for _, m := range c.ws.Modules() {
		if t, ok := c.graph.Find(types.ModuleTask(m.Name, TaskPublish)); ok {
			publish.DependsOn(t.Path())
		}
		if t, ok := c.graph.Find(types.ModuleTask(m.Name, TaskPublishToMavenLocal)); ok {
			local.DependsOn(t.Path())
		}
		check.DependsOn(c.GateTasks(m.Name)...)
	}
	return nil
}
