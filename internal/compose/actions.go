// SPDX-License-Identifier: MPL-2.0

package compose

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/relgate/relgate/internal/module"
	"github.com/relgate/relgate/internal/shell"
	"github.com/relgate/relgate/internal/taskgraph"

	"github.com/bmatcuk/doublestar/v4"
)

type (
	// SourceSet selects files of a module by glob.
	SourceSet struct {
		// Root is relative to the module directory.
		Root     string
		Includes []string
		Excludes []string
	}
)

var (
	// FormatSources are the files the formatting check covers.
	FormatSources = SourceSet{
		Root:     ".",
		Includes: []string{"**/*.java"},
		Excludes: []string{"**/resources/**", "**/build/**"},
	}

	// CheckstyleSources restricts checkstyle to production sources.
	CheckstyleSources = SourceSet{
		Root:     "src",
		Includes: []string{"**/*.java"},
		Excludes: []string{"**/gen/**"},
	}
)

// Files returns the matching files under moduleDir as sorted absolute paths.
// A missing root yields no files.
func (s SourceSet) Files(moduleDir string) ([]string, error) {
	root := filepath.Join(moduleDir, filepath.FromSlash(s.Root))
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return nil, nil
	}
	fsys := os.DirFS(root)
	seen := make(map[string]bool)
	var out []string
	for _, pattern := range s.Includes {
		matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("source pattern %q: %w", pattern, err)
		}
		for _, rel := range matches {
			if seen[rel] || s.excluded(rel) {
				continue
			}
			seen[rel] = true
			out = append(out, filepath.Join(root, filepath.FromSlash(rel)))
		}
	}
	slices.Sort(out)
	return out, nil
}

func (s SourceSet) excluded(rel string) bool {
	for _, pattern := range s.Excludes {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

func (c *Composer) moduleEnv(m module.Module) map[string]string {
	return map[string]string{
		"RELGATE_WORKSPACE":  c.ws.Root(),
		"RELGATE_MODULE":     m.Name.String(),
		"RELGATE_MODULE_DIR": m.Dir,
	}
}

// toolAction runs script for the module with the given sources as
// positional arguments. An empty script leaves the task without work.
func (c *Composer) toolAction(m module.Module, name, script string, sources *SourceSet, env map[string]string) taskgraph.Action {
	if script == "" {
		return nil
	}
	return func(ctx context.Context) error {
		cmd := shell.Command{
			Name:   m.Name.String() + ":" + name,
			Script: script,
			Dir:    m.Dir,
			Env:    c.moduleEnv(m),
		}
		for k, v := range env {
			cmd.Env[k] = v
		}
		if sources != nil {
			files, err := sources.Files(m.Dir)
			if err != nil {
				return err
			}
			if len(files) == 0 {
				c.logger.Debug("no sources, skipping", "task", cmd.Name)
				return nil
			}
			cmd.Args = files
		}
		return c.runner.Exec(ctx, cmd)
	}
}

func (c *Composer) formatAction(m module.Module) taskgraph.Action {
	return c.toolAction(m, TaskSpotlessCheck, c.tools.Format, &FormatSources, nil)
}

func (c *Composer) checkstyleAction(m module.Module) taskgraph.Action {
	return c.toolAction(m, TaskCheckstyle, c.tools.Checkstyle, &CheckstyleSources, nil)
}

func (c *Composer) lintAction(m module.Module, v module.Variant, p module.LintPolicy) taskgraph.Action {
	return c.toolAction(m, "lint"+v.TaskName(), c.tools.Lint, nil, map[string]string{
		"RELGATE_VARIANT":                 v.Name,
		"RELGATE_BUILD_TYPE":              v.BuildType,
		"RELGATE_LINT_WARNINGS_AS_ERRORS": strconv.FormatBool(p.WarningsAsErrors),
		"RELGATE_LINT_QUIET":              strconv.FormatBool(p.Quiet),
		"RELGATE_LINT_ABORT_ON_ERROR":     strconv.FormatBool(p.AbortOnError),
	})
}

func (c *Composer) pmdAction(m module.Module) taskgraph.Action {
	return c.toolAction(m, TaskPMD, c.tools.PMD, nil, nil)
}

func (c *Composer) buildConfigAction(m module.Module, v module.Variant) taskgraph.Action {
	return c.toolAction(m, "generate"+v.TaskName()+"BuildConfig", c.tools.BuildConfig, nil, map[string]string{
		"RELGATE_VARIANT":    v.Name,
		"RELGATE_BUILD_TYPE": v.BuildType,
	})
}
