// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/relgate/relgate/internal/app/execute"
	"github.com/relgate/relgate/internal/taskgraph"
	"github.com/relgate/relgate/pkg/types"

	"github.com/spf13/cobra"
)

func newTasksCommand(app *App) *cobra.Command {
	var (
		deps   bool
		module string
	)
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "List the wired task graph in execution order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := app.pipeline(cmd.Context())
			if err != nil {
				return err
			}
			return listTasks(app.stdout, p, types.ModuleName(module), deps)
		},
	}
	cmd.Flags().BoolVar(&deps, "deps", false, "show dependencies, finalizers and ordering edges")
	cmd.Flags().StringVar(&module, "module", "", "only list tasks of this module")
	return cmd
}

func listTasks(w io.Writer, p *execute.Pipeline, module types.ModuleName, deps bool) error {
	var refs []taskgraph.Ref
	for _, t := range p.Graph.Tasks() {
		refs = append(refs, taskgraph.Local(t.Path()))
	}
	plan, err := p.Graph.Plan(refs...)
	if err != nil {
		return &ExitError{Code: types.ExitConfigError, Err: err}
	}

	fmt.Fprintln(w, TitleStyle.Render("Tasks"))
	for _, ref := range plan.Order {
		node, _ := plan.Node(ref)
		if module != "" && ref.Path.Owner() != module {
			continue
		}
		line := CmdStyle.Render(ref.String())
		if node.Task == nil {
			line += " " + SubtitleStyle.Render("(included build)")
		} else {
			if node.Task.Group != "" {
				line += " " + SubtitleStyle.Render("["+node.Task.Group+"]")
			}
			if node.Task.Description != "" {
				line += " " + node.Task.Description
			}
			if node.Task.IgnoreFailures {
				line += " " + WarningStyle.Render("(ignores failures)")
			}
		}
		fmt.Fprintln(w, line)
		if deps && node.Task != nil {
			printEdges(w, "depends on", node.Task.Dependencies())
			printEdges(w, "finalized by", node.Task.Finalizers())
			printEdges(w, "runs after", node.Task.RunsAfter())
		}
	}
	return nil
}

func printEdges(w io.Writer, label string, refs []taskgraph.Ref) {
	if len(refs) == 0 {
		return
	}
	names := make([]string, len(refs))
	for i, r := range refs {
		names[i] = r.String()
	}
	fmt.Fprintf(w, "    %s %s\n", VerboseStyle.Render(label+":"), strings.Join(names, ", "))
}
