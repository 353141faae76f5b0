// SPDX-License-Identifier: MPL-2.0

package compose

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/relgate/relgate/internal/module"
	"github.com/relgate/relgate/internal/taskgraph"
	"github.com/relgate/relgate/internal/violation"
	"github.com/relgate/relgate/pkg/types"
)

// ErrGateFailed is the sentinel wrapped by GateError.
var ErrGateFailed = errors.New("violation gate failed")

// GateError reports a module whose analysis findings exceed the gate.
type GateError struct {
	Module types.ModuleName
	Result violation.GateResult
}

func (e *GateError) Error() string {
	return fmt.Sprintf("module %s: %d violation(s), %d in changed files", e.Module, e.Result.Count, e.Result.DiffCount)
}

func (e *GateError) Unwrap() error { return ErrGateFailed }

func (c *Composer) gateAction(m module.Module) taskgraph.Action {
	return func(ctx context.Context) error {
		minSeverity, err := violation.ParseSeverity(c.analysis.MinSeverity)
		if err != nil {
			return err
		}
		agg := violation.NewAggregator(violation.Options{
			MinSeverity:       minSeverity,
			MaxViolations:     c.analysis.MaxViolations,
			DiffMaxViolations: c.analysis.DiffMaxViolations,
			Changes:           c.changeSet(),
			Logger:            c.logger,
		})
		res, err := agg.Run(ctx, m.Dir)
		if err != nil {
			return err
		}
		for _, o := range c.observers {
			o(m.Name, res)
		}
		if err := c.render(m, res); err != nil {
			return err
		}
		if !res.Pass {
			return &GateError{Module: m.Name, Result: res}
		}
		return nil
	}
}

// changeSet computes the workspace changeset once per run. A workspace
// outside version control has no changed files.
func (c *Composer) changeSet() violation.ChangeSet {
	c.changesOnce.Do(func() {
		cs, err := c.changeSetFn()
		if err != nil {
			c.logger.Warn("changeset unavailable, diff count disabled", "err", err)
			c.changes = violation.EmptyChangeSet{}
			return
		}
		c.changes = cs
	})
	return c.changes
}

func (c *Composer) render(m module.Module, res violation.GateResult) error {
	var buf bytes.Buffer
	if err := violation.Render(&buf, m.Name.String(), res, violation.DetailLevel(c.analysis.DetailLevel)); err != nil {
		return err
	}
	c.reportMu.Lock()
	defer c.reportMu.Unlock()
	_, err := c.report.Write(buf.Bytes())
	return err
}
