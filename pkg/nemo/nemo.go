// Package nemo is the public entry point of the engine: it wires a
// program manifest through parsing, import, materialization and export.
package nemo

import (
	"context"
	"fmt"

	"github.com/aidan-bailey/nemo/internal/config"
	"github.com/aidan-bailey/nemo/internal/execution"
	nio "github.com/aidan-bailey/nemo/internal/io"
	"github.com/aidan-bailey/nemo/internal/logging"
	"github.com/aidan-bailey/nemo/internal/rules"
)

// Result reports a finished (or cancelled) run.
type Result struct {
	Engine      *execution.Engine
	Imports     []nio.ImportResult
	Diagnostics []execution.RuleDiagnostics
}

// Run materializes the program described by the manifest: parse rules,
// load inline facts and imports, chase to saturation, write exports.
// On fatal errors the returned result still carries the engine with every
// already-committed subtable.
func Run(ctx context.Context, manifest *config.Manifest) (*Result, error) {
	log := logging.Get(logging.CategoryChase)

	source, err := manifest.RuleSource()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", execution.ErrReading, err)
	}
	program, err := rules.Translate(source)
	if err != nil {
		return nil, err
	}
	// Import targets may name EDB predicates no rule mentions.
	for _, imp := range manifest.Imports {
		if _, ok := program.Predicates[imp.Predicate]; !ok {
			return nil, fmt.Errorf("%w: import predicate %s does not appear in the program", execution.ErrPlan, imp.Predicate)
		}
	}

	engine, err := execution.NewEngine(program)
	if err != nil {
		return nil, err
	}
	result := &Result{Engine: engine}

	facts, err := rules.Facts(source)
	if err != nil {
		return result, err
	}
	for pred, rows := range facts {
		if err := engine.LoadFacts(pred, rows); err != nil {
			return result, err
		}
	}

	specs := make([]nio.ImportSpec, 0, len(manifest.Imports))
	for _, imp := range manifest.Imports {
		formats := make([]nio.ValueFormat, 0, len(imp.Columns))
		for _, c := range imp.Columns {
			format, err := nio.ParseValueFormat(c)
			if err != nil {
				return result, err
			}
			formats = append(formats, format)
		}
		var delimiter rune
		if imp.Delimiter != "" {
			delimiter = rune(imp.Delimiter[0])
		}
		specs = append(specs, nio.ImportSpec{
			Predicate: imp.Predicate,
			Path:      manifest.Resolve(imp.File),
			Format:    imp.Format,
			Delimiter: delimiter,
			Formats:   formats,
		})
	}
	result.Imports, err = nio.ImportAll(ctx, engine, specs, manifest.Strict)
	if err != nil {
		return result, err
	}

	runCtx := ctx
	if manifest.Limits.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, manifest.Limits.Timeout)
		defer cancel()
	}
	if err := engine.Materialize(runCtx); err != nil {
		result.Diagnostics = engine.Diagnostics()
		return result, err
	}
	result.Diagnostics = engine.Diagnostics()

	exports := make([]nio.ExportSpec, 0, len(manifest.Exports))
	for _, exp := range manifest.Exports {
		var delimiter rune
		if exp.Delimiter != "" {
			delimiter = rune(exp.Delimiter[0])
		}
		exports = append(exports, nio.ExportSpec{
			Predicate: exp.Predicate,
			Path:      manifest.Resolve(exp.File),
			Format:    exp.Format,
			Delimiter: delimiter,
		})
	}
	if err := nio.ExportAll(engine, exports); err != nil {
		return result, err
	}

	log.Info("run finished", "run", engine.RunID(), "predicates", len(program.Predicates))
	return result, nil
}
