package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aidan-bailey/nemo/internal/config"
	"github.com/aidan-bailey/nemo/pkg/nemo"
)

var runCmd = &cobra.Command{
	Use:   "run <manifest>",
	Short: "Materialize a rule program described by a manifest",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runManifest(ctx, args[0])
	},
}

func runManifest(ctx context.Context, path string) error {
	manifest, err := config.Load(path)
	if err != nil {
		return err
	}
	result, err := nemo.Run(ctx, manifest)
	if err != nil {
		return err
	}

	for _, imp := range result.Imports {
		status := "ok"
		if imp.Err != nil {
			status = imp.Err.Error()
		}
		fmt.Printf("import %-20s %6d rows %6d rejected  %s\n", imp.Spec.Predicate, imp.Rows, imp.Rejected, status)
	}
	for _, pred := range result.Engine.Tables().Predicates() {
		fmt.Printf("table  %-20s %6d rows\n", pred, result.Engine.Tables().CountRows(pred, result.Engine.CurrentStep()+1))
	}
	return nil
}
