// Package main is the garden-core entrypoint: a thin cobra wrapper around
// the Config→Graph→Solver pipeline, sufficient to exercise it end to end
// from a terminal. It is deliberately not a full CLI (spec.md §1
// "Non-goals" excludes the interactive/UX layer) — one subcommand per
// operation, a handful of flags, no shell completion or plugin discovery.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/garden-io/garden-sub017/internal/coreenv"
	"github.com/garden-io/garden-sub017/internal/execprovider"
	"github.com/garden-io/garden-sub017/pkg/configloader"
	"github.com/garden-io/garden-sub017/pkg/convert"
	"github.com/garden-io/garden-sub017/pkg/gardenlog"
	"github.com/garden-io/garden-sub017/pkg/graphbuilder"
	"github.com/garden-io/garden-sub017/pkg/plugin"
	"github.com/garden-io/garden-sub017/pkg/schema"
	"github.com/garden-io/garden-sub017/pkg/solver"
)

var (
	flagRoot        string
	flagEnvironment string
	flagForce       bool
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "garden-core",
		Short: "Run the Config→Graph→Solver pipeline over a project",
	}
	root.PersistentFlags().StringVar(&flagRoot, "root", ".", "project root to load configuration from")
	root.PersistentFlags().StringVar(&flagEnvironment, "env", "", "environment to resolve against (defaults to the project's declared default)")
	root.PersistentFlags().BoolVar(&flagForce, "force", false, "bypass the result cache")

	for _, op := range []schema.OperationKind{
		schema.OperationDeploy,
		schema.OperationBuild,
		schema.OperationTest,
		schema.OperationRun,
		schema.OperationCleanup,
	} {
		root.AddCommand(newOperationCmd(op))
	}
	return root
}

func newOperationCmd(op schema.OperationKind) *cobra.Command {
	return &cobra.Command{
		Use:   string(op) + " [kind.name ...]",
		Short: fmt.Sprintf("Run the %s operation over the requested actions (all actions if none given)", op),
		RunE: func(cmd *cobra.Command, args []string) error {
			targets, err := parseTargets(args)
			if err != nil {
				return err
			}
			return runOperation(cmd.Context(), op, targets)
		},
	}
}

func parseTargets(args []string) ([]schema.ActionRef, error) {
	refs := make([]schema.ActionRef, 0, len(args))
	for _, a := range args {
		ref, err := convert.ParseActionRef(a)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

func runOperation(ctx context.Context, op schema.OperationKind, targets []schema.ActionRef) error {
	plugins := plugin.NewRegistry()
	plugins.Register(&plugin.Provider{
		Name:   "exec",
		Build:  execprovider.Provider{},
		Deploy: execprovider.Provider{},
		Run:    execprovider.Provider{},
		Test:   execprovider.Provider{},
	})

	env, err := coreenv.New(flagRoot, coreenv.WithPlugins(plugins))
	if err != nil {
		return err
	}

	resolved, err := configloader.Load(ctx, flagRoot, configloader.LoadOptions{
		Environment: flagEnvironment,
		Functions:   env.Functions,
	})
	if err != nil {
		return err
	}

	generated, err := convert.ConvertAll(ctx, resolved.Modules, resolved.Actions, plugins)
	if err != nil {
		return err
	}
	actions := append(resolved.Actions, generated...)

	g, err := graphbuilder.Build(ctx, actions, env.Settings, env.VCS, plugins)
	if err != nil {
		return err
	}

	s := solver.New(env)
	result, err := s.Solve(ctx, g, solver.Request{Operation: op, Targets: targets, Force: flagForce})
	if err != nil {
		return err
	}

	env.Logger.Info("solve finished", "success", result.Success, "succeeded", len(result.Succeeded), "failed", len(result.Failed), "cancelled", len(result.Cancelled))
	if !result.Success {
		for _, ref := range result.Failed {
			env.Logger.Error("action failed", "action", ref.String())
		}
		os.Exit(1)
	}
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		gardenlog.Error(err.Error())
		os.Exit(1)
	}
}
