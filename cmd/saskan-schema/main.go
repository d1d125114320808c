// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

// Command saskan-schema rebuilds, generates and inspects the relational
// store of a domain model.
//
// Usage:
//
//	saskan-schema rebuild  [flags]
//	saskan-schema generate [flags]
//	saskan-schema inspect  [flags] [table [column]]
//	saskan-schema serve    [flags]
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"

	saskan "github.com/genuinemerit/saskan-app-sub000"
	"github.com/genuinemerit/saskan-app-sub000/internal/api"
	"github.com/genuinemerit/saskan-app-sub000/internal/config"
	"github.com/genuinemerit/saskan-app-sub000/internal/logging"
	"github.com/genuinemerit/saskan-app-sub000/lifecycle"
	"github.com/genuinemerit/saskan-app-sub000/model"
	"github.com/genuinemerit/saskan-app-sub000/sql/migrate"
	"github.com/genuinemerit/saskan-app-sub000/sql/schema"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run executes the command line given in args, writing its output to out.
func run(ctx context.Context, args []string, out io.Writer) error {
	cfg, err := config.ParseEnv()
	if err != nil {
		return err
	}
	root := newRoot(&cfg)
	root.SetArgs(args)
	root.SetOut(out)
	root.SetErr(io.Discard)
	return root.ExecuteContext(ctx)
}

// env holds the dependencies shared by all subcommands. It is set
// up once the flags are parsed.
type env struct {
	cfg  *config.Config
	log  *logging.Logger
	conv *schema.Conventions
}

// newRoot returns the root command. The configuration loaded from the
// environment is overridden by the persistent flags of the command.
func newRoot(cfg *config.Config) *cobra.Command {
	e := &env{cfg: cfg}
	root := &cobra.Command{
		Use:           "saskan-schema",
		Short:         "Build and inspect the relational store of a domain model.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return e.setup()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if e.log != nil {
				e.log.Sync()
			}
		},
	}
	cfg.RegisterFlags(root.PersistentFlags())
	root.AddCommand(
		rebuildCmd(e),
		generateCmd(e),
		inspectCmd(e),
		serveCmd(e),
	)
	return root
}

func (e *env) setup() error {
	log, err := logging.New(e.cfg.LogMode)
	if err != nil {
		return err
	}
	conv, err := e.cfg.Conventions()
	if err != nil {
		return err
	}
	e.log, e.conv = log, conv
	return nil
}

func rebuildCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "rebuild",
		Short: "Archive the store and rebuild it from the domain model.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := e.cfg.Validate(true); err != nil {
				return err
			}
			r, err := saskan.Rebuild(cmd.Context(), e.cfg.ModelPath, e.conv, e.cfg.Paths(),
				lifecycle.WithLogger(e.log),
				lifecycle.WithForce(e.cfg.Force),
				lifecycle.WithStrictComplete(e.cfg.Strict),
			)
			if r != nil {
				printReport(cmd.OutOrStdout(), r)
			}
			return err
		},
	}
}

func generateCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "generate",
		Short: "Write the DDL/DML artifacts of the domain model without touching the store.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := model.Load(e.cfg.ModelPath, nil)
			if err != nil {
				return err
			}
			dir, err := migrate.NewLocalDir(e.cfg.ArtifactsDir)
			if err != nil {
				return &schema.FileAccessError{Path: e.cfg.ArtifactsDir, Err: err}
			}
			tables, err := saskan.Generate(m, e.conv, dir)
			if err != nil {
				return err
			}
			for _, t := range tables {
				cmd.Printf("%s\t%s\n", t.Family, t.Name)
			}
			return nil
		},
	}
}

func inspectCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect [table [column]]",
		Short: "Print the tables of the store, the columns of a table or the edges of a column.",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.cfg.Validate(false); err != nil {
				return err
			}
			insp, err := saskan.OpenInspector(cmd.Context(), e.cfg.StorePath, e.conv)
			if err != nil {
				return err
			}
			defer insp.Close()
			return inspect(cmd.Context(), cmd.OutOrStdout(), insp, args)
		},
	}
}

func serveCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the read API of the store over HTTP.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := e.cfg.Validate(false); err != nil {
				return err
			}
			insp, err := saskan.OpenInspector(cmd.Context(), e.cfg.StorePath, e.conv)
			if err != nil {
				return err
			}
			defer insp.Close()
			return api.RunServer(e.cfg.HTTPAddr, insp, e.log)
		},
	}
}

func printReport(out io.Writer, r *lifecycle.Report) {
	states := make([]string, len(r.States))
	for i, s := range r.States {
		states[i] = string(s)
	}
	fmt.Fprintf(out, "states:  %s\n", strings.Join(states, " -> "))
	fmt.Fprintf(out, "built:   %d table(s)\n", len(r.Built))
	if len(r.Skipped) > 0 {
		fmt.Fprintf(out, "skipped: %s\n", strings.Join(r.Skipped, ", "))
	}
	for _, f := range r.Failures {
		fmt.Fprintf(out, "failed:  %v\n", f)
	}
	if r.Archive != "" {
		fmt.Fprintf(out, "archive: %s\n", r.Archive)
	}
}

// inspect prints the categories and tables of the store, the columns of
// a table, or the edges of a column.
func inspect(ctx context.Context, out io.Writer, insp schema.Introspector, args []string) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	defer w.Flush()
	switch len(args) {
	case 0:
		catgs, err := insp.Categories(ctx)
		if err != nil {
			return err
		}
		for _, c := range catgs {
			tables, err := insp.Tables(ctx, c)
			if err != nil {
				return err
			}
			for _, t := range tables {
				fmt.Fprintf(w, "%s\t%s\n", c, t)
			}
		}
	case 1:
		about, err := insp.About(ctx, args[0])
		if err != nil && !schema.IsNotExistError(err) {
			return err
		}
		cols, err := insp.Columns(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\t%s\n", args[0], about)
		for _, c := range cols {
			var rule string
			if c.Rule != nil {
				rule = c.Rule.Text()
			}
			fmt.Fprintf(w, "  %s\t%s\t%s\t%s\t%s\t%s\n", c.Name, c.Type, c.Kind, c.Label, rule, c.About)
		}
	default:
		edges, err := insp.Edges(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		for _, e := range edges {
			fmt.Fprintf(w, "%s\t%s.%s\t->\t%s.%s\n", e.Type, e.FromTable, e.FromColumn, e.ToTable, e.ToColumn)
		}
	}
	return nil
}
