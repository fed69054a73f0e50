package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/nathsou/disk-analyzer/internal/repartition"
	"github.com/nathsou/disk-analyzer/internal/report"
	"github.com/nathsou/disk-analyzer/pkg/models"
)

func newInfoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Describe the explored machine",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, info, err := a.ex.Session.Root(cmd.Context())
			if err != nil {
				return fmt.Errorf("os info: %w", err)
			}
			doc := report.Info{
				OSInfo: info,
				Server: a.client.BaseURL(),
				Online: a.client.IsOnline(),
			}
			if seen := a.client.LastSeen(); !seen.IsZero() {
				doc.LastSeen = &seen
			}
			return a.renderer(cmd.OutOrStdout()).OSInfo(doc, root)
		},
	}
}

func newLsCmd(a *app) *cobra.Command {
	var sizes, refresh bool

	cmd := &cobra.Command{
		Use:   "ls [path]",
		Short: "List the immediate children of a directory",
		Long: `List the files and directories directly under path, directories first.

Without a path the home directory of the explored machine is listed.
Directory sizes are computed by the server only with --sizes.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			path, root, err := a.target(ctx, args)
			if err != nil {
				return err
			}
			a.refresh(path, refresh)

			listing, err := a.ex.Directories.List(ctx, path, sizes)
			if err != nil {
				return fmt.Errorf("list %s: %w", path, err)
			}
			return a.renderer(cmd.OutOrStdout()).Listing(listing, root)
		},
	}
	cmd.Flags().BoolVarP(&sizes, "sizes", "s", false, "compute directory sizes")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "ignore cached results")
	return cmd
}

func addLimitFlags(cmd *cobra.Command) {
	cmd.Flags().Int("files", 0, "number of biggest files (default: server's)")
	cmd.Flags().Int("dirs", 0, "number of biggest directories (default: server's)")
}

func newDirCmd(a *app) *cobra.Command {
	var refresh bool

	cmd := &cobra.Command{
		Use:   "dir [path]",
		Short: "Show the largest files and directories of a subtree",
		Long: `Walk the subtree rooted at path on the server and show its size, file
count and largest entries. Walking a large disk takes a while; the result
is cached like every other query.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			path, root, err := a.target(ctx, args)
			if err != nil {
				return err
			}
			a.refresh(path, refresh)

			sum, err := a.ex.Summaries.Summarize(ctx, path, a.limits())
			if err != nil {
				return fmt.Errorf("summarize %s: %w", path, err)
			}
			return a.renderer(cmd.OutOrStdout()).Summary(sum, root)
		},
	}
	addLimitFlags(cmd)
	cmd.Flags().BoolVar(&refresh, "refresh", false, "ignore cached results")
	return cmd
}

func newReportCmd(a *app) *cobra.Command {
	var (
		refresh bool
		width   int
	)

	cmd := &cobra.Command{
		Use:   "report [path]",
		Short: "Listing with sizes, subtree summary and repartition chart",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if width < 0 {
				return fmt.Errorf("--width must not be negative, got %d", width)
			}
			ctx := cmd.Context()
			path, root, err := a.target(ctx, args)
			if err != nil {
				return err
			}
			a.refresh(path, refresh)

			var (
				listing models.DirectorySnapshot
				sum     models.SubtreeSummary
			)
			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				var err error
				listing, err = a.ex.Directories.List(gctx, path, true)
				if err != nil {
					return fmt.Errorf("list %s: %w", path, err)
				}
				return nil
			})
			g.Go(func() error {
				var err error
				sum, err = a.ex.Summaries.Summarize(gctx, path, a.limits())
				if err != nil {
					return fmt.Errorf("summarize %s: %w", path, err)
				}
				return nil
			})
			if err := g.Wait(); err != nil {
				return err
			}

			r := a.renderer(cmd.OutOrStdout())
			r.BarWidth = width
			return r.Report(report.Report{
				Path:        path,
				Listing:     report.NewListing(listing),
				Summary:     sum,
				Repartition: repartition.Slices(listing.Directories, root),
			}, root)
		},
	}
	addLimitFlags(cmd)
	cmd.Flags().BoolVar(&refresh, "refresh", false, "ignore cached results")
	cmd.Flags().IntVar(&width, "width", report.DefaultBarWidth, "width of the repartition bars")
	return cmd
}
