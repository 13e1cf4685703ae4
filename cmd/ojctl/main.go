package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/programme-lv/ojcore/app"
	"github.com/programme-lv/ojcore/conf"
	"github.com/programme-lv/ojcore/contest"
	"github.com/programme-lv/ojcore/logger"
	"github.com/programme-lv/ojcore/record"
	"github.com/programme-lv/ojcore/srvcerror"
	"github.com/spf13/cobra"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:          "ojctl",
		Short:        "Operator CLI for the judge core",
		SilenceUsage: true,
	}

	var contestCmd = &cobra.Command{
		Use:   "contest",
		Short: "Import & export contest definitions",
	}
	contestCmd.AddCommand(contestImportCmd(), contestExportCmd())

	var penaltyCmd = &cobra.Command{
		Use:   "penalty",
		Short: "Inspect homework penalty schedules",
	}
	penaltyCmd.AddCommand(penaltyPreviewCmd())

	rootCmd.AddCommand(
		contestCmd,
		penaltyCmd,
		systemTestCmd(),
		gatherCmd(),
		plagiarismCmd(),
		exportCmd(),
		rejudgeCmd(),
		recalcCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// withApp connects to the backing services for the duration of fn.
func withApp(fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := conf.Load()
	if err != nil {
		return err
	}
	log := logger.New(cfg.SlogLevel(), false)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.Close(closeCtx); err != nil {
			log.Warn("shutdown", "error", err)
		}
	}()
	return fn(ctx, a)
}

func parseID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("bad id %q: %w", s, err)
	}
	return id, nil
}

func contestImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.toml>",
		Short: "Create or update a contest from a toml definition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			c, err := contest.ParseToml(data)
			if err != nil {
				return err
			}
			return withApp(func(ctx context.Context, a *app.App) error {
				_, err := a.Contests.Get(ctx, c.ID)
				switch {
				case srvcerror.IsNotFound(err):
					err = a.Contests.Create(ctx, c)
				case err == nil:
					err = a.Contests.Update(ctx, c)
				}
				if err != nil {
					return err
				}
				fmt.Println(c.ID)
				return nil
			})
		},
	}
}

func contestExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <tid>",
		Short: "Print a contest as toml",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tid, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withApp(func(ctx context.Context, a *app.App) error {
				c, err := a.Contests.Get(ctx, tid)
				if err != nil {
					return err
				}
				data, err := contest.FormatToml(c)
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			})
		},
	}
}

func penaltyPreviewCmd() *cobra.Command {
	var at []time.Duration
	cmd := &cobra.Command{
		Use:   "preview <schedule.yaml>",
		Short: "Parse an hours-keyed schedule and print its factors",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			s, err := contest.ParseScheduleYAML(string(data))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, step := range s {
				fmt.Fprintf(out, "after %-10s factor %.2f\n", time.Duration(step.AfterSec)*time.Second, step.Factor)
			}
			for _, d := range at {
				fmt.Fprintf(out, "at %-13s factor %.2f\n", d, s.Factor(d))
			}
			return nil
		},
	}
	cmd.Flags().DurationSliceVar(&at, "at", nil, "Elapsed times to evaluate, e.g. 30h,100h")
	return cmd
}

func systemTestCmd() *cobra.Command {
	var categories string
	var onlyNew bool
	cmd := &cobra.Command{
		Use:   "system-test <tid>",
		Short: "Clone every contestant's latest submission for judging",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tid, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withApp(func(ctx context.Context, a *app.App) error {
				res, err := a.Batch.SystemTest(ctx, tid, record.ParseCategories(categories), onlyNew)
				fmt.Printf("cloned %d, skipped %d\n", len(res.Cloned), res.Skipped)
				return err
			})
		},
	}
	cmd.Flags().StringVarP(&categories, "category", "c", "", "Judge categories, comma separated (required)")
	cmd.Flags().BoolVar(&onlyNew, "only-new", false, "Skip contestants whose latest record already has these categories")
	cmd.MarkFlagRequired("category")
	return cmd
}

func gatherCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gather <tid>",
		Short: "List every contestant's latest submission",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tid, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withApp(func(ctx context.Context, a *app.App) error {
				recs, err := a.Batch.GatherLatest(ctx, tid)
				if err != nil {
					return err
				}
				for _, r := range recs {
					fmt.Printf("%s\t%s\t%s\t%s\n", r.ID, r.UID, r.ProblemID, r.Status)
				}
				return nil
			})
		},
	}
}

func plagiarismCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plagiarism <tid> <url>",
		Short: "Attach a plagiarism report url to a contest",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			tid, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withApp(func(ctx context.Context, a *app.App) error {
				return a.Batch.SavePlagiarismResult(ctx, tid, args[1])
			})
		},
	}
}

func exportCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export <tid>",
		Short: "Write every contestant's latest code into a zip archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tid, err := parseID(args[0])
			if err != nil {
				return err
			}
			if out == "" {
				out = fmt.Sprintf("contest-%s.zip", tid)
			}
			return withApp(func(ctx context.Context, a *app.App) error {
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				written, skipped, err := a.Batch.ExportCode(ctx, tid, f)
				if cerr := f.Close(); err == nil {
					err = cerr
				}
				if err != nil {
					return err
				}
				fmt.Printf("wrote %d files to %s, skipped %d\n", written, out, skipped)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output path")
	return cmd
}

func rejudgeCmd() *cobra.Command {
	var noEnqueue bool
	cmd := &cobra.Command{
		Use:   "rejudge <rid>...",
		Short: "Reset records to waiting and send them back to the judges",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]uuid.UUID, 0, len(args))
			for _, arg := range args {
				id, err := parseID(arg)
				if err != nil {
					return err
				}
				ids = append(ids, id)
			}
			return withApp(func(ctx context.Context, a *app.App) error {
				var failed []string
				for _, id := range ids {
					if _, err := a.Judge.Rejudge(ctx, id, !noEnqueue); err != nil {
						slog.Error("rejudge failed", "rid", id, "error", err)
						failed = append(failed, id.String())
					}
				}
				if len(failed) > 0 {
					return fmt.Errorf("rejudge failed for %s", strings.Join(failed, ", "))
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&noEnqueue, "no-enqueue", false, "Only reset the records")
	return cmd
}

func recalcCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recalc <tid>",
		Short: "Re-derive every standing of a contest from its journal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tid, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withApp(func(ctx context.Context, a *app.App) error {
				n, err := a.Standings.Recalc(ctx, tid)
				if err != nil {
					return err
				}
				fmt.Printf("recalculated %d standings\n", n)
				return nil
			})
		},
	}
}
