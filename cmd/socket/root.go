package main

import (
	"fmt"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"socket/internal/journal"
	"socket/internal/logging"
	"socket/internal/pipeline"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	ctx := newCommandContext(&configFlag)

	var (
		appStore     bool
		codeSign     bool
		entitlements bool
		notarize     bool
		onlyBuild    bool
		doPackage    bool
		runAfter     bool
		noDebug      bool
	)

	rootCmd := &cobra.Command{
		Use:   "socket <project-dir>",
		Short: "Package a webview app for the host platform",
		Long: "Socket builds, packages, signs, and notarizes a webview-hosted native app\n" +
			"from a project's settings.config file. The target platform is always the\n" +
			"host platform.",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}

			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			var pipeOpts []pipeline.Option
			if notarize {
				store, journalErr := journal.Open(cfg.JournalPath())
				if journalErr != nil {
					logger.Warn("notarization journal unavailable", logging.Error(journalErr))
				} else {
					defer store.Close()
					pipeOpts = append(pipeOpts, pipeline.WithRecorder(store))
				}
			}

			pipe := pipeline.New(cfg, logger, pipeOpts...)
			report, runErr := pipe.Run(cmd.Context(), pipeline.Options{
				ProjectRoot:  args[0],
				AppStore:     appStore,
				CodeSign:     codeSign || appStore,
				Entitlements: entitlements,
				Notarize:     notarize,
				OnlyBuild:    onlyBuild,
				Package:      doPackage,
				Run:          runAfter,
				Debug:        !noDebug,
			})
			printSummary(cmd, report)
			return runErr
		},
	}

	rootCmd.Flags().BoolVarP(&appStore, "app-store", "b", false, "Sign for Mac App Store submission (macOS)")
	rootCmd.Flags().BoolVarP(&codeSign, "codesign", "c", false, "Code-sign the build output")
	rootCmd.Flags().BoolVarP(&entitlements, "entitlements", "e", false, "Apply the project's entitlements file when signing (macOS)")
	rootCmd.Flags().BoolVarP(&notarize, "notarize", "n", false, "Notarize the packaged archive (macOS)")
	rootCmd.Flags().BoolVarP(&onlyBuild, "only-build", "o", false, "Reuse the previous build output where possible")
	rootCmd.Flags().BoolVarP(&doPackage, "package", "p", false, "Assemble the distributable package")
	rootCmd.Flags().BoolVarP(&runAfter, "run", "r", false, "Launch the application after the build")
	rootCmd.Flags().BoolVar(&noDebug, "no-debug", false, "Build in release mode")
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "Tool configuration file path")

	rootCmd.AddCommand(newDoctorCommand(ctx))
	rootCmd.AddCommand(newNotaryCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))
	rootCmd.AddCommand(newTestNotifyCommand(ctx))

	return rootCmd
}

// printSummary writes the per-step run report: a table on interactive
// terminals, plain lines otherwise.
func printSummary(cmd *cobra.Command, report *pipeline.Report) {
	if report == nil || len(report.Steps) == 0 {
		return
	}
	out := cmd.OutOrStdout()

	if isTerminal(os.Stdout) {
		rows := make([][]string, 0, len(report.Steps))
		for _, step := range report.Steps {
			rows = append(rows, []string{
				step.Name,
				string(step.Status),
				formatDuration(step.Duration),
				step.Detail,
			})
		}
		fmt.Fprintln(out, renderTable(
			[]string{"Step", "Status", "Duration", "Detail"},
			rows,
			[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
		))
	} else {
		for _, step := range report.Steps {
			fmt.Fprintf(out, "%-14s %-8s %8s  %s\n",
				step.Name, step.Status, formatDuration(step.Duration), step.Detail)
		}
	}

	if report.Artifact != "" {
		fmt.Fprintf(out, "Artifact: %s\n", report.Artifact)
	}
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	return d.Round(time.Millisecond).String()
}

func isTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
