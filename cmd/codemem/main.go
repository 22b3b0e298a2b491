// Package main provides the CLI entrypoint for codemem.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/codemem/internal/config"
	"github.com/verte-zerg/codemem/internal/generator"
	"github.com/verte-zerg/codemem/internal/ledger"
	"github.com/verte-zerg/codemem/internal/metrics"
	"github.com/verte-zerg/codemem/internal/model"
	"github.com/verte-zerg/codemem/internal/session"
	"github.com/verte-zerg/codemem/internal/stats"
	"github.com/verte-zerg/codemem/internal/statsui"
	"github.com/verte-zerg/codemem/internal/store"
	"github.com/verte-zerg/codemem/internal/tui"
)

const (
	defaultTickMs      = 50
	defaultGroupSize   = 4
	defaultHistory     = true
	defaultLogLevel    = "info"
	defaultCurveWindow = 10
	maxTickMs          = 1000
)

var (
	playTickMs      int
	playGroupSize   int
	playHistory     bool
	playLogLevel    string
	playMetricsFile string

	statsSince       string
	statsLast        int
	statsCurveWindow int
	statsPlain       bool

	resetYes bool
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "codemem",
		Short:         "TUI digit memory trainer",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runPlayCmd,
	}

	rootCmd.Flags().IntVar(&playTickMs, "tick-ms", defaultTickMs, "timer refresh interval in milliseconds")
	rootCmd.Flags().IntVar(&playGroupSize, "group-size", defaultGroupSize, "digits per displayed group")
	rootCmd.Flags().BoolVar(&playHistory, "history", defaultHistory, "store every round for stats")
	rootCmd.Flags().StringVar(&playLogLevel, "log-level", defaultLogLevel, "log level (debug, info, warn, error)")
	rootCmd.Flags().StringVar(&playMetricsFile, "metrics-file", "", "write Prometheus metrics to this file on exit")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newResetCmd())

	return rootCmd
}

func runPlayCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyIntConfig(cmd, "tick-ms", &playTickMs, fileCfg.Session.TickMs)
	applyIntConfig(cmd, "group-size", &playGroupSize, fileCfg.Session.GroupSize)
	applyBoolConfig(cmd, "history", &playHistory, fileCfg.Session.History)
	applyStringConfig(cmd, "log-level", &playLogLevel, fileCfg.Session.LogLevel)
	applyStringConfig(cmd, "metrics-file", &playMetricsFile, fileCfg.Session.MetricsFile)

	cfg := model.Config{
		TickInterval: time.Duration(playTickMs) * time.Millisecond,
		GroupSize:    playGroupSize,
		History:      playHistory,
		LogLevel:     playLogLevel,
		MetricsFile:  playMetricsFile,
	}
	if err := validateConfig(cfg); err != nil {
		return err
	}

	log, logFile, err := openLogger(config.DefaultLogPath(), cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := logFile.Close(); cerr != nil {
			logErrf("failed to close log: %v\n", cerr)
		}
	}()

	st, err := store.Open(config.DefaultDBPath(), store.WithLogger(log.With().Str("component", "store").Logger()))
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	mgr := metrics.NewManager()
	opts := []session.Option{
		session.WithLogger(log),
		session.WithRecorder(mgr),
	}
	if cfg.History {
		opts = append(opts, session.WithRoundWriter(st))
	}
	machine := session.New(generator.New(), ledger.New(st, log.With().Str("component", "ledger").Logger()), opts...)
	if err := machine.LoadRecords(context.Background()); err != nil {
		log.Error().Err(err).Msg("failed to load best scores")
		logErrf("failed to load best scores: %v\n", err)
	}

	ui := tui.NewModel(cfg, machine)
	defer ui.Close()
	program := tea.NewProgram(ui, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}

	if cfg.MetricsFile != "" {
		if err := mgr.WriteTextfile(cfg.MetricsFile); err != nil {
			return err
		}
	}
	return nil
}

func openLogger(path, level string) (zerolog.Logger, io.Closer, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("failed to open log: %w", err)
	}
	log := zerolog.New(f).Level(lvl).With().Timestamp().Logger()
	return log, f, nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show best scores and round history",
		Args:  cobra.NoArgs,
		RunE:  runStatsCmd,
	}
	cmd.Flags().StringVar(&statsSince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&statsLast, "last", 0, "limit to last N rounds")
	cmd.Flags().IntVar(&statsCurveWindow, "curve-window", defaultCurveWindow, "moving average window")
	cmd.Flags().BoolVar(&statsPlain, "plain", false, "print a text report instead of the TUI")
	return cmd
}

func runStatsCmd(cmd *cobra.Command, _ []string) error {
	var sinceTime *time.Time
	if statsSince != "" {
		parsed, err := time.ParseInLocation("2006-01-02", statsSince, time.Local)
		if err != nil {
			return fmt.Errorf("invalid --since value: %w", err)
		}
		sinceTime = &parsed
	}
	if statsLast < 0 {
		return fmt.Errorf("--last must be >= 0")
	}
	if statsCurveWindow < 1 {
		return fmt.Errorf("--curve-window must be >= 1")
	}
	cfg := model.StatsConfig{
		Since:       sinceTime,
		Last:        statsLast,
		CurveWindow: statsCurveWindow,
	}

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	scores := ledger.New(st, zerolog.Nop()).Load
	if !statsPlain {
		program := tea.NewProgram(statsui.NewModel(st, scores, cfg), tea.WithAltScreen())
		if _, err := program.Run(); err != nil {
			return fmt.Errorf("failed to run stats TUI: %w", err)
		}
		return nil
	}

	ctx := context.Background()
	best, err := scores(ctx)
	if err != nil {
		return err
	}
	report, err := stats.BuildReport(ctx, st, best, cfg)
	if err != nil {
		return fmt.Errorf("failed to build report: %w", err)
	}
	if err := report.Render(cmd.OutOrStdout(), stats.TerminalWidth()); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func newResetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Clear all best scores",
		Args:  cobra.NoArgs,
		RunE:  runResetCmd,
	}
	cmd.Flags().BoolVarP(&resetYes, "yes", "y", false, "skip confirmation")
	return cmd
}

func runResetCmd(cmd *cobra.Command, _ []string) error {
	if !resetYes {
		ok, err := confirm(cmd.InOrStdin(), cmd.ErrOrStderr(), "Reset all best scores? [y/N] ")
		if err != nil {
			return err
		}
		if !ok {
			logErrln("Aborted.")
			return nil
		}
	}

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	if err := ledger.New(st, zerolog.Nop()).Clear(context.Background()); err != nil {
		return err
	}
	logErrln("Best scores cleared.")
	return nil
}

func confirm(in io.Reader, out io.Writer, prompt string) (bool, error) {
	if _, err := fmt.Fprint(out, prompt); err != nil {
		return false, fmt.Errorf("failed to write prompt: %w", err)
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("failed to read answer: %w", err)
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyBoolConfig(cmd *cobra.Command, name string, target, value *bool) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# codemem configuration
# Uncomment a value to enable it. CLI flags override config values.

[session]
# tick-ms = %d            # Timer refresh interval in milliseconds (1-%d)
# group-size = %d          # Digits per displayed group (1-%d)
# history = %t          # Store every round for stats
# log-level = %q     # debug, info, warn, error
# metrics-file = ""       # Write Prometheus metrics here on exit
`,
		defaultTickMs,
		maxTickMs,
		defaultGroupSize,
		model.SequenceLength,
		defaultHistory,
		defaultLogLevel,
	)
}

func validateConfig(cfg model.Config) error {
	tickMs := cfg.TickInterval.Milliseconds()
	if tickMs < 1 || tickMs > maxTickMs {
		return fmt.Errorf("--tick-ms must be between 1 and %d", maxTickMs)
	}
	if cfg.GroupSize < 1 || cfg.GroupSize > model.SequenceLength {
		return fmt.Errorf("--group-size must be between 1 and %d", model.SequenceLength)
	}
	if _, err := zerolog.ParseLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("--log-level: %w", err)
	}
	return nil
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

func logErrln(args ...any) {
	if _, err := fmt.Fprintln(os.Stderr, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
