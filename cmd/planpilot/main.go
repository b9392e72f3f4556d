// Package main is the entry point for the planpilot CLI.
// Planpilot judges student task plans: weekly feasibility, downgrade
// suggestions for repeatedly missed tasks, an overthinking guard, and a
// weekly reflection, each backed by a chain of free-tier text providers.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jmarlow/planpilot/internal/analysis"
	"github.com/jmarlow/planpilot/internal/config"
	"github.com/jmarlow/planpilot/internal/llm"
	"github.com/jmarlow/planpilot/internal/logging"
	"github.com/jmarlow/planpilot/internal/orchestrator"
	"github.com/jmarlow/planpilot/internal/server"
)

var (
	version = "0.1.0"
	cfgPath string
	verbose bool
	jsonOut bool
	log     *logging.Logger
)

// Output styles, tokyo-night palette.
var (
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#9ece6a")).Bold(true)
	badStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#f7768e")).Bold(true)
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#e0af68"))
	headStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#7aa2f7")).Bold(true)
	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#565f89"))
	textStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#c0caf5"))
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "planpilot",
		Short: "Planpilot - rule-augmented AI analysis for student task plans",
		Long: `Planpilot analyzes a student's weekly task plan. Deterministic rules
compute the verdicts; a chain of free-tier AI providers writes the prose,
falling back to canned guidance when none of them answer.

Run the HTTP API:        planpilot serve
Check a week:            planpilot check feasibility --task "monday:thesis chapter:9"
Missed-task downgrade:   planpilot check downgrade --name "morning run" --difficulty hard --missed 3
Overthinking guard:      planpilot check overthinking --edits 10
Weekly reflection:       planpilot reflect --line "completed 4 of 7 tasks"
Provider availability:   planpilot providers`,
		PersistentPreRunE: initLogging,
		SilenceUsage:      true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file path (default ~/.planpilot/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "print results as JSON")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("planpilot v%s\n", version)
		},
	})

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(checkCmd())
	rootCmd.AddCommand(reflectCmd())
	rootCmd.AddCommand(providersCmd())
	rootCmd.AddCommand(configCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// SETUP
// ═══════════════════════════════════════════════════════════════════════════════

func initLogging(cmd *cobra.Command, args []string) error {
	cfg := logging.DefaultConfig()
	if verbose {
		cfg = logging.VerboseConfig()
	}
	log = logging.New(cfg)
	logging.SetGlobal(log)

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	zlog.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	lipgloss.SetColorProfile(termenv.ColorProfile())

	loadEnvFile()
	return nil
}

// loadEnvFile loads provider API keys from ~/.planpilot/.env into the process
// environment so credentials never have to live in the config file.
func loadEnvFile() {
	home, err := os.UserHomeDir()
	if err != nil {
		return
	}

	data, err := os.ReadFile(filepath.Join(home, ".planpilot", ".env"))
	if err != nil {
		return
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if idx := strings.Index(line, "="); idx > 0 {
			key := strings.TrimSpace(line[:idx])
			value := strings.Trim(strings.TrimSpace(line[idx+1:]), `"'`)
			if os.Getenv(key) == "" && value != "" {
				os.Setenv(key, value)
				if log != nil {
					log.Debug("[Env] Loaded %s from .env file", key)
				}
			}
		}
	}
}

func loadConfig() (*config.Config, error) {
	if cfgPath != "" {
		return config.LoadFromPath(cfgPath)
	}
	return config.Load()
}

// buildEngine assembles the provider fleet, orchestrator and analysis engine
// from the effective configuration.
func buildEngine() (*analysis.Engine, *orchestrator.Orchestrator, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	fleet, err := llm.FromServiceConfig(cfg)
	if err != nil {
		return nil, nil, err
	}

	orch := orchestrator.New(fleet, cfg.LLM.PreferredProvider, log)
	return analysis.NewEngine(orch, log), orch, nil
}

func printJSON(v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(raw))
	return nil
}

// ═══════════════════════════════════════════════════════════════════════════════
// SERVE COMMAND
// ═══════════════════════════════════════════════════════════════════════════════

func serveCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the planpilot HTTP API",
		Long: `Start the HTTP API server. Endpoints:

  POST /v1/analysis/feasibility    weekly plan feasibility
  POST /v1/analysis/downgrade      lighter alternative for a missed task
  POST /v1/analysis/overthinking   plan-fiddling guard
  POST /v1/analysis/reflection     weekly reflection
  GET  /v1/providers               provider order and availability
  GET  /v1/status                  service identity and uptime
  GET  /healthz                    liveness probe
  GET  /metrics                    Prometheus metrics`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if port != 0 {
				cfg.Server.Port = port
			}

			fleet, err := llm.FromServiceConfig(cfg)
			if err != nil {
				return err
			}
			orch := orchestrator.New(fleet, cfg.LLM.PreferredProvider, log)
			engine := analysis.NewEngine(orch, log)

			if names := llm.AvailableProviders(cfg); len(names) == 0 {
				zlog.Warn().Msg("No provider credentials configured; analysis runs on canned fallbacks only")
			} else {
				zlog.Info().Strs("providers", names).Msg("Provider credentials found")
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			zlog.Info().Str("version", version).Int("port", cfg.Server.Port).Msg("planpilot starting")
			srv := server.New(cfg, engine, orch, version, log)
			if err := srv.Start(ctx); err != nil {
				return err
			}

			zlog.Info().Msg("planpilot stopped")
			return nil
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "listen port (overrides config)")
	return cmd
}

// ═══════════════════════════════════════════════════════════════════════════════
// CHECK COMMANDS
// ═══════════════════════════════════════════════════════════════════════════════

func checkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run one analysis from the command line",
	}

	cmd.AddCommand(checkFeasibilityCmd())
	cmd.AddCommand(checkDowngradeCmd())
	cmd.AddCommand(checkOverthinkingCmd())
	return cmd
}

func checkFeasibilityCmd() *cobra.Command {
	var (
		taskFlags []string
		mood      string
	)

	cmd := &cobra.Command{
		Use:   "feasibility",
		Short: "Judge whether the planned week is doable",
		Long: `Judge a week of tasks. Each --task is "day:name" or "day:name:points".

Examples:
  planpilot check feasibility --task "monday:thesis chapter:9" --task "tuesday:gym"
  planpilot check feasibility --task "friday:exam prep:7" --mood tired`,
		RunE: func(cmd *cobra.Command, args []string) error {
			tasks, err := parseTaskFlags(taskFlags)
			if err != nil {
				return err
			}

			engine, _, err := buildEngine()
			if err != nil {
				return err
			}

			result, err := engine.CheckFeasibility(cmd.Context(), &analysis.FeasibilityInput{
				Tasks: tasks,
				Mood:  mood,
			})
			if err != nil {
				return err
			}

			if jsonOut {
				return printJSON(result)
			}
			printFeasibility(result)
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&taskFlags, "task", nil, `planned task as "day:name[:points]" (repeatable)`)
	cmd.Flags().StringVar(&mood, "mood", "", "current mood (tired and stressed add a warning)")
	return cmd
}

// parseTaskFlags converts "day:name[:points]" flags into tasks.
func parseTaskFlags(raw []string) ([]analysis.Task, error) {
	tasks := make([]analysis.Task, 0, len(raw))
	for _, flag := range raw {
		parts := strings.SplitN(flag, ":", 3)
		if len(parts) < 2 || strings.TrimSpace(parts[0]) == "" || strings.TrimSpace(parts[1]) == "" {
			return nil, fmt.Errorf("invalid --task %q, want \"day:name[:points]\"", flag)
		}

		task := analysis.Task{
			Day:  strings.TrimSpace(parts[0]),
			Name: strings.TrimSpace(parts[1]),
		}
		if len(parts) == 3 {
			points, err := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
			if err != nil {
				return nil, fmt.Errorf("invalid points in --task %q: %w", flag, err)
			}
			task.Points = points
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

func printFeasibility(result *analysis.FeasibilityResult) {
	verdict := okStyle.Render("FEASIBLE")
	if !result.Feasible {
		verdict = badStyle.Render("NOT FEASIBLE")
	}
	fmt.Printf("%s  average daily load %.1f, %d free day(s)\n",
		verdict, result.AverageLoad, result.FreeDays)

	if len(result.HeavyDays) > 0 {
		fmt.Printf("%s %s\n", headStyle.Render("Heavy days:"), strings.Join(result.HeavyDays, ", "))
	}
	for _, warning := range result.Warnings {
		fmt.Printf("  %s %s\n", warnStyle.Render("!"), warning)
	}

	fmt.Println()
	fmt.Println(textStyle.Render(result.Analysis))
	if len(result.Suggestions) > 0 {
		fmt.Println()
		fmt.Println(headStyle.Render("Suggestions:"))
		for _, suggestion := range result.Suggestions {
			fmt.Printf("  • %s\n", suggestion)
		}
	}
	printFallbackNote(result.FallbackMode)
}

func checkDowngradeCmd() *cobra.Command {
	var (
		name       string
		difficulty string
		missed     int
	)

	cmd := &cobra.Command{
		Use:   "downgrade",
		Short: "Suggest a lighter alternative for a repeatedly missed task",
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" {
				return fmt.Errorf("--name is required")
			}

			engine, _, err := buildEngine()
			if err != nil {
				return err
			}

			result := engine.SuggestTaskDowngrade(cmd.Context(), &analysis.DowngradeInput{
				TaskName:    name,
				Difficulty:  difficulty,
				MissedCount: missed,
			})

			if jsonOut {
				return printJSON(result)
			}

			if result.ShouldDowngrade {
				fmt.Printf("%s  missed %d time(s), threshold is %d\n",
					badStyle.Render("DOWNGRADE SUGGESTED"), missed, analysis.EscalationThreshold(difficulty))
			} else {
				fmt.Printf("%s  missed %d time(s), threshold is %d\n",
					okStyle.Render("KEEP GOING"), missed, analysis.EscalationThreshold(difficulty))
			}
			fmt.Printf("%s %s\n", headStyle.Render("Rule-based:"), result.RuleBased)
			if result.AIAlternative != "" {
				fmt.Printf("%s %s\n", headStyle.Render("AI suggests:"), result.AIAlternative)
			}
			printFallbackNote(result.FallbackMode)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "task name (required)")
	cmd.Flags().StringVar(&difficulty, "difficulty", "medium", "task difficulty: hard, medium or easy")
	cmd.Flags().IntVar(&missed, "missed", 0, "how many times the task was missed")
	return cmd
}

func checkOverthinkingCmd() *cobra.Command {
	var (
		edits    int
		inactive int
	)

	cmd := &cobra.Command{
		Use:   "overthinking",
		Short: "Check whether plan editing has replaced doing",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, _, err := buildEngine()
			if err != nil {
				return err
			}

			result := engine.CheckOverthinking(cmd.Context(), &analysis.OverthinkingInput{
				EditCount:    edits,
				DaysInactive: inactive,
			})

			if jsonOut {
				return printJSON(result)
			}

			if !result.Triggered {
				fmt.Println(okStyle.Render("ALL CLEAR") + "  plan activity looks healthy")
				return nil
			}

			fmt.Printf("%s  severity: %s\n", severityStyle(result.Severity).Render("TRIGGERED"), result.Severity)
			fmt.Println(textStyle.Render(result.Message))
			printFallbackNote(result.FallbackMode)
			return nil
		},
	}

	cmd.Flags().IntVar(&edits, "edits", 0, "plan edits since the last completed task")
	cmd.Flags().IntVar(&inactive, "inactive", 0, "days since the last completed task")
	return cmd
}

func severityStyle(severity analysis.Severity) lipgloss.Style {
	switch severity {
	case analysis.SeverityCritical, analysis.SeveritySevere:
		return badStyle
	default:
		return warnStyle
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// REFLECT COMMAND
// ═══════════════════════════════════════════════════════════════════════════════

func reflectCmd() *cobra.Command {
	var lines []string

	cmd := &cobra.Command{
		Use:   "reflect",
		Short: "Write the weekly reflection",
		Long: `Write a four-section weekly reflection from short facts about the week.

Example:
  planpilot reflect --line "completed 4 of 7 tasks" --line "missed gym twice"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, _, err := buildEngine()
			if err != nil {
				return err
			}

			result := engine.GenerateWeeklyReflection(cmd.Context(), &analysis.ReflectionInput{
				Lines: lines,
			})

			if jsonOut {
				return printJSON(result)
			}

			printReflectionSection("What went well", result.WhatWentWell)
			printReflectionSection("What went wrong", result.WhatWentWrong)
			printReflectionSection("Possible reasons", result.PossibleReasons)
			printReflectionSection("Suggestions", result.Suggestions)
			printFallbackNote(result.FallbackMode)
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&lines, "line", nil, "one fact about the week (repeatable)")
	return cmd
}

func printReflectionSection(title string, items []string) {
	fmt.Println(headStyle.Render(title + ":"))
	if len(items) == 0 {
		fmt.Println(dimStyle.Render("  (nothing)"))
		return
	}
	for _, item := range items {
		fmt.Printf("  • %s\n", item)
	}
}

func printFallbackNote(fallback bool) {
	if fallback {
		fmt.Println(dimStyle.Render("(no provider reachable, canned guidance shown)"))
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// PROVIDERS COMMAND
// ═══════════════════════════════════════════════════════════════════════════════

func providersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "Show provider order, models and credential availability",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			fleet, err := llm.FromServiceConfig(cfg)
			if err != nil {
				return err
			}
			orch := orchestrator.New(fleet, cfg.LLM.PreferredProvider, log)

			if jsonOut {
				return printJSON(orch.Status())
			}

			fmt.Println(headStyle.Render("Providers (in call order):"))
			for _, status := range orch.Status() {
				marker := okStyle.Render("●")
				note := "ready"
				if !status.Available {
					marker = dimStyle.Render("○")
					note = "no credential"
				}
				provider := cfg.Provider(status.Name)
				fmt.Printf("  %s %-12s %-40s %s\n",
					marker, status.Name, provider.Model, dimStyle.Render(note))
			}
			return nil
		},
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// CONFIG COMMANDS
// ═══════════════════════════════════════════════════════════════════════════════

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			fmt.Println("Planpilot Configuration:")
			fmt.Println("────────────────────────")
			fmt.Printf("Listen:             %s:%d\n", cfg.Server.Host, cfg.Server.Port)
			fmt.Printf("Log level:          %s\n", cfg.Logging.Level)
			fmt.Printf("Preferred provider: %s\n", orDefault(cfg.LLM.PreferredProvider, "(default order)"))
			for _, name := range config.DefaultProviderOrder() {
				provider := cfg.Provider(name)
				fmt.Printf("  %-12s model=%s timeout=%ds\n", name, provider.Model, provider.TimeoutSec)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show the configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.DefaultPath()
			if err != nil {
				return err
			}
			fmt.Println(path)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create the config file with defaults if it does not exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := loadConfig(); err != nil {
				return err
			}
			path := cfgPath
			if path == "" {
				var err error
				if path, err = config.DefaultPath(); err != nil {
					return err
				}
			}
			fmt.Printf("Config ready at %s\n", path)
			return nil
		},
	})

	return cmd
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
