package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"breakcode4d/internal/database"
	"breakcode4d/internal/predictor"
)

const defaultConfigPath = "configs/config.yaml"

var (
	configPath string
	strategy   string
	recentN    int
	asJSON     bool
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "breakcode4d",
		Short: "4D draw history, base digits and backtests",
		Long: `breakcode4d keeps a history of 4D first-prize draws, derives per-position
"base" digit sets with several heuristic strategies, enumerates candidate
numbers from a base and replays history to measure how often each strategy
would have covered the drawn digits.

The strategies are digit statistics only and make no predictive claim.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath, "Path to configuration file")

	root.AddCommand(
		newUpdateCmd(),
		newBaseCmd(),
		newPredictCmd(),
		newBacktestCmd(),
		newInsightCmd(),
		newTuneCmd(),
		newCrossCmd(),
		newStatusCmd(),
		newBotCmd(),
	)
	return root
}

// withApp 为子命令创建并关闭 App
func withApp(fn func(cmd *cobra.Command, app *App, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		app, err := NewApp(configPath)
		if err != nil {
			return err
		}
		defer app.Close()
		return fn(cmd, app, args)
	}
}

func addStrategyFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&strategy, "strategy", "s", "", "Strategy: frequency, frequency-weighted, gap, hybrid, qaisara, smartpattern (default from config)")
	cmd.Flags().IntVarP(&recentN, "recent", "n", 0, "Number of most recent draws to score (default from config)")
}

func newUpdateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update",
		Short: "Fetch missing draws and regenerate every configured base",
		RunE: withApp(func(cmd *cobra.Command, app *App, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			res, err := app.service.Update(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if res.Backfill != nil {
				fmt.Fprintln(out, res.Backfill.Message())
			}
			for _, r := range res.Bases {
				printBase(out, &r)
			}
			names := make([]string, 0, len(res.Failures))
			for name := range res.Failures {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Fprintf(out, "⚠️  %s: %v\n", name, res.Failures[name])
			}
			return nil
		}),
	}
}

func newBaseCmd() *cobra.Command {
	var save bool
	cmd := &cobra.Command{
		Use:   "base",
		Short: "Generate a base for one strategy",
		RunE: withApp(func(cmd *cobra.Command, app *App, _ []string) error {
			res, err := app.service.GenerateBase(strategy, recentN, save)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			printBase(cmd.OutOrStdout(), res)
			return nil
		}),
	}
	addStrategyFlags(cmd)
	cmd.Flags().BoolVar(&save, "save", true, "Overwrite the stored base for this strategy")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}

func newPredictCmd() *cobra.Command {
	var count int
	var sampled bool
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Enumerate candidate numbers from a freshly generated base",
		RunE: withApp(func(cmd *cobra.Command, app *App, _ []string) error {
			numbers, res, err := app.service.Predict(strategy, recentN, count, sampled)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			printBase(out, res)
			fmt.Fprintf(out, "\n📊 %d predictions:\n", len(numbers))
			for _, n := range numbers {
				fmt.Fprintln(out, n)
			}
			return nil
		}),
	}
	addStrategyFlags(cmd)
	cmd.Flags().IntVarP(&count, "count", "c", 0, "Number of predictions (default from config)")
	cmd.Flags().BoolVar(&sampled, "random", false, "Sample randomly instead of Cartesian product order")
	return cmd
}

func newBacktestCmd() *cobra.Command {
	var rounds int
	var direction string
	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Replay recent draws against bases computed from earlier data",
		RunE: withApp(func(cmd *cobra.Command, app *App, _ []string) error {
			dir, err := predictor.ParseDirection(direction)
			if err != nil {
				return err
			}
			report, err := app.service.Backtest(strategy, recentN, dir, rounds)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), report)
			}
			printReport(cmd.OutOrStdout(), report)
			return nil
		}),
	}
	addStrategyFlags(cmd)
	cmd.Flags().IntVarP(&rounds, "rounds", "r", 0, "Number of most recent draws to replay (default from config)")
	cmd.Flags().StringVar(&direction, "direction", "ltr", "Comparison direction: ltr or rtl")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}

func newInsightCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "insight",
		Short: "Explain the digits of the last draw before today",
		RunE: withApp(func(cmd *cobra.Command, app *App, _ []string) error {
			in, err := app.service.Insight(time.Now())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "📅 Last result %s on %s\n\n", in.Number, in.Date.Format(database.DateLayout))
			for _, d := range in.Digits {
				fmt.Fprintf(out, "Pick %d: digit '%c' rank #%d, base %s, cross %s -> %s",
					d.Position+1, d.Digit, d.Rank, yesNo(d.InBase), yesNo(d.InCross), d.Label)
				if d.Notable() {
					fmt.Fprintf(out, " 📈 in %d of last %d draws", d.RecentHits, in.RecentWindow)
				}
				fmt.Fprintln(out)
			}
			fmt.Fprintf(out, "\n%d odd / %d even", in.Odd, in.Even)
			if len(in.Repeated) > 0 {
				fmt.Fprintf(out, ", repeated: %s", strings.Join(strings.Split(string(in.Repeated), ""), ", "))
			}
			fmt.Fprintln(out)
			return nil
		}),
	}
}

func newTuneCmd() *cobra.Command {
	var suggest bool
	cmd := &cobra.Command{
		Use:   "tune",
		Short: "Keep only even and 5/7/9 digits of the weighted base over the last 30 draws",
		RunE: withApp(func(cmd *cobra.Command, app *App, _ []string) error {
			res, err := app.service.Tune()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			printTune(out, res)
			if suggest {
				fmt.Fprintln(out, "\n💡 Suggestions:")
				for i, tip := range predictor.SystemSuggestions {
					fmt.Fprintf(out, "%d. %s\n", i+1, tip)
				}
			}
			return nil
		}),
	}
	cmd.Flags().BoolVar(&suggest, "suggest", true, "Also print usage suggestions")
	return cmd
}

func newCrossCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cross",
		Short: "Most frequent digits per position over the whole history",
		RunE: withApp(func(cmd *cobra.Command, app *App, _ []string) error {
			cross, err := app.service.CrossPick()
			if err != nil {
				return err
			}
			for p, entries := range cross {
				parts := make([]string, len(entries))
				for i, e := range entries {
					parts[i] = fmt.Sprintf("%c (%dx)", e.Digit, e.Count)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Pick %d: %s\n", p+1, strings.Join(parts, ", "))
			}
			return nil
		}),
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show draw history summary",
		RunE: withApp(func(cmd *cobra.Command, app *App, _ []string) error {
			st, err := app.service.Status()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if st.TotalDraws == 0 {
				fmt.Fprintln(out, "⚠️  No draw data yet, run 'breakcode4d update' first.")
				return nil
			}
			fmt.Fprintf(out, "📅 Last date: %s (%s) | 📊 Total draws: %d | since %s\n",
				st.LastDate.Format(database.DateLayout), st.LastNumber, st.TotalDraws,
				st.FirstDate.Format(database.DateLayout))
			return nil
		}),
	}
}

func newBotCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bot",
		Short: "Run the Telegram bot dashboard",
		RunE: withApp(func(_ *cobra.Command, app *App, _ []string) error {
			return app.RunBot()
		}),
	}
}

func printBase(out io.Writer, res *predictor.StrategyResult) {
	fmt.Fprintf(out, "📋 Base %s (recent %d)\n", res.Strategy, res.RecentN)
	for i, pick := range res.Base {
		fmt.Fprintf(out, "Pick %d: %s\n", i+1, pick)
	}
}

func printTune(out io.Writer, res *predictor.StrategyResult) {
	fmt.Fprintf(out, "🧪 Tuner (recent %d)\n", res.RecentN)
	for i, pick := range res.Base {
		line := pick.String()
		if len(pick) == 0 {
			line = "-"
		}
		fmt.Fprintf(out, "Tuned Pick %d: %s\n", i+1, line)
	}
}

func printReport(out io.Writer, report *predictor.Report) {
	fmt.Fprintf(out, "🔁 Backtest %s recent=%d direction=%s rounds=%d\n\n",
		report.Strategy, report.RecentN, report.Direction, report.Rounds)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tRESULT\tP1\tP2\tP3\tP4\tHITS\tEXACT")
	for _, row := range report.Rows {
		cols := []string{row.Date.Format(database.DateLayout), row.ActualNumber}
		for _, hit := range row.PositionHits {
			cols = append(cols, yesNo(hit))
		}
		cols = append(cols, fmt.Sprintf("%d", row.HitCount), yesNo(row.ExactHit))
		fmt.Fprintln(w, strings.Join(cols, "\t"))
	}
	w.Flush()

	fmt.Fprintf(out, "\nRows: %d  Skipped: %d\n", report.TotalRows, report.Skipped)
	fmt.Fprintf(out, "Position hits: %d/%d (%.1f%%)  per position: %v\n",
		report.TotalHits, report.TotalRows*database.Positions, report.HitRate()*100, report.PositionHits)
	fmt.Fprintf(out, "Rows with at least one hit: %d/%d\n", report.RowsWithHit, report.TotalRows)
	if report.ExactHits > 0 {
		fmt.Fprintf(out, "🎉 Exact hits: %d\n", report.ExactHits)
	}
}

func writeJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func yesNo(ok bool) string {
	if ok {
		return "✅"
	}
	return "❌"
}
