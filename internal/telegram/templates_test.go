package telegram

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"breakcode4d/internal/api"
	"breakcode4d/internal/database"
	"breakcode4d/internal/predictor"
	"breakcode4d/internal/service"
)

var testBase = database.Base{
	database.PositionPick("12345"),
	database.PositionPick("67890"),
	database.PositionPick("13579"),
	database.PositionPick("02468"),
}

func TestParseArgs(t *testing.T) {
	opts := parseArgs([]string{"Gap", "30", "12", "random", "rtl"})
	assert.Equal(t, "gap", opts.strategy)
	assert.Equal(t, 30, opts.recentN)
	assert.Equal(t, 12, opts.count)
	assert.True(t, opts.sampled)
	assert.Equal(t, predictor.RightToLeft, opts.direction)

	opts = parseArgs(nil)
	assert.Equal(t, commandArgs{}, opts)

	opts = parseArgs([]string{"15"})
	assert.Equal(t, "", opts.strategy)
	assert.Equal(t, 15, opts.recentN)
	assert.Equal(t, 0, opts.count)
}

func TestFormatBaseMessage(t *testing.T) {
	msg := formatBaseMessage(&predictor.StrategyResult{Strategy: "hybrid", RecentN: 20, Base: testBase})
	assert.Contains(t, msg, "`hybrid` (recent 20)")
	assert.Contains(t, msg, "Pick 1: 1 2 3 4 5\n")
	assert.Contains(t, msg, "Pick 4: 0 2 4 6 8\n")
}

func TestFormatPredictionsMessage_TwoColumns(t *testing.T) {
	res := &predictor.StrategyResult{Strategy: "gap", RecentN: 10, Base: testBase}
	msg := formatPredictionsMessage(res, []string{"1111", "2222", "3333", "4444", "5555"})

	assert.Contains(t, msg, "*5 Predictions*")
	assert.Contains(t, msg, "1111    4444\n")
	assert.Contains(t, msg, "2222    5555\n")
	assert.Contains(t, msg, "3333\n")
}

func TestFormatBacktestMessage(t *testing.T) {
	report := &predictor.Report{
		Strategy:  "frequency",
		RecentN:   20,
		Direction: predictor.LeftToRight,
		Rounds:    2,
		Rows: []predictor.BacktestRow{
			{
				Date:         time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC),
				ActualNumber: "1234",
				PositionHits: [database.Positions]bool{true, false, true, false},
				HitCount:     2,
				ExactHit:     true,
			},
		},
		Skipped:     1,
		TotalRows:   1,
		TotalHits:   2,
		RowsWithHit: 1,
		ExactHits:   1,
	}

	msg := formatBacktestMessage(report)
	assert.Contains(t, msg, "2024-05-02 1234 P1:✅ P2:❌ P3:✅ P4:❌ hits=2 🎯")
	assert.Contains(t, msg, "Position hits: `2/4` (50.0%)")
	assert.Contains(t, msg, "Exact hits: `1`")

	empty := formatBacktestMessage(&predictor.Report{Strategy: "gap", Skipped: 3})
	assert.Contains(t, empty, "Not enough draws to backtest (3 rounds skipped)")
}

func TestFormatInsightMessage(t *testing.T) {
	in := &predictor.Insight{
		Date:     time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC),
		Number:   "1566",
		Odd:      2,
		Even:     2,
		Repeated: []byte("6"),
	}
	in.Digits[0] = predictor.DigitInsight{Position: 0, Digit: '1', Rank: 1, InBase: true, InCross: true, Label: predictor.LabelStrong}

	msg := formatInsightMessage(in)
	assert.Contains(t, msg, "*1566* on 2024-05-02")
	assert.Contains(t, msg, "Pick 1: digit '1' rank #1, base ✅, cross ✅ → *🔥 strong*")
	assert.Contains(t, msg, "Repeated digits: 6")

	assert.NotContains(t, msg, "📈")

	in.RecentWindow = 30
	in.Digits[0].RecentHits = 4
	assert.Contains(t, formatInsightMessage(in), "*🔥 strong* 📈 in 4 of last 30 draws\n")

	in.Repeated = nil
	assert.Contains(t, formatInsightMessage(in), "No repeated digits.")
}

func TestFormatUpdateMessage(t *testing.T) {
	res := &service.UpdateResult{
		Backfill: &api.BackfillSummary{Added: 2, Skipped: 1},
		Bases:    []predictor.StrategyResult{{Strategy: "gap", RecentN: 20, Base: testBase}},
		Failures: map[string]error{"qaisara": errors.New("insufficient data")},
	}

	msg := formatUpdateMessage(res)
	assert.Contains(t, msg, "✔ 2 new draws added. (1 dates unavailable)")
	assert.Contains(t, msg, "`gap`")
	assert.Contains(t, msg, "⚠️ qaisara: insufficient data")
}

func TestFormatStatusMessage(t *testing.T) {
	assert.Contains(t, formatStatusMessage(&service.Status{}), "No draw data yet")

	msg := formatStatusMessage(&service.Status{
		TotalDraws: 42,
		FirstDate:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		LastDate:   time.Date(2024, 2, 11, 0, 0, 0, 0, time.UTC),
		LastNumber: "9876",
	})
	assert.Contains(t, msg, "Total draws: `42`")
	assert.Contains(t, msg, "Last date: `2024-02-11` (`9876`)")
}

func TestFormatCrossMessage(t *testing.T) {
	var cross [database.Positions][]predictor.CrossEntry
	cross[0] = []predictor.CrossEntry{{Digit: '3', Count: 7}, {Digit: '1', Count: 4}}

	msg := formatCrossMessage(cross)
	assert.Contains(t, msg, "Pick 1: 3 (7x), 1 (4x)")
}

func TestFormatErrorMessage(t *testing.T) {
	var err error = &predictor.InsufficientDataError{Strategy: "gap", Need: 20, Have: 3}
	assert.Equal(t, "❌ Backtest failed: insufficient data for gap: need >=20 draws, have 3",
		formatErrorMessage("Backtest", err))

	_, err = predictor.ParseStrategy("foo_bar")
	assert.Equal(t, `❌ Base failed: unknown strategy: "foo\_bar"`, formatErrorMessage("Base", err))
}

// assertMarkdownBalanced 检查代码片段之外未转义的 _ 和 * 成对出现
func assertMarkdownBalanced(t *testing.T, msg string) {
	t.Helper()
	inCode := false
	underscores, stars := 0, 0
	for i := 0; i < len(msg); i++ {
		switch c := msg[i]; {
		case c == '\\' && !inCode:
			i++
		case c == '`':
			inCode = !inCode
		case c == '_' && !inCode:
			underscores++
		case c == '*' && !inCode:
			stars++
		}
	}
	assert.False(t, inCode, "unterminated code span in %q", msg)
	assert.Equal(t, 0, underscores%2, "unbalanced _ in %q", msg)
	assert.Equal(t, 0, stars%2, "unbalanced * in %q", msg)
}

func TestMessagesAreValidMarkdown(t *testing.T) {
	assertMarkdownBalanced(t, helpText)
	assertMarkdownBalanced(t, formatHelpMessage())

	errs := []error{
		fmt.Errorf("%w: gap needs recent_n >= 2, got 1", predictor.ErrInvalidWindow),
		fmt.Errorf("%w: %q", predictor.ErrUnknownStrategy, "foo_bar"),
		errors.New("bad *pattern* with `tick` and [link"),
	}
	for _, err := range errs {
		assertMarkdownBalanced(t, formatErrorMessage("Base", err))
	}

	assertMarkdownBalanced(t, formatUpdateMessage(&service.UpdateResult{
		Failures: map[string]error{"odd_name": errors.New("needs recent_n >= 2")},
	}))
	assertMarkdownBalanced(t, formatBaseMessage(&predictor.StrategyResult{Strategy: "frequency-weighted", Base: testBase}))
}

func TestFormatHelpMessage(t *testing.T) {
	msg := formatHelpMessage()
	assert.Contains(t, msg, "/tune")
	assert.Contains(t, msg, "`[strategy] [recent_n]`")
	assert.Contains(t, msg, "1. "+predictor.SystemSuggestions[0])
}

func TestFormatTuneMessage(t *testing.T) {
	res := &predictor.StrategyResult{
		Strategy: predictor.TunerName,
		RecentN:  30,
		Base: database.Base{
			database.PositionPick("2468"),
			database.PositionPick{},
			database.PositionPick("579"),
			database.PositionPick("0"),
		},
	}

	msg := formatTuneMessage(res)
	assert.Contains(t, msg, "(recent 30, even or 5/7/9 only)")
	assert.Contains(t, msg, "Tuned Pick 1: 2 4 6 8\n")
	assert.Contains(t, msg, "Tuned Pick 2: -\n")
	assert.Contains(t, msg, "Tuned Pick 3: 5 7 9\n")
	assertMarkdownBalanced(t, msg)
}
