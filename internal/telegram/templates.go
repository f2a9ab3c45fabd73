package telegram

import (
	"fmt"
	"sort"
	"strings"

	"breakcode4d/internal/database"
	"breakcode4d/internal/predictor"
	"breakcode4d/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const hitMark, missMark = "✅", "❌"

// formatStatusMessage 格式化数据概况
func formatStatusMessage(st *service.Status) string {
	if st.TotalDraws == 0 {
		return "⚠️ No draw data yet. Send /update to start."
	}
	var builder strings.Builder
	builder.WriteString("📅 *Draw History*\n\n")
	builder.WriteString(fmt.Sprintf("Total draws: `%d`\n", st.TotalDraws))
	builder.WriteString(fmt.Sprintf("First date: `%s`\n", st.FirstDate.Format(database.DateLayout)))
	builder.WriteString(fmt.Sprintf("Last date: `%s` (`%s`)\n", st.LastDate.Format(database.DateLayout), st.LastNumber))
	return builder.String()
}

// formatUpdateMessage 格式化更新结果
func formatUpdateMessage(res *service.UpdateResult) string {
	var builder strings.Builder
	if res.Backfill != nil {
		builder.WriteString(res.Backfill.Message())
		if res.Backfill.Skipped > 0 {
			builder.WriteString(fmt.Sprintf(" (%d dates unavailable)", res.Backfill.Skipped))
		}
		builder.WriteString("\n\n")
	}

	for _, r := range res.Bases {
		builder.WriteString(formatBaseMessage(&r))
		builder.WriteString("\n")
	}

	if len(res.Failures) > 0 {
		names := make([]string, 0, len(res.Failures))
		for name := range res.Failures {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			builder.WriteString(fmt.Sprintf("⚠️ %s: %s\n", escape(name), escape(res.Failures[name].Error())))
		}
	}
	return strings.TrimRight(builder.String(), "\n")
}

// formatBaseMessage 格式化base，便于复制
func formatBaseMessage(res *predictor.StrategyResult) string {
	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("📋 *Base* `%s` (recent %d)\n", res.Strategy, res.RecentN))
	builder.WriteString("```\n")
	for i, pick := range res.Base {
		builder.WriteString(fmt.Sprintf("Pick %d: %s\n", i+1, pick))
	}
	builder.WriteString("```\n")
	return builder.String()
}

// formatPredictionsMessage 两列显示号码
func formatPredictionsMessage(res *predictor.StrategyResult, numbers []string) string {
	var builder strings.Builder
	builder.WriteString(formatBaseMessage(res))
	builder.WriteString(fmt.Sprintf("\n📊 *%d Predictions*\n```\n", len(numbers)))
	half := (len(numbers) + 1) / 2
	for i := 0; i < half; i++ {
		line := numbers[i]
		if j := i + half; j < len(numbers) {
			line += "    " + numbers[j]
		}
		builder.WriteString(line + "\n")
	}
	builder.WriteString("```")
	return builder.String()
}

// formatBacktestMessage 格式化回测报告
func formatBacktestMessage(report *predictor.Report) string {
	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("🔁 *Backtest* `%s` recent %d, %s, %d rounds\n\n",
		report.Strategy, report.RecentN, report.Direction, report.Rounds))

	if report.TotalRows == 0 {
		builder.WriteString(fmt.Sprintf("❗ Not enough draws to backtest (%d rounds skipped)", report.Skipped))
		return builder.String()
	}

	builder.WriteString("```\n")
	for _, row := range report.Rows {
		marks := make([]string, len(row.PositionHits))
		for p, hit := range row.PositionHits {
			marks[p] = fmt.Sprintf("P%d:%s", p+1, mark(hit))
		}
		line := fmt.Sprintf("%s %s %s hits=%d", row.Date.Format(database.DateLayout), row.ActualNumber,
			strings.Join(marks, " "), row.HitCount)
		if row.ExactHit {
			line += " 🎯"
		}
		builder.WriteString(line + "\n")
	}
	builder.WriteString("```\n")

	builder.WriteString(fmt.Sprintf("Rows: `%d`  Skipped: `%d`\n", report.TotalRows, report.Skipped))
	builder.WriteString(fmt.Sprintf("Position hits: `%d/%d` (%.1f%%)\n",
		report.TotalHits, report.TotalRows*database.Positions, report.HitRate()*100))
	builder.WriteString(fmt.Sprintf("Rows with a hit: `%d/%d`\n", report.RowsWithHit, report.TotalRows))
	if report.ExactHits > 0 {
		builder.WriteString(fmt.Sprintf("🎉 Exact hits: `%d`\n", report.ExactHits))
	}
	return strings.TrimRight(builder.String(), "\n")
}

// formatInsightMessage 格式化最新号码分析
func formatInsightMessage(in *predictor.Insight) string {
	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("📌 Last result *%s* on %s\n\n", in.Number, in.Date.Format(database.DateLayout)))
	for _, d := range in.Digits {
		builder.WriteString(fmt.Sprintf("Pick %d: digit '%c' rank #%d, base %s, cross %s → *%s*",
			d.Position+1, d.Digit, d.Rank, mark(d.InBase), mark(d.InCross), d.Label))
		if d.Notable() {
			builder.WriteString(fmt.Sprintf(" 📈 in %d of last %d draws", d.RecentHits, in.RecentWindow))
		}
		builder.WriteString("\n")
	}

	builder.WriteString(fmt.Sprintf("\n%d odd / %d even. ", in.Odd, in.Even))
	if len(in.Repeated) > 0 {
		digits := make([]string, len(in.Repeated))
		for i, d := range in.Repeated {
			digits[i] = string(d)
		}
		builder.WriteString("Repeated digits: " + strings.Join(digits, ", "))
	} else {
		builder.WriteString("No repeated digits.")
	}
	return builder.String()
}

// formatCrossMessage 格式化 cross pick
func formatCrossMessage(cross [database.Positions][]predictor.CrossEntry) string {
	var builder strings.Builder
	builder.WriteString("🔁 *Cross Pick*\n")
	for p, entries := range cross {
		parts := make([]string, len(entries))
		for i, e := range entries {
			parts[i] = fmt.Sprintf("%c (%dx)", e.Digit, e.Count)
		}
		builder.WriteString(fmt.Sprintf("Pick %d: %s\n", p+1, strings.Join(parts, ", ")))
	}
	return strings.TrimRight(builder.String(), "\n")
}

// formatTuneMessage 格式化调优结果，过滤后为空的位置显示 "-"
func formatTuneMessage(res *predictor.StrategyResult) string {
	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("🧪 *Tuner* (recent %d, even or 5/7/9 only)\n```\n", res.RecentN))
	for i, pick := range res.Base {
		line := pick.String()
		if len(pick) == 0 {
			line = "-"
		}
		builder.WriteString(fmt.Sprintf("Tuned Pick %d: %s\n", i+1, line))
	}
	builder.WriteString("```")
	return builder.String()
}

// formatHelpMessage 帮助信息和使用建议
func formatHelpMessage() string {
	var builder strings.Builder
	builder.WriteString(helpText)
	builder.WriteString("\n\n💡 *Suggestions*\n")
	for i, tip := range predictor.SystemSuggestions {
		builder.WriteString(fmt.Sprintf("%d. %s\n", i+1, escape(tip)))
	}
	return strings.TrimRight(builder.String(), "\n")
}

// formatErrorMessage 把错误转换为用户能看懂的提示
func formatErrorMessage(action string, err error) string {
	return fmt.Sprintf("❌ %s failed: %s", action, escape(err.Error()))
}

// escape 转义 Markdown 特殊字符，用于错误信息等动态文本
func escape(text string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, text)
}

func mark(ok bool) string {
	if ok {
		return hitMark
	}
	return missMark
}

// createInlineKeyboard 创建内联键盘
func createInlineKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📥 Update", "update"),
			tgbotapi.NewInlineKeyboardButtonData("📋 Base", "base"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔮 Predict", "predict"),
			tgbotapi.NewInlineKeyboardButtonData("🔁 Backtest", "backtest"),
			tgbotapi.NewInlineKeyboardButtonData("📌 Insight", "insight"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🧪 Tune", "tune"),
			tgbotapi.NewInlineKeyboardButtonData("🔁 Cross", "cross"),
		),
	)
}
