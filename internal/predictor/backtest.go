package predictor

import (
	"fmt"
	"strings"
	"time"

	"breakcode4d/internal/database"
	"breakcode4d/internal/logger"
)

// Direction 回测时号码与base的比较方向
type Direction int

const (
	LeftToRight Direction = iota
	RightToLeft
)

func (d Direction) String() string {
	if d == RightToLeft {
		return "rtl"
	}
	return "ltr"
}

func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// ParseDirection 解析方向参数
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "ltr", "left", "left-to-right":
		return LeftToRight, nil
	case "rtl", "right", "right-to-left":
		return RightToLeft, nil
	default:
		return LeftToRight, fmt.Errorf("invalid direction: %s", s)
	}
}

// BaseFunc 根据历史数据计算base
type BaseFunc func(draws []database.DrawRecord, strategy Strategy, recentN int) (database.Base, error)

// BacktestRow 单期回测结果
type BacktestRow struct {
	Date         time.Time                `json:"date"`
	ActualNumber string                   `json:"actual_number"`
	Base         database.Base            `json:"base"`
	PositionHits [database.Positions]bool `json:"per_position_hit"`
	HitCount     int                      `json:"hit_count"`
	Predictions  []string                 `json:"predictions,omitempty"`
	ExactHit     bool                     `json:"exact_hit"`
}

// Report 回测汇总
type Report struct {
	Strategy     string                  `json:"strategy"`
	RecentN      int                     `json:"recent_n"`
	Direction    Direction               `json:"direction"`
	Rounds       int                     `json:"rounds"`
	Rows         []BacktestRow           `json:"rows"`
	Skipped      int                     `json:"skipped"`
	TotalRows    int                     `json:"total_rows"`
	TotalHits    int                     `json:"total_hits"`
	RowsWithHit  int                     `json:"rows_with_hit"`
	ExactHits    int                     `json:"exact_hits"`
	PositionHits [database.Positions]int `json:"position_hits"`
}

// HitRate 位置命中率
func (r *Report) HitRate() float64 {
	if r.TotalRows == 0 {
		return 0
	}
	return float64(r.TotalHits) / float64(r.TotalRows*database.Positions)
}

// RowHitRate 至少命中一个位置的期数占比
func (r *Report) RowHitRate() float64 {
	if r.TotalRows == 0 {
		return 0
	}
	return float64(r.RowsWithHit) / float64(r.TotalRows)
}

// Backtester 用历史数据回放策略
type Backtester struct {
	generate            BaseFunc
	predictionsPerRound int
}

// NewBacktester 使用生成器创建回测器
func NewBacktester(gen *Generator) *Backtester {
	return NewBacktesterWithFunc(gen.GenerateBase)
}

// NewBacktesterWithFunc 使用自定义的base计算函数
func NewBacktesterWithFunc(fn BaseFunc) *Backtester {
	return &Backtester{generate: fn}
}

// WithExactCheck 每期额外生成 n 个确定性号码，检查是否与开奖号码完全一致
func (b *Backtester) WithExactCheck(n int) *Backtester {
	b.predictionsPerRound = n
	return b
}

// Run 回测最近 rounds 期
//
// 第 i 轮的测试期为倒数第 i+1 期，只用它之前的数据计算base；
// 之前数据不足 recentN 期的轮次被跳过。
func (b *Backtester) Run(draws []database.DrawRecord, strategy Strategy, recentN int, dir Direction, rounds int) (*Report, error) {
	if strategy == nil {
		return nil, fmt.Errorf("%w: <nil>", ErrUnknownStrategy)
	}
	if rounds > len(draws) {
		rounds = len(draws)
	}

	report := &Report{
		Strategy:  strategy.Name(),
		RecentN:   recentN,
		Direction: dir,
		Rounds:    rounds,
	}

	for i := 0; i < rounds; i++ {
		cut := len(draws) - 1 - i
		test := draws[cut]
		past := draws[:cut:cut]

		if len(past) < recentN {
			report.Skipped++
			continue
		}

		base, err := b.generate(past, strategy, recentN)
		if err != nil {
			return nil, fmt.Errorf("backtest round %d (%s): %w", i+1, test.DateString(), err)
		}

		row := b.scoreRound(test, base, dir)
		report.Rows = append(report.Rows, row)
		report.TotalRows++
		report.TotalHits += row.HitCount
		if row.HitCount > 0 {
			report.RowsWithHit++
		}
		if row.ExactHit {
			report.ExactHits++
		}
		for p, hit := range row.PositionHits {
			if hit {
				report.PositionHits[p]++
			}
		}
	}

	logger.Debugf("Backtest %s recent_n=%d: rows=%d hits=%d skipped=%d",
		report.Strategy, recentN, report.TotalRows, report.TotalHits, report.Skipped)
	return report, nil
}

func (b *Backtester) scoreRound(test database.DrawRecord, base database.Base, dir Direction) BacktestRow {
	row := BacktestRow{
		Date:         test.Date,
		ActualNumber: test.Number,
		Base:         base,
	}

	number, cmp := test.Number, base
	if dir == RightToLeft {
		number, cmp = database.ReverseNumber(number), base.Reversed()
	}
	for p := 0; p < database.Positions; p++ {
		if cmp[p].Contains(number[p]) {
			row.PositionHits[p] = true
			row.HitCount++
		}
	}

	if b.predictionsPerRound > 0 {
		row.Predictions = Deterministic(base, b.predictionsPerRound)
		for _, pred := range row.Predictions {
			if pred == test.Number {
				row.ExactHit = true
				break
			}
		}
	}
	return row
}
