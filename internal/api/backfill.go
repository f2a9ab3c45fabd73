package api

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"breakcode4d/internal/config"
	"breakcode4d/internal/database"
	"breakcode4d/internal/logger"
	"breakcode4d/internal/metrics"
)

// ResultFetcher 按日期获取头奖号码
type ResultFetcher interface {
	FetchResult(ctx context.Context, date time.Time) (string, error)
}

// DrawStore 回填所需的存储能力
type DrawStore interface {
	LoadDraws() ([]database.DrawRecord, error)
	AppendDraws(records []database.DrawRecord) (int, error)
}

// BackfillSummary 回填结果
type BackfillSummary struct {
	From    time.Time
	To      time.Time
	Added   int
	Skipped int
}

// Message 面向用户的状态消息
func (s *BackfillSummary) Message() string {
	if s.Added == 0 {
		return "✔ No new draws added."
	}
	return fmt.Sprintf("✔ %d new draws added.", s.Added)
}

// Backfiller 从最后一期的下一天开始逐日抓取到今天
type Backfiller struct {
	fetcher     ResultFetcher
	limiter     *rate.Limiter
	timeout     time.Duration
	maxDaysBack int
	now         func() time.Time
}

// NewBackfiller 创建回填器
func NewBackfiller(fetcher ResultFetcher, cfg *config.Source) *Backfiller {
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	return &Backfiller{
		fetcher:     fetcher,
		limiter:     rate.NewLimiter(limit, 1),
		timeout:     cfg.Timeout,
		maxDaysBack: cfg.MaxDaysBack,
		now:         time.Now,
	}
}

// SetClock 替换当前时间来源
func (b *Backfiller) SetClock(now func() time.Time) {
	b.now = now
}

// Run 执行回填
//
// 每个日期只尝试一次，失败记录日志后跳过；成功的结果立即追加保存。
func (b *Backfiller) Run(ctx context.Context, store DrawStore) (*BackfillSummary, error) {
	draws, err := store.LoadDraws()
	if err != nil {
		return nil, fmt.Errorf("failed to load draws: %v", err)
	}

	today := database.DayOf(b.now())
	var start time.Time
	if len(draws) == 0 {
		start = today.AddDate(0, 0, -b.maxDaysBack+1)
	} else {
		start = database.DayOf(draws[len(draws)-1].Date).AddDate(0, 0, 1)
	}

	summary := &BackfillSummary{From: start, To: today}
	for day := start; !day.After(today); day = day.AddDate(0, 0, 1) {
		if err := b.limiter.Wait(ctx); err != nil {
			return summary, err
		}

		number, err := b.fetchOne(ctx, day)
		if err != nil {
			if ctx.Err() != nil {
				return summary, ctx.Err()
			}
			summary.Skipped++
			if errors.Is(err, ErrResultUnavailable) {
				metrics.FetchTotal.WithLabelValues("unavailable").Inc()
			} else {
				metrics.FetchTotal.WithLabelValues("error").Inc()
			}
			logger.Warnf("Skipping %s: %v", day.Format(database.DateLayout), err)
			continue
		}
		metrics.FetchTotal.WithLabelValues("ok").Inc()

		added, err := store.AppendDraws([]database.DrawRecord{{Date: day, Number: number}})
		if err != nil {
			return summary, fmt.Errorf("failed to append draw %s: %v", day.Format(database.DateLayout), err)
		}
		summary.Added += added
		metrics.DrawsAppended.Add(float64(added))
		logger.Infof("Fetched %s: %s", day.Format(database.DateLayout), number)
	}

	return summary, nil
}

func (b *Backfiller) fetchOne(ctx context.Context, day time.Time) (string, error) {
	fetchCtx := ctx
	if b.timeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	number, err := b.fetcher.FetchResult(fetchCtx, day)
	if err != nil {
		return "", err
	}
	if !database.ValidNumber(number) {
		return "", fmt.Errorf("%w: unparsable result %q", ErrResultUnavailable, number)
	}
	return number, nil
}
