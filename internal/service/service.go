package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"breakcode4d/internal/api"
	"breakcode4d/internal/config"
	"breakcode4d/internal/database"
	"breakcode4d/internal/logger"
	"breakcode4d/internal/metrics"
	"breakcode4d/internal/predictor"
)

// Service 串联存储、回填与选号引擎，供命令行和机器人共用
//
// 更新开奖历史并重算base的过程由同一把锁保护。
type Service struct {
	cfg        config.Engine
	repo       database.Repository
	backfiller *api.Backfiller
	generator  *predictor.Generator
	strategies []predictor.Strategy

	mu sync.Mutex
}

// UpdateResult 一次更新的结果
type UpdateResult struct {
	Backfill *api.BackfillSummary
	Bases    []predictor.StrategyResult
	Failures map[string]error
}

// Status 当前数据概况
type Status struct {
	TotalDraws int
	FirstDate  time.Time
	LastDate   time.Time
	LastNumber string
}

// New 创建服务；配置中的策略名必须都能识别
func New(cfg config.Engine, repo database.Repository, backfiller *api.Backfiller, gen *predictor.Generator) (*Service, error) {
	var strategies []predictor.Strategy
	for _, name := range cfg.Strategies {
		s, err := predictor.ParseStrategy(name)
		if err != nil {
			return nil, err
		}
		strategies = append(strategies, s)
	}
	if _, err := predictor.ParseStrategy(cfg.DefaultStrategy); err != nil {
		return nil, err
	}

	return &Service{
		cfg:        cfg,
		repo:       repo,
		backfiller: backfiller,
		generator:  gen,
		strategies: strategies,
	}, nil
}

// Update 回填开奖历史，然后为每个配置的策略重算并覆盖base
//
// 单个策略失败（例如数据不足）只记录在 Failures 中，不影响其他策略。
func (s *Service) Update(ctx context.Context) (*UpdateResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := &UpdateResult{Failures: map[string]error{}}
	if s.backfiller != nil {
		summary, err := s.backfiller.Run(ctx, s.repo)
		result.Backfill = summary
		if err != nil {
			return result, fmt.Errorf("backfill failed: %w", err)
		}
		logger.Info(summary.Message())
	}

	draws, err := s.repo.LoadDraws()
	if err != nil {
		return result, fmt.Errorf("failed to load draws: %w", err)
	}

	for _, strategy := range s.strategies {
		base, err := s.generate(draws, strategy, s.cfg.RecentN)
		if err != nil {
			result.Failures[strategy.Name()] = err
			logger.Warnf("Base for %s not regenerated: %v", strategy.Name(), err)
			continue
		}
		if err := s.repo.SaveBase(strategy.Name(), base); err != nil {
			result.Failures[strategy.Name()] = err
			logger.Errorf("Failed to save base for %s: %v", strategy.Name(), err)
			continue
		}
		result.Bases = append(result.Bases, predictor.StrategyResult{
			Strategy: strategy.Name(),
			RecentN:  s.cfg.RecentN,
			Base:     base,
		})
	}

	return result, nil
}

// GenerateBase 计算某策略的base，save 为 true 时覆盖保存
func (s *Service) GenerateBase(name string, recentN int, save bool) (*predictor.StrategyResult, error) {
	strategy, recentN, err := s.resolve(name, recentN)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	draws, err := s.repo.LoadDraws()
	if err != nil {
		return nil, fmt.Errorf("failed to load draws: %w", err)
	}
	base, err := s.generate(draws, strategy, recentN)
	if err != nil {
		return nil, err
	}
	if save {
		if err := s.repo.SaveBase(strategy.Name(), base); err != nil {
			return nil, err
		}
	}
	return &predictor.StrategyResult{Strategy: strategy.Name(), RecentN: recentN, Base: base}, nil
}

// SavedBase 读取已保存的base
func (s *Service) SavedBase(name string) (database.Base, error) {
	strategy, _, err := s.resolve(name, 0)
	if err != nil {
		return database.Base{}, err
	}
	return s.repo.LoadBase(strategy.Name())
}

// Predict 用新计算的base生成 n 个号码；sampled 为 false 时按笛卡尔积顺序
func (s *Service) Predict(name string, recentN, n int, sampled bool) ([]string, *predictor.StrategyResult, error) {
	res, err := s.GenerateBase(name, recentN, false)
	if err != nil {
		return nil, nil, err
	}
	if n <= 0 {
		n = s.cfg.Predictions
	}
	if sampled {
		return s.generator.SamplePredictions(res.Base, n), res, nil
	}
	return predictor.Deterministic(res.Base, n), res, nil
}

// Backtest 回测某策略
func (s *Service) Backtest(name string, recentN int, dir predictor.Direction, rounds int) (*predictor.Report, error) {
	strategy, recentN, err := s.resolve(name, recentN)
	if err != nil {
		return nil, err
	}
	if rounds <= 0 {
		rounds = s.cfg.BacktestRounds
	}

	draws, err := s.repo.LoadDraws()
	if err != nil {
		return nil, fmt.Errorf("failed to load draws: %w", err)
	}

	start := time.Now()
	bt := predictor.NewBacktester(s.generator).WithExactCheck(s.cfg.PredictionsPerRound)
	report, err := bt.Run(draws, strategy, recentN, dir, rounds)
	if err != nil {
		return nil, err
	}
	metrics.BacktestDuration.WithLabelValues(strategy.Name()).Observe(time.Since(start).Seconds())
	metrics.BacktestHitRate.WithLabelValues(strategy.Name()).Set(report.HitRate())
	return report, nil
}

// Insight 分析 now 之前最近一期号码
//
// 优先使用已保存的默认策略base；不存在或无法读取时重新计算（不保存）。
func (s *Service) Insight(now time.Time) (*predictor.Insight, error) {
	draws, err := s.repo.LoadDraws()
	if err != nil {
		return nil, fmt.Errorf("failed to load draws: %w", err)
	}

	base, err := s.SavedBase(s.cfg.DefaultStrategy)
	if err != nil {
		if !errors.Is(err, database.ErrBaseNotFound) {
			logger.Warnf("Saved base for %s unusable, regenerating: %v", s.cfg.DefaultStrategy, err)
		}
		res, genErr := s.GenerateBase(s.cfg.DefaultStrategy, 0, false)
		if genErr != nil {
			return nil, genErr
		}
		base = res.Base
	}

	return predictor.LastResultInsight(draws, base, now)
}

// Tune 最近30期加权频率base的奇偶过滤结果，不保存
func (s *Service) Tune() (*predictor.StrategyResult, error) {
	draws, err := s.repo.LoadDraws()
	if err != nil {
		return nil, fmt.Errorf("failed to load draws: %w", err)
	}
	return predictor.Tune(draws)
}

// CrossPick 全部历史的每位前5
func (s *Service) CrossPick() ([database.Positions][]predictor.CrossEntry, error) {
	draws, err := s.repo.LoadDraws()
	if err != nil {
		return [database.Positions][]predictor.CrossEntry{}, fmt.Errorf("failed to load draws: %w", err)
	}
	return predictor.CrossPick(draws), nil
}

// Status 数据概况
func (s *Service) Status() (*Status, error) {
	draws, err := s.repo.LoadDraws()
	if err != nil {
		return nil, fmt.Errorf("failed to load draws: %w", err)
	}
	st := &Status{TotalDraws: len(draws)}
	if len(draws) > 0 {
		st.FirstDate = draws[0].Date
		st.LastDate = draws[len(draws)-1].Date
		st.LastNumber = draws[len(draws)-1].Number
	}
	return st, nil
}

func (s *Service) resolve(name string, recentN int) (predictor.Strategy, int, error) {
	if name == "" {
		name = s.cfg.DefaultStrategy
	}
	strategy, err := predictor.ParseStrategy(name)
	if err != nil {
		return nil, 0, err
	}
	if recentN <= 0 {
		recentN = s.cfg.RecentN
	}
	return strategy, recentN, nil
}

func (s *Service) generate(draws []database.DrawRecord, strategy predictor.Strategy, recentN int) (database.Base, error) {
	base, err := s.generator.GenerateBase(draws, strategy, recentN)
	if err != nil {
		metrics.BaseGenerated.WithLabelValues(strategy.Name(), "error").Inc()
		return base, err
	}
	metrics.BaseGenerated.WithLabelValues(strategy.Name(), "ok").Inc()
	return base, nil
}
