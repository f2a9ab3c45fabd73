package predictor

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"breakcode4d/internal/database"
)

var (
	// ErrUnknownStrategy 未知的策略名
	ErrUnknownStrategy = errors.New("unknown strategy")
	// ErrInvalidWindow recent_n 小于策略要求的最小窗口
	ErrInvalidWindow = errors.New("invalid window size")
)

// InsufficientDataError 历史数据不足
type InsufficientDataError struct {
	Strategy string
	Need     int
	Have     int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data for %s: need >=%d draws, have %d", e.Strategy, e.Need, e.Have)
}

// Strategy 选号策略，取值只能是本包定义的几种类型
type Strategy interface {
	// Name 策略名称（也用作base文件名）
	Name() string

	// MinWindow 策略要求的最小 recent_n
	MinWindow() int

	sealed()
}

// Frequency 按位置统计出现次数
type Frequency struct {
	// Weighted 窗口内第i期（从旧到新）权重为 recent_n - i
	Weighted bool
}

// Gap 按重复出现的间隔累计得分
type Gap struct{}

// Hybrid Frequency 与 Gap 的并集
type Hybrid struct{}

// Composite 合并 Frequency/Gap/Hybrid 后去掉首尾再取前5（qaisara）
type Composite struct {
	// MinTrimCandidates 候选数达到该值才去掉首尾，0 表示默认值7
	MinTrimCandidates int
}

// MarkovPattern 基于相邻两期的转移计数（smartpattern）
type MarkovPattern struct{}

func (f Frequency) Name() string {
	if f.Weighted {
		return "frequency-weighted"
	}
	return "frequency"
}

func (Gap) Name() string           { return "gap" }
func (Hybrid) Name() string        { return "hybrid" }
func (Composite) Name() string     { return "qaisara" }
func (MarkovPattern) Name() string { return "smartpattern" }

func (Frequency) MinWindow() int     { return 1 }
func (Gap) MinWindow() int           { return 2 }
func (Hybrid) MinWindow() int        { return 2 }
func (Composite) MinWindow() int     { return 2 }
func (MarkovPattern) MinWindow() int { return 2 }

func (Frequency) sealed()     {}
func (Gap) sealed()           {}
func (Hybrid) sealed()        {}
func (Composite) sealed()     {}
func (MarkovPattern) sealed() {}

// AllStrategies 全部策略（默认参数）
func AllStrategies() []Strategy {
	return []Strategy{Frequency{}, Gap{}, Hybrid{}, Composite{}, MarkovPattern{}}
}

// ParseStrategy 把用户输入的名称解析为策略
func ParseStrategy(name string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "frequency", "freq":
		return Frequency{}, nil
	case "frequency-weighted", "weighted":
		return Frequency{Weighted: true}, nil
	case "gap":
		return Gap{}, nil
	case "hybrid":
		return Hybrid{}, nil
	case "qaisara", "composite":
		return Composite{}, nil
	case "smartpattern", "markov":
		return MarkovPattern{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
}

// StrategyResult 某策略在某窗口下计算出的base
type StrategyResult struct {
	Strategy string        `json:"strategy"`
	RecentN  int           `json:"recent_n"`
	Base     database.Base `json:"base"`
}

// Generator 生成base；补位使用的随机源由调用方注入
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewGenerator 使用给定随机源创建生成器，src 为 nil 时以当前时间为种子
func NewGenerator(src rand.Source) *Generator {
	if src == nil {
		src = rand.NewSource(time.Now().UnixNano())
	}
	return &Generator{rng: rand.New(src)}
}

// GenerateBase 用最近 recentN 期数据计算base
func (g *Generator) GenerateBase(draws []database.DrawRecord, strategy Strategy, recentN int) (database.Base, error) {
	if strategy == nil {
		return database.Base{}, fmt.Errorf("%w: <nil>", ErrUnknownStrategy)
	}
	if recentN < strategy.MinWindow() {
		return database.Base{}, fmt.Errorf("%w: %s needs recent_n >= %d, got %d",
			ErrInvalidWindow, strategy.Name(), strategy.MinWindow(), recentN)
	}
	if len(draws) < recentN {
		return database.Base{}, &InsufficientDataError{
			Strategy: strategy.Name(),
			Need:     recentN,
			Have:     len(draws),
		}
	}

	window := numbers(draws[len(draws)-recentN:])

	g.mu.Lock()
	defer g.mu.Unlock()

	switch s := strategy.(type) {
	case Frequency:
		return g.frequencyBase(window, s.Weighted), nil
	case Gap:
		return g.gapBase(window), nil
	case Hybrid:
		return g.hybridBase(window), nil
	case Composite:
		return g.compositeBase(window, s.MinTrimCandidates), nil
	case MarkovPattern:
		return g.markovBase(window), nil
	default:
		return database.Base{}, fmt.Errorf("%w: %T", ErrUnknownStrategy, strategy)
	}
}

// SamplePredictions 随机抽取 n 个号码
func (g *Generator) SamplePredictions(base database.Base, n int) []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return Sampled(base, n, g.rng)
}

func numbers(draws []database.DrawRecord) []string {
	out := make([]string, len(draws))
	for i, d := range draws {
		out[i] = d.Number
	}
	return out
}
