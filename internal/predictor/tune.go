package predictor

import (
	"breakcode4d/internal/database"
)

// TuneWindow 调优使用的最近期数
const TuneWindow = 30

// TunerName 调优结果的名称
const TunerName = "tuner"

// SystemSuggestions 使用建议
var SystemSuggestions = []string{
	"Use only the latest 20-30 draws for analysis.",
	"Pick the 5 highest scoring digits for every position.",
	"Avoid using the same digit on every position.",
	"Mixed odd/even combinations are the most stable.",
	"Watch digits that come back within 3 draws.",
}

// Tune 按加权频率取最近 TuneWindow 期每位前5个数字，只保留偶数以及 5、7、9
//
// 不做补位，过滤后某个位置可能少于5个甚至为空。历史不足 TuneWindow 期时使用全部历史。
func Tune(draws []database.DrawRecord) (*StrategyResult, error) {
	if len(draws) == 0 {
		return nil, &InsufficientDataError{Strategy: TunerName, Need: 1, Have: 0}
	}

	recentN := TuneWindow
	if len(draws) < recentN {
		recentN = len(draws)
	}
	scores := frequencyScores(numbers(draws[len(draws)-recentN:]), true)

	var base database.Base
	for p := range scores {
		pick := database.PositionPick{}
		for _, d := range top(scores[p].ranked(), database.PickSize) {
			if keepTuned(d) {
				pick = append(pick, d)
			}
		}
		base[p] = pick
	}
	return &StrategyResult{Strategy: TunerName, RecentN: recentN, Base: base}, nil
}

func keepTuned(d byte) bool {
	return (d-'0')%2 == 0 || d == '5' || d == '7' || d == '9'
}
