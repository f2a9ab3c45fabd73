package predictor

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"breakcode4d/internal/database"
)

// CrossEntry 某位置上的数字及其出现次数
type CrossEntry struct {
	Digit byte
	Count int
}

// CrossPick 全部历史中每个位置出现最多的5个数字
func CrossPick(draws []database.DrawRecord) [database.Positions][]CrossEntry {
	scores := frequencyScores(numbers(draws), false)

	var out [database.Positions][]CrossEntry
	for p := range scores {
		for _, d := range top(scores[p].ranked(), database.PickSize) {
			out[p] = append(out[p], CrossEntry{Digit: d, Count: scores[p][d-'0']})
		}
	}
	return out
}

// DigitInsight 最新号码中单个数字的分析
type DigitInsight struct {
	Position int
	Digit    byte
	Count    int
	Rank     int
	InBase   bool
	InCross  bool
	Score    int
	Label    string

	// RecentHits 最近 RecentWindow 期中包含该数字（任意位置）的期数
	RecentHits int
}

// Insight 最新一期号码的分析
type Insight struct {
	Date     time.Time
	Number   string
	Digits   [database.Positions]DigitInsight
	Odd      int
	Even     int
	Repeated []byte

	// RecentWindow 统计 RecentHits 实际使用的期数
	RecentWindow int
}

const (
	LabelStrong    = "🔥 strong"
	LabelPotential = "👍 potential"
	LabelUncertain = "❓ uncertain"
)

const (
	// InsightRecentWindow 统计近期出现次数使用的期数
	InsightRecentWindow = 30
	// RecentHitsNotable 近期出现达到该次数时值得提示
	RecentHitsNotable = 3
)

// Notable 近期出现次数是否值得提示
func (d DigitInsight) Notable() bool {
	return d.RecentHits >= RecentHitsNotable
}

// LastResultInsight 分析 before 当天之前最近一期号码
//
// 排名为并列名次：比该数字出现次数多的数字个数 + 1。
// 打分：排名前3 +2，前5 +1，在base中 +2，在cross pick前5中 +1。
// RecentHits 只统计该期及之前的 InsightRecentWindow 期，不参与打分。
func LastResultInsight(draws []database.DrawRecord, base database.Base, before time.Time) (*Insight, error) {
	cutoff := database.DayOf(before)
	lastIdx := -1
	for i := len(draws) - 1; i >= 0; i-- {
		if draws[i].Date.Before(cutoff) {
			lastIdx = i
			break
		}
	}
	if lastIdx < 0 {
		return nil, fmt.Errorf("no draw before %s", cutoff.Format(database.DateLayout))
	}

	last := draws[lastIdx]
	recentStart := lastIdx + 1 - InsightRecentWindow
	if recentStart < 0 {
		recentStart = 0
	}
	recent := numbers(draws[recentStart : lastIdx+1])

	scores := frequencyScores(numbers(draws), false)
	cross := CrossPick(draws)

	insight := &Insight{Date: last.Date, Number: last.Number, RecentWindow: len(recent)}
	for p := 0; p < database.Positions; p++ {
		digit := last.Number[p]
		count := scores[p][digit-'0']

		rank := 1
		for _, c := range scores[p] {
			if c > count {
				rank++
			}
		}

		di := DigitInsight{
			Position: p,
			Digit:    digit,
			Count:    count,
			Rank:     rank,
			InBase:   base[p].Contains(digit),
		}
		for _, number := range recent {
			if strings.IndexByte(number, digit) >= 0 {
				di.RecentHits++
			}
		}
		for _, e := range cross[p] {
			if e.Digit == digit {
				di.InCross = true
				break
			}
		}

		switch {
		case rank <= 3:
			di.Score += 2
		case rank <= 5:
			di.Score++
		}
		if di.InBase {
			di.Score += 2
		}
		if di.InCross {
			di.Score++
		}

		switch {
		case di.Score >= 4:
			di.Label = LabelStrong
		case di.Score >= 3:
			di.Label = LabelPotential
		default:
			di.Label = LabelUncertain
		}
		insight.Digits[p] = di
	}

	seen := map[byte]int{}
	for i := 0; i < len(last.Number); i++ {
		d := last.Number[i]
		if (d-'0')%2 == 0 {
			insight.Even++
		} else {
			insight.Odd++
		}
		seen[d]++
		if seen[d] == 2 {
			insight.Repeated = append(insight.Repeated, d)
		}
	}
	sort.Slice(insight.Repeated, func(i, j int) bool { return insight.Repeated[i] < insight.Repeated[j] })

	return insight, nil
}
