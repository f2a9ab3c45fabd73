package predictor

import (
	"sort"

	"breakcode4d/internal/database"
)

const defaultMinTrimCandidates = 7

// digitScores 0-9 每个数字的得分
type digitScores [10]int

func (s *digitScores) add(digit byte, weight int) {
	s[digit-'0'] += weight
}

// ranked 返回得分大于0的数字，得分降序，同分按数字升序
func (s digitScores) ranked() []byte {
	var digits []byte
	for d := 0; d < 10; d++ {
		if s[d] > 0 {
			digits = append(digits, byte('0'+d))
		}
	}
	sort.SliceStable(digits, func(i, j int) bool {
		return s[digits[i]-'0'] > s[digits[j]-'0']
	})
	return digits
}

func top(digits []byte, k int) []byte {
	if len(digits) > k {
		digits = digits[:k]
	}
	out := make([]byte, len(digits))
	copy(out, digits)
	return out
}

// pad 用随机且不重复的数字补齐到 PickSize
func (g *Generator) pad(digits []byte) database.PositionPick {
	pick := make(database.PositionPick, len(digits), database.PickSize)
	copy(pick, digits)

	var remaining []byte
	for d := byte('0'); d <= '9'; d++ {
		if !pick.Contains(d) {
			remaining = append(remaining, d)
		}
	}
	for len(pick) < database.PickSize && len(remaining) > 0 {
		i := g.rng.Intn(len(remaining))
		pick = append(pick, remaining[i])
		remaining = append(remaining[:i], remaining[i+1:]...)
	}
	return pick
}

func frequencyScores(window []string, weighted bool) [database.Positions]digitScores {
	var scores [database.Positions]digitScores
	for i, number := range window {
		weight := 1
		if weighted {
			weight = len(window) - i
		}
		for p := 0; p < database.Positions; p++ {
			scores[p].add(number[p], weight)
		}
	}
	return scores
}

// gapScores 从最新一期往回走，数字再次出现时累计与上次出现的距离
//
// 只出现一次的数字得分为0，与从未出现的数字相同。
func gapScores(window []string) [database.Positions]digitScores {
	var scores [database.Positions]digitScores
	for p := 0; p < database.Positions; p++ {
		lastSeen := map[byte]int{}
		for idx := 0; idx < len(window); idx++ {
			digit := window[len(window)-1-idx][p]
			if prev, ok := lastSeen[digit]; ok {
				scores[p].add(digit, idx-prev)
			}
			lastSeen[digit] = idx
		}
	}
	return scores
}

// markovScores 统计相邻两期 prior -> current 的转移，最后只取后继数字的边际计数
func markovScores(window []string) [database.Positions]digitScores {
	var transitions [database.Positions][10]digitScores
	for k := 1; k < len(window); k++ {
		prior, current := window[k-1], window[k]
		for p := 0; p < database.Positions; p++ {
			transitions[p][prior[p]-'0'].add(current[p], 1)
		}
	}

	var scores [database.Positions]digitScores
	for p := 0; p < database.Positions; p++ {
		for _, row := range transitions[p] {
			for d, c := range row {
				scores[p][d] += c
			}
		}
	}
	return scores
}

func (g *Generator) baseFromScores(scores [database.Positions]digitScores) database.Base {
	var base database.Base
	for p := range scores {
		base[p] = g.pad(top(scores[p].ranked(), database.PickSize))
	}
	return base
}

func (g *Generator) frequencyBase(window []string, weighted bool) database.Base {
	return g.baseFromScores(frequencyScores(window, weighted))
}

func (g *Generator) gapBase(window []string) database.Base {
	return g.baseFromScores(gapScores(window))
}

func (g *Generator) markovBase(window []string) database.Base {
	return g.baseFromScores(markovScores(window))
}

func (g *Generator) hybridBase(window []string) database.Base {
	freq := frequencyScores(window, false)
	gap := gapScores(window)

	var base database.Base
	for p := 0; p < database.Positions; p++ {
		union := interleave(top(freq[p].ranked(), database.PickSize), top(gap[p].ranked(), database.PickSize))
		base[p] = g.pad(top(union, database.PickSize))
	}
	return base
}

// interleave 按名次交替合并两个列表并去重
func interleave(a, b []byte) []byte {
	var out []byte
	seen := map[byte]bool{}
	for i := 0; i < len(a) || i < len(b); i++ {
		for _, list := range [][]byte{a, b} {
			if i < len(list) && !seen[list[i]] {
				seen[list[i]] = true
				out = append(out, list[i])
			}
		}
	}
	return out
}

func (g *Generator) compositeBase(window []string, minTrim int) database.Base {
	freq := g.frequencyBase(window, false)
	gap := g.gapBase(window)
	hybrid := g.hybridBase(window)

	var base database.Base
	for p := 0; p < database.Positions; p++ {
		base[p] = g.pad(compositePick(minTrim, freq[p], gap[p], hybrid[p]))
	}
	return base
}

// compositePick 合并多个候选列表的出现次数，候选足够多时去掉排名第一和最后的数字，再取前5
func compositePick(minTrim int, lists ...database.PositionPick) []byte {
	if minTrim <= 0 {
		minTrim = defaultMinTrimCandidates
	}

	var counts digitScores
	for _, list := range lists {
		for _, d := range list {
			counts.add(d, 1)
		}
	}

	ranked := counts.ranked()
	if len(ranked) >= minTrim && len(ranked) > 2 {
		ranked = ranked[1 : len(ranked)-1]
	}
	return top(ranked, database.PickSize)
}
