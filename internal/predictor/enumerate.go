package predictor

import (
	"math/rand"
	"sort"

	"breakcode4d/internal/database"
)

// ProductSize base 能组成的不同号码总数，重复数字只计一次
func ProductSize(base database.Base) int {
	size := 1
	for _, pick := range base {
		size *= len(pick.Distinct())
	}
	return size
}

func distinctBase(base database.Base) database.Base {
	var out database.Base
	for p, pick := range base {
		out[p] = pick.Distinct()
	}
	return out
}

// Deterministic 按笛卡尔积顺序（第0位最外层）取前 n 个号码
func Deterministic(base database.Base, n int) []string {
	if n <= 0 || ProductSize(base) == 0 {
		return nil
	}

	base = distinctBase(base)
	out := make([]string, 0, n)
	buf := make([]byte, database.Positions)
	var walk func(pos int) bool
	walk = func(pos int) bool {
		if pos == database.Positions {
			out = append(out, string(buf))
			return len(out) < n
		}
		for _, d := range base[pos] {
			buf[pos] = d
			if !walk(pos + 1) {
				return false
			}
		}
		return true
	}
	walk(0)
	return out
}

// Sampled 每个位置随机取一个数字，直到凑够 n 个不重复号码；结果排序
//
// n 超过组合总数时按组合总数截断。
func Sampled(base database.Base, n int, rng *rand.Rand) []string {
	if total := ProductSize(base); n > total {
		n = total
	}
	if n <= 0 {
		return nil
	}

	base = distinctBase(base)
	seen := make(map[string]struct{}, n)
	buf := make([]byte, database.Positions)
	for len(seen) < n {
		for p, pick := range base {
			buf[p] = pick[rng.Intn(len(pick))]
		}
		seen[string(buf)] = struct{}{}
	}

	out := make([]string, 0, n)
	for number := range seen {
		out = append(out, number)
	}
	sort.Strings(out)
	return out
}
