package database

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

const (
	// DateLayout 开奖日期格式
	DateLayout = "2006-01-02"
	// Positions 每期号码的位数
	Positions = 4
	// PickSize 每个位置标准的候选数字个数
	PickSize = 5
)

// ErrBaseNotFound 指定策略尚未保存过base
var ErrBaseNotFound = errors.New("base not found")

// DrawRecord 开奖记录模型
type DrawRecord struct {
	Date   time.Time `json:"date"`
	Number string    `json:"number"`
}

// NewDrawRecord 解析日期与号码并校验
func NewDrawRecord(date, number string) (DrawRecord, error) {
	d, err := time.Parse(DateLayout, date)
	if err != nil {
		return DrawRecord{}, fmt.Errorf("invalid draw date %q: %v", date, err)
	}
	if !ValidNumber(number) {
		return DrawRecord{}, fmt.Errorf("invalid draw number %q", number)
	}
	return DrawRecord{Date: d, Number: number}, nil
}

// DateString 返回 YYYY-MM-DD
func (r DrawRecord) DateString() string {
	return r.Date.Format(DateLayout)
}

func (r DrawRecord) String() string {
	return r.DateString() + " " + r.Number
}

// ValidNumber 号码必须是4位数字
func ValidNumber(number string) bool {
	if len(number) != Positions {
		return false
	}
	for i := 0; i < len(number); i++ {
		if !isDigit(number[i]) {
			return false
		}
	}
	return true
}

// DayOf 截断到当天零点（UTC），用于按日比较
func DayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// NewerDraws 从 incoming 中挑出日期晚于 existing 最后一期的记录，按日期升序去重
func NewerDraws(existing, incoming []DrawRecord) []DrawRecord {
	sorted := make([]DrawRecord, len(incoming))
	copy(sorted, incoming)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	var last time.Time
	hasLast := false
	if len(existing) > 0 {
		last = DayOf(existing[len(existing)-1].Date)
		hasLast = true
	}

	var accepted []DrawRecord
	for _, rec := range sorted {
		day := DayOf(rec.Date)
		if hasLast && !day.After(last) {
			continue
		}
		accepted = append(accepted, DrawRecord{Date: day, Number: rec.Number})
		last = day
		hasLast = true
	}
	return accepted
}

// PositionPick 单个位置的候选数字，按分数从高到低排列
type PositionPick []byte

// Contains 是否包含某个数字字符
func (p PositionPick) Contains(digit byte) bool {
	for _, d := range p {
		if d == digit {
			return true
		}
	}
	return false
}

// Distinct 去掉重复数字，保持原有顺序
func (p PositionPick) Distinct() PositionPick {
	out := make(PositionPick, 0, len(p))
	for _, d := range p {
		if !out.Contains(d) {
			out = append(out, d)
		}
	}
	return out
}

func (p PositionPick) String() string {
	parts := make([]string, len(p))
	for i, d := range p {
		parts[i] = string(d)
	}
	return strings.Join(parts, " ")
}

// MarshalJSON 输出为 "1 2 3 4 5" 形式
func (p PositionPick) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// Base 四个位置的候选数字集合
type Base [Positions]PositionPick

// Reversed 位置顺序反转（右到左比较时使用）
func (b Base) Reversed() Base {
	var out Base
	for i := 0; i < Positions; i++ {
		out[i] = b[Positions-1-i]
	}
	return out
}

// Lines 每个位置一行，数字以空格分隔（base文件格式）
func (b Base) Lines() []string {
	lines := make([]string, Positions)
	for i, pick := range b {
		lines[i] = pick.String()
	}
	return lines
}

// ParsePick 解析空格分隔的一行数字，重复的数字只保留第一次
func ParsePick(line string) (PositionPick, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty pick line")
	}
	pick := make(PositionPick, 0, len(fields))
	for _, f := range fields {
		if len(f) != 1 || !isDigit(f[0]) {
			return nil, fmt.Errorf("invalid digit %q in pick line", f)
		}
		if pick.Contains(f[0]) {
			continue
		}
		pick = append(pick, f[0])
	}
	return pick, nil
}

// ReverseNumber 反转号码字符串
func ReverseNumber(number string) string {
	b := []byte(number)
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return string(b)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
