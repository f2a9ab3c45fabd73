package database

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"breakcode4d/internal/logger"
)

// FileStore 文本文件存储
//
// 开奖历史每行 "YYYY-MM-DD NNNN"；每个策略的base保存为 base_<strategy>.txt，
// 共4行，每行空格分隔的数字。
type FileStore struct {
	drawsPath string
	baseDir   string

	drawsMu sync.Mutex
	baseMu  sync.Mutex
}

// NewFileStore 创建文件存储
func NewFileStore(drawsPath, baseDir string) *FileStore {
	return &FileStore{
		drawsPath: drawsPath,
		baseDir:   baseDir,
	}
}

// DrawsPath 开奖历史文件路径
func (f *FileStore) DrawsPath() string {
	return f.drawsPath
}

// BasePath 策略base文件路径
func (f *FileStore) BasePath(strategy string) string {
	return filepath.Join(f.baseDir, "base_"+strategy+".txt")
}

// LoadDraws 读取开奖历史，文件不存在时返回空列表
func (f *FileStore) LoadDraws() ([]DrawRecord, error) {
	f.drawsMu.Lock()
	defer f.drawsMu.Unlock()
	return f.loadDraws()
}

func (f *FileStore) loadDraws() ([]DrawRecord, error) {
	file, err := os.Open(f.drawsPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open draws file: %v", err)
	}
	defer file.Close()

	return ParseDraws(file)
}

// ParseDraws 解析开奖历史文本
//
// 格式错误的行，以及日期不晚于上一条的行都会被跳过。
func ParseDraws(r io.Reader) ([]DrawRecord, error) {
	var draws []DrawRecord
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.Fields(line)
		if len(parts) != 2 {
			logger.Debugf("Skipping malformed draw line %d: %q", lineNo, line)
			continue
		}
		rec, err := NewDrawRecord(parts[0], parts[1])
		if err != nil {
			logger.Debugf("Skipping malformed draw line %d: %v", lineNo, err)
			continue
		}
		if n := len(draws); n > 0 && !rec.Date.After(draws[n-1].Date) {
			logger.Debugf("Skipping out-of-order draw line %d: %s", lineNo, rec)
			continue
		}
		draws = append(draws, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read draws: %v", err)
	}
	return draws, nil
}

// AppendDraws 追加新记录到文件末尾
func (f *FileStore) AppendDraws(records []DrawRecord) (int, error) {
	f.drawsMu.Lock()
	defer f.drawsMu.Unlock()

	existing, err := f.loadDraws()
	if err != nil {
		return 0, err
	}
	fresh := NewerDraws(existing, records)
	if len(fresh) == 0 {
		return 0, nil
	}

	if err := os.MkdirAll(filepath.Dir(f.drawsPath), 0o755); err != nil {
		return 0, fmt.Errorf("failed to create data dir: %v", err)
	}
	file, err := os.OpenFile(f.drawsPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, fmt.Errorf("failed to open draws file for append: %v", err)
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	for _, rec := range fresh {
		if _, err := fmt.Fprintln(w, rec.String()); err != nil {
			return 0, fmt.Errorf("failed to write draw: %v", err)
		}
	}
	if err := w.Flush(); err != nil {
		return 0, fmt.Errorf("failed to flush draws file: %v", err)
	}

	logger.Debugf("Appended %d draws to %s", len(fresh), f.drawsPath)
	return len(fresh), nil
}

// SaveBase 写入临时文件后重命名，避免读到半截文件
func (f *FileStore) SaveBase(strategy string, base Base) error {
	f.baseMu.Lock()
	defer f.baseMu.Unlock()

	if err := os.MkdirAll(f.baseDir, 0o755); err != nil {
		return fmt.Errorf("failed to create base dir: %v", err)
	}

	path := f.BasePath(strategy)
	tmp := path + ".tmp"
	content := strings.Join(base.Lines(), "\n") + "\n"
	if err := os.WriteFile(tmp, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write base file: %v", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace base file: %v", err)
	}
	return nil
}

// LoadBase 读取base文件，跳过无法解析的行
func (f *FileStore) LoadBase(strategy string) (Base, error) {
	f.baseMu.Lock()
	defer f.baseMu.Unlock()

	path := f.BasePath(strategy)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Base{}, fmt.Errorf("%w: %s", ErrBaseNotFound, path)
	}
	if err != nil {
		return Base{}, fmt.Errorf("failed to read base file: %v", err)
	}
	return ParseBase(string(data))
}

// ParseBase 解析base文本，需要恰好4行有效数据
func ParseBase(text string) (Base, error) {
	var picks []PositionPick
	for i, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		pick, err := ParsePick(line)
		if err != nil {
			logger.Debugf("Skipping malformed base line %d: %v", i+1, err)
			continue
		}
		picks = append(picks, pick)
	}
	if len(picks) != Positions {
		return Base{}, fmt.Errorf("malformed base: expected %d picks, got %d", Positions, len(picks))
	}

	var base Base
	copy(base[:], picks)
	return base, nil
}

// Close 文件存储无需释放资源
func (f *FileStore) Close() error {
	return nil
}
