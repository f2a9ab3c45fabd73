package database

import (
	"database/sql"
	"fmt"
	"strings"

	"breakcode4d/internal/config"
	"breakcode4d/internal/logger"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLStore MySQL存储，与文件存储保存相同的数据
type MySQLStore struct {
	db *sql.DB
}

// NewMySQLStore 创建新的MySQL数据库连接
func NewMySQLStore(cfg *config.Database) (*MySQLStore, error) {
	db, err := sql.Open("mysql", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %v", err)
	}

	// 设置连接池参数
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %v", err)
	}

	store, err := newMySQLStoreFromDB(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func newMySQLStoreFromDB(db *sql.DB) (*MySQLStore, error) {
	store := &MySQLStore{db: db}
	if err := store.createTablesIfNotExists(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %v", err)
	}
	return store, nil
}

// Close 关闭数据库连接
func (m *MySQLStore) Close() error {
	return m.db.Close()
}

// LoadDraws 获取全部开奖记录
func (m *MySQLStore) LoadDraws() ([]DrawRecord, error) {
	rows, err := m.db.Query(`SELECT draw_date, number FROM draws ORDER BY draw_date ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query draws: %v", err)
	}
	defer rows.Close()

	var draws []DrawRecord
	for rows.Next() {
		var rec DrawRecord
		if err := rows.Scan(&rec.Date, &rec.Number); err != nil {
			return nil, fmt.Errorf("failed to scan draw: %v", err)
		}
		if !ValidNumber(rec.Number) {
			logger.Debugf("Skipping malformed draw row %s %q", rec.Date.Format(DateLayout), rec.Number)
			continue
		}
		rec.Date = DayOf(rec.Date)
		draws = append(draws, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error reading draw rows: %v", err)
	}

	return draws, nil
}

// AppendDraws 在事务中插入新记录
func (m *MySQLStore) AppendDraws(records []DrawRecord) (int, error) {
	var latest sql.NullTime
	if err := m.db.QueryRow(`SELECT MAX(draw_date) FROM draws`).Scan(&latest); err != nil {
		return 0, fmt.Errorf("failed to get latest draw date: %v", err)
	}

	var existing []DrawRecord
	if latest.Valid {
		existing = []DrawRecord{{Date: DayOf(latest.Time)}}
	}
	fresh := NewerDraws(existing, records)
	if len(fresh) == 0 {
		return 0, nil
	}

	tx, err := m.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %v", err)
	}
	for _, rec := range fresh {
		if _, err := tx.Exec(`INSERT IGNORE INTO draws (draw_date, number) VALUES (?, ?)`,
			rec.DateString(), rec.Number); err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("failed to insert draw %s: %v", rec.DateString(), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit draws: %v", err)
	}

	logger.Debugf("Saved %d draws to mysql", len(fresh))
	return len(fresh), nil
}

// SaveBase 覆盖某策略的base
func (m *MySQLStore) SaveBase(strategy string, base Base) error {
	tx, err := m.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %v", err)
	}
	if _, err := tx.Exec(`DELETE FROM bases WHERE strategy = ?`, strategy); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to clear base: %v", err)
	}
	for pos, pick := range base {
		if _, err := tx.Exec(`INSERT INTO bases (strategy, position, digits) VALUES (?, ?, ?)`,
			strategy, pos, pick.String()); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to save base position %d: %v", pos, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit base: %v", err)
	}
	return nil
}

// LoadBase 读取某策略的base
func (m *MySQLStore) LoadBase(strategy string) (Base, error) {
	rows, err := m.db.Query(`SELECT position, digits FROM bases WHERE strategy = ? ORDER BY position ASC`, strategy)
	if err != nil {
		return Base{}, fmt.Errorf("failed to query base: %v", err)
	}
	defer rows.Close()

	var lines []string
	for rows.Next() {
		var pos int
		var digits string
		if err := rows.Scan(&pos, &digits); err != nil {
			return Base{}, fmt.Errorf("failed to scan base row: %v", err)
		}
		lines = append(lines, digits)
	}
	if err := rows.Err(); err != nil {
		return Base{}, fmt.Errorf("error reading base rows: %v", err)
	}
	if len(lines) == 0 {
		return Base{}, fmt.Errorf("%w: %s", ErrBaseNotFound, strategy)
	}

	return ParseBase(strings.Join(lines, "\n"))
}

// createTablesIfNotExists 自动创建表结构
func (m *MySQLStore) createTablesIfNotExists() error {
	createDraws := `CREATE TABLE IF NOT EXISTS draws (
		draw_date DATE PRIMARY KEY COMMENT '开奖日期',
		number CHAR(4) NOT NULL COMMENT '头奖号码',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COMMENT='开奖历史'`
	if _, err := m.db.Exec(createDraws); err != nil {
		return fmt.Errorf("failed to create draws table: %v", err)
	}

	createBases := `CREATE TABLE IF NOT EXISTS bases (
		strategy VARCHAR(32) NOT NULL COMMENT '策略名',
		position TINYINT NOT NULL COMMENT '位置 0-3',
		digits VARCHAR(32) NOT NULL COMMENT '空格分隔的候选数字',
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		PRIMARY KEY (strategy, position)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COMMENT='各策略最新base'`
	if _, err := m.db.Exec(createBases); err != nil {
		return fmt.Errorf("failed to create bases table: %v", err)
	}

	return nil
}
