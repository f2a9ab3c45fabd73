package database

import (
	"fmt"

	"breakcode4d/internal/config"
)

// Repository 开奖历史与base的持久化接口
type Repository interface {
	// LoadDraws 按日期升序返回全部开奖记录，格式错误的记录被跳过
	LoadDraws() ([]DrawRecord, error)

	// AppendDraws 追加比现有最后一期更新的记录，返回实际新增条数
	AppendDraws(records []DrawRecord) (int, error)

	// SaveBase 覆盖保存某策略的base
	SaveBase(strategy string, base Base) error

	// LoadBase 读取某策略的base，不存在时返回 ErrBaseNotFound
	LoadBase(strategy string) (Base, error)

	Close() error
}

// Open 根据配置创建存储
func Open(cfg *config.Storage) (Repository, error) {
	switch cfg.Driver {
	case "file", "":
		return NewFileStore(cfg.DrawsFile, cfg.DataDir), nil
	case "mysql":
		return NewMySQLStore(&cfg.MySQL)
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.Driver)
	}
}
