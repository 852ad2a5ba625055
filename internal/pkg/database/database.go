package database

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open 建立 MySQL 连接。
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "open mysql")
	}
	return db, nil
}

type txKey struct{}

// WithTx 把事务句柄放进 context，仓储层通过 FromCtx 取回，
// 让同一笔下单里的多张表共享一个事务。
func WithTx(ctx context.Context, tx *gorm.DB) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// FromCtx 取出 context 里的事务，没有时退回普通连接。
func FromCtx(ctx context.Context, fallback *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return fallback
}

// TxManager 事务边界抽象，应用层只依赖它，测试用假实现。
type TxManager interface {
	// Do 在一个事务内执行 fn，fn 返回 error 则整体回滚。
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

// GormTxManager 基于 gorm 的事务实现。
type GormTxManager struct {
	db *gorm.DB
}

func NewGormTxManager(db *gorm.DB) *GormTxManager {
	return &GormTxManager{db: db}
}

// Do 开启事务执行 fn；ctx 里已有事务时直接加入，不再嵌套。
func (m *GormTxManager) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(WithTx(ctx, tx))
	})
}
