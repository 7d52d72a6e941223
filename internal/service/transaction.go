package service

import (
	"context"

	"gorm.io/gorm"
)

// TransactionManager 为每个公开操作提供一个显式的工作单元。
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type transactionManager struct {
	db *gorm.DB
}

// NewTransactionManager creates a TransactionManager backed by gdb.
func NewTransactionManager(gdb *gorm.DB) TransactionManager {
	return &transactionManager{db: gdb}
}

// WithTransaction 在 fn 返回错误或 panic 时回滚，否则提交。
func (tm *transactionManager) WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	tx := tm.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return persistenceError(tx.Error)
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return persistenceError(err)
	}

	if err := tx.Commit().Error; err != nil {
		return persistenceError(err)
	}
	return nil
}
