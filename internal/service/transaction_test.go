package service

import (
	"context"
	"errors"
	"testing"

	"github.com/captionfoundry/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestTransactionManagerRollsBackOnError(t *testing.T) {
	f := newFixture(t)
	tm := NewTransactionManager(f.gdb)

	err := tm.WithTransaction(context.Background(), func(tx *gorm.DB) error {
		if err := tx.Create(&db.Dataset{Name: "scratch"}).Error; err != nil {
			return err
		}
		return errors.New("boom")
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPersistence)

	var count int64
	require.NoError(t, f.gdb.Model(&db.Dataset{}).Where("name = ?", "scratch").Count(&count).Error)
	assert.Zero(t, count)
}

func TestTransactionManagerKeepsDomainErrors(t *testing.T) {
	f := newFixture(t)
	tm := NewTransactionManager(f.gdb)

	err := tm.WithTransaction(context.Background(), func(tx *gorm.DB) error {
		return ErrCaptionNotFound
	})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrPersistence)
}
