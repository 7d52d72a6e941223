package service

import (
	"errors"
	"fmt"

	"github.com/captionfoundry/internal/textops"
	"gorm.io/gorm"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrCaptionNotFound    = fmt.Errorf("caption %w", ErrNotFound)
	ErrCaptionSetNotFound = fmt.Errorf("caption set %w", ErrNotFound)
	ErrVersionNotFound    = fmt.Errorf("version %w", ErrNotFound)
	ErrFileNotFound       = fmt.Errorf("file %w", ErrNotFound)
	ErrDatasetNotFound    = fmt.Errorf("dataset %w", ErrNotFound)

	ErrInvalidInput     = errors.New("invalid input")
	ErrInvalidOperation = textops.ErrInvalidOperation
	ErrDuplicateName    = errors.New("caption set name already exists in this dataset")
	ErrPersistence      = errors.New("persistence failure")

	// ErrEmptyCaption 在批量编辑把说明文字变为空串时按条目报告。
	ErrEmptyCaption = errors.New("edit would leave the caption empty")
)

func invalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// persistenceError 把存储层错误归类为 ErrPersistence，领域错误原样返回。
func persistenceError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrInvalidOperation),
		errors.Is(err, ErrDuplicateName),
		errors.Is(err, ErrEmptyCaption),
		errors.Is(err, ErrPersistence):
		return err
	}
	return fmt.Errorf("%w: %v", ErrPersistence, err)
}

// notFoundOr 把 gorm 的记录不存在转换为指定的领域错误。
func notFoundOr(err error, notFound error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	return persistenceError(err)
}
