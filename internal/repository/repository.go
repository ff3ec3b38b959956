// Package repository 基于 gorm 的存储实现
package repository

import (
	"errors"

	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/apperror"
	"gorm.io/gorm"
)

// dbError 将 gorm 错误转换为业务错误
func dbError(err error, entity string) error {
	if err == nil {
		return nil
	}
	if _, ok := apperror.As(err); ok {
		return err
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperror.NotFound("%s不存在", entity)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apperror.InvalidState("%s已存在", entity)
	default:
		return apperror.Dependency(err, "%s存储失败", entity)
	}
}
