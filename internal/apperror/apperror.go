// Package apperror 定义业务错误分类及其 HTTP 映射
package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind 错误类别
type Kind string

const (
	KindValidation   Kind = "validation"
	KindNotFound     Kind = "not_found"
	KindForbidden    Kind = "forbidden"
	KindInvalidState Kind = "invalid_state"
	KindDependency   Kind = "dependency"
)

// Violation 单个字段校验失败
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error 业务错误
type Error struct {
	Kind       Kind
	Message    string
	Violations []Violation
	Err        error // 原始错误，仅用于日志
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	for i, v := range e.Violations {
		if i == 0 {
			b.WriteString(": ")
		} else {
			b.WriteString("; ")
		}
		b.WriteString(v.Field)
		b.WriteString(" ")
		b.WriteString(v.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation 创建校验错误
func Validation(violations ...Violation) *Error {
	return &Error{Kind: KindValidation, Message: "validation failed", Violations: violations}
}

// Invalid 单字段校验错误
func Invalid(field, format string, args ...interface{}) *Error {
	return Validation(Violation{Field: field, Message: fmt.Sprintf(format, args...)})
}

func NotFound(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Forbidden(format string, args ...interface{}) *Error {
	return &Error{Kind: KindForbidden, Message: fmt.Sprintf(format, args...)}
}

func InvalidState(format string, args ...interface{}) *Error {
	return &Error{Kind: KindInvalidState, Message: fmt.Sprintf(format, args...)}
}

// Dependency 外部依赖失败，err 不会返回给调用方
func Dependency(err error, format string, args ...interface{}) *Error {
	return &Error{Kind: KindDependency, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf 获取错误类别，非业务错误视为依赖失败
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindDependency
}

// Is 判断错误类别
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// As 取出业务错误
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

// HTTPStatus 错误类别对应的状态码
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindInvalidState:
		return http.StatusConflict
	case KindDependency:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Collector 收集多个校验错误
type Collector struct {
	violations []Violation
}

func (c *Collector) Add(field, format string, args ...interface{}) {
	c.violations = append(c.violations, Violation{Field: field, Message: fmt.Sprintf(format, args...)})
}

// Check cond 为 false 时记录
func (c *Collector) Check(cond bool, field, format string, args ...interface{}) {
	if !cond {
		c.Add(field, format, args...)
	}
}

func (c *Collector) Violations() []Violation {
	return c.violations
}

// Err 无错误时返回 nil
func (c *Collector) Err() error {
	if len(c.violations) == 0 {
		return nil
	}
	return Validation(c.violations...)
}
