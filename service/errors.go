package service

import "errors"

// ErrorKind 领域错误种类，由 api 层统一翻译为 HTTP 状态码
type ErrorKind int

const (
	// KindValidation 输入校验失败（400）
	KindValidation ErrorKind = iota
	// KindNotFound 引用的实体不存在（404）
	KindNotFound
	// KindConflict 唯一性冲突或被引用无法删除（409）
	KindConflict
	// KindUnavailable 存储层不可用（503）
	KindUnavailable
)

// FieldError 字段级校验错误明细
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error 领域层统一错误类型
// Message 为面向用户的消息，Err 保留底层错误仅用于服务端日志
type Error struct {
	Kind    ErrorKind
	Message string
	Fields  []FieldError
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewValidationError 创建校验错误
func NewValidationError(message string, fields ...FieldError) *Error {
	return &Error{Kind: KindValidation, Message: message, Fields: fields}
}

// NewNotFoundError 创建资源不存在错误
func NewNotFoundError(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

// NewConflictError 创建冲突错误
func NewConflictError(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

// NewUnavailableError 创建存储不可用错误
func NewUnavailableError(message string, err error) *Error {
	return &Error{Kind: KindUnavailable, Message: message, Err: err}
}

// AsServiceError 提取领域错误
func AsServiceError(err error) (*Error, bool) {
	var se *Error
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
