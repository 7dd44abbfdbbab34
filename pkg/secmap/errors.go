package secmap

import (
	stderrors "errors"
	"fmt"

	"github.com/agilira/go-errors"
)

// 结构性错误码：类型定义有误，整棵绑定立即终止，不附加路径信息。
const (
	ErrCodeNoConstructor   = "SECMAP_NO_CONSTRUCTOR"
	ErrCodeInvalidTarget   = "SECMAP_INVALID_TARGET"
	ErrCodeSelfReference   = "SECMAP_SELF_REFERENCE"
	ErrCodeDuplicateKey    = "SECMAP_DUPLICATE_KEY"
	ErrCodePlainObject     = "SECMAP_PLAIN_OBJECT"
	ErrCodeDecidedType     = "SECMAP_DECIDED_TYPE"
	ErrCodeUnsupportedType = "SECMAP_UNSUPPORTED_TYPE"
	ErrCodeBlankKey        = "SECMAP_BLANK_KEY"
)

// MappingError 是单个值的映射失败。
//
// 错误向外传播时逐层追加位置说明，最终消息形如：
//
//	value "x" was not one of A, B (at index 1 of a list) (at path 'items.kinds')
type MappingError struct {
	Message string
	Cause   error
}

func (e *MappingError) Error() string {
	return e.Message
}

func (e *MappingError) Unwrap() error {
	return e.Cause
}

func mappingErrorf(format string, args ...any) *MappingError {
	return &MappingError{Message: fmt.Sprintf(format, args...)}
}

// annotate 为映射失败追加位置后缀，其他错误原样返回。
func annotate(err error, suffix string) error {
	var me *MappingError
	if !stderrors.As(err, &me) || IsStructural(err) {
		return err
	}

	return &MappingError{Message: me.Message + suffix, Cause: err}
}

// IsStructural 判断错误是否携带结构性错误码。
func IsStructural(err error) bool {
	var coder errors.ErrorCoder

	return stderrors.As(err, &coder)
}

// ErrorCode 返回错误携带的错误码，没有则返回空字符串。
func ErrorCode(err error) string {
	var coder errors.ErrorCoder
	if !stderrors.As(err, &coder) {
		return ""
	}

	return string(coder.ErrorCode())
}
