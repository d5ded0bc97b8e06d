package response

import "errors"

// AppError 统一错误包装
type AppError struct {
	Code    int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// WrapError 包装错误；已经是 AppError 的错误保留原始业务码。
func WrapError(code int, message string, err error) *AppError {
	var inner *AppError
	if errors.As(err, &inner) && inner.Code != 0 {
		code = inner.Code
	}
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}
