// Package apperr はアプリケーション共通のエラー種別を定義します。
package apperr

import (
	"errors"
	"fmt"
)

// Kind はエラーの種別です。
type Kind string

const (
	KindResourceNotFound     Kind = "RESOURCE_NOT_FOUND"
	KindRecordNotFound       Kind = "RECORD_NOT_FOUND"
	KindPermissionDenied     Kind = "PERMISSION_DENIED"
	KindConfiguration        Kind = "CONFIGURATION_ERROR"
	KindUnsupportedOperation Kind = "UNSUPPORTED_OPERATION"
	KindUnauthenticated      Kind = "UNAUTHENTICATED"
)

// Error は種別とメッセージを持つエラーです。
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is は同じ Kind の *Error と一致します。
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

// New は Error を作成します。
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap は原因エラー付きの Error を作成します。
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// 比較用の番兵値。errors.Is(err, apperr.ErrPermissionDenied) のように使う。
var (
	ErrResourceNotFound     = &Error{Kind: KindResourceNotFound}
	ErrRecordNotFound       = &Error{Kind: KindRecordNotFound}
	ErrPermissionDenied     = &Error{Kind: KindPermissionDenied}
	ErrConfiguration        = &Error{Kind: KindConfiguration}
	ErrUnsupportedOperation = &Error{Kind: KindUnsupportedOperation}
	ErrUnauthenticated      = &Error{Kind: KindUnauthenticated}
)

// KindOf は err に含まれる Error の種別を返します。該当しない場合は空文字です。
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}
