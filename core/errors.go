package core

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	ErrorAuthorizationDenied = "XFC_AUTHORIZATION_DENIED"
	ErrorChallengeFailed     = "XFC_CHALLENGE_FAILED"
	ErrorMethodNotFound      = "XFC_METHOD_NOT_FOUND"
	ErrorHandlerFailed       = "XFC_HANDLER_FAILED"
	ErrorUntrustedOrigin     = "XFC_UNTRUSTED_ORIGIN"
	ErrorNoTrustedOrigins    = "XFC_NO_TRUSTED_ORIGINS"
	ErrorNotAuthorized       = "XFC_NOT_AUTHORIZED"
	ErrorDisposed            = "XFC_DISPOSED"
	ErrorBadInput            = "XFC_BAD_INPUT"
	ErrorInternal            = "XFC_INTERNAL_ERROR"
)

// JSON-RPC error codes carried in response envelopes.
const (
	RPCCodeParseError     = -32700
	RPCCodeInvalidRequest = -32600
	RPCCodeMethodNotFound = -32601
	RPCCodeInvalidParams  = -32602
	RPCCodeInternal       = -32603
	RPCCodeHandlerFailed  = -32000
	RPCCodeNotAuthorized  = -32001
	RPCCodeDisposed       = -32002
)

// NewError builds an xfc error envelope. A zero code is replaced by the
// default code of the text code.
func NewError(message string, category goerrors.Category, textCode string, metadata map[string]any) *goerrors.Error {
	err := goerrors.New(message, category).
		WithCode(codeFor(textCode, category)).
		WithTextCode(textCode)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

// WrapError wraps source into an xfc error envelope. A nil source behaves
// like NewError.
func WrapError(
	source error,
	category goerrors.Category,
	message string,
	textCode string,
	metadata map[string]any,
) *goerrors.Error {
	if source == nil {
		return NewError(message, category, textCode, metadata)
	}
	err := goerrors.Wrap(source, category, message).
		WithCode(codeFor(textCode, category)).
		WithTextCode(textCode)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

// TextCode returns the text code of err, or "" when err is not an envelope.
func TextCode(err error) string {
	if err == nil {
		return ""
	}
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		return ""
	}
	return strings.TrimSpace(rich.TextCode)
}

func HasTextCode(err error, textCode string) bool {
	return TextCode(err) == textCode
}

// MapError converts any error into an xfc envelope.
func MapError(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureEnvelope(richErr)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "method not found"):
		return NewError(err.Error(), goerrors.CategoryNotFound, ErrorMethodNotFound, nil)
	case strings.Contains(msg, "challenge"):
		return NewError(err.Error(), goerrors.CategoryAuth, ErrorChallengeFailed, nil)
	case strings.Contains(msg, "not authorized"), strings.Contains(msg, "unauthorized"):
		return NewError(err.Error(), goerrors.CategoryAuthz, ErrorNotAuthorized, nil)
	case strings.Contains(msg, "disposed"), strings.Contains(msg, "closed"):
		return NewError(err.Error(), goerrors.CategoryOperation, ErrorDisposed, nil)
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"):
		return NewError(err.Error(), goerrors.CategoryBadInput, ErrorBadInput, nil)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureEnvelope(mapped)
}

func ensureEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultTextCode(err.Category)
	}
	if err.Code == 0 {
		err.Code = codeFor(err.TextCode, err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return ErrorBadInput
	case goerrors.CategoryNotFound:
		return ErrorMethodNotFound
	case goerrors.CategoryAuth:
		return ErrorAuthorizationDenied
	case goerrors.CategoryAuthz:
		return ErrorNotAuthorized
	case goerrors.CategoryOperation:
		return ErrorHandlerFailed
	default:
		return ErrorInternal
	}
}

// RPCCode returns the JSON-RPC error code used on the wire for a text code.
func RPCCode(textCode string) int {
	switch textCode {
	case ErrorMethodNotFound:
		return RPCCodeMethodNotFound
	case ErrorNotAuthorized:
		return RPCCodeNotAuthorized
	case ErrorDisposed:
		return RPCCodeDisposed
	case ErrorBadInput:
		return RPCCodeInvalidParams
	case ErrorInternal:
		return RPCCodeInternal
	default:
		return RPCCodeHandlerFailed
	}
}

// TextCodeForRPC is the inverse of RPCCode for peers that omit error data.
func TextCodeForRPC(code int) string {
	switch code {
	case RPCCodeMethodNotFound:
		return ErrorMethodNotFound
	case RPCCodeNotAuthorized:
		return ErrorNotAuthorized
	case RPCCodeDisposed:
		return ErrorDisposed
	case RPCCodeInvalidParams, RPCCodeInvalidRequest, RPCCodeParseError:
		return ErrorBadInput
	case RPCCodeInternal:
		return ErrorInternal
	default:
		return ErrorHandlerFailed
	}
}

func codeFor(textCode string, category goerrors.Category) int {
	switch textCode {
	case ErrorMethodNotFound, ErrorHandlerFailed, ErrorNotAuthorized, ErrorDisposed:
		return RPCCode(textCode)
	}
	return httpStatus(category)
}

func httpStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
