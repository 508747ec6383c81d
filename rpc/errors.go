package rpc

import (
	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-xfc/core"
)

func rpcError(message string, textCode string, metadata map[string]any) error {
	return core.NewError(message, categoryFor(textCode), textCode, metadata)
}

func rpcWrapError(source error, message string, textCode string, metadata map[string]any) error {
	return core.WrapError(source, categoryFor(textCode), message, textCode, metadata)
}

func categoryFor(textCode string) goerrors.Category {
	switch textCode {
	case core.ErrorMethodNotFound:
		return goerrors.CategoryNotFound
	case core.ErrorNotAuthorized:
		return goerrors.CategoryAuthz
	case core.ErrorAuthorizationDenied, core.ErrorChallengeFailed:
		return goerrors.CategoryAuth
	case core.ErrorBadInput:
		return goerrors.CategoryBadInput
	case core.ErrorHandlerFailed, core.ErrorDisposed:
		return goerrors.CategoryOperation
	default:
		return goerrors.CategoryInternal
	}
}

// toErrorObject renders a handler failure for the wire. Errors without a
// text code are reported as handler failures.
func toErrorObject(err error) *ErrorObject {
	textCode := core.TextCode(err)
	if textCode == "" {
		textCode = core.ErrorHandlerFailed
	}
	data := &ErrorData{TextCode: textCode}
	var rich *goerrors.Error
	if goerrors.As(err, &rich) && len(rich.Metadata) > 0 {
		data.Metadata = rich.Metadata
	}
	return &ErrorObject{Code: core.RPCCode(textCode), Message: err.Error(), Data: data}
}

// FromErrorObject converts a wire error into an xfc error envelope.
func FromErrorObject(obj *ErrorObject) error {
	if obj == nil {
		return nil
	}
	textCode := ""
	var metadata map[string]any
	if obj.Data != nil {
		textCode = obj.Data.TextCode
		metadata = obj.Data.Metadata
	}
	if textCode == "" {
		textCode = core.TextCodeForRPC(obj.Code)
	}
	err := core.NewError(obj.Message, categoryFor(textCode), textCode, metadata)
	err.Code = obj.Code
	return err
}
