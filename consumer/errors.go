package consumer

import (
	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-xfc/core"
)

func frameError(message string, category goerrors.Category, textCode string, metadata map[string]any) error {
	return core.NewError(message, category, textCode, metadata)
}

func notMounted(frameID string) error {
	return frameError("consumer: frame is not mounted", goerrors.CategoryOperation, core.ErrorDisposed, map[string]any{
		"frame_id": frameID,
	})
}

func notAuthorized(method string) error {
	return frameError("consumer: provider is not authorized", goerrors.CategoryAuthz, core.ErrorNotAuthorized, map[string]any{
		"method": method,
	})
}
