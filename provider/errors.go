package provider

import (
	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-xfc/core"
)

func authorizationDenied(source error) error {
	return core.WrapError(source, goerrors.CategoryAuth, "provider: consumer authorization denied", core.ErrorAuthorizationDenied, nil)
}

func challengeFailed(source error, metadata map[string]any) error {
	return core.WrapError(source, goerrors.CategoryAuth, "provider: secret challenge failed", core.ErrorChallengeFailed, metadata)
}

func noTrustedOrigins() *goerrors.Error {
	return core.NewError("provider: message not sent, no acls provided", goerrors.CategoryBadInput, core.ErrorNoTrustedOrigins, nil)
}

func alreadyLaunched(agentID string, state State) error {
	return core.NewError("provider: agent already launched", goerrors.CategoryConflict, core.ErrorBadInput, map[string]any{
		"agent_id": agentID,
		"state":    state.String(),
	})
}
