package query

import (
	"strings"
)

const (
	TypeGetFrame      = "xfc.query.frame.get"
	TypeListFrames    = "xfc.query.frame.list"
	TypeGetProvider   = "xfc.query.provider.get"
	TypeListProviders = "xfc.query.provider.list"
	TypeMatchOrigin   = "xfc.query.origin.match"
)

type GetFrameMessage struct {
	FrameID string
}

func (GetFrameMessage) Type() string { return TypeGetFrame }

func (m GetFrameMessage) Validate() error {
	if strings.TrimSpace(m.FrameID) == "" {
		return queryValidationError("frame_id", "frame id is required")
	}
	return nil
}

// ListFramesMessage filters by status when Status is set.
type ListFramesMessage struct {
	Status string
}

func (ListFramesMessage) Type() string { return TypeListFrames }

type GetProviderMessage struct {
	ProviderID string
}

func (GetProviderMessage) Type() string { return TypeGetProvider }

func (m GetProviderMessage) Validate() error {
	if strings.TrimSpace(m.ProviderID) == "" {
		return queryValidationError("provider_id", "provider id is required")
	}
	return nil
}

type ListProvidersMessage struct{}

func (ListProvidersMessage) Type() string { return TypeListProviders }

type MatchOriginMessage struct {
	ACL    []string
	Origin string
}

func (MatchOriginMessage) Type() string { return TypeMatchOrigin }

func (m MatchOriginMessage) Validate() error {
	if strings.TrimSpace(m.Origin) == "" {
		return queryValidationError("origin", "origin is required")
	}
	for _, entry := range m.ACL {
		if strings.TrimSpace(entry) == "" {
			return queryValidationError("acl", "acl entries must not be blank")
		}
	}
	return nil
}
