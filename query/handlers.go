package query

import (
	"context"

	"github.com/goliatone/go-xfc/consumer"
	"github.com/goliatone/go-xfc/origin"
	"github.com/goliatone/go-xfc/provider"
)

type FrameReader interface {
	GetFrame(ctx context.Context, frameID string) (consumer.FrameInfo, error)
	ListFrames(ctx context.Context) ([]consumer.FrameInfo, error)
}

type ProviderReader interface {
	GetProvider(ctx context.Context, providerID string) (provider.Info, error)
	ListProviders(ctx context.Context) ([]provider.Info, error)
}

type GetFrameQuery struct {
	reader FrameReader
}

func NewGetFrameQuery(reader FrameReader) *GetFrameQuery {
	return &GetFrameQuery{reader: reader}
}

func (q *GetFrameQuery) Query(ctx context.Context, msg GetFrameMessage) (consumer.FrameInfo, error) {
	if q == nil || q.reader == nil {
		return consumer.FrameInfo{}, queryDependencyError("query: frame reader is required")
	}
	return q.reader.GetFrame(ctx, msg.FrameID)
}

type ListFramesQuery struct {
	reader FrameReader
}

func NewListFramesQuery(reader FrameReader) *ListFramesQuery {
	return &ListFramesQuery{reader: reader}
}

func (q *ListFramesQuery) Query(ctx context.Context, msg ListFramesMessage) ([]consumer.FrameInfo, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: frame reader is required")
	}
	frames, err := q.reader.ListFrames(ctx)
	if err != nil || msg.Status == "" {
		return frames, err
	}
	filtered := make([]consumer.FrameInfo, 0, len(frames))
	for _, frame := range frames {
		if frame.Status == msg.Status {
			filtered = append(filtered, frame)
		}
	}
	return filtered, nil
}

type GetProviderQuery struct {
	reader ProviderReader
}

func NewGetProviderQuery(reader ProviderReader) *GetProviderQuery {
	return &GetProviderQuery{reader: reader}
}

func (q *GetProviderQuery) Query(ctx context.Context, msg GetProviderMessage) (provider.Info, error) {
	if q == nil || q.reader == nil {
		return provider.Info{}, queryDependencyError("query: provider reader is required")
	}
	return q.reader.GetProvider(ctx, msg.ProviderID)
}

type ListProvidersQuery struct {
	reader ProviderReader
}

func NewListProvidersQuery(reader ProviderReader) *ListProvidersQuery {
	return &ListProvidersQuery{reader: reader}
}

func (q *ListProvidersQuery) Query(ctx context.Context, _ ListProvidersMessage) ([]provider.Info, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: provider reader is required")
	}
	return q.reader.ListProviders(ctx)
}

// MatchResult reports the first ACL entry accepting an origin.
type MatchResult struct {
	Origin  string `json:"origin"`
	Matched bool   `json:"matched"`
	Entry   string `json:"entry,omitempty"`
}

// MatchOriginQuery evaluates an origin against an allow-list.
type MatchOriginQuery struct{}

func NewMatchOriginQuery() *MatchOriginQuery {
	return &MatchOriginQuery{}
}

func (q *MatchOriginQuery) Query(_ context.Context, msg MatchOriginMessage) (MatchResult, error) {
	candidate := origin.FromURL(msg.Origin)
	result := MatchResult{Origin: candidate}
	for _, entry := range msg.ACL {
		if origin.Matches([]string{entry}, candidate) {
			result.Matched = true
			result.Entry = entry
			break
		}
	}
	return result, nil
}
