package command

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	gocmd "github.com/goliatone/go-command"

	"github.com/goliatone/go-xfc/consumer"
	"github.com/goliatone/go-xfc/dom"
)

func TestMountFrameCommand_ExecuteDelegatesAndStoresResult(t *testing.T) {
	container := dom.NewDocument().Body()
	expected := consumer.FrameInfo{ID: "frame_1", Source: "https://app.example.com", Status: consumer.StatusMounted}
	called := false

	svc := stubFrameService{
		mountFn: func(_ context.Context, got *dom.Element, source string, opts ...consumer.Option) (consumer.FrameInfo, error) {
			called = true
			if got != container || source != "https://app.example.com" {
				t.Fatalf("unexpected mount request: %v %q", got, source)
			}
			if len(opts) != 1 {
				t.Fatalf("expected frame options forwarded, got %d", len(opts))
			}
			return expected, nil
		},
	}

	cmd := NewMountFrameCommand(svc)
	collector := gocmd.NewResult[consumer.FrameInfo]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)

	err := cmd.Execute(ctx, MountFrameMessage{
		Container: container,
		Source:    "https://app.example.com",
		Options:   []consumer.Option{consumer.WithSecret("s3")},
	})
	if err != nil {
		t.Fatalf("execute mount: %v", err)
	}
	if !called {
		t.Fatalf("expected mount service invocation")
	}
	result, ok := collector.Load()
	if !ok {
		t.Fatalf("expected result to be stored")
	}
	if result.ID != expected.ID || result.Status != expected.Status {
		t.Fatalf("unexpected result: %#v", result)
	}
}

func TestFrameCommands_DelegateToService(t *testing.T) {
	t.Run("unmount", func(t *testing.T) {
		called := false
		svc := stubFrameService{
			unmountFn: func(_ context.Context, frameID string) error {
				called = true
				if frameID != "frame_1" {
					t.Fatalf("unexpected frame id %q", frameID)
				}
				return nil
			},
		}
		if err := NewUnmountFrameCommand(svc).Execute(context.Background(), UnmountFrameMessage{FrameID: "frame_1"}); err != nil {
			t.Fatalf("execute unmount: %v", err)
		}
		if !called {
			t.Fatalf("expected unmount invocation")
		}
	})

	t.Run("load", func(t *testing.T) {
		called := false
		svc := stubFrameService{
			loadFn: func(_ context.Context, frameID string, url string) error {
				called = true
				if frameID != "frame_1" || url != "https://app.example.com/next" {
					t.Fatalf("unexpected load payload: %q %q", frameID, url)
				}
				return nil
			},
		}
		err := NewLoadFrameCommand(svc).Execute(context.Background(), LoadFrameMessage{FrameID: "frame_1", URL: "https://app.example.com/next"})
		if err != nil {
			t.Fatalf("execute load: %v", err)
		}
		if !called {
			t.Fatalf("expected load invocation")
		}
	})

	t.Run("trigger", func(t *testing.T) {
		called := false
		svc := stubFrameService{
			triggerFn: func(_ context.Context, frameID string, event string, detail any) error {
				called = true
				if event != "theme.changed" || detail != "dark" {
					t.Fatalf("unexpected trigger payload: %q %v", event, detail)
				}
				return nil
			},
		}
		err := NewTriggerFrameEventCommand(svc).Execute(context.Background(), TriggerFrameEventMessage{
			FrameID: "frame_1",
			Event:   "theme.changed",
			Detail:  "dark",
		})
		if err != nil {
			t.Fatalf("execute trigger: %v", err)
		}
		if !called {
			t.Fatalf("expected trigger invocation")
		}
	})

	t.Run("invoke stores raw result", func(t *testing.T) {
		svc := stubFrameService{
			invokeFn: func(_ context.Context, frameID string, method string, params ...any) (json.RawMessage, error) {
				if method != "sum" || len(params) != 2 {
					t.Fatalf("unexpected invoke payload: %q %v", method, params)
				}
				return json.RawMessage(`3`), nil
			},
		}
		collector := gocmd.NewResult[json.RawMessage]()
		ctx := gocmd.ContextWithResult(context.Background(), collector)
		err := NewInvokeFrameMethodCommand(svc).Execute(ctx, InvokeFrameMethodMessage{
			FrameID: "frame_1",
			Method:  "sum",
			Params:  []any{1, 2},
		})
		if err != nil {
			t.Fatalf("execute invoke: %v", err)
		}
		stored, ok := collector.Load()
		if !ok || string(stored) != "3" {
			t.Fatalf("unexpected invoke result %q", stored)
		}
	})

	t.Run("service errors propagate", func(t *testing.T) {
		err := NewUnmountFrameCommand(stubFrameService{}).Execute(context.Background(), UnmountFrameMessage{FrameID: "frame_1"})
		if err == nil {
			t.Fatalf("expected unconfigured stub to fail")
		}
	})
}

func TestProviderCommands_DelegateToService(t *testing.T) {
	var launched, triggered string
	svc := stubProviderService{
		launchFn: func(_ context.Context, providerID string) error {
			launched = providerID
			return nil
		},
		triggerFn: func(_ context.Context, providerID string, event string, _ any) error {
			triggered = providerID + ":" + event
			return nil
		},
	}
	if err := NewLaunchProviderCommand(svc).Execute(context.Background(), LaunchProviderMessage{ProviderID: "p1"}); err != nil {
		t.Fatalf("execute launch: %v", err)
	}
	err := NewTriggerProviderEventCommand(svc).Execute(context.Background(), TriggerProviderEventMessage{
		ProviderID: "p1",
		Event:      "xfc.fullscreen",
	})
	if err != nil {
		t.Fatalf("execute trigger: %v", err)
	}
	if launched != "p1" || triggered != "p1:xfc.fullscreen" {
		t.Fatalf("unexpected provider calls %q %q", launched, triggered)
	}
}

func TestMessages_Validate(t *testing.T) {
	cases := map[string]interface{ Validate() error }{
		"unmount without id":       UnmountFrameMessage{},
		"load without url":         LoadFrameMessage{FrameID: "f"},
		"trigger without event":    TriggerFrameEventMessage{FrameID: "f"},
		"invoke without method":    InvokeFrameMethodMessage{FrameID: "f"},
		"launch without provider":  LaunchProviderMessage{},
		"provider trigger no name": TriggerProviderEventMessage{ProviderID: "p"},
		"mount without source":     MountFrameMessage{Container: dom.NewDocument().Body()},
	}
	for name, msg := range cases {
		t.Run(name, func(t *testing.T) {
			if err := msg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

type stubFrameService struct {
	mountFn   func(ctx context.Context, container *dom.Element, source string, opts ...consumer.Option) (consumer.FrameInfo, error)
	unmountFn func(ctx context.Context, frameID string) error
	loadFn    func(ctx context.Context, frameID string, url string) error
	triggerFn func(ctx context.Context, frameID string, event string, detail any) error
	invokeFn  func(ctx context.Context, frameID string, method string, params ...any) (json.RawMessage, error)
}

func (s stubFrameService) MountFrame(ctx context.Context, container *dom.Element, source string, opts ...consumer.Option) (consumer.FrameInfo, error) {
	if s.mountFn == nil {
		return consumer.FrameInfo{}, fmt.Errorf("mount not configured")
	}
	return s.mountFn(ctx, container, source, opts...)
}

func (s stubFrameService) UnmountFrame(ctx context.Context, frameID string) error {
	if s.unmountFn == nil {
		return fmt.Errorf("unmount not configured")
	}
	return s.unmountFn(ctx, frameID)
}

func (s stubFrameService) LoadFrame(ctx context.Context, frameID string, url string) error {
	if s.loadFn == nil {
		return fmt.Errorf("load not configured")
	}
	return s.loadFn(ctx, frameID, url)
}

func (s stubFrameService) TriggerFrameEvent(ctx context.Context, frameID string, event string, detail any) error {
	if s.triggerFn == nil {
		return fmt.Errorf("trigger not configured")
	}
	return s.triggerFn(ctx, frameID, event, detail)
}

func (s stubFrameService) InvokeFrameMethod(ctx context.Context, frameID string, method string, params ...any) (json.RawMessage, error) {
	if s.invokeFn == nil {
		return nil, fmt.Errorf("invoke not configured")
	}
	return s.invokeFn(ctx, frameID, method, params...)
}

type stubProviderService struct {
	launchFn  func(ctx context.Context, providerID string) error
	triggerFn func(ctx context.Context, providerID string, event string, detail any) error
}

func (s stubProviderService) LaunchProvider(ctx context.Context, providerID string) error {
	if s.launchFn == nil {
		return fmt.Errorf("launch not configured")
	}
	return s.launchFn(ctx, providerID)
}

func (s stubProviderService) TriggerProviderEvent(ctx context.Context, providerID string, event string, detail any) error {
	if s.triggerFn == nil {
		return fmt.Errorf("trigger not configured")
	}
	return s.triggerFn(ctx, providerID, event, detail)
}

var (
	_ FrameService    = stubFrameService{}
	_ ProviderService = stubProviderService{}
)
