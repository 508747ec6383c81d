package events

import (
	"context"
	"testing"

	"github.com/goliatone/go-xfc/core"
)

func TestCatalogStrings(t *testing.T) {
	want := []string{
		"xfc.authorized",
		"xfc.error",
		"xfc.fullscreen",
		"xfc.launched",
		"xfc.mounted",
		"xfc.provider.httpError",
		"xfc.ready",
		"xfc.unload",
		"xfc.unmounted",
	}
	got := Catalog()
	if len(got) != len(want) {
		t.Fatalf("expected %d names, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("catalog[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if IsLifecycle("custom.event") || !IsLifecycle(Ready) {
		t.Fatalf("unexpected lifecycle classification")
	}
}

func TestBusDeliveryOrderAndUnsubscribe(t *testing.T) {
	bus := NewBus()
	calls := []string{}
	bus.On(Ready, func(context.Context, Event) { calls = append(calls, "first") })
	off := bus.On(Ready, func(context.Context, Event) { calls = append(calls, "second") })
	bus.OnAny(func(_ context.Context, event Event) { calls = append(calls, "any:"+event.Name) })

	bus.Emit(context.Background(), Ready, nil)
	off()
	bus.Emit(context.Background(), Ready, nil)

	want := []string{"first", "second", "any:xfc.ready", "first", "any:xfc.ready"}
	if len(calls) != len(want) {
		t.Fatalf("unexpected calls %v", calls)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Fatalf("calls[%d] = %q, want %q", i, calls[i], want[i])
		}
	}
}

func TestSubscribeTyped(t *testing.T) {
	bus := NewBus()
	var got AuthorizedDetail
	count := 0
	Subscribe(bus, Authorized, func(_ context.Context, detail AuthorizedDetail) {
		got = detail
		count++
	})

	bus.Emit(context.Background(), Authorized, "not a detail")
	bus.Emit(context.Background(), Authorized, AuthorizedDetail{URL: "http://app.test/", Options: map[string]any{"a": 1}})

	if count != 1 || got.URL != "http://app.test/" {
		t.Fatalf("expected one typed delivery, got %d %#v", count, got)
	}
}

func TestBusRecoversHandlerPanic(t *testing.T) {
	reporter := &core.MemoryErrorReporter{}
	bus := NewBus().WithErrorReporter(reporter)
	delivered := false
	bus.On(Error, func(context.Context, Event) { panic("boom") })
	bus.On(Error, func(context.Context, Event) { delivered = true })

	bus.Emit(context.Background(), Error, nil)

	if !delivered {
		t.Fatalf("expected delivery to continue after panic")
	}
	if len(reporter.Errors()) != 1 {
		t.Fatalf("expected panic to be reported")
	}
}
