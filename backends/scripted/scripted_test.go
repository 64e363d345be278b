package scripted

import (
	"context"
	"errors"
	"testing"
	"time"

	claudebridge "github.com/RichardAtCT/claude-bridge-go"
)

func TestBackend_Name(t *testing.T) {
	b := New(nil)
	if b.Name() != claudebridge.BackendScripted {
		t.Errorf("Name() = %v, want scripted", b.Name())
	}
}

func TestBackend_SupportsModel(t *testing.T) {
	b := New(nil)

	tests := []struct {
		model    string
		expected bool
	}{
		{"scripted-demo", true},
		{"scripted-anything", true},
		{"claude-sonnet", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			if got := b.SupportsModel(tt.model); got != tt.expected {
				t.Errorf("SupportsModel(%q) = %v, want %v", tt.model, got, tt.expected)
			}
		})
	}
}

func TestBackend_RejectsForeignModel(t *testing.T) {
	b := New(nil)
	_, err := b.Stream(context.Background(), &claudebridge.CompletionRequest{
		Prompt: "hi",
		Model:  "claude-sonnet",
	})
	if err == nil {
		t.Fatal("expected model error")
	}
	if !errors.Is(err, claudebridge.ErrInvalidModel) {
		t.Errorf("error %v does not wrap ErrInvalidModel", err)
	}
}

func TestBackend_ReplaysScriptInOrder(t *testing.T) {
	script := []Step{
		{Event: claudebridge.SystemInitEvent("s1", "/tmp")},
		{Event: claudebridge.TextEvent("hello")},
		{Event: claudebridge.ResultSuccessEvent("hello")},
	}
	b := New(script)

	events, err := b.Stream(context.Background(), &claudebridge.CompletionRequest{Prompt: "p"})
	if err != nil {
		t.Fatalf("Stream failed: %v", err)
	}

	var kinds []claudebridge.EventKind
	for ev := range events {
		kinds = append(kinds, ev.Kind)
	}

	want := []claudebridge.EventKind{
		claudebridge.EventSystem,
		claudebridge.EventAssistant,
		claudebridge.EventResultSuccess,
	}
	if len(kinds) != len(want) {
		t.Fatalf("got %d events %v, want %d", len(kinds), kinds, len(want))
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("event[%d] = %v, want %v", i, kinds[i], want[i])
		}
	}
}

func TestBackend_CancellationStopsReplay(t *testing.T) {
	script := []Step{
		{Event: claudebridge.TextEvent("first")},
		{Delay: time.Hour, Event: claudebridge.TextEvent("never")},
	}
	b := New(script)

	ctx, cancel := context.WithCancel(context.Background())
	events, err := b.Stream(ctx, &claudebridge.CompletionRequest{Prompt: "p"})
	if err != nil {
		t.Fatalf("Stream failed: %v", err)
	}

	<-events
	cancel()

	select {
	case ev, ok := <-events:
		if ok {
			t.Errorf("event %+v delivered after cancellation", ev)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("event channel did not close after cancellation")
	}
}

func TestNewDefault_ScriptShape(t *testing.T) {
	b := NewDefault(10 * time.Millisecond)

	events, err := b.Stream(context.Background(), &claudebridge.CompletionRequest{Prompt: "p", Model: "scripted-demo"})
	if err != nil {
		t.Fatalf("Stream failed: %v", err)
	}

	var all []claudebridge.Event
	for ev := range events {
		all = append(all, ev)
	}
	if len(all) != 5 {
		t.Fatalf("got %d events, want 5", len(all))
	}
	if all[0].Kind != claudebridge.EventSystem {
		t.Error("default script does not start with system init")
	}
	if last := all[len(all)-1]; last.Kind != claudebridge.EventResultSuccess || last.Result == "" {
		t.Errorf("default script does not end with a success result carrying text: %+v", last)
	}
}
