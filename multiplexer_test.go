package claudebridge

import (
	"context"
	"strings"
	"testing"
	"time"
)

func collectFrames(t *testing.T, frames <-chan Frame) []Frame {
	t.Helper()
	var out []Frame
	deadline := time.After(30 * time.Second)
	for {
		select {
		case f, ok := <-frames:
			if !ok {
				return out
			}
			out = append(out, f)
		case <-deadline:
			t.Fatalf("frame stream never closed; got %d frames so far", len(out))
		}
	}
}

// checkEnvelope asserts the invariants every completed stream must satisfy:
// exactly one RoleOpen before any content, at most one error frame, and
// FinishStop then Done at the end.
func checkEnvelope(t *testing.T, frames []Frame) {
	t.Helper()
	if len(frames) < 3 {
		t.Fatalf("stream too short: %v", frames)
	}

	roleOpens, errorFrames := 0, 0
	sawRole := false
	for _, f := range frames {
		switch f.Kind {
		case FrameRoleOpen:
			roleOpens++
			sawRole = true
		case FrameContentChunk:
			if !sawRole {
				t.Error("content chunk before RoleOpen")
			}
		case FrameError:
			errorFrames++
		}
	}
	if roleOpens != 1 {
		t.Errorf("RoleOpen count = %d, want exactly 1", roleOpens)
	}
	if errorFrames > 1 {
		t.Errorf("error frame count = %d, want at most 1", errorFrames)
	}
	if frames[len(frames)-2].Kind != FrameFinishStop {
		t.Errorf("second-to-last frame = %v, want FinishStop", frames[len(frames)-2].Kind)
	}
	if frames[len(frames)-1].Kind != FrameDone {
		t.Errorf("last frame = %v, want Done", frames[len(frames)-1].Kind)
	}
}

func newTestMux(t *testing.T, cfg MultiplexerConfig) *StreamMultiplexer {
	t.Helper()
	mux, err := NewStreamMultiplexer(cfg)
	if err != nil {
		t.Fatalf("NewStreamMultiplexer failed: %v", err)
	}
	return mux
}

func feedEvents(events ...Event) <-chan Event {
	ch := make(chan Event, len(events))
	for _, ev := range events {
		ch <- ev
	}
	close(ch)
	return ch
}

func TestNewStreamMultiplexer_InvalidMode(t *testing.T) {
	_, err := NewStreamMultiplexer(MultiplexerConfig{Mode: "bogus"})
	if err == nil {
		t.Fatal("expected error for invalid mode")
	}
	if !IsConfigError(err) {
		t.Errorf("IsConfigError(%v) = false, want true", err)
	}
}

// Live mode forwards deltas in order with the bare envelope around them.
func TestLive_ForwardsContentInOrder(t *testing.T) {
	mux := newTestMux(t, MultiplexerConfig{Mode: ModeLive})
	frames := collectFrames(t, mux.Run(context.Background(),
		feedEvents(TextEvent("Hello "), TextEvent("world"))))

	want := []Frame{
		{Kind: FrameRoleOpen},
		ContentFrame("Hello "),
		ContentFrame("world"),
		{Kind: FrameFinishStop},
		{Kind: FrameDone},
	}
	if len(frames) != len(want) {
		t.Fatalf("got %d frames %v, want %d", len(frames), frames, len(want))
	}
	for i := range want {
		if frames[i] != want[i] {
			t.Errorf("frame[%d] = %+v, want %+v", i, frames[i], want[i])
		}
	}
}

// The success marker carries the full answer already streamed as assistant
// deltas; live mode must not forward it as an extra content chunk.
func TestLive_ResultSuccessTextNotRepeated(t *testing.T) {
	mux := newTestMux(t, MultiplexerConfig{Mode: ModeLive})
	frames := collectFrames(t, mux.Run(context.Background(),
		feedEvents(TextEvent("Hello world"), ResultSuccessEvent("Hello world"))))

	checkEnvelope(t, frames)
	var content []string
	for _, f := range frames {
		if f.Kind == FrameContentChunk {
			content = append(content, f.Text)
		}
	}
	if len(content) != 1 || content[0] != "Hello world" {
		t.Errorf("content frames = %v, want the answer exactly once", content)
	}
}

// An empty run still produces a well-formed stream, with fallback text so
// the client is not left with a blank message.
func TestLive_FallbackOnEmptyRun(t *testing.T) {
	mux := newTestMux(t, MultiplexerConfig{Mode: ModeLive})
	frames := collectFrames(t, mux.Run(context.Background(),
		feedEvents(SystemInitEvent("sess", "/tmp"), ToolUseEvent("bash"))))

	checkEnvelope(t, frames)
	var content []string
	for _, f := range frames {
		if f.Kind == FrameContentChunk {
			content = append(content, f.Text)
		}
	}
	if len(content) != 1 || content[0] != DefaultFallbackText {
		t.Errorf("content = %v, want just the fallback text", content)
	}
}

// An upstream failure becomes one error frame inside a valid envelope.
func TestLive_UpstreamErrorTerminates(t *testing.T) {
	mux := newTestMux(t, MultiplexerConfig{Mode: ModeLive})
	frames := collectFrames(t, mux.Run(context.Background(),
		feedEvents(TextEvent("partial"), ResultErrorEvent("backend exploded"))))

	checkEnvelope(t, frames)
	found := false
	for _, f := range frames {
		if f.Kind == FrameError {
			found = true
			if !strings.Contains(f.ErrorMessage, "backend exploded") {
				t.Errorf("error message = %q, want the backend failure text", f.ErrorMessage)
			}
		}
	}
	if !found {
		t.Error("no error frame emitted for upstream failure")
	}
}

// Once cancellation is signaled, no further frames are yielded.
func TestLive_CancellationStopsFrames(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	mux := newTestMux(t, MultiplexerConfig{Mode: ModeLive})

	upstream := make(chan Event)
	frames := mux.Run(ctx, upstream)

	upstream <- TextEvent("first")
	// Drain what was produced so far.
	for i := 0; i < 2; i++ {
		<-frames
	}

	cancel()

	// The channel must close without yielding more frames; the pending
	// upstream event must not surface.
	select {
	case f, ok := <-frames:
		if ok {
			t.Errorf("frame %+v yielded after cancellation", f)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("frame stream did not close after cancellation")
	}
	close(upstream)
}

func TestLive_CleanupRunsOnceWithSession(t *testing.T) {
	calls := 0
	var got SessionInfo
	mux := newTestMux(t, MultiplexerConfig{
		Mode: ModeLive,
		OnCleanup: func(info SessionInfo) {
			calls++
			got = info
		},
	})

	collectFrames(t, mux.Run(context.Background(),
		feedEvents(SystemInitEvent("sess-42", "/tmp/sandbox"), TextEvent("hi"))))

	if calls != 1 {
		t.Fatalf("cleanup ran %d times, want exactly 1", calls)
	}
	if got.SessionID != "sess-42" || got.SandboxDir != "/tmp/sandbox" {
		t.Errorf("cleanup got %+v, want captured session identifiers", got)
	}
	if mux.Session() != got {
		t.Errorf("Session() = %+v, want %+v", mux.Session(), got)
	}
}

// Final-only emits only the last candidate, never earlier ones.
func TestFinalOnly_SelectsLastCandidate(t *testing.T) {
	mux := newTestMux(t, MultiplexerConfig{Mode: ModeFinalOnly})
	frames := collectFrames(t, mux.Run(context.Background(),
		feedEvents(TextEvent("A"), ToolUseEvent("search_files"), TextEvent("B"))))

	checkEnvelope(t, frames)
	var content []string
	for _, f := range frames {
		if f.Kind == FrameContentChunk {
			content = append(content, f.Text)
		}
	}
	if len(content) != 1 || content[0] != "B" {
		t.Errorf("content = %v, want exactly [B]", content)
	}
}

// No text anywhere: final-only still closes a well-formed, empty envelope.
func TestFinalOnly_EmptyEnvelope(t *testing.T) {
	mux := newTestMux(t, MultiplexerConfig{Mode: ModeFinalOnly})
	frames := collectFrames(t, mux.Run(context.Background(),
		feedEvents(SystemInitEvent("sess", "/tmp"))))

	checkEnvelope(t, frames)
	for _, f := range frames {
		if f.Kind == FrameContentChunk {
			t.Errorf("unexpected content frame %+v in empty envelope", f)
		}
	}
}

// During a stall, final-only keeps the connection alive with heartbeats.
func TestFinalOnly_HeartbeatsDuringStall(t *testing.T) {
	mux := newTestMux(t, MultiplexerConfig{
		Mode:              ModeFinalOnly,
		HeartbeatInterval: 600 * time.Millisecond,
	})

	upstream := make(chan Event)
	go func() {
		defer close(upstream)
		upstream <- TextEvent("answer")
		time.Sleep(2 * time.Second)
		upstream <- ResultSuccessEvent("answer")
	}()

	frames := collectFrames(t, mux.Run(context.Background(), upstream))
	checkEnvelope(t, frames)

	heartbeats := 0
	for _, f := range frames {
		if f.Kind == FrameHeartbeat {
			heartbeats++
		}
	}
	if heartbeats == 0 {
		t.Error("no heartbeat during a stall exceeding the interval")
	}
}

func TestFinalOnly_UpstreamError(t *testing.T) {
	mux := newTestMux(t, MultiplexerConfig{Mode: ModeFinalOnly})
	frames := collectFrames(t, mux.Run(context.Background(),
		feedEvents(TextEvent("buffered"), ResultErrorEvent("ran out of budget"))))

	checkEnvelope(t, frames)
	sawError, sawContent := false, false
	for _, f := range frames {
		switch f.Kind {
		case FrameError:
			sawError = true
		case FrameContentChunk:
			sawContent = true
		}
	}
	if !sawError {
		t.Error("no error frame for failed run")
	}
	if sawContent {
		t.Error("buffered content leaked into failed final-only stream")
	}
}

// Heartbeats and progress are independent: a silence longer than the
// heartbeat interval but shorter than the first progress delay produces
// heartbeats and zero progress text.
func TestLiveProgress_HeartbeatWithoutProgress(t *testing.T) {
	progress := DefaultTuning().ProgressConfig()
	progress.InitialDelay = time.Hour

	mux := newTestMux(t, MultiplexerConfig{
		Mode:              ModeLiveProgress,
		Progress:          progress,
		HeartbeatInterval: 600 * time.Millisecond,
	})

	upstream := make(chan Event)
	go func() {
		defer close(upstream)
		time.Sleep(2 * time.Second)
		upstream <- TextEvent("late answer")
	}()

	frames := collectFrames(t, mux.Run(context.Background(), upstream))
	checkEnvelope(t, frames)

	heartbeats := 0
	for _, f := range frames {
		if f.Kind == FrameHeartbeat {
			heartbeats++
		}
		if f.Kind == FrameContentChunk && f.Text != "late answer" {
			t.Errorf("unexpected progress text %q during short silence", f.Text)
		}
	}
	if heartbeats == 0 {
		t.Error("no heartbeat during silence exceeding the heartbeat interval")
	}
}

// A long stall produces the indicator sequence, then a separator strictly
// before the content that ended the stall.
func TestLiveProgress_StallThenContent(t *testing.T) {
	progress := DefaultTuning().ProgressConfig()
	progress.InitialDelay = 400 * time.Millisecond
	progress.DotInterval = 400 * time.Millisecond
	progress.PhaseInterval = 10 * time.Second

	mux := newTestMux(t, MultiplexerConfig{
		Mode:              ModeLiveProgress,
		Progress:          progress,
		HeartbeatInterval: time.Hour,
	})

	upstream := make(chan Event)
	go func() {
		defer close(upstream)
		time.Sleep(2500 * time.Millisecond)
		upstream <- TextEvent("the answer")
	}()

	frames := collectFrames(t, mux.Run(context.Background(), upstream))
	checkEnvelope(t, frames)

	var texts []string
	for _, f := range frames {
		if f.Kind == FrameContentChunk {
			texts = append(texts, f.Text)
		}
	}
	if len(texts) < 4 {
		t.Fatalf("content frames = %v, want indicator, dot(s), separator, answer", texts)
	}
	if !strings.Contains(texts[0], "*") {
		t.Errorf("first visible text = %q, want a phase indicator", texts[0])
	}
	sawDot := false
	for _, text := range texts[1 : len(texts)-2] {
		if text == "." {
			sawDot = true
		}
	}
	if !sawDot {
		t.Errorf("no dot frames between indicator and separator: %v", texts)
	}
	if texts[len(texts)-2] != "\n\n" {
		t.Errorf("frame before content = %q, want paragraph separator", texts[len(texts)-2])
	}
	if texts[len(texts)-1] != "the answer" {
		t.Errorf("last content = %q, want the stalled answer", texts[len(texts)-1])
	}
}

// In progress mode the envelope opens before the first indicator, and the
// inner RoleOpen arriving later is absorbed rather than duplicated.
func TestLiveProgress_SingleRoleOpen(t *testing.T) {
	progress := DefaultTuning().ProgressConfig()
	progress.InitialDelay = 400 * time.Millisecond

	mux := newTestMux(t, MultiplexerConfig{
		Mode:              ModeLiveProgress,
		Progress:          progress,
		HeartbeatInterval: time.Hour,
	})

	upstream := make(chan Event)
	go func() {
		defer close(upstream)
		time.Sleep(1500 * time.Millisecond)
		upstream <- TextEvent("hello")
	}()

	frames := collectFrames(t, mux.Run(context.Background(), upstream))
	checkEnvelope(t, frames)
	if frames[0].Kind != FrameRoleOpen {
		t.Errorf("first frame = %+v, want RoleOpen before the indicator", frames[0])
	}
}
