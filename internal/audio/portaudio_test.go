package audio

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type fakeInput struct {
	gate   chan struct{} // when set, Read waits on it
	reads  chan struct{} // closed on the first Read
	once   sync.Once
	starts atomic.Int32
	stops  atomic.Int32
	closes atomic.Int32
}

func (f *fakeInput) Start() error { f.starts.Add(1); return nil }
func (f *fakeInput) Stop() error  { f.stops.Add(1); return nil }
func (f *fakeInput) Close() error { f.closes.Add(1); return nil }

func (f *fakeInput) Read() error {
	if f.reads != nil {
		f.once.Do(func() { close(f.reads) })
	}
	if f.gate != nil {
		<-f.gate
	}
	time.Sleep(time.Millisecond)
	return nil
}

func newTestStream(in *fakeInput) *portAudioStream {
	return &portAudioStream{
		stream:    in,
		buffer:    make([]int16, 4),
		requested: Constraints{SampleRate: 16000, Channels: 1, BitDepth: 16},
		logger:    zerolog.Nop(),
	}
}

func TestStreamFlushThenRelease(t *testing.T) {
	in := &fakeInput{reads: make(chan struct{})}
	s := newTestStream(in)

	if err := s.Begin(context.Background()); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	<-in.reads

	res, err := s.StopAndFlush(context.Background())
	if err != nil {
		t.Fatalf("StopAndFlush failed: %v", err)
	}
	if res.Container != ContainerPCMS16LE {
		t.Fatalf("expected pcm-s16le, got %s", res.Container)
	}
	if len(res.Data)%2 != 0 || len(res.Data) == 0 {
		t.Fatalf("expected whole int16 samples, got %d bytes", len(res.Data))
	}

	if err := s.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	s.Release()

	if got := in.stops.Load(); got != 1 {
		t.Fatalf("expected 1 stop, got %d", got)
	}
	if got := in.closes.Load(); got != 1 {
		t.Fatalf("expected 1 close, got %d", got)
	}
}

func TestStreamReleaseDuringFlushStopsOnce(t *testing.T) {
	in := &fakeInput{reads: make(chan struct{})}
	s := newTestStream(in)

	if err := s.Begin(context.Background()); err != nil {
		t.Fatal(err)
	}
	<-in.reads

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.StopAndFlush(context.Background())
	}()
	go func() {
		defer wg.Done()
		s.Release()
	}()
	wg.Wait()

	if got := in.stops.Load(); got != 1 {
		t.Fatalf("expected 1 stop, got %d", got)
	}
	if got := in.closes.Load(); got != 1 {
		t.Fatalf("expected 1 close, got %d", got)
	}
}

func TestStreamReleaseLeavesStreamOpenWhileReadBlocks(t *testing.T) {
	old := releaseTimeout
	releaseTimeout = 20 * time.Millisecond
	defer func() { releaseTimeout = old }()

	in := &fakeInput{gate: make(chan struct{}), reads: make(chan struct{})}
	s := newTestStream(in)

	if err := s.Begin(context.Background()); err != nil {
		t.Fatal(err)
	}
	<-in.reads

	if err := s.Release(); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected DeadlineExceeded, got %v", err)
	}
	if got := in.closes.Load(); got != 0 {
		t.Fatalf("expected the stream to stay open under a blocked read, got %d closes", got)
	}
	if got := in.stops.Load(); got != 0 {
		t.Fatalf("expected no stop under a blocked read, got %d", got)
	}

	close(in.gate)
}
