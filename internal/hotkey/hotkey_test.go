package hotkey

import (
	"io"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestLineManagerAlternatesPressAndRelease(t *testing.T) {
	m := NewLine(strings.NewReader("\n\n\n"), false, zerolog.Nop()).(*lineManager)

	events := make(chan bool, 3)
	if err := m.Register("Enter", func(pressed bool) { events <- pressed }); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	select {
	case <-m.Done():
	case <-time.After(time.Second):
		t.Fatal("read loop did not finish")
	}
	close(events)

	var got []bool
	for e := range events {
		got = append(got, e)
	}
	want := []bool{true, false, true}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("event %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestRegisterTwiceFails(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()

	m := NewLine(r, false, zerolog.Nop())
	if err := m.Register("Enter", func(bool) {}); err != nil {
		t.Fatal(err)
	}
	if err := m.Register("Space", func(bool) {}); err == nil {
		t.Fatal("expected second Register to fail")
	}
	if err := m.Unregister("Space"); err == nil {
		t.Fatal("expected Unregister of unknown key to fail")
	}
	if err := m.Unregister("enter"); err != nil {
		t.Fatalf("Unregister failed: %v", err)
	}
	m.Close()
	if err := m.Register("Enter", func(bool) {}); err == nil {
		t.Fatal("expected Register after Close to fail")
	}
}

func TestTapModeEmitsPressAndRelease(t *testing.T) {
	m := NewLine(strings.NewReader("\n\n"), true, zerolog.Nop()).(*lineManager)

	events := make(chan bool, 4)
	if err := m.Register("Enter", func(pressed bool) { events <- pressed }); err != nil {
		t.Fatal(err)
	}
	<-m.Done()
	close(events)

	var got []bool
	for e := range events {
		got = append(got, e)
	}
	want := []bool{true, false, true, false}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("event %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}
