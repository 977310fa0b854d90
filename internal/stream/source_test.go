package stream

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"
)

func TestSource_FillAndAdvance(t *testing.T) {
	src := NewSource(strings.NewReader("hello world"), 0)
	defer src.Release()

	n, err := src.Fill()
	if err != nil {
		t.Fatalf("Fill() error = %v", err)
	}
	if n != 11 || string(src.Window()) != "hello world" {
		t.Fatalf("Fill() = %d, window %q", n, src.Window())
	}

	src.Advance(6)
	if got := string(src.Window()); got != "world" {
		t.Errorf("Window() after Advance = %q", got)
	}
	if src.Offset() != 6 {
		t.Errorf("Offset() = %d, want 6", src.Offset())
	}

	if _, err := src.Fill(); err != io.EOF {
		t.Errorf("Fill() at end = %v, want io.EOF", err)
	}
	if src.Exhausted() {
		t.Error("Exhausted() with buffered bytes")
	}
	src.Advance(5)
	if !src.Exhausted() {
		t.Error("Exhausted() = false after consuming everything")
	}
}

func TestSource_CompactsBeforeRefill(t *testing.T) {
	src := NewSource(iotest.HalfReader(strings.NewReader(strings.Repeat("x", 64))), 16)
	defer src.Release()

	for src.Buffered() < 16 {
		if _, err := src.Fill(); err != nil {
			t.Fatalf("Fill() error = %v", err)
		}
	}
	src.Advance(12)
	if _, err := src.Fill(); err != nil {
		t.Fatalf("Fill() error = %v", err)
	}
	if src.start != 0 {
		t.Errorf("start = %d after refill, want compacted to 0", src.start)
	}
	if len(src.buf) != 16 {
		t.Errorf("buffer grew to %d, compaction should have been enough", len(src.buf))
	}
	if src.Offset() != 12 {
		t.Errorf("Offset() = %d, want 12", src.Offset())
	}
}

func TestSource_GrowsForLongToken(t *testing.T) {
	payload := strings.Repeat("y", 100)
	src := NewSource(iotest.OneByteReader(strings.NewReader(payload)), 16)
	defer src.Release()

	if !src.Ensure(100) {
		t.Fatalf("Ensure(100) = false, err = %v", src.Err())
	}
	if got := string(src.Window()); got != payload {
		t.Errorf("Window() = %q", got)
	}
	if len(src.buf) < 100 {
		t.Errorf("buffer size = %d, want >= 100", len(src.buf))
	}
	if src.Ensure(101) {
		t.Error("Ensure past the end of input reported success")
	}
}

func TestSource_StickyError(t *testing.T) {
	boom := errors.New("boom")
	src := NewSource(iotest.ErrReader(boom), 0)
	defer src.Release()

	for i := 0; i < 2; i++ {
		if _, err := src.Fill(); !errors.Is(err, boom) {
			t.Fatalf("Fill() #%d error = %v, want boom", i, err)
		}
	}
	if src.Err() != boom {
		t.Errorf("Err() = %v", src.Err())
	}
}

type emptyReader struct{}

func (emptyReader) Read([]byte) (int, error) { return 0, nil }

func TestSource_NoProgress(t *testing.T) {
	src := NewSource(emptyReader{}, 0)
	defer src.Release()

	if _, err := src.Fill(); err != ErrNoProgress {
		t.Errorf("Fill() error = %v, want ErrNoProgress", err)
	}
}

func TestSource_BytesSource(t *testing.T) {
	data := []byte("a,b")
	src := NewBytesSource(data)

	if !bytes.Equal(src.Window(), data) {
		t.Errorf("Window() = %q", src.Window())
	}
	if _, err := src.Fill(); err != io.EOF {
		t.Errorf("Fill() = %v, want io.EOF", err)
	}
	src.Release()
	if string(data) != "a,b" {
		t.Error("Release modified caller data")
	}
}

func TestSource_AdvancePanicsOutOfRange(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Advance past the window did not panic")
		}
	}()
	NewBytesSource([]byte("ab")).Advance(3)
}
