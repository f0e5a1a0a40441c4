package console_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/phroun/pawconsole/pkg/console"
	"github.com/phroun/pawconsole/pkg/console/consoletest"
)

func TestWritesReachViewInOrder(t *testing.T) {
	h := consoletest.New(t, console.Options{})
	s := h.Open(t, "order")

	var want strings.Builder
	for i := 0; i < 1000; i++ {
		line := fmt.Sprintf("line %04d\n", i)
		want.WriteString(line)
		if _, err := s.Out.Write([]byte(line)); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}
	if got := h.Text(t, s.View); got != want.String() {
		t.Fatalf("Expected all 1000 lines in order, got %d bytes", len(got))
	}
}

func TestTwoWritersKeepTheirOwnOrder(t *testing.T) {
	h := consoletest.New(t, console.Options{})
	s := h.Open(t, "writers")

	const n = 1000
	var wg sync.WaitGroup
	for _, tag := range []string{"A", "B"} {
		wg.Add(1)
		go func(tag string) {
			defer wg.Done()
			for i := 0; i < n; i++ {
				fmt.Fprintf(s.Out, "%s%04d\n", tag, i)
			}
		}(tag)
	}
	wg.Wait()

	text := h.Text(t, s.View)
	next := map[byte]int{'A': 0, 'B': 0}
	for _, line := range strings.Split(strings.TrimSuffix(text, "\n"), "\n") {
		var idx int
		if _, err := fmt.Sscanf(line[1:], "%d", &idx); err != nil {
			t.Fatalf("Unexpected line %q", line)
		}
		if idx != next[line[0]] {
			t.Fatalf("Writer %c: expected %d, got %d", line[0], next[line[0]], idx)
		}
		next[line[0]]++
	}
	if next['A'] != n || next['B'] != n {
		t.Errorf("Expected %d lines per writer, got A=%d B=%d", n, next['A'], next['B'])
	}
}

func TestSessionsWriteToTheirOwnViews(t *testing.T) {
	h := consoletest.New(t, console.Options{})
	a := h.Open(t, "a")
	b := h.Open(t, "b")

	var wg sync.WaitGroup
	for _, s := range []*console.Session{a, b} {
		wg.Add(1)
		go func(s *console.Session) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				fmt.Fprintf(s.Out, "%s %d\n", s.Title, i)
			}
		}(s)
	}
	wg.Wait()

	if text := h.Text(t, a.View); strings.Contains(text, "b ") || !strings.HasPrefix(text, "a 0\n") {
		t.Errorf("Expected only session a output in view a, got %q", text[:min(len(text), 40)])
	}
	if text := h.Text(t, b.View); strings.Contains(text, "a ") || !strings.HasSuffix(text, "b 99\n") {
		t.Errorf("Expected only session b output in view b")
	}
}

func TestLineBufferedTailIsFlushedWhenIdle(t *testing.T) {
	h := consoletest.New(t, console.Options{FlushDelay: 10 * time.Millisecond})
	s := h.Open(t, "prompt")

	s.Out.Write([]byte("no newline"))
	if got := h.Text(t, s.View); got != "" {
		t.Fatalf("Expected partial line to be held, got %q", got)
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if h.Text(t, s.View) == "no newline" {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Errorf("Expected partial line to appear after the idle delay")
}

func TestErrorStreamIsUnbuffered(t *testing.T) {
	h := consoletest.New(t, console.Options{FlushDelay: time.Hour})
	s := h.Open(t, "err")

	s.Err.Write([]byte("oops"))
	if got := h.Text(t, s.View); got != "oops" {
		t.Errorf("Expected unbuffered error output, got %q", got)
	}
	if b := s.Err.Buffering(); b != console.Unbuffered {
		t.Errorf("Expected error stream unbuffered, got %s", b)
	}
}

func TestFlushShowsPendingOutput(t *testing.T) {
	h := consoletest.New(t, console.Options{FlushDelay: time.Hour})
	s := h.Open(t, "flush")

	s.Out.Write([]byte("> "))
	if err := s.Out.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	if got := h.Text(t, s.View); got != "> " {
		t.Errorf("Expected flushed prompt, got %q", got)
	}
}

func TestInvalidUTF8IsReplaced(t *testing.T) {
	h := consoletest.New(t, console.Options{})
	s := h.Open(t, "utf8")
	s.Out.Control(console.ControlSetBuffering, console.Unbuffered)

	s.Out.Write([]byte{'a', 0xff, 'b'})
	// "é" split across two writes.
	s.Out.Write([]byte{0xc3})
	s.Out.Write([]byte{0xa9, '\n'})

	if got := h.Text(t, s.View); got != "a�bé\n" {
		t.Errorf("Expected replacement and joined rune, got %q", got)
	}
	pos := s.Out.Position()
	if pos.Bytes != 6 || pos.Lines != 1 || pos.LinePos != 0 {
		t.Errorf("Unexpected position %+v", pos)
	}
}

func TestReadBlocksUntilLine(t *testing.T) {
	h := consoletest.New(t, console.Options{})
	s := h.Open(t, "read")

	result := make(chan string, 1)
	go func() {
		buf := make([]byte, 64)
		n, err := s.In.Read(buf)
		if err != nil {
			result <- "error: " + err.Error()
			return
		}
		result <- string(buf[:n])
	}()

	select {
	case got := <-result:
		t.Fatalf("Expected Read to block, got %q", got)
	case <-time.After(30 * time.Millisecond):
	}

	h.Type(t, s.View, "hello")
	select {
	case got := <-result:
		if got != "hello\n" {
			t.Errorf("Expected %q, got %q", "hello\n", got)
		}
	case <-time.After(time.Second):
		t.Fatal("Read did not return after a line was submitted")
	}
	if text := h.Text(t, s.View); text != "hello\n" {
		t.Errorf("Expected the line to be echoed, got %q", text)
	}
}

func TestReadServesLongLinesInPieces(t *testing.T) {
	h := consoletest.New(t, console.Options{})
	s := h.Open(t, "pieces")
	h.Type(t, s.View, "abcdef")

	buf := make([]byte, 4)
	n, _ := s.In.Read(buf)
	if string(buf[:n]) != "abcd" {
		t.Errorf("Expected first piece %q, got %q", "abcd", buf[:n])
	}
	n, _ = s.In.Read(buf)
	if string(buf[:n]) != "ef\n" {
		t.Errorf("Expected remainder %q, got %q", "ef\n", buf[:n])
	}
}

func TestReadFlushesPrompt(t *testing.T) {
	h := consoletest.New(t, console.Options{FlushDelay: time.Hour})
	s := h.Open(t, "tie")

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Out.Write([]byte("?- "))
		s.In.Read(make([]byte, 8))
	}()

	deadline := time.Now().Add(time.Second)
	for h.Text(t, s.View) != "?- " {
		if time.Now().After(deadline) {
			t.Fatal("Expected prompt to be shown while the reader waits")
		}
		time.Sleep(5 * time.Millisecond)
	}
	h.Type(t, s.View, "x")
	<-done
}

func TestReadEndsOnCloseAndInterrupt(t *testing.T) {
	h := consoletest.New(t, console.Options{})

	t.Run("interrupt", func(t *testing.T) {
		s := h.Open(t, "interrupt")
		errc := make(chan error, 1)
		go func() {
			_, err := s.In.Read(make([]byte, 8))
			errc <- err
		}()
		time.Sleep(20 * time.Millisecond)
		s.View.Interrupt()
		if err := <-errc; !errors.Is(err, console.ErrInterrupted) {
			t.Errorf("Expected ErrInterrupted, got %v", err)
		}
	})

	t.Run("latched interrupt", func(t *testing.T) {
		s := h.Open(t, "latched")
		s.View.Interrupt()
		if _, err := s.In.Read(make([]byte, 8)); !errors.Is(err, console.ErrInterrupted) {
			t.Errorf("Expected latched ErrInterrupted, got %v", err)
		}
	})

	t.Run("close", func(t *testing.T) {
		s := h.Open(t, "close")
		errc := make(chan error, 1)
		go func() {
			_, err := s.In.Read(make([]byte, 8))
			errc <- err
		}()
		time.Sleep(20 * time.Millisecond)
		s.In.Close()
		if err := <-errc; err != io.EOF {
			t.Errorf("Expected io.EOF, got %v", err)
		}
	})

	t.Run("end of input drains typed lines", func(t *testing.T) {
		s := h.Open(t, "end")
		h.Do(t, func(context.Context) {
			s.View.SubmitLine("last")
			s.View.EndInput()
		})
		data, err := io.ReadAll(s.In)
		if err != nil {
			t.Fatalf("ReadAll failed: %v", err)
		}
		if string(data) != "last\n" {
			t.Errorf("Expected %q, got %q", "last\n", data)
		}
	})
}

func TestViewDestroyedWhileReading(t *testing.T) {
	h := consoletest.New(t, console.Options{})
	s := h.Open(t, "destroy")

	closed := make(chan struct{})
	s.OnClose(func() { close(closed) })

	errc := make(chan error, 1)
	go func() {
		_, err := s.In.Read(make([]byte, 8))
		errc <- err
	}()
	time.Sleep(20 * time.Millisecond)

	if err := h.Host.DestroyView(context.Background(), s.View); err != nil {
		t.Fatalf("DestroyView failed: %v", err)
	}
	select {
	case err := <-errc:
		if err != io.EOF {
			t.Errorf("Expected io.EOF, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Read did not return after the view was destroyed")
	}
	<-closed

	n, err := s.Out.Write([]byte("into the void\n"))
	if err != nil || n != 14 {
		t.Errorf("Expected orphaned write to succeed silently, got %d, %v", n, err)
	}
	if s.Out.Dropped() != 14 {
		t.Errorf("Expected 14 dropped bytes, got %d", s.Out.Dropped())
	}
}

func TestDispatchSyncReturnsWhenViewDestroyedWhileWaiting(t *testing.T) {
	h := consoletest.New(t, console.Options{})
	s := h.Open(t, "teardown")
	h.Open(t, "survivor")

	started := make(chan struct{})
	result := make(chan error, 1)

	h.Loop.Submit(func(ctx context.Context) {
		// Hold the GUI thread until the worker is queued behind us, then
		// tear the view down before its task can run.
		go func() {
			close(started)
			result <- h.Host.DispatchSync(context.Background(), s.View, func(context.Context, *console.View) {
				t.Error("Expected task against a destroyed view not to run")
			})
		}()
		<-started
		time.Sleep(20 * time.Millisecond)
		h.Host.DestroyView(ctx, s.View)
	})

	select {
	case err := <-result:
		if !errors.Is(err, console.ErrNoView) {
			t.Errorf("Expected ErrNoView, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("DispatchSync hung after the view was destroyed")
	}
	h.Settle(t)
}

func TestSeekIsPerStream(t *testing.T) {
	h := consoletest.New(t, console.Options{})
	s := h.Open(t, "seek")
	s.Out.Write([]byte("0123456789\n"))

	if pos, err := s.Out.Seek(0, io.SeekCurrent); err != nil || pos != 11 {
		t.Errorf("Expected out cursor 11, got %d, %v", pos, err)
	}
	if pos, err := s.Err.Seek(0, io.SeekCurrent); err != nil || pos != 0 {
		t.Errorf("Expected independent err cursor 0, got %d, %v", pos, err)
	}
	if pos, err := s.Out.Seek(-1, io.SeekEnd); err != nil || pos != 10 {
		t.Errorf("Expected 10 from end, got %d, %v", pos, err)
	}
	if _, err := s.Out.Seek(-20, io.SeekCurrent); !errors.Is(err, console.ErrInvalidSeek) {
		t.Errorf("Expected ErrInvalidSeek, got %v", err)
	}
}

func TestControl(t *testing.T) {
	h := consoletest.New(t, console.Options{})
	s := h.Open(t, "control")

	if v, _ := s.Out.Control(console.ControlIsTTY, nil); v != true {
		t.Errorf("Expected isatty true, got %v", v)
	}
	if v, _ := s.Out.Control(console.ControlEncoding, nil); v != "UTF-8" {
		t.Errorf("Expected UTF-8, got %v", v)
	}
	if _, err := s.Out.Control(console.ControlSetEncoding, "utf8"); err != nil {
		t.Errorf("Expected utf8 to be accepted, got %v", err)
	}
	if _, err := s.Out.Control(console.ControlSetEncoding, "ISO-8859-1"); !errors.Is(err, console.ErrUnsupportedEncoding) {
		t.Errorf("Expected ErrUnsupportedEncoding, got %v", err)
	}
	if _, err := s.Out.Control(console.ControlSetBuffering, console.FullyBuffered); err != nil {
		t.Errorf("Expected set buffering to succeed, got %v", err)
	}
	if v, _ := s.Out.Control(console.ControlGetBuffering, nil); v != console.FullyBuffered {
		t.Errorf("Expected full buffering, got %v", v)
	}
	if v, err := s.Out.Control(console.ControlOp(99), nil); v != nil || err != nil {
		t.Errorf("Expected unknown op to be a no-op, got %v, %v", v, err)
	}
}

func TestClosedStream(t *testing.T) {
	h := consoletest.New(t, console.Options{FlushDelay: time.Hour})
	s := h.Open(t, "closed")

	s.Out.Write([]byte("tail"))
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := s.Out.Close(); err != nil {
		t.Errorf("Expected second Close to be harmless, got %v", err)
	}
	if got := h.Text(t, s.View); got != "tail" {
		t.Errorf("Expected Close to flush pending output, got %q", got)
	}
	if _, err := s.Out.Write([]byte("x")); !errors.Is(err, console.ErrStreamClosed) {
		t.Errorf("Expected ErrStreamClosed on write, got %v", err)
	}
	if _, err := s.Out.Seek(0, io.SeekStart); !errors.Is(err, console.ErrStreamClosed) {
		t.Errorf("Expected ErrStreamClosed on seek, got %v", err)
	}
	if _, err := s.Out.Control(console.ControlFlush, nil); !errors.Is(err, console.ErrStreamClosed) {
		t.Errorf("Expected ErrStreamClosed on control, got %v", err)
	}
	if _, err := s.In.Read(make([]byte, 4)); err != io.EOF {
		t.Errorf("Expected io.EOF reading a closed input, got %v", err)
	}
}

func TestClosedInputDropsHalfReadLine(t *testing.T) {
	h := consoletest.New(t, console.Options{})
	s := h.Open(t, "half")
	h.Type(t, s.View, "abcdef")

	buf := make([]byte, 2)
	if n, err := s.In.Read(buf); err != nil || string(buf[:n]) != "ab" {
		t.Fatalf("Read() = %q, %v, want \"ab\"", buf[:n], err)
	}
	if err := s.In.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if n, err := s.In.Read(buf); err != io.EOF {
		t.Errorf("Expected io.EOF after Close, got %q, %v", buf[:n], err)
	}
}

func TestWrongDirection(t *testing.T) {
	h := consoletest.New(t, console.Options{})
	s := h.Open(t, "dir")
	if _, err := s.In.Write([]byte("x")); !errors.Is(err, console.ErrWrongDirection) {
		t.Errorf("Expected ErrWrongDirection writing input, got %v", err)
	}
	if _, err := s.Out.Read(make([]byte, 1)); !errors.Is(err, console.ErrWrongDirection) {
		t.Errorf("Expected ErrWrongDirection reading output, got %v", err)
	}
}
