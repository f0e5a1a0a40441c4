package console

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/phroun/pawconsole/pkg/conlog"
)

// Direction says which way data flows through a Stream.
type Direction int

const (
	Input Direction = iota
	Output
	ErrorOutput
)

func (d Direction) String() string {
	switch d {
	case Input:
		return "in"
	case Output:
		return "out"
	case ErrorOutput:
		return "err"
	}
	return "unknown"
}

// Buffering is the output buffering mode of a Stream.
type Buffering int

const (
	Unbuffered Buffering = iota
	LineBuffered
	FullyBuffered
)

func (b Buffering) String() string {
	switch b {
	case Unbuffered:
		return "none"
	case LineBuffered:
		return "line"
	case FullyBuffered:
		return "full"
	}
	return "unknown"
}

// fullBufferSize is the flush threshold of a fully buffered stream.
const fullBufferSize = 4096

// Encoding is the only encoding streams speak.
const Encoding = "UTF-8"

// ControlOp selects a Stream.Control operation.
type ControlOp int

const (
	ControlFlush ControlOp = iota
	ControlSetBuffering
	ControlGetBuffering
	ControlIsTTY
	ControlEncoding
	ControlSetEncoding
)

// Position is the running position record of a stream.
type Position struct {
	Bytes   int64
	Chars   int64
	Lines   int64
	LinePos int // display column within the current line
}

func (p *Position) advance(text string) {
	for _, r := range text {
		p.Chars++
		switch r {
		case '\n':
			p.Lines++
			p.LinePos = 0
		case '\r':
			p.LinePos = 0
		case '\t':
			p.LinePos = (p.LinePos | 7) + 1
		case '\b':
			if p.LinePos > 0 {
				p.LinePos--
			}
		default:
			p.LinePos += runewidth.RuneWidth(r)
		}
	}
}

type streamState int

const (
	stateOpen streamState = iota
	stateClosed
	stateOrphaned
)

// Stream is one of a session's three character streams. Output streams
// carry worker writes to the view in write order; the input stream hands
// out lines the user submitted. A Stream is safe for concurrent use.
type Stream struct {
	dir     Direction
	session *Session

	mu        sync.Mutex
	cond      *sync.Cond
	state     streamState
	buffering Buffering
	pos       Position
	offset    int64

	// output side
	pending []byte
	dec     transform.Transformer
	carry   []byte
	timer   *time.Timer
	dropped int64

	// input side
	lines       []string
	partial     []byte
	interrupted bool
	ended       bool
}

func newStream(s *Session, dir Direction, b Buffering) *Stream {
	st := &Stream{
		dir:       dir,
		session:   s,
		buffering: b,
		dec:       unicode.UTF8.NewDecoder(),
	}
	st.cond = sync.NewCond(&st.mu)
	return st
}

// Direction returns the stream direction.
func (s *Stream) Direction() Direction { return s.dir }

// Buffering returns the buffering mode.
func (s *Stream) Buffering() Buffering {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buffering
}

// Position returns the position record.
func (s *Stream) Position() Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pos
}

// Dropped returns how many bytes were discarded after the view went away.
func (s *Stream) Dropped() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// Write queues p for display. Writes from one goroutine reach the view in
// order. After the view is destroyed writes succeed and are dropped.
func (s *Stream) Write(p []byte) (int, error) {
	if s.dir == Input {
		return 0, ErrWrongDirection
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case stateClosed:
		return 0, ErrStreamClosed
	case stateOrphaned:
		s.dropped += int64(len(p))
		return len(p), nil
	}

	s.pos.Bytes += int64(len(p))
	s.offset += int64(len(p))

	switch s.buffering {
	case Unbuffered:
		s.emit(p, false)
	case LineBuffered:
		s.pending = append(s.pending, p...)
		if i := bytes.LastIndexByte(s.pending, '\n'); i >= 0 {
			s.emit(s.pending[:i+1], false)
			s.pending = append(s.pending[:0:0], s.pending[i+1:]...)
		}
		if len(s.pending) > 0 {
			s.armTimer()
		}
	case FullyBuffered:
		s.pending = append(s.pending, p...)
		if len(s.pending) >= fullBufferSize {
			s.emit(s.pending, false)
			s.pending = nil
		}
	}
	return len(p), nil
}

// WriteString is Write for strings.
func (s *Stream) WriteString(str string) (int, error) {
	return s.Write([]byte(str))
}

// emit decodes chunk and dispatches it to the view. Called with s.mu held,
// which keeps one stream's chunks in queue order.
func (s *Stream) emit(chunk []byte, final bool) {
	text := s.decode(chunk, final)
	if text == "" {
		return
	}
	s.pos.advance(text)
	h := s.session.host
	err := h.Dispatch(s.session.View, func(_ context.Context, v *View) {
		v.appendText(text)
	})
	if err != nil {
		h.log.DebugCat(conlog.CatStream, "%s stream: %d bytes not shown: %v", s.dir, len(text), err)
	}
}

// decode turns bytes into text, replacing invalid UTF-8 with U+FFFD and
// carrying an incomplete trailing sequence over to the next call.
func (s *Stream) decode(chunk []byte, final bool) string {
	src := chunk
	if len(s.carry) > 0 {
		src = append(s.carry, chunk...)
		s.carry = nil
	}
	if len(src) == 0 {
		return ""
	}
	var out strings.Builder
	dst := make([]byte, 3*len(src)+utf8.UTFMax)
	for {
		nDst, nSrc, err := s.dec.Transform(dst, src, final)
		out.Write(dst[:nDst])
		src = src[nSrc:]
		if errors.Is(err, transform.ErrShortDst) {
			continue
		}
		if errors.Is(err, transform.ErrShortSrc) && len(src) > 0 {
			s.carry = append([]byte(nil), src...)
		}
		break
	}
	return out.String()
}

func (s *Stream) armTimer() {
	delay := s.session.host.opts.FlushDelay
	if s.timer == nil {
		s.timer = time.AfterFunc(delay, s.idleFlush)
		return
	}
	s.timer.Reset(delay)
}

func (s *Stream) idleFlush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == stateOpen && len(s.pending) > 0 {
		s.emit(s.pending, false)
		s.pending = nil
	}
}

func (s *Stream) stopTimer() {
	if s.timer != nil {
		s.timer.Stop()
	}
}

// emitPending hands buffered output to the GUI thread without waiting.
func (s *Stream) emitPending() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == stateOpen && len(s.pending) > 0 {
		s.emit(s.pending, false)
		s.pending = nil
		s.stopTimer()
	}
}

// Flush makes everything written so far visible, waiting up to the host's
// flush timeout for the GUI thread to catch up.
func (s *Stream) Flush() error {
	if s.dir == Input {
		return nil
	}
	s.mu.Lock()
	switch s.state {
	case stateClosed:
		s.mu.Unlock()
		return ErrStreamClosed
	case stateOrphaned:
		s.mu.Unlock()
		return nil
	}
	if len(s.pending) > 0 {
		s.emit(s.pending, false)
		s.pending = nil
	}
	s.stopTimer()
	s.mu.Unlock()

	h := s.session.host
	ctx, cancel := context.WithTimeout(context.Background(), h.opts.FlushTimeout)
	defer cancel()
	err := h.DispatchSync(ctx, s.session.View, func(context.Context, *View) {})
	if err != nil && !errors.Is(err, ErrNoView) {
		h.log.DebugCat(conlog.CatStream, "%s stream: flush wait: %v", s.dir, err)
	}
	return nil
}

// Read returns input from the line the user submitted last, blocking until
// one arrives. It returns io.EOF once the stream is closed or the view is
// gone, and ErrInterrupted when the view is interrupted.
func (s *Stream) Read(p []byte) (int, error) {
	if s.dir != Input {
		return 0, ErrWrongDirection
	}
	if len(p) == 0 {
		return 0, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tied := false
	for {
		// An orphaned stream may still drain; a closed one may not.
		if s.state == stateClosed {
			return 0, io.EOF
		}
		if len(s.partial) > 0 {
			n := copy(p, s.partial)
			s.partial = s.partial[n:]
			s.pos.Bytes += int64(n)
			s.offset += int64(n)
			s.pos.advance(string(p[:n]))
			return n, nil
		}
		if s.state != stateOpen {
			return 0, io.EOF
		}
		if s.interrupted {
			s.interrupted = false
			return 0, ErrInterrupted
		}
		if len(s.lines) > 0 {
			s.partial = []byte(s.lines[0] + "\n")
			s.lines = s.lines[1:]
			continue
		}
		if s.ended {
			return 0, io.EOF
		}
		if !tied {
			// Show any pending prompt before blocking.
			tied = true
			s.mu.Unlock()
			s.session.flushOutputs()
			s.mu.Lock()
			continue
		}
		s.cond.Wait()
	}
}

func (s *Stream) pushLine(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != stateOpen {
		return
	}
	s.lines = append(s.lines, line)
	s.cond.Broadcast()
}

func (s *Stream) interrupt() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interrupted = true
	s.cond.Broadcast()
}

// endInput lets reads drain the lines already submitted and then return
// io.EOF.
func (s *Stream) endInput() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ended = true
	s.cond.Broadcast()
}

// ResetInterrupt forgets an interrupt that no read has consumed yet.
func (s *Stream) ResetInterrupt() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interrupted = false
}

// ClearInput drops lines typed ahead that nobody has read yet.
func (s *Stream) ClearInput() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = nil
	s.partial = nil
}

// Seek moves the stream's own position cursor. Each stream of a session
// has an independent cursor. SeekEnd is relative to the bytes transferred.
func (s *Stream) Seek(offset int64, whence int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == stateClosed {
		return 0, ErrStreamClosed
	}
	var base int64
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		base = s.offset
	case io.SeekEnd:
		base = s.pos.Bytes
	default:
		return 0, ErrInvalidSeek
	}
	next := base + offset
	if next < 0 {
		return 0, ErrInvalidSeek
	}
	s.offset = next
	return next, nil
}

// Close flushes pending output and closes the stream. Blocked readers get
// io.EOF. Closing twice is harmless.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case stateClosed:
		return nil
	case stateOrphaned:
		s.state = stateClosed
		return nil
	}
	if s.dir != Input {
		s.emit(s.pending, true)
		s.pending = nil
	}
	s.stopTimer()
	s.state = stateClosed
	s.cond.Broadcast()
	return nil
}

// orphan detaches the stream from its destroyed view.
func (s *Stream) orphan() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != stateOpen {
		return
	}
	s.dropped += int64(len(s.pending))
	s.pending = nil
	s.stopTimer()
	s.state = stateOrphaned
	s.cond.Broadcast()
}

// Control performs a stream control operation. Unknown operations are
// accepted and do nothing.
func (s *Stream) Control(op ControlOp, arg any) (any, error) {
	s.mu.Lock()
	closed := s.state == stateClosed
	s.mu.Unlock()
	if closed {
		return nil, ErrStreamClosed
	}

	switch op {
	case ControlFlush:
		return nil, s.Flush()
	case ControlSetBuffering:
		b, ok := arg.(Buffering)
		if !ok {
			return nil, ErrTypeMismatch
		}
		s.mu.Lock()
		s.buffering = b
		s.mu.Unlock()
		if b == Unbuffered {
			s.emitPending()
		}
		return nil, nil
	case ControlGetBuffering:
		return s.Buffering(), nil
	case ControlIsTTY:
		return true, nil
	case ControlEncoding:
		return Encoding, nil
	case ControlSetEncoding:
		name, ok := arg.(string)
		if !ok {
			return nil, ErrTypeMismatch
		}
		if !isUTF8(name) {
			return nil, ErrUnsupportedEncoding
		}
		return nil, nil
	}
	return nil, nil
}

func isUTF8(name string) bool {
	n := strings.ToLower(strings.ReplaceAll(name, "-", ""))
	return n == "utf8"
}
