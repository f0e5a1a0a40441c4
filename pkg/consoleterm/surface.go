package consoleterm

import (
	"strings"
	"sync"

	"github.com/phroun/pawconsole/pkg/console"
)

const clearScreen = "\x1b[H\x1b[2J"

// Surface shows a console on the terminal.
type Surface struct {
	f      *Frontend
	title  string
	prefix string
	// echo drops the view's copy of typed lines, which the line editor
	// has already shown.
	echo bool

	lineStart bool

	mu      sync.Mutex
	pending []string
}

func (s *Surface) Render(fr console.Frame) {
	if fr.Reset {
		if s.f.tty && s.prefix == "" {
			s.f.write(clearScreen + s.dropEchoes(fr.Text))
		}
		return
	}
	text := fr.Appended
	if !s.f.tty {
		text = fr.PlainAppended()
	}
	text = s.dropEchoes(text)
	if s.prefix != "" {
		text = s.prefixLines(text)
	}
	s.f.write(text)
}

func (s *Surface) Title() string { return s.title }

func (s *Surface) SetTitle(title string) {
	s.title = title
	if s.f.tty && s.prefix == "" {
		s.f.write("\x1b]0;" + title + "\x07")
	}
}

func (s *Surface) Size() (rows, cols int) { return s.f.size() }

// expectEcho notes a typed line. Called from the input goroutine.
func (s *Surface) expectEcho(line string) {
	if !s.echo {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, line+"\n")
}

func (s *Surface) dropEchoes(text string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for len(s.pending) > 0 {
		i := strings.Index(text, s.pending[0])
		if i < 0 {
			break
		}
		text = text[:i] + text[i+len(s.pending[0]):]
		s.pending = s.pending[1:]
	}
	return text
}

func (s *Surface) prefixLines(text string) string {
	var b strings.Builder
	for _, r := range text {
		if s.lineStart {
			b.WriteString(s.prefix)
			s.lineStart = false
		}
		b.WriteRune(r)
		if r == '\n' {
			s.lineStart = true
		}
	}
	return b.String()
}
