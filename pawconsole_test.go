package pawconsole_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/phroun/pawconsole"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestRunScriptThenPrompt(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	script := filepath.Join(t.TempDir(), "hello.lua")
	if err := os.WriteFile(script, []byte("print('hello from script')\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	out := &syncBuffer{}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := pawconsole.Run(ctx, script, strings.NewReader("print(2 + 3)\n"), out); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	got := out.String()
	for _, want := range []string{"hello from script\n", "5\n"} {
		if !strings.Contains(got, want) {
			t.Errorf("Expected output to contain %q, got %q", want, got)
		}
	}
	if strings.Index(got, "hello from script") > strings.Index(got, "5\n") {
		t.Errorf("Expected script output before prompt output, got %q", got)
	}
}

func TestNewConfigDefaults(t *testing.T) {
	cfg := pawconsole.NewConfig()
	if cfg == nil {
		t.Fatal("Expected a config")
	}
	if _, err := pawconsole.New(pawconsole.Params{Config: cfg}); err == nil {
		t.Error("Expected an error without a front-end")
	}
}
