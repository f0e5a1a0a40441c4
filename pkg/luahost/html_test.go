package luahost

import (
	"strings"
	"testing"

	lua "github.com/yuin/gopher-lua"
)

func TestHTMLText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "hello", "hello\n"},
		{"paragraphs", "<p>one</p><p>two</p>", "one\ntwo\n"},
		{"collapsed space", "<p>a   b\n\tc </p>", "a b c\n"},
		{"line break", "a<br>b<br/>c", "a\nb\nc\n"},
		{"entities", "1 &lt; 2 &amp;&amp; 3 &gt; 2", "1 < 2 && 3 > 2\n"},
		{"pre keeps layout", "<pre>x  y\n  z</pre>", "x  y\n  z\n"},
		{"script dropped", "<script>alert(1)</script><b>ok</b>", "ok\n"},
		{"list", "<ul><li>one</li><li>two</li></ul>", "* one\n* two\n"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := htmlText(tt.in); got != tt.want {
				t.Errorf("htmlText(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestPatternExtensions(t *testing.T) {
	tests := map[string]string{
		"*.lua":                    "lua",
		"*.lua;*.txt":              "lua,txt",
		"Lua files (*.lua *.luac)": "lua,luac",
		"*.*":                      "",
		"":                         "",
	}
	for in, want := range tests {
		if got := strings.Join(patternExtensions(in), ","); got != want {
			t.Errorf("patternExtensions(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestToGo(t *testing.T) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()
	if err := L.DoString(`arr = {1, 2.5, "x"}; map = {a = true}`); err != nil {
		t.Fatalf("DoString() error = %v", err)
	}

	arr, ok := toGo(L.GetGlobal("arr")).([]any)
	if !ok || len(arr) != 3 {
		t.Fatalf("Expected a 3 element slice, got %#v", toGo(L.GetGlobal("arr")))
	}
	if arr[0] != int64(1) || arr[1] != 2.5 || arr[2] != "x" {
		t.Errorf("Unexpected elements %#v", arr)
	}
	m, ok := toGo(L.GetGlobal("map")).(map[string]any)
	if !ok || m["a"] != true {
		t.Errorf("Expected map with a=true, got %#v", m)
	}

	back := toLua(L, map[string]any{"n": uint64(7), "list": []string{"p", "q"}}).(*lua.LTable)
	if back.RawGetString("n") != lua.LNumber(7) {
		t.Errorf("Expected n=7, got %v", back.RawGetString("n"))
	}
	if list := back.RawGetString("list").(*lua.LTable); list.Len() != 2 {
		t.Errorf("Expected 2 list items, got %d", list.Len())
	}
}
