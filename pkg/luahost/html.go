package luahost

import (
	"strings"

	"golang.org/x/net/html"
)

// htmlText reduces an HTML fragment to the text a console can show. Block
// elements start new lines, <pre> keeps its whitespace and scripts and
// styles are dropped.
func htmlText(fragment string) string {
	var (
		b    strings.Builder
		pre  int
		skip int
	)
	newline := func() {
		if s := b.String(); s != "" && !strings.HasSuffix(s, "\n") {
			b.WriteByte('\n')
		}
	}

	z := html.NewTokenizer(strings.NewReader(fragment))
	for {
		switch z.Next() {
		case html.ErrorToken:
			// io.EOF or a malformed tail: either way we are done.
			newline()
			lines := strings.Split(b.String(), "\n")
			for i, line := range lines {
				lines[i] = strings.TrimRight(line, " ")
			}
			return strings.Join(lines, "\n")
		case html.TextToken:
			if skip > 0 {
				continue
			}
			text := string(z.Text())
			if pre == 0 {
				text = collapseSpace(text, b.Len() == 0 || strings.HasSuffix(b.String(), "\n") || strings.HasSuffix(b.String(), " "))
			}
			b.WriteString(text)
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			switch tag := string(name); tag {
			case "br":
				b.WriteByte('\n')
			case "script", "style":
				skip++
			case "pre":
				newline()
				pre++
			case "li":
				newline()
				b.WriteString("* ")
			case "hr":
				newline()
				b.WriteString("----\n")
			default:
				if blockTags[tag] {
					newline()
				}
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			switch tag := string(name); tag {
			case "script", "style":
				if skip > 0 {
					skip--
				}
			case "pre":
				if pre > 0 {
					pre--
				}
				newline()
			default:
				if blockTags[tag] {
					newline()
				}
			}
		}
	}
}

var blockTags = map[string]bool{
	"p": true, "div": true, "h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"ul": true, "ol": true, "table": true, "tr": true, "blockquote": true, "dl": true, "dt": true, "dd": true,
}

// collapseSpace folds runs of whitespace into one space the way a browser
// does outside <pre>.
func collapseSpace(s string, atLineStart bool) string {
	var b strings.Builder
	space := atLineStart
	for _, r := range s {
		switch r {
		case ' ', '\t', '\n', '\r', '\f':
			if !space {
				b.WriteByte(' ')
				space = true
			}
		default:
			b.WriteRune(r)
			space = false
		}
	}
	return b.String()
}
