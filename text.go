package epub

import (
	"errors"
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// lineBreakers start a new line in extracted text.
var lineBreakers = map[atom.Atom]bool{
	atom.P: true, atom.Br: true, atom.Div: true, atom.Hr: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Li: true, atom.Tr: true, atom.Blockquote: true, atom.Section: true,
}

// invisible elements contribute no text.
var invisible = map[atom.Atom]bool{
	atom.Script: true,
	atom.Style:  true,
	atom.Head:   true,
}

// extractText tokenizes markup and returns its readable text. Line-breaking
// elements start a new line, whitespace runs collapse to one space and the
// content of script, style and head is dropped.
func extractText(markup string) (string, error) {
	z := html.NewTokenizer(strings.NewReader(markup))

	var sb strings.Builder
	hidden := 0
	atLineStart := true
	breakLine := func() {
		if sb.Len() > 0 && !atLineStart {
			sb.WriteByte('\n')
			atLineStart = true
		}
	}

	for {
		switch z.Next() {
		case html.ErrorToken:
			if err := z.Err(); !errors.Is(err, io.EOF) {
				return "", err
			}
			return strings.TrimSpace(sb.String()), nil

		case html.StartTagToken:
			name, _ := z.TagName()
			a := atom.Lookup(name)
			if invisible[a] {
				hidden++
				continue
			}
			if hidden == 0 && lineBreakers[a] {
				breakLine()
			}

		case html.SelfClosingTagToken:
			// <script/> in XHTML has no content and no end tag.
			name, _ := z.TagName()
			if a := atom.Lookup(name); hidden == 0 && lineBreakers[a] {
				breakLine()
			}

		case html.EndTagToken:
			name, _ := z.TagName()
			if invisible[atom.Lookup(name)] && hidden > 0 {
				hidden--
			}

		case html.TextToken:
			if hidden > 0 {
				continue
			}
			t := squeezeSpace(string(z.Text()))
			if t == "" {
				continue
			}
			if atLineStart {
				t = strings.TrimLeft(t, " ")
			}
			sb.WriteString(t)
			atLineStart = false
		}
	}
}

// squeezeSpace collapses whitespace runs to a single space. A leading or
// trailing run survives as one space so inline elements stay separated;
// an all-space string yields "".
func squeezeSpace(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	out := strings.Join(fields, " ")
	if isSpace(s[0]) {
		out = " " + out
	}
	if isSpace(s[len(s)-1]) {
		out += " "
	}
	return out
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\f'
}

// extractBodyHTML renders the children of <body> with scripts, styles,
// event handler attributes and unsafe URLs removed.
func extractBodyHTML(markup string) (string, error) {
	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return "", err
	}
	body := findAtom(doc, atom.Body)
	if body == nil {
		return "", nil
	}
	sanitize(body)

	var sb strings.Builder
	for c := body.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&sb, c); err != nil {
			return "", err
		}
	}
	return strings.TrimSpace(sb.String()), nil
}

func findAtom(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findAtom(c, a); found != nil {
			return found
		}
	}
	return nil
}

func sanitize(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == html.ElementNode {
			if c.DataAtom == atom.Script || c.DataAtom == atom.Style {
				n.RemoveChild(c)
				c = next
				continue
			}
			kept := c.Attr[:0]
			for _, a := range c.Attr {
				if strings.HasPrefix(strings.ToLower(a.Key), "on") {
					continue
				}
				if (a.Key == "href" || a.Key == "src" || a.Key == "xlink:href") && !safeURL(a.Val) {
					continue
				}
				kept = append(kept, a)
			}
			c.Attr = kept
		}
		sanitize(c)
		c = next
	}
}

// safeURL accepts relative references, data:image URLs and the schemes a
// rewritten resource or an outbound link may use.
func safeURL(raw string) bool {
	v := strings.TrimSpace(raw)
	u, err := url.Parse(v)
	if err != nil {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "", "http", "https", "mailto", "urn", "blob":
		return true
	case "data":
		return strings.HasPrefix(strings.ToLower(v), "data:image/")
	}
	return false
}
