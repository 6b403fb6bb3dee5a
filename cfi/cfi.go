// Package cfi parses EPUB Canonical Fragment Identifiers.
//
// A CFI addresses a position inside a book as a sequence of steps through
// the document trees of the package and its content documents:
//
//	epubcfi(/6/8!/4/4/20,/1:4,/1:21)
//
// Even step numbers address elements and odd numbers address the text
// between them, so the logical child index of a step is its number divided
// by two. See https://idpf.org/epub/linking/cfi/epub-cfi.html.
package cfi

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrCFI is matched by every error returned by Parse.
var ErrCFI = errors.New("cfi: malformed expression")

// SyntaxError reports malformed input and the cursor position where the
// parser stopped.
type SyntaxError struct {
	Pos int
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("cfi: %s at position %d", e.Msg, e.Pos)
}

func (e *SyntaxError) Unwrap() error { return ErrCFI }

// Step is one /N[assertion] component of a path.
type Step struct {
	Raw       int
	Assertion string
}

// Index returns the logical child index addressed by the step.
func (s Step) Index() int { return s.Raw / 2 }

// Path is the step sequence inside one document. Paths are separated by
// the indirection marker '!'.
type Path struct {
	Steps []Step
}

// RangeItem is one /N:M end point of a range: N is the step number of the
// node and M the character offset inside it.
type RangeItem struct {
	N      int
	Offset int
}

// IsElement reports whether the end point addresses an element.
func (r RangeItem) IsElement() bool { return r.N%2 == 0 }

// Node returns the logical position of the addressed node: the text-node
// index for odd step numbers and the element index for even ones.
func (r RangeItem) Node() int {
	if r.N%2 == 1 {
		return (r.N - 1) / 2
	}
	return r.N/2 - 1
}

// Range is the trailing start/end pair of a range expression.
type Range struct {
	Start RangeItem
	End   RangeItem
}

// CFI is a parsed expression.
type CFI struct {
	Paths []Path
	Range *Range
}

// Chapter returns the first path, the one walking the package document to
// the spine item.
func (c *CFI) Chapter() (Path, bool) {
	if len(c.Paths) == 0 {
		return Path{}, false
	}
	return c.Paths[0], true
}

// RangeItems returns the start and end of the range clause, if any.
func (c *CFI) RangeItems() (start, end RangeItem, ok bool) {
	if c.Range == nil {
		return RangeItem{}, RangeItem{}, false
	}
	return c.Range.Start, c.Range.End, true
}

// String re-encodes c without the epubcfi() wrapper. Parse(c.String())
// yields a CFI equal to c.
func (c *CFI) String() string {
	var sb strings.Builder
	for i, p := range c.Paths {
		if i > 0 {
			sb.WriteByte('!')
		}
		for _, s := range p.Steps {
			sb.WriteByte('/')
			sb.WriteString(strconv.Itoa(s.Raw))
			if s.Assertion != "" {
				sb.WriteByte('[')
				sb.WriteString(escapeAssertion(s.Assertion))
				sb.WriteByte(']')
			}
		}
	}
	if c.Range != nil {
		// The steps leading to the range were discarded by Parse, so the
		// range hangs off an empty path after the last indirection.
		if len(c.Paths) > 0 {
			sb.WriteByte('!')
		}
		fmt.Fprintf(&sb, ",/%d:%d,/%d:%d",
			c.Range.Start.N, c.Range.Start.Offset, c.Range.End.N, c.Range.End.Offset)
	}
	return sb.String()
}

func escapeAssertion(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch r {
		case '^', '[', ']', '(', ')', ',', ';', '=':
			sb.WriteByte('^')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

const (
	wrapperPrefix = "epubcfi("
	wrapperSuffix = ")"
)

// Parse parses s. The epubcfi(...) wrapper is optional. Any character the
// grammar does not expect is reported as a *SyntaxError.
func Parse(s string) (*CFI, error) {
	p := &parser{src: s}
	if strings.HasPrefix(s, wrapperPrefix) {
		if !strings.HasSuffix(s, wrapperSuffix) {
			return nil, &SyntaxError{Pos: len(s), Msg: "expected ')'"}
		}
		p.src = s[:len(s)-len(wrapperSuffix)]
		p.pos = len(wrapperPrefix)
	}
	return p.parse()
}

// parser is a single-pass scanner with one character of pushback.
type parser struct {
	src string
	pos int
}

func (p *parser) next() (byte, bool) {
	if p.pos >= len(p.src) {
		return 0, false
	}
	c := p.src[p.pos]
	p.pos++
	return c, true
}

func (p *parser) back() { p.pos-- }

func (p *parser) errorf(format string, args ...any) error {
	return &SyntaxError{Pos: p.pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) parse() (*CFI, error) {
	out := &CFI{}
	var steps []Step
	for {
		c, ok := p.next()
		if !ok {
			break
		}
		switch c {
		case '/':
			step, err := p.step()
			if err != nil {
				return nil, err
			}
			steps = append(steps, step)
		case '!':
			if len(steps) == 0 {
				return nil, p.errorf("empty path before '!'")
			}
			out.Paths = append(out.Paths, Path{Steps: steps})
			steps = nil
		case ',', ':', '~', '@':
			// The step sequence leading to a range is not kept.
			r, err := p.rangeClause()
			if err != nil {
				return nil, err
			}
			out.Range = r
			return out, nil
		default:
			p.back()
			return nil, p.errorf("unexpected character %q", c)
		}
	}
	if len(steps) > 0 {
		out.Paths = append(out.Paths, Path{Steps: steps})
	} else if len(out.Paths) == 0 {
		return nil, p.errorf("expected '/'")
	} else {
		return nil, p.errorf("expected '/' after '!'")
	}
	return out, nil
}

// step parses the digits and optional assertion following a '/'.
func (p *parser) step() (Step, error) {
	n, err := p.number()
	if err != nil {
		return Step{}, err
	}
	step := Step{Raw: n}
	c, ok := p.next()
	if !ok {
		return step, nil
	}
	if c != '[' {
		p.back()
		return step, nil
	}
	step.Assertion, err = p.assertion()
	return step, err
}

// assertion reads up to the closing ']'. '^' escapes the next character.
func (p *parser) assertion() (string, error) {
	var sb strings.Builder
	for {
		c, ok := p.next()
		if !ok {
			return "", p.errorf("expected ']'")
		}
		switch c {
		case ']':
			return sb.String(), nil
		case '^':
			esc, ok := p.next()
			if !ok {
				return "", p.errorf("expected character after '^'")
			}
			sb.WriteByte(esc)
		default:
			sb.WriteByte(c)
		}
	}
}

func (p *parser) number() (int, error) {
	start := p.pos
	for p.pos < len(p.src) && p.src[p.pos] >= '0' && p.src[p.pos] <= '9' {
		p.pos++
	}
	if start == p.pos {
		if p.pos >= len(p.src) {
			return 0, p.errorf("expected digit")
		}
		return 0, p.errorf("expected digit, found %q", p.src[p.pos])
	}
	n, err := strconv.Atoi(p.src[start:p.pos])
	if err != nil {
		return 0, &SyntaxError{Pos: start, Msg: "number out of range"}
	}
	return n, nil
}

func (p *parser) expect(want byte) error {
	c, ok := p.next()
	if !ok {
		return p.errorf("expected %q", want)
	}
	if c != want {
		p.back()
		return p.errorf("expected %q, found %q", want, c)
	}
	return nil
}

// rangeClause parses "/N:M,/N:M" after the range mark.
func (p *parser) rangeClause() (*Range, error) {
	start, err := p.rangeItem()
	if err != nil {
		return nil, err
	}
	if err := p.expect(','); err != nil {
		return nil, err
	}
	end, err := p.rangeItem()
	if err != nil {
		return nil, err
	}
	if p.pos < len(p.src) {
		return nil, p.errorf("unexpected character %q after range", p.src[p.pos])
	}
	return &Range{Start: start, End: end}, nil
}

func (p *parser) rangeItem() (RangeItem, error) {
	if err := p.expect('/'); err != nil {
		return RangeItem{}, err
	}
	n, err := p.number()
	if err != nil {
		return RangeItem{}, err
	}
	if err := p.expect(':'); err != nil {
		return RangeItem{}, err
	}
	off, err := p.number()
	if err != nil {
		return RangeItem{}, err
	}
	return RangeItem{N: n, Offset: off}, nil
}
