// Package escpos builds ESC/POS command streams for thermal receipt printers.
package escpos

import (
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

const (
	esc = 0x1B
	gs  = 0x1D
	lf  = 0x0A
)

// Width is the printable character width of a 58mm roll.
const Width = 32

// Alignment is the ESC a argument.
type Alignment byte

const (
	AlignLeft   Alignment = 0x00
	AlignCenter Alignment = 0x01
	AlignRight  Alignment = 0x02
)

// Size is the ESC ! print mode.
type Size byte

const (
	SizeNormal Size = 0x00
	SizeDouble Size = 0x30 // double width and height
)

// codePage pairs a text encoding with the ESC t table that selects it on
// the printer. table < 0 means no selection is sent.
type codePage struct {
	cm    *charmap.Charmap
	table int
}

var codePages = map[string]codePage{
	"cp437":  {charmap.CodePage437, 0},
	"cp850":  {charmap.CodePage850, 2},
	"cp858":  {charmap.CodePage858, 19},
	"cp1252": {charmap.Windows1252, 16},
	"latin1": {charmap.ISO8859_1, -1},
}

// DefaultCodePage is the power-on table of nearly every ESC/POS printer.
const DefaultCodePage = "cp437"

// CodePages lists the accepted Options.CodePage values.
func CodePages() []string {
	return []string{"cp437", "cp850", "cp858", "cp1252", "latin1"}
}

// ValidCodePage reports whether name is a supported code page.
func ValidCodePage(name string) bool {
	_, ok := codePages[strings.ToLower(name)]
	return ok
}

// Options configures an Encoder.
type Options struct {
	CodePage   string // default cp437
	PartialCut bool   // Footer cuts with GS V 1 instead of GS V 0
}

// Encoder appends ESC/POS commands to an in-memory buffer. Every method
// returns the encoder so calls chain. Formatting state is not tracked:
// callers balance on/off pairs themselves.
type Encoder struct {
	buf  []byte
	opts Options
	cp   codePage
	// plain drops control sequences and keeps text as UTF-8. Used for
	// previews.
	plain bool
}

// NewEncoder returns an empty encoder. An unknown code page falls back to
// cp437.
func NewEncoder(opts Options) *Encoder {
	name := strings.ToLower(opts.CodePage)
	if name == "" {
		name = DefaultCodePage
	}
	cp, ok := codePages[name]
	if !ok {
		slog.Warn("[ESCPOS] unknown code page, using cp437", "code_page", opts.CodePage)
		name = DefaultCodePage
		cp = codePages[name]
	}
	opts.CodePage = name
	return &Encoder{opts: opts, cp: cp}
}

// newPlainEncoder renders layout as readable text.
func newPlainEncoder() *Encoder {
	return &Encoder{opts: Options{CodePage: DefaultCodePage}, cp: codePages[DefaultCodePage], plain: true}
}

// Bytes returns a copy of the buffer.
func (e *Encoder) Bytes() []byte {
	out := make([]byte, len(e.buf))
	copy(out, e.buf)
	return out
}

func (e *Encoder) Len() int { return len(e.buf) }

// Reset empties the buffer.
func (e *Encoder) Reset() *Encoder {
	e.buf = e.buf[:0]
	return e
}

// Raw appends b unchanged.
func (e *Encoder) Raw(b ...byte) *Encoder {
	e.buf = append(e.buf, b...)
	return e
}

func (e *Encoder) cmd(b ...byte) *Encoder {
	if e.plain {
		return e
	}
	return e.Raw(b...)
}

// Initialize resets the printer (ESC @). A non-default code page is
// selected right after.
func (e *Encoder) Initialize() *Encoder {
	e.cmd(esc, '@')
	if e.cp.table > 0 {
		e.cmd(esc, 't', byte(e.cp.table))
	}
	return e
}

func (e *Encoder) Bold(on bool) *Encoder {
	return e.cmd(esc, 'E', flag(on))
}

func (e *Encoder) Underline(on bool) *Encoder {
	return e.cmd(esc, '-', flag(on))
}

func (e *Encoder) Align(a Alignment) *Encoder {
	return e.cmd(esc, 'a', byte(a))
}

func (e *Encoder) FontSize(s Size) *Encoder {
	return e.cmd(esc, '!', byte(s))
}

// LineSpacing sets the line spacing to n dots (ESC 3 n).
func (e *Encoder) LineSpacing(n byte) *Encoder {
	return e.cmd(esc, '3', n)
}

// Text appends s in the configured code page. Runes the code page cannot
// represent become '?'.
func (e *Encoder) Text(s string) *Encoder {
	if e.plain {
		e.buf = append(e.buf, s...)
		return e
	}
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		i += size
		if r < utf8.RuneSelf {
			e.buf = append(e.buf, byte(r))
			continue
		}
		b, ok := e.cp.cm.EncodeRune(r)
		if !ok {
			b = '?'
		}
		e.buf = append(e.buf, b)
	}
	return e
}

// Line appends s and a line feed.
func (e *Encoder) Line(s string) *Encoder {
	return e.Text(s).Feed(1)
}

// Feed appends n line feeds.
func (e *Encoder) Feed(n int) *Encoder {
	for i := 0; i < n; i++ {
		e.buf = append(e.buf, lf)
	}
	return e
}

// Rule prints ch repeated width times.
func (e *Encoder) Rule(ch rune, width int) *Encoder {
	if width < 0 {
		width = 0
	}
	return e.Line(strings.Repeat(string(ch), width))
}

// DefaultRule prints a full-width line of '='.
func (e *Encoder) DefaultRule() *Encoder {
	return e.Rule('=', Width)
}

// Cut cuts the paper (GS V 0 full, GS V 1 partial).
func (e *Encoder) Cut(partial bool) *Encoder {
	return e.cmd(gs, 'V', flag(partial))
}

// WithBold wraps fn in bold on/off.
func (e *Encoder) WithBold(fn func(*Encoder)) *Encoder {
	e.Bold(true)
	fn(e)
	return e.Bold(false)
}

// Emphasized wraps fn in bold and double size, switching both back
// afterwards in the same order.
func (e *Encoder) Emphasized(fn func(*Encoder)) *Encoder {
	e.Bold(true).FontSize(SizeDouble)
	fn(e)
	return e.Bold(false).FontSize(SizeNormal)
}

func flag(on bool) byte {
	if on {
		return 0x01
	}
	return 0x00
}

func (e *Encoder) String() string {
	return fmt.Sprintf("escpos.Encoder(%d bytes, %s)", len(e.buf), e.opts.CodePage)
}
