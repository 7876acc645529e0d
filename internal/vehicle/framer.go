package vehicle

import (
	"errors"
	"strings"
)

// MaxLineLength bounds a pending line; longer input is discarded.
const MaxLineLength = 1024

var ErrLineTooLong = errors.New("line too long")

// Framer splits a byte stream into newline-terminated lines, keeping any
// unterminated suffix for the next call.
type Framer struct {
	pending    []byte
	discarding bool // dropping the rest of an overlong line
	editor     func(pending []byte, c byte) ([]byte, bool)
}

// NewFramer returns a framer. With interactive set, backspace and DEL erase
// the previous pending character, for operators typing on a terminal.
func NewFramer(interactive bool) *Framer {
	f := &Framer{}
	if interactive {
		f.editor = eraseBackspace
	}
	return f
}

// Feed consumes data and returns the completed lines in arrival order,
// without terminators. ErrLineTooLong is returned alongside any lines
// completed in the same call.
func (f *Framer) Feed(data []byte) ([]string, error) {
	var (
		lines    []string
		overflow bool
	)
	for _, c := range data {
		if f.editor != nil {
			var handled bool
			if f.pending, handled = f.editor(f.pending, c); handled {
				continue
			}
		}
		if c == '\n' {
			if !f.discarding {
				lines = append(lines, strings.TrimRight(string(f.pending), "\r"))
			}
			f.pending = f.pending[:0]
			f.discarding = false
			continue
		}
		if f.discarding {
			continue
		}
		if len(f.pending) >= MaxLineLength {
			f.pending = f.pending[:0]
			f.discarding = true
			overflow = true
			continue
		}
		f.pending = append(f.pending, c)
	}
	if overflow {
		return lines, ErrLineTooLong
	}
	return lines, nil
}

// Pending returns the unterminated suffix retained so far.
func (f *Framer) Pending() string { return string(f.pending) }

func eraseBackspace(pending []byte, c byte) ([]byte, bool) {
	if c != '\b' && c != 0x7f {
		return pending, false
	}
	if len(pending) > 0 {
		pending = pending[:len(pending)-1]
	}
	return pending, true
}
