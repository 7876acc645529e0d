package vehicle

import (
	"errors"
	"io"

	"github.com/rs/zerolog"
)

// Input yields whatever bytes have arrived since the last call without
// blocking.
type Input interface {
	Poll() []byte
}

// PollReader turns a blocking reader into an Input. A background goroutine
// reads into a buffered channel that Poll drains.
type PollReader struct {
	ch chan []byte
}

func NewPollReader(r io.Reader, log zerolog.Logger) *PollReader {
	p := &PollReader{ch: make(chan []byte, 64)}
	go p.pump(r, log)
	return p
}

func (p *PollReader) pump(r io.Reader, log zerolog.Logger) {
	defer close(p.ch)
	buf := make([]byte, 256)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			p.ch <- append([]byte(nil), buf[:n]...)
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.Error().Err(err).Msg("command input failed")
			} else {
				log.Info().Msg("command input closed")
			}
			return
		}
	}
}

func (p *PollReader) Poll() []byte {
	var out []byte
	for {
		select {
		case b, ok := <-p.ch:
			if !ok {
				return out
			}
			out = append(out, b...)
		default:
			return out
		}
	}
}
