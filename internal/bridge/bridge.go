// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package bridge keeps the host's serial link to the vehicle alive and
// translates between protocol lines and typed commands.
package bridge

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/relabs-tech/pubmarine/internal/observability"
	"github.com/relabs-tech/pubmarine/internal/protocol"
)

// Link is a duplex command channel to the vehicle.
type Link interface {
	// OnCommand registers the callback for every decoded inbound command.
	OnCommand(fn func(protocol.Command))
	// Run reads until ctx is done or the link is closed.
	Run(ctx context.Context) error
	Write(cmd protocol.Command) error
	Close() error
}

// Opener opens the serial connection. It is called again, with the same
// configuration, every time the connection has to be reopened.
type Opener func() (io.ReadWriteCloser, error)

var errClosed = errors.New("bridge closed")

// Bridge owns one serial connection. Reading runs in Run; Write may be
// called concurrently with it, but concurrent writers must serialize their
// own calls.
type Bridge struct {
	open        Opener
	readTimeout time.Duration
	reopenDelay time.Duration
	log         zerolog.Logger

	mu      sync.Mutex
	conn    io.ReadWriteCloser
	handler func(protocol.Command)
	closed  bool
}

type Option func(*Bridge)

// WithReadTimeout treats d of silence as a read failure. Zero waits forever.
func WithReadTimeout(d time.Duration) Option {
	return func(b *Bridge) {
		if d > 0 {
			b.readTimeout = d
		}
	}
}

// WithReopenDelay waits d between a failed open and the next attempt.
func WithReopenDelay(d time.Duration) Option {
	return func(b *Bridge) {
		if d >= 0 {
			b.reopenDelay = d
		}
	}
}

func WithLogger(log zerolog.Logger) Option {
	return func(b *Bridge) { b.log = log }
}

func New(open Opener, opts ...Option) *Bridge {
	b := &Bridge{
		open: open,
		log:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Bridge) OnCommand(fn func(protocol.Command)) {
	b.mu.Lock()
	b.handler = fn
	b.mu.Unlock()
}

// Run opens the connection and delivers decoded lines to the handler. On a
// read failure the connection is closed and reopened with the same Opener,
// then reading resumes. There is no retry limit.
func (b *Bridge) Run(ctx context.Context) error {
	for {
		conn, err := b.connect(ctx)
		if errors.Is(err, errClosed) {
			return nil
		}
		if err != nil {
			return err
		}
		err = b.readLines(ctx, conn)
		b.drop(conn)

		if ctx.Err() != nil {
			return ctx.Err()
		}
		if b.isClosed() {
			return nil
		}
		observability.RecordReconnect()
		b.log.Warn().Err(err).Msg("serial read failed, reopening")
	}
}

// connect opens the port, retrying until it succeeds or ctx is done.
func (b *Bridge) connect(ctx context.Context) (io.ReadWriteCloser, error) {
	for {
		if b.isClosed() {
			return nil, errClosed
		}
		conn, err := b.open()
		if err == nil {
			b.mu.Lock()
			if b.closed {
				b.mu.Unlock()
				conn.Close()
				return nil, errClosed
			}
			b.conn = conn
			b.mu.Unlock()
			b.log.Info().Msg("serial port open")
			return conn, nil
		}
		b.log.Warn().Err(err).Dur("retry_in", b.reopenDelay).Msg("serial open failed")

		if b.reopenDelay == 0 {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}
		timer := time.NewTimer(b.reopenDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func (b *Bridge) readLines(ctx context.Context, conn io.Reader) error {
	lines := make(chan string)
	failed := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)

	go func() {
		r := bufio.NewReader(conn)
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				if line != "" {
					b.log.Debug().Err(err).Str("partial", line).Msg("discarding unterminated line")
				}
				failed <- err
				return
			}
			select {
			case lines <- line:
			case <-done:
				return
			}
		}
	}()

	var silence <-chan time.Time
	var timer *time.Timer
	if b.readTimeout > 0 {
		timer = time.NewTimer(b.readTimeout)
		defer timer.Stop()
		silence = timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-failed:
			return &TransportError{Kind: ErrReadFailed, Err: err}
		case <-silence:
			return &TransportError{Kind: ErrReadFailed, Err: ErrSilence}
		case line := <-lines:
			if timer != nil {
				timer.Reset(b.readTimeout)
			}
			b.deliver(line)
		}
	}
}

func (b *Bridge) deliver(line string) {
	line = strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(line) == "" {
		return
	}
	b.log.Debug().Str("line", line).Msg("rx")

	cmd, err := protocol.Decode(line)
	if err != nil {
		observability.RecordDecodeError()
		b.log.Warn().Err(err).Str("line", line).Msg("dropping undecodable line")
		return
	}
	observability.RecordCommand(cmd.Name())

	b.mu.Lock()
	fn := b.handler
	b.mu.Unlock()
	if fn != nil {
		fn(cmd)
	}
}

// Write encodes cmd and sends it as one line. A failed write is logged and
// dropped; the read side notices a dead port and reconnects.
func (b *Bridge) Write(cmd protocol.Command) error {
	b.mu.Lock()
	conn := b.conn
	b.mu.Unlock()

	line := protocol.Encode(cmd)
	if conn == nil {
		observability.RecordWriteError()
		b.log.Warn().Str("line", line).Msg("write dropped, port not open")
		return &TransportError{Kind: ErrWriteFailed, Err: ErrNotConnected}
	}
	if _, err := io.WriteString(conn, line+"\n"); err != nil {
		observability.RecordWriteError()
		b.log.Warn().Err(err).Str("line", line).Msg("write failed")
		return &TransportError{Kind: ErrWriteFailed, Err: err}
	}
	b.log.Debug().Str("line", line).Msg("tx")
	return nil
}

// Close closes the connection and stops Run.
func (b *Bridge) Close() error {
	b.mu.Lock()
	b.closed = true
	conn := b.conn
	b.conn = nil
	b.mu.Unlock()
	if conn == nil {
		return nil
	}
	if err := conn.Close(); err != nil && !errors.Is(err, io.ErrClosedPipe) {
		return err
	}
	return nil
}

func (b *Bridge) drop(conn io.ReadWriteCloser) {
	b.mu.Lock()
	if b.conn == conn {
		b.conn = nil
	}
	b.mu.Unlock()
	if err := conn.Close(); err != nil {
		b.log.Debug().Err(err).Msg("close after read failure")
	}
}

func (b *Bridge) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}
