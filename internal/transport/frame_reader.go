/*
 * This file is part of VoxStream (https://github.com/voxstream/voxstream).
 * Copyright (C) 2025 VoxStream Labs
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program. If not, see <https://www.gnu.org/licenses/>.
 */

// Package transport implements the chunked frame protocol on the input side
// and the result protocol on the output side. Both run over
// whitespace-tokenized text streams.
package transport

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/voxstream/decode-hub/internal/logging"
)

// Header flags of the chunk protocol.
const (
	FlagActivity  = -1 // normal chunk: frame count + scores follow
	FlagEndpoint  = -2 // terminal chunk: frame count (may be 0) + scores follow
	FlagTerminate = -3 // stream termination: no further fields
)

// OverSentinel is the drain-handshake token expected after termination.
const OverSentinel = "over"

var (
	// ErrStreamTimeout means no data arrived within the configured deadline
	// while waiting for a token. Fatal; the protocol has no recovery.
	ErrStreamTimeout = errors.New("transport: stream timeout waiting for data")

	// ErrInvalidChunkSize means a chunk header declared a frame count outside
	// the permitted range. Fatal; a protocol violation by the producer.
	ErrInvalidChunkSize = errors.New("transport: invalid chunk size")

	// ErrUnknownFlag means a chunk header carried a flag outside {-1,-2,-3}.
	ErrUnknownFlag = errors.New("transport: unknown header flag")
)

// Event classifies the outcome of one Receive call.
type Event int

const (
	// EventData means a chunk of frames was read into the sink.
	EventData Event = iota
	// EventNoMoreData means an endpoint marker with zero frames arrived: the
	// utterance is over but the stream is not terminated.
	EventNoMoreData
	// EventTerminate means the producer terminated the stream.
	EventTerminate
)

// ChunkSink receives decoded chunks. *likelihood.Buffer satisfies it.
type ChunkSink interface {
	BeginChunk(frames int)
	SetScore(row, class int, score float32)
	MarkLastChunk()
	NumClasses() int
	Capacity() int
}

// FrameReader reads the chunk protocol from a byte stream. A background
// scanner splits the stream into whitespace-delimited tokens; every read
// waits at most the configured timeout for the next token before failing
// with ErrStreamTimeout. The poll interval is the granularity at which the
// elapsed idle time is accounted.
type FrameReader struct {
	tokens  chan string
	timeout time.Duration
	poll    time.Duration
}

// NewFrameReader starts reading tokens from r.
func NewFrameReader(r io.Reader, timeout, poll time.Duration) *FrameReader {
	fr := &FrameReader{
		tokens:  make(chan string, 256),
		timeout: timeout,
		poll:    poll,
	}
	go fr.scan(r)
	return fr
}

func (fr *FrameReader) scan(r io.Reader) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	sc.Split(bufio.ScanWords)
	for sc.Scan() {
		fr.tokens <- sc.Text()
	}
	close(fr.tokens)
}

// nextToken waits for the next token, accounting idle time in poll-interval
// steps. A closed stream can never produce another token, so it fails with
// the same timeout error without waiting out the deadline.
func (fr *FrameReader) nextToken() (string, error) {
	var waited time.Duration
	tick := time.NewTicker(fr.poll)
	defer tick.Stop()

	for {
		select {
		case tok, ok := <-fr.tokens:
			if !ok {
				return "", fmt.Errorf("%w: input stream closed", ErrStreamTimeout)
			}
			return tok, nil
		case <-tick.C:
			waited += fr.poll
			if waited >= fr.timeout {
				return "", ErrStreamTimeout
			}
		}
	}
}

func (fr *FrameReader) nextInt() (int, error) {
	tok, err := fr.nextToken()
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(tok)
	if err != nil {
		return 0, fmt.Errorf("transport: malformed integer token %q", tok)
	}
	return n, nil
}

func (fr *FrameReader) nextFloat() (float32, error) {
	tok, err := fr.nextToken()
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(tok, 32)
	if err != nil {
		return 0, fmt.Errorf("transport: malformed score token %q", tok)
	}
	return float32(v), nil
}

// Receive reads one protocol message. Data chunks are written into sink;
// endpoint markers additionally record the terminal frame. The caller must
// not call Receive again after EventTerminate.
func (fr *FrameReader) Receive(sink ChunkSink) (Event, error) {
	flag, err := fr.nextInt()
	if err != nil {
		return 0, err
	}

	switch flag {
	case FlagTerminate:
		logging.LogStreamEvent("terminate received")
		return EventTerminate, nil

	case FlagEndpoint:
		frames, err := fr.nextInt()
		if err != nil {
			return 0, err
		}
		if frames < 0 || frames > sink.Capacity() {
			return 0, fmt.Errorf("%w: endpoint chunk declared %d frames (capacity %d)",
				ErrInvalidChunkSize, frames, sink.Capacity())
		}
		if frames == 0 {
			sink.MarkLastChunk()
			return EventNoMoreData, nil
		}
		if err := fr.readScores(sink, frames); err != nil {
			return 0, err
		}
		sink.MarkLastChunk()
		return EventData, nil

	case FlagActivity:
		frames, err := fr.nextInt()
		if err != nil {
			return 0, err
		}
		if frames <= 0 || frames > sink.Capacity() {
			return 0, fmt.Errorf("%w: activity chunk declared %d frames (capacity %d)",
				ErrInvalidChunkSize, frames, sink.Capacity())
		}
		if err := fr.readScores(sink, frames); err != nil {
			return 0, err
		}
		return EventData, nil

	default:
		return 0, fmt.Errorf("%w: %d (want -1 activity, -2 endpoint, -3 terminate)",
			ErrUnknownFlag, flag)
	}
}

// readScores reads frames x classes scores in row-major order into sink.
func (fr *FrameReader) readScores(sink ChunkSink, frames int) error {
	sink.BeginChunk(frames)
	classes := sink.NumClasses()
	for i := 0; i < frames; i++ {
		for j := 0; j < classes; j++ {
			v, err := fr.nextFloat()
			if err != nil {
				return err
			}
			sink.SetScore(i, j, v)
		}
	}
	return nil
}

// AwaitOver consumes tokens until the drain sentinel arrives, under the same
// timeout policy as chunk reads. Interleaved non-sentinel tokens are skipped.
func (fr *FrameReader) AwaitOver() error {
	for {
		tok, err := fr.nextToken()
		if err != nil {
			return err
		}
		if tok == OverSentinel {
			logging.LogStreamEvent("stream drained")
			return nil
		}
	}
}
