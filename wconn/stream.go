package wconn

import (
	"fmt"
	"time"

	"github.com/quic-go/quic-go"
)

// StreamErrorCode is used for
// [Stream.CancelRead] and [Stream.CancelWrite],
// to inform the peer of why the stream is canceled.
type StreamErrorCode uint64

// Stream is one bidirectional byte stream
// multiplexed over a [Conn].
//
// Reads and writes on distinct streams do not block one another;
// ordering is only guaranteed within a single stream.
type Stream struct {
	s quic.Stream
}

// ID returns the stream's connection-scoped identifier.
func (s Stream) ID() int64 {
	return int64(s.s.StreamID())
}

func (s Stream) Read(p []byte) (int, error) {
	return s.s.Read(p)
}

func (s Stream) Write(p []byte) (int, error) {
	return s.s.Write(p)
}

// Close half-closes the send direction.
// Every byte already written is delivered
// before the peer observes end-of-stream;
// the receive direction is unaffected.
//
// Discarding a Stream without calling Close does not flush anything.
// Use CancelWrite to abandon written data instead of delivering it.
func (s Stream) Close() error {
	return s.s.Close()
}

// CancelRead aborts the receive direction,
// discarding buffered data and telling the peer to stop sending.
func (s Stream) CancelRead(code StreamErrorCode) {
	if (code >> 62) > 0 {
		panic(fmt.Errorf(
			"BUG: stream error code must fit in 62 bits (got 0x%x)", code,
		))
	}
	s.s.CancelRead(quic.StreamErrorCode(code))
}

// CancelWrite aborts the send direction,
// abandoning data not yet delivered.
// The peer's reads fail with the given code.
func (s Stream) CancelWrite(code StreamErrorCode) {
	if (code >> 62) > 0 {
		panic(fmt.Errorf(
			"BUG: stream error code must fit in 62 bits (got 0x%x)", code,
		))
	}
	s.s.CancelWrite(quic.StreamErrorCode(code))
}

func (s Stream) SetDeadline(t time.Time) error {
	return s.s.SetDeadline(t)
}

func (s Stream) SetReadDeadline(t time.Time) error {
	return s.s.SetReadDeadline(t)
}

func (s Stream) SetWriteDeadline(t time.Time) error {
	return s.s.SetWriteDeadline(t)
}

// ReceiveStream is the receiving end
// of a unidirectional stream the peer opened.
type ReceiveStream struct {
	s quic.ReceiveStream
}

// ID returns the stream's connection-scoped identifier.
func (s ReceiveStream) ID() int64 {
	return int64(s.s.StreamID())
}

func (s ReceiveStream) Read(p []byte) (int, error) {
	return s.s.Read(p)
}

// CancelRead aborts the stream,
// discarding buffered data and telling the peer to stop sending.
func (s ReceiveStream) CancelRead(code StreamErrorCode) {
	if (code >> 62) > 0 {
		panic(fmt.Errorf(
			"BUG: stream error code must fit in 62 bits (got 0x%x)", code,
		))
	}
	s.s.CancelRead(quic.StreamErrorCode(code))
}

func (s ReceiveStream) SetReadDeadline(t time.Time) error {
	return s.s.SetReadDeadline(t)
}

// SendStream is the sending end
// of a locally opened unidirectional stream.
type SendStream struct {
	s quic.SendStream
}

// ID returns the stream's connection-scoped identifier.
func (s SendStream) ID() int64 {
	return int64(s.s.StreamID())
}

func (s SendStream) Write(p []byte) (int, error) {
	return s.s.Write(p)
}

// Close half-closes the stream;
// bytes already written are delivered
// before the peer observes end-of-stream.
func (s SendStream) Close() error {
	return s.s.Close()
}

// CancelWrite aborts the stream,
// abandoning data not yet delivered.
func (s SendStream) CancelWrite(code StreamErrorCode) {
	if (code >> 62) > 0 {
		panic(fmt.Errorf(
			"BUG: stream error code must fit in 62 bits (got 0x%x)", code,
		))
	}
	s.s.CancelWrite(quic.StreamErrorCode(code))
}

func (s SendStream) SetWriteDeadline(t time.Time) error {
	return s.s.SetWriteDeadline(t)
}
