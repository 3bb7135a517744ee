package wconn_test

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/gordian-engine/wyvern/internal/wtest"
	"github.com/gordian-engine/wyvern/wcert"
	"github.com/gordian-engine/wyvern/wconn"
	"github.com/gordian-engine/wyvern/wconn/wconntest"
	"github.com/gordian-engine/wyvern/wkey"
	"github.com/quic-go/quic-go"
	"github.com/stretchr/testify/require"
)

func TestWrap_identitiesAndAddresses(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pair := wconntest.NewPair(t, ctx)

	// Each side holds the other's verified identity.
	require.True(
		t,
		pair.ListenerIdentity.Public().Equal(pair.Dialer.Identity()),
	)
	require.True(
		t,
		pair.DialerIdentity.Public().Equal(pair.Listener.Identity()),
	)
	require.Equal(
		t,
		wkey.NewPeerID(pair.DialerIdentity.Public()),
		pair.Listener.PeerID(),
	)

	// Addresses are concrete and mirror one another.
	require.True(t, pair.Dialer.LocalAddr().Concrete())
	require.Equal(t, pair.Dialer.LocalAddr(), pair.Listener.RemoteAddr())
	require.Equal(t, pair.Dialer.RemoteAddr(), pair.Listener.LocalAddr())

	require.Equal(
		t, wcert.ALPN, pair.Dialer.TLSConnectionState().NegotiatedProtocol,
	)
}

func TestConn_streamRoundTrip(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pair := wconntest.NewPair(t, ctx)

	acceptedCh := make(chan wconn.Stream, 1)
	go func() {
		s, err := pair.Listener.AcceptStream(ctx)
		if err != nil {
			t.Error(err)
			return
		}
		acceptedCh <- s
	}()

	out, err := pair.Dialer.OpenStreamSync(ctx)
	require.NoError(t, err)

	_, err = out.Write([]byte{1, 2, 3})
	require.NoError(t, err)
	require.NoError(t, out.Close())

	in := wtest.ReceiveSoon(t, acceptedCh)

	got, err := io.ReadAll(in)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, got)

	// End-of-stream is sticky after the half-close.
	n, err := in.Read(make([]byte, 1))
	require.Zero(t, n)
	require.ErrorIs(t, err, io.EOF)

	// The other direction of the same stream still works.
	_, err = in.Write([]byte{4, 5, 6})
	require.NoError(t, err)
	require.NoError(t, in.Close())

	got, err = io.ReadAll(out)
	require.NoError(t, err)
	require.Equal(t, []byte{4, 5, 6}, got)
}

func TestConn_concurrentStreams(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pair := wconntest.NewPair(t, ctx)

	const streamCount = 2

	// Echo every accepted stream back to the opener.
	go func() {
		for range streamCount {
			s, err := pair.Listener.AcceptStream(ctx)
			if err != nil {
				t.Error(err)
				return
			}

			go func() {
				data, err := io.ReadAll(s)
				if err != nil {
					t.Error(err)
					return
				}
				if _, err := s.Write(data); err != nil {
					t.Error(err)
					return
				}
				if err := s.Close(); err != nil {
					t.Error(err)
				}
			}()
		}
	}()

	// Each opener runs a full write/read/shutdown cycle,
	// neither waiting on the other.
	var wg sync.WaitGroup
	for i := range streamCount {
		wg.Add(1)
		go func() {
			defer wg.Done()

			s, err := pair.Dialer.OpenStreamSync(ctx)
			if err != nil {
				t.Error(err)
				return
			}

			payload := bytes.Repeat([]byte{byte(i + 1)}, 2048)
			if _, err := s.Write(payload); err != nil {
				t.Error(err)
				return
			}
			if err := s.Close(); err != nil {
				t.Error(err)
				return
			}

			echoed, err := io.ReadAll(s)
			if err != nil {
				t.Error(err)
				return
			}
			if !bytes.Equal(payload, echoed) {
				t.Errorf("stream %d echoed wrong payload", i)
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	wtest.ReceiveSoon(t, done)
}

func TestConn_uniStreams(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pair := wconntest.NewPair(t, ctx)

	acceptedCh := make(chan wconn.ReceiveStream, 1)
	go func() {
		s, err := pair.Listener.AcceptUniStream(ctx)
		if err != nil {
			t.Error(err)
			return
		}
		acceptedCh <- s
	}()

	out, err := pair.Dialer.OpenUniStreamSync(ctx)
	require.NoError(t, err)

	_, err = out.Write([]byte("one way"))
	require.NoError(t, err)
	require.NoError(t, out.Close())

	in := wtest.ReceiveSoon(t, acceptedCh)

	got, err := io.ReadAll(in)
	require.NoError(t, err)
	require.Equal(t, []byte("one way"), got)
}

func TestConn_closeCausePropagates(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pair := wconntest.NewPair(t, ctx)

	require.Nil(t, pair.Listener.CloseCause())
	wtest.NotSending(t, pair.Listener.Closed())

	require.NoError(t, pair.Dialer.CloseWithError(7, "done with you"))

	wtest.ReceiveSoon(t, pair.Listener.Closed())

	var appErr *quic.ApplicationError
	require.ErrorAs(t, pair.Listener.CloseCause(), &appErr)
	require.True(t, appErr.Remote)
	require.Equal(t, quic.ApplicationErrorCode(7), appErr.ErrorCode)
	require.Equal(t, "done with you", appErr.ErrorMessage)

	// The closing side observes its own close too.
	wtest.ReceiveSoon(t, pair.Dialer.Closed())
	require.Error(t, pair.Dialer.CloseCause())

	// Operations after close fail instead of blocking.
	_, err := pair.Listener.AcceptStream(ctx)
	require.Error(t, err)
}

func TestConn_closeUnblocksPendingAccept(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pair := wconntest.NewPair(t, ctx)

	errCh := make(chan error, 1)
	go func() {
		_, err := pair.Listener.AcceptStream(ctx)
		errCh <- err
	}()

	require.NoError(t, pair.Dialer.CloseWithError(1, "bye"))

	err := wtest.ReceiveSoon(t, errCh)
	var appErr *quic.ApplicationError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, quic.ApplicationErrorCode(1), appErr.ErrorCode)
}

func TestConn_datagrams(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pair := wconntest.NewPair(t, ctx)

	payload := wtest.RandomDataForTest(t, 64)

	// Datagrams are unreliable even on loopback;
	// keep sending until one is observed.
	sendCtx, cancelSend := context.WithCancel(ctx)
	defer cancelSend()
	go func() {
		for {
			if err := pair.Dialer.SendDatagram(payload); err != nil {
				return
			}
			select {
			case <-sendCtx.Done():
				return
			case <-time.After(50 * time.Millisecond):
			}
		}
	}()

	type recvResult struct {
		data []byte
		err  error
	}
	recvCh := make(chan recvResult, 1)
	go func() {
		data, err := pair.Listener.ReceiveDatagram(ctx)
		recvCh <- recvResult{data: data, err: err}
	}()

	res := wtest.ReceiveSoon(t, recvCh)
	require.NoError(t, res.err)
	require.Equal(t, payload, res.data)
}

func TestStream_cancelWriteSurfacesCodeToPeer(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pair := wconntest.NewPair(t, ctx)

	acceptedCh := make(chan wconn.Stream, 1)
	go func() {
		s, err := pair.Listener.AcceptStream(ctx)
		if err != nil {
			t.Error(err)
			return
		}
		acceptedCh <- s
	}()

	out, err := pair.Dialer.OpenStreamSync(ctx)
	require.NoError(t, err)

	// Write so the peer learns of the stream, then abort.
	_, err = out.Write([]byte("about to vanish"))
	require.NoError(t, err)

	in := wtest.ReceiveSoon(t, acceptedCh)
	out.CancelWrite(42)

	_, err = io.ReadAll(in)
	var streamErr *quic.StreamError
	require.ErrorAs(t, err, &streamErr)
	require.Equal(t, quic.StreamErrorCode(42), streamErr.ErrorCode)
	require.True(t, streamErr.Remote)
}

func TestStream_readDeadline(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pair := wconntest.NewPair(t, ctx)

	acceptedCh := make(chan wconn.Stream, 1)
	go func() {
		s, err := pair.Listener.AcceptStream(ctx)
		if err != nil {
			t.Error(err)
			return
		}
		acceptedCh <- s
	}()

	out, err := pair.Dialer.OpenStreamSync(ctx)
	require.NoError(t, err)
	_, err = out.Write([]byte{1})
	require.NoError(t, err)

	in := wtest.ReceiveSoon(t, acceptedCh)
	_, err = io.ReadFull(in, make([]byte, 1))
	require.NoError(t, err)

	// No more data coming; the deadline must end the read.
	require.NoError(t, in.SetReadDeadline(time.Now().Add(20*time.Millisecond)))
	_, err = in.Read(make([]byte, 1))
	require.Error(t, err)

	var netErr interface{ Timeout() bool }
	require.ErrorAs(t, err, &netErr)
	require.True(t, netErr.Timeout())
}

func TestConn_errorCodeGuards(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pair := wconntest.NewPair(t, ctx)

	s, err := pair.Dialer.OpenStreamSync(ctx)
	require.NoError(t, err)

	require.Panics(t, func() { s.CancelRead(1 << 62) })
	require.Panics(t, func() { s.CancelWrite(1 << 62) })
	require.Panics(t, func() {
		_ = pair.Dialer.CloseWithError(1<<62, "too big")
	})
}
