package syncgrpc

import (
	"context"
	"net"
	"sync"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/test/bufconn"

	"github.com/matt-riley/flagdgo/internal/syncproto"
)

// fakeServer is an in-memory flag sync server: it holds a queue of
// responses per stream and replays them in order, blocking until either a
// new response is pushed or the stream context ends.
type fakeServer struct {
	syncproto.UnimplementedFlagSyncServiceServer

	mu       sync.Mutex
	streams  []chan *syncproto.SyncFlagsResponse
	failNext int // number of SyncFlags calls to reject before succeeding
}

func (f *fakeServer) SyncFlags(req *syncproto.SyncFlagsRequest, stream syncproto.FlagSyncService_SyncFlagsServer) error {
	f.mu.Lock()
	if f.failNext > 0 {
		f.failNext--
		f.mu.Unlock()
		return &fakeServerError{msg: "fake server: induced failure"}
	}
	ch := make(chan *syncproto.SyncFlagsResponse, 16)
	f.streams = append(f.streams, ch)
	f.mu.Unlock()

	for {
		select {
		case resp, ok := <-ch:
			if !ok {
				return nil
			}
			if err := stream.Send(resp); err != nil {
				return err
			}
		case <-stream.Context().Done():
			return nil
		}
	}
}

// push sends resp to every currently connected stream.
func (f *fakeServer) push(resp *syncproto.SyncFlagsResponse) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.streams {
		ch <- resp
	}
}

func (f *fakeServer) streamCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.streams)
}

// closeAll terminates every currently connected stream cleanly (simulating a
// server-initiated disconnect) without shutting down the listener.
func (f *fakeServer) closeAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.streams {
		close(ch)
	}
	f.streams = nil
}

type fakeServerError struct{ msg string }

func (e *fakeServerError) Error() string { return e.msg }

// startFakeServer starts fs over an in-memory bufconn listener and returns a
// grpc.DialOption that routes client dials to it, plus a stop func.
func startFakeServer(t *testing.T, fs *fakeServer) (dialOpt grpc.DialOption, stop func()) {
	t.Helper()
	lis := bufconn.Listen(1024 * 1024)
	srv := grpc.NewServer()
	syncproto.RegisterFlagSyncServiceServer(srv, fs)

	go func() {
		_ = srv.Serve(lis)
	}()

	dialOpt = grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	})

	return dialOpt, func() {
		srv.Stop()
		_ = lis.Close()
	}
}
