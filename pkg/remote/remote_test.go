package remote

import (
	"context"
	"net"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/fortiblox/intcode/internal/types"
	"github.com/fortiblox/intcode/pkg/checkpoint"
	"github.com/fortiblox/intcode/pkg/service"
)

var twoInputs = []int64{3, 15, 4, 15, 3, 16, 1, 15, 16, 17, 4, 17, 99, 0, 0, 0, 0, 0}

// newTestClient starts a server on an in-process listener and dials it.
func newTestClient(t *testing.T, store checkpoint.Store) *Client {
	t.Helper()

	svc := service.New(service.Config{Store: store, MaxSteps: 10000, Logger: zerolog.Nop()})
	srv := NewServer(ServerConfig{Logger: zerolog.Nop()}, svc)

	ln := bufconn.Listen(1 << 20)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	client, err := Dial(DefaultClientConfig("bufnet"),
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return ln.DialContext(ctx)
		}),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		client.Close()
		cancel()
		require.NoError(t, <-done)
	})
	return client
}

func TestEval(t *testing.T) {
	client := newTestClient(t, nil)
	ctx := context.Background()

	resp, err := client.Eval(ctx, twoInputs, []int64{5, 7}, false)
	require.NoError(t, err)
	assert.True(t, resp.Completed)
	assert.Equal(t, "halted", resp.State)
	assert.Equal(t, []int64{5, 12}, resp.Output)
	assert.Empty(t, resp.Checkpoint)

	resp, err = client.Eval(ctx, twoInputs, []int64{5}, false)
	require.NoError(t, err)
	assert.False(t, resp.Completed)
	assert.Equal(t, "suspended", resp.State)
	assert.EqualValues(t, 4, resp.IP)
	assert.Equal(t, []int64{5}, resp.Output)
}

func TestEvalErrors(t *testing.T) {
	client := newTestClient(t, nil)
	ctx := context.Background()

	tests := []struct {
		name    string
		program []int64
		save    bool
		code    codes.Code
	}{
		{name: "invalid opcode", program: []int64{42}, code: codes.InvalidArgument},
		{name: "missing parameter", program: []int64{1, 0, 0}, code: codes.InvalidArgument},
		{name: "empty program", program: nil, code: codes.InvalidArgument},
		{name: "step limit", program: []int64{1105, 1, 0}, code: codes.ResourceExhausted},
		{name: "save without store", program: []int64{3, 0, 99}, save: true, code: codes.FailedPrecondition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.Eval(ctx, tt.program, nil, tt.save)
			require.Error(t, err)
			assert.Equal(t, tt.code, status.Code(err), err.Error())
		})
	}

	_, err := client.Eval(ctx, []int64{42}, nil, false)
	assert.Contains(t, status.Convert(err).Message(), `Invalid opcode "42" at position 1`)
}

func TestResume(t *testing.T) {
	store := checkpoint.NewMemoryStore()
	defer store.Close()
	client := newTestClient(t, store)
	ctx := context.Background()

	first, err := client.Eval(ctx, twoInputs, []int64{5}, true)
	require.NoError(t, err)
	require.NotEmpty(t, first.Checkpoint)

	second, err := client.Resume(ctx, first.Checkpoint, []int64{7}, false)
	require.NoError(t, err)
	assert.True(t, second.Completed)
	assert.Equal(t, []int64{12}, second.Output)

	_, err = client.Resume(ctx, "not-base58-0OIl", nil, false)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	require.NoError(t, store.Delete(mustDigest(t, first.Checkpoint)))
	_, err = client.Resume(ctx, first.Checkpoint, []int64{7}, false)
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestTranspile(t *testing.T) {
	client := newTestClient(t, nil)

	src, err := client.Transpile(context.Background(), twoInputs, []int64{5})
	require.NoError(t, err)
	assert.Contains(t, src, "var start Address = 4")
	assert.Contains(t, src, `fmt.Println("5")`)
}

func TestDialRequiresAddr(t *testing.T) {
	_, err := Dial(ClientConfig{})
	assert.ErrorIs(t, err, ErrNoAddr)
}

func TestToStatus(t *testing.T) {
	assert.Equal(t, codes.Canceled, status.Code(toStatus(context.Canceled)))
	assert.Equal(t, codes.NotFound, status.Code(toStatus(checkpoint.ErrNotFound)))
	assert.Equal(t, codes.DataLoss, status.Code(toStatus(checkpoint.ErrCorrupt)))
	assert.Equal(t, codes.Internal, status.Code(toStatus(assert.AnError)))
}

func mustDigest(t *testing.T, s string) types.Digest {
	t.Helper()
	d, err := types.DigestFromBase58(s)
	require.NoError(t, err)
	return d
}
