package concurrency_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-http/api"
	"github.com/momentics/hioload-http/internal/concurrency"
)

func TestOneshotSendOnce(t *testing.T) {
	o := concurrency.NewOneshot[int]()
	require.True(t, o.Send(7))
	require.False(t, o.Send(8))
	o.Close()

	v, err := o.Recv(context.Background())
	require.NoError(t, err)
	require.Equal(t, 7, v)
}

func TestOneshotCloseWithoutValue(t *testing.T) {
	o := concurrency.NewOneshot[int]()
	o.Close()
	require.False(t, o.Send(1))

	_, err := o.Recv(context.Background())
	require.ErrorIs(t, err, api.ErrChannelClosed)
}

func TestOneshotAbandonOnCancel(t *testing.T) {
	o := concurrency.NewOneshot[int]()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := o.Recv(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.True(t, o.Abandoned())
	require.False(t, o.Send(1), "send after abandon must be discarded")
}

func TestOneshotValueWinsOverLateCancel(t *testing.T) {
	o := concurrency.NewOneshot[string]()
	require.True(t, o.Send("done"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	v, err := o.Recv(ctx)
	require.NoError(t, err)
	require.Equal(t, "done", v)
}

func TestOneshotDoneIsSelectable(t *testing.T) {
	o := concurrency.NewOneshot[int]()
	go o.Send(3)
	select {
	case <-o.Done():
	case <-time.After(time.Second):
		t.Fatal("value not delivered")
	}
	for i := 0; i < 2; i++ {
		v, err := o.Recv(context.Background())
		require.NoError(t, err)
		require.Equal(t, 3, v)
	}
}

func TestOneshotSendAgreesWithCanceledRecv(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for i := 0; i < 2000; i++ {
		o := concurrency.NewOneshot[int]()
		sent := make(chan bool, 1)
		go func() { sent <- o.Send(i) }()

		v, err := o.Recv(ctx)
		if <-sent {
			require.NoError(t, err, "iteration %d", i)
			require.Equal(t, i, v)
		} else {
			require.ErrorIs(t, err, context.Canceled, "iteration %d", i)
			require.True(t, o.Abandoned())
		}
	}
}

func TestOneshotAbandonAfterSendKeepsValue(t *testing.T) {
	o := concurrency.NewOneshot[int]()
	require.True(t, o.Send(5))
	require.False(t, o.Abandon())
	require.False(t, o.Abandoned())

	v, err := o.Recv(context.Background())
	require.NoError(t, err)
	require.Equal(t, 5, v)
}

func TestOneshotCloseAfterAbandonReleasesDone(t *testing.T) {
	o := concurrency.NewOneshot[int]()
	require.True(t, o.Abandon())
	o.Close()
	select {
	case <-o.Done():
	default:
		t.Fatal("done not closed")
	}
}
