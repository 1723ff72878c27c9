package messaging

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	subject string
	data    []byte
	err     error
	drained bool
}

func (c *fakeConn) Publish(subject string, data []byte) error {
	if c.err != nil {
		return c.err
	}
	c.subject, c.data = subject, data
	return nil
}

func (c *fakeConn) Drain() error {
	c.drained = true
	return nil
}

func TestNATSPublisher_Publish(t *testing.T) {
	t.Parallel()
	logger, _ := test.NewNullLogger()
	conn := &fakeConn{}
	p := &NATSPublisher{conn: conn, logger: logger}

	err := p.Publish(context.Background(), "users.registered", map[string]string{"accountId": "42"})
	require.NoError(t, err)
	assert.Equal(t, "users.registered", conn.subject)
	assert.JSONEq(t, `{"accountId":"42"}`, string(conn.data))

	require.NoError(t, p.Close())
	assert.True(t, conn.drained)
}

func TestNATSPublisher_Errors(t *testing.T) {
	t.Parallel()
	logger, _ := test.NewNullLogger()
	boom := errors.New("no responders")
	p := &NATSPublisher{conn: &fakeConn{err: boom}, logger: logger}

	assert.ErrorIs(t, p.Publish(context.Background(), "users.deleted", struct{}{}), boom)
	assert.Error(t, p.Publish(context.Background(), "users.deleted", make(chan int)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.Publish(ctx, "users.deleted", struct{}{}), context.Canceled)
}
