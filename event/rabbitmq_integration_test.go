//go:build integration

package event

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startRabbitMQ(t *testing.T) string {
	t.Helper()
	os.Setenv("TESTCONTAINERS_RYUK_DISABLED", "true")

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "rabbitmq:3.13-alpine",
			ExposedPorts: []string{"5672/tcp"},
			WaitingFor:   wait.ForLog("Server startup complete").WithStartupTimeout(90 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5672")
	require.NoError(t, err)

	return fmt.Sprintf("amqp://guest:guest@%s:%s/", host, port.Port())
}

func TestRabbitMQPublishSubscribe(t *testing.T) {
	url := startRabbitMQ(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	var in, out bytes.Buffer
	mq, err := RabbitMQConnect(url, QueueChat, []string{QueueChat, QueueCommands}, NewLog(&in, &out), logger)
	require.NoError(t, err)
	defer mq.Close()

	events, err := mq.Subscribe(QueueChat)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, mq.Publish(ctx, "message.sent", map[string]any{"messageId": 7}))

	select {
	case ev := <-events:
		assert.Equal(t, "message.sent", ev.Action)
		var body map[string]any
		require.NoError(t, json.Unmarshal(ev.Data, &body))
		assert.EqualValues(t, 7, body["messageId"])
	case <-time.After(10 * time.Second):
		t.Fatal("no event received")
	}

	assert.Contains(t, out.String(), `"action":"message.sent"`)
	assert.Eventually(t, func() bool { return bytes.Contains(in.Bytes(), []byte("message.sent")) }, 5*time.Second, 50*time.Millisecond)

	n, err := mq.Replay(ctx, bytes.NewReader(out.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	select {
	case ev := <-events:
		assert.Equal(t, "message.sent", ev.Action)
	case <-time.After(10 * time.Second):
		t.Fatal("replayed event not received")
	}
}
