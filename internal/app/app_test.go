package app

import (
	"context"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/orderhub/internal/storage/memory"
)

func TestInitStore_MemoryFallback(t *testing.T) {
	logger := log.New().WithField("component", "test")

	store, check, closeFn, err := initStore(context.Background(), Config{}, logger)
	require.NoError(t, err)
	require.Nil(t, check)
	require.IsType(t, &memory.Store{}, store)
	closeFn()
}

func TestInitKafkaProducer_EmptyBrokers(t *testing.T) {
	logger := log.New().WithField("component", "test")
	require.Nil(t, initKafkaProducer("", logger))
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	cfg := Config{
		HTTPAddr:    "127.0.0.1:0",
		MetricsAddr: "127.0.0.1:0",
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, cfg)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop on context cancel")
	}
}
