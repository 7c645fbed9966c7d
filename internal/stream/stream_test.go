package stream

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perflog/perflog/internal/metrics"
	"github.com/perflog/perflog/internal/model"
)

type recordingSink struct {
	mu      sync.Mutex
	batches [][]model.RawTxSubmission
}

func (s *recordingSink) EmitTxBatch(_ context.Context, subs []model.RawTxSubmission) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, subs)
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.batches)
}

func (s *recordingSink) all() [][]model.RawTxSubmission {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]model.RawTxSubmission(nil), s.batches...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func startWorker(t *testing.T, client *redis.Client, sink Sink, rec metrics.Recorder) *Worker {
	t.Helper()
	w := NewWorker(client, sink, discardLogger(), NewConsumerID(), rec)
	w.SetBlockTimeout(20 * time.Millisecond)
	return runWorker(t, w)
}

func runWorker(t *testing.T, w *Worker) *Worker {
	t.Helper()
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(context.Background()) }()

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = w.Shutdown(ctx)
		<-errCh
	})
	return w
}

func TestPublisher_PublishBatch(t *testing.T) {
	t.Parallel()

	client := newTestClient(t)
	p := NewPublisher(client, discardLogger(), nil)
	ctx := context.Background()

	id, err := p.PublishBatch(ctx, []model.RawTxSubmission{{TxHash: "0x1", Raw: "0x01"}})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	n, err := client.XLen(ctx, StreamKey).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = p.PublishBatch(ctx, nil)
	assert.ErrorIs(t, err, ErrEmptyBatch)
}

func TestPublisher_PublishAsync(t *testing.T) {
	t.Parallel()

	client := newTestClient(t)
	rec := metrics.NewInMemory()
	p := NewPublisher(client, discardLogger(), rec)

	p.PublishAsync([]model.RawTxSubmission{{Raw: "0x01"}})
	p.PublishAsync(nil)

	require.Eventually(t, func() bool {
		snap := rec.Snapshot()
		return snap.StreamPublished["success"] == 1 && snap.StreamPublished["dropped"] == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWorker_HandsBatchesToSink(t *testing.T) {
	t.Parallel()

	client := newTestClient(t)
	sink := &recordingSink{}
	rec := metrics.NewInMemory()
	startWorker(t, client, sink, rec)

	p := NewPublisher(client, discardLogger(), nil)
	ctx := context.Background()
	_, err := p.PublishBatch(ctx, []model.RawTxSubmission{{TxHash: "0xa", Raw: "0x01", Reason: model.ReasonProcessed}})
	require.NoError(t, err)
	_, err = p.PublishBatch(ctx, []model.RawTxSubmission{{TxHash: "0xb"}, {TxHash: "0xc"}})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return sink.count() == 2 }, 2*time.Second, 10*time.Millisecond)

	batches := sink.all()
	assert.Equal(t, "0xa", batches[0][0].TxHash)
	assert.Equal(t, model.ReasonProcessed, batches[0][0].Reason)
	assert.Len(t, batches[1], 2)
	assert.Equal(t, uint64(2), rec.Snapshot().StreamConsumed["success"])

	require.Eventually(t, func() bool {
		pending, err := client.XPending(ctx, StreamKey, ConsumerGroup).Result()
		return err == nil && pending.Count == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWorker_AcksMalformedMessages(t *testing.T) {
	t.Parallel()

	client := newTestClient(t)
	sink := &recordingSink{}
	rec := metrics.NewInMemory()
	startWorker(t, client, sink, rec)

	ctx := context.Background()
	for _, values := range []map[string]interface{}{
		{"payload": "not json"},
		{"other": "field"},
		{"payload": `{"txs":[],"t":1}`},
	} {
		require.NoError(t, client.XAdd(ctx, &redis.XAddArgs{Stream: StreamKey, Values: values}).Err())
	}

	require.Eventually(t, func() bool {
		return rec.Snapshot().StreamConsumed["malformed"] == 3
	}, 2*time.Second, 10*time.Millisecond)
	assert.Zero(t, sink.count())

	require.Eventually(t, func() bool {
		pending, err := client.XPending(ctx, StreamKey, ConsumerGroup).Result()
		return err == nil && pending.Count == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWorker_RunTwice(t *testing.T) {
	t.Parallel()

	client := newTestClient(t)
	w := startWorker(t, client, &recordingSink{}, nil)

	require.Eventually(t, func() bool {
		w.mu.Lock()
		defer w.mu.Unlock()
		return w.started
	}, time.Second, 5*time.Millisecond)

	err := w.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already started")
}

func TestWorker_ShutdownWithoutRun(t *testing.T) {
	t.Parallel()

	w := NewWorker(newTestClient(t), &recordingSink{}, nil, "c1", nil)
	assert.NoError(t, w.Shutdown(context.Background()))
}

func TestValidateBatchPayload(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		payload BatchPayload
		wantErr bool
	}{
		{"valid", BatchPayload{Submissions: []model.RawTxSubmission{{Raw: "0x01"}}}, false},
		{"raw optional", BatchPayload{Submissions: []model.RawTxSubmission{{TxHash: "0x1"}}}, false},
		{"empty", BatchPayload{}, true},
		{"too many", BatchPayload{Submissions: make([]model.RawTxSubmission, MaxBatchSize+1)}, true},
		{"raw too long", BatchPayload{Submissions: []model.RawTxSubmission{{Raw: strings.Repeat("a", maxRawLength+1)}}}, true},
		{"ip too long", BatchPayload{Submissions: []model.RawTxSubmission{{IP: strings.Repeat("1", maxIPLength+1)}}}, true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateBatchPayload(tt.payload)
			assert.Equal(t, tt.wantErr, err != nil, "err = %v", err)
		})
	}
}

func TestNewConsumerID_Unique(t *testing.T) {
	t.Parallel()
	assert.NotEqual(t, NewConsumerID(), NewConsumerID())
}

func TestIsConsumerGroupExistsError(t *testing.T) {
	t.Parallel()

	assert.True(t, isConsumerGroupExistsError(errors.New("BUSYGROUP Consumer Group name already exists")))
	assert.False(t, isConsumerGroupExistsError(errors.New("ERR no such key")))
	assert.False(t, isConsumerGroupExistsError(nil))
}

func TestConnect(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	client, err := Connect(context.Background(), "redis://"+mr.Addr())
	require.NoError(t, err)
	assert.NoError(t, client.Close())

	_, err = Connect(context.Background(), "://bad")
	assert.Error(t, err)
}

type cancellingSink struct {
	cancel  context.CancelFunc
	emitted int
}

func (s *cancellingSink) EmitTxBatch(context.Context, []model.RawTxSubmission) {
	s.emitted++
	s.cancel()
}

func TestWorker_AcksHandedOffMessagesAfterCancel(t *testing.T) {
	t.Parallel()

	client := newTestClient(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sink := &cancellingSink{cancel: cancel}
	w := NewWorker(client, sink, discardLogger(), "c1", nil)
	require.NoError(t, w.ensureConsumerGroup(ctx))

	_, err := NewPublisher(client, discardLogger(), nil).PublishBatch(context.Background(),
		[]model.RawTxSubmission{{TxHash: "0xa", Raw: "0x01"}})
	require.NoError(t, err)

	// Shutdown cancels ctx while the batch is being handed off.
	require.NoError(t, w.processOnce(ctx))
	assert.Equal(t, 1, sink.emitted)

	pending, err := client.XPending(context.Background(), StreamKey, ConsumerGroup).Result()
	require.NoError(t, err)
	assert.Zero(t, pending.Count)
}

func TestTuning_Apply(t *testing.T) {
	t.Parallel()

	w := NewWorker(newTestClient(t), &recordingSink{}, nil, "c1", nil)
	Tuning{}.Apply(w)
	assert.Equal(t, DefaultBatchSize, w.batchSize)
	assert.Equal(t, DefaultBlockTimeout, w.blockTimeout)
	assert.Equal(t, DefaultClaimInterval, w.claimInterval)
	assert.Equal(t, DefaultClaimIdle, w.claimIdle)

	Tuning{BatchSize: 7, BlockTimeout: time.Second, ClaimInterval: time.Minute, ClaimIdle: time.Hour}.Apply(w)
	assert.Equal(t, 7, w.batchSize)
	assert.Equal(t, time.Second, w.blockTimeout)
	assert.Equal(t, time.Minute, w.claimInterval)
	assert.Equal(t, time.Hour, w.claimIdle)
}

func TestWorker_ReclaimsMessagesFromDeadConsumer(t *testing.T) {
	t.Parallel()

	client := newTestClient(t)
	ctx := context.Background()
	require.NoError(t, client.XGroupCreateMkStream(ctx, StreamKey, ConsumerGroup, "0").Err())

	_, err := NewPublisher(client, discardLogger(), nil).PublishBatch(ctx,
		[]model.RawTxSubmission{{TxHash: "0xdead", Raw: "0x01"}})
	require.NoError(t, err)

	// Another consumer reads the message and never acks it.
	read, err := client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    ConsumerGroup,
		Consumer: "crashed",
		Streams:  []string{StreamKey, ">"},
		Count:    10,
	}).Result()
	require.NoError(t, err)
	require.Len(t, read[0].Messages, 1)
	time.Sleep(10 * time.Millisecond)

	sink := &recordingSink{}
	w := NewWorker(client, sink, discardLogger(), "alive", nil)
	Tuning{
		BatchSize:     1,
		BlockTimeout:  20 * time.Millisecond,
		ClaimInterval: time.Millisecond,
		ClaimIdle:     time.Millisecond,
	}.Apply(w)
	runWorker(t, w)

	require.Eventually(t, func() bool { return sink.count() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "0xdead", sink.all()[0][0].TxHash)

	require.Eventually(t, func() bool {
		pending, err := client.XPending(ctx, StreamKey, ConsumerGroup).Result()
		return err == nil && pending.Count == 0
	}, 2*time.Second, 10*time.Millisecond)
}
