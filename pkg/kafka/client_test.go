package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"suvidha-go/internal/config"
	"suvidha-go/pkg/tasks"
)

// scriptedProcessor 按任务记录调用，failures 指定每个任务前几次调用失败，-1 表示一直失败。
type scriptedProcessor struct {
	failures map[string]int
	calls    []string
}

func (p *scriptedProcessor) Process(_ context.Context, task tasks.KnowledgeIngestTask) error {
	key := task.Key()
	p.calls = append(p.calls, key)
	n := 0
	for _, c := range p.calls {
		if c == key {
			n++
		}
	}
	if limit, ok := p.failures[key]; ok && (limit < 0 || n <= limit) {
		return errors.New("embedding down")
	}
	return nil
}

func message(t *testing.T, task tasks.KnowledgeIngestTask) []byte {
	t.Helper()
	b, err := json.Marshal(task)
	require.NoError(t, err)
	return b
}

func newHandler(p TaskProcessor) *handler {
	return &handler{processor: p, attempts: newAttemptCounter(nil), maxAttempts: 3}
}

func TestHandler(t *testing.T) {
	ctx := context.Background()

	t.Run("commits malformed messages without processing", func(t *testing.T) {
		p := &scriptedProcessor{}
		assert.True(t, newHandler(p).handle(ctx, []byte("{not json")))
		assert.Empty(t, p.calls)
	})

	t.Run("commits after success", func(t *testing.T) {
		p := &scriptedProcessor{}
		assert.True(t, newHandler(p).handle(ctx, message(t, tasks.KnowledgeIngestTask{TaskID: "t-1"})))
		assert.Equal(t, []string{"t-1"}, p.calls)
	})

	t.Run("retries the same task until it succeeds", func(t *testing.T) {
		p := &scriptedProcessor{failures: map[string]int{"t-2": 2}}
		h := newHandler(p)
		assert.True(t, h.handle(ctx, message(t, tasks.KnowledgeIngestTask{TaskID: "t-2"})))
		assert.Equal(t, []string{"t-2", "t-2", "t-2"}, p.calls)
		assert.Empty(t, h.attempts.local)
	})

	t.Run("gives up after the configured number of failures", func(t *testing.T) {
		p := &scriptedProcessor{failures: map[string]int{"t-3": -1}}
		h := newHandler(p)
		assert.True(t, h.handle(ctx, message(t, tasks.KnowledgeIngestTask{TaskID: "t-3"})))
		assert.Len(t, p.calls, 3)
		// 计数在放弃后重置
		assert.Empty(t, h.attempts.local)
	})

	t.Run("counts failures recorded before a restart", func(t *testing.T) {
		p := &scriptedProcessor{failures: map[string]int{"t-4": -1}}
		h := newHandler(p)
		h.attempts.local["t-4"] = 2
		assert.True(t, h.handle(ctx, message(t, tasks.KnowledgeIngestTask{TaskID: "t-4"})))
		assert.Len(t, p.calls, 1)
	})

	t.Run("does not commit when stopped mid-retry", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		p := &scriptedProcessor{failures: map[string]int{"t-5": -1}}
		assert.False(t, newHandler(p).handle(cancelled, message(t, tasks.KnowledgeIngestTask{TaskID: "t-5"})))
		assert.Len(t, p.calls, 1)
	})
}

type fakeReader struct {
	pending   []kafka.Message
	committed []int64
	closed    bool
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if err := ctx.Err(); err != nil {
		return kafka.Message{}, err
	}
	if len(r.pending) == 0 {
		return kafka.Message{}, io.EOF
	}
	m := r.pending[0]
	r.pending = r.pending[1:]
	return m, nil
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error {
	r.closed = true
	return nil
}

func TestConsume(t *testing.T) {
	t.Run("a failing task is retried before the next offset is read", func(t *testing.T) {
		r := &fakeReader{pending: []kafka.Message{
			{Offset: 10, Value: message(t, tasks.KnowledgeIngestTask{TaskID: "flaky"})},
			{Offset: 11, Value: message(t, tasks.KnowledgeIngestTask{TaskID: "steady"})},
		}}
		p := &scriptedProcessor{failures: map[string]int{"flaky": 1}}

		consume(context.Background(), r, newHandler(p))

		assert.Equal(t, []string{"flaky", "flaky", "steady"}, p.calls)
		assert.Equal(t, []int64{10, 11}, r.committed)
		assert.True(t, r.closed)
	})

	t.Run("an exhausted task is committed only after max attempts", func(t *testing.T) {
		r := &fakeReader{pending: []kafka.Message{
			{Offset: 20, Value: message(t, tasks.KnowledgeIngestTask{TaskID: "broken"})},
			{Offset: 21, Value: message(t, tasks.KnowledgeIngestTask{Category: "faq"})},
		}}
		p := &scriptedProcessor{failures: map[string]int{"broken": -1}}

		consume(context.Background(), r, newHandler(p))

		assert.Equal(t, []string{"broken", "broken", "broken", "category:faq"}, p.calls)
		assert.Equal(t, []int64{20, 21}, r.committed)
	})

	t.Run("shutdown leaves the unfinished offset uncommitted", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		r := &fakeReader{pending: []kafka.Message{
			{Offset: 30, Value: message(t, tasks.KnowledgeIngestTask{TaskID: "slow"})},
			{Offset: 31, Value: message(t, tasks.KnowledgeIngestTask{TaskID: "next"})},
		}}
		p := &cancellingProcessor{cancel: cancel}

		consume(ctx, r, newHandler(p))

		assert.Equal(t, 1, p.calls)
		assert.Empty(t, r.committed)
		assert.Len(t, r.pending, 1)
		assert.True(t, r.closed)
	})
}

type cancellingProcessor struct {
	cancel context.CancelFunc
	calls  int
}

func (p *cancellingProcessor) Process(context.Context, tasks.KnowledgeIngestTask) error {
	p.calls++
	p.cancel()
	return errors.New("interrupted")
}

func TestBrokers(t *testing.T) {
	assert.Equal(t, []string{"a:9092", "b:9092"}, brokers(config.KafkaConfig{Brokers: " a:9092, ,b:9092 "}))
	assert.Empty(t, brokers(config.KafkaConfig{}))
}

func TestTaskKey(t *testing.T) {
	assert.Equal(t, "t-9", tasks.KnowledgeIngestTask{TaskID: "t-9", Category: "faq"}.Key())
	assert.Equal(t, "category:faq", tasks.KnowledgeIngestTask{Category: "faq"}.Key())
	assert.Equal(t, "all", tasks.KnowledgeIngestTask{}.Key())
}
