package pipeline

import (
	"context"

	"suvidha-go/pkg/kafka"
	"suvidha-go/pkg/log"
	"suvidha-go/pkg/tasks"
)

// Dispatcher 提交知识库重建任务。
type Dispatcher interface {
	Dispatch(ctx context.Context, task tasks.KnowledgeIngestTask) error
}

// KafkaDispatcher 把任务写入 Kafka，由消费者异步执行。
type KafkaDispatcher struct{}

func (KafkaDispatcher) Dispatch(ctx context.Context, task tasks.KnowledgeIngestTask) error {
	return kafka.ProduceIngestTask(ctx, task)
}

// InlineDispatcher 在进程内执行任务，用于未配置 Kafka 的部署。
// Sync 为 false 时任务在后台 goroutine 中运行。
type InlineDispatcher struct {
	Processor kafka.TaskProcessor
	Sync      bool
}

func (d InlineDispatcher) Dispatch(ctx context.Context, task tasks.KnowledgeIngestTask) error {
	if d.Sync {
		return d.Processor.Process(ctx, task)
	}
	go func() {
		// 请求结束后任务仍需继续执行
		if err := d.Processor.Process(context.Background(), task); err != nil {
			log.Errorf("[InlineDispatcher] 重建任务失败: task=%s, err=%v", task.Key(), err)
		}
	}()
	return nil
}
