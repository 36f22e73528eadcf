// Package pipeline 定义了知识库生成的核心流程。
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/datatypes"

	"suvidha-go/internal/model"
	"suvidha-go/internal/repository"
	"suvidha-go/pkg/apperr"
	"suvidha-go/pkg/embedding"
	"suvidha-go/pkg/log"
	"suvidha-go/pkg/tasks"
)

// ErrIncompleteBuild 表示本次重建中有条目向量化失败，重试是幂等的。
var ErrIncompleteBuild = errors.New("knowledge build finished with failed entries")

// Report 汇总一次重建的结果。
type Report struct {
	Created     int `json:"created"`
	Updated     int `json:"updated"`
	Unchanged   int `json:"unchanged"`
	Failed      int `json:"failed"`
	Deactivated int `json:"deactivated"`
}

func (r *Report) add(o Report) {
	r.Created += o.Created
	r.Updated += o.Updated
	r.Unchanged += o.Unchanged
	r.Failed += o.Failed
	r.Deactivated += o.Deactivated
}

// Processor 封装了知识库生成的所有依赖和逻辑。
type Processor struct {
	embedder       embedding.Client
	knowledgeRepo  repository.KnowledgeRepository
	schemeRepo     repository.SchemeRepository
	catalogRepo    repository.CatalogRepository
	embeddingModel string
	dimensions     int
}

// NewProcessor 创建一个新的 Processor 实例。
func NewProcessor(
	embedder embedding.Client,
	knowledgeRepo repository.KnowledgeRepository,
	schemeRepo repository.SchemeRepository,
	catalogRepo repository.CatalogRepository,
	embeddingModel string,
	dimensions int,
) *Processor {
	return &Processor{
		embedder:       embedder,
		knowledgeRepo:  knowledgeRepo,
		schemeRepo:     schemeRepo,
		catalogRepo:    catalogRepo,
		embeddingModel: embeddingModel,
		dimensions:     dimensions,
	}
}

// Process 执行一个重建任务。存在失败条目时返回 ErrIncompleteBuild，以便队列重试。
func (p *Processor) Process(ctx context.Context, task tasks.KnowledgeIngestTask) error {
	log.Infof("[Processor] 开始处理重建任务, TaskID: %s, Category: %q", task.TaskID, task.Category)
	report, err := p.Rebuild(ctx, model.KnowledgeCategory(task.Category))
	if err != nil {
		return err
	}
	if report.Failed > 0 {
		return fmt.Errorf("%w: %d failed", ErrIncompleteBuild, report.Failed)
	}
	return nil
}

// Rebuild 重建指定分类（为空时全部分类）的知识条目。
func (p *Processor) Rebuild(ctx context.Context, category model.KnowledgeCategory) (*Report, error) {
	categories := model.KnowledgeCategories
	if category != "" {
		if !category.Valid() {
			return nil, apperr.New(apperr.CodeInvalidInput, "unknown knowledge category: "+string(category))
		}
		categories = []model.KnowledgeCategory{category}
	}

	total := &Report{}
	for _, c := range categories {
		report, err := p.rebuildCategory(ctx, c)
		if err != nil {
			return total, err
		}
		log.Infof("[Processor] 分类 %s 完成: created=%d, updated=%d, unchanged=%d, failed=%d, deactivated=%d",
			c, report.Created, report.Updated, report.Unchanged, report.Failed, report.Deactivated)
		total.add(report)
	}
	return total, nil
}

func (p *Processor) rebuildCategory(ctx context.Context, category model.KnowledgeCategory) (Report, error) {
	var report Report
	sources, err := p.sources(ctx, category)
	if err != nil {
		log.Errorf("[Processor] 读取分类 %s 的来源失败: %v", category, err)
		return report, err
	}

	keep := make([]string, 0, len(sources))
	for _, src := range sources {
		keep = append(keep, src.Key)
		if err := ctx.Err(); err != nil {
			return report, err
		}
		outcome, err := p.ingest(ctx, src)
		if err != nil {
			log.Errorf("[Processor] 条目处理失败, key=%s, err=%v", src.Key, err)
			report.Failed++
			continue
		}
		switch outcome {
		case outcomeCreated:
			report.Created++
		case outcomeUpdated:
			report.Updated++
		default:
			report.Unchanged++
		}
	}

	n, err := p.knowledgeRepo.DeactivateMissing(ctx, category, keep)
	if err != nil {
		return report, fmt.Errorf("deactivate stale %s entries: %w", category, err)
	}
	report.Deactivated = int(n)
	return report, nil
}

type ingestOutcome int

const (
	outcomeUnchanged ingestOutcome = iota
	outcomeCreated
	outcomeUpdated
)

// ingest 写入一条来源。内容未变且向量有效时跳过向量化；
// 重新向量化失败的已启用条目会被停用，保证启用条目都有有效向量。
func (p *Processor) ingest(ctx context.Context, src Source) (ingestOutcome, error) {
	existing, err := p.knowledgeRepo.FindBySourceKey(ctx, src.Key)
	if err != nil {
		return outcomeUnchanged, err
	}
	metadata, err := json.Marshal(src.Metadata)
	if err != nil {
		return outcomeUnchanged, fmt.Errorf("marshal metadata: %w", err)
	}

	if existing != nil && p.upToDate(existing, src) {
		return outcomeUnchanged, nil
	}

	vector, err := p.embedder.Embed(ctx, src.Content)
	if err == nil && p.dimensions > 0 && len(vector) != p.dimensions {
		err = apperr.New(apperr.CodeDimensionMismatch, fmt.Sprintf("embedding has %d dimensions, want %d", len(vector), p.dimensions))
	}
	if err != nil {
		if existing != nil && existing.IsActive {
			if derr := p.knowledgeRepo.Deactivate(ctx, src.Key); derr != nil {
				log.Errorf("[Processor] 停用条目失败, key=%s, err=%v", src.Key, derr)
			}
		}
		return outcomeUnchanged, err
	}

	entry := &model.KnowledgeEntry{}
	if existing != nil {
		entry = existing
	}
	entry.SourceKey = src.Key
	entry.Category = src.Category
	entry.Title = src.Title
	entry.Content = src.Content
	entry.Department = src.Department
	entry.SourceURL = src.SourceURL
	entry.Metadata = datatypes.JSON(metadata)
	entry.EmbeddingModel = p.embeddingModel
	entry.IsActive = true
	if err := entry.SetVector(vector); err != nil {
		return outcomeUnchanged, err
	}
	if err := p.knowledgeRepo.Upsert(ctx, entry); err != nil {
		return outcomeUnchanged, err
	}
	if existing != nil {
		return outcomeUpdated, nil
	}
	return outcomeCreated, nil
}

func (p *Processor) upToDate(e *model.KnowledgeEntry, src Source) bool {
	if !e.IsActive || e.Title != src.Title || e.Content != src.Content || e.Department != src.Department {
		return false
	}
	if p.embeddingModel != "" && e.EmbeddingModel != p.embeddingModel {
		return false
	}
	vec, err := e.Vector()
	if err != nil || len(vec) == 0 {
		return false
	}
	return p.dimensions <= 0 || len(vec) == p.dimensions
}
