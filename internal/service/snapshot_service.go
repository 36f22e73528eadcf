package service

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"time"

	"gorm.io/datatypes"

	"suvidha-go/internal/model"
	"suvidha-go/internal/repository"
	"suvidha-go/pkg/apperr"
	"suvidha-go/pkg/log"
	"suvidha-go/pkg/storage"
)

// snapshotEntry 是快照中的一条知识，向量以数组形式保存。
type snapshotEntry struct {
	SourceKey      string                  `json:"sourceKey"`
	Category       model.KnowledgeCategory `json:"category"`
	Title          string                  `json:"title"`
	Content        string                  `json:"content"`
	Department     string                  `json:"department,omitempty"`
	SourceURL      string                  `json:"sourceUrl,omitempty"`
	Metadata       json.RawMessage         `json:"metadata,omitempty"`
	EmbeddingModel string                  `json:"embeddingModel,omitempty"`
	Embedding      []float64               `json:"embedding"`
	IsActive       bool                    `json:"isActive"`
}

type snapshotDocument struct {
	ExportedAt time.Time       `json:"exportedAt"`
	Entries    []snapshotEntry `json:"entries"`
}

// SnapshotResult 描述一次导出或导入。
type SnapshotResult struct {
	Object   string `json:"object"`
	Entries  int    `json:"entries"`
	Inactive int    `json:"inactive"`
}

// SnapshotService 在对象存储中导出和恢复知识库。
type SnapshotService interface {
	Export(ctx context.Context) (*SnapshotResult, error)
	Restore(ctx context.Context, object string) (*SnapshotResult, error)
	List(ctx context.Context) ([]string, error)
}

type snapshotService struct {
	repo       repository.KnowledgeRepository
	store      storage.ObjectStore
	prefix     string
	dimensions int
	now        func() time.Time
}

// NewSnapshotService 创建一个新的 SnapshotService 实例。
func NewSnapshotService(repo repository.KnowledgeRepository, store storage.ObjectStore, prefix string, dimensions int) SnapshotService {
	return &snapshotService{
		repo:       repo,
		store:      store,
		prefix:     strings.Trim(prefix, "/"),
		dimensions: dimensions,
		now:        time.Now,
	}
}

func (s *snapshotService) Export(ctx context.Context) (*SnapshotResult, error) {
	entries, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	doc := snapshotDocument{ExportedAt: s.now().UTC(), Entries: make([]snapshotEntry, 0, len(entries))}
	for i := range entries {
		e := &entries[i]
		vec, err := e.Vector()
		if err != nil {
			log.Warnf("[SnapshotService] 条目向量无法解析, 导出为空向量: source=%s, err=%v", e.SourceKey, err)
			vec = nil
		}
		doc.Entries = append(doc.Entries, snapshotEntry{
			SourceKey:      e.SourceKey,
			Category:       e.Category,
			Title:          e.Title,
			Content:        e.Content,
			Department:     e.Department,
			SourceURL:      e.SourceURL,
			Metadata:       json.RawMessage(e.Metadata),
			EmbeddingModel: e.EmbeddingModel,
			Embedding:      vec,
			IsActive:       e.IsActive,
		})
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	object := path.Join(s.prefix, doc.ExportedAt.Format("20060102T150405Z")+".json")
	if err := s.store.Put(ctx, object, data, "application/json"); err != nil {
		return nil, err
	}
	log.Infof("[SnapshotService] 知识库快照已导出: object=%s, entries=%d", object, len(doc.Entries))
	return &SnapshotResult{Object: object, Entries: len(doc.Entries)}, nil
}

// Restore 导入快照而不重新向量化，向量缺失或维度不符的条目以停用状态导入。
func (s *snapshotService) Restore(ctx context.Context, object string) (*SnapshotResult, error) {
	if strings.TrimSpace(object) == "" {
		return nil, apperr.New(apperr.CodeInvalidInput, "snapshot object is required")
	}
	data, err := s.store.Get(ctx, object)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeNotFound, "snapshot not found: "+object, err)
	}
	var doc snapshotDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, apperr.Wrap(apperr.CodeInvalidInput, "snapshot is not valid JSON", err)
	}

	result := &SnapshotResult{Object: object}
	for _, se := range doc.Entries {
		if se.SourceKey == "" || !se.Category.Valid() {
			log.Warnf("[SnapshotService] 跳过无效快照条目: source=%q, category=%q", se.SourceKey, se.Category)
			continue
		}
		entry := &model.KnowledgeEntry{
			SourceKey:      se.SourceKey,
			Category:       se.Category,
			Title:          se.Title,
			Content:        se.Content,
			Department:     se.Department,
			SourceURL:      se.SourceURL,
			EmbeddingModel: se.EmbeddingModel,
			IsActive:       se.IsActive,
		}
		if len(se.Metadata) > 0 {
			entry.Metadata = datatypes.JSON(se.Metadata)
		}
		usable := len(se.Embedding) > 0 && (s.dimensions <= 0 || len(se.Embedding) == s.dimensions)
		if usable {
			if err := entry.SetVector(se.Embedding); err != nil {
				usable = false
			}
		}
		if !usable {
			entry.Embedding = ""
			if entry.IsActive {
				entry.IsActive = false
				result.Inactive++
			}
		}
		if err := s.repo.Upsert(ctx, entry); err != nil {
			return result, fmt.Errorf("restore %s: %w", se.SourceKey, err)
		}
		result.Entries++
	}
	log.Infof("[SnapshotService] 知识库快照已恢复: object=%s, entries=%d, inactive=%d", object, result.Entries, result.Inactive)
	return result, nil
}

func (s *snapshotService) List(ctx context.Context) ([]string, error) {
	return s.store.List(ctx, s.prefix)
}
