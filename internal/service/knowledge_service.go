// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"strings"

	"suvidha-go/internal/model"
	"suvidha-go/internal/repository"
	"suvidha-go/pkg/apperr"
	"suvidha-go/pkg/embedding"
	"suvidha-go/pkg/log"
	"suvidha-go/pkg/similarity"
)

// SearchOptions 是知识库检索的可选参数，零值表示全部分类、全部部门、默认 topK。
type SearchOptions struct {
	Category   model.KnowledgeCategory
	Department string
	TopK       int
}

// KnowledgeService 在知识库上做语义检索。
type KnowledgeService interface {
	Search(ctx context.Context, query string, opts SearchOptions) ([]model.KnowledgeResult, error)
}

type knowledgeService struct {
	repo     repository.KnowledgeRepository
	embedder embedding.Client
}

// NewKnowledgeService 创建一个新的 KnowledgeService 实例。
func NewKnowledgeService(repo repository.KnowledgeRepository, embedder embedding.Client) KnowledgeService {
	return &knowledgeService{repo: repo, embedder: embedder}
}

// Search 对查询向量化，并在启用的条目上做暴力余弦检索。
// 候选集为空时直接返回空结果，不调用向量化服务。
func (s *knowledgeService) Search(ctx context.Context, query string, opts SearchOptions) ([]model.KnowledgeResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, apperr.New(apperr.CodeInvalidInput, "query is empty")
	}
	if opts.Category != "" && !opts.Category.Valid() {
		return nil, apperr.New(apperr.CodeInvalidInput, "unknown knowledge category: "+string(opts.Category))
	}
	if opts.TopK <= 0 {
		opts.TopK = similarity.DefaultTopK
	}

	entries, err := s.repo.FindActive(ctx, repository.KnowledgeFilter{Category: opts.Category, Department: opts.Department})
	if err != nil {
		return nil, err
	}

	candidates := make([]similarity.Candidate[*model.KnowledgeEntry], 0, len(entries))
	for i := range entries {
		vec, err := entries[i].Vector()
		if err != nil {
			log.Warnf("[KnowledgeService] 条目向量无法解析, 跳过: source=%s, err=%v", entries[i].SourceKey, err)
			continue
		}
		candidates = append(candidates, similarity.Candidate[*model.KnowledgeEntry]{Item: &entries[i], Vector: vec})
	}
	if len(candidates) == 0 {
		return []model.KnowledgeResult{}, nil
	}

	queryVector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	ranked := similarity.Rank(queryVector, candidates, opts.TopK)
	results := make([]model.KnowledgeResult, 0, len(ranked))
	for _, r := range ranked {
		results = append(results, model.KnowledgeResult{
			Title:          r.Item.Title,
			Content:        r.Item.Content,
			Category:       r.Item.Category,
			Department:     r.Item.Department,
			RelevanceScore: r.Score,
		})
	}
	log.Infof("[KnowledgeService] 检索完成, candidates=%d, results=%d", len(candidates), len(results))
	return results, nil
}
