package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"suvidha-go/pkg/similarity"
)

// KnowledgeCategory 是知识条目的分类。
type KnowledgeCategory string

const (
	CategoryScheme  KnowledgeCategory = "scheme"
	CategoryPolicy  KnowledgeCategory = "policy"
	CategoryTariff  KnowledgeCategory = "tariff"
	CategoryFAQ     KnowledgeCategory = "faq"
	CategoryService KnowledgeCategory = "service"
)

// KnowledgeCategories 按生成顺序列出全部分类。
var KnowledgeCategories = []KnowledgeCategory{CategoryScheme, CategoryPolicy, CategoryTariff, CategoryFAQ, CategoryService}

// Valid 报告分类是否合法。
func (c KnowledgeCategory) Valid() bool {
	for _, k := range KnowledgeCategories {
		if c == k {
			return true
		}
	}
	return false
}

// KnowledgeEntry 是一条可检索的知识，Embedding 以 JSON 数组字符串保存。
// 启用的条目必须带有维度正确的向量。
type KnowledgeEntry struct {
	ID             string            `gorm:"type:varchar(36);primaryKey" json:"id"`
	SourceKey      string            `gorm:"type:varchar(128);uniqueIndex;not null" json:"sourceKey"`
	Category       KnowledgeCategory `gorm:"type:varchar(16);index;not null" json:"category"`
	Title          string            `gorm:"type:varchar(255);not null" json:"title"`
	Content        string            `gorm:"type:text;not null" json:"content"`
	Department     string            `gorm:"type:varchar(32);index" json:"department,omitempty"`
	Embedding      string            `gorm:"type:longtext" json:"-"`
	EmbeddingModel string            `gorm:"type:varchar(100)" json:"embeddingModel,omitempty"`
	Metadata       datatypes.JSON    `json:"metadata,omitempty"`
	SourceURL      string            `gorm:"type:varchar(255)" json:"sourceUrl,omitempty"`
	IsActive       bool              `gorm:"index;not null" json:"isActive"`
	CreatedAt      time.Time         `json:"createdAt"`
	UpdatedAt      time.Time         `json:"updatedAt"`
}

func (KnowledgeEntry) TableName() string { return "knowledge_base" }

func (e *KnowledgeEntry) BeforeCreate(*gorm.DB) error {
	ensureID(&e.ID)
	return nil
}

// Vector 解析存储的向量，没有向量时返回 nil。
func (e *KnowledgeEntry) Vector() ([]float64, error) {
	return similarity.Decode(e.Embedding)
}

// SetVector 以 JSON 数组形式写入向量。
func (e *KnowledgeEntry) SetVector(v []float64) error {
	s, err := similarity.Encode(v)
	if err != nil {
		return err
	}
	e.Embedding = s
	return nil
}

// KnowledgeResult 是检索结果，RelevanceScore 为余弦相似度。
type KnowledgeResult struct {
	Title          string            `json:"title"`
	Content        string            `json:"content"`
	Category       KnowledgeCategory `json:"category"`
	Department     string            `json:"department,omitempty"`
	RelevanceScore float64           `json:"relevanceScore"`
}
