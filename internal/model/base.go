// Package model 包含了应用的数据模型定义。
package model

import "github.com/google/uuid"

// ensureID 为空主键生成 UUID，供各模型的 BeforeCreate 钩子使用。
func ensureID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}

// AllModels 返回需要自动迁移的全部模型。
func AllModels() []any {
	return []any{
		&KnowledgeEntry{},
		&Scheme{},
		&EligibilityCriterion{},
		&RequiredDocument{},
		&Policy{},
		&Tariff{},
		&Citizen{},
		&CitizenProfile{},
		&ServiceAccount{},
		&Bill{},
		&Payment{},
		&Application{},
		&SchemeApplication{},
		&Grievance{},
		&Conversation{},
		&ChatMessage{},
		&APIKey{},
	}
}
