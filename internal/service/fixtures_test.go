package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"suvidha-go/internal/eligibility"
	"suvidha-go/internal/model"
	"suvidha-go/internal/repository"
	"suvidha-go/internal/testutil"
	"suvidha-go/pkg/apperr"
	"suvidha-go/pkg/llm"
)

// fakeEmbedder 按文本返回预设向量，未命中时返回 fallback。
type fakeEmbedder struct {
	mu       sync.Mutex
	vectors  map[string][]float64
	fallback []float64
	err      error
	calls    int
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	if f.fallback == nil {
		return nil, apperr.New(apperr.CodeEmbeddingRequestFailed, "no vector for "+text)
	}
	return f.fallback, nil
}

type scriptedReply struct {
	completion *llm.Completion
	err        error
}

// scriptedProvider 依次返回预设回复，并记录收到的请求。
type scriptedProvider struct {
	tools    bool
	replies  []scriptedReply
	requests []llm.Request
}

func (p *scriptedProvider) Name() string        { return "scripted" }
func (p *scriptedProvider) SupportsTools() bool { return p.tools }

func (p *scriptedProvider) Complete(_ context.Context, req llm.Request) (*llm.Completion, error) {
	p.requests = append(p.requests, req)
	if len(p.replies) == 0 {
		return nil, apperr.New(apperr.CodeProviderUnavailable, "no scripted reply")
	}
	r := p.replies[0]
	p.replies = p.replies[1:]
	return r.completion, r.err
}

func text(content string) scriptedReply {
	return scriptedReply{completion: &llm.Completion{Content: content}}
}

func toolCall(name, args string) scriptedReply {
	return scriptedReply{completion: &llm.Completion{ToolCall: &llm.ToolCall{ID: "call-1", Name: name, Arguments: json.RawMessage(args)}}}
}

func failure() scriptedReply {
	return scriptedReply{err: apperr.New(apperr.CodeProviderUnavailable, "upstream 503")}
}

func seedKnowledge(t *testing.T, db *gorm.DB, category model.KnowledgeCategory, key, title, content string, vec []float64) model.KnowledgeEntry {
	t.Helper()
	entry := model.KnowledgeEntry{
		SourceKey: key,
		Category:  category,
		Title:     title,
		Content:   content,
		IsActive:  true,
	}
	require.NoError(t, entry.SetVector(vec))
	require.NoError(t, db.Create(&entry).Error)
	return entry
}

func jsonOf(t *testing.T, v any) datatypes.JSON {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return datatypes.JSON(b)
}

func floatPtr(v float64) *float64 { return &v }

type schemeFixture struct {
	scheme    model.Scheme
	resident  model.EligibilityCriterion
	income    model.EligibilityCriterion
	category  model.EligibilityCriterion
	residency model.RequiredDocument
}

// seedScheme 创建一个包含三条标准（权重 40/40/20）的计划。
func seedScheme(t *testing.T, db *gorm.DB, title string) schemeFixture {
	t.Helper()
	fx := schemeFixture{}
	fx.scheme = model.Scheme{Title: title, Department: model.DepartmentMunicipal, Description: "Housing support for low income families", IsActive: true}
	require.NoError(t, db.Create(&fx.scheme).Error)

	fx.resident = model.EligibilityCriterion{
		SchemeID: fx.scheme.ID, QuestionText: "Are you a resident of the city?", QuestionType: string(eligibility.TypeYesNo),
		ValidationRules: jsonOf(t, eligibility.Rules{ExpectedAnswer: "YES"}), Weightage: 40, Order: 1, IsRequired: true,
	}
	fx.income = model.EligibilityCriterion{
		SchemeID: fx.scheme.ID, QuestionText: "What is your annual household income?", QuestionType: string(eligibility.TypeNumber),
		ValidationRules: jsonOf(t, eligibility.Rules{Max: floatPtr(300000)}), Weightage: 40, Order: 2, IsRequired: true,
	}
	fx.category = model.EligibilityCriterion{
		SchemeID: fx.scheme.ID, QuestionText: "Which category do you belong to?", QuestionType: string(eligibility.TypeSingleChoice),
		Options:         jsonOf(t, []string{"GENERAL", "OBC", "SC", "ST"}),
		ValidationRules: jsonOf(t, eligibility.Rules{ValidOptions: []string{"OBC", "SC", "ST"}}), Weightage: 20, Order: 3,
	}
	require.NoError(t, db.Create(&fx.resident).Error)
	require.NoError(t, db.Create(&fx.income).Error)
	require.NoError(t, db.Create(&fx.category).Error)

	fx.residency = model.RequiredDocument{SchemeID: fx.scheme.ID, DocumentName: "Residence certificate", Order: 1}
	require.NoError(t, db.Create(&fx.residency).Error)
	return fx
}

type citizenFixture struct {
	citizen model.Citizen
	water   model.ServiceAccount
	bills   []model.Bill
}

func seedCitizen(t *testing.T, db *gorm.DB, mobile string) citizenFixture {
	t.Helper()
	fx := citizenFixture{}
	fx.citizen = model.Citizen{FullName: "Asha Rao", MobileNumber: mobile, Email: "asha@example.org"}
	require.NoError(t, db.Create(&fx.citizen).Error)
	fx.water = model.ServiceAccount{CitizenID: fx.citizen.ID, Department: model.DepartmentWater, ConsumerID: "W-" + mobile}
	require.NoError(t, db.Create(&fx.water).Error)

	now := time.Now()
	fx.bills = []model.Bill{
		{ServiceAccountID: fx.water.ID, Amount: decimal.NewFromInt(450), DueDate: now.AddDate(0, 0, 5)},
		{ServiceAccountID: fx.water.ID, Amount: decimal.RequireFromString("120.25"), DueDate: now.AddDate(0, 0, 20)},
	}
	require.NoError(t, db.Create(&fx.bills).Error)
	return fx
}

type serviceSet struct {
	db            *gorm.DB
	embedder      *fakeEmbedder
	knowledge     KnowledgeService
	schemes       SchemeService
	billing       BillingService
	functions     FunctionRegistry
	conversations repository.ConversationRepository
}

func newServiceSet(t *testing.T) serviceSet {
	t.Helper()
	db := testutil.NewDB(t)
	embedder := &fakeEmbedder{vectors: map[string][]float64{}}
	citizens := repository.NewCitizenRepository(db)

	set := serviceSet{db: db, embedder: embedder}
	set.knowledge = NewKnowledgeService(repository.NewKnowledgeRepository(db), embedder)
	set.schemes = NewSchemeService(repository.NewSchemeRepository(db), citizens, eligibility.Evaluator{})
	set.billing = NewBillingService(repository.NewBillRepository(db))
	set.functions = NewFunctionRegistry(FunctionDeps{
		Citizens:     citizens,
		Applications: repository.NewApplicationRepository(db),
		Billing:      set.billing,
		Schemes:      set.schemes,
		Knowledge:    set.knowledge,
	})
	set.conversations = repository.NewConversationRepository(db, nil, 20, time.Hour)
	return set
}
