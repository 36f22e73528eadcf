package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"suvidha-go/internal/eligibility"
	"suvidha-go/internal/model"
	"suvidha-go/internal/repository"
	"suvidha-go/pkg/apperr"
	"suvidha-go/pkg/log"
)

// SchemeDetail 是计划详情以及从档案预填的答案（标准 ID -> 答案）。
type SchemeDetail struct {
	Scheme       *model.Scheme  `json:"scheme"`
	SavedAnswers map[string]any `json:"savedAnswers"`
}

// EligibilityReport 是资格检查接口的返回结构。
type EligibilityReport struct {
	Eligible             bool                          `json:"eligible"`
	EligibilityStatus    eligibility.Tier              `json:"eligibilityStatus"`
	Score                int                           `json:"score"`
	MaxScore             int                           `json:"maxScore"`
	Percentage           string                        `json:"percentage"`
	EvaluationResults    []eligibility.CriterionResult `json:"evaluationResults"`
	Message              string                        `json:"message"`
	SavedToProfile       bool                          `json:"savedToProfile"`
	UnrecognizedCriteria []string                      `json:"unrecognizedCriteria,omitempty"`
}

// SchemeService 定义了福利计划与资格检查的业务接口。
type SchemeService interface {
	GetScheme(ctx context.Context, schemeID, citizenID string) (*SchemeDetail, error)
	CheckEligibility(ctx context.Context, schemeID, citizenID string, answers eligibility.Answers, saveToProfile bool) (*EligibilityReport, error)
	PrefillAnswers(ctx context.Context, citizenID string, scheme *model.Scheme) (eligibility.Answers, error)
	FindByTitle(ctx context.Context, fragment string, limit int) ([]model.Scheme, error)
	FindByID(ctx context.Context, schemeID string) (*model.Scheme, error)
}

type schemeService struct {
	schemeRepo  repository.SchemeRepository
	citizenRepo repository.CitizenRepository
	evaluator   eligibility.Evaluator
}

// NewSchemeService 创建一个新的 SchemeService 实例。
func NewSchemeService(schemeRepo repository.SchemeRepository, citizenRepo repository.CitizenRepository, evaluator eligibility.Evaluator) SchemeService {
	return &schemeService{schemeRepo: schemeRepo, citizenRepo: citizenRepo, evaluator: evaluator}
}

func (s *schemeService) FindByID(ctx context.Context, schemeID string) (*model.Scheme, error) {
	return s.schemeRepo.FindByID(ctx, schemeID)
}

func (s *schemeService) FindByTitle(ctx context.Context, fragment string, limit int) ([]model.Scheme, error) {
	return s.schemeRepo.SearchByTitle(ctx, fragment, limit)
}

// GetScheme 返回计划详情；已登录公民会得到按题目文本和题型匹配的预填答案。
func (s *schemeService) GetScheme(ctx context.Context, schemeID, citizenID string) (*SchemeDetail, error) {
	scheme, err := s.schemeRepo.FindByID(ctx, schemeID)
	if err != nil {
		return nil, err
	}
	detail := &SchemeDetail{Scheme: scheme, SavedAnswers: map[string]any{}}
	if citizenID == "" {
		return detail, nil
	}
	answers, err := s.PrefillAnswers(ctx, citizenID, scheme)
	if err != nil {
		// 预填失败不影响详情展示
		log.Warnf("[SchemeService] 预填答案失败: citizen=%s, scheme=%s, err=%v", citizenID, schemeID, err)
		return detail, nil
	}
	for k, v := range answers {
		detail.SavedAnswers[k] = v
	}
	return detail, nil
}

// PrefillAnswers 仅在公民同意保存答案且题型一致时返回已保存的答案。
func (s *schemeService) PrefillAnswers(ctx context.Context, citizenID string, scheme *model.Scheme) (eligibility.Answers, error) {
	answers := eligibility.Answers{}
	profile, err := s.citizenRepo.FindProfile(ctx, citizenID)
	if err != nil || profile == nil || !profile.ConsentToSaveAnswers {
		return answers, err
	}
	saved, err := profile.SavedAnswers()
	if err != nil {
		return answers, err
	}
	for _, c := range scheme.EligibilityCriteria {
		entry, ok := saved[model.NormalizeQuestion(c.QuestionText)]
		if ok && entry.QuestionType == c.QuestionType {
			answers[c.ID] = entry.Answer
		}
	}
	return answers, nil
}

// CheckEligibility 评估答案，并在 saveToProfile 为 true 时把非空答案写入档案。
func (s *schemeService) CheckEligibility(ctx context.Context, schemeID, citizenID string, answers eligibility.Answers, saveToProfile bool) (*EligibilityReport, error) {
	if answers == nil {
		return nil, apperr.New(apperr.CodeInvalidInput, "answers are required")
	}
	scheme, err := s.schemeRepo.FindByID(ctx, schemeID)
	if err != nil {
		return nil, err
	}
	criteria, err := criteriaOf(scheme)
	if err != nil {
		return nil, err
	}

	result := s.evaluator.Evaluate(criteria, answers)
	if ids := result.Unrecognized(); len(ids) > 0 {
		log.Warnw("[SchemeService] 存在未知题型的资格标准", "scheme", schemeID, "criteria", ids, "strict", s.evaluator.StrictUnknownTypes)
	}

	report := &EligibilityReport{
		Eligible:             result.Eligible(),
		EligibilityStatus:    result.Tier,
		Score:                result.TotalScore,
		MaxScore:             result.MaxScore,
		Percentage:           strconv.FormatFloat(result.Percentage, 'f', 2, 64),
		EvaluationResults:    result.Criteria,
		Message:              eligibility.Message(result.Tier, result.Percentage),
		UnrecognizedCriteria: result.Unrecognized(),
	}

	if saveToProfile && citizenID != "" {
		if err := s.saveAnswers(ctx, citizenID, scheme, answers); err != nil {
			log.Errorf("[SchemeService] 保存答案失败: citizen=%s, err=%v", citizenID, err)
		} else {
			report.SavedToProfile = true
		}
	}
	return report, nil
}

func (s *schemeService) saveAnswers(ctx context.Context, citizenID string, scheme *model.Scheme, answers eligibility.Answers) error {
	now := time.Now()
	return s.citizenRepo.UpdateSavedAnswers(ctx, citizenID, func(saved model.SavedAnswers) {
		for _, c := range scheme.EligibilityCriteria {
			answer, ok := answers[c.ID]
			if !ok || eligibility.IsBlank(answer) {
				continue
			}
			key := model.NormalizeQuestion(c.QuestionText)
			if strings.TrimSpace(key) == "" {
				continue
			}
			saved[key] = model.SavedAnswer{Answer: answer, QuestionType: c.QuestionType, SavedAt: now}
		}
	})
}

func criteriaOf(scheme *model.Scheme) ([]eligibility.Criterion, error) {
	criteria := make([]eligibility.Criterion, 0, len(scheme.EligibilityCriteria))
	for _, c := range scheme.EligibilityCriteria {
		converted, err := c.Criterion()
		if err != nil {
			return nil, err
		}
		criteria = append(criteria, converted)
	}
	return criteria, nil
}
