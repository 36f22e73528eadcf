// Package eligibility scores a citizen's answers against a scheme's weighted criteria.
// It performs no I/O.
package eligibility

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// QuestionType 决定一条标准的判定方式。
type QuestionType string

const (
	TypeYesNo          QuestionType = "YES_NO"
	TypeNumber         QuestionType = "NUMBER"
	TypeRange          QuestionType = "RANGE"
	TypeSingleChoice   QuestionType = "SINGLE_CHOICE"
	TypeMultipleChoice QuestionType = "MULTIPLE_CHOICE"
	TypeText           QuestionType = "TEXT"
	TypeDate           QuestionType = "DATE"
)

// Known 报告该类型是否是已知类型。TEXT 与 DATE 已知但不做判定。
func (t QuestionType) Known() bool {
	switch t {
	case TypeYesNo, TypeNumber, TypeRange, TypeSingleChoice, TypeMultipleChoice, TypeText, TypeDate:
		return true
	}
	return false
}

// Tier 是资格评估的分档结果。
type Tier string

const (
	TierEligible          Tier = "ELIGIBLE"
	TierPartiallyEligible Tier = "PARTIALLY_ELIGIBLE"
	TierNotEligible       Tier = "NOT_ELIGIBLE"
)

// DefaultExpectedAnswer 是 YES_NO 题在未配置期望答案时的期望值。
const DefaultExpectedAnswer = "YES"

// Rules 是一条标准的校验规则，所有字段都可选。
type Rules struct {
	Min            *float64 `json:"min,omitempty"`
	Max            *float64 `json:"max,omitempty"`
	ExpectedAnswer string   `json:"expectedAnswer,omitempty"`
	ValidOptions   []string `json:"validOptions,omitempty"`
}

// Criterion 是一条带权重的资格标准。
type Criterion struct {
	ID           string
	QuestionText string
	QuestionType QuestionType
	Options      []string
	Rules        Rules
	Weightage    int
	Order        int
	IsRequired   bool
}

// Answers 以标准 ID 为键保存原始答案，值可以是字符串、数字或字符串列表。
type Answers map[string]any

// CriterionResult 是单条标准的判定结果。
type CriterionResult struct {
	CriterionID  string       `json:"criterionId"`
	Question     string       `json:"question"`
	QuestionType QuestionType `json:"questionType"`
	Answer       any          `json:"answer"`
	Passed       bool         `json:"passed"`
	Weightage    int          `json:"weightage"`
	Score        int          `json:"score"`
	Unrecognized bool         `json:"unrecognized,omitempty"`
}

// Result 是一次完整的评估结果。
type Result struct {
	TotalScore int               `json:"totalScore"`
	MaxScore   int               `json:"maxScore"`
	Percentage float64           `json:"percentage"`
	Tier       Tier              `json:"tier"`
	Criteria   []CriterionResult `json:"evaluationResults"`
}

// Eligible 仅在 ELIGIBLE 档位时为 true。
func (r Result) Eligible() bool { return r.Tier == TierEligible }

// Unrecognized 返回使用了未知题型的标准 ID。
func (r Result) Unrecognized() []string {
	var ids []string
	for _, c := range r.Criteria {
		if c.Unrecognized {
			ids = append(ids, c.CriterionID)
		}
	}
	return ids
}

// Evaluator 执行资格评估。
type Evaluator struct {
	// StrictUnknownTypes 为 true 时未知题型判定为不通过，默认放行。
	StrictUnknownTypes bool
}

// Evaluate 逐条判定标准并汇总得分与档位。criteria 的顺序会保留在结果中。
func (e Evaluator) Evaluate(criteria []Criterion, answers Answers) Result {
	res := Result{Criteria: make([]CriterionResult, 0, len(criteria))}

	for _, c := range criteria {
		answer := answers[c.ID]
		passed := e.passes(c, answer)

		cr := CriterionResult{
			CriterionID:  c.ID,
			Question:     c.QuestionText,
			QuestionType: c.QuestionType,
			Answer:       answer,
			Passed:       passed,
			Weightage:    c.Weightage,
			Unrecognized: !c.QuestionType.Known(),
		}
		if passed {
			cr.Score = c.Weightage
		}
		res.TotalScore += cr.Score
		res.MaxScore += c.Weightage
		res.Criteria = append(res.Criteria, cr)
	}

	if res.MaxScore == 0 {
		res.Percentage = 100
	} else {
		res.Percentage = float64(res.TotalScore) / float64(res.MaxScore) * 100
	}
	res.Tier = TierFor(res.Percentage)
	return res
}

// TierFor 将百分比映射到档位：>=80 为 ELIGIBLE，>=50 为 PARTIALLY_ELIGIBLE。
func TierFor(percentage float64) Tier {
	switch {
	case percentage >= 80:
		return TierEligible
	case percentage >= 50:
		return TierPartiallyEligible
	default:
		return TierNotEligible
	}
}

// Message 返回面向公民的档位说明。
func Message(tier Tier, percentage float64) string {
	switch tier {
	case TierEligible:
		return "Congratulations! You are eligible for this scheme. You can proceed with the application."
	case TierPartiallyEligible:
		return fmt.Sprintf("You meet %s%% of the eligibility criteria. You may still apply, but approval is subject to review.",
			strconv.FormatFloat(percentage, 'f', 0, 64))
	default:
		return "Unfortunately, you do not meet the eligibility criteria for this scheme at this time."
	}
}

func (e Evaluator) passes(c Criterion, answer any) bool {
	switch c.QuestionType {
	case TypeYesNo:
		expected := c.Rules.ExpectedAnswer
		if expected == "" {
			expected = DefaultExpectedAnswer
		}
		s, ok := answer.(string)
		return ok && s == expected

	case TypeNumber, TypeRange:
		value, ok := numeric(answer)
		if !ok {
			return false
		}
		if c.Rules.Min != nil && value < *c.Rules.Min {
			return false
		}
		if c.Rules.Max != nil && value > *c.Rules.Max {
			return false
		}
		return true

	case TypeSingleChoice, TypeMultipleChoice:
		if len(c.Rules.ValidOptions) == 0 {
			return true
		}
		return choiceAllowed(answer, c.Rules.ValidOptions)

	case TypeText, TypeDate:
		return true

	default:
		return !e.StrictUnknownTypes
	}
}

// numeric 解析数字答案，字符串必须完整地是一个有限数字。
func numeric(answer any) (float64, bool) {
	var v float64
	switch a := answer.(type) {
	case float64:
		v = a
	case float32:
		v = float64(a)
	case int:
		v = float64(a)
	case int64:
		v = float64(a)
	case json.Number:
		f, err := a.Float64()
		if err != nil {
			return 0, false
		}
		v = f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(a), 64)
		if err != nil {
			return 0, false
		}
		v = f
	default:
		return 0, false
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// choiceAllowed 接受单个选项，或每一项都合法的非空选项列表。
func choiceAllowed(answer any, valid []string) bool {
	contains := func(s string) bool {
		for _, v := range valid {
			if v == s {
				return true
			}
		}
		return false
	}

	switch a := answer.(type) {
	case string:
		return contains(a)
	case []string:
		if len(a) == 0 {
			return false
		}
		for _, s := range a {
			if !contains(s) {
				return false
			}
		}
		return true
	case []any:
		if len(a) == 0 {
			return false
		}
		for _, item := range a {
			s, ok := item.(string)
			if !ok || !contains(s) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// IsBlank 报告答案是否为空，空答案不会被保存到档案中。
func IsBlank(answer any) bool {
	switch a := answer.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(a) == ""
	case []any:
		return len(a) == 0
	case []string:
		return len(a) == 0
	default:
		return false
	}
}
