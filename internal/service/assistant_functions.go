package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"suvidha-go/internal/eligibility"
	"suvidha-go/internal/model"
	"suvidha-go/internal/repository"
	"suvidha-go/pkg/apperr"
	"suvidha-go/pkg/llm"
	"suvidha-go/pkg/log"
)

// FunctionName 是助手可调用的函数名，名称对模型可见，不可随意修改。
type FunctionName string

const (
	FnGetUserProfile         FunctionName = "get_user_profile"
	FnGetUserBills           FunctionName = "get_user_bills"
	FnGetUserApplications    FunctionName = "get_user_applications"
	FnGetSchemeApplications  FunctionName = "get_scheme_applications"
	FnGetUserGrievances      FunctionName = "get_user_grievances"
	FnCreateGrievance        FunctionName = "create_grievance"
	FnGetSchemeDetails       FunctionName = "get_scheme_details"
	FnCheckSchemeEligibility FunctionName = "check_scheme_eligibility"
	FnPayBill                FunctionName = "pay_bill"
	FnBulkPayBills           FunctionName = "bulk_pay_bills"
	FnNavigateToPage         FunctionName = "navigate_to_page"
	FnSearchKnowledgeBase    FunctionName = "search_knowledge_base"
)

// AllFunctionNames 按注册顺序列出全部函数。
var AllFunctionNames = []FunctionName{
	FnGetUserProfile, FnGetUserBills, FnGetUserApplications, FnGetSchemeApplications,
	FnGetUserGrievances, FnCreateGrievance, FnGetSchemeDetails, FnCheckSchemeEligibility,
	FnPayBill, FnBulkPayBills, FnNavigateToPage, FnSearchKnowledgeBase,
}

// Pages 是客户端可导航的页面。
var Pages = []string{
	"login", "dashboard", "profile", "all-bills", "all-usage", "my-applications", "grievances",
	"schemes", "policies", "tariffs", "track-status", "scheme-detail", "scheme-apply",
}

const (
	listLimit          = 10
	schemeMatchLimit   = 3
	functionSearchTopK = 3
	loginMessage       = "Please log in to continue."
)

// Navigation 是交给客户端执行的页面跳转指令。
type Navigation struct {
	Action  string         `json:"action"`
	Page    string         `json:"page"`
	Params  map[string]any `json:"params,omitempty"`
	Message string         `json:"message,omitempty"`
}

func navigateTo(page string, params map[string]any, message string) *FunctionOutcome {
	return &FunctionOutcome{Navigation: &Navigation{Action: "navigate", Page: page, Params: params, Message: message}}
}

// FunctionOutcome 是一次函数调用的结果。Navigation 非空时不需要第二轮生成。
type FunctionOutcome struct {
	Result     any
	Navigation *Navigation
}

// Payload 返回回填给模型或客户端的 JSON 结构。
func (o *FunctionOutcome) Payload() any {
	if o.Navigation != nil {
		return o.Navigation
	}
	return o.Result
}

// FunctionRegistry 描述并执行助手可用的函数。
type FunctionRegistry interface {
	Specs() []llm.ToolSpec
	Dispatch(ctx context.Context, name string, args json.RawMessage, citizenID string) (*FunctionOutcome, error)
}

// FunctionDeps 是函数实现依赖的数据访问与业务服务。
type FunctionDeps struct {
	Citizens     repository.CitizenRepository
	Applications repository.ApplicationRepository
	Billing      BillingService
	Schemes      SchemeService
	Knowledge    KnowledgeService
}

type assistantFunction struct {
	spec          llm.ToolSpec
	needsIdentity bool
	call          func(ctx context.Context, args json.RawMessage, citizenID string) (*FunctionOutcome, error)
}

type functionRegistry struct {
	deps      FunctionDeps
	validate  *validator.Validate
	functions map[FunctionName]assistantFunction
}

// NewFunctionRegistry 创建注册了全部 12 个函数的 FunctionRegistry。
func NewFunctionRegistry(deps FunctionDeps) FunctionRegistry {
	r := &functionRegistry{deps: deps, validate: validator.New(), functions: map[FunctionName]assistantFunction{}}
	r.register()
	return r
}

// typed 解码并校验参数后再调用 fn。
func typed[P any](v *validator.Validate, fn func(ctx context.Context, p P, citizenID string) (*FunctionOutcome, error)) func(context.Context, json.RawMessage, string) (*FunctionOutcome, error) {
	return func(ctx context.Context, raw json.RawMessage, citizenID string) (*FunctionOutcome, error) {
		var p P
		if trimmed := strings.TrimSpace(string(raw)); trimmed != "" && trimmed != "null" {
			if err := json.Unmarshal(raw, &p); err != nil {
				return nil, apperr.Wrap(apperr.CodeValidationFailed, "invalid function arguments: "+err.Error(), err)
			}
		}
		if err := v.Struct(p); err != nil {
			return nil, apperr.Wrap(apperr.CodeValidationFailed, describeValidation(err), err)
		}
		return fn(ctx, p, citizenID)
	}
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "invalid function arguments"
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			parts = append(parts, fe.Field()+" is required")
		case "oneof":
			parts = append(parts, fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param()))
		default:
			parts = append(parts, fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}

func (r *functionRegistry) add(name FunctionName, needsIdentity bool, description string, params map[string]any, call func(context.Context, json.RawMessage, string) (*FunctionOutcome, error)) {
	r.functions[name] = assistantFunction{
		spec:          llm.ToolSpec{Name: string(name), Description: description, Parameters: params},
		needsIdentity: needsIdentity,
		call:          call,
	}
}

func (r *functionRegistry) Specs() []llm.ToolSpec {
	specs := make([]llm.ToolSpec, 0, len(AllFunctionNames))
	for _, name := range AllFunctionNames {
		specs = append(specs, r.functions[name].spec)
	}
	return specs
}

// Dispatch 执行一次函数调用。需要身份的函数在匿名会话中返回跳转登录页的指令。
func (r *functionRegistry) Dispatch(ctx context.Context, name string, args json.RawMessage, citizenID string) (*FunctionOutcome, error) {
	fn, ok := r.functions[FunctionName(name)]
	if !ok {
		return nil, apperr.New(apperr.CodeValidationFailed, "Unknown function: "+name)
	}
	if fn.needsIdentity && citizenID == "" {
		log.Infof("[FunctionRegistry] 匿名会话调用需要登录的函数: %s", name)
		return navigateTo("login", nil, loginMessage), nil
	}
	log.Infof("[FunctionRegistry] 执行函数: %s, args=%s", name, string(args))
	return fn.call(ctx, args, citizenID)
}

// ---- JSON Schema 辅助 ----

func objectSchema(properties map[string]any, required ...string) map[string]any {
	schema := map[string]any{"type": "object", "properties": properties}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func stringProp(description string, enum ...string) map[string]any {
	prop := map[string]any{"type": "string", "description": description}
	if len(enum) > 0 {
		prop["enum"] = enum
	}
	return prop
}

// ---- 参数结构 ----

type noParams struct{}

type billsParams struct {
	Department string `json:"department" validate:"omitempty,oneof=ELECTRICITY WATER GAS SANITATION MUNICIPAL"`
	IsPaid     *bool  `json:"isPaid"`
}

type applicationsParams struct {
	Department string `json:"department" validate:"omitempty,oneof=ELECTRICITY WATER GAS SANITATION MUNICIPAL"`
	Status     string `json:"status" validate:"omitempty,oneof=SUBMITTED UNDER_PROCESS APPROVED REJECTED COMPLETED"`
}

type schemeApplicationsParams struct {
	Status string `json:"status" validate:"omitempty,oneof=DRAFT SUBMITTED UNDER_REVIEW DOCUMENTS_REQUIRED APPROVED REJECTED"`
}

type grievancesParams struct {
	Status string `json:"status" validate:"omitempty,oneof=PENDING IN_PROGRESS RESOLVED CLOSED"`
}

type createGrievanceParams struct {
	Department  string `json:"department" validate:"required,oneof=ELECTRICITY WATER GAS SANITATION MUNICIPAL"`
	Description string `json:"description" validate:"required"`
}

type schemeDetailsParams struct {
	SchemeName string `json:"schemeName" validate:"required"`
}

type schemeEligibilityParams struct {
	SchemeID string `json:"schemeId" validate:"required"`
}

type payBillParams struct {
	BillID string `json:"billId" validate:"required"`
}

type bulkPayParams struct {
	BillIDs []string `json:"billIds" validate:"required,min=1,dive,required"`
}

type navigateParams struct {
	Page   string         `json:"page" validate:"required,oneof=login dashboard profile all-bills all-usage my-applications grievances schemes policies tariffs track-status scheme-detail scheme-apply"`
	Params map[string]any `json:"params"`
}

type searchParams struct {
	Query    string `json:"query" validate:"required"`
	Category string `json:"category" validate:"omitempty,oneof=scheme policy tariff faq service"`
}

func (r *functionRegistry) register() {
	v := r.validate
	departmentEnum := model.Departments
	categoryEnum := make([]string, 0, len(model.KnowledgeCategories))
	for _, c := range model.KnowledgeCategories {
		categoryEnum = append(categoryEnum, string(c))
	}

	r.add(FnGetUserProfile, true,
		"Get the user's profile information including name, contact details, and registered service accounts",
		objectSchema(map[string]any{}),
		typed(v, func(ctx context.Context, _ noParams, citizenID string) (*FunctionOutcome, error) {
			return r.userProfile(ctx, citizenID)
		}))

	r.add(FnGetUserBills, true,
		"Get the user's utility bills. Can filter by department and payment status.",
		objectSchema(map[string]any{
			"department": stringProp("Filter bills by department (optional)", departmentEnum...),
			"isPaid":     map[string]any{"type": "boolean", "description": "Filter by payment status (optional)"},
		}),
		typed(v, r.userBills))

	r.add(FnGetUserApplications, true,
		"Get the user's submitted applications and their status. Can filter by department or status.",
		objectSchema(map[string]any{
			"department": stringProp("Filter applications by department (optional)", departmentEnum...),
			"status":     stringProp("Filter by application status (optional)", model.ApplicationStatuses...),
		}),
		typed(v, r.userApplications))

	r.add(FnGetSchemeApplications, true,
		"Get the user's scheme applications and their status. Can filter by status.",
		objectSchema(map[string]any{
			"status": stringProp("Filter by scheme application status (optional)", model.SchemeApplicationStatuses...),
		}),
		typed(v, r.schemeApplications))

	r.add(FnGetUserGrievances, true,
		"Get the user's filed grievances and their resolution status",
		objectSchema(map[string]any{
			"status": stringProp("Filter by grievance status (optional)", model.GrievanceStatuses...),
		}),
		typed(v, r.userGrievances))

	r.add(FnCreateGrievance, true,
		"File a new grievance/complaint on behalf of the user. Requires department and description.",
		objectSchema(map[string]any{
			"department":  stringProp("Department for the grievance", departmentEnum...),
			"description": stringProp("Detailed description of the grievance"),
		}, "department", "description"),
		typed(v, r.createGrievance))

	r.add(FnGetSchemeDetails, false,
		"Get detailed information about a specific government scheme including eligibility criteria and benefits",
		objectSchema(map[string]any{
			"schemeName": stringProp("Name or partial name of the scheme to search for"),
		}, "schemeName"),
		typed(v, r.schemeDetails))

	r.add(FnCheckSchemeEligibility, true,
		"Check if the user is eligible for a specific scheme based on their profile",
		objectSchema(map[string]any{
			"schemeId": stringProp("ID of the scheme to check eligibility for"),
		}, "schemeId"),
		typed(v, r.checkEligibility))

	r.add(FnPayBill, true,
		"Pay a single unpaid bill for the user. This will mark the bill as paid and create a payment record.",
		objectSchema(map[string]any{
			"billId": stringProp("Bill ID to pay"),
		}, "billId"),
		typed(v, r.payBill))

	r.add(FnBulkPayBills, true,
		"Pay multiple unpaid bills for the user in a single action.",
		objectSchema(map[string]any{
			"billIds": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Array of bill IDs to pay",
			},
		}, "billIds"),
		typed(v, r.bulkPay))

	r.add(FnNavigateToPage, false,
		"Navigate the user to a specific page in the application. Use this when user asks to go somewhere or wants to perform an action that requires a specific page.",
		objectSchema(map[string]any{
			"page": stringProp("The page to navigate to", Pages...),
			"params": map[string]any{
				"type":        "object",
				"description": "Optional parameters for the page (e.g., scheme ID, application ID)",
			},
		}, "page"),
		typed(v, func(_ context.Context, p navigateParams, _ string) (*FunctionOutcome, error) {
			params := p.Params
			if params == nil {
				params = map[string]any{}
			}
			return navigateTo(p.Page, params, ""), nil
		}))

	r.add(FnSearchKnowledgeBase, false,
		"Search the knowledge base for information about schemes, policies, procedures, and FAQs. Use this for general queries about services.",
		objectSchema(map[string]any{
			"query":    stringProp("The query to search for in the knowledge base"),
			"category": stringProp("Category to filter search results (optional)", categoryEnum...),
		}, "query"),
		typed(v, r.searchKnowledge))
}

// ---- 函数实现 ----

type billDue struct {
	Amount  decimal.Decimal `json:"amount"`
	DueDate time.Time       `json:"dueDate"`
}

type accountSummary struct {
	Department  string   `json:"department"`
	ConsumerID  string   `json:"consumerId"`
	Address     string   `json:"address,omitempty"`
	NextBillDue *billDue `json:"nextBillDue"`
}

func (r *functionRegistry) userProfile(ctx context.Context, citizenID string) (*FunctionOutcome, error) {
	citizen, err := r.deps.Citizens.FindByID(ctx, citizenID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.New(apperr.CodeNotFound, "User profile not found")
		}
		return nil, err
	}

	unpaid := false
	bills, err := r.deps.Billing.ListBills(ctx, citizenID, repository.BillFilter{IsPaid: &unpaid})
	if err != nil {
		return nil, err
	}
	// 每个账户取最早到期的未付账单
	next := map[string]*billDue{}
	for _, b := range bills {
		cur, ok := next[b.ServiceAccountID]
		if !ok || b.DueDate.Before(cur.DueDate) {
			next[b.ServiceAccountID] = &billDue{Amount: b.Amount, DueDate: b.DueDate}
		}
	}

	accounts := make([]accountSummary, 0, len(citizen.ServiceAccounts))
	for _, acc := range citizen.ServiceAccounts {
		accounts = append(accounts, accountSummary{
			Department:  acc.Department,
			ConsumerID:  acc.ConsumerID,
			Address:     acc.Address,
			NextBillDue: next[acc.ID],
		})
	}
	return &FunctionOutcome{Result: map[string]any{
		"name":            citizen.FullName,
		"mobile":          citizen.MobileNumber,
		"email":           citizen.Email,
		"profile":         citizen.Profile,
		"serviceAccounts": accounts,
	}}, nil
}

type billSummary struct {
	ID         string          `json:"id"`
	Department string          `json:"department"`
	ConsumerID string          `json:"consumerId"`
	Amount     decimal.Decimal `json:"amount"`
	DueDate    time.Time       `json:"dueDate"`
	IsPaid     bool            `json:"isPaid"`
}

func (r *functionRegistry) userBills(ctx context.Context, p billsParams, citizenID string) (*FunctionOutcome, error) {
	bills, err := r.deps.Billing.ListBills(ctx, citizenID, repository.BillFilter{
		Department: p.Department,
		IsPaid:     p.IsPaid,
		Limit:      listLimit,
	})
	if err != nil {
		return nil, err
	}
	out := make([]billSummary, 0, len(bills))
	totalUnpaid := 0
	totalAmount := decimal.Zero
	for _, b := range bills {
		summary := billSummary{ID: b.ID, Amount: b.Amount, DueDate: b.DueDate, IsPaid: b.IsPaid}
		if b.ServiceAccount != nil {
			summary.Department = b.ServiceAccount.Department
			summary.ConsumerID = b.ServiceAccount.ConsumerID
		}
		out = append(out, summary)
		if !b.IsPaid {
			totalUnpaid++
			totalAmount = totalAmount.Add(b.Amount)
		}
	}
	return &FunctionOutcome{Result: map[string]any{
		"bills":       out,
		"totalUnpaid": totalUnpaid,
		"totalAmount": totalAmount,
	}}, nil
}

func (r *functionRegistry) userApplications(ctx context.Context, p applicationsParams, citizenID string) (*FunctionOutcome, error) {
	apps, err := r.deps.Applications.ListApplications(ctx, citizenID, repository.ApplicationFilter{
		Department: p.Department,
		Status:     p.Status,
		Limit:      listLimit,
	})
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(apps))
	for _, a := range apps {
		out = append(out, map[string]any{
			"id":          a.ID,
			"department":  a.Department,
			"serviceType": a.ServiceType,
			"status":      a.Status,
			"submittedAt": a.SubmittedAt,
		})
	}
	return &FunctionOutcome{Result: map[string]any{"applications": out, "total": len(out)}}, nil
}

func (r *functionRegistry) schemeApplications(ctx context.Context, p schemeApplicationsParams, citizenID string) (*FunctionOutcome, error) {
	apps, err := r.deps.Applications.ListSchemeApplications(ctx, citizenID, repository.ApplicationFilter{
		Status: p.Status,
		Limit:  listLimit,
	})
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(apps))
	for _, a := range apps {
		title := ""
		if a.Scheme != nil {
			title = a.Scheme.Title
		}
		out = append(out, map[string]any{
			"id":          a.ID,
			"schemeId":    a.SchemeID,
			"schemeTitle": title,
			"status":      a.Status,
			"submittedAt": a.SubmittedAt,
		})
	}
	return &FunctionOutcome{Result: map[string]any{"applications": out, "total": len(out)}}, nil
}

func (r *functionRegistry) userGrievances(ctx context.Context, p grievancesParams, citizenID string) (*FunctionOutcome, error) {
	grievances, err := r.deps.Applications.ListGrievances(ctx, citizenID, repository.ApplicationFilter{
		Status: p.Status,
		Limit:  listLimit,
	})
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(grievances))
	for _, g := range grievances {
		out = append(out, map[string]any{
			"id":          g.ID,
			"department":  g.Department,
			"category":    g.Category,
			"description": g.Description,
			"status":      g.Status,
			"createdAt":   g.CreatedAt,
		})
	}
	return &FunctionOutcome{Result: map[string]any{"grievances": out, "total": len(out)}}, nil
}

func (r *functionRegistry) createGrievance(ctx context.Context, p createGrievanceParams, citizenID string) (*FunctionOutcome, error) {
	grievance := &model.Grievance{
		CitizenID:   citizenID,
		Department:  p.Department,
		Description: strings.TrimSpace(p.Description),
		Status:      model.GrievanceStatusPending,
	}
	if grievance.Description == "" {
		return nil, apperr.New(apperr.CodeValidationFailed, "Department and description are required.")
	}
	if err := r.deps.Applications.CreateGrievance(ctx, grievance); err != nil {
		return nil, err
	}
	log.Infof("[FunctionRegistry] 投诉已创建: citizen=%s, grievance=%s", citizenID, grievance.ID)
	return &FunctionOutcome{Result: map[string]any{
		"message": "Grievance filed successfully",
		"grievance": map[string]any{
			"id":         grievance.ID,
			"department": grievance.Department,
			"status":     grievance.Status,
			"createdAt":  grievance.CreatedAt,
		},
	}}, nil
}

func (r *functionRegistry) schemeDetails(ctx context.Context, p schemeDetailsParams, _ string) (*FunctionOutcome, error) {
	schemes, err := r.deps.Schemes.FindByTitle(ctx, p.SchemeName, schemeMatchLimit)
	if err != nil {
		return nil, err
	}
	if len(schemes) == 0 {
		return nil, apperr.New(apperr.CodeNotFound, fmt.Sprintf("No schemes found matching %q", p.SchemeName))
	}
	out := make([]map[string]any, 0, len(schemes))
	for _, s := range schemes {
		questions := make([]string, 0, len(s.EligibilityCriteria))
		for _, c := range s.EligibilityCriteria {
			questions = append(questions, c.QuestionText)
		}
		documents := make([]string, 0, len(s.RequiredDocuments))
		for _, d := range s.RequiredDocuments {
			documents = append(documents, d.DocumentName)
		}
		out = append(out, map[string]any{
			"id":                  s.ID,
			"title":               s.Title,
			"department":          s.Department,
			"description":         s.Description,
			"eligibility":         s.Eligibility,
			"eligibilityCriteria": questions,
			"requiredDocuments":   documents,
		})
	}
	return &FunctionOutcome{Result: map[string]any{"schemes": out}}, nil
}

type pendingQuestion struct {
	CriterionID string          `json:"criterionId"`
	Question    string          `json:"question"`
	Type        string          `json:"type"`
	Options     json.RawMessage `json:"options,omitempty"`
}

// checkEligibility 用档案中已保存的答案评估资格；答案不全时返回待回答的问题。
func (r *functionRegistry) checkEligibility(ctx context.Context, p schemeEligibilityParams, citizenID string) (*FunctionOutcome, error) {
	scheme, err := r.deps.Schemes.FindByID(ctx, p.SchemeID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.New(apperr.CodeNotFound, "Scheme not found")
		}
		return nil, err
	}
	answers, err := r.deps.Schemes.PrefillAnswers(ctx, citizenID, scheme)
	if err != nil {
		return nil, err
	}

	pending := make([]pendingQuestion, 0)
	for _, c := range scheme.EligibilityCriteria {
		if a, ok := answers[c.ID]; ok && !eligibility.IsBlank(a) {
			continue
		}
		pending = append(pending, pendingQuestion{
			CriterionID: c.ID,
			Question:    c.QuestionText,
			Type:        c.QuestionType,
			Options:     json.RawMessage(c.Options),
		})
	}

	schemeInfo := map[string]any{"id": scheme.ID, "title": scheme.Title, "department": scheme.Department}
	if len(pending) > 0 {
		return &FunctionOutcome{Result: map[string]any{
			"scheme":              schemeInfo,
			"eligibilityCriteria": pending,
			"hasSavedAnswers":     len(answers) > 0,
			"recommendation":      "Please answer the eligibility questions to check if you qualify for this scheme.",
		}}, nil
	}

	report, err := r.deps.Schemes.CheckEligibility(ctx, scheme.ID, citizenID, answers, false)
	if err != nil {
		return nil, err
	}
	return &FunctionOutcome{Result: map[string]any{
		"scheme":          schemeInfo,
		"hasSavedAnswers": true,
		"result":          report,
	}}, nil
}

func (r *functionRegistry) payBill(ctx context.Context, p payBillParams, citizenID string) (*FunctionOutcome, error) {
	receipt, err := r.deps.Billing.PayBill(ctx, citizenID, p.BillID)
	if err != nil {
		return nil, err
	}
	return &FunctionOutcome{Result: map[string]any{
		"message": "Payment successful",
		"payment": receipt,
	}}, nil
}

func (r *functionRegistry) bulkPay(ctx context.Context, p bulkPayParams, citizenID string) (*FunctionOutcome, error) {
	receipt, err := r.deps.Billing.BulkPayBills(ctx, citizenID, p.BillIDs)
	if err != nil {
		return nil, err
	}
	return &FunctionOutcome{Result: map[string]any{
		"message":     "Bulk payment successful",
		"count":       receipt.Count,
		"totalAmount": receipt.TotalAmount,
		"payments":    receipt.Payments,
	}}, nil
}

func (r *functionRegistry) searchKnowledge(ctx context.Context, p searchParams, _ string) (*FunctionOutcome, error) {
	results, err := r.deps.Knowledge.Search(ctx, p.Query, SearchOptions{
		Category: model.KnowledgeCategory(p.Category),
		TopK:     functionSearchTopK,
	})
	if err != nil {
		return nil, err
	}
	return &FunctionOutcome{Result: map[string]any{"results": results, "totalResults": len(results)}}, nil
}
