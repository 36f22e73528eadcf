package pipeline

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"suvidha-go/internal/model"
)

// Source 是一条待写入知识库的内容，Key 在重建之间保持稳定。
type Source struct {
	Key        string
	Category   model.KnowledgeCategory
	Title      string
	Content    string
	Department string
	SourceURL  string
	Metadata   map[string]any
}

type curatedText struct {
	Title      string
	Content    string
	Department string
}

var curatedFAQs = []curatedText{
	{
		Title:      "How to pay my electricity bill",
		Content:    "To pay your electricity bill, navigate to the Bills section from the dashboard. Select your electricity service account, view the bill details, and click on Pay Now. You can pay using various methods including UPI, net banking, or credit/debit card.",
		Department: model.DepartmentElectricity,
	},
	{
		Title:      "How to apply for a new water connection",
		Content:    "To apply for a new water connection: 1) Go to Dashboard 2) Click on 'New Application' 3) Select WATER department 4) Choose 'New Connection' service 5) Fill in your details including address and property information 6) Upload required documents (proof of address, property documents) 7) Submit application and pay the application fee.",
		Department: model.DepartmentWater,
	},
	{
		Title:      "How to book a gas cylinder refill",
		Content:    "To book a gas cylinder refill: 1) Go to Dashboard 2) Click on your gas service account 3) Select 'Book Refill' 4) Confirm your address and delivery preferences 5) Submit the request. You will receive a confirmation with estimated delivery date.",
		Department: model.DepartmentGas,
	},
	{
		Title:      "How to file a grievance",
		Content:    "To file a grievance: 1) Navigate to Grievances section 2) Click on 'File New Grievance' 3) Select the department and issue category 4) Provide detailed description of your issue 5) Attach any supporting documents or photos 6) Submit. You will receive a ticket number to track your grievance status.",
		Department: model.DepartmentMunicipal,
	},
	{
		Title:      "How to check my application status",
		Content:    "To check your application status: 1) Go to 'My Applications' from the dashboard 2) You will see all your submitted applications with their current status 3) Click on any application to view detailed status, timeline, and any remarks from officials 4) You will also receive notifications for status updates.",
		Department: model.DepartmentMunicipal,
	},
	{
		Title:      "What documents are needed for scheme applications",
		Content:    "Required documents vary by scheme but commonly include: 1) Aadhaar card 2) Income certificate 3) Ration card 4) Bank account details 5) Address proof 6) Caste certificate (if applicable) 7) Property documents (for housing schemes). Check the specific scheme details for exact requirements.",
		Department: model.DepartmentMunicipal,
	},
	{
		Title:      "How to update my profile information",
		Content:    "To update your profile: 1) Go to Profile section from the menu 2) Click on 'Edit Profile' 3) Update your details like email, address, etc. 4) Save changes. Note: Mobile number and Aadhaar details cannot be changed through the portal for security reasons.",
		Department: model.DepartmentMunicipal,
	},
}

var curatedServices = []curatedText{
	{
		Title:      "Bill Payment Services",
		Content:    "The Suvidha portal allows citizens to pay bills for various services including electricity, water, gas, and municipal services. Bills are generated monthly and can be paid online through multiple payment methods. Citizens receive notifications before due dates and can view payment history.",
		Department: model.DepartmentMunicipal,
	},
	{
		Title:      "Application Services",
		Content:    "Citizens can submit various applications through the portal including new connections, load changes, name changes, connection removals, and scheme applications. Each application requires specific documents and goes through a defined workflow with status updates at each stage.",
		Department: model.DepartmentMunicipal,
	},
	{
		Title:      "Grievance Redressal System",
		Content:    "The grievance redressal system allows citizens to report issues and complaints related to any department. Each grievance is assigned a unique ticket number, tracked through resolution, and citizens are notified of updates. Target resolution time varies by issue category.",
		Department: model.DepartmentMunicipal,
	},
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

func slug(title string) string {
	return strings.Trim(slugPattern.ReplaceAllString(strings.ToLower(title), "-"), "-")
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}

func dateOrNA(t *time.Time) string {
	if t == nil {
		return "N/A"
	}
	return t.Format("Mon Jan 02 2006")
}

// sources 读取某个分类的全部内容。
func (p *Processor) sources(ctx context.Context, category model.KnowledgeCategory) ([]Source, error) {
	switch category {
	case model.CategoryScheme:
		return p.schemeSources(ctx)
	case model.CategoryPolicy:
		return p.policySources(ctx)
	case model.CategoryTariff:
		return p.tariffSources(ctx)
	case model.CategoryFAQ:
		return curatedSources(model.CategoryFAQ, curatedFAQs, "faq"), nil
	case model.CategoryService:
		return curatedSources(model.CategoryService, curatedServices, "service_info"), nil
	default:
		return nil, fmt.Errorf("unknown knowledge category %q", category)
	}
}

func (p *Processor) schemeSources(ctx context.Context) ([]Source, error) {
	schemes, err := p.schemeRepo.FindActiveWithDetails(ctx)
	if err != nil {
		return nil, fmt.Errorf("load schemes: %w", err)
	}
	out := make([]Source, 0, len(schemes))
	for _, s := range schemes {
		questions := make([]string, 0, len(s.EligibilityCriteria))
		criteria := make([]map[string]string, 0, len(s.EligibilityCriteria))
		for _, c := range s.EligibilityCriteria {
			questions = append(questions, c.QuestionText)
			criteria = append(criteria, map[string]string{"question": c.QuestionText, "type": c.QuestionType})
		}
		documents := make([]string, 0, len(s.RequiredDocuments))
		for _, d := range s.RequiredDocuments {
			documents = append(documents, d.DocumentName)
		}
		content := strings.Join([]string{
			"Scheme: " + s.Title,
			"Department: " + s.Department,
			"Description: " + s.Description,
			"Eligibility (Summary): " + orNA(s.Eligibility),
			"Eligibility (Questions): " + strings.Join(questions, "; "),
			"Required Documents: " + strings.Join(documents, ", "),
		}, "\n")
		out = append(out, Source{
			Key:        "scheme:" + s.ID,
			Category:   model.CategoryScheme,
			Title:      s.Title,
			Content:    content,
			Department: s.Department,
			SourceURL:  "/schemes/" + s.ID,
			Metadata: map[string]any{
				"schemeId":            s.ID,
				"department":          s.Department,
				"eligibility":         s.Eligibility,
				"eligibilityCriteria": criteria,
				"requiredDocuments":   documents,
			},
		})
	}
	return out, nil
}

func (p *Processor) policySources(ctx context.Context) ([]Source, error) {
	policies, err := p.catalogRepo.ListActivePolicies(ctx)
	if err != nil {
		return nil, fmt.Errorf("load policies: %w", err)
	}
	out := make([]Source, 0, len(policies))
	for _, pol := range policies {
		content := strings.Join([]string{
			"Policy: " + pol.Title,
			"Department: " + pol.Department,
			"Description: " + pol.Description,
			"Category: " + orNA(pol.Category),
			"Effective From: " + dateOrNA(pol.EffectiveFrom),
		}, "\n")
		if strings.TrimSpace(pol.Content) != "" {
			content += "\n" + pol.Content
		}
		out = append(out, Source{
			Key:        "policy:" + pol.ID,
			Category:   model.CategoryPolicy,
			Title:      pol.Title,
			Content:    content,
			Department: pol.Department,
			Metadata:   map[string]any{"policyId": pol.ID, "department": pol.Department, "effectiveFrom": pol.EffectiveFrom},
		})
	}
	return out, nil
}

func (p *Processor) tariffSources(ctx context.Context) ([]Source, error) {
	tariffs, err := p.catalogRepo.ListActiveTariffs(ctx)
	if err != nil {
		return nil, fmt.Errorf("load tariffs: %w", err)
	}
	out := make([]Source, 0, len(tariffs))
	for _, t := range tariffs {
		title := fmt.Sprintf("%s %s tariff", t.Department, t.Category)
		content := strings.Join([]string{
			"Tariff: " + title,
			"Department: " + t.Department,
			"Description: " + t.Description,
			fmt.Sprintf("Rate: %s %s", t.Rate.String(), t.Unit),
			"Category: " + orNA(t.Category),
			"Effective From: " + dateOrNA(t.EffectiveFrom),
		}, "\n")
		out = append(out, Source{
			Key:        "tariff:" + t.ID,
			Category:   model.CategoryTariff,
			Title:      title,
			Content:    content,
			Department: t.Department,
			Metadata:   map[string]any{"tariffId": t.ID, "department": t.Department, "rate": t.Rate, "unit": t.Unit},
		})
	}
	return out, nil
}

func curatedSources(category model.KnowledgeCategory, texts []curatedText, kind string) []Source {
	out := make([]Source, 0, len(texts))
	for _, t := range texts {
		out = append(out, Source{
			Key:        string(category) + ":" + slug(t.Title),
			Category:   category,
			Title:      t.Title,
			Content:    t.Content,
			Department: t.Department,
			Metadata:   map[string]any{"type": kind},
		})
	}
	return out
}
