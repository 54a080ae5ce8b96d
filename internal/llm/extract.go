package llm

import (
	"context"
	"strconv"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/goccy/go-json"

	"github.com/denisok6893-rgb/apartment-advisor/internal/domain"
	"github.com/denisok6893-rgb/apartment-advisor/internal/money"
)

const extractToolName = "submit_profile"

const extractPrompt = `다음 사용자 메시지에서 아파트 구매 상담에 필요한 정보를 추출하세요.
금액은 모두 만원 단위 숫자로 변환하세요 (예: 3억 -> 30000, 8천만원 -> 8000).
메시지에 없는 정보는 비워 두세요. 추측하지 마세요.
purpose는 실거주면 "residence", 갭투자면 "gap_investment" 입니다.
반드시 submit_profile 도구를 호출하세요.`

var extractTool = &schema.ToolInfo{
	Name: extractToolName,
	Desc: "추출한 사용자 재정 정보와 선호 지역을 제출합니다",
	ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
		"purpose": {
			Type: schema.String,
			Desc: "구매 목적",
			Enum: []string{string(domain.PurposeResidence), string(domain.PurposeGapInvestment)},
		},
		"salary":         {Type: schema.Number, Desc: "연봉 (만원)"},
		"cash":           {Type: schema.Number, Desc: "보유 현금 (만원)"},
		"debt":           {Type: schema.Number, Desc: "연간 기존 부채 원리금 상환액 (만원)"},
		"work_location":  {Type: schema.String, Desc: "직장 위치 (예: 강남역, 여의도)"},
		"preferred_area": {Type: schema.String, Desc: "선호 거주 지역 (예: 송파구)"},
	}),
}

// ExtractProfile asks the model for the profile fields mentioned in text.
// Unreadable output yields an empty patch; only a failed model call is an
// error.
func (a *Assistant) ExtractProfile(ctx context.Context, text string) (domain.ProfilePatch, error) {
	msgs := []*schema.Message{
		schema.SystemMessage(extractPrompt),
		schema.UserMessage(text),
	}
	out, err := a.generate(ctx, msgs,
		model.WithTools([]*schema.ToolInfo{extractTool}),
		model.WithToolChoice(schema.ToolChoiceForced),
		model.WithTemperature(0),
	)
	if err != nil {
		return domain.ProfilePatch{}, err
	}
	if out == nil {
		return domain.ProfilePatch{}, nil
	}

	raw := out.Content
	for _, tc := range out.ToolCalls {
		if strings.EqualFold(tc.Function.Name, extractToolName) {
			raw = tc.Function.Arguments
			break
		}
	}
	patch := ParsePatch(raw)
	if patch.Empty() && strings.TrimSpace(raw) != "" {
		a.logger.Debug().Str("raw", truncate(raw, 200)).Msg("no profile fields in extraction output")
	}
	return patch, nil
}

// ParsePatch reads a profile patch from model output. Code fences and
// surrounding prose are ignored, numbers may arrive as strings with
// separators or units, and fields that cannot be read are dropped.
func ParsePatch(raw string) domain.ProfilePatch {
	obj := jsonObject(raw)
	if obj == "" {
		return domain.ProfilePatch{}
	}
	var fields map[string]any
	if err := json.Unmarshal([]byte(obj), &fields); err != nil {
		return domain.ProfilePatch{}
	}

	var p domain.ProfilePatch
	if s, ok := stringField(fields, "purpose"); ok {
		if purpose, ok := parsePurpose(s); ok {
			p.Purpose = &purpose
		}
	}
	p.AnnualSalary = numberField(fields, "salary", "annual_salary")
	p.AvailableCash = numberField(fields, "cash", "available_cash")
	p.AnnualDebtService = numberField(fields, "debt", "annual_debt_service", "existing_debt")
	if s, ok := stringField(fields, "work_location", "workLocation"); ok {
		p.WorkLocation = &s
	}
	if s, ok := stringField(fields, "preferred_area", "preferredArea"); ok {
		p.PreferredArea = &s
	}
	return p
}

func jsonObject(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}

func stringField(fields map[string]any, keys ...string) (string, bool) {
	for _, k := range keys {
		if v, ok := fields[k].(string); ok {
			if v = strings.TrimSpace(v); v != "" && v != "null" {
				return v, true
			}
		}
	}
	return "", false
}

func numberField(fields map[string]any, keys ...string) *float64 {
	for _, k := range keys {
		switch v := fields[k].(type) {
		case float64:
			return &v
		case string:
			if f, ok := ParseAmount(v); ok {
				return &f
			}
		}
	}
	return nil
}

func parsePurpose(s string) (domain.Purpose, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case s == string(domain.PurposeResidence), strings.Contains(s, "실거주"), strings.Contains(s, "거주"):
		return domain.PurposeResidence, true
	case s == string(domain.PurposeGapInvestment), s == "gap", s == "investment",
		strings.Contains(s, "갭"), strings.Contains(s, "투자"):
		return domain.PurposeGapInvestment, true
	}
	return "", false
}

// ParseAmount reads a Korean money expression as 만원: "30000", "8,000",
// "3억", "3억 5천", "8천만원", "5000만". A bare number ending in 원 is read
// as won.
func ParseAmount(s string) (float64, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	s = strings.ReplaceAll(s, " ", "")
	plainWon := strings.HasSuffix(s, "원") && !strings.ContainsAny(s, "억천만")
	s = strings.TrimSuffix(s, "원")
	if s == "" {
		return 0, false
	}
	if plainWon {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil || v < 0 {
			return 0, false
		}
		return money.FromWon(v), true
	}

	var total float64
	var matched bool
	if i := strings.Index(s, "억"); i >= 0 {
		v, err := strconv.ParseFloat(s[:i], 64)
		if err != nil {
			return 0, false
		}
		total += v * 10000
		matched = true
		s = s[i+len("억"):]
	}
	if i := strings.Index(s, "천"); i >= 0 {
		v, err := strconv.ParseFloat(s[:i], 64)
		if err != nil {
			return 0, false
		}
		total += v * 1000
		matched = true
		s = s[i+len("천"):]
	}
	s = strings.TrimSuffix(s, "만")
	if s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		total += v
		matched = true
	}
	return total, matched
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
