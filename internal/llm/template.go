package llm

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/denisok6893-rgb/apartment-advisor/internal/domain"
	"github.com/denisok6893-rgb/apartment-advisor/internal/matching"
	"github.com/denisok6893-rgb/apartment-advisor/internal/money"
)

// TemplateResponder phrases replies without a model. It is used when the
// chat model is disabled and never fails.
type TemplateResponder struct{}

func (TemplateResponder) Reply(_ context.Context, t TurnContext) (string, error) {
	if t.Envelope == nil {
		missing := MissingFields(t.Profile)
		if len(missing) == 0 {
			return "조건을 확인하고 있어요. 잠시 후 다시 말씀해 주세요.", nil
		}
		return fmt.Sprintf("🏠 맞춤 아파트를 찾으려면 %s 정보가 필요해요. 알려주시겠어요?", strings.Join(missing, ", ")), nil
	}

	var b strings.Builder
	if t.Explanation != "" {
		b.WriteString("💰 ")
		b.WriteString(t.Explanation)
		b.WriteString("\n\n")
	}
	if len(t.Recommendations) == 0 && t.RecommendationsUnavailable {
		b.WriteString("📊 지금은 매물 정보를 불러올 수 없어요. 잠시 후 다시 말씀해 주시면 맞춤 매물을 찾아드릴게요.")
		return b.String(), nil
	}
	if len(t.Recommendations) == 0 {
		b.WriteString("📊 현재 예산과 조건에 맞는 매물을 찾지 못했어요. 선호 지역을 넓혀 보시겠어요?")
		return b.String(), nil
	}

	for _, r := range t.Recommendations {
		if r.Tier == domain.TierFree {
			fmt.Fprintf(&b, "🏠 %d위 추천: %s (%s, %s)\n", r.Rank, r.Candidate.ComplexName,
				r.Candidate.Sigungu, money.FormatManwon(r.Candidate.SalePrice))
			b.WriteString(matching.Describe(r, t.Profile.Purpose))
			for _, w := range r.Warnings {
				b.WriteString("\n⚠️ ")
				b.WriteString(w)
			}
			b.WriteString("\n\n")
		}
	}
	if gated := len(t.Recommendations) - 1; gated > 0 {
		fmt.Fprintf(&b, "나머지 %d개 추천은 프리미엄 서비스에서 확인하실 수 있어요.", gated)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

var (
	salaryPattern  = regexp.MustCompile(`(?:연봉|연소득|소득)\s*(?:은|는|이|가)?\s*([\d,\.]+\s*억?\s*[\d,\.]*\s*천?\s*만?)`)
	cashPattern    = regexp.MustCompile(`(?:현금|보유\s*자금|자기\s*자본|모은\s*돈|자산)\s*(?:은|는|이|가)?\s*([\d,\.]+\s*억?\s*[\d,\.]*\s*천?\s*만?)`)
	debtPattern    = regexp.MustCompile(`(?:부채|대출\s*상환|원리금)\s*(?:은|는|이|가)?\s*(?:연\s*)?([\d,\.]+\s*억?\s*[\d,\.]*\s*천?\s*만?)`)
	workPattern    = regexp.MustCompile(`(?:직장|회사|근무지)\s*(?:은|는|이|가)?\s*([가-힣A-Za-z0-9]+)`)
	commutePattern = regexp.MustCompile(`([가-힣A-Za-z0-9]+?)(?:으로|로|에)\s*출근`)
	areaPattern    = regexp.MustCompile(`([가-힣]{1,4}(?:구|동|시))\s*(?:쪽|지역|근처)?\s*(?:을|를|에|에서)?\s*(?:선호|희망|원해|살고)`)
)

var locationParticles = []string{"입니다", "이에요", "예요", "이고", "이야", "에서", "으로", "로", "야", "에"}

// RuleExtractor pulls profile fields out of a message with keyword
// patterns. It backs extraction when no chat model is configured.
type RuleExtractor struct{}

func (RuleExtractor) ExtractProfile(_ context.Context, text string) (domain.ProfilePatch, error) {
	var p domain.ProfilePatch
	if strings.Contains(text, "갭") || strings.Contains(text, "투자") {
		v := domain.PurposeGapInvestment
		p.Purpose = &v
	} else if strings.Contains(text, "실거주") || strings.Contains(text, "거주") || strings.Contains(text, "살 집") {
		v := domain.PurposeResidence
		p.Purpose = &v
	}
	p.AnnualSalary = amountMatch(salaryPattern, text)
	p.AvailableCash = amountMatch(cashPattern, text)
	p.AnnualDebtService = amountMatch(debtPattern, text)
	for _, re := range []*regexp.Regexp{workPattern, commutePattern} {
		if m := re.FindStringSubmatch(text); m != nil {
			loc := trimParticles(m[1])
			p.WorkLocation = &loc
			break
		}
	}
	if m := areaPattern.FindStringSubmatch(text); m != nil {
		area := m[1]
		p.PreferredArea = &area
	}
	return p, nil
}

func amountMatch(re *regexp.Regexp, text string) *float64 {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	v, ok := ParseAmount(m[1])
	if !ok {
		return nil
	}
	return &v
}

func trimParticles(s string) string {
	for _, suffix := range locationParticles {
		if strings.HasSuffix(s, suffix) && len(s) > len(suffix) {
			return strings.TrimSuffix(s, suffix)
		}
	}
	return s
}
