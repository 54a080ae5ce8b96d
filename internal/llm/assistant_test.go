package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/denisok6893-rgb/apartment-advisor/internal/breaker"
	"github.com/denisok6893-rgb/apartment-advisor/internal/domain"
)

type fakeModel struct {
	reply *schema.Message
	err   error

	gotMessages []*schema.Message
	gotOptions  *model.Options
}

func (f *fakeModel) Generate(_ context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	f.gotMessages = input
	f.gotOptions = model.GetCommonOptions(nil, opts...)
	return f.reply, f.err
}

func (f *fakeModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not supported")
}

func newTestAssistant(m model.BaseChatModel) *Assistant {
	br := breaker.New("llm-test", breaker.DefaultConfig(), zerolog.Nop())
	return NewAssistant(m, br, Options{Temperature: 0.7, MaxTokens: 1000}, zerolog.Nop())
}

func toolCall(name, args string) *schema.Message {
	return &schema.Message{
		Role: schema.Assistant,
		ToolCalls: []schema.ToolCall{{
			ID:       "call-1",
			Function: schema.FunctionCall{Name: name, Arguments: args},
		}},
	}
}

func TestExtractProfile_ToolCall(t *testing.T) {
	fm := &fakeModel{reply: toolCall(extractToolName,
		`{"purpose":"residence","salary":8000,"cash":"3억","work_location":"강남역"}`)}
	a := newTestAssistant(fm)

	patch, err := a.ExtractProfile(context.Background(), "연봉 8천, 현금 3억, 강남역 출근 실거주")
	require.NoError(t, err)

	require.NotNil(t, patch.Purpose)
	assert.Equal(t, domain.PurposeResidence, *patch.Purpose)
	require.NotNil(t, patch.AnnualSalary)
	assert.Equal(t, 8000.0, *patch.AnnualSalary)
	require.NotNil(t, patch.AvailableCash)
	assert.Equal(t, 30000.0, *patch.AvailableCash)
	require.NotNil(t, patch.WorkLocation)
	assert.Equal(t, "강남역", *patch.WorkLocation)
	assert.Nil(t, patch.AnnualDebtService)
	assert.Nil(t, patch.PreferredArea)

	require.NotNil(t, fm.gotOptions.ToolChoice)
	assert.Equal(t, schema.ToolChoiceForced, *fm.gotOptions.ToolChoice)
	require.Len(t, fm.gotOptions.Tools, 1)
	assert.Equal(t, extractToolName, fm.gotOptions.Tools[0].Name)
}

func TestExtractProfile_ContentFallback(t *testing.T) {
	fm := &fakeModel{reply: &schema.Message{
		Role:    schema.Assistant,
		Content: "```json\n{\"purpose\": \"갭투자\", \"cash\": 15000, \"salary\": \"abc\"}\n```",
	}}
	a := newTestAssistant(fm)

	patch, err := a.ExtractProfile(context.Background(), "갭투자 하고 싶어요")
	require.NoError(t, err)
	require.NotNil(t, patch.Purpose)
	assert.Equal(t, domain.PurposeGapInvestment, *patch.Purpose)
	require.NotNil(t, patch.AvailableCash)
	assert.Equal(t, 15000.0, *patch.AvailableCash)
	assert.Nil(t, patch.AnnualSalary, "garbled field is dropped")
}

func TestExtractProfile_GarbledOutputIsEmpty(t *testing.T) {
	fm := &fakeModel{reply: &schema.Message{Role: schema.Assistant, Content: "잘 모르겠어요 {"}}
	a := newTestAssistant(fm)

	patch, err := a.ExtractProfile(context.Background(), "안녕하세요")
	require.NoError(t, err)
	assert.True(t, patch.Empty())
}

func TestExtractProfile_ModelFailureIsUpstream(t *testing.T) {
	fm := &fakeModel{err: errors.New("connection reset")}
	a := newTestAssistant(fm)

	_, err := a.ExtractProfile(context.Background(), "연봉 8000")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
}

func TestReply_BuildsConversation(t *testing.T) {
	fm := &fakeModel{reply: &schema.Message{Role: schema.Assistant, Content: "  안녕하세요 🏠  "}}
	a := newTestAssistant(fm)

	env := &domain.AffordabilityEnvelope{MaxLoanAmount: 44477.76, MaxBudget: 74477.76, MonthlyPayment: 225.36}
	out, err := a.Reply(context.Background(), TurnContext{
		Profile:  domain.ClientProfile{FinancialProfile: domain.FinancialProfile{Purpose: domain.PurposeResidence, AnnualSalary: 8000, AvailableCash: 30000}},
		Envelope: env,
		History: []domain.Message{
			{Role: domain.RoleAssistant, Content: "무엇을 도와드릴까요?"},
			{Role: domain.RoleUser, Content: "연봉 8000이에요"},
		},
		UserMessage: "연봉 8000이에요",
	})
	require.NoError(t, err)
	assert.Equal(t, "안녕하세요 🏠", out)

	require.Len(t, fm.gotMessages, 4)
	assert.Equal(t, schema.System, fm.gotMessages[0].Role)
	assert.Equal(t, schema.System, fm.gotMessages[1].Role)
	assert.Contains(t, fm.gotMessages[1].Content, "7억 4,478만원")
	assert.Equal(t, schema.Assistant, fm.gotMessages[2].Role)
	assert.Equal(t, schema.User, fm.gotMessages[3].Role)
	assert.Equal(t, "연봉 8000이에요", fm.gotMessages[3].Content)

	require.NotNil(t, fm.gotOptions.Temperature)
	assert.InDelta(t, 0.7, *fm.gotOptions.Temperature, 1e-6)
	require.NotNil(t, fm.gotOptions.MaxTokens)
	assert.Equal(t, 1000, *fm.gotOptions.MaxTokens)
}

func TestReply_AppendsUserMessageWithoutHistory(t *testing.T) {
	fm := &fakeModel{reply: &schema.Message{Role: schema.Assistant, Content: "네"}}
	a := newTestAssistant(fm)

	_, err := a.Reply(context.Background(), TurnContext{UserMessage: "안녕"})
	require.NoError(t, err)
	require.Len(t, fm.gotMessages, 3)
	assert.Equal(t, "안녕", fm.gotMessages[2].Content)
}

func TestReply_EmptyCompletionFallsBack(t *testing.T) {
	fm := &fakeModel{reply: &schema.Message{Role: schema.Assistant, Content: "   "}}
	a := newTestAssistant(fm)

	out, err := a.Reply(context.Background(), TurnContext{UserMessage: "안녕"})
	require.NoError(t, err)
	assert.Equal(t, fallbackReply, out)
}

func TestReply_ModelFailureIsUpstream(t *testing.T) {
	fm := &fakeModel{err: errors.New("timeout")}
	a := newTestAssistant(fm)

	_, err := a.Reply(context.Background(), TurnContext{UserMessage: "안녕"})
	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
}

func TestNewArkModel_RequiresCredentials(t *testing.T) {
	_, err := NewArkModel(context.Background(), "", "", "")
	assert.Error(t, err)
}
