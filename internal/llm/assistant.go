// Package llm talks to the chat model: it extracts profile fields from
// free text and phrases replies around the budget and ranking results.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"

	"github.com/denisok6893-rgb/apartment-advisor/internal/breaker"
	"github.com/denisok6893-rgb/apartment-advisor/internal/domain"
)

const fallbackReply = "죄송해요, 응답을 생성할 수 없어요. 다시 한 번 말씀해 주세요."

const systemPrompt = `당신은 "집사 냥"이라는 친근한 아파트 매매 전문가입니다.

역할:
- 한국 아파트 매매(실거주/갭투자)와 주택담보대출(LTV/DSR)에 특화된 어드바이저
- 복잡한 부동산 정보를 쉽게 설명하고 사용자의 재정 상황에 맞춘 조언 제공

대화 스타일:
- 이모지를 적절히 사용 (🏠, 💰, 📊)
- 친근하지만 전문적인 말투
- 리스크를 충분히 안내하고 안전한 선택을 우선

아직 모르는 정보(목적, 연봉, 보유 현금, 출퇴근 지역, 선호 지역, 기존 부채)가 있으면 자연스럽게 물어보세요.
제공된 예산과 추천 결과의 숫자를 바꾸지 말고 그대로 사용하세요.
1위 추천은 무료로 상세히 소개하고, 2위 이하는 프리미엄 서비스로 확인할 수 있다고 안내하세요.`

type Options struct {
	Temperature float32
	MaxTokens   int
	// Timeout bounds each model call. Zero leaves the caller's deadline.
	Timeout time.Duration
}

// Assistant wraps a chat model. All model calls go through the breaker.
type Assistant struct {
	model   model.BaseChatModel
	breaker *breaker.Breaker
	opts    Options
	logger  zerolog.Logger
}

func NewAssistant(m model.BaseChatModel, br *breaker.Breaker, opts Options, logger zerolog.Logger) *Assistant {
	return &Assistant{
		model:   m,
		breaker: br,
		opts:    opts,
		logger:  logger.With().Str("component", "llm").Logger(),
	}
}

// NewArkModel builds the production chat model.
func NewArkModel(ctx context.Context, baseURL, apiKey, modelName string) (model.BaseChatModel, error) {
	if apiKey == "" || modelName == "" {
		return nil, errors.New("ark chat model requires api key and model")
	}
	cm, err := ark.NewChatModel(ctx, &ark.ChatModelConfig{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Model:   modelName,
	})
	if err != nil {
		return nil, fmt.Errorf("new ark chat model: %w", err)
	}
	return cm, nil
}

func (a *Assistant) generate(ctx context.Context, msgs []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	if a.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.opts.Timeout)
		defer cancel()
	}
	return breaker.Do(a.breaker, func() (*schema.Message, error) {
		return a.model.Generate(ctx, msgs, opts...)
	})
}

// Reply produces the assistant message for a turn. Model failures are
// returned as domain.ErrUpstreamUnavailable; an empty completion yields a
// canned apology.
func (a *Assistant) Reply(ctx context.Context, turn TurnContext) (string, error) {
	msgs := []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.SystemMessage(RenderContext(turn)),
	}
	for _, m := range turn.History {
		switch m.Role {
		case domain.RoleUser:
			msgs = append(msgs, schema.UserMessage(m.Content))
		case domain.RoleAssistant:
			msgs = append(msgs, schema.AssistantMessage(m.Content, nil))
		}
	}
	if n := len(turn.History); n == 0 || turn.History[n-1].Role != domain.RoleUser {
		msgs = append(msgs, schema.UserMessage(turn.UserMessage))
	}

	var opts []model.Option
	if a.opts.Temperature > 0 {
		opts = append(opts, model.WithTemperature(a.opts.Temperature))
	}
	if a.opts.MaxTokens > 0 {
		opts = append(opts, model.WithMaxTokens(a.opts.MaxTokens))
	}

	out, err := a.generate(ctx, msgs, opts...)
	if err != nil {
		return "", err
	}
	if out == nil || strings.TrimSpace(out.Content) == "" {
		a.logger.Warn().Msg("empty completion, using fallback reply")
		return fallbackReply, nil
	}
	return strings.TrimSpace(out.Content), nil
}
