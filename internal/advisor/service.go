// Package advisor runs a chat turn end to end: profile extraction, budget,
// ranking, persistence and the reply.
package advisor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/denisok6893-rgb/apartment-advisor/internal/budget"
	"github.com/denisok6893-rgb/apartment-advisor/internal/domain"
	"github.com/denisok6893-rgb/apartment-advisor/internal/llm"
	"github.com/denisok6893-rgb/apartment-advisor/internal/logging"
	"github.com/denisok6893-rgb/apartment-advisor/internal/matching"
	"github.com/denisok6893-rgb/apartment-advisor/internal/metrics"
	"github.com/denisok6893-rgb/apartment-advisor/internal/money"
)

const welcomeMessage = `안녕하세요! 저는 아파트 매매 전문 AI 집사 냥이에요 🏠

맞춤 아파트를 찾아드리기 위해 몇 가지 여쭤볼게요.
실거주 목적이신가요, 갭투자 목적이신가요? 연봉과 보유 현금도 알려주시면 예산부터 계산해 드릴게요 💰`

// Store is the persistence the service needs.
type Store interface {
	CreateSession(ctx context.Context, sess domain.Session) (domain.Session, error)
	GetSession(ctx context.Context, id string) (domain.Session, error)
	UpdateSession(ctx context.Context, sess domain.Session) error
	AppendMessage(ctx context.Context, m domain.Message) (domain.Message, error)
	ListMessages(ctx context.Context, sessionID string) ([]domain.Message, error)
	RecentMessages(ctx context.Context, sessionID string, n int) ([]domain.Message, error)
	SaveRecommendations(ctx context.Context, sessionID string, recs []domain.ScoredRecommendation) error
}

type Extractor interface {
	ExtractProfile(ctx context.Context, text string) (domain.ProfilePatch, error)
}

type Responder interface {
	Reply(ctx context.Context, turn llm.TurnContext) (string, error)
}

type Options struct {
	TopN       int
	FetchLimit int
	// History is the number of recent messages handed to the responder.
	History int
}

type Deps struct {
	Store      Store
	Calculator *budget.Calculator
	Engine     *matching.Engine
	Source     matching.CandidateSource
	Extractor  Extractor
	Responder  Responder
}

type Service struct {
	deps   Deps
	opts   Options
	logger zerolog.Logger
}

func NewService(deps Deps, opts Options, logger zerolog.Logger) *Service {
	if opts.TopN <= 0 {
		opts.TopN = 3
	}
	if opts.History <= 0 {
		opts.History = 10
	}
	return &Service{
		deps:   deps,
		opts:   opts,
		logger: logger.With().Str("component", "advisor").Logger(),
	}
}

// TurnResult is the outcome of one chat turn. Degraded names the steps that
// failed without failing the turn.
type TurnResult struct {
	Session         domain.Session                `json:"session"`
	Reply           domain.Message                `json:"reply"`
	Envelope        *domain.AffordabilityEnvelope `json:"envelope,omitempty"`
	Recommendations []domain.ScoredRecommendation `json:"recommendations"`
	Degraded        []string                      `json:"degraded,omitempty"`
}

// StartSession creates an empty session and stores the welcome message.
func (s *Service) StartSession(ctx context.Context) (domain.Session, domain.Message, error) {
	sess, err := s.deps.Store.CreateSession(ctx, domain.Session{ID: uuid.NewString()})
	if err != nil {
		return domain.Session{}, domain.Message{}, fmt.Errorf("start session: %w", err)
	}
	msg, err := s.deps.Store.AppendMessage(ctx, domain.Message{
		SessionID: sess.ID,
		Role:      domain.RoleAssistant,
		Content:   welcomeMessage,
	})
	if err != nil {
		return domain.Session{}, domain.Message{}, fmt.Errorf("store welcome message: %w", err)
	}
	logging.Ctx(ctx, s.logger).Info().Str("session_id", sess.ID).Msg("session started")
	return sess, msg, nil
}

// HandleMessage processes one user message. Extraction and candidate
// failures degrade the turn; a reply failure fails it.
func (s *Service) HandleMessage(ctx context.Context, sessionID, text string) (TurnResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return TurnResult{}, domain.Invalid("message is required")
	}
	ctx = logging.ContextWithSessionID(ctx, sessionID)
	log := logging.Ctx(ctx, s.logger)

	sess, err := s.deps.Store.GetSession(ctx, sessionID)
	if err != nil {
		return TurnResult{}, err
	}
	if _, err := s.deps.Store.AppendMessage(ctx, domain.Message{
		SessionID: sessionID,
		Role:      domain.RoleUser,
		Content:   text,
	}); err != nil {
		return TurnResult{}, fmt.Errorf("store user message: %w", err)
	}

	var res TurnResult
	patch, err := s.deps.Extractor.ExtractProfile(ctx, text)
	if err != nil {
		log.Warn().Err(err).Msg("profile extraction failed")
		res.Degraded = append(res.Degraded, "extraction")
		patch = domain.ProfilePatch{}
	}
	sess.Profile = domain.Merge(sess.Profile, patch)

	var (
		explanation string
		unavailable bool
	)
	if sess.Profile.Ready() {
		env := s.deps.Calculator.Compute(sess.Profile.FinancialProfile)
		metrics.BudgetComputations.WithLabelValues(string(sess.Profile.Purpose)).Inc()
		sess.Envelope = &env
		res.Envelope = &env
		explanation = s.deps.Calculator.Explain(sess.Profile.FinancialProfile, env)

		recs, err := s.recommend(ctx, sess.Profile, env, s.opts.TopN)
		if err != nil {
			log.Warn().Err(err).Msg("recommendation failed")
			res.Degraded = append(res.Degraded, "recommendations")
			unavailable = true
		}
		res.Recommendations = recs
	}
	if res.Recommendations == nil {
		res.Recommendations = []domain.ScoredRecommendation{}
	}

	if err := s.deps.Store.UpdateSession(ctx, sess); err != nil {
		return TurnResult{}, fmt.Errorf("update session: %w", err)
	}
	if err := s.deps.Store.SaveRecommendations(ctx, sessionID, res.Recommendations); err != nil {
		return TurnResult{}, fmt.Errorf("save recommendations: %w", err)
	}

	history, err := s.deps.Store.RecentMessages(ctx, sessionID, s.opts.History)
	if err != nil {
		return TurnResult{}, fmt.Errorf("load history: %w", err)
	}
	reply, err := s.deps.Responder.Reply(ctx, llm.TurnContext{
		Profile:                    sess.Profile,
		Envelope:                   sess.Envelope,
		Explanation:                explanation,
		Recommendations:            res.Recommendations,
		RecommendationsUnavailable: unavailable,
		History:                    history,
		UserMessage:                text,
	})
	if err != nil {
		metrics.ChatTurns.WithLabelValues("failed").Inc()
		return TurnResult{}, fmt.Errorf("reply: %w", err)
	}

	msg, err := s.deps.Store.AppendMessage(ctx, domain.Message{
		SessionID: sessionID,
		Role:      domain.RoleAssistant,
		Content:   reply,
		Metadata: domain.MessageMetadata{
			Envelope:        res.Envelope,
			Recommendations: res.Recommendations,
		},
	})
	if err != nil {
		return TurnResult{}, fmt.Errorf("store reply: %w", err)
	}

	outcome := "ok"
	if len(res.Degraded) > 0 {
		outcome = "degraded"
	}
	metrics.ChatTurns.WithLabelValues(outcome).Inc()
	log.Info().
		Bool("ready", sess.Profile.Ready()).
		Int("recommendations", len(res.Recommendations)).
		Strs("degraded", res.Degraded).
		Msg("chat turn handled")

	res.Session = sess
	res.Reply = msg
	return res, nil
}

// Messages returns a session's conversation in order.
func (s *Service) Messages(ctx context.Context, sessionID string) ([]domain.Message, error) {
	if _, err := s.deps.Store.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	return s.deps.Store.ListMessages(ctx, sessionID)
}

func (s *Service) recommend(ctx context.Context, profile domain.ClientProfile, env domain.AffordabilityEnvelope, topN int) ([]domain.ScoredRecommendation, error) {
	start := time.Now()
	recs, err := s.deps.Engine.Recommend(ctx, s.deps.Source, matching.Request{
		Profile:    profile,
		Envelope:   env,
		TopN:       topN,
		FetchLimit: s.opts.FetchLimit,
	})
	if err != nil {
		return nil, err
	}
	metrics.RecordRecommendation(time.Since(start), len(recs))
	for i := range recs {
		recs[i].Description = matching.Describe(recs[i], profile.Purpose)
		if profile.Purpose == domain.PurposeGapInvestment {
			recs[i].Warnings = s.gapWarnings(recs[i].Candidate, profile, env)
		}
	}
	return recs, nil
}

// gapWarnings flags listings whose gap is within budget but whose gap plus
// closing costs is not.
func (s *Service) gapWarnings(c domain.HousingCandidate, profile domain.ClientProfile, env domain.AffordabilityEnvelope) []string {
	gap, ok := c.GapAmount()
	if !ok {
		return nil
	}
	calc := s.deps.Calculator
	if calc.GapInvestmentFeasible(c.SalePrice, c.SalePrice-gap, profile.AvailableCash, env.MaxLoanAmount) {
		return nil
	}
	return []string{fmt.Sprintf("갭과 취득 부대비용(매매가의 %g%%)을 합하면 보유 현금과 대출 한도를 넘어요",
		money.Percent(calc.Policy().ClosingCostRate))}
}
