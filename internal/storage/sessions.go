package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/denisok6893-rgb/apartment-advisor/internal/domain"
)

func (s *Store) CreateSession(ctx context.Context, sess domain.Session) (domain.Session, error) {
	if sess.ID == "" {
		return domain.Session{}, domain.Invalid("session id is required")
	}
	profile, err := json.Marshal(sess.Profile)
	if err != nil {
		return domain.Session{}, fmt.Errorf("marshal profile: %w", err)
	}
	now := nowNanos()
	if _, err := s.exec(ctx, s.db, `
INSERT INTO chat_sessions (id, profile_json, envelope_json, created_at, updated_at)
VALUES (?, ?, NULL, ?, ?)`, sess.ID, string(profile), now, now); err != nil {
		return domain.Session{}, fmt.Errorf("create session: %w", err)
	}
	sess.CreatedAt, sess.UpdatedAt = fromNanos(now), fromNanos(now)
	return sess, nil
}

func (s *Store) GetSession(ctx context.Context, id string) (domain.Session, error) {
	var (
		sess                 domain.Session
		profileJSON          string
		envelopeJSON         sql.NullString
		createdAt, updatedAt int64
	)
	err := s.queryRow(ctx, s.db, `
SELECT id, profile_json, envelope_json, created_at, updated_at
FROM chat_sessions WHERE id = ?`, id).Scan(&sess.ID, &profileJSON, &envelopeJSON, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Session{}, fmt.Errorf("session %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Session{}, fmt.Errorf("get session: %w", err)
	}
	if err := json.Unmarshal([]byte(profileJSON), &sess.Profile); err != nil {
		return domain.Session{}, fmt.Errorf("unmarshal profile: %w", err)
	}
	if envelopeJSON.Valid && envelopeJSON.String != "" {
		var env domain.AffordabilityEnvelope
		if err := json.Unmarshal([]byte(envelopeJSON.String), &env); err != nil {
			return domain.Session{}, fmt.Errorf("unmarshal envelope: %w", err)
		}
		sess.Envelope = &env
	}
	sess.CreatedAt, sess.UpdatedAt = fromNanos(createdAt), fromNanos(updatedAt)
	return sess, nil
}

// UpdateSession stores the profile and envelope snapshot of a session.
func (s *Store) UpdateSession(ctx context.Context, sess domain.Session) error {
	profile, err := json.Marshal(sess.Profile)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}
	var envelope sql.NullString
	if sess.Envelope != nil {
		b, err := json.Marshal(sess.Envelope)
		if err != nil {
			return fmt.Errorf("marshal envelope: %w", err)
		}
		envelope = sql.NullString{String: string(b), Valid: true}
	}
	res, err := s.exec(ctx, s.db, `
UPDATE chat_sessions SET profile_json = ?, envelope_json = ?, updated_at = ?
WHERE id = ?`, string(profile), envelope, nowNanos(), sess.ID)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("session %s: %w", sess.ID, domain.ErrNotFound)
	}
	return nil
}

// AppendMessage stores a message and returns it with its id and timestamp.
func (s *Store) AppendMessage(ctx context.Context, m domain.Message) (domain.Message, error) {
	meta, err := json.Marshal(m.Metadata)
	if err != nil {
		return domain.Message{}, fmt.Errorf("marshal metadata: %w", err)
	}
	now := nowNanos()
	err = s.queryRow(ctx, s.db, `
INSERT INTO chat_messages (session_id, role, content, metadata_json, created_at)
VALUES (?, ?, ?, ?, ?)
RETURNING id`, m.SessionID, m.Role, m.Content, string(meta), now).Scan(&m.ID)
	if err != nil {
		return domain.Message{}, fmt.Errorf("append message: %w", err)
	}
	m.CreatedAt = fromNanos(now)
	return m, nil
}

// ListMessages returns the whole conversation in chronological order.
func (s *Store) ListMessages(ctx context.Context, sessionID string) ([]domain.Message, error) {
	return s.listMessages(ctx, `
SELECT id, session_id, role, content, metadata_json, created_at
FROM chat_messages WHERE session_id = ? ORDER BY id`, sessionID)
}

// RecentMessages returns the last n messages in chronological order.
func (s *Store) RecentMessages(ctx context.Context, sessionID string, n int) ([]domain.Message, error) {
	if n <= 0 {
		return []domain.Message{}, nil
	}
	msgs, err := s.listMessages(ctx, `
SELECT id, session_id, role, content, metadata_json, created_at
FROM chat_messages WHERE session_id = ? ORDER BY id DESC LIMIT ?`, sessionID, n)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

func (s *Store) listMessages(ctx context.Context, query string, args ...any) ([]domain.Message, error) {
	rows, err := s.query(ctx, s.db, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	out := []domain.Message{}
	for rows.Next() {
		var (
			m         domain.Message
			meta      string
			createdAt int64
		)
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &meta, &createdAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		if err := json.Unmarshal([]byte(meta), &m.Metadata); err != nil {
			s.logger.Warn().Err(err).Int64("message_id", m.ID).Msg("discarding unreadable message metadata")
			m.Metadata = domain.MessageMetadata{}
		}
		m.CreatedAt = fromNanos(createdAt)
		out = append(out, m)
	}
	return out, rows.Err()
}

// SaveRecommendations appends a ranked list for a session.
func (s *Store) SaveRecommendations(ctx context.Context, sessionID string, recs []domain.ScoredRecommendation) error {
	if len(recs) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	now := nowNanos()
	for _, r := range recs {
		reasons, err := json.Marshal(r.Reasons)
		if err != nil {
			return fmt.Errorf("marshal reasons: %w", err)
		}
		if _, err := s.exec(ctx, tx, `
INSERT INTO recommendations
(session_id, complex_no, price_id, rank_no, tier, score, reasons_json, commute_minutes, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			sessionID, r.Candidate.ComplexNo, r.Candidate.ID, r.Rank, string(r.Tier), r.Score,
			string(reasons), r.CommuteMinutes, now,
		); err != nil {
			return fmt.Errorf("save recommendation: %w", err)
		}
	}
	return tx.Commit()
}

// SavedRecommendation is a persisted ranked item.
type SavedRecommendation struct {
	ComplexNo      int64                `json:"complex_no"`
	PriceID        int64                `json:"price_id"`
	Rank           int                  `json:"rank"`
	Tier           domain.Tier          `json:"tier"`
	Score          float64              `json:"score"`
	Reasons        []domain.ScoreReason `json:"reasons"`
	CommuteMinutes int                  `json:"commute_minutes"`
}

// ListRecommendations returns everything saved for a session, oldest first.
func (s *Store) ListRecommendations(ctx context.Context, sessionID string) ([]SavedRecommendation, error) {
	rows, err := s.query(ctx, s.db, `
SELECT complex_no, price_id, rank_no, tier, score, reasons_json, commute_minutes
FROM recommendations WHERE session_id = ? ORDER BY id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list recommendations: %w", err)
	}
	defer rows.Close()

	var out []SavedRecommendation
	for rows.Next() {
		var (
			r       SavedRecommendation
			tier    string
			reasons string
		)
		if err := rows.Scan(&r.ComplexNo, &r.PriceID, &r.Rank, &tier, &r.Score, &reasons, &r.CommuteMinutes); err != nil {
			return nil, fmt.Errorf("scan recommendation: %w", err)
		}
		r.Tier = domain.Tier(tier)
		if err := json.Unmarshal([]byte(reasons), &r.Reasons); err != nil {
			s.logger.Warn().Err(err).Str("session_id", sessionID).Int("rank", r.Rank).Msg("discarding unreadable recommendation reasons")
			r.Reasons = nil
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
