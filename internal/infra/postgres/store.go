package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"quizlive/internal/domain"
	"github.com/uptrace/bun"
)

type sessionRow struct {
	bun.BaseModel `bun:"table:sessions"`

	ID                string     `bun:"id,pk"`
	Code              string     `bun:"code"`
	QuizID            string     `bun:"quiz_id"`
	HostID            string     `bun:"host_id"`
	Status            string     `bun:"status"`
	CurrentQuestionID string     `bun:"current_question"`
	QuizSnapshot      []byte     `bun:"quiz_snapshot,type:jsonb"`
	CreatedAt         time.Time  `bun:"created_at"`
	StartedAt         *time.Time `bun:"started_at"`
	EndedAt           *time.Time `bun:"ended_at"`
}

type participantRow struct {
	bun.BaseModel `bun:"table:participants"`

	SessionID   string    `bun:"session_id,pk"`
	UserID      string    `bun:"user_id,pk"`
	DisplayName string    `bun:"display_name"`
	Avatar      string    `bun:"avatar"`
	Score       int       `bun:"score"`
	JoinedAt    time.Time `bun:"joined_at"`
}

type answerRow struct {
	bun.BaseModel `bun:"table:answers"`

	SessionID   string    `bun:"session_id,pk"`
	QuestionID  string    `bun:"question_id,pk"`
	UserID      string    `bun:"user_id,pk"`
	Text        string    `bun:"text"`
	SubmittedAt time.Time `bun:"submitted_at"`
	IsCorrect   *bool     `bun:"is_correct"`
	Points      *int      `bun:"points"`
}

// Store is the bun-backed persistence bridge. Each state-machine mutation
// maps to one upsert (or one transaction when a grade also moves a score),
// and hydration reads reconstruct a session entirely from these tables.
type Store struct {
	db *bun.DB
}

func NewStore(db *bun.DB) *Store {
	return &Store{db: db}
}

func (s *Store) CreateSession(ctx context.Context, sess domain.Session, snapshot domain.Quiz) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal quiz snapshot: %w", err)
	}
	row := sessionToRow(sess)
	row.QuizSnapshot = data
	_, err = s.db.NewInsert().Model(&row).Exec(ctx)
	return err
}

func (s *Store) GetSession(ctx context.Context, sessionID string) (domain.Session, domain.Quiz, error) {
	row := sessionRow{}
	err := s.db.NewSelect().Model(&row).Where("id = ?", sessionID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Session{}, domain.Quiz{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return domain.Session{}, domain.Quiz{}, err
	}
	var quiz domain.Quiz
	if err := json.Unmarshal(row.QuizSnapshot, &quiz); err != nil {
		return domain.Session{}, domain.Quiz{}, fmt.Errorf("unmarshal quiz snapshot: %w", err)
	}
	return rowToSession(row), quiz, nil
}

func (s *Store) UpdateSession(ctx context.Context, sess domain.Session) error {
	row := sessionToRow(sess)
	_, err := s.db.NewUpdate().Model(&row).
		Column("status", "current_question", "started_at", "ended_at").
		WherePK().
		Exec(ctx)
	return err
}

func (s *Store) UpsertParticipant(ctx context.Context, sessionID string, p domain.Participant) error {
	row := participantRow{
		SessionID:   sessionID,
		UserID:      p.UserID,
		DisplayName: p.DisplayName,
		Avatar:      p.Avatar,
		Score:       p.Score,
		JoinedAt:    p.JoinedAt,
	}
	_, err := s.db.NewInsert().Model(&row).
		On("CONFLICT (session_id, user_id) DO UPDATE").
		Set("display_name = EXCLUDED.display_name").
		Set("avatar = EXCLUDED.avatar").
		Exec(ctx)
	return err
}

func (s *Store) ListParticipants(ctx context.Context, sessionID string) ([]domain.Participant, error) {
	var rows []participantRow
	err := s.db.NewSelect().Model(&rows).
		Where("session_id = ?", sessionID).
		Order("joined_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Participant, len(rows))
	for i, row := range rows {
		out[i] = domain.Participant{
			UserID:      row.UserID,
			DisplayName: row.DisplayName,
			Avatar:      row.Avatar,
			Score:       row.Score,
			JoinedAt:    row.JoinedAt,
		}
	}
	return out, nil
}

func (s *Store) UpsertAnswer(ctx context.Context, a domain.Answer) error {
	row := answerToRow(a)
	_, err := s.db.NewInsert().Model(&row).
		On("CONFLICT (session_id, question_id, user_id) DO UPDATE").
		Set("text = EXCLUDED.text").
		Set("submitted_at = EXCLUDED.submitted_at").
		Set("is_correct = NULL").
		Set("points = NULL").
		Exec(ctx)
	return err
}

// GradeAnswer writes the verdict and the participant's new total in one
// transaction so the scoreboard can never drift from the graded answers.
func (s *Store) GradeAnswer(ctx context.Context, a domain.Answer, totalScore int) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		row := answerToRow(a)
		res, err := tx.NewUpdate().Model(&row).
			Column("is_correct", "points").
			WherePK().
			Exec(ctx)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return domain.ErrAnswerNotFound
		}
		_, err = tx.NewUpdate().Model((*participantRow)(nil)).
			Set("score = ?", totalScore).
			Where("session_id = ? AND user_id = ?", a.SessionID, a.UserID).
			Exec(ctx)
		return err
	})
}

func (s *Store) ListAnswers(ctx context.Context, sessionID string) ([]domain.Answer, error) {
	var rows []answerRow
	err := s.db.NewSelect().Model(&rows).
		Where("session_id = ?", sessionID).
		Order("question_id ASC", "user_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Answer, len(rows))
	for i, row := range rows {
		out[i] = domain.Answer{
			SessionID:   row.SessionID,
			QuestionID:  row.QuestionID,
			UserID:      row.UserID,
			Text:        row.Text,
			SubmittedAt: row.SubmittedAt,
			IsCorrect:   row.IsCorrect,
			Points:      row.Points,
		}
	}
	return out, nil
}

// ResolveCode finds a session by join code; it backs the Redis code index
// when the cache has no entry (or Redis is not configured).
func (s *Store) ResolveCode(ctx context.Context, code string) (string, error) {
	row := sessionRow{}
	err := s.db.NewSelect().Model(&row).Column("id").Where("code = ?", code).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return "", domain.ErrSessionNotFound
	}
	if err != nil {
		return "", err
	}
	return row.ID, nil
}

func sessionToRow(sess domain.Session) sessionRow {
	return sessionRow{
		ID:                sess.ID,
		Code:              sess.Code,
		QuizID:            sess.QuizID,
		HostID:            sess.HostID,
		Status:            string(sess.Status),
		CurrentQuestionID: sess.CurrentQuestionID,
		CreatedAt:         sess.CreatedAt,
		StartedAt:         sess.StartedAt,
		EndedAt:           sess.EndedAt,
	}
}

func rowToSession(row sessionRow) domain.Session {
	return domain.Session{
		ID:                row.ID,
		Code:              row.Code,
		QuizID:            row.QuizID,
		HostID:            row.HostID,
		Status:            domain.SessionStatus(row.Status),
		CurrentQuestionID: row.CurrentQuestionID,
		CreatedAt:         row.CreatedAt,
		StartedAt:         row.StartedAt,
		EndedAt:           row.EndedAt,
	}
}

func answerToRow(a domain.Answer) answerRow {
	return answerRow{
		SessionID:   a.SessionID,
		QuestionID:  a.QuestionID,
		UserID:      a.UserID,
		Text:        a.Text,
		SubmittedAt: a.SubmittedAt,
		IsCorrect:   a.IsCorrect,
		Points:      a.Points,
	}
}
