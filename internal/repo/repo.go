package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/dbpg"

	"toplan/internal/model"
)

var (
	ErrEventNotFound  = errors.New("event not found")
	ErrSlotNotFound   = errors.New("slot not found")
	ErrPollNotFound   = errors.New("poll not found")
	ErrChoiceNotFound = errors.New("poll choice not found")
	ErrUserNotFound   = errors.New("user not found")
)

type Repository interface {
	UpsertUser(ctx context.Context, userID, name, role string) error
	GetUserByID(ctx context.Context, userID string) (*model.User, error)

	CreateEvent(ctx context.Context, title, createdBy, groupID string) (int64, error)
	GetEventByID(ctx context.Context, eventID int64) (*model.Event, error)
	GetLatestActiveEvent(ctx context.Context, groupID string) (*model.Event, error)
	CloseEvent(ctx context.Context, eventID int64) error
	ListActiveEvents(ctx context.Context) ([]model.EventListItem, error)

	CreateSlot(ctx context.Context, s *model.Slot) (int64, error)
	GetSlotByID(ctx context.Context, slotID int64) (*model.Slot, error)
	GetActiveSlotsByEvent(ctx context.Context, eventID int64) ([]model.Slot, error)
	CloseSlot(ctx context.Context, eventID, slotID int64) error
	VoteSlot(ctx context.Context, eventID, slotID int64, userID, choice string) error
	GetSlotVotes(ctx context.Context, eventID int64) ([]model.SlotVote, error)

	CreatePoll(ctx context.Context, eventID int64, question string) (int64, error)
	GetActivePollByEvent(ctx context.Context, eventID int64) (*model.Poll, error)
	CreatePollChoice(ctx context.Context, pollID int64, text string, lat, lon *float64) (int64, error)
	GetPollChoices(ctx context.Context, pollID int64) ([]model.PollChoice, error)
	GetChoiceForEvent(ctx context.Context, eventID, choiceID int64) (*model.PollChoice, error)
	VotePoll(ctx context.Context, pollID, choiceID int64, userID string) error
	GetPollVotes(ctx context.Context, pollID int64) ([]model.PollVote, error)

	CreateExpense(ctx context.Context, e *model.Expense) (int64, error)
	GetExpensesByEvent(ctx context.Context, eventID int64) ([]model.Expense, error)

	MigrateUp(migrationsDir string) error
	MigrateDown(migrationsDir string) error
}

type repository struct {
	db  *dbpg.DB
	log *zerolog.Logger
}

func NewRepository(db *dbpg.DB, log *zerolog.Logger) (Repository, error) {
	if db == nil {
		return nil, fmt.Errorf("db cannot be nil")
	}
	if err := db.Master.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping DB: %w", err)
	}
	return &repository{db: db, log: log}, nil
}

func (r *repository) MigrateUp(migrationsDir string) error {
	files, err := filepath.Glob(filepath.Join(migrationsDir, "*.up.sql"))
	if err != nil {
		return fmt.Errorf("failed to read migration files: %w", err)
	}

	for _, file := range files {
		sqlBytes, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", file, err)
		}

		if _, err := r.db.ExecContext(context.Background(), string(sqlBytes)); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", file, err)
		}
	}

	r.log.Info().Msgf("Migrations applied successfully from %s", migrationsDir)
	return nil
}

func (r *repository) MigrateDown(migrationsDir string) error {
	files, err := filepath.Glob(filepath.Join(migrationsDir, "*.down.sql"))
	if err != nil {
		return fmt.Errorf("failed to read rollback files: %w", err)
	}

	for _, file := range files {
		sqlBytes, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read rollback file %s: %w", file, err)
		}

		if _, err := r.db.ExecContext(context.Background(), string(sqlBytes)); err != nil {
			return fmt.Errorf("failed to rollback migration %s: %w", file, err)
		}
	}

	r.log.Info().Msgf("Migrations rolled back successfully from %s", migrationsDir)
	return nil
}

func (r *repository) UpsertUser(ctx context.Context, userID, name, role string) error {
	query := `
		INSERT INTO users (user_id, name, role, last_active)
		VALUES ($1, NULLIF($2, ''), $3, NOW())
		ON CONFLICT (user_id)
		DO UPDATE SET name = COALESCE(NULLIF(EXCLUDED.name, ''), users.name), last_active = NOW()
	`
	if _, err := r.db.ExecContext(ctx, query, userID, name, role); err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

func (r *repository) GetUserByID(ctx context.Context, userID string) (*model.User, error) {
	query := `
		SELECT user_id, COALESCE(name, ''), role, created_at, COALESCE(last_active, created_at)
		FROM users WHERE user_id = $1
	`
	row := r.db.QueryRowContext(ctx, query, userID)

	var u model.User
	if err := row.Scan(&u.ID, &u.Name, &u.Role, &u.CreatedAt, &u.LastActive); err != nil {
		return nil, ErrUserNotFound
	}
	return &u, nil
}

func (r *repository) CreateEvent(ctx context.Context, title, createdBy, groupID string) (int64, error) {
	query := `
		INSERT INTO events (title, created_by, group_id)
		VALUES ($1, $2, $3)
		RETURNING event_id
	`
	var id int64
	if err := r.db.QueryRowContext(ctx, query, title, createdBy, groupID).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to insert event: %w", err)
	}
	return id, nil
}

func (r *repository) GetEventByID(ctx context.Context, eventID int64) (*model.Event, error) {
	query := `
		SELECT event_id, title, created_by, group_id, status, created_at
		FROM events WHERE event_id = $1
	`
	row := r.db.QueryRowContext(ctx, query, eventID)

	var e model.Event
	if err := row.Scan(&e.ID, &e.Title, &e.CreatedBy, &e.GroupID, &e.Status, &e.CreatedAt); err != nil {
		return nil, ErrEventNotFound
	}
	return &e, nil
}

func (r *repository) GetLatestActiveEvent(ctx context.Context, groupID string) (*model.Event, error) {
	query := `
		SELECT event_id, title, created_by, group_id, status, created_at
		FROM events
		WHERE group_id = $1 AND status = 'active'
		ORDER BY created_at DESC, event_id DESC
		LIMIT 1
	`
	row := r.db.QueryRowContext(ctx, query, groupID)

	var e model.Event
	if err := row.Scan(&e.ID, &e.Title, &e.CreatedBy, &e.GroupID, &e.Status, &e.CreatedAt); err != nil {
		return nil, ErrEventNotFound
	}
	return &e, nil
}

func (r *repository) CloseEvent(ctx context.Context, eventID int64) error {
	query := `UPDATE events SET status = 'closed' WHERE event_id = $1 RETURNING event_id`
	var id int64
	if err := r.db.QueryRowContext(ctx, query, eventID).Scan(&id); err != nil {
		return ErrEventNotFound
	}
	return nil
}

func (r *repository) ListActiveEvents(ctx context.Context) ([]model.EventListItem, error) {
	query := `
		SELECT e.event_id, e.title, e.status, e.created_at,
		       COUNT(DISTINCT sv.user_id) AS participant_count
		FROM events e
		LEFT JOIN slot_votes sv ON e.event_id = sv.event_id
		WHERE e.status = 'active'
		GROUP BY e.event_id, e.title, e.status, e.created_at
		ORDER BY e.created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var items []model.EventListItem
	for rows.Next() {
		var it model.EventListItem
		if err := rows.Scan(&it.ID, &it.Title, &it.Status, &it.CreatedAt, &it.ParticipantCount); err != nil {
			return nil, fmt.Errorf("failed to scan event row: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *repository) CreateSlot(ctx context.Context, s *model.Slot) (int64, error) {
	query := `
		INSERT INTO slots (event_id, start_datetime, end_datetime, created_by)
		VALUES ($1, $2, $3, NULLIF($4, ''))
		RETURNING slot_id
	`
	var id int64
	if err := r.db.QueryRowContext(ctx, query, s.EventID, s.Start, s.End, s.CreatedBy).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to insert slot: %w", err)
	}
	return id, nil
}

func (r *repository) GetSlotByID(ctx context.Context, slotID int64) (*model.Slot, error) {
	query := `
		SELECT slot_id, event_id, start_datetime, end_datetime, status, COALESCE(created_by, '')
		FROM slots WHERE slot_id = $1
	`
	row := r.db.QueryRowContext(ctx, query, slotID)

	var s model.Slot
	if err := row.Scan(&s.ID, &s.EventID, &s.Start, &s.End, &s.Status, &s.CreatedBy); err != nil {
		return nil, ErrSlotNotFound
	}
	return &s, nil
}

func (r *repository) GetActiveSlotsByEvent(ctx context.Context, eventID int64) ([]model.Slot, error) {
	query := `
		SELECT slot_id, event_id, start_datetime, end_datetime, status, COALESCE(created_by, '')
		FROM slots
		WHERE event_id = $1 AND status = 'active'
		ORDER BY start_datetime
	`
	rows, err := r.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get slots: %w", err)
	}
	defer rows.Close()

	var slots []model.Slot
	for rows.Next() {
		var s model.Slot
		if err := rows.Scan(&s.ID, &s.EventID, &s.Start, &s.End, &s.Status, &s.CreatedBy); err != nil {
			return nil, fmt.Errorf("failed to scan slot: %w", err)
		}
		slots = append(slots, s)
	}
	return slots, rows.Err()
}

// CloseSlot flips the slot status; the update is scoped by event id so a slot
// id from another event is a no-op, reported as ErrSlotNotFound.
func (r *repository) CloseSlot(ctx context.Context, eventID, slotID int64) error {
	query := `
		UPDATE slots SET status = 'closed'
		WHERE slot_id = $1 AND event_id = $2
		RETURNING slot_id
	`
	var id int64
	if err := r.db.QueryRowContext(ctx, query, slotID, eventID).Scan(&id); err != nil {
		return ErrSlotNotFound
	}
	return nil
}

// VoteSlot upserts the (event, slot, user) vote in one statement; concurrent
// votes from the same user resolve to last-write-wins under the unique
// constraint.
func (r *repository) VoteSlot(ctx context.Context, eventID, slotID int64, userID, choice string) error {
	query := `
		INSERT INTO slot_votes (event_id, slot_id, user_id, choice)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (event_id, slot_id, user_id)
		DO UPDATE SET choice = EXCLUDED.choice, created_at = NOW()
	`
	if _, err := r.db.ExecContext(ctx, query, eventID, slotID, userID, choice); err != nil {
		return fmt.Errorf("failed to upsert slot vote: %w", err)
	}
	return nil
}

func (r *repository) GetSlotVotes(ctx context.Context, eventID int64) ([]model.SlotVote, error) {
	query := `
		SELECT vote_id, event_id, slot_id, user_id, choice, created_at
		FROM slot_votes
		WHERE event_id = $1
	`
	rows, err := r.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get slot votes: %w", err)
	}
	defer rows.Close()

	var votes []model.SlotVote
	for rows.Next() {
		var v model.SlotVote
		if err := rows.Scan(&v.ID, &v.EventID, &v.SlotID, &v.UserID, &v.Choice, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan slot vote: %w", err)
		}
		votes = append(votes, v)
	}
	return votes, rows.Err()
}

func (r *repository) CreatePoll(ctx context.Context, eventID int64, question string) (int64, error) {
	query := `
		INSERT INTO polls (event_id, question)
		VALUES ($1, $2)
		RETURNING poll_id
	`
	var id int64
	if err := r.db.QueryRowContext(ctx, query, eventID, question).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to insert poll: %w", err)
	}
	return id, nil
}

func (r *repository) GetActivePollByEvent(ctx context.Context, eventID int64) (*model.Poll, error) {
	query := `
		SELECT poll_id, event_id, question, status, created_at
		FROM polls
		WHERE event_id = $1 AND status = 'active'
		ORDER BY created_at DESC, poll_id DESC
		LIMIT 1
	`
	row := r.db.QueryRowContext(ctx, query, eventID)

	var p model.Poll
	if err := row.Scan(&p.ID, &p.EventID, &p.Question, &p.Status, &p.CreatedAt); err != nil {
		return nil, ErrPollNotFound
	}
	return &p, nil
}

func (r *repository) CreatePollChoice(ctx context.Context, pollID int64, text string, lat, lon *float64) (int64, error) {
	query := `
		INSERT INTO poll_choices (poll_id, text, latitude, longitude)
		VALUES ($1, $2, $3, $4)
		RETURNING choice_id
	`
	var id int64
	if err := r.db.QueryRowContext(ctx, query, pollID, text, lat, lon).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to insert poll choice: %w", err)
	}
	return id, nil
}

func (r *repository) GetPollChoices(ctx context.Context, pollID int64) ([]model.PollChoice, error) {
	query := `
		SELECT choice_id, poll_id, text, latitude, longitude, created_at
		FROM poll_choices
		WHERE poll_id = $1
		ORDER BY choice_id
	`
	rows, err := r.db.QueryContext(ctx, query, pollID)
	if err != nil {
		return nil, fmt.Errorf("failed to get poll choices: %w", err)
	}
	defer rows.Close()

	var choices []model.PollChoice
	for rows.Next() {
		c, err := scanChoice(rows)
		if err != nil {
			return nil, err
		}
		choices = append(choices, *c)
	}
	return choices, rows.Err()
}

func (r *repository) GetChoiceForEvent(ctx context.Context, eventID, choiceID int64) (*model.PollChoice, error) {
	query := `
		SELECT c.choice_id, c.poll_id, c.text, c.latitude, c.longitude, c.created_at
		FROM poll_choices c
		WHERE c.choice_id = $1 AND c.poll_id IN (
			SELECT poll_id FROM polls WHERE event_id = $2
		)
	`
	rows, err := r.db.QueryContext(ctx, query, choiceID, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get poll choice: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, ErrChoiceNotFound
	}
	return scanChoice(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChoice(row rowScanner) (*model.PollChoice, error) {
	var (
		c        model.PollChoice
		lat, lon sql.NullFloat64
	)
	if err := row.Scan(&c.ID, &c.PollID, &c.Text, &lat, &lon, &c.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to scan poll choice: %w", err)
	}
	if lat.Valid {
		c.Latitude = &lat.Float64
	}
	if lon.Valid {
		c.Longitude = &lon.Float64
	}
	return &c, nil
}

// VotePoll upserts the user's single vote for the poll; re-voting replaces
// the previous choice selection rather than adding a row.
func (r *repository) VotePoll(ctx context.Context, pollID, choiceID int64, userID string) error {
	query := `
		INSERT INTO poll_votes (poll_id, choice_id, user_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (poll_id, user_id)
		DO UPDATE SET choice_id = EXCLUDED.choice_id, created_at = NOW()
	`
	if _, err := r.db.ExecContext(ctx, query, pollID, choiceID, userID); err != nil {
		return fmt.Errorf("failed to upsert poll vote: %w", err)
	}
	return nil
}

func (r *repository) GetPollVotes(ctx context.Context, pollID int64) ([]model.PollVote, error) {
	query := `
		SELECT vote_id, poll_id, choice_id, user_id, created_at
		FROM poll_votes
		WHERE poll_id = $1
	`
	rows, err := r.db.QueryContext(ctx, query, pollID)
	if err != nil {
		return nil, fmt.Errorf("failed to get poll votes: %w", err)
	}
	defer rows.Close()

	var votes []model.PollVote
	for rows.Next() {
		var v model.PollVote
		if err := rows.Scan(&v.ID, &v.PollID, &v.ChoiceID, &v.UserID, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan poll vote: %w", err)
		}
		votes = append(votes, v)
	}
	return votes, rows.Err()
}

func (r *repository) CreateExpense(ctx context.Context, e *model.Expense) (int64, error) {
	query := `
		INSERT INTO expenses (event_id, user_id, amount, notes, weight)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING expense_id
	`
	var id int64
	if err := r.db.QueryRowContext(ctx, query, e.EventID, e.UserID, e.Amount, e.Notes, e.Weight).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to insert expense: %w", err)
	}
	return id, nil
}

func (r *repository) GetExpensesByEvent(ctx context.Context, eventID int64) ([]model.Expense, error) {
	query := `
		SELECT expense_id, event_id, user_id, amount, COALESCE(notes, ''), weight, created_at
		FROM expenses
		WHERE event_id = $1
		ORDER BY created_at
	`
	rows, err := r.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get expenses: %w", err)
	}
	defer rows.Close()

	var expenses []model.Expense
	for rows.Next() {
		var e model.Expense
		if err := rows.Scan(&e.ID, &e.EventID, &e.UserID, &e.Amount, &e.Notes, &e.Weight, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}
