// Package repotest provides an in-memory Repository for tests. It mirrors the
// Postgres implementation's contracts: vote upserts are last-write-wins under
// the (event, slot, user) / (poll, user) keys, slots come back ordered by
// start time, expenses by insertion order, and the latest active event wins
// per group.
package repotest

import (
	"context"
	"sort"
	"time"

	"toplan/internal/model"
	"toplan/internal/repo"
)

type Memory struct {
	nextID int64

	Users      map[string]*model.User
	Events     []*model.Event
	Slots      []*model.Slot
	SlotVotes  []*model.SlotVote
	Polls      []*model.Poll
	Choices    []*model.PollChoice
	PollVotes  []*model.PollVote
	Expenses   []*model.Expense
}

var _ repo.Repository = (*Memory)(nil)

func New() *Memory {
	return &Memory{Users: make(map[string]*model.User)}
}

func (m *Memory) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *Memory) UpsertUser(_ context.Context, userID, name, role string) error {
	if u, ok := m.Users[userID]; ok {
		if name != "" {
			u.Name = name
		}
		u.LastActive = time.Now()
		return nil
	}
	m.Users[userID] = &model.User{
		ID:         userID,
		Name:       name,
		Role:       role,
		CreatedAt:  time.Now(),
		LastActive: time.Now(),
	}
	return nil
}

func (m *Memory) GetUserByID(_ context.Context, userID string) (*model.User, error) {
	if u, ok := m.Users[userID]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, repo.ErrUserNotFound
}

func (m *Memory) CreateEvent(_ context.Context, title, createdBy, groupID string) (int64, error) {
	e := &model.Event{
		ID:        m.id(),
		Title:     title,
		CreatedBy: createdBy,
		GroupID:   groupID,
		Status:    model.StatusActive,
		CreatedAt: time.Now(),
	}
	m.Events = append(m.Events, e)
	return e.ID, nil
}

func (m *Memory) GetEventByID(_ context.Context, eventID int64) (*model.Event, error) {
	for _, e := range m.Events {
		if e.ID == eventID {
			cp := *e
			return &cp, nil
		}
	}
	return nil, repo.ErrEventNotFound
}

func (m *Memory) GetLatestActiveEvent(_ context.Context, groupID string) (*model.Event, error) {
	for i := len(m.Events) - 1; i >= 0; i-- {
		e := m.Events[i]
		if e.GroupID == groupID && e.Status == model.StatusActive {
			cp := *e
			return &cp, nil
		}
	}
	return nil, repo.ErrEventNotFound
}

func (m *Memory) CloseEvent(_ context.Context, eventID int64) error {
	for _, e := range m.Events {
		if e.ID == eventID {
			e.Status = model.StatusClosed
			return nil
		}
	}
	return repo.ErrEventNotFound
}

func (m *Memory) ListActiveEvents(_ context.Context) ([]model.EventListItem, error) {
	var items []model.EventListItem
	for i := len(m.Events) - 1; i >= 0; i-- {
		e := m.Events[i]
		if e.Status != model.StatusActive {
			continue
		}
		voters := make(map[string]struct{})
		for _, v := range m.SlotVotes {
			if v.EventID == e.ID {
				voters[v.UserID] = struct{}{}
			}
		}
		items = append(items, model.EventListItem{
			ID:               e.ID,
			Title:            e.Title,
			Status:           e.Status,
			CreatedAt:        e.CreatedAt,
			ParticipantCount: len(voters),
		})
	}
	return items, nil
}

func (m *Memory) CreateSlot(_ context.Context, s *model.Slot) (int64, error) {
	cp := *s
	cp.ID = m.id()
	cp.Status = model.StatusActive
	m.Slots = append(m.Slots, &cp)
	return cp.ID, nil
}

func (m *Memory) GetSlotByID(_ context.Context, slotID int64) (*model.Slot, error) {
	for _, s := range m.Slots {
		if s.ID == slotID {
			cp := *s
			return &cp, nil
		}
	}
	return nil, repo.ErrSlotNotFound
}

func (m *Memory) GetActiveSlotsByEvent(_ context.Context, eventID int64) ([]model.Slot, error) {
	var slots []model.Slot
	for _, s := range m.Slots {
		if s.EventID == eventID && s.Status == model.StatusActive {
			slots = append(slots, *s)
		}
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].Start.Before(slots[j].Start) })
	return slots, nil
}

func (m *Memory) CloseSlot(_ context.Context, eventID, slotID int64) error {
	for _, s := range m.Slots {
		if s.ID == slotID && s.EventID == eventID {
			s.Status = model.StatusClosed
			return nil
		}
	}
	return repo.ErrSlotNotFound
}

func (m *Memory) VoteSlot(_ context.Context, eventID, slotID int64, userID, choice string) error {
	for _, v := range m.SlotVotes {
		if v.EventID == eventID && v.SlotID == slotID && v.UserID == userID {
			v.Choice = choice
			v.CreatedAt = time.Now()
			return nil
		}
	}
	m.SlotVotes = append(m.SlotVotes, &model.SlotVote{
		ID:        m.id(),
		EventID:   eventID,
		SlotID:    slotID,
		UserID:    userID,
		Choice:    choice,
		CreatedAt: time.Now(),
	})
	return nil
}

func (m *Memory) GetSlotVotes(_ context.Context, eventID int64) ([]model.SlotVote, error) {
	var votes []model.SlotVote
	for _, v := range m.SlotVotes {
		if v.EventID == eventID {
			votes = append(votes, *v)
		}
	}
	return votes, nil
}

func (m *Memory) CreatePoll(_ context.Context, eventID int64, question string) (int64, error) {
	p := &model.Poll{
		ID:        m.id(),
		EventID:   eventID,
		Question:  question,
		Status:    model.StatusActive,
		CreatedAt: time.Now(),
	}
	m.Polls = append(m.Polls, p)
	return p.ID, nil
}

func (m *Memory) GetActivePollByEvent(_ context.Context, eventID int64) (*model.Poll, error) {
	for i := len(m.Polls) - 1; i >= 0; i-- {
		p := m.Polls[i]
		if p.EventID == eventID && p.Status == model.StatusActive {
			cp := *p
			return &cp, nil
		}
	}
	return nil, repo.ErrPollNotFound
}

func (m *Memory) CreatePollChoice(_ context.Context, pollID int64, text string, lat, lon *float64) (int64, error) {
	c := &model.PollChoice{
		ID:        m.id(),
		PollID:    pollID,
		Text:      text,
		Latitude:  lat,
		Longitude: lon,
		CreatedAt: time.Now(),
	}
	m.Choices = append(m.Choices, c)
	return c.ID, nil
}

func (m *Memory) GetPollChoices(_ context.Context, pollID int64) ([]model.PollChoice, error) {
	var choices []model.PollChoice
	for _, c := range m.Choices {
		if c.PollID == pollID {
			choices = append(choices, *c)
		}
	}
	sort.Slice(choices, func(i, j int) bool { return choices[i].ID < choices[j].ID })
	return choices, nil
}

func (m *Memory) GetChoiceForEvent(_ context.Context, eventID, choiceID int64) (*model.PollChoice, error) {
	polls := make(map[int64]struct{})
	for _, p := range m.Polls {
		if p.EventID == eventID {
			polls[p.ID] = struct{}{}
		}
	}
	for _, c := range m.Choices {
		if c.ID != choiceID {
			continue
		}
		if _, ok := polls[c.PollID]; ok {
			cp := *c
			return &cp, nil
		}
	}
	return nil, repo.ErrChoiceNotFound
}

func (m *Memory) VotePoll(_ context.Context, pollID, choiceID int64, userID string) error {
	for _, v := range m.PollVotes {
		if v.PollID == pollID && v.UserID == userID {
			v.ChoiceID = choiceID
			v.CreatedAt = time.Now()
			return nil
		}
	}
	m.PollVotes = append(m.PollVotes, &model.PollVote{
		ID:        m.id(),
		PollID:    pollID,
		ChoiceID:  choiceID,
		UserID:    userID,
		CreatedAt: time.Now(),
	})
	return nil
}

func (m *Memory) GetPollVotes(_ context.Context, pollID int64) ([]model.PollVote, error) {
	var votes []model.PollVote
	for _, v := range m.PollVotes {
		if v.PollID == pollID {
			votes = append(votes, *v)
		}
	}
	return votes, nil
}

func (m *Memory) CreateExpense(_ context.Context, e *model.Expense) (int64, error) {
	cp := *e
	cp.ID = m.id()
	cp.CreatedAt = time.Now()
	m.Expenses = append(m.Expenses, &cp)
	return cp.ID, nil
}

func (m *Memory) GetExpensesByEvent(_ context.Context, eventID int64) ([]model.Expense, error) {
	var expenses []model.Expense
	for _, e := range m.Expenses {
		if e.EventID == eventID {
			expenses = append(expenses, *e)
		}
	}
	return expenses, nil
}

func (m *Memory) MigrateUp(string) error   { return nil }
func (m *Memory) MigrateDown(string) error { return nil }
