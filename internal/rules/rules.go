// Package rules holds the domain decisions: who may do what, which slot and
// venue are winning, and how expenses settle. Everything here is pure
// computation over already-loaded rows, so both the command surface and the
// REST surface share one implementation.
package rules

import (
	"time"

	"toplan/internal/model"
)

type Permission string

const (
	PermVote       Permission = "vote"
	PermAddExpense Permission = "add_expense"
	PermView       Permission = "view"
	PermCloseSlot  Permission = "close_slot"
	PermLockVote   Permission = "lock_vote"
)

// Allowed reports whether the user may perform perm on the event. The event
// creator always has full rights regardless of stored role. Fails closed when
// either side is missing.
func Allowed(user *model.User, event *model.Event, perm Permission) bool {
	if user == nil || event == nil {
		return false
	}
	if event.CreatedBy == user.ID {
		return true
	}
	switch user.Role {
	case model.RoleModerator:
		switch perm {
		case PermVote, PermAddExpense, PermView, PermCloseSlot, PermLockVote:
			return true
		}
	case model.RoleUser:
		switch perm {
		case PermVote, PermAddExpense, PermView:
			return true
		}
	case model.RoleGuest:
		return perm == PermView
	}
	return false
}

type SlotStats struct {
	SlotID     int64     `json:"slot_id"`
	Start      time.Time `json:"start_datetime"`
	End        time.Time `json:"end_datetime"`
	YesVotes   int       `json:"yes_votes"`
	NoVotes    int       `json:"no_votes"`
	TotalVotes int       `json:"total_votes"`
}

type ChoiceStats struct {
	ChoiceID  int64    `json:"choice_id"`
	Text      string   `json:"text"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	Votes     int      `json:"votes"`
}

type Summary struct {
	Event                  *model.Event           `json:"event"`
	Slots                  map[int64]SlotStats    `json:"slots"`
	BestSlot               *SlotStats             `json:"best_slot"`
	PollChoices            map[int64]ChoiceStats  `json:"poll_choices"`
	BestChoice             *ChoiceStats           `json:"best_choice"`
	TiedChoices            []ChoiceStats          `json:"tied_choices"`
	NeedsModeratorDecision bool                   `json:"needs_moderator_decision"`
	Expenses               []model.Expense        `json:"expenses"`
	TotalExpense           float64                `json:"total_expense"`
	ParticipantCount       int                    `json:"participant_count"`
	AveragePerPerson       float64                `json:"average_per_person"`
	Balances               map[string]float64     `json:"balances"`
}

// BuildSummary aggregates votes and expenses into the event summary.
//
// Best slot is a maximum search over an unordered map: among slots tied on
// yes-votes the winner is unspecified. Venue ties are surfaced instead, via
// TiedChoices and NeedsModeratorDecision.
//
// The split is flat-equal. The expense weight column is stored and echoed
// back but deliberately does not scale anyone's share.
func BuildSummary(event *model.Event, slots []model.Slot, slotVotes []model.SlotVote,
	choices []model.PollChoice, pollVotes []model.PollVote, expenses []model.Expense) *Summary {

	s := &Summary{
		Event:       event,
		Slots:       make(map[int64]SlotStats),
		PollChoices: make(map[int64]ChoiceStats),
		Expenses:    expenses,
		Balances:    make(map[string]float64),
	}

	for _, slot := range slots {
		if slot.Status != model.StatusActive {
			continue
		}
		st := SlotStats{SlotID: slot.ID, Start: slot.Start, End: slot.End}
		for _, v := range slotVotes {
			if v.SlotID != slot.ID {
				continue
			}
			switch v.Choice {
			case model.ChoiceYes:
				st.YesVotes++
			case model.ChoiceNo:
				st.NoVotes++
			}
		}
		st.TotalVotes = st.YesVotes + st.NoVotes
		s.Slots[slot.ID] = st
	}

	for id, st := range s.Slots {
		if s.BestSlot == nil || st.YesVotes > s.BestSlot.YesVotes {
			best := s.Slots[id]
			s.BestSlot = &best
		}
	}

	for _, c := range choices {
		cs := ChoiceStats{ChoiceID: c.ID, Text: c.Text, Latitude: c.Latitude, Longitude: c.Longitude}
		for _, v := range pollVotes {
			if v.ChoiceID == c.ID {
				cs.Votes++
			}
		}
		s.PollChoices[c.ID] = cs
	}

	for id, cs := range s.PollChoices {
		if s.BestChoice == nil || cs.Votes > s.BestChoice.Votes {
			best := s.PollChoices[id]
			s.BestChoice = &best
		}
	}

	if s.BestChoice != nil && s.BestChoice.Votes > 0 {
		for _, cs := range s.PollChoices {
			if cs.Votes == s.BestChoice.Votes {
				s.TiedChoices = append(s.TiedChoices, cs)
			}
		}
		s.NeedsModeratorDecision = len(s.TiedChoices) > 1
	}

	paid := make(map[string]float64)
	participants := make(map[string]struct{})
	for _, v := range slotVotes {
		participants[v.UserID] = struct{}{}
	}
	for _, v := range pollVotes {
		participants[v.UserID] = struct{}{}
	}
	for _, e := range expenses {
		participants[e.UserID] = struct{}{}
		paid[e.UserID] += e.Amount
		s.TotalExpense += e.Amount
	}

	s.ParticipantCount = len(participants)
	if s.ParticipantCount > 0 {
		s.AveragePerPerson = s.TotalExpense / float64(s.ParticipantCount)
	}
	for userID := range participants {
		s.Balances[userID] = paid[userID] - s.AveragePerPerson
	}

	return s
}

type Analytics struct {
	EventID             int64   `json:"event_id"`
	EventTitle          string  `json:"event_title"`
	ParticipationRate   float64 `json:"participation_rate"`
	TotalParticipants   int     `json:"total_participants"`
	TotalSlots          int     `json:"total_slots"`
	TotalVotes          int     `json:"total_votes"`
	TotalExpense        float64 `json:"total_expense"`
	ExpenseCount        int     `json:"expense_count"`
	AvgExpensePerPerson float64 `json:"avg_expense_per_person"`
	MostActiveUser      string  `json:"most_active_user"`
	MostActiveExpenses  int     `json:"most_active_user_expenses"`
}

// Analytics derives participation metrics from the summary. The rate is
// votes / (slots x participants) scaled to percent; either factor being zero
// yields 0.
func (s *Summary) Analytics() Analytics {
	a := Analytics{
		TotalSlots:        len(s.Slots),
		TotalParticipants: s.ParticipantCount,
		TotalExpense:      s.TotalExpense,
		ExpenseCount:      len(s.Expenses),
	}
	if s.Event != nil {
		a.EventID = s.Event.ID
		a.EventTitle = s.Event.Title
	}
	for _, st := range s.Slots {
		a.TotalVotes += st.TotalVotes
	}
	if a.TotalSlots > 0 && a.TotalParticipants > 0 {
		a.ParticipationRate = float64(a.TotalVotes) / float64(a.TotalSlots*a.TotalParticipants) * 100
	}
	if a.TotalParticipants > 0 {
		a.AvgExpensePerPerson = s.TotalExpense / float64(a.TotalParticipants)
	}

	counts := make(map[string]int)
	for _, e := range s.Expenses {
		counts[e.UserID]++
	}
	for userID, n := range counts {
		if n > a.MostActiveExpenses {
			a.MostActiveUser = userID
			a.MostActiveExpenses = n
		}
	}
	return a
}
