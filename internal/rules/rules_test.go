package rules

import (
	"math"
	"testing"
	"time"

	"toplan/internal/model"
)

func activeSlot(id int64) model.Slot {
	start := time.Date(2025, 10, 12, 18, 0, 0, 0, time.UTC)
	return model.Slot{ID: id, EventID: 1, Start: start, End: start.Add(2 * time.Hour), Status: model.StatusActive}
}

func yesVotes(slotID int64, users ...string) []model.SlotVote {
	votes := make([]model.SlotVote, 0, len(users))
	for _, u := range users {
		votes = append(votes, model.SlotVote{EventID: 1, SlotID: slotID, UserID: u, Choice: model.ChoiceYes})
	}
	return votes
}

func TestAllowed(t *testing.T) {
	event := &model.Event{ID: 1, CreatedBy: "owner", Status: model.StatusActive}

	tests := []struct {
		name string
		user *model.User
		perm Permission
		want bool
	}{
		{"owner has full rights", &model.User{ID: "owner", Role: model.RoleGuest}, PermCloseSlot, true},
		{"moderator closes slots", &model.User{ID: "m1", Role: model.RoleModerator}, PermCloseSlot, true},
		{"moderator locks votes", &model.User{ID: "m1", Role: model.RoleModerator}, PermLockVote, true},
		{"user votes", &model.User{ID: "u1", Role: model.RoleUser}, PermVote, true},
		{"user adds expense", &model.User{ID: "u1", Role: model.RoleUser}, PermAddExpense, true},
		{"user cannot close slot", &model.User{ID: "u1", Role: model.RoleUser}, PermCloseSlot, false},
		{"guest views only", &model.User{ID: "g1", Role: model.RoleGuest}, PermView, true},
		{"guest cannot vote", &model.User{ID: "g1", Role: model.RoleGuest}, PermVote, false},
		{"unknown role denied", &model.User{ID: "x", Role: "alien"}, PermView, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Allowed(tt.user, event, tt.perm); got != tt.want {
				t.Errorf("Allowed(%s, %s) = %v, want %v", tt.user.Role, tt.perm, got, tt.want)
			}
		})
	}

	if Allowed(nil, event, PermView) {
		t.Error("nil user must fail closed")
	}
	if Allowed(&model.User{ID: "u1", Role: model.RoleUser}, nil, PermView) {
		t.Error("nil event must fail closed")
	}
}

func TestBestSlotPicksHighestYesCount(t *testing.T) {
	event := &model.Event{ID: 1, Title: "Pikning", Status: model.StatusActive}
	slots := []model.Slot{activeSlot(1), activeSlot(2), activeSlot(3), activeSlot(4)}

	// yes counts: 3, 5, 5, 1
	var votes []model.SlotVote
	votes = append(votes, yesVotes(1, "a", "b", "c")...)
	votes = append(votes, yesVotes(2, "a", "b", "c", "d", "e")...)
	votes = append(votes, yesVotes(3, "a", "b", "c", "d", "e")...)
	votes = append(votes, yesVotes(4, "a")...)

	s := BuildSummary(event, slots, votes, nil, nil, nil)
	if s.BestSlot == nil {
		t.Fatal("expected a best slot")
	}
	// Slots 2 and 3 tie at 5; the tie policy is deliberately unspecified, so
	// only the winning count is asserted.
	if s.BestSlot.YesVotes != 5 {
		t.Errorf("best slot yes votes: got %d, want 5", s.BestSlot.YesVotes)
	}
	if s.BestSlot.SlotID != 2 && s.BestSlot.SlotID != 3 {
		t.Errorf("best slot id: got %d, want 2 or 3", s.BestSlot.SlotID)
	}
}

func TestBestSlotIgnoresClosedSlots(t *testing.T) {
	event := &model.Event{ID: 1, Status: model.StatusActive}
	closed := activeSlot(1)
	closed.Status = model.StatusClosed
	slots := []model.Slot{closed, activeSlot(2)}
	votes := append(yesVotes(1, "a", "b", "c"), yesVotes(2, "a")...)

	s := BuildSummary(event, slots, votes, nil, nil, nil)
	if len(s.Slots) != 1 {
		t.Fatalf("expected 1 active slot in stats, got %d", len(s.Slots))
	}
	if s.BestSlot == nil || s.BestSlot.SlotID != 2 {
		t.Errorf("closed slot must not win: got %+v", s.BestSlot)
	}
}

func TestExpenseBalances(t *testing.T) {
	event := &model.Event{ID: 1, Status: model.StatusActive}
	slots := []model.Slot{activeSlot(1)}
	votes := []model.SlotVote{
		{SlotID: 1, UserID: "A", Choice: model.ChoiceYes},
		{SlotID: 1, UserID: "B", Choice: model.ChoiceYes},
		{SlotID: 1, UserID: "C", Choice: model.ChoiceNo},
	}
	expenses := []model.Expense{
		{EventID: 1, UserID: "A", Amount: 300, Weight: 1.0},
	}

	s := BuildSummary(event, slots, votes, nil, nil, expenses)

	if s.TotalExpense != 300 {
		t.Errorf("total expense: got %v, want 300", s.TotalExpense)
	}
	if s.ParticipantCount != 3 {
		t.Fatalf("participant count: got %d, want 3", s.ParticipantCount)
	}
	if s.AveragePerPerson != 100 {
		t.Errorf("average per person: got %v, want 100", s.AveragePerPerson)
	}

	want := map[string]float64{"A": 200, "B": -100, "C": -100}
	for userID, wantBal := range want {
		if got := s.Balances[userID]; math.Abs(got-wantBal) > 1e-9 {
			t.Errorf("balance[%s]: got %v, want %v", userID, got, wantBal)
		}
	}

	var sum float64
	for _, b := range s.Balances {
		sum += b
	}
	if math.Abs(sum) > 1e-9 {
		t.Errorf("balances must sum to zero, got %v", sum)
	}
}

func TestWeightDoesNotScaleSplit(t *testing.T) {
	event := &model.Event{ID: 1, Status: model.StatusActive}
	expenses := []model.Expense{
		{UserID: "A", Amount: 100, Weight: 3.0},
		{UserID: "B", Amount: 100, Weight: 1.0},
	}

	s := BuildSummary(event, nil, nil, nil, nil, expenses)
	if s.AveragePerPerson != 100 {
		t.Errorf("split must stay flat-equal regardless of weight: got %v", s.AveragePerPerson)
	}
	if s.Balances["A"] != 0 || s.Balances["B"] != 0 {
		t.Errorf("equal payers must balance at zero: %+v", s.Balances)
	}
}

func TestNeedsModeratorDecision(t *testing.T) {
	event := &model.Event{ID: 1, Status: model.StatusActive}
	choices := []model.PollChoice{
		{ID: 1, PollID: 1, Text: "Pizza Palace"},
		{ID: 2, PollID: 1, Text: "Ek Bina Kafe"},
		{ID: 3, PollID: 1, Text: "Kutuphane"},
	}

	tests := []struct {
		name      string
		votes     []model.PollVote
		want      bool
		tiedCount int
	}{
		{
			"unique maximum",
			[]model.PollVote{
				{PollID: 1, ChoiceID: 1, UserID: "a"},
				{PollID: 1, ChoiceID: 1, UserID: "b"},
				{PollID: 1, ChoiceID: 2, UserID: "c"},
			},
			false, 1,
		},
		{
			"two-way tie",
			[]model.PollVote{
				{PollID: 1, ChoiceID: 1, UserID: "a"},
				{PollID: 1, ChoiceID: 2, UserID: "b"},
			},
			true, 2,
		},
		{
			"no votes at all",
			nil,
			false, 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := BuildSummary(event, nil, nil, choices, tt.votes, nil)
			if s.NeedsModeratorDecision != tt.want {
				t.Errorf("needs_moderator_decision: got %v, want %v", s.NeedsModeratorDecision, tt.want)
			}
			if len(s.TiedChoices) != tt.tiedCount {
				t.Errorf("tied choices: got %d, want %d", len(s.TiedChoices), tt.tiedCount)
			}
		})
	}
}

func TestAnalyticsParticipationRate(t *testing.T) {
	event := &model.Event{ID: 1, Title: "Pikning", Status: model.StatusActive}
	slots := []model.Slot{activeSlot(1), activeSlot(2)}
	votes := []model.SlotVote{
		{SlotID: 1, UserID: "a", Choice: model.ChoiceYes},
		{SlotID: 1, UserID: "b", Choice: model.ChoiceNo},
		{SlotID: 2, UserID: "a", Choice: model.ChoiceYes},
	}

	a := BuildSummary(event, slots, votes, nil, nil, nil).Analytics()
	// 3 votes / (2 slots * 2 participants) = 75%
	if math.Abs(a.ParticipationRate-75) > 1e-9 {
		t.Errorf("participation rate: got %v, want 75", a.ParticipationRate)
	}
	if a.TotalVotes != 3 {
		t.Errorf("total votes: got %d, want 3", a.TotalVotes)
	}
}

func TestAnalyticsZeroDenominators(t *testing.T) {
	event := &model.Event{ID: 1, Status: model.StatusActive}

	noSlots := BuildSummary(event, nil, nil, nil, nil, []model.Expense{{UserID: "a", Amount: 10}}).Analytics()
	if noSlots.ParticipationRate != 0 {
		t.Errorf("no slots: rate must be 0, got %v", noSlots.ParticipationRate)
	}

	noParticipants := BuildSummary(event, []model.Slot{activeSlot(1)}, nil, nil, nil, nil).Analytics()
	if noParticipants.ParticipationRate != 0 {
		t.Errorf("no participants: rate must be 0, got %v", noParticipants.ParticipationRate)
	}
}

func TestAnalyticsMostActivePayer(t *testing.T) {
	event := &model.Event{ID: 1, Status: model.StatusActive}
	expenses := []model.Expense{
		{UserID: "a", Amount: 10},
		{UserID: "b", Amount: 5},
		{UserID: "b", Amount: 7},
	}

	a := BuildSummary(event, nil, nil, nil, nil, expenses).Analytics()
	if a.MostActiveUser != "b" || a.MostActiveExpenses != 2 {
		t.Errorf("most active payer: got %s (%d), want b (2)", a.MostActiveUser, a.MostActiveExpenses)
	}
}
