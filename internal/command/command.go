// Package command implements the group-chat command surface. Every inbound
// webhook message lands in Handler.Handle, which resolves the acting user and
// the group's latest active event, dispatches on the command verb and returns
// the reply text for the group.
package command

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"toplan/internal/invite"
	"toplan/internal/model"
	"toplan/internal/ratelimit"
	"toplan/internal/reminder"
	"toplan/internal/repo"
	"toplan/internal/rules"
)

// ErrRateLimited is returned when the user is still inside the command
// cooldown. The transport layer maps it to HTTP 429.
var ErrRateLimited = errors.New("rate limited")

const (
	datetimeLayout = "2006-01-02 15:04"
	timeLayout     = "15:04"
)

type Handler struct {
	repo      repo.Repository
	limiter   *ratelimit.Limiter
	scheduler reminder.Scheduler
	invites   *invite.Generator
	log       *zerolog.Logger
	now       func() time.Time
}

func NewHandler(r repo.Repository, limiter *ratelimit.Limiter, scheduler reminder.Scheduler,
	invites *invite.Generator, log *zerolog.Logger) *Handler {
	return &Handler{
		repo:      r,
		limiter:   limiter,
		scheduler: scheduler,
		invites:   invites,
		log:       log,
		now:       time.Now,
	}
}

// Cooldown exposes the limiter window so the transport layer can name it in
// the throttle reply.
func (h *Handler) Cooldown() time.Duration {
	return h.limiter.Cooldown()
}

// Handle processes one chat message and returns the bot reply text. Domain
// failures come back as reply text, not as errors: the bot always answers the
// group. The only error is ErrRateLimited.
func (h *Handler) Handle(ctx context.Context, userID, groupID, message string) (string, error) {
	if !h.limiter.Allow(userID) {
		return "", ErrRateLimited
	}

	h.log.Info().
		Str("user_id", userID).
		Str("group_id", groupID).
		Str("message", message).
		Msg("webhook command received")

	if err := h.repo.UpsertUser(ctx, userID, "", model.RoleUser); err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("failed to upsert user")
	}

	message = strings.TrimSpace(message)
	fields := strings.Fields(message)
	if len(fields) == 0 {
		return fmt.Sprintf("Bilinmeyen komut: %s", message), nil
	}

	switch fields[0] {
	case "/yeni":
		return h.createEvent(ctx, userID, groupID, message), nil
	case "/slot_kapat":
		return h.closeSlot(ctx, userID, groupID, fields), nil
	case "/slot":
		return h.addSlot(ctx, userID, groupID, fields), nil
	case "/katil":
		return h.voteSlot(ctx, userID, groupID, fields), nil
	case "/mekan":
		return h.addVenue(ctx, groupID, fields), nil
	case "/oy_mekan":
		return h.voteVenue(ctx, userID, groupID, fields), nil
	case "/gider":
		return h.addExpense(ctx, userID, groupID, message), nil
	case "/ozet":
		return h.summary(ctx, groupID), nil
	case "/davet":
		return h.inviteLink(ctx, groupID), nil
	case "/analitik":
		return h.analytics(ctx, groupID), nil
	case "/konum":
		return h.location(ctx, groupID, fields), nil
	case "/test":
		return "Bot calisiyor! Veritabani aktif. Test basarili.", nil
	default:
		return fmt.Sprintf("Bilinmeyen komut: %s", message), nil
	}
}

func (h *Handler) latestEvent(ctx context.Context, groupID string) (*model.Event, bool) {
	event, err := h.repo.GetLatestActiveEvent(ctx, groupID)
	if err != nil {
		if !errors.Is(err, repo.ErrEventNotFound) {
			h.log.Error().Err(err).Str("group_id", groupID).Msg("failed to resolve latest event")
		}
		return nil, false
	}
	return event, true
}

func (h *Handler) createEvent(ctx context.Context, userID, groupID, message string) string {
	title := strings.TrimSpace(strings.TrimPrefix(message, "/yeni"))
	if title == "" {
		return "Kullanim: /yeni ETKINLIK_ADI"
	}

	eventID, err := h.repo.CreateEvent(ctx, title, userID, groupID)
	if err != nil {
		h.log.Error().Err(err).Str("group_id", groupID).Msg("failed to create event")
		return "Etkinlik olusturulurken hata olustu."
	}
	return fmt.Sprintf("Etkinlik olusturuldu: %s (ID: %d)", title, eventID)
}

func (h *Handler) addSlot(ctx context.Context, userID, groupID string, fields []string) string {
	if len(fields) < 3 {
		return "Kullanim: /slot YYYY-MM-DD HH:MM-HH:MM"
	}

	datePart, timePart := fields[1], fields[2]
	startStr, endStr, ok := strings.Cut(timePart, "-")
	if !ok {
		return "Tarih/saat formati yanlis. Ornek: /slot 2025-10-12 18:00-20:00"
	}

	loc := h.now().Location()
	start, err := time.ParseInLocation(datetimeLayout, datePart+" "+startStr, loc)
	if err != nil {
		return "Tarih/saat formati yanlis. Ornek: /slot 2025-10-12 18:00-20:00"
	}
	end, err := time.ParseInLocation(datetimeLayout, datePart+" "+endStr, loc)
	if err != nil {
		return "Tarih/saat formati yanlis. Ornek: /slot 2025-10-12 18:00-20:00"
	}

	now := h.now()
	if start.Before(now) {
		return "Gecmis tarih secilemez."
	}
	if !start.Before(end) {
		return "Baslangic saati bitis saatinden once olmali."
	}

	event, ok := h.latestEvent(ctx, groupID)
	if !ok {
		return "Once etkinlik olusturun."
	}

	slotID, err := h.repo.CreateSlot(ctx, &model.Slot{
		EventID:   event.ID,
		Start:     start,
		End:       end,
		CreatedBy: userID,
	})
	if err != nil {
		h.log.Error().Err(err).Int64("event_id", event.ID).Msg("failed to create slot")
		return "Slot eklenirken hata olustu."
	}

	h.scheduleReminders(event.ID, groupID, start, now)

	return fmt.Sprintf("Slot eklendi: %s - %s (ID: %d)",
		start.Format(datetimeLayout), end.Format(timeLayout), slotID)
}

// scheduleReminders queues the 24h and 1h tiers. Tiers already in the past
// are skipped by the scheduler.
func (h *Handler) scheduleReminders(eventID int64, groupID string, start, now time.Time) {
	until := start.Sub(now)
	for _, tier := range []time.Duration{24 * time.Hour, time.Hour} {
		hours := int(tier.Hours())
		msg := fmt.Sprintf("Etkinlik %d icin %d saat kaldi!", eventID, hours)
		if err := h.scheduler.Schedule(eventID, groupID, until-tier, msg); err != nil {
			h.log.Error().Err(err).Int64("event_id", eventID).Msg("failed to schedule reminder")
		}
	}
}

func (h *Handler) closeSlot(ctx context.Context, userID, groupID string, fields []string) string {
	if len(fields) < 2 {
		return "Kullanim: /slot_kapat SLOT_ID"
	}
	slotID, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return "Kullanim: /slot_kapat SLOT_ID"
	}

	event, ok := h.latestEvent(ctx, groupID)
	if !ok {
		return "Etkinlik yok!"
	}

	user, err := h.repo.GetUserByID(ctx, userID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("failed to load user")
		return "Slot kapatilirken hata olustu."
	}
	if !rules.Allowed(user, event, rules.PermCloseSlot) {
		return "Bu islemi sadece moderator yapabilir."
	}

	if err := h.repo.CloseSlot(ctx, event.ID, slotID); err != nil {
		if errors.Is(err, repo.ErrSlotNotFound) {
			return fmt.Sprintf("Slot %d bulunamadi.", slotID)
		}
		h.log.Error().Err(err).Int64("slot_id", slotID).Msg("failed to close slot")
		return "Slot kapatilirken hata olustu."
	}
	return fmt.Sprintf("Slot %d kapatildi.", slotID)
}

func (h *Handler) voteSlot(ctx context.Context, userID, groupID string, fields []string) string {
	if len(fields) < 3 || !strings.HasPrefix(fields[1], "slot=") {
		return "Kullanim: /katil slot=1 yes/no"
	}

	choice := fields[2]
	if choice != model.ChoiceYes && choice != model.ChoiceNo {
		return "Choice: yes veya no"
	}

	slotID, err := strconv.ParseInt(strings.TrimPrefix(fields[1], "slot="), 10, 64)
	if err != nil {
		return "Kullanim: /katil slot=1 yes/no"
	}

	event, ok := h.latestEvent(ctx, groupID)
	if !ok {
		return "Etkinlik yok!"
	}

	if err := h.repo.VoteSlot(ctx, event.ID, slotID, userID, choice); err != nil {
		h.log.Error().Err(err).Int64("slot_id", slotID).Msg("failed to record slot vote")
		return "Oy verilirken hata olustu."
	}
	return fmt.Sprintf("Slot %d icin oy: %s", slotID, choice)
}

func (h *Handler) addVenue(ctx context.Context, groupID string, fields []string) string {
	if len(fields) < 2 {
		return "Kullanim: /mekan MEKAN_ADI [enlem boylam]"
	}

	name := fields[1]
	var lat, lon *float64
	if len(fields) == 4 {
		latVal, err1 := strconv.ParseFloat(fields[2], 64)
		lonVal, err2 := strconv.ParseFloat(fields[3], 64)
		if err1 != nil || err2 != nil {
			return "Kullanim: /mekan MEKAN_ADI [enlem boylam]"
		}
		lat, lon = &latVal, &lonVal
	}

	event, ok := h.latestEvent(ctx, groupID)
	if !ok {
		return "Once etkinlik olusturun."
	}

	poll, err := h.repo.GetActivePollByEvent(ctx, event.ID)
	var pollID int64
	switch {
	case err == nil:
		pollID = poll.ID
	case errors.Is(err, repo.ErrPollNotFound):
		pollID, err = h.repo.CreatePoll(ctx, event.ID, "Mekan secimi")
		if err != nil {
			h.log.Error().Err(err).Int64("event_id", event.ID).Msg("failed to create venue poll")
			return "Mekan eklenirken hata olustu."
		}
	default:
		h.log.Error().Err(err).Int64("event_id", event.ID).Msg("failed to load venue poll")
		return "Mekan eklenirken hata olustu."
	}

	choiceID, err := h.repo.CreatePollChoice(ctx, pollID, name, lat, lon)
	if err != nil {
		h.log.Error().Err(err).Int64("poll_id", pollID).Msg("failed to create venue choice")
		return "Mekan eklenirken hata olustu."
	}

	msg := fmt.Sprintf("Mekan eklendi: %s (ID: %d)", name, choiceID)
	if lat != nil && lon != nil {
		msg += fmt.Sprintf(" (%g, %g)", *lat, *lon)
	}
	return msg
}

func (h *Handler) voteVenue(ctx context.Context, userID, groupID string, fields []string) string {
	if len(fields) < 2 {
		return "Kullanim: /oy_mekan CHOICE_ID"
	}
	choiceID, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return "Kullanim: /oy_mekan CHOICE_ID"
	}

	event, ok := h.latestEvent(ctx, groupID)
	if !ok {
		return "Etkinlik yok!"
	}

	poll, err := h.repo.GetActivePollByEvent(ctx, event.ID)
	if err != nil {
		if errors.Is(err, repo.ErrPollNotFound) {
			return "Mekan anketi yok!"
		}
		h.log.Error().Err(err).Int64("event_id", event.ID).Msg("failed to load venue poll")
		return "Oy verilirken hata olustu."
	}

	if err := h.repo.VotePoll(ctx, poll.ID, choiceID, userID); err != nil {
		h.log.Error().Err(err).Int64("choice_id", choiceID).Msg("failed to record venue vote")
		return "Oy verilirken hata olustu."
	}
	return fmt.Sprintf("Mekan icin oy verildi: %d", choiceID)
}

func (h *Handler) addExpense(ctx context.Context, userID, groupID, message string) string {
	// Split off at most the verb and the amount so quoted notes keep their
	// spaces: /gider 150 "Pizza siparisi" 2
	parts := strings.SplitN(message, " ", 3)
	if len(parts) < 3 {
		return "Kullanim: /gider TUTAR \"Aciklama\" [agirlik]"
	}

	amount, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return "Kullanim: /gider TUTAR \"Aciklama\" [agirlik]"
	}

	notes, weight, ok := parseNotes(strings.TrimSpace(parts[2]))
	if !ok {
		return "Aciklama tirnak icinde olmali."
	}

	event, exists := h.latestEvent(ctx, groupID)
	if !exists {
		return "Once etkinlik olusturun."
	}

	expenseID, err := h.repo.CreateExpense(ctx, &model.Expense{
		EventID: event.ID,
		UserID:  userID,
		Amount:  amount,
		Notes:   notes,
		Weight:  weight,
	})
	if err != nil {
		h.log.Error().Err(err).Int64("event_id", event.ID).Msg("failed to create expense")
		return "Gider eklenirken hata olustu."
	}
	return fmt.Sprintf("Gider eklendi: %g TL, Not: %s, Agirlik: %g (ID: %d)", amount, notes, weight, expenseID)
}

// parseNotes splits the tail of /gider into the note text and the optional
// trailing weight. Quoted notes may contain spaces; an unterminated quote is
// an error. Unquoted notes take the whole tail with weight 1.
func parseNotes(rest string) (notes string, weight float64, ok bool) {
	weight = 1.0
	if !strings.HasPrefix(rest, `"`) {
		return rest, weight, true
	}

	end := strings.Index(rest[1:], `"`)
	if end == -1 {
		return "", 0, false
	}
	notes = rest[1 : end+1]

	tail := strings.TrimSpace(rest[end+2:])
	if tail != "" {
		w, err := strconv.ParseFloat(tail, 64)
		if err != nil {
			return "", 0, false
		}
		weight = w
	}
	return notes, weight, true
}

func (h *Handler) buildSummary(ctx context.Context, event *model.Event) (*rules.Summary, error) {
	slots, err := h.repo.GetActiveSlotsByEvent(ctx, event.ID)
	if err != nil {
		return nil, err
	}
	slotVotes, err := h.repo.GetSlotVotes(ctx, event.ID)
	if err != nil {
		return nil, err
	}

	var choices []model.PollChoice
	var pollVotes []model.PollVote
	poll, err := h.repo.GetActivePollByEvent(ctx, event.ID)
	switch {
	case err == nil:
		if choices, err = h.repo.GetPollChoices(ctx, poll.ID); err != nil {
			return nil, err
		}
		if pollVotes, err = h.repo.GetPollVotes(ctx, poll.ID); err != nil {
			return nil, err
		}
	case !errors.Is(err, repo.ErrPollNotFound):
		return nil, err
	}

	expenses, err := h.repo.GetExpensesByEvent(ctx, event.ID)
	if err != nil {
		return nil, err
	}

	return rules.BuildSummary(event, slots, slotVotes, choices, pollVotes, expenses), nil
}

func (h *Handler) summary(ctx context.Context, groupID string) string {
	event, ok := h.latestEvent(ctx, groupID)
	if !ok {
		return "Etkinlik yok!"
	}

	s, err := h.buildSummary(ctx, event)
	if err != nil {
		h.log.Error().Err(err).Int64("event_id", event.ID).Msg("failed to build summary")
		return "Ozet olusturulurken hata olustu."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s Ozeti\n\n", event.Title)

	if s.BestSlot != nil && s.BestSlot.TotalVotes > 0 {
		fmt.Fprintf(&b, "EN COK OY ALAN SLOT:\n")
		fmt.Fprintf(&b, "  Slot #%d: %s - %s\n", s.BestSlot.SlotID,
			s.BestSlot.Start.Format(datetimeLayout), s.BestSlot.End.Format(timeLayout))
		fmt.Fprintf(&b, "  Evet: %d, Hayir: %d, Toplam: %d\n\n",
			s.BestSlot.YesVotes, s.BestSlot.NoVotes, s.BestSlot.TotalVotes)
	} else {
		b.WriteString("En cok oy alan slot: Henuz oy verilmemis\n\n")
	}

	if len(s.Slots) > 0 {
		b.WriteString("Tum Slotlar:\n")
		for _, st := range sortedSlots(s.Slots) {
			fmt.Fprintf(&b, "  Slot #%d: %s (%d evet, %d hayir)\n",
				st.SlotID, st.Start.Format(datetimeLayout), st.YesVotes, st.NoVotes)
		}
		b.WriteString("\n")
	}

	switch {
	case s.NeedsModeratorDecision:
		b.WriteString("EN COK OY ALAN MEKAN: Beraberlik var, moderator karari gerekli:\n")
		for _, cs := range sortedChoices(s.TiedChoices) {
			fmt.Fprintf(&b, "  %s (%d oy)\n", cs.Text, cs.Votes)
		}
		b.WriteString("\n")
	case s.BestChoice != nil && s.BestChoice.Votes > 0:
		fmt.Fprintf(&b, "EN COK OY ALAN MEKAN:\n  %s (%d oy)\n\n", s.BestChoice.Text, s.BestChoice.Votes)
	default:
		b.WriteString("En cok oy alan mekan: Henuz oy verilmemis\n\n")
	}

	b.WriteString("MALI DURUM:\n")
	fmt.Fprintf(&b, "  Toplam Gider: %g TL\n", s.TotalExpense)
	fmt.Fprintf(&b, "  Katilimci Sayisi: %d kisi\n", s.ParticipantCount)
	fmt.Fprintf(&b, "  Gider Sayisi: %d adet", len(s.Expenses))

	return b.String()
}

func (h *Handler) inviteLink(ctx context.Context, groupID string) string {
	event, ok := h.latestEvent(ctx, groupID)
	if !ok {
		return "Etkinlik yok!"
	}
	return fmt.Sprintf("%s Davet Linki:\n%s\n\nBu linki arkadaslarinizla paylasabilirsiniz!",
		event.Title, h.invites.JoinURL(event.ID))
}

func (h *Handler) analytics(ctx context.Context, groupID string) string {
	event, ok := h.latestEvent(ctx, groupID)
	if !ok {
		return "Etkinlik yok!"
	}

	s, err := h.buildSummary(ctx, event)
	if err != nil {
		h.log.Error().Err(err).Int64("event_id", event.ID).Msg("failed to build analytics")
		return "Analitik olusturulurken hata olustu."
	}
	a := s.Analytics()

	var b strings.Builder
	fmt.Fprintf(&b, "%s Analitikleri\n\n", event.Title)
	fmt.Fprintf(&b, "Katilimci: %d kisi\n", a.TotalParticipants)
	fmt.Fprintf(&b, "Katilim Orani: %%%.1f\n", a.ParticipationRate)
	fmt.Fprintf(&b, "Slot Sayisi: %d\n", a.TotalSlots)
	fmt.Fprintf(&b, "Toplam Oy: %d\n", a.TotalVotes)
	fmt.Fprintf(&b, "Toplam Gider: %g TL\n", a.TotalExpense)
	fmt.Fprintf(&b, "Gider Sayisi: %d adet", a.ExpenseCount)
	return b.String()
}

func (h *Handler) location(ctx context.Context, groupID string, fields []string) string {
	if len(fields) < 2 {
		return "Kullanim: /konum MEKAN_ID"
	}
	choiceID, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return "Gecersiz mekan ID!"
	}

	event, ok := h.latestEvent(ctx, groupID)
	if !ok {
		return "Etkinlik yok!"
	}

	choice, err := h.repo.GetChoiceForEvent(ctx, event.ID, choiceID)
	if err != nil {
		if errors.Is(err, repo.ErrChoiceNotFound) {
			return "Gecersiz mekan ID!"
		}
		h.log.Error().Err(err).Int64("choice_id", choiceID).Msg("failed to load venue")
		return "Konum bilgisi alinamadi."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s Konum Bilgileri\n\n", choice.Text)
	if choice.Latitude != nil && choice.Longitude != nil {
		fmt.Fprintf(&b, "Koordinatlar: %g, %g\n", *choice.Latitude, *choice.Longitude)
		fmt.Fprintf(&b, "Harita: https://maps.google.com/?q=%g,%g", *choice.Latitude, *choice.Longitude)
	} else {
		b.WriteString("Konum bilgisi yok.")
	}
	return b.String()
}

func sortedSlots(stats map[int64]rules.SlotStats) []rules.SlotStats {
	out := make([]rules.SlotStats, 0, len(stats))
	for _, st := range stats {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SlotID < out[j].SlotID })
	return out
}

func sortedChoices(stats []rules.ChoiceStats) []rules.ChoiceStats {
	out := make([]rules.ChoiceStats, len(stats))
	copy(out, stats)
	sort.Slice(out, func(i, j int) bool { return out[i].ChoiceID < out[j].ChoiceID })
	return out
}
