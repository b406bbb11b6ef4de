// Package service is the REST surface. Handlers bind and validate the wire
// DTOs, run the domain checks, and answer with the shared response envelope.
// The webhook handler delegates to the command dispatcher and wraps its reply
// in the mock group-chat frame.
package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/ginext"

	"toplan/internal/command"
	"toplan/internal/dto"
	"toplan/internal/invite"
	"toplan/internal/model"
	"toplan/internal/notifier"
	"toplan/internal/reminder"
	"toplan/internal/repo"
	"toplan/internal/rules"
	"toplan/pkg/validator"
)

type Service interface {
	Webhook(ctx *ginext.Context)

	CreateEvent(ctx *ginext.Context)
	CloseEvent(ctx *ginext.Context)
	AddSlot(ctx *ginext.Context)
	VoteSlot(ctx *ginext.Context)
	CloseSlot(ctx *ginext.Context)
	CreatePoll(ctx *ginext.Context)
	AddPollChoice(ctx *ginext.Context)
	VotePoll(ctx *ginext.Context)
	AddExpense(ctx *ginext.Context)
	GetSummary(ctx *ginext.Context)
	Remind(ctx *ginext.Context)

	GetInvite(ctx *ginext.Context)
	GetAnalytics(ctx *ginext.Context)
	GetLocation(ctx *ginext.Context)
	ListEvents(ctx *ginext.Context)
	JoinPage(ctx *ginext.Context)
	QRCode(ctx *ginext.Context)
	APIInfo(ctx *ginext.Context)
	Health(ctx *ginext.Context)
}

type service struct {
	repo      repo.Repository
	log       *zerolog.Logger
	commands  *command.Handler
	scheduler reminder.Scheduler
	sink      notifier.Notifier
	invites   *invite.Generator
	now       func() time.Time
}

func NewService(r repo.Repository, logger *zerolog.Logger, commands *command.Handler,
	scheduler reminder.Scheduler, sink notifier.Notifier, invites *invite.Generator) Service {
	return &service{
		repo:      r,
		log:       logger,
		commands:  commands,
		scheduler: scheduler,
		sink:      sink,
		invites:   invites,
		now:       time.Now,
	}
}

func (s *service) Webhook(ctx *ginext.Context) {
	var req dto.WebhookRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		s.log.Error().Err(err).Msg("failed to parse webhook request")
		dto.BadRequest(ctx, "Geçersiz JSON verisi")
		return
	}

	if verr := validator.Validate(ctx, req); verr != nil {
		dto.BadRequest(ctx, fmt.Sprintf("%v", verr))
		return
	}

	reply, err := s.commands.Handle(ctx.Request.Context(), req.UserID, req.GroupID, req.Message)
	if err != nil {
		if errors.Is(err, command.ErrRateLimited) {
			seconds := int(s.commands.Cooldown().Seconds())
			dto.TooManyRequests(ctx, fmt.Sprintf(
				"[MOCK BiP GRUP %s] Çok hızlı mesaj gönderiyorsunuz. Lütfen %d saniye bekleyin.",
				req.GroupID, seconds))
			return
		}
		s.log.Error().Err(err).Msg("webhook dispatch failed")
		dto.InternalServerError(ctx)
		return
	}

	dto.BotReply(ctx, req.GroupID, reply)
}

func (s *service) CreateEvent(ctx *ginext.Context) {
	var req dto.CreateEventRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(ctx, "Geçersiz JSON verisi")
		return
	}
	if verr := validator.Validate(ctx, req); verr != nil {
		dto.BadRequest(ctx, fmt.Sprintf("%v", verr))
		return
	}

	rctx := ctx.Request.Context()
	if err := s.repo.UpsertUser(rctx, req.CreatedBy, "", model.RoleUser); err != nil {
		s.log.Error().Err(err).Str("user_id", req.CreatedBy).Msg("failed to upsert user")
	}

	eventID, err := s.repo.CreateEvent(rctx, req.Title, req.CreatedBy, req.GroupID)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to create event in DB")
		dto.InternalServerError(ctx)
		return
	}

	s.log.Info().Int64("event_id", eventID).Msg("event created")
	dto.Success(ctx, fmt.Sprintf("Etkinlik oluşturuldu: %s", req.Title), map[string]any{
		"event_id":   eventID,
		"title":      req.Title,
		"created_by": req.CreatedBy,
		"group_id":   req.GroupID,
	})
}

// CloseEvent flips the event to closed. The event keeps its slots, votes and
// expenses; it just stops being the group's addressable latest event.
func (s *service) CloseEvent(ctx *ginext.Context) {
	event := s.eventFromParam(ctx)
	if event == nil {
		return
	}

	if err := s.repo.CloseEvent(ctx.Request.Context(), event.ID); err != nil {
		s.log.Error().Err(err).Int64("event_id", event.ID).Msg("failed to close event")
		dto.InternalServerError(ctx)
		return
	}

	dto.Success(ctx, fmt.Sprintf("Etkinlik kapatıldı: %s", event.Title), map[string]any{
		"event_id": event.ID,
		"status":   model.StatusClosed,
	})
}

// eventFromParam loads the event addressed by the :id path segment. A miss
// answers 404 and returns nil.
func (s *service) eventFromParam(ctx *ginext.Context) *model.Event {
	eventID, err := parseID(ctx.Param("id"))
	if err != nil {
		dto.BadRequest(ctx, "Geçersiz etkinlik ID")
		return nil
	}

	event, err := s.repo.GetEventByID(ctx.Request.Context(), eventID)
	if err != nil {
		if errors.Is(err, repo.ErrEventNotFound) {
			dto.NotFound(ctx, "Etkinlik bulunamadı")
			return nil
		}
		s.log.Error().Err(err).Int64("event_id", eventID).Msg("failed to load event")
		dto.InternalServerError(ctx)
		return nil
	}
	return event
}

func (s *service) AddSlot(ctx *ginext.Context) {
	var req dto.AddSlotRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(ctx, "Geçersiz JSON verisi")
		return
	}
	if verr := validator.Validate(ctx, req); verr != nil {
		dto.BadRequest(ctx, fmt.Sprintf("%v", verr))
		return
	}

	event := s.eventFromParam(ctx)
	if event == nil {
		return
	}

	start, err := parseISOTime(req.StartDatetime)
	if err != nil {
		dto.BadRequest(ctx, "Geçersiz tarih formatı. ISO format kullanın")
		return
	}
	end, err := parseISOTime(req.EndDatetime)
	if err != nil {
		dto.BadRequest(ctx, "Geçersiz tarih formatı. ISO format kullanın")
		return
	}

	now := s.now()
	if start.Before(now) {
		dto.BadRequest(ctx, "Geçmiş tarih seçilemez")
		return
	}
	if !start.Before(end) {
		dto.BadRequest(ctx, "Başlangıç saati bitiş saatinden önce olmalı")
		return
	}

	slotID, err := s.repo.CreateSlot(ctx.Request.Context(), &model.Slot{
		EventID:   event.ID,
		Start:     start,
		End:       end,
		CreatedBy: req.UserID,
	})
	if err != nil {
		s.log.Error().Err(err).Int64("event_id", event.ID).Msg("failed to create slot")
		dto.InternalServerError(ctx)
		return
	}

	s.scheduleSlotReminders(event, start, now)

	dto.Success(ctx, fmt.Sprintf("Slot eklendi: %s - %s",
		start.Format("2006-01-02 15:04"), end.Format("15:04")),
		dto.SlotResponse{
			SlotID:        slotID,
			EventID:       event.ID,
			StartDatetime: req.StartDatetime,
			EndDatetime:   req.EndDatetime,
		})
}

func (s *service) scheduleSlotReminders(event *model.Event, start, now time.Time) {
	until := start.Sub(now)
	tiers := []struct {
		lead time.Duration
		text string
	}{
		{24 * time.Hour, "24 saat sonra etkinlik başlıyor! Hazır mısınız?"},
		{time.Hour, "Etkinlik 1 saat sonra başlıyor! Son hazırlıklarınızı yapın!"},
	}
	for _, tier := range tiers {
		if err := s.scheduler.Schedule(event.ID, event.GroupID, until-tier.lead, tier.text); err != nil {
			s.log.Error().Err(err).Int64("event_id", event.ID).Msg("failed to schedule reminder")
		}
	}
}

func (s *service) VoteSlot(ctx *ginext.Context) {
	var req dto.VoteSlotRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(ctx, "Geçersiz JSON verisi")
		return
	}
	if verr := validator.Validate(ctx, req); verr != nil {
		dto.BadRequest(ctx, fmt.Sprintf("%v", verr))
		return
	}

	choice := req.Choice
	if choice == "" {
		choice = model.ChoiceYes
	}
	if choice != model.ChoiceYes && choice != model.ChoiceNo {
		dto.BadRequest(ctx, "Choice: yes veya no")
		return
	}

	event := s.eventFromParam(ctx)
	if event == nil {
		return
	}

	rctx := ctx.Request.Context()
	slot, err := s.repo.GetSlotByID(rctx, req.SlotID)
	if err != nil {
		if errors.Is(err, repo.ErrSlotNotFound) {
			dto.NotFound(ctx, "Slot bulunamadı")
			return
		}
		s.log.Error().Err(err).Int64("slot_id", req.SlotID).Msg("failed to load slot")
		dto.InternalServerError(ctx)
		return
	}
	if slot.EventID != event.ID {
		dto.NotFound(ctx, "Slot bulunamadı")
		return
	}

	if err := s.repo.UpsertUser(rctx, req.UserID, "", model.RoleUser); err != nil {
		s.log.Error().Err(err).Str("user_id", req.UserID).Msg("failed to upsert user")
	}

	if err := s.repo.VoteSlot(rctx, event.ID, req.SlotID, req.UserID, choice); err != nil {
		s.log.Error().Err(err).Int64("slot_id", req.SlotID).Msg("failed to record slot vote")
		dto.InternalServerError(ctx)
		return
	}

	dto.Success(ctx, fmt.Sprintf("Slot %d için oyunuz verildi", req.SlotID), map[string]any{
		"event_id": event.ID,
		"slot_id":  req.SlotID,
		"user_id":  req.UserID,
		"choice":   choice,
	})
}

func (s *service) CloseSlot(ctx *ginext.Context) {
	event := s.eventFromParam(ctx)
	if event == nil {
		return
	}

	slotID, err := parseID(ctx.Param("slotID"))
	if err != nil {
		dto.BadRequest(ctx, "Geçersiz slot ID")
		return
	}

	if err := s.repo.CloseSlot(ctx.Request.Context(), event.ID, slotID); err != nil {
		if errors.Is(err, repo.ErrSlotNotFound) {
			dto.NotFound(ctx, "Slot bulunamadı")
			return
		}
		s.log.Error().Err(err).Int64("slot_id", slotID).Msg("failed to close slot")
		dto.InternalServerError(ctx)
		return
	}

	dto.Success(ctx, fmt.Sprintf("Slot %d kapatıldı", slotID), map[string]any{
		"event_id": event.ID,
		"slot_id":  slotID,
		"status":   model.StatusClosed,
	})
}

func (s *service) CreatePoll(ctx *ginext.Context) {
	var req dto.CreatePollRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(ctx, "Geçersiz JSON verisi")
		return
	}
	if verr := validator.Validate(ctx, req); verr != nil {
		dto.BadRequest(ctx, fmt.Sprintf("%v", verr))
		return
	}

	event := s.eventFromParam(ctx)
	if event == nil {
		return
	}

	pollID, err := s.repo.CreatePoll(ctx.Request.Context(), event.ID, req.Question)
	if err != nil {
		s.log.Error().Err(err).Int64("event_id", event.ID).Msg("failed to create poll")
		dto.InternalServerError(ctx)
		return
	}

	dto.Success(ctx, fmt.Sprintf("Anket oluşturuldu: %s", req.Question), map[string]any{
		"poll_id":  pollID,
		"event_id": event.ID,
		"question": req.Question,
	})
}

func (s *service) AddPollChoice(ctx *ginext.Context) {
	var req dto.AddChoiceRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(ctx, "Geçersiz JSON verisi")
		return
	}
	if verr := validator.Validate(ctx, req); verr != nil {
		dto.BadRequest(ctx, fmt.Sprintf("%v", verr))
		return
	}

	event := s.eventFromParam(ctx)
	if event == nil {
		return
	}

	rctx := ctx.Request.Context()
	var pollID int64
	poll, err := s.repo.GetActivePollByEvent(rctx, event.ID)
	switch {
	case err == nil:
		pollID = poll.ID
	case errors.Is(err, repo.ErrPollNotFound):
		// No poll yet: choices land in a freshly created venue poll.
		pollID, err = s.repo.CreatePoll(rctx, event.ID, "Mekan Seçimi")
		if err != nil {
			s.log.Error().Err(err).Int64("event_id", event.ID).Msg("failed to create venue poll")
			dto.InternalServerError(ctx)
			return
		}
	default:
		s.log.Error().Err(err).Int64("event_id", event.ID).Msg("failed to load poll")
		dto.InternalServerError(ctx)
		return
	}

	choiceID, err := s.repo.CreatePollChoice(rctx, pollID, req.Text, req.Latitude, req.Longitude)
	if err != nil {
		s.log.Error().Err(err).Int64("poll_id", pollID).Msg("failed to create poll choice")
		dto.InternalServerError(ctx)
		return
	}

	dto.Success(ctx, fmt.Sprintf("Mekan eklendi: %s", req.Text), map[string]any{
		"choice_id": choiceID,
		"poll_id":   pollID,
		"text":      req.Text,
		"latitude":  req.Latitude,
		"longitude": req.Longitude,
	})
}

func (s *service) VotePoll(ctx *ginext.Context) {
	var req dto.VotePollRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(ctx, "Geçersiz JSON verisi")
		return
	}
	if verr := validator.Validate(ctx, req); verr != nil {
		dto.BadRequest(ctx, fmt.Sprintf("%v", verr))
		return
	}

	event := s.eventFromParam(ctx)
	if event == nil {
		return
	}

	rctx := ctx.Request.Context()
	poll, err := s.repo.GetActivePollByEvent(rctx, event.ID)
	if err != nil {
		if errors.Is(err, repo.ErrPollNotFound) {
			dto.NotFound(ctx, "Anket bulunamadı")
			return
		}
		s.log.Error().Err(err).Int64("event_id", event.ID).Msg("failed to load poll")
		dto.InternalServerError(ctx)
		return
	}

	if err := s.repo.UpsertUser(rctx, req.UserID, "", model.RoleUser); err != nil {
		s.log.Error().Err(err).Str("user_id", req.UserID).Msg("failed to upsert user")
	}

	if err := s.repo.VotePoll(rctx, poll.ID, req.ChoiceID, req.UserID); err != nil {
		s.log.Error().Err(err).Int64("choice_id", req.ChoiceID).Msg("failed to record poll vote")
		dto.InternalServerError(ctx)
		return
	}

	dto.Success(ctx, fmt.Sprintf("Anket için oy verildi: %d", req.ChoiceID), map[string]any{
		"event_id":  event.ID,
		"poll_id":   poll.ID,
		"choice_id": req.ChoiceID,
		"user_id":   req.UserID,
	})
}

func (s *service) AddExpense(ctx *ginext.Context) {
	var req dto.AddExpenseRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(ctx, "Geçersiz JSON verisi")
		return
	}
	if verr := validator.Validate(ctx, req); verr != nil {
		dto.BadRequest(ctx, fmt.Sprintf("%v", verr))
		return
	}

	event := s.eventFromParam(ctx)
	if event == nil {
		return
	}

	if req.Amount <= 0 {
		dto.BadRequest(ctx, "Tutar pozitif olmalı")
		return
	}

	rctx := ctx.Request.Context()
	slot, err := s.repo.GetSlotByID(rctx, req.SlotID)
	if err != nil || slot.EventID != event.ID {
		if err != nil && !errors.Is(err, repo.ErrSlotNotFound) {
			s.log.Error().Err(err).Int64("slot_id", req.SlotID).Msg("failed to load slot")
			dto.InternalServerError(ctx)
			return
		}
		dto.BadRequest(ctx, "Geçersiz slot ID")
		return
	}

	if err := s.repo.UpsertUser(rctx, req.UserID, "", model.RoleUser); err != nil {
		s.log.Error().Err(err).Str("user_id", req.UserID).Msg("failed to upsert user")
	}

	weight := 1.0
	if req.Weight != nil {
		weight = *req.Weight
	}

	expenseID, err := s.repo.CreateExpense(rctx, &model.Expense{
		EventID: event.ID,
		UserID:  req.UserID,
		Amount:  req.Amount,
		Notes:   req.Description,
		Weight:  weight,
	})
	if err != nil {
		s.log.Error().Err(err).Int64("event_id", event.ID).Msg("failed to create expense")
		dto.InternalServerError(ctx)
		return
	}

	dto.Success(ctx, fmt.Sprintf("Gider eklendi: %g TL, Açıklama: %s, Ağırlık: %g",
		req.Amount, req.Description, weight), map[string]any{
		"expense_id":  expenseID,
		"event_id":    event.ID,
		"user_id":     req.UserID,
		"amount":      req.Amount,
		"description": req.Description,
		"weight":      weight,
	})
}

func (s *service) summarize(ctx *ginext.Context, event *model.Event) *rules.Summary {
	rctx := ctx.Request.Context()

	slots, err := s.repo.GetActiveSlotsByEvent(rctx, event.ID)
	if err != nil {
		s.log.Error().Err(err).Int64("event_id", event.ID).Msg("failed to load slots")
		dto.InternalServerError(ctx)
		return nil
	}
	slotVotes, err := s.repo.GetSlotVotes(rctx, event.ID)
	if err != nil {
		s.log.Error().Err(err).Int64("event_id", event.ID).Msg("failed to load slot votes")
		dto.InternalServerError(ctx)
		return nil
	}

	var choices []model.PollChoice
	var pollVotes []model.PollVote
	poll, err := s.repo.GetActivePollByEvent(rctx, event.ID)
	switch {
	case err == nil:
		if choices, err = s.repo.GetPollChoices(rctx, poll.ID); err != nil {
			s.log.Error().Err(err).Int64("poll_id", poll.ID).Msg("failed to load poll choices")
			dto.InternalServerError(ctx)
			return nil
		}
		if pollVotes, err = s.repo.GetPollVotes(rctx, poll.ID); err != nil {
			s.log.Error().Err(err).Int64("poll_id", poll.ID).Msg("failed to load poll votes")
			dto.InternalServerError(ctx)
			return nil
		}
	case !errors.Is(err, repo.ErrPollNotFound):
		s.log.Error().Err(err).Int64("event_id", event.ID).Msg("failed to load poll")
		dto.InternalServerError(ctx)
		return nil
	}

	expenses, err := s.repo.GetExpensesByEvent(rctx, event.ID)
	if err != nil {
		s.log.Error().Err(err).Int64("event_id", event.ID).Msg("failed to load expenses")
		dto.InternalServerError(ctx)
		return nil
	}

	return rules.BuildSummary(event, slots, slotVotes, choices, pollVotes, expenses)
}

func (s *service) GetSummary(ctx *ginext.Context) {
	event := s.eventFromParam(ctx)
	if event == nil {
		return
	}

	summary := s.summarize(ctx, event)
	if summary == nil {
		return
	}
	dto.Success(ctx, "", summary)
}

func (s *service) GetAnalytics(ctx *ginext.Context) {
	event := s.eventFromParam(ctx)
	if event == nil {
		return
	}

	summary := s.summarize(ctx, event)
	if summary == nil {
		return
	}
	dto.Success(ctx, "Analitik veriler alındı", summary.Analytics())
}

func (s *service) Remind(ctx *ginext.Context) {
	var req dto.RemindRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(ctx, "Geçersiz JSON verisi")
		return
	}
	if verr := validator.Validate(ctx, req); verr != nil {
		dto.BadRequest(ctx, fmt.Sprintf("%v", verr))
		return
	}

	event := s.eventFromParam(ctx)
	if event == nil {
		return
	}

	var msg string
	if req.Delay > 0 {
		delay := time.Duration(req.Delay) * time.Second
		if err := s.scheduler.Schedule(event.ID, event.GroupID, delay, req.Message); err != nil {
			s.log.Error().Err(err).Int64("event_id", event.ID).Msg("failed to schedule reminder")
			dto.InternalServerError(ctx)
			return
		}
		msg = fmt.Sprintf("Hatırlatıcı %d saniye sonra gönderilecek", req.Delay)
	} else {
		s.sink.Notify(event.GroupID, req.Message)
		msg = "Hatırlatıcı gönderildi"
	}

	dto.Success(ctx, msg, map[string]any{
		"event_id": event.ID,
		"group_id": event.GroupID,
		"message":  req.Message,
		"delay":    req.Delay,
	})
}

func (s *service) GetInvite(ctx *ginext.Context) {
	event := s.eventFromParam(ctx)
	if event == nil {
		return
	}

	dto.Success(ctx, "Davet linki oluşturuldu", dto.InviteResponse{
		EventID:    event.ID,
		EventTitle: event.Title,
		InviteLink: s.invites.JoinURL(event.ID),
		QRCodeURL:  s.invites.QRCodeURL(event.ID),
		ShortCode:  s.invites.ShortCode(event.ID),
	})
}

func (s *service) GetLocation(ctx *ginext.Context) {
	event := s.eventFromParam(ctx)
	if event == nil {
		return
	}

	choiceID, err := parseID(ctx.Param("choiceID"))
	if err != nil {
		dto.BadRequest(ctx, "Geçersiz mekan ID")
		return
	}

	choice, err := s.repo.GetChoiceForEvent(ctx.Request.Context(), event.ID, choiceID)
	if err != nil {
		if errors.Is(err, repo.ErrChoiceNotFound) {
			dto.NotFound(ctx, "Mekan bulunamadı")
			return
		}
		s.log.Error().Err(err).Int64("choice_id", choiceID).Msg("failed to load venue")
		dto.InternalServerError(ctx)
		return
	}

	resp := dto.LocationResponse{
		ChoiceID:  choice.ID,
		PlaceName: choice.Text,
		Latitude:  choice.Latitude,
		Longitude: choice.Longitude,
	}
	if choice.Latitude != nil && choice.Longitude != nil {
		resp.GoogleMapsURL = fmt.Sprintf("https://maps.google.com/?q=%g,%g",
			*choice.Latitude, *choice.Longitude)
	}

	dto.Success(ctx, "Konum bilgileri alındı", resp)
}

func (s *service) ListEvents(ctx *ginext.Context) {
	events, err := s.repo.ListActiveEvents(ctx.Request.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("failed to list events")
		dto.InternalServerError(ctx)
		return
	}

	dto.Success(ctx, "", map[string]any{
		"events":      events,
		"total_count": len(events),
	})
}

func (s *service) JoinPage(ctx *ginext.Context) {
	eventID, err := parseID(ctx.Param("id"))
	if err != nil {
		ctx.Data(404, "text/html; charset=utf-8", []byte("<h1>Etkinlik bulunamadı!</h1>"))
		return
	}

	event, err := s.repo.GetEventByID(ctx.Request.Context(), eventID)
	if err != nil {
		ctx.Data(404, "text/html; charset=utf-8", []byte("<h1>Etkinlik bulunamadı!</h1>"))
		return
	}

	page := fmt.Sprintf(joinPageTemplate, event.Title, event.Title,
		event.CreatedBy, event.GroupID, event.CreatedAt.Format("2006-01-02 15:04"))
	ctx.Data(200, "text/html; charset=utf-8", []byte(page))
}

func (s *service) QRCode(ctx *ginext.Context) {
	eventID, err := parseID(ctx.Param("id"))
	if err != nil {
		dto.BadRequest(ctx, "Geçersiz etkinlik ID")
		return
	}

	if _, err := s.repo.GetEventByID(ctx.Request.Context(), eventID); err != nil {
		dto.NotFound(ctx, "Etkinlik bulunamadı")
		return
	}

	png, err := s.invites.QRCodePNG(eventID, 256)
	if err != nil {
		s.log.Error().Err(err).Int64("event_id", eventID).Msg("failed to render QR code")
		dto.InternalServerError(ctx)
		return
	}
	ctx.Data(200, "image/png", png)
}

func (s *service) APIInfo(ctx *ginext.Context) {
	dto.Success(ctx, "Toplan RESTful API", map[string]any{
		"events": map[string]string{
			"POST /events":                   "Yeni etkinlik oluştur",
			"POST /events/{id}/slots":        "Etkinliğe slot ekle",
			"POST /events/{id}/vote-slot":    "Slot için oy ver",
			"POST /events/{id}/poll":         "Anket oluştur",
			"POST /events/{id}/poll/choices": "Ankete mekan ekle",
			"POST /events/{id}/vote":         "Anket için oy ver",
			"POST /events/{id}/expense":      "Gider ekle",
			"POST /events/{id}/remind":       "Hatırlatıcı gönder",
			"GET /events/{id}/summary":       "Etkinlik özeti al",
			"GET /events/{id}/analytics":     "Etkinlik analitiği al",
			"GET /events/{id}/invite":        "Davet linki oluştur",
		},
		"utility": map[string]string{
			"GET /health":       "Sağlık kontrolü",
			"GET /api":          "API bilgileri",
			"GET /api/events":   "Etkinlikleri listele",
			"POST /webhook":     "Grup sohbeti webhook",
			"POST /webhook/bip": "BiP webhook (legacy)",
		},
	})
}

func (s *service) Health(ctx *ginext.Context) {
	ctx.JSON(200, dto.HealthResponse{
		Status:    "healthy",
		Timestamp: s.now(),
	})
}
