package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/zlog"

	"toplan/internal/command"
	"toplan/internal/invite"
	"toplan/internal/model"
	"toplan/internal/ratelimit"
	"toplan/internal/repo/repotest"
)

var zlogOnce sync.Once

type scheduledReminder struct {
	eventID int64
	groupID string
	delay   time.Duration
	message string
}

type fakeScheduler struct {
	calls []scheduledReminder
}

func (f *fakeScheduler) Schedule(eventID int64, destinationID string, delay time.Duration, message string) error {
	f.calls = append(f.calls, scheduledReminder{eventID, destinationID, delay, message})
	return nil
}

type fakeNotifier struct {
	sent []string
}

func (f *fakeNotifier) Notify(destinationID, text string) {
	f.sent = append(f.sent, destinationID+": "+text)
}

type testServer struct {
	app       *ginext.Engine
	repo      *repotest.Memory
	scheduler *fakeScheduler
	sink      *fakeNotifier
}

func newTestServer(t *testing.T, cooldown time.Duration) *testServer {
	t.Helper()
	zlogOnce.Do(zlog.Init)
	log := zlog.Logger.Level(zerolog.ErrorLevel)

	ts := &testServer{
		repo:      repotest.New(),
		scheduler: &fakeScheduler{},
		sink:      &fakeNotifier{},
	}

	invites := invite.NewGenerator("http://localhost:8080")
	commands := command.NewHandler(ts.repo, ratelimit.New(cooldown), ts.scheduler, invites, &log)
	svc := NewService(ts.repo, &log, commands, ts.scheduler, ts.sink, invites)

	app := ginext.New("release")
	app.POST("/webhook", svc.Webhook)
	app.POST("/events", svc.CreateEvent)
	app.POST("/events/:id/close", svc.CloseEvent)
	app.POST("/events/:id/slots", svc.AddSlot)
	app.POST("/events/:id/slots/:slotID/close", svc.CloseSlot)
	app.POST("/events/:id/vote-slot", svc.VoteSlot)
	app.POST("/events/:id/poll", svc.CreatePoll)
	app.POST("/events/:id/poll/choices", svc.AddPollChoice)
	app.POST("/events/:id/vote", svc.VotePoll)
	app.POST("/events/:id/expense", svc.AddExpense)
	app.POST("/events/:id/remind", svc.Remind)
	app.GET("/events/:id/summary", svc.GetSummary)
	app.GET("/events/:id/analytics", svc.GetAnalytics)
	app.GET("/events/:id/invite", svc.GetInvite)
	app.GET("/events/:id/location/:choiceID", svc.GetLocation)
	app.GET("/api/events", svc.ListEvents)
	app.GET("/health", svc.Health)
	ts.app = app
	return ts
}

func (ts *testServer) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *bytes.Buffer
	if body == "" {
		reader = bytes.NewBuffer(nil)
	} else {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	ts.app.ServeHTTP(w, req)

	var decoded map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("%s %s: invalid JSON response %q: %v", method, path, w.Body.String(), err)
	}
	return w, decoded
}

func (ts *testServer) createEvent(t *testing.T) int64 {
	t.Helper()
	w, resp := ts.do(t, "POST", "/events",
		`{"title":"Takim Yemegi","created_by":"u1","group_id":"grp1"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("create event: status %d, body %s", w.Code, w.Body.String())
	}
	data := resp["data"].(map[string]any)
	return int64(data["event_id"].(float64))
}

func futureISO(d time.Duration) string {
	return time.Now().Add(d).UTC().Format(time.RFC3339)
}

func TestCreateEventValidation(t *testing.T) {
	ts := newTestServer(t, 0)

	w, resp := ts.do(t, "POST", "/events", `{"created_by":"u1","group_id":"grp1"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing title: status %d", w.Code)
	}
	if msg := resp["message"].(string); !strings.Contains(msg, "Eksik alan: title") {
		t.Errorf("missing-field message: %q", msg)
	}

	if id := ts.createEvent(t); id == 0 {
		t.Error("expected non-zero event id")
	}
}

func TestAddSlotContract(t *testing.T) {
	ts := newTestServer(t, 0)
	eventID := ts.createEvent(t)

	w, _ := ts.do(t, "POST", fmt.Sprintf("/events/%d/slots", eventID),
		`{"start_datetime":"2020-01-01T18:00:00","end_datetime":"2020-01-01T20:00:00"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("past start: status %d", w.Code)
	}

	w, _ = ts.do(t, "POST", fmt.Sprintf("/events/%d/slots", eventID),
		fmt.Sprintf(`{"start_datetime":"%s","end_datetime":"%s"}`, futureISO(50*time.Hour), futureISO(48*time.Hour)))
	if w.Code != http.StatusBadRequest {
		t.Errorf("inverted range: status %d", w.Code)
	}

	w, _ = ts.do(t, "POST", fmt.Sprintf("/events/%d/slots", eventID),
		`{"start_datetime":"bugun","end_datetime":"yarin"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad format: status %d", w.Code)
	}

	w, _ = ts.do(t, "POST", "/events/9999/slots",
		fmt.Sprintf(`{"start_datetime":"%s","end_datetime":"%s"}`, futureISO(48*time.Hour), futureISO(50*time.Hour)))
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown event: status %d", w.Code)
	}

	w, _ = ts.do(t, "POST", fmt.Sprintf("/events/%d/slots", eventID),
		fmt.Sprintf(`{"start_datetime":"%s","end_datetime":"%s"}`, futureISO(48*time.Hour), futureISO(50*time.Hour)))
	if w.Code != http.StatusOK {
		t.Fatalf("valid slot: status %d, body %s", w.Code, w.Body.String())
	}
	if len(ts.scheduler.calls) != 2 {
		t.Errorf("expected both reminder tiers scheduled, got %d", len(ts.scheduler.calls))
	}
}

func TestVoteSlotDefaultsToYes(t *testing.T) {
	ts := newTestServer(t, 0)
	eventID := ts.createEvent(t)
	ts.do(t, "POST", fmt.Sprintf("/events/%d/slots", eventID),
		fmt.Sprintf(`{"start_datetime":"%s","end_datetime":"%s"}`, futureISO(48*time.Hour), futureISO(50*time.Hour)))
	slotID := ts.repo.Slots[0].ID

	w, _ := ts.do(t, "POST", fmt.Sprintf("/events/%d/vote-slot", eventID),
		fmt.Sprintf(`{"user_id":"u2","slot_id":%d}`, slotID))
	if w.Code != http.StatusOK {
		t.Fatalf("vote: status %d, body %s", w.Code, w.Body.String())
	}
	if ts.repo.SlotVotes[0].Choice != model.ChoiceYes {
		t.Errorf("default choice: %q", ts.repo.SlotVotes[0].Choice)
	}

	ts.do(t, "POST", fmt.Sprintf("/events/%d/vote-slot", eventID),
		fmt.Sprintf(`{"user_id":"u2","slot_id":%d,"choice":"no"}`, slotID))
	if len(ts.repo.SlotVotes) != 1 {
		t.Fatalf("revote must replace, got %d rows", len(ts.repo.SlotVotes))
	}
	if ts.repo.SlotVotes[0].Choice != model.ChoiceNo {
		t.Errorf("updated choice: %q", ts.repo.SlotVotes[0].Choice)
	}

	w, _ = ts.do(t, "POST", fmt.Sprintf("/events/%d/vote-slot", eventID),
		fmt.Sprintf(`{"user_id":"u2","slot_id":%d,"choice":"belki"}`, slotID))
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad choice: status %d", w.Code)
	}
}

func TestVoteSlotUnknownSlot(t *testing.T) {
	ts := newTestServer(t, 0)
	eventID := ts.createEvent(t)

	w, resp := ts.do(t, "POST", fmt.Sprintf("/events/%d/vote-slot", eventID),
		`{"user_id":"u9","slot_id":999}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown slot: status %d, body %s", w.Code, w.Body.String())
	}
	if msg := resp["message"].(string); !strings.Contains(msg, "Slot") {
		t.Errorf("unknown slot message: %q", msg)
	}
	if len(ts.repo.SlotVotes) != 0 {
		t.Fatalf("no vote row may be stored, got %d", len(ts.repo.SlotVotes))
	}

	// A slot that exists but hangs off another event is just as absent.
	other := ts.createEvent(t)
	ts.do(t, "POST", fmt.Sprintf("/events/%d/slots", other),
		fmt.Sprintf(`{"start_datetime":"%s","end_datetime":"%s"}`, futureISO(48*time.Hour), futureISO(50*time.Hour)))
	slotID := ts.repo.Slots[0].ID

	w, _ = ts.do(t, "POST", fmt.Sprintf("/events/%d/vote-slot", eventID),
		fmt.Sprintf(`{"user_id":"u9","slot_id":%d}`, slotID))
	if w.Code != http.StatusNotFound {
		t.Errorf("foreign slot: status %d", w.Code)
	}
	if len(ts.repo.SlotVotes) != 0 {
		t.Fatalf("no vote row may be stored, got %d", len(ts.repo.SlotVotes))
	}
}

func TestCloseSlotScopedToEvent(t *testing.T) {
	ts := newTestServer(t, 0)
	first := ts.createEvent(t)
	ts.do(t, "POST", fmt.Sprintf("/events/%d/slots", first),
		fmt.Sprintf(`{"start_datetime":"%s","end_datetime":"%s"}`, futureISO(48*time.Hour), futureISO(50*time.Hour)))
	slotID := ts.repo.Slots[0].ID

	second := ts.createEvent(t)
	w, _ := ts.do(t, "POST", fmt.Sprintf("/events/%d/slots/%d/close", second, slotID), "")
	if w.Code != http.StatusNotFound {
		t.Errorf("close through wrong event: status %d", w.Code)
	}
	if ts.repo.Slots[0].Status != model.StatusActive {
		t.Fatal("slot must stay active")
	}

	w, _ = ts.do(t, "POST", fmt.Sprintf("/events/%d/slots/%d/close", first, slotID), "")
	if w.Code != http.StatusOK {
		t.Fatalf("close: status %d, body %s", w.Code, w.Body.String())
	}
	if ts.repo.Slots[0].Status != model.StatusClosed {
		t.Error("slot must be closed")
	}
}

func TestExpenseRequiresValidSlot(t *testing.T) {
	ts := newTestServer(t, 0)
	eventID := ts.createEvent(t)
	ts.do(t, "POST", fmt.Sprintf("/events/%d/slots", eventID),
		fmt.Sprintf(`{"start_datetime":"%s","end_datetime":"%s"}`, futureISO(48*time.Hour), futureISO(50*time.Hour)))
	slotID := ts.repo.Slots[0].ID

	// Unknown event wins over a bad amount.
	w, _ := ts.do(t, "POST", "/events/9999/expense",
		fmt.Sprintf(`{"user_id":"u1","amount":-10,"description":"pizza","slot_id":%d}`, slotID))
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown event with bad amount: status %d", w.Code)
	}

	w, resp := ts.do(t, "POST", fmt.Sprintf("/events/%d/expense", eventID),
		fmt.Sprintf(`{"user_id":"u1","amount":-10,"description":"pizza","slot_id":%d}`, slotID))
	if w.Code != http.StatusBadRequest {
		t.Errorf("negative amount: status %d", w.Code)
	}
	if msg := resp["message"].(string); !strings.Contains(msg, "pozitif") {
		t.Errorf("negative amount message: %q", msg)
	}

	w, _ = ts.do(t, "POST", fmt.Sprintf("/events/%d/expense", eventID),
		`{"user_id":"u1","amount":150,"description":"pizza","slot_id":9999}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("unknown slot: status %d", w.Code)
	}

	w, _ = ts.do(t, "POST", fmt.Sprintf("/events/%d/expense", eventID),
		fmt.Sprintf(`{"user_id":"u1","amount":150,"description":"pizza","slot_id":%d}`, slotID))
	if w.Code != http.StatusOK {
		t.Fatalf("valid expense: status %d, body %s", w.Code, w.Body.String())
	}
	if ts.repo.Expenses[0].Weight != 1.0 {
		t.Errorf("default weight: %g", ts.repo.Expenses[0].Weight)
	}
}

func TestSummaryEndpoint(t *testing.T) {
	ts := newTestServer(t, 0)
	eventID := ts.createEvent(t)
	ts.do(t, "POST", fmt.Sprintf("/events/%d/slots", eventID),
		fmt.Sprintf(`{"start_datetime":"%s","end_datetime":"%s"}`, futureISO(30*time.Hour), futureISO(32*time.Hour)))
	slotID := ts.repo.Slots[0].ID
	ts.do(t, "POST", fmt.Sprintf("/events/%d/vote-slot", eventID),
		fmt.Sprintf(`{"user_id":"u1","slot_id":%d,"choice":"yes"}`, slotID))

	w, resp := ts.do(t, "GET", fmt.Sprintf("/events/%d/summary", eventID), "")
	if w.Code != http.StatusOK {
		t.Fatalf("summary: status %d, body %s", w.Code, w.Body.String())
	}

	data := resp["data"].(map[string]any)
	best, ok := data["best_slot"].(map[string]any)
	if !ok {
		t.Fatalf("best_slot missing: %v", data["best_slot"])
	}
	if best["yes_votes"].(float64) != 1 || best["no_votes"].(float64) != 0 {
		t.Errorf("best slot votes: %v", best)
	}
	if data["participant_count"].(float64) != 1 {
		t.Errorf("participant count: %v", data["participant_count"])
	}

	w, _ = ts.do(t, "GET", "/events/9999/summary", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown event summary: status %d", w.Code)
	}
}

func TestVenueTieSurfacedInSummary(t *testing.T) {
	ts := newTestServer(t, 0)
	eventID := ts.createEvent(t)
	ts.do(t, "POST", fmt.Sprintf("/events/%d/poll/choices", eventID), `{"text":"PizzaPalace"}`)
	ts.do(t, "POST", fmt.Sprintf("/events/%d/poll/choices", eventID), `{"text":"Kutuphane"}`)
	first, second := ts.repo.Choices[0].ID, ts.repo.Choices[1].ID

	ts.do(t, "POST", fmt.Sprintf("/events/%d/vote", eventID),
		fmt.Sprintf(`{"user_id":"u1","choice_id":%d}`, first))
	ts.do(t, "POST", fmt.Sprintf("/events/%d/vote", eventID),
		fmt.Sprintf(`{"user_id":"u2","choice_id":%d}`, second))

	_, resp := ts.do(t, "GET", fmt.Sprintf("/events/%d/summary", eventID), "")
	data := resp["data"].(map[string]any)
	if data["needs_moderator_decision"] != true {
		t.Errorf("tie not flagged: %v", data["needs_moderator_decision"])
	}
	if tied := data["tied_choices"].([]any); len(tied) != 2 {
		t.Errorf("tied choices: %v", tied)
	}
}

func TestRemindImmediateAndDeferred(t *testing.T) {
	ts := newTestServer(t, 0)
	eventID := ts.createEvent(t)

	w, resp := ts.do(t, "POST", fmt.Sprintf("/events/%d/remind", eventID),
		`{"message":"Toplanti basliyor"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("immediate remind: status %d", w.Code)
	}
	if msg := resp["message"].(string); msg != "Hatırlatıcı gönderildi" {
		t.Errorf("immediate message: %q", msg)
	}
	if len(ts.sink.sent) != 1 || !strings.Contains(ts.sink.sent[0], "Toplanti basliyor") {
		t.Errorf("notifier calls: %v", ts.sink.sent)
	}

	w, _ = ts.do(t, "POST", fmt.Sprintf("/events/%d/remind", eventID),
		`{"message":"Son cagri","delay":60}`)
	if w.Code != http.StatusOK {
		t.Fatalf("deferred remind: status %d", w.Code)
	}
	if len(ts.scheduler.calls) != 1 || ts.scheduler.calls[0].delay != 60*time.Second {
		t.Errorf("scheduler calls: %+v", ts.scheduler.calls)
	}
}

func TestLocationEndpoint(t *testing.T) {
	ts := newTestServer(t, 0)
	eventID := ts.createEvent(t)
	ts.do(t, "POST", fmt.Sprintf("/events/%d/poll/choices", eventID),
		`{"text":"PizzaPalace","latitude":41.04,"longitude":29.0}`)
	choiceID := ts.repo.Choices[0].ID

	w, resp := ts.do(t, "GET", fmt.Sprintf("/events/%d/location/%d", eventID, choiceID), "")
	if w.Code != http.StatusOK {
		t.Fatalf("location: status %d, body %s", w.Code, w.Body.String())
	}
	data := resp["data"].(map[string]any)
	if !strings.Contains(data["google_maps_url"].(string), "maps.google.com") {
		t.Errorf("maps url: %v", data["google_maps_url"])
	}

	w, _ = ts.do(t, "GET", fmt.Sprintf("/events/%d/location/9999", eventID), "")
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown choice: status %d", w.Code)
	}
}

func TestWebhookContract(t *testing.T) {
	ts := newTestServer(t, 2*time.Second)

	w, resp := ts.do(t, "POST", "/webhook",
		`{"message":"/yeni Takim Yemegi","user_id":"u1","group_id":"grp1"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("webhook: status %d, body %s", w.Code, w.Body.String())
	}
	bip := resp["bip_message"].(string)
	if !strings.HasPrefix(bip, "[MOCK BiP GRUP grp1] ") {
		t.Errorf("reply frame: %q", bip)
	}
	if !strings.Contains(bip, "Etkinlik olusturuldu") {
		t.Errorf("reply body: %q", bip)
	}

	w, resp = ts.do(t, "POST", "/webhook",
		`{"message":"/ozet","user_id":"u1","group_id":"grp1"}`)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("rapid second command: status %d", w.Code)
	}
	if bip := resp["bip_message"].(string); !strings.Contains(bip, "2 saniye bekleyin") {
		t.Errorf("throttle message: %q", bip)
	}

	w, resp = ts.do(t, "POST", "/webhook", `{"message":"/ozet","group_id":"grp1"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing user_id: status %d", w.Code)
	}
	if msg := resp["message"].(string); !strings.Contains(msg, "Eksik alan: user_id") {
		t.Errorf("missing-field message: %q", msg)
	}
}

func TestListEventsAndHealth(t *testing.T) {
	ts := newTestServer(t, 0)
	ts.createEvent(t)
	second := ts.createEvent(t)

	w, resp := ts.do(t, "GET", "/api/events", "")
	if w.Code != http.StatusOK {
		t.Fatalf("list events: status %d", w.Code)
	}
	data := resp["data"].(map[string]any)
	if data["total_count"].(float64) != 2 {
		t.Errorf("total count: %v", data["total_count"])
	}

	w, _ = ts.do(t, "POST", fmt.Sprintf("/events/%d/close", second), "")
	if w.Code != http.StatusOK {
		t.Fatalf("close event: status %d", w.Code)
	}
	_, resp = ts.do(t, "GET", "/api/events", "")
	data = resp["data"].(map[string]any)
	if data["total_count"].(float64) != 1 {
		t.Errorf("closed event still listed: %v", data["total_count"])
	}

	w, resp = ts.do(t, "GET", "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("health: status %d", w.Code)
	}
	if resp["status"] != "healthy" {
		t.Errorf("health status: %v", resp["status"])
	}
}
