package dto

import (
	"time"

	"github.com/wb-go/wbf/ginext"
)

const internalErrorMsg = "Servis şu anda kullanılamıyor. Lütfen daha sonra tekrar deneyin."

// Response is the shared wire envelope: errors carry status "error" and a
// message; successes carry "success" (REST) or "ok" (webhook) and data.
type Response struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

type WebhookRequest struct {
	Message string `json:"message" validate:"required"`
	UserID  string `json:"user_id" validate:"required"`
	GroupID string `json:"group_id" validate:"required"`
}

type WebhookResponse struct {
	Status     string `json:"status"`
	BipMessage string `json:"bip_message"`
}

type CreateEventRequest struct {
	Title     string `json:"title" validate:"required"`
	CreatedBy string `json:"created_by" validate:"required"`
	GroupID   string `json:"group_id" validate:"required"`
}

type AddSlotRequest struct {
	StartDatetime string `json:"start_datetime" validate:"required"`
	EndDatetime   string `json:"end_datetime" validate:"required"`
	UserID        string `json:"user_id"`
}

type VoteSlotRequest struct {
	UserID string `json:"user_id" validate:"required"`
	SlotID int64  `json:"slot_id" validate:"required"`
	Choice string `json:"choice"`
}

type CreatePollRequest struct {
	Question string `json:"question" validate:"required"`
}

type AddChoiceRequest struct {
	Text      string   `json:"text" validate:"required"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

type VotePollRequest struct {
	UserID   string `json:"user_id" validate:"required"`
	ChoiceID int64  `json:"choice_id" validate:"required"`
}

type AddExpenseRequest struct {
	UserID      string   `json:"user_id" validate:"required"`
	Amount      float64  `json:"amount" validate:"required"`
	Description string   `json:"description" validate:"required"`
	SlotID      int64    `json:"slot_id" validate:"required"`
	Weight      *float64 `json:"weight"`
}

type RemindRequest struct {
	Message string `json:"message" validate:"required"`
	Delay   int    `json:"delay"`
}

type SlotResponse struct {
	SlotID        int64  `json:"slot_id"`
	EventID       int64  `json:"event_id"`
	StartDatetime string `json:"start_datetime"`
	EndDatetime   string `json:"end_datetime"`
}

type InviteResponse struct {
	EventID    int64  `json:"event_id"`
	EventTitle string `json:"event_title"`
	InviteLink string `json:"invite_link"`
	QRCodeURL  string `json:"qr_code_url"`
	ShortCode  string `json:"short_code"`
}

type LocationResponse struct {
	ChoiceID      int64    `json:"choice_id"`
	PlaceName     string   `json:"place_name"`
	Latitude      *float64 `json:"latitude,omitempty"`
	Longitude     *float64 `json:"longitude,omitempty"`
	GoogleMapsURL string   `json:"google_maps_url,omitempty"`
}

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

func BadRequest(c *ginext.Context, msg string) {
	c.JSON(400, Response{Status: "error", Message: msg})
}

func NotFound(c *ginext.Context, msg string) {
	c.JSON(404, Response{Status: "error", Message: msg})
}

func TooManyRequests(c *ginext.Context, msg string) {
	c.JSON(429, WebhookResponse{Status: "error", BipMessage: msg})
}

func InternalServerError(c *ginext.Context) {
	c.JSON(500, Response{Status: "error", Message: internalErrorMsg})
}

func Success(c *ginext.Context, msg string, data any) {
	c.JSON(200, Response{Status: "success", Message: msg, Data: data})
}

func BotReply(c *ginext.Context, groupID, msg string) {
	c.JSON(200, WebhookResponse{Status: "ok", BipMessage: "[MOCK BiP GRUP " + groupID + "] " + msg})
}
