package api

import (
	"github.com/gin-contrib/cors"
	"github.com/wb-go/wbf/ginext"

	"toplan/cmd/middleware"
	"toplan/internal/service"
)

type Routers struct {
	Service service.Service
}

func NewRouters(r *Routers) *ginext.Engine {
	app := ginext.New("release")

	app.Use(middleware.LoggingMiddleware())
	app.Use(cors.Default())

	// /webhook/bip is the path the original chat integration posts to.
	app.POST("/webhook", r.Service.Webhook)
	app.POST("/webhook/bip", r.Service.Webhook)

	app.POST("/events", r.Service.CreateEvent)
	app.POST("/events/:id/close", r.Service.CloseEvent)
	app.POST("/events/:id/slots", r.Service.AddSlot)
	app.POST("/events/:id/slots/:slotID/close", r.Service.CloseSlot)
	app.POST("/events/:id/vote-slot", r.Service.VoteSlot)
	app.POST("/events/:id/poll", r.Service.CreatePoll)
	app.POST("/events/:id/poll/choices", r.Service.AddPollChoice)
	app.POST("/events/:id/vote", r.Service.VotePoll)
	app.POST("/events/:id/expense", r.Service.AddExpense)
	app.POST("/events/:id/remind", r.Service.Remind)
	app.GET("/events/:id/summary", r.Service.GetSummary)
	app.GET("/events/:id/analytics", r.Service.GetAnalytics)
	app.GET("/events/:id/invite", r.Service.GetInvite)
	app.GET("/events/:id/location/:choiceID", r.Service.GetLocation)

	app.GET("/join/:id", r.Service.JoinPage)
	app.GET("/qr/:id", r.Service.QRCode)

	app.GET("/api", r.Service.APIInfo)
	app.GET("/api/events", r.Service.ListEvents)
	app.GET("/health", r.Service.Health)

	return app
}
