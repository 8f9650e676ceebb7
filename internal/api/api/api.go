package api

import (
	"github.com/gin-contrib/cors"
	"github.com/wb-go/wbf/ginext"

	"gatherly/cmd/middleware"
	"gatherly/internal/service"
)

type Routers struct {
	Service service.Service
}

func NewRouters(r *Routers) *ginext.Engine {
	app := ginext.New("release")

	app.Use(middleware.LoggingMiddleware())
	app.Use(cors.Default())

	app.POST("/users", r.Service.CreateUser)
	app.POST("/login", r.Service.Login)
	app.POST("/logout", r.Service.Logout)

	app.POST("/events", r.Service.CreateEvent)
	app.GET("/event/:event_id", r.Service.GetEvent)
	app.PATCH("/event/:event_id", r.Service.UpdateEvent)
	app.DELETE("/event/:event_id", r.Service.DeleteEvent)
	app.POST("/event/:event_id", r.Service.RegisterAttendee)

	app.GET("/search", r.Service.Search)
	app.GET("/categories", r.Service.ListCategories)

	app.POST("/event/:event_id/question", r.Service.AskQuestion)
	app.DELETE("/question/:question_id", r.Service.DeleteQuestion)
	app.POST("/question/:question_id/vote", r.Service.UpvoteQuestion)
	app.DELETE("/question/:question_id/vote", r.Service.DownvoteQuestion)

	return app
}
