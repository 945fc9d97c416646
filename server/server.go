package server

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"webide/service/heartbeat"
	"webide/service/run"
	"webide/service/shell"
	"webide/service/workspace"
	"webide/websocket"
)

func handleSession(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		wsServer, err := websocket.NewServer(c.Writer, c.Request)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		// Register services
		workspaceService := workspace.NewService(app.Worker)
		runService := run.NewService(app.Dispatcher)
		shellService := shell.NewService(app.Shell)
		heartbeatService := heartbeat.NewService()

		wsServer.Register(workspaceService)
		wsServer.Register(runService)
		wsServer.Register(shellService)

		wsServer.RegisterPassive(heartbeatService)

		wsServer.Start()
	}
}

func SetupRoutes(r *gin.Engine, app *App) {
	ide := r.Group("/ide")
	{
		ide.GET("/session", handleSession(app))
	}
}

func Start(port uint, dbPath string) error {
	app, err := NewApp(dbPath)
	if err != nil {
		return err
	}
	defer app.Close()

	r := gin.Default()
	SetupRoutes(r, app)

	log.Printf("started on port %d", port)
	return r.Run(fmt.Sprintf(":%d", port))
}
