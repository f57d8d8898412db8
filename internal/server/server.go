package server

import (
	"fmt"
	"net/http"
	"time"

	"peakshaver/internal/config"

	"github.com/asynkron/protoactor-go/actor"
	_ "github.com/joho/godotenv/autoload"
)

// RescheduleFunc changes the control tick interval at runtime.
type RescheduleFunc func(seconds uint) error

type Server struct {
	port        uint
	httpLog     bool
	rootContext *actor.RootContext
	masterActor *actor.PID
	reschedule  RescheduleFunc
}

func NewServer(cfg config.Config, rootContext *actor.RootContext, masterActor *actor.PID, reschedule RescheduleFunc) *http.Server {
	NewServer := &Server{
		port:        cfg.Port,
		rootContext: rootContext,
		masterActor: masterActor,
		reschedule:  reschedule,
		httpLog:     cfg.HttpLog,
	}

	// Declare Server config
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", NewServer.port),
		Handler:      NewServer.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return server
}
