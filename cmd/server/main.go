// cmd/server/main.go
package main

import (
	"log"
	"net/http"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/gridclash/arena/internal/arena"
	"github.com/gridclash/arena/internal/handlers"
	"github.com/gridclash/arena/internal/middleware"
	"github.com/gridclash/arena/internal/stats"
)

func main() {
	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	var provider stats.Provider = stats.Noop{}
	if os.Getenv("STATS_BACKEND") == "redis" {
		r, err := stats.ConnectRedis()
		if err != nil {
			log.Fatalf("stats backend: %v", err)
		}
		provider = r
		logger.Info("Using redis stats provider")
	}

	core := arena.NewCore(logger, provider)

	mux := http.NewServeMux()
	mux.Handle("/ws", middleware.RequestLogger(logger)(http.HandlerFunc(
		handlers.ArenaWSHandler(logger, core),
	)))

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	logger.Infof("Running on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
