package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	"github.com/matryer/way"
	log "github.com/sirupsen/logrus"
	"github.com/zucenko/crosschess/server"
)

type Server struct {
	router     *way.Router
	GameServer *server.GameServer
}

func main() {
	addr := flag.String("addr", getenv("CROSSCHESS_ADDR", ":"+getenv("PORT", "8080")), "listen address")
	variant := flag.String("variant", getenv("CROSSCHESS_VARIANT", server.VariantCross), "game variant: cross or classic")
	position := flag.String("position", getenv("CROSSCHESS_POSITION", ""), "board diagram replacing the cross starting position")
	fen := flag.String("fen", getenv("CROSSCHESS_FEN", ""), "FEN replacing the classic starting position")
	timeout := flag.Duration("timeout", getdur("CROSSCHESS_TIMEOUT", server.DefaultTimeout), "hand-off timeout between handlers and game loops")
	bots := flag.Int("bots", getint("CROSSCHESS_BOTS", 0), "seats played by the server with random moves")
	level := flag.String("log-level", getenv("CROSSCHESS_LOG_LEVEL", "info"), "log level")
	flag.Parse()

	lvl, err := log.ParseLevel(*level)
	if err != nil {
		log.Fatalf("log level: %v", err)
	}
	log.SetLevel(lvl)

	cfg := server.Config{
		Variant:  *variant,
		Position: *position,
		FEN:      *fen,
		Timeout:  *timeout,
		Bots:     *bots,
	}
	// fail at startup rather than on the first player
	if _, err := cfg.NewRules(); err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s := Server{
		GameServer: server.NewGameServer(cfg),
	}
	go s.GameServer.Loop(ctx)
	s.routes()

	srv := &http.Server{
		Addr:              *addr,
		Handler:           handlers.LoggingHandler(os.Stdout, s.router),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdown); err != nil {
			log.Warnf("shutdown: %v", err)
		}
	}()

	log.WithFields(log.Fields{"addr": *addr, "variant": cfg.Variant}).Info("listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalln(err)
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getint(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Warnf("%s=%q is not a number, using %d", key, v, def)
		return def
	}
	return n
}

func getdur(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Warnf("%s=%q is not a duration, using %s", key, v, def)
		return def
	}
	return d
}
