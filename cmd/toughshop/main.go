package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/talkincode/toughshop/config"
	"github.com/talkincode/toughshop/internal/adminapi"
	"github.com/talkincode/toughshop/internal/app"
	"github.com/talkincode/toughshop/internal/shopapi"
	"github.com/talkincode/toughshop/internal/webserver"
	"go.uber.org/zap"
)

var (
	h         = flag.Bool("h", false, "help usage")
	showVer   = flag.Bool("v", false, "show version")
	conffile  = flag.String("c", "", "config yaml file")
	initdb    = flag.Bool("initdb", false, "drop and recreate all tables")
	mintToken = flag.Int64("token", 0, "print a session token for the given user id and exit")
)

// set by -ldflags at build time
var (
	BuildVersion = "develop"
	BuildTime    = ""
)

func printHelp() {
	if *h {
		ustr := fmt.Sprintf("toughshop version: %s, Usage: toughshop -h\nOptions:", BuildVersion)
		_, _ = fmt.Fprint(os.Stderr, ustr)
		flag.PrintDefaults()
		os.Exit(0)
	}
}

func newWebServer(ctx app.AppContext) *webserver.Server {
	cfg := ctx.Config()
	s := webserver.NewServer(cfg, ctx.Users())
	shopapi.New(ctx.Catalog(), ctx.Images()).Register(s)
	adminapi.New(ctx.Catalog(), ctx.Analytics(), cfg.Analytics.DefaultDays).Register(s)
	return s
}

func main() {
	flag.Parse()

	if *showVer {
		fmt.Printf("version: %s\nbuild time: %s\n", BuildVersion, BuildTime)
		return
	}
	printHelp()

	cfg, err := config.LoadConfig(*conffile)
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	application := app.NewApplication(cfg)
	if err := application.Init(cfg); err != nil {
		zap.S().Errorf("application init failed: %+v", err)
		os.Exit(1)
	}
	defer application.Release()

	if *initdb {
		application.InitDb()
		zap.S().Info("database tables recreated")
		return
	}

	if *mintToken != 0 {
		token, err := application.MintToken(context.Background(), *mintToken)
		if err != nil {
			zap.S().Errorf("mint token: %v", err)
			return
		}
		fmt.Println(token)
		return
	}

	server := newWebServer(application)
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		zap.S().Infof("received %s, shutting down", sig)
	case err := <-errCh:
		if err != nil {
			zap.S().Errorf("web server stopped: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		zap.S().Errorf("web server shutdown: %v", err)
	}
}
