package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/eringen/scribeline"
	"github.com/eringen/scribeline/wordpress"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	cmd := "serve"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	switch cmd {
	case "serve":
		if err := runServe(); err != nil {
			log.Fatal(err)
		}
	case "sitemap":
		if err := runSitemap(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "version":
		fmt.Printf("scribeline %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func runServe() error {
	cfg, err := scribeline.LoadConfig()
	if err != nil {
		return err
	}
	app := scribeline.New(cfg)

	errc := make(chan error, 1)
	go func() { errc <- app.Start() }()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errc:
		app.Close()
		return err
	case <-quit:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return app.Shutdown(ctx)
}

func runSitemap() error {
	cfg, err := scribeline.LoadConfig()
	if err != nil {
		return err
	}
	if cfg.WordPressEndpoint == "" {
		return fmt.Errorf("NEXT_PUBLIC_WORDPRESS_API_ENDPOINT is not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	client := wordpress.NewClient(cfg.WordPressEndpoint, nil, nil)
	return scribeline.GenerateSitemap(ctx, cfg, client, os.Stdout)
}

func printUsage() {
	fmt.Println(`scribeline - marketing site, blog and AI tool routes

Usage:
  scribeline [command]

Commands:
  serve      Start the web server (default)
  sitemap    Print sitemap.xml built from the WordPress blog
  version    Print the scribeline version
  help       Show this help message

Configuration is read from the environment and an optional .env file.`)
}
