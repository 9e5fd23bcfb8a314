package main

import (
	"fmt"
	"log"
	"os"

	"github.com/wrencms/wren"
)

func main() {
	cmd := "serve"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	switch cmd {
	case "serve":
		if err := serve(); err != nil {
			log.Fatalf("wren: %v", err)
		}
	case "version":
		fmt.Printf("wren %s\n", wren.Version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func serve() error {
	cfg := wren.SiteConfig{
		URL:           wren.EnvOr("WREN_URL", "http://localhost:3000"),
		Addr:          wren.EnvOr("WREN_ADDR", ":3000"),
		RootDir:       wren.EnvOr("WREN_ROOT", "."),
		SessionSecret: wren.MustEnv("WREN_SESSION_SECRET"),
		CookieSecure:  os.Getenv("WREN_COOKIE_SECURE") != "",
	}
	return wren.New(cfg, wren.DefaultTheme()).Start()
}

func printUsage() {
	fmt.Println(`wren - a flat-file site-content engine

Usage:
  wren <command>

Commands:
  serve         Start the server (default)
  version       Print the wren version
  help          Show this help message

Environment:
  WREN_ADDR            Listen address (default ":3000")
  WREN_URL             Canonical site URL
  WREN_ROOT            Install root directory (default ".")
  WREN_SESSION_SECRET  Required session encryption secret
  WREN_COOKIE_SECURE   Set for HTTPS deployments`)
}
