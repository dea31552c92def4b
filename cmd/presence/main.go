package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/actionsum/presence/internal/config"
	"github.com/actionsum/presence/internal/daemon"
	"github.com/actionsum/presence/internal/database"
	"github.com/actionsum/presence/internal/export"
	"github.com/actionsum/presence/internal/ipc"
	"github.com/actionsum/presence/internal/presence"
	"github.com/actionsum/presence/internal/reporter"
	"github.com/actionsum/presence/internal/web"
	"github.com/actionsum/presence/pkg/detector"
	"github.com/actionsum/presence/pkg/pointer"
	"github.com/actionsum/presence/pkg/utils"
)

var (
	version = "0.1.0"
	commit  = "unknown"
	date    = "unknown"
)

const appName = "presence"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "start":
		startDaemon(false)
	case "serve":
		startDaemon(true)
	case "bridge":
		runBridge()
	case "export":
		runExport()
	case "stop":
		stopDaemon()
	case "status":
		showStatus()
	case "report":
		generateReport()
	case "prune":
		pruneDatabase()
	case "clear":
		clearDatabase()
	case "version":
		fmt.Printf("%s version %s\n", appName, version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf(`presence - Idle confirmation and session export companion

Usage:
  presence <command> [options]

Commands:
  start                  Start the idle monitor daemon
  serve                  Start the daemon with the web API server
  bridge                 Serve the shell over stdin/stdout (JSON lines)
  export <users.json>    Flatten user sessions from a file into the CSV export
  stop                   Stop the daemon
  status                 Show daemon status and the current pointer position
  report [period]        Generate activity report (period: day, week, month)
  prune [days]           Delete stored activity older than days (default 30)
  clear                  Clear all stored activity
  version                Show version information
  help                   Show this help message

Examples:
  presence serve
  presence export users.json
  presence report week --json
  presence stop

Environment Variables:
  PRESENCE_CONFIG            TOML or YAML config file (reloaded on change)
  PRESENCE_DB_PATH           Database file path
  PRESENCE_SAMPLE_INTERVAL   Pointer sample interval in seconds (1-300)
  PRESENCE_OUTPUT_PATH       CSV export path
  PRESENCE_PID_FILE          PID file path
  PRESENCE_TIMEZONE          Report time zone
  PRESENCE_WEB_HOST          Web API host
  PRESENCE_WEB_PORT          Web API port

Version: %s
`, version)
}

func loadConfig() *config.Config {
	cfg := config.New()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	return cfg
}

func openRepository(cfg *config.Config) (*database.DB, *database.Repository) {
	db, err := database.Connect(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := db.Initialize(); err != nil {
		db.Close()
		log.Fatalf("Failed to initialize database: %v", err)
	}

	return db, database.NewRepository(db)
}

func openDetector() pointer.Detector {
	det, err := detector.New()
	if err != nil {
		log.Fatalf("Failed to initialize pointer detector: %v", err)
	}

	log.Printf("Pointer detector initialized: %s", det.GetDisplayServer())
	return det
}

// redirectLog sends the log to the daemon log file, or to fallback if it
// cannot be opened
func redirectLog(fallback io.Writer) func() {
	logFile, err := os.OpenFile(daemon.LogFile(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		log.SetOutput(fallback)
		return func() {}
	}

	log.SetOutput(logFile)
	return func() { logFile.Close() }
}

func watchConfig(ctx context.Context, cfg *config.Config, svc *presence.Service) {
	if cfg.File == "" {
		return
	}

	err := config.Watch(ctx, cfg.File, svc.Reconfigure)
	if err != nil {
		log.Printf("Config hot reload disabled: %v", err)
	}
}

func startDaemon(withWeb bool) {
	cfg := loadConfig()

	dm := daemon.New(cfg.Daemon.PIDFile)
	running, pid, err := dm.IsRunning()
	if err != nil {
		log.Fatalf("Failed to check daemon status: %v", err)
	}
	if running {
		log.Fatalf("Daemon is already running (PID: %d)", pid)
	}

	if !daemon.IsChild() {
		pid, err := daemon.Detach(os.Args)
		if err != nil {
			log.Fatalf("%v", err)
		}

		fmt.Printf("Daemon started successfully (PID: %d)\n", pid)
		if withWeb {
			fmt.Printf("Web API available at: http://%s:%d\n", cfg.Web.Host, cfg.Web.Port)
		}
		fmt.Printf("Logs: %s\n", daemon.LogFile())
		return
	}

	runDaemon(cfg, dm, withWeb)
}

func runDaemon(cfg *config.Config, dm *daemon.Daemon, withWeb bool) {
	defer redirectLog(os.Stderr)()

	db, repo := openRepository(cfg)
	defer db.Close()

	det := openDetector()
	defer det.Close()

	if err := dm.WritePID(); err != nil {
		log.Fatalf("Failed to write PID file: %v", err)
	}
	defer dm.RemovePID()

	svc := presence.NewService(cfg, repo, det)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	var webServer *web.Server
	if withWeb {
		webServer = web.NewServer(cfg, repo, svc, 0)
		go func() {
			if err := webServer.Start(); err != nil && err != http.ErrServerClosed {
				log.Printf("Web server error: %v", err)
			}
		}()
		log.Printf("Web API available at: http://%s", webServer.GetAddress())
	}

	watchConfig(ctx, cfg, svc)

	serviceDone := make(chan struct{})
	go func() {
		defer close(serviceDone)
		if err := svc.Start(ctx); err != nil && err != context.Canceled {
			log.Printf("Presence service error: %v", err)
		}
	}()

	log.Println("Starting presence daemon...")
	log.Printf("Configuration:\n%s", cfg.String())

	select {
	case <-sigChan:
		log.Println("Received shutdown signal")
	case <-serviceDone:
	}

	cancel()
	svc.Stop()
	<-serviceDone

	if webServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := webServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("Error shutting down web server: %v", err)
		}
	}

	log.Println("Daemon stopped successfully")
}

// runBridge serves a shell that owns this process's stdio. Stdout carries
// only protocol messages, so the log goes to the log file or stderr.
func runBridge() {
	defer redirectLog(os.Stderr)()

	cfg := loadConfig()

	db, repo := openRepository(cfg)
	defer db.Close()

	det := openDetector()
	defer det.Close()

	svc := presence.NewService(cfg, repo, det)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("Received shutdown signal")
		cancel()
	}()

	watchConfig(ctx, cfg, svc)

	serviceDone := make(chan struct{})
	go func() {
		defer close(serviceDone)
		if err := svc.Start(ctx); err != nil && err != context.Canceled {
			log.Printf("Presence service error: %v", err)
		}
	}()

	// Status changes sent before the service is up would be refused
	for !svc.IsRunning() {
		select {
		case <-serviceDone:
			log.Fatalf("Presence service failed to start")
		case <-time.After(10 * time.Millisecond):
		}
	}

	bridge := ipc.NewBridge(svc, os.Stdin, os.Stdout)
	if err := bridge.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("Bridge error: %v", err)
	}

	cancel()
	svc.Stop()
	<-serviceDone
	log.Println("Bridge closed")
}

func runExport() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: presence export <users.json>")
		os.Exit(1)
	}

	data, err := os.ReadFile(os.Args[2])
	if err != nil {
		log.Fatalf("Failed to read %s: %v", os.Args[2], err)
	}

	users, err := export.ParseUsers(data)
	if err != nil {
		log.Fatalf("Invalid user records: %v", err)
	}

	cfg := loadConfig()
	db, repo := openRepository(cfg)
	defer db.Close()

	// Exporting needs no pointer source
	svc := presence.NewService(cfg, repo, nil)
	run, err := svc.Export(users)
	if err != nil {
		fmt.Printf("Export failed: %s\n", run.ErrorMsg)
		return
	}

	fmt.Printf("Exported %d rows from %d users to %s\n", run.RowCount, run.Users, run.Path)
}

func stopDaemon() {
	cfg := config.New()
	dm := daemon.New(cfg.Daemon.PIDFile)

	running, pid, err := dm.IsRunning()
	if err != nil {
		log.Fatalf("Failed to check daemon status: %v", err)
	}

	if !running {
		fmt.Println("Daemon is not running")
		return
	}

	fmt.Printf("Stopping daemon (PID: %d)...\n", pid)
	if err := dm.Stop(); err != nil {
		log.Fatalf("Failed to stop daemon: %v", err)
	}

	fmt.Println("Daemon stopped successfully")
}

func showStatus() {
	cfg := config.New()
	dm := daemon.New(cfg.Daemon.PIDFile)

	running, pid, err := dm.IsRunning()
	if err != nil {
		log.Fatalf("Failed to check daemon status: %v", err)
	}

	if !running {
		fmt.Println("Status: Not running")
	} else {
		fmt.Printf("Status: Running (PID: %d)\n", pid)
		fmt.Printf("Sample Interval: %s\n", utils.FormatDuration(cfg.Idle.SampleInterval))
		fmt.Printf("Output: %s\n", cfg.Export.OutputPath)
		fmt.Printf("Database: %s\n", cfg.Database.Path)
	}

	det, err := detector.New()
	if err != nil {
		fmt.Printf("\nCould not detect pointer: %v\n", err)
		return
	}
	defer det.Close()

	pos, err := det.Read()
	if err != nil {
		fmt.Printf("\nCould not read pointer: %v\n", err)
		return
	}

	fmt.Printf("\nPointer:\n")
	fmt.Printf("  Position: %s\n", pos)
	fmt.Printf("  Display: %s\n", det.GetDisplayServer())
}

func generateReport() {
	periodType := "day"
	if len(os.Args) > 2 {
		periodType = os.Args[2]
	}

	cfg := config.New()

	db, err := database.Connect(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	repo := database.NewRepository(db)
	rep := reporter.New(cfg, repo)

	jsonOutput := false
	if len(os.Args) > 3 && os.Args[3] == "--json" {
		jsonOutput = true
	}

	report, err := rep.GenerateReport(periodType)
	if err != nil {
		log.Fatalf("Failed to generate report: %v", err)
	}

	if jsonOutput {
		jsonStr, err := rep.FormatReportJSON(report)
		if err != nil {
			log.Fatalf("Failed to format JSON: %v", err)
		}
		fmt.Println(jsonStr)
	} else {
		fmt.Println(rep.FormatReportText(report))
	}
}

func pruneDatabase() {
	days := 30
	if len(os.Args) > 2 {
		n, err := strconv.Atoi(os.Args[2])
		if err != nil || n < 1 {
			log.Fatalf("Invalid number of days: %s", os.Args[2])
		}
		days = n
	}

	cfg := config.New()
	db, repo := openRepository(cfg)
	defer db.Close()

	deleted, err := repo.DeleteOlderThan(time.Now().AddDate(0, 0, -days))
	if err != nil {
		log.Fatalf("Failed to prune database: %v", err)
	}

	fmt.Printf("Deleted %d records older than %d days\n", deleted, days)
}

func clearDatabase() {
	cfg := config.New()

	fmt.Print("This will delete all stored activity. Are you sure? (yes/no): ")
	var response string
	fmt.Scanln(&response)

	if response != "yes" && response != "y" {
		fmt.Println("Operation cancelled")
		return
	}

	db, err := database.Connect(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	repo := database.NewRepository(db)

	if err := repo.Clear(); err != nil {
		log.Fatalf("Failed to clear database: %v", err)
	}

	fmt.Println("Database cleared successfully")
}
