package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/haukened/hostblock/internal/hostblock/common/clock"
	"github.com/haukened/hostblock/internal/hostblock/common/log"
	"github.com/haukened/hostblock/internal/hostblock/config"
	"github.com/haukened/hostblock/internal/hostblock/repos/decision"
	"github.com/haukened/hostblock/internal/hostblock/repos/rulefile"
	"github.com/haukened/hostblock/internal/hostblock/services/blocker"
)

const (
	version = "0.1.0-dev"
	appName = "hostblockd"
)

func main() {
	// Load configuration from environment
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	// Configure global logging
	err = log.Configure(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Logging configuration error: %v\n", err)
		os.Exit(1)
	}

	log.Info(map[string]any{
		"version":    version,
		"env":        cfg.Env,
		"log_level":  cfg.LogLevel,
		"rule_file":  cfg.RuleFile,
		"cache_size": cfg.CacheSize,
	}, "Starting hostblock lookup service")

	svc := buildService(cfg)

	// Initial load. A missing or unreadable file is not fatal: the service
	// fails open and picks the file up once it appears.
	if err := svc.ForceReload(); err != nil {
		log.Warn(map[string]any{"error": err.Error()}, "Initial rule load failed, serving empty index")
	}

	// SIGHUP forces a reload; SIGINT/SIGTERM exit.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		for sig := range sigChan {
			if sig == syscall.SIGHUP {
				if err := svc.ForceReload(); err != nil {
					log.Warn(map[string]any{"error": err.Error()}, "Reload failed")
				}
				continue
			}
			log.Info(map[string]any{"signal": sig.String()}, "Shutdown signal received")
			close(done)
			return
		}
	}()

	// Read domains from stdin, one per line, and print the decision.
	lines := make(chan string)
	go readLines(os.Stdin, lines, done)

	run(svc, lines, done)

	stats := svc.Stats()
	log.Info(map[string]any{
		"rules":      stats.RuleCount,
		"addresses":  stats.UniqueAddressCount,
		"cache_hits": stats.Cache.Hits,
	}, "hostblock stopped")
}

// buildService wires the blocker from config, or the noop service when no
// rule file is configured.
func buildService(cfg *config.AppConfig) blocker.Service {
	if cfg.RuleFile == "" {
		log.Info(nil, "No rule file configured, blocking disabled")
		return blocker.Noop{}
	}

	source := rulefile.NewSource(
		cfg.RuleFile,
		time.Duration(cfg.StabilityDelayMS)*time.Millisecond,
		clock.RealClock{},
		log.GetLogger(),
	)

	return blocker.New(blocker.Options{
		Source:      source,
		Caches:      decision.NewFactory(cfg.CacheSize),
		Logger:      log.GetLogger(),
		BloomFPRate: cfg.BloomFPRate,
	})
}

// readLines feeds lines from r into the lookup loop, closing the channel on
// EOF. A send in flight when done closes is abandoned so shutdown never
// waits on an unread line.
func readLines(r io.Reader, lines chan<- string, done <-chan struct{}) {
	defer close(lines)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		select {
		case lines <- scanner.Text():
		case <-done:
			return
		}
	}
}

// run answers stdin lookups until input ends or a shutdown signal arrives.
func run(svc blocker.Service, lines <-chan string, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if line == "" {
				continue
			}
			if blocked, addr := svc.Resolve(line); blocked {
				fmt.Printf("BLOCK %s %s\n", addr, line)
			} else {
				fmt.Printf("ALLOW %s\n", line)
			}
		}
	}
}
