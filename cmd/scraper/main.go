package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/maltedev/aliexpress-price-scraper/internal/browser"
	"github.com/maltedev/aliexpress-price-scraper/internal/config"
	"github.com/maltedev/aliexpress-price-scraper/internal/database"
	"github.com/maltedev/aliexpress-price-scraper/internal/events"
	"github.com/maltedev/aliexpress-price-scraper/internal/parser"
	"github.com/maltedev/aliexpress-price-scraper/internal/scraper"
	"github.com/maltedev/aliexpress-price-scraper/internal/storage"
	"github.com/maltedev/aliexpress-price-scraper/pkg/logger"
)

func main() {
	var (
		listURL   = flag.String("list", "", "AliExpress listing or search URL to discover products from")
		urls      = flag.String("urls", "", "Comma-separated list of AliExpress product URLs to scrape")
		inputFile = flag.String("file", "", "File containing product URLs (one per line)")
		output    = flag.String("output", "", "Directory for scraped product JSON (defaults to CACHE_DIR)")
		mode      = flag.String("mode", "", "Operating mode: silent, detailed, or debug (overrides SCRAPER_MODE)")
		headless  = flag.Bool("headless", true, "Run browser in headless mode")
	)
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if *output != "" {
		cfg.Scraper.CacheDir = *output
	}
	if *mode != "" {
		cfg.Scraper.Mode = *mode
	}

	logger := logger.New(logger.LevelForMode(cfg.Scraper.Mode), cfg.Logging.Format)
	logger.Info("Starting AliExpress Price Scraper", "mode", cfg.Scraper.Mode)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Shutdown signal received")
		cancel()
	}()

	targets, err := loadTargets(*urls, *inputFile)
	if err != nil {
		logger.Error("Failed to load targets", "error", err)
		os.Exit(1)
	}
	if *listURL == "" && len(targets) == 0 {
		fmt.Println("Nothing to scrape. Use -list, -urls, or -file to specify products.")
		flag.Usage()
		os.Exit(1)
	}

	store, err := storage.NewRecordStore(cfg.Scraper.CacheDir)
	if err != nil {
		logger.Error("Failed to open record store", "error", err)
		os.Exit(1)
	}

	sinks := []scraper.RecordSink{store}
	if cfg.Database.Enabled {
		db, err := database.New(ctx, database.Config{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			Database: cfg.Database.DBName,
			SSLMode:  cfg.Database.SSLMode,
		})
		if err != nil {
			logger.Error("Failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		sinks = append(sinks, events.NewPublisher(db, logger))
	}

	b, err := browser.New(&browser.Options{
		Headless:       *headless && cfg.Browser.Headless,
		Timeout:        cfg.Browser.Timeout,
		UserAgent:      cfg.Browser.UserAgent,
		ViewportWidth:  cfg.Browser.ViewportWidth,
		ViewportHeight: cfg.Browser.ViewportHeight,
		AcceptLanguage: cfg.Browser.AcceptLanguage,
		TimezoneID:     cfg.Browser.TimezoneID,
		Locale:         cfg.Browser.Locale,
		ProxyServer:    cfg.Browser.ProxyServer,
	})
	if err != nil {
		logger.Error("Failed to initialize browser", "error", err)
		os.Exit(1)
	}
	defer b.Close()

	page, err := b.NewPage()
	if err != nil {
		logger.Error("Failed to open page", "error", err)
		os.Exit(1)
	}

	var quotes scraper.QuoteSource
	if cfg.Scraper.EnableCompetitorSearch {
		quotes = scraper.NewQuoteCollector(page, parser.NewAmazonSearchParser(), cfg.Scraper, logger)
	}

	orch := scraper.NewOrchestrator(page, cfg, quotes, scraper.MultiSink(sinks), logger)

	// When a captcha blocks the run the operator solves it in the browser
	// window and presses Enter here to resume.
	go watchStdin(orch)

	runErr := make(chan error, 1)
	go func() {
		if *listURL != "" {
			runErr <- orch.RunListing(ctx, *listURL)
		} else {
			runErr <- orch.Run(ctx, targets)
		}
	}()

	scraped := 0
	for ev := range orch.Events() {
		switch ev.Kind {
		case scraper.EventItemScraped:
			scraped++
			logger.Info("Product scraped",
				"product_id", ev.Record.ProductID,
				"title", ev.Record.Title,
				"skus", len(ev.Record.Skus))
		case scraper.EventCaptchaBlocked:
			fmt.Println("Captcha detected. Solve it in the browser window, then press Enter to resume.")
		case scraper.EventCaptchaCleared:
			logger.Info("Captcha cleared, resuming")
		case scraper.EventError:
			logger.Warn("Scrape failed", "message", ev.Message, "error", ev.Err)
		case scraper.EventBatchDone:
			logger.Info("Batch finished", "scraped", scraped)
		}
	}

	if err := <-runErr; err != nil && !errors.Is(err, scraper.ErrCancelled) {
		logger.Error("Scraping failed", "error", err)
		os.Exit(1)
	}

	logger.Info("Scraping completed", "products", scraped, "output", cfg.Scraper.CacheDir)
}

func loadTargets(urls, inputFile string) ([]string, error) {
	var targets []string

	if urls != "" {
		targets = append(targets, strings.Split(urls, ",")...)
	}

	if inputFile != "" {
		data, err := os.ReadFile(inputFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read input file: %w", err)
		}
		for _, line := range strings.Split(string(data), "\n") {
			line = strings.TrimSpace(line)
			if line != "" && !strings.HasPrefix(line, "#") {
				targets = append(targets, line)
			}
		}
	}

	out := targets[:0]
	for _, t := range targets {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, scraper.CleanURL(t))
		}
	}
	return out, nil
}

func watchStdin(orch *scraper.Orchestrator) {
	sc := bufio.NewScanner(os.Stdin)
	for sc.Scan() {
		if orch.Blocked() {
			orch.Resume()
		}
	}
}
