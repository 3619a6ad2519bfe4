package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ProductsScraped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scraper_products_scraped_total",
		Help: "Product records emitted by completed scrape passes.",
	})

	ProductsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scraper_products_failed_total",
		Help: "Products aborted by an unexpected failure.",
	})

	CaptchaBlocks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scraper_captcha_blocks_total",
		Help: "Times the acquisition worker parked on the captcha gate.",
	})

	ConvergenceTimeouts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scraper_price_convergence_timeouts_total",
		Help: "Price probes that kept the pre-probe price after the polling ceiling.",
	})

	CompetitorQueries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scraper_competitor_queries_total",
		Help: "Competitor marketplace searches issued.",
	})
)
