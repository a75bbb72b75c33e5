package main

import (
	"flag"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"

	cvesearch "github.com/CodeClarityCE/service-cvesearch/src"
	"github.com/CodeClarityCE/service-cvesearch/src/search"
	"github.com/CodeClarityCE/service-cvesearch/src/server"
	"github.com/CodeClarityCE/service-cvesearch/src/utilities/broker"
)

func main() {
	var help = flag.Bool("help", false, "Show help")
	var setup = flag.Bool("setup", false, "Create the storage schema")
	var importFeed = flag.Bool("import", false, "Import one yearly NVD feed")
	var year = flag.Int("year", time.Now().Year(), "Feed year to import")
	var dataDir = flag.String("data", "./data", "Feed download directory")
	var refresh = flag.Bool("refresh", false, "Force download of feed files again")
	var serve = flag.Bool("serve", false, "Serve the query API")
	var daemon = flag.Bool("daemon", false, "Serve the query API and refresh feeds on a cron schedule")
	var debug = flag.Bool("debug", false, "Run scheduled updates every minute for testing")

	flag.Parse()

	if *help {
		flag.Usage()
		os.Exit(0)
	}

	service, err := CreateCveSearchService()
	if err != nil {
		log.Fatalf("Failed to create cvesearch service: %v", err)
	}
	defer service.Close()

	switch {
	case *setup:
		log.Println("Running cvesearch setup...")
		if err := cvesearch.Setup(service.DB); err != nil {
			log.Fatalf("Failed to setup cvesearch: %v", err)
		}
		log.Println("Setup completed successfully")

	case *importFeed:
		log.Printf("Importing NVD feed for %d...", *year)
		imported, err := cvesearch.ImportYear(service.DB, *year, *dataDir, *refresh)
		if err != nil {
			log.Fatalf("Failed to import feed: %v", err)
		}
		if imported == 0 {
			log.Println("No new records created")
		} else {
			log.Printf("%d new records created", imported)
		}

	case *serve, *daemon:
		engine := search.NewEngine(
			&search.PostgresStore{DB: service.DB},
			search.NewResultCache(search.DefaultCacheCapacity),
		)

		// other instances announce their ingest runs over the broker
		if service.Events != nil {
			go func() {
				err := service.Events.SubscribeRefresh(func(broker.RefreshMessage) {
					log.Println("Knowledge refreshed, purging result cache")
					engine.Cache().Purge()
				})
				if err != nil {
					log.Printf("Refresh subscription stopped: %v", err)
				}
			}()
		}

		if *daemon {
			c := cron.New()

			cronExpr := "0 */6 * * *" // every 6 hours
			if *debug {
				log.Println("Debug mode: running updates every minute for testing")
				cronExpr = "* * * * *"
			}

			_, err := c.AddFunc(cronExpr, func() {
				timestamp := time.Now().Format("2006-01-02 15:04:05")
				log.Printf("[%s] Starting scheduled knowledge update...", timestamp)

				start := time.Now()
				err := cvesearch.Update(service.DB, *dataDir, service.Events)
				duration := time.Since(start)

				if err != nil {
					log.Printf("[%s] ERROR: Scheduled update failed after %v: %v", timestamp, duration, err)
					return
				}

				engine.Cache().Purge()
				log.Printf("[%s] SUCCESS: Scheduled update completed in %v", timestamp, duration)
			})
			if err != nil {
				log.Fatalf("Failed to add cron job: %v", err)
			}

			c.Start()
			log.Printf("Feed refresh scheduled with cron expression %q", cronExpr)
		}

		address := envOr("API_ADDRESS", "0.0.0.0")
		port, err := strconv.Atoi(envOr("API_PORT", "8000"))
		if err != nil {
			log.Fatalf("Invalid API_PORT: %v", err)
		}

		err = server.Run(server.Config{
			Address: address,
			Port:    port,
			Engine:  engine,
			DB:      service.DB,
		})
		if err != nil {
			log.Fatalf("Server stopped: %v", err)
		}

	default:
		flag.Usage()
		os.Exit(0)
	}
}
