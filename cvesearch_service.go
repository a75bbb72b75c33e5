package main

import (
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/CodeClarityCE/service-cvesearch/src/utilities/broker"
	"github.com/CodeClarityCE/service-cvesearch/src/utilities/metrics"
)

// CveSearchService wraps the database connection and the optional
// event broker for the cvesearch service.
type CveSearchService struct {
	DB     *bun.DB
	Events *broker.Broker
}

// CreateCveSearchService connects to the database, configures logging
// and starts the metrics endpoint.
func CreateCveSearchService() (*CveSearchService, error) {
	configureLogger()

	db, err := connectDatabase()
	if err != nil {
		return nil, err
	}

	metrics.StartMetricsServer(envOr("METRICS_PORT", "8080"))

	service := &CveSearchService{DB: db}

	// The broker is optional: a single-instance deployment works
	// without RabbitMQ.
	if url := os.Getenv("AMQP_URL"); url != "" {
		events, err := broker.Connect(url)
		if err != nil {
			logrus.Warnf("running without event broker: %v", err)
		} else {
			service.Events = events
		}
	}

	logrus.Info("cvesearch service initialized with database connection")
	return service, nil
}

// Close releases the database connection and the broker.
func (s *CveSearchService) Close() {
	if s.Events != nil {
		s.Events.Close()
	}
	if s.DB != nil {
		s.DB.Close()
	}
}

func connectDatabase() (*bun.DB, error) {
	host := os.Getenv("PG_DB_HOST")
	if host == "" {
		return nil, fmt.Errorf("PG_DB_HOST is not set")
	}
	port := os.Getenv("PG_DB_PORT")
	if port == "" {
		return nil, fmt.Errorf("PG_DB_PORT is not set")
	}
	user := os.Getenv("PG_DB_USER")
	if user == "" {
		return nil, fmt.Errorf("PG_DB_USER is not set")
	}
	password := os.Getenv("PG_DB_PASSWORD")
	if password == "" {
		return nil, fmt.Errorf("PG_DB_PASSWORD is not set")
	}
	name := envOr("PG_DB_NAME", "cvesearch")

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", user, password, host, port, name)
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn), pgdriver.WithTimeout(30*time.Second)))

	// read-heavy workload
	sqldb.SetMaxOpenConns(20)
	sqldb.SetMaxIdleConns(8)
	sqldb.SetConnMaxLifetime(5 * time.Minute)
	sqldb.SetConnMaxIdleTime(2 * time.Minute)

	if err := sqldb.Ping(); err != nil {
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	return bun.NewDB(sqldb, pgdialect.New()), nil
}

func configureLogger() {
	logrus.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339,
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
	})

	switch os.Getenv("LOG_LEVEL") {
	case "DEBUG":
		logrus.SetLevel(logrus.DebugLevel)
	case "WARN":
		logrus.SetLevel(logrus.WarnLevel)
	case "ERROR":
		logrus.SetLevel(logrus.ErrorLevel)
	default:
		logrus.SetLevel(logrus.InfoLevel)
	}
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
