package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Ignsass/chat-app/internal/auth"
	"github.com/Ignsass/chat-app/internal/realtime"
	"github.com/Ignsass/chat-app/internal/server"
	storage "github.com/Ignsass/chat-app/internal/storages"
	"github.com/Ignsass/chat-app/internal/uploads"
	usecase "github.com/Ignsass/chat-app/internal/usecases"
	"github.com/Shopify/sarama"
	"github.com/go-playground/validator/v10"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const tokenTTL = 30 * 24 * time.Hour

func initLogger(level string) *logrus.Logger {

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logger.SetLevel(logrus.InfoLevel)
		logger.
			WithField("log_level", level).
			Warning("specified invalid log level")
	} else {
		logger.SetLevel(logLevel)
		logger.
			WithField("log_level", level).
			Infof("specified %s log level", logLevel.String())
	}

	return logger
}

func initDB(dsn string, logger *logrus.Logger) *sqlx.DB {
	db, err := sqlx.Connect("pgx", dsn)
	if err != nil {
		logger.Fatalf("can't connect to database: %s", err.Error())
	}

	if err = db.Ping(); err != nil {
		logger.Fatalf("database ping failed: %s", err.Error())
	}

	logger.Info("successfully connected to database")
	return db
}

func runMigrations(logger *logrus.Logger) {
	dir := viper.GetString("MIGRATIONS_DIR")
	dsn := viper.GetString("MIGRATIONS_DSN")
	if dir == "" || dsn == "" {
		logger.Info("migrations skipped, MIGRATIONS_DIR or MIGRATIONS_DSN not set")
		return
	}

	m, err := migrate.New(dir, dsn)
	if err != nil {
		logger.Fatalf("can't open migrations: %s", err.Error())
	}

	if err = m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.Fatalf("can't migrate database: %s", err.Error())
	}
	logger.Info("database migrated")
}

func initProducer(logger *logrus.Logger) sarama.SyncProducer {
	brokers := viper.GetString("KAFKA_BROKERS")
	if len(brokers) == 0 {
		logger.Fatal("KAFKA_BROKERS environment variable must be defined")
	}

	addrs := strings.Split(brokers, ",")
	config := sarama.NewConfig()
	config.Producer.Partitioner = sarama.NewHashPartitioner
	config.Producer.RequiredAcks = sarama.WaitForLocal
	config.Producer.Timeout = 10 * time.Second
	config.Producer.Return.Successes = true
	producer, err := sarama.NewSyncProducer(addrs, config)

	if err != nil {
		logger.WithError(err).Fatal("can't create producer")
	}

	return producer
}

func initUploader(ctx context.Context, logger *logrus.Logger) uploads.Uploader {
	uploader, err := uploads.NewS3Uploader(ctx, uploads.S3Config{
		Region:       viper.GetString("S3_REGION"),
		Bucket:       viper.GetString("S3_BUCKET"),
		BaseEndpoint: viper.GetString("S3_ENDPOINT"),
		AccessKey:    viper.GetString("S3_ACCESS_KEY"),
		SecretKey:    viper.GetString("S3_SECRET_KEY"),
		PublicURL:    viper.GetString("S3_PUBLIC_URL"),
	})
	if err != nil {
		logger.Fatalf("can't create s3 uploader: %s", err.Error())
	}
	return uploader
}

func main() {
	viper.AutomaticEnv()
	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGHUP,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT)
	defer stop()

	var host string
	var port int
	var logLevel string

	flag.IntVar(&port, "port", 5000, "port on which server will be started")
	flag.StringVar(&host, "host", "0.0.0.0", "host on which server will be started")
	flag.StringVar(&logLevel, "log", "info", "log level")

	flag.Parse()

	logger := initLogger(logLevel)

	runMigrations(logger)

	db := initDB(viper.GetString("DB_DSN"), logger)
	defer func(db *sqlx.DB) {
		if err := db.Close(); err != nil {
			logger.Errorf("during db connection close an error occurred: %s", err.Error())
		}
	}(db)

	producer := initProducer(logger)

	store := storage.NewRegistry(db, producer, &storage.UpdatesStoreConfig{
		UpdatesTopic: viper.GetString("UPDATES_TOPIC"),
	})

	secret := viper.GetString("JWT_SECRET")
	if secret == "" {
		logger.Fatal("JWT_SECRET environment variable must be defined")
	}
	tokens := auth.NewManager(secret, tokenTTL, "chat-app")

	uploader := initUploader(ctx, logger)

	hub := realtime.NewHub(logger)
	go hub.Run()
	relay := realtime.NewRelay(hub)

	usersUsecase := usecase.NewUsersUsecase(store, tokens, uploader, relay, logger)
	chatsUsecase := usecase.NewChatsUsecase(store, uploader, logger)
	messagesUsecase := usecase.NewMessagesUsecase(store, relay, logger)

	wsHandler := realtime.NewHandler(hub, relay, tokens, usersUsecase, logger)

	validate := validator.New()
	srv := server.New(usersUsecase, chatsUsecase, messagesUsecase, uploader, tokens, wsHandler, validate, logger)

	address := fmt.Sprintf("%s:%d", host, port)
	httpServer := &http.Server{
		Addr:    address,
		Handler: srv.Router(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Errorf("server shutdown failed: %s", err.Error())
		}
		logger.Info("signal caught, gracefully shutdown")
	}()

	logger.Infof("start listening on %s", address)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("http serving error: %s", err.Error())
	}
}
