// Package main (in api-subfolder) provides launch of the review server
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/junker098/universe-app/internal/kafka"
	"github.com/junker098/universe-app/internal/mwlogger"
	"github.com/junker098/universe-app/internal/repository"
	"github.com/junker098/universe-app/internal/service"
	"github.com/junker098/universe-app/internal/storage"
	"github.com/junker098/universe-app/internal/transport"
	"github.com/junker098/universe-app/internal/worker"
	"github.com/spf13/cast"
	"github.com/wb-go/wbf/config"
	"github.com/wb-go/wbf/ginext"
	wbfkafka "github.com/wb-go/wbf/kafka"
	"github.com/wb-go/wbf/zlog"
)

func main() {
	// инициализировать конфиг/ считать энвы
	appConfig := config.New()
	appConfig.EnableEnv("")
	if err := appConfig.LoadEnvFiles("./.env"); err != nil {
		log.Fatalf("Failed to load envs: %s\nExiting app...", err)
	}

	// стартуем логгер
	zlog.InitConsole()
	if err := zlog.SetLevel(getString(appConfig, "LOG_LEVEL", "info")); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	// готовим заранее слушатель прерываний - контекст для всего приложения
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var closers []closer

	// хранилище флагов и журнал очисток
	store, history, dbClosers := openStore(appConfig)
	closers = append(closers, dbClosers...)

	// подключиться к библиотеке фото
	src, srcName, err := storage.NewPhotoSource(appConfig, 10*time.Second)
	if err != nil {
		log.Fatalf("Failed to init photo source: %v", err)
	}

	// аудит очисток - если кафка не задана, работаем без него
	var pub service.TaskPublisher = worker.NoopPublisher{}
	if broker := appConfig.GetString("KAFKA_BROKER"); broker != "" {
		topic := appConfig.GetString("KAFKA_TOPIC")
		if err := kafka.WaitKafkaReady(ctx, broker, 5*time.Second); err != nil {
			log.Fatalf("Kafka is unreachable: %v", err)
		}
		if err := kafka.EnsureAuditTopic(ctx, broker, 10*time.Second, topic); err != nil {
			log.Fatalf("Failed to prepare audit topic: %v", err)
		}
		producer := wbfkafka.NewProducer([]string{broker}, topic)
		pub = producer
		closers = append(closers, producer)
	}

	// создаем экземпляр сервиса
	var review ReviewAPIService = service.NewReviewService(src, store, pub, service.Options{
		SourceTimeout: cast.ToDuration(getString(appConfig, "SOURCE_TIMEOUT", "30s")),
		SourceName:    srcName,
	})
	var purges PurgeHistoryService = history

	runCtx, stopReview := context.WithCancel(context.Background())
	reviewDone := make(chan struct{})
	go func() {
		review.Run(runCtx)
		close(reviewDone)
	}()

	previews, err := transport.NewPreviewCache(
		cast.ToInt(getString(appConfig, "PREVIEW_CACHE_SIZE", "64")),
		cast.ToInt(getString(appConfig, "PREVIEW_WIDTH", "1280")),
		cast.ToInt(getString(appConfig, "PREVIEW_HEIGHT", "1280")),
	)
	if err != nil {
		log.Fatalf("Failed to init preview cache: %v", err)
	}
	feed, unsubscribe := review.Subscribe()
	go previews.Feed(runCtx, feed)

	// cоздаем экземпляр хендлера HTTP
	handlers := transport.NewReviewHandler(review, purges, previews)
	// сетапим сервер
	engine := ginext.New(appConfig.GetString("GIN_MODE"))

	engine.GET("/ping", handlers.SimplePinger)
	engine.POST("/review/start", handlers.Start)
	engine.GET("/review", handlers.State)
	engine.POST("/review/mark", handlers.Mark)
	engine.POST("/review/advance", handlers.Advance)
	engine.GET("/review/trash/count", handlers.TrashCount)
	engine.POST("/review/purge", handlers.Purge)
	engine.POST("/review/suspend", handlers.Suspend)
	engine.GET("/review/preview", handlers.Preview)
	engine.GET("/review/events", handlers.Events)
	engine.GET("/review/purges", handlers.PurgeHistory)

	srv := &http.Server{
		Addr:    ":" + getString(appConfig, "APP_PORT", "8080"),
		Handler: mwlogger.NewMWLogger(engine),
	}

	// Server launch
	go func() {
		log.Printf("Server running on http://localhost%s\n", srv.Addr)
		err := srv.ListenAndServe()
		if err != nil {
			switch {
			case errors.Is(err, http.ErrServerClosed):
				log.Println("Server gracefully stopping...")
			default:
				log.Printf("Server stopped: %v", err)
				stop()
			}
		}
	}()

	// ждем отмены контекста для запуска грейсфул закрытия
	<-ctx.Done()

	shutdown(srv, review, func() {
		unsubscribe()
		stopReview()
		<-reviewDone
	}, closers)
	log.Println("Exiting review server...")
}

// openStore picks the flag store named by FLAG_STORE. The purge history
// lives in the same database.
func openStore(cfg *config.Config) (repository.Store, *service.HistoryService, []closer) {
	switch getString(cfg, "FLAG_STORE", "postgres") {
	case "sqlite":
		repo, err := repository.NewSqliteRepo(getString(cfg, "SQLITE_PATH", "./data/trash.db"))
		if err != nil {
			log.Fatalf("Failed to open sqlite flag store: %v", err)
		}
		return repo, service.NewHistoryService(repo), []closer{repo}
	default:
		dbConn := repository.ConnectWithRetries(cfg, 5, 10*time.Second)
		repository.MigrateWithRetries(dbConn.Master, getString(cfg, "MIGRATIONS_DIR", "./migrations"), 10, 15*time.Second)
		repo := repository.NewPostgresRepo(dbConn)
		return repo, service.NewHistoryService(repo), []closer{dbConn.Master}
	}
}

func getString(cfg *config.Config, key, def string) string {
	if v := cfg.GetString(key); v != "" {
		return v
	}
	return def
}

func shutdown(srv *http.Server, review ReviewAPIService, stopReview func(), closers []closer) {
	log.Println("Interrupt received!!! Starting shutdown sequence...")

	shCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shCtx); err != nil {
		log.Println("Failed to shutdown HTTP-server gracefully:", err)
	}

	// флаги сохраняем до остановки цикла сервиса
	review.PersistOnSuspend(mwlogger.WithComponent(shCtx, "shutdown"))
	stopReview()
	log.Println("Review flags saved, workflow stopped.")

	for _, c := range closers {
		if err := c.Close(); err != nil {
			log.Println("Failed to close resource:", err)
		}
	}
	log.Println("Connections closed")
}
