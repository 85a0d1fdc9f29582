package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/chucky-1/moods/internal/config"
	"github.com/chucky-1/moods/internal/consumer"
	"github.com/chucky-1/moods/internal/producer"
	"github.com/chucky-1/moods/internal/repository"
	"github.com/chucky-1/moods/internal/service"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatal(err)
	}
	level, _ := logrus.ParseLevel(cfg.LogLevel)
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	repo, closeRepo, err := openStorage(ctx, cfg.Storage)
	if err != nil {
		logrus.Fatal(err)
	}
	defer closeRepo()

	if cfg.SeedDemo {
		if err = seed(ctx, repo); err != nil {
			logrus.Fatal(err)
		}
	}

	session := service.NewSession(cfg.Identity.OwnerTag)
	go func() {
		provider := service.NewStaticProvider(cfg.Identity.Username, cfg.Identity.Email)
		if err := session.Follow(ctx, provider); err != nil {
			logrus.Errorf("auth provider stopped: %v", err)
		}
	}()

	store := service.NewMoods(repo, session)
	if err = store.Load(ctx); err != nil {
		logrus.Fatal(err)
	}
	go func() {
		if err := store.Watch(ctx); err != nil {
			logrus.Errorf("storage watch stopped: %v", err)
		}
	}()

	bot, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		logrus.Fatal(err)
	}
	bot.Debug = cfg.Telegram.Debug

	u := tgbotapi.NewUpdate(0)
	u.Timeout = cfg.Telegram.Timeout
	updates := bot.GetUpdatesChan(u)

	chats := service.NewChats(repository.NewChatsLocalStorage())

	reporter := producer.NewReporter(bot, chats, cfg.FeedSize)
	go reporter.Produce(ctx, store)

	tgBot := consumer.NewBot(bot, updates, validator.New(), store, session, chats)
	go tgBot.Consume(ctx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, os.Interrupt)
	<-quit
	bot.StopReceivingUpdates()
	cancel()
	<-time.After(2 * time.Second)
}

func openStorage(ctx context.Context, cfg config.Storage) (repository.Moods, func(), error) {
	switch cfg.Backend {
	case config.BackendMongo:
		cli, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			return nil, nil, fmt.Errorf("couldn't connect to mongo: %w", err)
		}
		if err = cli.Ping(ctx, nil); err != nil {
			return nil, nil, fmt.Errorf("couldn't ping mongo: %w", err)
		}
		closeFn := func() {
			if err := cli.Disconnect(context.Background()); err != nil {
				logrus.Error(err)
			}
		}
		return repository.NewMongo(cli, cfg.MongoDatabase), closeFn, nil

	case config.BackendPostgres:
		conn, err := pgxpool.Connect(ctx, cfg.PostgresEndpoint)
		if err != nil {
			return nil, nil, fmt.Errorf("couldn't connect to postgres: %w", err)
		}
		repo := repository.NewPostgres(conn)
		if err = repo.Migrate(ctx); err != nil {
			conn.Close()
			return nil, nil, err
		}
		return repo, conn.Close, nil

	case config.BackendFirestore:
		repo, err := repository.NewFirestore(ctx, cfg.FirestoreProject)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			if err := repo.Close(); err != nil {
				logrus.Error(err)
			}
		}
		return repo, closeFn, nil

	default:
		return repository.NewLocalStorage(), func() {}, nil
	}
}

// seed fills an empty storage with the demo moods
func seed(ctx context.Context, repo repository.Moods) error {
	entries, err := repo.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("couldn't check storage before seeding: %w", err)
	}
	if len(entries) != 0 {
		return nil
	}

	demo := repository.DemoMoods()
	for i := len(demo) - 1; i >= 0; i-- {
		if err = repo.Append(ctx, demo[i]); err != nil {
			return fmt.Errorf("couldn't seed demo moods: %w", err)
		}
	}
	logrus.Infof("storage seeded with %d demo moods", len(demo))
	return nil
}
