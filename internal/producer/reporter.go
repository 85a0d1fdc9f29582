package producer

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/chucky-1/moods/internal/model"
	"github.com/chucky-1/moods/internal/presenter"
	"github.com/chucky-1/moods/internal/service"
)

const feedTitle = "Mood feed\n\n"

type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Subscriber is the store the reporter follows
type Subscriber interface {
	Subscribe(fn service.Observer) func()
}

// Reporter sends the latest moods to every subscribed chat when the store changes
type Reporter struct {
	bot      Sender
	chats    service.Chats
	feedSize int
	now      func() time.Time

	// holds at most one pending snapshot, a newer one replaces it
	snapshots chan []model.Entry
}

func NewReporter(bot Sender, chats service.Chats, feedSize int) *Reporter {
	return &Reporter{
		bot:       bot,
		chats:     chats,
		feedSize:  feedSize,
		now:       time.Now,
		snapshots: make(chan []model.Entry, 1),
	}
}

// Observe is the store callback. It never blocks the store
func (r *Reporter) Observe(entries []model.Entry) {
	for {
		select {
		case r.snapshots <- entries:
			return
		default:
		}
		select {
		case <-r.snapshots:
		default:
		}
	}
}

// Produce follows the store until ctx is done. The snapshot present at start is not sent
func (r *Reporter) Produce(ctx context.Context, store Subscriber) {
	logrus.Info("reporter producer started produce")
	var started atomic.Bool
	cancel := store.Subscribe(func(entries []model.Entry) {
		if started.CompareAndSwap(false, true) {
			return
		}
		r.Observe(entries)
	})
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			logrus.Infof("reporter producer stopped: %v", ctx.Err())
			return
		case entries := <-r.snapshots:
			if err := r.sendFeeds(ctx, entries); err != nil {
				logrus.Error(err)
			}
		}
	}
}

func (r *Reporter) sendFeeds(ctx context.Context, entries []model.Entry) error {
	chats, err := r.chats.List(ctx)
	if err != nil {
		return fmt.Errorf("reporter producer couldn't list chats: %w", err)
	}

	feed := feedTitle + presenter.FormatFeed(entries, r.feedSize, r.now())
	for chatID, username := range chats {
		if err = r.sendFeed(chatID, feed); err != nil {
			logrus.Errorf("couldn't send the feed to %s: %v", username, err)
		}
	}
	return nil
}

func (r *Reporter) sendFeed(chatID int64, feed string) error {
	message := tgbotapi.NewMessage(chatID, feed)
	_, err := r.bot.Send(message)
	if err != nil {
		return fmt.Errorf("reporter producer couldn't send feed: %w", err)
	}
	return nil
}
