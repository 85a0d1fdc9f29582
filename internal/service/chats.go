package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/chucky-1/moods/internal/repository"
)

// Chats manages the chats that receive the mood feed
type Chats interface {
	// Subscribe reports false when the chat is already subscribed
	Subscribe(ctx context.Context, chatID int64, username string) (bool, error)
	// Unsubscribe reports false when the chat wasn't subscribed
	Unsubscribe(ctx context.Context, chatID int64) (bool, error)
	List(ctx context.Context) (map[int64]string, error)
}

type chats struct {
	repo repository.Chats
}

func NewChats(repo repository.Chats) *chats {
	return &chats{
		repo: repo,
	}
}

func (c *chats) Subscribe(ctx context.Context, chatID int64, username string) (bool, error) {
	subscribed, err := c.subscribed(ctx, chatID)
	if err != nil || subscribed {
		return false, err
	}
	if err = c.repo.Add(ctx, chatID, username); err != nil {
		return false, fmt.Errorf("service.Chats couldn't subscribe chat %d: %w", chatID, err)
	}
	logrus.Infof("chat %d of %s subscribed to the mood feed", chatID, username)
	return true, nil
}

func (c *chats) Unsubscribe(ctx context.Context, chatID int64) (bool, error) {
	subscribed, err := c.subscribed(ctx, chatID)
	if err != nil || !subscribed {
		return false, err
	}
	if err = c.repo.Remove(ctx, chatID); err != nil {
		return false, fmt.Errorf("service.Chats couldn't unsubscribe chat %d: %w", chatID, err)
	}
	logrus.Infof("chat %d unsubscribed from the mood feed", chatID)
	return true, nil
}

func (c *chats) List(ctx context.Context) (map[int64]string, error) {
	chats, err := c.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("service.Chats couldn't list chats: %w", err)
	}
	return chats, nil
}

func (c *chats) subscribed(ctx context.Context, chatID int64) (bool, error) {
	_, err := c.repo.Get(ctx, chatID)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, repository.ErrChatNotFound):
		return false, nil
	default:
		return false, fmt.Errorf("service.Chats couldn't get chat %d: %w", chatID, err)
	}
}
