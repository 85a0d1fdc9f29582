// Package consumer reads user commands from telegram
package consumer

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/chucky-1/moods/internal/model"
	"github.com/chucky-1/moods/internal/presenter"
	"github.com/chucky-1/moods/internal/service"
)

const (
	start       = "start"
	moods       = "moods"
	add         = "add"
	list        = "list"
	remove      = "delete"
	login       = "login"
	logout      = "logout"
	subscribe   = "subscribe"
	unsubscribe = "unsubscribe"
)

const (
	noteMaxLength = 500
	listLimit     = 20
	storeTimeout  = 10 * time.Second
)

var helpMessage = "Track how you feel.\n\n" +
	"/add <mood> [note] - record a mood, for example: /add happy finished my project\n" +
	"/moods - show the moods you can choose from\n" +
	"/list - show recorded moods\n" +
	"/delete <id> - delete a mood\n" +
	"/login, /logout - sign recorded moods with your telegram name\n" +
	"/subscribe, /unsubscribe - get the feed every time moods change"

// Sender delivers messages to telegram. *tgbotapi.BotAPI implements it
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Recorder is the mood store as the bot sees it
type Recorder interface {
	Add(ctx context.Context, mood model.Mood, note string) (model.Entry, error)
	Delete(ctx context.Context, id int64) (bool, error)
	All() []model.Entry
}

// Authenticator receives login and logout commands
type Authenticator interface {
	SetUser(user *model.User)
	ClearUser()
	Owner() string
}

// Bot receives updates from the telegram server and answers the commands
type Bot struct {
	bot         Sender
	updatesChan tgbotapi.UpdatesChannel
	validator   *validator.Validate
	moods       Recorder
	auth        Authenticator
	chats       service.Chats
	now         func() time.Time
	moodTag     string
}

func NewBot(bot Sender, updatesChan tgbotapi.UpdatesChannel, validator *validator.Validate, moods Recorder,
	auth Authenticator, chats service.Chats) *Bot {
	values := make([]string, 0, len(model.Moods()))
	for _, m := range model.Moods() {
		values = append(values, string(m))
	}
	return &Bot{
		bot:         bot,
		updatesChan: updatesChan,
		validator:   validator,
		moods:       moods,
		auth:        auth,
		chats:       chats,
		now:         time.Now,
		moodTag:     "required,oneof=" + strings.Join(values, " "),
	}
}

func (b *Bot) Consume(ctx context.Context) {
	logrus.Info("telegram bot started consuming")

	for {
		select {
		case <-ctx.Done():
			logrus.Infof("bot consumer stopped: %v", ctx.Err())
			return

		case update, ok := <-b.updatesChan:
			if !ok {
				logrus.Info("bot consumer stopped: updates channel closed")
				return
			}
			if err := b.handle(ctx, update); err != nil {
				logrus.Errorf("bot consumer error: %v", err)
			}
		}
	}
}

func (b *Bot) handle(ctx context.Context, update tgbotapi.Update) error {
	message := update.Message
	if message == nil {
		return nil
	}

	if !message.IsCommand() {
		logrus.Debugf("recieved message: %s", message.Text)
		return b.sendMessage(message, "I understand commands only. Send /start to see them")
	}

	switch message.Command() {
	case start:
		return b.sendMessage(message, helpMessage)
	case moods:
		return b.sendMessage(message, moodOptions())
	case add:
		return b.handleAdd(ctx, message)
	case list:
		return b.sendMessage(message, presenter.FormatFeed(b.moods.All(), listLimit, b.now()))
	case remove:
		return b.handleDelete(ctx, message)
	case login:
		return b.handleLogin(message)
	case logout:
		b.auth.ClearUser()
		return b.sendMessage(message, "You are logged out")
	case subscribe:
		return b.handleSubscribe(ctx, message)
	case unsubscribe:
		return b.handleUnsubscribe(ctx, message)
	default:
		logrus.Infof("unknown command: %s", message.Text)
		return b.sendMessage(message, "Unknown command. Send /start to see what I can do")
	}
}

func (b *Bot) handleAdd(ctx context.Context, message *tgbotapi.Message) error {
	moodArg, note, _ := strings.Cut(strings.TrimSpace(message.CommandArguments()), " ")
	mood := strings.ToLower(moodArg)

	if !b.validate(mood, b.moodTag) {
		logrus.Debugf("add, user entered the wrong mood: %s", moodArg)
		return b.sendMessage(message, fmt.Sprintf("Unknown mood %q. Choose one of:\n%s", moodArg, moodOptions()))
	}
	if !b.validate(strings.TrimSpace(note), fmt.Sprintf("max=%d", noteMaxLength)) {
		return b.sendMessage(message, fmt.Sprintf("The note is too long. Maximum %d characters", noteMaxLength))
	}

	newCtx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	entry, err := b.moods.Add(newCtx, model.Mood(mood), note)
	if err != nil {
		_ = b.sendMessage(message, "Couldn't save your mood, try again later")
		return fmt.Errorf("add error: %w", err)
	}

	logrus.Infof("%s added mood %d: %s", entry.Owner, entry.ID, entry.Mood)
	return b.sendMessage(message, "Recorded "+presenter.FormatEntry(entry, b.now()))
}

func (b *Bot) handleDelete(ctx context.Context, message *tgbotapi.Message) error {
	arg := strings.TrimPrefix(strings.TrimSpace(message.CommandArguments()), "#")
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return b.sendMessage(message, "Send the id of the mood to delete, for example: /delete 1700000000000")
	}

	newCtx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	deleted, err := b.moods.Delete(newCtx, id)
	if err != nil {
		_ = b.sendMessage(message, "Couldn't delete the mood, try again later")
		return fmt.Errorf("delete error: %w", err)
	}
	if !deleted {
		return b.sendMessage(message, fmt.Sprintf("There is no mood #%d", id))
	}

	logrus.Infof("mood %d deleted", id)
	return b.sendMessage(message, fmt.Sprintf("Deleted mood #%d", id))
}

func (b *Bot) handleLogin(message *tgbotapi.Message) error {
	username := sender(message)
	if username == "" {
		return b.sendMessage(message, "Set a telegram username to log in")
	}
	b.auth.SetUser(&model.User{Username: username})
	return b.sendMessage(message, fmt.Sprintf("Logged in as %s", b.auth.Owner()))
}

func (b *Bot) handleSubscribe(ctx context.Context, message *tgbotapi.Message) error {
	subscribed, err := b.chats.Subscribe(ctx, message.Chat.ID, sender(message))
	if err != nil {
		return fmt.Errorf("subscribe error: %w", err)
	}
	if !subscribed {
		return b.sendMessage(message, "You are already subscribed to the mood feed")
	}
	return b.sendMessage(message, "You will receive the mood feed every time moods change")
}

func (b *Bot) handleUnsubscribe(ctx context.Context, message *tgbotapi.Message) error {
	unsubscribed, err := b.chats.Unsubscribe(ctx, message.Chat.ID)
	if err != nil {
		return fmt.Errorf("unsubscribe error: %w", err)
	}
	if !unsubscribed {
		return b.sendMessage(message, "You aren't subscribed to the mood feed")
	}
	return b.sendMessage(message, "You won't receive the mood feed anymore")
}

func (b *Bot) sendMessage(message *tgbotapi.Message, text string) error {
	msg := tgbotapi.NewMessage(message.Chat.ID, text)
	msg.ReplyToMessageID = message.MessageID

	_, err := b.bot.Send(msg)
	if err != nil {
		return fmt.Errorf("sendMessage, telegram bot couldn't send message: %w", err)
	}
	return nil
}

func (b *Bot) validate(value string, tags string) bool {
	return b.validator.Var(value, tags) == nil
}

func sender(message *tgbotapi.Message) string {
	if message.From == nil {
		return ""
	}
	return message.From.UserName
}

func moodOptions() string {
	lines := make([]string, 0, len(model.Moods()))
	for _, o := range presenter.Options() {
		lines = append(lines, fmt.Sprintf("%s %s - %s", o.Emoji, o.Mood, o.Label))
	}
	return strings.Join(lines, "\n")
}
