package bot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"shortlink/internal/service"
	"shortlink/internal/types"

	tele "gopkg.in/telebot.v4"
)

const requestTimeout = 5 * time.Second

var (
	errAliasUsage   = errors.New("usage: /alias <code> <url>")
	errAliasInvalid = errors.New("that alias is reserved, too long or contains / ? #")
)

type TelegramBot struct {
	tgBot     *tele.Bot
	shortener *service.Shortener
	baseURL   string
	qrSize    int
}

func NewTelegramBot(tgToken string, shortener *service.Shortener, baseURL string, qrSize int) (*TelegramBot, error) {
	pref := tele.Settings{
		Token:  tgToken,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}

	bot, err := tele.NewBot(pref)
	if err != nil {
		slog.Error("failed to initialize telegram bot", "error", err)
		return nil, err
	}

	b := &TelegramBot{
		tgBot:     bot,
		shortener: shortener,
		baseURL:   strings.TrimRight(baseURL, "/"),
		qrSize:    qrSize,
	}

	return b, nil
}

func (b *TelegramBot) Start(ctx context.Context) error {
	slog.Info("Telegram bot started", "bot_username", b.tgBot.Me.Username)

	b.tgBot.Handle("/start", b.handleStart)
	b.tgBot.Handle("/stats", b.handleStats)
	b.tgBot.Handle("/alias", b.handleAlias)
	b.tgBot.Handle(tele.OnText, b.handleMessage)

	go func() {
		<-ctx.Done()
		slog.Info("Telegram bot shutting down")
		b.tgBot.Stop()
	}()

	b.tgBot.Start()
	return nil
}

func (b *TelegramBot) handleStart(c tele.Context) error {
	slog.Debug("command /start received", "user_id", c.Sender().ID)
	return c.Send("Hi! Send me a long link and I will shorten it.\n" +
		"/alias <code> <url> claims a custom code, /stats <code> shows clicks.")
}

func (b *TelegramBot) handleMessage(c tele.Context) error {
	return b.shorten(c, c.Text(), "")
}

func (b *TelegramBot) handleAlias(c tele.Context) error {
	alias, link, err := parseAliasArgs(c.Args())
	if err != nil {
		return c.Send(err.Error())
	}
	return b.shorten(c, link, alias)
}

func (b *TelegramBot) shorten(c tele.Context, link, alias string) error {
	link = strings.TrimSpace(link)
	if err := service.ValidateTargetURL(link); err != nil {
		slog.Warn("invalid url from telegram", "url", link, "user_id", c.Sender().ID)
		return c.Send("The link must start with http:// or https:// and contain a domain.")
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	owner := ownerID(c.Sender().ID)
	code, err := b.shortener.Allocate(ctx, service.AllocateRequest{
		TargetURL:   link,
		CustomAlias: alias,
		OwnerID:     &owner,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAliasConflict):
			return c.Send("That alias is already taken, try another one.")
		case errors.Is(err, service.ErrGenerationExhausted):
			return c.Send("Could not find a free short code, please try again.")
		default:
			slog.Error("failed to create short link", "error", err)
			return c.Send("Failed to create the link, please try again later.")
		}
	}

	shortURL := service.ShortURL(b.baseURL, code)
	png, err := service.EncodeQR(shortURL, b.qrSize)
	if err != nil {
		slog.Warn("failed to encode qr code", "code", code, "error", err)
		return c.Send("Here is your short link:\n" + shortURL)
	}
	return c.Send(&tele.Photo{
		File:    tele.FromReader(bytes.NewReader(png)),
		Caption: "Here is your short link:\n" + shortURL,
	})
}

func (b *TelegramBot) handleStats(c tele.Context) error {
	args := c.Args()
	if len(args) != 1 {
		return c.Send("Usage: /stats <code>")
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	link, err := b.shortener.GetRecord(ctx, args[0])
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return c.Send("No link with that code.")
		}
		slog.Error("failed to load stats", "code", args[0], "error", err)
		return c.Send("Failed to load stats, please try again later.")
	}
	return c.Send(formatStats(link))
}

func parseAliasArgs(args []string) (alias, link string, err error) {
	if len(args) != 2 {
		return "", "", errAliasUsage
	}
	alias = strings.TrimSpace(args[0])
	if alias == "" || service.ValidateAlias(alias) != nil {
		return "", "", errAliasInvalid
	}
	return alias, args[1], nil
}

func ownerID(telegramID int64) string {
	return "tg:" + strconv.FormatInt(telegramID, 10)
}

func formatStats(link *types.ShortLink) string {
	last := "never"
	if link.LastAccessedAt != nil {
		last = link.LastAccessedAt.UTC().Format(time.RFC3339)
	}
	return fmt.Sprintf("%s -> %s\nClicks: %d\nLast access: %s",
		link.Code, link.TargetURL, link.ClickCount, last)
}
