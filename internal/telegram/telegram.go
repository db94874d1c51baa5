// Package telegram hosts the Telegram client, routing, and handlers.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"tg_storefront_bot/internal/broadcast"
	"tg_storefront_bot/internal/config"
	"tg_storefront_bot/internal/domain"
	"tg_storefront_bot/internal/logging"
	"tg_storefront_bot/internal/session"
	"tg_storefront_bot/internal/store"
)

// botClient is the slice of the bot API the handlers use.
type botClient interface {
	Start(ctx context.Context)
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	SendDocument(ctx context.Context, params *bot.SendDocumentParams) (*models.Message, error)
	CopyMessage(ctx context.Context, params *bot.CopyMessageParams) (*models.MessageID, error)
	AnswerCallbackQuery(ctx context.Context, params *bot.AnswerCallbackQueryParams) (bool, error)
}

// Directory is the user directory surface the handlers consume.
type Directory interface {
	UpsertSeen(ctx context.Context, profile domain.Profile) (bool, error)
	Get(ctx context.Context, userID int64) (domain.User, error)
	SetOptIn(ctx context.Context, userID int64, optIn bool) error
	ListSegment(ctx context.Context, segment string) ([]int64, error)
	ListAll(ctx context.Context) ([]domain.User, error)
}

// Catalog lists purchasable items.
type Catalog interface {
	ListActive(ctx context.Context, category string) ([]domain.CatalogItem, error)
}

// Orders is the order engine surface the handlers consume.
type Orders interface {
	Create(ctx context.Context, userID int64, itemID primitive.ObjectID) (domain.Order, error)
	AttachProof(ctx context.Context, userID int64, proof domain.ProofRef) (domain.Order, bool, error)
	Approve(ctx context.Context, orderID primitive.ObjectID, adminID int64) (domain.Order, error)
	Reject(ctx context.Context, orderID primitive.ObjectID, adminID int64) (domain.Order, error)
	FinalizeDelivery(ctx context.Context, orderID primitive.ObjectID, adminID int64) (domain.Order, error)
	RecordRejectionReason(ctx context.Context, orderID primitive.ObjectID, reason string) (domain.Order, error)
	Cancel(ctx context.Context, orderID primitive.ObjectID) (domain.Order, error)
	Get(ctx context.Context, orderID primitive.ObjectID) (domain.Order, error)
	ListRecent(ctx context.Context, limit int64) ([]domain.Order, error)
}

// Broadcaster fans a draft out to a recipient list.
type Broadcaster interface {
	Run(ctx context.Context, sender broadcast.Sender, adminID int64, segment string, draft domain.DraftRef, recipients []int64) (broadcast.Result, error)
}

// Settings exposes the maintenance toggle.
type Settings interface {
	MaintenanceEnabled(ctx context.Context) (bool, error)
	SetMaintenance(ctx context.Context, enabled bool) error
}

// Stats aggregates the counters behind the admin stats panel.
type Stats interface {
	CountUsers(ctx context.Context) (int64, error)
	CountActiveUsers(ctx context.Context, since time.Time) (int64, error)
	OrdersSince(ctx context.Context, since time.Time) (store.OrderStats, error)
}

var (
	defaultAllowedUpdates = bot.AllowedUpdates{
		"message",
		"edited_message",
		"callback_query",
	}

	createBot = func(token string, options ...bot.Option) (botClient, error) {
		return bot.New(token, options...)
	}
)

// Client wraps the Telegram bot instance with the storefront dependencies.
type Client struct {
	api    botClient
	cfg    config.Config
	logger *logrus.Entry

	directory   Directory
	catalog     Catalog
	orders      Orders
	sessions    *session.Tracker
	broadcaster Broadcaster
	settings    Settings
	stats       Stats
}

// Option wires one dependency into the Client.
type Option func(*Client)

// WithDirectory sets the user directory.
func WithDirectory(d Directory) Option { return func(c *Client) { c.directory = d } }

// WithCatalog sets the catalog store.
func WithCatalog(s Catalog) Option { return func(c *Client) { c.catalog = s } }

// WithOrders sets the order engine.
func WithOrders(o Orders) Option { return func(c *Client) { c.orders = o } }

// WithSessions sets the admin session tracker.
func WithSessions(t *session.Tracker) Option { return func(c *Client) { c.sessions = t } }

// WithBroadcaster sets the broadcast engine.
func WithBroadcaster(b Broadcaster) Option { return func(c *Client) { c.broadcaster = b } }

// WithSettings sets the runtime settings store.
func WithSettings(s Settings) Option { return func(c *Client) { c.settings = s } }

// WithStats sets the stats provider.
func WithStats(s Stats) Option { return func(c *Client) { c.stats = s } }

// NewClient initializes the Telegram bot with long polling and the storefront
// routes.
func NewClient(cfg config.Config, logger *logrus.Entry, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.TelegramToken) == "" {
		return nil, errors.New("telegram token is required")
	}
	if logger == nil {
		logger = logging.Logger()
	}

	client := &Client{
		cfg:      cfg,
		logger:   logger,
		sessions: session.NewTracker(),
	}
	for _, opt := range opts {
		opt(client)
	}

	api, err := createBot(cfg.TelegramToken,
		bot.WithAllowedUpdates(defaultAllowedUpdates),
		bot.WithDefaultHandler(client.handleUpdate),
		bot.WithErrorsHandler(errorHandler(logger)),
	)
	if err != nil {
		return nil, fmt.Errorf("init telegram bot client: %w", err)
	}

	client.api = api
	return client, nil
}

// Start begins receiving updates via long polling until the context is canceled.
func (c *Client) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}

	c.logger.WithFields(logging.Fields{
		"event":           "telegram_listen",
		"allowed_updates": defaultAllowedUpdates,
	}).Info("starting telegram long polling")

	c.api.Start(ctx)

	c.logger.WithField("event", "telegram_stopped").Info("telegram polling stopped")
}

// CopyTo copies the draft message to the given chat. It implements
// broadcast.Sender and is also used for delivery payloads.
func (c *Client) CopyTo(ctx context.Context, chatID int64, draft domain.DraftRef) error {
	_, err := c.api.CopyMessage(ctx, &bot.CopyMessageParams{
		ChatID:     chatID,
		FromChatID: draft.FromChatID,
		MessageID:  draft.MessageID,
	})
	return err
}

// handleUpdate is the single dispatch point for every inbound update.
func (c *Client) handleUpdate(ctx context.Context, _ *bot.Bot, update *models.Update) {
	if update == nil {
		return
	}

	meta := extractUpdateMeta(update)
	c.logUpdate(meta)

	switch {
	case update.CallbackQuery != nil:
		c.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		c.handleMessage(ctx, update.Message)
	}
}

type updateMeta struct {
	userID     int64
	chatID     int64
	text       string
	updateType string
}

func (c *Client) logUpdate(meta updateMeta) {
	fields := logging.Fields{
		"event":       "telegram_update",
		"update_type": meta.updateType,
	}

	if meta.text != "" {
		fields["text"] = meta.text
	}
	if meta.userID != 0 {
		fields["user_id"] = meta.userID
	}
	if meta.chatID != 0 {
		fields["chat_id"] = meta.chatID
	}

	c.logger.WithFields(fields).Info("telegram update received")
}

func extractUpdateMeta(update *models.Update) updateMeta {
	switch {
	case update.Message != nil:
		return updateMeta{
			userID:     userID(update.Message.From),
			chatID:     chatID(&update.Message.Chat),
			text:       strings.TrimSpace(update.Message.Text),
			updateType: "message",
		}
	case update.EditedMessage != nil:
		return updateMeta{
			userID:     userID(update.EditedMessage.From),
			chatID:     chatID(&update.EditedMessage.Chat),
			text:       strings.TrimSpace(update.EditedMessage.Text),
			updateType: "edited_message",
		}
	case update.CallbackQuery != nil:
		return updateMeta{
			userID:     update.CallbackQuery.From.ID,
			chatID:     messageChatID(update.CallbackQuery.Message),
			text:       strings.TrimSpace(update.CallbackQuery.Data),
			updateType: "callback_query",
		}
	default:
		return updateMeta{updateType: "unknown"}
	}
}

func errorHandler(logger *logrus.Entry) bot.ErrorsHandler {
	if logger == nil {
		logger = logging.Logger()
	}

	return func(err error) {
		if err == nil {
			return
		}

		logger.WithField("event", "telegram_error").WithError(err).Error("telegram polling error")
	}
}

func userID(user *models.User) int64 {
	if user == nil {
		return 0
	}

	return user.ID
}

func chatID(chat *models.Chat) int64 {
	if chat == nil {
		return 0
	}

	return chat.ID
}

func messageChatID(msg models.MaybeInaccessibleMessage) int64 {
	switch msg.Type {
	case models.MaybeInaccessibleMessageTypeMessage:
		if msg.Message == nil {
			return 0
		}
		return chatID(&msg.Message.Chat)
	case models.MaybeInaccessibleMessageTypeInaccessibleMessage:
		if msg.InaccessibleMessage == nil {
			return 0
		}
		return chatID(&msg.InaccessibleMessage.Chat)
	default:
		return 0
	}
}

// send is the shared helper for plain text replies. Send failures are logged,
// not propagated, because a failed reply must never wedge update handling.
func (c *Client) send(ctx context.Context, chatID int64, text string, markup models.ReplyMarkup) {
	params := &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	}
	if markup != nil {
		params.ReplyMarkup = markup
	}

	if _, err := c.api.SendMessage(ctx, params); err != nil {
		c.logger.WithFields(logging.Fields{
			"event":   "telegram_send_failed",
			"chat_id": chatID,
		}).WithError(err).Warn("failed to send message")
	}
}

func (c *Client) answerCallback(ctx context.Context, callbackID, text string) {
	if _, err := c.api.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
		Text:            text,
	}); err != nil {
		c.logger.WithField("event", "telegram_callback_answer_failed").WithError(err).Warn("failed to answer callback query")
	}
}
