package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-telegram/bot/models"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"tg_storefront_bot/internal/domain"
	"tg_storefront_bot/internal/logging"
	"tg_storefront_bot/internal/session"
)

func (c *Client) handleCallback(ctx context.Context, cb *models.CallbackQuery) {
	uid := cb.From.ID
	chat := messageChatID(cb.Message)
	data := strings.TrimSpace(cb.Data)
	isAdmin := c.cfg.IsAdmin(uid)

	if chat == 0 {
		chat = uid
	}

	if c.directory != nil {
		if _, err := c.directory.UpsertSeen(ctx, profileFrom(&cb.From)); err != nil {
			c.logger.WithFields(logging.Fields{
				"event":   "directory_upsert_failed",
				"user_id": uid,
			}).WithError(err).Warn("failed to refresh user profile")
		}
	}

	if !isAdmin && c.maintenanceOn(ctx) {
		c.answerCallback(ctx, cb.ID, maintenanceNotice)
		return
	}

	switch {
	case data == cbHome:
		c.answerCallback(ctx, cb.ID, "")
		c.send(ctx, chat, "🏠 Main menu", kbMain(isAdmin))

	case data == cbVPN:
		c.answerCallback(ctx, cb.ID, "")
		c.showCatalog(ctx, chat, domain.CategoryVPN, "🛡 Choose a VPN plan:", cbItemVPN)

	case data == cbApps:
		c.answerCallback(ctx, cb.ID, "")
		c.showCatalog(ctx, chat, domain.CategoryApp, "🛍 Choose an app subscription:", cbItemApp)

	case data == cbSettings:
		c.answerCallback(ctx, cb.ID, "")
		c.showSettings(ctx, chat, uid)

	case data == cbSupport:
		c.answerCallback(ctx, cb.ID, "")
		c.send(ctx, chat, "📞 Our support team is happy to help.", kbSupport(c.cfg.SupportURL()))

	case data == cbToggleBroadcast:
		c.toggleUserBroadcast(ctx, cb, chat, uid)

	case strings.HasPrefix(data, cbItemVPN):
		c.createOrder(ctx, cb, chat, uid, strings.TrimPrefix(data, cbItemVPN))

	case strings.HasPrefix(data, cbItemApp):
		c.createOrder(ctx, cb, chat, uid, strings.TrimPrefix(data, cbItemApp))

	case strings.HasPrefix(data, cbOrderCancel):
		c.cancelOrder(ctx, cb, chat, uid, strings.TrimPrefix(data, cbOrderCancel))

	case data == cbPayCard:
		c.answerCallback(ctx, cb.ID, "")
		c.send(ctx, chat, fmt.Sprintf(
			"💳 Transfer the exact amount to this card:\n\n%s\n\nThen send a screenshot or PDF of the receipt here.",
			c.cfg.CardNumber), nil)

	case data == cbAdmin || strings.HasPrefix(data, "adm:"):
		if !isAdmin {
			c.answerCallback(ctx, cb.ID, "Not authorized.")
			return
		}
		c.handleAdminCallback(ctx, cb, chat, uid, data)

	default:
		c.answerCallback(ctx, cb.ID, "")
	}
}

func (c *Client) showCatalog(ctx context.Context, chat int64, category, title, prefix string) {
	items, err := c.catalog.ListActive(ctx, category)
	if err != nil {
		c.logger.WithField("event", "catalog_list_failed").WithError(err).Error("failed to list catalog")
		c.send(ctx, chat, "The catalog is unavailable right now. Please try again.", nil)
		return
	}
	if len(items) == 0 {
		c.send(ctx, chat, "Nothing is on sale in this category at the moment.", kbMain(false))
		return
	}

	c.send(ctx, chat, title, kbCatalog(items, prefix))
}

func (c *Client) showSettings(ctx context.Context, chat, uid int64) {
	user, err := c.directory.Get(ctx, uid)
	if err != nil {
		c.logger.WithField("event", "settings_load_failed").WithError(err).Warn("failed to load user settings")
		c.send(ctx, chat, "Settings are unavailable right now.", nil)
		return
	}

	state := "on 🔔"
	if !user.AllowBroadcast {
		state = "off 🔕"
	}
	c.send(ctx, chat, "⚙️ Announcements are "+state, kbUserSettings(user.AllowBroadcast))
}

func (c *Client) toggleUserBroadcast(ctx context.Context, cb *models.CallbackQuery, chat, uid int64) {
	user, err := c.directory.Get(ctx, uid)
	if err != nil {
		c.answerCallback(ctx, cb.ID, "Settings are unavailable right now.")
		return
	}

	if err := c.directory.SetOptIn(ctx, uid, !user.AllowBroadcast); err != nil {
		c.answerCallback(ctx, cb.ID, "Could not update your settings.")
		return
	}

	c.answerCallback(ctx, cb.ID, "Updated.")
	c.showSettings(ctx, chat, uid)
}

func (c *Client) createOrder(ctx context.Context, cb *models.CallbackQuery, chat, uid int64, hexID string) {
	itemID, err := primitive.ObjectIDFromHex(hexID)
	if err != nil {
		c.answerCallback(ctx, cb.ID, "This item reference is invalid.")
		return
	}

	order, err := c.orders.Create(ctx, uid, itemID)
	if err != nil {
		if errors.Is(err, domain.ErrItemUnavailable) {
			c.answerCallback(ctx, cb.ID, "This item is no longer available.")
			return
		}
		c.logger.WithField("event", "order_create_failed").WithError(err).Error("failed to create order")
		c.answerCallback(ctx, cb.ID, "Could not create your order. Please try again.")
		return
	}

	c.answerCallback(ctx, cb.ID, "")
	c.send(ctx, chat, fmt.Sprintf(
		"🧾 Order %s\n%s\nAmount: %s\n\nChoose a payment method:",
		order.OrderCode, order.ItemTitle, domain.FormatPriceToman(order.PriceToman)), kbPayment(order.ID.Hex()))
}

// cancelOrder lets a buyer abandon their own order before it is decided.
func (c *Client) cancelOrder(ctx context.Context, cb *models.CallbackQuery, chat, uid int64, hexID string) {
	orderID, err := primitive.ObjectIDFromHex(hexID)
	if err != nil {
		c.answerCallback(ctx, cb.ID, "This order reference is invalid.")
		return
	}

	order, err := c.orders.Get(ctx, orderID)
	if err != nil || order.UserID != uid {
		c.answerCallback(ctx, cb.ID, "This order is not yours to cancel.")
		return
	}

	order, err = c.orders.Cancel(ctx, orderID)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidTransition) {
			c.answerCallback(ctx, cb.ID, "This order can no longer be cancelled.")
			return
		}
		c.logger.WithField("event", "order_cancel_failed").WithError(err).Error("failed to cancel order")
		c.answerCallback(ctx, cb.ID, "Could not cancel the order. Please try again.")
		return
	}

	c.answerCallback(ctx, cb.ID, "")
	c.send(ctx, chat, fmt.Sprintf("🚫 Order %s cancelled.", order.OrderCode), kbMain(c.cfg.IsAdmin(uid)))
}

func (c *Client) handleAdminCallback(ctx context.Context, cb *models.CallbackQuery, chat, uid int64, data string) {
	switch {
	case data == cbAdmin:
		c.answerCallback(ctx, cb.ID, "")
		c.send(ctx, chat, "🔐 Admin panel", kbAdminMenu())

	case data == cbAdmBroadcast:
		c.sessions.ExpectBroadcastDraft(uid)
		c.answerCallback(ctx, cb.ID, "")
		c.send(ctx, chat, "📣 Send me the announcement now. Any message type works.", nil)

	case strings.HasPrefix(data, cbAdmBroadcastSend):
		c.runBroadcast(ctx, cb, chat, uid, strings.TrimPrefix(data, cbAdmBroadcastSend))

	case data == cbAdmBroadcastCancel:
		c.sessions.Clear(uid)
		c.answerCallback(ctx, cb.ID, "Cancelled.")
		c.send(ctx, chat, "Broadcast cancelled.", kbAdminMenu())

	case data == cbAdmCatalog:
		c.answerCallback(ctx, cb.ID, "")
		c.showAdminCatalog(ctx, chat)

	case data == cbAdmUsersCount:
		c.answerCallback(ctx, cb.ID, "")
		c.showUserCounts(ctx, chat)

	case data == cbAdmStats:
		c.answerCallback(ctx, cb.ID, "")
		c.showStats(ctx, chat)

	case data == cbAdmMaintenance:
		c.toggleMaintenance(ctx, cb, chat)

	case data == cbAdmExportUsers:
		c.answerCallback(ctx, cb.ID, "")
		c.exportUsers(ctx, chat)

	case data == cbAdmExportOrders:
		c.answerCallback(ctx, cb.ID, "")
		c.exportOrders(ctx, chat)

	case strings.HasPrefix(data, cbAdmApprove):
		c.decideOrder(ctx, cb, chat, uid, strings.TrimPrefix(data, cbAdmApprove), true)

	case strings.HasPrefix(data, cbAdmReject):
		c.decideOrder(ctx, cb, chat, uid, strings.TrimPrefix(data, cbAdmReject), false)

	default:
		c.answerCallback(ctx, cb.ID, "")
	}
}

func (c *Client) runBroadcast(ctx context.Context, cb *models.CallbackQuery, chat, uid int64, segment string) {
	sess, ok := c.sessions.Take(uid)
	if !ok || sess.Mode != session.ModeBroadcastReady {
		c.answerCallback(ctx, cb.ID, "No draft pending. Start over from the panel.")
		return
	}

	recipients, err := c.directory.ListSegment(ctx, segment)
	if err != nil {
		c.answerCallback(ctx, cb.ID, "Unknown audience.")
		return
	}

	c.answerCallback(ctx, cb.ID, "")
	c.send(ctx, chat, fmt.Sprintf("🚀 Broadcasting to %d recipients…", len(recipients)), nil)

	result, err := c.broadcaster.Run(ctx, c, uid, segment, sess.Draft, recipients)
	if err != nil {
		c.logger.WithFields(logging.Fields{
			"event":   "broadcast_run_failed",
			"segment": segment,
		}).WithError(err).Error("broadcast run failed")
	}

	c.send(ctx, chat, fmt.Sprintf("📣 Broadcast finished.\nDelivered: %d\nFailed: %d", result.SentOK, result.SentFail), kbAdminMenu())
}

// showAdminCatalog renders a read-only listing of every active item across
// both categories for the admin panel.
func (c *Client) showAdminCatalog(ctx context.Context, chat int64) {
	var b strings.Builder
	b.WriteString("🗂 Active catalog")

	for _, category := range []struct {
		key   string
		label string
	}{
		{domain.CategoryVPN, "🛡 VPN plans"},
		{domain.CategoryApp, "🛍 App subscriptions"},
	} {
		items, err := c.catalog.ListActive(ctx, category.key)
		if err != nil {
			c.logger.WithField("event", "catalog_list_failed").WithError(err).Error("failed to list catalog")
			c.send(ctx, chat, "The catalog is unavailable right now. Please try again.", kbAdminMenu())
			return
		}

		b.WriteString("\n\n" + category.label)
		if len(items) == 0 {
			b.WriteString("\n(nothing on sale)")
			continue
		}
		for _, item := range items {
			b.WriteString(fmt.Sprintf("\n• %s | %s", item.Title, domain.FormatPriceToman(item.PriceToman)))
		}
	}

	c.send(ctx, chat, b.String(), kbAdminMenu())
}

func (c *Client) showUserCounts(ctx context.Context, chat int64) {
	total, err := c.stats.CountUsers(ctx)
	if err != nil {
		c.send(ctx, chat, "Counters are unavailable right now.", nil)
		return
	}
	active, err := c.stats.CountActiveUsers(ctx, time.Now().UTC().Add(-domain.ActiveWindow))
	if err != nil {
		c.send(ctx, chat, "Counters are unavailable right now.", nil)
		return
	}

	c.send(ctx, chat, fmt.Sprintf("👥 Users: %d\n🟢 Active in the last 30 days: %d", total, active), kbAdminMenu())
}

func (c *Client) showStats(ctx context.Context, chat int64) {
	now := time.Now().UTC()
	windows := []struct {
		label string
		since time.Time
	}{
		{"Today", now.Truncate(24 * time.Hour)},
		{"Last 7 days", now.AddDate(0, 0, -7)},
		{"Last 30 days", now.AddDate(0, 0, -30)},
	}

	var b strings.Builder
	b.WriteString("📊 Orders\n")
	for _, w := range windows {
		stats, err := c.stats.OrdersSince(ctx, w.since)
		if err != nil {
			c.send(ctx, chat, "Stats are unavailable right now.", nil)
			return
		}
		fmt.Fprintf(&b, "\n%s\n• Total: %d\n• Approved/Delivered: %d/%d\n• Revenue: %s\n",
			w.label, stats.Total, stats.Approved, stats.Delivered, domain.FormatPriceToman(stats.RevenueToman))
	}

	c.send(ctx, chat, b.String(), kbAdminMenu())
}

func (c *Client) toggleMaintenance(ctx context.Context, cb *models.CallbackQuery, chat int64) {
	on, err := c.settings.MaintenanceEnabled(ctx)
	if err != nil {
		c.answerCallback(ctx, cb.ID, "Could not read the maintenance flag.")
		return
	}
	if err := c.settings.SetMaintenance(ctx, !on); err != nil {
		c.answerCallback(ctx, cb.ID, "Could not update the maintenance flag.")
		return
	}

	state := "enabled"
	if on {
		state = "disabled"
	}
	c.answerCallback(ctx, cb.ID, "")
	c.send(ctx, chat, "🛠 Maintenance mode "+state+".", kbAdminMenu())
}

// decideOrder handles the approve and reject buttons under a forwarded proof.
// Both arm a follow-up expectation: delivery payload after approve, rejection
// reason after reject.
func (c *Client) decideOrder(ctx context.Context, cb *models.CallbackQuery, chat, uid int64, hexID string, approve bool) {
	orderID, err := primitive.ObjectIDFromHex(hexID)
	if err != nil {
		c.answerCallback(ctx, cb.ID, "This order reference is invalid.")
		return
	}

	if approve {
		order, err := c.orders.Approve(ctx, orderID, uid)
		if err != nil {
			c.answerCallback(ctx, cb.ID, decisionFailureHint(err))
			return
		}

		c.answerCallback(ctx, cb.ID, "Approved.")
		c.send(ctx, order.UserID, fmt.Sprintf("✅ Your payment for order %s was approved. Delivery is on its way.", order.OrderCode), nil)
		c.sessions.ExpectDelivery(uid, orderID)
		c.send(ctx, chat, fmt.Sprintf("Send the delivery message for order %s now. It will be copied to the buyer as-is.", order.OrderCode), nil)
		return
	}

	order, err := c.orders.Reject(ctx, orderID, uid)
	if err != nil {
		c.answerCallback(ctx, cb.ID, decisionFailureHint(err))
		return
	}

	c.answerCallback(ctx, cb.ID, "Rejected.")
	c.sessions.ExpectRejectReason(uid, orderID)
	c.send(ctx, chat, fmt.Sprintf("Send the rejection reason for order %s. It will be forwarded to the buyer.", order.OrderCode), nil)
}

func decisionFailureHint(err error) string {
	switch {
	case errors.Is(err, domain.ErrOrderNotFound):
		return "Order not found."
	case errors.Is(err, domain.ErrInvalidTransition):
		return "This order was already decided."
	default:
		return "Internal error, check the logs."
	}
}
