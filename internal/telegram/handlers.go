package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-telegram/bot/models"

	"tg_storefront_bot/internal/domain"
	"tg_storefront_bot/internal/logging"
	"tg_storefront_bot/internal/session"
)

const maintenanceNotice = "🛠 The shop is under maintenance. Please try again later."

func profileFrom(user *models.User) domain.Profile {
	return domain.Profile{
		UserID:       user.ID,
		Username:     user.Username,
		FirstName:    user.FirstName,
		LastName:     user.LastName,
		LanguageCode: user.LanguageCode,
	}
}

func (c *Client) handleMessage(ctx context.Context, msg *models.Message) {
	if msg.From == nil || msg.From.IsBot {
		return
	}

	uid := msg.From.ID
	chat := msg.Chat.ID
	isAdmin := c.cfg.IsAdmin(uid)

	if c.directory != nil {
		if _, err := c.directory.UpsertSeen(ctx, profileFrom(msg.From)); err != nil {
			c.logger.WithFields(logging.Fields{
				"event":   "directory_upsert_failed",
				"user_id": uid,
			}).WithError(err).Warn("failed to refresh user profile")
		}
	}

	if !isAdmin && c.maintenanceOn(ctx) {
		c.send(ctx, chat, maintenanceNotice, nil)
		return
	}

	switch strings.TrimSpace(msg.Text) {
	case "/start":
		c.send(ctx, chat, "👋 Welcome! Pick a product below or reach out to support.", kbMain(isAdmin))
		return
	case "/id":
		c.send(ctx, chat, fmt.Sprintf("Your Telegram ID: %d", uid), nil)
		return
	}

	if isAdmin {
		if sess, ok := c.sessions.Take(uid); ok {
			c.handleAdminSession(ctx, msg, sess)
			return
		}
	}

	if len(msg.Photo) > 0 || msg.Document != nil {
		c.handleProof(ctx, msg)
	}
}

// handleProof binds an uploaded photo or document to the user's pending
// order and routes it to every admin for review.
func (c *Client) handleProof(ctx context.Context, msg *models.Message) {
	uid := msg.From.ID
	chat := msg.Chat.ID

	proof := domain.ProofRef{Kind: domain.ProofDocument}
	if len(msg.Photo) > 0 {
		proof.Kind = domain.ProofPhoto
		proof.FileID = msg.Photo[len(msg.Photo)-1].FileID
	} else {
		proof.FileID = msg.Document.FileID
	}

	order, matched, err := c.orders.AttachProof(ctx, uid, proof)
	if err != nil {
		c.logger.WithFields(logging.Fields{
			"event":   "proof_attach_failed",
			"user_id": uid,
		}).WithError(err).Error("failed to attach payment proof")
		c.send(ctx, chat, "Something went wrong while saving your receipt. Please try again.", nil)
		return
	}
	if !matched {
		// uploads with no pending order are ignored, the user may just be
		// sharing an unrelated image
		return
	}

	c.send(ctx, chat, fmt.Sprintf("✅ Receipt received. Order %s is now under review.", order.OrderCode), nil)

	summary := fmt.Sprintf("💰 New payment proof\nOrder: %s\nUser: %s\nItem: %s\nPrice: %s",
		order.OrderCode, userLabel(msg.From), order.ItemTitle, domain.FormatPriceToman(order.PriceToman))

	for _, adminID := range c.cfg.AdminIDs {
		if err := c.CopyTo(ctx, adminID, domain.DraftRef{FromChatID: chat, MessageID: msg.ID}); err != nil {
			c.logger.WithFields(logging.Fields{
				"event":    "proof_forward_failed",
				"admin_id": adminID,
			}).WithError(err).Warn("failed to forward proof to admin")
		}
		c.send(ctx, adminID, summary, kbApproveReject(order.ID.Hex()))
	}
}

// handleAdminSession interprets an admin's free-form message according to the
// expectation armed by an earlier panel action.
func (c *Client) handleAdminSession(ctx context.Context, msg *models.Message, sess session.Session) {
	uid := msg.From.ID
	chat := msg.Chat.ID

	switch sess.Mode {
	case session.ModeAwaitBroadcastDraft, session.ModeBroadcastReady:
		// a fresh message while a draft is pending replaces the draft
		c.sessions.SetBroadcastReady(uid, domain.DraftRef{FromChatID: chat, MessageID: msg.ID})
		c.send(ctx, chat, "📣 Draft captured. Choose the audience:", kbBroadcastConfirm())

	case session.ModeAwaitDelivery:
		order, err := c.orders.FinalizeDelivery(ctx, sess.OrderID, uid)
		if err != nil {
			c.send(ctx, chat, "Delivery failed: "+deliveryFailureHint(err), nil)
			return
		}

		if err := c.CopyTo(ctx, order.UserID, domain.DraftRef{FromChatID: chat, MessageID: msg.ID}); err != nil {
			c.logger.WithFields(logging.Fields{
				"event":      "delivery_copy_failed",
				"order_code": order.OrderCode,
			}).WithError(err).Error("failed to copy delivery message to user")
			c.send(ctx, chat, fmt.Sprintf("Order %s is marked delivered but the message could not be sent to the user.", order.OrderCode), nil)
			return
		}

		c.send(ctx, order.UserID, fmt.Sprintf("📦 Your order %s has been delivered. Enjoy!", order.OrderCode), nil)
		c.send(ctx, chat, fmt.Sprintf("✅ Order %s delivered.", order.OrderCode), nil)

	case session.ModeAwaitRejectReason:
		reason := strings.TrimSpace(msg.Text)
		if reason == "" {
			reason = "(no text attached)"
		}

		order, err := c.orders.RecordRejectionReason(ctx, sess.OrderID, reason)
		if err != nil {
			c.send(ctx, chat, "Could not record the rejection reason: "+deliveryFailureHint(err), nil)
			return
		}

		c.send(ctx, order.UserID, fmt.Sprintf("❌ Your payment for order %s was rejected.\nReason: %s\n\nQuestions? Contact %s", order.OrderCode, reason, c.cfg.SupportURL()), nil)
		c.send(ctx, chat, fmt.Sprintf("Rejection reason recorded for order %s.", order.OrderCode), nil)
	}
}

func (c *Client) maintenanceOn(ctx context.Context) bool {
	if c.settings == nil {
		return false
	}

	on, err := c.settings.MaintenanceEnabled(ctx)
	if err != nil {
		c.logger.WithField("event", "maintenance_read_failed").WithError(err).Warn("failed to read maintenance flag")
		return false
	}
	return on
}

func deliveryFailureHint(err error) string {
	switch {
	case errors.Is(err, domain.ErrOrderNotFound):
		return "order not found"
	case errors.Is(err, domain.ErrInvalidTransition):
		return "order is not in a matching state"
	default:
		return "internal error"
	}
}

func userLabel(user *models.User) string {
	if user.Username != "" {
		return "@" + user.Username
	}

	name := strings.TrimSpace(user.FirstName + " " + user.LastName)
	if name == "" {
		return fmt.Sprintf("id:%d", user.ID)
	}
	return name
}
