package telegram

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// exportOrdersLimit caps the orders CSV at the most recent rows.
const exportOrdersLimit = 10000

func (c *Client) exportUsers(ctx context.Context, chat int64) {
	users, err := c.directory.ListAll(ctx)
	if err != nil {
		c.logger.WithField("event", "export_users_failed").WithError(err).Error("failed to list users for export")
		c.send(ctx, chat, "Export failed, check the logs.", nil)
		return
	}

	rows := make([][]string, 0, len(users)+1)
	rows = append(rows, []string{"user_id", "username", "first_name", "last_name", "announcements", "blocked", "created_at", "last_seen_at"})
	for _, u := range users {
		rows = append(rows, []string{
			strconv.FormatInt(u.UserID, 10),
			u.Username,
			u.FirstName,
			u.LastName,
			strconv.FormatBool(u.AllowBroadcast),
			strconv.FormatBool(u.Blocked),
			formatExportTime(u.CreatedAt),
			formatExportTime(u.LastSeenAt),
		})
	}

	c.sendCSV(ctx, chat, "users.csv", rows)
}

func (c *Client) exportOrders(ctx context.Context, chat int64) {
	orders, err := c.orders.ListRecent(ctx, exportOrdersLimit)
	if err != nil {
		c.logger.WithField("event", "export_orders_failed").WithError(err).Error("failed to list orders for export")
		c.send(ctx, chat, "Export failed, check the logs.", nil)
		return
	}

	rows := make([][]string, 0, len(orders)+1)
	rows = append(rows, []string{"order_code", "user_id", "category", "item", "price_toman", "status", "created_at", "updated_at"})
	for _, o := range orders {
		rows = append(rows, []string{
			o.OrderCode,
			strconv.FormatInt(o.UserID, 10),
			o.Category,
			o.ItemTitle,
			strconv.FormatInt(o.PriceToman, 10),
			string(o.Status),
			formatExportTime(o.CreatedAt),
			formatExportTime(o.UpdatedAt),
		})
	}

	c.sendCSV(ctx, chat, "orders.csv", rows)
}

func (c *Client) sendCSV(ctx context.Context, chat int64, filename string, rows [][]string) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writer.WriteAll(rows); err != nil {
		c.logger.WithField("event", "export_encode_failed").WithError(err).Error("failed to encode export")
		c.send(ctx, chat, "Export failed, check the logs.", nil)
		return
	}

	_, err := c.api.SendDocument(ctx, &bot.SendDocumentParams{
		ChatID:   chat,
		Document: &models.InputFileUpload{Filename: filename, Data: bytes.NewReader(buf.Bytes())},
		Caption:  fmt.Sprintf("%s, %d rows", filename, len(rows)-1),
	})
	if err != nil {
		c.logger.WithField("event", "export_send_failed").WithError(err).Error("failed to send export document")
		c.send(ctx, chat, "Export failed, check the logs.", nil)
	}
}

func formatExportTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
