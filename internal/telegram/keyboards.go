package telegram

import (
	"github.com/go-telegram/bot/models"

	"tg_storefront_bot/internal/domain"
)

// Callback data prefixes. Item and order callbacks append a hex object id.
const (
	cbHome     = "nav:home"
	cbVPN      = "nav:vpn"
	cbApps     = "nav:apps"
	cbSettings = "nav:settings"
	cbSupport  = "nav:support"
	cbAdmin    = "nav:admin"

	cbItemVPN     = "vpn:"
	cbItemApp     = "app:"
	cbPayCard     = "pay:card"
	cbOrderCancel = "ord:cancel:"

	cbToggleBroadcast = "usr:toggle_bcast"

	cbAdmBroadcast       = "adm:broadcast"
	cbAdmBroadcastSend   = "adm:bcast_send:"
	cbAdmBroadcastCancel = "adm:bcast_cancel"
	cbAdmCatalog         = "adm:catalog"
	cbAdmUsersCount      = "adm:users_count"
	cbAdmStats           = "adm:stats"
	cbAdmMaintenance     = "adm:maintenance"
	cbAdmExportUsers     = "adm:export_users"
	cbAdmExportOrders    = "adm:export_orders"
	cbAdmApprove         = "adm:approve:"
	cbAdmReject          = "adm:reject:"
)

func button(text, data string) models.InlineKeyboardButton {
	return models.InlineKeyboardButton{Text: text, CallbackData: data}
}

func backRow(data string) []models.InlineKeyboardButton {
	return []models.InlineKeyboardButton{button("⬅️ Back", data)}
}

func kbMain(isAdmin bool) *models.InlineKeyboardMarkup {
	rows := [][]models.InlineKeyboardButton{
		{button("🛡 Buy VPN", cbVPN)},
		{button("🛍 App subscriptions", cbApps)},
		{button("⚙️ Settings", cbSettings)},
		{button("📞 Support", cbSupport)},
	}
	if isAdmin {
		rows = append(rows, []models.InlineKeyboardButton{button("🔐 Admin panel", cbAdmin)})
	}

	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func kbCatalog(items []domain.CatalogItem, prefix string) *models.InlineKeyboardMarkup {
	rows := make([][]models.InlineKeyboardButton, 0, len(items)+1)
	for _, item := range items {
		label := item.Title + " | " + domain.FormatPriceToman(item.PriceToman)
		rows = append(rows, []models.InlineKeyboardButton{button(label, prefix+item.ID.Hex())})
	}
	rows = append(rows, backRow(cbHome))

	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func kbPayment(orderID string) *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{InlineKeyboard: [][]models.InlineKeyboardButton{
		{button("💳 Pay by card transfer", cbPayCard)},
		{button("🚫 Cancel order", cbOrderCancel + orderID)},
		backRow(cbHome),
	}}
}

func kbSupport(supportURL string) *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{InlineKeyboard: [][]models.InlineKeyboardButton{
		{{Text: "💬 Open support chat", URL: supportURL}},
		backRow(cbHome),
	}}
}

func kbUserSettings(optedIn bool) *models.InlineKeyboardMarkup {
	label := "🔕 Mute announcements"
	if !optedIn {
		label = "🔔 Enable announcements"
	}

	return &models.InlineKeyboardMarkup{InlineKeyboard: [][]models.InlineKeyboardButton{
		{button(label, cbToggleBroadcast)},
		backRow(cbHome),
	}}
}

func kbAdminMenu() *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{InlineKeyboard: [][]models.InlineKeyboardButton{
		{button("📣 Broadcast", cbAdmBroadcast), button("👥 Users", cbAdmUsersCount)},
		{button("📊 Stats", cbAdmStats), button("🗂 Catalog", cbAdmCatalog)},
		{button("🛠 Maintenance", cbAdmMaintenance)},
		{button("📤 Users CSV", cbAdmExportUsers), button("📦 Orders CSV", cbAdmExportOrders)},
		backRow(cbHome),
	}}
}

func kbBroadcastConfirm() *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{InlineKeyboard: [][]models.InlineKeyboardButton{
		{button("✅ Send to everyone", cbAdmBroadcastSend+domain.SegmentAll)},
		{button("🟢 Send to active (30d)", cbAdmBroadcastSend+domain.SegmentActive30)},
		{button("❌ Cancel", cbAdmBroadcastCancel)},
	}}
}

func kbApproveReject(orderID string) *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{InlineKeyboard: [][]models.InlineKeyboardButton{
		{button("✅ Approve", cbAdmApprove+orderID), button("❌ Reject", cbAdmReject+orderID)},
	}}
}
