package telegram

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"tg_storefront_bot/internal/broadcast"
	"tg_storefront_bot/internal/config"
	"tg_storefront_bot/internal/domain"
	"tg_storefront_bot/internal/session"
	"tg_storefront_bot/internal/store"
)

type sentMessage struct {
	chatID int64
	text   string
	markup models.ReplyMarkup
}

type fakeAPI struct {
	startedWith context.Context
	sent        []sentMessage
	copied      []bot.CopyMessageParams
	documents   []bot.SendDocumentParams
	answers     []string
	copyErr     error
}

func (f *fakeAPI) Start(ctx context.Context) { f.startedWith = ctx }

func (f *fakeAPI) SendMessage(_ context.Context, params *bot.SendMessageParams) (*models.Message, error) {
	f.sent = append(f.sent, sentMessage{chatID: params.ChatID.(int64), text: params.Text, markup: params.ReplyMarkup})
	return &models.Message{}, nil
}

func (f *fakeAPI) SendDocument(_ context.Context, params *bot.SendDocumentParams) (*models.Message, error) {
	f.documents = append(f.documents, *params)
	return &models.Message{}, nil
}

func (f *fakeAPI) CopyMessage(_ context.Context, params *bot.CopyMessageParams) (*models.MessageID, error) {
	if f.copyErr != nil {
		return nil, f.copyErr
	}
	f.copied = append(f.copied, *params)
	return &models.MessageID{}, nil
}

func (f *fakeAPI) AnswerCallbackQuery(_ context.Context, params *bot.AnswerCallbackQueryParams) (bool, error) {
	f.answers = append(f.answers, params.Text)
	return true, nil
}

func (f *fakeAPI) textsTo(chatID int64) []string {
	var texts []string
	for _, m := range f.sent {
		if m.chatID == chatID {
			texts = append(texts, m.text)
		}
	}
	return texts
}

type fakeDirectory struct {
	users    map[int64]domain.User
	upserts  []domain.Profile
	optIns   map[int64]bool
	segments map[string][]int64
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		users:    map[int64]domain.User{},
		optIns:   map[int64]bool{},
		segments: map[string][]int64{},
	}
}

func (f *fakeDirectory) UpsertSeen(_ context.Context, profile domain.Profile) (bool, error) {
	f.upserts = append(f.upserts, profile)
	return true, nil
}

func (f *fakeDirectory) Get(_ context.Context, userID int64) (domain.User, error) {
	user, ok := f.users[userID]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return user, nil
}

func (f *fakeDirectory) SetOptIn(_ context.Context, userID int64, optIn bool) error {
	f.optIns[userID] = optIn
	return nil
}

func (f *fakeDirectory) ListSegment(_ context.Context, segment string) ([]int64, error) {
	ids, ok := f.segments[segment]
	if !ok {
		return nil, errors.New("unknown segment")
	}
	return ids, nil
}

func (f *fakeDirectory) ListAll(_ context.Context) ([]domain.User, error) {
	var users []domain.User
	for _, u := range f.users {
		users = append(users, u)
	}
	return users, nil
}

type fakeOrders struct {
	attachResult domain.Order
	attachOK     bool
	attachErr    error
	attached     []domain.ProofRef

	decisionResult domain.Order
	decisionErr    error
	approvedBy     []int64
	rejectedBy     []int64

	finalized    []primitive.ObjectID
	finalizedRes domain.Order
	finalizedErr error

	reasons []string
	recent  []domain.Order

	getResult domain.Order
	getErr    error
	cancelled []primitive.ObjectID
	cancelRes domain.Order
	cancelErr error
}

func (f *fakeOrders) Create(context.Context, int64, primitive.ObjectID) (domain.Order, error) {
	return domain.Order{}, errors.New("not used")
}

func (f *fakeOrders) AttachProof(_ context.Context, _ int64, proof domain.ProofRef) (domain.Order, bool, error) {
	f.attached = append(f.attached, proof)
	return f.attachResult, f.attachOK, f.attachErr
}

func (f *fakeOrders) Approve(_ context.Context, _ primitive.ObjectID, adminID int64) (domain.Order, error) {
	f.approvedBy = append(f.approvedBy, adminID)
	return f.decisionResult, f.decisionErr
}

func (f *fakeOrders) Reject(_ context.Context, _ primitive.ObjectID, adminID int64) (domain.Order, error) {
	f.rejectedBy = append(f.rejectedBy, adminID)
	return f.decisionResult, f.decisionErr
}

func (f *fakeOrders) FinalizeDelivery(_ context.Context, orderID primitive.ObjectID, _ int64) (domain.Order, error) {
	f.finalized = append(f.finalized, orderID)
	return f.finalizedRes, f.finalizedErr
}

func (f *fakeOrders) RecordRejectionReason(_ context.Context, _ primitive.ObjectID, reason string) (domain.Order, error) {
	f.reasons = append(f.reasons, reason)
	return f.decisionResult, nil
}

func (f *fakeOrders) Cancel(_ context.Context, orderID primitive.ObjectID) (domain.Order, error) {
	f.cancelled = append(f.cancelled, orderID)
	return f.cancelRes, f.cancelErr
}

func (f *fakeOrders) Get(context.Context, primitive.ObjectID) (domain.Order, error) {
	return f.getResult, f.getErr
}

func (f *fakeOrders) ListRecent(context.Context, int64) ([]domain.Order, error) {
	return f.recent, nil
}

type fakeBroadcaster struct {
	segment    string
	draft      domain.DraftRef
	recipients []int64
	runs       int
}

func (f *fakeBroadcaster) Run(_ context.Context, _ broadcast.Sender, _ int64, segment string, draft domain.DraftRef, recipients []int64) (broadcast.Result, error) {
	f.runs++
	f.segment = segment
	f.draft = draft
	f.recipients = recipients
	return broadcast.Result{SentOK: len(recipients)}, nil
}

type fakeSettings struct{ on bool }

func (f *fakeSettings) MaintenanceEnabled(context.Context) (bool, error) { return f.on, nil }
func (f *fakeSettings) SetMaintenance(_ context.Context, enabled bool) error {
	f.on = enabled
	return nil
}

type fakeStats struct{}

func (fakeStats) CountUsers(context.Context) (int64, error)                  { return 12, nil }
func (fakeStats) CountActiveUsers(context.Context, time.Time) (int64, error) { return 5, nil }
func (fakeStats) OrdersSince(context.Context, time.Time) (store.OrderStats, error) {
	return store.OrderStats{Total: 3, Approved: 2, Delivered: 1, RevenueToman: 774000}, nil
}

type fixture struct {
	client      *Client
	api         *fakeAPI
	directory   *fakeDirectory
	orders      *fakeOrders
	broadcaster *fakeBroadcaster
	settings    *fakeSettings
	sessions    *session.Tracker
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger, _ := logtest.NewNullLogger()
	f := &fixture{
		api:         &fakeAPI{},
		directory:   newFakeDirectory(),
		orders:      &fakeOrders{},
		broadcaster: &fakeBroadcaster{},
		settings:    &fakeSettings{},
		sessions:    session.NewTracker(),
	}
	f.client = &Client{
		api:    f.api,
		cfg:    config.Config{TelegramToken: "token", AdminIDs: []int64{900}, CardNumber: "6037-0000-0000-0000"},
		logger: logrus.NewEntry(logger),

		directory:   f.directory,
		orders:      f.orders,
		sessions:    f.sessions,
		broadcaster: f.broadcaster,
		settings:    f.settings,
		stats:       fakeStats{},
	}
	return f
}

func textMessage(userID, chatID int64, text string) *models.Update {
	return &models.Update{Message: &models.Message{
		ID:   17,
		From: &models.User{ID: userID, Username: "buyer"},
		Chat: models.Chat{ID: chatID},
		Text: text,
	}}
}

func callbackUpdate(userID int64, data string) *models.Update {
	return &models.Update{CallbackQuery: &models.CallbackQuery{
		ID:   "cb-1",
		From: models.User{ID: userID, Username: "buyer"},
		Data: data,
		Message: models.MaybeInaccessibleMessage{
			Type:    models.MaybeInaccessibleMessageTypeMessage,
			Message: &models.Message{Chat: models.Chat{ID: userID}},
		},
	}}
}

func TestNewClientCreatesBot(t *testing.T) {
	origCreateBot := createBot
	defer func() { createBot = origCreateBot }()

	var gotToken string
	var gotOptions []bot.Option
	api := &fakeAPI{}

	createBot = func(token string, options ...bot.Option) (botClient, error) {
		gotToken = token
		gotOptions = options
		return api, nil
	}

	client, err := NewClient(config.Config{TelegramToken: "token-123"}, nil)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}

	if client == nil || client.api == nil {
		t.Fatal("expected client and bot to be initialized")
	}
	if gotToken != "token-123" {
		t.Fatalf("token = %q, want token-123", gotToken)
	}
	if len(gotOptions) != 3 {
		t.Fatalf("expected 3 bot options (allowed updates, default handler, error handler), got %d", len(gotOptions))
	}
}

func TestNewClientPropagatesBotError(t *testing.T) {
	origCreateBot := createBot
	defer func() { createBot = origCreateBot }()

	expected := errors.New("boom")
	createBot = func(string, ...bot.Option) (botClient, error) {
		return nil, expected
	}

	_, err := NewClient(config.Config{TelegramToken: "token"}, nil)
	if !errors.Is(err, expected) {
		t.Fatalf("expected error %v, got %v", expected, err)
	}
}

func TestStartCommandRegistersUserAndShowsMenu(t *testing.T) {
	f := newFixture(t)

	f.client.handleUpdate(context.Background(), nil, textMessage(42, 42, "/start"))

	if len(f.directory.upserts) != 1 || f.directory.upserts[0].UserID != 42 {
		t.Fatalf("upserts = %+v, want the sender registered", f.directory.upserts)
	}
	if len(f.api.sent) != 1 || f.api.sent[0].markup == nil {
		t.Fatalf("sent = %+v, want one menu reply with a keyboard", f.api.sent)
	}
}

func TestMaintenanceBlocksNonAdmins(t *testing.T) {
	f := newFixture(t)
	f.settings.on = true

	f.client.handleUpdate(context.Background(), nil, textMessage(42, 42, "/start"))

	texts := f.api.textsTo(42)
	if len(texts) != 1 || texts[0] != maintenanceNotice {
		t.Fatalf("texts = %v, want only the maintenance notice", texts)
	}

	f.client.handleUpdate(context.Background(), nil, textMessage(900, 900, "/start"))
	if len(f.api.textsTo(900)) != 1 {
		t.Fatal("admins must pass the maintenance gate")
	}
}

func TestProofUploadRoutesToAdmins(t *testing.T) {
	f := newFixture(t)
	f.orders.attachOK = true
	f.orders.attachResult = domain.Order{
		ID:         primitive.NewObjectID(),
		OrderCode:  "ORD-20250309-TEST",
		UserID:     42,
		ItemTitle:  "1 Month / 50 GB",
		PriceToman: 129000,
		Status:     domain.StatusProofSubmitted,
	}

	update := textMessage(42, 42, "")
	update.Message.Photo = []models.PhotoSize{{FileID: "small"}, {FileID: "large"}}

	f.client.handleUpdate(context.Background(), nil, update)

	if len(f.orders.attached) != 1 {
		t.Fatalf("attach calls = %d, want 1", len(f.orders.attached))
	}
	if f.orders.attached[0].FileID != "large" || f.orders.attached[0].Kind != domain.ProofPhoto {
		t.Fatalf("proof = %+v, want the largest photo size", f.orders.attached[0])
	}

	if len(f.api.copied) != 1 || f.api.copied[0].ChatID.(int64) != 900 {
		t.Fatalf("copied = %+v, want the proof copied to the admin", f.api.copied)
	}

	adminTexts := f.api.textsTo(900)
	if len(adminTexts) != 1 {
		t.Fatalf("admin texts = %v, want the order summary", adminTexts)
	}
	if len(f.api.textsTo(42)) != 1 {
		t.Fatal("the buyer should get a confirmation")
	}
}

func TestProofUploadWithoutPendingOrderIsIgnored(t *testing.T) {
	f := newFixture(t)
	f.orders.attachOK = false

	update := textMessage(42, 42, "")
	update.Message.Document = &models.Document{FileID: "doc-1"}

	f.client.handleUpdate(context.Background(), nil, update)

	if len(f.api.copied) != 0 {
		t.Fatal("nothing should be forwarded to admins")
	}
	if texts := f.api.textsTo(42); len(texts) != 0 {
		t.Fatalf("texts = %v, want no reply for an unrelated upload", texts)
	}
}

func TestApproveCallbackArmsDeliveryCapture(t *testing.T) {
	f := newFixture(t)
	orderID := primitive.NewObjectID()
	f.orders.decisionResult = domain.Order{ID: orderID, OrderCode: "ORD-20250309-TEST", UserID: 42, Status: domain.StatusApproved}

	f.client.handleUpdate(context.Background(), nil, callbackUpdate(900, cbAdmApprove+orderID.Hex()))

	if len(f.orders.approvedBy) != 1 || f.orders.approvedBy[0] != 900 {
		t.Fatalf("approvedBy = %v, want [900]", f.orders.approvedBy)
	}
	if len(f.api.textsTo(42)) != 1 {
		t.Fatal("the buyer should be notified of the approval")
	}

	sess, ok := f.sessions.Peek(900)
	if !ok || sess.Mode != session.ModeAwaitDelivery || sess.OrderID != orderID {
		t.Fatalf("session = %+v, want delivery capture for order", sess)
	}
}

func TestApproveCallbackRejectedForNonAdmins(t *testing.T) {
	f := newFixture(t)

	f.client.handleUpdate(context.Background(), nil, callbackUpdate(42, cbAdmApprove+primitive.NewObjectID().Hex()))

	if len(f.orders.approvedBy) != 0 {
		t.Fatal("non-admins must not drive decisions")
	}
}

func TestDeliveryMessageCopiedToBuyer(t *testing.T) {
	f := newFixture(t)
	orderID := primitive.NewObjectID()
	f.orders.finalizedRes = domain.Order{ID: orderID, OrderCode: "ORD-20250309-TEST", UserID: 42, Status: domain.StatusDelivered}
	f.sessions.ExpectDelivery(900, orderID)

	f.client.handleUpdate(context.Background(), nil, textMessage(900, 900, "here are your credentials"))

	if len(f.orders.finalized) != 1 || f.orders.finalized[0] != orderID {
		t.Fatalf("finalized = %v, want [%s]", f.orders.finalized, orderID.Hex())
	}
	if len(f.api.copied) != 1 || f.api.copied[0].ChatID.(int64) != 42 {
		t.Fatalf("copied = %+v, want the delivery copied to the buyer", f.api.copied)
	}
	if _, ok := f.sessions.Peek(900); ok {
		t.Fatal("the delivery session should be consumed")
	}
}

func TestRejectReasonFallsBackForNonText(t *testing.T) {
	f := newFixture(t)
	orderID := primitive.NewObjectID()
	f.orders.decisionResult = domain.Order{ID: orderID, OrderCode: "ORD-20250309-TEST", UserID: 42, Status: domain.StatusRejected}
	f.sessions.ExpectRejectReason(900, orderID)

	update := textMessage(900, 900, "")
	update.Message.Photo = []models.PhotoSize{{FileID: "sticker"}}

	f.client.handleUpdate(context.Background(), nil, update)

	if len(f.orders.reasons) != 1 || f.orders.reasons[0] != "(no text attached)" {
		t.Fatalf("reasons = %v, want the placeholder reason", f.orders.reasons)
	}
	if len(f.api.textsTo(42)) != 1 {
		t.Fatal("the buyer should receive the rejection notice")
	}
}

func TestBroadcastFlowEndToEnd(t *testing.T) {
	f := newFixture(t)
	f.directory.segments[domain.SegmentAll] = []int64{1, 2, 3}

	f.client.handleUpdate(context.Background(), nil, callbackUpdate(900, cbAdmBroadcast))
	if sess, ok := f.sessions.Peek(900); !ok || sess.Mode != session.ModeAwaitBroadcastDraft {
		t.Fatalf("session = %+v, want draft capture armed", sess)
	}

	f.client.handleUpdate(context.Background(), nil, textMessage(900, 900, "big sale tomorrow"))
	sess, ok := f.sessions.Peek(900)
	if !ok || sess.Mode != session.ModeBroadcastReady {
		t.Fatalf("session = %+v, want a ready draft", sess)
	}
	if sess.Draft.FromChatID != 900 || sess.Draft.MessageID != 17 {
		t.Fatalf("draft = %+v, want the captured message reference", sess.Draft)
	}

	f.client.handleUpdate(context.Background(), nil, callbackUpdate(900, cbAdmBroadcastSend+domain.SegmentAll))

	if f.broadcaster.runs != 1 {
		t.Fatalf("broadcast runs = %d, want 1", f.broadcaster.runs)
	}
	if f.broadcaster.segment != domain.SegmentAll || len(f.broadcaster.recipients) != 3 {
		t.Fatalf("run args = segment %q recipients %v", f.broadcaster.segment, f.broadcaster.recipients)
	}
	if f.broadcaster.draft != (domain.DraftRef{FromChatID: 900, MessageID: 17}) {
		t.Fatalf("draft = %+v, want the captured draft", f.broadcaster.draft)
	}
	if _, ok := f.sessions.Peek(900); ok {
		t.Fatal("the broadcast session should be consumed")
	}
}

func TestBroadcastSendWithoutDraft(t *testing.T) {
	f := newFixture(t)
	f.directory.segments[domain.SegmentAll] = []int64{1}

	f.client.handleUpdate(context.Background(), nil, callbackUpdate(900, cbAdmBroadcastSend+domain.SegmentAll))

	if f.broadcaster.runs != 0 {
		t.Fatal("no run should start without a captured draft")
	}
}

func TestToggleAnnouncements(t *testing.T) {
	f := newFixture(t)
	f.directory.users[42] = domain.User{UserID: 42, AllowBroadcast: true}

	f.client.handleUpdate(context.Background(), nil, callbackUpdate(42, cbToggleBroadcast))

	optIn, ok := f.directory.optIns[42]
	if !ok || optIn {
		t.Fatalf("optIns = %v, want opt-out recorded for 42", f.directory.optIns)
	}
}

func TestMaintenanceToggleFromPanel(t *testing.T) {
	f := newFixture(t)

	f.client.handleUpdate(context.Background(), nil, callbackUpdate(900, cbAdmMaintenance))
	if !f.settings.on {
		t.Fatal("maintenance should be enabled")
	}

	f.client.handleUpdate(context.Background(), nil, callbackUpdate(900, cbAdmMaintenance))
	if f.settings.on {
		t.Fatal("maintenance should be disabled again")
	}
}

func TestExportUsersSendsDocument(t *testing.T) {
	f := newFixture(t)
	f.directory.users[42] = domain.User{UserID: 42, Username: "buyer", AllowBroadcast: true}

	f.client.handleUpdate(context.Background(), nil, callbackUpdate(900, cbAdmExportUsers))

	if len(f.api.documents) != 1 {
		t.Fatalf("documents = %d, want one CSV upload", len(f.api.documents))
	}
	upload, ok := f.api.documents[0].Document.(*models.InputFileUpload)
	if !ok || upload.Filename != "users.csv" {
		t.Fatalf("document = %+v, want a users.csv upload", f.api.documents[0].Document)
	}
}

func TestExtractUpdateMeta(t *testing.T) {
	tests := []struct {
		name   string
		update *models.Update
		want   updateMeta
	}{
		{
			name: "message",
			update: &models.Update{
				Message: &models.Message{
					From: &models.User{ID: 10},
					Chat: models.Chat{ID: 20},
					Text: " hello ",
				},
			},
			want: updateMeta{userID: 10, chatID: 20, text: "hello", updateType: "message"},
		},
		{
			name: "callback query",
			update: &models.Update{
				CallbackQuery: &models.CallbackQuery{
					From: models.User{ID: 12},
					Data: "choice",
					Message: models.MaybeInaccessibleMessage{
						Type: models.MaybeInaccessibleMessageTypeMessage,
						Message: &models.Message{
							Chat: models.Chat{ID: 22},
						},
					},
				},
			},
			want: updateMeta{userID: 12, chatID: 22, text: "choice", updateType: "callback_query"},
		},
		{
			name:   "unknown",
			update: &models.Update{},
			want:   updateMeta{updateType: "unknown"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got := extractUpdateMeta(tt.update)
			if got != tt.want {
				t.Fatalf("extractUpdateMeta() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

type fakeCatalog struct {
	items map[string][]domain.CatalogItem
	err   error
}

func (f fakeCatalog) ListActive(_ context.Context, category string) ([]domain.CatalogItem, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.items[category], nil
}

func TestAdminCatalogListing(t *testing.T) {
	f := newFixture(t)
	f.client.catalog = fakeCatalog{items: map[string][]domain.CatalogItem{
		domain.CategoryVPN: {
			{Title: "VPN 1 Month", PriceToman: 129000},
			{Title: "VPN 3 Months", PriceToman: 349000},
		},
	}}

	f.client.handleUpdate(context.Background(), nil, callbackUpdate(900, cbAdmCatalog))

	texts := f.api.textsTo(900)
	if len(texts) != 1 {
		t.Fatalf("texts = %v, want a single catalog listing", texts)
	}
	listing := texts[0]
	for _, want := range []string{"VPN 1 Month", "129,000 toman", "VPN 3 Months"} {
		if !strings.Contains(listing, want) {
			t.Fatalf("listing %q does not mention %q", listing, want)
		}
	}
	if !strings.Contains(listing, "(nothing on sale)") {
		t.Fatalf("listing %q should mark the empty app category", listing)
	}
}

func TestAdminCatalogListingBlockedForNonAdmins(t *testing.T) {
	f := newFixture(t)
	f.client.catalog = fakeCatalog{items: map[string][]domain.CatalogItem{
		domain.CategoryVPN: {{Title: "VPN 1 Month", PriceToman: 129000}},
	}}

	f.client.handleUpdate(context.Background(), nil, callbackUpdate(42, cbAdmCatalog))

	if texts := f.api.textsTo(42); len(texts) != 0 {
		t.Fatalf("texts = %v, want no listing for a non-admin", texts)
	}
}

func TestBuyerCancelsAwaitingOrder(t *testing.T) {
	f := newFixture(t)
	orderID := primitive.NewObjectID()
	f.orders.getResult = domain.Order{ID: orderID, OrderCode: "ORD-20250309-AB12", UserID: 42, Status: domain.StatusAwaitingPayment}
	f.orders.cancelRes = domain.Order{ID: orderID, OrderCode: "ORD-20250309-AB12", UserID: 42, Status: domain.StatusCancelled}

	f.client.handleUpdate(context.Background(), nil, callbackUpdate(42, cbOrderCancel+orderID.Hex()))

	if len(f.orders.cancelled) != 1 || f.orders.cancelled[0] != orderID {
		t.Fatalf("cancelled = %v, want [%s]", f.orders.cancelled, orderID.Hex())
	}
	texts := f.api.textsTo(42)
	if len(texts) != 1 || !strings.Contains(texts[0], "ORD-20250309-AB12") {
		t.Fatalf("texts = %v, want a cancellation confirmation", texts)
	}
}

func TestCancelRefusedForForeignOrder(t *testing.T) {
	f := newFixture(t)
	orderID := primitive.NewObjectID()
	f.orders.getResult = domain.Order{ID: orderID, UserID: 77, Status: domain.StatusAwaitingPayment}

	f.client.handleUpdate(context.Background(), nil, callbackUpdate(42, cbOrderCancel+orderID.Hex()))

	if len(f.orders.cancelled) != 0 {
		t.Fatalf("cancelled = %v, want no cancellation for another user's order", f.orders.cancelled)
	}
}

func TestCancelRefusedAfterDecision(t *testing.T) {
	f := newFixture(t)
	orderID := primitive.NewObjectID()
	f.orders.getResult = domain.Order{ID: orderID, UserID: 42, Status: domain.StatusApproved}
	f.orders.cancelErr = domain.ErrInvalidTransition

	f.client.handleUpdate(context.Background(), nil, callbackUpdate(42, cbOrderCancel+orderID.Hex()))

	if texts := f.api.textsTo(42); len(texts) != 0 {
		t.Fatalf("texts = %v, want only a callback answer for a decided order", texts)
	}
}
