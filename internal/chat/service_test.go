package chat

import (
	"context"
	"encoding/json"
	"io"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/sellgrid/marketplace-backend/pkg/db/models"
	pkgerrors "github.com/sellgrid/marketplace-backend/pkg/errors"
	"github.com/sellgrid/marketplace-backend/pkg/logger"
	"github.com/sellgrid/marketplace-backend/pkg/pagination"
)

type fakeChatRepo struct {
	messages []*models.Message
	now      time.Time
}

func (f *fakeChatRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeChatRepo) Create(ctx context.Context, message *models.Message) error {
	message.ID = uuid.New()
	f.now = f.now.Add(time.Second)
	message.CreatedAt = f.now
	f.messages = append(f.messages, message)
	return nil
}

func (f *fakeChatRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Message, error) {
	for _, m := range f.messages {
		if m.ID == id {
			copied := *m
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeChatRepo) HistoryBetween(ctx context.Context, userID, otherID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.Message, *pagination.Cursor, error) {
	var rows []models.Message
	for _, m := range f.messages {
		betweenPair := (m.SenderID == userID && m.ReceiverID == otherID) ||
			(m.SenderID == otherID && m.ReceiverID == userID)
		if !betweenPair {
			continue
		}
		if cursor != nil && !m.CreatedAt.After(cursor.CreatedAt) {
			continue
		}
		rows = append(rows, *m)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].CreatedAt.Before(rows[j].CreatedAt) })
	trimmed, hasMore := pagination.TrimPage(rows, limit)
	if !hasMore {
		return trimmed, nil, nil
	}
	last := trimmed[len(trimmed)-1]
	return trimmed, &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}, nil
}

func (f *fakeChatRepo) MarkConversationRead(ctx context.Context, receiverID, senderID uuid.UUID, now time.Time) (int64, error) {
	var affected int64
	for _, m := range f.messages {
		if m.ReceiverID == receiverID && m.SenderID == senderID && m.ReadAt == nil {
			at := now
			m.ReadAt = &at
			affected++
		}
	}
	return affected, nil
}

func (f *fakeChatRepo) MarkRead(ctx context.Context, receiverID, messageID uuid.UUID, now time.Time) (int64, error) {
	for _, m := range f.messages {
		if m.ID == messageID && m.ReceiverID == receiverID && m.ReadAt == nil {
			at := now
			m.ReadAt = &at
			return 1, nil
		}
	}
	return 0, nil
}

type fakeProfiles struct {
	profiles map[uuid.UUID]*models.Profile
}

func (f *fakeProfiles) FindByID(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	profile, ok := f.profiles[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return profile, nil
}

type publishedMessage struct {
	channel string
	payload []byte
}

type fakeFeed struct {
	published []publishedMessage
}

func (f *fakeFeed) Publish(ctx context.Context, channel string, payload any) error {
	raw, _ := payload.([]byte)
	f.published = append(f.published, publishedMessage{channel: channel, payload: raw})
	return nil
}

func (f *fakeFeed) ChatChannelKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return "sg:chat:" + a + ":" + b
}

type chatFixture struct {
	svc      Service
	repo     *fakeChatRepo
	feed     *fakeFeed
	profiles *fakeProfiles
	buyer    uuid.UUID
	seller   uuid.UUID
}

func newChatFixture(t *testing.T) *chatFixture {
	t.Helper()
	buyer := uuid.New()
	seller := uuid.New()
	repo := &fakeChatRepo{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	feed := &fakeFeed{}
	profiles := &fakeProfiles{profiles: map[uuid.UUID]*models.Profile{
		buyer:  {ID: buyer, IsActive: true},
		seller: {ID: seller, IsActive: true},
	}}
	logg := logger.New(logger.Options{Level: zerolog.ErrorLevel, Output: io.Discard})
	svc, err := NewService(repo, profiles, feed, logg)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return &chatFixture{svc: svc, repo: repo, feed: feed, profiles: profiles, buyer: buyer, seller: seller}
}

func expectChatCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	appErr := pkgerrors.As(err)
	if appErr == nil {
		t.Fatalf("expected *errors.Error, got %v", err)
	}
	if appErr.Code() != code {
		t.Fatalf("expected code %s, got %s (%s)", code, appErr.Code(), appErr.Message())
	}
}

func TestSendStoresAndPublishes(t *testing.T) {
	fix := newChatFixture(t)

	dto, err := fix.svc.Send(context.Background(), fix.buyer, SendMessageInput{
		ReceiverID: fix.seller,
		Content:    "  Is the blue one still in stock?  ",
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if dto.Content != "Is the blue one still in stock?" {
		t.Fatalf("content not trimmed: %q", dto.Content)
	}
	if dto.ID == uuid.Nil {
		t.Fatal("expected assigned message id")
	}

	if len(fix.feed.published) != 1 {
		t.Fatalf("expected 1 published feed message, got %d", len(fix.feed.published))
	}
	wantChannel := fix.feed.ChatChannelKey(fix.buyer.String(), fix.seller.String())
	got := fix.feed.published[0]
	if got.channel != wantChannel {
		t.Fatalf("published to %s, want %s", got.channel, wantChannel)
	}
	var decoded MessageDTO
	if err := json.Unmarshal(got.payload, &decoded); err != nil {
		t.Fatalf("decoding published payload: %v", err)
	}
	if decoded.ID != dto.ID || decoded.SenderID != fix.buyer {
		t.Fatalf("published payload mismatch: %+v", decoded)
	}
}

func TestSendValidation(t *testing.T) {
	fix := newChatFixture(t)
	ctx := context.Background()

	cases := []struct {
		name     string
		sender   uuid.UUID
		input    SendMessageInput
		wantCode pkgerrors.Code
	}{
		{
			name:     "missing receiver",
			sender:   fix.buyer,
			input:    SendMessageInput{Content: "hi"},
			wantCode: pkgerrors.CodeValidation,
		},
		{
			name:     "self message",
			sender:   fix.buyer,
			input:    SendMessageInput{ReceiverID: fix.buyer, Content: "hi"},
			wantCode: pkgerrors.CodeValidation,
		},
		{
			name:     "blank content",
			sender:   fix.buyer,
			input:    SendMessageInput{ReceiverID: fix.seller, Content: "   "},
			wantCode: pkgerrors.CodeValidation,
		},
		{
			name:     "content too long",
			sender:   fix.buyer,
			input:    SendMessageInput{ReceiverID: fix.seller, Content: strings.Repeat("x", maxMessageLength+1)},
			wantCode: pkgerrors.CodeValidation,
		},
		{
			name:     "unknown receiver",
			sender:   fix.buyer,
			input:    SendMessageInput{ReceiverID: uuid.New(), Content: "hi"},
			wantCode: pkgerrors.CodeNotFound,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := fix.svc.Send(ctx, tc.sender, tc.input)
			expectChatCode(t, err, tc.wantCode)
		})
	}

	if len(fix.repo.messages) != 0 {
		t.Fatalf("expected no stored messages, got %d", len(fix.repo.messages))
	}
	if len(fix.feed.published) != 0 {
		t.Fatalf("expected no published messages, got %d", len(fix.feed.published))
	}
}

func TestSendRejectsInactiveReceiver(t *testing.T) {
	fix := newChatFixture(t)
	fix.profiles.profiles[fix.seller].IsActive = false

	_, err := fix.svc.Send(context.Background(), fix.buyer, SendMessageInput{
		ReceiverID: fix.seller,
		Content:    "hello",
	})
	expectChatCode(t, err, pkgerrors.CodeValidation)
}

func TestHistoryAscendingAndMarksRead(t *testing.T) {
	fix := newChatFixture(t)
	ctx := context.Background()

	contents := []string{"first", "second", "third"}
	for _, content := range contents {
		if _, err := fix.svc.Send(ctx, fix.seller, SendMessageInput{ReceiverID: fix.buyer, Content: content}); err != nil {
			t.Fatalf("Send: %v", err)
		}
	}
	if _, err := fix.svc.Send(ctx, fix.buyer, SendMessageInput{ReceiverID: fix.seller, Content: "reply"}); err != nil {
		t.Fatalf("Send: %v", err)
	}

	result, err := fix.svc.History(ctx, fix.buyer, HistoryInput{OtherID: fix.seller, Limit: 10})
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(result.Items) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(result.Items))
	}
	for i := 1; i < len(result.Items); i++ {
		if result.Items[i].CreatedAt.Before(result.Items[i-1].CreatedAt) {
			t.Fatal("history not in ascending order")
		}
	}
	if result.Items[0].Content != "first" || result.Items[3].Content != "reply" {
		t.Fatalf("unexpected ordering: %q .. %q", result.Items[0].Content, result.Items[3].Content)
	}

	// Loading the conversation marks the seller's messages read, not the
	// buyer's own reply.
	for _, m := range fix.repo.messages {
		if m.SenderID == fix.seller && m.ReadAt == nil {
			t.Fatalf("seller message %q not marked read", m.Content)
		}
		if m.SenderID == fix.buyer && m.ReadAt != nil {
			t.Fatal("buyer's own message should stay unread for the seller")
		}
	}
}

func TestHistoryPaginates(t *testing.T) {
	fix := newChatFixture(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := fix.svc.Send(ctx, fix.seller, SendMessageInput{ReceiverID: fix.buyer, Content: "msg"}); err != nil {
			t.Fatalf("Send: %v", err)
		}
	}

	first, err := fix.svc.History(ctx, fix.buyer, HistoryInput{OtherID: fix.seller, Limit: 3})
	if err != nil {
		t.Fatalf("History page 1: %v", err)
	}
	if len(first.Items) != 3 || first.Cursor == "" {
		t.Fatalf("expected full first page with cursor, got %d items cursor %q", len(first.Items), first.Cursor)
	}

	second, err := fix.svc.History(ctx, fix.buyer, HistoryInput{OtherID: fix.seller, Limit: 3, Cursor: first.Cursor})
	if err != nil {
		t.Fatalf("History page 2: %v", err)
	}
	if len(second.Items) != 2 || second.Cursor != "" {
		t.Fatalf("expected final page of 2, got %d items cursor %q", len(second.Items), second.Cursor)
	}
	if second.Items[0].ID == first.Items[len(first.Items)-1].ID {
		t.Fatal("pages overlap")
	}
}

func TestHistoryValidation(t *testing.T) {
	fix := newChatFixture(t)
	ctx := context.Background()

	_, err := fix.svc.History(ctx, fix.buyer, HistoryInput{OtherID: fix.buyer, Limit: 10})
	expectChatCode(t, err, pkgerrors.CodeValidation)

	_, err = fix.svc.History(ctx, fix.buyer, HistoryInput{OtherID: fix.seller, Limit: 10, Cursor: "not-a-cursor"})
	expectChatCode(t, err, pkgerrors.CodeValidation)
}

func TestMarkReadReceiverOnly(t *testing.T) {
	fix := newChatFixture(t)
	ctx := context.Background()

	dto, err := fix.svc.Send(ctx, fix.buyer, SendMessageInput{ReceiverID: fix.seller, Content: "ping"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	// The sender cannot mark their own outbound message read.
	err = fix.svc.MarkRead(ctx, fix.buyer, dto.ID)
	expectChatCode(t, err, pkgerrors.CodeForbidden)

	if err := fix.svc.MarkRead(ctx, fix.seller, dto.ID); err != nil {
		t.Fatalf("MarkRead by receiver: %v", err)
	}
	stored, err := fix.repo.FindByID(ctx, dto.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if stored.ReadAt == nil {
		t.Fatal("expected read_at to be set")
	}

	// Replaying the read is a no-op.
	if err := fix.svc.MarkRead(ctx, fix.seller, dto.ID); err != nil {
		t.Fatalf("MarkRead replay: %v", err)
	}

	err = fix.svc.MarkRead(ctx, fix.seller, uuid.New())
	expectChatCode(t, err, pkgerrors.CodeNotFound)
}
