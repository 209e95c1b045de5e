package notify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Spok95/paperstock/internal/domain/consumption"
	"github.com/Spok95/paperstock/internal/domain/issuance"
	"github.com/Spok95/paperstock/internal/infra/logger"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type fakeSender struct {
	sent []tgbotapi.Chattable
	err  error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, f.err
}

func receipt() issuance.Receipt {
	return issuance.Receipt{
		Transaction: consumption.Transaction{
			PaperCodes: "SUP25-001, SUP25-002",
			JobCardNo:  "JC-001",
			UsedQty:    150,
			WasteQty:   2.5,
		},
		Lines: []issuance.LineResult{
			{LotID: 1, PaperCode: "SUP25-001", Issued: 100, Before: 1000, After: 900},
			{LotID: 2, PaperCode: "SUP25-002", Issued: 50, Before: 80, After: 30},
		},
		TotalIssued: 150,
	}
}

func TestReceiptText(t *testing.T) {
	text := ReceiptText(receipt())
	for _, want := range []string{
		"JC-001",
		"SUP25-001: 100 м (остаток 1000 → 900)",
		"SUP25-002: 50 м (остаток 80 → 30) ⚠️ мало",
		"Итого: 150 м",
		"Отход 2.5, LO 0, WIP 0",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("text missing %q:\n%s", want, text)
		}
	}
	if strings.Contains(text, "SUP25-001: 100 м (остаток 1000 → 900) ⚠️") {
		t.Errorf("healthy lot flagged:\n%s", text)
	}

	r := receipt()
	r.Lines[1].After = 0
	if !strings.Contains(ReceiptText(r), "исчерпан") {
		t.Errorf("exhausted lot not flagged")
	}
}

func TestTelegramSendsToAdminChat(t *testing.T) {
	fs := &fakeSender{}
	n := &Telegram{api: fs, adminChat: 42, log: logger.Discard()}
	if err := n.IssuanceCommitted(context.Background(), receipt()); err != nil {
		t.Fatal(err)
	}
	if len(fs.sent) != 1 {
		t.Fatalf("sent = %d", len(fs.sent))
	}
	msg, ok := fs.sent[0].(tgbotapi.MessageConfig)
	if !ok || msg.ChatID != 42 || !strings.Contains(msg.Text, "JC-001") {
		t.Errorf("message = %+v", fs.sent[0])
	}

	fs.err = errors.New("flood wait")
	if err := n.IssuanceCommitted(context.Background(), receipt()); err == nil {
		t.Error("send error swallowed")
	}
}

func TestNewTelegramDisabled(t *testing.T) {
	n, err := NewTelegram("", 0, logger.Discard())
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := n.(Nop); !ok {
		t.Errorf("notifier = %T, want Nop", n)
	}
	if err := n.IssuanceCommitted(context.Background(), receipt()); err != nil {
		t.Error(err)
	}
}

type stuckSender struct{ release chan struct{} }

func (s stuckSender) Send(tgbotapi.Chattable) (tgbotapi.Message, error) {
	<-s.release
	return tgbotapi.Message{}, nil
}

func TestTelegramGivesUpOnContext(t *testing.T) {
	s := stuckSender{release: make(chan struct{})}
	defer close(s.release)
	n := &Telegram{api: s, adminChat: 42, log: logger.Discard()}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	start := time.Now()
	err := n.IssuanceCommitted(ctx, receipt())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want DeadlineExceeded", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("waited %v", elapsed)
	}
}
