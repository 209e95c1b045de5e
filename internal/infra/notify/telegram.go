// Package notify — уведомления администратору о проведённых выдачах.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Spok95/paperstock/internal/domain/issuance"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// порог, ниже которого остаток лота отмечается в уведомлении (метры)
const lowStockThreshold = 50.0

// таймаут одного запроса к Bot API
const sendTimeout = 10 * time.Second

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram шлёт квитанцию о выдаче в админский чат.
type Telegram struct {
	api       sender
	adminChat int64
	log       *slog.Logger
}

// NewTelegram подключается к Bot API. Пустой токен — уведомления выключены.
func NewTelegram(token string, adminChat int64, log *slog.Logger) (issuance.Notifier, error) {
	if token == "" || adminChat == 0 {
		log.Info("telegram notifications disabled")
		return Nop{}, nil
	}
	api, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, &http.Client{Timeout: sendTimeout})
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	log.Info("telegram notifier authorized", "bot", api.Self.UserName)
	return &Telegram{api: api, adminChat: adminChat, log: log}, nil
}

// IssuanceCommitted ждёт отправки не дольше ctx. Сам запрос ограничен
// таймаутом http-клиента и доживает в фоне.
func (t *Telegram) IssuanceCommitted(ctx context.Context, r issuance.Receipt) error {
	msg := tgbotapi.NewMessage(t.adminChat, ReceiptText(r))
	done := make(chan error, 1)
	go func() {
		_, err := t.api.Send(msg)
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			t.log.Error("send failed", "chat", t.adminChat, "err", err)
		}
		return err
	case <-ctx.Done():
		t.log.Warn("send still pending", "chat", t.adminChat, "err", ctx.Err())
		return ctx.Err()
	}
}

// ReceiptText — текст квитанции: job card, позиции с остатками, итог.
func ReceiptText(r issuance.Receipt) string {
	var sb strings.Builder
	job := r.Transaction.JobCardNo
	if job == "" {
		job = "—"
	}
	fmt.Fprintf(&sb, "Выдача материала по job card %s\n", job)
	for _, l := range r.Lines {
		fmt.Fprintf(&sb, "• %s: %s м (остаток %s → %s)", l.PaperCode, qty(l.Issued), qty(l.Before), qty(l.After))
		switch {
		case l.After == 0:
			sb.WriteString(" ⛔ исчерпан")
		case l.After < lowStockThreshold:
			sb.WriteString(" ⚠️ мало")
		}
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "Итого: %s м", qty(r.TotalIssued))
	o := r.Transaction
	if o.WasteQty > 0 || o.LeftoverQty > 0 || o.WIPQty > 0 {
		fmt.Fprintf(&sb, "\nОтход %s, LO %s, WIP %s", qty(o.WasteQty), qty(o.LeftoverQty), qty(o.WIPQty))
	}
	return sb.String()
}

func qty(v float64) string {
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.2f", v), "0"), ".")
}

// Nop — уведомления выключены.
type Nop struct{}

func (Nop) IssuanceCommitted(context.Context, issuance.Receipt) error { return nil }
