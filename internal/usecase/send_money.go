package usecase

import (
	"context"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	domain "github.com/aq2208/campuspay-terminal/internal/entity"
	"github.com/aq2208/campuspay-terminal/internal/session"
)

// SanitizeAmount keeps digits and a single dot, truncates to two decimals
// and requires a positive result.
func SanitizeAmount(raw string) (decimal.Decimal, error) {
	var b strings.Builder
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()

	parts := strings.Split(cleaned, ".")
	if len(parts) > 2 {
		return decimal.Zero, domain.ErrInvalidAmount
	}
	text := parts[0]
	if len(parts) == 2 && parts[1] != "" {
		frac := parts[1]
		if len(frac) > 2 {
			frac = frac[:2]
		}
		text += "." + frac
	}
	if text == "" || text == "." {
		return decimal.Zero, domain.ErrInvalidAmount
	}
	if strings.HasPrefix(text, ".") {
		text = "0" + text
	}

	d, err := decimal.NewFromString(text)
	if err != nil || !d.IsPositive() {
		return decimal.Zero, domain.ErrInvalidAmount
	}
	return d, nil
}

// SendMoney is a peer transfer from the signed-in account.
type SendMoney struct {
	be  BuyerBackend
	log *slog.Logger
}

func NewSendMoney(be BuyerBackend, log *slog.Logger) *SendMoney {
	if log == nil {
		log = slog.Default()
	}
	return &SendMoney{be: be, log: log}
}

// Execute returns the backend's confirmation message.
func (s *SendMoney) Execute(ctx context.Context, sess session.Context, recipient, rawAmount, password string) (string, error) {
	recipient = strings.TrimSpace(recipient)
	if recipient == "" {
		return "", domain.ErrInvalidAmount
	}
	amt, err := SanitizeAmount(rawAmount)
	if err != nil {
		return "", err
	}
	if password == "" {
		return "", ErrEmptyPassword
	}

	if err := s.be.VerifyPassword(ctx, sess, password); err != nil {
		return "", &StepError{Step: StepVerify, Reason: passwordReason(err), Err: err}
	}
	msg, err := s.be.Transfer(ctx, sess, domain.TransferRequest{RecipientPhone: recipient, Amount: amt})
	if err != nil {
		s.log.Warn("send money failed", "recipient", recipient, "error", err)
		return "", &StepError{Step: StepTransfer, Reason: domain.Reason(err), Err: err}
	}
	s.log.Info("money sent", "recipient", recipient, "amount", amt.StringFixed(2))
	return msg, nil
}
