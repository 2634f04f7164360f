package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	ports "github.com/hexlane/convomart/cmart/engine/ports"
)

// ConfirmedOrder is a finalized order rendered into a confirmation message.
type ConfirmedOrder struct {
	ID    int64
	Items string
	Phone string
	Notes string
}

// ConfirmationRenderer produces the terminal order-confirmation text through
// the generator, matching the customer's language. Its output is used
// verbatim and never fed back into the parser. On generator failure it
// substitutes a fixed English template with the order fields interpolated.
type ConfirmationRenderer struct {
	provider ports.Provider
	opts     ports.Options
	logger   zerolog.Logger
}

func NewConfirmationRenderer(provider ports.Provider, opts ports.Options, logger zerolog.Logger) *ConfirmationRenderer {
	return &ConfirmationRenderer{provider: provider, opts: opts, logger: logger}
}

// Render generates the confirmation string for order, using customerMessage
// only to let the generator match the customer's language.
func (r *ConfirmationRenderer) Render(ctx context.Context, order ConfirmedOrder, customerMessage string) GenerationResult {
	prompt := buildConfirmationPrompt(order, customerMessage)

	completion, err := r.provider.Complete(ctx, prompt, r.opts)
	if err != nil || strings.TrimSpace(completion.Text) == "" {
		if err != nil {
			r.logger.Warn().Err(err).Int64("order_id", order.ID).Msg("confirmation generation failed, using canned text")
		}
		return GenerationResult{Kind: KindConfirmation, Text: cannedConfirmation(order)}
	}

	return GenerationResult{Kind: KindConfirmation, Text: strings.TrimSpace(completion.Text)}
}

func buildConfirmationPrompt(order ConfirmedOrder, customerMessage string) string {
	notes := order.Notes
	if notes == "" {
		notes = "none"
	}

	return fmt.Sprintf(`You write order confirmations for an online shop. Write a short, friendly confirmation message for the order below. Thank the customer, repeat the order number and items, and say the shop will be in touch about delivery. Do not add markers, JSON, or questions.

Write the confirmation in the same language as the customer's message.

Examples:
- English: "Thank you! Your order #12 (2x candles) is confirmed. We'll contact you at the number you provided to arrange delivery."
- Spanish: "¡Gracias! Tu pedido #12 (2 velas) está confirmado. Te contactaremos al número indicado para coordinar la entrega."
- Russian: "Спасибо! Ваш заказ #12 (2 свечи) подтверждён. Мы свяжемся с вами по указанному номеру для уточнения доставки."

Order:
- Number: %d
- Items: %s
- Phone: %s
- Notes: %s

Customer's message: %s`, order.ID, order.Items, order.Phone, notes, customerMessage)
}

// cannedConfirmation is the deterministic fallback. English only; language
// matching happens in the generation path, not here.
func cannedConfirmation(order ConfirmedOrder) string {
	notes := order.Notes
	if notes == "" {
		notes = "none"
	}
	return fmt.Sprintf(`Thank you for your order!

Order #%d
Items: %s
Phone: %s
Notes: %s

We will contact you shortly to confirm delivery details.`, order.ID, order.Items, order.Phone, notes)
}
