package engine

import (
	"fmt"
	"strings"
)

// Intent markers the generator embeds to signal a structured action. The
// prompt grammar and the parser must agree on these exact tokens.
const (
	MarkerCreateOrder = "[INTENT:CREATE_ORDER]"
	MarkerFetchOrders = "[INTENT:FETCH_ORDERS]"
	MarkerCancelOrder = "[INTENT:CANCEL_ORDER]"
)

// historyWindow bounds how many recent turns are rendered into the prompt.
const historyWindow = 6

const noProductsFallback = "There are no products listed right now. Let the customer know and offer to take their contact details so the shop can follow up."

// PromptBuilder renders a single generation prompt from a request plus static
// template text. Pure: no side effects, same inputs always yield the same
// prompt.
type PromptBuilder struct {
	shopName string
	// forcedLanguage, when set, overrides the reply-in-the-user's-language
	// directive with a single fixed language.
	forcedLanguage string
}

func NewPromptBuilder(shopName, forcedLanguage string) *PromptBuilder {
	if shopName == "" {
		shopName = "the shop"
	}
	return &PromptBuilder{shopName: shopName, forcedLanguage: forcedLanguage}
}

// Build assembles the full prompt: persona/policy document, language
// directive, inventory block, optional order-history block, intent-marker
// grammar, the windowed transcript, and the new user utterance.
func (b *PromptBuilder) Build(req GenerationRequest) string {
	var sb strings.Builder

	sb.WriteString(b.personaBlock())
	sb.WriteString("\n\n")
	sb.WriteString(b.languageDirective())
	sb.WriteString("\n\n")
	sb.WriteString(inventoryBlock(req.ProductContext))

	if len(req.PastOrders) > 0 {
		sb.WriteString("\n\n")
		sb.WriteString(orderHistoryBlock(req.PastOrders))
	}

	sb.WriteString("\n\n")
	sb.WriteString(markerGrammar)
	sb.WriteString("\n\nConversation so far:\n")
	sb.WriteString(renderTranscript(req.History))
	sb.WriteString("\n\nUSER: ")
	sb.WriteString(req.UserText)

	return sb.String()
}

func (b *PromptBuilder) personaBlock() string {
	return fmt.Sprintf(`You are the sales assistant for %s. You help customers browse products, answer questions about availability and pricing, take orders, and check or cancel existing orders.

Rules:
- Be warm, concise, and professional. Never invent products, prices, or stock that are not in the inventory below.
- Prices are fixed. Do not offer discounts, negotiate, or promise promotions.
- Walk the customer through the flow step by step: greet, help them pick products, confirm quantities, then collect their name and phone number before placing the order.
- If the customer asks about something outside the shop, politely steer the conversation back to the products.`, b.shopName)
}

func (b *PromptBuilder) languageDirective() string {
	if b.forcedLanguage != "" {
		return fmt.Sprintf("Always reply in %s, regardless of the language the customer writes in.", b.forcedLanguage)
	}
	return "Reply in the same language the customer's last message uses."
}

func inventoryBlock(productContext string) string {
	if strings.TrimSpace(productContext) == "" {
		return "Inventory:\n" + noProductsFallback
	}
	return "Inventory:\n" + productContext
}

func orderHistoryBlock(orders []OrderSummary) string {
	var sb strings.Builder
	sb.WriteString("The customer's past orders:\n")
	for i, o := range orders {
		items := o.Items
		if items == "" {
			items = "N/A"
		}
		if i > 0 {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "- Order #%d: %s (%s)", o.ID, items, o.Status)
	}
	return sb.String()
}

const markerGrammar = `When the customer confirms they want to place an order and you have their name and phone number, end your reply with ` + MarkerCreateOrder + ` followed by a JSON object: {"customerName": "...", "customerContact": "...", "items": "...", "notes": "..."}.
When the customer asks about their existing orders, include the token ` + MarkerFetchOrders + ` in your reply.
When the customer wants to cancel an order, end your reply with ` + MarkerCancelOrder + ` followed by {"orderId": "<id or null>"}.
When you want to show products with pictures, reply with only a JSON object: {"text": "...", "images": ["url", ...]}.
Otherwise reply with plain text and no markers.`

// renderTranscript renders at most the historyWindow most recent turns,
// oldest first, as "<sender>: <content>" lines. Input is most-recent-first.
func renderTranscript(history []ConversationTurn) string {
	window := history
	if len(window) > historyWindow {
		window = window[:historyWindow]
	}

	lines := make([]string, 0, len(window))
	for i := len(window) - 1; i >= 0; i-- {
		t := window[i]
		lines = append(lines, fmt.Sprintf("%s: %s", t.Sender, t.Content))
	}
	return strings.Join(lines, "\n")
}
