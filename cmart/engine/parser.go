package engine

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// Canned texts substituted when stripping a marker leaves the reply empty.
const (
	fallbackCreateOrderText = "Great! To place your order I just need your name and phone number."
	fallbackFetchOrdersText = "Let me check your orders for you."
	fallbackCancelOrderText = "I can help you cancel an order. Which order would you like to cancel?"
)

var fencedJSONRe = regexp.MustCompile("(?s)```json\\s*(.*?)```")

// ResponseParser classifies raw generator output into exactly one
// GenerationResult. Overlapping formats resolve through a fixed precedence:
// structured JSON reply, create-order marker, fetch-orders marker,
// cancel-order marker, then plain text. No error ever escapes Parse; every
// malformed input degrades to the next rule and, ultimately, to a plain reply
// carrying the raw text.
type ResponseParser struct {
	logger zerolog.Logger
	guard  *Guardrails
}

func NewResponseParser(logger zerolog.Logger) *ResponseParser {
	return &ResponseParser{logger: logger, guard: NewGuardrails()}
}

// Parse runs the precedence rules and stops at the first match.
func (p *ResponseParser) Parse(raw string) GenerationResult {
	if res, ok := p.parseStructuredReply(raw); ok {
		return res
	}
	if res, ok := p.parseCreateOrder(raw); ok {
		return res
	}
	if res, ok := p.parseFetchOrders(raw); ok {
		return res
	}
	if res, ok := p.parseCancelOrder(raw); ok {
		return res
	}
	return GenerationResult{Kind: KindPlainReply, Text: raw}
}

// parseStructuredReply handles rule 1: a fenced JSON block anywhere in the
// text, or a trimmed text starting with "{". Parse failures fall through to
// the marker rules rather than aborting.
func (p *ResponseParser) parseStructuredReply(raw string) (GenerationResult, bool) {
	var candidate string
	if m := fencedJSONRe.FindStringSubmatch(raw); m != nil {
		candidate = m[1]
	} else if t := strings.TrimSpace(raw); strings.HasPrefix(t, "{") {
		candidate = t
	} else {
		return GenerationResult{}, false
	}

	var obj map[string]any
	dec := json.NewDecoder(strings.NewReader(candidate))
	if err := dec.Decode(&obj); err != nil {
		p.logger.Warn().Err(err).Msg("structured reply candidate is not valid JSON, falling through")
		return GenerationResult{}, false
	}

	text, _ := obj["text"].(string)
	if strings.TrimSpace(text) == "" {
		// No usable text field: fall through to marker scanning.
		return GenerationResult{}, false
	}

	res := GenerationResult{Kind: KindPlainReply, Text: text}
	if imgs, ok := obj["images"].([]any); ok {
		var urls []string
		for _, v := range imgs {
			if s, ok := v.(string); ok {
				urls = append(urls, s)
			}
		}
		if len(urls) > 0 {
			res.Images = urls
		}
	}
	return res, true
}

func (p *ResponseParser) parseCreateOrder(raw string) (GenerationResult, bool) {
	before, payload, found := p.extractMarkerPayload(raw, MarkerCreateOrder)
	if !found || payload == nil {
		return GenerationResult{}, false
	}

	if err := p.guard.ValidateOrderPayload(payload); err != nil {
		p.logger.Warn().Err(err).Msg("create-order payload rejected, continuing marker scan")
		return GenerationResult{}, false
	}

	var draft OrderDraft
	if err := json.Unmarshal(payload, &draft); err != nil {
		p.logger.Warn().Err(err).Msg("create-order payload unmarshal failed, continuing marker scan")
		return GenerationResult{}, false
	}

	text := before
	if text == "" {
		text = fallbackCreateOrderText
	}
	return GenerationResult{Kind: KindCreateOrder, Text: text, Order: &draft}, true
}

func (p *ResponseParser) parseFetchOrders(raw string) (GenerationResult, bool) {
	if !strings.Contains(raw, MarkerFetchOrders) {
		return GenerationResult{}, false
	}

	remainder := strings.TrimSpace(strings.Replace(raw, MarkerFetchOrders, "", 1))
	if remainder == "" {
		remainder = fallbackFetchOrdersText
	}
	return GenerationResult{Kind: KindFetchOrders, Text: remainder}, true
}

func (p *ResponseParser) parseCancelOrder(raw string) (GenerationResult, bool) {
	before, payload, found := p.extractMarkerPayload(raw, MarkerCancelOrder)
	if !found || payload == nil {
		return GenerationResult{}, false
	}

	if err := p.guard.ValidateCancelPayload(payload); err != nil {
		p.logger.Warn().Err(err).Msg("cancel-order payload rejected, continuing")
		return GenerationResult{}, false
	}

	var body struct {
		OrderID any `json:"orderId"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		p.logger.Warn().Err(err).Msg("cancel-order payload unmarshal failed, continuing")
		return GenerationResult{}, false
	}

	text := before
	if text == "" {
		text = fallbackCancelOrderText
	}
	return GenerationResult{Kind: KindCancelOrder, Text: text, OrderID: coerceOrderID(body.OrderID)}, true
}

// extractMarkerPayload locates marker and decodes the first complete JSON
// value after it. A streaming decoder finds the end of the object, so nested
// braces in payload values terminate correctly. payload is nil when the
// marker is present but not followed by parseable JSON.
func (p *ResponseParser) extractMarkerPayload(raw, marker string) (before string, payload json.RawMessage, found bool) {
	idx := strings.Index(raw, marker)
	if idx < 0 {
		return "", nil, false
	}

	before = strings.TrimSpace(raw[:idx])
	rest := strings.TrimLeft(raw[idx+len(marker):], " \t\r\n")
	if !strings.HasPrefix(rest, "{") {
		p.logger.Warn().Str("marker", marker).Msg("intent marker without JSON payload")
		return before, nil, true
	}

	dec := json.NewDecoder(strings.NewReader(rest))
	var raw0 json.RawMessage
	if err := dec.Decode(&raw0); err != nil {
		p.logger.Warn().Err(err).Str("marker", marker).Msg("intent marker payload is not valid JSON")
		return before, nil, true
	}
	return before, raw0, true
}

// coerceOrderID accepts the orderId shapes the generator actually produces:
// a JSON string, a JSON number, or null.
func coerceOrderID(v any) *int64 {
	switch id := v.(type) {
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(id), 10, 64)
		if err != nil {
			return nil
		}
		return &n
	case float64:
		n := int64(id)
		return &n
	default:
		return nil
	}
}
