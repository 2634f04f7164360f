package engine

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Intent payloads are validated at the parse boundary so malformed shapes
// degrade to the next parsing rule instead of propagating untyped data.

var orderDraftSchema = []byte(`{
	"type": "object",
	"properties": {
		"customerName":    {"type": "string"},
		"customerContact": {"type": "string"},
		"items":           {"type": "string"},
		"notes":           {"type": "string"}
	}
}`)

var cancelPayloadSchema = []byte(`{
	"type": "object",
	"properties": {
		"orderId": {"type": ["string", "integer", "null"]}
	}
}`)

// Guardrails validates intent payloads against their schemas.
type Guardrails struct{}

func NewGuardrails() *Guardrails { return &Guardrails{} }

// ValidateOrderPayload checks a create-order payload.
func (g *Guardrails) ValidateOrderPayload(data json.RawMessage) error {
	return validateAgainst(orderDraftSchema, data)
}

// ValidateCancelPayload checks a cancel-order payload.
func (g *Guardrails) ValidateCancelPayload(data json.RawMessage) error {
	return validateAgainst(cancelPayloadSchema, data)
}

func validateAgainst(schema []byte, data json.RawMessage) error {
	if !json.Valid(data) {
		return fmt.Errorf("payload is not valid JSON")
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}

	if !result.Valid() {
		var errs []string
		for _, e := range result.Errors() {
			errs = append(errs, e.String())
		}
		return fmt.Errorf("payload schema errors: %s", strings.Join(errs, "; "))
	}

	return nil
}
