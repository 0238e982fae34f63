package automation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

const (
	BlockTrigger   = "trigger"
	BlockWhatsApp  = "whatsapp"
	BlockWait      = "wait"
	BlockCondition = "condition"
)

var ErrNoBlocks = errors.New("flow definition has no blocks array")

// Block is one step of a flow definition. The set of implementations is
// closed: TriggerBlock, WhatsAppBlock, WaitBlock, ConditionBlock and
// UnknownBlock.
type Block interface {
	BlockID() string
	BlockType() string
	isBlock()
}

type TriggerBlock struct {
	ID        string
	Label     string
	EventType string
}

// WhatsAppBlock sends one message. A nil Template means "use the flow's
// message template"; an empty one does not.
type WhatsAppBlock struct {
	ID       string
	Label    string
	Template *string
}

// WaitBlock is accepted and logged but does not delay execution.
type WaitBlock struct {
	ID      string
	Label   string
	Minutes *float64
}

type ConditionBlock struct {
	ID         string
	Label      string
	Expression string
}

// UnknownBlock keeps a block whose type this engine does not know, so it
// survives a decode/encode round trip.
type UnknownBlock struct {
	ID   string
	Type string
	Raw  json.RawMessage
}

func (b TriggerBlock) BlockID() string   { return b.ID }
func (b WhatsAppBlock) BlockID() string  { return b.ID }
func (b WaitBlock) BlockID() string      { return b.ID }
func (b ConditionBlock) BlockID() string { return b.ID }
func (b UnknownBlock) BlockID() string   { return b.ID }

func (TriggerBlock) BlockType() string   { return BlockTrigger }
func (WhatsAppBlock) BlockType() string  { return BlockWhatsApp }
func (WaitBlock) BlockType() string      { return BlockWait }
func (ConditionBlock) BlockType() string { return BlockCondition }
func (b UnknownBlock) BlockType() string { return b.Type }

func (TriggerBlock) isBlock()   {}
func (WhatsAppBlock) isBlock()  {}
func (WaitBlock) isBlock()      {}
func (ConditionBlock) isBlock() {}
func (UnknownBlock) isBlock()   {}

// Definition is the stored {"blocks": [...]} document of a flow.
type Definition struct {
	Blocks []Block
}

// rawBlock is the wire shape shared by all block types.
type rawBlock struct {
	ID         string   `json:"id"`
	Type       string   `json:"type"`
	Label      *string  `json:"label,omitempty"`
	EventType  *string  `json:"eventType,omitempty"`
	Template   *string  `json:"template,omitempty"`
	Minutes    *float64 `json:"minutes,omitempty"`
	Expression *string  `json:"expression,omitempty"`
}

// DecodeDefinition parses a stored definition. It returns nil, nil for an
// empty or JSON null value and ErrNoBlocks when "blocks" is not an array.
// Blocks with fields of the wrong JSON type are kept in their safest form,
// see decodeBlock.
func DecodeDefinition(data []byte) (*Definition, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil
	}

	var def Definition
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, err
	}
	return &def, nil
}

// ValidateDefinition is DecodeDefinition for definitions submitted by a
// client: any block field of the wrong JSON type is an error.
func ValidateDefinition(data []byte) (*Definition, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil
	}

	blocks, problems, err := parseBlocks(data)
	if err != nil {
		return nil, err
	}
	if len(problems) > 0 {
		return nil, errors.Join(problems...)
	}
	return &Definition{Blocks: blocks}, nil
}

func (d *Definition) UnmarshalJSON(data []byte) error {
	blocks, problems, err := parseBlocks(data)
	if err != nil {
		return err
	}
	for _, p := range problems {
		zap.L().Warn("flowDefinition: malformed block", zap.Error(p))
	}
	d.Blocks = blocks
	return nil
}

func parseBlocks(data []byte) ([]Block, []error, error) {
	var doc struct {
		Blocks json.RawMessage `json:"blocks"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, nil, fmt.Errorf("decode flow definition: %w", err)
	}
	if len(doc.Blocks) == 0 || doc.Blocks[0] != '[' {
		return nil, nil, ErrNoBlocks
	}

	var items []json.RawMessage
	if err := json.Unmarshal(doc.Blocks, &items); err != nil {
		return nil, nil, fmt.Errorf("decode flow blocks: %w", err)
	}

	blocks := make([]Block, 0, len(items))
	var problems []error
	for i, item := range items {
		b, err := decodeBlock(item)
		if err != nil {
			problems = append(problems, fmt.Errorf("block %d: %w", i, err))
		}
		blocks = append(blocks, b)
	}
	return blocks, problems, nil
}

// decodeBlock reads the type first and every other field leniently, so one
// mistyped field never changes what kind of block it is. It always returns
// a block; the error lists the fields that had to be replaced. A condition
// whose expression cannot be read gets an empty expression, which is false.
// A whatsapp block whose template cannot be read gets an empty template,
// which sends nothing.
func decodeBlock(item json.RawMessage) (Block, error) {
	var fields map[string]any
	if err := json.Unmarshal(item, &fields); err != nil || fields == nil {
		return UnknownBlock{Raw: item}, errors.New("block is not an object")
	}

	id := textField(fields["id"])
	label := textField(fields["label"])
	blockType := textField(fields["type"])

	switch blockType {
	case BlockTrigger:
		return TriggerBlock{ID: id, Label: label, EventType: textField(fields["eventType"])}, nil

	case BlockWhatsApp:
		b := WhatsAppBlock{ID: id, Label: label}
		switch v := fields["template"].(type) {
		case nil:
		case string:
			b.Template = &v
		default:
			empty := ""
			b.Template = &empty
			return b, fmt.Errorf("whatsapp block %q: template must be a string", id)
		}
		return b, nil

	case BlockWait:
		b := WaitBlock{ID: id, Label: label}
		switch v := fields["minutes"].(type) {
		case nil:
		case float64:
			b.Minutes = &v
		default:
			return b, fmt.Errorf("wait block %q: minutes must be a number", id)
		}
		return b, nil

	case BlockCondition:
		b := ConditionBlock{ID: id, Label: label}
		switch v := fields["expression"].(type) {
		case nil:
		case string:
			b.Expression = v
		default:
			return b, fmt.Errorf("condition block %q: expression must be a string", id)
		}
		return b, nil

	default:
		return UnknownBlock{ID: id, Type: blockType, Raw: item}, nil
	}
}

// textField formats a scalar JSON value; a missing value is "".
func textField(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}

func (d Definition) MarshalJSON() ([]byte, error) {
	items := make([]json.RawMessage, 0, len(d.Blocks))
	for _, b := range d.Blocks {
		raw, err := encodeBlock(b)
		if err != nil {
			return nil, err
		}
		items = append(items, raw)
	}
	return json.Marshal(struct {
		Blocks []json.RawMessage `json:"blocks"`
	}{Blocks: items})
}

func encodeBlock(b Block) (json.RawMessage, error) {
	rb := rawBlock{ID: b.BlockID(), Type: b.BlockType()}
	switch blk := b.(type) {
	case TriggerBlock:
		rb.Label = nonEmpty(blk.Label)
		rb.EventType = &blk.EventType
	case WhatsAppBlock:
		rb.Label = nonEmpty(blk.Label)
		rb.Template = blk.Template
	case WaitBlock:
		rb.Label = nonEmpty(blk.Label)
		rb.Minutes = blk.Minutes
	case ConditionBlock:
		rb.Label = nonEmpty(blk.Label)
		rb.Expression = &blk.Expression
	case UnknownBlock:
		if len(blk.Raw) > 0 {
			return blk.Raw, nil
		}
	}
	return json.Marshal(rb)
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// LegacyDefinition is the block form of a template-only flow.
func LegacyDefinition(eventType string, template *string) Definition {
	return Definition{Blocks: []Block{
		TriggerBlock{ID: "trigger-1", Label: "Trigger", EventType: eventType},
		WhatsAppBlock{ID: "whatsapp-1", Label: "WhatsApp", Template: template},
	}}
}
