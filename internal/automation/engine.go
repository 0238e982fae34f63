package automation

import (
	"context"
	"errors"
	"fmt"

	"bugalou/internal/models"

	"go.uber.org/zap"
)

var ErrFlowNotFound = errors.New("flow not found")

// Engine runs the flows of a company for incoming events.
type Engine struct {
	Flows      FlowRepository
	Companies  CompanyRepository
	Dispatcher *Dispatcher
}

func NewEngine(flows FlowRepository, companies CompanyRepository, dispatcher *Dispatcher) *Engine {
	return &Engine{Flows: flows, Companies: companies, Dispatcher: dispatcher}
}

type EventInput struct {
	CompanyID string
	EventType string
	Contact   EventContact
	Payload   map[string]any
}

type RunResult struct {
	TriggeredFlows int              `json:"triggeredFlows"`
	MessagesSent   int              `json:"messagesSent"`
	Messages       []models.Message `json:"messages"`
}

// conditionSlot is the outcome of the most recent condition block. It guards
// only the next whatsapp block.
type conditionSlot int

const (
	slotUnset conditionSlot = iota
	slotTrue
	slotFalse
)

type runState struct {
	last conditionSlot
}

// RunFlowsForEvent executes every active flow of the company bound to the
// event type. Flows and blocks run sequentially; a failed send is recorded
// and the run continues. Credential and storage errors abort the run.
func (e *Engine) RunFlowsForEvent(ctx context.Context, in EventInput) (*RunResult, error) {
	zap.L().Info("runFlowsForEvent: start",
		zap.String("companyId", in.CompanyID),
		zap.String("eventType", in.EventType),
		zap.String("contactPhone", in.Contact.Phone))

	flows, err := e.Flows.FindActiveFlows(ctx, in.CompanyID, in.EventType)
	if err != nil {
		return nil, fmt.Errorf("load flows: %w", err)
	}
	zap.L().Info("runFlowsForEvent: flows found", zap.Int("count", len(flows)))

	result := &RunResult{Messages: []models.Message{}}
	if len(flows) == 0 {
		return result, nil
	}

	company, err := e.Companies.GetCompany(ctx, in.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("load company: %w", err)
	}

	runCtx := NewContext(in.Contact, company, in.Payload)

	for i := range flows {
		flow := &flows[i]
		msgs, err := e.runFlow(ctx, in, flow, runCtx)
		if err != nil {
			return nil, fmt.Errorf("flow %s: %w", flow.ID, err)
		}
		result.Messages = append(result.Messages, msgs...)
	}

	result.TriggeredFlows = len(flows)
	result.MessagesSent = len(result.Messages)
	return result, nil
}

func (e *Engine) runFlow(ctx context.Context, in EventInput, flow *models.Flow, runCtx Context) ([]models.Message, error) {
	def, err := DecodeDefinition(flow.Definition)
	if err != nil || def == nil {
		if err != nil {
			zap.L().Warn("runFlowsForEvent: unusable definition, using messageTemplate",
				zap.String("flowId", flow.ID), zap.Error(err))
		} else {
			zap.L().Info("runFlowsForEvent: flow has no definition, using messageTemplate",
				zap.String("flowId", flow.ID))
		}
		return e.runLegacy(ctx, in, flow, runCtx)
	}

	zap.L().Info("runFlowsForEvent: executing definition",
		zap.String("flowId", flow.ID), zap.String("flow", flow.Name), zap.Int("blocks", len(def.Blocks)))

	var (
		state runState
		sent  []models.Message
	)
	for _, block := range def.Blocks {
		var msg *models.Message
		state, msg, err = e.step(ctx, in, flow, runCtx, state, block)
		if err != nil {
			return nil, err
		}
		if msg != nil {
			sent = append(sent, *msg)
		}
	}
	return sent, nil
}

// step applies one block and returns the state for the next one.
func (e *Engine) step(ctx context.Context, in EventInput, flow *models.Flow, runCtx Context, state runState, block Block) (runState, *models.Message, error) {
	switch b := block.(type) {
	case ConditionBlock:
		ok := EvaluateCondition(b.Expression, runCtx)
		zap.L().Info("runFlowsForEvent: condition evaluated",
			zap.String("expression", b.Expression), zap.Bool("result", ok))
		if ok {
			return runState{last: slotTrue}, nil, nil
		}
		return runState{last: slotFalse}, nil, nil

	case WhatsAppBlock:
		if state.last == slotFalse {
			zap.L().Info("runFlowsForEvent: condition was false, whatsapp block skipped",
				zap.String("blockId", b.ID))
			return runState{}, nil, nil
		}

		tmpl := ""
		switch {
		case b.Template != nil:
			tmpl = *b.Template
		case flow.MessageTemplate != nil:
			tmpl = *flow.MessageTemplate
		}

		content := RenderTemplate(tmpl, runCtx)
		zap.L().Debug("runFlowsForEvent: whatsapp block rendered",
			zap.String("blockId", b.ID), zap.String("content", content))
		if trimSpace(content) == "" {
			return runState{}, nil, nil
		}

		msg, err := e.dispatch(ctx, in, content, runCtx)
		if err != nil {
			return state, nil, err
		}
		return runState{}, msg, nil

	case WaitBlock:
		minutes := 0.0
		if b.Minutes != nil {
			minutes = *b.Minutes
		}
		zap.L().Info("runFlowsForEvent: wait block is not delayed yet",
			zap.String("blockId", b.ID), zap.Float64("minutes", minutes))
		return runState{}, nil, nil

	case TriggerBlock:
		zap.L().Debug("runFlowsForEvent: trigger block", zap.String("eventType", b.EventType))
		return runState{}, nil, nil

	case UnknownBlock:
		zap.L().Warn("runFlowsForEvent: unknown block type ignored",
			zap.String("blockId", b.ID), zap.String("type", b.Type))
		return runState{}, nil, nil
	}
	return runState{}, nil, nil
}

func (e *Engine) runLegacy(ctx context.Context, in EventInput, flow *models.Flow, runCtx Context) ([]models.Message, error) {
	tmpl := ""
	if flow.MessageTemplate != nil {
		tmpl = *flow.MessageTemplate
	}
	content := RenderTemplate(tmpl, runCtx)
	if trimSpace(content) == "" {
		return nil, nil
	}

	msg, err := e.dispatch(ctx, in, content, runCtx)
	if err != nil {
		return nil, err
	}
	return []models.Message{*msg}, nil
}

func (e *Engine) dispatch(ctx context.Context, in EventInput, content string, runCtx Context) (*models.Message, error) {
	return e.Dispatcher.Dispatch(ctx, DispatchRequest{
		CompanyID: in.CompanyID,
		ContactID: in.Contact.ID,
		Content:   content,
		Context:   runCtx,
	})
}
