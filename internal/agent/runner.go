package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/perch-finance/perch/internal/config"
	"github.com/perch-finance/perch/internal/intent"
	"github.com/perch-finance/perch/internal/logger"
	"github.com/perch-finance/perch/internal/trade"
)

const (
	buyToolName  = "buy_stock"
	apologyReply = "Sorry, something went wrong on my side. Please try again in a moment."
)

// BuyTool is the order execution pipeline exposed to the model.
type BuyTool interface {
	BuyStock(ctx context.Context, userID, symbol string, percent float64) (*trade.Outcome, error)
}

// Runner drives the reasoning service and normalizes whatever comes
// back into a reply plus a list of tool actions. Reasoning-service
// failures are absorbed here; the caller always gets usable text.
type Runner struct {
	chat   ChatClient
	buy    BuyTool
	cfg    *config.Config
	logger *logger.Logger
}

func NewRunner(chat ChatClient, buy BuyTool, cfg *config.Config, log *logger.Logger) *Runner {
	return &Runner{chat: chat, buy: buy, cfg: cfg, logger: log}
}

type buyArgs struct {
	Symbol  string  `json:"symbol"`
	Percent float64 `json:"percent"`
}

func buyToolDef() openai.Tool {
	return openai.Tool{
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        buyToolName,
			Description: "Buy a stock for the user using a percentage of the available balance.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"symbol": map[string]any{
						"type":        "string",
						"description": "Ticker symbol of the stock to buy, e.g. TSLA.",
					},
					"percent": map[string]any{
						"type":        "number",
						"description": "Percentage of the available balance to spend, between 10 and 50.",
					},
				},
				"required": []string{"symbol", "percent"},
			},
		},
	}
}

// Run executes one agent exchange. When the message carries buy intent
// and the buy tool is registered, the first call forces that tool; a
// model that ignores the forced choice and produces nothing is an agent
// failure, not a valid no-action response.
func (r *Runner) Run(ctx context.Context, userID, message string, ti intent.TradeIntent, balance float64) (*Result, error) {
	llmCtx, cancel := context.WithTimeout(ctx, r.cfg.LLMTimeout())
	defer cancel()

	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: BuildSystemPrompt(balance, r.cfg.Trading.Symbols)},
		{Role: openai.ChatMessageRoleUser, Content: AugmentUserMessage(message, ti, balance)},
	}

	buyIntent := ti.Kind == intent.KindBuy && r.buy != nil

	var (
		actions    []ToolAction
		finalText  string
		iterText   string
		toolCalled bool
		toolErr    error
		runErr     error
	)

	for step := 0; step < r.cfg.LLM.MaxSteps; step++ {
		req := openai.ChatCompletionRequest{
			Model:     r.cfg.LLM.Model,
			Messages:  messages,
			Tools:     []openai.Tool{buyToolDef()},
			MaxTokens: r.cfg.LLM.MaxTokens,
		}
		if buyIntent && step == 0 {
			req.ToolChoice = openai.ToolChoice{
				Type:     openai.ToolTypeFunction,
				Function: openai.ToolFunction{Name: buyToolName},
			}
		}

		resp, err := r.chat.CreateChatCompletion(llmCtx, req)
		if err != nil {
			runErr = fmt.Errorf("reasoning service: %w", err)
			break
		}
		if len(resp.Choices) == 0 {
			runErr = errors.New("reasoning service returned no choices")
			break
		}

		msg := resp.Choices[0].Message
		if text := strings.TrimSpace(msg.Content); text != "" {
			iterText = text
		}

		if len(msg.ToolCalls) == 0 {
			finalText = strings.TrimSpace(msg.Content)
			break
		}

		toolCalled = true
		messages = append(messages, msg)
		for _, tc := range msg.ToolCalls {
			output, action, err := r.invokeTool(ctx, userID, tc)
			if err != nil {
				toolErr = err
				r.logger.Error("tool invocation failed", "tool", tc.Function.Name, "error", err)
			}
			if action != nil {
				actions = append(actions, *action)
			}
			messages = append(messages, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				ToolCallID: tc.ID,
				Content:    output,
			})
		}
	}

	if runErr != nil {
		r.logger.Error("agent run degraded", "error", runErr)
	}

	hasBuy := false
	for _, a := range actions {
		if a.Kind == ActionBuyStock {
			hasBuy = true
		}
	}

	// First two ladder rungs: final text, then text salvaged from the
	// last tool-calling iteration.
	text := finalText
	if text == "" {
		text = iterText
	}

	// A buy request that produced no buy action must come back as an
	// explicit failure, never as pleasantries that mask a dropped
	// financial instruction.
	if buyIntent && !hasBuy {
		if toolCalled && toolErr != nil && text != "" {
			return &Result{Reply: text, Actions: actions}, toolErr
		}
		return &Result{Reply: r.buyFailureReply(toolErr, runErr), Actions: actions}, firstErr(toolErr, runErr)
	}

	if text == "" && hasBuy {
		text = synthesizeBuyReply(actions, balance)
	}
	if text == "" {
		text = joinAdviceSummaries(actions)
	}
	if text == "" {
		text = r.directCompletion(ctx, message)
	}
	if text == "" {
		text = apologyReply
	}

	if ti.Kind == intent.KindRecommend && len(actions) == 0 && text != apologyReply {
		actions = append(actions, ToolAction{Kind: ActionAdvice, Summary: truncate(text, 200)})
	}

	return &Result{Reply: text, Actions: actions}, runErr
}

// invokeTool parses the call arguments fail-closed and runs the buy
// pipeline. The returned output goes back to the model as the tool
// result either way.
func (r *Runner) invokeTool(ctx context.Context, userID string, tc openai.ToolCall) (string, *ToolAction, error) {
	if tc.Function.Name != buyToolName {
		err := fmt.Errorf("unknown tool %q", tc.Function.Name)
		return err.Error(), nil, err
	}

	var args buyArgs
	if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
		err = fmt.Errorf("unparseable %s arguments: %w", buyToolName, err)
		return err.Error(), nil, err
	}
	if args.Symbol == "" || args.Percent <= 0 {
		err := fmt.Errorf("%s called without symbol or percent", buyToolName)
		return err.Error(), nil, err
	}

	outcome, err := r.buy.BuyStock(ctx, userID, args.Symbol, args.Percent)
	if err != nil {
		return fmt.Sprintf("buy failed: %v", err), nil, err
	}

	action := &ToolAction{
		Kind:            ActionBuyStock,
		Summary:         fmt.Sprintf("Bought $%.0f of %s", outcome.Amount, outcome.Symbol),
		Symbol:          outcome.Symbol,
		Amount:          outcome.Amount,
		PreparedOrderID: outcome.PreparedOrderID,
	}

	output, _ := json.Marshal(map[string]any{
		"status":            string(outcome.Status),
		"symbol":            outcome.Symbol,
		"amount":            outcome.Amount,
		"prepared_order_id": outcome.PreparedOrderID,
	})
	return string(output), action, nil
}

func (r *Runner) buyFailureReply(toolErr, runErr error) string {
	switch {
	case toolErr != nil:
		return fmt.Sprintf("I couldn't complete your purchase: %v.", toolErr)
	case runErr != nil:
		return "I couldn't process your purchase request right now. No order was placed; please try again."
	default:
		return "I wasn't able to process your purchase request. No order was placed; please rephrase and try again."
	}
}

// directCompletion is the last-resort network rung: a bare completion
// whose only instruction is to answer with non-empty text.
func (r *Runner) directCompletion(ctx context.Context, message string) string {
	llmCtx, cancel := context.WithTimeout(ctx, r.cfg.LLMTimeout())
	defer cancel()

	resp, err := r.chat.CreateChatCompletion(llmCtx, openai.ChatCompletionRequest{
		Model: r.cfg.LLM.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: "Always answer with non-empty text."},
			{Role: openai.ChatMessageRoleUser, Content: message},
		},
		MaxTokens: r.cfg.LLM.MaxTokens,
	})
	if err != nil || len(resp.Choices) == 0 {
		return ""
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content)
}

func synthesizeBuyReply(actions []ToolAction, balance float64) string {
	for _, a := range actions {
		if a.Kind != ActionBuyStock {
			continue
		}
		if balance > 0 {
			pct := a.Amount / balance * 100
			return fmt.Sprintf("Done! I bought $%.0f of %s (%.0f%% of your balance).", a.Amount, a.Symbol, pct)
		}
		return fmt.Sprintf("Done! I bought $%.0f of %s.", a.Amount, a.Symbol)
	}
	return ""
}

func joinAdviceSummaries(actions []ToolAction) string {
	var parts []string
	for _, a := range actions {
		if a.Kind == ActionAdvice && a.Summary != "" {
			parts = append(parts, a.Summary)
		}
	}
	return strings.Join(parts, "\n")
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
