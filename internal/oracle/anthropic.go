package oracle

import (
	"context"
	"errors"
	"net"
	"os"
	"strings"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const systemPrompt = `You are an expert FANUC industrial robot maintenance and diagnostics system.
Your role is to analyze FANUC robot events, errors, and alerts to determine priority, assess risk,
and provide actionable recommendations for robot technicians. Consider:
- FANUC robot-specific error codes (SRVO, TEMP, MOTN, INTP, PROG)
- Robot joint-specific issues (J1-J6: base, shoulder, elbow, wrist)
- Safety implications for industrial robots
- Production line impact
- Historical patterns
- Severity indicators
- Maintenance history

Always provide clear, actionable recommendations specific to FANUC robot maintenance procedures.`

type transportFailureClass int

const (
	failureTimeout transportFailureClass = iota
	failureRateLimit
	failureServer
	failureClient
)

// TextGenerator is the minimal surface the oracle client needs from an LLM.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

type AnthropicMessager interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

type AnthropicClientCreator func(apiKey string) AnthropicMessager

func defaultAnthropicCreator(apiKey string) AnthropicMessager {
	c := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &c.Messages
}

var newAnthropicClient AnthropicClientCreator = defaultAnthropicCreator

// AnthropicGenerator calls the Anthropic Messages API with transient-failure
// retries.
type AnthropicGenerator struct {
	messages AnthropicMessager
	model    anthropic.Model
}

// NewAnthropicGeneratorFromEnv builds a generator from ANTHROPIC_API_KEY.
// Missing credentials are an error; callers treat that as "oracle
// unavailable" and run on the heuristic.
func NewAnthropicGeneratorFromEnv(modelOverride string) (*AnthropicGenerator, error) {
	apiKey := strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY"))
	if apiKey == "" {
		return nil, errors.New("ANTHROPIC_API_KEY not configured")
	}
	m := anthropic.ModelClaudeSonnet4_20250514
	if modelOverride != "" {
		m = anthropic.Model(modelOverride)
	}
	return &AnthropicGenerator{messages: newAnthropicClient(apiKey), model: m}, nil
}

func (a *AnthropicGenerator) GenerateText(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		resp, err := a.messages.New(ctx, anthropic.MessageNewParams{
			Model:       a.model,
			MaxTokens:   1024,
			System:      []anthropic.TextBlockParam{{Text: systemPrompt}},
			Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(prompt))},
			Temperature: anthropic.Float(0.3),
		})
		if err != nil {
			lastErr = err
			class := classifyTransportError(err)
			if (class == failureTimeout || class == failureRateLimit || class == failureServer) && attempt < 3 {
				select {
				case <-time.After(backoffDelay(attempt)):
					continue
				case <-ctx.Done():
					return "", ctx.Err()
				}
			}
			return "", err
		}
		var sb strings.Builder
		for _, b := range resp.Content {
			if b.Type == "text" {
				sb.WriteString(b.Text)
			}
		}
		return sb.String(), nil
	}
	return "", lastErr
}

func classifyTransportError(err error) transportFailureClass {
	if errors.Is(err, context.DeadlineExceeded) {
		return failureTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return failureTimeout
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "429"):
		return failureRateLimit
	case strings.Contains(msg, "status code: 5") || strings.Contains(msg, "server error"):
		return failureServer
	case strings.Contains(msg, "status code: 4"):
		return failureClient
	default:
		return failureServer
	}
}

func backoffDelay(attempt int) time.Duration {
	if attempt <= 1 {
		return 1 * time.Second
	}
	return 2 * time.Second
}
