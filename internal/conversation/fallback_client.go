package conversation

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/smilebright-frontdesk/pkg/logging"
)

var fallbackTracer = otel.Tracer("smilebright.internal.conversation.fallback")

// Provider is one named entry in a fallback chain.
type Provider struct {
	Name   string
	Client LLMClient
}

// FallbackLLMClient asks each provider in turn until one answers.
type FallbackLLMClient struct {
	providers []Provider
	logger    *logging.Logger
	tracer    trace.Tracer
}

// NewFallbackLLMClient builds a chain in the given order. Providers without
// a client are skipped.
func NewFallbackLLMClient(logger *logging.Logger, providers ...Provider) *FallbackLLMClient {
	if logger == nil {
		logger = logging.Default()
	}
	chain := make([]Provider, 0, len(providers))
	for _, p := range providers {
		if p.Client != nil {
			chain = append(chain, p)
		}
	}
	return &FallbackLLMClient{providers: chain, logger: logger, tracer: fallbackTracer}
}

// Complete returns the first successful answer. When every provider fails
// the errors are joined, each prefixed with its provider name. A cancelled
// context stops the chain.
func (c *FallbackLLMClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	if len(c.providers) == 0 {
		return LLMResponse{}, errors.New("conversation: no llm providers configured")
	}

	var errs []error
	for i, p := range c.providers {
		resp, err := c.attempt(ctx, i, p, req)
		if err == nil {
			if i > 0 {
				c.logger.Info("fallback provider answered", "provider", p.Name, "attempt", i+1)
			}
			return resp, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", p.Name, err))

		if ctx.Err() != nil {
			break
		}
		if i+1 < len(c.providers) {
			c.logger.Warn("llm provider failed, trying next",
				"provider", p.Name,
				"next", c.providers[i+1].Name,
				"error", err,
			)
		}
	}
	if len(errs) > 1 {
		c.logger.Error("all llm providers failed", "attempts", len(errs))
	}
	return LLMResponse{}, errors.Join(errs...)
}

func (c *FallbackLLMClient) attempt(ctx context.Context, idx int, p Provider, req LLMRequest) (LLMResponse, error) {
	ctx, span := c.tracer.Start(ctx, "conversation.provider")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.provider", p.Name),
		attribute.Int("llm.attempt", idx+1),
	)
	resp, err := p.Client.Complete(ctx, req)
	if err != nil {
		span.RecordError(err)
	}
	return resp, err
}
