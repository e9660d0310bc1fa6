package cmd

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/cargoexec/adapter"
	"github.com/pithecene-io/cargoexec/adapter/nats"
	"github.com/pithecene-io/cargoexec/adapter/redis"
	"github.com/pithecene-io/cargoexec/adapter/webhook"
	"github.com/pithecene-io/cargoexec/cargo"
	"github.com/pithecene-io/cargoexec/cli/config"
	"github.com/pithecene-io/cargoexec/format"
)

const (
	adapterWebhook = "webhook"
	adapterRedis   = "redis"
	adapterNATS    = "nats"

	defaultAdapterRetries = 3
	publishTimeout        = 30 * time.Second
)

// AdapterFlags returns the notification adapter flags.
func AdapterFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "adapter",
			Usage: "Publish a completion notice via adapter: webhook, redis, nats",
		},
		&cli.StringFlag{
			Name:  "adapter-url",
			Usage: "Adapter endpoint (webhook URL, redis://host:port/db or nats://host:port)",
		},
		&cli.StringFlag{
			Name:  "adapter-channel",
			Usage: "Redis channel or NATS subject (defaults: " + redis.DefaultChannel + ", " + nats.DefaultSubject + ")",
		},
		&cli.StringSliceFlag{
			Name:  "adapter-header",
			Usage: "Webhook header as KEY=VALUE (repeatable)",
		},
		&cli.DurationFlag{
			Name:  "adapter-timeout",
			Usage: "Per-attempt adapter timeout",
		},
		&cli.IntFlag{
			Name:  "adapter-retries",
			Usage: "Adapter retry attempts (default: 3)",
		},
	}
}

// adapterOptions holds the resolved notification adapter settings.
type adapterOptions struct {
	adapterType string
	url         string
	channel     string
	headers     map[string]string
	timeout     time.Duration
	retries     int
}

// parseAdapterConfigWithPrecedence resolves adapter settings, flags over
// config. It returns nil when no adapter is selected.
func parseAdapterConfigWithPrecedence(c *cli.Context, cfg *config.AdapterConfig, adapterType string) (*adapterOptions, error) {
	if cfg == nil {
		cfg = &config.AdapterConfig{}
	}
	if adapterType == "" {
		return nil, nil
	}

	ac := &adapterOptions{
		adapterType: adapterType,
		url:         resolveString(c, "adapter-url", cfg.URL),
		channel:     resolveString(c, "adapter-channel", cfg.Channel),
		headers:     maps.Clone(cfg.Headers),
		timeout:     resolveDuration(c, "adapter-timeout", cfg.Timeout.Duration),
		retries:     defaultAdapterRetries,
	}

	switch adapterType {
	case adapterWebhook, adapterRedis, adapterNATS:
		if ac.url == "" {
			return nil, fmt.Errorf("--adapter-url is required when --adapter=%s", adapterType)
		}
	default:
		return nil, fmt.Errorf("unknown adapter type %q (want %s, %s or %s)", adapterType, adapterWebhook, adapterRedis, adapterNATS)
	}

	switch {
	case c.IsSet("adapter-retries"):
		ac.retries = c.Int("adapter-retries")
	case cfg.Retries != nil:
		ac.retries = *cfg.Retries
	}
	if ac.retries < 0 {
		return nil, fmt.Errorf("adapter retries must be >= 0, got %d", ac.retries)
	}

	headers, err := parsePairs("--adapter-header", c.StringSlice("adapter-header"))
	if err != nil {
		return nil, err
	}
	if len(headers) > 0 && ac.headers == nil {
		ac.headers = make(map[string]string, len(headers))
	}
	for _, kv := range headers {
		ac.headers[kv[0]] = kv[1]
	}
	return ac, nil
}

// newAdapter constructs the adapter ac describes.
func newAdapter(ac *adapterOptions) (adapter.Adapter, error) {
	switch ac.adapterType {
	case adapterWebhook:
		return webhook.New(webhook.Config{
			URL:     ac.url,
			Headers: ac.headers,
			Timeout: ac.timeout,
			Retries: ac.retries,
		})
	case adapterRedis:
		return redis.New(redis.Config{
			URL:     ac.url,
			Channel: ac.channel,
			Timeout: ac.timeout,
			Retries: ac.retries,
		})
	case adapterNATS:
		return nats.New(nats.Config{
			URL:     ac.url,
			Subject: ac.channel,
			Timeout: ac.timeout,
			Retries: ac.retries,
		})
	default:
		return nil, fmt.Errorf("unknown adapter type %q", ac.adapterType)
	}
}

// outcomeFor classifies a finished command. failure is the cargo error the
// session recorded, if any; result is what the action returned.
func outcomeFor(failure, result error) (string, int) {
	if kind, ok := cargo.KindOf(failure); ok {
		switch kind {
		case cargo.InvalidCommand:
			return adapter.OutcomeInvalidCommand, exitInvalidCommand
		case cargo.InvalidOutput:
			return adapter.OutcomeInvalidOutput, exitInvalidOutput
		default:
			return adapter.OutcomeCommandFailed, exitCommandFailed
		}
	}
	if result == nil {
		return adapter.OutcomeSuccess, exitSuccess
	}
	// A failed test or a nonzero status forwarded from an executed binary.
	code := exitCommandFailed
	var ec cli.ExitCoder
	if errors.As(result, &ec) {
		code = ec.ExitCode()
	}
	return adapter.OutcomeCommandFailed, code
}

// publish sends the completion notice for the session. Failures are logged
// and never change the command's exit status.
func (s *session) publish(result error) {
	snap := s.collector.Snapshot()
	outcome, code := outcomeFor(s.failure, result)

	event := &adapter.InvocationCompletedEvent{
		EventType:    adapter.EventTypeInvocationCompleted,
		InvocationID: s.inv.ID,
		Subcommand:   s.inv.Subcommand,
		ManifestPath: s.inv.ManifestPath,
		Target:       s.inv.Target,
		Outcome:      outcome,
		ExitCode:     code,
		Timestamp:    s.started.UTC().Format(time.RFC3339),
		DurationMs:   time.Since(s.started).Milliseconds(),
		Messages:     snap.Messages,
		Artifacts:    snap.Artifacts,
		Warnings:     snap.DiagnosticsByLevel[string(format.LevelWarning)],
		Errors:       snap.DiagnosticsByLevel[string(format.LevelError)] + snap.DiagnosticsByLevel[string(format.LevelICE)],
	}
	if s.failure != nil {
		event.Error = s.failure.Error()
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(s.ctx), publishTimeout)
	defer cancel()
	if err := s.adapter.Publish(ctx, event); err != nil {
		s.logger.Warn("adapter publish failed", map[string]any{"adapter": s.adapterType, "error": err.Error()})
		return
	}
	s.logger.Debug("adapter published", map[string]any{"adapter": s.adapterType, "outcome": outcome})
}
