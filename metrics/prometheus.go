package metrics

import (
	"fmt"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "cargoexec"

// Prometheus exposes a Collector's counters as a prom.Collector. The
// collector's subcommand and target become constant labels.
type Prometheus struct {
	c *Collector

	invocations  *prom.Desc
	decodeErrors *prom.Desc
	messages     *prom.Desc
	artifacts    *prom.Desc
	diagnostics  *prom.Desc
}

// NewPrometheus wraps c.
func NewPrometheus(c *Collector) *Prometheus {
	snap := c.Snapshot()
	labels := prom.Labels{"subcommand": snap.Subcommand, "target": snap.Target}
	desc := func(name, help string, variable ...string) *prom.Desc {
		return prom.NewDesc(prom.BuildFQName(namespace, "", name), help, variable, labels)
	}

	return &Prometheus{
		c:            c,
		invocations:  desc("invocations_total", "Subcommand invocations by outcome.", "outcome"),
		decodeErrors: desc("decode_errors_total", "Output lines that could not be decoded."),
		messages:     desc("messages_total", "Decoded cargo messages by reason.", "reason"),
		artifacts:    desc("artifacts_total", "Compiler artifacts by freshness.", "fresh"),
		diagnostics:  desc("diagnostics_total", "Compiler diagnostics by level.", "level"),
	}
}

// Describe implements prom.Collector.
func (p *Prometheus) Describe(ch chan<- *prom.Desc) {
	ch <- p.invocations
	ch <- p.decodeErrors
	ch <- p.messages
	ch <- p.artifacts
	ch <- p.diagnostics
}

// Collect implements prom.Collector.
func (p *Prometheus) Collect(ch chan<- prom.Metric) {
	s := p.c.Snapshot()

	counter(ch, p.invocations, s.InvocationsStarted, "started")
	counter(ch, p.invocations, s.InvocationsSucceeded, "succeeded")
	counter(ch, p.invocations, s.InvocationsFailed, "failed")
	counter(ch, p.invocations, s.LaunchFailures, "launch_failed")
	counter(ch, p.decodeErrors, s.DecodeErrors)
	for reason, n := range s.MessagesByReason {
		counter(ch, p.messages, n, reason)
	}
	counter(ch, p.artifacts, s.FreshArtifacts, "true")
	counter(ch, p.artifacts, s.Artifacts-s.FreshArtifacts, "false")
	for level, n := range s.DiagnosticsByLevel {
		counter(ch, p.diagnostics, n, level)
	}
}

func counter(ch chan<- prom.Metric, desc *prom.Desc, v int64, labelValues ...string) {
	ch <- prom.MustNewConstMetric(desc, prom.CounterValue, float64(v), labelValues...)
}

// WriteTextfile writes c's counters to path in the Prometheus text format,
// for the node_exporter textfile collector.
func WriteTextfile(path string, c *Collector) error {
	reg := prom.NewRegistry()
	if err := reg.Register(NewPrometheus(c)); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}
	if err := prom.WriteToTextfile(path, reg); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
