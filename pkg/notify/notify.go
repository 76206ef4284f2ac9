// Package notify delivers anomaly findings to external channels.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"logwatch/pkg/engine"
)

type Notifier interface {
	Notify(ctx context.Context, findings []engine.Finding) error
}

// Multi sends findings to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, findings []engine.Finding) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, findings); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Message renders findings as a plain text alert.
func Message(service string, findings []engine.Finding) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "API anomalies detected by %s:\n", service)
	for _, f := range findings {
		fmt.Fprintf(&sb, "- [%s] %s\n", strings.ToUpper(string(f.Severity)), f.Message)
	}
	return sb.String()
}
