package console

import (
	"context"
	"fmt"
	"io"

	"spendsync/internal/ledger"
)

// Notifier prints budget alerts to the terminal.
type Notifier struct {
	w io.Writer
}

func NewNotifier(w io.Writer) *Notifier {
	return &Notifier{w: w}
}

func (n *Notifier) Notify(_ context.Context, a ledger.Alert) error {
	_, err := fmt.Fprintf(n.w, "! %s: %s\n", a.Title, a.Body)
	return err
}
