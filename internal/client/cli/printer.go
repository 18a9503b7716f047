package cli

import (
	"fmt"
	"io"

	"github.com/iudanet/gophnotes/internal/client/notify"
)

// outcomePrinter показывает outcome пользователю
type outcomePrinter struct {
	w io.Writer
}

func newOutcomePrinter(w io.Writer) notify.Notifier {
	return &outcomePrinter{w: w}
}

func (p *outcomePrinter) Notify(outcome notify.Outcome) {
	mark := "✓"
	if outcome.Failed() {
		mark = "✗"
	}
	_, _ = fmt.Fprintf(p.w, "%s %s: %s\n", mark, outcome.Title, outcome.Message)
}
