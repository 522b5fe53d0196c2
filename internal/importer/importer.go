// Package importer reads bulk bookmark files and hands each entry to a
// caller supplied handler, counting successes and failures.
package importer

import (
	"context"
	"net/url"

	"github.com/xxxsen/readlater/internal/model"
)

// Row is one parsed entry of an import file.
type Row struct {
	URL *url.URL
	// State is nil when the file asserts no (known) state.
	State *model.SavingRequestStatus
	// Labels is nil when the file has no labels column and empty (non nil)
	// when the column is present but holds no label.
	Labels []string
}

type RowHandler interface {
	HandleRow(ctx context.Context, ic *Context, row Row) error
}

type RowHandlerFunc func(ctx context.Context, ic *Context, row Row) error

func (f RowHandlerFunc) HandleRow(ctx context.Context, ic *Context, row Row) error {
	return f(ctx, ic, row)
}

// Context carries the handler and the counters of a single import call.
// It must not be shared between concurrent imports.
type Context struct {
	UserID        string
	Handler       RowHandler
	CountImported int
	CountFailed   int
	// OnOutcome, when set, is called after each row has been counted.
	OnOutcome func(Outcome)
}

// Outcome is the result of processing one record. Err is nil on success.
type Outcome struct {
	Line int
	Row  Row
	Err  error
}

func (o Outcome) OK() bool {
	return o.Err == nil
}

func (ic *Context) Processed() int {
	return ic.CountImported + ic.CountFailed
}

func (ic *Context) record(outcome Outcome) {
	if outcome.OK() {
		ic.CountImported++
	} else {
		ic.CountFailed++
	}
	if ic.OnOutcome != nil {
		ic.OnOutcome(outcome)
	}
}

func (ic *Context) dispatch(ctx context.Context, line int, row Row) (outcome Outcome) {
	outcome = Outcome{Line: line, Row: row}
	defer func() {
		if r := recover(); r != nil {
			outcome.Err = &HandlerPanicError{Value: r}
		}
	}()
	if ic.Handler == nil {
		outcome.Err = ErrNoHandler
		return outcome
	}
	outcome.Err = ic.Handler.HandleRow(ctx, ic, row)
	return outcome
}
