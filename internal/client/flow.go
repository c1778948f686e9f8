package client

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"
)

type FlowState int

const (
	// StateEmpty: nothing pending on first load; caller can move on.
	StateEmpty FlowState = iota
	// StateListing: obligations remain to be reviewed.
	StateListing
	// StateCleared: the last obligation was just reviewed; caller should
	// redirect back to the dashboard.
	StateCleared
)

// Flow holds the client-side view of the review obligations screen. The local
// list is only ever mutated after the server confirms a change.
type Flow struct {
	c           *Client
	obligations []Obligation
	status      BlockingStatus
	loadedEmpty bool
}

// Load fetches obligations and blocking status in parallel, like the page does
// on mount.
func (c *Client) Load(ctx context.Context) (*Flow, error) {
	f := &Flow{c: c}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		items, err := c.Obligations(gctx)
		if err != nil {
			return err
		}
		f.obligations = items
		return nil
	})
	g.Go(func() error {
		st, err := c.BlockingStatus(gctx)
		if err != nil {
			return err
		}
		f.status = st
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	f.loadedEmpty = len(f.obligations) == 0
	return f, nil
}

func (f *Flow) Obligations() []Obligation { return f.obligations }
func (f *Flow) Status() BlockingStatus    { return f.status }

func (f *Flow) State() FlowState {
	if len(f.obligations) > 0 {
		return StateListing
	}
	if f.loadedEmpty {
		return StateEmpty
	}
	return StateCleared
}

// Submit posts one review. On success the confirmed obligation is dropped from
// the local list and the blocking status is re-fetched from the server. On
// conflict the list is re-fetched wholesale to reconcile with the server.
func (f *Flow) Submit(ctx context.Context, in ReviewInput) error {
	err := f.c.SubmitReview(ctx, in)
	if err != nil {
		if errors.Is(err, ErrConflict) {
			if items, rerr := f.c.Obligations(ctx); rerr == nil {
				f.obligations = items
			}
		}
		return err
	}

	kept := f.obligations[:0]
	for _, o := range f.obligations {
		if o.ConnectionID != in.ConnectionID {
			kept = append(kept, o)
		}
	}
	f.obligations = kept

	st, serr := f.c.BlockingStatus(ctx)
	if serr != nil {
		return serr
	}
	f.status = st
	return nil
}
