package ledger

import (
	"context"

	"voting-ledger/fault"
)

// DefaultQueueSize is the number of casts that may wait for the append worker.
const DefaultQueueSize = 256

// appendRequest is one cast waiting for the append worker
type appendRequest struct {
	ctx           context.Context
	candidateName string
	voterID       string
	meta          Metadata
	resultCh      chan<- *appendResult
}

type appendResult struct {
	result *CastResult
	err    error
}

// enqueue hands a cast to the append worker and waits for its result. A full
// queue is rejected at once rather than blocking the caller.
func (l *Ledger) enqueue(ctx context.Context, candidateName string, voterID string, meta Metadata) (*CastResult, error) {
	select {
	case <-l.shutdownCh:
		return nil, fault.ErrLedgerStopped
	default:
	}

	resultCh := make(chan *appendResult, 1)
	req := &appendRequest{
		ctx:           ctx,
		candidateName: candidateName,
		voterID:       voterID,
		meta:          meta,
		resultCh:      resultCh,
	}

	select {
	case l.requestCh <- req:
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
		l.log.Warnf("append queue is full, vote for voter %s rejected", voterID)
		return nil, fault.ErrAppendQueueFull
	}

	select {
	case res := <-resultCh:
		return res.result, res.err
	case <-l.doneCh:
		// the worker always answers a request it took before exiting
		select {
		case res := <-resultCh:
			return res.result, res.err
		default:
			return nil, fault.ErrLedgerStopped
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// appendWorker is the only writer of the chain: duplicate check, tip read,
// block construction and both writes of a vote run here one at a time.
func (l *Ledger) appendWorker() {
	defer close(l.doneCh)

	for {
		select {
		case <-l.shutdownCh:
			return
		case req := <-l.requestCh:
			if err := req.ctx.Err(); err != nil {
				req.resultCh <- &appendResult{err: err}
				continue
			}
			result, err := l.appendVote(req.ctx, req.candidateName, req.voterID, req.meta)
			req.resultCh <- &appendResult{result: result, err: err}
		}
	}
}

// Stop shuts the append worker down after the cast in progress. Casts still
// queued and later casts fail with ErrLedgerStopped. Stop may be called more
// than once.
func (l *Ledger) Stop() {
	l.stopOnce.Do(func() {
		close(l.shutdownCh)
	})
	<-l.doneCh
}
