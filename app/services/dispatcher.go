package services

import (
	"context"
	"errors"
	"fmt"

	"CamuPos/app/database"
	"CamuPos/app/store"
)

// Dispatcher is the entry point for every state change: it applies the
// action locally, then hands its intents to the replication worker.
type Dispatcher struct {
	enqueue chan struct{} // one-slot lock keeping enqueue order equal to dispatch order
	store   *store.Store
	worker  *ReplicationWorker
	logger  *LoggerService
}

// NewDispatcher wires a store to a replication worker
func NewDispatcher(st *store.Store, worker *ReplicationWorker, logger *LoggerService) *Dispatcher {
	if logger == nil {
		logger = NewDiscardLogger()
	}
	d := &Dispatcher{
		enqueue: make(chan struct{}, 1),
		store:   st,
		worker:  worker,
		logger:  logger,
	}
	return d
}

// Dispatch applies a and returns the new state at once. The completion
// resolves when the remote leg has run; callers may ignore it.
func (d *Dispatcher) Dispatch(a store.Action) (store.State, *Completion) {
	next, _, completion := d.dispatch(a)
	return next, completion
}

func (d *Dispatcher) dispatch(a store.Action) (store.State, []store.Intent, *Completion) {
	d.enqueue <- struct{}{}
	defer func() { <-d.enqueue }()

	next, intents := d.store.Dispatch(a)
	return next, intents, d.worker.Enqueue(a.Name(), intents)
}

// SyncError reports that an action was applied locally but its remote leg
// failed or did not finish in time
type SyncError struct {
	Action string
	Err    error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("%s applied locally, remote sync failed: %v", e.Action, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// DispatchAndWait dispatches a and waits for its remote leg
func (d *Dispatcher) DispatchAndWait(ctx context.Context, a store.Action) (store.State, error) {
	next, completion := d.Dispatch(a)
	if err := completion.Wait(ctx); err != nil {
		return next, &SyncError{Action: a.Name(), Err: err}
	}
	return next, nil
}

// Apply dispatches a, waiting for the remote leg only when wait is set
func (d *Dispatcher) Apply(ctx context.Context, a store.Action, wait bool) (store.State, error) {
	if wait {
		return d.DispatchAndWait(ctx, a)
	}
	next, _ := d.Dispatch(a)
	return next, nil
}

// Commit is Apply that also returns the intents a produced, which tell the
// caller what this dispatch changed. No intents means a was a no-op.
func (d *Dispatcher) Commit(ctx context.Context, a store.Action, wait bool) (store.State, []store.Intent, error) {
	next, intents, completion := d.dispatch(a)
	if wait {
		if err := completion.Wait(ctx); err != nil {
			return next, intents, &SyncError{Action: a.Name(), Err: err}
		}
	}
	return next, intents, nil
}

// State returns the current snapshot
func (d *Dispatcher) State() store.State {
	return d.store.State()
}

// Subscribe registers a listener on the underlying store
func (d *Dispatcher) Subscribe(fn store.Listener) func() {
	return d.store.Subscribe(fn)
}

// RemoteEnabled reports whether actions are replicated
func (d *Dispatcher) RemoteEnabled() bool {
	return d.worker.Enabled()
}

// Hydrate performs the startup read-through. Empty remote tables never
// replace local data. It is a no-op in local-only mode.
func (d *Dispatcher) Hydrate(ctx context.Context) error {
	snapshot, err := d.worker.Hydrate(ctx)
	if errors.Is(err, database.ErrRemoteDisabled) {
		return nil
	}
	d.store.Dispatch(snapshot)
	return err
}
