package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"CamuPos/app/database"
	"CamuPos/app/models"
	"CamuPos/app/store"
)

// RemoteTables is the remote store surface the replication worker drives.
// *database.RemoteStore satisfies it.
type RemoteTables interface {
	SelectProducts(ctx context.Context) ([]models.Product, error)
	SelectTransactions(ctx context.Context) ([]models.Order, error)
	SelectExpenses(ctx context.Context) ([]models.Expense, error)
	UpsertProduct(ctx context.Context, p models.Product) error
	UpsertTransaction(ctx context.Context, o models.Order) error
	UpsertExpense(ctx context.Context, e models.Expense) error
	DeleteProduct(ctx context.Context, id string) error
	DeleteTransaction(ctx context.Context, id string) error
	DeleteExpense(ctx context.Context, id string) error
	PatchTransactionStatus(ctx context.Context, id string, status models.OrderStatus) error
	DeleteAllTransactions(ctx context.Context) error
}

// SyncRecorder keeps replication history. *database.LocalDB satisfies it.
type SyncRecorder interface {
	LogSync(entry database.SyncLog)
	UpdateSyncStatus(status string, lastError string, pending int) error
}

// Sync status values
const (
	SyncStatusSynced   = "synced"
	SyncStatusFailed   = "failed"
	SyncStatusDisabled = "disabled"
)

// DefaultCallTimeout bounds each remote call
const DefaultCallTimeout = 15 * time.Second

// Completion resolves once the remote leg of one action has run
type Completion struct {
	done chan struct{}
	err  error
}

func newCompletion() *Completion {
	return &Completion{done: make(chan struct{})}
}

func doneCompletion() *Completion {
	c := newCompletion()
	close(c.done)
	return c
}

func (c *Completion) finish(err error) {
	c.err = err
	close(c.done)
}

// Done is closed when the remote leg has finished
func (c *Completion) Done() <-chan struct{} {
	return c.done
}

// Wait blocks until the remote leg finishes or ctx ends. It returns the
// joined remote failures; they have already been logged and never affect
// local state.
func (c *Completion) Wait(ctx context.Context) error {
	select {
	case <-c.done:
		return c.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

type syncJob struct {
	id         string
	action     string
	intents    []store.Intent
	completion *Completion
}

// ReplicationWorker executes intents against the remote store in the order
// actions were dispatched. Failures are logged and swallowed: there is no
// retry and no rollback of local state.
type ReplicationWorker struct {
	remote      RemoteTables
	recorder    SyncRecorder
	logger      *LoggerService
	callTimeout time.Duration

	mu        sync.Mutex
	queue     []syncJob
	notify    chan struct{}
	stopChan  chan struct{}
	stopped   chan struct{}
	isRunning bool
}

// NewReplicationWorker creates a worker. A nil remote makes it a no-op.
func NewReplicationWorker(remote RemoteTables, recorder SyncRecorder, logger *LoggerService) *ReplicationWorker {
	if logger == nil {
		logger = NewDiscardLogger()
	}
	return &ReplicationWorker{
		remote:      remote,
		recorder:    recorder,
		logger:      logger,
		callTimeout: DefaultCallTimeout,
		notify:      make(chan struct{}, 1),
		stopChan:    make(chan struct{}),
		stopped:     make(chan struct{}),
	}
}

// Enabled reports whether a remote store is configured
func (w *ReplicationWorker) Enabled() bool {
	return w.remote != nil
}

// Start launches the run loop
func (w *ReplicationWorker) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.isRunning {
		return
	}
	w.isRunning = true
	if !w.Enabled() && w.recorder != nil {
		w.recorder.UpdateSyncStatus(SyncStatusDisabled, "", 0)
	}
	go w.run()
	w.logger.LogInfo("Replication worker started", fmt.Sprintf("remote=%v", w.Enabled()))
}

// Stop drains the queue and stops the run loop
func (w *ReplicationWorker) Stop() {
	w.mu.Lock()
	if !w.isRunning {
		w.mu.Unlock()
		return
	}
	w.isRunning = false
	w.mu.Unlock()

	close(w.stopChan)
	<-w.stopped
}

// Enqueue schedules the intents of one action. It never blocks on the
// network. With no remote configured the returned completion is already done.
func (w *ReplicationWorker) Enqueue(action string, intents []store.Intent) *Completion {
	if !w.Enabled() || len(intents) == 0 {
		return doneCompletion()
	}
	job := syncJob{
		id:         uuid.NewString(),
		action:     action,
		intents:    intents,
		completion: newCompletion(),
	}

	w.mu.Lock()
	w.queue = append(w.queue, job)
	w.mu.Unlock()

	select {
	case w.notify <- struct{}{}:
	default:
	}
	return job.completion
}

// Pending is the number of queued actions not yet executed
func (w *ReplicationWorker) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.queue)
}

func (w *ReplicationWorker) run() {
	defer close(w.stopped)
	defer w.logger.RecoverPanic()

	for {
		select {
		case <-w.notify:
			w.drain()
		case <-w.stopChan:
			w.drain()
			w.logger.LogInfo("Replication worker stopped")
			return
		}
	}
}

func (w *ReplicationWorker) next() (syncJob, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.queue) == 0 {
		return syncJob{}, false
	}
	job := w.queue[0]
	w.queue = w.queue[1:]
	return job, true
}

func (w *ReplicationWorker) drain() {
	for {
		job, ok := w.next()
		if !ok {
			return
		}
		w.execute(job)
	}
}

// execute runs every intent of one action, in order, even if an earlier one failed
func (w *ReplicationWorker) execute(job syncJob) {
	var errs []error
	defer func() {
		if r := recover(); r != nil {
			w.logger.LogPanic(r)
			errs = append(errs, fmt.Errorf("replication panic: %v", r))
		}
		err := errors.Join(errs...)
		w.recordStatus(err)
		job.completion.finish(err)
	}()

	for _, intent := range job.intents {
		err := w.apply(intent)
		w.recordIntent(job, intent, err)
		if err != nil {
			w.logger.LogError("Remote sync failed", err,
				"action="+job.action,
				"table="+intent.Table(),
				"kind="+string(intent.Kind()),
				"id="+intent.RowID())
			errs = append(errs, err)
		}
	}
}

func (w *ReplicationWorker) apply(intent store.Intent) error {
	ctx, cancel := context.WithTimeout(context.Background(), w.callTimeout)
	defer cancel()

	switch in := intent.(type) {
	case store.UpsertProductIntent:
		return w.remote.UpsertProduct(ctx, in.Product)
	case store.DeleteProductIntent:
		return w.remote.DeleteProduct(ctx, in.ID.String())
	case store.UpsertTransactionIntent:
		return w.remote.UpsertTransaction(ctx, in.Order)
	case store.PatchStatusIntent:
		return w.remote.PatchTransactionStatus(ctx, in.ID, in.Status)
	case store.DeleteTransactionIntent:
		return w.remote.DeleteTransaction(ctx, in.ID)
	case store.ClearTransactionsIntent:
		return w.remote.DeleteAllTransactions(ctx)
	case store.UpsertExpenseIntent:
		return w.remote.UpsertExpense(ctx, in.Expense)
	case store.DeleteExpenseIntent:
		return w.remote.DeleteExpense(ctx, in.ID)
	}
	return fmt.Errorf("unknown intent %T", intent)
}

func (w *ReplicationWorker) recordIntent(job syncJob, intent store.Intent, err error) {
	if w.recorder == nil {
		return
	}
	entry := database.SyncLog{
		IntentID: job.id,
		Action:   job.action,
		Table:    intent.Table(),
		Kind:     string(intent.Kind()),
		RowID:    intent.RowID(),
		Status:   "success",
	}
	if err != nil {
		entry.Status = "failed"
		entry.Error = err.Error()
	}
	w.recorder.LogSync(entry)
}

func (w *ReplicationWorker) recordStatus(err error) {
	if w.recorder == nil {
		return
	}
	status, lastError := SyncStatusSynced, ""
	if err != nil {
		status, lastError = SyncStatusFailed, err.Error()
	}
	if updateErr := w.recorder.UpdateSyncStatus(status, lastError, w.Pending()); updateErr != nil {
		w.logger.LogWarning("Could not update sync status", updateErr.Error())
	}
}

// Hydrate reads the remote tables once and returns the snapshot to merge.
// A table that fails to load comes back empty, which leaves the local slice
// untouched when applied.
func (w *ReplicationWorker) Hydrate(ctx context.Context) (store.SetInitialState, error) {
	if !w.Enabled() {
		return store.SetInitialState{}, database.ErrRemoteDisabled
	}

	var (
		snapshot store.SetInitialState
		errs     []error
	)
	products, err := w.remote.SelectProducts(ctx)
	if err != nil {
		w.logger.LogError("Failed to load remote products", err)
		errs = append(errs, err)
	}
	snapshot.Products = products

	orders, err := w.remote.SelectTransactions(ctx)
	if err != nil {
		w.logger.LogError("Failed to load remote transactions", err)
		errs = append(errs, err)
	}
	snapshot.Transactions = orders

	expenses, err := w.remote.SelectExpenses(ctx)
	if err != nil {
		w.logger.LogError("Failed to load remote expenses", err)
		errs = append(errs, err)
	}
	snapshot.Expenses = expenses

	w.logger.LogInfo("Remote snapshot loaded",
		fmt.Sprintf("products=%d transactions=%d expenses=%d", len(products), len(orders), len(expenses)))
	return snapshot, errors.Join(errs...)
}
