package media

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/storyreel/storyreel/internal/logging"
)

var (
	ErrNotFound      = errors.New("media not found")
	ErrDuplicateID   = errors.New("media id already exists")
	ErrAlreadyProbed = errors.New("media already probed")
	ErrStatusFinal   = errors.New("media status already resolved")
	ErrNoLocator     = errors.New("media has no locator")
	ErrClosed        = errors.New("catalog closed")
	ErrInvalidItem   = errors.New("invalid media item")
)

const (
	defaultProbeTimeout     = 30 * time.Second
	defaultProbeConcurrency = 4
	defaultMediaDuration    = 5.0
)

// Options tunes catalog behaviour. Zero values select defaults.
type Options struct {
	DefaultDuration  float64
	ProbeTimeout     time.Duration
	ProbeConcurrency int
}

// Change is delivered to subscribers after an entry is added, updated or removed.
type Change struct {
	Item    Item
	Removed bool
}

// Catalog holds media entries and enriches them with probed metadata.
// It exclusively owns the file handles of local items.
type Catalog struct {
	prober   Prober
	releaser Releaser
	repo     Repository
	opts     Options
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.RWMutex
	items     map[string]*Item
	order     []string
	probing   map[string]bool
	closed    bool
	listeners []func(Change)
}

// NewCatalog creates an empty catalog. releaser and repo may be nil.
func NewCatalog(prober Prober, releaser Releaser, repo Repository, opts Options, logger *slog.Logger) *Catalog {
	if opts.DefaultDuration <= 0 {
		opts.DefaultDuration = defaultMediaDuration
	}
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = defaultProbeTimeout
	}
	if opts.ProbeConcurrency <= 0 {
		opts.ProbeConcurrency = defaultProbeConcurrency
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Catalog{
		prober:   prober,
		releaser: releaser,
		repo:     repo,
		opts:     opts,
		logger:   logging.WithComponent(logging.OrDiscard(logger), "media"),
		ctx:      ctx,
		cancel:   cancel,
		items:    make(map[string]*Item),
		probing:  make(map[string]bool),
	}
}

// DefaultDuration is the fallback duration of items whose probe has not resolved.
func (c *Catalog) DefaultDuration() float64 {
	return c.opts.DefaultDuration
}

// OnChange registers fn to be called after every catalog mutation.
// fn runs without catalog locks held.
func (c *Catalog) OnChange(fn func(Change)) {
	c.mu.Lock()
	c.listeners = append(c.listeners, fn)
	c.mu.Unlock()
}

// Restore loads persisted entries. It is meant to run once before use.
func (c *Catalog) Restore(ctx context.Context) (int, error) {
	if c.repo == nil {
		return 0, nil
	}
	items, err := c.repo.ListItems(ctx)
	if err != nil {
		return 0, fmt.Errorf("list media: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, it := range items {
		if _, exists := c.items[it.ID]; exists {
			continue
		}
		c.items[it.ID] = it
		c.order = append(c.order, it.ID)
	}
	return len(items), nil
}

// Add inserts an item in generating or ready status and returns the stored copy.
// It never waits on probing.
func (c *Catalog) Add(ctx context.Context, item Item) (Item, error) {
	if !item.Kind.Valid() {
		return Item{}, fmt.Errorf("%w: kind %q", ErrInvalidItem, item.Kind)
	}
	if item.Status == "" {
		item.Status = StatusReady
	}
	if item.Status != StatusGenerating && item.Status != StatusReady {
		return Item{}, fmt.Errorf("%w: must be added as generating or ready, got %q", ErrInvalidItem, item.Status)
	}
	if item.URL == "" && item.Status != StatusGenerating {
		return Item{}, ErrNoLocator
	}
	if item.ID == "" {
		item.ID = NewID()
	}
	if item.Duration <= 0 {
		item.Duration = c.opts.DefaultDuration
	}
	if item.AspectRatio == "" {
		item.AspectRatio = ClassifyAspect(item.Width, item.Height)
	}
	item.Probed = false
	item.Error = ""
	item.CreatedAt = time.Now()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return Item{}, ErrClosed
	}
	if _, exists := c.items[item.ID]; exists {
		c.mu.Unlock()
		return Item{}, ErrDuplicateID
	}
	if c.repo != nil {
		if err := c.repo.SaveItem(ctx, &item); err != nil {
			c.mu.Unlock()
			return Item{}, fmt.Errorf("persist media: %w", err)
		}
	}
	stored := item
	c.items[item.ID] = &stored
	c.order = append(c.order, item.ID)
	c.mu.Unlock()

	c.logger.Info("media added",
		"media_id", item.ID,
		"kind", item.Kind,
		"status", item.Status,
		"url", logging.SanitizeURL(item.URL),
	)
	c.notify(Change{Item: item})
	return item, nil
}

// Get returns a copy of the entry.
func (c *Catalog) Get(id string) (Item, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	it, ok := c.items[id]
	if !ok {
		return Item{}, false
	}
	return *it, true
}

// List returns copies of all entries in insertion order.
func (c *Catalog) List() []Item {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Item, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, *c.items[id])
	}
	return out
}

func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Probe starts asynchronous metadata extraction for id and returns immediately.
// A probe already in flight for id makes this a no-op.
func (c *Catalog) Probe(id string) error {
	locator, err := c.beginProbe(id)
	if err != nil || locator == "" {
		return err
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.runProbe(c.ctx, id, locator)
	}()
	return nil
}

// ProbeAll probes ids with bounded concurrency and waits for completion.
// It returns the number of probes that failed.
func (c *Catalog) ProbeAll(ctx context.Context, ids []string) int {
	var g errgroup.Group
	g.SetLimit(c.opts.ProbeConcurrency)

	var mu sync.Mutex
	failed := 0

	for _, id := range ids {
		locator, err := c.beginProbe(id)
		if err != nil {
			if !errors.Is(err, ErrAlreadyProbed) {
				c.logger.Warn("probe skipped", "media_id", id, "error", err)
			}
			continue
		}
		if locator == "" {
			continue
		}
		g.Go(func() error {
			if !c.runProbe(ctx, id, locator) {
				mu.Lock()
				failed++
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return failed
}

// beginProbe marks id as probing and returns its locator. An empty locator
// with a nil error means a probe is already in flight.
func (c *Catalog) beginProbe(id string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return "", ErrClosed
	}
	it, ok := c.items[id]
	if !ok {
		return "", ErrNotFound
	}
	if it.Probed {
		return "", ErrAlreadyProbed
	}
	if it.Status == StatusError {
		return "", ErrStatusFinal
	}
	if it.URL == "" {
		return "", ErrNoLocator
	}
	if c.probing[id] {
		return "", nil
	}
	c.probing[id] = true
	return it.URL, nil
}

func (c *Catalog) runProbe(parent context.Context, id, locator string) bool {
	ctx, cancel := context.WithTimeout(parent, c.opts.ProbeTimeout)
	defer cancel()

	res, err := c.prober.Probe(ctx, locator)
	return c.finishProbe(id, locator, res, err)
}

// finishProbe applies a probe outcome. The entry may have been removed, or
// its locator replaced, while the probe ran; both make the outcome a no-op.
func (c *Catalog) finishProbe(id, locator string, res *ProbeResult, probeErr error) bool {
	log := logging.WithMediaID(c.logger, id)

	c.mu.Lock()
	delete(c.probing, id)
	it, ok := c.items[id]
	if !ok || it.URL != locator {
		c.mu.Unlock()
		log.Debug("probe completed for absent media, ignoring")
		return probeErr == nil
	}

	if probeErr != nil {
		// Duration keeps its fallback so dependent clips stay editable.
		it.Status = StatusError
		it.Error = probeErr.Error()
		snapshot := *it
		c.mu.Unlock()

		log.Warn("media probe failed", "error", probeErr)
		c.persist(snapshot)
		c.notify(Change{Item: snapshot})
		return false
	}

	if res != nil {
		if res.Duration > 0 && it.Kind != KindImage {
			it.Duration = res.Duration
		}
		if res.Width > 0 && res.Height > 0 {
			it.Width, it.Height = res.Width, res.Height
			it.AspectRatio = ClassifyAspect(res.Width, res.Height)
		}
	}
	it.Probed = true
	if it.Status == StatusGenerating {
		it.Status = StatusReady
	}
	snapshot := *it
	c.mu.Unlock()

	log.Info("media probed",
		"duration_s", snapshot.Duration,
		"resolution", snapshot.Resolution(),
		"aspect_ratio", snapshot.AspectRatio,
	)
	c.persist(snapshot)
	c.notify(Change{Item: snapshot})
	return true
}

// Complete resolves a generating item with the finished asset from a
// generation collaborator. duration <= 0 keeps the fallback duration.
func (c *Catalog) Complete(ctx context.Context, id, url string, duration float64) (Item, error) {
	c.mu.Lock()
	it, ok := c.items[id]
	if !ok {
		c.mu.Unlock()
		return Item{}, ErrNotFound
	}
	if it.Status != StatusGenerating {
		c.mu.Unlock()
		return Item{}, ErrStatusFinal
	}
	if url == "" && it.URL == "" {
		c.mu.Unlock()
		return Item{}, ErrNoLocator
	}
	if url != "" {
		it.URL = url
	}
	if duration > 0 {
		it.Duration = duration
	}
	it.Status = StatusReady
	snapshot := *it
	c.mu.Unlock()

	c.logger.Info("media generation completed", "media_id", id, "duration_s", snapshot.Duration)
	c.persistCtx(ctx, snapshot)
	c.notify(Change{Item: snapshot})
	return snapshot, nil
}

// Fail resolves a generating item as failed.
func (c *Catalog) Fail(ctx context.Context, id, reason string) (Item, error) {
	c.mu.Lock()
	it, ok := c.items[id]
	if !ok {
		c.mu.Unlock()
		return Item{}, ErrNotFound
	}
	if it.Status != StatusGenerating {
		c.mu.Unlock()
		return Item{}, ErrStatusFinal
	}
	it.Status = StatusError
	it.Error = reason
	snapshot := *it
	c.mu.Unlock()

	c.logger.Warn("media generation failed", "media_id", id, "reason", reason)
	c.persistCtx(ctx, snapshot)
	c.notify(Change{Item: snapshot})
	return snapshot, nil
}

// Remove deletes the entry and releases its local resource.
func (c *Catalog) Remove(ctx context.Context, id string) (Item, error) {
	c.mu.Lock()
	it, ok := c.items[id]
	if !ok {
		c.mu.Unlock()
		return Item{}, ErrNotFound
	}
	if c.repo != nil {
		if err := c.repo.DeleteItem(ctx, id); err != nil {
			c.mu.Unlock()
			return Item{}, fmt.Errorf("delete media: %w", err)
		}
	}
	delete(c.items, id)
	delete(c.probing, id)
	for i, oid := range c.order {
		if oid == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	snapshot := *it
	c.mu.Unlock()

	c.release(snapshot)
	c.logger.Info("media removed", "media_id", id)
	c.notify(Change{Item: snapshot, Removed: true})
	return snapshot, nil
}

// Teardown removes every entry, releasing local resources.
func (c *Catalog) Teardown(ctx context.Context) error {
	var errs []error
	for _, it := range c.List() {
		if _, err := c.Remove(ctx, it.ID); err != nil && !errors.Is(err, ErrNotFound) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Wait blocks until all asynchronous probes have completed.
func (c *Catalog) Wait() {
	c.wg.Wait()
}

// Close cancels in-flight probes and waits for them to return. Entries and
// their files are kept so the catalog can be restored on the next start.
func (c *Catalog) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.cancel()
	c.wg.Wait()
}

func (c *Catalog) release(it Item) {
	if !it.Local || c.releaser == nil || it.URL == "" {
		return
	}
	if err := c.releaser.Release(it.URL); err != nil {
		c.logger.Warn("failed to release media resource", "media_id", it.ID, "error", err)
	}
}

func (c *Catalog) persist(it Item) {
	c.persistCtx(context.Background(), it)
}

func (c *Catalog) persistCtx(ctx context.Context, it Item) {
	if c.repo == nil {
		return
	}
	if err := c.repo.SaveItem(ctx, &it); err != nil {
		c.logger.Error("failed to persist media", "media_id", it.ID, "error", err)
	}
}

func (c *Catalog) notify(ch Change) {
	c.mu.RLock()
	listeners := slices.Clone(c.listeners)
	c.mu.RUnlock()
	for _, fn := range listeners {
		fn(ch)
	}
}
