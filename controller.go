package discover

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/singleflight"

	"github.com/letmevibethatforyou/discover/notify"
)

// Panel is the configuration panel currently open, if any.
type Panel string

const (
	PanelNone       Panel = ""
	PanelSettings   Panel = "settings"
	PanelTimepicker Panel = "timepicker"
)

// Controller binds one search page to its saved search. It keeps the view
// state, pushes it into the search source, asks the courier to execute and
// turns deliveries into rows and a histogram.
//
// All methods are safe for concurrent use. Once passed to NewController the
// saved search belongs to the controller; rename it with SetTitle. Deliveries
// are processed one at a time by Next, Run or Drain.
type Controller struct {
	saved   *SavedSearch
	source  SearchSource
	courier Courier
	state   StateStore
	store   SavedSearchStore

	logger    *slog.Logger
	notifier  Notifier
	navigator Navigator
	config    Config
	emitter   Emitter
	unwatch   func()

	fieldsGroup singleflight.Group

	mu           sync.Mutex
	initialQuery string
	initialSort  *Sort
	routeID      string
	view         ViewState
	opts         Options
	fields       []Field
	rows         []Hit
	chart        *Chart
	panel        Panel
}

// NewController loads the view state for saved and configures its source.
// saved must carry a Source, as returned by a courier's Resolve.
func NewController(ctx context.Context, saved *SavedSearch, courier Courier, state StateStore, store SavedSearchStore, opts ...Option) (*Controller, error) {
	if saved == nil || saved.Source == nil {
		return nil, errors.New("discover: saved search has no source")
	}
	if courier == nil || state == nil || store == nil {
		return nil, errors.New("discover: courier, state and store are required")
	}

	c := &Controller{
		saved:   saved,
		source:  saved.Source,
		courier: courier,
		state:   state,
		store:   store,
		logger:  slog.Default(),
		opts:    DefaultOptions(),
		routeID: saved.ID,
	}
	c.opts.SavedSearch = saved
	for _, opt := range opts {
		opt(c)
	}
	if c.notifier == nil {
		c.notifier = notify.New("Discover", c.logger)
	}

	if q := c.source.Query(); q != nil {
		c.initialQuery = q.Query
	}
	if s := saved.Sort; s != nil && s.Field != "" && s.Direction.Valid() {
		primary := *s
		c.initialSort = &primary
	}
	if err := c.loadState(ctx); err != nil {
		return nil, err
	}

	c.updateDataSource(ctx)

	if c.config != nil {
		watchCtx := context.WithoutCancel(ctx)
		c.unwatch = c.config.Watch(ConfigDefaultIndex, func(val string) {
			if err := c.OnDefaultIndex(watchCtx, val); err != nil {
				c.logger.WarnContext(watchCtx, "failed to apply default index", "index", val, "error", err)
			}
		})
	}

	if c.emitter != nil {
		c.emitter.Emit(EventApplicationLoad)
	}
	return c, nil
}

func (c *Controller) loadState(ctx context.Context) error {
	st := defaultViewState(c.initialQuery)
	if c.initialSort != nil {
		st.Sort = *c.initialSort
	}
	if err := c.state.Load(ctx, &st); err != nil {
		return errors.Wrap(err, "failed to load view state")
	}
	if len(st.Columns) == 0 {
		st.Columns = []string{SourceField}
	}
	if !st.Sort.Direction.Valid() || st.Sort.Field == "" {
		st.Sort = defaultViewState("").Sort
	}
	c.mu.Lock()
	c.view = st
	c.mu.Unlock()
	return nil
}

// Close stops watching config and destroys the saved search.
func (c *Controller) Close() error {
	if c.unwatch != nil {
		c.unwatch()
	}
	return c.saved.Destroy()
}

// Fetch pushes the current options and view state into the source,
// persists the view state and asks the courier to execute.
func (c *Controller) Fetch(ctx context.Context) error {
	c.updateDataSource(ctx)
	if err := c.updateState(ctx); err != nil {
		return err
	}
	if err := c.courier.Fetch(ctx); err != nil {
		return errors.Wrap(err, "courier fetch failed")
	}
	return nil
}

func (c *Controller) updateDataSource(ctx context.Context) {
	c.mu.Lock()
	index := c.opts.Index
	size := c.opts.SampleSize
	query := c.view.Query
	order := c.view.Sort
	needFields := c.fields == nil
	c.mu.Unlock()

	if index != c.source.Index() {
		c.source.SetIndex(index)
	}

	if needFields {
		if err := c.GetFields(ctx); err != nil {
			c.logger.WarnContext(ctx, "field discovery failed", "index", index, "error", err)
		}
	}

	var q *QueryString
	if query != "" {
		q = &QueryString{Query: query}
	}
	c.source.SetSize(size)
	c.source.SetQuery(q)
	c.source.SetSort(order)
	c.source.SetAggs(EventsHistogram())
}

func (c *Controller) updateState(ctx context.Context) error {
	c.mu.Lock()
	st := c.view.Clone()
	c.mu.Unlock()
	if err := c.state.Save(ctx, st); err != nil {
		return errors.Wrap(err, "failed to save view state")
	}
	return nil
}

// Next waits for one result delivery and applies it.
func (c *Controller) Next(ctx context.Context) error {
	resp, err := c.source.Next(ctx)
	if err != nil {
		return err
	}
	c.handleResults(ctx, resp)
	return nil
}

// Run applies deliveries in arrival order until the source is closed,
// ctx is done, or a delivery fails. A failed delivery is logged and ends
// the loop; it is never retried.
func (c *Controller) Run(ctx context.Context) error {
	for {
		err := c.Next(ctx)
		switch {
		case err == nil:
			continue
		case errors.Is(err, ErrSourceClosed):
			return nil
		case ctx.Err() != nil:
			return ctx.Err()
		default:
			c.logger.ErrorContext(ctx, "result delivery failed", "error", err)
			return err
		}
	}
}

// Drain applies every delivery already queued on the source without waiting
// for more and reports how many it applied, so the newest delivery ends up
// on the page. A failed delivery stops the drain and is returned.
func (c *Controller) Drain(ctx context.Context) (int, error) {
	nowait, cancel := context.WithCancel(ctx)
	cancel()

	applied := 0
	for {
		resp, err := c.source.Next(nowait)
		switch {
		case err == nil:
			c.handleResults(ctx, resp)
			applied++
		case errors.Is(err, context.Canceled), errors.Is(err, ErrSourceClosed):
			return applied, nil
		default:
			return applied, err
		}
	}
}

func (c *Controller) handleResults(ctx context.Context, resp *Response) {
	c.mu.Lock()
	needFields := c.fields == nil
	c.mu.Unlock()
	if needFields {
		if err := c.GetFields(ctx); err != nil {
			c.logger.WarnContext(ctx, "field discovery failed", "error", err)
		}
	}

	chart := NewChart(resp)
	c.mu.Lock()
	c.rows = append([]Hit(nil), resp.Hits.Hits...)
	c.chart = &chart
	c.mu.Unlock()
}

// GetFields rebuilds the field list from the source. Concurrent callers
// share one discovery request, which outlives the cancellation of the
// caller that started it. Each caller still stops waiting when its own
// ctx is done.
func (c *Controller) GetFields(ctx context.Context) error {
	ch := c.fieldsGroup.DoChan("fields", func() (interface{}, error) {
		return nil, c.discoverFields(context.WithoutCancel(ctx))
	})
	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Controller) discoverFields(ctx context.Context) error {
	c.mu.Lock()
	known := make(map[string]bool, len(c.fields))
	for _, f := range c.fields {
		known[f.Name] = f.Display
	}
	c.mu.Unlock()

	mapping, err := c.source.Fields(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get fields")
	}
	if mapping == nil {
		return nil
	}

	names := make([]string, 0, len(mapping))
	for name := range mapping {
		if name != SourceField {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	c.mu.Lock()
	selected := make(map[string]bool, len(c.view.Columns))
	for _, col := range c.view.Columns {
		selected[col] = true
	}

	fields := make([]Field, 0, len(names)+1)
	fields = append(fields, Field{Name: SourceField, Type: SourceType})
	for _, name := range names {
		display, ok := known[name]
		if !ok {
			display = selected[name]
		}
		fields = append(fields, Field{Name: name, Type: mapping[name].Type, Display: display})
	}
	c.fields = fields
	c.refreshColumnsLocked()
	c.mu.Unlock()

	return c.updateState(ctx)
}

// ToggleField flips the display flag of name and updates the columns.
func (c *Controller) ToggleField(ctx context.Context, name string) error {
	c.mu.Lock()
	idx := c.fieldIndex(name)
	if idx < 0 {
		c.mu.Unlock()
		return errors.Wrapf(ErrUnknownField, "%q", name)
	}
	c.fields[idx].Display = !c.fields[idx].Display

	switch {
	case isSourceOnly(c.view.Columns):
		c.view.Columns = toggleInOut(c.view.Columns, name)
		c.view.Columns = toggleInOut(c.view.Columns, SourceField)
		c.setDisplay(SourceField, false)
	case name == SourceField && c.fields[idx].Display:
		for i := range c.fields {
			if c.fields[i].Name != SourceField {
				c.fields[i].Display = false
			}
		}
		c.view.Columns = []string{SourceField}
	default:
		c.view.Columns = toggleInOut(c.view.Columns, name)
	}
	c.refreshColumnsLocked()
	c.mu.Unlock()

	return c.updateState(ctx)
}

// RefreshColumns drops columns that are no longer displayed and persists
// the result.
func (c *Controller) RefreshColumns(ctx context.Context) error {
	c.mu.Lock()
	c.refreshColumnsLocked()
	c.mu.Unlock()
	return c.updateState(ctx)
}

// refreshColumnsLocked keeps the selected columns that are displayed, in
// order, falling back to _source. c.mu must be held.
func (c *Controller) refreshColumnsLocked() {
	displayed := make(map[string]bool, len(c.fields))
	for _, f := range c.fields {
		if f.Display {
			displayed[f.Name] = true
		}
	}

	seen := make(map[string]bool, len(c.view.Columns))
	columns := make([]string, 0, len(c.view.Columns))
	for _, col := range c.view.Columns {
		if displayed[col] && !seen[col] {
			seen[col] = true
			columns = append(columns, col)
		}
	}

	if len(columns) == 0 {
		c.setDisplay(SourceField, true)
		columns = []string{SourceField}
	}
	c.view.Columns = columns
}

func (c *Controller) fieldIndex(name string) int {
	for i := range c.fields {
		if c.fields[i].Name == name {
			return i
		}
	}
	return -1
}

func (c *Controller) setDisplay(name string, display bool) {
	if i := c.fieldIndex(name); i >= 0 {
		c.fields[i].Display = display
	}
}

// RefreshFieldList drops the cached field mapping, rediscovers it and refetches.
func (c *Controller) RefreshFieldList(ctx context.Context) error {
	if err := c.source.ClearFieldCache(ctx); err != nil {
		return errors.Wrap(err, "failed to clear field cache")
	}
	if err := c.GetFields(ctx); err != nil {
		return err
	}
	return c.Fetch(ctx)
}

// GetSort returns the current sort.
func (c *Controller) GetSort() Sort {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view.Sort
}

// SetSort replaces the sort with a single key and refetches.
func (c *Controller) SetSort(ctx context.Context, field string, dir Direction) error {
	if field == "" || !dir.Valid() {
		return errors.Wrapf(ErrInvalidSort, "field %q direction %q", field, dir)
	}
	s := Sort{Field: field, Direction: dir}
	c.source.SetSort(s)
	c.mu.Lock()
	c.view.Sort = s
	c.mu.Unlock()
	return c.Fetch(ctx)
}

// ResetQuery restores the query the saved search started with and refetches.
func (c *Controller) ResetQuery(ctx context.Context) error {
	c.mu.Lock()
	c.view.Query = c.initialQuery
	c.mu.Unlock()
	return c.Fetch(ctx)
}

// SetQuery replaces the free-text query and refetches.
func (c *Controller) SetQuery(ctx context.Context, query string) error {
	c.mu.Lock()
	c.view.Query = query
	c.mu.Unlock()
	return c.Fetch(ctx)
}

// FilterQuery appends one clause per value to the query and refetches.
// An empty op means Include. Slice values add one clause per element.
func (c *Controller) FilterQuery(ctx context.Context, field string, op Operation, values ...interface{}) error {
	if op == "" {
		op = Include
	}
	c.mu.Lock()
	for _, v := range flatten(values) {
		c.view.Query += FilterClause(op, field, v)
	}
	c.mu.Unlock()
	return c.Fetch(ctx)
}

func flatten(values []interface{}) []interface{} {
	out := make([]interface{}, 0, len(values))
	for _, v := range values {
		switch list := v.(type) {
		case []interface{}:
			out = append(out, list...)
		case []string:
			for _, s := range list {
				out = append(out, s)
			}
		default:
			out = append(out, v)
		}
	}
	return out
}

// SetTitle renames the saved search. The new title becomes its id on the
// next SaveDataSource.
func (c *Controller) SetTitle(title string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.saved.Title = title
}

// Title returns the title of the saved search.
func (c *Controller) Title() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saved.Title
}

// SaveDataSource stores the saved search under its title. On success the
// location moves to the new id when it differs from the current route.
func (c *Controller) SaveDataSource(ctx context.Context) error {
	c.mu.Lock()
	c.saved.ID = c.saved.Title
	c.saved.Sync()
	snapshot := *c.saved
	c.mu.Unlock()
	id, title := snapshot.ID, snapshot.Title

	if err := c.store.Save(ctx, &snapshot); err != nil {
		err = errors.Wrapf(err, "failed to save %q", title)
		c.notifier.Error(ctx, err)
		return err
	}
	c.notifier.Info(ctx, `Saved Data Source "`+title+`"`)

	c.mu.Lock()
	changed := id != c.routeID
	if changed {
		c.routeID = id
	}
	c.mu.Unlock()

	if changed && c.navigator != nil {
		c.navigator.Navigate(RoutePath(id))
	}
	return nil
}

// ToggleConfig opens the settings panel, or closes it if it is open.
func (c *Controller) ToggleConfig() { c.togglePanel(PanelSettings) }

// ToggleTimepicker opens the time picker, or closes it if it is open.
func (c *Controller) ToggleTimepicker() { c.togglePanel(PanelTimepicker) }

func (c *Controller) togglePanel(p Panel) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.panel == p {
		c.panel = PanelNone
		return
	}
	c.panel = p
}

// SetInterval selects an index pattern interval by value.
func (c *Controller) SetInterval(value string) error {
	for _, iv := range Intervals {
		if iv.Value == value {
			c.mu.Lock()
			c.opts.Interval = iv
			c.mu.Unlock()
			return nil
		}
	}
	return errors.Newf("discover: unknown interval %q", value)
}

// SetIndex switches the index pattern and refetches.
func (c *Controller) SetIndex(ctx context.Context, index string) error {
	c.mu.Lock()
	c.opts.Index = index
	c.mu.Unlock()
	return c.Fetch(ctx)
}

// OnDefaultIndex reacts to a change of ConfigDefaultIndex.
func (c *Controller) OnDefaultIndex(ctx context.Context, val string) error {
	if val == "" {
		if c.config != nil {
			c.config.Set(ConfigDefaultIndex, DefaultIndex)
		}
		return nil
	}
	c.mu.Lock()
	adopt := c.opts.Index == ""
	if adopt {
		c.opts.Index = val
	}
	c.mu.Unlock()
	if !adopt {
		return nil
	}
	return c.Fetch(ctx)
}

// State returns a copy of the view state.
func (c *Controller) State() ViewState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view.Clone()
}

// Options returns the session options.
func (c *Controller) Options() Options {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opts
}

// Fields returns the field list, nil before the first discovery.
func (c *Controller) Fields() []Field {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fields == nil {
		return nil
	}
	return append([]Field(nil), c.fields...)
}

// Rows returns the hits of the latest delivery.
func (c *Controller) Rows() []Hit {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Hit(nil), c.rows...)
}

// Chart returns the histogram of the latest delivery, nil before the first.
func (c *Controller) Chart() *Chart {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.chart == nil {
		return nil
	}
	cp := *c.chart
	return &cp
}

// Panel returns the open configuration panel.
func (c *Controller) Panel() Panel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.panel
}

// Table renders the latest rows for the current columns.
func (c *Controller) Table() (columns []string, cells [][]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	columns = append([]string(nil), c.view.Columns...)
	cells = make([][]string, 0, len(c.rows))
	for _, hit := range c.rows {
		row := make([]string, len(columns))
		for i, col := range columns {
			row[i] = FormatCell(hit, col, c.opts.MaxSummaryLength)
		}
		cells = append(cells, row)
	}
	return columns, cells
}
