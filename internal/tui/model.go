// Package tui is the terminal browser: a bubbletea program that walks the
// remote filesystem through the explorer and the navigation controller.
package tui

import (
	"context"
	"fmt"
	"strconv"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/nathsou/disk-analyzer/internal/explorer"
	"github.com/nathsou/disk-analyzer/internal/nav"
	"github.com/nathsou/disk-analyzer/internal/repartition"
	"github.com/nathsou/disk-analyzer/pkg/models"
	"github.com/nathsou/disk-analyzer/pkg/pathutil"
	"github.com/nathsou/disk-analyzer/pkg/query"
	"github.com/nathsou/disk-analyzer/pkg/sizefmt"
)

// Options configures the browser.
type Options struct {
	Explorer *explorer.Explorer
	Sizes    sizefmt.Formatter
	Limits   explorer.Limits
	// ShowDirSizes starts the listing with directory sizes.
	ShowDirSizes bool
	// Start is the first directory listed. Empty redirects to the home
	// directory of the explored machine.
	Start string
	// Online reports whether the server answered the last request.
	Online func() bool
	Logger *zap.Logger
}

type sessionMsg struct {
	info models.OSInfo
	root pathutil.Root
	err  error
}

// loadedMsg is the result of a load. key is the query it was issued for.
type loadedMsg struct {
	key   query.Key
	value any
	err   error
}

type row struct {
	entry models.Entry
	dir   bool
}

// Model is the bubbletea model of the browser.
type Model struct {
	ctx       context.Context
	ex        *explorer.Explorer
	sizes     sizefmt.Formatter
	limits    explorer.Limits
	showSizes bool
	start     string
	online    func() bool
	log       *zap.Logger

	history *nav.History
	ctrl    *nav.Controller

	ready bool
	info  models.OSInfo
	root  pathutil.Root

	route   nav.Route
	pending query.Key // key of the result on screen or being waited for
	listing *models.DirectorySnapshot
	summary *models.SubtreeSummary
	slices  []repartition.Slice
	rows    []row
	loading bool
	err     error
	status  string

	tbl    table.Model
	spin   spinner.Model
	width  int
	height int
}

// New creates the browser model.
func New(ctx context.Context, opts Options) *Model {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	t := table.New(table.WithColumns(columns(80)), table.WithFocused(true))
	t.SetStyles(tableStyles())

	history := nav.NewHistory(nav.HomeLocation)
	return &Model{
		ctx:       ctx,
		ex:        opts.Explorer,
		sizes:     opts.Sizes,
		limits:    opts.Limits,
		showSizes: opts.ShowDirSizes,
		start:     opts.Start,
		online:    opts.Online,
		log:       opts.Logger,
		history:   history,
		ctrl:      nav.NewController(history),
		loading:   true,
		status:    "Connecting ...",
		tbl:       t,
		spin:      sp,
	}
}

// Location returns the current route location.
func (m *Model) Location() string {
	return m.history.Location()
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, m.loadSession())
}

func (m *Model) loadSession() tea.Cmd {
	ex, ctx := m.ex, m.ctx
	return func() tea.Msg {
		root, info, err := ex.Session.Root(ctx)
		return sessionMsg{info: info, root: root, err: err}
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case sessionMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			m.log.Warn("os info failed", zap.Error(msg.err))
			return m, nil
		}
		m.ready = true
		m.info, m.root = msg.info, msg.root
		if m.start != "" {
			m.history.Replace(nav.ListingURL(m.start))
		} else {
			m.ctrl.Home(m.info)
		}
		return m, m.sync()

	case loadedMsg:
		if msg.key != m.pending {
			m.log.Debug("dropping stale result", zap.Stringer("key", msg.key))
			return m, nil
		}
		m.commit(msg.value, msg.err)
		return m, nil

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.tbl.SetColumns(columns(m.width))
		m.tbl.SetHeight(max(3, m.height-m.chrome()))
		return m, nil

	case tea.KeyMsg:
		if cmd, handled := m.handleKey(msg); handled {
			return m, cmd
		}
		var cmd tea.Cmd
		m.tbl, cmd = m.tbl.Update(msg)
		return m, cmd

	default:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch key := msg.String(); key {
	case "q", "ctrl+c":
		return tea.Quit, true
	}
	if !m.ready {
		return nil, false
	}

	switch key := msg.String(); key {
	case "enter", "right", "l":
		r, ok := m.selected()
		if !ok || !r.dir {
			return nil, true
		}
		if m.route.View == nav.ViewReport {
			return m.after(m.ctrl.OnChartSegment(r.entry.Path)), true
		}
		return m.after(m.ctrl.OnDirectoryChosen(r.entry.Path)), true

	case "backspace", "left", "h":
		parent, ok := pathutil.Parent(m.route.Path, m.root)
		if !ok {
			return nil, true
		}
		if m.route.View == nav.ViewReport {
			return m.after(m.ctrl.OnReportDirectory(parent)), true
		}
		return m.after(m.ctrl.OnDirectoryChosen(parent)), true

	case "esc", "b":
		_, ok := m.history.Back()
		return m.after(ok), true

	case "tab":
		if m.route.View == nav.ViewReport {
			return m.after(m.ctrl.OnDirectoryChosen(m.route.Path)), true
		}
		return m.after(m.ctrl.OnReportDirectory(m.route.Path)), true

	case "s":
		m.showSizes = !m.showSizes
		if m.route.View != nav.ViewListing {
			return nil, true
		}
		return m.sync(), true

	case "r":
		n := m.ex.Refresh(m.route.Path)
		m.log.Debug("refresh", zap.String("path", m.route.Path), zap.Int("keys", n))
		return m.sync(), true

	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		i, _ := strconv.Atoi(key)
		segs := pathutil.Decompose(m.route.Path, m.root)
		if i > len(segs) {
			return nil, true
		}
		return m.after(m.ctrl.OnBreadcrumb(segs[i-1])), true
	}
	return nil, false
}

// after syncs the view when a navigation happened.
func (m *Model) after(navigated bool) tea.Cmd {
	if !navigated {
		return nil
	}
	return m.sync()
}

// sync points the view at the current location and requests its data.
func (m *Model) sync() tea.Cmd {
	route, err := nav.ParseRoute(m.history.Location(), m.root)
	if err != nil {
		m.pending = ""
		m.err = err
		m.loading = false
		return nil
	}
	if route.View == nav.ViewHome {
		m.ctrl.Home(m.info)
		return m.sync()
	}
	m.route = route
	m.tbl.SetCursor(0)

	var (
		snap query.Snapshot
		wait func(ctx context.Context) (any, error)
	)
	switch route.View {
	case nav.ViewReport:
		m.pending = m.ex.Summaries.Key(route.Path, m.limits)
		snap = m.ex.Summaries.Query(m.ctx, route.Path, m.limits)
		wait = func(ctx context.Context) (any, error) {
			return m.ex.Summaries.Summarize(ctx, route.Path, m.limits)
		}
	default:
		m.pending = m.ex.Directories.Key(route.Path, m.showSizes)
		snap = m.ex.Directories.Query(m.ctx, route.Path, m.showSizes)
		sizes := m.showSizes
		wait = func(ctx context.Context) (any, error) {
			return m.ex.Directories.List(ctx, route.Path, sizes)
		}
	}

	switch {
	case snap.Status == query.StatusSuccess:
		m.commit(snap.Value, nil)
	case snap.Status == query.StatusError && !snap.Fetching:
		m.commit(nil, snap.Err)
	default:
		m.err = nil
		m.listing, m.summary, m.slices = nil, nil, nil
		m.setRows(nil)
	}
	if !snap.Fetching {
		return nil
	}

	m.loading = true
	m.status = fmt.Sprintf("Loading %s ...", route.Path)
	key, ctx := m.pending, m.ctx
	return tea.Batch(m.spin.Tick, func() tea.Msg {
		v, err := wait(ctx)
		return loadedMsg{key: key, value: v, err: err}
	})
}

// commit puts a result for the pending key on screen.
func (m *Model) commit(value any, err error) {
	m.loading = false
	m.status = ""
	if err != nil {
		m.err = err
		m.listing, m.summary, m.slices = nil, nil, nil
		m.setRows(nil)
		return
	}
	m.err = nil

	switch v := value.(type) {
	case models.DirectorySnapshot:
		m.listing, m.summary = &v, nil
		rows := make([]row, 0, len(v.Directories)+len(v.Files))
		for _, e := range v.Directories {
			rows = append(rows, row{entry: e, dir: true})
		}
		for _, e := range v.Files {
			rows = append(rows, row{entry: e})
		}
		m.slices = nil
		if m.showSizes {
			m.slices = repartition.Slices(v.Directories, m.root)
		}
		m.setRows(rows)

	case models.SubtreeSummary:
		m.summary, m.listing = &v, nil
		rows := make([]row, 0, len(v.BiggestDirs)+len(v.BiggestFiles))
		for _, e := range v.BiggestDirs {
			rows = append(rows, row{entry: e, dir: true})
		}
		for _, e := range v.BiggestFiles {
			rows = append(rows, row{entry: e})
		}
		m.slices = repartition.Slices(v.BiggestDirs, m.root)
		m.setRows(rows)
	}
}

func (m *Model) selected() (row, bool) {
	i := m.tbl.Cursor()
	if i < 0 || i >= len(m.rows) {
		return row{}, false
	}
	return m.rows[i], true
}
