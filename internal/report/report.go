// Package report renders explorer results for the command line as tables,
// JSON or YAML.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"

	"github.com/nathsou/disk-analyzer/internal/repartition"
	"github.com/nathsou/disk-analyzer/pkg/models"
	"github.com/nathsou/disk-analyzer/pkg/pathutil"
	"github.com/nathsou/disk-analyzer/pkg/query"
	"github.com/nathsou/disk-analyzer/pkg/sizefmt"
)

// Formats
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// DefaultBarWidth is the width of repartition bars in tables.
const DefaultBarWidth = 30

// Renderer writes results to w in one format.
type Renderer struct {
	w        io.Writer
	format   string
	sizes    sizefmt.Formatter
	printer  *message.Printer
	BarWidth int
}

// New creates a renderer. Unknown formats render as tables.
func New(w io.Writer, format string, sizes sizefmt.Formatter) *Renderer {
	return &Renderer{
		w:        w,
		format:   format,
		sizes:    sizes,
		printer:  message.NewPrinter(language.English),
		BarWidth: DefaultBarWidth,
	}
}

// Listing is the document form of a directory listing.
type Listing struct {
	Path        string         `json:"path" yaml:"path"`
	Size        int64          `json:"size" yaml:"size"`
	Directories []models.Entry `json:"directories" yaml:"directories"`
	Files       []models.Entry `json:"files" yaml:"files"`
}

// Info describes the explored machine and the server answering for it.
type Info struct {
	models.OSInfo `yaml:",inline"`
	Server        string     `json:"server" yaml:"server"`
	Online        bool       `json:"online" yaml:"online"`
	LastSeen      *time.Time `json:"last_seen,omitempty" yaml:"last_seen,omitempty"`
}

// Report combines a listing with sizes, the subtree summary and the
// repartition of the listing's directories.
type Report struct {
	Path        string                `json:"path" yaml:"path"`
	Listing     Listing               `json:"listing" yaml:"listing"`
	Summary     models.SubtreeSummary `json:"summary" yaml:"summary"`
	Repartition []repartition.Slice   `json:"repartition" yaml:"repartition"`
}

// SnapshotStats is the document form of the snapshot store state.
type SnapshotStats struct {
	Dir     string                 `json:"dir" yaml:"dir"`
	Size    int64                  `json:"size" yaml:"size"`
	MaxSize int64                  `json:"max_size" yaml:"max_size"`
	Count   int                    `json:"count" yaml:"count"`
	Entries []models.SnapshotEntry `json:"entries" yaml:"entries"`
}

// NewListing converts a directory snapshot.
func NewListing(snap models.DirectorySnapshot) Listing {
	return Listing{
		Path:        snap.Path,
		Size:        snap.Size,
		Directories: snap.Directories,
		Files:       snap.Files,
	}
}

func (r *Renderer) encode(v any) (bool, error) {
	switch r.format {
	case FormatJSON:
		enc := json.NewEncoder(r.w)
		enc.SetIndent("", "  ")
		return true, enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(r.w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return true, err
		}
		return true, enc.Close()
	}
	return false, nil
}

// OSInfo renders the descriptor of the explored machine.
func (r *Renderer) OSInfo(info Info, root pathutil.Root) error {
	if done, err := r.encode(info); done {
		return err
	}
	status := "offline"
	if info.Online {
		status = "online"
	}
	var lastSeen time.Time
	if info.LastSeen != nil {
		lastSeen = *info.LastSeen
	}
	w := tabwriter.NewWriter(r.w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Server:\t%s\n", info.Server)
	fmt.Fprintf(w, "Status:\t%s (last answered: %s)\n", status, formatTime(lastSeen))
	fmt.Fprintf(w, "OS:\t%s (%s)\n", info.OS, root.OS.Family())
	fmt.Fprintf(w, "Root:\t%s\n", root.Label())
	fmt.Fprintf(w, "Home:\t%s\n", info.Home)
	return w.Flush()
}

// Listing renders the immediate children of a directory, directories
// first.
func (r *Renderer) Listing(snap models.DirectorySnapshot, root pathutil.Root) error {
	doc := NewListing(snap)
	if done, err := r.encode(doc); done {
		return err
	}

	fmt.Fprintln(r.w, breadcrumb(snap.Path, root))
	fmt.Fprintf(r.w, "%s\n\n", r.sizes.Format(snap.Size))

	w := tabwriter.NewWriter(r.w, 0, 0, 2, ' ', 0)
	r.entries(w, "DIRECTORIES", snap.Path, snap.Directories, root, true)
	fmt.Fprintln(w)
	r.entries(w, "FILES", snap.Path, snap.Files, root, false)
	return w.Flush()
}

// Summary renders the largest entries of a subtree.
func (r *Renderer) Summary(sum models.SubtreeSummary, root pathutil.Root) error {
	if done, err := r.encode(sum); done {
		return err
	}
	r.summaryHeader(sum, root)

	w := tabwriter.NewWriter(r.w, 0, 0, 2, ' ', 0)
	r.entries(w, "BIGGEST DIRECTORIES", sum.Path, sum.BiggestDirs, root, true)
	fmt.Fprintln(w)
	r.entries(w, "BIGGEST FILES", sum.Path, sum.BiggestFiles, root, false)
	return w.Flush()
}

func (r *Renderer) summaryHeader(sum models.SubtreeSummary, root pathutil.Root) {
	fmt.Fprintln(r.w, breadcrumb(sum.Path, root))
	fmt.Fprintln(r.w, r.printer.Sprintf("%d files (%s), scanned in %s",
		sum.FilesCount, r.sizes.Format(sum.Size), sum.Duration.Std().Round(time.Millisecond)))
	fmt.Fprintln(r.w)
}

// Report renders a listing, its summary and the repartition chart.
func (r *Renderer) Report(rep Report, root pathutil.Root) error {
	if done, err := r.encode(rep); done {
		return err
	}
	r.summaryHeader(rep.Summary, root)

	w := tabwriter.NewWriter(r.w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "REPARTITION\tSIZE\tSHARE\t")
	bars := repartition.Bars(rep.Repartition, r.BarWidth)
	for i, s := range rep.Repartition {
		fmt.Fprintf(w, "%s\t%s\t%5.1f%%\t%s\n",
			s.Label, r.sizes.Format(s.Value), s.Share*100, bar(bars[i], r.BarWidth))
	}
	fmt.Fprintln(w)
	r.entries(w, "FILES", rep.Listing.Path, rep.Listing.Files, root, false)
	fmt.Fprintln(w)
	r.entries(w, "BIGGEST FILES", rep.Summary.Path, rep.Summary.BiggestFiles, root, false)
	return w.Flush()
}

// Snapshots renders the state of the snapshot store.
func (r *Renderer) Snapshots(stats SnapshotStats) error {
	if done, err := r.encode(stats); done {
		return err
	}

	fmt.Fprintln(r.w, "Snapshot Store")
	fmt.Fprintln(r.w, "--------------")
	fmt.Fprintf(r.w, "Directory:    %s\n", stats.Dir)
	fmt.Fprintf(r.w, "Snapshots:    %s\n", r.printer.Sprintf("%d", stats.Count))
	fmt.Fprintf(r.w, "Used:         %s\n", r.sizes.Format(stats.Size))
	if stats.MaxSize > 0 {
		fmt.Fprintf(r.w, "Max:          %s\n", r.sizes.Format(stats.MaxSize))
		fmt.Fprintf(r.w, "Usage:        %.1f%%\n", float64(stats.Size)/float64(stats.MaxSize)*100)
	}
	if len(stats.Entries) == 0 {
		return nil
	}

	fmt.Fprintln(r.w)
	w := tabwriter.NewWriter(r.w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "QUERY\tSIZE\tSTORED\tLAST ACCESS")
	fmt.Fprintln(w, "-----\t----\t------\t-----------")
	for _, e := range stats.Entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			query.Key(e.Key).String(),
			r.sizes.Format(e.Size),
			formatTime(e.StoredAt),
			formatTime(e.LastAccess))
	}
	return w.Flush()
}

func (r *Renderer) entries(w io.Writer, title, parent string, entries []models.Entry, root pathutil.Root, dirs bool) {
	fmt.Fprintf(w, "%s\tSIZE\t\n", title)
	if len(entries) == 0 {
		fmt.Fprintln(w, "(none)\t\t")
		return
	}
	for _, e := range entries {
		name := pathutil.Rel(e.Path, parent, root)
		if dirs {
			name += root.Separator()
		}
		fmt.Fprintf(w, "%s\t%s\t\n", name, r.sizes.FormatPtr(e.Size))
	}
}

func breadcrumb(path string, root pathutil.Root) string {
	segs := pathutil.Decompose(path, root)
	names := make([]string, len(segs))
	for i, s := range segs {
		names[i] = s.Name
	}
	return strings.Join(names, " > ")
}

func bar(n, width int) string {
	width = max(width, 0)
	n = min(max(n, 0), width)
	return strings.Repeat("█", n) + strings.Repeat("░", width-n)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
