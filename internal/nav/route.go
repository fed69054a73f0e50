// Package nav maps user interaction onto locations of the explorer and
// parses those locations back into views.
package nav

import (
	"fmt"
	"strings"

	"github.com/nathsou/disk-analyzer/pkg/pathutil"
)

// View is the screen a location designates.
type View int

const (
	ViewHome View = iota
	ViewListing
	ViewReport
)

func (v View) String() string {
	switch v {
	case ViewListing:
		return "listing"
	case ViewReport:
		return "report"
	default:
		return "home"
	}
}

// Location prefixes.
const (
	HomeLocation  = "/"
	ListingPrefix = "/ls"
	ReportPrefix  = "/dir"
)

// Route is a parsed location.
type Route struct {
	View View
	Path string
}

// ListingURL returns the location of the directory browser for path.
func ListingURL(path string) string {
	return location(ListingPrefix, path)
}

// ReportURL returns the location of the largest-entries report for path.
func ReportURL(path string) string {
	return location(ReportPrefix, path)
}

// location joins prefix and the encoded path. Windows paths do not start
// with a separator, so one is always inserted.
func location(prefix, path string) string {
	return prefix + pathutil.Slash + strings.TrimPrefix(pathutil.Encode(path), pathutil.Slash)
}

// ParseRoute parses a location produced by ListingURL or ReportURL.
func ParseRoute(loc string, root pathutil.Root) (Route, error) {
	if loc == "" || loc == HomeLocation {
		return Route{View: ViewHome}, nil
	}

	var view View
	var rest string
	switch {
	case hasPrefix(loc, ListingPrefix):
		view, rest = ViewListing, loc[len(ListingPrefix):]
	case hasPrefix(loc, ReportPrefix):
		view, rest = ViewReport, loc[len(ReportPrefix):]
	default:
		return Route{}, fmt.Errorf("unknown location %q", loc)
	}

	rest = strings.TrimPrefix(rest, pathutil.Slash)
	decoded, err := pathutil.Decode(rest)
	if err != nil {
		return Route{}, fmt.Errorf("decode location %q: %w", loc, err)
	}

	var path string
	if root.OS.Family() == pathutil.FamilyWindows {
		path = decoded
	} else {
		path = pathutil.Slash + decoded
	}
	if path == "" || root.IsRoot(path) {
		path = root.Path
	} else {
		path = strings.TrimRight(path, `\/`)
	}
	return Route{View: view, Path: path}, nil
}

// hasPrefix matches prefix as a whole location segment.
func hasPrefix(loc, prefix string) bool {
	if !strings.HasPrefix(loc, prefix) {
		return false
	}
	return len(loc) == len(prefix) || loc[len(prefix)] == '/'
}
