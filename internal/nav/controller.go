package nav

import (
	"github.com/nathsou/disk-analyzer/pkg/models"
	"github.com/nathsou/disk-analyzer/pkg/pathutil"
)

// Controller translates user interaction into router locations. Every
// method reports whether a navigation was issued: asking for the current
// location is a no-op.
type Controller struct {
	router Router
}

// NewController creates a controller driving router.
func NewController(router Router) *Controller {
	return &Controller{router: router}
}

// OnDirectoryChosen opens the listing of target.
func (c *Controller) OnDirectoryChosen(target string) bool {
	return c.navigate(ListingURL(target))
}

// OnReportDirectory opens the largest-entries report of target.
func (c *Controller) OnReportDirectory(target string) bool {
	return c.navigate(ReportURL(target))
}

// OnBreadcrumb opens the listing of a breadcrumb segment.
func (c *Controller) OnBreadcrumb(seg pathutil.Segment) bool {
	return c.navigate(ListingURL(seg.Path))
}

// OnChartSegment opens the listing of the directory behind a chart slice,
// identified by its full path.
func (c *Controller) OnChartSegment(id string) bool {
	return c.navigate(ListingURL(id))
}

// Home redirects the home location to the listing of the user's home
// directory. It does nothing on any other location.
func (c *Controller) Home(info models.OSInfo) bool {
	if loc := c.router.Location(); loc != "" && loc != HomeLocation {
		return false
	}
	target := ListingURL(info.Home)
	if r, ok := c.router.(interface{ Replace(string) }); ok {
		r.Replace(target)
		return true
	}
	return c.navigate(target)
}

func (c *Controller) navigate(location string) bool {
	if c.router.Location() == location {
		return false
	}
	c.router.Navigate(location)
	return true
}
