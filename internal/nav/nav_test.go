package nav

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nathsou/disk-analyzer/pkg/models"
	"github.com/nathsou/disk-analyzer/pkg/pathutil"
)

var winRoot = pathutil.Root{OS: pathutil.Windows, Path: `C:\`}

// recordingRouter is a Router without Replace.
type recordingRouter struct {
	loc   string
	calls []string
}

func (r *recordingRouter) Location() string { return r.loc }
func (r *recordingRouter) Navigate(loc string) {
	r.calls = append(r.calls, loc)
	r.loc = loc
}

func TestListingURL(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/", "/ls/"},
		{"/home/u", "/ls/home/u"},
		{"/home/u/My Files", "/ls/home/u/My%20Files"},
		{"/tmp/a#b?c", "/ls/tmp/a%23b%3Fc"},
		{"/tmp/100%", "/ls/tmp/100%25"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ListingURL(tt.path), tt.path)
	}
	assert.Equal(t, "/dir/home/u", ReportURL("/home/u"))
}

func TestParseRoute_RoundTrip(t *testing.T) {
	posix := []string{"/", "/home/u", "/home/u/My Files", "/tmp/a#b?c", "/tmp/100%", "/tmp/a%20b", "/srv/ünï"}
	for _, p := range posix {
		for _, loc := range []string{ListingURL(p), ReportURL(p)} {
			r, err := ParseRoute(loc, pathutil.POSIXRoot)
			require.NoError(t, err, loc)
			assert.Equal(t, p, r.Path, loc)
		}
	}

	windows := []string{`C:\`, `C:\Users\u`, `C:\Program Files (x86)\a#b`, `D:\data`}
	for _, p := range windows {
		r, err := ParseRoute(ListingURL(p), winRoot)
		require.NoError(t, err, p)
		assert.Equal(t, p, r.Path)
		assert.Equal(t, ViewListing, r.View)
	}
}

func TestParseRoute_Views(t *testing.T) {
	r, err := ParseRoute("/", pathutil.POSIXRoot)
	require.NoError(t, err)
	assert.Equal(t, ViewHome, r.View)

	r, err = ParseRoute("/dir/home/u/", pathutil.POSIXRoot)
	require.NoError(t, err)
	assert.Equal(t, Route{View: ViewReport, Path: "/home/u"}, r)

	r, err = ParseRoute("/ls", pathutil.POSIXRoot)
	require.NoError(t, err)
	assert.Equal(t, Route{View: ViewListing, Path: "/"}, r)

	_, err = ParseRoute("/lsx/home", pathutil.POSIXRoot)
	assert.Error(t, err)
	_, err = ParseRoute("/settings", pathutil.POSIXRoot)
	assert.Error(t, err)
	_, err = ParseRoute("/ls/bad%zzescape", pathutil.POSIXRoot)
	assert.Error(t, err)
}

func TestController_OnDirectoryChosen(t *testing.T) {
	router := &recordingRouter{loc: "/ls/home/u"}
	c := NewController(router)

	assert.True(t, c.OnDirectoryChosen("/home/u/sub dir"))
	assert.Equal(t, []string{"/ls/home/u/sub%20dir"}, router.calls)
}

func TestController_NoopOnCurrentLocation(t *testing.T) {
	router := &recordingRouter{loc: "/ls/home/u"}
	c := NewController(router)

	assert.False(t, c.OnDirectoryChosen("/home/u"))
	assert.False(t, c.OnBreadcrumb(pathutil.Segment{Name: "u", Path: "/home/u"}))
	assert.False(t, c.OnChartSegment("/home/u"))
	assert.Empty(t, router.calls)

	assert.True(t, c.OnReportDirectory("/home/u"))
	assert.False(t, c.OnReportDirectory("/home/u"))
	assert.Equal(t, []string{"/dir/home/u"}, router.calls)
}

func TestController_Breadcrumbs(t *testing.T) {
	history := NewHistory("/ls/home/u/sub")
	c := NewController(history)

	segs := pathutil.Decompose("/home/u/sub", pathutil.POSIXRoot)
	require.Len(t, segs, 4)

	assert.True(t, c.OnBreadcrumb(segs[0]))
	assert.Equal(t, "/ls/", history.Location())
	assert.True(t, c.OnBreadcrumb(segs[2]))
	assert.Equal(t, "/ls/home/u", history.Location())
}

func TestController_Home(t *testing.T) {
	info := models.OSInfo{Home: "/home/u", Root: "/", OS: "linux"}

	history := NewHistory("")
	c := NewController(history)
	assert.True(t, c.Home(info))
	assert.Equal(t, "/ls/home/u", history.Location())
	assert.Equal(t, 1, history.Len(), "the redirect replaces the home location")

	assert.False(t, c.Home(info), "only the home location redirects")

	router := &recordingRouter{loc: "/"}
	assert.True(t, NewController(router).Home(info))
	assert.Equal(t, []string{"/ls/home/u"}, router.calls)
}

func TestHistory_Back(t *testing.T) {
	h := NewHistory("/ls/")
	h.Navigate("/ls/home")
	h.Navigate("/dir/home")

	loc, ok := h.Back()
	assert.True(t, ok)
	assert.Equal(t, "/ls/home", loc)

	loc, ok = h.Back()
	assert.True(t, ok)
	assert.Equal(t, "/ls/", loc)

	loc, ok = h.Back()
	assert.False(t, ok)
	assert.Equal(t, "/ls/", loc)
}
