// Package pathutil joins, splits and encodes absolute paths of a remote
// filesystem whose conventions (POSIX or Windows) are only known at runtime.
package pathutil

import (
	"fmt"
	"net/url"
	"strings"
)

// Slash is the generic separator used by URLs and POSIX paths.
const Slash = "/"

// Segment is one breadcrumb element: a display name and the absolute path
// up to and including it.
type Segment struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// Root anchors every absolute path of a session.
type Root struct {
	OS   OS
	Path string
}

// NewRoot builds a Root from the backend's os_info values.
func NewRoot(osName, path string) (Root, error) {
	o, err := ParseOS(osName)
	if err != nil {
		return Root{}, err
	}
	if path == "" {
		return Root{}, fmt.Errorf("empty root path")
	}
	if o.Family() == FamilyPOSIX && !strings.HasPrefix(path, Slash) {
		return Root{}, fmt.Errorf("root %q is not absolute", path)
	}
	return Root{OS: o, Path: path}, nil
}

// POSIXRoot is the root of every POSIX filesystem.
var POSIXRoot = Root{OS: Linux, Path: Slash}

// Separator returns the separator of the root's OS.
func (r Root) Separator() string {
	return r.OS.Family().Separator()
}

// Label returns the canonical display form of the root: "/" or a drive
// token such as "C:".
func (r Root) Label() string {
	if r.OS.Family() == FamilyWindows {
		return strings.TrimRight(r.Path, `\/`)
	}
	return r.Path
}

// Join joins two fragments with the root's separator.
func (r Root) Join(lhs, rhs string) string {
	return JoinSep(r.Separator(), lhs, rhs)
}

// IsRoot reports whether path designates the root itself.
func (r Root) IsRoot(path string) bool {
	a := strings.TrimRight(path, `\/`)
	b := strings.TrimRight(r.Path, `\/`)
	if r.OS.Family() == FamilyWindows {
		return strings.EqualFold(a, b)
	}
	return a == b
}

func (r Root) segment() Segment {
	return Segment{Name: r.Label(), Path: r.Path}
}

// Join joins two fragments with exactly one "/" between them.
func Join(lhs, rhs string) string {
	return JoinSep(Slash, lhs, rhs)
}

// JoinSep joins two fragments with exactly one sep between them, whatever
// separators they already carry. An empty rhs returns lhs unchanged.
func JoinSep(sep, lhs, rhs string) string {
	rhs = strings.TrimLeft(rhs, sep)
	if rhs == "" {
		return lhs
	}
	return strings.TrimRight(lhs, sep) + sep + rhs
}

// Decompose splits path into breadcrumb segments, root first.
func Decompose(path string, root Root) []Segment {
	sep := root.Separator()
	tokens := split(path, root)

	segments := make([]Segment, 0, len(tokens)+1)
	rest := tokens

	if root.OS.Family() == FamilyWindows {
		// The first token is the volume; no leading empty token to discard.
		if len(tokens) == 0 {
			return []Segment{root.segment()}
		}
		vol := decode(tokens[0])
		rest = tokens[1:]
		if vol == "" && len(tokens) > 2 && tokens[1] == "" && tokens[2] != "" {
			// UNC path: \\server\share is the volume.
			vol, rest = sep+sep+decode(tokens[2]), tokens[3:]
			if len(rest) > 0 && rest[0] != "" {
				vol, rest = vol+sep+decode(rest[0]), rest[1:]
			}
		}
		if vol == "" || root.IsRoot(vol+sep) {
			segments = append(segments, root.segment())
		} else {
			segments = append(segments, Segment{Name: vol, Path: vol + sep})
		}
	} else {
		if len(tokens) > 0 && tokens[0] == "" {
			rest = tokens[1:]
		}
		segments = append(segments, root.segment())
	}

	for _, tok := range rest {
		if tok == "" {
			continue
		}
		name := decode(tok)
		prev := segments[len(segments)-1]
		segments = append(segments, Segment{Name: name, Path: root.Join(prev.Path, name)})
	}

	return segments
}

// Base returns the display name of the last segment of path.
func Base(path string, root Root) string {
	segs := Decompose(path, root)
	return segs[len(segs)-1].Name
}

// Parent returns the parent directory of path. ok is false for the root.
func Parent(path string, root Root) (parent string, ok bool) {
	segs := Decompose(path, root)
	if len(segs) < 2 {
		return segs[0].Path, false
	}
	return segs[len(segs)-2].Path, true
}

// Clean strips trailing separators, keeping the root intact.
func Clean(path string, root Root) string {
	if root.IsRoot(path) {
		return root.Path
	}
	segs := Decompose(path, root)
	return segs[len(segs)-1].Path
}

// Rel returns the name of child relative to parent, without a leading
// separator. If child is not below parent its base name is returned.
func Rel(child, parent string, root Root) string {
	sep := root.Separator()
	prefix := strings.TrimRight(parent, `\/`) + sep
	if strings.HasPrefix(child, prefix) {
		return child[len(prefix):]
	}
	return Base(child, root)
}

// Encode percent-encodes path for use inside a URL path, keeping "/"
// readable.
func Encode(path string) string {
	parts := strings.Split(path, Slash)
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, Slash)
}

// Decode reverses Encode.
func Decode(encoded string) (string, error) {
	return url.PathUnescape(encoded)
}

func split(path string, root Root) []string {
	sep := root.Separator()
	if root.OS.Family() == FamilyWindows {
		path = strings.ReplaceAll(path, Slash, sep)
	}
	if path == "" {
		return nil
	}
	return strings.Split(path, sep)
}

func decode(token string) string {
	if s, err := url.PathUnescape(token); err == nil {
		return s
	}
	return token
}
