package pathutil

import (
	"fmt"
	"strings"
)

// OS identifies the operating system of the machine being explored.
// Values match the backend's os_info "os" field.
type OS string

const (
	Linux     OS = "linux"
	MacOS     OS = "macos"
	Windows   OS = "windows"
	IOS       OS = "ios"
	Android   OS = "android"
	FreeBSD   OS = "freebsd"
	DragonFly OS = "dragonfly"
	NetBSD    OS = "netbsd"
	OpenBSD   OS = "openbsd"
	Solaris   OS = "solaris"
	Illumos   OS = "illumos"
)

// Family groups operating systems by path convention.
type Family int

const (
	FamilyPOSIX Family = iota
	FamilyWindows
)

var families = map[OS]Family{
	Linux:     FamilyPOSIX,
	MacOS:     FamilyPOSIX,
	Windows:   FamilyWindows,
	IOS:       FamilyPOSIX,
	Android:   FamilyPOSIX,
	FreeBSD:   FamilyPOSIX,
	DragonFly: FamilyPOSIX,
	NetBSD:    FamilyPOSIX,
	OpenBSD:   FamilyPOSIX,
	Solaris:   FamilyPOSIX,
	Illumos:   FamilyPOSIX,
}

// ParseOS validates an OS identifier.
func ParseOS(s string) (OS, error) {
	o := OS(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := families[o]; !ok {
		return "", fmt.Errorf("unknown os %q", s)
	}
	return o, nil
}

// Family returns the path convention of o.
func (o OS) Family() Family {
	return families[o]
}

// Separator returns the path separator of the family.
func (f Family) Separator() string {
	if f == FamilyWindows {
		return `\`
	}
	return Slash
}

func (f Family) String() string {
	if f == FamilyWindows {
		return "windows"
	}
	return "posix"
}
