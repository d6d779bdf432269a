package osver

// #cgo CFLAGS: -x objective-c
// #cgo LDFLAGS: -framework Foundation
// #import <Foundation/Foundation.h>
//
// void getSystemVersion(int *major, int *minor, int *patch) {
//     NSAutoreleasePool *pool = [[NSAutoreleasePool alloc] init];
//     NSOperatingSystemVersion version = [[NSProcessInfo processInfo] operatingSystemVersion];
//     *major = (int)version.majorVersion;
//     *minor = (int)version.minorVersion;
//     *patch = (int)version.patchVersion;
//     [pool release];
// }
import "C"

import (
	"fmt"
	"sync"
)

var (
	cachedVersion Version
	initOnce      sync.Once
)

// Version represents a macOS version with major, minor, and patch components.
type Version struct {
	Major int
	Minor int
	Patch int
}

// String returns the string representation of a Version.
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Get returns the current macOS system version.
// The version is retrieved once and cached for subsequent calls.
func Get() Version {
	initOnce.Do(func() {
		var major, minor, patch C.int
		C.getSystemVersion(&major, &minor, &patch)
		cachedVersion = Version{
			Major: int(major),
			Minor: int(minor),
			Patch: int(patch),
		}
	})
	return cachedVersion
}

// Compare compares two versions and returns -1, 0 or 1.
func (v Version) Compare(other Version) int {
	if v.Major != other.Major {
		if v.Major < other.Major {
			return -1
		}
		return 1
	}

	if v.Minor != other.Minor {
		if v.Minor < other.Minor {
			return -1
		}
		return 1
	}

	if v.Patch != other.Patch {
		if v.Patch < other.Patch {
			return -1
		}
		return 1
	}

	return 0
}

// AtLeast returns true if this version is greater than or equal to the specified version.
func (v Version) AtLeast(other Version) bool {
	return v.Compare(other) >= 0
}

// IsAtLeast checks if the current system version is at least the specified version.
func IsAtLeast(major, minor, patch int) bool {
	current := Get()
	required := Version{Major: major, Minor: minor, Patch: patch}
	return current.AtLeast(required)
}
