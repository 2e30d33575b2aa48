package build

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ProtocolVersion identifies the engine's release: a four-part
// major.minor.patch.build version plus an optional prerelease tag (e.g. a
// git commit hash), mirroring the version scheme used across the rest of
// the corpus for node/daemon releases.
type ProtocolVersion struct {
	Version    uint32  // major<<24 | minor<<16 | patch<<8 | build
	Prerelease [8]byte // optional prerelease tag, zero-padded
}

// InvalidVersionError indicates a protocol version string is invalid.
type InvalidVersionError string

// Error implements the error interface for InvalidVersionError.
func (e InvalidVersionError) Error() string {
	if len(e) == 0 {
		return "invalid version: <nil>"
	}
	return "invalid version: " + string(e)
}

var nilPrerelease = [8]byte{}

const versionRe = `^v?([0-9]{1,3})(?:\.([0-9]{1,3}))?(?:\.([0-9]{1,3}))?(?:\.([0-9]{1,3}))?(?:-(.*))?$`

var versionReg = regexp.MustCompile(versionRe)

func parsePart(raw string) (uint8, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || n > 255 {
		return 0, InvalidVersionError(raw)
	}
	return uint8(n), nil
}

// Parse attempts to create a ProtocolVersion from a given string.
func Parse(raw string) (ProtocolVersion, error) {
	parts := versionReg.FindStringSubmatch(raw)
	if parts == nil {
		return ProtocolVersion{}, InvalidVersionError(raw)
	}
	major, err := parsePart(parts[1])
	if err != nil {
		return ProtocolVersion{}, InvalidVersionError(raw)
	}
	minor, err := parsePart(parts[2])
	if err != nil {
		return ProtocolVersion{}, InvalidVersionError(raw)
	}
	patch, err := parsePart(parts[3])
	if err != nil {
		return ProtocolVersion{}, InvalidVersionError(raw)
	}
	build, err := parsePart(parts[4])
	if err != nil {
		return ProtocolVersion{}, InvalidVersionError(raw)
	}
	return NewPrereleaseVersion(major, minor, patch, build, parts[5]), nil
}

// MustParse creates a ProtocolVersion from a given string, panicking if the
// string is invalid.
func MustParse(raw string) ProtocolVersion {
	v, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return v
}

// NewVersion creates a new ProtocolVersion with no prerelease tag.
func NewVersion(major, minor, patch, build uint8) ProtocolVersion {
	return NewPrereleaseVersion(major, minor, patch, build, "")
}

// NewPrereleaseVersion creates a new ProtocolVersion carrying a prerelease tag.
func NewPrereleaseVersion(major, minor, patch, build uint8, prerelease string) ProtocolVersion {
	var v ProtocolVersion
	v.Version = uint32(major)<<24 | uint32(minor)<<16 | uint32(patch)<<8 | uint32(build)
	copy(v.Prerelease[:], prerelease)
	return v
}

// Compare returns an integer comparing this version with another: -1 if pv <
// other, 1 if pv > other, 0 if equal. A prerelease version compares lower
// than the corresponding release version; two differing prereleases of the
// same numeric version compare equal (the source does not order prereleases
// against each other).
func (pv ProtocolVersion) Compare(other ProtocolVersion) int {
	if pv.Version < other.Version {
		return -1
	} else if pv.Version > other.Version {
		return 1
	}
	isAPrerelease := pv.Prerelease != nilPrerelease
	isBPrerelease := other.Prerelease != nilPrerelease
	if !isAPrerelease && isBPrerelease {
		return 1
	} else if isAPrerelease && !isBPrerelease {
		return -1
	}
	return 0
}

// String returns the dotted-decimal representation, omitting the build
// component when it is zero.
func (pv ProtocolVersion) String() string {
	major := (pv.Version >> 24) & 0xFF
	minor := (pv.Version >> 16) & 0xFF
	patch := (pv.Version >> 8) & 0xFF
	build := pv.Version & 0xFF

	var str string
	if build != 0 {
		str = fmt.Sprintf("%d.%d.%d.%d", major, minor, patch, build)
	} else {
		str = fmt.Sprintf("%d.%d.%d", major, minor, patch)
	}
	if pv.Prerelease != nilPrerelease {
		str += "-" + strings.TrimRight(string(pv.Prerelease[:]), "\x00")
	}
	return str
}

// MarshalJSON implements json.Marshaler.
func (pv ProtocolVersion) MarshalJSON() ([]byte, error) {
	return json.Marshal(pv.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (pv *ProtocolVersion) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return InvalidVersionError(string(b))
	}
	v, err := Parse(raw)
	if err != nil {
		return err
	}
	*pv = v
	return nil
}

// EncodedVersionLength is the static length of an encoded ProtocolVersion.
const EncodedVersionLength = 12 // sizeof(uint32) + sizeof([8]byte)

var (
	// rawVersion generates the engine's reported protocol version.
	rawVersion = "1.0.0"
	// Version is the current version of the engine.
	Version ProtocolVersion
)

func init() {
	Version = MustParse(rawVersion)
}
