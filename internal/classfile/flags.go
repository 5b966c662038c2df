package classfile

import (
	"strconv"
	"strings"
)

// AccessFlags is the access_flags bit set of a class or inner class entry.
type AccessFlags uint16

const (
	AccPublic     AccessFlags = 0x0001
	AccPrivate    AccessFlags = 0x0002
	AccProtected  AccessFlags = 0x0004
	AccStatic     AccessFlags = 0x0008
	AccFinal      AccessFlags = 0x0010
	AccSuper      AccessFlags = 0x0020
	AccInterface  AccessFlags = 0x0200
	AccAbstract   AccessFlags = 0x0400
	AccSynthetic  AccessFlags = 0x1000
	AccAnnotation AccessFlags = 0x2000
	AccEnum       AccessFlags = 0x4000
	AccModule     AccessFlags = 0x8000
)

// Has reports whether every bit of f is set.
func (a AccessFlags) Has(f AccessFlags) bool { return a&f == f }

var flagNames = []struct {
	flag AccessFlags
	name string
}{
	{AccPublic, "public"},
	{AccPrivate, "private"},
	{AccProtected, "protected"},
	{AccStatic, "static"},
	{AccFinal, "final"},
	{AccInterface, "interface"},
	{AccAbstract, "abstract"},
	{AccSynthetic, "synthetic"},
	{AccAnnotation, "annotation"},
	{AccEnum, "enum"},
	{AccModule, "module"},
}

// String renders the flags as space-separated modifier keywords, e.g.
// "public abstract". ACC_SUPER is omitted.
func (a AccessFlags) String() string {
	var parts []string
	for _, fn := range flagNames {
		if a.Has(fn.flag) {
			parts = append(parts, fn.name)
		}
	}
	return strings.Join(parts, " ")
}

// JavaRelease maps a class-file major version to the Java release that
// introduced it ("1.1" for 45 through "8" for 52 and plain numbers after).
func JavaRelease(major uint16) string {
	switch {
	case major < 45:
		return "unknown"
	case major <= 48:
		return "1." + strconv.Itoa(int(major)-44)
	default:
		return strconv.Itoa(int(major) - 44)
	}
}
