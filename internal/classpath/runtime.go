package classpath

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
)

// jmodMagic is the header in front of the zip data of a jmod file.
const jmodMagic = "JM\x01\x00"

// jmodPrefix is the directory holding class files inside a jmod.
const jmodPrefix = "classes/"

// ErrNoRuntime is returned by FindRuntime when javaHome holds neither jmod
// files nor an rt.jar.
var ErrNoRuntime = errors.New("no Java runtime class archives found")

// FindRuntime returns entries for the platform classes of the JDK installed
// at javaHome: every jmods/*.jmod (JDK 9 and later) or else the rt.jar of a
// Java 8 layout. Modules are returned in name order.
func FindRuntime(javaHome string) ([]Entry, error) {
	home, err := filepath.Abs(javaHome)
	if err != nil {
		return nil, fmt.Errorf("resolving JAVA_HOME %s: %w", javaHome, err)
	}

	jmods, err := filepath.Glob(filepath.Join(home, "jmods", "*.jmod"))
	if err != nil {
		return nil, err
	}
	if len(jmods) > 0 {
		slices.Sort(jmods)
		entries := make([]Entry, 0, len(jmods))
		for _, p := range jmods {
			entries = append(entries, runtimeEntry(p, jmodPrefix))
		}
		return entries, nil
	}

	for _, rt := range []string{
		filepath.Join(home, "jre", "lib", "rt.jar"),
		filepath.Join(home, "lib", "rt.jar"),
	} {
		if info, err := os.Stat(rt); err == nil && !info.IsDir() {
			return []Entry{runtimeEntry(rt, "")}, nil
		}
	}
	return nil, fmt.Errorf("%s: %w", home, ErrNoRuntime)
}

func runtimeEntry(path, prefix string) Entry {
	// the path is absolute and extension-checked, so newEntry cannot fail
	e, _ := newEntry(path, []string{filepath.Ext(path)})
	e.Locator += prefix
	e.Prefix = prefix
	e.Runtime = true
	return e
}
