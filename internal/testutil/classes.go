package testutil

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/jvmtools/svcgen/internal/classfile"
	"github.com/klauspost/compress/zip"
)

// Object is the implicit superclass of every class.
const Object = "java.lang.Object"

// Class describes a class file to synthesise.
type Class struct {
	Name       string
	Super      string // defaults to java.lang.Object; use NoSuper for none
	Interfaces []string
	Access     classfile.AccessFlags
	Major      uint16 // defaults to 52 (Java 8)
	// Inner lists InnerClasses entries. An entry whose Name equals the
	// class's own Name sets its source-level modifiers.
	Inner []classfile.InnerClass
	// Padding adds a field, a method and a long constant so decoders must
	// skip members and two-slot constants.
	Padding bool
}

// NoSuper marks a class without a superclass (java.lang.Object itself or a
// module descriptor).
const NoSuper = "-"

// Public returns a public concrete class extending super (or Object when
// super is empty) and implementing ifaces.
func Public(name, super string, ifaces ...string) Class {
	return Class{Name: name, Super: super, Interfaces: ifaces, Access: classfile.AccPublic | classfile.AccSuper}
}

// Interface returns a public interface extending ifaces.
func Interface(name string, ifaces ...string) Class {
	return Class{
		Name:       name,
		Interfaces: ifaces,
		Access:     classfile.AccPublic | classfile.AccInterface | classfile.AccAbstract,
	}
}

// Abstract returns a public abstract class.
func Abstract(name, super string, ifaces ...string) Class {
	return Class{Name: name, Super: super, Interfaces: ifaces, Access: classfile.AccPublic | classfile.AccSuper | classfile.AccAbstract}
}

// Anonymous returns an anonymous class such as "com.foo.Outer$1". The
// compiler marks its top-level flags as package-private and records an
// InnerClasses entry without a simple name.
func Anonymous(name, super string, ifaces ...string) Class {
	return Class{
		Name:       name,
		Super:      super,
		Interfaces: ifaces,
		Access:     classfile.AccSuper,
		Inner:      []classfile.InnerClass{{Name: name}},
	}
}

// Nested returns a member class of outer with the given source modifiers.
// As javac does, private and protected members are emitted with widened
// top-level flags, so only the InnerClasses entry carries the truth.
func Nested(outer, simple string, access classfile.AccessFlags, super string, ifaces ...string) Class {
	name := outer + "$" + simple
	top := access &^ (classfile.AccPrivate | classfile.AccProtected | classfile.AccStatic)
	if access.Has(classfile.AccProtected) {
		top |= classfile.AccPublic
	}
	return Class{
		Name:       name,
		Super:      super,
		Interfaces: ifaces,
		Access:     top | classfile.AccSuper,
		Inner:      []classfile.InnerClass{{Name: name, OuterName: outer, SimpleName: simple, Access: access}},
	}
}

// Enum returns a public enum type.
func Enum(name string, ifaces ...string) Class {
	return Class{
		Name:       name,
		Super:      "java.lang.Enum",
		Interfaces: ifaces,
		Access:     classfile.AccPublic | classfile.AccFinal | classfile.AccSuper | classfile.AccEnum,
	}
}

// Bytes encodes the class file.
func (c Class) Bytes() []byte {
	p := &pool{index: map[string]uint16{}}

	thisIdx := p.class(c.Name)
	var superIdx uint16
	switch c.Super {
	case NoSuper:
	case "":
		superIdx = p.class(Object)
	default:
		superIdx = p.class(c.Super)
	}
	ifaceIdx := make([]uint16, len(c.Interfaces))
	for i, iface := range c.Interfaces {
		ifaceIdx[i] = p.class(iface)
	}

	type innerRef struct{ inner, outer, name, access uint16 }
	inners := make([]innerRef, len(c.Inner))
	for i, ic := range c.Inner {
		ref := innerRef{inner: p.class(ic.Name), access: uint16(ic.Access)}
		if ic.OuterName != "" {
			ref.outer = p.class(ic.OuterName)
		}
		if ic.SimpleName != "" {
			ref.name = p.utf8(ic.SimpleName)
		}
		inners[i] = ref
	}
	var innerAttr, codeAttr, fieldName, fieldDesc, methodName, methodDesc uint16
	if len(inners) > 0 {
		innerAttr = p.utf8("InnerClasses")
	}
	if c.Padding {
		p.long(42)
		fieldName, fieldDesc = p.utf8("value"), p.utf8("J")
		methodName, methodDesc = p.utf8("<init>"), p.utf8("()V")
		codeAttr = p.utf8("Code")
	}

	major := c.Major
	if major == 0 {
		major = 52
	}

	var b bytes.Buffer
	w := func(v any) { _ = binary.Write(&b, binary.BigEndian, v) }
	w(classfile.Magic)
	w(uint16(0))
	w(major)
	w(uint16(p.next))
	b.Write(p.buf.Bytes())
	w(uint16(c.Access))
	w(thisIdx)
	w(superIdx)
	w(uint16(len(ifaceIdx)))
	for _, idx := range ifaceIdx {
		w(idx)
	}

	if c.Padding {
		w(uint16(1)) // fields
		w(uint16(classfile.AccPrivate))
		w(fieldName)
		w(fieldDesc)
		w(uint16(0))
		w(uint16(1)) // methods
		w(uint16(classfile.AccPublic))
		w(methodName)
		w(methodDesc)
		w(uint16(1))
		w(codeAttr)
		code := []byte{0, 1, 0, 1, 0, 0, 0, 1, 0xb1, 0, 0, 0, 0}
		w(uint32(len(code)))
		b.Write(code)
	} else {
		w(uint16(0))
		w(uint16(0))
	}

	if len(inners) == 0 {
		w(uint16(0))
		return b.Bytes()
	}
	w(uint16(1))
	w(innerAttr)
	w(uint32(2 + 8*len(inners)))
	w(uint16(len(inners)))
	for _, ref := range inners {
		w(ref.inner)
		w(ref.outer)
		w(ref.name)
		w(ref.access)
	}
	return b.Bytes()
}

type pool struct {
	buf   bytes.Buffer
	next  uint16
	index map[string]uint16
}

func (p *pool) alloc(slots uint16) uint16 {
	if p.next == 0 {
		p.next = 1
	}
	idx := p.next
	p.next += slots
	return idx
}

func (p *pool) utf8(s string) uint16 {
	key := "u:" + s
	if idx, ok := p.index[key]; ok {
		return idx
	}
	idx := p.alloc(1)
	p.buf.WriteByte(1)
	_ = binary.Write(&p.buf, binary.BigEndian, uint16(len(s)))
	p.buf.WriteString(s)
	p.index[key] = idx
	return idx
}

func (p *pool) class(binaryName string) uint16 {
	key := "c:" + binaryName
	if idx, ok := p.index[key]; ok {
		return idx
	}
	nameIdx := p.utf8(classfile.InternalName(binaryName))
	idx := p.alloc(1)
	p.buf.WriteByte(7)
	_ = binary.Write(&p.buf, binary.BigEndian, nameIdx)
	p.index[key] = idx
	return idx
}

func (p *pool) long(v int64) {
	p.alloc(2)
	p.buf.WriteByte(5)
	_ = binary.Write(&p.buf, binary.BigEndian, v)
}

// WriteClasses writes each class below root at its resource path.
func WriteClasses(t testing.TB, root string, classes ...Class) {
	t.Helper()
	for _, c := range classes {
		path := filepath.Join(root, filepath.FromSlash(classfile.ResourcePath(c.Name)))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("creating directory for %s: %v", c.Name, err)
		}
		if err := os.WriteFile(path, c.Bytes(), 0644); err != nil {
			t.Fatalf("writing class %s: %v", c.Name, err)
		}
	}
}

// WriteFile writes raw content below root, creating parent directories.
func WriteFile(t testing.TB, root, rel string, data []byte) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("creating directory for %s: %v", rel, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("writing %s: %v", rel, err)
	}
	return path
}

// WriteJar writes a jar archive at path holding the given classes.
func WriteJar(t testing.TB, path string, classes ...Class) {
	t.Helper()
	writeZip(t, path, "", "", classes)
}

// WriteJmod writes a jmod file at path: the "JM" header followed by a zip
// archive with the classes below classes/.
func WriteJmod(t testing.TB, path string, classes ...Class) {
	t.Helper()
	writeZip(t, path, "JM\x01\x00", "classes/", classes)
}

func writeZip(t testing.TB, path, header, prefix string, classes []Class) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("creating directory for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("creating archive %s: %v", path, err)
	}
	defer f.Close()
	if _, err := f.WriteString(header); err != nil {
		t.Fatalf("writing header of %s: %v", path, err)
	}

	zw := zip.NewWriter(f)
	manifest, err := zw.Create("META-INF/MANIFEST.MF")
	if err != nil {
		t.Fatalf("adding manifest to %s: %v", path, err)
	}
	if _, err := manifest.Write([]byte("Manifest-Version: 1.0\r\n\r\n")); err != nil {
		t.Fatalf("writing manifest to %s: %v", path, err)
	}
	for _, c := range classes {
		entry, err := zw.Create(prefix + classfile.ResourcePath(c.Name))
		if err != nil {
			t.Fatalf("adding %s to %s: %v", c.Name, path, err)
		}
		if _, err := entry.Write(c.Bytes()); err != nil {
			t.Fatalf("writing %s to %s: %v", c.Name, path, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("closing archive %s: %v", path, err)
	}
}
