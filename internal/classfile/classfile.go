package classfile

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Magic is the four-byte header of every class file.
const Magic uint32 = 0xCAFEBABE

// Extension is the file extension of a compiled class.
const Extension = ".class"

// ErrNotClassFile is returned when the input does not start with Magic.
var ErrNotClassFile = errors.New("not a class file")

// FormatError describes a structurally invalid class file.
type FormatError struct {
	Offset int
	Msg    string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("malformed class file at offset %d: %s", e.Offset, e.Msg)
}

// constant pool tags
const (
	tagUtf8               = 1
	tagInteger            = 3
	tagFloat              = 4
	tagLong               = 5
	tagDouble             = 6
	tagClass              = 7
	tagString             = 8
	tagFieldref           = 9
	tagMethodref          = 10
	tagInterfaceMethodref = 11
	tagNameAndType        = 12
	tagMethodHandle       = 15
	tagMethodType         = 16
	tagDynamic            = 17
	tagInvokeDynamic      = 18
	tagModule             = 19
	tagPackage            = 20
)

// InnerClass is one entry of the InnerClasses attribute.
type InnerClass struct {
	Name       string // binary name of the inner class
	OuterName  string // empty for local and anonymous classes
	SimpleName string // empty for anonymous classes
	Access     AccessFlags
}

// ClassFile is the decoded header of a compiled class.
type ClassFile struct {
	MinorVersion uint16
	MajorVersion uint16
	Access       AccessFlags
	Name         string   // binary name, e.g. "com.foo.Outer$Inner"
	SuperName    string   // empty for java.lang.Object and module descriptors
	Interfaces   []string // binary names of directly implemented interfaces
	InnerClasses []InnerClass
}

// Parse decodes a class file from r.
func Parse(r io.Reader) (*ClassFile, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading class file: %w", err)
	}
	return ParseBytes(data)
}

// ParseBytes decodes a class file held in memory.
func ParseBytes(data []byte) (*ClassFile, error) {
	d := &decoder{data: data}

	if len(data) < 4 || binary.BigEndian.Uint32(data) != Magic {
		return nil, ErrNotClassFile
	}
	d.pos = 4

	cf := &ClassFile{}
	cf.MinorVersion = d.u2()
	cf.MajorVersion = d.u2()

	if err := d.readConstantPool(); err != nil {
		return nil, err
	}

	cf.Access = AccessFlags(d.u2())
	thisIdx := d.u2()
	superIdx := d.u2()
	if d.err != nil {
		return nil, d.err
	}

	name, err := d.className(thisIdx)
	if err != nil {
		return nil, err
	}
	cf.Name = name
	if superIdx != 0 {
		if cf.SuperName, err = d.className(superIdx); err != nil {
			return nil, err
		}
	}

	count := int(d.u2())
	for i := 0; i < count && d.err == nil; i++ {
		iface, err := d.className(d.u2())
		if err != nil {
			return nil, err
		}
		cf.Interfaces = append(cf.Interfaces, iface)
	}

	// fields and methods share a layout
	for range 2 {
		members := int(d.u2())
		for i := 0; i < members && d.err == nil; i++ {
			d.skip(6) // access_flags, name_index, descriptor_index
			d.skipAttributes()
		}
	}

	attrs := int(d.u2())
	for i := 0; i < attrs && d.err == nil; i++ {
		attrName, err := d.utf8(d.u2())
		if err != nil {
			return nil, err
		}
		length := int(d.u4())
		if attrName != "InnerClasses" {
			d.skip(length)
			continue
		}
		end := d.pos + length
		if cf.InnerClasses, err = d.readInnerClasses(); err != nil {
			return nil, err
		}
		if d.err == nil && d.pos != end {
			return nil, d.fail("InnerClasses attribute length mismatch")
		}
	}
	if d.err != nil {
		return nil, d.err
	}
	return cf, nil
}

// Self returns the InnerClasses entry describing the class itself, if any.
func (c *ClassFile) Self() (InnerClass, bool) {
	for _, ic := range c.InnerClasses {
		if ic.Name == c.Name {
			return ic, true
		}
	}
	return InnerClass{}, false
}

// Modifiers returns the source-level modifiers of the class. For nested
// classes these come from the class's own InnerClasses entry, because the
// top-level access flags of a private or protected member class are widened
// by the compiler.
func (c *ClassFile) Modifiers() AccessFlags {
	if self, ok := c.Self(); ok {
		return self.Access
	}
	return c.Access &^ AccSuper
}

// IsAnonymous reports whether the class is an anonymous class.
func (c *ClassFile) IsAnonymous() bool {
	self, ok := c.Self()
	return ok && self.SimpleName == ""
}

// IsModule reports whether the file is a module descriptor (module-info).
func (c *ClassFile) IsModule() bool { return c.Access.Has(AccModule) }

// IsInterface reports whether the class is an interface or annotation type.
func (c *ClassFile) IsInterface() bool { return c.Modifiers().Has(AccInterface) }

// IsEnum reports whether the class is an enum type.
func (c *ClassFile) IsEnum() bool { return c.Access.Has(AccEnum) }

// IsAbstract reports whether the class is declared abstract.
func (c *ClassFile) IsAbstract() bool { return c.Modifiers().Has(AccAbstract) }

// IsPublic reports whether the class is publicly visible.
func (c *ClassFile) IsPublic() bool { return c.Modifiers().Has(AccPublic) }

// BinaryName converts an internal name ("a/b/C") to a binary name ("a.b.C").
func BinaryName(internal string) string {
	return strings.ReplaceAll(internal, "/", ".")
}

// InternalName converts a binary name ("a.b.C") to an internal name ("a/b/C").
func InternalName(binary string) string {
	return strings.ReplaceAll(binary, ".", "/")
}

// ResourcePath returns the slash-separated path of the class file holding
// the given binary name, e.g. "com/foo/Bar$1.class".
func ResourcePath(binary string) string {
	return InternalName(binary) + Extension
}

type cpEntry struct {
	tag   byte
	index uint16 // Class: name_index
	str   string // Utf8
}

type decoder struct {
	data []byte
	pos  int
	err  error
	pool []cpEntry
}

func (d *decoder) fail(msg string) error {
	if d.err == nil {
		d.err = &FormatError{Offset: d.pos, Msg: msg}
	}
	return d.err
}

func (d *decoder) need(n int) bool {
	if d.err != nil {
		return false
	}
	if n < 0 || d.pos+n > len(d.data) {
		d.fail("unexpected end of data")
		return false
	}
	return true
}

func (d *decoder) u1() byte {
	if !d.need(1) {
		return 0
	}
	v := d.data[d.pos]
	d.pos++
	return v
}

func (d *decoder) u2() uint16 {
	if !d.need(2) {
		return 0
	}
	v := binary.BigEndian.Uint16(d.data[d.pos:])
	d.pos += 2
	return v
}

func (d *decoder) u4() uint32 {
	if !d.need(4) {
		return 0
	}
	v := binary.BigEndian.Uint32(d.data[d.pos:])
	d.pos += 4
	return v
}

func (d *decoder) skip(n int) {
	if d.need(n) {
		d.pos += n
	}
}

func (d *decoder) skipAttributes() {
	count := int(d.u2())
	for i := 0; i < count && d.err == nil; i++ {
		d.skip(2)
		d.skip(int(d.u4()))
	}
}

func (d *decoder) readConstantPool() error {
	count := int(d.u2())
	if d.err != nil {
		return d.err
	}
	if count == 0 {
		return d.fail("empty constant pool")
	}
	d.pool = make([]cpEntry, count)
	for i := 1; i < count; i++ {
		tag := d.u1()
		e := cpEntry{tag: tag}
		switch tag {
		case tagUtf8:
			n := int(d.u2())
			if d.need(n) {
				// modified UTF-8 is identical to UTF-8 for class names
				e.str = string(d.data[d.pos : d.pos+n])
				d.pos += n
			}
		case tagClass:
			e.index = d.u2()
		case tagString, tagMethodType, tagModule, tagPackage:
			d.skip(2)
		case tagMethodHandle:
			d.skip(3)
		case tagInteger, tagFloat, tagFieldref, tagMethodref, tagInterfaceMethodref,
			tagNameAndType, tagDynamic, tagInvokeDynamic:
			d.skip(4)
		case tagLong, tagDouble:
			d.skip(8)
			d.pool[i] = e
			i++ // eight-byte constants take two slots
			continue
		default:
			if d.err == nil {
				return d.fail(fmt.Sprintf("unknown constant pool tag %d at index %d", tag, i))
			}
		}
		if d.err != nil {
			return d.err
		}
		d.pool[i] = e
	}
	return d.err
}

func (d *decoder) entry(idx uint16, tag byte) (cpEntry, error) {
	if idx == 0 || int(idx) >= len(d.pool) {
		return cpEntry{}, d.fail(fmt.Sprintf("constant pool index %d out of range", idx))
	}
	e := d.pool[idx]
	if e.tag != tag {
		return cpEntry{}, d.fail(fmt.Sprintf("constant pool index %d has tag %d, want %d", idx, e.tag, tag))
	}
	return e, nil
}

func (d *decoder) utf8(idx uint16) (string, error) {
	if d.err != nil {
		return "", d.err
	}
	e, err := d.entry(idx, tagUtf8)
	if err != nil {
		return "", err
	}
	return e.str, nil
}

func (d *decoder) className(idx uint16) (string, error) {
	if d.err != nil {
		return "", d.err
	}
	e, err := d.entry(idx, tagClass)
	if err != nil {
		return "", err
	}
	name, err := d.utf8(e.index)
	if err != nil {
		return "", err
	}
	return BinaryName(name), nil
}

func (d *decoder) readInnerClasses() ([]InnerClass, error) {
	count := int(d.u2())
	out := make([]InnerClass, 0, count)
	for i := 0; i < count && d.err == nil; i++ {
		innerIdx, outerIdx, nameIdx := d.u2(), d.u2(), d.u2()
		access := AccessFlags(d.u2())
		if d.err != nil {
			break
		}

		ic := InnerClass{Access: access}
		var err error
		if ic.Name, err = d.className(innerIdx); err != nil {
			return nil, err
		}
		if outerIdx != 0 {
			if ic.OuterName, err = d.className(outerIdx); err != nil {
				return nil, err
			}
		}
		if nameIdx != 0 {
			if ic.SimpleName, err = d.utf8(nameIdx); err != nil {
				return nil, err
			}
		}
		out = append(out, ic)
	}
	return out, d.err
}
