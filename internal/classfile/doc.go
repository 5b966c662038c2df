// Package classfile decodes the parts of the JVM class-file format needed for
// static type analysis: version, access flags, the class's own name, its
// superclass and interfaces, and the InnerClasses attribute that carries the
// source-level modifiers of nested and anonymous classes. Fields, methods and
// all other attributes are skipped without interpretation.
package classfile
