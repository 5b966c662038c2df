// Package resolve loads types through an assembled classpath and links them
// to their supertypes, producing an explicit type graph on which subtype
// questions are answered.
//
// A Context is the resolution context of exactly one discovery run. It
// caches every outcome so that resolving the same name twice yields the
// identical *Type, which is what makes identity-based subtype checks sound.
// A Context must not outlive its run and is not safe for concurrent use.
//
// Resolution has three outcomes. Found carries a linked *Type. NotFound
// means the name is absent from the classpath. Unusable means the class
// file was located but cannot be linked: it is malformed, holds a different
// class, is a module descriptor, or one of its supertypes is itself missing
// or unusable. Callers decide which outcomes are fatal.
package resolve
