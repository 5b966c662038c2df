// Package classpath assembles an ordered list of directories and archives
// into a lookup facility for compiled classes. Entries are searched in the
// order given and the first entry holding a class wins, mirroring how a JVM
// class loader shadows later classpath entries. Entries that do not exist
// are legal and simply never match.
package classpath
