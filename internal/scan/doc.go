// Package scan enumerates compiled classes below a directory and derives
// their binary names from the relative file paths. It touches only the
// filesystem; class files are not opened.
package scan
