// Package platform writes files the same way on every OS: atomically, with
// fixed modes. Mode bits are ignored on Windows.
package platform
