// Package servicefile persists a discovery result as provider-configuration
// files: one file per service under META-INF/services, named after the
// service and listing one implementation per line.
package servicefile
