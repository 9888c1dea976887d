// Package internaldefs is the single table of exported metric names, help
// strings and bucket bounds. The Prometheus and OTel exporters both read it,
// so a rename here shows up in both.
package internaldefs
