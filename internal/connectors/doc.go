// Package connectors feeds files from external locations into the document
// service. The filesystem connector scans and watches local directories.
package connectors
