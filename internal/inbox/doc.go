// Package inbox imports manifest documents dropped into a directory.
//
// The Watcher processes files already present at startup, then follows the
// directory with fsnotify. Each .txt or .pdf document is read, extracted and
// imported in one transaction; the file then moves to processed/ or, with a
// .err note describing what went wrong, to failed/.
package inbox
