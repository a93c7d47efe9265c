// Package manifest records what a scan was asked to do and how it ended.
//
// The manifest is written to 03_scan_manifest.json when a scan starts, with
// status "running", and rewritten when it finishes. A run directory whose
// manifest still says "running" belongs to a scan that was interrupted.
//
// # Atomic Protocol
//
// Save writes the manifest to a temporary file, syncs it and renames it over
// the previous version, so readers never observe a partial manifest.
package manifest
