// Package store persists workflows as versioned JSON files. Every
// save writes a new immutable version; loads default to the latest.
package store
