// Package repository provides a generic entity repository built on Bun for
// find, create, update, refresh, delete, lock and paginated listing.
package repository
