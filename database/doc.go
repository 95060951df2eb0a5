// Package database provides connection management, session providers,
// configuration types, query hooks, driver error classification and logging
// built on top of Bun.
package database
