//go:build !sqlite_vec

package store

import (
	_ "modernc.org/sqlite"
)

// driverName selects the pure-Go SQLite driver. Vector queries run through
// the vec0 compat shim registered in vec_compat.go.
const driverName = "sqlite"
