// Package all registers every storage backend. Blank-import it from a main
// package to make all drivers available through storage.New.
package all

import (
	_ "csvsync/internal/storage/mssql"
	_ "csvsync/internal/storage/mysql"
	_ "csvsync/internal/storage/postgres"
	_ "csvsync/internal/storage/sqlite"
)
