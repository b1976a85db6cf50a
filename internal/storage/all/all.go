// Package all registers every storage backend. Import it for side effects
// from binaries that pick the backend at runtime.
package all

import (
	_ "dropsync/internal/storage/mssql"
	_ "dropsync/internal/storage/postgres"
	_ "dropsync/internal/storage/sqlite"
)
