// Package database provides the SQLite connection behind the codalcfg
// resolution ledger.
//
// This package manages:
//   - Connection setup with WAL mode and a busy timeout
//   - Versioned schema migrations loaded from an fs.FS
//   - Connection lifecycle
//
// Security Considerations:
//   - All queries use parameterised statements
//   - The database file mode is narrowed to 0600
//
// Usage:
//
//	db, err := database.Open(ctx, database.Config{Path: cfg.Database.Path, WALMode: true})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// Migration files live in the top-level migrations directory and are
// embedded into the binary. Each version has an .up.sql file and usually a
// .down.sql file; migrations only add tables, indexes and nullable columns.
package database
