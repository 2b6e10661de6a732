// Package ledger keeps a history of resolve runs in SQLite.
//
// Every run is recorded, including failures, so that the history answers
// both "what configuration did target X build with last" and "when did the
// stack stop fitting in SRAM". Successful runs store the resolved entries
// and the fingerprint; failed runs store the failure kind, the invariant
// (when one failed) and the keys involved.
//
// The resolutions table is created by the migrations package.
//
// Usage:
//
//	repo := ledger.NewSQLiteRepository(db.DB)
//	rec := ledger.FromResult("codal-wasm", resolved, err)
//	rec.Base, rec.Override = "framework", "codal-wasm"
//	if err := repo.Record(ctx, rec); err != nil {
//	    return err
//	}
package ledger
