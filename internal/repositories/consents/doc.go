// Package consents persists consent records in the consents table.
//
// SQLRepository works over a dbx.DBTX, so the same value can be bound to a
// *sql.DB or to a *sql.Tx inside dbx.WithTx. Queries are written with '?'
// placeholders and rebound for the configured dbx.Dialect.
//
// Typical Usage
//
//	repo := consents.NewSQLRepository(db, dbx.DialectSQLite)
//	_ = repo.Upsert(ctx, c)
//	all, _ := repo.List(ctx)            // most recently updated first
//	loc, _ := repo.GetByType(ctx, models.ConsentLocation) // nil if absent
package consents
