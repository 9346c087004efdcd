// Package storage owns the relational database: opening connections for the
// supported drivers, schema migrations, transactions, named sequences and
// the translation of driver errors into apperr values.
//
// Queries throughout depot are written once with ? placeholders and passed
// through sqlx's Rebind, so the same text runs on SQLite (mattn or modernc)
// and PostgreSQL.
//
// Stores hold an sqlx.ExtContext and expose WithTx(*sqlx.Tx) to bind a copy
// of themselves to a transaction opened by WithTx:
//
//	err := storage.WithTx(ctx, db, func(tx *sqlx.Tx) error {
//	    n, err := storage.NextSequence(ctx, tx, "work_orders")
//	    ...
//	    return orders.WithTx(tx).Create(ctx, wo)
//	})
package storage
