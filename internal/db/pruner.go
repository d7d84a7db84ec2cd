package db

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"
)

// pruneQuery drops records that have a newer record of the same author and
// namespace and were received before the cutoff. The newest record of every
// (author, namespace) pair is always kept.
const pruneQuery = `
DELETE FROM records r
 WHERE r.received_at < $1
   AND EXISTS (
       SELECT 1 FROM records n
        WHERE n.author = r.author
          AND n.namespace = r.namespace
          AND (n.created_at, n.id) > (r.created_at, r.id)
   )`

// PruneSuperseded runs one pruning pass and returns the number of removed
// records.
func PruneSuperseded(ctx context.Context, db *sql.DB, cutoff time.Time) (int64, error) {
	res, err := db.ExecContext(ctx, pruneQuery, cutoff.Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// StartRecordPruner prunes superseded records every interval until ctx is
// done.
func StartRecordPruner(
	ctx context.Context,
	db *sql.DB,
	interval time.Duration,
	retention time.Duration,
	log *zap.Logger,
) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed, err := PruneSuperseded(ctx, db, time.Now().Add(-retention))
				if err != nil {
					log.Error("failed to prune superseded records", zap.Error(err))
					continue
				}
				if removed > 0 {
					log.Info("pruned superseded records", zap.Int64("removed", removed))
				}
			}
		}
	}()
}
