package db_fetcher

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/golang/glog"
	"github.com/lib/pq"
	"github.com/prebid/auction-core/metrics"
	"github.com/prebid/auction-core/stored_requests"
)

func NewFetcher(db *sql.DB, queryMaker func(int) string, metricsEngine metrics.MetricsEngine) stored_requests.ImpFetcher {
	if db == nil {
		glog.Fatalf("The Postgres Stored Imp Fetcher requires a database connection. Please report this as a bug.")
	}
	if queryMaker == nil {
		glog.Fatalf("The Postgres Stored Imp Fetcher requires a queryMaker function. Please report this as a bug.")
	}
	return &dbFetcher{
		db:            db,
		queryMaker:    queryMaker,
		metricsEngine: metricsEngine,
	}
}

// dbFetcher fetches Stored Imps from a database. This should be instantiated through the NewFetcher() function.
type dbFetcher struct {
	db            *sql.DB
	queryMaker    func(numImps int) (query string)
	metricsEngine metrics.MetricsEngine
}

func (fetcher *dbFetcher) FetchImps(ctx context.Context, impIDs []string) (map[string]json.RawMessage, []error) {
	if len(impIDs) < 1 {
		return nil, nil
	}

	query := fetcher.queryMaker(len(impIDs))
	idInterfaces := make([]interface{}, len(impIDs))
	for i := 0; i < len(impIDs); i++ {
		idInterfaces[i] = impIDs[i]
	}

	start := time.Now()
	rows, err := fetcher.db.QueryContext(ctx, query, idInterfaces...)
	if err != nil {
		fetcher.metricsEngine.RecordStoredDataFetchTime(false, time.Since(start))
		if !errors.Is(err, context.DeadlineExceeded) && !isBadInput(err) {
			glog.Errorf("Error reading from Stored Imp DB: %s", err.Error())
			return nil, appendErrors("Imp", impIDs, nil, nil)
		}
		return nil, []error{err}
	}
	defer func() {
		if err := rows.Close(); err != nil {
			glog.Errorf("error closing DB connection: %v", err)
		}
	}()

	storedImpData := make(map[string]json.RawMessage, len(impIDs))
	for rows.Next() {
		var id string
		var data []byte

		if err := rows.Scan(&id, &data); err != nil {
			fetcher.metricsEngine.RecordStoredDataFetchTime(false, time.Since(start))
			return nil, []error{err}
		}
		storedImpData[id] = data
	}

	if rows.Err() != nil {
		fetcher.metricsEngine.RecordStoredDataFetchTime(false, time.Since(start))
		return nil, []error{rows.Err()}
	}
	fetcher.metricsEngine.RecordStoredDataFetchTime(true, time.Since(start))

	return storedImpData, appendErrors("Imp", impIDs, storedImpData, nil)
}

func appendErrors(dataType string, ids []string, data map[string]json.RawMessage, errs []error) []error {
	for _, id := range ids {
		if _, ok := data[id]; !ok {
			errs = append(errs, stored_requests.NotFoundError{
				ID:       id,
				DataType: dataType,
			})
		}
	}
	return errs
}

// Returns true if the Postgres error signifies some sort of bad user input, and false otherwise.
//
// These errors are documented here: https://www.postgresql.org/docs/9.3/static/errcodes-appendix.html
func isBadInput(err error) bool {
	// Postgres queries will fail if a non-UUID is passed into a query for a UUID column. For example:
	//
	//    SELECT uuid, impData FROM stored_imps WHERE uuid IN ('abc');
	//
	// Since users can send us strings which are _not_ UUIDs, and we don't want the code to assume anything about
	// the database schema, we can just convert these into standard NotFoundErrors.
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == "22P02" {
		return true
	}

	return false
}
