package repository // repository defines data access for chart catalogs

import (
	"context"      // context allows query cancellation and timeouts
	"database/sql" // sql provides DB primitives
	"strconv"

	"github.com/iliyamo/seat-hold-coordinator/internal/model"
)

// CatalogRepo loads the fixed seat catalog of each chart from the
// chart_seats table.  Rows are ordered by position so snapshots render in
// the same order the chart was designed.
type CatalogRepo struct {
	db *sql.DB
}

// NewCatalogRepo constructs a CatalogRepo with the given DB handle.
func NewCatalogRepo(db *sql.DB) *CatalogRepo {
	return &CatalogRepo{db: db}
}

// ChartKeys lists every chart that has at least one seat.
func (r *CatalogRepo) ChartKeys(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT chart_key FROM chart_seats ORDER BY chart_key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}

// Seats retrieves the catalog of a chart.  An unknown chart yields an
// empty slice.
func (r *CatalogRepo) Seats(ctx context.Context, chartKey string) ([]model.Seat, error) {
	const q = `SELECT seat_id, label
	           FROM chart_seats
	           WHERE chart_key = ?
	           ORDER BY position, seat_id`
	rows, err := r.db.QueryContext(ctx, q, chartKey)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []model.Seat{}
	for rows.Next() {
		var s model.Seat
		if err := rows.Scan(&s.ID, &s.Label); err != nil {
			return nil, err
		}
		s.Status = model.SeatFree
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// GridCatalog generates a rectangular catalog of rows x cols seats with
// IDs such as A1, B12 or AA3.  It is used when no database catalog is
// configured.
func GridCatalog(rows, cols int) []model.Seat {
	if rows <= 0 || cols <= 0 {
		return nil
	}
	seats := make([]model.Seat, 0, rows*cols)
	for i := 0; i < rows; i++ {
		row := IndexToRowLabel(i)
		for n := 1; n <= cols; n++ {
			id := row + strconv.Itoa(n)
			seats = append(seats, model.Seat{ID: id, Label: id, Status: model.SeatFree})
		}
	}
	return seats
}

// IndexToRowLabel converts a zero-based index to an alphabetical row label like A, B, AA
func IndexToRowLabel(i int) string {
	if i < 0 { // negative indices are invalid
		return ""
	}
	res := []rune{}
	for {
		rem := i % 26
		res = append(res, rune('A'+rem))
		i = i/26 - 1
		if i < 0 {
			break
		}
	}
	for j, k := 0, len(res)-1; j < k; j, k = j+1, k-1 { // reverse the runes to build the label
		res[j], res[k] = res[k], res[j]
	}
	return string(res)
}
