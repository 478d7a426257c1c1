package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/cinedex/cinedex-backend/internal/db/entities"
	"github.com/cinedex/cinedex-backend/internal/db/query"
)

// GroupCount is the number of movies sharing one value of a column.
type GroupCount struct {
	Key   string
	Count int64
}

// GroupAverage is the mean of a numeric column over movies sharing one value
// of a grouping column.
type GroupAverage struct {
	Key     string
	Average decimal.Decimal
}

// MovieView is a composable, re-queryable description of a set of movies.
// Refinements return new views; terminal methods hit the store.
type MovieView struct {
	repo *MovieRepository
	q    *query.Builder
}

func (v *MovieView) with(q *query.Builder) *MovieView {
	return &MovieView{repo: v.repo, q: q}
}

func (v *MovieView) Where(column string, op query.Operator, value interface{}) *MovieView {
	return v.with(v.q.Where(column, op, value))
}

func (v *MovieView) OrderBy(column string) *MovieView {
	return v.with(v.q.OrderBy(column))
}

func (v *MovieView) OrderByDesc(column string) *MovieView {
	return v.with(v.q.OrderByDesc(column))
}

func (v *MovieView) Limit(n int) *MovieView {
	return v.with(v.q.Limit(n))
}

// List materializes the view. Rows that compare equal under the requested
// ordering come back in ascending id order. The result is never nil.
func (v *MovieView) List(ctx context.Context) ([]entities.Movie, error) {
	q, args := v.q.Select(entities.MovieColumns...)

	rows, err := v.repo.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, storageErr("list movies", err)
	}
	defer rows.Close()

	movies, err := scanMovies(rows)
	if err != nil {
		return nil, storageErr("list movies", err)
	}
	return movies, nil
}

// Average computes the exact mean of column over the view. Values are summed
// as decimals because SQLite's AVG works in binary floating point. Null values
// are skipped and the result is invalid when nothing remains.
func (v *MovieView) Average(ctx context.Context, column string) (decimal.NullDecimal, error) {
	q, args := v.q.Values(column)

	rows, err := v.repo.db.QueryContext(ctx, q, args...)
	if err != nil {
		return decimal.NullDecimal{}, storageErr("average movies", err)
	}
	defer rows.Close()

	sum := decimal.Zero
	var count int64
	for rows.Next() {
		var value decimal.NullDecimal
		if err := rows.Scan(&value); err != nil {
			return decimal.NullDecimal{}, storageErr("average movies", err)
		}
		if !value.Valid {
			continue
		}
		sum = sum.Add(value.Decimal)
		count++
	}
	if err := rows.Err(); err != nil {
		return decimal.NullDecimal{}, storageErr("average movies", err)
	}

	if count == 0 {
		return decimal.NullDecimal{}, nil
	}
	return decimal.NullDecimal{Decimal: sum.Div(decimal.NewFromInt(count)), Valid: true}, nil
}

// CountBy counts movies per distinct value of column, ordered by that value.
func (v *MovieView) CountBy(ctx context.Context, column string) ([]GroupCount, error) {
	q, args := v.q.GroupBy(column, "COUNT", "*")

	rows, err := v.repo.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, storageErr("count movies", err)
	}
	defer rows.Close()

	counts := []GroupCount{}
	for rows.Next() {
		var gc GroupCount
		if err := rows.Scan(&gc.Key, &gc.Count); err != nil {
			return nil, storageErr("count movies", err)
		}
		counts = append(counts, gc)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("count movies", err)
	}
	return counts, nil
}

// AverageBy averages column per distinct value of group, ordered by group.
func (v *MovieView) AverageBy(ctx context.Context, group, column string) ([]GroupAverage, error) {
	q, args := v.q.GroupBy(group, "AVG", column)

	rows, err := v.repo.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, storageErr("average movies", err)
	}
	defer rows.Close()

	averages := []GroupAverage{}
	for rows.Next() {
		var (
			ga  GroupAverage
			avg decimal.NullDecimal
		)
		if err := rows.Scan(&ga.Key, &avg); err != nil {
			return nil, storageErr("average movies", err)
		}
		ga.Average = avg.Decimal
		averages = append(averages, ga)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("average movies", err)
	}
	return averages, nil
}
