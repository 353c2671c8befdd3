package store

import (
	"context"

	"github.com/safar/go-bookstore/internal/database"
	"github.com/safar/go-bookstore/internal/models"
)

const (
	LowStockThreshold = 5
	RecentSalesLimit  = 5
)

// Dashboard gathers the staff landing page figures. Month revenue covers
// sales since the start of the current calendar month in the database clock.
func Dashboard(ctx context.Context, db Querier) (*models.Dashboard, error) {
	dash := &models.Dashboard{}

	err := db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM books),
			(SELECT COUNT(*) FROM customers WHERE active),
			(SELECT COUNT(*) FROM sales),
			(SELECT COALESCE(SUM(total), 0) FROM sales WHERE sold_at >= date_trunc('month', NOW()))`,
	).Scan(&dash.TotalBooks, &dash.ActiveCustomers, &dash.TotalSales, &dash.MonthRevenue)
	if err != nil {
		return nil, database.StoreError("dashboard counts", err)
	}

	dash.LowStockBooks, err = ListLowStockBooks(ctx, db, LowStockThreshold)
	if err != nil {
		return nil, err
	}

	dash.RecentSales, err = RecentSales(ctx, db, RecentSalesLimit)
	if err != nil {
		return nil, err
	}

	return dash, nil
}
