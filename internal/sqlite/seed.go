// File path: internal/sqlite/seed.go
package sqlite

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/nicodishanthj/Katral_insight/internal/common"
)

type seedProduct struct {
	name        string
	category    string
	unitPrice   float64
	costPrice   float64
	description string
}

var (
	seedRegions = []string{"Dhaka", "Chittagong", "Sylhet", "Khulna", "Rajshahi"}

	seedProducts = []seedProduct{
		{"Premium Rice 25kg", "Groceries", 2150, 1800, "Miniket rice, 25kg sack"},
		{"Soybean Oil 5L", "Groceries", 890, 760, "Fortified soybean oil"},
		{"Smartphone X1", "Electronics", 18500, 15200, "Entry level Android phone"},
		{"LED Television 32in", "Electronics", 24500, 20100, "HD ready LED TV"},
		{"Cotton Saree", "Apparel", 3200, 2100, "Handloom cotton saree"},
		{"Men's Panjabi", "Apparel", 2450, 1500, "Festive cotton panjabi"},
	}

	seedCustomers = []struct {
		name, email, phone, kind string
		region                   int
	}{
		{"Rahim Traders", "rahim@traders.bd", "+8801711000001", "wholesale", 1},
		{"Karim Store", "karim@store.bd", "+8801711000002", "retail", 2},
		{"Sylhet Mart", "info@sylhetmart.bd", "+8801711000003", "retail", 3},
		{"Khulna Distributors", "sales@khulnadist.bd", "+8801711000004", "wholesale", 4},
		{"Padma Electronics", "hello@padma.bd", "+8801711000005", "retail", 5},
		{"Nusrat Jahan", "nusrat@example.bd", "+8801711000006", "retail", 1},
	}

	seedPayments = []string{"cash", "bkash", "card", "bank_transfer"}

	seedExpenseCategories = []string{"Salaries", "Rent", "Utilities", "Logistics", "Marketing"}
)

const (
	seedSales    = 36
	seedExpenses = 24
)

var seedStart = time.Date(2024, time.January, 5, 0, 0, 0, 0, time.UTC)

// Seed loads a small fixed dataset when the warehouse has no regions yet.
// Every value is derived from loop indexes, so repeated seeds of fresh
// databases produce identical rows.
func (s *Store) Seed(ctx context.Context) error {
	if err := s.ensureReady(); err != nil {
		return err
	}
	var regions int
	if err := s.db.GetContext(ctx, &regions, `SELECT COUNT(*) FROM regions`); err != nil {
		return fmt.Errorf("count regions: %w", err)
	}
	if regions > 0 {
		return nil
	}
	err := withTx(ctx, s.db, func(tx *sqlx.Tx) error {
		for _, name := range seedRegions {
			if _, err := tx.ExecContext(ctx, `INSERT INTO regions(name) VALUES(?)`, name); err != nil {
				return fmt.Errorf("insert region %s: %w", name, err)
			}
		}
		for _, p := range seedProducts {
			if _, err := tx.ExecContext(ctx, `INSERT INTO products(name, category, unit_price, cost_price, description) VALUES(?, ?, ?, ?, ?)`,
				p.name, p.category, p.unitPrice, p.costPrice, p.description); err != nil {
				return fmt.Errorf("insert product %s: %w", p.name, err)
			}
		}
		for _, c := range seedCustomers {
			if _, err := tx.ExecContext(ctx, `INSERT INTO customers(name, email, phone, region_id, customer_type) VALUES(?, ?, ?, ?, ?)`,
				c.name, c.email, c.phone, c.region, c.kind); err != nil {
				return fmt.Errorf("insert customer %s: %w", c.name, err)
			}
		}
		for i := 0; i < seedSales; i++ {
			if err := seedSale(ctx, tx, i); err != nil {
				return err
			}
		}
		for i := 0; i < seedExpenses; i++ {
			date := seedStart.AddDate(0, i/2, (i%2)*14)
			category := seedExpenseCategories[i%len(seedExpenseCategories)]
			amount := 15000 + float64((i*7919)%40)*500
			if _, err := tx.ExecContext(ctx, `INSERT INTO expenses(expense_date, category, description, amount, region_id) VALUES(?, ?, ?, ?, ?)`,
				date.Format(time.DateOnly), category, category+" for "+date.Format("January 2006"), amount, i%len(seedRegions)+1); err != nil {
				return fmt.Errorf("insert expense %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("seed warehouse: %w", err)
	}
	common.Logger().Info("sqlite: warehouse seeded", "sales", seedSales, "expenses", seedExpenses)
	return nil
}

func seedSale(ctx context.Context, tx *sqlx.Tx, i int) error {
	product := seedProducts[i%len(seedProducts)]
	customer := i%len(seedCustomers) + 1
	region := seedCustomers[customer-1].region
	quantity := i%4 + 1
	discount := 0.0
	if i%5 == 0 {
		discount = 0.05
	}
	amount := math.Round(float64(quantity)*product.unitPrice*(1-discount)*100) / 100
	status := "COMPLETED"
	switch {
	case i%12 == 11:
		status = "CANCELLED"
	case i%9 == 8:
		status = "PENDING"
	}
	date := seedStart.AddDate(0, 0, i*10)
	res, err := tx.ExecContext(ctx, `INSERT INTO sales(order_date, product_id, customer_id, region_id, quantity, unit_price, discount, amount, status, payment_method)
                VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		date.Format(time.DateOnly), i%len(seedProducts)+1, customer, region, quantity, product.unitPrice, discount, amount, status, seedPayments[i%len(seedPayments)])
	if err != nil {
		return fmt.Errorf("insert sale %d: %w", i, err)
	}
	if status == "CANCELLED" {
		return nil
	}
	saleID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sale id: %w", err)
	}
	paid := amount
	invoiceStatus := "PAID"
	if status == "PENDING" || i%4 == 3 {
		paid = 0
		invoiceStatus = "PENDING"
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO invoices(invoice_number, sale_id, invoice_date, due_date, total_amount, paid_amount, status)
                VALUES(?, ?, ?, ?, ?, ?, ?)`,
		fmt.Sprintf("INV-2024-%04d", saleID), saleID, date.Format(time.DateOnly), date.AddDate(0, 0, 30).Format(time.DateOnly), amount, paid, invoiceStatus); err != nil {
		return fmt.Errorf("insert invoice %d: %w", i, err)
	}
	return nil
}
