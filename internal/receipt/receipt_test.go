package receipt

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/safar/go-bookstore/internal/models"
	"github.com/safar/go-bookstore/internal/tax"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSale(lines int, channel models.Channel) *models.Sale {
	sale := &models.Sale{
		ID:            uuid.New(),
		CustomerID:    uuid.New(),
		CustomerName:  "María Pérez",
		CustomerEmail: "maria@example.com",
		CustomerPhone: "+52 55 1234 5678",
		TaxRate:       tax.DefaultRate,
		Status:        models.SaleStatusCompleted,
		Channel:       channel,
		SoldAt:        time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC),
	}
	if channel == models.ChannelInPerson {
		staffID := uuid.New()
		sale.StaffID = &staffID
		sale.StaffName = "Empleado"
	}

	subtotals := make([]decimal.Decimal, 0, lines)
	for i := 0; i < lines; i++ {
		price := decimal.RequireFromString("12.50")
		item := models.SaleItem{
			BookID:    uuid.New(),
			Title:     fmt.Sprintf("Libro número %d con un título bastante largo para recortar", i),
			Author:    "Autora",
			Quantity:  2,
			UnitPrice: price,
			Subtotal:  price.Mul(decimal.NewFromInt(2)),
		}
		sale.Items = append(sale.Items, item)
		subtotals = append(subtotals, item.Subtotal)
	}

	totals := tax.Sum(sale.TaxRate, subtotals...)
	sale.Subtotal, sale.Tax, sale.Total = totals.Subtotal, totals.Tax, totals.Total
	return sale
}

func TestRenderProducesPDF(t *testing.T) {
	for _, kind := range []Kind{KindSale, KindPurchase} {
		data, err := Render(sampleSale(2, models.ChannelOnline), kind)
		require.NoError(t, err)
		assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
		assert.True(t, bytes.Contains(data, []byte("%%EOF")))
	}
}

func TestShortSaleFitsOnePage(t *testing.T) {
	pdf := layout(sampleSale(3, models.ChannelInPerson), KindSale)
	require.NoError(t, pdf.Error())
	assert.Equal(t, 1, pdf.PageCount())
}

func TestLongSalePaginates(t *testing.T) {
	pdf := layout(sampleSale(60, models.ChannelInPerson), KindSale)
	require.NoError(t, pdf.Error())
	assert.Greater(t, pdf.PageCount(), 2)
}

func TestEmptySaleStillRenders(t *testing.T) {
	data, err := Render(sampleSale(0, models.ChannelOnline), KindPurchase)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "corto", truncate("corto", maxTitle))

	exact := strings.Repeat("a", 40)
	assert.Equal(t, exact, truncate(exact, maxTitle))

	long := strings.Repeat("ñ", 45)
	got := truncate(long, maxTitle)
	assert.Equal(t, strings.Repeat("ñ", 37)+"...", got)
	assert.Len(t, []rune(got), 40)
}

func TestFilename(t *testing.T) {
	id := uuid.MustParse("7f1c1a52-3c1e-4b7a-9d7e-3a1c2b4d5e6f")
	assert.Equal(t, "comprobante_venta_7f1c1a52-3c1e-4b7a-9d7e-3a1c2b4d5e6f.pdf", Filename(KindSale, id))
	assert.Equal(t, "comprobante_compra_7f1c1a52-3c1e-4b7a-9d7e-3a1c2b4d5e6f.pdf", Filename(KindPurchase, id))
}

func TestMoneyUsesTwoDecimals(t *testing.T) {
	assert.Equal(t, "$4.80", money(decimal.RequireFromString("4.8")))
	assert.Equal(t, "$0.00", money(decimal.Zero))
	assert.Equal(t, "$32.00", money(decimal.RequireFromString("31.998")))
}
