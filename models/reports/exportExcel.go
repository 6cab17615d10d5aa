package reports

import (
	"context"
	"fmt"
	"io"

	"github.com/simsfs/inventory_backend/models"
	"github.com/simsfs/inventory_backend/utils"
	"github.com/xuri/excelize/v2"
)

const stockSheet = "Stock"

var stockHeadings = []string{
	"Item ID", "Item Type", "Category", "Subcategory", "Item Name",
	"Purchase Price", "Sale Price", "Purchased", "Sold", "Remaining",
	"Reorder Level", "Reorder Required", "Last Updated",
}

func stockRow(item *models.StockItem) []interface{} {
	return []interface{}{
		item.ItemId,
		item.ItemType,
		item.ItemCategory,
		item.ItemSubcategory,
		item.ItemName,
		item.PurchasePrice.InexactFloat64(),
		item.SalePrice.InexactFloat64(),
		item.QuantityPurchased,
		item.QuantitySold,
		item.QuantityRemaining(),
		item.ReorderLevel,
		string(item.ReorderRequired),
		utils.FormatDate(item.UpdatedAt),
	}
}

// ExportStockItemsExcel writes the stock list as an xlsx workbook.
func ExportStockItemsExcel(ctx context.Context, w io.Writer, filter models.StockItemFilter) error {
	items, err := models.ListStockItems(ctx, filter)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", stockSheet); err != nil {
		return err
	}

	if err := f.SetSheetRow(stockSheet, "A1", &stockHeadings); err != nil {
		return err
	}
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	lastCol, err := excelize.ColumnNumberToName(len(stockHeadings))
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(stockSheet, "A1", lastCol+"1", style); err != nil {
		return err
	}

	for i, item := range items {
		row := stockRow(item)
		if err := f.SetSheetRow(stockSheet, fmt.Sprintf("A%d", i+2), &row); err != nil {
			return err
		}
	}

	_, err = f.WriteTo(w)
	return err
}
