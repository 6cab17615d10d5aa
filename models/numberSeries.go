package models

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/simsfs/inventory_backend/config"
	"github.com/simsfs/inventory_backend/utils"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

const identifierWidth = 5

type EntityClass string

const (
	EntityStockItem      EntityClass = "stock_item"
	EntitySupplier       EntityClass = "supplier"
	EntityCustomer       EntityClass = "customer"
	EntityPurchaseOrder  EntityClass = "purchase_order"
	EntityBill           EntityClass = "bill"
	EntitySalesOrder     EntityClass = "sales_order"
	EntityInvoice        EntityClass = "invoice"
	EntityPayment        EntityClass = "payment"
	EntityReceipt        EntityClass = "receipt"
	EntityPurchaseDetail EntityClass = "purchase_detail"
	EntitySalesDetail    EntityClass = "sales_detail"
)

var AllEntityClasses = []EntityClass{
	EntityStockItem, EntitySupplier, EntityCustomer,
	EntityPurchaseOrder, EntityBill, EntitySalesOrder, EntityInvoice,
	EntityPayment, EntityReceipt, EntityPurchaseDetail, EntitySalesDetail,
}

type idSource struct {
	Table  string
	Column string
}

// idSeries is one identifier namespace: a prefix, a width and every column that draws from it.
type idSeries struct {
	Prefix  string
	Width   int
	Sources []idSource
}

var (
	purchaseDetailSource = idSource{"purchase_details", "detail_id"}
	salesDetailSource    = idSource{"sales_details", "detail_id"}
)

func seriesFor(entity EntityClass) (idSeries, error) {
	switch entity {
	case EntityStockItem:
		return idSeries{"IT", identifierWidth, []idSource{{"stock_items", "item_id"}}}, nil
	case EntitySupplier:
		return idSeries{"S", identifierWidth, []idSource{{"suppliers", "supplier_id"}}}, nil
	case EntityCustomer:
		return idSeries{"C", identifierWidth, []idSource{{"customers", "customer_id"}}}, nil
	case EntityPurchaseOrder:
		return idSeries{"PO", identifierWidth, []idSource{{"purchase_orders", "po_id"}}}, nil
	case EntityBill:
		return idSeries{"B", identifierWidth, []idSource{{"purchase_orders", "bill_number"}}}, nil
	case EntitySalesOrder:
		return idSeries{"SO", identifierWidth, []idSource{{"sales_orders", "so_id"}}}, nil
	case EntityInvoice:
		return idSeries{"I", identifierWidth, []idSource{{"sales_orders", "invoice_number"}}}, nil
	case EntityPayment:
		return idSeries{"TRANSPAY", identifierWidth, []idSource{{"payments", "transaction_id"}}}, nil
	case EntityReceipt:
		return idSeries{"TRANSAL", identifierWidth, []idSource{{"receipts", "transaction_id"}}}, nil
	case EntityPurchaseDetail, EntitySalesDetail:
		if config.GetDetailIdScheme() == config.DetailIdSchemeShared {
			return idSeries{"D", identifierWidth, []idSource{purchaseDetailSource, salesDetailSource}}, nil
		}
		if entity == EntityPurchaseDetail {
			return idSeries{"PD", identifierWidth, []idSource{purchaseDetailSource}}, nil
		}
		return idSeries{"SD", identifierWidth, []idSource{salesDetailSource}}, nil
	}
	return idSeries{}, utils.ValidationError("unknown entity class %q", string(entity))
}

func (s idSeries) format(n int) string {
	return fmt.Sprintf("%s%0*d", s.Prefix, s.Width, n)
}

// suffix parses the numeric part after the exact prefix; ok is false for foreign or malformed ids.
func (s idSeries) suffix(id string) (int, bool) {
	if !strings.HasPrefix(id, s.Prefix) {
		return 0, false
	}
	digits := id[len(s.Prefix):]
	if digits == "" {
		return 0, false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	return n, true
}

func (s idSeries) maxSuffix(tx *gorm.DB) (int, error) {
	max := 0
	for _, src := range s.Sources {
		var ids []string
		if err := tx.Table(src.Table).Where(src.Column+" LIKE ?", s.Prefix+"%").Pluck(src.Column, &ids).Error; err != nil {
			return 0, err
		}
		for _, id := range ids {
			if n, ok := s.suffix(id); ok && n > max {
				max = n
			}
		}
	}
	return max, nil
}

func (s idSeries) exists(tx *gorm.DB, id string) (bool, error) {
	for _, src := range s.Sources {
		var count int64
		if err := tx.Table(src.Table).Where(src.Column+" = ?", id).Count(&count).Error; err != nil {
			return false, err
		}
		if count > 0 {
			return true, nil
		}
	}
	return false, nil
}

func (s idSeries) next(tx *gorm.DB) (string, error) {
	max, err := s.maxSuffix(tx)
	if err != nil {
		return "", err
	}
	n := max + 1
	for {
		candidate := s.format(n)
		taken, err := s.exists(tx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		n++
	}
}

func nextIdTx(tx *gorm.DB, entity EntityClass) (string, error) {
	series, err := seriesFor(entity)
	if err != nil {
		return "", err
	}
	return series.next(tx)
}

// identifierTaken reports whether id is already used anywhere in entity's series.
func identifierTaken(tx *gorm.DB, entity EntityClass, id string) (bool, error) {
	series, err := seriesFor(entity)
	if err != nil {
		return false, err
	}
	return series.exists(tx, id)
}

// pairedIdentifier returns the document number sharing the order id's numeric suffix
// (PO00012 -> B00012), falling back to the next free number of the document series.
func pairedIdentifier(tx *gorm.DB, orderEntity EntityClass, orderId string, docEntity EntityClass) (string, error) {
	orderSeries, err := seriesFor(orderEntity)
	if err != nil {
		return "", err
	}
	docSeries, err := seriesFor(docEntity)
	if err != nil {
		return "", err
	}
	if n, ok := orderSeries.suffix(orderId); ok {
		candidate := docSeries.format(n)
		taken, err := docSeries.exists(tx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}
	return docSeries.next(tx)
}

// NextId returns the next free identifier of an entity class. It does not reserve it.
func NextId(ctx context.Context, entity EntityClass) (string, error) {
	db := config.GetDB()
	return nextIdTx(db.WithContext(ctx), entity)
}

type renumberRow struct {
	DetailId  string
	OrderDate time.Time
	Table     string
}

// RenumberDetailIds rewrites every order-line identifier into one contiguous sequence
// ordered by order date. Returns the number of rewritten ids.
func RenumberDetailIds(ctx context.Context) (int, error) {
	ctx, span := startSpan(ctx, "RenumberDetailIds",
		attribute.String("scheme", string(config.GetDetailIdScheme())))
	var changed int
	detailSeries := append(lockedSeries(EntityPurchaseDetail), lockedSeries(EntitySalesDetail)...)
	err := utils.WithSeriesLocks(ctx, detailSeries, func() error {
		return runInTransaction(ctx, func(tx *gorm.DB) error {
			purchaseRows, err := loadRenumberRows(tx, purchaseDetailSource.Table, "purchase_orders", "po_id")
			if err != nil {
				return err
			}
			salesRows, err := loadRenumberRows(tx, salesDetailSource.Table, "sales_orders", "so_id")
			if err != nil {
				return err
			}

			var groups [][]renumberRow
			var series []idSeries
			if config.GetDetailIdScheme() == config.DetailIdSchemeShared {
				shared, _ := seriesFor(EntityPurchaseDetail)
				groups = append(groups, append(purchaseRows, salesRows...))
				series = append(series, shared)
			} else {
				pd, _ := seriesFor(EntityPurchaseDetail)
				sd, _ := seriesFor(EntitySalesDetail)
				groups = append(groups, purchaseRows, salesRows)
				series = append(series, pd, sd)
			}

			// first pass moves every row to a temporary id so the final ids never collide
			for _, rows := range groups {
				for _, row := range rows {
					if err := renameDetail(tx, row.Table, row.DetailId, "~"+row.DetailId); err != nil {
						return err
					}
				}
			}

			for i, rows := range groups {
				sort.SliceStable(rows, func(a, b int) bool {
					if !rows[a].OrderDate.Equal(rows[b].OrderDate) {
						return rows[a].OrderDate.Before(rows[b].OrderDate)
					}
					return rows[a].DetailId < rows[b].DetailId
				})
				for n, row := range rows {
					newId := series[i].format(n + 1)
					if newId != row.DetailId {
						changed++
					}
					if err := renameDetail(tx, row.Table, "~"+row.DetailId, newId); err != nil {
						return err
					}
				}
			}
			return nil
		})
	})
	endSpan(span, err)
	if err != nil {
		return 0, err
	}
	return changed, nil
}

func loadRenumberRows(tx *gorm.DB, detailTable string, orderTable string, orderKey string) ([]renumberRow, error) {
	var rows []renumberRow
	err := tx.Table(detailTable).
		Select(fmt.Sprintf("%s.detail_id AS detail_id, %s.order_date AS order_date", detailTable, orderTable)).
		Joins(fmt.Sprintf("JOIN %s ON %s.%s = %s.%s", orderTable, orderTable, orderKey, detailTable, orderKey)).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].Table = detailTable
	}
	return rows, nil
}

func renameDetail(tx *gorm.DB, table string, from string, to string) error {
	return tx.Table(table).Where("detail_id = ?", from).Update("detail_id", to).Error
}
