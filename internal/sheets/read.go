package sheets

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/Spok95/stock-planner/internal/domain/allocation"
	"github.com/Spok95/stock-planner/internal/domain/catalog"
	"github.com/Spok95/stock-planner/internal/domain/demand"
	"github.com/Spok95/stock-planner/internal/domain/inventory"
	"github.com/Spok95/stock-planner/internal/domain/reconcile"
)

// Имена листов рабочей книги планирования.
const (
	SheetReport     = "amz_fba_report"
	SheetBreakdown  = "Standardized_Breakdown"
	SheetInventory  = "Available Inventory"
	SheetShipments  = "Shipments_to_Amazon"
	SheetBundles    = "PVPV_Export"
	SheetCompiled   = "Compiled"
	SheetLegacy     = "WalmartExport"
	SheetVendorPO   = "VendoPO"
	reviewStatus    = "review"
	colSearchStatus = "search_status"
	colStatus       = "Status"
	colMatchedSKU   = "MATCHED_NEW_SKU"
)

// Workbook — книга с входными таблицами.
type Workbook struct {
	f    *excelize.File
	path string
}

func Open(path string) (*Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	return &Workbook{f: f, path: path}, nil
}

func OpenBytes(data []byte) (*Workbook, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return &Workbook{f: f}, nil
}

// FromFile оборачивает уже открытую книгу.
func FromFile(f *excelize.File) *Workbook { return &Workbook{f: f} }

func (w *Workbook) Close() error { return w.f.Close() }

// Save сохраняет книгу по исходному пути.
func (w *Workbook) Save() error {
	if w.path == "" {
		return fmt.Errorf("workbook has no path")
	}
	return w.f.SaveAs(w.path)
}

func (w *Workbook) File() *excelize.File { return w.f }

func (w *Workbook) ReportRows() ([]demand.ReportRow, error) {
	t, err := readTable(w.f, SheetReport, "sku", "available", "units-shipped-t90", "Recommended ship-in quantity")
	if err != nil {
		return nil, err
	}
	out := make([]demand.ReportRow, 0, len(t.rows))
	for _, row := range t.rows {
		sku := t.str(row, "sku")
		if sku == "" {
			continue
		}
		out = append(out, demand.ReportRow{
			SKU:             sku,
			ProductName:     t.str(row, "product-name"),
			Available:       t.integer(row, "available"),
			UnitsT7:         t.integer(row, "units-shipped-t7"),
			UnitsT30:        t.integer(row, "units-shipped-t30"),
			UnitsT60:        t.integer(row, "units-shipped-t60"),
			UnitsT90:        t.integer(row, "units-shipped-t90"),
			SalesT7:         t.dec(row, "sales-shipped-last-7-days"),
			SalesT30:        t.dec(row, "sales-shipped-last-30-days"),
			SalesT60:        t.dec(row, "sales-shipped-last-60-days"),
			SalesT90:        t.dec(row, "sales-shipped-last-90-days"),
			RecommendedQty:  t.integer(row, "Recommended ship-in quantity"),
			RecommendedDate: t.str(row, "Recommended ship-in date"),
		})
	}
	return out, nil
}

// CatalogRows — разложение SKU на компоненты.
func (w *Workbook) CatalogRows() ([]catalog.Row, error) {
	t, err := readTable(w.f, SheetBreakdown, "SKU", "UPC", "Quantity", "Type")
	if err != nil {
		return nil, err
	}
	out := make([]catalog.Row, 0, len(t.rows))
	for _, row := range t.rows {
		sku := t.str(row, "SKU")
		if sku == "" {
			continue
		}
		name := t.str(row, "Standardized Name")
		if name == "" {
			name = t.str(row, "Original Name")
		}
		product := t.str(row, "Product Name")
		if product == "" {
			product = t.str(row, "Original Name")
		}
		out = append(out, catalog.Row{
			SKU:         sku,
			ProductName: product,
			Type:        t.str(row, "Type"),
			ComponentID: t.str(row, "UPC"),
			Component:   name,
			Quantity:    t.integer(row, "Quantity"),
			WeightOz:    t.num(row, "Weight_Oz"),
		})
	}
	return out, nil
}

func (w *Workbook) InventoryRows() ([]inventory.Row, error) {
	t, err := readTable(w.f, SheetInventory, "UPC", "Quantity")
	if err != nil {
		return nil, err
	}
	out := make([]inventory.Row, 0, len(t.rows))
	for _, row := range t.rows {
		upc := t.str(row, "UPC")
		if upc == "" {
			continue
		}
		out = append(out, inventory.Row{ComponentID: upc, Qty: t.integer(row, "Quantity")})
	}
	return out, nil
}

// Components — справочник компонентов из листа остатков (имя в колонке Item).
func (w *Workbook) Components() ([]catalog.Component, error) {
	t, err := readTable(w.f, SheetInventory, "UPC")
	if err != nil {
		return nil, err
	}
	var out []catalog.Component
	for _, row := range t.rows {
		upc := t.str(row, "UPC")
		if upc == "" {
			continue
		}
		out = append(out, catalog.Component{ID: upc, Name: t.str(row, "Item"), WeightOz: t.num(row, "Weight_Oz")})
	}
	return out, nil
}

// Shipments — лист отгрузок необязателен: без него запланированных количеств нет.
func (w *Workbook) Shipments() ([]demand.Shipment, error) {
	t, err := readTable(w.f, SheetShipments, "SKU", "Status", "Quantity")
	if err != nil {
		if isMissingSheet(err) {
			return nil, nil
		}
		return nil, err
	}
	out := make([]demand.Shipment, 0, len(t.rows))
	for _, row := range t.rows {
		out = append(out, demand.Shipment{
			SKU:    t.str(row, "SKU"),
			Status: t.str(row, "Status"),
			Qty:    t.integer(row, "Quantity"),
		})
	}
	return out, nil
}

// Requests — запросы поставщика (VendoPO) для листа потребности в компонентах.
func (w *Workbook) Requests() ([]allocation.Request, error) {
	t, err := readTable(w.f, SheetVendorPO, "SKU", "Quantity")
	if err != nil {
		return nil, err
	}
	out := make([]allocation.Request, 0, len(t.rows))
	for _, row := range t.rows {
		sku := t.str(row, "SKU")
		if sku == "" {
			continue
		}
		out = append(out, allocation.Request{SKU: sku, Qty: t.integer(row, "Quantity")})
	}
	return out, nil
}

// BundleRows — разложение наборов (parent_sku, child_sku, child_quantity).
// Тот же лист служит и индексом сверки, и историческим разложением.
func (w *Workbook) BundleRows() ([]reconcile.IndexRow, error) {
	t, err := readTable(w.f, SheetBundles, "parent_sku", "child_sku", "child_quantity")
	if err != nil {
		return nil, err
	}
	out := make([]reconcile.IndexRow, 0, len(t.rows))
	for _, row := range t.rows {
		out = append(out, reconcile.IndexRow{
			BundleSKU:   t.str(row, "parent_sku"),
			ComponentID: t.str(row, "child_sku"),
			Qty:         t.integer(row, "child_quantity"),
		})
	}
	return out, nil
}

// Compiled — перекодировка previous_upc -> Upc и список действующих SKU.
func (w *Workbook) Compiled() (map[string]string, []string, error) {
	t, err := readTable(w.f, SheetCompiled, "Upc", "previous_upc", "sku")
	if err != nil {
		return nil, nil, err
	}
	remaps := make(map[string]string)
	var skus []string
	for _, row := range t.rows {
		if prev := t.str(row, "previous_upc"); prev != "" {
			if _, seen := remaps[prev]; !seen {
				remaps[prev] = t.str(row, "Upc")
			}
		}
		if sku := t.str(row, "sku"); sku != "" {
			skus = append(skus, sku)
		}
	}
	return remaps, skus, nil
}

// LegacyProducts — строки WalmartExport со статусом Review.
func (w *Workbook) LegacyProducts() ([]reconcile.LegacyProduct, error) {
	t, err := readTable(w.f, SheetLegacy, "SKU", colStatus)
	if err != nil {
		return nil, err
	}
	var out []reconcile.LegacyProduct
	for _, row := range t.rows {
		if !strings.EqualFold(t.str(row, colStatus), reviewStatus) {
			continue
		}
		sku := t.str(row, "SKU")
		if sku == "" {
			continue
		}
		out = append(out, reconcile.LegacyProduct{SKU: sku, ItemName: t.str(row, "Item Name")})
	}
	return out, nil
}

func isMissingSheet(err error) bool { return errors.Is(err, ErrSheetMissing) }
