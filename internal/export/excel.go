package export

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"tms/internal/domain"
	"tms/internal/models"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

const (
	ordersSheet    = "الأذونات"
	equipmentSheet = "المعدات"
	peopleSheet    = "الموظفون"

	dateLayout = "2006-01-02 15:04"
)

var (
	orderHeaders     = []string{"رقم الإذن", "المستلم", "نوع الإذن", "الحالة", "تاريخ الخروج", "تاريخ الإرجاع", "المعدات", "ملاحظات", "أنشئ بواسطة"}
	equipmentHeaders = []string{"المعرف", "الاسم", "الفئة", "الموديل", "الرقم التسلسلي", "الملكية", "المالك", "الحالة", "الموقع", "السعة", "نوع الوسيط"}
	peopleHeaders    = []string{"المعرف", "الاسم", "الوظيفة", "القسم", "الهاتف", "نشط", "ملاحظات"}
)

// Exporter renders the ledger into xlsx workbooks.
type Exporter struct {
	ledger domain.LedgerReader
	dir    string
	logger *zerolog.Logger
	now    func() time.Time
}

func NewExporter(ledger domain.LedgerReader, dir string, logger *zerolog.Logger) *Exporter {
	return &Exporter{ledger: ledger, dir: dir, logger: logger, now: time.Now}
}

// LedgerWorkbook builds a workbook with the orders, equipment and people sheets.
func (e *Exporter) LedgerWorkbook(ctx context.Context) (*excelize.File, error) {
	orders, err := e.ledger.Orders(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting orders: %w", err)
	}
	equipment, err := e.ledger.Equipment(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting equipment: %w", err)
	}
	people, err := e.ledger.People(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting people: %w", err)
	}

	f := excelize.NewFile()

	ordersRows := make([][]interface{}, 0, len(orders))
	for i := range orders {
		ordersRows = append(ordersRows, orderRow(&orders[i]))
	}
	equipmentRows := make([][]interface{}, 0, len(equipment))
	for i := range equipment {
		equipmentRows = append(equipmentRows, equipmentRow(&equipment[i]))
	}
	peopleRows := make([][]interface{}, 0, len(people))
	for i := range people {
		peopleRows = append(peopleRows, personRow(&people[i]))
	}

	if err := writeTable(f, ordersSheet, orderHeaders, ordersRows); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeTable(f, equipmentSheet, equipmentHeaders, equipmentRows); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeTable(f, peopleSheet, peopleHeaders, peopleRows); err != nil {
		f.Close()
		return nil, err
	}

	finish(f, ordersSheet)
	return f, nil
}

// PersonReport builds a one-sheet workbook with the order history of a
// person. Deleted people are reported under the name kept on their orders.
func (e *Exporter) PersonReport(ctx context.Context, personID string) (*excelize.File, error) {
	orders, err := e.ledger.Orders(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting orders: %w", err)
	}
	people, err := e.ledger.People(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting people: %w", err)
	}

	var history []models.Order
	for _, o := range orders {
		if o.PersonID == personID {
			history = append(history, o)
		}
	}
	sort.SliceStable(history, func(i, j int) bool {
		return history[i].DateOut.After(history[j].DateOut)
	})

	name := models.UnknownPersonName
	found := false
	for _, p := range people {
		if p.ID == personID {
			name, found = p.FullName, true
			break
		}
	}
	if !found && len(history) > 0 {
		name = history[0].PersonName
	}
	if !found && len(history) == 0 {
		return nil, fmt.Errorf("person %q has no record", personID)
	}

	rows := make([][]interface{}, 0, len(history))
	active := 0
	for i := range history {
		rows = append(rows, orderRow(&history[i]))
		if history[i].IsActive() {
			active++
		}
	}

	f := excelize.NewFile()
	sheet := truncateSheetName(name)
	if err := writeTable(f, sheet, orderHeaders, rows); err != nil {
		f.Close()
		return nil, err
	}

	summaryRow := len(rows) + 3
	cell, _ := excelize.CoordinatesToCellName(1, summaryRow)
	_ = f.SetCellValue(sheet, cell, fmt.Sprintf("إجمالي الأذونات: %d، النشطة: %d", len(history), active))

	finish(f, sheet)
	return f, nil
}

// WriteLedger streams the ledger workbook to w.
func (e *Exporter) WriteLedger(ctx context.Context, w io.Writer) error {
	f, err := e.LedgerWorkbook(ctx)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Write(w)
}

// WritePersonReport streams a person's report to w.
func (e *Exporter) WritePersonReport(ctx context.Context, personID string, w io.Writer) error {
	f, err := e.PersonReport(ctx, personID)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Write(w)
}

// SaveLedger writes the ledger workbook into the export directory and
// returns the file path.
func (e *Exporter) SaveLedger(ctx context.Context) (string, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %w", err)
	}

	f, err := e.LedgerWorkbook(ctx)
	if err != nil {
		return "", err
	}
	defer f.Close()

	filePath := filepath.Join(e.dir, fmt.Sprintf("ledger_%s.xlsx", e.now().Format("20060102_150405")))
	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %w", err)
	}

	e.logger.Info().Str("file_path", filePath).Msg("Excel file created")
	return filePath, nil
}

func writeTable(f *excelize.File, sheet string, headers []string, rows [][]interface{}) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("error creating sheet %s: %w", sheet, err)
	}

	rtl := true
	_ = f.SetSheetView(sheet, 0, &excelize.ViewOptions{RightToLeft: &rtl})

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})

	for col, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}
	first, _ := excelize.CoordinatesToCellName(1, 1)
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	_ = f.SetCellStyle(sheet, first, last, headerStyle)

	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("error writing row %d of %s: %w", i+2, sheet, err)
		}
	}

	lastCol, _ := excelize.ColumnNumberToName(len(headers))
	_ = f.SetColWidth(sheet, "A", lastCol, 20)
	return nil
}

// finish activates the main sheet and drops the default one.
func finish(f *excelize.File, active string) {
	_ = f.DeleteSheet("Sheet1")
	if idx, err := f.GetSheetIndex(active); err == nil && idx >= 0 {
		f.SetActiveSheet(idx)
	}
}

// truncateSheetName keeps a sheet title within Excel's 31 character limit.
func truncateSheetName(name string) string {
	name = strings.NewReplacer(":", " ", "/", " ", "\\", " ", "?", " ", "*", " ", "[", " ", "]", " ").Replace(name)
	r := []rune(strings.TrimSpace(name))
	if len(r) == 0 {
		return models.UnknownPersonName
	}
	if len(r) > 31 {
		r = r[:31]
	}
	return string(r)
}

func orderRow(o *models.Order) []interface{} {
	dateIn := ""
	if o.DateIn != nil {
		dateIn = o.DateIn.Format(dateLayout)
	}
	names := make([]string, 0, len(o.Items))
	for _, it := range o.Items {
		names = append(names, it.EquipmentName)
	}
	return []interface{}{
		o.OrderNumber,
		o.PersonName,
		o.Type.Label(),
		o.Status.Label(),
		o.DateOut.Format(dateLayout),
		dateIn,
		strings.Join(names, "، "),
		o.Notes,
		o.CreatedBy,
	}
}

func equipmentRow(e *models.Equipment) []interface{} {
	return []interface{}{
		e.ID, e.Name, e.Category.Label(), e.Model, e.SerialNumber, e.Ownership.Label(),
		e.OwnerName, e.Status.Label(), e.Location, e.Capacity, string(e.MediaType),
	}
}

func personRow(p *models.Person) []interface{} {
	active := "لا"
	if p.IsActive {
		active = "نعم"
	}
	return []interface{}{p.ID, p.FullName, p.JobTitle, p.Department, p.Phone, active, p.Notes}
}
