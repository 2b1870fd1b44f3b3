package google

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"tms/internal/models"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const (
	OrdersSheet    = "Orders"
	EquipmentSheet = "Equipment"

	dateLayout = "2006-01-02 15:04"
)

var (
	orderHeaders = []interface{}{
		"رقم الإذن", "المعرف", "المستلم", "نوع الإذن", "الحالة",
		"تاريخ الخروج", "تاريخ الإرجاع", "المعدات", "ملاحظات", "أنشئ بواسطة",
	}
	equipmentHeaders = []interface{}{
		"المعرف", "الاسم", "الفئة", "الموديل", "الرقم التسلسلي", "الملكية",
		"المالك", "الحالة", "الموقع", "السعة", "نوع الوسيط", "ملاحظات",
	}
)

// SheetsService mirrors the ledger into one spreadsheet. Each sheet is
// cleared and rewritten on every sync.
type SheetsService struct {
	service       *sheets.Service
	spreadsheetID string
	mu            sync.Mutex
}

func NewSheetsService(ctx context.Context, credentialsFile, spreadsheetID string) (*SheetsService, error) {
	credentialsJSON, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %w", err)
	}

	config, err := google.JWTConfigFromJSON(credentialsJSON, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %w", err)
	}

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(config.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to create Sheets service: %w", err)
	}

	return NewSheetsServiceWith(srv, spreadsheetID), nil
}

// NewSheetsServiceWith wraps an already configured Sheets client.
func NewSheetsServiceWith(srv *sheets.Service, spreadsheetID string) *SheetsService {
	return &SheetsService{service: srv, spreadsheetID: spreadsheetID}
}

// TestConnection reads the first cell of the orders sheet.
func (s *SheetsService) TestConnection(ctx context.Context) error {
	_, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, OrdersSheet+"!A1").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("connection test failed: %w", err)
	}
	return nil
}

// ServiceAccountEmail returns the client_email of a credentials file. The
// spreadsheet must be shared with this address.
func ServiceAccountEmail(credentialsFile string) (string, error) {
	file, err := os.ReadFile(credentialsFile)
	if err != nil {
		return "", err
	}

	var creds struct {
		ClientEmail string `json:"client_email"`
	}
	if err := json.Unmarshal(file, &creds); err != nil {
		return "", err
	}
	return creds.ClientEmail, nil
}

func (s *SheetsService) ReplaceOrdersSheet(ctx context.Context, orders []models.Order) error {
	values := make([][]interface{}, 0, len(orders)+1)
	values = append(values, orderHeaders)
	for i := range orders {
		values = append(values, orderRow(&orders[i]))
	}
	return s.replaceSheet(ctx, OrdersSheet, values)
}

func (s *SheetsService) ReplaceEquipmentSheet(ctx context.Context, equipment []models.Equipment) error {
	values := make([][]interface{}, 0, len(equipment)+1)
	values = append(values, equipmentHeaders)
	for i := range equipment {
		values = append(values, equipmentRow(&equipment[i]))
	}
	return s.replaceSheet(ctx, EquipmentSheet, values)
}

func (s *SheetsService) replaceSheet(ctx context.Context, sheet string, values [][]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.service.Spreadsheets.Values.Clear(s.spreadsheetID, sheet+"!A:Z", &sheets.ClearValuesRequest{}).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to clear %s sheet: %w", sheet, err)
	}

	_, err = s.service.Spreadsheets.Values.Update(s.spreadsheetID, sheet+"!A1", &sheets.ValueRange{Values: values}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to update %s sheet: %w", sheet, err)
	}
	return nil
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
		o.ID,
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
		e.ID,
		e.Name,
		e.Category.Label(),
		e.Model,
		e.SerialNumber,
		e.Ownership.Label(),
		e.OwnerName,
		e.Status.Label(),
		e.Location,
		e.Capacity,
		string(e.MediaType),
		e.Notes,
	}
}
