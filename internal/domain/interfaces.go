package domain

import (
	"context"

	"tms/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// SnapshotStore keeps whole-collection blobs under fixed keys.
// Load returns nil, nil when the key is absent.
type SnapshotStore interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// CredentialVerifier checks a username/password pair and returns the matching user.
type CredentialVerifier interface {
	Verify(username, password string) (*models.User, error)
}

type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type SheetsWriter interface {
	ReplaceOrdersSheet(ctx context.Context, orders []models.Order) error
	ReplaceEquipmentSheet(ctx context.Context, equipment []models.Equipment) error
}

// LedgerReader is the read side of the ledger used by observers.
type LedgerReader interface {
	Equipment(ctx context.Context) ([]models.Equipment, error)
	People(ctx context.Context) ([]models.Person, error)
	Orders(ctx context.Context) ([]models.Order, error)
}

type LedgerService interface {
	LedgerReader
	RegisterEquipment(ctx context.Context, req models.RegisterEquipmentRequest) (*models.Equipment, error)
	UpdateEquipment(ctx context.Context, id string, req models.UpdateEquipmentRequest) (*models.Equipment, error)
	SetEquipmentStatus(ctx context.Context, id string, status models.EquipmentStatus) (*models.Equipment, error)
	RegisterPerson(ctx context.Context, req models.RegisterPersonRequest) (*models.Person, error)
	DeletePerson(ctx context.Context, id string) error
	CreateOrder(ctx context.Context, req models.CreateOrderRequest) (*models.Order, error)
	CompleteOrder(ctx context.Context, req models.CompleteOrderRequest) (*models.Order, error)
	GetEquipment(ctx context.Context, id string) (*models.Equipment, error)
	GetPerson(ctx context.Context, id string) (*models.Person, error)
	GetOrder(ctx context.Context, id string) (*models.Order, error)
	ActiveOrders(ctx context.Context) ([]models.Order, error)
	PersonOrders(ctx context.Context, personID string) ([]models.Order, error)
	Stats(ctx context.Context) (models.LedgerStats, error)
}

type AuthService interface {
	Login(ctx context.Context, username, password string) (*models.User, error)
	Logout(ctx context.Context) error
	CurrentUser(ctx context.Context) (*models.User, error)
}
