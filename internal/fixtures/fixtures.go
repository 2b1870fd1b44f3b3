package fixtures

import (
	"fmt"
	"os"
	"time"

	"tms/internal/models"

	"gopkg.in/yaml.v2"
)

// Dataset is the initial content of the ledger collections.
type Dataset struct {
	Equipment []models.Equipment `yaml:"equipment"`
	People    []models.Person    `yaml:"people"`
	Orders    []models.Order     `yaml:"orders"`
}

const (
	deptPhotography = "قسم التصوير"
	deptEngineering = "الإدارة الهندسية"
	deptLighting    = "الإضاءة"
	deptNews        = "قسم الأخبار"
)

func staff(id, name, title, dept string) models.Person {
	return models.Person{ID: id, FullName: name, JobTitle: title, Department: dept, IsActive: true}
}

// Default returns the built-in dataset. The seeded order is dated one day before now.
func Default(now time.Time) Dataset {
	return Dataset{
		Equipment: DefaultEquipment(),
		People:    DefaultPeople(),
		Orders:    DefaultOrders(now),
	}
}

func DefaultEquipment() []models.Equipment {
	return []models.Equipment{
		{
			ID: "eq-001", Name: "Sony FX6 Camera A", Category: models.CategoryCamera, Model: "Sony FX6",
			SerialNumber: "S-123456", Ownership: models.OwnershipChannel, Status: models.StatusAvailable,
			Location: "Ref-A1", Notes: "Main studio camera",
		},
		{
			ID: "eq-002", Name: "Sony FX3 Camera", Category: models.CategoryCamera, Model: "Sony FX3",
			SerialNumber: "S-789012", Ownership: models.OwnershipChannel, Status: models.StatusCheckedOut,
			Location: "Ref-A2",
		},
		{
			ID: "eq-003", Name: "Tripod Sachtler", Category: models.CategoryTripod, Model: "Flowtech 75",
			SerialNumber: "TR-555", Ownership: models.OwnershipChannel, Status: models.StatusAvailable,
			Location: "Ref-B1",
		},
		{
			ID: "eq-004", Name: "LiveU Unit 1", Category: models.CategoryBroadcastBag, Model: "LU300",
			SerialNumber: "LU-9988", Ownership: models.OwnershipChannel, Status: models.StatusAvailable,
			Location: "Ref-C1",
		},
		{
			ID: "eq-005", Name: "Sennheiser Mic Kit", Category: models.CategoryAudio, Model: "G4",
			SerialNumber: "SN-1122", Ownership: models.OwnershipPersonal, OwnerName: "محمد الكاسح",
			Status: models.StatusAvailable, Location: "Ref-D1",
		},
		{
			ID: "eq-006", Name: "SanDisk Extreme Pro", Category: models.CategoryMemoryCard, Model: "128GB",
			SerialNumber: "SD-001", Ownership: models.OwnershipChannel, Status: models.StatusAvailable,
			Location: "Box-1", MediaType: models.MediaSD, Capacity: "128GB",
		},
	}
}

func DefaultPeople() []models.Person {
	people := []models.Person{
		// photographers
		staff("p-01", "محمد الكاسح", "مصور", deptPhotography),
		staff("p-02", "محمد الجفايري", "مصور", deptPhotography),
		staff("p-03", "عادل الزرقاني", "مصور", deptPhotography),
		staff("p-04", "صفوان زاوية", "مصور", deptPhotography),
		staff("p-05", "أحمد ابوظهير", "مصور", deptPhotography),
		staff("p-06", "وليد عياش", "مصور", deptPhotography),
		staff("p-07", "سهيل الغرياني", "مصور", deptPhotography),
		staff("p-08", "محمد حبيب", "مصور", deptPhotography),
		staff("p-09", "نصرالدين الزوبيك", "مصور", deptPhotography),
		staff("p-10", "حكيم التركي", "مصور", deptPhotography),
		staff("p-11", "عدنان", "مصور", deptPhotography),
		staff("p-12", "محمد العبيدي", "مصور", deptPhotography),

		// broadcast engineers
		staff("e-01", "معز بن سالم", "مهندس بث", deptEngineering),
		staff("e-02", "فؤاد بن سعيد", "مهندس بث", deptEngineering),
		staff("e-03", "محمد الجوادي", "مهندس بث", deptEngineering),
		staff("e-04", "مؤيد الورشفاني", "مهندس بث", deptEngineering),
		staff("e-05", "مالك النفاتي", "مهندس بث", deptEngineering),
		staff("e-06", "عبدالرؤوف قاجوم", "مهندس بث", deptEngineering),

		staff("m-01", "مجدي الشريف", "مدير إدارة الإنتاج", "الإدارة"),

		staff("l-01", "نصر الدين التركي", "مهندس إضاءة", deptLighting),
		staff("l-02", "محمد مسعود", "مهندس إضاءة", deptLighting),
		staff("l-03", "يوسف الشارف", "مهندس إضاءة", deptLighting),

		// reporters
		staff("rep-01", "عادل عاشور", "مراسل", deptNews),
		staff("rep-02", "أحمد الورشفاني", "مراسل", deptNews),
		staff("rep-03", "فرج المجبري", "مراسل", deptNews),
		staff("rep-04", "معتصم ابوعمارة", "مراسل", deptNews),
	}
	people[23].Notes = "قناة التناصح التعليمية"
	return people
}

func DefaultOrders(now time.Time) []models.Order {
	return []models.Order{
		{
			ID:          "ord-1001",
			OrderNumber: 1001,
			PersonID:    "p-01",
			PersonName:  "محمد الكاسح",
			Type:        models.OrderShooting,
			DateOut:     now.Add(-24 * time.Hour),
			Status:      models.OrderActive,
			CreatedBy:   "Admin",
			Items: []models.OrderItem{
				{EquipmentID: "eq-002", EquipmentName: "Sony FX3 Camera", ConditionOut: "Excellent"},
			},
		},
	}
}

// LoadFile reads a dataset from a YAML file. Empty equipment or people
// sections fall back to the built-in defaults; the default order is kept
// only together with the default equipment it references.
func LoadFile(path string, now time.Time) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}

	var ds Dataset
	if err := yaml.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("parse dataset: %w", err)
	}

	def := Default(now)
	if len(ds.Equipment) == 0 {
		ds.Equipment = def.Equipment
		if len(ds.Orders) == 0 {
			ds.Orders = def.Orders
		}
	}
	if len(ds.People) == 0 {
		ds.People = def.People
	}
	return &ds, nil
}
