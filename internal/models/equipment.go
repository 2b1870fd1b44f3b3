package models

// EquipmentCategory groups inventory items for listing and reports.
type EquipmentCategory string

const (
	CategoryCamera           EquipmentCategory = "camera"
	CategoryStaticCamera     EquipmentCategory = "static_camera"
	CategoryBroadcastBag     EquipmentCategory = "broadcast_bag"
	CategoryTripod           EquipmentCategory = "tripod"
	CategoryOutdoorBroadcast EquipmentCategory = "outdoor_broadcast"
	CategoryProduction       EquipmentCategory = "production"
	CategoryAudio            EquipmentCategory = "audio"
	CategoryLighting         EquipmentCategory = "lighting"
	CategoryMemoryCard       EquipmentCategory = "memory_card"
	CategoryStorageDrive     EquipmentCategory = "storage_drive"
	CategoryOther            EquipmentCategory = "other"
)

var categoryLabels = map[EquipmentCategory]string{
	CategoryCamera:           "كاميرات تصوير",
	CategoryStaticCamera:     "كاميرات ثابتة",
	CategoryBroadcastBag:     "شنط بث",
	CategoryTripod:           "ترايبودات",
	CategoryOutdoorBroadcast: "معدات بث خارجي",
	CategoryProduction:       "معدات إنتاج",
	CategoryAudio:            "معدات صوت",
	CategoryLighting:         "معدات إضاءة",
	CategoryMemoryCard:       "دواكر",
	CategoryStorageDrive:     "هاردات تسجيل",
	CategoryOther:            "معدات أخرى",
}

func (c EquipmentCategory) Valid() bool {
	_, ok := categoryLabels[c]
	return ok
}

func (c EquipmentCategory) Label() string {
	if l, ok := categoryLabels[c]; ok {
		return l
	}
	return string(c)
}

// Ownership records which organisation (or person) owns an item.
type Ownership string

const (
	OwnershipChannel  Ownership = "channel"
	OwnershipTafawq   Ownership = "tafawq"
	OwnershipZawiya   Ownership = "zawiya"
	OwnershipMisrata  Ownership = "misrata"
	OwnershipIstanbul Ownership = "istanbul"
	OwnershipPersonal Ownership = "personal"
)

var ownershipLabels = map[Ownership]string{
	OwnershipChannel:  "قناة التناصح",
	OwnershipTafawq:   "شركة التفوق",
	OwnershipZawiya:   "مكتب الزاوية",
	OwnershipMisrata:  "مكتب مصراتة",
	OwnershipIstanbul: "مكتب اسطنبول",
	OwnershipPersonal: "شخصي",
}

func (o Ownership) Valid() bool {
	_, ok := ownershipLabels[o]
	return ok
}

func (o Ownership) Label() string {
	if l, ok := ownershipLabels[o]; ok {
		return l
	}
	return string(o)
}

// EquipmentStatus is the lifecycle state of an inventory item.
// StatusCheckedOut is owned by the order lifecycle; the rest are set manually.
type EquipmentStatus string

const (
	StatusAvailable   EquipmentStatus = "available"
	StatusCheckedOut  EquipmentStatus = "checked_out"
	StatusMaintenance EquipmentStatus = "maintenance"
	StatusDamaged     EquipmentStatus = "damaged"
	StatusLost        EquipmentStatus = "lost"
)

var equipmentStatusLabels = map[EquipmentStatus]string{
	StatusAvailable:   "متوفر",
	StatusCheckedOut:  "خارج الأرشيف",
	StatusMaintenance: "تحت الصيانة",
	StatusDamaged:     "تالف",
	StatusLost:        "مفقود",
}

func (s EquipmentStatus) Valid() bool {
	_, ok := equipmentStatusLabels[s]
	return ok
}

func (s EquipmentStatus) Label() string {
	if l, ok := equipmentStatusLabels[s]; ok {
		return l
	}
	return string(s)
}

type MediaType string

const (
	MediaSD  MediaType = "SD"
	MediaSSD MediaType = "SSD"
	MediaHDD MediaType = "HDD"
)

func (m MediaType) Valid() bool {
	switch m {
	case "", MediaSD, MediaSSD, MediaHDD:
		return true
	}
	return false
}

type Equipment struct {
	ID           string            `json:"id" yaml:"id"`
	Name         string            `json:"name" yaml:"name"`
	Category     EquipmentCategory `json:"category" yaml:"category"`
	Model        string            `json:"model" yaml:"model"`
	SerialNumber string            `json:"serial_number" yaml:"serial_number"`
	Ownership    Ownership         `json:"ownership" yaml:"ownership"`
	OwnerName    string            `json:"owner_name,omitempty" yaml:"owner_name"`
	Status       EquipmentStatus   `json:"status" yaml:"status"`
	Location     string            `json:"location" yaml:"location"`
	Notes        string            `json:"notes,omitempty" yaml:"notes"`
	Capacity     string            `json:"capacity,omitempty" yaml:"capacity"`
	MediaType    MediaType         `json:"media_type,omitempty" yaml:"media_type"`
}
