package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"tms/internal/domain"
	"tms/internal/events"
	"tms/internal/fixtures"
	"tms/internal/metrics"
	"tms/internal/models"

	"github.com/rs/zerolog"
)

// LedgerOptions customise seeding and the sources of time and identifiers.
type LedgerOptions struct {
	// Seed is used for every collection whose snapshot is absent.
	// Nil means the built-in dataset.
	Seed *fixtures.Dataset
	Now  func() time.Time
	// NewToken returns the random part of generated ids.
	NewToken func() string
}

// LedgerService owns the equipment, people and orders collections. It is the
// only writer of equipment status, which it keeps in step with active orders.
type LedgerService struct {
	store    domain.SnapshotStore
	eventBus domain.EventPublisher
	logger   *zerolog.Logger
	now      func() time.Time
	newToken func() string

	mu              sync.Mutex
	equipment       []models.Equipment
	people          []models.Person
	orders          []models.Order
	lastOrderNumber int
}

func NewLedgerService(
	ctx context.Context,
	store domain.SnapshotStore,
	eventBus domain.EventPublisher,
	opts LedgerOptions,
	logger *zerolog.Logger,
) (*LedgerService, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewToken == nil {
		opts.NewToken = RandomToken
	}
	seed := opts.Seed
	if seed == nil {
		ds := fixtures.Default(opts.Now())
		seed = &ds
	}

	s := &LedgerService{
		store:    store,
		eventBus: eventBus,
		logger:   logger,
		now:      opts.Now,
		newToken: opts.NewToken,
	}

	seeded, err := s.load(ctx, seed)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range seeded {
		s.persist(ctx, key)
	}
	if fixed := s.reconcile(); fixed > 0 {
		s.logger.Warn().Int("fixed", fixed).Msg("equipment status re-derived from active orders")
		s.persist(ctx, models.KeyEquipment)
	}
	s.lastOrderNumber = maxOrderNumber(s.orders)
	metrics.SetCheckedOut(s.countStatus(models.StatusCheckedOut))

	s.logger.Info().
		Int("equipment", len(s.equipment)).
		Int("people", len(s.people)).
		Int("orders", len(s.orders)).
		Strs("seeded", seeded).
		Msg("ledger loaded")

	return s, nil
}

// load reads the three snapshots and returns the keys that were seeded.
func (s *LedgerService) load(ctx context.Context, seed *fixtures.Dataset) ([]string, error) {
	var seeded []string

	found, err := s.loadKey(ctx, models.KeyEquipment, &s.equipment)
	if err != nil {
		return nil, err
	}
	if !found {
		s.equipment = append([]models.Equipment(nil), seed.Equipment...)
		seeded = append(seeded, models.KeyEquipment)
	}

	found, err = s.loadKey(ctx, models.KeyPeople, &s.people)
	if err != nil {
		return nil, err
	}
	if !found {
		s.people = append([]models.Person(nil), seed.People...)
		seeded = append(seeded, models.KeyPeople)
	}

	found, err = s.loadKey(ctx, models.KeyOrders, &s.orders)
	if err != nil {
		return nil, err
	}
	if !found {
		s.orders = cloneOrders(seed.Orders)
		seeded = append(seeded, models.KeyOrders)
	}

	return seeded, nil
}

func (s *LedgerService) loadKey(ctx context.Context, key string, dst interface{}) (bool, error) {
	data, err := s.store.Load(ctx, key)
	if err != nil {
		return false, fmt.Errorf("load %s: %w", key, err)
	}
	if data == nil {
		return false, nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// persist writes one collection. Failures are logged and counted; the
// in-memory state stays authoritative.
func (s *LedgerService) persist(ctx context.Context, key string) {
	var v interface{}
	switch key {
	case models.KeyEquipment:
		v = s.equipment
	case models.KeyPeople:
		v = s.people
	case models.KeyOrders:
		v = s.orders
	default:
		return
	}

	data, err := json.Marshal(v)
	if err == nil {
		err = s.store.Save(ctx, key, data)
	}
	if err != nil {
		metrics.IncSnapshotWriteError(key)
		s.logger.Error().Err(err).Str("key", key).Msg("snapshot write failed")
	}
}

func (s *LedgerService) RegisterEquipment(ctx context.Context, req models.RegisterEquipmentRequest) (*models.Equipment, error) {
	if err := validateEquipment(req); err != nil {
		return nil, err
	}

	s.mu.Lock()
	eq := models.Equipment{
		ID: uniqueID(models.PrefixEquipment, s.newToken, func(id string) bool {
			return s.equipmentIndex(id) >= 0
		}),
		Status: models.StatusAvailable,
	}
	applyEquipmentFields(&eq, req)

	s.equipment = append(append([]models.Equipment(nil), s.equipment...), eq)
	s.persist(ctx, models.KeyEquipment)
	s.mu.Unlock()

	s.logger.Info().Str("equipment_id", eq.ID).Str("name", eq.Name).Msg("equipment registered")
	s.publishEquipmentEvent(events.EventEquipmentRegistered, eq)
	return &eq, nil
}

func (s *LedgerService) UpdateEquipment(ctx context.Context, id string, req models.UpdateEquipmentRequest) (*models.Equipment, error) {
	if err := validateEquipment(req); err != nil {
		return nil, err
	}

	s.mu.Lock()
	idx := s.equipmentIndex(id)
	if idx < 0 {
		s.mu.Unlock()
		return nil, notFound("equipment", id)
	}

	eq := s.equipment[idx]
	applyEquipmentFields(&eq, req)

	updated := append([]models.Equipment(nil), s.equipment...)
	updated[idx] = eq
	s.equipment = updated
	s.persist(ctx, models.KeyEquipment)
	s.mu.Unlock()

	s.publishEquipmentEvent(events.EventEquipmentUpdated, eq)
	return &eq, nil
}

// SetEquipmentStatus applies a manual status. Checked-out is reserved for the
// order lifecycle, and items on an active order cannot be changed here.
func (s *LedgerService) SetEquipmentStatus(ctx context.Context, id string, status models.EquipmentStatus) (*models.Equipment, error) {
	verr := &ValidationError{}
	if !status.Valid() {
		verr.add("status", "unknown status")
	} else if status == models.StatusCheckedOut {
		verr.add("status", "checked_out is set by orders only")
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	idx := s.equipmentIndex(id)
	if idx < 0 {
		s.mu.Unlock()
		return nil, notFound("equipment", id)
	}
	eq := s.equipment[idx]
	if eq.Status == models.StatusCheckedOut {
		s.mu.Unlock()
		return nil, fmt.Errorf("%s: %w", id, ErrEquipmentCheckedOut)
	}

	eq.Status = status
	updated := append([]models.Equipment(nil), s.equipment...)
	updated[idx] = eq
	s.equipment = updated
	s.persist(ctx, models.KeyEquipment)
	s.mu.Unlock()

	s.logger.Info().Str("equipment_id", id).Str("status", string(status)).Msg("equipment status changed")
	s.publishEquipmentEvent(events.EventEquipmentUpdated, eq)
	return &eq, nil
}

func (s *LedgerService) RegisterPerson(ctx context.Context, req models.RegisterPersonRequest) (*models.Person, error) {
	verr := &ValidationError{}
	if strings.TrimSpace(req.FullName) == "" {
		verr.add("full_name", "required")
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	s.mu.Lock()
	p := models.Person{
		ID: uniqueID(models.PrefixPerson, s.newToken, func(id string) bool {
			return s.personIndex(id) >= 0
		}),
		FullName:   strings.TrimSpace(req.FullName),
		JobTitle:   req.JobTitle,
		Department: req.Department,
		Phone:      req.Phone,
		IsActive:   active,
		Notes:      req.Notes,
	}
	s.people = append(append([]models.Person(nil), s.people...), p)
	s.persist(ctx, models.KeyPeople)
	s.mu.Unlock()

	s.publishPersonEvent(events.EventPersonRegistered, p.ID, p.FullName)
	return &p, nil
}

// DeletePerson removes the person. Orders keep their copy of the name.
// Deleting an unknown id is a no-op.
func (s *LedgerService) DeletePerson(ctx context.Context, id string) error {
	s.mu.Lock()
	idx := s.personIndex(id)
	if idx < 0 {
		s.mu.Unlock()
		return nil
	}
	name := s.people[idx].FullName

	remaining := make([]models.Person, 0, len(s.people)-1)
	remaining = append(remaining, s.people[:idx]...)
	remaining = append(remaining, s.people[idx+1:]...)
	s.people = remaining
	s.persist(ctx, models.KeyPeople)
	s.mu.Unlock()

	s.logger.Info().Str("person_id", id).Msg("person deleted")
	s.publishPersonEvent(events.EventPersonDeleted, id, name)
	return nil
}

// CreateOrder checks out the requested equipment to a person. Availability is
// checked under the same lock that flips the status, so two orders can never
// hold the same item.
func (s *LedgerService) CreateOrder(ctx context.Context, req models.CreateOrderRequest) (*models.Order, error) {
	if err := validateCreateOrder(req); err != nil {
		return nil, err
	}

	s.mu.Lock()
	order, err := s.createOrder(ctx, req)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("order_id", order.ID).
		Int("order_number", order.OrderNumber).
		Str("person_id", order.PersonID).
		Int("items", len(order.Items)).
		Msg("order created")
	s.publishOrderEvent(events.EventOrderCreated, *order)
	return order, nil
}

func (s *LedgerService) createOrder(ctx context.Context, req models.CreateOrderRequest) (*models.Order, error) {
	pIdx := s.personIndex(req.PersonID)
	if pIdx < 0 {
		return nil, notFound("person", req.PersonID)
	}
	person := s.people[pIdx]
	if !person.IsActive {
		verr := &ValidationError{}
		verr.add("person_id", "person is not active")
		return nil, verr
	}

	equipment := append([]models.Equipment(nil), s.equipment...)
	items := make([]models.OrderItem, 0, len(req.EquipmentIDs))
	for _, id := range req.EquipmentIDs {
		idx := s.equipmentIndex(id)
		if idx < 0 {
			return nil, notFound("equipment", id)
		}
		if equipment[idx].Status != models.StatusAvailable {
			return nil, fmt.Errorf("%s (%s): %w", id, equipment[idx].Status, ErrEquipmentUnavailable)
		}
		equipment[idx].Status = models.StatusCheckedOut
		items = append(items, models.OrderItem{
			EquipmentID:   id,
			EquipmentName: equipment[idx].Name,
			ConditionOut:  models.DefaultConditionOut,
		})
	}

	order := models.Order{
		ID: uniqueID(models.PrefixOrder, s.newToken, func(id string) bool {
			return s.orderIndex(id) >= 0
		}),
		OrderNumber: s.lastOrderNumber + 1,
		PersonID:    person.ID,
		PersonName:  person.FullName,
		Type:        req.Type,
		DateOut:     s.now(),
		Items:       items,
		Notes:       req.Notes,
		Status:      models.OrderActive,
		CreatedBy:   req.CreatedBy,
	}

	orders := make([]models.Order, 0, len(s.orders)+1)
	orders = append(orders, order)
	orders = append(orders, s.orders...)

	s.orders = orders
	s.equipment = equipment
	s.lastOrderNumber = order.OrderNumber
	s.persist(ctx, models.KeyOrders)
	s.persist(ctx, models.KeyEquipment)
	metrics.SetCheckedOut(s.countStatus(models.StatusCheckedOut))

	out := order.Clone()
	return &out, nil
}

// CompleteOrder records the return of an active order and releases its
// equipment. Completing an order twice is rejected.
func (s *LedgerService) CompleteOrder(ctx context.Context, req models.CompleteOrderRequest) (*models.Order, error) {
	verr := &ValidationError{}
	if req.OrderID == "" {
		verr.add("order_id", "required")
	}
	if req.ReturnDate.IsZero() {
		verr.add("return_date", "required")
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	order, released, err := s.completeOrder(ctx, req)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("order_id", order.ID).
		Int("order_number", order.OrderNumber).
		Int("released", released).
		Msg("order completed")
	s.publishOrderEvent(events.EventOrderCompleted, *order)
	return order, nil
}

func (s *LedgerService) completeOrder(ctx context.Context, req models.CompleteOrderRequest) (*models.Order, int, error) {
	idx := s.orderIndex(req.OrderID)
	if idx < 0 {
		return nil, 0, notFound("order", req.OrderID)
	}
	current := s.orders[idx]
	if !current.IsActive() {
		return nil, 0, fmt.Errorf("%s: %w", req.OrderID, ErrOrderAlreadyCompleted)
	}
	for eqID := range req.ConditionsIn {
		if !current.References(eqID) {
			verr := &ValidationError{}
			verr.add("conditions_in", fmt.Sprintf("%s is not on this order", eqID))
			return nil, 0, verr
		}
	}

	order := current.Clone()
	returned := req.ReturnDate
	order.Status = models.OrderCompleted
	order.DateIn = &returned
	order.Notes = appendReturnNotes(order.Notes, req.Notes)
	for i := range order.Items {
		if c, ok := req.ConditionsIn[order.Items[i].EquipmentID]; ok {
			order.Items[i].ConditionIn = c
		}
	}

	orders := append([]models.Order(nil), s.orders...)
	orders[idx] = order

	equipment := append([]models.Equipment(nil), s.equipment...)
	released := 0
	for _, it := range order.Items {
		eqIdx := s.equipmentIndex(it.EquipmentID)
		if eqIdx < 0 || equipment[eqIdx].Status != models.StatusCheckedOut {
			continue
		}
		if referencedByActive(orders, it.EquipmentID) {
			continue
		}
		equipment[eqIdx].Status = models.StatusAvailable
		released++
	}

	s.orders = orders
	s.equipment = equipment
	s.persist(ctx, models.KeyOrders)
	s.persist(ctx, models.KeyEquipment)
	metrics.SetCheckedOut(s.countStatus(models.StatusCheckedOut))

	out := order.Clone()
	return &out, released, nil
}

// Reconcile re-derives every equipment status from the active orders and
// returns how many items were corrected.
func (s *LedgerService) Reconcile(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fixed := s.reconcile()
	if fixed > 0 {
		s.persist(ctx, models.KeyEquipment)
		metrics.SetCheckedOut(s.countStatus(models.StatusCheckedOut))
	}
	return fixed, nil
}

func (s *LedgerService) reconcile() int {
	equipment := append([]models.Equipment(nil), s.equipment...)
	fixed := 0
	for i := range equipment {
		out := referencedByActive(s.orders, equipment[i].ID)
		switch {
		case out && equipment[i].Status != models.StatusCheckedOut:
			equipment[i].Status = models.StatusCheckedOut
			fixed++
		case !out && equipment[i].Status == models.StatusCheckedOut:
			equipment[i].Status = models.StatusAvailable
			fixed++
		}
	}
	if fixed > 0 {
		s.equipment = equipment
	}
	return fixed
}

func (s *LedgerService) Equipment(ctx context.Context) ([]models.Equipment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Equipment, len(s.equipment))
	copy(out, s.equipment)
	return out, nil
}

func (s *LedgerService) People(ctx context.Context) ([]models.Person, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Person, len(s.people))
	copy(out, s.people)
	return out, nil
}

func (s *LedgerService) Orders(ctx context.Context) ([]models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneOrders(s.orders), nil
}

func (s *LedgerService) GetEquipment(ctx context.Context, id string) (*models.Equipment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.equipmentIndex(id)
	if idx < 0 {
		return nil, notFound("equipment", id)
	}
	eq := s.equipment[idx]
	return &eq, nil
}

func (s *LedgerService) GetPerson(ctx context.Context, id string) (*models.Person, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.personIndex(id)
	if idx < 0 {
		return nil, notFound("person", id)
	}
	p := s.people[idx]
	return &p, nil
}

func (s *LedgerService) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.orderIndex(id)
	if idx < 0 {
		return nil, notFound("order", id)
	}
	o := s.orders[idx].Clone()
	return &o, nil
}

// ActiveOrders returns the active orders, newest checkout first.
func (s *LedgerService) ActiveOrders(ctx context.Context) ([]models.Order, error) {
	s.mu.Lock()
	out := []models.Order{}
	for _, o := range s.orders {
		if o.IsActive() {
			out = append(out, o.Clone())
		}
	}
	s.mu.Unlock()

	sortByDateOutDesc(out)
	return out, nil
}

// PersonOrders returns every order of a person, newest checkout first. It
// works for deleted people too.
func (s *LedgerService) PersonOrders(ctx context.Context, personID string) ([]models.Order, error) {
	s.mu.Lock()
	out := []models.Order{}
	for _, o := range s.orders {
		if o.PersonID == personID {
			out = append(out, o.Clone())
		}
	}
	s.mu.Unlock()

	sortByDateOutDesc(out)
	return out, nil
}

func (s *LedgerService) Stats(ctx context.Context) (models.LedgerStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := models.LedgerStats{
		TotalEquipment: len(s.equipment),
		CheckedOut:     s.countStatus(models.StatusCheckedOut),
		InMaintenance:  s.countStatus(models.StatusMaintenance),
		TotalPeople:    len(s.people),
	}
	for _, o := range s.orders {
		if o.IsActive() {
			stats.ActiveOrders++
		} else {
			stats.CompletedOrders++
		}
	}
	return stats, nil
}

func (s *LedgerService) publishOrderEvent(eventType string, order models.Order) {
	if s.eventBus == nil {
		return
	}

	payload := events.OrderEventPayload{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		PersonID:    order.PersonID,
		PersonName:  order.PersonName,
		Type:        string(order.Type),
		Status:      string(order.Status),
		DateOut:     order.DateOut,
		DateIn:      order.DateIn,
		Notes:       order.Notes,
		CreatedBy:   order.CreatedBy,
	}
	for _, it := range order.Items {
		payload.EquipmentIDs = append(payload.EquipmentIDs, it.EquipmentID)
		payload.ItemNames = append(payload.ItemNames, it.EquipmentName)
	}

	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Str("order_id", order.ID).Msg("publish event error")
	}
}

func (s *LedgerService) publishEquipmentEvent(eventType string, eq models.Equipment) {
	if s.eventBus == nil {
		return
	}
	payload := events.EquipmentEventPayload{EquipmentID: eq.ID, Name: eq.Name, Status: string(eq.Status)}
	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Str("equipment_id", eq.ID).Msg("publish event error")
	}
}

func (s *LedgerService) publishPersonEvent(eventType, id, name string) {
	if s.eventBus == nil {
		return
	}
	payload := events.PersonEventPayload{PersonID: id, FullName: name}
	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Str("person_id", id).Msg("publish event error")
	}
}

func (s *LedgerService) equipmentIndex(id string) int {
	for i := range s.equipment {
		if s.equipment[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *LedgerService) personIndex(id string) int {
	for i := range s.people {
		if s.people[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *LedgerService) orderIndex(id string) int {
	for i := range s.orders {
		if s.orders[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *LedgerService) countStatus(status models.EquipmentStatus) int {
	n := 0
	for i := range s.equipment {
		if s.equipment[i].Status == status {
			n++
		}
	}
	return n
}

func validateEquipment(req models.RegisterEquipmentRequest) error {
	verr := &ValidationError{}
	if strings.TrimSpace(req.Name) == "" {
		verr.add("name", "required")
	}
	if !req.Category.Valid() {
		verr.add("category", "unknown category")
	}
	if !req.Ownership.Valid() {
		verr.add("ownership", "unknown ownership")
	} else if req.Ownership != models.OwnershipChannel && strings.TrimSpace(req.OwnerName) == "" {
		verr.add("owner_name", "required for external ownership")
	}
	if !req.MediaType.Valid() {
		verr.add("media_type", "must be SD, SSD or HDD")
	}
	return verr.orNil()
}

func applyEquipmentFields(eq *models.Equipment, req models.RegisterEquipmentRequest) {
	eq.Name = strings.TrimSpace(req.Name)
	eq.Category = req.Category
	eq.Model = req.Model
	eq.SerialNumber = req.SerialNumber
	eq.Ownership = req.Ownership
	eq.OwnerName = req.OwnerName
	eq.Location = req.Location
	eq.Notes = req.Notes
	eq.Capacity = req.Capacity
	eq.MediaType = req.MediaType
}

func validateCreateOrder(req models.CreateOrderRequest) error {
	verr := &ValidationError{}
	if req.PersonID == "" {
		verr.add("person_id", "required")
	}
	if !req.Type.Valid() {
		verr.add("type", "unknown order type")
	}
	if len(req.EquipmentIDs) == 0 {
		verr.add("equipment_ids", "at least one item is required")
	}
	seen := make(map[string]bool, len(req.EquipmentIDs))
	for _, id := range req.EquipmentIDs {
		if seen[id] {
			verr.add("equipment_ids", fmt.Sprintf("duplicate item %s", id))
		}
		seen[id] = true
	}
	return verr.orNil()
}

// appendReturnNotes omits the separator when there are no earlier notes.
func appendReturnNotes(existing, notes string) string {
	notes = strings.TrimSpace(notes)
	if notes == "" {
		return existing
	}
	tagged := models.ReturnNotesTag + notes
	if existing == "" {
		return tagged
	}
	return existing + models.ReturnNotesSeparator + tagged
}

func referencedByActive(orders []models.Order, equipmentID string) bool {
	for i := range orders {
		if orders[i].IsActive() && orders[i].References(equipmentID) {
			return true
		}
	}
	return false
}

func maxOrderNumber(orders []models.Order) int {
	highest := models.FirstOrderNumber - 1
	for _, o := range orders {
		if o.OrderNumber > highest {
			highest = o.OrderNumber
		}
	}
	return highest
}

func cloneOrders(orders []models.Order) []models.Order {
	out := make([]models.Order, len(orders))
	for i, o := range orders {
		out[i] = o.Clone()
	}
	return out
}

func sortByDateOutDesc(orders []models.Order) {
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].DateOut.After(orders[j].DateOut)
	})
}
