package book

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"PolicyScan/internal/analysis"
	"PolicyScan/internal/model"
)

// ErrNotFound is returned when a policy id is not in the book.
var ErrNotFound = eris.New("policy not found")

// Manager handles policy book operations with concurrency safety.
type Manager struct {
	mu       sync.Mutex
	state    *model.PolicyBook
	filePath string
}

// NewManager creates a Manager, loading or initializing the book from disk.
func NewManager(filePath, owner string) (*Manager, error) {
	state, err := LoadState(filePath)
	if err != nil {
		return nil, err
	}
	if state.Owner == "" {
		state.Owner = owner
	}
	return &Manager{state: state, filePath: filePath}, nil
}

// Owner returns the owner recorded in the book.
func (m *Manager) Owner() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Owner
}

// List returns all policies as records, in book order.
func (m *Manager) List() ([]model.PolicyRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return model.RecordsFromPayloads(m.state.Policies)
}

// Get returns one policy by id.
func (m *Manager) Get(id string) (model.PolicyRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.indexOf(id)
	if i < 0 {
		return model.PolicyRecord{}, eris.Wrapf(ErrNotFound, "book: get %q", id)
	}
	return m.state.Policies[i].ToRecord()
}

// Add appends a policy, assigning a new id when empty. The resulting book must stay valid.
func (m *Manager) Add(p model.PolicyPayload) (model.PolicyRecord, error) {
	added, err := m.Import([]model.PolicyPayload{p})
	if err != nil {
		return model.PolicyRecord{}, err
	}
	return added[0], nil
}

// Import appends several policies atomically: either all are added or none.
func (m *Manager) Import(payloads []model.PolicyPayload) ([]model.PolicyRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := append([]model.PolicyPayload(nil), m.state.Policies...)
	added := make([]model.PolicyRecord, 0, len(payloads))
	for _, p := range payloads {
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		rec, err := p.ToRecord()
		if err != nil {
			return nil, err
		}
		next = append(next, p)
		added = append(added, rec)
	}

	if err := validatePayloads(next); err != nil {
		return nil, err
	}

	m.state.Policies = next
	if err := m.save(); err != nil {
		return nil, err
	}
	zap.L().Info("book: policies added", zap.Int("count", len(added)), zap.Int("total", len(next)))
	return added, nil
}

// Update replaces the policy with the same id.
func (m *Manager) Update(p model.PolicyPayload) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexOf(p.ID)
	if i < 0 {
		return eris.Wrapf(ErrNotFound, "book: update %q", p.ID)
	}
	next := append([]model.PolicyPayload(nil), m.state.Policies...)
	next[i] = p
	if err := validatePayloads(next); err != nil {
		return err
	}
	m.state.Policies = next
	return m.save()
}

// Remove deletes the policy with the given id.
func (m *Manager) Remove(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexOf(id)
	if i < 0 {
		return eris.Wrapf(ErrNotFound, "book: remove %q", id)
	}
	m.state.Policies = append(m.state.Policies[:i:i], m.state.Policies[i+1:]...)
	return m.save()
}

func (m *Manager) indexOf(id string) int {
	for i, p := range m.state.Policies {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func (m *Manager) save() error {
	return SaveState(m.filePath, m.state)
}

func validatePayloads(payloads []model.PolicyPayload) error {
	recs, err := model.RecordsFromPayloads(payloads)
	if err != nil {
		return err
	}
	return analysis.ValidatePolicies(recs)
}
