package service

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/zapdesk/support-console/internal/model"
	"github.com/zapdesk/support-console/internal/store"
	"github.com/zapdesk/support-console/pkg/logger"
)

// LabelService manages the label catalog. Memory is authoritative, the
// store persists best-effort, and deletes cascade off every conversation.
type LabelService struct {
	store         *store.LabelStore
	conversations *ConversationService
	logger        *logger.Logger

	mu     sync.RWMutex
	labels map[string]model.Label
	order  []string
}

// NewLabelService creates the service and seeds it from the store.
func NewLabelService(ctx context.Context, st *store.LabelStore, conversations *ConversationService, log *logger.Logger) *LabelService {
	s := &LabelService{
		store:         st,
		conversations: conversations,
		logger:        log,
		labels:        make(map[string]model.Label),
	}
	for _, l := range st.ListAll(ctx) {
		s.labels[l.ID] = l
		s.order = append(s.order, l.ID)
	}
	return s
}

// List returns all labels in creation order.
func (s *LabelService) List(ctx context.Context) []model.Label {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Label, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.labels[id])
	}
	return out
}

// Get returns one label by id.
func (s *LabelService) Get(ctx context.Context, id string) (model.Label, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.labels[id]
	return l, ok
}

func validateLabel(name, color string) (string, string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", "", validationf("nome da etiqueta é obrigatório")
	}
	if len([]rune(name)) > model.MaxLabelNameLen {
		return "", "", validationf("nome da etiqueta excede %d caracteres", model.MaxLabelNameLen)
	}
	if color == "" {
		color = model.PresetLabelColors[0]
	}
	return name, color, nil
}

// Create adds a new label.
func (s *LabelService) Create(ctx context.Context, name, color string) (model.Label, error) {
	name, color, err := validateLabel(name, color)
	if err != nil {
		return model.Label{}, err
	}

	label := model.Label{
		ID:    uuid.Must(uuid.NewV7()).String(),
		Name:  name,
		Color: color,
	}

	s.mu.Lock()
	s.labels[label.ID] = label
	s.order = append(s.order, label.ID)
	s.mu.Unlock()

	s.store.Save(ctx, label)
	return label, nil
}

// Update renames or recolors an existing label.
func (s *LabelService) Update(ctx context.Context, id, name, color string) (model.Label, error) {
	name, color, err := validateLabel(name, color)
	if err != nil {
		return model.Label{}, err
	}

	s.mu.Lock()
	label, ok := s.labels[id]
	if !ok {
		s.mu.Unlock()
		return model.Label{}, ErrNotFound
	}
	label.Name = name
	label.Color = color
	s.labels[id] = label
	s.mu.Unlock()

	s.store.Save(ctx, label)
	return label, nil
}

// Delete removes a label and cascades the association off every
// conversation that carried it.
func (s *LabelService) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	if _, ok := s.labels[id]; !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	delete(s.labels, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	s.store.Delete(ctx, id)
	s.conversations.RemoveLabelFromAll(ctx, id)
	return nil
}
