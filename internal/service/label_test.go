package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zapdesk/support-console/internal/model"
	"github.com/zapdesk/support-console/internal/store"
	"github.com/zapdesk/support-console/pkg/logger"
)

func newTestLabelService() (*LabelService, *ConversationService) {
	conversations := newTestConversationService(nil)
	st := store.NewLabelStore(nil, logger.NewNop())
	return NewLabelService(context.Background(), st, conversations, logger.NewNop()), conversations
}

func TestLabelCreateDefaultsColor(t *testing.T) {
	svc, _ := newTestLabelService()

	label, err := svc.Create(context.Background(), "urgente", "")
	require.NoError(t, err)
	assert.NotEmpty(t, label.ID)
	assert.Equal(t, model.PresetLabelColors[0], label.Color)
}

func TestLabelNameValidation(t *testing.T) {
	svc, _ := newTestLabelService()
	ctx := context.Background()

	_, err := svc.Create(ctx, "   ", "#FF0000")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Create(ctx, strings.Repeat("a", model.MaxLabelNameLen+1), "")
	assert.ErrorIs(t, err, ErrValidation)

	// Exactly at the limit is fine, counted in runes.
	_, err = svc.Create(ctx, strings.Repeat("ç", model.MaxLabelNameLen), "")
	assert.NoError(t, err)
}

func TestLabelListKeepsCreationOrder(t *testing.T) {
	svc, _ := newTestLabelService()
	ctx := context.Background()

	first, _ := svc.Create(ctx, "garantia", "")
	second, _ := svc.Create(ctx, "orçamento", "")

	list := svc.List(ctx)
	require.Len(t, list, 2)
	assert.Equal(t, first.ID, list[0].ID)
	assert.Equal(t, second.ID, list[1].ID)
}

func TestLabelUpdate(t *testing.T) {
	svc, _ := newTestLabelService()
	ctx := context.Background()

	label, _ := svc.Create(ctx, "garantia", "")
	updated, err := svc.Update(ctx, label.ID, "garantia estendida", "#9C27B0")
	require.NoError(t, err)
	assert.Equal(t, "garantia estendida", updated.Name)
	assert.Equal(t, "#9C27B0", updated.Color)

	_, err = svc.Update(ctx, "missing", "x", "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLabelDeleteCascades(t *testing.T) {
	svc, conversations := newTestLabelService()
	ctx := context.Background()

	label, _ := svc.Create(ctx, "orçamento", "")
	keep, _ := svc.Create(ctx, "garantia", "")

	conversations.Create(ctx, "u1", "Maria")
	conversations.SetLabels(ctx, "u1", []string{label.ID, keep.ID})

	require.NoError(t, svc.Delete(ctx, label.ID))

	_, ok := svc.Get(ctx, label.ID)
	assert.False(t, ok)

	page, _ := conversations.Page(ctx, "u1", 1, 0)
	assert.Equal(t, []string{keep.ID}, page.Labels)

	assert.ErrorIs(t, svc.Delete(ctx, label.ID), ErrNotFound)
}
