package console

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zapdesk/support-console/internal/model"
)

func TestParseMoney(t *testing.T) {
	assert.Equal(t, 0.0, ParseMoney(""))
	assert.Equal(t, 0.0, ParseMoney("abc"))
	assert.Equal(t, 150.0, ParseMoney("150"))
	assert.Equal(t, 99.9, ParseMoney("99.9"))
	assert.Equal(t, 99.9, ParseMoney("99,9"))
	assert.Equal(t, 12.5, ParseMoney("  12.5  "))
}

func TestParseQuantity(t *testing.T) {
	assert.Equal(t, 1, ParseQuantity(""))
	assert.Equal(t, 1, ParseQuantity("zero"))
	assert.Equal(t, 1, ParseQuantity("0"))
	assert.Equal(t, 1, ParseQuantity("-3"))
	assert.Equal(t, 4, ParseQuantity("4"))
}

func TestComputeTotal(t *testing.T) {
	form := NewOrderForm()
	form.ValorServico = "100"
	form.ValorPecas = "50"
	form.Desconto = "20"
	require.NoError(t, form.AddItem("cabo flat", "2", "10"))

	assert.Equal(t, 150.0, form.ComputeTotal())
}

func TestComputeTotalBlankFieldsAreZero(t *testing.T) {
	form := NewOrderForm()
	form.ValorServico = "80"
	form.ValorPecas = ""
	form.Desconto = "x"

	assert.Equal(t, 80.0, form.ComputeTotal())
}

func TestAddItemValidation(t *testing.T) {
	form := NewOrderForm()

	assert.ErrorIs(t, form.AddItem("  ", "1", "10"), ErrItemDescricaoRequired)
	assert.ErrorIs(t, form.AddItem("tela", "1", ""), ErrItemValorRequired)
	assert.ErrorIs(t, form.AddItem("tela", "1", "caro"), ErrItemValorRequired)
	assert.Empty(t, form.Items())

	require.NoError(t, form.AddItem("tela", "abc", "250"))
	items := form.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 1, items[0].Quantidade)
	assert.Equal(t, 250.0, items[0].ValorUnitario)
}

func TestAddItemAcceptsZeroValue(t *testing.T) {
	form := NewOrderForm()

	require.NoError(t, form.AddItem("parafuso avulso", "4", "0"))
	items := form.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 0.0, items[0].ValorUnitario)
	assert.Equal(t, 4, items[0].Quantidade)
}

func TestRemoveItem(t *testing.T) {
	form := NewOrderForm()
	require.NoError(t, form.AddItem("primeiro", "1", "10"))
	require.NoError(t, form.AddItem("segundo", "1", "20"))
	require.NoError(t, form.AddItem("terceiro", "1", "30"))

	assert.ErrorIs(t, form.RemoveItem(5), ErrItemIndex)
	assert.ErrorIs(t, form.RemoveItem(-1), ErrItemIndex)

	require.NoError(t, form.RemoveItem(1))
	items := form.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "primeiro", items[0].Descricao)
	assert.Equal(t, "terceiro", items[1].Descricao)
}

func TestSubmitBlocksOnMissingDescricao(t *testing.T) {
	form := NewOrderForm()
	form.ClienteNome = "Maria Silva"
	form.Descricao = "   "

	called := false
	_, err := form.Submit(context.Background(), func(ctx context.Context, o model.ServiceOrder) (model.ServiceOrder, error) {
		called = true
		return o, nil
	})

	assert.ErrorIs(t, err, ErrDescricaoRequired)
	assert.False(t, called, "save callback must not run on validation failure")
}

func TestSubmitBlocksOnMissingClienteNome(t *testing.T) {
	form := NewOrderForm()
	form.Descricao = "troca de tela"

	called := false
	_, err := form.Submit(context.Background(), func(ctx context.Context, o model.ServiceOrder) (model.ServiceOrder, error) {
		called = true
		return o, nil
	})

	assert.ErrorIs(t, err, ErrClienteNomeRequired)
	assert.False(t, called)
}

func TestSubmitRecomputesTotal(t *testing.T) {
	form := NewOrderForm()
	form.ClienteNome = "Maria Silva"
	form.Descricao = "troca de tela"
	form.ValorServico = "100"
	form.ValorPecas = "50"
	form.Desconto = "20"
	require.NoError(t, form.AddItem("pelicula", "2", "10"))

	var saved model.ServiceOrder
	_, err := form.Submit(context.Background(), func(ctx context.Context, o model.ServiceOrder) (model.ServiceOrder, error) {
		saved = o
		return o, nil
	})
	require.NoError(t, err)

	assert.Equal(t, 150.0, saved.ValorTotal)
	assert.Equal(t, model.OrderStatusAberta, saved.Status)
	assert.Equal(t, model.PriorityNormal, saved.Prioridade)
	assert.Equal(t, model.DefaultWarrantyDays, saved.GarantiaDias)
}
