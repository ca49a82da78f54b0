package console

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/zapdesk/support-console/internal/model"
)

var (
	// ErrClienteNomeRequired reports a submit without a client name.
	ErrClienteNomeRequired = errors.New("nome do cliente é obrigatório")
	// ErrDescricaoRequired reports a submit without a service description.
	ErrDescricaoRequired = errors.New("descrição do serviço é obrigatória")
	// ErrItemDescricaoRequired reports a line item without a description.
	ErrItemDescricaoRequired = errors.New("descrição do item é obrigatória")
	// ErrItemValorRequired reports a line item whose unit value does not parse.
	ErrItemValorRequired = errors.New("valor unitário do item é obrigatório")
	// ErrItemIndex reports a remove with an out-of-range index.
	ErrItemIndex = errors.New("item inexistente")
)

// ParseMoney converts a free-text monetary field to a value. Empty or
// non-numeric input is 0, matching how operators leave optional fee
// fields blank. A comma decimal separator is accepted.
func ParseMoney(s string) float64 {
	v, _ := parseMoney(s)
	return v
}

func parseMoney(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	s = strings.ReplaceAll(s, ",", ".")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ParseQuantity converts a free-text quantity field to an integer,
// minimum 1. Anything unparseable is 1.
func ParseQuantity(s string) int {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || v < 1 {
		return 1
	}
	return v
}

// SaveFunc persists a completed order. The returned order carries the
// server-assigned identity and ticket number.
type SaveFunc func(ctx context.Context, order model.ServiceOrder) (model.ServiceOrder, error)

// OrderForm is the editable state of a service-order ticket. Monetary
// and quantity fields are kept as the operator typed them and parsed on
// every computation, so the displayed total always agrees with the
// visible inputs.
type OrderForm struct {
	// Client
	ClienteNome     string
	ClienteTelefone string
	ClienteEmail    string
	ClienteEndereco string
	ClienteCpfCnpj  string

	// Equipment
	Equipamento string
	Marca       string
	Modelo      string
	NumeroSerie string

	// Service
	Descricao    string
	Diagnostico  string
	Solucao      string
	Observacoes  string
	TecnicoNome  string
	Prioridade   model.OrderPriority
	Status       model.OrderStatus
	GarantiaDias string
	DataPrevisao string

	// Financial, free text.
	ValorServico   string
	ValorPecas     string
	Desconto       string
	FormaPagamento string

	itens []model.OrderItem
}

// NewOrderForm returns a form with the defaults a fresh ticket gets.
func NewOrderForm() *OrderForm {
	return &OrderForm{
		Prioridade:   model.PriorityNormal,
		Status:       model.OrderStatusAberta,
		GarantiaDias: strconv.Itoa(model.DefaultWarrantyDays),
	}
}

// AddItem appends a line item. The description must be non-empty and the
// unit value must parse; the quantity falls back to 1.
func (f *OrderForm) AddItem(descricao, quantidade, valorUnitario string) error {
	descricao = strings.TrimSpace(descricao)
	if descricao == "" {
		return ErrItemDescricaoRequired
	}
	valor, ok := parseMoney(valorUnitario)
	if !ok {
		return ErrItemValorRequired
	}

	f.itens = append(f.itens, model.OrderItem{
		Descricao:     descricao,
		Quantidade:    ParseQuantity(quantidade),
		ValorUnitario: valor,
	})
	return nil
}

// RemoveItem deletes the line item at index. Other items keep their
// positions.
func (f *OrderForm) RemoveItem(index int) error {
	if index < 0 || index >= len(f.itens) {
		return ErrItemIndex
	}
	f.itens = append(f.itens[:index], f.itens[index+1:]...)
	return nil
}

// Items returns a copy of the current line items.
func (f *OrderForm) Items() []model.OrderItem {
	out := make([]model.OrderItem, len(f.itens))
	copy(out, f.itens)
	return out
}

// ComputeTotal evaluates the order total from the current field values:
// service + parts + line items − discount.
func (f *OrderForm) ComputeTotal() float64 {
	total := ParseMoney(f.ValorServico) + ParseMoney(f.ValorPecas) - ParseMoney(f.Desconto)
	for _, item := range f.itens {
		total += item.Subtotal()
	}
	return total
}

// Validate checks the required fields. A validation failure blocks
// submission before any network call.
func (f *OrderForm) Validate() error {
	if strings.TrimSpace(f.ClienteNome) == "" {
		return ErrClienteNomeRequired
	}
	if strings.TrimSpace(f.Descricao) == "" {
		return ErrDescricaoRequired
	}
	return nil
}

// Order materializes the form into a ServiceOrder with the total
// recomputed from the current inputs.
func (f *OrderForm) Order() model.ServiceOrder {
	order := model.ServiceOrder{
		ClienteNome:     strings.TrimSpace(f.ClienteNome),
		ClienteTelefone: strings.TrimSpace(f.ClienteTelefone),
		ClienteEmail:    strings.TrimSpace(f.ClienteEmail),
		ClienteEndereco: strings.TrimSpace(f.ClienteEndereco),
		ClienteCpfCnpj:  strings.TrimSpace(f.ClienteCpfCnpj),

		Equipamento: strings.TrimSpace(f.Equipamento),
		Marca:       strings.TrimSpace(f.Marca),
		Modelo:      strings.TrimSpace(f.Modelo),
		NumeroSerie: strings.TrimSpace(f.NumeroSerie),

		Descricao:    strings.TrimSpace(f.Descricao),
		Diagnostico:  strings.TrimSpace(f.Diagnostico),
		Solucao:      strings.TrimSpace(f.Solucao),
		Observacoes:  strings.TrimSpace(f.Observacoes),
		TecnicoNome:  strings.TrimSpace(f.TecnicoNome),
		Prioridade:   f.Prioridade,
		Status:       f.Status,
		GarantiaDias: parseWarranty(f.GarantiaDias),
		DataPrevisao: strings.TrimSpace(f.DataPrevisao),

		ValorServico:   ParseMoney(f.ValorServico),
		ValorPecas:     ParseMoney(f.ValorPecas),
		Desconto:       ParseMoney(f.Desconto),
		FormaPagamento: strings.TrimSpace(f.FormaPagamento),
		Itens:          f.Items(),
	}
	order.ValorTotal = order.Total()
	return order
}

// Submit validates the form and hands the materialized order to save.
// The save callback is never invoked when validation fails.
func (f *OrderForm) Submit(ctx context.Context, save SaveFunc) (model.ServiceOrder, error) {
	if err := f.Validate(); err != nil {
		return model.ServiceOrder{}, err
	}
	return save(ctx, f.Order())
}

func parseWarranty(s string) int {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || v < 0 {
		return model.DefaultWarrantyDays
	}
	return v
}
