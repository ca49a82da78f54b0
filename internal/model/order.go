package model

import (
	"time"
)

// OrderStatus is the lifecycle state of a service order.
type OrderStatus string

const (
	OrderStatusAberta              OrderStatus = "aberta"
	OrderStatusEmAndamento         OrderStatus = "em_andamento"
	OrderStatusAguardandoPeca      OrderStatus = "aguardando_peca"
	OrderStatusAguardandoAprovacao OrderStatus = "aguardando_aprovacao"
	OrderStatusAprovada            OrderStatus = "aprovada"
	OrderStatusConcluida           OrderStatus = "concluida"
	OrderStatusEntregue            OrderStatus = "entregue"
	OrderStatusCancelada           OrderStatus = "cancelada"
)

// ValidOrderStatus reports whether s is a known order status.
func ValidOrderStatus(s OrderStatus) bool {
	switch s {
	case OrderStatusAberta, OrderStatusEmAndamento, OrderStatusAguardandoPeca,
		OrderStatusAguardandoAprovacao, OrderStatusAprovada, OrderStatusConcluida,
		OrderStatusEntregue, OrderStatusCancelada:
		return true
	}
	return false
}

// OrderPriority is the urgency of a service order.
type OrderPriority string

const (
	PriorityBaixa   OrderPriority = "baixa"
	PriorityNormal  OrderPriority = "normal"
	PriorityAlta    OrderPriority = "alta"
	PriorityUrgente OrderPriority = "urgente"
)

// ValidOrderPriority reports whether p is a known priority.
func ValidOrderPriority(p OrderPriority) bool {
	switch p {
	case PriorityBaixa, PriorityNormal, PriorityAlta, PriorityUrgente:
		return true
	}
	return false
}

// DefaultWarrantyDays is applied when a new order does not set a warranty.
const DefaultWarrantyDays = 90

// OrderItem is one line item on a service order.
type OrderItem struct {
	Descricao     string  `json:"descricao"`
	Quantidade    int     `json:"quantidade"`
	ValorUnitario float64 `json:"valorUnitario"`
}

// Subtotal returns quantity times unit value.
func (i OrderItem) Subtotal() float64 {
	return float64(i.Quantidade) * i.ValorUnitario
}

// ServiceOrder is a repair/service ticket. NumeroOS is the human-readable
// ticket number assigned at creation; ID is the storage key.
type ServiceOrder struct {
	ID       string `json:"id,omitempty"`
	NumeroOS string `json:"numeroOs,omitempty"`

	// Client
	ClienteNome     string `json:"clienteNome"`
	ClienteTelefone string `json:"clienteTelefone,omitempty"`
	ClienteEmail    string `json:"clienteEmail,omitempty"`
	ClienteEndereco string `json:"clienteEndereco,omitempty"`
	ClienteCpfCnpj  string `json:"clienteCpfCnpj,omitempty"`

	// Equipment
	Equipamento string `json:"equipamento,omitempty"`
	Marca       string `json:"marca,omitempty"`
	Modelo      string `json:"modelo,omitempty"`
	NumeroSerie string `json:"numeroSerie,omitempty"`

	// Service
	Descricao    string        `json:"descricao"`
	Diagnostico  string        `json:"diagnostico,omitempty"`
	Solucao      string        `json:"solucao,omitempty"`
	Observacoes  string        `json:"observacoes,omitempty"`
	TecnicoNome  string        `json:"tecnicoNome,omitempty"`
	Prioridade   OrderPriority `json:"prioridade"`
	Status       OrderStatus   `json:"status"`
	GarantiaDias int           `json:"garantiaDias"`
	DataPrevisao string        `json:"dataPrevisao,omitempty"`

	// Financial
	ValorServico   float64     `json:"valorServico"`
	ValorPecas     float64     `json:"valorPecas"`
	Desconto       float64     `json:"desconto"`
	FormaPagamento string      `json:"formaPagamento,omitempty"`
	Itens          []OrderItem `json:"itens,omitempty"`

	// Derived at save time from the fields above; never trusted from input.
	ValorTotal float64 `json:"valorTotal"`

	CreatedAt time.Time `json:"createdAt,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// Total recomputes the order total from its current field values:
// service + parts + line items − discount.
func (o ServiceOrder) Total() float64 {
	total := o.ValorServico + o.ValorPecas - o.Desconto
	for _, item := range o.Itens {
		total += item.Subtotal()
	}
	return total
}
