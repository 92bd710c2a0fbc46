package events

import (
	"strconv"

	"github.com/junaidrashid-git/treatnaturally-api/models"
)

// Event is anything published on the Bus. Key identifies the aggregate the
// event belongs to and is used for partitioning when relayed.
type Event interface {
	Name() string
	Key() string
}

const (
	NameOrderCreated              = "order.created"
	NameOrderPaymentStatusChanged = "order.payment_status_changed"
	NameCustomerRegistered        = "customer.registered"
	NameCustomerMembershipChanged = "customer.membership_changed"
	NameAddressLinked             = "customer.address_linked"
)

// OrderCreated carries the order with items, products and addresses loaded.
type OrderCreated struct {
	Order models.Order `json:"order"`
}

func (OrderCreated) Name() string  { return NameOrderCreated }
func (e OrderCreated) Key() string { return uintKey(e.Order.ID) }

type OrderPaymentStatusChanged struct {
	OrderID uint                 `json:"order_id"`
	From    models.PaymentStatus `json:"from"`
	To      models.PaymentStatus `json:"to"`
}

func (OrderPaymentStatusChanged) Name() string  { return NameOrderPaymentStatusChanged }
func (e OrderPaymentStatusChanged) Key() string { return uintKey(e.OrderID) }

type CustomerRegistered struct {
	Customer models.Customer `json:"customer"`
}

func (CustomerRegistered) Name() string  { return NameCustomerRegistered }
func (e CustomerRegistered) Key() string { return uintKey(e.Customer.ID) }

type CustomerMembershipChanged struct {
	CustomerID uint                  `json:"customer_id"`
	From       models.MembershipTier `json:"from"`
	To         models.MembershipTier `json:"to"`
}

func (CustomerMembershipChanged) Name() string  { return NameCustomerMembershipChanged }
func (e CustomerMembershipChanged) Key() string { return uintKey(e.CustomerID) }

// AddressLinked reports that a customer's current billing or shipping
// address changed. AddressID is nil when the address was removed.
type AddressLinked struct {
	CustomerID uint               `json:"customer_id"`
	Kind       models.AddressKind `json:"kind"`
	AddressID  *uint              `json:"address_id"`
}

func (AddressLinked) Name() string  { return NameAddressLinked }
func (e AddressLinked) Key() string { return uintKey(e.CustomerID) }

func uintKey(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
