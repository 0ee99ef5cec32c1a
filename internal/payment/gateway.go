package payment

import (
	"context"
	"fmt"
	"strconv"

	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/snap"
)

type Customer struct {
	Name  string
	Email string
}

// TransactionRequest is what the bridge asks the gateway to charge.
type TransactionRequest struct {
	OrderID  string
	Amount   int64
	Customer Customer
	UserID   uint
	OrderIDs []uint
}

type Transaction struct {
	Token       string
	RedirectURL string
}

// Gateway creates hosted-checkout transactions.
type Gateway interface {
	CreateTransaction(ctx context.Context, req TransactionRequest) (Transaction, error)
}

// Midtrans is the Snap implementation of Gateway.
type Midtrans struct {
	client snap.Client
}

func NewMidtrans(serverKey string, production bool) *Midtrans {
	env := midtrans.Sandbox
	if production {
		env = midtrans.Production
	}
	m := &Midtrans{}
	m.client.New(serverKey, env)
	return m
}

// CreateTransaction maps req onto a Snap request. Correlation metadata travels in
// custom_field1 (user id), custom_field2 (order count) and custom_field3 (order ids).
// The Snap client has no context support; ctx is only checked before the call.
func (m *Midtrans) CreateTransaction(ctx context.Context, req TransactionRequest) (Transaction, error) {
	if err := ctx.Err(); err != nil {
		return Transaction{}, err
	}

	resp, merr := m.client.CreateTransaction(&snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  req.OrderID,
			GrossAmt: req.Amount,
		},
		CreditCard: &snap.CreditCardDetails{Secure: true},
		CustomerDetail: &midtrans.CustomerDetails{
			FName: req.Customer.Name,
			Email: req.Customer.Email,
		},
		CustomField1: strconv.FormatUint(uint64(req.UserID), 10),
		CustomField2: strconv.Itoa(len(req.OrderIDs)),
		CustomField3: FormatOrderIDs(req.OrderIDs),
	})
	if merr != nil {
		return Transaction{}, fmt.Errorf("midtrans create transaction: status=%d: %s", merr.StatusCode, merr.Message)
	}
	return Transaction{Token: resp.Token, RedirectURL: resp.RedirectURL}, nil
}
