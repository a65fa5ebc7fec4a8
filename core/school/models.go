package school

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
)

// School is a tenant. Every staff, student, guard, visitor, fee, salary and
// attendance row belongs to exactly one School, and every query against those
// collections is scoped to one.
type School struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Mobile  string `json:"mobile"`
	Address string `json:"address"`
	Logo    null.String `json:"logo"`

	// Active is the manual kill switch, togglable by a superuser. Whether the
	// tenant is effectively usable also depends on the subscription dates;
	// see ComputeSubscriptionStatus.
	Active            bool         `json:"active"`
	SubscriptionStart null.Time    `json:"subscription_start"`
	SubscriptionEnd   null.Time    `json:"subscription_end"`
	PaymentAmount     null.Float64 `json:"payment_amount"`
	LastPaymentDate   null.Time    `json:"last_payment_date"`

	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// NewSchool contains information needed to register a new School.
// Schools are created inactive; a subscription must be started before the
// tenant's users can get in.
type NewSchool struct {
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required,email"`
	Mobile  string `json:"mobile" validate:"omitempty,phone"`
	Address string `json:"address"`
}

func (ns *NewSchool) Validate(validate *validator.Validate, svc ServiceInterface) error {
	ns.Name = core.CleanString(ns.Name)
	ns.Email = core.CleanString(ns.Email, true /* lower */)
	ns.Mobile = core.CleanString(ns.Mobile)

	if err := validate.Struct(ns); err != nil {
		return err
	}
	return svc.CheckUniqueness(ns.Name, School{})
}

// UpdateSchool defines what information may be provided to modify an existing
// School. The subscription fields are deliberately absent: they only change
// through Renew/Activate/Deactivate.
type UpdateSchool struct {
	Name    string `json:"name"`
	Email   string `json:"email" validate:"omitempty,email"`
	Mobile  string `json:"mobile" validate:"omitempty,phone"`
	Address string `json:"address"`
}

func (us *UpdateSchool) Validate(orig School, validate *validator.Validate, svc ServiceInterface) error {
	if name := core.CleanString(us.Name); name != "" {
		us.Name = name
	} else {
		us.Name = orig.Name
	}
	if email := core.CleanString(us.Email, true /* lower */); email != "" {
		us.Email = email
	} else {
		us.Email = orig.Email
	}
	us.Mobile = core.CleanString(us.Mobile)
	if us.Mobile == "" {
		us.Mobile = orig.Mobile
	}
	if us.Address == "" {
		us.Address = orig.Address
	}

	if err := validate.Struct(us); err != nil {
		return err
	}
	return svc.CheckUniqueness(us.Name, orig)
}

// RenewSubscription starts or extends a School's subscription.
type RenewSubscription struct {
	Months int     `json:"months" validate:"required,min=1,max=36"`
	Amount float64 `json:"amount" validate:"required,gt=0"`
}

func (rs RenewSubscription) Validate(validate *validator.Validate) error {
	return validate.Struct(rs)
}

type QueryFilter struct {
	Search string `query:"search"`
	Active *bool  `query:"active"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Active == nil
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}
