package order

import (
	"fmt"
	"net/mail"
	"sort"
	"strings"
)

// CheckoutForm is the customer-submitted checkout data.
type CheckoutForm struct {
	FirstName     string
	LastName      string
	Email         string
	Phone         string
	Address       string
	PostalCode    string
	City          string
	ShippingZone  ShippingZone
	PaymentMethod PaymentMethod
	PaymentNumber string
	TransactionID string

	// Optional courier location picked from the synced location tables.
	CourierCityID *int
	CourierZoneID *int
	CourierAreaID *int
}

// ValidationError carries per-field messages for a rejected form.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s: %s", name, e.Fields[name])
	}
	return "invalid checkout form: " + strings.Join(parts, "; ")
}

// Normalize trims whitespace and fills default zone and payment method.
func (f *CheckoutForm) Normalize() {
	for _, s := range []*string{
		&f.FirstName, &f.LastName, &f.Email, &f.Phone, &f.Address,
		&f.PostalCode, &f.City, &f.PaymentNumber, &f.TransactionID,
	} {
		*s = strings.TrimSpace(*s)
	}
	if f.ShippingZone == "" {
		f.ShippingZone = ZoneInsideDhaka
	}
	if f.PaymentMethod == "" {
		f.PaymentMethod = PaymentCOD
	}
}

// Validate returns *ValidationError listing every invalid field.
func (f *CheckoutForm) Validate() error {
	fields := make(map[string]string)

	required := []struct {
		name  string
		value string
	}{
		{"first_name", f.FirstName},
		{"phone", f.Phone},
		{"address", f.Address},
		{"postal_code", f.PostalCode},
		{"city", f.City},
	}
	for _, r := range required {
		if r.value == "" {
			fields[r.name] = "This field is required."
		}
	}

	if f.Phone != "" {
		if msg := checkMobileNumber(f.Phone, "Phone number"); msg != "" {
			fields["phone"] = msg
		}
	}
	if f.PaymentNumber != "" {
		if msg := checkMobileNumber(f.PaymentNumber, "bKash/Nagad number"); msg != "" {
			fields["payment_number"] = msg
		}
	}
	if f.Email != "" {
		if _, err := mail.ParseAddress(f.Email); err != nil {
			fields["email"] = "Enter a valid email address."
		}
	}

	if !f.ShippingZone.Valid() {
		fields["shipping_zone"] = fmt.Sprintf("Unknown shipping zone %q.", f.ShippingZone)
	}
	if !f.PaymentMethod.Valid() {
		fields["payment_method"] = fmt.Sprintf("Unknown payment method %q.", f.PaymentMethod)
	}
	if f.PaymentMethod.IsMobile() {
		if f.PaymentNumber == "" {
			fields["payment_number"] = "This field is required for bKash/Nagad payment."
		}
		if f.TransactionID == "" {
			fields["transaction_id"] = "Transaction ID is required for bKash/Nagad payment."
		}
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func checkMobileNumber(s, label string) string {
	for _, r := range s {
		if r < '0' || r > '9' {
			return label + " must contain only digits."
		}
	}
	if len(s) != 11 {
		return label + " must be exactly 11 digits."
	}
	return ""
}

func (f *CheckoutForm) newOrder() *Order {
	return &Order{
		FirstName:       f.FirstName,
		LastName:        f.LastName,
		Email:           f.Email,
		Phone:           f.Phone,
		Address:         f.Address,
		PostalCode:      f.PostalCode,
		City:            f.City,
		ShippingZone:    f.ShippingZone,
		PaymentMethod:   f.PaymentMethod,
		PaymentNumber:   f.PaymentNumber,
		TransactionID:   f.TransactionID,
		PaymentDiscount: f.PaymentMethod.Discount(),
		ShippingCost:    f.ShippingZone.Cost(),
		Status:          StatusPending,
		Courier: Courier{
			CityID: f.CourierCityID,
			ZoneID: f.CourierZoneID,
			AreaID: f.CourierAreaID,
		},
	}
}
