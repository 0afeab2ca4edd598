// Package notification builds booking confirmations and hands them to a
// delivery channel. Delivery is best effort.
package notification

import (
	"bytes"
	"context"
	"text/template"
	"time"

	"github.com/Domenick1991/garagebooking/config"
	"github.com/Domenick1991/garagebooking/internal/domain"
	"github.com/sirupsen/logrus"
)

type Message struct {
	To        string `json:"to"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
	BookingID int64  `json:"booking_id"`
	Reference string `json:"reference"`
}

type Channel interface {
	Deliver(ctx context.Context, msg Message) error
}

// ServiceNamer maps a service key to its customer-facing name.
type ServiceNamer interface {
	ServiceName(key string) string
}

type Dispatcher struct {
	channel  Channel
	cfg      config.NotificationConfig
	services ServiceNamer
	loc      *time.Location
	log      logrus.FieldLogger
}

func NewDispatcher(channel Channel, cfg config.NotificationConfig, services ServiceNamer, log logrus.FieldLogger) *Dispatcher {
	loc, err := time.LoadLocation(cfg.Location)
	if err != nil || cfg.Location == "" {
		loc = time.UTC
	}
	return &Dispatcher{channel: channel, cfg: cfg, services: services, loc: loc, log: log}
}

// Send delivers the confirmation for b and reports whether the customer
// copy went out. It never returns an error.
func (d *Dispatcher) Send(ctx context.Context, b *domain.Booking) bool {
	entry := d.log.WithFields(logrus.Fields{"booking_id": b.ID, "reference": b.Reference})
	if d.channel == nil {
		entry.Warn("no notification channel configured")
		return false
	}

	msg, err := d.Build(b)
	if err != nil {
		entry.WithError(err).Error("build confirmation")
		return false
	}

	if d.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.cfg.Timeout)
		defer cancel()
	}

	if err := d.channel.Deliver(ctx, msg); err != nil {
		entry.WithError(err).Warn("confirmation delivery failed")
		return false
	}
	entry.Info("confirmation sent")

	if d.cfg.GarageCopy && d.cfg.GarageEmail != "" {
		garageMsg := msg
		garageMsg.To = d.cfg.GarageEmail
		garageMsg.Subject = "New booking " + b.Reference
		if err := d.channel.Deliver(ctx, garageMsg); err != nil {
			entry.WithError(err).Warn("garage copy delivery failed")
		}
	}
	return true
}

type confirmationView struct {
	Name        string
	Reference   string
	Service     string
	Date        string
	Time        string
	Vehicle     string
	Price       string
	PaymentNote string
	GarageName  string
	Address     string
	Phone       string
	Email       string
}

var confirmationTemplate = template.Must(template.New("confirmation").Parse(`Dear {{.Name}},

Thank you for booking with {{.GarageName}}. Your appointment is confirmed.

Booking reference: {{.Reference}}
Service:           {{.Service}}
Date:              {{.Date}}
Time:              {{.Time}}
Vehicle:           {{.Vehicle}}
Price:             {{.Price}}
{{if .PaymentNote}}
{{.PaymentNote}}
{{end}}
{{- if .Address}}
Where to find us:
{{.Address}}
{{end}}
{{- if or .Phone .Email}}
Questions? Contact us{{if .Phone}} on {{.Phone}}{{end}}{{if .Email}} or at {{.Email}}{{end}}, quoting your booking reference.
{{end}}
{{.GarageName}}
`))

// Build renders the confirmation without sending it.
func (d *Dispatcher) Build(b *domain.Booking) (Message, error) {
	view := confirmationView{
		Name:       b.Customer.Name,
		Reference:  b.Reference,
		Service:    b.ServiceType,
		Date:       d.formatDate(b.Date),
		Time:       formatTime(b.Time),
		Vehicle:    b.Vehicle.Descriptor(),
		Price:      b.Price.Format(b.Currency),
		GarageName: d.cfg.GarageName,
		Address:    d.cfg.Address,
		Phone:      d.cfg.GaragePhone,
		Email:      d.cfg.GarageEmail,
	}
	if d.services != nil {
		view.Service = d.services.ServiceName(b.ServiceType)
	}
	switch b.PaymentStatus {
	case domain.PaymentStatusPaid:
		view.PaymentNote = "Payment received. Thank you."
	case domain.PaymentStatusFailed:
		view.PaymentNote = "We could not take your payment. Please pay when you arrive or contact us."
	default:
		view.PaymentNote = "Payment is due on the day of your appointment."
	}

	var body bytes.Buffer
	if err := confirmationTemplate.Execute(&body, view); err != nil {
		return Message{}, err
	}
	return Message{
		To:        b.Customer.Email,
		Subject:   "Booking confirmation " + b.Reference + " - " + view.Date,
		Body:      body.String(),
		BookingID: b.ID,
		Reference: b.Reference,
	}, nil
}

// formatDate renders "2025-09-01" as "Monday, 1 September 2025".
func (d *Dispatcher) formatDate(date string) string {
	t, err := time.ParseInLocation("2006-01-02", date, d.loc)
	if err != nil {
		return date
	}
	return t.Format("Monday, 2 January 2006")
}

// formatTime renders "09:00" as "9:00 AM".
func formatTime(clock string) string {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return clock
	}
	return t.Format("3:04 PM")
}
