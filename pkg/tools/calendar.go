package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/abasto-labs/tendero/pkg/catalog"
)

// CalendarEvent is the payload for creating an event.
type CalendarEvent struct {
	Title               string
	Date                string
	StartTime           string
	EndTime             string
	Location            string
	Description         string
	NotificationMinutes int
}

// Calendar is the external scheduling collaborator. The zero-value
// NoopCalendar satisfies it for deployments without a calendar account.
type Calendar interface {
	ListEvents(ctx context.Context, days int) (string, error)
	SearchEvents(ctx context.Context, keyword string, days int) (string, error)
	AddEvent(ctx context.Context, ev CalendarEvent) (string, error)
}

// NewListEvents exposes the upcoming-events listing.
func NewListEvents(cal Calendar) catalog.Tool {
	type params struct {
		Days int `json:"days"`
	}
	return catalog.Tool{
		Name:        "list_events",
		Description: "Lista los eventos del calendario de los próximos días.",
		Parameters: catalog.ObjectSchema(map[string]catalog.Property{
			"days": {Type: "integer", Description: "Cuántos días hacia adelante listar.", Default: 7},
		}),
		Handler: func(ctx context.Context, args json.RawMessage) (string, error) {
			p := params{Days: 7}
			if err := json.Unmarshal(args, &p); err != nil {
				return "", fmt.Errorf("decode arguments: %w", err)
			}
			return cal.ListEvents(ctx, p.Days)
		},
	}
}

// NewSearchEvents exposes keyword search over upcoming events.
func NewSearchEvents(cal Calendar) catalog.Tool {
	type params struct {
		Keyword string `json:"keyword"`
		Days    int    `json:"days"`
	}
	return catalog.Tool{
		Name:        "search_events",
		Description: "Busca eventos del calendario por palabra clave.",
		Parameters: catalog.ObjectSchema(map[string]catalog.Property{
			"keyword": {Type: "string", Description: "Palabra clave a buscar en título o descripción."},
			"days":    {Type: "integer", Description: "Cuántos días hacia adelante buscar.", Default: 30},
		}, "keyword"),
		Handler: func(ctx context.Context, args json.RawMessage) (string, error) {
			p := params{Days: 30}
			if err := json.Unmarshal(args, &p); err != nil {
				return "", fmt.Errorf("decode arguments: %w", err)
			}
			return cal.SearchEvents(ctx, p.Keyword, p.Days)
		},
	}
}

// NewAddEvent exposes event creation.
func NewAddEvent(cal Calendar) catalog.Tool {
	type params struct {
		Title        string `json:"title"`
		Date         string `json:"date"`
		StartTime    string `json:"start_time"`
		EndTime      string `json:"end_time"`
		Location     string `json:"location"`
		Description  string `json:"description"`
		Notification int    `json:"notification"`
	}
	return catalog.Tool{
		Name:        "add_event",
		Description: "Agrega un evento al calendario.",
		Parameters: catalog.ObjectSchema(map[string]catalog.Property{
			"title":        {Type: "string", Description: "Título del evento."},
			"date":         {Type: "string", Description: "Fecha del evento, YYYY-MM-DD."},
			"start_time":   {Type: "string", Description: "Hora de inicio, HH:MM (opcional)."},
			"end_time":     {Type: "string", Description: "Hora de fin, HH:MM (opcional)."},
			"location":     {Type: "string", Description: "Lugar del evento (opcional)."},
			"description":  {Type: "string", Description: "Descripción del evento (opcional)."},
			"notification": {Type: "integer", Description: "Minutos de anticipación del recordatorio (opcional)."},
		}, "title", "date"),
		Handler: func(ctx context.Context, args json.RawMessage) (string, error) {
			var p params
			if err := json.Unmarshal(args, &p); err != nil {
				return "", fmt.Errorf("decode arguments: %w", err)
			}
			return cal.AddEvent(ctx, CalendarEvent{
				Title:               p.Title,
				Date:                p.Date,
				StartTime:           p.StartTime,
				EndTime:             p.EndTime,
				Location:            p.Location,
				Description:         p.Description,
				NotificationMinutes: p.Notification,
			})
		},
	}
}

// NoopCalendar is the stand-in when no calendar account is configured.
type NoopCalendar struct{}

func (NoopCalendar) ListEvents(context.Context, int) (string, error) {
	return "El calendario no está configurado en esta tienda.", nil
}

func (NoopCalendar) SearchEvents(context.Context, string, int) (string, error) {
	return "El calendario no está configurado en esta tienda.", nil
}

func (NoopCalendar) AddEvent(context.Context, CalendarEvent) (string, error) {
	return "El calendario no está configurado en esta tienda.", nil
}
