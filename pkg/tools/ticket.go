package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/abasto-labs/tendero/pkg/agent"
	"github.com/abasto-labs/tendero/pkg/catalog"
	"github.com/abasto-labs/tendero/pkg/store"
)

// Defaults applied when a ticket names a product the pricebook doesn't know.
const (
	defaultProductID = "U001"
	defaultUnitPrice = 10
)

// ProductInfo is one pricebook entry.
type ProductInfo struct {
	ID        string
	UnitPrice float64
}

// Pricebook maps product names to their id and unit price.
type Pricebook map[string]ProductInfo

// Lookup returns the entry for name, falling back to the unknown-product
// defaults. Matching ignores case.
func (pb Pricebook) Lookup(name string) ProductInfo {
	for k, v := range pb {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ProductInfo{ID: defaultProductID, UnitPrice: defaultUnitPrice}
}

// DefaultPricebook is the store's built-in product table.
func DefaultPricebook() Pricebook {
	return Pricebook{
		"Coca Cola Original":          {ID: "P051", UnitPrice: 18},
		"Coca Cola Sin Azúcar":        {ID: "P001", UnitPrice: 18},
		"Coca Cola Light":             {ID: "P052", UnitPrice: 18},
		"Pepsi Light":                 {ID: "P004", UnitPrice: 17},
		"Refresco Sprite":             {ID: "P033", UnitPrice: 18},
		"Pan Integral Bimbo":          {ID: "P003", UnitPrice: 56},
		"Pan Blanco Bimbo":            {ID: "P038", UnitPrice: 34},
		"Chicles Trident":             {ID: "P005", UnitPrice: 10},
		"Jugo de Naranja Jumex":       {ID: "P006", UnitPrice: 25},
		"Jugo de Manzana Del Valle":   {ID: "P040", UnitPrice: 27},
		"Yogur Griego Oikos":          {ID: "P007", UnitPrice: 20},
		"Leche Deslactosada Alpura":   {ID: "P008", UnitPrice: 22},
		"Galletas Oreo":               {ID: "P009", UnitPrice: 30},
		"Galletas Marías Gamesa":      {ID: "P039", UnitPrice: 18},
		"Mantequilla Lala":            {ID: "P010", UnitPrice: 50},
		"Queso Panela Lala":           {ID: "P029", UnitPrice: 40},
		"Queso Oaxaca Lala":           {ID: "P041", UnitPrice: 65},
		"Atún Dolores":                {ID: "P011", UnitPrice: 35},
		"Arroz SOS":                   {ID: "P012", UnitPrice: 15},
		"Arroz La Merced":             {ID: "P026", UnitPrice: 16},
		"Frijoles La Sierra":          {ID: "P027", UnitPrice: 24},
		"Huevo San Juan":              {ID: "P028", UnitPrice: 50},
		"Jamón de Pavo Fud":           {ID: "P030", UnitPrice: 55},
		"Tortillas de Maíz Maseca":    {ID: "P031", UnitPrice: 12},
		"Aceite de Oliva Carbonell":   {ID: "P013", UnitPrice: 70},
		"Café Soluble Nescafé":        {ID: "P014", UnitPrice: 45},
		"Café Molido Blasón":          {ID: "P032", UnitPrice: 48},
		"Azúcar Morena Zulka":         {ID: "P015", UnitPrice: 28},
		"Sal de Mar La Fina":          {ID: "P016", UnitPrice: 12},
		"Cereal Kellogg's Corn Flakes": {ID: "P017", UnitPrice: 40},
		"Salsa Catsup Heinz":          {ID: "P035", UnitPrice: 25},
		"Mayonesa McCormick":          {ID: "P037", UnitPrice: 28},
		"Sopa Maruchan":               {ID: "P046", UnitPrice: 12},
		"Agua Mineral Peñafiel":       {ID: "P044", UnitPrice: 15},
		"Chocolate Abuelita":          {ID: "P049", UnitPrice: 35},
		"Papas Sabritas":              {ID: "P050", UnitPrice: 20},
		"Helado Holanda":              {ID: "P034", UnitPrice: 60},
		"Detergente Ariel":            {ID: "P022", UnitPrice: 65},
		"Jabón de Tocador Dove":       {ID: "P018", UnitPrice: 25},
		"Shampoo Pantene":             {ID: "P019", UnitPrice: 55},
		"Pasta de Dientes Colgate":    {ID: "P020", UnitPrice: 32},
		"Papel Higiénico Pétalo":      {ID: "P021", UnitPrice: 60},
	}
}

// TicketStore persists captured order tickets.
type TicketStore interface {
	SaveTicket(ctx context.Context, t store.Ticket) error
}

var (
	leadingQtyPattern  = regexp.MustCompile(`^(\d+)\s*[xX]?\s+(.+)$`)
	trailingQtyPattern = regexp.MustCompile(`^(.+?)\s*[xX]\s*(\d+)$`)
)

// NewConfirmTicket parses a free-text sales ticket, prices it against the
// pricebook and persists it for the user.
func NewConfirmTicket(tickets TicketStore, pricebook Pricebook, now func() time.Time) catalog.Tool {
	if now == nil {
		now = time.Now
	}
	type params struct {
		TicketText string `json:"ticket_text"`
	}
	return catalog.Tool{
		Name: "confirm_ticket",
		Description: "Registra un ticket de venta a partir del texto dictado por el " +
			"tendero, por ejemplo: '2 Coca Cola Original, 1 Pan Blanco Bimbo'.",
		Parameters: catalog.ObjectSchema(map[string]catalog.Property{
			"ticket_text": {Type: "string", Description: "Líneas del ticket con cantidad y producto."},
		}, "ticket_text"),
		Handler: func(ctx context.Context, args json.RawMessage) (string, error) {
			var p params
			if err := json.Unmarshal(args, &p); err != nil {
				return "", fmt.Errorf("decode arguments: %w", err)
			}
			lines := parseTicketLines(p.TicketText)
			if len(lines) == 0 {
				return "No pude identificar productos en el ticket. Escríbelo como '2 Coca Cola Original, 1 Pan Blanco Bimbo'.", nil
			}

			t := store.Ticket{
				ID:      uuid.NewString(),
				UserID:  agent.UserIDFromContext(ctx),
				RawText: p.TicketText,
			}
			for _, l := range lines {
				info := pricebook.Lookup(l.product)
				t.Lines = append(t.Lines, store.TicketLine{
					Product:   l.product,
					ProductID: info.ID,
					Quantity:  l.quantity,
					UnitPrice: info.UnitPrice,
				})
				t.Total += info.UnitPrice * float64(l.quantity)
			}
			if err := tickets.SaveTicket(ctx, t); err != nil {
				return "", fmt.Errorf("save ticket: %w", err)
			}

			var b strings.Builder
			fmt.Fprintf(&b, "Ticket registrado el %s:\n", now().Format("2006-01-02"))
			for _, l := range t.Lines {
				fmt.Fprintf(&b, "- %d x %s: $%.2f\n", l.Quantity, l.Product, l.UnitPrice*float64(l.Quantity))
			}
			fmt.Fprintf(&b, "Total: $%.2f", t.Total)
			return b.String(), nil
		},
	}
}

type parsedLine struct {
	product  string
	quantity int
}

// parseTicketLines accepts "2 Coca Cola", "Coca Cola x2" and plain product
// names (quantity 1), split across newlines, commas or semicolons.
func parseTicketLines(text string) []parsedLine {
	segments := strings.FieldsFunc(text, func(r rune) bool {
		return r == '\n' || r == ',' || r == ';'
	})
	var out []parsedLine
	for _, seg := range segments {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		if m := leadingQtyPattern.FindStringSubmatch(seg); m != nil {
			qty, _ := strconv.Atoi(m[1])
			if qty > 0 {
				out = append(out, parsedLine{product: strings.TrimSpace(m[2]), quantity: qty})
				continue
			}
		}
		if m := trailingQtyPattern.FindStringSubmatch(seg); m != nil {
			qty, _ := strconv.Atoi(m[2])
			if qty > 0 {
				out = append(out, parsedLine{product: strings.TrimSpace(m[1]), quantity: qty})
				continue
			}
		}
		out = append(out, parsedLine{product: seg, quantity: 1})
	}
	return out
}
