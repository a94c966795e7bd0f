// Package whatsapp delivers assistant replies over Twilio's WhatsApp channel
// and normalizes model output into the channel's text conventions.
package whatsapp

import (
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
)

// Twilio caps message bodies at 1600 characters.
const maxMessageLength = 1600

// Client sends WhatsApp messages through the Twilio REST API.
type Client struct {
	rest        *twilio.RestClient
	accountSID  string
	authToken   string
	phoneNumber string
	configured  bool

	httpClient *http.Client
}

// Config carries the Twilio credentials and sender number.
type Config struct {
	AccountSID  string `envconfig:"TWILIO_ACCOUNT_SID"`
	AuthToken   string `envconfig:"TWILIO_AUTH_TOKEN"`
	PhoneNumber string `envconfig:"TWILIO_PHONE_NUMBER"`
}

// NewClient builds a sender. With incomplete credentials the client stays
// unconfigured and sends fail cleanly; the rest of the system keeps working.
func NewClient(cfg Config) *Client {
	if cfg.AccountSID == "" || cfg.AuthToken == "" || cfg.PhoneNumber == "" {
		return &Client{configured: false}
	}
	rest := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return &Client{
		rest:        rest,
		accountSID:  cfg.AccountSID,
		authToken:   cfg.AuthToken,
		phoneNumber: cfg.PhoneNumber,
		configured:  true,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) IsConfigured() bool { return c.configured }

func (c *Client) PhoneNumber() string { return c.phoneNumber }

// SendText normalizes and delivers a text message to the recipient.
func (c *Client) SendText(to, text string) error {
	if !c.configured {
		return fmt.Errorf("twilio client not configured")
	}

	body := NormalizeText(text)
	if len(body) > maxMessageLength {
		log.Warn().Int("length", len(body)).Msg("message exceeds channel limit, truncating")
		body = body[:maxMessageLength-3] + "..."
	}

	toNumber := FormatNumber(to)
	fromNumber := FormatNumber(c.phoneNumber)

	params := &openapi.CreateMessageParams{
		To:   &toNumber,
		From: &fromNumber,
		Body: &body,
	}
	if _, err := c.rest.Api.CreateMessage(params); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// FetchMedia downloads an inbound media attachment by its Twilio URL using
// the account credentials.
func (c *Client) FetchMedia(mediaURL string) ([]byte, string, error) {
	if !c.configured {
		return nil, "", fmt.Errorf("twilio client not configured")
	}

	req, err := http.NewRequest(http.MethodGet, mediaURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build media request: %w", err)
	}
	req.SetBasicAuth(c.accountSID, c.authToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch media: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("fetch media: status %s", resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read media body: %w", err)
	}
	return data, resp.Header.Get("Content-Type"), nil
}

var (
	citationPattern = regexp.MustCompile(`【.*?】`)
	boldPattern     = regexp.MustCompile(`\*\*(.*?)\*\*`)
)

// NormalizeText strips model citation markup and converts markdown bold to
// the channel's single-asterisk convention.
func NormalizeText(text string) string {
	text = strings.TrimSpace(citationPattern.ReplaceAllString(text, ""))
	return boldPattern.ReplaceAllString(text, "*$1*")
}

// FormatNumber coerces a phone number into whatsapp:+E.164 form.
func FormatNumber(phone string) string {
	phone = strings.TrimPrefix(strings.TrimSpace(phone), "whatsapp:")

	var digits strings.Builder
	for _, ch := range phone {
		if ch >= '0' && ch <= '9' || ch == '+' {
			digits.WriteRune(ch)
		}
	}
	phone = digits.String()

	if !strings.HasPrefix(phone, "+") {
		phone = "+" + phone
	}
	return "whatsapp:" + phone
}
