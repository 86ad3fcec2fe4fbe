package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	wxerr "wxcipher/internal/errors"
)

// DefaultOpenWeatherURL is the current-weather endpoint.
const DefaultOpenWeatherURL = "https://api.openweathermap.org/data/2.5/weather"

const maxResponseSize = 1 << 20

// OpenWeather fetches current conditions from the OpenWeather API in
// metric units.
type OpenWeather struct {
	URL    string
	APIKey string
	Client *http.Client
}

// NewOpenWeather returns a provider for apiKey with a bounded request
// timeout.
func NewOpenWeather(endpoint, apiKey string, timeout time.Duration) *OpenWeather {
	if endpoint == "" {
		endpoint = DefaultOpenWeatherURL
	}
	return &OpenWeather{
		URL:    endpoint,
		APIKey: apiKey,
		Client: &http.Client{Timeout: timeout},
	}
}

type owmResponse struct {
	Name string `json:"name"`
	Main struct {
		// json.Number keeps the upstream's literal, so 20 stays "20"
		// and 20.5 stays "20.5".
		Temp     json.Number `json:"temp"`
		Humidity json.Number `json:"humidity"`
	} `json:"main"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
}

// Fetch implements [Provider].
func (o *OpenWeather) Fetch(ctx context.Context, key string) (string, error) {
	u, err := url.Parse(o.URL)
	if err != nil {
		return "", &wxerr.ProviderError{Key: key, Err: err}
	}
	q := u.Query()
	q.Set("q", key)
	q.Set("appid", o.APIKey)
	q.Set("units", "metric")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", &wxerr.ProviderError{Key: key, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	client := o.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", &wxerr.ProviderError{Key: key, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", &wxerr.ProviderError{Key: key, Status: resp.StatusCode, Err: ErrNotFound}
	case resp.StatusCode != http.StatusOK:
		return "", &wxerr.ProviderError{Key: key, Status: resp.StatusCode, Err: errors.New(http.StatusText(resp.StatusCode))}
	}

	var body owmResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&body); err != nil {
		return "", &wxerr.ProviderError{Key: key, Status: resp.StatusCode, Err: fmt.Errorf("decode: %w", err)}
	}
	if len(body.Weather) == 0 {
		return "", &wxerr.ProviderError{Key: key, Status: resp.StatusCode, Err: errors.New("response has no weather entry")}
	}
	return FormatRecord(body.Name, body.Main.Temp.String(), body.Main.Humidity.String(), body.Weather[0].Description), nil
}

// FormatRecord renders the four-line record returned to clients.
func FormatRecord(city, temp, humidity, description string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "City: %s\n", city)
	fmt.Fprintf(&b, "Temperature: %s°C\n", temp)
	fmt.Fprintf(&b, "Humidity: %s%%\n", humidity)
	fmt.Fprintf(&b, "Weather: %s\n", capitalize(description))
	return b.String()
}

// capitalize upper-cases the first rune and lower-cases the rest.
func capitalize(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if n == 0 {
		return s
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(s[n:])
}
