package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/invizible/bookassist/internal/app"
	"github.com/invizible/bookassist/internal/calendar"
	"github.com/invizible/bookassist/internal/domain"
	"github.com/invizible/bookassist/internal/timeutil"
)

// Completer is the slice of the OpenAI client the orchestrator needs;
// *openai.Client satisfies it.
type Completer interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// AvailabilityChecker is the read-only gateway slice behind the
// check_availability tool.
type AvailabilityChecker interface {
	QueryFreeBusy(ctx context.Context, calendarID, startISO, endISO, timeZone string) (calendar.FreeBusy, error)
}

// HoldCreator is the hold-manager slice behind the create_hold tool.
type HoldCreator interface {
	CreateHold(ctx context.Context, in app.CreateHoldInput) (domain.Hold, error)
}

const defaultChatModel = "gpt-4o-mini"

type Config struct {
	Model             string
	Temperature       float32
	DefaultCalendarID string
	DefaultTimeZone   string
	DefaultTTLMinutes int
	SystemPrompt      string
}

// Orchestrator runs the two-phase tool-calling exchange: the first model
// response may request a named operation, which is executed against the hold
// manager or calendar gateway, and the structured result is fed back as a
// follow-up turn. Plain sequential I/O, no fan-out.
type Orchestrator struct {
	client       Completer
	availability AvailabilityChecker
	holds        HoldCreator
	cfg          Config
}

func NewOrchestrator(client Completer, availability AvailabilityChecker, holds HoldCreator, cfg Config) *Orchestrator {
	if cfg.Model == "" {
		cfg.Model = defaultChatModel
	}
	if cfg.DefaultCalendarID == "" {
		cfg.DefaultCalendarID = "primary"
	}
	if cfg.DefaultTimeZone == "" {
		cfg.DefaultTimeZone = "America/Vancouver"
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = defaultSystemPrompt(cfg.DefaultCalendarID, cfg.DefaultTimeZone)
	}
	return &Orchestrator{client: client, availability: availability, holds: holds, cfg: cfg}
}

type Reply struct {
	Text        string            `json:"text"`
	ToolResults []json.RawMessage `json:"toolResults,omitempty"`
}

func (o *Orchestrator) Respond(ctx context.Context, messages []openai.ChatCompletionMessage) (Reply, error) {
	if len(messages) == 0 {
		return Reply{}, errors.New("no messages")
	}

	req := openai.ChatCompletionRequest{
		Model:       o.cfg.Model,
		Temperature: o.cfg.Temperature,
		Messages: append(
			[]openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleSystem, Content: o.cfg.SystemPrompt}},
			messages...,
		),
		Tools: toolDefinitions(),
	}

	first, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return Reply{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(first.Choices) == 0 {
		return Reply{}, errors.New("empty completion response")
	}

	msg := first.Choices[0].Message
	if len(msg.ToolCalls) == 0 {
		return Reply{Text: msg.Content}, nil
	}

	call := msg.ToolCalls[0]
	toolPayload := o.executeTool(ctx, call.Function.Name, call.Function.Arguments)

	followUp := req
	followUp.Tools = nil
	followUp.Messages = append(append([]openai.ChatCompletionMessage{}, req.Messages...),
		msg,
		openai.ChatCompletionMessage{
			Role:       openai.ChatMessageRoleTool,
			ToolCallID: call.ID,
			Name:       call.Function.Name,
			Content:    string(toolPayload),
		},
	)

	second, err := o.client.CreateChatCompletion(ctx, followUp)
	if err != nil {
		return Reply{}, fmt.Errorf("chat follow-up completion: %w", err)
	}

	reply := Reply{ToolResults: []json.RawMessage{toolPayload}}
	if len(second.Choices) > 0 && second.Choices[0].Message.Content != "" {
		reply.Text = second.Choices[0].Message.Content
	} else {
		reply.Text = string(toolPayload)
	}
	return reply, nil
}

type toolArgs struct {
	Start       string   `json:"start"`
	End         string   `json:"end"`
	CalendarID  string   `json:"calendarId"`
	TimeZone    string   `json:"timeZone"`
	Summary     string   `json:"summary"`
	Description string   `json:"description"`
	Attendees   []string `json:"attendees"`
	TTLMinutes  int      `json:"ttlMinutes"`
}

func (o *Orchestrator) executeTool(ctx context.Context, name, rawArgs string) json.RawMessage {
	var args toolArgs
	if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
		return toolFailure(name, fmt.Sprintf("invalid tool arguments: %v", err))
	}
	if args.CalendarID == "" {
		args.CalendarID = o.cfg.DefaultCalendarID
	}
	tz := timeutil.NormalizeTimeZone(args.TimeZone, o.cfg.DefaultTimeZone)

	switch name {
	case "check_availability":
		startISO, err := timeutil.NormalizeTimestamp(args.Start)
		if err != nil {
			return toolFailure(name, "invalid start datetime")
		}
		endISO, err := timeutil.NormalizeTimestamp(args.End)
		if err != nil {
			return toolFailure(name, "invalid end datetime")
		}
		freeBusy, err := o.availability.QueryFreeBusy(ctx, args.CalendarID, startISO, endISO, tz)
		if err != nil {
			return toolFailure(name, err.Error())
		}
		return mustJSON(map[string]any{
			"ok":         true,
			"calendarId": args.CalendarID,
			"timeZone":   tz,
			"available":  freeBusy.Available,
			"busy":       freeBusy.Busy,
		})

	case "create_hold":
		ttl := args.TTLMinutes
		if ttl <= 0 {
			ttl = o.cfg.DefaultTTLMinutes
		}
		hold, err := o.holds.CreateHold(ctx, app.CreateHoldInput{
			CalendarID:  args.CalendarID,
			Start:       args.Start,
			End:         args.End,
			TimeZone:    tz,
			Summary:     args.Summary,
			Description: args.Description,
			Attendees:   args.Attendees,
			TTLMinutes:  ttl,
		})
		if err != nil {
			return toolFailure(name, err.Error())
		}
		return mustJSON(map[string]any{
			"ok":         true,
			"id":         hold.ID,
			"calendarId": hold.CalendarID,
			"htmlLink":   hold.HTMLLink,
			"start":      hold.Start,
			"end":        hold.End,
			"status":     hold.Status,
			"expiresAt":  hold.ExpiresAt,
		})
	}

	return toolFailure(name, "unknown tool")
}

// toolFailure renders a failed tool call as a short human-readable sentence
// so the model relays something a site visitor can act on.
func toolFailure(name, reason string) json.RawMessage {
	verb := "completing the request"
	switch name {
	case "check_availability":
		verb = "checking availability"
	case "create_hold":
		verb = "creating a hold"
	}
	return mustJSON(map[string]any{
		"ok":    false,
		"error": fmt.Sprintf("Sorry — %s failed (%s).", verb, reason),
	})
}

func mustJSON(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage(`{"ok":false,"error":"internal encoding error"}`)
	}
	return data
}

func toolDefinitions() []openai.Tool {
	return []openai.Tool{
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        "check_availability",
				Description: "Check calendar availability for a time range.",
				Parameters: jsonschema.Definition{
					Type: jsonschema.Object,
					Properties: map[string]jsonschema.Definition{
						"start":      {Type: jsonschema.String, Description: "ISO datetime"},
						"end":        {Type: jsonschema.String, Description: "ISO datetime"},
						"calendarId": {Type: jsonschema.String},
						"timeZone":   {Type: jsonschema.String},
					},
					Required: []string{"start", "end"},
				},
			},
		},
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        "create_hold",
				Description: "Create a tentative calendar hold that auto-expires unless confirmed.",
				Parameters: jsonschema.Definition{
					Type: jsonschema.Object,
					Properties: map[string]jsonschema.Definition{
						"start":       {Type: jsonschema.String, Description: "ISO datetime"},
						"end":         {Type: jsonschema.String, Description: "ISO datetime"},
						"summary":     {Type: jsonschema.String},
						"description": {Type: jsonschema.String},
						"attendees":   {Type: jsonschema.Array, Items: &jsonschema.Definition{Type: jsonschema.String}},
						"calendarId":  {Type: jsonschema.String},
						"timeZone":    {Type: jsonschema.String},
						"ttlMinutes":  {Type: jsonschema.Number},
					},
					Required: []string{"start", "end"},
				},
			},
		},
	}
}

func defaultSystemPrompt(calendarID, timeZone string) string {
	return fmt.Sprintf(`You are a website booking assistant with access to TOOLS:
- check_availability(start, end, calendarId?, timeZone?)
- create_hold(start, end, summary?, description?, attendees?, calendarId?, timeZone?, ttlMinutes?)

Rules:
- When the visitor asks about schedules, availability, booking, or holds, call a tool with precise ISO datetimes in %s.
- If either start or end is missing, ask ONCE to clarify both in a single question, then call the tool.
- Default calendar: %s. Default time zone: %s.
- Keep answers concise and include a human-friendly time summary.`, timeZone, calendarID, timeZone)
}
