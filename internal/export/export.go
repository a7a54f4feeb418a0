// Package export serializes event batches for download. CSV quoting is
// deliberately strict: every field is quoted and embedded quotes are
// doubled, so consumers can split rows without guessing a dialect.
package export

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"clickpulse/internal/analytics"
	"clickpulse/internal/events"
)

// Format selects the serialization output.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// Options controls which optional columns the export carries.
type Options struct {
	IncludeMetadata bool
	IncludeSessions bool
}

// Result is the serialized payload with its suggested filename.
type Result struct {
	Payload  []byte
	Filename string
	// Notice carries a user-facing degrade message, such as when an email
	// delivery request falls back to a local download.
	Notice string
}

// ExportError reports that nothing could be exported. It is surfaced
// before any file write is attempted.
type ExportError struct {
	Reason string
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export failed: %s", e.Reason)
}

// Serialize renders the batch in the requested format. An empty batch is
// an ExportError, not an empty file.
func Serialize(batch []events.Event, stats analytics.Overview, format Format, opts Options) (*Result, error) {
	if len(batch) == 0 {
		return nil, &ExportError{Reason: "no events to export"}
	}

	switch format {
	case FormatCSV:
		return &Result{
			Payload:  serializeCSV(batch, opts),
			Filename: Filename(time.Now().UTC(), "csv"),
		}, nil
	case FormatJSON:
		payload, err := serializeJSON(batch, stats, opts)
		if err != nil {
			return nil, &ExportError{Reason: fmt.Sprintf("json encoding failed: %v", err)}
		}
		return &Result{
			Payload:  payload,
			Filename: Filename(time.Now().UTC(), "json"),
		}, nil
	default:
		return nil, &ExportError{Reason: fmt.Sprintf("unsupported format %q", format)}
	}
}

// DeliveryMethod is how the caller asked to receive the export.
type DeliveryMethod string

const (
	DeliverDownload DeliveryMethod = "download"
	DeliverEmail    DeliveryMethod = "email"
)

// EmailDegradeNotice is shown when an email delivery request degrades to
// a local download.
const EmailDegradeNotice = "Email delivery is not available; the export was prepared as a local download instead."

// Deliver serializes the batch and applies the delivery policy: there is
// no email path, so email requests degrade to a download with a notice.
func Deliver(batch []events.Event, stats analytics.Overview, format Format, opts Options, method DeliveryMethod) (*Result, error) {
	result, err := Serialize(batch, stats, format, opts)
	if err != nil {
		return nil, err
	}
	if method == DeliverEmail {
		result.Notice = EmailDegradeNotice
	}
	return result, nil
}

// Filename returns the conventional export filename for a timestamp.
func Filename(at time.Time, ext string) string {
	return fmt.Sprintf("clickstream_export_%s.%s", at.Format("2006-01-02_15-04"), ext)
}

func csvColumns(opts Options) []string {
	columns := []string{"event type", "page url", "element id", "element text", "element class"}
	if opts.IncludeSessions {
		columns = append(columns, "session id", "user id")
	}
	columns = append(columns, "created at")
	if opts.IncludeMetadata {
		columns = append(columns, "metadata")
	}
	return columns
}

func serializeCSV(batch []events.Event, opts Options) []byte {
	var sb strings.Builder

	writeRow(&sb, csvColumns(opts))
	for _, e := range batch {
		row := []string{string(e.EventType), e.PageURL, e.ElementID, e.ElementText, e.ElementClass}
		if opts.IncludeSessions {
			row = append(row, e.SessionID, e.UserID)
		}
		row = append(row, e.CreatedAt.UTC().Format(time.RFC3339))
		if opts.IncludeMetadata {
			row = append(row, e.Metadata)
		}
		writeRow(&sb, row)
	}

	return []byte(sb.String())
}

// writeRow quotes every field unconditionally, doubling embedded quotes.
func writeRow(sb *strings.Builder, fields []string) {
	for i, field := range fields {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteByte('"')
		sb.WriteString(strings.ReplaceAll(field, `"`, `""`))
		sb.WriteByte('"')
	}
	sb.WriteByte('\n')
}

type jsonExport struct {
	ExportDate string             `json:"exportDate"`
	Stats      analytics.Overview `json:"stats"`
	Count      int                `json:"count"`
	Events     []jsonEvent        `json:"events"`
}

type jsonEvent struct {
	EventType    string          `json:"eventType"`
	PageURL      string          `json:"pageUrl"`
	ElementID    string          `json:"elementId,omitempty"`
	ElementText  string          `json:"elementText,omitempty"`
	ElementClass string          `json:"elementClass,omitempty"`
	SessionID    string          `json:"sessionId,omitempty"`
	UserID       string          `json:"userId,omitempty"`
	CreatedAt    string          `json:"createdAt"`
	Metadata     json.RawMessage `json:"metadata,omitempty"`
}

func serializeJSON(batch []events.Event, stats analytics.Overview, opts Options) ([]byte, error) {
	out := jsonExport{
		ExportDate: time.Now().UTC().Format(time.RFC3339),
		Stats:      stats,
		Count:      len(batch),
		Events:     make([]jsonEvent, 0, len(batch)),
	}

	for _, e := range batch {
		je := jsonEvent{
			EventType:    string(e.EventType),
			PageURL:      e.PageURL,
			ElementID:    e.ElementID,
			ElementText:  e.ElementText,
			ElementClass: e.ElementClass,
			CreatedAt:    e.CreatedAt.UTC().Format(time.RFC3339),
		}
		if opts.IncludeSessions {
			je.SessionID = e.SessionID
			je.UserID = e.UserID
		}
		if opts.IncludeMetadata && json.Valid([]byte(e.Metadata)) {
			je.Metadata = json.RawMessage(e.Metadata)
		}
		out.Events = append(out.Events, je)
	}

	return json.MarshalIndent(out, "", "  ")
}
