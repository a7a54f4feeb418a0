package events

import "encoding/json"

// Event metadata is stored as a JSON document whose shape depends on the
// event type. Each variant below declares only the fields that type of
// event actually carries; decoding an event as the wrong variant reports
// a mismatch instead of yielding zero values silently.

// ScrollMetadata is attached to scroll events.
type ScrollMetadata struct {
	Depth int `json:"depth"` // percent of page height reached, 0-100
}

// ClickMetadata is attached to click events.
type ClickMetadata struct {
	X        int    `json:"x"`
	Y        int    `json:"y"`
	Selector string `json:"selector"`
}

// FieldBlurMetadata is attached to field_blur events.
type FieldBlurMetadata struct {
	FieldName   string `json:"fieldName"`
	TimeSpentMs int64  `json:"timeSpentMs"`
	HasError    bool   `json:"hasError"`
}

// FieldErrorMetadata is attached to field_error events.
type FieldErrorMetadata struct {
	FieldName string `json:"fieldName"`
	Message   string `json:"message"`
}

// FieldDetail describes one field's state at the moment a form was abandoned.
// The collector performs the per-field bookkeeping; we only read it back.
type FieldDetail struct {
	FieldName   string `json:"fieldName"`
	TimeSpentMs int64  `json:"timeSpentMs"`
	HadError    bool   `json:"hadError"`
}

// FormAbandonmentMetadata is attached to form_abandonment events.
type FormAbandonmentMetadata struct {
	FormID       string        `json:"formId"`
	FieldDetails []FieldDetail `json:"fieldDetails"`
}

// ScrollMeta decodes the metadata of a scroll event. The second return
// value is false when the event is not a scroll or the payload is invalid.
func (e Event) ScrollMeta() (ScrollMetadata, bool) {
	var meta ScrollMetadata
	if e.EventType != EventTypeScroll {
		return meta, false
	}
	return meta, json.Unmarshal([]byte(e.Metadata), &meta) == nil
}

// ClickMeta decodes the metadata of a click event.
func (e Event) ClickMeta() (ClickMetadata, bool) {
	var meta ClickMetadata
	if e.EventType != EventTypeClick {
		return meta, false
	}
	return meta, json.Unmarshal([]byte(e.Metadata), &meta) == nil
}

// FieldBlurMeta decodes the metadata of a field_blur event.
func (e Event) FieldBlurMeta() (FieldBlurMetadata, bool) {
	var meta FieldBlurMetadata
	if e.EventType != EventTypeFieldBlur {
		return meta, false
	}
	return meta, json.Unmarshal([]byte(e.Metadata), &meta) == nil
}

// FieldErrorMeta decodes the metadata of a field_error event.
func (e Event) FieldErrorMeta() (FieldErrorMetadata, bool) {
	var meta FieldErrorMetadata
	if e.EventType != EventTypeFieldError {
		return meta, false
	}
	return meta, json.Unmarshal([]byte(e.Metadata), &meta) == nil
}

// FormAbandonmentMeta decodes the metadata of a form_abandonment event.
func (e Event) FormAbandonmentMeta() (FormAbandonmentMetadata, bool) {
	var meta FormAbandonmentMetadata
	if e.EventType != EventTypeFormAbandonment {
		return meta, false
	}
	return meta, json.Unmarshal([]byte(e.Metadata), &meta) == nil
}
