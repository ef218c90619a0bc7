package lookup

import (
	"bytes"
	"fmt"
	"net/http"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// classifiedResponse is a successful exchange. A nil body means the
// registry has no data for the entity.
type classifiedResponse struct {
	entity Entity
	body   jsoniter.RawMessage
}

// errorEnvelope is the body the registry sends with unexpected statuses.
type errorEnvelope struct {
	Error   *string `json:"error"`
	Message *string `json:"message"`
}

// classifyResponse maps one HTTP outcome to success, no data or failure.
func classifyResponse(transportErr error, status int, body []byte, entity Entity) (classifiedResponse, error) {
	if transportErr != nil {
		return classifiedResponse{}, &RequestError{
			Kind:   KindTransport,
			Detail: detailTransport,
			Entity: entity,
			Err:    transportErr,
		}
	}

	switch status {
	case http.StatusOK:
		trimmed := bytes.TrimSpace(body)
		if len(trimmed) > 0 && !json.Valid(trimmed) {
			return classifiedResponse{}, &RequestError{
				Kind:   KindDecode,
				Detail: "Invalid JSON response",
				Entity: entity,
				Status: status,
				Body:   body,
			}
		}
		return classifiedResponse{entity: entity, body: trimmed}, nil
	case http.StatusNotFound, http.StatusAccepted:
		return classifiedResponse{entity: entity}, nil
	}

	var envelope errorEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil || envelope.Error == nil || envelope.Message == nil {
		return classifiedResponse{}, &RequestError{
			Kind:   KindMalformedError,
			Detail: fmt.Sprintf("Unexpected HTTP status %d", status),
			Entity: entity,
			Status: status,
			Body:   body,
		}
	}
	return classifiedResponse{}, &RequestError{
		Kind:   KindStatus,
		Detail: *envelope.Error + ": " + *envelope.Message,
		Entity: entity,
		Status: status,
		Body:   body,
	}
}

// isEmptyBody reports bodies that carry no data: nothing, null, "" or [].
func isEmptyBody(body []byte) bool {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return true
	}
	switch string(trimmed) {
	case "null", `""`:
		return true
	}
	if trimmed[0] == '[' {
		var items []jsoniter.RawMessage
		if err := json.Unmarshal(trimmed, &items); err == nil && len(items) == 0 {
			return true
		}
	}
	return false
}

// newData turns a classified abuse-contact body into the data object of a
// LookupResult. Empty bodies produce nil.
func newData(res classifiedResponse) (*Data, error) {
	if isEmptyBody(res.body) {
		return nil, nil
	}
	var details map[string]any
	if err := json.Unmarshal(res.body, &details); err != nil {
		return nil, &RequestError{
			Kind:   KindDecode,
			Detail: "Invalid JSON response",
			Entity: res.entity,
			Status: http.StatusOK,
			Body:   res.body,
			Err:    err,
		}
	}
	return &Data{Summary: []string{}, Details: details}, nil
}

// decodeValue decodes any JSON body; no data decodes to nil.
func decodeValue(res classifiedResponse) (any, error) {
	if len(res.body) == 0 {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal(res.body, &v); err != nil {
		return nil, &RequestError{
			Kind:   KindDecode,
			Detail: "Invalid JSON response",
			Entity: res.entity,
			Status: http.StatusOK,
			Body:   res.body,
			Err:    err,
		}
	}
	return v, nil
}
