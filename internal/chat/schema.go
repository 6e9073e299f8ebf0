package chat

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const startSessionSchema = `{
	"type": "object",
	"properties": {
		"userName":  {"type": ["string", "null"]},
		"userEmail": {"type": ["string", "null"]}
	}
}`

const chatSchema = `{
	"type": "object",
	"required": ["message", "sessionId"],
	"properties": {
		"message":      {"type": "string"},
		"sessionId":    {"type": "string", "minLength": 1},
		"currentTopic": {"type": ["string", "null"]},
		"currentMode":  {"type": ["string", "null"]}
	}
}`

const feedbackSchema = `{
	"type": "object",
	"required": ["messageId", "feedbackType", "messageText"],
	"properties": {
		"messageId":    {"type": ["string", "number"]},
		"feedbackType": {"type": "string"},
		"messageText":  {"type": "string"},
		"sessionId":    {"type": ["string", "null"]}
	}
}`

const evaluationSchema = `{
	"type": "object",
	"required": ["sessionId", "isCorrect"],
	"properties": {
		"sessionId": {"type": "string", "minLength": 1},
		"isCorrect": {"type": "boolean"}
	}
}`

type schemas struct {
	startSession *gojsonschema.Schema
	chat         *gojsonschema.Schema
	feedback     *gojsonschema.Schema
	evaluation   *gojsonschema.Schema
}

func compileSchemas() (*schemas, error) {
	var sc schemas
	for _, s := range []struct {
		name string
		src  string
		dst  **gojsonschema.Schema
	}{
		{"start-session", startSessionSchema, &sc.startSession},
		{"chat", chatSchema, &sc.chat},
		{"feedback", feedbackSchema, &sc.feedback},
		{"exercise-evaluation", evaluationSchema, &sc.evaluation},
	} {
		compiled, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(s.src))
		if err != nil {
			return nil, fmt.Errorf("compiling %s schema: %w", s.name, err)
		}
		*s.dst = compiled
	}
	return &sc, nil
}

// validationError is a request body that is not valid JSON or does not
// match its schema.
type validationError struct {
	msg string
}

func (e *validationError) Error() string { return e.msg }

// readBody reads a request body capped at maxBodyBytes. An empty body reads
// as an empty object when allowEmpty is set.
func readBody(w http.ResponseWriter, r *http.Request, allowEmpty bool) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, &validationError{msg: "Corpo da requisição inválido ou muito grande."}
	}
	if allowEmpty && len(bytes.TrimSpace(body)) == 0 {
		body = []byte("{}")
	}
	return body, nil
}

// decode validates body against schema and unmarshals it into dst.
func decode(schema *gojsonschema.Schema, body []byte, dst any) error {
	result, err := schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return &validationError{msg: "JSON inválido no corpo da requisição."}
	}
	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			details = append(details, e.String())
		}
		return &validationError{msg: "Requisição inválida: " + strings.Join(details, "; ")}
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return &validationError{msg: "JSON inválido no corpo da requisição."}
	}
	return nil
}

// messageID accepts either a JSON string or a JSON number. Front ends send
// timestamps as numbers.
type messageID string

func (m *messageID) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*m = messageID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("messageId must be a string or number: %w", err)
	}
	*m = messageID(n.String())
	return nil
}
