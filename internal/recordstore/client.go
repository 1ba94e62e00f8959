// Package recordstore talks to the remote hierarchical JSON document store
// that holds exam content and receives student answers.
//
// Addressing follows the {base}/{path}.json convention. None of the
// operations return errors: failures are logged for operators and converted
// into the documented fallback value.
package recordstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

// Collections read and written by the portal.
const (
	PathCourses              = "courses"
	PathExams                = "exams"
	PathQuestions            = "questions"
	PathChoices              = "choices"
	PathStudentCourses       = "student_courses"
	PathExamQuestionsGrouped = "exam_questions_grouped"
	PathChoicesByQuestion    = "choices_by_question"
	PathStudentAnswers       = "student_answers"
)

// Client is a record store client backed by resty.
type Client struct {
	http *resty.Client
	base string
	auth string
	log  zerolog.Logger
}

// New creates a Client for the store at baseURL. auth is appended as the
// ?auth= query parameter when non-empty. A zero timeout leaves the HTTP
// client default (no timeout) in place.
func New(baseURL, auth string, timeout time.Duration, log zerolog.Logger) *Client {
	l := log.With().Str("component", "recordstore").Logger()

	hc := resty.New().
		SetHeader("Accept", "application/json").
		SetLogger(restyLogger{l})
	if timeout > 0 {
		hc.SetTimeout(timeout)
	}

	return &Client{
		http: hc,
		base: strings.TrimRight(baseURL, "/"),
		auth: auth,
		log:  l,
	}
}

// URL returns the full address of path in the store.
func (c *Client) URL(path string) string {
	return fmt.Sprintf("%s/%s.json", c.base, strings.Trim(path, "/"))
}

// Get reads the value at path. It returns an empty mapping when the request
// fails, the status is not 2xx, the body is not JSON, or the stored value is
// null or empty.
func (c *Client) Get(ctx context.Context, path string) any {
	body, ok := c.do(ctx, resty.MethodGet, path, nil)
	if !ok {
		return map[string]any{}
	}

	v, err := decode(body)
	if err != nil {
		c.log.Error().Err(err).Str("path", path).Str("body", truncate(body)).Msg("Decode response")
		return map[string]any{}
	}
	if isEmpty(v) {
		return map[string]any{}
	}
	return v
}

// Post appends payload under path and returns the key generated by the store.
// ok is false when the write failed or the response carried no key.
func (c *Client) Post(ctx context.Context, path string, payload any) (string, bool) {
	body, ok := c.do(ctx, resty.MethodPost, path, payload)
	if !ok {
		return "", false
	}

	var res struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(body, &res); err != nil {
		c.log.Error().Err(err).Str("path", path).Str("body", truncate(body)).Msg("Decode post response")
		return "", false
	}
	if res.Name == "" {
		c.log.Error().Str("path", path).Str("body", truncate(body)).Msg("Post response has no generated key")
		return "", false
	}
	return res.Name, true
}

// Put overwrites the value at path with payload and returns the decoded
// response body.
func (c *Client) Put(ctx context.Context, path string, payload any) (any, bool) {
	body, ok := c.do(ctx, resty.MethodPut, path, payload)
	if !ok {
		return nil, false
	}

	v, err := decode(body)
	if err != nil {
		c.log.Error().Err(err).Str("path", path).Str("body", truncate(body)).Msg("Decode put response")
		return nil, false
	}
	return v, true
}

func (c *Client) do(ctx context.Context, method, path string, payload any) ([]byte, bool) {
	req := c.http.R().SetContext(ctx)
	if c.auth != "" {
		req.SetQueryParam("auth", c.auth)
	}
	if payload != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(payload)
	}

	start := time.Now()
	resp, err := req.Execute(method, c.URL(path))
	if err != nil {
		c.log.Error().Err(err).Str("method", method).Str("path", path).Msg("Record store request failed")
		return nil, false
	}

	if !resp.IsSuccess() {
		c.log.Error().
			Str("method", method).
			Str("path", path).
			Int("status", resp.StatusCode()).
			Str("body", truncate(resp.Body())).
			Msg("Record store returned non-success status")
		return nil, false
	}

	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Dur("elapsed", time.Since(start)).
		Msg("Record store request")

	return resp.Body(), true
}

// decode parses a JSON body keeping numbers as json.Number so that ids such
// as 1001 stringify without a float exponent.
func decode(body []byte) (any, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case map[string]any:
		return len(t) == 0
	case []any:
		return len(t) == 0
	case string:
		return t == ""
	case bool:
		return !t
	case json.Number:
		return t.String() == "0"
	}
	return false
}

func truncate(b []byte) string {
	const max = 256
	if len(b) > max {
		return string(b[:max]) + "..."
	}
	return string(b)
}

// restyLogger routes resty's internal messages through zerolog.
type restyLogger struct {
	log zerolog.Logger
}

func (l restyLogger) Errorf(format string, v ...interface{}) {
	l.log.Error().Msgf(format, v...)
}

func (l restyLogger) Warnf(format string, v ...interface{}) {
	l.log.Warn().Msgf(format, v...)
}

func (l restyLogger) Debugf(format string, v ...interface{}) {
	l.log.Debug().Msgf(format, v...)
}
