package seed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/valyala/fasthttp"

	"github.com/idilsaglam/todolocal/internal/model"
)

// DefaultBaseURL is the public demo API the store is seeded from.
const DefaultBaseURL = "https://jsonplaceholder.typicode.com"

const todoSchema = `{
	"type": "object",
	"required": ["id", "title", "completed"],
	"properties": {
		"id":        {"type": "integer", "minimum": 1},
		"title":     {"type": "string", "minLength": 1},
		"completed": {"type": "boolean"},
		"userId":    {"type": "integer"}
	}
}`

var (
	itemSchema = jsonschema.MustCompileString("todo.schema.json", todoSchema)
	listSchema = jsonschema.MustCompileString("todos.schema.json",
		`{"type": "array", "items": `+todoSchema+`}`)
)

// PageSource yields the first n todos of the remote collection.
type PageSource interface {
	FetchPage(ctx context.Context, limit int) ([]model.Todo, error)
}

// ItemSource yields one remote todo by id.
type ItemSource interface {
	FetchOne(ctx context.Context, id int64) (model.Todo, error)
}

// StatusError reports a non-2xx answer from the remote source.
// A 404 matches model.ErrNotFound.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.Code)
}

func (e *StatusError) Is(target error) bool {
	return e.Code == fasthttp.StatusNotFound && target == model.ErrNotFound
}

// HTTPSource reads todos from a JSONPlaceholder-compatible API.
type HTTPSource struct {
	baseURL string
	client  *fasthttp.Client
}

var (
	_ PageSource = (*HTTPSource)(nil)
	_ ItemSource = (*HTTPSource)(nil)
)

// NewHTTPSource builds a source for baseURL. A nil client gets a default one.
func NewHTTPSource(baseURL string, client *fasthttp.Client) *HTTPSource {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if client == nil {
		client = &fasthttp.Client{Name: "todolocal"}
	}
	return &HTTPSource{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

func (s *HTTPSource) FetchPage(ctx context.Context, limit int) ([]model.Todo, error) {
	url := s.baseURL + "/todos?_limit=" + strconv.Itoa(limit)
	body, err := s.get(ctx, url)
	if err != nil {
		return nil, err
	}
	var todos []model.Todo
	if err := decode(body, listSchema, &todos); err != nil {
		return nil, fmt.Errorf("GET %s: %w", url, err)
	}
	// The API ignores _limit on some mirrors; never take more than asked.
	if limit > 0 && len(todos) > limit {
		todos = todos[:limit]
	}
	return todos, nil
}

func (s *HTTPSource) FetchOne(ctx context.Context, id int64) (model.Todo, error) {
	url := s.baseURL + "/todos/" + strconv.FormatInt(id, 10)
	body, err := s.get(ctx, url)
	if err != nil {
		return model.Todo{}, err
	}
	var t model.Todo
	if err := decode(body, itemSchema, &t); err != nil {
		return model.Todo{}, fmt.Errorf("GET %s: %w", url, err)
	}
	return t, nil
}

// get performs one GET. There is no timeout unless ctx carries a deadline.
func (s *HTTPSource) get(ctx context.Context, url string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.Header.SetMethod(fasthttp.MethodGet)
	req.SetRequestURI(url)
	req.Header.Set(fasthttp.HeaderAccept, "application/json")

	var err error
	if deadline, ok := ctx.Deadline(); ok {
		err = s.client.DoDeadline(req, resp, deadline)
	} else {
		err = s.client.Do(req, resp)
	}
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", url, err)
	}
	if code := resp.StatusCode(); code < 200 || code > 299 {
		return nil, &StatusError{URL: url, Code: code}
	}
	return append([]byte(nil), resp.Body()...), nil
}

// decode validates body against schema, then unmarshals it into v.
func decode(body []byte, schema *jsonschema.Schema, v any) error {
	var doc any
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}
