// Package contract holds the OpenAPI description of the wrapper endpoints and
// checks live responses against it.
package contract

import (
	"context"
	_ "embed"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
)

//go:embed openapi.yaml
var document []byte

// Load parses and validates the embedded OpenAPI document.
func Load() (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(document)
	if err != nil {
		return nil, fmt.Errorf("load contract: %w", err)
	}
	if err := doc.Validate(loader.Context); err != nil {
		return nil, fmt.Errorf("invalid contract: %w", err)
	}
	return doc, nil
}

// ValidateResponse checks one response to a request on a documented path.
func ValidateResponse(ctx context.Context, doc *openapi3.T, req *http.Request, status int, header http.Header, body []byte) error {
	path := req.URL.Path
	item := doc.Paths.Value(path)
	if item == nil {
		return fmt.Errorf("%s is not a documented path", path)
	}
	op := item.GetOperation(req.Method)
	if op == nil {
		// any other method is answered like GET
		op = item.Get
	}
	input := &openapi3filter.ResponseValidationInput{
		RequestValidationInput: &openapi3filter.RequestValidationInput{
			Request: req,
			Route: &routers.Route{
				Spec:      doc,
				Path:      path,
				PathItem:  item,
				Method:    req.Method,
				Operation: op,
			},
		},
		Status: status,
		Header: header,
		Options: &openapi3filter.Options{
			IncludeResponseStatus: true,
			MultiError:            true,
		},
	}
	input.SetBodyBytes(body)
	if err := openapi3filter.ValidateResponse(ctx, input); err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, path, err)
	}
	return nil
}

// Result is the outcome of checking one documented request.
type Result struct {
	Method string
	Path   string
	Status int
	Err    error
}

// Check replays every documented operation against h in-process and validates
// each answer. It returns one Result per operation, in path matching order.
func Check(ctx context.Context, h http.Handler) ([]Result, error) {
	doc, err := Load()
	if err != nil {
		return nil, err
	}
	var results []Result
	for _, path := range doc.Paths.InMatchingOrder() {
		item := doc.Paths.Value(path)
		for _, method := range []string{http.MethodGet, http.MethodOptions} {
			if item.GetOperation(method) == nil {
				continue
			}
			req := httptest.NewRequest(method, path, nil).WithContext(ctx)
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			resp := rr.Result()
			body, _ := io.ReadAll(resp.Body)
			_ = resp.Body.Close()
			results = append(results, Result{
				Method: method,
				Path:   path,
				Status: resp.StatusCode,
				Err:    ValidateResponse(ctx, doc, req, resp.StatusCode, resp.Header, body),
			})
		}
	}
	return results, nil
}
