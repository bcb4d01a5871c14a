//go:build bdd

// Package steps provides godog step definitions for the BDD suite.
package steps

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dataplatform/validation-pipeline/internal/broker"
	"github.com/dataplatform/validation-pipeline/internal/evaluate"
	"github.com/dataplatform/validation-pipeline/internal/objectstore"
	"github.com/dataplatform/validation-pipeline/internal/registry"
)

// TestContext holds state shared across steps within a single scenario.
type TestContext struct {
	BaseURL        string
	LastStatusCode int
	LastBody       []byte
	LastJSON       map[string]interface{}

	Objects   *objectstore.MemoryStore
	Registry  *registry.SchemaRegistry
	Moves     *registry.MoveRegistry
	Broker    *broker.MemoryBroker
	Evaluator *evaluate.Evaluator

	SourceBucket     string
	ValidateBucket   string
	QuarantineBucket string

	client *http.Client
}

// NewTestContext wires a fresh in-process test fixture around the given
// HTTP base URL and the components the evaluator needs.
func NewTestContext(baseURL string, objects *objectstore.MemoryStore, reg *registry.SchemaRegistry, moves *registry.MoveRegistry, brk *broker.MemoryBroker, ev *evaluate.Evaluator) *TestContext {
	return &TestContext{
		BaseURL:          baseURL,
		Objects:          objects,
		Registry:         reg,
		Moves:            moves,
		Broker:           brk,
		Evaluator:        ev,
		SourceBucket:     ev.SourceBucket,
		ValidateBucket:   ev.ValidateBucket,
		QuarantineBucket: ev.QuarantineBucket,
		client:           &http.Client{Timeout: 5 * time.Second},
	}
}

func (tc *TestContext) doRequest(method, path string, body interface{}) error {
	url := tc.BaseURL + path

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := tc.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	tc.LastStatusCode = resp.StatusCode
	tc.LastBody, err = io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}

	tc.LastJSON = nil
	if len(tc.LastBody) > 0 && tc.LastBody[0] == '{' {
		var obj map[string]interface{}
		if err := json.Unmarshal(tc.LastBody, &obj); err == nil {
			tc.LastJSON = obj
		}
	}
	return nil
}

func (tc *TestContext) GET(path string) error { return tc.doRequest("GET", path, nil) }

func (tc *TestContext) PUT(path string, b interface{}) error { return tc.doRequest("PUT", path, b) }

func (tc *TestContext) POST(path string) error { return tc.doRequest("POST", path, nil) }

func (tc *TestContext) DELETE(path string) error { return tc.doRequest("DELETE", path, nil) }

// stageBlob writes a blob directly into the staging bucket, bypassing HTTP:
// there is no ingest API, staging is populated by an upstream system.
func (tc *TestContext) stageBlob(ctx context.Context, prefix, name string, data []byte) error {
	return tc.Objects.PutObject(ctx, tc.SourceBucket, prefix+"/"+name, data, "application/json")
}

func (tc *TestContext) countObjects(bucket string) int {
	return len(tc.Objects.Objects(bucket))
}
