package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"fundflow-lab/internal/fundflow"
	"fundflow-lab/internal/pipeline"
	"fundflow-lab/internal/storage/memory"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	stores := &allStores{
		contracts:    memory.NewContractStore(),
		transactions: memory.NewTransactionStore(),
		sequences:    memory.NewSequenceStore(),
		cases:        memory.NewCaseStore(),
		frequencies:  memory.NewCaseFrequencyStore(),
		memory:       true,
	}
	require.NoError(t, pipeline.LoadFixtures(context.Background(), stores.contracts, stores.transactions))

	s := newServer(stores, fundflow.MustBuildTaxonomy(), zaptest.NewLogger(t))
	ts := httptest.NewServer(s.routes())
	t.Cleanup(ts.Close)
	return ts
}

func do(t *testing.T, method, url string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(method, url, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()

	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestServer_Health(t *testing.T) {
	ts := newTestServer(t)

	resp := do(t, http.MethodGet, ts.URL+"/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_Taxonomy(t *testing.T) {
	ts := newTestServer(t)

	resp := do(t, http.MethodGet, ts.URL+"/taxonomy")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	a := decode[fundflow.Artifact](t, resp)
	assert.Len(t, a.Cases, 244)
	assert.Equal(t, 1, a.Cases[0].ID)
}

func TestServer_SequenceLifecycle(t *testing.T) {
	ts := newTestServer(t)
	url := ts.URL + "/sequences/" + string(pipeline.FixtureFunded)

	resp := do(t, http.MethodGet, url)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = do(t, http.MethodPost, url)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	built := decode[SequenceResponse](t, resp)
	assert.Equal(t, []int{182, 206, 84, 40}, built.Cases)
	assert.Len(t, built.Names, 4)
	assert.Len(t, built.SequenceID, 64)
	assert.Equal(t, fundflow.MustBuildTaxonomy().Digest(), built.TaxonomyDigest)

	// Rebuilding keeps the stored sequence.
	resp = do(t, http.MethodPost, url)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	again := decode[SequenceResponse](t, resp)
	assert.Equal(t, built, again)

	resp = do(t, http.MethodGet, url)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, built, decode[SequenceResponse](t, resp))
}

func TestServer_BuildFailure(t *testing.T) {
	ts := newTestServer(t)

	resp := do(t, http.MethodPost, ts.URL+"/sequences/"+string(pipeline.FixtureSelfCreating))
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	body := decode[map[string]string](t, resp)
	assert.Contains(t, body["error"], string(pipeline.FixtureSelfCreating))

	resp = do(t, http.MethodGet, ts.URL+"/sequences/"+string(pipeline.FixtureSelfCreating))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_AddressIsNormalized(t *testing.T) {
	ts := newTestServer(t)
	url := ts.URL + "/sequences/" + strings.ToUpper(string(pipeline.FixtureInternal))

	resp := do(t, http.MethodPost, url)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	built := decode[SequenceResponse](t, resp)
	assert.Equal(t, string(pipeline.FixtureInternal), built.Address)

	resp = do(t, http.MethodGet, url)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, built, decode[SequenceResponse](t, resp))
}

func TestServer_BuildUnknownContract(t *testing.T) {
	ts := newTestServer(t)

	resp := do(t, http.MethodPost, ts.URL+"/sequences/0xdead")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	body := decode[map[string]string](t, resp)
	assert.Contains(t, body["error"], "0xdead")
}

func TestServer_Status(t *testing.T) {
	ts := newTestServer(t)

	do(t, http.MethodPost, ts.URL+"/sequences/"+string(pipeline.FixtureInternal))

	resp := do(t, http.MethodGet, ts.URL+"/status")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	status := decode[StatusResponse](t, resp)
	assert.Equal(t, "running", status.Status)
	assert.Equal(t, 244, status.TaxonomySize)
	assert.Equal(t, 1, status.PipelineRuns)
	require.NotNil(t, status.LastRun)
	require.NotNil(t, status.LastResult)
	assert.Equal(t, 1, status.LastResult.SequencesStored)
}

func TestServer_MethodNotAllowed(t *testing.T) {
	ts := newTestServer(t)

	resp := do(t, http.MethodDelete, ts.URL+"/sequences/"+string(pipeline.FixtureFunded))
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
