package assistant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/depot-replenishment/internal/config"
	"github.com/andresuchdata/depot-replenishment/internal/domain"
)

func testConfig(url string) config.AssistantConfig {
	return config.AssistantConfig{Enabled: true, BaseURL: url + "/", Model: "llama3.2", TimeoutSeconds: 5}
}

func TestOllamaClient_Complete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "llama3.2", req.Model)
		assert.False(t, req.Stream)
		assert.Equal(t, "sys", req.System)
		assert.Equal(t, "question", req.Prompt)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(generateResponse{Model: "llama3.2", Response: "  M212 first.\n"})
	}))
	defer srv.Close()

	text, err := NewCompleter(testConfig(srv.URL)).Complete(context.Background(), "sys", "question")
	require.NoError(t, err)
	assert.Equal(t, "M212 first.", text)
}

func TestOllamaClient_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewOllamaClient(testConfig(srv.URL)).Complete(context.Background(), "", "q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestOllamaClient_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer srv.Close()

	c := NewOllamaClient(testConfig(srv.URL)).(*ollamaClient)
	c.timeout = 20 * time.Millisecond

	_, err := c.Complete(context.Background(), "", "q")
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestOllamaClient_Unavailable(t *testing.T) {
	_, err := NewOllamaClient(testConfig("http://127.0.0.1:1")).Complete(context.Background(), "", "q")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestNewCompleter_Disabled(t *testing.T) {
	_, err := NewCompleter(config.AssistantConfig{BaseURL: "http://x"}).Complete(context.Background(), "", "q")
	assert.ErrorIs(t, err, ErrDisabled)
}

type stubCompleter struct {
	system, prompt string
}

func (s *stubCompleter) Complete(_ context.Context, system, prompt string) (string, error) {
	s.system, s.prompt = system, prompt
	return "answer", nil
}

func TestAsk(t *testing.T) {
	ds := &domain.Dataset{
		SessionID: "s1",
		Orders: []domain.OrderRecord{
			{Article: "1011", Depot: "M212", Packaging: "verre", OrderedQty: 300},
			{Article: "1016", Depot: "M213", Packaging: "pet", OrderedQty: 90},
		},
		DateRange: &domain.DateRange{
			Start:     time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			End:       time.Date(2026, 1, 30, 0, 0, 0, 0, time.UTC),
			TotalDays: 30,
		},
	}
	result := &domain.CalculationResult{
		Request:          domain.CalculationRequest{Days: 10},
		HasInventoryData: true,
		Rows: []domain.CalculationRow{
			{Depot: "M212", Article: "1011", Packaging: "verre", Priority: domain.PriorityHigh, DaysOfCoverage: domain.FiniteCoverage(2), QuantityToSend: 810},
		},
		Summary: domain.Summary{TotalRows: 1, TotalDepots: 1, Priority: domain.PriorityCounts{High: 1}, Delivery: domain.DeliveryCounts{NotCovered: 1}},
	}

	stub := &stubCompleter{}
	ans, err := Ask(context.Background(), stub, ds, result, "  which depot is most urgent? ")
	require.NoError(t, err)
	assert.Equal(t, &Answer{Response: "answer", Query: "which depot is most urgent?", SessionID: "s1"}, ans)

	assert.Equal(t, systemPrompt, stub.system)
	assert.Contains(t, stub.prompt, "- Total records: 2")
	assert.Contains(t, stub.prompt, "2026-01-01 to 2026-01-30 (30 days)")
	assert.Contains(t, stub.prompt, "- Depots: M212, M213")
	assert.Contains(t, stub.prompt, "- Packaging types: pet, verre")
	assert.Contains(t, stub.prompt, "1 high, 0 medium")
	assert.Contains(t, stub.prompt, "Not covered by central stock: 1 rows")
	assert.Contains(t, stub.prompt, "M212 1011 (verre)")
	assert.Contains(t, stub.prompt, "User question: which depot is most urgent?")

	_, err = Ask(context.Background(), stub, ds, nil, "   ")
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestBuildContext_NoCalculation(t *testing.T) {
	out := BuildContext(&domain.Dataset{}, nil)
	assert.Contains(t, out, "No calculation has been run yet.")
	assert.NotContains(t, out, "Date range")
}
