package mcpserver

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/hpml/internal/dataset"
	"github.com/starford/hpml/internal/predictor"
	"github.com/starford/hpml/internal/testutil"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	m := testutil.TrainedModel(t)
	return New(predictor.New(m.Artifacts, testutil.Logger()), "test", testutil.Logger())
}

func exampleArgs() map[string]any {
	return map[string]any{
		"square_footage":          1850.0,
		"bedrooms":                3.0,
		"bathrooms":               2.0,
		"year_built":              2000.0,
		"lot_size":                7500.0,
		"distance_to_city_center": 5.5,
		"school_rating":           8.2,
	}
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" test helper, so handlers are invoked
	// directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "predict_price":
		result, err = srv.predictPrice(ctx, req)
	case "predict_batch":
		result, err = srv.predictBatch(ctx, req)
	case "predict_file":
		result, err = srv.predictFile(ctx, req)
	case "model_info":
		result, err = srv.modelInfo(ctx, req)
	case "health":
		result, err = srv.health(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestPredictPriceMatchesBatch(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "predict_price", exampleArgs())
	if r.IsError {
		t.Fatalf("predict_price error: %s", resultText(r))
	}
	var one struct {
		PredictedPrice int64 `json:"predicted_price"`
	}
	if err := json.Unmarshal([]byte(resultText(r)), &one); err != nil {
		t.Fatal(err)
	}

	house, _ := json.Marshal(exampleArgs())
	r = callTool(t, srv, "predict_batch", map[string]any{"houses": "[" + string(house) + "]"})
	if r.IsError {
		t.Fatalf("predict_batch error: %s", resultText(r))
	}
	var batch struct {
		PredictedPrices []int64 `json:"predicted_prices"`
	}
	if err := json.Unmarshal([]byte(resultText(r)), &batch); err != nil {
		t.Fatal(err)
	}
	if len(batch.PredictedPrices) != 1 || batch.PredictedPrices[0] != one.PredictedPrice {
		t.Errorf("batch = %v, single = %d", batch.PredictedPrices, one.PredictedPrice)
	}
}

func TestPredictPriceInvalid(t *testing.T) {
	srv := testServer(t)

	args := exampleArgs()
	args["bedrooms"] = 2.5
	if r := callTool(t, srv, "predict_price", args); !r.IsError {
		t.Error("expected error for fractional bedrooms")
	}

	args = exampleArgs()
	args["school_rating"] = 11.0
	if r := callTool(t, srv, "predict_price", args); !r.IsError || !strings.Contains(resultText(r), "school_rating") {
		t.Errorf("out of range result = %q", resultText(r))
	}

	args = exampleArgs()
	delete(args, "lot_size")
	if r := callTool(t, srv, "predict_price", args); !r.IsError {
		t.Error("expected error for missing lot_size")
	}
}

func TestPredictBatchErrors(t *testing.T) {
	srv := testServer(t)
	for _, houses := range []string{"not json", "[]"} {
		if r := callTool(t, srv, "predict_batch", map[string]any{"houses": houses}); !r.IsError {
			t.Errorf("houses %q: expected error", houses)
		}
	}
}

func TestPredictFile(t *testing.T) {
	srv := testServer(t)
	dir := t.TempDir()
	path := testutil.WriteDataset(t, dir, 12, 3)

	r := callTool(t, srv, "predict_file", map[string]any{"path": path})
	if r.IsError {
		t.Fatalf("predict_file error: %s", resultText(r))
	}
	var res fileResult
	if err := json.Unmarshal([]byte(resultText(r)), &res); err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(dir, "houses_with_prediction.csv"); res.Output != want {
		t.Errorf("output = %q, want %q", res.Output, want)
	}
	if res.Rows != 12 {
		t.Errorf("rows = %d, want 12", res.Rows)
	}

	out, err := dataset.ReadFile(res.Output)
	if err != nil {
		t.Fatal(err)
	}
	if !out.Has(dataset.IDColumn) || !out.Has(dataset.PredictionColumn) {
		t.Errorf("output header = %v", out.Header)
	}
}

func TestPredictFileMissing(t *testing.T) {
	srv := testServer(t)
	missing := filepath.Join(t.TempDir(), "nope.csv")
	if r := callTool(t, srv, "predict_file", map[string]any{"path": missing}); !r.IsError {
		t.Error("expected error for missing file")
	}
	txt := filepath.Join(t.TempDir(), "houses.txt")
	_ = os.WriteFile(txt, []byte("a,b\n1,2\n"), 0o644)
	if r := callTool(t, srv, "predict_file", map[string]any{"path": txt}); !r.IsError {
		t.Error("expected error for unsupported file")
	}
}

func TestModelInfoAndHealth(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "model_info", nil)
	if r.IsError || !strings.Contains(resultText(r), `"top_features"`) {
		t.Errorf("model_info = %q", resultText(r))
	}
	r = callTool(t, srv, "health", nil)
	if !strings.Contains(resultText(r), `"loaded"`) {
		t.Errorf("health = %q", resultText(r))
	}

	empty := New(predictor.New(nil, testutil.Logger()), "test", testutil.Logger())
	if r := callTool(t, empty, "model_info", nil); !r.IsError {
		t.Error("expected error without a model")
	}
	if r := callTool(t, empty, "predict_price", exampleArgs()); !r.IsError {
		t.Error("expected error without a model")
	}
}

func TestInputContractNamesReferenceYear(t *testing.T) {
	srv := testServer(t)
	contents, err := srv.readContractResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatal(err)
	}
	text := contents[0].(mcp.TextResourceContents).Text
	if !strings.Contains(text, "1900 to 2025") {
		t.Errorf("contract does not bound year_built by the reference year:\n%s", text)
	}
}
