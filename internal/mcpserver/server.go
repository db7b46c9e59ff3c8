// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the price model as tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/hpml/internal/dataset"
	"github.com/starford/hpml/internal/housing"
	"github.com/starford/hpml/internal/predictor"
)

const contractURI = "hpml://input-contract"

// Server wraps the MCP server with the prediction tools.
type Server struct {
	mcp    *server.MCPServer
	svc    *predictor.Service
	logger *slog.Logger
}

// New creates a new MCP server with all tools registered.
func New(svc *predictor.Service, version string, logger *slog.Logger) *Server {
	s := &Server{svc: svc, logger: logger}

	s.mcp = server.NewMCPServer(
		"hpml",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("predict_price",
		mcp.WithDescription("Predict the sale price of one house. "+
			"Read the input contract first via the hpml://input-contract resource."),
		mcp.WithNumber(housing.SquareFootage, mcp.Required(), mcp.Description("Living area in square feet")),
		mcp.WithNumber(housing.Bedrooms, mcp.Required(), mcp.Description("Bedroom count (1-10)")),
		mcp.WithNumber(housing.Bathrooms, mcp.Required(), mcp.Description("Bathroom count (1-10)")),
		mcp.WithNumber(housing.YearBuilt, mcp.Required(), mcp.Description("Construction year")),
		mcp.WithNumber(housing.LotSize, mcp.Required(), mcp.Description("Lot area in square feet")),
		mcp.WithNumber(housing.DistanceToCityCenter, mcp.Required(), mcp.Description("Distance to the city center")),
		mcp.WithNumber(housing.SchoolRating, mcp.Required(), mcp.Description("School rating (0-10)")),
	), s.predictPrice)

	s.mcp.AddTool(mcp.NewTool("predict_batch",
		mcp.WithDescription("Predict prices for a JSON array of houses. Prices come back in input order."),
		mcp.WithString("houses", mcp.Required(), mcp.Description("JSON array of house objects")),
	), s.predictBatch)

	s.mcp.AddTool(mcp.NewTool("predict_file",
		mcp.WithDescription("Price every row of a local .csv or .xlsx file and write the result next to it."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path to the input file")),
		mcp.WithString("output", mcp.Description("Optional output path (.csv or .xlsx)")),
	), s.predictFile)

	s.mcp.AddTool(mcp.NewTool("model_info",
		mcp.WithDescription("Training metrics, coefficients and top features of the loaded model."),
	), s.modelInfo)

	s.mcp.AddTool(mcp.NewTool("health",
		mcp.WithDescription("Report whether a model is loaded."),
	), s.health)

	s.mcp.AddResource(
		mcp.NewResource(contractURI, "House Input Contract",
			mcp.WithResourceDescription("Attributes and ranges every prediction tool accepts."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readContractResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) predictPrice(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var h housing.House
	floats := map[string]**float64{
		housing.SquareFootage:        &h.SquareFootage,
		housing.Bathrooms:            &h.Bathrooms,
		housing.LotSize:              &h.LotSize,
		housing.DistanceToCityCenter: &h.DistanceToCityCenter,
		housing.SchoolRating:         &h.SchoolRating,
	}
	for name, dst := range floats {
		v, err := req.RequireFloat(name)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		*dst = &v
	}
	values := make(map[string]float64, 2)
	for _, name := range []string{housing.Bedrooms, housing.YearBuilt} {
		v, err := req.RequireFloat(name)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		values[name] = v
	}
	ints, err := housing.FromValues(values, 0)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	h.Bedrooms, h.YearBuilt = ints.Bedrooms, ints.YearBuilt

	price, err := s.svc.PredictOne(h)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]int64{"predicted_price": price})
}

func (s *Server) predictBatch(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("houses")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var houses []housing.House
	if err := json.Unmarshal([]byte(raw), &houses); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("houses must be a JSON array: %v", err)), nil
	}
	prices, err := s.svc.PredictBatch(houses)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string][]int64{"predicted_prices": prices})
}

type fileResult struct {
	Output string  `json:"output"`
	Rows   int     `json:"rows"`
	Mean   float64 `json:"predicted_mean"`
}

func (s *Server) predictFile(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	output := req.GetString("output", "")
	if output == "" {
		output = defaultOutput(path)
	}

	frame, err := dataset.ReadFile(path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.PredictFrame(frame)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := dataset.WriteFile(output, res.Frame); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	s.logger.Info("file priced",
		slog.String("input", path),
		slog.String("output", output),
		slog.Int("rows", len(res.Raw)))

	var sum float64
	for _, v := range res.Raw {
		sum += v
	}
	return jsonResult(fileResult{Output: output, Rows: len(res.Raw), Mean: sum / float64(len(res.Raw))})
}

func (s *Server) modelInfo(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	info, err := s.svc.ModelInfo()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(info)
}

func (s *Server) health(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.svc.Health())
}

func (s *Server) readContractResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      contractURI,
			MIMEType: "text/markdown",
			Text:     InputContract(s.svc.ReferenceYear()),
		},
	}, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(out)), nil
}

// defaultOutput places the result beside the input, keeping its format.
func defaultOutput(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "_with_prediction" + strings.ToLower(ext)
}
