package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/ironsheep/photo-forensics-mcp/internal/forensics"
	"github.com/ironsheep/photo-forensics-mcp/internal/imaging"
	"github.com/ironsheep/photo-forensics-mcp/internal/metadata"
	"github.com/ironsheep/photo-forensics-mcp/internal/workspace"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "image_load", "image_analyze").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		s.logger.Warn("tool failed", "tool", params.Name, "error", err)
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
//
// Each tool handler:
//  1. Unmarshals arguments from JSON
//  2. Applies configured defaults for optional parameters
//  3. Loads the source from cache as needed
//  4. Calls the appropriate imaging/forensics/metadata function
//  5. Returns the result or error
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}

	switch name {
	// Basic Image Information
	case "image_load":
		return s.handleImageLoad(args)
	case "image_dimensions":
		return s.handleImageDimensions(args)

	// Pixel Statistics
	case "image_histogram":
		return s.handleImageHistogram(args)
	case "image_palette":
		return s.handleImagePalette(args)
	case "image_overlay":
		return s.handleImageOverlay(args)

	// File Forensics
	case "image_hash":
		return s.handleImageHash(args)
	case "image_metadata":
		return s.handleImageMetadata(args)
	case "image_strip":
		return s.handleImageStrip(args)
	case "image_scan_phone":
		return s.handleImageScanPhone(args)

	// Full Analysis
	case "image_analyze":
		return s.handleImageAnalyze(args)

	// Workspace
	case "workspace_list":
		return s.handleWorkspaceList()
	case "workspace_select":
		return s.handleWorkspaceSelect(args)
	case "workspace_current":
		return s.workspace.Current()

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

var errNoPath = errors.New("path is required")

// load returns the cached source for path.
func (s *Server) load(path string) (*imaging.Source, error) {
	if path == "" {
		return nil, errNoPath
	}
	return s.cache.Load(path)
}

// === Basic Image Information Handlers ===

type imageLoadArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, errNoPath
	}
	return imaging.LoadImageInfo(s.cache, a.Path)
}

func (s *Server) handleImageDimensions(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, errNoPath
	}
	return imaging.GetDimensions(s.cache, a.Path)
}

// === Pixel Statistics Handlers ===

type imageHistogramArgs struct {
	Path   string `json:"path"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type histogramResult struct {
	SampleWidth   int                 `json:"sample_width"`
	SampleHeight  int                 `json:"sample_height"`
	Histogram     forensics.Histogram `json:"histogram"`
	MeanLuminance float64             `json:"mean_luminance"`
	PeakLuminance int                 `json:"peak_luminance"`
}

func (s *Server) handleImageHistogram(args json.RawMessage) (interface{}, error) {
	var a imageHistogramArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Width == 0 {
		a.Width = s.cfg.Sample.Width
	}
	if a.Height == 0 {
		a.Height = s.cfg.Sample.Height
	}

	src, err := s.load(a.Path)
	if err != nil {
		return nil, err
	}
	sample, err := imaging.Sample(src.Image, a.Width, a.Height)
	if err != nil {
		return nil, err
	}

	hist := forensics.ComputeHistogram(sample)
	return &histogramResult{
		SampleWidth:   sample.W,
		SampleHeight:  sample.H,
		Histogram:     hist,
		MeanLuminance: hist.Mean(),
		PeakLuminance: hist.Peak(),
	}, nil
}

type imagePaletteArgs struct {
	Path   string `json:"path"`
	Size   int    `json:"size"`
	Stride int    `json:"stride"`
}

func (s *Server) handleImagePalette(args json.RawMessage) (interface{}, error) {
	var a imagePaletteArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Size == 0 {
		a.Size = s.cfg.Palette.Size
	}
	if a.Stride == 0 {
		a.Stride = s.cfg.Palette.Stride
	}

	src, err := s.load(a.Path)
	if err != nil {
		return nil, err
	}
	sample, err := imaging.Sample(src.Image, s.cfg.Sample.Width, s.cfg.Sample.Height)
	if err != nil {
		return nil, err
	}
	palette, err := forensics.ExtractPalette(sample, a.Stride, a.Size)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"colors": palette,
	}, nil
}

type imageOverlayArgs struct {
	Path    string `json:"path"`
	Mode    string `json:"mode"`
	Quality int    `json:"quality"`
	Scale   int    `json:"scale"`
}

func (s *Server) handleImageOverlay(args json.RawMessage) (interface{}, error) {
	var a imageOverlayArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Mode == "" {
		a.Mode = s.cfg.Overlay.Mode
	}
	if a.Quality == 0 {
		a.Quality = s.cfg.Overlay.ELAQuality
	}
	if a.Scale == 0 {
		a.Scale = s.cfg.Overlay.ELAScale
	}

	src, err := s.load(a.Path)
	if err != nil {
		return nil, err
	}
	return forensics.Overlay(src.Image, forensics.OverlayOptions{
		Mode:    a.Mode,
		Quality: a.Quality,
		Scale:   a.Scale,
	})
}

// === File Forensics Handlers ===

type imageHashArgs struct {
	Path      string `json:"path"`
	Algorithm string `json:"algorithm"`
}

func (s *Server) handleImageHash(args json.RawMessage) (interface{}, error) {
	var a imageHashArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Algorithm == "" {
		a.Algorithm = s.cfg.HashAlgorithm
	}

	src, err := s.load(a.Path)
	if err != nil {
		return nil, err
	}
	return forensics.HashBytesWith(a.Algorithm, src.Raw)
}

type metadataResult struct {
	Metadata           *metadata.Metadata `json:"metadata"`
	Fields             []metadata.Field   `json:"fields"`
	HasDeviceSignature bool               `json:"has_device_signature"`
	HasGPS             bool               `json:"has_gps"`
	MapsURL            string             `json:"maps_url,omitempty"`
}

func (s *Server) handleImageMetadata(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	src, err := s.load(a.Path)
	if err != nil {
		return nil, err
	}

	md, err := metadata.Parse(src.Raw)
	if err != nil {
		return nil, err
	}
	return &metadataResult{
		Metadata:           md,
		Fields:             md.Fields(),
		HasDeviceSignature: md.HasDeviceSignature(),
		HasGPS:             md.HasGPS(),
		MapsURL:            md.MapsURL(),
	}, nil
}

type imageStripArgs struct {
	Path       string `json:"path"`
	Quality    int    `json:"quality"`
	OutputPath string `json:"output_path"`
}

type stripResult struct {
	*forensics.StrippedArtifact
	SizeBytes  int    `json:"size_bytes"`
	OutputPath string `json:"output_path,omitempty"`
	Data       string `json:"data,omitempty"`
}

func (s *Server) handleImageStrip(args json.RawMessage) (interface{}, error) {
	var a imageStripArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Quality == 0 {
		a.Quality = s.cfg.Strip.Quality
	}

	src, err := s.load(a.Path)
	if err != nil {
		return nil, err
	}
	artifact, err := forensics.StripBytes(src.Raw, a.Quality)
	if err != nil {
		return nil, err
	}

	res := &stripResult{StrippedArtifact: artifact, SizeBytes: artifact.Size()}
	if a.OutputPath == "" {
		res.Data = base64.StdEncoding.EncodeToString(artifact.Data)
		return res, nil
	}
	if err := os.WriteFile(a.OutputPath, artifact.Data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write stripped image: %w", err)
	}
	res.OutputPath = a.OutputPath
	return res, nil
}

type imageScanPhoneArgs struct {
	Path   string `json:"path"`
	Window int    `json:"window"`
}

func (s *Server) handleImageScanPhone(args json.RawMessage) (interface{}, error) {
	var a imageScanPhoneArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Window == 0 {
		a.Window = s.cfg.PhoneWindow
	}

	src, err := s.load(a.Path)
	if err != nil {
		return nil, err
	}
	matches := forensics.ScanPhoneNumbers(src.Raw, a.Window)
	if matches == nil {
		matches = []forensics.PhoneMatch{}
	}
	return map[string]interface{}{
		"window":  a.Window,
		"matches": matches,
	}, nil
}

// === Full Analysis Handlers ===

type imageAnalyzeArgs struct {
	Path    string `json:"path"`
	Overlay bool   `json:"overlay"`
	Strip   bool   `json:"strip"`
}

type analyzeResult struct {
	ID     string            `json:"id"`
	Index  int               `json:"index"`
	Report *forensics.Report `json:"report"`
}

func (s *Server) handleImageAnalyze(args json.RawMessage) (interface{}, error) {
	var a imageAnalyzeArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	src, err := s.load(a.Path)
	if err != nil {
		return nil, err
	}

	opts := s.cfg.ForensicsOptions(s.logger)
	opts.Overlay = a.Overlay
	opts.Strip = a.Strip
	report, err := forensics.Analyze(context.Background(), src.Name, src.Raw, opts)
	if err != nil {
		return nil, err
	}

	entry := s.workspace.Add(src.Name, report)
	return &analyzeResult{
		ID:     entry.ID,
		Index:  s.workspace.Len() - 1,
		Report: report,
	}, nil
}

// === Workspace Handlers ===

func (s *Server) handleWorkspaceList() (interface{}, error) {
	return map[string]interface{}{
		"selected": s.workspace.SelectedIndex(),
		"entries":  s.workspace.List(),
	}, nil
}

type workspaceSelectArgs struct {
	Index *int   `json:"index"`
	ID    string `json:"id"`
}

func (s *Server) handleWorkspaceSelect(args json.RawMessage) (interface{}, error) {
	var a workspaceSelectArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}

	var (
		entry *workspace.Entry
		err   error
	)
	switch {
	case a.ID != "":
		entry, err = s.workspace.SelectID(a.ID)
	case a.Index != nil:
		entry, err = s.workspace.Select(*a.Index)
	default:
		return nil, errors.New("index or id is required")
	}
	if err != nil {
		return nil, err
	}
	return entry, nil
}
