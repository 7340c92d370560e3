package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func pathProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Absolute path to the image file",
	}
}

func pathOnlySchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"path": pathProperty(),
		},
		"required": []string{"path"},
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Basic Image Information
		{
			Name:        "image_load",
			Description: "Load an image file and return its dimensions, format and file size.",
			InputSchema: pathOnlySchema(),
		},
		{
			Name:        "image_dimensions",
			Description: "Get the width and height of an image file.",
			InputSchema: pathOnlySchema(),
		},

		// Pixel Statistics
		{
			Name:        "image_histogram",
			Description: "Downsample an image and compute its 256-bin luminance histogram (Y = 0.299R + 0.587G + 0.114B).",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"width": map[string]interface{}{
						"type":        "integer",
						"description": "Sample width in pixels (default: 100)",
					},
					"height": map[string]interface{}{
						"type":        "integer",
						"description": "Sample height in pixels (default: 100)",
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_palette",
			Description: "Extract the most frequent exact colors from a downsampled image, ordered by count.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"size": map[string]interface{}{
						"type":        "integer",
						"description": "Maximum number of colors to return (default: 6)",
					},
					"stride": map[string]interface{}{
						"type":        "integer",
						"description": "Visit every Nth sample pixel (default: 10)",
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_overlay",
			Description: "Render a difference overlay (difference blend against a gray fill) or an error-level overlay (JPEG recompression residue) as base64 PNG. The overlay is a visual aid, not a tamper verdict.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"mode": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"difference", "recompress"},
						"description": "Overlay mode (default: difference)",
					},
					"quality": map[string]interface{}{
						"type":        "integer",
						"description": "JPEG quality for recompress mode (default: 90)",
					},
					"scale": map[string]interface{}{
						"type":        "integer",
						"description": "Amplification factor for recompress mode (default: 15)",
					},
				},
				"required": []string{"path"},
			},
		},

		// File Forensics
		{
			Name:        "image_hash",
			Description: "Compute a digest of the original file bytes as uploaded.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"algorithm": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"sha256", "blake3"},
						"description": "Digest algorithm (default: sha256)",
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_metadata",
			Description: "Read embedded EXIF tags: camera make and model, software, capture settings, timestamp and GPS position.",
			InputSchema: pathOnlySchema(),
		},
		{
			Name:        "image_strip",
			Description: "Re-encode the image as JPEG without any embedded metadata. Writes to output_path when given, otherwise returns base64 data.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"quality": map[string]interface{}{
						"type":        "integer",
						"description": "JPEG quality 1-100 (default: 95)",
					},
					"output_path": map[string]interface{}{
						"type":        "string",
						"description": "Where to write the stripped JPEG",
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_scan_phone",
			Description: "Scan the start of the file bytes for printable runs that look like phone numbers. Matches are low-confidence hints.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"window": map[string]interface{}{
						"type":        "integer",
						"description": "Number of leading bytes to scan (default: 65536)",
					},
				},
				"required": []string{"path"},
			},
		},

		// Full Analysis
		{
			Name:        "image_analyze",
			Description: "Run every analysis over an image and add the report to the workspace. The first analysed image becomes the selection.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"overlay": map[string]interface{}{
						"type":        "boolean",
						"description": "Include the configured overlay (default: false)",
					},
					"strip": map[string]interface{}{
						"type":        "boolean",
						"description": "Produce a metadata-free copy (default: false)",
					},
				},
				"required": []string{"path"},
			},
		},

		// Workspace
		{
			Name:        "workspace_list",
			Description: "List the analysed images in the workspace and which one is selected.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			Name:        "workspace_select",
			Description: "Select a workspace entry by index or ID.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"index": map[string]interface{}{
						"type":        "integer",
						"description": "0-based position in workspace_list",
					},
					"id": map[string]interface{}{
						"type":        "string",
						"description": "Entry ID; takes precedence over index",
					},
				},
			},
		},
		{
			Name:        "workspace_current",
			Description: "Return the full report of the selected workspace entry.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
