package docpipe

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/lexpipe/kit"
)

// ProcessRequest is the wire form of a pipeline invocation.
type ProcessRequest struct {
	DocumentID        string  `json:"document_id"`
	CaseID            string  `json:"case_id"`
	WorkspaceID       string  `json:"workspace_id"`
	Title             string  `json:"title"`
	Kind              string  `json:"kind"`
	Content           string  `json:"content"`
	MimeType          string  `json:"mime_type,omitempty"`
	ExpectedPageCount int     `json:"expected_page_count,omitempty"`
	SourceRef         string  `json:"source_ref,omitempty"`
	OCROrigin         bool    `json:"ocr_origin,omitempty"`
	OCRConfidence     float64 `json:"ocr_confidence,omitempty"`
}

func (r ProcessRequest) Input() Input {
	return Input{
		DocumentID:        r.DocumentID,
		CaseID:            r.CaseID,
		WorkspaceID:       r.WorkspaceID,
		Title:             r.Title,
		Kind:              Kind(r.Kind),
		RawContent:        r.Content,
		MimeType:          r.MimeType,
		ExpectedPageCount: r.ExpectedPageCount,
		SourceRef:         r.SourceRef,
		OCROrigin:         r.OCROrigin,
		OCRConfidence:     r.OCRConfidence,
	}
}

// RegisterMCPTools exposes the pipeline over MCP: full processing,
// fingerprinting and a format listing for discovery.
func RegisterMCPTools(srv *mcp.Server, p *Pipeline) {
	kit.RegisterMCPTool(srv,
		&mcp.Tool{
			Name:        "lexpipe_process",
			Description: "Process one document: extract text, chunk, extract entities and score quality.",
		},
		func(ctx context.Context, req any) (any, error) {
			r, ok := req.(ProcessRequest)
			if !ok {
				return nil, fmt.Errorf("unexpected request type %T", req)
			}
			return p.Process(ctx, r.Input())
		},
		decodeJSONArgs[ProcessRequest](),
	)

	kit.RegisterMCPTool(srv,
		&mcp.Tool{
			Name:        "lexpipe_fingerprint",
			Description: "Compute the content fingerprint used for duplicate detection.",
		},
		func(ctx context.Context, req any) (any, error) {
			r, ok := req.(ProcessRequest)
			if !ok {
				return nil, fmt.Errorf("unexpected request type %T", req)
			}
			return map[string]any{
				"fingerprint": Fingerprint(r.Title, Kind(r.Kind), r.Content, r.SourceRef),
				"near_empty":  NearEmpty(r.Content),
			}, nil
		},
		decodeJSONArgs[ProcessRequest](),
	)

	kit.RegisterMCPTool(srv,
		&mcp.Tool{
			Name:        "lexpipe_formats",
			Description: "List supported document kinds and file extensions.",
		},
		func(ctx context.Context, req any) (any, error) {
			return map[string]any{
				"kinds": []Kind{KindPDF, KindScanPDF, KindDocx, KindXlsx, KindPptx, KindNote, KindEmail, KindOther},
				"extensions": []string{
					".pdf", ".docx", ".doc", ".odt", ".rtf", ".xlsx", ".xls",
					".xlsm", ".ods", ".pptx", ".ppt", ".csv", ".tsv", ".json",
					".xml", ".md", ".html", ".htm",
				},
			}, nil
		},
		func(*mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
			return &kit.MCPDecodeResult{}, nil
		},
	)
}

func decodeJSONArgs[T any]() func(*mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
	return func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var v T
		if len(req.Params.Arguments) > 0 {
			if err := json.Unmarshal(req.Params.Arguments, &v); err != nil {
				return nil, err
			}
		}
		return &kit.MCPDecodeResult{Request: v}, nil
	}
}
