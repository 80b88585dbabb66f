package mcptools

import "github.com/mark3labs/mcp-go/mcp"

// searchDocumentsTool runs a hybrid keyword and semantic search.
var searchDocumentsTool = mcp.NewTool("search_documents",
	mcp.WithDescription("Search machine documentation by keyword and meaning. Returns matching documents with page numbers and content snippets."),
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("Search query, e.g. 'hydraulic pressure loss' or an error code like 'E-42'"),
	),
	mcp.WithString("machine",
		mcp.Description("Restrict results to one machine by exact name, e.g. 'CSP' or 'Feeder_1'"),
	),
	mcp.WithString("document_type",
		mcp.Description("Restrict results to one document type: manual, diagram, parts, context, general, or info"),
	),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of results to return (default 10)"),
	),
)

// searchTroubleshootingTool searches with fault-diagnosis tuning.
var searchTroubleshootingTool = mcp.NewTool("search_troubleshooting",
	mcp.WithDescription("Search for troubleshooting information about a machine problem. Widens the query with fault vocabulary and prefers manuals and pinned context documents."),
	mcp.WithString("problem",
		mcp.Required(),
		mcp.Description("Description of the problem, e.g. 'belt keeps slipping under load'"),
	),
	mcp.WithString("machine",
		mcp.Description("Restrict results to one machine by exact name"),
	),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of results to return (default 5)"),
	),
)

// getDocumentContentTool retrieves page text of an indexed document.
var getDocumentContentTool = mcp.NewTool("get_document_content",
	mcp.WithDescription("Get the extracted text of an indexed document, either whole or for specific pages."),
	mcp.WithNumber("document_id",
		mcp.Required(),
		mcp.Description("Numeric document id from a search result"),
	),
	mcp.WithString("pages",
		mcp.Description("Comma-separated page numbers to return, e.g. '3,4,5'. Omit for all pages."),
	),
)

// getMachineOverviewTool summarizes a machine and its document library.
var getMachineOverviewTool = mcp.NewTool("get_machine_overview",
	mcp.WithDescription("Get an overview of a machine: its type, line, description, and the indexed documents grouped by type."),
	mcp.WithString("machine",
		mcp.Required(),
		mcp.Description("Machine name, e.g. 'CSP' or 'Feeder_1'"),
	),
)

// getProcessingStatusTool reports indexing progress and recent activity.
var getProcessingStatusTool = mcp.NewTool("get_processing_status",
	mcp.WithDescription("Get document processing statistics: total, completed, and failed documents, page and chunk counts, and recent processing log entries."),
)
