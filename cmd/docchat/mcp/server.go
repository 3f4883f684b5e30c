package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/neilberkman/docchat/internal/core/db"
	"github.com/neilberkman/docchat/internal/core/logging"
	"github.com/neilberkman/docchat/internal/core/models"
	"github.com/neilberkman/docchat/internal/core/search"
	"github.com/neilberkman/docchat/internal/core/session"
	"github.com/neilberkman/docchat/pkg/selection"
)

// UploadDocumentsArgs defines arguments for the upload_documents tool
type UploadDocumentsArgs struct {
	Paths []string `json:"paths" jsonschema:"description=Files, directories or globs to upload,required"`
	Wait  *bool    `json:"wait,omitempty" jsonschema:"description=Wait for processing to finish (default: true)"`
}

// AskQuestionArgs defines arguments for the ask_question tool
type AskQuestionArgs struct {
	Question string `json:"question" jsonschema:"description=Question about the uploaded documents,required"`
}

// ListHistoryArgs defines arguments for the list_history tool
type ListHistoryArgs struct {
	Limit     int    `json:"limit,omitempty" jsonschema:"description=Max chats to return (default: 20)"`
	AfterDate string `json:"after_date,omitempty" jsonschema:"description=Only chats updated after this date (ISO 8601 format)"`
}

// SearchHistoryArgs defines arguments for the search_history tool
type SearchHistoryArgs struct {
	Query string `json:"query" jsonschema:"description=Search term to match against archived messages,required"`
	Limit int    `json:"limit,omitempty" jsonschema:"description=Max matches to return (default: 10)"`
}

// FileStatus is one tracked file in a session_state or upload result
type FileStatus struct {
	Name     string `json:"name"`
	Status   string `json:"status"`
	Progress int    `json:"progress"`
	Size     int64  `json:"size"`
	Error    string `json:"error,omitempty"`
}

// SessionState is the session_state tool result
type SessionState struct {
	SessionID       string       `json:"session_id"`
	Mode            string       `json:"mode"`
	OverallProgress int          `json:"overall_progress"`
	Files           []FileStatus `json:"files"`
	MessageCount    int          `json:"message_count"`
	Awaiting        bool         `json:"awaiting_answer"`
	LastMessage     string       `json:"last_message,omitempty"`
}

// HistoryEntry represents an archived chat in the list view
type HistoryEntry struct {
	SessionID    string `json:"session_id"`
	Title        string `json:"title"`
	UpdatedAt    string `json:"updated_at"`
	FileCount    int    `json:"file_count"`
	MessageCount int    `json:"message_count"`
}

// SearchMatch represents an archived message matching a query
type SearchMatch struct {
	SessionID string `json:"session_id"`
	Title     string `json:"title"`
	Role      string `json:"role"`
	Snippet   string `json:"snippet"`
	Timestamp string `json:"timestamp"`
}

// StartServer serves the controller's session over stdio
func StartServer(ctrl *session.Controller, database *db.DB, opts selection.Options) error {
	s := server.NewMCPServer(
		"docchat",
		"1.0.0",
	)

	uploadTool := mcp.NewTool("upload_documents",
		mcp.WithDescription("Upload documents into the current chat session. Waits for processing by default and returns the batch summary and per-file status."),
		mcp.WithArray("paths",
			mcp.Required(),
			mcp.Description("Files, directories or globs to upload"),
			mcp.Items(map[string]any{"type": "string"})),
		mcp.WithBoolean("wait",
			mcp.Description("Wait for processing to finish (default: true)")),
	)
	s.AddTool(uploadTool, makeUploadHandler(ctrl, opts))

	askTool := mcp.NewTool("ask_question",
		mcp.WithDescription("Ask a question about the uploaded documents and wait for the answer. Requires at least one processed document."),
		mcp.WithString("question",
			mcp.Required(),
			mcp.Description("Question about the uploaded documents")),
	)
	s.AddTool(askTool, makeAskHandler(ctrl))

	stateTool := mcp.NewTool("session_state",
		mcp.WithDescription("Get the current session: mode, upload progress, files and message count"),
	)
	s.AddTool(stateTool, makeStateHandler(ctrl))

	newChatTool := mcp.NewTool("new_chat",
		mcp.WithDescription("Archive the current chat and start an empty session"),
	)
	s.AddTool(newChatTool, makeNewChatHandler(ctrl))

	listTool := mcp.NewTool("list_history",
		mcp.WithDescription("List archived chats, most recent first"),
		mcp.WithNumber("limit",
			mcp.Description("Max chats to return (default: 20)")),
		mcp.WithString("after_date",
			mcp.Description("Only chats updated after this date (ISO 8601 format, e.g. '2025-01-01')")),
	)
	s.AddTool(listTool, makeListHistoryHandler(database))

	searchTool := mcp.NewTool("search_history",
		mcp.WithDescription("Full-text search across archived chat messages"),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search term to match against archived messages")),
		mcp.WithNumber("limit",
			mcp.Description("Max matches to return (default: 10)")),
	)
	s.AddTool(searchTool, makeSearchHistoryHandler(database))

	logging.Info().Str("session", ctrl.SessionID()).Msg("mcp server listening on stdio")
	return server.ServeStdio(s)
}

type toolHandler = func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)

// decodeArgs round-trips the raw arguments into a typed struct
func decodeArgs(request mcp.CallToolRequest, v any) error {
	argsBytes, _ := json.Marshal(request.Params.Arguments)
	return json.Unmarshal(argsBytes, v)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	resultJSON, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(resultJSON)), nil
}

func makeUploadHandler(ctrl *session.Controller, opts selection.Options) toolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args UploadDocumentsArgs
		if err := decodeArgs(request, &args); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}

		files, rejected := selection.Resolve(opts, args.Paths...)
		var skipped []string
		for _, r := range rejected {
			skipped = append(skipped, r.Error())
		}
		if len(files) == 0 {
			return mcp.NewToolResultError(fmt.Sprintf("no files to upload: %v", skipped)), nil
		}

		ids, err := ctrl.SelectFiles(files)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		state := ctrl.Snapshot()
		summary := ""
		if args.Wait == nil || *args.Wait {
			state, err = ctrl.AwaitUploads(ctx, ids)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("upload interrupted: %v", err)), nil
			}
			if last := lastMessage(state); last != nil {
				summary = last.Content
			}
		}

		var statuses []FileStatus
		for _, id := range ids {
			if rec, ok := state.Files.Get(id); ok {
				statuses = append(statuses, fileStatus(rec))
			}
		}

		return jsonResult(map[string]any{
			"summary": summary,
			"files":   statuses,
			"skipped": skipped,
		})
	}
}

func makeAskHandler(ctrl *session.Controller) toolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args AskQuestionArgs
		if err := decodeArgs(request, &args); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}

		msgID, err := ctrl.SendMessage(args.Question)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		reply, err := ctrl.AwaitReply(ctx, msgID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("no answer: %v", err)), nil
		}
		if reply.IsError {
			return mcp.NewToolResultError(reply.Content), nil
		}
		return mcp.NewToolResultText(reply.Content), nil
	}
}

func makeStateHandler(ctrl *session.Controller) toolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		s := ctrl.Snapshot()
		result := SessionState{
			SessionID:       s.SessionID,
			Mode:            s.Mode().String(),
			OverallProgress: s.OverallProgress(),
			Files:           []FileStatus{},
			MessageCount:    len(s.Messages()),
			Awaiting:        s.Awaiting(),
		}
		for _, f := range s.Files.All() {
			result.Files = append(result.Files, fileStatus(f))
		}
		if last := lastMessage(s); last != nil {
			result.LastMessage = last.Content
		}
		return jsonResult(result)
	}
}

func makeNewChatHandler(ctrl *session.Controller) toolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := ctrl.NewChat()
		return jsonResult(map[string]string{"session_id": id})
	}
}

func makeListHistoryHandler(database *db.DB) toolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args ListHistoryArgs
		if err := decodeArgs(request, &args); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}

		limit := args.Limit
		if limit == 0 {
			limit = 20
		}

		opts := db.ListOptions{Limit: limit}
		if args.AfterDate != "" {
			after, err := parseISODate(args.AfterDate)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			opts.Since = after
		}

		coreSessions, err := database.ListSessions(opts)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("query failed: %v", err)), nil
		}

		sessions := []HistoryEntry{}
		for _, cs := range coreSessions {
			sessions = append(sessions, HistoryEntry{
				SessionID:    cs.SessionID,
				Title:        cs.Title,
				UpdatedAt:    cs.UpdatedAt.Format("2006-01-02 15:04:05"),
				FileCount:    cs.FileCount,
				MessageCount: cs.MessageCount,
			})
		}

		return jsonResult(map[string]any{
			"sessions": sessions,
		})
	}
}

func makeSearchHistoryHandler(database *db.DB) toolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args SearchHistoryArgs
		if err := decodeArgs(request, &args); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}

		limit := args.Limit
		if limit == 0 {
			limit = 10
		}

		results, err := search.Search(database, args.Query, limit)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
		}

		matches := []SearchMatch{}
		for _, r := range results {
			matches = append(matches, SearchMatch{
				SessionID: r.SessionID,
				Title:     r.SessionTitle,
				Role:      r.Role,
				Snippet:   r.MessageText,
				Timestamp: r.Timestamp.Format("2006-01-02 15:04:05"),
			})
		}

		return jsonResult(map[string]any{
			"matches": matches,
		})
	}
}

func lastMessage(s session.State) *models.Message {
	msgs := s.Messages()
	if len(msgs) == 0 {
		return nil
	}
	return &msgs[len(msgs)-1]
}

func fileStatus(f models.FileRecord) FileStatus {
	return FileStatus{
		Name:     f.Name,
		Status:   string(f.Status),
		Progress: f.EffectiveProgress(),
		Size:     f.Size,
		Error:    f.Err,
	}
}

func parseISODate(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02", time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q, expected ISO 8601", s)
}
