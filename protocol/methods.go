package protocol

// Defines constants for common LSP method names.

const (
	// Text Document Synchronization
	MethodTextDocumentDidOpen   = "textDocument/didOpen"
	MethodTextDocumentDidChange = "textDocument/didChange"
	MethodTextDocumentDidSave   = "textDocument/didSave"
	MethodTextDocumentDidClose  = "textDocument/didClose"

	// Language Features
	MethodTextDocumentCompletion     = "textDocument/completion"
	MethodTextDocumentCodeAction     = "textDocument/codeAction"
	MethodTextDocumentSemanticTokens = "textDocument/semanticTokens/full"
	MethodTextDocumentFoldingRange   = "textDocument/foldingRange"

	// Workspace Features
	MethodWorkspaceExecuteCommand         = "workspace/executeCommand"
	MethodWorkspaceDidChangeConfiguration = "workspace/didChangeConfiguration"

	// Window Features
	MethodWindowShowMessage            = "window/showMessage"
	MethodWindowLogMessage             = "window/logMessage"
	MethodWindowWorkDoneProgressCreate = "window/workDoneProgress/create"

	// Diagnostics
	MethodTextDocumentPublishDiagnostics = "textDocument/publishDiagnostics"

	// General Lifecycle
	MethodInitialize    = "initialize"
	MethodInitialized   = "initialized"
	MethodShutdown      = "shutdown"
	MethodExit          = "exit"
	MethodCancelRequest = "$/cancelRequest" // Notification to cancel a request
	MethodProgress      = "$/progress"      // Notification for progress updates
	MethodSetTrace      = "$/setTrace"

	// Skript extensions
	MethodSkriptStatus                = "skript/status"
	MethodSkriptLanguageConfiguration = "skript/languageConfiguration"
)
