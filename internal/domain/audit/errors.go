package audit

import "errors"

// ErrNotShopifyStore indicates validate_shopify returned isShopify=false.
// The orchestrator aborts the remaining stages for that page.
var ErrNotShopifyStore = errors.New("not a shopify store")

// ErrSessionNotFound indicates an unknown audit session id.
var ErrSessionNotFound = errors.New("audit session not found")

// ErrAuditInProgress indicates a re-entry attempt on a session whose run has
// not finished. Sessions have one writer; a continue must wait for it.
var ErrAuditInProgress = errors.New("audit already in progress")

// ValidationError carries the server-supplied message for a store that
// failed validation, while still matching ErrNotShopifyStore via errors.Is.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Is(target error) bool { return target == ErrNotShopifyStore }

// StageError wraps a stage failure with its page and stage context.
type StageError struct {
	Page  PageType
	Stage StageName
	Err   error
}

func (e *StageError) Error() string {
	return string(e.Page) + "/" + string(e.Stage) + ": " + e.Err.Error()
}

func (e *StageError) Unwrap() error { return e.Err }
