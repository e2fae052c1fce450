package audit

import (
	"errors"
	"testing"
)

func TestValidationErrorMatchesSentinel(t *testing.T) {
	err := &ValidationError{Message: "Not a Shopify store"}
	if !errors.Is(err, ErrNotShopifyStore) {
		t.Error("ValidationError should match ErrNotShopifyStore")
	}
	// The user sees the server's message verbatim.
	if err.Error() != "Not a Shopify store" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestStageErrorUnwrap(t *testing.T) {
	inner := errors.New("screenshot timed out")
	err := &StageError{Page: PageProduct, Stage: StageTakeScreenshot, Err: inner}
	if !errors.Is(err, inner) {
		t.Error("StageError should unwrap to the inner error")
	}
	if err.Error() != "product/take_screenshot: screenshot timed out" {
		t.Errorf("Error() = %q", err.Error())
	}
}
