package audit

import (
	"math"
	"strings"
)

// Terminal and waiting statuses shared by the coordinator and the projection.
const (
	StatusIdle              = "idle"
	StatusQueued            = "queued"
	StatusWaitingForPayment = "waiting-for-payment"
	StatusCleanup           = "cleanup"
	StatusComplete          = "complete"
	StatusAllStepsComplete  = "all-steps-complete"
	StatusErrorOccurred     = "error-occurred"
)

type statusInfo struct {
	Step        int
	Description string
}

// statusMessages maps every known status to a coarse phase marker (0-5) and
// user-facing copy. Step 0 marks waiting/fallback states that always project
// to 0%.
var statusMessages = map[string]statusInfo{
	StatusIdle:              {0, "Waiting to start"},
	StatusQueued:            {0, "Audit queued"},
	StatusWaitingForPayment: {0, "Waiting for payment confirmation"},
	StatusErrorOccurred:     {0, "Something went wrong during the audit"},
	StatusCleanup:           {5, "Finalizing your report"},
	StatusComplete:          {5, "Audit complete"},
	StatusAllStepsComplete:  {5, "All pages analyzed"},
	"restarting-analysis":   {1, "Restarting the audit"},
	"fetching-report":       {1, "Fetching your saved report"},

	"step-1-homepage-start":      {1, "Starting homepage audit"},
	"validate-homepage":          {1, "Validating your store"},
	"screenshot-homepage":        {1, "Capturing your homepage"},
	"analyze-homepage":           {1, "Analyzing your homepage"},
	"checklist-homepage":         {1, "Matching homepage checklist"},
	"step-1-homepage-complete":   {2, "Homepage audit finished"},
	"step-2-collection-start":    {2, "Starting collection page audit"},
	"validate-collection":        {2, "Validating collection page"},
	"screenshot-collection":      {2, "Capturing a collection page"},
	"analyze-collection":         {2, "Analyzing the collection page"},
	"checklist-collection":       {2, "Matching collection checklist"},
	"step-2-collection-complete": {3, "Collection audit finished"},
	"step-3-product-start":       {3, "Starting product page audit"},
	"validate-product":           {3, "Validating product page"},
	"screenshot-product":         {3, "Capturing a product page"},
	"analyze-product":            {3, "Analyzing the product page"},
	"checklist-product":          {3, "Matching product checklist"},
	"step-3-product-complete":    {4, "Product audit finished"},
	"step-4-cart-start":          {4, "Starting cart audit"},
	"validate-cart":              {4, "Validating cart page"},
	"screenshot-cart":            {4, "Capturing the cart"},
	"analyze-cart":               {4, "Analyzing the cart"},
	"checklist-cart":             {4, "Matching cart checklist"},
	"step-4-cart-complete":       {5, "Cart audit finished"},
}

// progressTable holds the hand-assigned percentage for each concrete
// per-page-per-stage status. Each page type occupies a ~20-point band across
// the four-page pipeline; nothing here exceeds 95.
var progressTable = map[string]int{
	"step-1-homepage-start":      2,
	"validate-homepage":          5,
	"screenshot-homepage":        8,
	"analyze-homepage":           12,
	"checklist-homepage":         16,
	"step-1-homepage-complete":   20,
	"step-2-collection-start":    27,
	"validate-collection":        30,
	"screenshot-collection":      33,
	"analyze-collection":         37,
	"checklist-collection":       41,
	"step-2-collection-complete": 45,
	"step-3-product-start":       52,
	"validate-product":           55,
	"screenshot-product":         58,
	"analyze-product":            62,
	"checklist-product":          66,
	"step-3-product-complete":    70,
	"step-4-cart-start":          77,
	"validate-cart":              80,
	"screenshot-cart":            83,
	"analyze-cart":               87,
	"checklist-cart":             91,
	"step-4-cart-complete":       95,
	StatusCleanup:                95,
}

// CalculateProgress projects a discrete status into a percentage. 100 is
// reserved for the two true-completion statuses; everything else clamps at
// 95. Unmapped step-0 waiting statuses project to 0 regardless of how much
// work actually completed.
func CalculateProgress(status string) int {
	switch status {
	case StatusComplete, StatusAllStepsComplete:
		return 100
	case StatusErrorOccurred:
		return 0
	}
	if p, ok := progressTable[status]; ok {
		return p
	}
	info, ok := statusMessages[status]
	if !ok || info.Step == 0 {
		return 0
	}
	p := int(math.Round(float64(info.Step) / 5 * 100))
	if strings.HasSuffix(status, "-complete") {
		p += 10
	} else if strings.HasSuffix(status, "-start") {
		p += 5
	}
	if p > 95 {
		p = 95
	}
	return p
}

// StatusDescription returns the user-facing copy for a status, or the status
// itself when no copy is registered.
func StatusDescription(status string) string {
	if info, ok := statusMessages[status]; ok {
		return info.Description
	}
	return status
}
