package analysis

// Prompt is the instruction sent with every screenshot.
const Prompt = "Analyze this image and identify all tab headers that are located in divs with dark blue backgrounds. Return only the tab header names as a JSON array. If no tab headers are found in dark blue backgrounds, return an empty array."

// keywordHeaders is the fallback allow-list, scanned in order against the
// lowercased reply when it is not a JSON array.
var keywordHeaders = []struct {
	keyword string
	header  string
}{
	{"account", "Account"},
	{"settings", "Settings"},
	{"upload", "Upload"},
	{"items", "Items"},
	{"billing", "Billing"},
	{"shipping", "Shipping"},
	{"accounting", "Accounting"},
	{"relationships", "Relationships"},
	{"communication", "Communication"},
	{"related records", "Related Records"},
	{"system information", "System Information"},
	{"custom", "Custom"},
	{"eft", "EFT"},
	{"mobile app attachments", "Mobile App Attachments"},
}
