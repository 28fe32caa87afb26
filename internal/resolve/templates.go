package resolve

import "fmt"

// staticTemplates are the category-keyed canned responses backing the
// terminal cascade tier.
var staticTemplates = map[string]string{
	"login_issue": "It looks like you're experiencing a login issue. " +
		"Please try resetting your password using the 'Forgot Password' option. " +
		"If the problem persists, clear your browser cache and cookies, then attempt again.",

	"bug_report": "For bug reports, please provide the steps to reproduce the issue, " +
		"the expected versus actual behavior, and any error messages. " +
		"Our team will investigate and follow up with you shortly.",

	"technical_issue": "Please verify you are running the latest version and that " +
		"installation prerequisites are met. Reinstalling the affected component " +
		"resolves most setup problems. If the issue persists, include your version " +
		"and platform details when escalating.",

	"network_error": "Check your internet connection, restart your router, and try again. " +
		"If you are behind a corporate proxy or firewall, verify the required endpoints " +
		"are reachable. If the issue persists, contact IT support for assistance.",

	"performance": "Try closing unused applications and restarting the affected program. " +
		"If slowness continues, check available memory and disk space, and review " +
		"recently installed extensions or plugins that may be consuming resources.",

	"integration": "Verify your API credentials and endpoint configuration, and confirm " +
		"the external service is reachable. Consult the integration guide for the " +
		"expected request format and authentication flow.",

	"feature_request": "Thank you for your feature suggestion! We appreciate your " +
		"feedback and will review it for consideration in future updates.",

	"ui_ux": "Try resetting the layout or theme to defaults and reloading the application. " +
		"If elements remain misplaced or invisible, note your display resolution and " +
		"zoom level when reporting the problem.",

	"documentation": "Our documentation portal covers setup, usage guides, and examples. " +
		"Use the search function with the feature name to find the relevant page. " +
		"If something is missing or unclear, let us know which topic needs improvement.",
}

// templateFor returns the canned response for a category, or the generic
// catch-all mentioning the ticket.
func templateFor(category, ticket string) string {
	if text, ok := staticTemplates[category]; ok {
		return text
	}
	if runes := []rune(ticket); len(runes) > 120 {
		ticket = string(runes[:120]) + "..."
	}
	return fmt.Sprintf(
		"We received your ticket: %q.\n\n"+
			"Here are some recommended next steps:\n"+
			"1. Double-check related settings or configurations.\n"+
			"2. Review our documentation for %s-related issues.\n"+
			"3. If the issue persists, please escalate to technical support.",
		ticket, category,
	)
}
