package taxonomy

import "regexp"

// Default returns the built-in support taxonomy.
//
// Category order is the priority order used for tie-breaking: a ticket that
// scores equally on login_issue and documentation resolves to login_issue.
func Default() *Taxonomy {
	t, err := New([]Category{
		{
			Name: "login_issue",
			Keywords: []string{
				"login", "authentication", "auth", "password", "credentials",
				"token", "oauth", "signin", "sign in", "account", "access denied",
			},
			Patterns: compile(
				`login.*fail`, `authentication.*error`, `access.*denied`,
				`credentials.*invalid`, `token.*expired`,
			),
			Example: "Authentication failed and I cannot login with my credentials",
		},
		{
			Name: "bug_report",
			Keywords: []string{
				"bug", "error", "crash", "broken", "not working", "issue",
				"problem", "exception", "fail", "doesn't work", "stopped working",
			},
			Patterns: compile(
				`error.*code`, `crash.*when`, `doesn't.*work`, `not.*working`,
				`throws.*error`, `getting.*error`,
			),
			Example: "The application crashes with an error whenever I open it",
		},
		{
			Name: "technical_issue",
			Keywords: []string{
				"install", "installation", "setup", "configure", "configuration",
				"permission", "compatibility", "version", "update", "upgrade",
			},
			Patterns: compile(
				`how.*to.*install`, `setup.*issue`, `configuration.*problem`,
				`compatibility.*with`, `version.*conflict`,
			),
			Example: "Having trouble installing and configuring the software",
		},
		{
			Name: "network_error",
			Keywords: []string{
				"network", "connection", "offline", "dns", "proxy", "firewall",
				"unreachable", "disconnect",
			},
			Patterns: compile(
				`connection.*refused`, `network.*error`, `cannot.*connect`,
				`timed?.*out.*connecting`,
			),
			Example: "Network connection keeps dropping and the server is unreachable",
		},
		{
			Name: "performance",
			Keywords: []string{
				"slow", "performance", "speed", "lag", "memory", "cpu",
				"freeze", "hang", "timeout", "delay", "takes forever",
			},
			Patterns: compile(
				`runs.*slow`, `performance.*issue`, `takes.*long.*time`,
				`memory.*usage`, `cpu.*high`,
			),
			Example: "Everything runs very slow and consumes too much memory",
		},
		{
			Name: "integration",
			Keywords: []string{
				"integration", "api", "webhook", "connect", "sync", "import",
				"export", "third party", "external", "plugin",
			},
			Patterns: compile(
				`integrate.*with`, `connect.*to`, `api.*not.*working`,
				`sync.*with`, `import.*from`,
			),
			Example: "How do I integrate with external APIs and third party services",
		},
		{
			Name: "feature_request",
			Keywords: []string{
				"feature", "request", "suggestion", "enhance", "improvement",
				"would like", "wish", "could you", "please add", "enhancement",
			},
			Patterns: compile(
				`would.*like`, `could.*you.*add`, `please.*add`,
				`feature.*request`, `suggestion.*for`,
			),
			Example: "I would like to request a new feature to improve my workflow",
		},
		{
			Name: "ui_ux",
			Keywords: []string{
				"interface", "ui", "ux", "design", "layout", "theme", "font",
				"button", "menu", "display", "visual", "appearance",
			},
			Patterns: compile(
				`ui.*issue`, `interface.*problem`, `layout.*broken`,
				`display.*incorrect`,
			),
			Example: "The interface layout is broken and buttons are not visible",
		},
		{
			Name: "documentation",
			Keywords: []string{
				"documentation", "docs", "guide", "tutorial", "how to",
				"example", "usage", "manual", "instructions", "readme",
			},
			Patterns: compile(
				`how.*to.*use`, `where.*is.*documentation`, `need.*help.*with`,
				`tutorial.*for`, `guide.*on`,
			),
			Example: "Where can I find documentation and usage examples",
		},
	})
	if err != nil {
		// The built-in taxonomy is validated by tests; a failure here is a
		// programming error.
		panic(err)
	}
	return t
}

func compile(patterns ...string) []*regexp.Regexp {
	res := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		res[i] = regexp.MustCompile("(?i)" + p)
	}
	return res
}
