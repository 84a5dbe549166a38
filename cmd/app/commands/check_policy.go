package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/allisson/scimgate/internal/app"
	authDomain "github.com/allisson/scimgate/internal/auth/domain"
	"github.com/allisson/scimgate/internal/auth/policy"
	"github.com/allisson/scimgate/internal/config"
)

// RunCheckPolicy evaluates the configured policy table against a simulated
// request and prints the decision. The evaluation is fully offline: no token
// is validated and no authorization server is contacted.
func RunCheckPolicy(method, path, scopes, userID, ownerID, format string) error {
	// Load configuration
	cfg := config.Load()

	// Create DI container
	container := app.NewContainer(cfg)

	// Get logger from container
	logger := container.Logger()

	// Ensure cleanup on exit
	defer closeContainer(container, logger)

	table, err := container.PolicyTable()
	if err != nil {
		return fmt.Errorf("failed to load policy table: %w", err)
	}

	evaluator, err := container.Evaluator()
	if err != nil {
		return fmt.Errorf("failed to initialize evaluator: %w", err)
	}

	return checkPolicy(os.Stdout, table, evaluator, method, path, scopes, userID, ownerID, format)
}

// checkPolicy runs the simulated evaluation against injected components.
func checkPolicy(
	out io.Writer,
	table *policy.Table,
	evaluator *policy.Evaluator,
	method, path, scopes, userID, ownerID, format string,
) error {
	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" || path == "" {
		return fmt.Errorf("both method and path are required")
	}

	var principal authDomain.Principal
	if userID != "" {
		principal = authDomain.UserPrincipal{UserID: userID, ClientID: "policy-check"}
	} else {
		principal = authDomain.ClientPrincipal{ClientID: "policy-check"}
	}

	var scopeNames []string
	for _, name := range strings.Split(scopes, ",") {
		if name = strings.TrimSpace(name); name != "" {
			scopeNames = append(scopeNames, name)
		}
	}
	scopeSet := authDomain.NewScopeSet(scopeNames...)

	rule, _ := table.Match(method, path)

	decision := evaluator.Decide(principal, scopeSet, rule, policy.Facts{
		Method:          method,
		ResourceOwnerID: ownerID,
	})

	ruleName := ""
	if rule != nil {
		ruleName = rule.Name
	}

	if format == "json" {
		outputDecisionJSON(out, decision, ruleName)
	} else {
		outputDecisionText(out, decision, ruleName)
	}

	return nil
}

// outputDecisionText outputs the decision in human-readable text format.
func outputDecisionText(out io.Writer, decision authDomain.Decision, ruleName string) {
	switch {
	case decision.Allowed():
		fmt.Fprintf(out, "ALLOW (rule: %s)\n", ruleName)
	case decision.Err != nil:
		fmt.Fprintf(out, "ERROR: %s (%v)\n", decision.Reason, decision.Err)
	default:
		fmt.Fprintf(out, "DENY: %s\n", decision.Reason)
	}
}

// outputDecisionJSON outputs the decision in JSON format for machine consumption.
func outputDecisionJSON(out io.Writer, decision authDomain.Decision, ruleName string) {
	effect := "deny"
	if decision.Allowed() {
		effect = "allow"
	} else if decision.Err != nil {
		effect = "error"
	}

	result := map[string]interface{}{
		"effect": effect,
		"rule":   ruleName,
		"reason": decision.Reason,
	}
	if decision.Err != nil {
		result["error"] = decision.Err.Error()
	}

	jsonBytes, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to marshal JSON: %v\n", err)
		return
	}

	fmt.Fprintln(out, string(jsonBytes))
}
