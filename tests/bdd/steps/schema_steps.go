//go:build bdd

package steps

import (
	"fmt"

	"github.com/cucumber/godog"
)

// RegisterSchemaSteps registers schema-registry step definitions.
func RegisterSchemaSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	ctx.Step(`^namespace "([^"]*)" has schema:$`, func(namespace string, schema *godog.DocString) error {
		body := map[string]interface{}{"schema": schema.Content}
		if err := tc.PUT("/schema/"+namespace, body); err != nil {
			return err
		}
		if tc.LastStatusCode != 201 {
			return fmt.Errorf("expected 201 registering schema, got %d: %s", tc.LastStatusCode, string(tc.LastBody))
		}
		return nil
	})

	ctx.Step(`^I GET "([^"]*)"$`, func(path string) error {
		return tc.GET(path)
	})

	ctx.Step(`^the response status is (\d+)$`, func(code int) error {
		if tc.LastStatusCode != code {
			return fmt.Errorf("expected status %d, got %d: %s", code, tc.LastStatusCode, string(tc.LastBody))
		}
		return nil
	})
}
