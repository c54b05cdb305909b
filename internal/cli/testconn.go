package cli

import (
	"context"
	"encoding/json"
	"fmt"
)

func (c *TestConnectionCommand) Execute([]string) error {
	client, err := c.deps.newClient(c.globals)
	if err != nil {
		return err
	}
	resp, err := client.TestConnection(context.Background())
	if err != nil {
		return fmt.Errorf("test connection: %w", err)
	}
	if c.globals.JSON {
		enc := json.NewEncoder(c.deps.out)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}
	if resp.Reachable {
		fmt.Fprintln(c.deps.out, "Desktop app is reachable.")
		return nil
	}
	fmt.Fprintf(c.deps.out, "Desktop app is not reachable: %s\n", resp.Error)
	return nil
}
