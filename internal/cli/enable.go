package cli

import (
	"context"
	"fmt"
)

func (c *EnableCommand) Execute([]string) error {
	client, err := c.deps.newClient(c.globals)
	if err != nil {
		return err
	}
	if err := client.SetEnabled(context.Background(), true); err != nil {
		return fmt.Errorf("enable tracking: %w", err)
	}
	fmt.Fprintln(c.deps.out, "Tracking enabled.")
	return nil
}

func (c *DisableCommand) Execute([]string) error {
	client, err := c.deps.newClient(c.globals)
	if err != nil {
		return err
	}
	if err := client.SetEnabled(context.Background(), false); err != nil {
		return fmt.Errorf("disable tracking: %w", err)
	}
	fmt.Fprintln(c.deps.out, "Tracking disabled.")
	return nil
}
